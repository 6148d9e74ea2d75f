package api

import (
	"context"
	"fmt"

	"servigo-client/models"
)

// Notifications fetches the caller's notification inbox, newest first.
func (c *Client) Notifications(ctx context.Context) ([]models.Notification, error) {
	var resp struct {
		Notifications []models.Notification `json:"notifications"`
		UnreadCount   int                   `json:"unread_count"`
	}
	if err := c.get(ctx, c.RolePrefix()+"/notifications", &resp); err != nil {
		return nil, err
	}
	return resp.Notifications, nil
}

// MarkNotificationRead marks one notification as read.
func (c *Client) MarkNotificationRead(ctx context.Context, id uint) error {
	path := fmt.Sprintf("%s/notifications/%d/read", c.RolePrefix(), id)
	return c.put(ctx, path, nil, nil)
}

// MarkAllNotificationsRead marks the whole inbox read.
func (c *Client) MarkAllNotificationsRead(ctx context.Context) error {
	return c.put(ctx, c.RolePrefix()+"/notifications/read-all", nil, nil)
}

// DeleteNotification removes one notification.
func (c *Client) DeleteNotification(ctx context.Context, id uint) error {
	path := fmt.Sprintf("%s/notifications/%d", c.RolePrefix(), id)
	return c.delete(ctx, path)
}
