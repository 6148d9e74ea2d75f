package api

import (
	"context"
	"fmt"

	"servigo-client/models"
)

// Bookings lists the caller's bookings under the role prefix. Servicers see the
// jobs assigned to them, users their own bookings, admins everything.
func (c *Client) Bookings(ctx context.Context) ([]models.Booking, error) {
	var resp struct {
		Bookings []models.Booking `json:"bookings"`
	}
	path := c.RolePrefix() + "/bookings"
	if c.role == models.RoleServicer {
		path = "/servicer/services"
	}
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return resp.Bookings, nil
}

// bookingPath maps a booking id to the role's detail endpoint. Servicers see
// bookings as "services"; users and admins as "bookings".
func (c *Client) bookingPath(id uint) string {
	if c.role == models.RoleServicer {
		return fmt.Sprintf("/servicer/services/%d", id)
	}
	return fmt.Sprintf("%s/bookings/%d", c.RolePrefix(), id)
}

// Booking fetches one booking's detail view. The client never caches this
// across screens; each view re-fetches.
func (c *Client) Booking(ctx context.Context, id uint) (*models.Booking, error) {
	var resp struct {
		Booking models.Booking `json:"booking"`
	}
	if err := c.get(ctx, c.bookingPath(id), &resp); err != nil {
		return nil, err
	}
	return &resp.Booking, nil
}

// CancelBooking requests a cancel transition. Allowed only from
// pending/accepted; the server enforces that, the client merely avoids
// offering the action elsewhere.
func (c *Client) CancelBooking(ctx context.Context, id uint) (*models.Booking, error) {
	if err := c.put(ctx, c.bookingPath(id)+"/cancel", nil, nil); err != nil {
		return nil, err
	}
	return c.Booking(ctx, id)
}

// AcceptBooking requests the pending→accepted transition (servicer side).
func (c *Client) AcceptBooking(ctx context.Context, id uint) (*models.Booking, error) {
	path := fmt.Sprintf("/servicer/services/%d/accept", id)
	if err := c.put(ctx, path, nil, nil); err != nil {
		return nil, err
	}
	return c.Booking(ctx, id)
}
