package api

import (
	"context"
	"fmt"
	"net/url"

	"servigo-client/models"
)

// Issues lists the dispute threads visible to the caller's role.
func (c *Client) Issues(ctx context.Context) ([]models.TransactionIssue, error) {
	var resp struct {
		Issues []models.TransactionIssue `json:"issues"`
	}
	path := c.RolePrefix() + "/transaction-issues"
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return resp.Issues, nil
}

// Issue fetches one dispute with its metadata.
func (c *Client) Issue(ctx context.Context, id uint) (*models.TransactionIssue, error) {
	var resp struct {
		Issue models.TransactionIssue `json:"issue"`
	}
	path := fmt.Sprintf("%s/transaction-issues/%d", c.RolePrefix(), id)
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return &resp.Issue, nil
}

// RaiseIssue opens a dispute against a booking.
func (c *Client) RaiseIssue(ctx context.Context, bookingID uint, subject, description string) (*models.TransactionIssue, error) {
	form := url.Values{}
	form.Set("subject", subject)
	form.Set("description", description)
	var resp struct {
		Issue models.TransactionIssue `json:"issue"`
	}
	path := fmt.Sprintf("%s/bookings/%d/transaction-issues", c.RolePrefix(), bookingID)
	if err := c.postForm(ctx, path, form, &resp); err != nil {
		return nil, err
	}
	return &resp.Issue, nil
}

// IssueChat fetches the full message thread for a dispute. The same endpoint
// shape serves all three roles, only the prefix differs.
func (c *Client) IssueChat(ctx context.Context, issueID uint) ([]models.IssueMessage, error) {
	var resp struct {
		Messages []models.IssueMessage `json:"messages"`
	}
	path := fmt.Sprintf("%s/transaction-issues/%d/chat", c.RolePrefix(), issueID)
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return resp.Messages, nil
}

// SendIssueMessage appends a message with optional attachments, as multipart
// form data. Validation (text or attachment required) happens in chat.Thread
// before this is called; the server re-validates.
func (c *Client) SendIssueMessage(ctx context.Context, issueID uint, text string, attachments []Upload) (*models.IssueMessage, error) {
	fields := map[string]string{"text": text}
	var resp struct {
		Message models.IssueMessage `json:"message"`
	}
	path := fmt.Sprintf("%s/transaction-issues/%d/chat", c.RolePrefix(), issueID)
	if err := c.postMultipart(ctx, path, fields, attachments, &resp); err != nil {
		return nil, err
	}
	return &resp.Message, nil
}
