package api

import (
	"context"
	"fmt"
	"net/url"

	"servigo-client/models"
)

// StartService transitions the booking to in_progress (servicer side). The
// server generates the completion OTP and returns it for display.
func (c *Client) StartService(ctx context.Context, bookingID uint) (*models.CompletionOTP, error) {
	var resp struct {
		Booking       models.Booking        `json:"booking"`
		CompletionOTP *models.CompletionOTP `json:"completion_otp"`
	}
	path := fmt.Sprintf("/servicer/services/%d/start", bookingID)
	if err := c.put(ctx, path, nil, &resp); err != nil {
		return nil, err
	}
	if resp.CompletionOTP == nil {
		return nil, fmt.Errorf("start service: server returned no completion code")
	}
	return resp.CompletionOTP, nil
}

// CompletionOTP reads the current code for an already-started booking
// (servicer side, idempotent).
func (c *Client) CompletionOTP(ctx context.Context, bookingID uint) (*models.CompletionOTP, error) {
	var resp struct {
		CompletionOTP models.CompletionOTP `json:"completion_otp"`
	}
	path := fmt.Sprintf("/servicer/services/%d/completion-otp", bookingID)
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return &resp.CompletionOTP, nil
}

// ResendOTP re-delivers the existing code through the servicer's notification
// feed. It never regenerates the code.
func (c *Client) ResendOTP(ctx context.Context, bookingID uint) error {
	path := fmt.Sprintf("/servicer/services/%d/resend-otp", bookingID)
	return c.postForm(ctx, path, url.Values{}, nil)
}

// VerifyAndComplete submits the user's entered code. On success the server
// flips the booking to completed and releases payment; the caller should
// re-fetch the booking. On rejection the returned *Error carries the server's
// reason (invalid/expired) for inline display.
func (c *Client) VerifyAndComplete(ctx context.Context, bookingID uint, otp string) error {
	form := url.Values{}
	form.Set("otp", otp)
	path := fmt.Sprintf("/user/bookings/%d/verify-and-complete", bookingID)
	return c.postForm(ctx, path, form, nil)
}

// RequestCompletionOTP asks the server to notify the servicer to share the
// code. Fire-and-forget; no code is returned.
func (c *Client) RequestCompletionOTP(ctx context.Context, bookingID uint) error {
	path := fmt.Sprintf("/user/bookings/%d/request-completion-otp", bookingID)
	return c.postForm(ctx, path, url.Values{}, nil)
}
