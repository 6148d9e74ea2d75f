package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"servigo-client/models"
)

// StartTracking begins the tracking session for a booking with the servicer's
// current position (servicer side).
func (c *Client) StartTracking(ctx context.Context, bookingID uint, lat, lng float64) error {
	form := url.Values{}
	form.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	form.Set("lng", strconv.FormatFloat(lng, 'f', -1, 64))
	path := fmt.Sprintf("/servicer/services/%d/start-tracking", bookingID)
	return c.postForm(ctx, path, form, nil)
}

// PushPosition submits a periodic position update for an active tracking
// session (servicer side).
func (c *Client) PushPosition(ctx context.Context, bookingID uint, lat, lng float64) error {
	form := url.Values{}
	form.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	form.Set("lng", strconv.FormatFloat(lng, 'f', -1, 64))
	path := fmt.Sprintf("/servicer/services/%d/position", bookingID)
	return c.postForm(ctx, path, form, nil)
}

// LiveTracking polls the current tracking snapshot for a booking. A snapshot
// with tracking_active=false is a normal response, not an error.
func (c *Client) LiveTracking(ctx context.Context, bookingID uint) (*models.TrackingSnapshot, error) {
	var snapshot models.TrackingSnapshot
	path := fmt.Sprintf("/user/bookings/%d/live-tracking", bookingID)
	if err := c.get(ctx, path, &snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// TrackingHistory fetches the bounded route history for replay. The server
// caps the point count; limit<=0 leaves the cap to the server.
func (c *Client) TrackingHistory(ctx context.Context, bookingID uint, limit int) ([]models.TrackPoint, error) {
	var resp struct {
		Points []models.TrackPoint `json:"points"`
	}
	path := fmt.Sprintf("/user/bookings/%d/tracking-history", bookingID)
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return resp.Points, nil
}
