package tracking

import (
	"context"
	"errors"
	"fmt"

	"servigo-client/api"
	"servigo-client/utils"
)

// ErrLocationUnavailable is returned when no position fix can be obtained.
// Nothing is sent to the server in that case and the caller decides whether
// to retry; the reporter never retries on its own.
var ErrLocationUnavailable = errors.New("location unavailable, check device location permissions")

// Geolocator obtains a one-shot device position fix. There is no continuous
// watch; every reporter operation takes exactly one fix.
type Geolocator interface {
	CurrentPosition(ctx context.Context) (lat, lng float64, err error)
}

// Reporter is the servicer-side half of live tracking: it reads the device
// position and transmits it to the backend.
type Reporter struct {
	client *api.Client
	geo    Geolocator
}

// NewReporter creates a reporter using the given geolocation capability.
func NewReporter(client *api.Client, geo Geolocator) *Reporter {
	return &Reporter{client: client, geo: geo}
}

// Start obtains one position fix and initializes the tracking session for a
// booking. Permission denial or a timeout surfaces ErrLocationUnavailable
// without any request being made.
func (r *Reporter) Start(ctx context.Context, bookingID uint) error {
	lat, lng, err := r.fix(ctx)
	if err != nil {
		return err
	}
	if err := r.client.StartTracking(ctx, bookingID, lat, lng); err != nil {
		return fmt.Errorf("start tracking: %w", err)
	}
	return nil
}

// Update pushes one fresh position to an already active session.
func (r *Reporter) Update(ctx context.Context, bookingID uint) error {
	lat, lng, err := r.fix(ctx)
	if err != nil {
		return err
	}
	if err := r.client.PushPosition(ctx, bookingID, lat, lng); err != nil {
		return fmt.Errorf("push position: %w", err)
	}
	return nil
}

func (r *Reporter) fix(ctx context.Context) (float64, float64, error) {
	lat, lng, err := r.geo.CurrentPosition(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrLocationUnavailable, err)
	}
	if !utils.IsLocationValid(lat, lng) {
		return 0, 0, ErrLocationUnavailable
	}
	return lat, lng, nil
}
