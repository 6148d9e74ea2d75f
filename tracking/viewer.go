package tracking

import (
	"context"
	"log"
	"math/rand"
	"sync"
	"time"

	"servigo-client/api"
	"servigo-client/models"
	"servigo-client/utils"
)

// ViewState is the viewer's display state. It is driven purely by the server
// response shape; no client-side timer ever invalidates tracking.
type ViewState int

const (
	StateLoading ViewState = iota
	StateActive
	StateInactive
	StateError
)

func (s ViewState) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateActive:
		return "active"
	case StateInactive:
		return "inactive"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Update is one applied poll result. Seq increases monotonically across the
// viewer's lifetime; stale responses are dropped before an Update is emitted.
type Update struct {
	Seq        uint64
	State      ViewState
	Snapshot   *models.TrackingSnapshot
	DistanceKm float64
	ETAMinutes int
	Err        error
}

// ViewerConfig tunes the polling viewer.
type ViewerConfig struct {
	// Interval between polls, 10s unless configured otherwise.
	Interval time.Duration
	// JitterFraction spreads each interval by ±fraction to avoid synchronized
	// polling across many open sessions.
	JitterFraction float64
	// HistoryLimit bounds the one-time route history fetch.
	HistoryLimit int
	// AverageSpeedKmh is used for the local ETA fallback.
	AverageSpeedKmh float64
}

func (c *ViewerConfig) withDefaults() ViewerConfig {
	out := *c
	if out.Interval <= 0 {
		out.Interval = 10 * time.Second
	}
	if out.JitterFraction <= 0 {
		out.JitterFraction = 0.2
	}
	if out.HistoryLimit <= 0 {
		out.HistoryLimit = 100
	}
	if out.AverageSpeedKmh <= 0 {
		out.AverageSpeedKmh = 30.0
	}
	return out
}

// Viewer polls the live-tracking endpoint for one booking and drives a MapView.
// The map widget is created at most once per Run and torn down when Run
// returns; marker updates after the first poll move the existing markers.
type Viewer struct {
	client *api.Client
	view   MapView
	cfg    ViewerConfig

	// OnUpdate receives every applied poll result. Optional.
	OnUpdate func(Update)

	mu          sync.Mutex
	nextSeq     uint64
	lastApplied uint64
	mapReady    bool
	route       []utils.Location
	state       ViewState
}

// NewViewer creates a viewer over the given map widget.
func NewViewer(client *api.Client, view MapView, cfg ViewerConfig) *Viewer {
	return &Viewer{
		client: client,
		view:   view,
		cfg:    cfg.withDefaults(),
		state:  StateLoading,
	}
}

// State returns the current display state.
func (v *Viewer) State() ViewState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// Run polls until the context is cancelled or tracking goes inactive. The
// first poll happens immediately; the route history is fetched once up front.
// Cancelling the context stops the loop and abandons any in-flight request.
func (v *Viewer) Run(ctx context.Context, bookingID uint) error {
	defer v.closeMap()

	if points, err := v.client.TrackingHistory(ctx, bookingID, v.cfg.HistoryLimit); err != nil {
		// History is replay decoration; live polling still proceeds without it.
		log.Printf("⚠️ tracking history unavailable for booking %d: %v", bookingID, err)
	} else if len(points) > 0 {
		v.drawHistory(points)
	}

	for {
		active := v.pollOnce(ctx, bookingID)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !active {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(v.jitteredInterval()):
		}
	}
}

// pollOnce performs one poll and applies the result. It returns false when the
// loop should stop: tracking is inactive or the context is gone.
func (v *Viewer) pollOnce(ctx context.Context, bookingID uint) bool {
	seq := v.claimSeq()

	snapshot, err := v.client.LiveTracking(ctx, bookingID)
	if ctx.Err() != nil {
		return false
	}
	if err != nil {
		v.apply(Update{Seq: seq, State: StateError, Err: err})
		return true
	}
	if !snapshot.TrackingActive {
		// Normal terminal display state, not a failure. No map is created.
		v.apply(Update{Seq: seq, State: StateInactive, Snapshot: snapshot})
		return false
	}

	update := Update{Seq: seq, State: StateActive, Snapshot: snapshot}
	v.deriveStats(&update)
	v.apply(update)
	return true
}

// claimSeq stamps an outgoing request with the next sequence number.
func (v *Viewer) claimSeq() uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.nextSeq++
	return v.nextSeq
}

// apply commits an update unless a newer response already landed. This is what
// keeps a slow poll from overwriting fresher state.
func (v *Viewer) apply(u Update) {
	v.mu.Lock()
	if u.Seq <= v.lastApplied {
		v.mu.Unlock()
		return
	}
	v.lastApplied = u.Seq
	v.state = u.State
	v.mu.Unlock()

	if u.State == StateActive && u.Snapshot != nil {
		v.updateMap(u.Snapshot)
	}
	if v.OnUpdate != nil {
		v.OnUpdate(u)
	}
}

// updateMap initializes the widget on the first active snapshot with both
// positions and only moves markers on later ones.
func (v *Viewer) updateMap(s *models.TrackingSnapshot) {
	if !s.HasServicerPosition() || !s.HasUserPosition() {
		return
	}
	servicer := utils.Location{Latitude: *s.ServicerLat, Longitude: *s.ServicerLng}
	user := utils.Location{Latitude: *s.UserLat, Longitude: *s.UserLng}

	v.mu.Lock()
	ready := v.mapReady
	if !ready {
		v.mapReady = true
	}
	v.mu.Unlock()

	if !ready {
		if err := v.view.Init(servicer, user); err != nil {
			log.Printf("⚠️ map init failed: %v", err)
			v.mu.Lock()
			v.mapReady = false
			v.mu.Unlock()
			return
		}
		v.mu.Lock()
		route := v.route
		v.mu.Unlock()
		if len(route) > 0 {
			v.view.DrawRoute(route)
		}
		return
	}
	v.view.MoveMarker(MarkerServicer, servicer)
	v.view.MoveMarker(MarkerUser, user)
}

// drawHistory keeps the replay route until the map exists, then renders it on
// the first active snapshot.
func (v *Viewer) drawHistory(points []models.TrackPoint) {
	route := make([]utils.Location, 0, len(points))
	for _, p := range points {
		route = append(route, utils.Location{Latitude: p.Lat, Longitude: p.Lng})
	}
	v.mu.Lock()
	v.route = route
	v.mu.Unlock()
}

// deriveStats fills distance/ETA from the snapshot, preferring server-supplied
// values and falling back to local haversine math.
func (v *Viewer) deriveStats(u *Update) {
	s := u.Snapshot
	if s.DistanceKm != nil {
		u.DistanceKm = *s.DistanceKm
	} else if s.HasServicerPosition() && s.HasUserPosition() {
		u.DistanceKm = utils.HaversineDistance(*s.ServicerLat, *s.ServicerLng, *s.UserLat, *s.UserLng)
	}
	if s.ETAMinutes != nil {
		u.ETAMinutes = *s.ETAMinutes
	} else if s.HasServicerPosition() && s.HasUserPosition() {
		eta := utils.CalculateETA(
			utils.Location{Latitude: *s.ServicerLat, Longitude: *s.ServicerLng},
			utils.Location{Latitude: *s.UserLat, Longitude: *s.UserLng},
			v.cfg.AverageSpeedKmh,
		)
		u.ETAMinutes = int(eta.Minutes())
	}
}

func (v *Viewer) jitteredInterval() time.Duration {
	base := float64(v.cfg.Interval)
	spread := base * v.cfg.JitterFraction
	// Uniform in [base-spread, base+spread].
	return time.Duration(base - spread + rand.Float64()*2*spread)
}

func (v *Viewer) closeMap() {
	v.mu.Lock()
	ready := v.mapReady
	v.mapReady = false
	v.mu.Unlock()
	if ready {
		v.view.Close()
	}
}
