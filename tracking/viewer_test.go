package tracking

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"servigo-client/api"
	"servigo-client/models"
	"servigo-client/utils"
)

// fakeMap records widget lifecycle calls.
type fakeMap struct {
	mu         sync.Mutex
	initCalls  int
	moveCalls  int
	closeCalls int
	routes     int
	positions  map[Marker]utils.Location
}

func (f *fakeMap) Init(servicer, user utils.Location) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.initCalls++
	if f.positions == nil {
		f.positions = map[Marker]utils.Location{}
	}
	f.positions[MarkerServicer] = servicer
	f.positions[MarkerUser] = user
	return nil
}

func (f *fakeMap) MoveMarker(m Marker, pos utils.Location) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.moveCalls++
	f.positions[m] = pos
}

func (f *fakeMap) DrawRoute(points []utils.Location) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes++
}

func (f *fakeMap) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closeCalls++
}

func (f *fakeMap) snapshot() fakeMap {
	f.mu.Lock()
	defer f.mu.Unlock()
	return fakeMap{
		initCalls:  f.initCalls,
		moveCalls:  f.moveCalls,
		closeCalls: f.closeCalls,
		routes:     f.routes,
		positions:  f.positions,
	}
}

func coords(lat, lng float64) (*float64, *float64) {
	return &lat, &lng
}

// trackingServer serves a scripted sequence of snapshots; after the script is
// exhausted the last snapshot repeats.
func trackingServer(t *testing.T, snapshots []models.TrackingSnapshot, polls *atomic.Int64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if strings.HasSuffix(r.URL.Path, "/tracking-history") {
			fmt.Fprint(w, `{"points": []}`)
			return
		}
		n := polls.Add(1)
		idx := int(n) - 1
		if idx >= len(snapshots) {
			idx = len(snapshots) - 1
		}
		json.NewEncoder(w).Encode(snapshots[idx])
	}))
}

func newTestViewer(serverURL string, view MapView) *Viewer {
	client := api.NewClient(serverURL, 5*time.Second, api.StaticToken("tok"), models.RoleUser)
	return NewViewer(client, view, ViewerConfig{
		Interval:       20 * time.Millisecond,
		JitterFraction: 0.1,
	})
}

func TestViewerInactiveRendersMessageAndNeverTouchesMap(t *testing.T) {
	var polls atomic.Int64
	server := trackingServer(t, []models.TrackingSnapshot{
		{BookingID: 7, TrackingActive: false},
	}, &polls)
	defer server.Close()

	view := &fakeMap{}
	viewer := newTestViewer(server.URL, view)

	var states []ViewState
	viewer.OnUpdate = func(u Update) { states = append(states, u.State) }

	err := viewer.Run(context.Background(), 7)
	require.NoError(t, err, "inactive tracking is a normal terminal state")

	assert.Equal(t, []ViewState{StateInactive}, states)
	assert.Equal(t, StateInactive, viewer.State())
	got := view.snapshot()
	assert.Zero(t, got.initCalls, "no map may be created for inactive tracking")
	assert.Zero(t, got.closeCalls)
	assert.EqualValues(t, 1, polls.Load(), "inactive response ends polling")
}

func TestViewerCreatesOneMapAndMovesMarkers(t *testing.T) {
	sLat1, sLng1 := coords(40.7128, -74.0060)
	sLat2, sLng2 := coords(40.7150, -74.0100)
	uLat, uLng := coords(40.7306, -73.9866)

	var polls atomic.Int64
	server := trackingServer(t, []models.TrackingSnapshot{
		{BookingID: 7, TrackingActive: true, ServicerLat: sLat1, ServicerLng: sLng1, UserLat: uLat, UserLng: uLng},
		{BookingID: 7, TrackingActive: true, ServicerLat: sLat2, ServicerLng: sLng2, UserLat: uLat, UserLng: uLng},
		{BookingID: 7, TrackingActive: false},
	}, &polls)
	defer server.Close()

	view := &fakeMap{}
	viewer := newTestViewer(server.URL, view)

	err := viewer.Run(context.Background(), 7)
	require.NoError(t, err)

	got := view.snapshot()
	assert.Equal(t, 1, got.initCalls, "exactly one map instance per viewer run")
	// The second active poll moves both existing markers instead of recreating.
	assert.Equal(t, 2, got.moveCalls)
	assert.InDelta(t, *sLat2, got.positions[MarkerServicer].Latitude, 1e-9)
	assert.InDelta(t, *uLat, got.positions[MarkerUser].Latitude, 1e-9)
	assert.Equal(t, 1, got.closeCalls, "map torn down when the run ends")
}

func TestViewerCancellationStopsPolling(t *testing.T) {
	lat, lng := coords(40.7128, -74.0060)
	uLat, uLng := coords(40.7306, -73.9866)

	var polls atomic.Int64
	server := trackingServer(t, []models.TrackingSnapshot{
		{BookingID: 7, TrackingActive: true, ServicerLat: lat, ServicerLng: lng, UserLat: uLat, UserLng: uLng},
	}, &polls)
	defer server.Close()

	view := &fakeMap{}
	viewer := newTestViewer(server.URL, view)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- viewer.Run(ctx, 7) }()

	// Let at least one poll land, then cancel.
	require.Eventually(t, func() bool { return polls.Load() >= 1 }, time.Second, 5*time.Millisecond)
	cancel()
	require.ErrorIs(t, <-done, context.Canceled)

	settled := polls.Load()
	time.Sleep(100 * time.Millisecond) // several intervals
	assert.Equal(t, settled, polls.Load(), "no polls after cancellation")
}

func TestViewerDropsStaleResponses(t *testing.T) {
	viewer := NewViewer(nil, &fakeMap{}, ViewerConfig{})

	var applied []uint64
	viewer.OnUpdate = func(u Update) { applied = append(applied, u.Seq) }

	viewer.apply(Update{Seq: 2, State: StateError})
	viewer.apply(Update{Seq: 1, State: StateActive}) // slow response landing late
	viewer.apply(Update{Seq: 3, State: StateError})

	assert.Equal(t, []uint64{2, 3}, applied, "out-of-order response must be dropped")
	assert.Equal(t, StateError, viewer.State())
}

func TestViewerDerivesStatsWhenServerOmitsThem(t *testing.T) {
	sLat, sLng := coords(40.7128, -74.0060)
	uLat, uLng := coords(40.7306, -73.9866)

	viewer := NewViewer(nil, &fakeMap{}, ViewerConfig{AverageSpeedKmh: 30})
	update := Update{Snapshot: &models.TrackingSnapshot{
		TrackingActive: true,
		ServicerLat:    sLat, ServicerLng: sLng,
		UserLat: uLat, UserLng: uLng,
	}}
	viewer.deriveStats(&update)

	want := utils.HaversineDistance(*sLat, *sLng, *uLat, *uLng)
	assert.InDelta(t, want, update.DistanceKm, 1e-9)
	assert.Greater(t, update.ETAMinutes, 0)
}

func TestViewerPrefersServerStats(t *testing.T) {
	distance := 3.5
	eta := 9
	viewer := NewViewer(nil, &fakeMap{}, ViewerConfig{})
	update := Update{Snapshot: &models.TrackingSnapshot{
		TrackingActive: true,
		DistanceKm:     &distance,
		ETAMinutes:     &eta,
	}}
	viewer.deriveStats(&update)

	assert.Equal(t, 3.5, update.DistanceKm)
	assert.Equal(t, 9, update.ETAMinutes)
}

func TestViewerJitteredIntervalStaysWithinBounds(t *testing.T) {
	base := 10 * time.Second
	fraction := 0.2
	viewer := NewViewer(nil, &fakeMap{}, ViewerConfig{
		Interval:       base,
		JitterFraction: fraction,
	})

	spread := time.Duration(float64(base) * fraction)
	for i := 0; i < 500; i++ {
		interval := viewer.jitteredInterval()
		assert.GreaterOrEqual(t, interval, base-spread)
		assert.LessOrEqual(t, interval, base+spread)
	}
}
