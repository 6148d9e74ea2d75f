package tracking

import (
	"fmt"
	"log"

	"servigo-client/utils"
)

// Marker identifies one of the two map markers.
type Marker int

const (
	MarkerServicer Marker = iota
	MarkerUser
)

// MapView is the boundary around the imperative map widget. The viewer creates
// it at most once per run and closes it when the run ends; after the first
// Init, positions change only through MoveMarker so widget instances are never
// leaked or recreated.
type MapView interface {
	// Init creates the underlying widget centered between the two positions.
	Init(servicer, user utils.Location) error
	// MoveMarker repositions an existing marker in place.
	MoveMarker(m Marker, pos utils.Location)
	// DrawRoute replaces the displayed route polyline.
	DrawRoute(points []utils.Location)
	// Close tears the widget down. Safe to call once after a successful Init.
	Close()
}

// TerminalMap renders marker state as log lines. It stands in for a real map
// widget in the terminal frontend and in manual testing.
type TerminalMap struct {
	initialized bool
}

func (t *TerminalMap) Init(servicer, user utils.Location) error {
	if t.initialized {
		return fmt.Errorf("map already initialized")
	}
	t.initialized = true
	log.Printf("🗺️ map: servicer at %.5f,%.5f · you at %.5f,%.5f",
		servicer.Latitude, servicer.Longitude, user.Latitude, user.Longitude)
	return nil
}

func (t *TerminalMap) MoveMarker(m Marker, pos utils.Location) {
	name := "servicer"
	if m == MarkerUser {
		name = "you"
	}
	log.Printf("🗺️ map: %s moved to %.5f,%.5f", name, pos.Latitude, pos.Longitude)
}

func (t *TerminalMap) DrawRoute(points []utils.Location) {
	log.Printf("🗺️ map: route with %d points", len(points))
}

func (t *TerminalMap) Close() {
	t.initialized = false
}
