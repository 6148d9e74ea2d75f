package models

import (
	"time"
)

// TrackingSession is the ephemeral per-booking position stream. Created when a
// servicer calls start-tracking, implicitly torn down when the booking leaves
// accepted/in_progress.
type TrackingSession struct {
	ID              uint       `json:"id" gorm:"primaryKey"`
	BookingID       uint       `json:"booking_id" gorm:"not null;uniqueIndex"`
	ServicerLat     float64    `json:"servicer_lat" gorm:"type:decimal(10,8)"`
	ServicerLng     float64    `json:"servicer_lng" gorm:"type:decimal(11,8)"`
	TrackingActive  bool       `json:"tracking_active" gorm:"default:false"`
	ServicerArrived bool       `json:"servicer_arrived" gorm:"default:false"`
	LastUpdate      *time.Time `json:"last_update"`
	CreatedAt       time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt       time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for the TrackingSession model
func (TrackingSession) TableName() string {
	return "tracking_sessions"
}

// TrackPoint is one recorded servicer position, kept for route replay.
type TrackPoint struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	BookingID  uint      `json:"booking_id" gorm:"not null;index"`
	Lat        float64   `json:"lat" gorm:"type:decimal(10,8);not null"`
	Lng        float64   `json:"lng" gorm:"type:decimal(11,8);not null"`
	RecordedAt time.Time `json:"recorded_at" gorm:"not null"`
}

// TableName specifies the table name for the TrackPoint model
func (TrackPoint) TableName() string {
	return "track_points"
}

// TrackingSnapshot is what the live-tracking endpoint returns on every poll.
// Distance and ETA are computed server-side when available; the client may
// derive them locally as a fallback.
type TrackingSnapshot struct {
	BookingID       uint       `json:"booking_id"`
	TrackingActive  bool       `json:"tracking_active"`
	ServicerArrived bool       `json:"servicer_arrived"`
	ServicerLat     *float64   `json:"servicer_lat"`
	ServicerLng     *float64   `json:"servicer_lng"`
	UserLat         *float64   `json:"user_lat"`
	UserLng         *float64   `json:"user_lng"`
	DistanceKm      *float64   `json:"distance_km"`
	ETAMinutes      *int       `json:"eta_minutes"`
	LastUpdate      *time.Time `json:"last_update"`
}

// HasServicerPosition reports whether the snapshot carries a usable servicer fix.
func (s *TrackingSnapshot) HasServicerPosition() bool {
	return s.ServicerLat != nil && s.ServicerLng != nil
}

// HasUserPosition reports whether the snapshot carries the booking's coordinates.
func (s *TrackingSnapshot) HasUserPosition() bool {
	return s.UserLat != nil && s.UserLng != nil
}
