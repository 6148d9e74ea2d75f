package models

import (
	"time"
)

type BookingStatus string

const (
	BookingStatusPending    BookingStatus = "pending"
	BookingStatusAccepted   BookingStatus = "accepted"
	BookingStatusInProgress BookingStatus = "in_progress"
	BookingStatusCompleted  BookingStatus = "completed"
	BookingStatusCancelled  BookingStatus = "cancelled"
)

// Booking is one service engagement between a user and a servicer. The status
// state machine is entirely server-enforced; the client only requests a
// transition and re-fetches.
type Booking struct {
	ID            uint          `json:"id" gorm:"primaryKey"`
	BookingNumber string        `json:"booking_number" gorm:"size:30;uniqueIndex"`
	UserID        uint          `json:"user_id" gorm:"not null"`
	ServicerID    *uint         `json:"servicer_id"` // Can be null until accepted
	Status        BookingStatus `json:"status" gorm:"type:varchar(20);default:'pending';check:status IN ('pending','accepted','in_progress','completed','cancelled')"`
	ServiceType   string        `json:"service_type" gorm:"size:100;not null"`
	Address       string        `json:"address" gorm:"size:500;not null"`
	LocationLat   *float64      `json:"location_lat" gorm:"type:decimal(10,8)"`
	LocationLng   *float64      `json:"location_lng" gorm:"type:decimal(11,8)"`
	Date          time.Time     `json:"date" gorm:"not null"`
	Time          string        `json:"time" gorm:"size:20"`
	Notes         *string       `json:"notes" gorm:"size:1000"`
	Amount        float64       `json:"amount" gorm:"type:decimal(10,2);not null"`
	PaymentMethod string        `json:"payment_method" gorm:"size:30"`
	PaymentStatus string        `json:"payment_status" gorm:"size:20;default:'pending'"`
	CreatedAt     time.Time     `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt     time.Time     `json:"updated_at" gorm:"autoUpdateTime"`

	// Relationships
	User     Account  `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Servicer *Account `json:"servicer,omitempty" gorm:"foreignKey:ServicerID"`

	// Present only after the servicer has started the job; never stored client-side.
	CompletionOTP *CompletionOTP `json:"completion_otp,omitempty" gorm:"foreignKey:BookingID"`
}

// TableName specifies the table name for the Booking model
func (Booking) TableName() string {
	return "bookings"
}

// CanCancel reports whether cancel may be offered for the current status.
// UI-level guard only, the server re-validates.
func (b *Booking) CanCancel() bool {
	return b.Status == BookingStatusPending || b.Status == BookingStatusAccepted
}

// CanStart reports whether "Start Service" may be offered to the servicer.
func (b *Booking) CanStart() bool {
	return b.Status == BookingStatusAccepted
}

// CanVerify reports whether the OTP completion form may be offered to the user.
func (b *Booking) CanVerify() bool {
	return b.Status == BookingStatusInProgress
}

// Trackable reports whether live tracking is meaningful for the current status.
func (b *Booking) Trackable() bool {
	return b.Status == BookingStatusAccepted || b.Status == BookingStatusInProgress
}
