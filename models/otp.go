package models

import (
	"time"
)

// CompletionOTP is the one-time code bound 1:1 to a booking. It is generated
// server-side when the servicer starts the job and invalidated when the user
// verifies it. The client only displays and forwards it.
type CompletionOTP struct {
	ID        uint       `json:"id" gorm:"primaryKey"`
	BookingID uint       `json:"booking_id" gorm:"not null;uniqueIndex"`
	Code      string     `json:"code" gorm:"size:10;not null"`
	// Length and expiry are server policy, surfaced so the client never has to
	// hardcode the "6 digits, 24 hours" assumptions.
	Length     int        `json:"otp_length" gorm:"default:6"`
	ExpiresAt  time.Time  `json:"expires_at" gorm:"not null"`
	VerifiedAt *time.Time `json:"verified_at"`
	Attempts   int        `json:"attempts" gorm:"default:0"`
	IsUsed     bool       `json:"is_used" gorm:"default:false"`
	CreatedAt  time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt  time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for the CompletionOTP model
func (CompletionOTP) TableName() string {
	return "completion_otps"
}

// Expired reports whether the code is past its server-supplied expiry.
func (o *CompletionOTP) Expired() bool {
	return time.Now().After(o.ExpiresAt)
}

// CodeLength returns the server-declared code length, defaulting to 6 when
// the backend omits the field.
func (o *CompletionOTP) CodeLength() int {
	if o.Length > 0 {
		return o.Length
	}
	return 6
}
