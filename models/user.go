package models

import (
	"time"
)

type Role string

const (
	RoleUser     Role = "user"
	RoleServicer Role = "servicer"
	RoleAdmin    Role = "admin"
)

// Account is the platform user record. The client only ever holds a cached,
// non-authoritative copy of it; the server owns suspension and verification state.
type Account struct {
	ID                 uint       `json:"id" gorm:"primaryKey"`
	FullName           string     `json:"full_name" gorm:"size:255;not null"`
	Email              string     `json:"email" gorm:"size:255;uniqueIndex;not null"`
	PhoneNumber        string     `json:"phone_number" gorm:"size:20"`
	PasswordHash       string     `json:"-" gorm:"size:255"`
	Role               Role       `json:"role" gorm:"type:varchar(20);not null;default:'user';check:role IN ('user','servicer','admin')"`
	ProfilePictureURL  *string    `json:"profile_picture_url" gorm:"size:255"`
	IsBlocked          bool       `json:"is_blocked" gorm:"default:false"`
	IsSuspended        bool       `json:"is_suspended" gorm:"default:false"`
	SuspendedUntil     *time.Time `json:"suspended_until"`
	PermanentBan       bool       `json:"permanent_ban" gorm:"default:false"`
	// Servicer-only document verification state.
	VerificationStatus *string    `json:"verification_status" gorm:"size:20"` // pending, approved, rejected
	CreatedAt          time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt          time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for the Account model
func (Account) TableName() string {
	return "accounts"
}

// IsValidRole checks if the account role is valid
func (a *Account) IsValidRole() bool {
	switch a.Role {
	case RoleUser, RoleServicer, RoleAdmin:
		return true
	default:
		return false
	}
}

// IsServicer checks if the account is a servicer
func (a *Account) IsServicer() bool {
	return a.Role == RoleServicer
}

// IsAdmin checks if the account is an admin
func (a *Account) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// CanTransact reports whether the account is currently allowed to act at all.
// This only gates the UI; the server re-checks on every request.
func (a *Account) CanTransact() bool {
	if a.IsBlocked || a.PermanentBan {
		return false
	}
	if a.IsSuspended && (a.SuspendedUntil == nil || a.SuspendedUntil.After(time.Now())) {
		return false
	}
	return true
}
