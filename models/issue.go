package models

import (
	"time"
)

type IssueStatus string

const (
	IssueStatusPendingReview IssueStatus = "pending_review"
	IssueStatusInvestigating IssueStatus = "investigating"
	IssueStatusResolved      IssueStatus = "resolved"
	IssueStatusRejected      IssueStatus = "rejected"
	IssueStatusClosed        IssueStatus = "closed"
)

// TransactionIssue is a dispute raised by a user or servicer against a booking,
// mediated by an admin. All three roles read and append to the same thread.
type TransactionIssue struct {
	ID           uint        `json:"id" gorm:"primaryKey"`
	BookingID    uint        `json:"booking_id" gorm:"not null;index"`
	RaisedByID   uint        `json:"raised_by_id" gorm:"not null"`
	RaisedBy     Account     `json:"raised_by" gorm:"foreignKey:RaisedByID"`
	RaisedByRole Role        `json:"raised_by_role" gorm:"type:varchar(20);not null"`
	Subject      string      `json:"subject" gorm:"size:200;not null"`
	Description  string      `json:"description" gorm:"type:text"`
	Status       IssueStatus `json:"status" gorm:"type:varchar(20);default:'pending_review'"`
	Resolution   *string     `json:"resolution"`
	ResolvedAt   *time.Time  `json:"resolved_at"`
	CreatedAt    time.Time   `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt    time.Time   `json:"updated_at" gorm:"autoUpdateTime"`

	Messages []IssueMessage `json:"messages,omitempty" gorm:"foreignKey:IssueID"`
}

// TableName specifies the table name for the TransactionIssue model
func (TransactionIssue) TableName() string {
	return "transaction_issues"
}

// Open reports whether the thread still accepts messages.
func (i *TransactionIssue) Open() bool {
	switch i.Status {
	case IssueStatusResolved, IssueStatusRejected, IssueStatusClosed:
		return false
	default:
		return true
	}
}

// IssueMessage is a single role-tagged message in a dispute thread.
type IssueMessage struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	IssueID     uint      `json:"issue_id" gorm:"not null;index"`
	SenderID    uint      `json:"sender_id" gorm:"not null"`
	SenderRole  Role      `json:"sender_role" gorm:"type:varchar(20);not null"`
	SenderName  string    `json:"sender_name" gorm:"size:255"`
	Text        string    `json:"text" gorm:"type:text"`
	CreatedAt   time.Time `json:"created_at" gorm:"autoCreateTime"`

	Attachments []IssueAttachment `json:"attachments,omitempty" gorm:"foreignKey:MessageID"`
}

// TableName specifies the table name for the IssueMessage model
func (IssueMessage) TableName() string {
	return "issue_messages"
}

// IssueAttachment is a file attached to a dispute message. The client passes
// selected files through unmodified; storage is handled server-side.
type IssueAttachment struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	MessageID uint      `json:"message_id" gorm:"not null;index"`
	FileName  string    `json:"file_name" gorm:"size:255;not null"`
	FileURL   string    `json:"file_url" gorm:"size:500"`
	MimeType  string    `json:"mime_type" gorm:"size:100"`
	SizeBytes int64     `json:"size_bytes"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// TableName specifies the table name for the IssueAttachment model
func (IssueAttachment) TableName() string {
	return "issue_attachments"
}
