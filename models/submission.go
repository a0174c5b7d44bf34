package models

import (
	"encoding/json"
	"time"
)

// Submission statuses. Transitions out of PENDING are one-way.
const (
	SubmissionPending  = "PENDING"
	SubmissionApproved = "APPROVED"
	SubmissionRejected = "REJECTED"
)

// Vote choices.
const (
	VoteApprove = "APPROVE"
	VoteReject  = "REJECT"
)

// VerificationSubmission is one proof post, 1:1 with a MissionInstance.
// ApproveCount/RejectCount are denormalized from Vote rows: both the
// counter bump and the Vote insert happen in the same transaction, so
// count == number of Vote rows with that choice at all times.
type VerificationSubmission struct {
	ID                string `gorm:"primaryKey;type:uuid" json:"id"`
	ExternalUserID    string `gorm:"index;not null" json:"external_user_id"`
	MissionInstanceID string `gorm:"uniqueIndex;not null" json:"mission_instance_id"`

	Content   string `gorm:"type:text;not null" json:"content"`
	ImageURLs string `gorm:"type:text" json:"image_urls,omitempty"` // JSON array of CDN URLs

	Status       string     `gorm:"type:varchar(16);not null;default:'PENDING'" json:"status"`
	ApproveCount int        `gorm:"not null;default:0" json:"approve_count"`
	RejectCount  int        `gorm:"not null;default:0" json:"reject_count"`
	VerifiedAt   *time.Time `json:"verified_at,omitempty"`

	Timestamps
}

// ImageURLList decodes the stored JSON array; bad or empty payloads
// decode to nil rather than erroring (display data only).
func (s *VerificationSubmission) ImageURLList() []string {
	if s.ImageURLs == "" {
		return nil
	}
	var urls []string
	if err := json.Unmarshal([]byte(s.ImageURLs), &urls); err != nil {
		return nil
	}
	return urls
}

// Vote is immutable once created: one row per (submission, voter),
// backed by a unique index. Never updated, only inserted or bulk-deleted
// when the submission itself is revoked.
type Vote struct {
	ID           string    `gorm:"primaryKey;type:uuid" json:"id"`
	SubmissionID string    `gorm:"not null;uniqueIndex:uk_submission_voter" json:"submission_id"`
	VoterID      string    `gorm:"not null;uniqueIndex:uk_submission_voter" json:"voter_id"`
	Choice       string    `gorm:"type:varchar(8);not null" json:"choice"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
}
