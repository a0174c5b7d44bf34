package models

import "time"

// Outcome event kinds, also used as MQ routing keys.
const (
	EventVerificationApproved = "verification.approved"
	EventVerificationRejected = "verification.rejected"
	EventVerificationRevoked  = "verification.revoked"
)

// OutcomeEvent is a transactional outbox row. It is written in the same
// transaction as the quorum transition it describes and drained to
// RabbitMQ by the outcome worker, so a broker outage can never roll back
// a reward. Delivery is at-least-once; consumers dedupe on ID.
type OutcomeEvent struct {
	ID                string `gorm:"primaryKey;type:uuid" json:"id"`
	Kind              string `gorm:"type:varchar(32);not null;index" json:"kind"`
	ExternalUserID    string `gorm:"not null" json:"external_user_id"`
	MissionInstanceID string `gorm:"not null" json:"mission_instance_id"`
	SubmissionID      string `gorm:"not null" json:"submission_id"`
	ExpDelta          int    `gorm:"not null" json:"exp_delta"`

	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
	PublishedAt *time.Time `gorm:"index" json:"published_at,omitempty"`
}
