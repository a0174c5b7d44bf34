package models

import "time"

// Badge is a time-limited proof of completion, 1:1 with the verified
// MissionInstance (unique index). Issued when a submission reaches
// quorum approval, deleted when that submission is revoked.
type Badge struct {
	ID                string `gorm:"primaryKey;type:uuid" json:"id"`
	ExternalUserID    string `gorm:"index;not null" json:"external_user_id"`
	MissionTypeTag    string `gorm:"index;not null" json:"mission_type_tag"`
	MissionInstanceID string `gorm:"uniqueIndex;not null" json:"mission_instance_id"`

	IssuedAt  time.Time `gorm:"not null" json:"issued_at"`
	ExpiresAt time.Time `gorm:"not null" json:"expires_at"`

	Timestamps
}

// Valid reports whether the badge is still live.
func (b *Badge) Valid(now time.Time) bool {
	return now.Before(b.ExpiresAt)
}
