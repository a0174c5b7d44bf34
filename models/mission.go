package models

import (
	"time"

	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

// MissionCadence controls when the distribution scheduler hands a
// mission type out. SPONTANEOUS types are only assigned on demand.
const (
	CadenceDaily       = "daily"
	CadenceWeekly      = "weekly"
	CadenceMonthly     = "monthly"
	CadenceSpontaneous = "spontaneous"
)

// MissionType is catalog config: what a mission is worth and how long
// the user has to prove it. Rows are created by admins and referenced
// by tag from MissionInstance.
type MissionType struct {
	ID          string `gorm:"primaryKey;type:uuid" json:"id"`
	Tag         string `gorm:"uniqueIndex;not null" json:"tag"` // slug of the title, e.g. "eat-breakfast"
	Title       string `gorm:"not null" json:"title"`
	Description string `json:"description"`
	Category    string `gorm:"type:varchar(32)" json:"category"` // meal, exercise, outdoor, social, ...
	Cadence     string `gorm:"type:varchar(16);default:'daily'" json:"cadence"`

	ExpReward         int  `gorm:"default:10" json:"exp_reward"`
	DeadlineMinutes   *int `json:"deadline_minutes,omitempty"` // nil = no deadline
	BadgeValidityDays int  `gorm:"default:3" json:"badge_validity_days"`
	Active            bool `gorm:"default:true" json:"active"`

	Timestamps
}

// Difficulty presets, mapped to default exp rewards when the admin does
// not set one explicitly.
const (
	DifficultyEasy   = "EASY"
	DifficultyNormal = "NORMAL"
	DifficultyHard   = "HARD"
)

// RewardForDifficulty returns the default exp reward for a preset.
func RewardForDifficulty(difficulty string) int {
	switch difficulty {
	case DifficultyHard:
		return 50
	case DifficultyNormal:
		return 20
	default:
		return 10
	}
}

// NewMissionType builds a catalog row with the tag derived from the title.
func NewMissionType(title, description, category, cadence string, expReward int, deadlineMinutes *int, badgeDays int) MissionType {
	return MissionType{
		Tag:               slug.Make(title),
		Title:             title,
		Description:       description,
		Category:          category,
		Cadence:           cadence,
		ExpReward:         expReward,
		DeadlineMinutes:   deadlineMinutes,
		BadgeValidityDays: badgeDays,
		Active:            true,
	}
}

// Mission instance statuses. ASSIGNED is the only non-terminal state.
// EXPIRED exists for parity with historical rows; the sweep writes FAILED.
const (
	MissionAssigned  = "ASSIGNED"
	MissionCompleted = "COMPLETED"
	MissionFailed    = "FAILED"
	MissionSkipped   = "SKIPPED"
	MissionExpired   = "EXPIRED"
)

// MissionInstance is one assignment of a mission type to a user for a
// period (e.g. "2026-08-28" for daily cadence). Instances are never
// physically deleted; terminal rows are the user's mission history.
type MissionInstance struct {
	ID             string `gorm:"primaryKey;type:uuid" json:"id"`
	ExternalUserID string `gorm:"index;not null" json:"external_user_id"`
	MissionTypeTag string `gorm:"index;not null" json:"mission_type_tag"`
	Period         string `gorm:"not null" json:"period"`

	Status     string     `gorm:"type:varchar(16);not null;default:'ASSIGNED'" json:"status"`
	ExpReward  int        `gorm:"not null" json:"exp_reward"`
	AssignedAt time.Time  `gorm:"not null" json:"assigned_at"`
	DeadlineAt *time.Time `json:"deadline_at,omitempty"`
	VerifiedAt *time.Time `json:"verified_at,omitempty"`

	// Set when a proof submission exists; cleared on revoke.
	SubmissionID *string `json:"submission_id,omitempty"`

	Timestamps
}

// Terminal reports whether the instance admits no further transitions.
func (m *MissionInstance) Terminal() bool {
	return m.Status != MissionAssigned
}

// CanSubmit reports whether a proof may still be submitted: ASSIGNED and
// not past the deadline.
func (m *MissionInstance) CanSubmit(now time.Time) bool {
	if m.Status != MissionAssigned {
		return false
	}
	if m.DeadlineAt != nil && !now.Before(*m.DeadlineAt) {
		return false
	}
	return true
}

// Timestamps adds GORM auto-times (soft delete is intentionally absent:
// mission history must survive).
type Timestamps struct {
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// EnsureLiveAssignmentIndex creates the partial unique index that
// enforces "at most one ASSIGNED instance per (user, type, period)".
// AutoMigrate cannot express partial indexes, so it is raw SQL; the
// statement is valid on both PostgreSQL and SQLite.
func EnsureLiveAssignmentIndex(db *gorm.DB) error {
	return db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_live_assignment
		ON mission_instances (external_user_id, mission_type_tag, period)
		WHERE status = 'ASSIGNED'`).Error
}

// DefaultMissionTypes seeds the catalog on first boot. Tags are slugs so
// the gateway can use them in URLs directly.
var DefaultMissionTypes = []MissionType{
	NewMissionType("Eat Breakfast", "Log a photo of your breakfast before 10am", "meal", CadenceDaily, 10, intPtr(180), 3),
	NewMissionType("Eat Lunch", "Log a photo of your lunch", "meal", CadenceDaily, 10, intPtr(240), 3),
	NewMissionType("Eat Dinner", "Log a photo of your dinner", "meal", CadenceDaily, 10, intPtr(300), 3),
	NewMissionType("Morning Walk", "Take a 15 minute walk outside", "outdoor", CadenceDaily, 20, intPtr(720), 3),
	NewMissionType("Tidy Your Desk", "Clear your workspace and show the result", "home", CadenceWeekly, 30, nil, 7),
	NewMissionType("Meet A Friend", "Spend time with someone in person this month", "social", CadenceMonthly, 50, nil, 30),
}

func intPtr(v int) *int { return &v }
