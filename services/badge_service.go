package services

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/Replant-Application/Replant-BE-sub002/apperrors"
	"github.com/Replant-Application/Replant-BE-sub002/models"
)

type BadgeService struct {
	DB *gorm.DB
}

func NewBadgeService(db *gorm.DB) *BadgeService {
	return &BadgeService{DB: db}
}

// Issue creates a badge for a verified mission instance. validityDays
// controls the expiry window. At most one badge per instance.
func (s *BadgeService) Issue(externalUserID, missionTypeTag, missionInstanceID string, validityDays int, now time.Time) (*models.Badge, error) {
	var badge *models.Badge
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		badge, err = issueBadgeTx(tx, externalUserID, missionTypeTag, missionInstanceID, validityDays, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	return badge, nil
}

// Revoke removes the badge for a mission instance. Revoking an absent
// badge is a no-op, so revocation stays idempotent end to end.
func (s *BadgeService) Revoke(missionInstanceID string) error {
	return revokeBadgeTx(s.DB, missionInstanceID)
}

// ValidBadges returns the user's unexpired badges, newest first.
func (s *BadgeService) ValidBadges(externalUserID string, now time.Time) ([]models.Badge, error) {
	var badges []models.Badge
	err := s.DB.
		Where("external_user_id = ? AND expires_at > ?", externalUserID, now).
		Order("issued_at DESC").
		Find(&badges).Error
	if err != nil {
		return nil, err
	}
	return badges, nil
}

// History returns all badges ever issued to the user, expired included.
func (s *BadgeService) History(externalUserID string, page, pageSize int) ([]models.Badge, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	var total int64
	q := s.DB.Model(&models.Badge{}).Where("external_user_id = ?", externalUserID)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var badges []models.Badge
	err := q.
		Order("issued_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&badges).Error
	if err != nil {
		return nil, 0, err
	}
	return badges, total, nil
}

// HasValidBadgeForType reports whether the user currently holds a live
// badge for the given mission type.
func (s *BadgeService) HasValidBadgeForType(externalUserID, missionTypeTag string, now time.Time) (bool, error) {
	var count int64
	err := s.DB.Model(&models.Badge{}).
		Where("external_user_id = ? AND mission_type_tag = ? AND expires_at > ?", externalUserID, missionTypeTag, now).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// issueBadgeTx runs inside the caller's transaction so the verification
// engine can issue atomically with the quorum transition.
func issueBadgeTx(tx *gorm.DB, externalUserID, missionTypeTag, missionInstanceID string, validityDays int, now time.Time) (*models.Badge, error) {
	var existing models.Badge
	err := tx.Where("mission_instance_id = ?", missionInstanceID).First(&existing).Error
	if err == nil {
		return nil, apperrors.AlreadyIssued
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if validityDays <= 0 {
		validityDays = 3
	}

	badge := models.Badge{
		ExternalUserID:    externalUserID,
		MissionTypeTag:    missionTypeTag,
		MissionInstanceID: missionInstanceID,
		IssuedAt:          now,
		ExpiresAt:         now.AddDate(0, 0, validityDays),
	}
	if err := tx.Create(&badge).Error; err != nil {
		return nil, err
	}
	return &badge, nil
}

func revokeBadgeTx(tx *gorm.DB, missionInstanceID string) error {
	return tx.Where("mission_instance_id = ?", missionInstanceID).Delete(&models.Badge{}).Error
}
