package services

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Replant-Application/Replant-BE-sub002/apperrors"
	"github.com/Replant-Application/Replant-BE-sub002/logger"
	"github.com/Replant-Application/Replant-BE-sub002/models"
)

type MissionService struct {
	DB *gorm.DB
}

func NewMissionService(db *gorm.DB) *MissionService {
	return &MissionService{DB: db}
}

// PeriodFor formats the period key for a cadence: "2026-08-28" for
// daily, "2026-W35" for weekly, "2026-08" for monthly. Spontaneous
// missions use the daily key of the day they were requested.
func PeriodFor(cadence string, now time.Time) string {
	switch cadence {
	case models.CadenceWeekly:
		year, week := now.ISOWeek()
		return fmt.Sprintf("%d-W%02d", year, week)
	case models.CadenceMonthly:
		return now.Format("2006-01")
	default:
		return now.Format("2006-01-02")
	}
}

// SeedMissionTypes inserts the default catalog, skipping tags that
// already exist. Safe to run on every boot.
func (s *MissionService) SeedMissionTypes() error {
	for i := range models.DefaultMissionTypes {
		t := models.DefaultMissionTypes[i]
		err := s.DB.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "tag"}},
			DoNothing: true,
		}).Create(&t).Error
		if err != nil {
			return err
		}
	}
	return nil
}

// CreateMissionType adds a catalog entry; the tag is derived from the
// title, so duplicate titles surface as a unique-index error.
func (s *MissionService) CreateMissionType(title, description, category, cadence string, expReward int, deadlineMinutes *int, badgeDays int) (*models.MissionType, error) {
	t := models.NewMissionType(title, description, category, cadence, expReward, deadlineMinutes, badgeDays)
	if err := s.DB.Create(&t).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

// DeactivateMissionType stops a type from being distributed or assigned.
// Existing instances are untouched.
func (s *MissionService) DeactivateMissionType(tag string) error {
	res := s.DB.Model(&models.MissionType{}).
		Where("tag = ?", tag).
		Update("active", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperrors.NotFound
	}
	return nil
}

// ListMissionTypes returns the active catalog.
func (s *MissionService) ListMissionTypes() ([]models.MissionType, error) {
	var types []models.MissionType
	if err := s.DB.Where("active = ?", true).Order("tag").Find(&types).Error; err != nil {
		return nil, err
	}
	return types, nil
}

// Assign creates an ASSIGNED instance of a mission type for a user and
// period. deadlineMinutes overrides the type's default when non-nil.
// At most one live assignment per (user, type, period); the partial
// unique index backs up the in-transaction check.
func (s *MissionService) Assign(externalUserID, typeTag, period string, deadlineMinutes *int, now time.Time) (*models.MissionInstance, error) {
	var instance *models.MissionInstance

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var mt models.MissionType
		if err := tx.Where("tag = ? AND active = ?", typeTag, true).First(&mt).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NotFound
			}
			return err
		}

		if period == "" {
			period = PeriodFor(mt.Cadence, now)
		}

		var live int64
		err := tx.Model(&models.MissionInstance{}).
			Where("external_user_id = ? AND mission_type_tag = ? AND period = ? AND status = ?",
				externalUserID, typeTag, period, models.MissionAssigned).
			Count(&live).Error
		if err != nil {
			return err
		}
		if live > 0 {
			return apperrors.DuplicateAssignment
		}

		minutes := mt.DeadlineMinutes
		if deadlineMinutes != nil {
			minutes = deadlineMinutes
		}
		var deadline *time.Time
		if minutes != nil {
			d := now.Add(time.Duration(*minutes) * time.Minute)
			deadline = &d
		}

		instance = &models.MissionInstance{
			ExternalUserID: externalUserID,
			MissionTypeTag: typeTag,
			Period:         period,
			Status:         models.MissionAssigned,
			ExpReward:      mt.ExpReward,
			AssignedAt:     now,
			DeadlineAt:     deadline,
		}
		return tx.Create(instance).Error
	})
	if err != nil {
		return nil, err
	}
	return instance, nil
}

// Get fetches one of the user's mission instances.
func (s *MissionService) Get(instanceID, externalUserID string) (*models.MissionInstance, error) {
	var instance models.MissionInstance
	err := s.DB.Where("id = ? AND external_user_id = ?", instanceID, externalUserID).First(&instance).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound
		}
		return nil, err
	}
	return &instance, nil
}

// Complete transitions ASSIGNED -> COMPLETED with a conditional update;
// the winner of a race gets RowsAffected == 1 and everyone else gets a
// precise error. Normally invoked by the verification engine with the
// approving submission's ID.
func (s *MissionService) Complete(instanceID, externalUserID string, submissionID *string, now time.Time) (*models.MissionInstance, error) {
	var instance *models.MissionInstance
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		instance, err = completeMissionTx(tx, instanceID, externalUserID, submissionID, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	return instance, nil
}

// Skip marks an ASSIGNED instance SKIPPED (user opted out, no penalty).
func (s *MissionService) Skip(instanceID, externalUserID string, now time.Time) (*models.MissionInstance, error) {
	res := s.DB.Model(&models.MissionInstance{}).
		Where("id = ? AND external_user_id = ? AND status = ?", instanceID, externalUserID, models.MissionAssigned).
		Updates(map[string]interface{}{
			"status":     models.MissionSkipped,
			"updated_at": now,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, s.transitionError(instanceID, externalUserID)
	}
	return s.Get(instanceID, externalUserID)
}

// SweepExpired fails every ASSIGNED instance whose deadline has passed,
// in one conditional bulk update. Idempotent; returns rows transitioned.
func (s *MissionService) SweepExpired(now time.Time) (int64, error) {
	res := s.DB.Model(&models.MissionInstance{}).
		Where("status = ? AND deadline_at IS NOT NULL AND deadline_at <= ?", models.MissionAssigned, now).
		Updates(map[string]interface{}{
			"status":     models.MissionFailed,
			"updated_at": now,
		})
	if res.Error != nil {
		return 0, res.Error
	}

	// Close proof submissions stranded on missions that failed: the
	// quorum transition requires an ASSIGNED mission, so votes on them
	// could never apply anyway.
	closed := s.DB.Model(&models.VerificationSubmission{}).
		Where("status = ? AND mission_instance_id IN (?)",
			models.SubmissionPending,
			s.DB.Model(&models.MissionInstance{}).Select("id").Where("status = ?", models.MissionFailed),
		).
		Updates(map[string]interface{}{
			"status":      models.SubmissionRejected,
			"verified_at": now,
			"updated_at":  now,
		})
	if closed.Error != nil {
		return res.RowsAffected, closed.Error
	}

	if res.RowsAffected > 0 || closed.RowsAffected > 0 {
		logger.L.Info("⏰ Expired missions swept",
			zap.Int64("failed", res.RowsAffected),
			zap.Int64("submissions_closed", closed.RowsAffected),
		)
	}
	return res.RowsAffected, nil
}

// Distribute assigns every active mission type of the given cadence to
// every known companion owner for the current period. Users who already
// hold a live or terminal instance for the period are skipped.
func (s *MissionService) Distribute(cadence string, now time.Time) (int, error) {
	period := PeriodFor(cadence, now)

	var types []models.MissionType
	err := s.DB.Where("cadence = ? AND active = ?", cadence, true).Find(&types).Error
	if err != nil {
		return 0, err
	}
	if len(types) == 0 {
		return 0, nil
	}

	var userIDs []string
	if err := s.DB.Model(&models.Companion{}).Pluck("external_user_id", &userIDs).Error; err != nil {
		return 0, err
	}

	created := 0
	for _, userID := range userIDs {
		for i := range types {
			mt := types[i]

			var count int64
			err := s.DB.Model(&models.MissionInstance{}).
				Where("external_user_id = ? AND mission_type_tag = ? AND period = ?", userID, mt.Tag, period).
				Count(&count).Error
			if err != nil {
				return created, err
			}
			if count > 0 {
				continue
			}

			var deadline *time.Time
			if mt.DeadlineMinutes != nil {
				d := now.Add(time.Duration(*mt.DeadlineMinutes) * time.Minute)
				deadline = &d
			}

			instance := models.MissionInstance{
				ExternalUserID: userID,
				MissionTypeTag: mt.Tag,
				Period:         period,
				Status:         models.MissionAssigned,
				ExpReward:      mt.ExpReward,
				AssignedAt:     now,
				DeadlineAt:     deadline,
			}
			if err := s.DB.Create(&instance).Error; err != nil {
				// Concurrent distribution on another replica; the
				// partial index rejected the duplicate. Move on.
				logger.L.Warn("Distribution insert skipped",
					zap.String("user_id", userID),
					zap.String("tag", mt.Tag),
					zap.Error(err),
				)
				continue
			}
			created++
		}
	}

	if created > 0 {
		logger.L.Info("📋 Missions distributed",
			zap.String("cadence", cadence),
			zap.String("period", period),
			zap.Int("created", created),
		)
	}
	return created, nil
}

// ListActive returns the user's live assignments, soonest deadline first.
func (s *MissionService) ListActive(externalUserID string) ([]models.MissionInstance, error) {
	return s.ListByStatus(externalUserID, models.MissionAssigned)
}

// ListByStatus returns the user's instances in one status.
func (s *MissionService) ListByStatus(externalUserID, status string) ([]models.MissionInstance, error) {
	var instances []models.MissionInstance
	err := s.DB.
		Where("external_user_id = ? AND status = ?", externalUserID, status).
		Order("deadline_at ASC NULLS LAST").
		Find(&instances).Error
	if err != nil {
		return nil, err
	}
	return instances, nil
}

// History returns the user's terminal instances, newest first.
func (s *MissionService) History(externalUserID string, page, pageSize int) ([]models.MissionInstance, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	q := s.DB.Model(&models.MissionInstance{}).
		Where("external_user_id = ? AND status <> ?", externalUserID, models.MissionAssigned)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var instances []models.MissionInstance
	err := q.
		Order("updated_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&instances).Error
	if err != nil {
		return nil, 0, err
	}
	return instances, total, nil
}

// transitionError reloads the row to tell AlreadyCompleted apart from
// the other losing cases after a conditional update touched 0 rows.
func (s *MissionService) transitionError(instanceID, externalUserID string) error {
	var instance models.MissionInstance
	err := s.DB.Where("id = ? AND external_user_id = ?", instanceID, externalUserID).First(&instance).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.NotFound
	}
	if err != nil {
		return err
	}
	if instance.Status == models.MissionCompleted {
		return apperrors.AlreadyCompleted
	}
	return apperrors.InvalidTransition
}

// completeMissionTx is the shared ASSIGNED -> COMPLETED step, also run
// inside the verification engine's quorum transaction.
func completeMissionTx(tx *gorm.DB, instanceID, externalUserID string, submissionID *string, now time.Time) (*models.MissionInstance, error) {
	updates := map[string]interface{}{
		"status":      models.MissionCompleted,
		"verified_at": now,
		"updated_at":  now,
	}
	if submissionID != nil {
		updates["submission_id"] = *submissionID
	}

	res := tx.Model(&models.MissionInstance{}).
		Where("id = ? AND external_user_id = ? AND status = ?", instanceID, externalUserID, models.MissionAssigned).
		Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		var instance models.MissionInstance
		err := tx.Where("id = ? AND external_user_id = ?", instanceID, externalUserID).First(&instance).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound
		}
		if err != nil {
			return nil, err
		}
		if instance.Status == models.MissionCompleted {
			return nil, apperrors.AlreadyCompleted
		}
		return nil, apperrors.InvalidTransition
	}

	var instance models.MissionInstance
	if err := tx.Where("id = ?", instanceID).First(&instance).Error; err != nil {
		return nil, err
	}
	return &instance, nil
}
