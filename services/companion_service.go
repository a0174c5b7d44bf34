package services

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Replant-Application/Replant-BE-sub002/apperrors"
	"github.com/Replant-Application/Replant-BE-sub002/config"
	"github.com/Replant-Application/Replant-BE-sub002/logger"
	"github.com/Replant-Application/Replant-BE-sub002/models"
)

// Companion rows are single-writer: every write is a conditional UPDATE
// on the version column read at the start, retried a few times. The
// level loops in models.Companion are therefore never interleaved, and
// the same helpers run inside the verification transaction so reward
// application commits atomically with the quorum transition.
const maxCompanionRetries = 3

type CompanionService struct {
	DB *gorm.DB
}

func NewCompanionService(db *gorm.DB) *CompanionService {
	return &CompanionService{DB: db}
}

// EnsureCompanion returns the user's companion, creating the level 1 egg
// on first touch (idempotent).
func (s *CompanionService) EnsureCompanion(externalUserID string) (*models.Companion, error) {
	return ensureCompanionTx(s.DB, externalUserID)
}

func ensureCompanionTx(tx *gorm.DB, externalUserID string) (*models.Companion, error) {
	var comp models.Companion
	err := tx.Where("external_user_id = ?", externalUserID).First(&comp).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		comp = models.Companion{
			ExternalUserID: externalUserID,
			Name:           "Reant",
			Level:          1,
			Exp:            0,
			Stage:          models.StageEgg,
			MaxLevel:       config.Cfg.CompanionMaxLevel,
			Mood:           100,
			Health:         100,
			Hunger:         0,
		}
		if comp.MaxLevel <= 0 {
			comp.MaxLevel = 100
		}
		if err := tx.Create(&comp).Error; err != nil {
			return nil, err
		}
		return &comp, nil
	}
	if err != nil {
		return nil, err
	}
	return &comp, nil
}

func (s *CompanionService) Get(externalUserID string) (*models.Companion, error) {
	var comp models.Companion
	if err := s.DB.Where("external_user_id = ?", externalUserID).First(&comp).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound
		}
		return nil, err
	}
	return &comp, nil
}

// Rename updates the companion's display name.
func (s *CompanionService) Rename(externalUserID, name string) (*models.Companion, error) {
	return s.mutate(s.DB, externalUserID, func(c *models.Companion) {
		if name != "" {
			c.Name = name
		}
	})
}

// AddExp applies a reward amount and runs the level-up loop.
func (s *CompanionService) AddExp(externalUserID string, amount int) (*models.Companion, error) {
	var comp *models.Companion
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		comp, err = addExpTx(tx, externalUserID, amount)
		return err
	})
	if err != nil {
		return nil, err
	}
	return comp, nil
}

// SubtractExp reverses a reward amount and runs the level-down loop.
func (s *CompanionService) SubtractExp(externalUserID string, amount int) (*models.Companion, error) {
	var comp *models.Companion
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		comp, err = subtractExpTx(tx, externalUserID, amount)
		return err
	})
	if err != nil {
		return nil, err
	}
	return comp, nil
}

// Care interactions.

func (s *CompanionService) Feed(externalUserID string) (*models.Companion, error) {
	return s.mutate(s.DB, externalUserID, func(c *models.Companion) { c.Feed() })
}

func (s *CompanionService) Rest(externalUserID string) (*models.Companion, error) {
	return s.mutate(s.DB, externalUserID, func(c *models.Companion) { c.Rest() })
}

func (s *CompanionService) Play(externalUserID string) (*models.Companion, error) {
	return s.mutate(s.DB, externalUserID, func(c *models.Companion) { c.Play() })
}

func (s *CompanionService) Pet(externalUserID string) (*models.Companion, error) {
	return s.mutate(s.DB, externalUserID, func(c *models.Companion) { c.Pet() })
}

// DecayHungerAll runs the hourly hunger tick for every companion.
// Contended rows are skipped and picked up next tick.
func (s *CompanionService) DecayHungerAll() (int, error) {
	var ids []string
	if err := s.DB.Model(&models.Companion{}).Pluck("external_user_id", &ids).Error; err != nil {
		return 0, err
	}

	updated := 0
	for _, id := range ids {
		if _, err := s.mutate(s.DB, id, func(c *models.Companion) { c.DecayHunger() }); err != nil {
			logger.L.Warn("Hunger decay skipped",
				zap.String("user_id", id),
				zap.Error(err),
			)
			continue
		}
		updated++
	}
	return updated, nil
}

// addExpTx applies exp inside the caller's transaction. Used by AddExp
// and by the verification engine's reward application.
func addExpTx(tx *gorm.DB, externalUserID string, amount int) (*models.Companion, error) {
	return mutateCompanion(tx, externalUserID, func(c *models.Companion) {
		gained := c.ApplyExp(amount)
		if gained > 0 {
			logger.L.Info("Companion leveled up",
				zap.String("user_id", externalUserID),
				zap.Int("level", c.Level),
				zap.String("stage", c.Stage),
			)
		}
	})
}

// subtractExpTx reverses exp inside the caller's transaction.
func subtractExpTx(tx *gorm.DB, externalUserID string, amount int) (*models.Companion, error) {
	return mutateCompanion(tx, externalUserID, func(c *models.Companion) {
		lost := c.RemoveExp(amount)
		if lost > 0 {
			logger.L.Info("Companion leveled down",
				zap.String("user_id", externalUserID),
				zap.Int("level", c.Level),
				zap.String("stage", c.Stage),
			)
		}
	})
}

func (s *CompanionService) mutate(db *gorm.DB, externalUserID string, apply func(*models.Companion)) (*models.Companion, error) {
	return mutateCompanion(db, externalUserID, apply)
}

// mutateCompanion is the optimistic-concurrency write path: read, apply
// the pure mutation, then UPDATE conditional on the version we read.
func mutateCompanion(db *gorm.DB, externalUserID string, apply func(*models.Companion)) (*models.Companion, error) {
	for attempt := 0; attempt < maxCompanionRetries; attempt++ {
		var comp models.Companion
		if err := db.Where("external_user_id = ?", externalUserID).First(&comp).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperrors.NotFound
			}
			return nil, err
		}

		readVersion := comp.Version
		apply(&comp)
		comp.Version = readVersion + 1
		comp.UpdatedAt = time.Now()

		res := db.Model(&models.Companion{}).
			Where("id = ? AND version = ?", comp.ID, readVersion).
			Updates(map[string]interface{}{
				"name":       comp.Name,
				"level":      comp.Level,
				"exp":        comp.Exp,
				"stage":      comp.Stage,
				"mood":       comp.Mood,
				"health":     comp.Health,
				"hunger":     comp.Hunger,
				"version":    comp.Version,
				"updated_at": comp.UpdatedAt,
			})
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 1 {
			return &comp, nil
		}
		// Lost the version race; re-read and retry.
	}

	return nil, fmt.Errorf("companion row contention for user %s", externalUserID)
}
