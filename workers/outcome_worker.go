package workers

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Replant-Application/Replant-BE-sub002/config"
	"github.com/Replant-Application/Replant-BE-sub002/logger"
	"github.com/Replant-Application/Replant-BE-sub002/models"
	"github.com/Replant-Application/Replant-BE-sub002/queue"
)

// OutcomeWorker drains the outcome_events outbox to RabbitMQ. Events
// are written in the same transaction as the quorum transition they
// describe; this worker polls for unpublished rows and marks each one
// after a successful publish. Delivery is at-least-once: a crash
// between publish and mark re-sends the event next tick.
type OutcomeWorker struct {
	DB        *gorm.DB
	Interval  time.Duration
	BatchSize int
}

func NewOutcomeWorker(db *gorm.DB) *OutcomeWorker {
	seconds := config.Cfg.OutcomePollSeconds
	if seconds < 1 {
		seconds = 5
	}
	batch := config.Cfg.OutcomeBatchSize
	if batch < 1 {
		batch = 50
	}
	return &OutcomeWorker{
		DB:        db,
		Interval:  time.Duration(seconds) * time.Second,
		BatchSize: batch,
	}
}

// Run polls until the context is cancelled. Intended as a goroutine
// from main.
func (w *OutcomeWorker) Run(ctx context.Context) {
	logger.L.Info("📤 Outcome worker started",
		zap.Duration("interval", w.Interval),
		zap.Int("batch_size", w.BatchSize),
	)

	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.L.Info("Outcome worker stopped")
			return
		case <-ticker.C:
			if err := w.DrainOnce(); err != nil {
				logger.L.Error("Outcome drain failed", zap.Error(err))
			}
		}
	}
}

// DrainOnce publishes one batch of unpublished events, oldest first.
func (w *OutcomeWorker) DrainOnce() error {
	var events []models.OutcomeEvent
	err := w.DB.
		Where("published_at IS NULL").
		Order("created_at ASC").
		Limit(w.BatchSize).
		Find(&events).Error
	if err != nil {
		return err
	}

	for i := range events {
		event := events[i]

		if err := queue.Publish(event.Kind, event); err != nil {
			// Broker down; leave the row unpublished and stop the
			// batch so ordering per user is preserved.
			logger.L.Warn("Outcome publish failed, will retry",
				zap.String("event_id", event.ID),
				zap.String("kind", event.Kind),
				zap.Error(err),
			)
			return nil
		}

		now := time.Now()
		err := w.DB.Model(&models.OutcomeEvent{}).
			Where("id = ?", event.ID).
			Update("published_at", now).Error
		if err != nil {
			return err
		}
	}

	if len(events) > 0 {
		logger.L.Info("📨 Outcome events published",
			zap.Int("count", len(events)),
		)
	}
	return nil
}
