package workers

import (
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/Replant-Application/Replant-BE-sub002/models"
)

func newWorkerTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:outcome_worker_test?mode=memory&cache=shared"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrate(&models.OutcomeEvent{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		db.Exec("DELETE FROM outcome_events")
		sqlDB, err := db.DB()
		if err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func TestDrainOnceEmptyOutbox(t *testing.T) {
	db := newWorkerTestDB(t)
	w := &OutcomeWorker{DB: db, Interval: time.Second, BatchSize: 10}

	if err := w.DrainOnce(); err != nil {
		t.Fatalf("drain empty outbox: %v", err)
	}
}

// With no broker connection, a drain attempt must leave the rows
// unpublished so they are retried next tick instead of being lost.
func TestDrainOnceKeepsRowsWhenBrokerDown(t *testing.T) {
	db := newWorkerTestDB(t)
	w := &OutcomeWorker{DB: db, Interval: time.Second, BatchSize: 10}

	event := models.OutcomeEvent{
		Kind:              models.EventVerificationApproved,
		ExternalUserID:    "user-1",
		MissionInstanceID: "instance-1",
		SubmissionID:      "submission-1",
		ExpDelta:          10,
	}
	if err := db.Create(&event).Error; err != nil {
		t.Fatalf("create event: %v", err)
	}

	if err := w.DrainOnce(); err != nil {
		t.Fatalf("drain: %v", err)
	}

	var reloaded models.OutcomeEvent
	if err := db.First(&reloaded, "id = ?", event.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.PublishedAt != nil {
		t.Error("event marked published without a broker")
	}
}
