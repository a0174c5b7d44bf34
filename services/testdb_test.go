package services

import (
	"fmt"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/Replant-Application/Replant-BE-sub002/models"
)

// newTestDB opens a per-test in-memory database. cache=shared keeps the
// database alive across the connections GORM pools.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}

	err = db.AutoMigrate(
		&models.MissionType{},
		&models.MissionInstance{},
		&models.VerificationSubmission{},
		&models.Vote{},
		&models.Companion{},
		&models.Badge{},
		&models.OutcomeEvent{},
	)
	if err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	if err := models.EnsureLiveAssignmentIndex(db); err != nil {
		t.Fatalf("create live assignment index: %v", err)
	}

	t.Cleanup(func() {
		sqlDB, err := db.DB()
		if err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// seedMissionType inserts a catalog row and returns its tag.
func seedMissionType(t *testing.T, db *gorm.DB, title string, expReward int, deadlineMinutes *int) string {
	t.Helper()

	mt := models.NewMissionType(title, "test mission", "meal", models.CadenceDaily, expReward, deadlineMinutes, 3)
	if err := db.Create(&mt).Error; err != nil {
		t.Fatalf("seed mission type: %v", err)
	}
	return mt.Tag
}

func intp(v int) *int { return &v }
