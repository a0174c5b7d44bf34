package services

import (
	"errors"
	"testing"

	"github.com/Replant-Application/Replant-BE-sub002/apperrors"
	"github.com/Replant-Application/Replant-BE-sub002/models"
)

func TestEnsureCompanionIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	svc := NewCompanionService(db)

	first, err := svc.EnsureCompanion("user-1")
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if first.Level != 1 || first.Exp != 0 || first.Stage != models.StageEgg {
		t.Errorf("fresh companion = level %d exp %d stage %s", first.Level, first.Exp, first.Stage)
	}
	if first.Name != "Reant" {
		t.Errorf("name = %s, want Reant", first.Name)
	}

	second, err := svc.EnsureCompanion("user-1")
	if err != nil {
		t.Fatalf("second ensure: %v", err)
	}
	if second.ID != first.ID {
		t.Error("ensure created a second row")
	}

	var count int64
	if err := db.Model(&models.Companion{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Errorf("companions = %d, want 1", count)
	}
}

func TestAddExpPersistsLevelUp(t *testing.T) {
	db := newTestDB(t)
	svc := NewCompanionService(db)

	if _, err := svc.EnsureCompanion("user-1"); err != nil {
		t.Fatalf("ensure: %v", err)
	}

	comp, err := svc.AddExp("user-1", 60)
	if err != nil {
		t.Fatalf("add exp: %v", err)
	}
	// 60 = 10 + 50: two level-ups, nothing left over.
	if comp.Level != 3 || comp.Exp != 0 {
		t.Errorf("returned level %d exp %d, want level 3 exp 0", comp.Level, comp.Exp)
	}

	reloaded, err := svc.Get("user-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if reloaded.Level != 3 || reloaded.Exp != 0 {
		t.Errorf("persisted level %d exp %d, want level 3 exp 0", reloaded.Level, reloaded.Exp)
	}
	if reloaded.Version == 0 {
		t.Error("version not bumped")
	}
}

func TestSubtractExpPersistsLevelDown(t *testing.T) {
	db := newTestDB(t)
	svc := NewCompanionService(db)

	if _, err := svc.EnsureCompanion("user-1"); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if _, err := svc.AddExp("user-1", 60); err != nil {
		t.Fatalf("setup add: %v", err)
	}

	comp, err := svc.SubtractExp("user-1", 1)
	if err != nil {
		t.Fatalf("subtract: %v", err)
	}
	// exp 0 at level 3: any subtraction drops below the cumulative
	// threshold and cascades to level 1.
	if comp.Level != 1 || comp.Exp != 0 {
		t.Errorf("level %d exp %d, want level 1 exp 0", comp.Level, comp.Exp)
	}
}

func TestCompanionMutationsForMissingUser(t *testing.T) {
	db := newTestDB(t)
	svc := NewCompanionService(db)

	if _, err := svc.AddExp("ghost", 10); !errors.Is(err, apperrors.NotFound) {
		t.Errorf("add exp err = %v, want NotFound", err)
	}
	if _, err := svc.Feed("ghost"); !errors.Is(err, apperrors.NotFound) {
		t.Errorf("feed err = %v, want NotFound", err)
	}
	if _, err := svc.Get("ghost"); !errors.Is(err, apperrors.NotFound) {
		t.Errorf("get err = %v, want NotFound", err)
	}
}

func TestRenameKeepsStats(t *testing.T) {
	db := newTestDB(t)
	svc := NewCompanionService(db)

	if _, err := svc.EnsureCompanion("user-1"); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if _, err := svc.AddExp("user-1", 10); err != nil {
		t.Fatalf("add: %v", err)
	}

	comp, err := svc.Rename("user-1", "Sprout")
	if err != nil {
		t.Fatalf("rename: %v", err)
	}
	if comp.Name != "Sprout" {
		t.Errorf("name = %s, want Sprout", comp.Name)
	}
	if comp.Level != 2 {
		t.Errorf("level = %d, rename must not touch progress", comp.Level)
	}
}

func TestDecayHungerAll(t *testing.T) {
	db := newTestDB(t)
	svc := NewCompanionService(db)

	for _, id := range []string{"user-1", "user-2"} {
		if _, err := svc.EnsureCompanion(id); err != nil {
			t.Fatalf("ensure %s: %v", id, err)
		}
	}

	updated, err := svc.DecayHungerAll()
	if err != nil {
		t.Fatalf("decay: %v", err)
	}
	if updated != 2 {
		t.Errorf("updated = %d, want 2", updated)
	}

	comp, err := svc.Get("user-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if comp.Hunger != 10 {
		t.Errorf("hunger = %d, want 10", comp.Hunger)
	}
}
