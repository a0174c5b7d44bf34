package models

import "testing"

func newTestCompanion() *Companion {
	return &Companion{
		Name:     "Reant",
		Level:    1,
		Exp:      0,
		Stage:    StageEgg,
		MaxLevel: 100,
		Mood:     50,
		Health:   100,
		Hunger:   0,
	}
}

func TestNextLevelExpSchedule(t *testing.T) {
	cases := map[int]int{1: 10, 2: 50, 3: 100, 4: 200, 5: 500, 6: 500, 99: 500}
	for level, want := range cases {
		if got := NextLevelExp(level); got != want {
			t.Errorf("NextLevelExp(%d) = %d, want %d", level, got, want)
		}
	}
}

func TestCumulativeExpToReach(t *testing.T) {
	cases := map[int]int{1: 0, 2: 10, 3: 60, 4: 160, 5: 360, 6: 860}
	for level, want := range cases {
		if got := CumulativeExpToReach(level); got != want {
			t.Errorf("CumulativeExpToReach(%d) = %d, want %d", level, got, want)
		}
	}
}

func TestApplyExpSingleLevelUp(t *testing.T) {
	c := newTestCompanion()

	gained := c.ApplyExp(10)

	if gained != 1 {
		t.Fatalf("gained = %d, want 1", gained)
	}
	if c.Level != 2 || c.Exp != 0 {
		t.Errorf("got level %d exp %d, want level 2 exp 0", c.Level, c.Exp)
	}
	if c.Mood != 100 {
		t.Errorf("mood = %d, want 100 after level-up", c.Mood)
	}
}

func TestApplyExpBelowThreshold(t *testing.T) {
	c := newTestCompanion()
	c.Level = 2
	c.Exp = 0

	gained := c.ApplyExp(45)

	if gained != 0 {
		t.Fatalf("gained = %d, want 0", gained)
	}
	if c.Level != 2 || c.Exp != 45 {
		t.Errorf("got level %d exp %d, want level 2 exp 45", c.Level, c.Exp)
	}
	if c.Mood != 55 {
		t.Errorf("mood = %d, want 55 (+5)", c.Mood)
	}
}

func TestApplyExpCarriesRemainder(t *testing.T) {
	c := newTestCompanion()
	c.Level = 2
	c.Exp = 45

	gained := c.ApplyExp(5)

	if gained != 1 {
		t.Fatalf("gained = %d, want 1", gained)
	}
	if c.Level != 3 || c.Exp != 0 {
		t.Errorf("got level %d exp %d, want level 3 exp 0", c.Level, c.Exp)
	}
}

func TestApplyExpCascadesMultipleLevels(t *testing.T) {
	c := newTestCompanion()

	// 10 + 50 + 40: two full levels plus 40 into level 3.
	gained := c.ApplyExp(100)

	if gained != 2 {
		t.Fatalf("gained = %d, want 2", gained)
	}
	if c.Level != 3 || c.Exp != 40 {
		t.Errorf("got level %d exp %d, want level 3 exp 40", c.Level, c.Exp)
	}
}

func TestApplyExpRespectsMaxLevel(t *testing.T) {
	c := newTestCompanion()
	c.MaxLevel = 2
	c.Level = 2
	c.Exp = 0

	gained := c.ApplyExp(500)

	if gained != 0 {
		t.Fatalf("gained = %d, want 0 at cap", gained)
	}
	if c.Level != 2 || c.Exp != 500 {
		t.Errorf("got level %d exp %d, want level 2 exp 500 (banked at cap)", c.Level, c.Exp)
	}
}

// The level-down loop compares the in-level exp field against the
// cumulative threshold for the current level, so a subtraction can drop
// several levels even when the mirror-image addition only gained one.
func TestRemoveExpCascadesThroughCumulativeThresholds(t *testing.T) {
	c := newTestCompanion()
	c.Level = 3
	c.Exp = 0

	lost := c.RemoveExp(70)

	// exp 0 < CumulativeExpToReach(3)=60 -> level 2;
	// exp 0 < CumulativeExpToReach(2)=10 -> level 1.
	if lost != 2 {
		t.Fatalf("lost = %d, want 2", lost)
	}
	if c.Level != 1 || c.Exp != 0 {
		t.Errorf("got level %d exp %d, want level 1 exp 0", c.Level, c.Exp)
	}
}

func TestRemoveExpWithinLevel(t *testing.T) {
	c := newTestCompanion()
	c.Level = 3
	c.Exp = 80

	lost := c.RemoveExp(10)

	// 70 >= CumulativeExpToReach(3)=60: no drop.
	if lost != 0 {
		t.Fatalf("lost = %d, want 0", lost)
	}
	if c.Level != 3 || c.Exp != 70 {
		t.Errorf("got level %d exp %d, want level 3 exp 70", c.Level, c.Exp)
	}
	if c.Mood != 45 {
		t.Errorf("mood = %d, want 45 (-5)", c.Mood)
	}
}

func TestRemoveExpFloorsAtZeroAndLevelOne(t *testing.T) {
	c := newTestCompanion()
	c.Level = 1
	c.Exp = 3

	lost := c.RemoveExp(50)

	if lost != 0 {
		t.Fatalf("lost = %d, want 0", lost)
	}
	if c.Level != 1 || c.Exp != 0 {
		t.Errorf("got level %d exp %d, want level 1 exp 0", c.Level, c.Exp)
	}
}

// Add-then-subtract is NOT an identity when the addition crossed a
// level boundary: +10 from scratch reaches level 2 exp 0, and -10 then
// drops back below the cumulative threshold to level 1, losing the
// banked progress.
func TestAddThenSubtractAcrossBoundary(t *testing.T) {
	c := newTestCompanion()

	c.ApplyExp(10)
	if c.Level != 2 {
		t.Fatalf("setup: level = %d, want 2", c.Level)
	}

	c.RemoveExp(10)

	if c.Level != 1 || c.Exp != 0 {
		t.Errorf("got level %d exp %d, want level 1 exp 0", c.Level, c.Exp)
	}
}

func TestAddThenSubtractWithinLevelIsIdentityOnExp(t *testing.T) {
	c := newTestCompanion()
	c.Level = 5
	c.Exp = 400

	c.ApplyExp(50)
	c.RemoveExp(50)

	if c.Level != 5 || c.Exp != 400 {
		t.Errorf("got level %d exp %d, want level 5 exp 400", c.Level, c.Exp)
	}
}

func TestStageForLevel(t *testing.T) {
	cases := map[int]string{
		1:  StageEgg,
		4:  StageEgg,
		5:  StageBaby,
		14: StageBaby,
		15: StageTeen,
		29: StageTeen,
		30: StageAdult,
		99: StageAdult,
	}
	for level, want := range cases {
		if got := StageForLevel(level); got != want {
			t.Errorf("StageForLevel(%d) = %s, want %s", level, got, want)
		}
	}
}

func TestStageAdvancesWithExp(t *testing.T) {
	c := newTestCompanion()

	// Exactly the cumulative cost of levels 1 through 4.
	c.ApplyExp(360)

	if c.Level != 5 {
		t.Fatalf("level = %d, want 5", c.Level)
	}
	if c.Stage != StageBaby {
		t.Errorf("stage = %s, want %s", c.Stage, StageBaby)
	}
}

func TestCareInteractions(t *testing.T) {
	c := newTestCompanion()
	c.Hunger = 50
	c.Health = 70
	c.Mood = 40

	c.Feed()
	if c.Hunger != 20 || c.Health != 75 || c.Mood != 50 {
		t.Errorf("after feed: hunger %d health %d mood %d", c.Hunger, c.Health, c.Mood)
	}

	c.Play()
	if c.Mood != 70 || c.Hunger != 25 {
		t.Errorf("after play: mood %d hunger %d", c.Mood, c.Hunger)
	}

	c.Rest()
	if c.Health != 95 || c.Mood != 80 {
		t.Errorf("after rest: health %d mood %d", c.Health, c.Mood)
	}

	c.Pet()
	if c.Mood != 95 {
		t.Errorf("after pet: mood %d", c.Mood)
	}
}

func TestDecayHungerPenalizesWhenStarving(t *testing.T) {
	c := newTestCompanion()
	c.Hunger = 80
	c.Mood = 50
	c.Health = 50

	c.DecayHunger()

	if c.Hunger != 90 {
		t.Fatalf("hunger = %d, want 90", c.Hunger)
	}
	if c.Mood != 40 || c.Health != 45 {
		t.Errorf("mood %d health %d, want 40 and 45", c.Mood, c.Health)
	}
}
