package models

// Companion ("Reant") leveling rules. The exp schedule and the level-down
// comparison are load-bearing: exp is progress *within* the current
// level, level-up compares it against the per-level step, while
// level-down compares the same field against the cumulative total needed
// to reach the current level. A large subtraction can therefore cascade
// through several levels in one call. Pinned by tests; do not normalize.

// Companion stages, derived from level.
const (
	StageEgg   = "EGG"
	StageBaby  = "BABY"
	StageTeen  = "TEEN"
	StageAdult = "ADULT"
)

// NextLevelExp returns the exp needed to go from level L to L+1.
func NextLevelExp(level int) int {
	switch level {
	case 1:
		return 10
	case 2:
		return 50
	case 3:
		return 100
	case 4:
		return 200
	default:
		return 500 // level 5 and beyond
	}
}

// CumulativeExpToReach returns the total exp spent to arrive at the
// given level from level 1 (0 for level 1).
func CumulativeExpToReach(level int) int {
	total := 0
	for l := 1; l < level; l++ {
		total += NextLevelExp(l)
	}
	return total
}

// StageForLevel maps a level to its growth stage.
func StageForLevel(level int) string {
	switch {
	case level >= 30:
		return StageAdult
	case level >= 15:
		return StageTeen
	case level >= 5:
		return StageBaby
	default:
		return StageEgg
	}
}

// Companion is the per-user leveling subject, one row per user. Version
// is an optimistic-concurrency column: every write is conditional on the
// version read, so level loops never interleave (see CompanionService).
type Companion struct {
	ID             string `gorm:"primaryKey;type:uuid" json:"id"`
	ExternalUserID string `gorm:"uniqueIndex;not null" json:"external_user_id"`
	Name           string `gorm:"not null;default:'Reant'" json:"name"`

	Level    int    `gorm:"not null;default:1" json:"level"`
	Exp      int    `gorm:"not null;default:0" json:"exp"`
	Stage    string `gorm:"type:varchar(16);not null;default:'EGG'" json:"stage"`
	MaxLevel int    `gorm:"not null;default:100" json:"max_level"`

	Mood   int `gorm:"not null;default:100" json:"mood"`   // 0-100
	Health int `gorm:"not null;default:100" json:"health"` // 0-100
	Hunger int `gorm:"not null;default:0" json:"hunger"`   // 0-100, higher = hungrier

	Version int64 `gorm:"not null;default:0" json:"-"`

	Timestamps
}

// ApplyExp adds exp and runs the level-up loop. Returns levels gained.
// Non-positive amounts are a no-op, not an error.
func (c *Companion) ApplyExp(amount int) int {
	if amount <= 0 {
		return 0
	}

	c.Exp += amount
	c.Mood = min(100, c.Mood+5)

	gained := 0
	for c.Exp >= NextLevelExp(c.Level) && c.Level < c.MaxLevel {
		c.Exp -= NextLevelExp(c.Level)
		c.Level++
		c.Mood = 100
		gained++
	}
	c.Stage = StageForLevel(c.Level)
	return gained
}

// RemoveExp subtracts exp and runs the level-down loop. The loop
// compares the in-level exp field against the *cumulative* threshold for
// the current level (historical behavior, see package comment). Returns
// levels lost.
func (c *Companion) RemoveExp(amount int) int {
	if amount <= 0 {
		return 0
	}

	c.Exp = max(0, c.Exp-amount)
	c.Mood = max(0, c.Mood-5)

	lost := 0
	for c.Exp < CumulativeExpToReach(c.Level) && c.Level > 1 {
		c.Level--
		lost++
	}
	c.Stage = StageForLevel(c.Level)
	return lost
}

// ExpToNext returns how much exp is still needed for the next level, or
// 0 at the cap.
func (c *Companion) ExpToNext() int {
	if c.Level >= c.MaxLevel {
		return 0
	}
	return NextLevelExp(c.Level) - c.Exp
}

// Care interactions, same tuning as the original companion.

func (c *Companion) Feed() {
	c.Hunger = max(0, c.Hunger-30)
	c.Health = min(100, c.Health+5)
	c.Mood = min(100, c.Mood+10)
}

func (c *Companion) Rest() {
	c.Health = min(100, c.Health+20)
	c.Mood = min(100, c.Mood+10)
}

func (c *Companion) Play() {
	c.Mood = min(100, c.Mood+20)
	c.Hunger = min(100, c.Hunger+5)
}

func (c *Companion) Pet() {
	c.Mood = min(100, c.Mood+15)
}

// DecayHunger is the hourly tick: hunger creeps up, and a very hungry
// companion starts losing mood and health.
func (c *Companion) DecayHunger() {
	c.Hunger = min(100, c.Hunger+10)
	if c.Hunger > 80 {
		c.Mood = max(0, c.Mood-10)
		c.Health = max(0, c.Health-5)
	}
}
