package progression

import "math"

// LevelCoef scales the per-level XP requirement.
const LevelCoef = 1.2

// RequiredXP is the XP needed to advance from level to level+1.
func RequiredXP(level int) int {
	if level < 1 {
		level = 1
	}
	return int(math.Floor(100 * float64(level) * LevelCoef))
}

// ApplyXP adds xpToAdd to a user's rolling XP and returns the resulting
// XP and level. XP rolls over on every level-up.
func ApplyXP(currentXP, currentLevel, xpToAdd int) (newXP, newLevel int, err error) {
	if xpToAdd < 0 {
		return currentXP, currentLevel, &ValidationError{Field: "xp", Reason: "must not be negative"}
	}
	if currentXP < 0 {
		return currentXP, currentLevel, &ValidationError{Field: "current xp", Reason: "must not be negative"}
	}
	if currentLevel < 1 {
		return currentXP, currentLevel, &ValidationError{Field: "level", Reason: "must be at least 1"}
	}
	if xpToAdd > math.MaxInt-currentXP {
		return currentXP, currentLevel, &ValidationError{Field: "xp", Reason: "award overflows the XP counter"}
	}

	newXP = currentXP + xpToAdd
	newLevel = currentLevel
	for newXP >= RequiredXP(newLevel) {
		newXP -= RequiredXP(newLevel)
		newLevel++
	}
	return newXP, newLevel, nil
}

// LevelProgress is the cached 0-100 percentage of the way to the next level.
func LevelProgress(xp, level int) int {
	req := RequiredXP(level)
	if req <= 0 || xp <= 0 {
		return 0
	}
	if xp >= req {
		return 100
	}
	return xp * 100 / req
}
