// Package progression holds the store-independent parts of the progression
// engine: the leveling curve, the per-goal delta rules, the error taxonomy and
// the Engine contract implemented by the server store and the offline mirror.
package progression

import (
	"context"
	"math"

	"ironquest/models"
)

// Lift is one lifted set reported with an event.
type Lift struct {
	Name   string  `json:"name"`
	Weight float64 `json:"weight"`
	Reps   int     `json:"reps,omitempty"`
}

// Event is the context of a triggering domain event.
type Event struct {
	Level       int     `json:"level,omitempty"`
	WorkoutName string  `json:"workout_name,omitempty"`
	Weight      float64 `json:"weight,omitempty"`
	Lifts       []Lift  `json:"lifts,omitempty"`
}

// AllLifts returns the lifts of the event. A bare workoutName/weight pair
// counts as a single one-rep lift.
func (e Event) AllLifts() []Lift {
	if len(e.Lifts) > 0 {
		return e.Lifts
	}
	if e.WorkoutName != "" && e.Weight > 0 {
		return []Lift{{Name: e.WorkoutName, Weight: e.Weight, Reps: 1}}
	}
	return nil
}

// TotalWeight is the sum of the event's lift weights, one entry per lift.
func (e Event) TotalWeight() float64 {
	total := 0.0
	for _, l := range e.AllLifts() {
		if l.Weight > 0 {
			total += l.Weight
		}
	}
	return total
}

// Volume is the total weight moved in the event, weight times reps.
func (e Event) Volume() float64 {
	total := 0.0
	for _, l := range e.AllLifts() {
		if l.Weight <= 0 {
			continue
		}
		reps := l.Reps
		if reps < 1 {
			reps = 1
		}
		total += l.Weight * float64(reps)
	}
	return total
}

// Delta is a proposed progress change for one ledger entry.
type Delta struct {
	AchievementID uint            `json:"achievement_id"`
	GoalType      models.GoalType `json:"goal_type"`
	Delta         float64         `json:"delta"`
}

// LedgerResult is the outcome of a single AddProgress call.
type LedgerResult struct {
	Entry models.UserAchievement `json:"entry"`
	// Completed is true only when this call moved the entry to completed.
	Completed bool `json:"completed"`
	// AlreadyCompleted is true when the delta was absorbed by a completed entry.
	AlreadyCompleted bool                 `json:"already_completed"`
	XPAwarded        int                  `json:"xp_awarded"`
	User             *models.UserSnapshot `json:"user,omitempty"`
}

// EventResult is returned to the caller of ApplyEvent for UI and notifications.
type EventResult struct {
	User           models.UserSnapshot  `json:"user"`
	NewlyCompleted []models.Achievement `json:"newly_completed"`
	Deltas         []Delta              `json:"deltas"`
	LevelBefore    int                  `json:"level_before"`
	LeveledUp      bool                 `json:"leveled_up"`
}

// Engine is the progression contract. The server store and the offline
// mirror implement it independently against their own storage.
type Engine interface {
	AddProgress(ctx context.Context, userID, achievementID uint, delta float64) (*LedgerResult, error)
	ComputeDeltas(ctx context.Context, userID uint, goalTypes []models.GoalType, ev Event) ([]Delta, error)
	ApplyEvent(ctx context.Context, userID uint, goalTypes []models.GoalType, ev Event) (*EventResult, error)
}

// ClampProgress bounds a progress value to [0, 100].
func ClampProgress(p float64) float64 {
	return math.Min(100, math.Max(0, p))
}

func ValidateDelta(delta float64) error {
	if math.IsNaN(delta) || math.IsInf(delta, 0) {
		return &ValidationError{Field: "delta", Reason: "must be a finite number"}
	}
	return nil
}

// NormalizeGoalTypes drops duplicates and goal types the dispatcher does not know.
func NormalizeGoalTypes(types []models.GoalType) []models.GoalType {
	seen := make(map[models.GoalType]bool, len(types))
	out := make([]models.GoalType, 0, len(types))
	for _, t := range types {
		if !t.IsValid() || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// ContainsGoalType reports whether t is in types.
func ContainsGoalType(types []models.GoalType, t models.GoalType) bool {
	for _, candidate := range types {
		if candidate == t {
			return true
		}
	}
	return false
}
