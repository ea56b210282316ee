package progression

import (
	"math"

	"ironquest/models"
)

// ComputeDelta returns the progress the event earns for one incomplete
// ledger entry. bests maps normalized lift names to the maximum weight
// recorded before this event. A zero result means the entry is unaffected.
func ComputeDelta(a models.Achievement, entry models.UserAchievement, ev Event, bests map[string]float64) float64 {
	if entry.Completed {
		return 0
	}
	amount := a.EffectiveGoalAmount()

	switch a.GoalType {
	case models.GoalWorkout, models.GoalStreak, models.GoalBodyweight, models.GoalCreation, models.GoalQuest:
		if amount <= 1 {
			return 100
		}
		return 100 / amount

	case models.GoalLevel:
		target := math.Min(100, float64(ev.Level)/amount*100)
		delta := target - entry.Progress
		if delta <= 0 {
			return 0
		}
		return delta

	case models.GoalLiftingWeight, models.GoalPersonalBest:
		return liftingDelta(a, ev, bests)
	}
	return 0
}

func liftingDelta(a models.Achievement, ev Event, bests map[string]float64) float64 {
	lifts := matchingLifts(a, ev.AllLifts())

	if a.TargetValue != nil {
		for _, l := range lifts {
			if l.Weight >= *a.TargetValue {
				return 100
			}
		}
		return 0
	}

	if a.GoalType == models.GoalPersonalBest {
		for _, l := range lifts {
			if l.Weight > 0 && l.Weight > bests[models.NormalizeLiftName(l.Name)] {
				return 100
			}
		}
		return 0
	}

	// Cumulative pounds toward goalAmount.
	total := Event{Lifts: lifts}.TotalWeight()
	if total <= 0 {
		return 0
	}
	return total / a.EffectiveGoalAmount() * 100
}

func matchingLifts(a models.Achievement, lifts []Lift) []Lift {
	if a.LiftName == "" {
		return lifts
	}
	want := models.NormalizeLiftName(a.LiftName)
	out := make([]Lift, 0, len(lifts))
	for _, l := range lifts {
		if models.NormalizeLiftName(l.Name) == want {
			out = append(out, l)
		}
	}
	return out
}

// HeaviestLifts folds an event's lifts into the heaviest weight per lift.
func HeaviestLifts(ev Event) map[string]float64 {
	out := map[string]float64{}
	for _, l := range ev.AllLifts() {
		key := models.NormalizeLiftName(l.Name)
		if key == "" || l.Weight <= 0 {
			continue
		}
		if l.Weight > out[key] {
			out[key] = l.Weight
		}
	}
	return out
}
