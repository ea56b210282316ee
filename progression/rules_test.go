package progression

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"ironquest/models"
)

func ptr(f float64) *float64 { return &f }

func TestComputeDelta_Counters(t *testing.T) {
	for _, g := range []models.GoalType{models.GoalWorkout, models.GoalStreak, models.GoalBodyweight, models.GoalCreation, models.GoalQuest} {
		single := models.Achievement{GoalType: g, GoalAmount: 1}
		assert.Equal(t, 100.0, ComputeDelta(single, models.UserAchievement{}, Event{}, nil), g)

		five := models.Achievement{GoalType: g, GoalAmount: 5}
		assert.Equal(t, 20.0, ComputeDelta(five, models.UserAchievement{Progress: 40}, Event{}, nil), g)
	}
}

func TestComputeDelta_UnsetGoalAmountIsSingleTrigger(t *testing.T) {
	a := models.Achievement{GoalType: models.GoalWorkout}
	assert.Equal(t, 100.0, ComputeDelta(a, models.UserAchievement{}, Event{}, nil))
}

func TestComputeDelta_Level(t *testing.T) {
	a := models.Achievement{GoalType: models.GoalLevel, GoalAmount: 10}

	assert.InDelta(t, 30.0, ComputeDelta(a, models.UserAchievement{}, Event{Level: 3}, nil), 1e-9)
	assert.InDelta(t, 20.0, ComputeDelta(a, models.UserAchievement{Progress: 30}, Event{Level: 5}, nil), 1e-9)
	assert.InDelta(t, 50.0, ComputeDelta(a, models.UserAchievement{Progress: 50}, Event{Level: 12}, nil), 1e-9)
	// A level at or below recorded progress earns nothing.
	assert.Equal(t, 0.0, ComputeDelta(a, models.UserAchievement{Progress: 50}, Event{Level: 4}, nil))
}

func TestComputeDelta_TargetLift(t *testing.T) {
	a := models.Achievement{GoalType: models.GoalPersonalBest, TargetValue: ptr(225), LiftName: "Bench Press"}

	assert.Equal(t, 100.0, ComputeDelta(a, models.UserAchievement{}, Event{WorkoutName: "Bench Press", Weight: 230}, nil))
	assert.Equal(t, 100.0, ComputeDelta(a, models.UserAchievement{}, Event{WorkoutName: "bench  press", Weight: 225}, nil))
	assert.Equal(t, 0.0, ComputeDelta(a, models.UserAchievement{}, Event{WorkoutName: "Bench Press", Weight: 220}, nil))
	assert.Equal(t, 0.0, ComputeDelta(a, models.UserAchievement{}, Event{WorkoutName: "Squat", Weight: 300}, nil))
}

func TestComputeDelta_PersonalBest(t *testing.T) {
	a := models.Achievement{GoalType: models.GoalPersonalBest, LiftName: "Squat"}
	bests := map[string]float64{"squat": 200}

	assert.Equal(t, 0.0, ComputeDelta(a, models.UserAchievement{}, Event{WorkoutName: "Squat", Weight: 200}, bests))
	assert.Equal(t, 100.0, ComputeDelta(a, models.UserAchievement{}, Event{WorkoutName: "Squat", Weight: 205}, bests))
	assert.Equal(t, 100.0, ComputeDelta(a, models.UserAchievement{}, Event{WorkoutName: "Squat", Weight: 95}, nil))

	anyLift := models.Achievement{GoalType: models.GoalPersonalBest}
	ev := Event{Lifts: []Lift{{Name: "Squat", Weight: 150}, {Name: "Deadlift", Weight: 310}}}
	assert.Equal(t, 100.0, ComputeDelta(anyLift, models.UserAchievement{}, ev, map[string]float64{"squat": 200, "deadlift": 300}))
}

func TestComputeDelta_CumulativeLifting(t *testing.T) {
	a := models.Achievement{GoalType: models.GoalLiftingWeight, GoalAmount: 10000}
	ev := Event{Lifts: []Lift{{Name: "Squat", Weight: 200, Reps: 5}, {Name: "Bench", Weight: 100}}}

	assert.InDelta(t, 3.0, ComputeDelta(a, models.UserAchievement{}, ev, nil), 1e-9)

	perLift := models.Achievement{GoalType: models.GoalLiftingWeight, GoalAmount: 1000}
	mixed := Event{Lifts: []Lift{{Name: "Bench", Weight: 100, Reps: 5}, {Name: "Squat", Weight: 150, Reps: 5}}}
	assert.InDelta(t, 25.0, ComputeDelta(perLift, models.UserAchievement{}, mixed, nil), 1e-9)
	assert.Equal(t, 0.0, ComputeDelta(a, models.UserAchievement{}, Event{}, nil))
}

func TestComputeDelta_SkipsCompletedAndUnknown(t *testing.T) {
	a := models.Achievement{GoalType: models.GoalWorkout}
	assert.Equal(t, 0.0, ComputeDelta(a, models.UserAchievement{Completed: true, Progress: 100}, Event{}, nil))

	unknown := models.Achievement{GoalType: models.GoalType("MEDITATION")}
	assert.Equal(t, 0.0, ComputeDelta(unknown, models.UserAchievement{}, Event{}, nil))
}

func TestNormalizeGoalTypes(t *testing.T) {
	got := NormalizeGoalTypes([]models.GoalType{models.GoalWorkout, "BOGUS", models.GoalWorkout, models.GoalLevel})
	assert.Equal(t, []models.GoalType{models.GoalWorkout, models.GoalLevel}, got)
}

func TestEventVolume(t *testing.T) {
	ev := Event{Lifts: []Lift{{Name: "Row", Weight: 100, Reps: 3}, {Name: "Curl", Weight: 30}, {Name: "Plank", Weight: 0, Reps: 4}}}
	assert.Equal(t, 330.0, ev.Volume())
	assert.Equal(t, 230.0, Event{WorkoutName: "Bench Press", Weight: 230}.Volume())
	assert.Equal(t, 130.0, ev.TotalWeight())
}

func TestWrapTx(t *testing.T) {
	nf := &NotFoundError{Resource: "user", ID: 4}
	assert.Same(t, nf, WrapTx("apply", nf).(*NotFoundError))
	assert.True(t, IsTransactionFailed(WrapTx("apply", assert.AnError)))
	assert.NoError(t, WrapTx("apply", nil))
}
