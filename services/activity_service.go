// services/activity_service.go - Workout and body-weight logging
package services

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"ironquest/models"
	"ironquest/progression"
)

// WorkoutGoalTypes are the goal types a completed workout feeds.
var WorkoutGoalTypes = []models.GoalType{
	models.GoalWorkout,
	models.GoalStreak,
	models.GoalLiftingWeight,
	models.GoalPersonalBest,
}

type WorkoutInput struct {
	Name        string             `json:"name"`
	CompletedAt time.Time          `json:"completed_at"`
	Lifts       []progression.Lift `json:"lifts"`
}

type WorkoutResult struct {
	Workout models.Workout           `json:"workout"`
	Event   *progression.EventResult `json:"event"`
}

type WeightResult struct {
	Entry models.WeightEntry       `json:"entry"`
	Event *progression.EventResult `json:"event"`
}

type ActivityService struct {
	progress *ProgressionService
}

func NewActivityService(progress *ProgressionService) *ActivityService {
	return &ActivityService{progress: progress}
}

func (in WorkoutInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return &progression.ValidationError{Field: "name", Reason: "is required"}
	}
	for _, l := range in.Lifts {
		if strings.TrimSpace(l.Name) == "" {
			return &progression.ValidationError{Field: "lifts.name", Reason: "is required"}
		}
		if l.Weight < 0 {
			return &progression.ValidationError{Field: "lifts.weight", Reason: "must not be negative"}
		}
		if l.Reps < 0 {
			return &progression.ValidationError{Field: "lifts.reps", Reason: "must not be negative"}
		}
	}
	return nil
}

// RecordWorkout stores a completed workout and applies its progression event
// in the same transaction.
func (a *ActivityService) RecordWorkout(ctx context.Context, userID uint, in WorkoutInput) (*WorkoutResult, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	s := a.progress
	completedAt := in.CompletedAt
	if completedAt.IsZero() {
		completedAt = s.now()
	}

	var (
		result = &WorkoutResult{}
		token  *string
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := lockUser(tx, userID)
		if err != nil {
			return err
		}
		token = user.PushToken

		workout := models.Workout{
			UserID:      userID,
			Name:        strings.TrimSpace(in.Name),
			CompletedAt: completedAt,
		}
		for _, l := range in.Lifts {
			reps := l.Reps
			if reps == 0 {
				reps = 1
			}
			workout.Lifts = append(workout.Lifts, models.WorkoutLift{Name: strings.TrimSpace(l.Name), Weight: l.Weight, Reps: reps})
		}
		if err := tx.Create(&workout).Error; err != nil {
			return err
		}
		result.Workout = workout

		ev := progression.Event{WorkoutName: workout.Name, Lifts: in.Lifts}
		result.Event, err = s.applyEventTx(tx, user, WorkoutGoalTypes, ev, s.now())
		return err
	})
	if err != nil {
		return nil, progression.WrapTx("record workout", err)
	}

	s.afterEvent(ctx, userID, token, result.Event)
	return result, nil
}

// LogWeight stores a body-weight entry and fires BODYWEIGHT goals.
func (a *ActivityService) LogWeight(ctx context.Context, userID uint, weight float64, loggedAt time.Time) (*WeightResult, error) {
	if weight <= 0 {
		return nil, &progression.ValidationError{Field: "weight", Reason: "must be positive"}
	}
	s := a.progress
	if loggedAt.IsZero() {
		loggedAt = s.now()
	}

	var (
		result = &WeightResult{}
		token  *string
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := lockUser(tx, userID)
		if err != nil {
			return err
		}
		token = user.PushToken

		entry := models.WeightEntry{UserID: userID, Weight: weight, LoggedAt: loggedAt}
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}
		result.Entry = entry

		result.Event, err = s.applyEventTx(tx, user, []models.GoalType{models.GoalBodyweight}, progression.Event{}, s.now())
		return err
	})
	if err != nil {
		return nil, progression.WrapTx("log weight", err)
	}

	s.afterEvent(ctx, userID, token, result.Event)
	return result, nil
}
