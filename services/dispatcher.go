package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"ironquest/models"
	"ironquest/progression"
)

// ComputeDeltas proposes progress for the user's incomplete entries whose goal
// type was requested. It never writes.
func (s *ProgressionService) ComputeDeltas(ctx context.Context, userID uint, goalTypes []models.GoalType, ev progression.Event) ([]progression.Delta, error) {
	db := s.db.WithContext(ctx)

	var user models.User
	if err := db.Select("id", "level").First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &progression.NotFoundError{Resource: "user", ID: userID}
		}
		return nil, err
	}
	if ev.Level == 0 {
		ev.Level = user.Level
	}

	deltas, _, err := computeDeltasTx(db, userID, goalTypes, ev)
	return deltas, err
}

func computeDeltasTx(tx *gorm.DB, userID uint, goalTypes []models.GoalType, ev progression.Event) ([]progression.Delta, map[uint]models.Achievement, error) {
	types := progression.NormalizeGoalTypes(goalTypes)
	if len(types) == 0 {
		return nil, nil, nil
	}

	var achievements []models.Achievement
	if err := tx.Where("goal_type IN ?", types).Find(&achievements).Error; err != nil {
		return nil, nil, err
	}
	if len(achievements) == 0 {
		return nil, nil, nil
	}
	byID := make(map[uint]models.Achievement, len(achievements))
	ids := make([]uint, 0, len(achievements))
	for _, a := range achievements {
		byID[a.ID] = a
		ids = append(ids, a.ID)
	}

	var entries []models.UserAchievement
	if err := tx.Where("user_id = ? AND completed = ? AND achievement_id IN ?", userID, false, ids).
		Order("id").
		Find(&entries).Error; err != nil {
		return nil, nil, err
	}

	var bests map[string]float64
	if progression.ContainsGoalType(types, models.GoalPersonalBest) {
		var err error
		if bests, err = loadPersonalBests(tx, userID); err != nil {
			return nil, nil, err
		}
	}

	deltas := make([]progression.Delta, 0, len(entries))
	for _, entry := range entries {
		a := byID[entry.AchievementID]
		d := progression.ComputeDelta(a, entry, ev, bests)
		if d == 0 {
			continue
		}
		deltas = append(deltas, progression.Delta{AchievementID: a.ID, GoalType: a.GoalType, Delta: d})
	}
	return deltas, byID, nil
}

func loadPersonalBests(tx *gorm.DB, userID uint) (map[string]float64, error) {
	var rows []models.PersonalBest
	if err := tx.Where("user_id = ?", userID).Find(&rows).Error; err != nil {
		return nil, err
	}
	bests := make(map[string]float64, len(rows))
	for _, r := range rows {
		bests[r.LiftName] = r.Weight
	}
	return bests, nil
}
