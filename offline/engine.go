package offline

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ironquest/models"
	"ironquest/progression"
)

// Bound on LEVEL re-dispatch after a level-up.
const maxLevelPasses = 10

// ComputeDeltas proposes progress for local incomplete entries. Read-only.
func (s *Session) ComputeDeltas(ctx context.Context, userID uint, goalTypes []models.GoalType, ev progression.Event) ([]progression.Delta, error) {
	db := s.db.WithContext(ctx)
	user, err := loadUser(db, userID)
	if err != nil {
		return nil, err
	}
	if ev.Level == 0 {
		ev.Level = user.Level
	}
	deltas, _, err := dispatch(db, userID, goalTypes, ev)
	return deltas, err
}

// dispatch loads the open entries with their catalog rows and keeps those of
// the requested goal types.
func dispatch(tx *gorm.DB, userID uint, goalTypes []models.GoalType, ev progression.Event) ([]progression.Delta, map[uint]models.Achievement, error) {
	types := progression.NormalizeGoalTypes(goalTypes)
	if len(types) == 0 {
		return nil, nil, nil
	}

	var open []models.UserAchievement
	if err := tx.Preload("Achievement").
		Where("user_id = ? AND completed = ?", userID, false).
		Order("id").
		Find(&open).Error; err != nil {
		return nil, nil, err
	}

	var bests map[string]float64
	if progression.ContainsGoalType(types, models.GoalPersonalBest) {
		var rows []models.PersonalBest
		if err := tx.Where("user_id = ?", userID).Find(&rows).Error; err != nil {
			return nil, nil, err
		}
		bests = make(map[string]float64, len(rows))
		for _, r := range rows {
			bests[r.LiftName] = r.Weight
		}
	}

	var deltas []progression.Delta
	catalog := map[uint]models.Achievement{}
	for _, e := range open {
		if !progression.ContainsGoalType(types, e.Achievement.GoalType) {
			continue
		}
		d := progression.ComputeDelta(e.Achievement, e, ev, bests)
		if d == 0 {
			continue
		}
		catalog[e.AchievementID] = e.Achievement
		deltas = append(deltas, progression.Delta{AchievementID: e.AchievementID, GoalType: e.Achievement.GoalType, Delta: d})
	}
	return deltas, catalog, nil
}

// ApplyEvent runs the local coordinator: dispatch, ledger updates, lifting
// totals, personal bests and LEVEL re-dispatch, journaled in one transaction.
func (s *Session) ApplyEvent(ctx context.Context, userID uint, goalTypes []models.GoalType, ev progression.Event) (*progression.EventResult, error) {
	var result *progression.EventResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := loadUser(tx, userID)
		if err != nil {
			return err
		}
		now := s.now()
		if ev.Level == 0 {
			ev.Level = user.Level
		}
		result = &progression.EventResult{
			LevelBefore:    user.Level,
			NewlyCompleted: []models.Achievement{},
			Deltas:         []progression.Delta{},
		}

		xpBefore := totalXP(user)
		if err := s.applyAll(tx, user, goalTypes, ev, now, result); err != nil {
			return err
		}

		if volume := ev.Volume(); volume > 0 {
			user.WeeklyWeightLifted += volume
			user.TotalWeightLifted += volume
			if err := writeUser(tx, user); err != nil {
				return err
			}
		}
		if err := upsertBests(tx, userID, ev, now); err != nil {
			return err
		}

		seen := ev.Level
		for pass := 0; user.Level > seen && pass < maxLevelPasses; pass++ {
			seen = user.Level
			if err := s.applyAll(tx, user, []models.GoalType{models.GoalLevel}, progression.Event{Level: user.Level}, now, result); err != nil {
				return err
			}
		}

		result.User = user.Snapshot()
		result.LeveledUp = user.Level > result.LevelBefore

		completed := make([]uint, 0, len(result.NewlyCompleted))
		for _, a := range result.NewlyCompleted {
			completed = append(completed, a.ID)
		}
		return s.journal(tx, JournalEntry{
			UserID:    userID,
			Kind:      JournalApplyEvent,
			GoalTypes: progression.NormalizeGoalTypes(goalTypes),
			Context:   ev,
			Completed: completed,
			XPAwarded: totalXP(user) - xpBefore,
			After:     result.User,
			CreatedAt: now,
		})
	})
	if err != nil {
		return nil, progression.WrapTx("offline apply event", err)
	}
	return result, nil
}

func (s *Session) applyAll(tx *gorm.DB, user *models.User, goalTypes []models.GoalType, ev progression.Event, now time.Time, result *progression.EventResult) error {
	deltas, catalog, err := dispatch(tx, user.ID, goalTypes, ev)
	if err != nil {
		return err
	}
	for _, d := range deltas {
		lr, err := s.bump(tx, user, d.AchievementID, d.Delta, now)
		if err != nil {
			return fmt.Errorf("apply delta to achievement %d: %w", d.AchievementID, err)
		}
		result.Deltas = append(result.Deltas, d)
		if lr.Completed {
			result.NewlyCompleted = append(result.NewlyCompleted, catalog[d.AchievementID])
		}
	}
	return nil
}

// upsertBests keeps the maximum weight per lift using SQLite's two-argument MAX.
func upsertBests(tx *gorm.DB, userID uint, ev progression.Event, now time.Time) error {
	heaviest := progression.HeaviestLifts(ev)
	if len(heaviest) == 0 {
		return nil
	}
	rows := make([]models.PersonalBest, 0, len(heaviest))
	for lift, w := range heaviest {
		rows = append(rows, models.PersonalBest{UserID: userID, LiftName: lift, Weight: w, UpdatedAt: now})
	}
	return tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "lift_name"}},
		DoUpdates: clause.Set{
			{Column: clause.Column{Name: "updated_at"}, Value: gorm.Expr("CASE WHEN excluded.weight > weight THEN excluded.updated_at ELSE updated_at END")},
			{Column: clause.Column{Name: "weight"}, Value: gorm.Expr("MAX(weight, excluded.weight)")},
		},
	}).Create(&rows).Error
}

// totalXP folds level and XP into a single comparable number.
func totalXP(u *models.User) int {
	total := u.XP
	for l := 1; l < u.Level; l++ {
		total += progression.RequiredXP(l)
	}
	return total
}
