package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"ironquest/models"
	"ironquest/progression"
)

// ApplyEvent dispatches an event and applies every resulting delta, level-up
// and lifting total in one transaction. Notifications go out after commit.
func (s *ProgressionService) ApplyEvent(ctx context.Context, userID uint, goalTypes []models.GoalType, ev progression.Event) (*progression.EventResult, error) {
	var (
		result *progression.EventResult
		token  *string
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := lockUser(tx, userID)
		if err != nil {
			return err
		}
		token = user.PushToken
		result, err = s.applyEventTx(tx, user, goalTypes, ev, s.now())
		return err
	})
	if err != nil {
		return nil, progression.WrapTx("apply event", err)
	}

	s.afterEvent(ctx, userID, token, result)
	return result, nil
}

// applyEventTx is the coordinator body. user must be locked by the caller.
func (s *ProgressionService) applyEventTx(tx *gorm.DB, user *models.User, goalTypes []models.GoalType, ev progression.Event, now time.Time) (*progression.EventResult, error) {
	result := &progression.EventResult{
		LevelBefore:    user.Level,
		NewlyCompleted: []models.Achievement{},
		Deltas:         []progression.Delta{},
	}
	if ev.Level == 0 {
		ev.Level = user.Level
	}

	if err := s.applyDeltas(tx, user, goalTypes, ev, now, result); err != nil {
		return nil, err
	}

	if volume := ev.Volume(); volume > 0 {
		user.WeeklyWeightLifted += volume
		user.TotalWeightLifted += volume
		if err := saveUserProgress(tx, user); err != nil {
			return nil, err
		}
	}
	if err := recordPersonalBests(tx, user.ID, ev, now); err != nil {
		return nil, err
	}

	// A level-up is itself a LEVEL event; evaluate it before commit so the
	// caller sees the final state.
	lastLevel := ev.Level
	for pass := 0; user.Level > lastLevel && pass < maxLevelPasses; pass++ {
		lastLevel = user.Level
		levelEvent := progression.Event{Level: user.Level}
		if err := s.applyDeltas(tx, user, []models.GoalType{models.GoalLevel}, levelEvent, now, result); err != nil {
			return nil, err
		}
	}

	result.User = user.Snapshot()
	result.LeveledUp = user.Level > result.LevelBefore
	return result, nil
}

func (s *ProgressionService) applyDeltas(tx *gorm.DB, user *models.User, goalTypes []models.GoalType, ev progression.Event, now time.Time, result *progression.EventResult) error {
	deltas, catalog, err := computeDeltasTx(tx, user.ID, goalTypes, ev)
	if err != nil {
		return err
	}
	for _, d := range deltas {
		lr, _, err := s.addProgressTx(tx, user, d.AchievementID, d.Delta, now)
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

func recordPersonalBests(tx *gorm.DB, userID uint, ev progression.Event, now time.Time) error {
	for lift, weight := range progression.HeaviestLifts(ev) {
		var best models.PersonalBest
		err := tx.Where("user_id = ? AND lift_name = ?", userID, lift).First(&best).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			best = models.PersonalBest{UserID: userID, LiftName: lift, Weight: weight, UpdatedAt: now}
			if err := tx.Create(&best).Error; err != nil {
				return err
			}
		case err != nil:
			return err
		case weight > best.Weight:
			if err := tx.Model(&best).Updates(map[string]interface{}{"weight": weight, "updated_at": now}).Error; err != nil {
				return err
			}
		}
	}
	return nil
}

// afterEvent runs post-commit side effects. Failures are logged only.
func (s *ProgressionService) afterEvent(ctx context.Context, userID uint, token *string, result *progression.EventResult) {
	s.cache.Invalidate(ctx, userID)
	if len(result.NewlyCompleted) > 0 {
		s.notifyCompleted(ctx, userID, token, result.NewlyCompleted)
	}
	if result.LeveledUp {
		s.notifyLevelUp(ctx, userID, token, result.User.Level)
	}
}

func (s *ProgressionService) notifyLevelUp(ctx context.Context, userID uint, token *string, level int) {
	s.notify(ctx, Notification{
		UserID: userID,
		Token:  deref(token),
		Kind:   KindLevelUp,
		Title:  "Level up!",
		Body:   fmt.Sprintf("You reached level %d", level),
		Data:   map[string]interface{}{"level": level},
	})
}

func (s *ProgressionService) notifyCompleted(ctx context.Context, userID uint, token *string, achievements []models.Achievement) {
	for _, a := range achievements {
		s.notify(ctx, Notification{
			UserID: userID,
			Token:  deref(token),
			Kind:   KindAchievement,
			Title:  "Achievement unlocked",
			Body:   fmt.Sprintf("%s (+%d XP)", a.Name, a.XPReward),
			Data:   map[string]interface{}{"achievement_id": a.ID, "xp_reward": a.XPReward},
		})
	}
}

func (s *ProgressionService) notify(ctx context.Context, n Notification) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, n); err != nil {
		s.log.Warn("notification failed",
			zap.Uint("user_id", n.UserID),
			zap.String("kind", n.Kind),
			zap.Error(err))
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
