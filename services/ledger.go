package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"ironquest/models"
	"ironquest/progression"
)

// AddProgress applies delta to one ledger entry in its own transaction.
// Completed entries absorb the delta and report AlreadyCompleted.
func (s *ProgressionService) AddProgress(ctx context.Context, userID, achievementID uint, delta float64) (*progression.LedgerResult, error) {
	if err := progression.ValidateDelta(delta); err != nil {
		return nil, err
	}

	var (
		result      *progression.LedgerResult
		achieved    *models.Achievement
		token       *string
		levelBefore int
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := lockUser(tx, userID)
		if err != nil {
			return err
		}
		token = user.PushToken
		levelBefore = user.Level
		result, achieved, err = s.addProgressTx(tx, user, achievementID, delta, s.now())
		return err
	})
	if err != nil {
		return nil, progression.WrapTx("add progress", err)
	}

	s.cache.Invalidate(ctx, userID)
	if result.Completed && achieved != nil {
		s.notifyCompleted(ctx, userID, token, []models.Achievement{*achieved})
	}
	if result.User != nil && result.User.Level > levelBefore {
		s.notifyLevelUp(ctx, userID, token, result.User.Level)
	}
	return result, nil
}

// addProgressTx is the ledger step. The caller holds the user row lock and
// owns user; XP awarded here is applied to user and persisted.
func (s *ProgressionService) addProgressTx(tx *gorm.DB, user *models.User, achievementID uint, delta float64, now time.Time) (*progression.LedgerResult, *models.Achievement, error) {
	if err := progression.ValidateDelta(delta); err != nil {
		return nil, nil, err
	}

	var entry models.UserAchievement
	err := forUpdate(tx).
		Where("user_id = ? AND achievement_id = ?", user.ID, achievementID).
		First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, &progression.NotFoundError{Resource: "user achievement", ID: achievementID}
		}
		return nil, nil, err
	}

	if entry.Completed {
		return &progression.LedgerResult{Entry: entry, AlreadyCompleted: true}, nil, nil
	}

	var achievement models.Achievement
	if err := tx.First(&achievement, achievementID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, &progression.NotFoundError{Resource: "achievement", ID: achievementID}
		}
		return nil, nil, err
	}

	newProgress := progression.ClampProgress(entry.Progress + delta)
	if newProgress < 100 {
		if err := tx.Model(&models.UserAchievement{}).
			Where("id = ?", entry.ID).
			Update("progress", newProgress).Error; err != nil {
			return nil, nil, err
		}
		entry.Progress = newProgress
		return &progression.LedgerResult{Entry: entry}, nil, nil
	}

	// The completed = false guard keeps completion at most once even where
	// the row lock is unavailable.
	res := tx.Model(&models.UserAchievement{}).
		Where("id = ? AND completed = ?", entry.ID, false).
		Updates(map[string]interface{}{
			"progress":     100.0,
			"completed":    true,
			"completed_at": now,
		})
	if res.Error != nil {
		return nil, nil, res.Error
	}
	if res.RowsAffected == 0 {
		if err := tx.First(&entry, entry.ID).Error; err != nil {
			return nil, nil, err
		}
		return &progression.LedgerResult{Entry: entry, AlreadyCompleted: true}, nil, nil
	}

	entry.Progress = 100
	entry.Completed = true
	entry.CompletedAt = &now

	if err := awardXP(tx, user, achievement.XPReward); err != nil {
		return nil, nil, err
	}
	snapshot := user.Snapshot()
	entry.Achievement = achievement

	return &progression.LedgerResult{
		Entry:     entry,
		Completed: true,
		XPAwarded: achievement.XPReward,
		User:      &snapshot,
	}, &achievement, nil
}
