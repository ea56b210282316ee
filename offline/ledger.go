package offline

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"ironquest/models"
	"ironquest/progression"
)

// AddProgress applies delta to one local ledger entry and journals it.
func (s *Session) AddProgress(ctx context.Context, userID, achievementID uint, delta float64) (*progression.LedgerResult, error) {
	if err := progression.ValidateDelta(delta); err != nil {
		return nil, err
	}

	var result *progression.LedgerResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := loadUser(tx, userID)
		if err != nil {
			return err
		}
		now := s.now()
		result, err = s.bump(tx, user, achievementID, delta, now)
		if err != nil {
			return err
		}
		if result.AlreadyCompleted {
			return nil
		}

		entry := JournalEntry{
			UserID:        userID,
			Kind:          JournalAddProgress,
			AchievementID: achievementID,
			Delta:         delta,
			XPAwarded:     result.XPAwarded,
			After:         user.Snapshot(),
			CreatedAt:     now,
		}
		if result.Completed {
			entry.Completed = []uint{achievementID}
		}
		return s.journal(tx, entry)
	})
	if err != nil {
		return nil, progression.WrapTx("offline add progress", err)
	}
	return result, nil
}

func loadUser(tx *gorm.DB, userID uint) (*models.User, error) {
	var u models.User
	if err := tx.First(&u, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &progression.NotFoundError{Resource: "user", ID: userID}
		}
		return nil, err
	}
	return &u, nil
}

// bump is the local ledger step. XP earned is folded into user and written.
func (s *Session) bump(tx *gorm.DB, user *models.User, achievementID uint, delta float64, now time.Time) (*progression.LedgerResult, error) {
	var entry models.UserAchievement
	err := tx.Preload("Achievement").
		Where("user_id = ? AND achievement_id = ?", user.ID, achievementID).
		First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &progression.NotFoundError{Resource: "user achievement", ID: achievementID}
		}
		return nil, err
	}
	if entry.Completed {
		return &progression.LedgerResult{Entry: entry, AlreadyCompleted: true}, nil
	}

	progress := progression.ClampProgress(entry.Progress + delta)
	if progress < 100 {
		if err := tx.Model(&models.UserAchievement{}).Where("id = ?", entry.ID).Update("progress", progress).Error; err != nil {
			return nil, err
		}
		entry.Progress = progress
		return &progression.LedgerResult{Entry: entry}, nil
	}

	res := tx.Model(&models.UserAchievement{}).
		Where("id = ? AND completed = ?", entry.ID, false).
		Updates(map[string]interface{}{"progress": 100.0, "completed": true, "completed_at": now})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return &progression.LedgerResult{Entry: entry, AlreadyCompleted: true}, nil
	}
	entry.Progress, entry.Completed, entry.CompletedAt = 100, true, &now

	reward := entry.Achievement.XPReward
	xp, level, err := progression.ApplyXP(user.XP, user.Level, reward)
	if err != nil {
		return nil, err
	}
	user.XP, user.Level = xp, level
	user.LevelProgress = progression.LevelProgress(xp, level)
	if err := writeUser(tx, user); err != nil {
		return nil, err
	}

	snap := user.Snapshot()
	return &progression.LedgerResult{Entry: entry, Completed: true, XPAwarded: reward, User: &snap}, nil
}

func writeUser(tx *gorm.DB, user *models.User) error {
	return tx.Model(&models.User{}).Where("id = ?", user.ID).Updates(map[string]interface{}{
		"xp":                   user.XP,
		"level":                user.Level,
		"level_progress":       user.LevelProgress,
		"weekly_weight_lifted": user.WeeklyWeightLifted,
		"total_weight_lifted":  user.TotalWeightLifted,
	}).Error
}
