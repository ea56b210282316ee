// services/weekly_reset.go - Weekly achievement and counter reset
package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"ironquest/database"
	"ironquest/models"
	"ironquest/progression"
)

const defaultResetChunk = 1000

// ResetResult counts the rows a reset actually changed.
type ResetResult struct {
	WeeklyAchievements int   `json:"weekly_achievements"`
	AchievementsReset  int64 `json:"achievements_reset"`
	UsersReset         int64 `json:"users_reset"`
	// ResetUserIDs lists users whose ledger or weekly counter changed.
	ResetUserIDs []uint `json:"-"`
}

// WeeklyResetJob zeroes weekly achievements and weekly lifting totals.
// Runs must be serialised by the caller; see WeeklyResetScheduler.
type WeeklyResetJob struct {
	db        *gorm.DB
	chunkSize int
	timeout   time.Duration
	log       *zap.Logger
}

func NewWeeklyResetJob(db *gorm.DB, chunkSize int, timeout time.Duration, log *zap.Logger) *WeeklyResetJob {
	if chunkSize <= 0 {
		chunkSize = defaultResetChunk
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &WeeklyResetJob{db: db, chunkSize: chunkSize, timeout: timeout, log: log}
}

// Run performs the whole reset in one transaction, touching rows in id-ordered
// chunks so each statement stays short. Rows already at zero are skipped, so a
// second run in the same window changes nothing.
func (j *WeeklyResetJob) Run(ctx context.Context) (*ResetResult, error) {
	if j.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.timeout)
		defer cancel()
	}

	result := &ResetResult{}
	touched := map[uint]bool{}

	err := j.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if database.IsPostgres(tx) && j.timeout > 0 {
			stmt := fmt.Sprintf("SET LOCAL statement_timeout = %d", j.timeout.Milliseconds())
			if err := tx.Exec(stmt).Error; err != nil {
				return err
			}
		}

		var weeklyIDs []uint
		if err := tx.Model(&models.Achievement{}).Where("weekly_reset = ?", true).Pluck("id", &weeklyIDs).Error; err != nil {
			return err
		}
		result.WeeklyAchievements = len(weeklyIDs)

		if len(weeklyIDs) > 0 {
			n, err := j.resetLedger(tx, weeklyIDs, touched)
			if err != nil {
				return fmt.Errorf("reset weekly achievements: %w", err)
			}
			result.AchievementsReset = n
		}

		n, err := j.resetWeeklyWeight(tx, touched)
		if err != nil {
			return fmt.Errorf("reset weekly weight: %w", err)
		}
		result.UsersReset = n
		return nil
	})
	if err != nil {
		return nil, progression.WrapTx("weekly reset", err)
	}

	for id := range touched {
		result.ResetUserIDs = append(result.ResetUserIDs, id)
	}
	j.log.Info("weekly reset finished",
		zap.Int("weekly_achievements", result.WeeklyAchievements),
		zap.Int64("achievements_reset", result.AchievementsReset),
		zap.Int64("users_reset", result.UsersReset))
	return result, nil
}

func (j *WeeklyResetJob) resetLedger(tx *gorm.DB, weeklyIDs []uint, touched map[uint]bool) (int64, error) {
	var total int64
	var lastID uint
	for {
		var rows []models.UserAchievement
		err := tx.Select("id", "user_id").
			Where("achievement_id IN ? AND id > ?", weeklyIDs, lastID).
			Where("(progress <> ? OR completed = ?)", 0, true).
			Order("id").
			Limit(j.chunkSize).
			Find(&rows).Error
		if err != nil {
			return total, err
		}
		if len(rows) == 0 {
			return total, nil
		}

		ids := make([]uint, 0, len(rows))
		for _, r := range rows {
			ids = append(ids, r.ID)
			touched[r.UserID] = true
		}
		res := tx.Model(&models.UserAchievement{}).Where("id IN ?", ids).Updates(map[string]interface{}{
			"progress":     0.0,
			"completed":    false,
			"completed_at": nil,
		})
		if res.Error != nil {
			return total, res.Error
		}
		total += res.RowsAffected
		lastID = ids[len(ids)-1]
	}
}

func (j *WeeklyResetJob) resetWeeklyWeight(tx *gorm.DB, touched map[uint]bool) (int64, error) {
	var total int64
	var lastID uint
	for {
		var ids []uint
		err := tx.Model(&models.User{}).
			Where("id > ? AND weekly_weight_lifted <> ?", lastID, 0).
			Order("id").
			Limit(j.chunkSize).
			Pluck("id", &ids).Error
		if err != nil {
			return total, err
		}
		if len(ids) == 0 {
			return total, nil
		}

		res := tx.Model(&models.User{}).Where("id IN ?", ids).Update("weekly_weight_lifted", 0)
		if res.Error != nil {
			return total, res.Error
		}
		for _, id := range ids {
			touched[id] = true
		}
		total += res.RowsAffected
		lastID = ids[len(ids)-1]
	}
}
