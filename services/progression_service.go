// services/progression_service.go - Server-side progression engine (PostgreSQL)
package services

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ironquest/database"
	"ironquest/models"
	"ironquest/progression"
)

// maxLevelPasses bounds LEVEL re-dispatch after a level-up inside one event.
const maxLevelPasses = 10

// ProgressionService is the authoritative implementation of progression.Engine.
// Every mutating call runs in a single gorm transaction.
type ProgressionService struct {
	db       *gorm.DB
	notifier Notifier
	cache    *ProgressCache
	log      *zap.Logger
	now      func() time.Time
}

var _ progression.Engine = (*ProgressionService)(nil)

type Option func(*ProgressionService)

func WithNotifier(n Notifier) Option {
	return func(s *ProgressionService) { s.notifier = n }
}

func WithCache(c *ProgressCache) Option {
	return func(s *ProgressionService) { s.cache = c }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *ProgressionService) { s.log = l }
}

func WithClock(now func() time.Time) Option {
	return func(s *ProgressionService) { s.now = now }
}

func NewProgressionService(db *gorm.DB, opts ...Option) *ProgressionService {
	s := &ProgressionService{
		db:  db,
		log: zap.NewNop(),
		now: func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// forUpdate adds a row lock on PostgreSQL. SQLite serialises writers on its own.
func forUpdate(tx *gorm.DB) *gorm.DB {
	if database.IsPostgres(tx) {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

// lockUser loads the user row and holds its lock for the rest of the transaction.
// Locking the user first keeps lock order fixed: user, then ledger entries by id.
func lockUser(tx *gorm.DB, userID uint) (*models.User, error) {
	var user models.User
	if err := forUpdate(tx).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &progression.NotFoundError{Resource: "user", ID: userID}
		}
		return nil, err
	}
	return &user, nil
}

func saveUserProgress(tx *gorm.DB, user *models.User) error {
	return tx.Model(&models.User{}).Where("id = ?", user.ID).Updates(map[string]interface{}{
		"xp":                   user.XP,
		"level":                user.Level,
		"level_progress":       user.LevelProgress,
		"weekly_weight_lifted": user.WeeklyWeightLifted,
		"total_weight_lifted":  user.TotalWeightLifted,
	}).Error
}

// awardXP runs the leveling calculator and persists the result.
func awardXP(tx *gorm.DB, user *models.User, xp int) error {
	newXP, newLevel, err := progression.ApplyXP(user.XP, user.Level, xp)
	if err != nil {
		return err
	}
	user.XP = newXP
	user.Level = newLevel
	user.LevelProgress = progression.LevelProgress(newXP, newLevel)
	return saveUserProgress(tx, user)
}

// Snapshot returns the current progression view of a user.
func (s *ProgressionService) Snapshot(ctx context.Context, userID uint) (*ProgressView, error) {
	if view, ok := s.cache.Get(ctx, userID); ok {
		return view, nil
	}

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &progression.NotFoundError{Resource: "user", ID: userID}
		}
		return nil, err
	}

	view := NewProgressView(user)
	s.cache.Set(ctx, view)
	return &view, nil
}

// AchievementStatus pairs a catalog entry with the user's ledger state.
type AchievementStatus struct {
	models.Achievement
	Saved       bool       `json:"saved"`
	Progress    float64    `json:"progress"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// ListAchievements returns the whole catalog annotated with the user's progress.
func (s *ProgressionService) ListAchievements(ctx context.Context, userID uint) ([]AchievementStatus, error) {
	db := s.db.WithContext(ctx)

	var catalog []models.Achievement
	if err := db.Order("id").Find(&catalog).Error; err != nil {
		return nil, err
	}

	var entries []models.UserAchievement
	if err := db.Where("user_id = ?", userID).Find(&entries).Error; err != nil {
		return nil, err
	}
	byAchievement := make(map[uint]models.UserAchievement, len(entries))
	for _, e := range entries {
		byAchievement[e.AchievementID] = e
	}

	out := make([]AchievementStatus, 0, len(catalog))
	for _, a := range catalog {
		status := AchievementStatus{Achievement: a}
		if e, ok := byAchievement[a.ID]; ok {
			status.Saved = true
			status.Progress = e.Progress
			status.Completed = e.Completed
			status.CompletedAt = e.CompletedAt
		}
		out = append(out, status)
	}
	return out, nil
}

// SaveToUser opts the user into an achievement. Saving twice is a no-op.
func (s *ProgressionService) SaveToUser(ctx context.Context, userID, achievementID uint) (*models.UserAchievement, error) {
	var entry models.UserAchievement
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Select("id").First(&models.User{}, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &progression.NotFoundError{Resource: "user", ID: userID}
			}
			return err
		}
		if err := tx.Select("id").First(&models.Achievement{}, achievementID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &progression.NotFoundError{Resource: "achievement", ID: achievementID}
			}
			return err
		}

		entry = models.UserAchievement{UserID: userID, AchievementID: achievementID}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&entry).Error; err != nil {
			return err
		}
		return tx.Where("user_id = ? AND achievement_id = ?", userID, achievementID).First(&entry).Error
	})
	if err != nil {
		return nil, progression.WrapTx("save achievement", err)
	}
	return &entry, nil
}

// RemoveFromUser deletes a ledger entry.
func (s *ProgressionService) RemoveFromUser(ctx context.Context, userID, achievementID uint) error {
	res := s.db.WithContext(ctx).
		Where("user_id = ? AND achievement_id = ?", userID, achievementID).
		Delete(&models.UserAchievement{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return &progression.NotFoundError{Resource: "user achievement", ID: achievementID}
	}
	return nil
}

// AssignDefaults creates ledger entries for every default catalog achievement.
func (s *ProgressionService) AssignDefaults(ctx context.Context, userID uint) error {
	return assignDefaults(s.db.WithContext(ctx), userID)
}

// AssignDefaultsTx is AssignDefaults inside the caller's transaction, used at
// registration so the account and its ledger are created together.
func (s *ProgressionService) AssignDefaultsTx(tx *gorm.DB, userID uint) error {
	return assignDefaults(tx, userID)
}

func assignDefaults(tx *gorm.DB, userID uint) error {
	var ids []uint
	if err := tx.Model(&models.Achievement{}).Where("is_default = ?", true).Pluck("id", &ids).Error; err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	entries := make([]models.UserAchievement, 0, len(ids))
	for _, id := range ids {
		entries = append(entries, models.UserAchievement{UserID: userID, AchievementID: id})
	}
	return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&entries).Error
}
