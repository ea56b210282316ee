// Package offline is the on-device progression store. It runs its own
// ledger, dispatcher and coordinator against a local SQLite file while the
// device has no route to the server, and journals every change so that a
// sync component can reconcile it later.
package offline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"ironquest/models"
	"ironquest/progression"
)

// Session is an open offline store. It is safe for concurrent use; writers
// are serialised by the single SQLite connection.
type Session struct {
	db   *gorm.DB
	path string
	now  func() time.Time
	log  *zap.Logger
}

var _ progression.Engine = (*Session)(nil)

type Option func(*Session)

func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Session) { s.log = l }
}

// Open creates or opens the store at path and migrates it.
func Open(path string, opts ...Option) (*Session, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create offline store directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("%s?_pragma=journal_mode(DELETE)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open offline store: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetMaxOpenConns(1)

	s := &Session{db: db, path: path, now: time.Now, log: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.migrate(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("migrate offline store: %w", err)
	}
	return s, nil
}

func (s *Session) migrate() error {
	return s.db.AutoMigrate(
		&models.User{},
		&models.Achievement{},
		&models.UserAchievement{},
		&models.PersonalBest{},
		&JournalEntry{},
	)
}

// Close releases the underlying file.
func (s *Session) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Session) Path() string { return s.path }

// Snapshot is the server state a device caches before going offline.
type Snapshot struct {
	User         models.User              `json:"user"`
	Catalog      []models.Achievement     `json:"catalog"`
	Entries      []models.UserAchievement `json:"entries"`
	PersonalBest []models.PersonalBest    `json:"personal_bests"`
}

// Seed replaces everything stored for snap.User with the snapshot.
// Unsynced journal entries are kept.
func (s *Session) Seed(ctx context.Context, snap Snapshot) error {
	if snap.User.ID == 0 {
		return &progression.ValidationError{Field: "user.id", Reason: "is required"}
	}
	userID := snap.User.ID

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&models.UserAchievement{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", userID).Delete(&models.PersonalBest{}).Error; err != nil {
			return err
		}

		user := snap.User
		user.Achievements = nil
		if user.Level < 1 {
			user.Level = 1
		}
		if err := tx.Save(&user).Error; err != nil {
			return err
		}

		for i := range snap.Catalog {
			a := snap.Catalog[i]
			if err := tx.Save(&a).Error; err != nil {
				return fmt.Errorf("catalog %q: %w", a.Name, err)
			}
		}

		for i := range snap.Entries {
			e := snap.Entries[i]
			e.ID = 0
			e.UserID = userID
			e.User = models.User{}
			e.Achievement = models.Achievement{}
			if err := tx.Omit("User", "Achievement").Create(&e).Error; err != nil {
				return fmt.Errorf("entry for achievement %d: %w", e.AchievementID, err)
			}
		}

		for i := range snap.PersonalBest {
			b := snap.PersonalBest[i]
			b.ID = 0
			b.UserID = userID
			b.LiftName = models.NormalizeLiftName(b.LiftName)
			if err := tx.Create(&b).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return progression.WrapTx("seed offline store", err)
	}
	s.log.Info("offline store seeded",
		zap.Uint("user_id", userID),
		zap.Int("catalog", len(snap.Catalog)),
		zap.Int("entries", len(snap.Entries)))
	return nil
}

// User returns the locally held progression state.
func (s *Session) User(ctx context.Context, userID uint) (*models.UserSnapshot, error) {
	var u models.User
	if err := s.db.WithContext(ctx).First(&u, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &progression.NotFoundError{Resource: "user", ID: userID}
		}
		return nil, err
	}
	snap := u.Snapshot()
	return &snap, nil
}

// Entry returns one local ledger entry.
func (s *Session) Entry(ctx context.Context, userID, achievementID uint) (*models.UserAchievement, error) {
	var e models.UserAchievement
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND achievement_id = ?", userID, achievementID).
		First(&e).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &progression.NotFoundError{Resource: "user achievement", ID: achievementID}
		}
		return nil, err
	}
	return &e, nil
}
