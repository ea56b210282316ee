package services

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"ironquest/database"
	"ironquest/models"
)

var testNow = time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

// testDB opens a migrated SQLite database in a temp dir. A single connection
// serialises transactions the way row locks do on PostgreSQL.
func testDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "test.db") + "?_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.RunMigrations(db))
	return db
}

func newTestService(t *testing.T, db *gorm.DB, opts ...Option) *ProgressionService {
	t.Helper()
	opts = append([]Option{WithClock(func() time.Time { return testNow })}, opts...)
	return NewProgressionService(db, opts...)
}

func createUser(t *testing.T, db *gorm.DB, name string) models.User {
	t.Helper()
	u := models.User{Username: name, Password: "x", Level: 1}
	require.NoError(t, db.Create(&u).Error)
	return u
}

func createAchievement(t *testing.T, db *gorm.DB, a models.Achievement) models.Achievement {
	t.Helper()
	if a.GoalAmount == 0 {
		a.GoalAmount = 1
	}
	if a.XPReward == 0 {
		a.XPReward = 10
	}
	require.NoError(t, db.Create(&a).Error)
	return a
}

func optIn(t *testing.T, db *gorm.DB, userID, achievementID uint) {
	t.Helper()
	require.NoError(t, db.Create(&models.UserAchievement{UserID: userID, AchievementID: achievementID}).Error)
}

func loadEntry(t *testing.T, db *gorm.DB, userID, achievementID uint) models.UserAchievement {
	t.Helper()
	var e models.UserAchievement
	require.NoError(t, db.Where("user_id = ? AND achievement_id = ?", userID, achievementID).First(&e).Error)
	return e
}

func loadUser(t *testing.T, db *gorm.DB, id uint) models.User {
	t.Helper()
	var u models.User
	require.NoError(t, db.First(&u, id).Error)
	return u
}

type recordingNotifier struct {
	mu  sync.Mutex
	got []Notification
}

func (r *recordingNotifier) Notify(_ context.Context, n Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, n)
	return nil
}

func (r *recordingNotifier) kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.got))
	for _, n := range r.got {
		out = append(out, n.Kind)
	}
	return out
}

var errInjected = errors.New("injected update failure")

// failNthUpdate makes the nth UPDATE against table fail inside whatever
// transaction issues it.
func failNthUpdate(t *testing.T, db *gorm.DB, table string, n int) {
	t.Helper()
	var (
		mu    sync.Mutex
		count int
	)
	err := db.Callback().Update().Before("gorm:update").Register("test:fail_nth_update", func(tx *gorm.DB) {
		if tx.Statement.Table != table {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		count++
		if count == n {
			_ = tx.AddError(errInjected)
		}
	})
	require.NoError(t, err)
}
