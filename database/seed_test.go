package database

import (
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"ironquest/models"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "seed.db") + "?_pragma=foreign_keys(1)"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, RunMigrations(conn))
	return conn
}

func TestDefaultCatalogIsValid(t *testing.T) {
	assert.Empty(t, ValidateCatalog(DefaultCatalog()))
}

func TestValidateCatalog(t *testing.T) {
	problems := ValidateCatalog([]models.Achievement{
		{Name: " ", GoalType: models.GoalWorkout, XPReward: 10},
		{Name: "Bench", GoalType: models.GoalWorkout, XPReward: 10, TargetValue: target(225)},
		{Name: "Squat", GoalType: models.GoalPersonalBest, XPReward: 10, TargetValue: target(-1)},
		{Name: "Row", GoalType: models.GoalStreak, XPReward: 10, GoalAmount: -2},
	})
	require.Len(t, problems, 4)
	assert.Contains(t, problems[0], "name is required")
	assert.Contains(t, problems[1], "only applies to lifting goals")
	assert.Contains(t, problems[2], "target_value must be positive")
	assert.Contains(t, problems[3], "goal_amount must not be negative")
}

func TestSeedCatalogUpsertsByName(t *testing.T) {
	conn := openTestDB(t)

	require.NoError(t, SeedCatalog(conn, DefaultCatalog()))
	var count int64
	require.NoError(t, conn.Model(&models.Achievement{}).Count(&count).Error)
	assert.Equal(t, int64(len(DefaultCatalog())), count)

	changed := DefaultCatalog()
	changed[0].XPReward = 75
	require.NoError(t, SeedCatalog(conn, changed))

	require.NoError(t, conn.Model(&models.Achievement{}).Count(&count).Error)
	assert.Equal(t, int64(len(DefaultCatalog())), count, "reseeding must not duplicate rows")

	var first models.Achievement
	require.NoError(t, conn.Where("name = ?", changed[0].Name).First(&first).Error)
	assert.Equal(t, 75, first.XPReward)

	var pb models.Achievement
	require.NoError(t, conn.Where("name = ?", "New Personal Best").First(&pb).Error)
	assert.Equal(t, 1.0, pb.GoalAmount)
}

func TestSeedCatalogRejectsInvalid(t *testing.T) {
	conn := openTestDB(t)
	err := SeedCatalog(conn, []models.Achievement{{Name: "Broken", GoalType: "NOPE", XPReward: 1}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown goal type")
}
