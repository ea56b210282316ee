// database/migrate.go - Database Migration Runner
package database

import (
	"log"

	"gorm.io/gorm"

	"ironquest/models"
)

// RunMigrations creates or updates every table the server uses.
func RunMigrations(conn *gorm.DB) error {
	log.Println("🔄 Running database migrations...")

	if err := conn.AutoMigrate(
		&models.User{},
		&models.Achievement{},
		&models.UserAchievement{},
		&models.Quest{},
		&models.Workout{},
		&models.WorkoutLift{},
		&models.WeightEntry{},
		&models.PersonalBest{},
	); err != nil {
		return err
	}

	log.Println("✅ Core migrations completed")

	if err := createCoreIndexes(conn); err != nil {
		return err
	}

	log.Println("✅ All migrations completed successfully")
	return nil
}

// createCoreIndexes creates the secondary indexes AutoMigrate does not express.
func createCoreIndexes(conn *gorm.DB) error {
	statements := []string{
		"CREATE INDEX IF NOT EXISTS idx_users_level ON users(level DESC)",
		"CREATE INDEX IF NOT EXISTS idx_users_weekly_weight ON users(weekly_weight_lifted DESC)",
		"CREATE INDEX IF NOT EXISTS idx_user_achievements_user_completed ON user_achievements(user_id, completed)",
		"CREATE INDEX IF NOT EXISTS idx_workouts_user_completed ON workouts(user_id, completed_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_weight_entries_user_logged ON weight_entries(user_id, logged_at DESC)",
	}
	for _, stmt := range statements {
		if err := conn.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}
