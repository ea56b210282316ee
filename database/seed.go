// database/seed.go - Achievement catalog seeding
package database

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ironquest/models"
)

func target(v float64) *float64 { return &v }

// DefaultCatalog is the built-in achievement catalog.
func DefaultCatalog() []models.Achievement {
	return []models.Achievement{
		// Workouts
		{Name: "First Sweat", Description: "Complete your first workout", Icon: "🏁", GoalType: models.GoalWorkout, GoalAmount: 1, XPReward: 50, IsDefault: true},
		{Name: "Gym Regular", Description: "Complete 10 workouts", Icon: "🏋️", GoalType: models.GoalWorkout, GoalAmount: 10, XPReward: 150, IsDefault: true},
		{Name: "Iron Addict", Description: "Complete 100 workouts", Icon: "⚙️", GoalType: models.GoalWorkout, GoalAmount: 100, XPReward: 1000},

		// Weekly challenges
		{Name: "Five A Week", Description: "Work out 5 times this week", Icon: "🔥", GoalType: models.GoalStreak, GoalAmount: 5, XPReward: 200, WeeklyReset: true, IsDefault: true},
		{Name: "Ten Ton Week", Description: "Lift 20,000 lbs this week", Icon: "🪨", GoalType: models.GoalLiftingWeight, GoalAmount: 20000, XPReward: 250, WeeklyReset: true},

		// Body weight
		{Name: "On The Scale", Description: "Log your body weight", Icon: "⚖️", GoalType: models.GoalBodyweight, GoalAmount: 1, XPReward: 25, IsDefault: true},
		{Name: "Weigh-In Habit", Description: "Log your body weight 30 times", Icon: "📈", GoalType: models.GoalBodyweight, GoalAmount: 30, XPReward: 300},

		// Levels
		{Name: "Level 5", Description: "Reach level 5", Icon: "⭐", GoalType: models.GoalLevel, GoalAmount: 5, XPReward: 100, IsDefault: true},
		{Name: "Level 10", Description: "Reach level 10", Icon: "🌟", GoalType: models.GoalLevel, GoalAmount: 10, XPReward: 250},
		{Name: "Level 25", Description: "Reach level 25", Icon: "💫", GoalType: models.GoalLevel, GoalAmount: 25, XPReward: 750},

		// Quests
		{Name: "Quest Giver", Description: "Create your first quest", Icon: "📜", GoalType: models.GoalCreation, GoalAmount: 1, XPReward: 30, IsDefault: true},
		{Name: "Quest Complete", Description: "Finish a quest", Icon: "🏆", GoalType: models.GoalQuest, GoalAmount: 1, XPReward: 200, IsDefault: true},

		// Lifting
		{Name: "Two Plate Bench", Description: "Bench press 225 lbs", Icon: "🛡️", GoalType: models.GoalPersonalBest, TargetValue: target(225), LiftName: "Bench Press", XPReward: 300},
		{Name: "Three Plate Squat", Description: "Squat 315 lbs", Icon: "🦵", GoalType: models.GoalPersonalBest, TargetValue: target(315), LiftName: "Squat", XPReward: 400},
		{Name: "Four Plate Pull", Description: "Deadlift 405 lbs", Icon: "🐂", GoalType: models.GoalPersonalBest, TargetValue: target(405), LiftName: "Deadlift", XPReward: 500},
		{Name: "New Personal Best", Description: "Beat your best on any lift", Icon: "📣", GoalType: models.GoalPersonalBest, XPReward: 75, IsDefault: true},
		{Name: "Million Pound Club", Description: "Lift 1,000,000 lbs in total", Icon: "🏔️", GoalType: models.GoalLiftingWeight, GoalAmount: 1000000, XPReward: 2000},
	}
}

// LoadCatalogFile reads a catalog from a JSON array of achievements.
func LoadCatalogFile(path string) ([]models.Achievement, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var catalog []models.Achievement
	if err := json.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	for i := range catalog {
		if g, ok := models.ParseGoalType(string(catalog[i].GoalType)); ok {
			catalog[i].GoalType = g
		}
	}
	return catalog, nil
}

// ValidateCatalog returns one message per invalid entry.
func ValidateCatalog(catalog []models.Achievement) []string {
	var problems []string
	seen := map[string]bool{}
	for i, a := range catalog {
		label := fmt.Sprintf("#%d %q", i, a.Name)
		name := strings.TrimSpace(a.Name)
		switch {
		case name == "":
			problems = append(problems, fmt.Sprintf("#%d: name is required", i))
		case seen[strings.ToLower(name)]:
			problems = append(problems, label+": duplicate name")
		}
		seen[strings.ToLower(name)] = true

		if !a.GoalType.IsValid() {
			problems = append(problems, fmt.Sprintf("%s: unknown goal type %q", label, a.GoalType))
		}
		if a.XPReward <= 0 {
			problems = append(problems, label+": xp_reward must be positive")
		}
		if a.GoalAmount < 0 {
			problems = append(problems, label+": goal_amount must not be negative")
		}
		if a.TargetValue != nil {
			if a.GoalType != models.GoalLiftingWeight && a.GoalType != models.GoalPersonalBest {
				problems = append(problems, label+": target_value only applies to lifting goals")
			}
			if *a.TargetValue <= 0 {
				problems = append(problems, label+": target_value must be positive")
			}
		}
	}
	return problems
}

// SeedCatalog inserts the catalog, refreshing existing rows matched by name.
func SeedCatalog(conn *gorm.DB, catalog []models.Achievement) error {
	if problems := ValidateCatalog(catalog); len(problems) > 0 {
		return fmt.Errorf("invalid catalog: %s", strings.Join(problems, "; "))
	}
	if len(catalog) == 0 {
		return nil
	}

	for i := range catalog {
		if catalog[i].GoalAmount == 0 {
			catalog[i].GoalAmount = 1
		}
	}

	err := conn.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"description", "icon", "goal_type", "goal_amount", "target_value",
			"lift_name", "weekly_reset", "is_default", "xp_reward", "updated_at",
		}),
	}).Create(&catalog).Error
	if err != nil {
		return fmt.Errorf("seed catalog: %w", err)
	}

	log.Printf("✅ Seeded %d achievements", len(catalog))
	return nil
}
