// models/workout.go
package models

import (
	"strings"
	"time"
)

type Workout struct {
	ID          uint          `gorm:"primaryKey" json:"id"`
	UserID      uint          `gorm:"not null;index" json:"user_id"`
	Name        string        `gorm:"not null;size:100" json:"name"`
	CompletedAt time.Time     `gorm:"index" json:"completed_at"`
	Lifts       []WorkoutLift `gorm:"foreignKey:WorkoutID;constraint:OnDelete:CASCADE" json:"lifts"`
	CreatedAt   time.Time     `json:"created_at"`
}

type WorkoutLift struct {
	ID        uint    `gorm:"primaryKey" json:"id"`
	WorkoutID uint    `gorm:"not null;index" json:"workout_id"`
	Name      string  `gorm:"not null;size:100" json:"name"`
	Weight    float64 `gorm:"not null" json:"weight"`
	Reps      int     `gorm:"not null;default:1" json:"reps"`
}

// WeightEntry is one body-weight log line.
type WeightEntry struct {
	ID       uint      `gorm:"primaryKey" json:"id"`
	UserID   uint      `gorm:"not null;index" json:"user_id"`
	Weight   float64   `gorm:"not null" json:"weight"`
	LoggedAt time.Time `gorm:"index" json:"logged_at"`
}

// PersonalBest is the heaviest recorded weight for a lift.
type PersonalBest struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_personal_best,priority:1" json:"user_id"`
	LiftName  string    `gorm:"not null;size:100;uniqueIndex:idx_personal_best,priority:2" json:"lift_name"`
	Weight    float64   `gorm:"not null" json:"weight"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NormalizeLiftName folds case and surrounding space so "Bench Press" and "bench press " match.
func NormalizeLiftName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}
