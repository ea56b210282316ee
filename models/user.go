// models/user.go
package models

import (
	"time"
)

type User struct {
	ID        uint    `gorm:"primaryKey" json:"id"`
	Username  string  `gorm:"uniqueIndex;not null" json:"username"`
	Email     *string `gorm:"uniqueIndex" json:"email,omitempty"`
	Password  string  `gorm:"not null" json:"-"`
	IsAdmin   bool    `gorm:"default:false" json:"is_admin"`
	PushToken *string `json:"-"`

	// Progression
	Level         int `gorm:"not null;default:1" json:"level"`
	XP            int `gorm:"not null;default:0" json:"xp"`
	LevelProgress int `gorm:"not null;default:0" json:"level_progress"`

	// Lifting totals
	WeeklyWeightLifted float64 `gorm:"not null;default:0" json:"weekly_weight_lifted"`
	TotalWeightLifted  float64 `gorm:"not null;default:0" json:"total_weight_lifted"`

	// Timestamps
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relationships
	Achievements []UserAchievement `gorm:"foreignKey:UserID" json:"achievements,omitempty"`
}

// UserSnapshot is the progression view of a user returned to callers.
type UserSnapshot struct {
	ID                 uint    `json:"id"`
	Level              int     `json:"level"`
	XP                 int     `json:"xp"`
	LevelProgress      int     `json:"level_progress"`
	WeeklyWeightLifted float64 `json:"weekly_weight_lifted"`
	TotalWeightLifted  float64 `json:"total_weight_lifted"`
}

func (u User) Snapshot() UserSnapshot {
	return UserSnapshot{
		ID:                 u.ID,
		Level:              u.Level,
		XP:                 u.XP,
		LevelProgress:      u.LevelProgress,
		WeeklyWeightLifted: u.WeeklyWeightLifted,
		TotalWeightLifted:  u.TotalWeightLifted,
	}
}
