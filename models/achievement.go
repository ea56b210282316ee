// models/achievement.go
package models

import (
	"strings"
	"time"
)

// GoalType is the category of event an achievement tracks.
type GoalType string

const (
	GoalWorkout       GoalType = "WORKOUT"
	GoalStreak        GoalType = "STREAK"
	GoalBodyweight    GoalType = "BODYWEIGHT"
	GoalLevel         GoalType = "LEVEL"
	GoalQuest         GoalType = "QUEST"
	GoalCreation      GoalType = "CREATION"
	GoalLiftingWeight GoalType = "LIFTINGWEIGHT"
	GoalPersonalBest  GoalType = "PERSONAL_BEST"
)

// AllGoalTypes lists every goal type the dispatcher understands.
var AllGoalTypes = []GoalType{
	GoalWorkout,
	GoalStreak,
	GoalBodyweight,
	GoalLevel,
	GoalQuest,
	GoalCreation,
	GoalLiftingWeight,
	GoalPersonalBest,
}

func (g GoalType) IsValid() bool {
	for _, known := range AllGoalTypes {
		if g == known {
			return true
		}
	}
	return false
}

// ParseGoalType accepts the catalog spelling case-insensitively.
func ParseGoalType(s string) (GoalType, bool) {
	g := GoalType(strings.ToUpper(strings.TrimSpace(s)))
	return g, g.IsValid()
}

// Achievement is a catalog entry, written by seeding and admin catalog edits.
type Achievement struct {
	ID          uint     `gorm:"primaryKey" json:"id"`
	Name        string   `gorm:"not null;uniqueIndex" json:"name"`
	Description string   `json:"description"`
	Icon        string   `json:"icon"`
	GoalType    GoalType `gorm:"not null;index;size:32" json:"goal_type"`
	GoalAmount  float64  `gorm:"not null;default:1" json:"goal_amount"`
	TargetValue *float64 `json:"target_value,omitempty"`
	LiftName    string   `gorm:"size:100" json:"lift_name,omitempty"`
	WeeklyReset bool     `gorm:"default:false;index" json:"weekly_reset"`
	IsDefault   bool     `gorm:"default:false" json:"is_default"`

	// Rewards
	XPReward int `gorm:"not null" json:"xp_reward"`

	// Timestamps
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EffectiveGoalAmount treats unset or non-positive amounts as a single trigger.
func (a Achievement) EffectiveGoalAmount() float64 {
	if a.GoalAmount <= 0 {
		return 1
	}
	return a.GoalAmount
}

// UserAchievement is the per-user ledger entry for one catalog achievement.
type UserAchievement struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	UserID        uint       `gorm:"not null;uniqueIndex:idx_user_achievement,priority:1" json:"user_id"`
	AchievementID uint       `gorm:"not null;uniqueIndex:idx_user_achievement,priority:2;index" json:"achievement_id"`
	Progress      float64    `gorm:"not null;default:0" json:"progress"`
	Completed     bool       `gorm:"not null;default:false;index" json:"completed"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`

	// Relationships
	User        User        `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Achievement Achievement `gorm:"foreignKey:AchievementID;constraint:OnDelete:CASCADE" json:"achievement,omitempty"`
}
