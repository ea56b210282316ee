// models/quest.go
package models

import (
	"math"
	"strings"
	"time"
)

type QuestType string

const (
	QuestGain     QuestType = "GAIN"
	QuestLose     QuestType = "LOSE"
	QuestMaintain QuestType = "MAINTAIN"
)

func ParseQuestType(s string) (QuestType, bool) {
	q := QuestType(strings.ToUpper(strings.TrimSpace(s)))
	switch q {
	case QuestGain, QuestLose, QuestMaintain:
		return q, true
	}
	return q, false
}

// Quest is the single active long-term body-weight goal of a user.
type Quest struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	UserID        uint       `gorm:"not null;uniqueIndex" json:"user_id"`
	Type          QuestType  `gorm:"not null;size:16" json:"type"`
	Goal          float64    `gorm:"not null" json:"goal"`
	GoalDate      time.Time  `json:"goal_date"`
	BaseXP        int        `gorm:"not null;default:10" json:"base_xp"`
	InitialWeight float64    `json:"initial_weight"`
	Completed     bool       `gorm:"not null;default:false" json:"completed"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`

	User User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

// Bounds on quest rewards. A quest's goal is a body-weight target, so
// baseXP*goal stays far below these for any real quest.
const (
	MaxQuestBaseXP   = 1000
	MaxQuestRewardXP = 100_000
)

// RewardXP is the XP granted when the quest is finished, bounded to
// [0, MaxQuestRewardXP].
func (q Quest) RewardXP() int {
	reward := float64(q.BaseXP) * q.Goal
	switch {
	case math.IsNaN(reward) || reward <= 0:
		return 0
	case reward >= MaxQuestRewardXP:
		return MaxQuestRewardXP
	}
	return int(reward)
}
