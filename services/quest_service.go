// services/quest_service.go - Quest upsert and completion
package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"gorm.io/gorm"

	"ironquest/models"
	"ironquest/progression"
)

const defaultQuestBaseXP = 10

type QuestInput struct {
	Type          string    `json:"type"`
	Goal          float64   `json:"goal"`
	GoalDate      time.Time `json:"goal_date"`
	BaseXP        int       `json:"base_xp"`
	InitialWeight float64   `json:"initial_weight"`
}

type QuestResult struct {
	Quest            models.Quest             `json:"quest"`
	Created          bool                     `json:"created"`
	AlreadyCompleted bool                     `json:"already_completed"`
	XPAwarded        int                      `json:"xp_awarded"`
	Event            *progression.EventResult `json:"event,omitempty"`
}

type QuestService struct {
	progress *ProgressionService
}

func NewQuestService(progress *ProgressionService) *QuestService {
	return &QuestService{progress: progress}
}

// validate returns the parsed quest type and the effective base XP.
func (in QuestInput) validate() (models.QuestType, int, error) {
	qt, ok := models.ParseQuestType(in.Type)
	if !ok {
		return "", 0, &progression.ValidationError{Field: "type", Reason: "must be one of GAIN, LOSE, MAINTAIN"}
	}
	if math.IsNaN(in.Goal) || math.IsInf(in.Goal, 0) || in.Goal <= 0 {
		return "", 0, &progression.ValidationError{Field: "goal", Reason: "must be a positive number"}
	}
	if in.BaseXP < 0 || in.BaseXP > models.MaxQuestBaseXP {
		return "", 0, &progression.ValidationError{Field: "base_xp", Reason: fmt.Sprintf("must be between 0 and %d", models.MaxQuestBaseXP)}
	}
	if math.IsNaN(in.InitialWeight) || math.IsInf(in.InitialWeight, 0) || in.InitialWeight < 0 {
		return "", 0, &progression.ValidationError{Field: "initial_weight", Reason: "must not be negative"}
	}

	baseXP := in.BaseXP
	if baseXP == 0 {
		baseXP = defaultQuestBaseXP
	}
	if float64(baseXP)*in.Goal > models.MaxQuestRewardXP {
		return "", 0, &progression.ValidationError{Field: "goal", Reason: fmt.Sprintf("base_xp*goal must not exceed %d", models.MaxQuestRewardXP)}
	}
	return qt, baseXP, nil
}

// Get returns the user's quest.
func (q *QuestService) Get(ctx context.Context, userID uint) (*models.Quest, error) {
	var quest models.Quest
	if err := q.progress.db.WithContext(ctx).Where("user_id = ?", userID).First(&quest).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &progression.NotFoundError{Resource: "quest"}
		}
		return nil, err
	}
	return &quest, nil
}

// Upsert creates or replaces the user's single quest. Starting a new quest
// (first one, or replacing a finished one) is a CREATION event.
func (q *QuestService) Upsert(ctx context.Context, userID uint, in QuestInput) (*QuestResult, error) {
	qt, baseXP, err := in.validate()
	if err != nil {
		return nil, err
	}

	s := q.progress
	var (
		result = &QuestResult{}
		token  *string
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := lockUser(tx, userID)
		if err != nil {
			return err
		}
		token = user.PushToken

		var quest models.Quest
		err = tx.Where("user_id = ?", userID).First(&quest).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			result.Created = true
		case err != nil:
			return err
		case quest.Completed:
			result.Created = true
		}

		quest.UserID = userID
		quest.Type = qt
		quest.Goal = in.Goal
		quest.GoalDate = in.GoalDate
		quest.BaseXP = baseXP
		quest.InitialWeight = in.InitialWeight
		quest.Completed = false
		quest.CompletedAt = nil
		if err := tx.Omit("User").Save(&quest).Error; err != nil {
			return err
		}
		result.Quest = quest

		if result.Created {
			ev, err := s.applyEventTx(tx, user, []models.GoalType{models.GoalCreation}, progression.Event{}, s.now())
			if err != nil {
				return err
			}
			result.Event = ev
		}
		return nil
	})
	if err != nil {
		return nil, progression.WrapTx("upsert quest", err)
	}

	if result.Event != nil {
		s.afterEvent(ctx, userID, token, result.Event)
	}
	return result, nil
}

// Complete finishes the user's quest, awards baseXP*goal and fires QUEST goals.
// Completing an already finished quest changes nothing.
func (q *QuestService) Complete(ctx context.Context, userID uint) (*QuestResult, error) {
	s := q.progress
	var (
		result = &QuestResult{}
		token  *string
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := lockUser(tx, userID)
		if err != nil {
			return err
		}
		token = user.PushToken

		var quest models.Quest
		if err := forUpdate(tx).Where("user_id = ?", userID).First(&quest).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &progression.NotFoundError{Resource: "quest"}
			}
			return err
		}
		if quest.Completed {
			result.Quest = quest
			result.AlreadyCompleted = true
			return nil
		}

		now := s.now()
		quest.Completed = true
		quest.CompletedAt = &now
		if err := tx.Model(&quest).Updates(map[string]interface{}{"completed": true, "completed_at": now}).Error; err != nil {
			return err
		}
		result.Quest = quest

		levelBefore := user.Level
		reward := quest.RewardXP()
		if err := awardXP(tx, user, reward); err != nil {
			return err
		}
		result.XPAwarded = reward

		ev, err := s.applyEventTx(tx, user, []models.GoalType{models.GoalQuest}, progression.Event{Level: levelBefore}, now)
		if err != nil {
			return err
		}
		ev.LevelBefore = levelBefore
		ev.LeveledUp = user.Level > levelBefore
		result.Event = ev
		return nil
	})
	if err != nil {
		return nil, progression.WrapTx("complete quest", err)
	}

	if result.Event != nil {
		s.afterEvent(ctx, userID, token, result.Event)
	}
	return result, nil
}
