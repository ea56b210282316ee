package offline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"ironquest/models"
	"ironquest/progression"
)

const (
	JournalApplyEvent  = "apply_event"
	JournalAddProgress = "add_progress"
)

// JournalEntry records one mutation made while offline. Replaying the
// journal, or discarding it, is up to the sync component.
type JournalEntry struct {
	ID            string              `gorm:"primaryKey;size:36" json:"id"`
	UserID        uint                `gorm:"not null;index" json:"user_id"`
	Kind          string              `gorm:"not null;size:32" json:"kind"`
	GoalTypes     []models.GoalType   `gorm:"serializer:json" json:"goal_types,omitempty"`
	Context       progression.Event   `gorm:"serializer:json" json:"context"`
	AchievementID uint                `json:"achievement_id,omitempty"`
	Delta         float64             `json:"delta,omitempty"`
	Completed     []uint              `gorm:"serializer:json" json:"completed,omitempty"`
	XPAwarded     int                 `json:"xp_awarded"`
	After         models.UserSnapshot `gorm:"serializer:json" json:"after"`
	CreatedAt     time.Time           `gorm:"index" json:"created_at"`
	SyncedAt      *time.Time          `gorm:"index" json:"synced_at,omitempty"`
}

func (JournalEntry) TableName() string { return "offline_events" }

func (s *Session) journal(tx *gorm.DB, e JournalEntry) error {
	e.ID = uuid.NewString()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now()
	}
	return tx.Create(&e).Error
}

// PendingEvents returns unsynced journal entries, oldest first.
func (s *Session) PendingEvents(ctx context.Context) ([]JournalEntry, error) {
	var out []JournalEntry
	err := s.db.WithContext(ctx).
		Where("synced_at IS NULL").
		Order("created_at, id").
		Find(&out).Error
	return out, err
}

// MarkSynced flags journal entries as reconciled and reports how many were
// still pending.
func (s *Session) MarkSynced(ctx context.Context, ids ...string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := s.db.WithContext(ctx).
		Model(&JournalEntry{}).
		Where("id IN ? AND synced_at IS NULL", ids).
		Update("synced_at", s.now())
	return res.RowsAffected, res.Error
}
