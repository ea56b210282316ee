// services/notifier.go - Post-commit notification fan-out
package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	KindAchievement = "achievement"
	KindLevelUp     = "level_up"
	KindWeeklyReset = "weekly_reset"
)

// Notification is one message for one user. Token is the user's push token
// and may be empty; in-app channels deliver without it.
type Notification struct {
	UserID uint                   `json:"user_id"`
	Token  string                 `json:"token,omitempty"`
	Kind   string                 `json:"kind"`
	Title  string                 `json:"title"`
	Body   string                 `json:"body"`
	Data   map[string]interface{} `json:"data,omitempty"`
	SentAt time.Time              `json:"sent_at"`
}

type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// MultiNotifier delivers to every notifier and joins their errors.
type MultiNotifier []Notifier

func (m MultiNotifier) Notify(ctx context.Context, n Notification) error {
	if n.SentAt.IsZero() {
		n.SentAt = time.Now().UTC()
	}
	var errs []error
	for _, notifier := range m {
		if notifier == nil {
			continue
		}
		if err := notifier.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogNotifier records notifications in the structured log.
type LogNotifier struct {
	Log *zap.Logger
}

func (l LogNotifier) Notify(_ context.Context, n Notification) error {
	l.Log.Info("notification",
		zap.Uint("user_id", n.UserID),
		zap.String("kind", n.Kind),
		zap.String("title", n.Title),
		zap.Bool("push", n.Token != ""))
	return nil
}

// PushQueueKey is the Redis list the push delivery worker consumes.
const PushQueueKey = "ironquest:push"

// RedisPushQueue enqueues push notifications for users holding a token.
// Delivery to the push provider happens in a separate worker.
type RedisPushQueue struct {
	Client *redis.Client
	Key    string
}

func NewRedisPushQueue(client *redis.Client) *RedisPushQueue {
	return &RedisPushQueue{Client: client, Key: PushQueueKey}
}

func (q *RedisPushQueue) Notify(ctx context.Context, n Notification) error {
	if q == nil || q.Client == nil || n.Token == "" {
		return nil
	}
	payload, err := json.Marshal(n)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return q.Client.RPush(ctx, q.Key, payload).Err()
}
