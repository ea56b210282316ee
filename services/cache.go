// services/cache.go - Redis cache for progression snapshots
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"ironquest/models"
	"ironquest/progression"
)

const defaultCacheTTL = 10 * time.Minute

// ProgressView is the read model served by GET /api/progression.
type ProgressView struct {
	models.UserSnapshot
	XPToNextLevel int `json:"xp_to_next_level"`
}

func NewProgressView(u models.User) ProgressView {
	return ProgressView{
		UserSnapshot:  u.Snapshot(),
		XPToNextLevel: progression.RequiredXP(u.Level) - u.XP,
	}
}

// ProgressCache is nil-safe: a nil cache or client always misses.
type ProgressCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *zap.Logger
}

func NewProgressCache(client *redis.Client, ttl time.Duration, log *zap.Logger) *ProgressCache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ProgressCache{client: client, ttl: ttl, log: log}
}

func progressKey(userID uint) string {
	return fmt.Sprintf("ironquest:progress:%d", userID)
}

func (c *ProgressCache) enabled() bool {
	return c != nil && c.client != nil
}

func (c *ProgressCache) Get(ctx context.Context, userID uint) (*ProgressView, bool) {
	if !c.enabled() {
		return nil, false
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	b, err := c.client.Get(ctx, progressKey(userID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.Debug("cache get failed", zap.Uint("user_id", userID), zap.Error(err))
		}
		return nil, false
	}
	var view ProgressView
	if err := json.Unmarshal(b, &view); err != nil {
		return nil, false
	}
	return &view, true
}

func (c *ProgressCache) Set(ctx context.Context, view ProgressView) {
	if !c.enabled() {
		return
	}
	b, err := json.Marshal(view)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := c.client.Set(ctx, progressKey(view.ID), b, c.ttl).Err(); err != nil {
		c.log.Warn("cache set failed", zap.Uint("user_id", view.ID), zap.Error(err))
	}
}

func (c *ProgressCache) Invalidate(ctx context.Context, userIDs ...uint) {
	if !c.enabled() || len(userIDs) == 0 {
		return
	}
	keys := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		keys = append(keys, progressKey(id))
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.log.Warn("cache invalidate failed", zap.Int("keys", len(keys)), zap.Error(err))
	}
}

// InvalidateAll drops every cached snapshot using SCAN.
func (c *ProgressCache) InvalidateAll(ctx context.Context) {
	if !c.enabled() {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, "ironquest:progress:*", 1000).Result()
		if err != nil {
			c.log.Warn("cache scan failed", zap.Error(err))
			return
		}
		if len(keys) > 0 {
			pipe := c.client.Pipeline()
			for _, k := range keys {
				pipe.Del(ctx, k)
			}
			_, _ = pipe.Exec(ctx)
		}
		cursor = next
		if cursor == 0 {
			return
		}
	}
}
