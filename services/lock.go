package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockHeld is returned when another holder owns the lock.
var ErrLockHeld = errors.New("lock is held by another process")

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// JobLock serialises a job within the process and, with a Redis client,
// across every instance sharing that Redis.
type JobLock struct {
	client *redis.Client
	key    string
	ttl    time.Duration
	mu     sync.Mutex
}

func NewJobLock(client *redis.Client, key string, ttl time.Duration) *JobLock {
	return &JobLock{client: client, key: key, ttl: ttl}
}

// Acquire takes the lock without waiting. The returned func releases it.
func (l *JobLock) Acquire(ctx context.Context) (func(), error) {
	if !l.mu.TryLock() {
		return nil, ErrLockHeld
	}
	if l.client == nil {
		return l.mu.Unlock, nil
	}

	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		l.mu.Unlock()
		return nil, err
	}
	if !ok {
		l.mu.Unlock()
		return nil, ErrLockHeld
	}

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = releaseScript.Run(ctx, l.client, []string{l.key}, token).Err()
		l.mu.Unlock()
	}, nil
}
