package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingNotifier struct{}

func (failingNotifier) Notify(context.Context, Notification) error {
	return errors.New("push gateway down")
}

func TestMultiNotifier_DeliversToAll(t *testing.T) {
	a, b := &recordingNotifier{}, &recordingNotifier{}
	multi := MultiNotifier{a, failingNotifier{}, b}

	err := multi.Notify(context.Background(), Notification{UserID: 1, Kind: KindAchievement})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "push gateway down")
	assert.Len(t, a.got, 1)
	assert.Len(t, b.got, 1)
}

func TestHub_FanOutAndUnsubscribe(t *testing.T) {
	hub := NewHub()
	ch1, leave1 := hub.Subscribe(7)
	ch2, leave2 := hub.Subscribe(7)
	other, leaveOther := hub.Subscribe(8)
	defer leaveOther()
	assert.Equal(t, 2, hub.Subscribers(7))

	require.NoError(t, hub.Notify(context.Background(), Notification{UserID: 7, Kind: KindLevelUp}))
	for _, ch := range []<-chan Notification{ch1, ch2} {
		select {
		case n := <-ch:
			assert.Equal(t, KindLevelUp, n.Kind)
		case <-time.After(time.Second):
			t.Fatal("notification not delivered")
		}
	}
	select {
	case <-other:
		t.Fatal("notification leaked to another user")
	default:
	}

	leave1()
	leave1()
	_, open := <-ch1
	assert.False(t, open)
	assert.Equal(t, 1, hub.Subscribers(7))
	leave2()
	assert.Zero(t, hub.Subscribers(7))
}

func TestHub_SlowSubscriberDoesNotBlock(t *testing.T) {
	hub := NewHub()
	_, leave := hub.Subscribe(1)
	defer leave()

	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer*4; i++ {
			_ = hub.Notify(context.Background(), Notification{UserID: 1})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Notify blocked on a full subscriber")
	}
}

func TestJobLock_LocalOnly(t *testing.T) {
	lock := NewJobLock(nil, "test", time.Minute)
	release, err := lock.Acquire(context.Background())
	require.NoError(t, err)

	_, err = lock.Acquire(context.Background())
	assert.ErrorIs(t, err, ErrLockHeld)

	release()
	release2, err := lock.Acquire(context.Background())
	require.NoError(t, err)
	release2()
}

func TestProgressCache_NilSafe(t *testing.T) {
	var cache *ProgressCache
	_, ok := cache.Get(context.Background(), 1)
	assert.False(t, ok)
	cache.Set(context.Background(), ProgressView{})
	cache.Invalidate(context.Background(), 1, 2)
	cache.InvalidateAll(context.Background())

	disabled := NewProgressCache(nil, 0, nil)
	_, ok = disabled.Get(context.Background(), 1)
	assert.False(t, ok)
}
