// services/scheduler.go - Weekly reset scheduling and post-reset notifications
package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"ironquest/models"
)

const WeeklyResetLockKey = "ironquest:lock:weekly-reset"

// Schedule is a weekly wall-clock time in a location.
type Schedule struct {
	Weekday  time.Weekday
	Hour     int
	Minute   int
	Location *time.Location
}

// Next returns the first scheduled instant strictly after now.
func (s Schedule) Next(now time.Time) time.Time {
	loc := s.Location
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	days := (int(s.Weekday) - int(local.Weekday()) + 7) % 7
	next := time.Date(local.Year(), local.Month(), local.Day()+days, s.Hour, s.Minute, 0, 0, loc)
	if !next.After(local) {
		next = next.AddDate(0, 0, 7)
	}
	return next
}

// WeeklyResetRunner runs the reset under a job lock, then invalidates caches
// and notifies users holding a push token.
type WeeklyResetRunner struct {
	db       *gorm.DB
	job      *WeeklyResetJob
	lock     *JobLock
	notifier Notifier
	cache    *ProgressCache
	log      *zap.Logger
}

func NewWeeklyResetRunner(db *gorm.DB, job *WeeklyResetJob, lock *JobLock, notifier Notifier, cache *ProgressCache, log *zap.Logger) *WeeklyResetRunner {
	if lock == nil {
		lock = NewJobLock(nil, WeeklyResetLockKey, time.Hour)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &WeeklyResetRunner{db: db, job: job, lock: lock, notifier: notifier, cache: cache, log: log}
}

// RunOnce returns ErrLockHeld when another run is in progress.
func (r *WeeklyResetRunner) RunOnce(ctx context.Context) (*ResetResult, error) {
	release, err := r.lock.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	result, err := r.job.Run(ctx)
	if err != nil {
		return nil, err
	}

	r.cache.Invalidate(ctx, result.ResetUserIDs...)
	if err := r.notifyAll(ctx); err != nil {
		r.log.Warn("weekly reset notifications incomplete", zap.Error(err))
	}
	return result, nil
}

func (r *WeeklyResetRunner) notifyAll(ctx context.Context) error {
	if r.notifier == nil {
		return nil
	}
	var users []models.User
	err := r.db.WithContext(ctx).
		Select("id", "push_token").
		Where("push_token IS NOT NULL AND push_token <> ?", "").
		FindInBatches(&users, 500, func(tx *gorm.DB, batch int) error {
			for _, u := range users {
				n := Notification{
					UserID: u.ID,
					Token:  deref(u.PushToken),
					Kind:   KindWeeklyReset,
					Title:  "New week, new challenges",
					Body:   "Your weekly achievements have been reset. Go earn them again!",
				}
				if err := r.notifier.Notify(ctx, n); err != nil {
					r.log.Debug("weekly reset notification failed", zap.Uint("user_id", u.ID), zap.Error(err))
				}
			}
			return nil
		}).Error
	return err
}

// WeeklyResetScheduler fires the runner at every scheduled instant.
type WeeklyResetScheduler struct {
	runner   *WeeklyResetRunner
	schedule Schedule
	log      *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewWeeklyResetScheduler(runner *WeeklyResetRunner, schedule Schedule, log *zap.Logger) *WeeklyResetScheduler {
	if log == nil {
		log = zap.NewNop()
	}
	return &WeeklyResetScheduler{runner: runner, schedule: schedule, log: log}
}

// Start launches the scheduling loop. Calling Start twice is a no-op.
func (s *WeeklyResetScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.loop(ctx)
}

// Stop ends the loop and waits for an in-flight run to return.
func (s *WeeklyResetScheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel = nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (s *WeeklyResetScheduler) loop(ctx context.Context) {
	defer close(s.done)
	for {
		next := s.schedule.Next(time.Now())
		s.log.Info("weekly reset scheduled", zap.Time("at", next))

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		result, err := s.runner.RunOnce(ctx)
		switch {
		case errors.Is(err, ErrLockHeld):
			s.log.Info("weekly reset skipped, another instance holds the lock")
		case err != nil:
			s.log.Error("weekly reset failed", zap.Error(err))
		default:
			s.log.Info("weekly reset completed",
				zap.Int64("achievements_reset", result.AchievementsReset),
				zap.Int64("users_reset", result.UsersReset))
		}
	}
}
