/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/HamedShams/release-pulse/internal/config"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

type service interface {
	RunSnapshotCycle(ctx context.Context) (int, error)
	CheckConventions(ctx context.Context, releaseID string) (int, error)
	CurrentReleaseID() string
}

type store interface {
	DeleteReadNotificationsBefore(ctx context.Context, cutoff time.Time) (int64, error)
	DeleteSnapshotsBefore(ctx context.Context, cutoff time.Time) (int64, error)
	DeleteResolvedViolationsBefore(ctx context.Context, cutoff time.Time) (int64, error)
	TryAdvisoryLock(ctx context.Context, key int64) (bool, error)
	AdvisoryUnlock(ctx context.Context, key int64) error
}

const (
	snapshotLockKey int64 = 519001
	cleanupLockKey  int64 = 519002

	jobTimeout = 5 * time.Minute
)

// Scheduler owns the two recurring jobs: the weekly snapshot cycle and the
// daily retention cleanup. It is constructed with its dependencies and holds
// no package-level state, so tests can run several side by side.
type Scheduler struct {
	cfg   config.Config
	log   zerolog.Logger
	svc   service
	store store
	c     *cron.Cron

	mu      sync.Mutex
	running bool
	snapID  cron.EntryID
	cleanID cron.EntryID
}

func NewScheduler(cfg config.Config, log zerolog.Logger, svc service, st store) (*Scheduler, error) {
	loc, err := time.LoadLocation(cfg.TZ)
	if err != nil {
		loc = time.Local
	}
	c := cron.New(cron.WithLocation(loc), cron.WithParser(cron.NewParser(cron.Minute|cron.Hour|cron.Dom|cron.Month|cron.Dow)))
	s := &Scheduler{cfg: cfg, log: log, svc: svc, store: st, c: c}

	s.snapID, err = c.AddFunc(cfg.SnapshotCron, s.snapshotJob)
	if err != nil {
		return nil, err
	}
	s.cleanID, err = c.AddFunc(cfg.CleanupCron, s.cleanupJob)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Start begins firing jobs on their schedules. Calling Start on a running
// scheduler is a no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		s.log.Warn().Msg("scheduler: already running")
		return
	}
	s.c.Start()
	s.running = true
	s.log.Info().
		Str("snapshot_cron", s.cfg.SnapshotCron).
		Str("cleanup_cron", s.cfg.CleanupCron).
		Msg("scheduler: started")
}

// Stop stops firing new jobs and waits for in-flight ones up to the
// configured stop timeout. The stop is complete either way; an expired
// wait is only logged. Stopping a stopped scheduler is a no-op.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	done := s.c.Stop().Done()
	s.mu.Unlock()

	select {
	case <-done:
		s.log.Info().Msg("scheduler: stopped")
	case <-time.After(s.cfg.StopTimeout):
		s.log.Warn().Dur("timeout", s.cfg.StopTimeout).Msg("scheduler: jobs still running after stop timeout")
	}
}

// Status reports whether the scheduler is running and when each job fires
// next. Next-fire times are zero when stopped.
type Status struct {
	Running      bool      `json:"running"`
	Jobs         int       `json:"jobs"`
	NextSnapshot time.Time `json:"next_snapshot"`
	NextCleanup  time.Time `json:"next_cleanup"`
}

func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Status{Running: s.running, Jobs: len(s.c.Entries())}
	if s.running {
		st.NextSnapshot = s.c.Entry(s.snapID).Next
		st.NextCleanup = s.c.Entry(s.cleanID).Next
	}
	return st
}

// RunSnapshotNow fires the snapshot job outside its schedule. Used by the
// admin endpoint.
func (s *Scheduler) RunSnapshotNow() { s.snapshotJob() }

func (s *Scheduler) snapshotJob() {
	defer s.recover("snapshot")
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	ok, err := s.store.TryAdvisoryLock(ctx, snapshotLockKey)
	if err != nil {
		s.log.Error().Err(err).Msg("snapshot job: lock error")
		return
	}
	if !ok {
		s.log.Info().Msg("snapshot job: already running elsewhere")
		return
	}
	defer func() { _ = s.store.AdvisoryUnlock(context.Background(), snapshotLockKey) }()

	if _, err := s.svc.RunSnapshotCycle(ctx); err != nil {
		s.log.Error().Err(err).Msg("snapshot job: cycle failed")
		return
	}
	if _, err := s.svc.CheckConventions(ctx, s.svc.CurrentReleaseID()); err != nil {
		s.log.Error().Err(err).Msg("snapshot job: convention check failed")
	}
}

func (s *Scheduler) cleanupJob() {
	defer s.recover("cleanup")
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	ok, err := s.store.TryAdvisoryLock(ctx, cleanupLockKey)
	if err != nil {
		s.log.Error().Err(err).Msg("cleanup job: lock error")
		return
	}
	if !ok {
		s.log.Info().Msg("cleanup job: already running elsewhere")
		return
	}
	defer func() { _ = s.store.AdvisoryUnlock(context.Background(), cleanupLockKey) }()

	cutoff := time.Now().UTC().AddDate(0, 0, -s.cfg.RetentionDays)
	log := s.log.With().Time("cutoff", cutoff).Logger()

	// unread notifications and unresolved violations survive retention
	if n, err := s.store.DeleteReadNotificationsBefore(ctx, cutoff); err != nil {
		log.Error().Err(err).Msg("cleanup job: notifications")
	} else if n > 0 {
		log.Info().Int64("deleted", n).Msg("cleanup job: notifications")
	}
	if n, err := s.store.DeleteSnapshotsBefore(ctx, cutoff); err != nil {
		log.Error().Err(err).Msg("cleanup job: snapshots")
	} else if n > 0 {
		log.Info().Int64("deleted", n).Msg("cleanup job: snapshots")
	}
	if n, err := s.store.DeleteResolvedViolationsBefore(ctx, cutoff); err != nil {
		log.Error().Err(err).Msg("cleanup job: violations")
	} else if n > 0 {
		log.Info().Int64("deleted", n).Msg("cleanup job: violations")
	}
}

// recover keeps one panicking job from taking the cron goroutine down with it.
func (s *Scheduler) recover(job string) {
	if r := recover(); r != nil {
		s.log.Error().Interface("panic", r).Str("job", job).Msg("scheduler: job panicked")
	}
}
