package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/HamedShams/release-pulse/internal/config"
	"github.com/rs/zerolog"
)

type fakeService struct {
	cycles      int
	conventions int
	panics      bool
}

func (f *fakeService) RunSnapshotCycle(context.Context) (int, error) {
	if f.panics {
		panic("boom")
	}
	f.cycles++
	return 0, nil
}

func (f *fakeService) CheckConventions(context.Context, string) (int, error) {
	f.conventions++
	return 0, nil
}

func (f *fakeService) CurrentReleaseID() string { return "week2025.30" }

type fakeJobStore struct {
	notifCutoff time.Time
	snapCutoff  time.Time
	violCutoff  time.Time
	locked      bool
}

func (f *fakeJobStore) DeleteReadNotificationsBefore(_ context.Context, c time.Time) (int64, error) {
	f.notifCutoff = c
	return 2, nil
}

func (f *fakeJobStore) DeleteSnapshotsBefore(_ context.Context, c time.Time) (int64, error) {
	f.snapCutoff = c
	return 1, nil
}

func (f *fakeJobStore) DeleteResolvedViolationsBefore(_ context.Context, c time.Time) (int64, error) {
	f.violCutoff = c
	return 0, nil
}

func (f *fakeJobStore) TryAdvisoryLock(context.Context, int64) (bool, error) {
	return !f.locked, nil
}

func (f *fakeJobStore) AdvisoryUnlock(context.Context, int64) error { return nil }

func testConfig() config.Config {
	return config.Config{
		TZ:            "UTC",
		SnapshotCron:  "0 17 * * FRI",
		CleanupCron:   "0 2 * * *",
		RetentionDays: 30,
		StopTimeout:   2 * time.Second,
	}
}

func newTestScheduler(t *testing.T, svc *fakeService, st *fakeJobStore) *Scheduler {
	t.Helper()
	s, err := NewScheduler(testConfig(), zerolog.Nop(), svc, st)
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}
	return s
}

func TestBadCronSpecRejected(t *testing.T) {
	cfg := testConfig()
	cfg.SnapshotCron = "not a cron line"
	if _, err := NewScheduler(cfg, zerolog.Nop(), &fakeService{}, &fakeJobStore{}); err == nil {
		t.Fatal("expected error for invalid cron spec")
	}
}

func TestStartIsIdempotent(t *testing.T) {
	s := newTestScheduler(t, &fakeService{}, &fakeJobStore{})
	s.Start()
	s.Start()
	st := s.Status()
	if !st.Running || st.Jobs != 2 {
		t.Errorf("status = %+v, want running with 2 jobs", st)
	}
	if st.NextSnapshot.IsZero() || st.NextCleanup.IsZero() {
		t.Error("next fire times should be set while running")
	}
	s.Stop()
	if st := s.Status(); st.Running {
		t.Error("scheduler reports running after Stop")
	}
}

func TestStopWhenStopped(t *testing.T) {
	s := newTestScheduler(t, &fakeService{}, &fakeJobStore{})
	s.Stop()
	s.Stop()
	if st := s.Status(); st.Running {
		t.Error("scheduler reports running after Stop")
	}
}

func TestStopCompletesWithinTimeout(t *testing.T) {
	cfg := testConfig()
	cfg.StopTimeout = 50 * time.Millisecond
	s, err := NewScheduler(cfg, zerolog.Nop(), &fakeService{}, &fakeJobStore{})
	if err != nil {
		t.Fatal(err)
	}
	s.Start()
	start := time.Now()
	s.Stop()
	// stop is complete even if the wait budget is tiny
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Stop took %v", elapsed)
	}
	if st := s.Status(); st.Running {
		t.Error("scheduler reports running after Stop")
	}
}

func TestSnapshotJobRunsCycleAndConventions(t *testing.T) {
	svc := &fakeService{}
	s := newTestScheduler(t, svc, &fakeJobStore{})
	s.snapshotJob()
	if svc.cycles != 1 || svc.conventions != 1 {
		t.Errorf("cycles=%d conventions=%d, want 1 and 1", svc.cycles, svc.conventions)
	}
}

func TestSnapshotJobSkipsWhenLocked(t *testing.T) {
	svc := &fakeService{}
	s := newTestScheduler(t, svc, &fakeJobStore{locked: true})
	s.snapshotJob()
	if svc.cycles != 0 {
		t.Errorf("cycle ran despite held lock")
	}
}

func TestCleanupCutoff(t *testing.T) {
	st := &fakeJobStore{}
	s := newTestScheduler(t, &fakeService{}, st)
	before := time.Now().UTC().AddDate(0, 0, -30)
	s.cleanupJob()
	after := time.Now().UTC().AddDate(0, 0, -30)

	for _, c := range []time.Time{st.notifCutoff, st.snapCutoff, st.violCutoff} {
		if c.Before(before) || c.After(after) {
			t.Errorf("cutoff %v outside expected window [%v, %v]", c, before, after)
		}
	}
}

func TestJobPanicIsContained(t *testing.T) {
	svc := &fakeService{panics: true}
	s := newTestScheduler(t, svc, &fakeJobStore{})
	s.snapshotJob() // must not propagate the panic
}
