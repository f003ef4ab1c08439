package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/HamedShams/release-pulse/internal/config"
	"github.com/HamedShams/release-pulse/internal/domain"
	"github.com/HamedShams/release-pulse/internal/health"
	"github.com/HamedShams/release-pulse/internal/jobs"
	"github.com/HamedShams/release-pulse/internal/repo"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

type stubService struct{ synced chan string }

func (s *stubService) TicketsForRelease(context.Context, string) ([]domain.Ticket, error) {
	return []domain.Ticket{{Key: "REL-1"}}, nil
}

func (s *stubService) CheckForUpdates(_ context.Context, releaseID string) (int, error) {
	if s.synced != nil {
		s.synced <- releaseID
	}
	return 0, nil
}

func (s *stubService) CheckConventions(context.Context, string) (int, error) { return 0, nil }
func (s *stubService) Refresh(context.Context, string) error                 { return nil }
func (s *stubService) CurrentReleaseID() string                              { return "week2025.30" }

type stubStore struct {
	release *domain.Release
	notes   []domain.Note
	marked  []int64
}

func (s *stubStore) GetRelease(_ context.Context, id string) (*domain.Release, error) {
	if s.release == nil || s.release.ID != id {
		return nil, repo.ErrNotFound
	}
	return s.release, nil
}

func (s *stubStore) ListReleases(context.Context) ([]domain.Release, error) {
	if s.release == nil {
		return nil, nil
	}
	return []domain.Release{*s.release}, nil
}

func (s *stubStore) TicketStatistics(context.Context, string) (*repo.TicketStats, error) {
	return &repo.TicketStats{Total: 1}, nil
}

func (s *stubStore) Notifications(context.Context, string, bool) ([]domain.Notification, error) {
	return nil, nil
}

func (s *stubStore) MarkRead(_ context.Context, id int64) error {
	s.marked = append(s.marked, id)
	return nil
}

func (s *stubStore) MarkAllRead(context.Context, string) (int64, error) { return 3, nil }

func (s *stubStore) Violations(context.Context, string, bool) ([]domain.Violation, error) {
	return nil, nil
}

func (s *stubStore) ResolveViolation(context.Context, int64) error { return nil }

func (s *stubStore) CreateNote(_ context.Context, n domain.Note) (int64, error) {
	s.notes = append(s.notes, n)
	return int64(len(s.notes)), nil
}

func (s *stubStore) Notes(context.Context, repo.NoteFilter) ([]domain.Note, error) {
	return s.notes, nil
}

func (s *stubStore) UpdateNote(context.Context, int64, string, string, []string) error { return nil }
func (s *stubStore) DeleteNote(context.Context, int64) error                           { return nil }

type stubMonitor struct{ healthy bool }

func (m *stubMonitor) Check(context.Context) health.Report {
	return health.Report{Overall: health.Overall{Healthy: m.healthy}}
}

type stubSched struct{ ran bool }

func (s *stubSched) Status() jobs.Status { return jobs.Status{Running: true, Jobs: 2} }
func (s *stubSched) RunSnapshotNow()     { s.ran = true }

func newTestRouter(svc service, st store, mon monitor, sched scheduler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	cfg := config.Config{AppEnv: "test"}
	h := NewHandlers(cfg, zerolog.Nop(), svc, st, mon, sched)
	return NewRouter(cfg, zerolog.Nop(), h)
}

func do(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealthzStatusCodes(t *testing.T) {
	r := newTestRouter(&stubService{}, &stubStore{}, &stubMonitor{healthy: true}, &stubSched{})
	if w := do(r, "GET", "/healthz", ""); w.Code != http.StatusOK {
		t.Errorf("healthy = %d, want 200", w.Code)
	}
	r = newTestRouter(&stubService{}, &stubStore{}, &stubMonitor{healthy: false}, &stubSched{})
	if w := do(r, "GET", "/healthz", ""); w.Code != http.StatusServiceUnavailable {
		t.Errorf("unhealthy = %d, want 503", w.Code)
	}
}

func TestGetReleaseNotFound(t *testing.T) {
	r := newTestRouter(&stubService{}, &stubStore{}, &stubMonitor{healthy: true}, &stubSched{})
	if w := do(r, "GET", "/api/releases/week2020.01", ""); w.Code != http.StatusNotFound {
		t.Errorf("missing release = %d, want 404", w.Code)
	}
}

func TestGetReleaseFound(t *testing.T) {
	st := &stubStore{release: &domain.Release{ID: "week2025.30", Status: domain.ReleaseActive}}
	r := newTestRouter(&stubService{}, st, &stubMonitor{healthy: true}, &stubSched{})
	w := do(r, "GET", "/api/releases/week2025.30", "")
	if w.Code != http.StatusOK {
		t.Fatalf("code = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "week2025.30") {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestSyncQueuesInBackground(t *testing.T) {
	svc := &stubService{synced: make(chan string, 1)}
	r := newTestRouter(svc, &stubStore{}, &stubMonitor{healthy: true}, &stubSched{})
	w := do(r, "POST", "/api/releases/week2025.30/sync", "")
	if w.Code != http.StatusAccepted {
		t.Fatalf("code = %d, want 202", w.Code)
	}
	select {
	case rel := <-svc.synced:
		if rel != "week2025.30" {
			t.Errorf("synced %q", rel)
		}
	case <-time.After(time.Second):
		t.Fatal("background sync never ran")
	}
}

func TestMarkNotificationReadValidation(t *testing.T) {
	st := &stubStore{}
	r := newTestRouter(&stubService{}, st, &stubMonitor{healthy: true}, &stubSched{})
	if w := do(r, "POST", "/api/notifications/abc/read", ""); w.Code != http.StatusBadRequest {
		t.Errorf("bad id = %d, want 400", w.Code)
	}
	if w := do(r, "POST", "/api/notifications/7/read", ""); w.Code != http.StatusOK {
		t.Errorf("mark read = %d, want 200", w.Code)
	}
	if len(st.marked) != 1 || st.marked[0] != 7 {
		t.Errorf("marked = %v", st.marked)
	}
}

func TestCreateNoteRequiresTitle(t *testing.T) {
	st := &stubStore{}
	r := newTestRouter(&stubService{}, st, &stubMonitor{healthy: true}, &stubSched{})
	if w := do(r, "POST", "/api/notes", `{"content":"no title"}`); w.Code != http.StatusBadRequest {
		t.Errorf("missing title = %d, want 400", w.Code)
	}
	w := do(r, "POST", "/api/notes", `{"title":"retro","content":"ok","tags":["t1"]}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create = %d, want 201", w.Code)
	}
	if len(st.notes) != 1 || st.notes[0].Type != domain.NoteTypeRelease {
		t.Errorf("notes = %+v", st.notes)
	}
}

func TestAdminSchedulerRun(t *testing.T) {
	sched := &stubSched{}
	r := newTestRouter(&stubService{}, &stubStore{}, &stubMonitor{healthy: true}, sched)
	if w := do(r, "GET", "/admin/scheduler", ""); w.Code != http.StatusOK {
		t.Errorf("status = %d", w.Code)
	}
	if w := do(r, "POST", "/admin/scheduler/run", ""); w.Code != http.StatusAccepted {
		t.Errorf("run = %d, want 202", w.Code)
	}
	// RunSnapshotNow is fired on a goroutine
	deadline := time.Now().Add(time.Second)
	for !sched.ran && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if !sched.ran {
		t.Error("snapshot never triggered")
	}
}
