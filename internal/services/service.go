/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/HamedShams/release-pulse/internal/config"
	"github.com/HamedShams/release-pulse/internal/diff"
	"github.com/HamedShams/release-pulse/internal/domain"
	"github.com/rs/zerolog"
)

// Tracker is the slice of the issue tracker the sync service needs.
type Tracker interface {
	FetchTicketsForRelease(ctx context.Context, releaseID string) ([]domain.Ticket, error)
	Refresh(ctx context.Context, releaseID string) error
}

// Store is the slice of the persistence layer the sync service needs.
// *repo.Repository satisfies it; tests substitute fakes.
type Store interface {
	EnsureRelease(ctx context.Context, rel domain.Release) error
	UpsertTickets(ctx context.Context, tickets []domain.Ticket) error
	TicketsForRelease(ctx context.Context, releaseID string) ([]domain.Ticket, error)
	LatestSnapshot(ctx context.Context, releaseID string) (*domain.Snapshot, error)
	CreateSnapshot(ctx context.Context, releaseID string, tickets []domain.Ticket) error
	CreateNotification(ctx context.Context, n domain.Notification) error
	Violations(ctx context.Context, releaseID string, includeResolved bool) ([]domain.Violation, error)
	CreateViolation(ctx context.Context, v domain.Violation) error
}

type cacheEntry struct {
	tickets []domain.Ticket
	expires time.Time
}

// Service drives the sync pipeline: fetch tickets from the tracker, persist
// them, diff against the previous snapshot and turn differences into
// notifications. It also owns the per-release ticket cache.
type Service struct {
	cfg     config.Config
	log     zerolog.Logger
	store   Store
	tracker Tracker

	mu    sync.Mutex
	cache map[string]cacheEntry

	now func() time.Time
}

func New(cfg config.Config, log zerolog.Logger, store Store, tracker Tracker) *Service {
	return &Service{
		cfg:     cfg,
		log:     log,
		store:   store,
		tracker: tracker,
		cache:   make(map[string]cacheEntry),
		now:     time.Now,
	}
}

// CurrentReleaseID returns the release id for the current ISO week.
func (s *Service) CurrentReleaseID() string {
	return config.CurrentReleaseID(s.now())
}

// RunSnapshotCycle performs the full weekly cycle for the current release:
// fetch, persist, diff against the latest snapshot, emit notifications for
// the differences, then append a new snapshot and a snapshot_created system
// notification. The read-diff-write sequence is not atomic; concurrent
// cycles for the same release may duplicate notifications, which readers
// tolerate.
func (s *Service) RunSnapshotCycle(ctx context.Context) (int, error) {
	releaseID := s.CurrentReleaseID()
	log := s.log.With().Str("release", releaseID).Logger()
	log.Info().Msg("snapshot cycle: start")

	tickets, err := s.syncTickets(ctx, releaseID)
	if err != nil {
		return 0, err
	}

	// no baseline here: this caller appends its own snapshot below
	created, err := s.diffAndNotify(ctx, releaseID, tickets, false)
	if err != nil {
		return 0, err
	}

	if err := s.store.CreateSnapshot(ctx, releaseID, tickets); err != nil {
		return created, fmt.Errorf("create snapshot: %w", err)
	}
	sys := domain.Notification{
		TicketKey: domain.SystemTicketKey,
		ReleaseID: releaseID,
		Type:      domain.NotifySnapshotCreated,
		Title:     "Weekly Snapshot Created",
		Message:   fmt.Sprintf("Automated snapshot created for %s with %d tickets", releaseID, len(tickets)),
		Metadata:  map[string]any{"ticket_count": len(tickets)},
	}
	if err := s.store.CreateNotification(ctx, sys); err != nil {
		log.Error().Err(err).Msg("snapshot cycle: system notification failed")
	}

	log.Info().Int("tickets", len(tickets)).Int("notifications", created).Msg("snapshot cycle: done")
	return created, nil
}

// CheckForUpdates fetches the current ticket set, persists it and emits
// notifications for differences against the latest snapshot without
// appending a new snapshot. This backs the on-demand sync endpoint.
func (s *Service) CheckForUpdates(ctx context.Context, releaseID string) (int, error) {
	if releaseID == "" {
		releaseID = s.CurrentReleaseID()
	}
	tickets, err := s.syncTickets(ctx, releaseID)
	if err != nil {
		return 0, err
	}
	return s.diffAndNotify(ctx, releaseID, tickets, true)
}

func (s *Service) syncTickets(ctx context.Context, releaseID string) ([]domain.Ticket, error) {
	start, end := config.ReleaseDates(releaseID, s.now())
	rel := domain.Release{ID: releaseID, StartDate: start, EndDate: end, Status: domain.ReleaseActive}
	if err := s.store.EnsureRelease(ctx, rel); err != nil {
		return nil, fmt.Errorf("ensure release: %w", err)
	}

	tickets, err := s.tracker.FetchTicketsForRelease(ctx, releaseID)
	if err != nil {
		// tracker down: skip the cycle, never write a partial ticket set
		return nil, fmt.Errorf("fetch tickets: %w", err)
	}
	for i := range tickets {
		tickets[i].ReleaseID = releaseID
	}
	if err := s.store.UpsertTickets(ctx, tickets); err != nil {
		return nil, fmt.Errorf("upsert tickets: %w", err)
	}
	s.InvalidateCache(releaseID)
	return tickets, nil
}

// diffAndNotify turns differences against the latest snapshot into stored
// notifications. When there is no snapshot yet there is nothing to compare
// against; persistBaseline controls whether the current set is written as
// the baseline here, so later checks have a reference point, or left to a
// caller that appends its own snapshot anyway.
func (s *Service) diffAndNotify(ctx context.Context, releaseID string, current []domain.Ticket, persistBaseline bool) (int, error) {
	snap, err := s.store.LatestSnapshot(ctx, releaseID)
	if err != nil {
		return 0, fmt.Errorf("latest snapshot: %w", err)
	}
	if snap == nil {
		s.log.Info().Str("release", releaseID).Msg("no previous snapshot, skipping diff")
		if persistBaseline {
			if err := s.store.CreateSnapshot(ctx, releaseID, current); err != nil {
				return 0, fmt.Errorf("create baseline snapshot: %w", err)
			}
		}
		return 0, nil
	}

	events := diff.Changes(diff.ByKey(snap.Tickets), diff.ByKey(current))
	created := 0
	for _, ev := range events {
		n := notificationFor(ev)
		if err := s.store.CreateNotification(ctx, n); err != nil {
			s.log.Error().Err(err).Str("ticket", ev.TicketKey).Msg("create notification failed")
			continue
		}
		created++
	}
	return created, nil
}

// notificationFor renders a change event into the stored notification shape.
func notificationFor(ev domain.ChangeEvent) domain.Notification {
	n := domain.Notification{
		TicketKey: ev.TicketKey,
		ReleaseID: ev.ReleaseID,
		Type:      string(ev.Kind),
	}
	switch ev.Kind {
	case domain.ChangeNew:
		n.Title = "New Ticket Added"
		n.Message = fmt.Sprintf("New ticket %s was added to the release", ev.TicketKey)
		n.Metadata = map[string]any{"ticket_summary": ev.Summary}
	case domain.ChangeRemoved:
		n.Title = "Ticket Removed"
		n.Message = fmt.Sprintf("Ticket %s was removed from the release", ev.TicketKey)
		n.Metadata = map[string]any{"ticket_summary": ev.Summary}
	case domain.ChangeField:
		n.Title = titleCase(ev.Field) + " Changed"
		n.Message = fmt.Sprintf("%s: %s changed from %q to %q", ev.TicketKey, ev.Field, ev.OldValue, ev.NewValue)
		n.Metadata = map[string]any{
			"field":          ev.Field,
			"old_value":      ev.OldValue,
			"new_value":      ev.NewValue,
			"ticket_summary": ev.Summary,
		}
	}
	return n
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// TicketsForRelease returns the stored tickets for a release through a TTL
// cache. Writes go through syncTickets which invalidates the entry.
func (s *Service) TicketsForRelease(ctx context.Context, releaseID string) ([]domain.Ticket, error) {
	s.mu.Lock()
	if e, ok := s.cache[releaseID]; ok && s.now().Before(e.expires) {
		tickets := e.tickets
		s.mu.Unlock()
		return tickets, nil
	}
	s.mu.Unlock()

	tickets, err := s.store.TicketsForRelease(ctx, releaseID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.cache[releaseID] = cacheEntry{tickets: tickets, expires: s.now().Add(s.cfg.TicketCacheTTL)}
	s.mu.Unlock()
	return tickets, nil
}

// InvalidateCache drops the cached ticket list for one release, or all
// releases when releaseID is empty.
func (s *Service) InvalidateCache(releaseID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if releaseID == "" {
		s.cache = make(map[string]cacheEntry)
		return
	}
	delete(s.cache, releaseID)
}

// Refresh asks the tracker to refresh its data for the release and drops
// the local cache so the next read sees it.
func (s *Service) Refresh(ctx context.Context, releaseID string) error {
	if err := s.tracker.Refresh(ctx, releaseID); err != nil {
		return err
	}
	s.InvalidateCache(releaseID)
	return nil
}

// Workflow conventions checked by CheckConventions. Status names follow the
// tracker's workflow.
var (
	requiredFields = map[string][]string{
		"In Progress": {"assignee"},
		"Done":        {"assignee"},
	}
	statusTimeLimits = map[string]int{ // days
		"In Progress": 5,
		"In Review":   2,
	}
)

// CheckConventions scans a release's tickets for workflow violations and
// records new ones. A violation already open for the same ticket and type
// is not recorded again.
func (s *Service) CheckConventions(ctx context.Context, releaseID string) (int, error) {
	if releaseID == "" {
		releaseID = s.CurrentReleaseID()
	}
	tickets, err := s.TicketsForRelease(ctx, releaseID)
	if err != nil {
		return 0, err
	}
	open, err := s.store.Violations(ctx, releaseID, false)
	if err != nil {
		return 0, err
	}
	seen := make(map[string]bool, len(open))
	for _, v := range open {
		seen[v.TicketKey+"|"+v.Type] = true
	}

	created := 0
	now := s.now()
	for _, t := range tickets {
		for _, v := range s.ticketViolations(t, now) {
			if seen[v.TicketKey+"|"+v.Type] {
				continue
			}
			if err := s.store.CreateViolation(ctx, v); err != nil {
				s.log.Error().Err(err).Str("ticket", v.TicketKey).Msg("create violation failed")
				continue
			}
			seen[v.TicketKey+"|"+v.Type] = true
			created++
		}
	}
	return created, nil
}

func (s *Service) ticketViolations(t domain.Ticket, now time.Time) []domain.Violation {
	var out []domain.Violation
	for _, field := range requiredFields[t.Status] {
		if field == "assignee" && (t.Assignee == nil || *t.Assignee == "") {
			out = append(out, domain.Violation{
				TicketKey:   t.Key,
				ReleaseID:   t.ReleaseID,
				Type:        "missing_required_field",
				Severity:    domain.SeverityMedium,
				Description: fmt.Sprintf("Missing required field %q for status %q", field, t.Status),
			})
		}
	}
	if maxDays, ok := statusTimeLimits[t.Status]; ok && t.UpdatedDate != nil {
		days := int(now.Sub(*t.UpdatedDate).Hours() / 24)
		if days > maxDays {
			out = append(out, domain.Violation{
				TicketKey:   t.Key,
				ReleaseID:   t.ReleaseID,
				Type:        "time_limit_exceeded",
				Severity:    domain.SeverityHigh,
				Description: fmt.Sprintf("Ticket has been in %q for %d days (limit: %d)", t.Status, days, maxDays),
			})
		}
	}
	return out
}
