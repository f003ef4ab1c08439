/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */

// Package health aggregates liveness probes over the store, the scheduler
// and data freshness into one report for the health endpoint.
package health

import (
	"context"
	"fmt"
	"time"

	"github.com/HamedShams/release-pulse/internal/config"
	"github.com/HamedShams/release-pulse/internal/domain"
	"github.com/HamedShams/release-pulse/internal/jobs"
	"github.com/HamedShams/release-pulse/internal/repo"
	"github.com/rs/zerolog"
)

type store interface {
	Counts(ctx context.Context) (releases, tickets int64, err error)
	LatestSync(ctx context.Context, releaseID string) (*domain.Ticket, error)
}

type scheduler interface {
	Status() jobs.Status
}

type Component struct {
	Healthy bool   `json:"healthy"`
	Detail  string `json:"detail,omitempty"`
}

type Overall struct {
	Healthy bool    `json:"healthy"`
	Score   float64 `json:"score"`
}

// Report is one point-in-time evaluation of all components. Overall is the
// conjunction of the components; Score is the fraction that passed.
type Report struct {
	Overall    Overall              `json:"overall"`
	Components map[string]Component `json:"components"`
	CheckedAt  time.Time            `json:"checked_at"`
}

type Monitor struct {
	cfg   config.Config
	log   zerolog.Logger
	store store
	sched scheduler
	now   func() time.Time
}

func NewMonitor(cfg config.Config, log zerolog.Logger, st store, sched scheduler) *Monitor {
	return &Monitor{cfg: cfg, log: log, store: st, sched: sched, now: time.Now}
}

// Check runs every probe and assembles the report. A failing probe never
// returns an error from Check itself; failures are reported, not raised.
func (m *Monitor) Check(ctx context.Context) Report {
	now := m.now()
	components := map[string]Component{
		"database":  m.checkDatabase(ctx),
		"scheduler": m.checkScheduler(),
		"freshness": m.checkFreshness(ctx, now),
	}

	healthy := 0
	for _, c := range components {
		if c.Healthy {
			healthy++
		}
	}
	return Report{
		Overall: Overall{
			Healthy: healthy == len(components),
			Score:   float64(healthy) / float64(len(components)),
		},
		Components: components,
		CheckedAt:  now,
	}
}

func (m *Monitor) checkDatabase(ctx context.Context) Component {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	releases, tickets, err := m.store.Counts(ctx)
	if err != nil {
		m.log.Warn().Err(err).Msg("health: database probe failed")
		return Component{Detail: err.Error()}
	}
	return Component{Healthy: true, Detail: fmt.Sprintf("%d releases, %d tickets", releases, tickets)}
}

func (m *Monitor) checkScheduler() Component {
	st := m.sched.Status()
	if !st.Running {
		return Component{Detail: "scheduler is not running"}
	}
	return Component{Healthy: true, Detail: fmt.Sprintf("%d jobs, next snapshot %s", st.Jobs, st.NextSnapshot.Format(time.RFC3339))}
}

func (m *Monitor) checkFreshness(ctx context.Context, now time.Time) Component {
	releaseID := config.CurrentReleaseID(now)
	latest, err := m.store.LatestSync(ctx, releaseID)
	if repo.IsNotFound(err) {
		return Component{Detail: "no tickets found for current release"}
	}
	if err != nil {
		m.log.Warn().Err(err).Msg("health: freshness probe failed")
		return Component{Detail: err.Error()}
	}
	age := now.Sub(latest.LastSynced)
	limit := time.Duration(m.cfg.FreshnessHours) * time.Hour
	if age > limit {
		return Component{Detail: fmt.Sprintf("last sync %s ago exceeds %dh limit", age.Round(time.Minute), m.cfg.FreshnessHours)}
	}
	return Component{Healthy: true, Detail: fmt.Sprintf("last sync %s ago", age.Round(time.Minute))}
}
