/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/HamedShams/release-pulse/internal/adapters/jira"
	"github.com/HamedShams/release-pulse/internal/config"
	"github.com/HamedShams/release-pulse/internal/health"
	httpapi "github.com/HamedShams/release-pulse/internal/http"
	"github.com/HamedShams/release-pulse/internal/jobs"
	"github.com/HamedShams/release-pulse/internal/logger"
	"github.com/HamedShams/release-pulse/internal/repo"
	"github.com/HamedShams/release-pulse/internal/services"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db := repo.MustOpen(ctx, cfg, log)
	defer db.Close()
	repository := repo.NewRepository(db, log)

	// Tracker
	var tracker services.Tracker
	if cfg.JiraMock {
		log.Info().Msg("using mock tracker")
		tracker = jira.NewMock(cfg.JiraProject)
	} else {
		tracker = jira.NewClient(cfg, log)
	}

	svc := services.New(cfg, log, repository, tracker)

	sched, err := jobs.NewScheduler(cfg, log, svc, repository)
	if err != nil {
		log.Fatal().Err(err).Msg("scheduler init failed")
	}
	sched.Start()
	defer sched.Stop()

	mon := health.NewMonitor(cfg, log, repository, sched)

	h := httpapi.NewHandlers(cfg, log, svc, repository, mon, sched)
	router := httpapi.NewRouter(cfg, log, h)

	errCh := make(chan error, 1)
	go func() { errCh <- router.Run(cfg.HTTPAddr) }()
	log.Info().Str("addr", cfg.HTTPAddr).Str("release", svc.CurrentReleaseID()).Msg("release-pulse up")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		log.Info().Msg("shutting down...")
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("http server error")
		}
	}

	time.Sleep(500 * time.Millisecond)
}
