/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package repo

import (
	"context"
	"time"

	"github.com/HamedShams/release-pulse/internal/config"
	"github.com/HamedShams/release-pulse/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

type DB struct {
	Pool *pgxpool.Pool
	log  zerolog.Logger
}

func MustOpen(ctx context.Context, cfg config.Config, log zerolog.Logger) *DB {
	pool, err := pgxpool.New(ctx, cfg.DBDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("db connect failed")
	}
	ctx2, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := pool.Ping(ctx2); err != nil {
		log.Fatal().Err(err).Msg("db ping failed")
	}
	db := &DB{Pool: pool, log: log}
	if err := db.initSchema(ctx); err != nil {
		log.Fatal().Err(err).Msg("schema init failed")
	}
	return db
}

func (d *DB) Close() { d.Pool.Close() }

var schema = []string{
	`CREATE TABLE IF NOT EXISTS releases(
        id          TEXT PRIMARY KEY,
        start_date  DATE NOT NULL,
        end_date    DATE NOT NULL,
        status      TEXT NOT NULL DEFAULT 'active',
        created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
    )`,
	`CREATE TABLE IF NOT EXISTS tickets(
        key          TEXT PRIMARY KEY,
        release_id   TEXT NOT NULL REFERENCES releases(id),
        summary      TEXT NOT NULL DEFAULT '',
        status       TEXT NOT NULL DEFAULT '',
        assignee     TEXT,
        priority     TEXT NOT NULL DEFAULT '',
        issue_type   TEXT NOT NULL DEFAULT '',
        reporter     TEXT,
        created_date TIMESTAMPTZ,
        updated_date TIMESTAMPTZ,
        raw_data     JSONB,
        last_synced  TIMESTAMPTZ NOT NULL DEFAULT now()
    )`,
	`CREATE INDEX IF NOT EXISTS tickets_release_idx ON tickets(release_id, updated_date DESC)`,
	`CREATE TABLE IF NOT EXISTS snapshots(
        id            BIGSERIAL PRIMARY KEY,
        release_id    TEXT NOT NULL REFERENCES releases(id),
        snapshot_date TIMESTAMPTZ NOT NULL DEFAULT now(),
        ticket_data   JSONB NOT NULL
    )`,
	`CREATE INDEX IF NOT EXISTS snapshots_release_idx ON snapshots(release_id, snapshot_date DESC)`,
	`CREATE TABLE IF NOT EXISTS notifications(
        id                BIGSERIAL PRIMARY KEY,
        ticket_key        TEXT NOT NULL,
        release_id        TEXT NOT NULL,
        notification_type TEXT NOT NULL,
        title             TEXT NOT NULL,
        message           TEXT NOT NULL,
        is_read           BOOLEAN NOT NULL DEFAULT FALSE,
        metadata          JSONB NOT NULL DEFAULT '{}'::jsonb,
        created_at        TIMESTAMPTZ NOT NULL DEFAULT now()
    )`,
	`CREATE INDEX IF NOT EXISTS notifications_release_idx ON notifications(release_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS personal_notes(
        id         BIGSERIAL PRIMARY KEY,
        title      TEXT NOT NULL DEFAULT '',
        content    TEXT NOT NULL,
        note_type  TEXT NOT NULL CHECK (note_type IN ('ticket','release')),
        ticket_key TEXT,
        release_id TEXT,
        tags       TEXT[] NOT NULL DEFAULT '{}',
        created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
        updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
    )`,
	`CREATE TABLE IF NOT EXISTS convention_violations(
        id             BIGSERIAL PRIMARY KEY,
        ticket_key     TEXT NOT NULL,
        release_id     TEXT NOT NULL,
        violation_type TEXT NOT NULL,
        description    TEXT NOT NULL,
        severity       TEXT NOT NULL CHECK (severity IN ('low','medium','high')),
        detected_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
        resolved       BOOLEAN NOT NULL DEFAULT FALSE
    )`,
}

func (d *DB) initSchema(ctx context.Context) error {
	for _, q := range schema {
		if _, err := d.Pool.Exec(ctx, q); err != nil {
			return classify("repo.initSchema", err)
		}
	}
	return nil
}

type Repository struct {
	db  *DB
	log zerolog.Logger
}

func NewRepository(d *DB, log zerolog.Logger) *Repository { return &Repository{db: d, log: log} }

// EnsureRelease creates the release row on first reference. Existing rows
// are left untouched (status included).
func (r *Repository) EnsureRelease(ctx context.Context, rel domain.Release) error {
	const q = `INSERT INTO releases(id, start_date, end_date, status)
        VALUES($1,$2,$3,$4)
        ON CONFLICT (id) DO NOTHING`
	status := rel.Status
	if status == "" {
		status = domain.ReleaseActive
	}
	if _, err := r.db.Pool.Exec(ctx, q, rel.ID, rel.StartDate, rel.EndDate, status); err != nil {
		r.log.Error().Err(err).Str("release", rel.ID).Msg("ensure release failed")
		return classify("repo.EnsureRelease", err)
	}
	return nil
}

func (r *Repository) GetRelease(ctx context.Context, releaseID string) (*domain.Release, error) {
	const q = `SELECT id, start_date, end_date, status, created_at FROM releases WHERE id=$1`
	var rel domain.Release
	row := r.db.Pool.QueryRow(ctx, q, releaseID)
	if err := row.Scan(&rel.ID, &rel.StartDate, &rel.EndDate, &rel.Status, &rel.CreatedAt); err != nil {
		return nil, classify("repo.GetRelease", err)
	}
	return &rel, nil
}

func (r *Repository) ListReleases(ctx context.Context) ([]domain.Release, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT id, start_date, end_date, status, created_at
        FROM releases ORDER BY start_date DESC`)
	if err != nil {
		return nil, classify("repo.ListReleases", err)
	}
	defer rows.Close()
	var out []domain.Release
	for rows.Next() {
		var rel domain.Release
		if err := rows.Scan(&rel.ID, &rel.StartDate, &rel.EndDate, &rel.Status, &rel.CreatedAt); err != nil {
			return nil, classify("repo.ListReleases", err)
		}
		out = append(out, rel)
	}
	return out, classify("repo.ListReleases", rows.Err())
}

func (r *Repository) SetReleaseStatus(ctx context.Context, releaseID, status string) error {
	tag, err := r.db.Pool.Exec(ctx, `UPDATE releases SET status=$2 WHERE id=$1`, releaseID, status)
	if err != nil {
		return classify("repo.SetReleaseStatus", err)
	}
	if tag.RowsAffected() == 0 {
		return &StoreError{Op: "repo.SetReleaseStatus", Kind: KindPermanent, Err: ErrNotFound}
	}
	return nil
}

// Counts returns release and ticket totals; used by the health monitor as
// its trivial-query probe.
func (r *Repository) Counts(ctx context.Context) (releases, tickets int64, err error) {
	if err = r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM releases`).Scan(&releases); err != nil {
		return 0, 0, classify("repo.Counts", err)
	}
	if err = r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM tickets`).Scan(&tickets); err != nil {
		return 0, 0, classify("repo.Counts", err)
	}
	return releases, tickets, nil
}

// TryAdvisoryLock attempts a session-level advisory lock; callers use it to
// keep scheduled jobs from running concurrently across replicas.
func (r *Repository) TryAdvisoryLock(ctx context.Context, key int64) (bool, error) {
	var ok bool
	if err := r.db.Pool.QueryRow(ctx, `SELECT pg_try_advisory_lock($1)`, key).Scan(&ok); err != nil {
		return false, classify("repo.TryAdvisoryLock", err)
	}
	return ok, nil
}

func (r *Repository) AdvisoryUnlock(ctx context.Context, key int64) error {
	_, err := r.db.Pool.Exec(ctx, `SELECT pg_advisory_unlock($1)`, key)
	return classify("repo.AdvisoryUnlock", err)
}
