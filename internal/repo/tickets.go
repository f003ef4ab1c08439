package repo

import (
	"context"

	"github.com/HamedShams/release-pulse/internal/domain"
	"github.com/jackc/pgx/v5"
)

const upsertTicketSQL = `
    INSERT INTO tickets(key, release_id, summary, status, assignee, priority,
        issue_type, reporter, created_date, updated_date, raw_data, last_synced)
    VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,now())
    ON CONFLICT(key) DO UPDATE SET
        release_id=EXCLUDED.release_id,
        summary=EXCLUDED.summary,
        status=EXCLUDED.status,
        assignee=EXCLUDED.assignee,
        priority=EXCLUDED.priority,
        issue_type=EXCLUDED.issue_type,
        reporter=EXCLUDED.reporter,
        created_date=EXCLUDED.created_date,
        updated_date=EXCLUDED.updated_date,
        raw_data=EXCLUDED.raw_data,
        last_synced=now()`

// UpsertTicket inserts or fully replaces the row for t.Key. Last writer
// wins; there is no merge.
func (r *Repository) UpsertTicket(ctx context.Context, t domain.Ticket) error {
	_, err := r.db.Pool.Exec(ctx, upsertTicketSQL, t.Key, t.ReleaseID, t.Summary, t.Status, t.Assignee,
		t.Priority, t.IssueType, t.Reporter, t.CreatedDate, t.UpdatedDate, t.Raw)
	if err != nil {
		r.log.Error().Err(err).Str("key", t.Key).Msg("upsert ticket failed")
		return classify("repo.UpsertTicket", err)
	}
	return nil
}

// UpsertTickets replaces the rows for a whole fetched set in one batch
// round trip. Per-row semantics match UpsertTicket.
func (r *Repository) UpsertTickets(ctx context.Context, tickets []domain.Ticket) error {
	if len(tickets) == 0 {
		return nil
	}
	b := &pgx.Batch{}
	for _, t := range tickets {
		b.Queue(upsertTicketSQL, t.Key, t.ReleaseID, t.Summary, t.Status, t.Assignee,
			t.Priority, t.IssueType, t.Reporter, t.CreatedDate, t.UpdatedDate, t.Raw)
	}
	br := r.db.Pool.SendBatch(ctx, b)
	defer br.Close()
	for range tickets {
		if _, err := br.Exec(); err != nil {
			r.log.Error().Err(err).Int("count", len(tickets)).Msg("batch upsert failed")
			return classify("repo.UpsertTickets", err)
		}
	}
	return nil
}

// TicketsForRelease returns the release's tickets, most recently updated
// first. An empty release yields an empty slice, not an error.
func (r *Repository) TicketsForRelease(ctx context.Context, releaseID string) ([]domain.Ticket, error) {
	const q = `SELECT key, release_id, summary, status, assignee, priority,
            issue_type, reporter, created_date, updated_date, raw_data, last_synced
        FROM tickets WHERE release_id=$1
        ORDER BY updated_date DESC NULLS LAST`
	rows, err := r.db.Pool.Query(ctx, q, releaseID)
	if err != nil {
		return nil, classify("repo.TicketsForRelease", err)
	}
	defer rows.Close()
	out := []domain.Ticket{}
	for rows.Next() {
		var t domain.Ticket
		if err := rows.Scan(&t.Key, &t.ReleaseID, &t.Summary, &t.Status, &t.Assignee,
			&t.Priority, &t.IssueType, &t.Reporter, &t.CreatedDate, &t.UpdatedDate,
			&t.Raw, &t.LastSynced); err != nil {
			return nil, classify("repo.TicketsForRelease", err)
		}
		out = append(out, t)
	}
	return out, classify("repo.TicketsForRelease", rows.Err())
}

type TicketStats struct {
	Total      int64            `json:"total"`
	ByStatus   map[string]int64 `json:"by_status"`
	ByPriority map[string]int64 `json:"by_priority"`
}

// TicketStatistics computes counts at query time; nothing is cached.
func (r *Repository) TicketStatistics(ctx context.Context, releaseID string) (*TicketStats, error) {
	stats := &TicketStats{ByStatus: map[string]int64{}, ByPriority: map[string]int64{}}
	if err := r.db.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM tickets WHERE release_id=$1`, releaseID).Scan(&stats.Total); err != nil {
		return nil, classify("repo.TicketStatistics", err)
	}
	rows, err := r.db.Pool.Query(ctx,
		`SELECT status, COUNT(*) FROM tickets WHERE release_id=$1 GROUP BY status`, releaseID)
	if err != nil {
		return nil, classify("repo.TicketStatistics", err)
	}
	defer rows.Close()
	for rows.Next() {
		var k string
		var c int64
		if err := rows.Scan(&k, &c); err != nil {
			return nil, classify("repo.TicketStatistics", err)
		}
		stats.ByStatus[k] = c
	}
	rows2, err := r.db.Pool.Query(ctx,
		`SELECT priority, COUNT(*) FROM tickets WHERE release_id=$1 GROUP BY priority`, releaseID)
	if err != nil {
		return nil, classify("repo.TicketStatistics", err)
	}
	defer rows2.Close()
	for rows2.Next() {
		var k string
		var c int64
		if err := rows2.Scan(&k, &c); err != nil {
			return nil, classify("repo.TicketStatistics", err)
		}
		stats.ByPriority[k] = c
	}
	return stats, nil
}

// LatestSync returns the newest last_synced timestamp for the release's
// tickets, and whether any tickets exist at all.
func (r *Repository) LatestSync(ctx context.Context, releaseID string) (latest *domain.Ticket, err error) {
	const q = `SELECT key, release_id, summary, status, assignee, priority,
            issue_type, reporter, created_date, updated_date, raw_data, last_synced
        FROM tickets WHERE release_id=$1
        ORDER BY last_synced DESC LIMIT 1`
	var t domain.Ticket
	row := r.db.Pool.QueryRow(ctx, q, releaseID)
	if err := row.Scan(&t.Key, &t.ReleaseID, &t.Summary, &t.Status, &t.Assignee,
		&t.Priority, &t.IssueType, &t.Reporter, &t.CreatedDate, &t.UpdatedDate,
		&t.Raw, &t.LastSynced); err != nil {
		return nil, classify("repo.LatestSync", err)
	}
	return &t, nil
}
