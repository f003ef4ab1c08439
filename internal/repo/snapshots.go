package repo

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/HamedShams/release-pulse/internal/domain"
	"github.com/jackc/pgx/v5"
)

// CreateSnapshot appends a full capture of the ticket set. Snapshots are
// never overwritten; retention is the only delete path.
func (r *Repository) CreateSnapshot(ctx context.Context, releaseID string, tickets []domain.Ticket) error {
	data, err := json.Marshal(tickets)
	if err != nil {
		return &StoreError{Op: "repo.CreateSnapshot", Kind: KindPermanent, Err: err}
	}
	const q = `INSERT INTO snapshots(release_id, snapshot_date, ticket_data) VALUES($1, now(), $2)`
	if _, err := r.db.Pool.Exec(ctx, q, releaseID, data); err != nil {
		r.log.Error().Err(err).Str("release", releaseID).Msg("create snapshot failed")
		return classify("repo.CreateSnapshot", err)
	}
	return nil
}

// LatestSnapshot returns the snapshot with the maximum capture timestamp,
// or nil when the release has none.
func (r *Repository) LatestSnapshot(ctx context.Context, releaseID string) (*domain.Snapshot, error) {
	const q = `SELECT id, release_id, snapshot_date, ticket_data
        FROM snapshots WHERE release_id=$1
        ORDER BY snapshot_date DESC LIMIT 1`
	var s domain.Snapshot
	var data []byte
	row := r.db.Pool.QueryRow(ctx, q, releaseID)
	if err := row.Scan(&s.ID, &s.ReleaseID, &s.SnapshotDate, &data); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, classify("repo.LatestSnapshot", err)
	}
	if err := json.Unmarshal(data, &s.Tickets); err != nil {
		return nil, &StoreError{Op: "repo.LatestSnapshot", Kind: KindPermanent, Err: err}
	}
	return &s, nil
}

// DeleteSnapshotsBefore removes snapshots captured before cutoff and
// returns how many were deleted.
func (r *Repository) DeleteSnapshotsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM snapshots WHERE snapshot_date < $1`, cutoff)
	if err != nil {
		return 0, classify("repo.DeleteSnapshotsBefore", err)
	}
	return tag.RowsAffected(), nil
}
