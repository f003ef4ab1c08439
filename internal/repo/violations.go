package repo

import (
	"context"
	"time"

	"github.com/HamedShams/release-pulse/internal/domain"
)

func (r *Repository) CreateViolation(ctx context.Context, v domain.Violation) error {
	const q = `INSERT INTO convention_violations(ticket_key, release_id, violation_type, description, severity)
        VALUES($1,$2,$3,$4,$5)`
	if _, err := r.db.Pool.Exec(ctx, q, v.TicketKey, v.ReleaseID, v.Type, v.Description, v.Severity); err != nil {
		r.log.Error().Err(err).Str("ticket", v.TicketKey).Str("type", v.Type).Msg("create violation failed")
		return classify("repo.CreateViolation", err)
	}
	return nil
}

// Violations lists a release's violations newest-first; resolved entries
// are excluded unless includeResolved is set.
func (r *Repository) Violations(ctx context.Context, releaseID string, includeResolved bool) ([]domain.Violation, error) {
	q := `SELECT id, ticket_key, release_id, violation_type, description, severity, detected_at, resolved
        FROM convention_violations WHERE release_id=$1`
	if !includeResolved {
		q += ` AND resolved = FALSE`
	}
	q += ` ORDER BY detected_at DESC`
	rows, err := r.db.Pool.Query(ctx, q, releaseID)
	if err != nil {
		return nil, classify("repo.Violations", err)
	}
	defer rows.Close()
	out := []domain.Violation{}
	for rows.Next() {
		var v domain.Violation
		if err := rows.Scan(&v.ID, &v.TicketKey, &v.ReleaseID, &v.Type, &v.Description,
			&v.Severity, &v.DetectedAt, &v.Resolved); err != nil {
			return nil, classify("repo.Violations", err)
		}
		out = append(out, v)
	}
	return out, classify("repo.Violations", rows.Err())
}

// ResolveViolation is idempotent; resolving an already-resolved entry is a
// no-op success.
func (r *Repository) ResolveViolation(ctx context.Context, id int64) error {
	if _, err := r.db.Pool.Exec(ctx,
		`UPDATE convention_violations SET resolved = TRUE WHERE id=$1`, id); err != nil {
		return classify("repo.ResolveViolation", err)
	}
	return nil
}

// DeleteResolvedViolationsBefore removes violations that are both resolved
// and detected before cutoff. Unresolved entries survive regardless of age.
func (r *Repository) DeleteResolvedViolationsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Pool.Exec(ctx,
		`DELETE FROM convention_violations WHERE detected_at < $1 AND resolved = TRUE`, cutoff)
	if err != nil {
		return 0, classify("repo.DeleteResolvedViolationsBefore", err)
	}
	return tag.RowsAffected(), nil
}
