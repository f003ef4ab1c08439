package repo

import (
	"context"
	"encoding/json"
	"time"

	"github.com/HamedShams/release-pulse/internal/domain"
)

func (r *Repository) CreateNotification(ctx context.Context, n domain.Notification) error {
	meta := n.Metadata
	if meta == nil {
		meta = map[string]any{}
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return &StoreError{Op: "repo.CreateNotification", Kind: KindPermanent, Err: err}
	}
	const q = `INSERT INTO notifications(ticket_key, release_id, notification_type, title, message, metadata)
        VALUES($1,$2,$3,$4,$5,$6)`
	if _, err := r.db.Pool.Exec(ctx, q, n.TicketKey, n.ReleaseID, n.Type, n.Title, n.Message, data); err != nil {
		r.log.Error().Err(err).Str("ticket", n.TicketKey).Str("type", n.Type).Msg("create notification failed")
		return classify("repo.CreateNotification", err)
	}
	return nil
}

// Notifications returns a release's notifications newest-first. Read
// entries are excluded unless includeRead is set.
func (r *Repository) Notifications(ctx context.Context, releaseID string, includeRead bool) ([]domain.Notification, error) {
	q := `SELECT id, ticket_key, release_id, notification_type, title, message, is_read, metadata, created_at
        FROM notifications WHERE release_id=$1`
	if !includeRead {
		q += ` AND is_read = FALSE`
	}
	q += ` ORDER BY created_at DESC`
	rows, err := r.db.Pool.Query(ctx, q, releaseID)
	if err != nil {
		return nil, classify("repo.Notifications", err)
	}
	defer rows.Close()
	out := []domain.Notification{}
	for rows.Next() {
		var n domain.Notification
		var meta []byte
		if err := rows.Scan(&n.ID, &n.TicketKey, &n.ReleaseID, &n.Type, &n.Title,
			&n.Message, &n.IsRead, &meta, &n.CreatedAt); err != nil {
			return nil, classify("repo.Notifications", err)
		}
		if len(meta) > 0 {
			_ = json.Unmarshal(meta, &n.Metadata)
		}
		out = append(out, n)
	}
	return out, classify("repo.Notifications", rows.Err())
}

// MarkRead flips the notification to read. Marking an already-read or
// unknown id is a no-op success; the flip only ever goes one way.
func (r *Repository) MarkRead(ctx context.Context, id int64) error {
	if _, err := r.db.Pool.Exec(ctx, `UPDATE notifications SET is_read = TRUE WHERE id=$1`, id); err != nil {
		r.log.Error().Err(err).Int64("id", id).Msg("mark read failed")
		return classify("repo.MarkRead", err)
	}
	return nil
}

func (r *Repository) MarkAllRead(ctx context.Context, releaseID string) (int64, error) {
	tag, err := r.db.Pool.Exec(ctx,
		`UPDATE notifications SET is_read = TRUE WHERE release_id=$1 AND is_read = FALSE`, releaseID)
	if err != nil {
		return 0, classify("repo.MarkAllRead", err)
	}
	return tag.RowsAffected(), nil
}

// DeleteReadNotificationsBefore removes notifications that are both read
// and older than cutoff. Unread entries survive regardless of age.
func (r *Repository) DeleteReadNotificationsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Pool.Exec(ctx,
		`DELETE FROM notifications WHERE created_at < $1 AND is_read = TRUE`, cutoff)
	if err != nil {
		return 0, classify("repo.DeleteReadNotificationsBefore", err)
	}
	return tag.RowsAffected(), nil
}
