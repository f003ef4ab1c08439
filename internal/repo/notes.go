package repo

import (
	"context"
	"strconv"

	"github.com/HamedShams/release-pulse/internal/domain"
)

func (r *Repository) CreateNote(ctx context.Context, n domain.Note) (int64, error) {
	const q = `INSERT INTO personal_notes(title, content, note_type, ticket_key, release_id, tags)
        VALUES($1,$2,$3,$4,$5,$6) RETURNING id`
	tags := n.Tags
	if tags == nil {
		tags = []string{}
	}
	var id int64
	err := r.db.Pool.QueryRow(ctx, q, n.Title, n.Content, n.Type, n.TicketKey, n.ReleaseID, tags).Scan(&id)
	if err != nil {
		r.log.Error().Err(err).Str("type", n.Type).Msg("create note failed")
		return 0, classify("repo.CreateNote", err)
	}
	return id, nil
}

type NoteFilter struct {
	Type      string
	ReleaseID string
	TicketKey string
}

// Notes lists personal notes, newest-updated first, optionally narrowed by
// type, release, or ticket.
func (r *Repository) Notes(ctx context.Context, f NoteFilter) ([]domain.Note, error) {
	q := `SELECT id, title, content, note_type, ticket_key, release_id, tags, created_at, updated_at
        FROM personal_notes WHERE 1=1`
	args := []any{}
	if f.Type != "" {
		args = append(args, f.Type)
		q += ` AND note_type = $1`
	}
	if f.ReleaseID != "" {
		args = append(args, f.ReleaseID)
		q += ` AND release_id = $` + strconv.Itoa(len(args))
	}
	if f.TicketKey != "" {
		args = append(args, f.TicketKey)
		q += ` AND ticket_key = $` + strconv.Itoa(len(args))
	}
	q += ` ORDER BY updated_at DESC`
	rows, err := r.db.Pool.Query(ctx, q, args...)
	if err != nil {
		return nil, classify("repo.Notes", err)
	}
	defer rows.Close()
	out := []domain.Note{}
	for rows.Next() {
		var n domain.Note
		if err := rows.Scan(&n.ID, &n.Title, &n.Content, &n.Type, &n.TicketKey,
			&n.ReleaseID, &n.Tags, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, classify("repo.Notes", err)
		}
		out = append(out, n)
	}
	return out, classify("repo.Notes", rows.Err())
}

func (r *Repository) UpdateNote(ctx context.Context, id int64, title, content string, tags []string) error {
	if tags == nil {
		tags = []string{}
	}
	tag, err := r.db.Pool.Exec(ctx, `UPDATE personal_notes
        SET title=$2, content=$3, tags=$4, updated_at=now() WHERE id=$1`,
		id, title, content, tags)
	if err != nil {
		return classify("repo.UpdateNote", err)
	}
	if tag.RowsAffected() == 0 {
		return &StoreError{Op: "repo.UpdateNote", Kind: KindPermanent, Err: ErrNotFound}
	}
	return nil
}

func (r *Repository) DeleteNote(ctx context.Context, id int64) error {
	if _, err := r.db.Pool.Exec(ctx, `DELETE FROM personal_notes WHERE id=$1`, id); err != nil {
		return classify("repo.DeleteNote", err)
	}
	return nil
}
