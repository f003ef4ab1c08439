package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Kind classifies a store failure so callers can tell a retryable fault
// from one that will keep failing, while keeping err == nil as the
// success check.
type Kind int

const (
	KindNone Kind = iota
	KindTransient
	KindPermanent
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindTransient:
		return "transient"
	default:
		return "permanent"
	}
}

// StoreError wraps a persistence failure with its classification. Nothing
// above the repo boundary ever sees a raw driver error.
type StoreError struct {
	Op   string
	Kind Kind
	Err  error
}

func (e *StoreError) Error() string { return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err) }
func (e *StoreError) Unwrap() error { return e.Err }

// KindOf reports the classification of err, KindNone for nil.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	var se *StoreError
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindPermanent
}

// ErrNotFound marks a missing-row failure.
var ErrNotFound = errors.New("not found")

// IsNotFound reports whether err is a missing-row failure.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// classify wraps a driver error. SQLSTATE classes 08 (connection), 57
// (operator intervention) and 53 (insufficient resources) are transient;
// 22 (data), 23 (constraint) and 42 (syntax/access) are permanent.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return &StoreError{Op: op, Kind: KindPermanent, Err: ErrNotFound}
	}
	kind := KindPermanent
	var pgErr *pgconn.PgError
	switch {
	case errors.As(err, &pgErr):
		switch {
		case strings.HasPrefix(pgErr.Code, "08"),
			strings.HasPrefix(pgErr.Code, "53"),
			strings.HasPrefix(pgErr.Code, "57"):
			kind = KindTransient
		}
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		kind = KindTransient
	case pgconn.Timeout(err):
		kind = KindTransient
	}
	return &StoreError{Op: op, Kind: kind, Err: err}
}
