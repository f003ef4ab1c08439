package repo

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestClassifyNil(t *testing.T) {
	if err := classify("repo.Test", nil); err != nil {
		t.Errorf("classify(nil) = %v", err)
	}
	if KindOf(nil) != KindNone {
		t.Error("KindOf(nil) != KindNone")
	}
}

func TestClassifySQLStates(t *testing.T) {
	cases := []struct {
		code string
		want Kind
	}{
		{"08006", KindTransient}, // connection failure
		{"53300", KindTransient}, // too many connections
		{"57P01", KindTransient}, // admin shutdown
		{"23505", KindPermanent}, // unique violation
		{"42P01", KindPermanent}, // undefined table
		{"22001", KindPermanent}, // string too long
	}
	for _, c := range cases {
		err := classify("repo.Test", &pgconn.PgError{Code: c.code})
		if got := KindOf(err); got != c.want {
			t.Errorf("SQLSTATE %s classified %s, want %s", c.code, got, c.want)
		}
	}
}

func TestClassifyContextErrors(t *testing.T) {
	for _, cause := range []error{context.DeadlineExceeded, context.Canceled} {
		if got := KindOf(classify("repo.Test", cause)); got != KindTransient {
			t.Errorf("%v classified %s, want transient", cause, got)
		}
	}
}

func TestClassifyUnknownIsPermanent(t *testing.T) {
	if got := KindOf(classify("repo.Test", errors.New("mystery"))); got != KindPermanent {
		t.Errorf("unknown error classified %s, want permanent", got)
	}
}

func TestClassifyNoRows(t *testing.T) {
	err := classify("repo.Test", pgx.ErrNoRows)
	if !IsNotFound(err) {
		t.Error("pgx.ErrNoRows should surface as not-found")
	}
	if KindOf(err) != KindPermanent {
		t.Error("not-found should be permanent")
	}
}

func TestStoreErrorUnwraps(t *testing.T) {
	cause := &pgconn.PgError{Code: "08006"}
	err := classify("repo.Ping", cause)
	var se *StoreError
	if !errors.As(err, &se) {
		t.Fatal("expected *StoreError")
	}
	if se.Op != "repo.Ping" {
		t.Errorf("op = %q", se.Op)
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		t.Error("cause lost in wrapping")
	}
}
