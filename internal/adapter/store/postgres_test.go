package store

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"ceiba/internal/domain"
)

type stubExecutor struct {
	err      error
	rows     [][]byte
	inserted bool
	tag      pgconn.CommandTag
	query    string
	args     []any
}

func (s *stubExecutor) Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	s.query, s.args = query, args
	return s.tag, s.err
}

func (s *stubExecutor) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	s.query, s.args = query, args
	return stubRow{inserted: s.inserted, err: s.err}
}

func (s *stubExecutor) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	s.query, s.args = query, args
	if s.err != nil {
		return nil, s.err
	}
	return &stubRows{docs: s.rows, idx: -1}, nil
}

type stubRow struct {
	inserted bool
	err      error
}

func (r stubRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	ptr, ok := dest[0].(*bool)
	if !ok {
		return errors.New("invalid dest")
	}
	*ptr = r.inserted
	return nil
}

type stubRows struct {
	pgx.Rows
	docs [][]byte
	idx  int
}

func (r *stubRows) Next() bool {
	r.idx++
	return r.idx < len(r.docs)
}

func (r *stubRows) Scan(dest ...any) error {
	ptr, ok := dest[0].(*[]byte)
	if !ok {
		return errors.New("invalid dest")
	}
	*ptr = r.docs[r.idx]
	return nil
}

func (r *stubRows) Err() error { return nil }
func (r *stubRows) Close()     {}

func TestPostgresFindBuildsConditions(t *testing.T) {
	exec := &stubExecutor{rows: [][]byte{[]byte(`{"_id":5,"status":"AVAILABLE","property":{"_id":7}}`)}}
	store := NewPostgres(exec)

	docs, err := store.Find(context.Background(), "jobs_c", domain.Filter{"_id": int64(5), "property._id": int64(7)}, 2)
	if err != nil {
		t.Fatalf("Find error: %v", err)
	}
	if len(docs) != 1 || docs[0]["_id"] != int64(5) {
		t.Fatalf("unexpected docs %#v", docs)
	}
	if !strings.HasPrefix(exec.query, "--sql ") {
		t.Fatalf("query lost its marker: %q", exec.query)
	}
	for _, want := range []string{"and id = $2::text", "and doc #>> $3::text[] = $4::text", "limit $5"} {
		if !strings.Contains(exec.query, want) {
			t.Fatalf("query %q does not contain %q", exec.query, want)
		}
	}
	if len(exec.args) != 5 {
		t.Fatalf("expected 5 args, got %d", len(exec.args))
	}
	if exec.args[0] != "jobs_c" || exec.args[1] != "5" || exec.args[3] != "7" {
		t.Fatalf("unexpected args %#v", exec.args)
	}
	path, ok := exec.args[2].([]string)
	if !ok || len(path) != 2 || path[0] != "property" || path[1] != "_id" {
		t.Fatalf("unexpected path arg %#v", exec.args[2])
	}
}

func TestPostgresFindOneNotFound(t *testing.T) {
	store := NewPostgres(&stubExecutor{})
	if _, err := store.FindOne(context.Background(), "c", domain.IDFilter(int64(1))); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPostgresInsertDuplicate(t *testing.T) {
	store := NewPostgres(&stubExecutor{err: &pgconn.PgError{Code: "23505"}})
	_, err := store.InsertOne(context.Background(), "c", domain.Document{"_id": int64(1)})
	if !errors.Is(err, domain.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestPostgresInsertEncodesKey(t *testing.T) {
	exec := &stubExecutor{}
	store := NewPostgres(exec)
	id, err := store.InsertOne(context.Background(), "c", domain.Document{"_id": int64(42), "smile": "C"})
	if err != nil {
		t.Fatalf("InsertOne error: %v", err)
	}
	if domain.KeyString(id) != "42" {
		t.Fatalf("unexpected id %v", id)
	}
	if exec.args[1] != "42" {
		t.Fatalf("expected key argument 42, got %#v", exec.args[1])
	}
	if raw, ok := exec.args[2].(string); !ok || !strings.Contains(raw, `"smile":"C"`) {
		t.Fatalf("unexpected document argument %#v", exec.args[2])
	}
}

func TestPostgresUpdateReportsMatches(t *testing.T) {
	exec := &stubExecutor{tag: pgconn.NewCommandTag("UPDATE 1")}
	store := NewPostgres(exec)
	res, err := store.UpdateOne(context.Background(), "jobs_c", domain.Filter{"_id": int64(1), "status": "RESERVED"}, domain.Document{"status": "DONE"}, false)
	if err != nil {
		t.Fatalf("UpdateOne error: %v", err)
	}
	if res.Matched != 1 || res.Upserted {
		t.Fatalf("unexpected result %#v", res)
	}
	if !strings.HasSuffix(strings.TrimSpace(exec.query), ");") {
		t.Fatalf("subselect not closed: %q", exec.query)
	}
	if !strings.Contains(exec.query, "and doc #>> $4::text[] = $5::text") {
		t.Fatalf("status condition missing: %q", exec.query)
	}
}

func TestPostgresUpsert(t *testing.T) {
	store := NewPostgres(&stubExecutor{inserted: true})
	res, err := store.UpdateOne(context.Background(), "users", domain.IDFilter("alice"), domain.Document{"token": "t"}, true)
	if err != nil {
		t.Fatalf("UpdateOne error: %v", err)
	}
	if !res.Upserted {
		t.Fatal("expected upsert")
	}

	if _, err := store.UpdateOne(context.Background(), "users", domain.Filter{"username": "alice"}, nil, true); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
