package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"ceiba/internal/domain"
	"ceiba/internal/infra"
)

// SQLite implements domain.CollectionStore on a single JSON text table using
// the JSON1 functions bundled with modernc.org/sqlite.
type SQLite struct {
	db *sql.DB
}

// NewSQLite wraps a database opened with infra.OpenSQLite.
func NewSQLite(db *sql.DB) *SQLite {
	return &SQLite{db: db}
}

var _ domain.CollectionStore = (*SQLite)(nil)

// Close releases the database handle.
func (s *SQLite) Close() error { return s.db.Close() }

// FindOne fetches the first document matching filter.
func (s *SQLite) FindOne(ctx context.Context, collection string, filter domain.Filter) (domain.Document, error) {
	docs, err := s.Find(ctx, collection, filter, 1)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, domain.ErrNotFound
	}
	return docs[0], nil
}

// Find fetches the documents matching filter ordered by key.
func (s *SQLite) Find(ctx context.Context, collection string, filter domain.Filter, limit int) ([]domain.Document, error) {
	where, args := sqliteWhere(collection, filter)
	query := "SELECT doc FROM documents WHERE " + where + " ORDER BY length(id), id"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find in %s: %w", collection, err)
	}
	defer rows.Close()

	var out []domain.Document
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan document of %s: %w", collection, err)
		}
		doc, err := domain.DecodeDocument([]byte(raw))
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("find in %s: %w", collection, err)
	}
	return out, nil
}

// InsertOne stores doc; a missing _id is generated.
func (s *SQLite) InsertOne(ctx context.Context, collection string, doc domain.Document) (any, error) {
	return insertSQLite(ctx, s.db, collection, doc)
}

// UpdateOne sets the top-level fields of set on the first document matching
// filter. With upsert a missing document is created from the _id of the filter.
func (s *SQLite) UpdateOne(ctx context.Context, collection string, filter domain.Filter, set domain.Document, upsert bool) (domain.UpdateResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.UpdateResult{}, fmt.Errorf("begin update in %s: %w", collection, err)
	}
	defer tx.Rollback()

	matched, err := updateSQLite(ctx, tx, collection, filter, set)
	if err != nil {
		return domain.UpdateResult{}, err
	}
	if matched > 0 || !upsert {
		if err := tx.Commit(); err != nil {
			return domain.UpdateResult{}, fmt.Errorf("commit update in %s: %w", collection, err)
		}
		return domain.UpdateResult{Matched: matched}, nil
	}

	if _, ok := filter[domain.IDField]; !ok {
		return domain.UpdateResult{}, fmt.Errorf("upsert into %s requires an _id filter: %w", collection, domain.ErrInvalidInput)
	}
	doc := domain.Document{}
	for path, v := range filter {
		if !strings.Contains(path, ".") {
			doc[path] = domain.Normalize(v)
		}
	}
	for field, v := range set {
		if field != domain.IDField {
			doc[field] = v
		}
	}
	if _, err := insertSQLite(ctx, tx, collection, doc); err != nil {
		return domain.UpdateResult{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.UpdateResult{}, fmt.Errorf("commit upsert in %s: %w", collection, err)
	}
	return domain.UpdateResult{Upserted: true}, nil
}

// Collections lists every collection with its document count.
func (s *SQLite) Collections(ctx context.Context) ([]domain.CollectionInfo, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT collection, count(*) FROM documents GROUP BY collection ORDER BY collection`)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	defer rows.Close()
	var out []domain.CollectionInfo
	for rows.Next() {
		var info domain.CollectionInfo
		if err := rows.Scan(&info.Name, &info.Size); err != nil {
			return nil, fmt.Errorf("scan collection: %w", err)
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

// Ping checks the database handle.
func (s *SQLite) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

type sqliteExecer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertSQLite(ctx context.Context, db sqliteExecer, collection string, doc domain.Document) (any, error) {
	doc = doc.Clone()
	if doc == nil {
		doc = domain.Document{}
	}
	id, ok := doc[domain.IDField]
	if !ok || id == nil {
		id = uuid.NewString()
		doc[domain.IDField] = id
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	now := time.Now().UnixMilli()
	_, err = db.ExecContext(ctx,
		`INSERT INTO documents (collection, id, doc, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		collection, domain.KeyString(id), string(raw), now, now,
	)
	if infra.IsSQLiteConstraint(err) {
		return nil, fmt.Errorf("insert %v into %s: %w", id, collection, domain.ErrDuplicate)
	}
	if err != nil {
		return nil, fmt.Errorf("insert %v into %s: %w", id, collection, err)
	}
	return id, nil
}

func updateSQLite(ctx context.Context, db sqliteExecer, collection string, filter domain.Filter, set domain.Document) (int64, error) {
	fields := make([]string, 0, len(set))
	for field := range set {
		if field != domain.IDField {
			fields = append(fields, field)
		}
	}
	sort.Strings(fields)

	expr := "doc"
	var args []any
	if len(fields) > 0 {
		var b strings.Builder
		b.WriteString("json_set(doc")
		for _, field := range fields {
			raw, err := json.Marshal(set[field])
			if err != nil {
				return 0, fmt.Errorf("encode field %s: %w", field, err)
			}
			b.WriteString(", ?, json(?)")
			args = append(args, jsonPath(field), string(raw))
		}
		b.WriteString(")")
		expr = b.String()
	}

	where, whereArgs := sqliteWhere(collection, filter)
	query := "UPDATE documents SET doc = " + expr + ", updated_at = ? WHERE collection = ? AND id = (" +
		"SELECT id FROM documents WHERE " + where + " ORDER BY length(id), id LIMIT 1)"
	args = append(args, time.Now().UnixMilli(), collection)
	args = append(args, whereArgs...)

	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("update in %s: %w", collection, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("update in %s: %w", collection, err)
	}
	return n, nil
}

// sqliteWhere builds one equality per filter path, in a stable order.
func sqliteWhere(collection string, filter domain.Filter) (string, []any) {
	paths := make([]string, 0, len(filter))
	for path := range filter {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	conds := []string{"collection = ?"}
	args := []any{collection}
	for _, path := range paths {
		if path == domain.IDField {
			conds = append(conds, "id = ?")
			args = append(args, domain.KeyString(filter[path]))
			continue
		}
		conds = append(conds, "json_extract(doc, ?) = ?")
		args = append(args, jsonPath(strings.Split(path, ".")...), sqliteValue(filter[path]))
	}
	return strings.Join(conds, " AND "), args
}

func jsonPath(parts ...string) string {
	var b strings.Builder
	b.WriteString("$")
	for _, part := range parts {
		b.WriteString(".")
		b.WriteString(strconv.Quote(part))
	}
	return b.String()
}

// sqliteValue maps a filter value onto what json_extract returns for it.
func sqliteValue(v any) any {
	switch t := domain.Normalize(v).(type) {
	case bool:
		if t {
			return 1
		}
		return 0
	case string, int64, float64, nil:
		return t
	default:
		return domain.KeyString(t)
	}
}
