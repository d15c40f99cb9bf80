package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"ceiba/internal/domain"
	"ceiba/internal/infra"
	"ceiba/internal/sqlinline"
)

// Postgres implements domain.CollectionStore on a single JSONB table keyed by
// (collection, id).
type Postgres struct {
	sql infra.SQLExecutor
}

// NewPostgres creates a store running its queries through sql.
func NewPostgres(sql infra.SQLExecutor) *Postgres {
	return &Postgres{sql: sql}
}

var _ domain.CollectionStore = (*Postgres)(nil)

// FindOne fetches the first document matching filter.
func (p *Postgres) FindOne(ctx context.Context, collection string, filter domain.Filter) (domain.Document, error) {
	docs, err := p.Find(ctx, collection, filter, 1)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, domain.ErrNotFound
	}
	return docs[0], nil
}

// Find fetches the documents matching filter ordered by key.
func (p *Postgres) Find(ctx context.Context, collection string, filter domain.Filter, limit int) ([]domain.Document, error) {
	query, args := appendConditions(sqlinline.QFindDocuments, filter, []any{collection}, "")
	query += "order by length(id), id\n"
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf("limit $%d\n", len(args))
	}

	rows, err := p.sql.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find in %s: %w", collection, err)
	}
	defer rows.Close()

	var out []domain.Document
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan document of %s: %w", collection, err)
		}
		doc, err := domain.DecodeDocument(raw)
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
func (p *Postgres) InsertOne(ctx context.Context, collection string, doc domain.Document) (any, error) {
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
	if _, err := p.sql.Exec(ctx, sqlinline.QInsertDocument, collection, domain.KeyString(id), string(raw)); err != nil {
		if infra.IsUniqueViolation(err) {
			return nil, fmt.Errorf("insert %v into %s: %w", id, collection, domain.ErrDuplicate)
		}
		return nil, fmt.Errorf("insert %v into %s: %w", id, collection, err)
	}
	return id, nil
}

// UpdateOne merges set into the first document matching filter. Upserts only
// honour the _id of the filter.
func (p *Postgres) UpdateOne(ctx context.Context, collection string, filter domain.Filter, set domain.Document, upsert bool) (domain.UpdateResult, error) {
	update := set.Clone()
	if update == nil {
		update = domain.Document{}
	}
	delete(update, domain.IDField)

	if upsert {
		id, ok := filter[domain.IDField]
		if !ok {
			return domain.UpdateResult{}, fmt.Errorf("upsert into %s requires an _id filter: %w", collection, domain.ErrInvalidInput)
		}
		update[domain.IDField] = domain.Normalize(id)
		raw, err := json.Marshal(update)
		if err != nil {
			return domain.UpdateResult{}, fmt.Errorf("encode document: %w", err)
		}
		var inserted bool
		row := p.sql.QueryRow(ctx, sqlinline.QUpsertDocument, collection, domain.KeyString(id), string(raw))
		if err := row.Scan(&inserted); err != nil {
			return domain.UpdateResult{}, fmt.Errorf("upsert %v into %s: %w", id, collection, err)
		}
		if inserted {
			return domain.UpdateResult{Upserted: true}, nil
		}
		return domain.UpdateResult{Matched: 1}, nil
	}

	raw, err := json.Marshal(update)
	if err != nil {
		return domain.UpdateResult{}, fmt.Errorf("encode document: %w", err)
	}
	query, args := appendConditions(sqlinline.QUpdateDocument, filter, []any{collection, string(raw)}, "    ")
	query += "    order by length(id), id\n    limit 1\n  );\n"
	tag, err := p.sql.Exec(ctx, query, args...)
	if err != nil {
		return domain.UpdateResult{}, fmt.Errorf("update in %s: %w", collection, err)
	}
	return domain.UpdateResult{Matched: tag.RowsAffected()}, nil
}

// Collections lists every collection with its document count.
func (p *Postgres) Collections(ctx context.Context) ([]domain.CollectionInfo, error) {
	rows, err := p.sql.Query(ctx, sqlinline.QListCollections)
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

// Ping checks the connection.
func (p *Postgres) Ping(ctx context.Context) error {
	var one int
	return p.sql.QueryRow(ctx, sqlinline.QPing).Scan(&one)
}

// appendConditions adds one equality per filter path, in a stable order.
func appendConditions(query string, filter domain.Filter, args []any, indent string) (string, []any) {
	paths := make([]string, 0, len(filter))
	for path := range filter {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	var b strings.Builder
	b.WriteString(query)
	for _, path := range paths {
		value := domain.KeyString(filter[path])
		if path == domain.IDField {
			args = append(args, value)
			fmt.Fprintf(&b, "%s  and id = $%d::text\n", indent, len(args))
			continue
		}
		args = append(args, strings.Split(path, "."), value)
		fmt.Fprintf(&b, "%s  and doc #>> $%d::text[] = $%d::text\n", indent, len(args)-1, len(args))
	}
	return b.String(), args
}
