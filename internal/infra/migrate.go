package infra

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

const postgresSchema = `
create table if not exists documents (
    collection text not null,
    id text not null,
    doc jsonb not null,
    created_at timestamptz not null default now(),
    updated_at timestamptz not null default now(),
    primary key (collection, id)
);
create index if not exists documents_property_id_idx
    on documents (collection, (doc #>> '{property,_id}'));
create index if not exists documents_status_idx
    on documents (collection, (doc #>> '{status}'));
`

// ApplySchema creates the documents table used by the postgres store.
// It is idempotent and runs outside the pgx pool so the CLI can call it
// before the API ever starts.
func ApplySchema(ctx context.Context, databaseURL string) error {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, postgresSchema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
