package store

import (
	"context"
	"fmt"

	"ceiba/internal/domain"
	"ceiba/internal/infra"
)

// Open connects the collection store selected by cfg.StoreDriver. The returned
// close function releases the underlying connections.
func Open(ctx context.Context, cfg *infra.Config, logger infra.Logger) (domain.CollectionStore, func(context.Context) error, error) {
	switch cfg.StoreDriver {
	case infra.DriverMongo:
		db, err := infra.NewMongoDatabase(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		s := NewMongo(db)
		return s, s.Close, nil

	case infra.DriverPostgres:
		if err := infra.ApplySchema(ctx, cfg.DatabaseURL); err != nil {
			return nil, nil, err
		}
		pool, err := infra.NewDBPool(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		runner := infra.NewSQLRunner(pool, logger.With().Str("component", "sql").Logger())
		return NewPostgres(runner), func(context.Context) error { pool.Close(); return nil }, nil

	case infra.DriverSQLite:
		db, err := infra.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		s := NewSQLite(db)
		return s, func(context.Context) error { return s.Close() }, nil

	case infra.DriverMemory:
		return NewMemory(), func(context.Context) error { return nil }, nil
	}
	return nil, nil, fmt.Errorf("unsupported store driver %q", cfg.StoreDriver)
}
