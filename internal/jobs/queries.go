package jobs

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ceiba/internal/domain"
	"ceiba/internal/infra"
)

const (
	DefaultMaxJobs       = 10
	DefaultPropertyLimit = 100
)

// Queries serves the read side used by workers and dashboards. Reads are not
// guarded by the access gate.
type Queries struct {
	store  domain.CollectionStore
	logger infra.Logger
}

// NewQueries creates the read side over store.
func NewQueries(store domain.CollectionStore, logger infra.Logger) *Queries {
	return &Queries{store: store, logger: logger}
}

// Jobs returns up to maxJobs jobs of collection with the given status, each
// joined with its full property. Fetching does not reserve the jobs.
func (q *Queries) Jobs(ctx context.Context, collection string, status domain.JobStatus, maxJobs int) ([]domain.JobWithProperty, error) {
	if err := validateCollection(collection); err != nil {
		return nil, err
	}
	if _, ok := domain.ParseJobStatus(string(status)); !ok {
		return nil, fmt.Errorf("job status %q: %w", status, domain.ErrInvalidInput)
	}
	if maxJobs <= 0 {
		maxJobs = DefaultMaxJobs
	}

	jobsCollection := domain.JobsCollection(collection)
	docs, err := q.store.Find(ctx, jobsCollection, domain.Filter{"status": string(status)}, maxJobs)
	if err != nil {
		return nil, fmt.Errorf("list jobs of %s: %w", jobsCollection, err)
	}

	out := make([]domain.JobWithProperty, 0, len(docs))
	for _, doc := range docs {
		var job domain.Job
		if err := domain.FromDocument(doc, &job); err != nil {
			return nil, err
		}
		item := domain.JobWithProperty{Job: job}
		prop, err := q.property(ctx, collection, job.Property.ID)
		switch {
		case err == nil:
			item.Property = &prop
		case errors.Is(err, domain.ErrNotFound):
			q.logger.Warn().Str("collection", collection).Int64("job_id", job.ID).Int64("property_id", job.Property.ID).Msg("job references a missing property")
		default:
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}

// Properties lists up to limit properties of collection.
func (q *Queries) Properties(ctx context.Context, collection string, limit int) ([]domain.Property, error) {
	if err := validateCollection(collection); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultPropertyLimit
	}
	docs, err := q.store.Find(ctx, collection, nil, limit)
	if err != nil {
		return nil, fmt.Errorf("list properties of %s: %w", collection, err)
	}
	out := make([]domain.Property, 0, len(docs))
	for _, doc := range docs {
		var p domain.Property
		if err := domain.FromDocument(doc, &p); err != nil {
			return nil, err
		}
		if p.CollectionName == "" {
			p.CollectionName = collection
		}
		out = append(out, p)
	}
	return out, nil
}

// Collections lists the property collections and their sizes. Job and user
// collections are left out.
func (q *Queries) Collections(ctx context.Context) ([]domain.CollectionInfo, error) {
	infos, err := q.store.Collections(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.CollectionInfo, 0, len(infos))
	for _, info := range infos {
		if validateCollection(info.Name) != nil {
			continue
		}
		out = append(out, info)
	}
	return out, nil
}

func (q *Queries) property(ctx context.Context, collection string, id int64) (domain.Property, error) {
	doc, err := q.store.FindOne(ctx, collection, domain.IDFilter(id))
	if err != nil {
		return domain.Property{}, err
	}
	var p domain.Property
	if err := domain.FromDocument(doc, &p); err != nil {
		return domain.Property{}, err
	}
	if strings.TrimSpace(p.CollectionName) == "" {
		p.CollectionName = collection
	}
	return p, nil
}
