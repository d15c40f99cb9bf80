package jobs

import (
	"context"
	"errors"
	"fmt"

	"ceiba/internal/domain"
	"ceiba/internal/infra"
)

// Registry stores properties and their jobs exactly once.
type Registry struct {
	store  domain.CollectionStore
	logger infra.Logger
}

// NewRegistry creates a registry writing to store.
func NewRegistry(store domain.CollectionStore, logger infra.Logger) *Registry {
	return &Registry{store: store, logger: logger}
}

// EnsureProperty inserts p into its collection unless a property with the same
// id is already there. An existing property is never modified.
func (r *Registry) EnsureProperty(ctx context.Context, p domain.Property) (bool, error) {
	existing, err := r.store.FindOne(ctx, p.CollectionName, domain.IDFilter(p.ID))
	switch {
	case err == nil:
		r.logger.Debug().
			Str("collection", p.CollectionName).
			Str("property_id", domain.KeyString(existing[domain.IDField])).
			Msg("property already present")
		return false, nil
	case !errors.Is(err, domain.ErrNotFound):
		return false, fmt.Errorf("lookup property %d in %s: %w", p.ID, p.CollectionName, err)
	}

	doc, err := domain.ToDocument(p)
	if err != nil {
		return false, err
	}
	if _, err := r.store.InsertOne(ctx, p.CollectionName, doc); err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			return false, nil
		}
		return false, fmt.Errorf("store property %d in %s: %w", p.ID, p.CollectionName, err)
	}
	r.logger.Info().Str("collection", p.CollectionName).Int64("property_id", p.ID).Msg("property stored")
	return true, nil
}

// EnsureJob stores template as the job of p unless p already has one, in which
// case the stored job is returned unchanged. The returned string describes
// what happened.
func (r *Registry) EnsureJob(ctx context.Context, p domain.Property, template domain.Job) (domain.Job, string, error) {
	collection := domain.JobsCollection(p.CollectionName)

	existing, found, err := r.jobOf(ctx, collection, p.ID)
	if err != nil {
		return domain.Job{}, "", err
	}
	if found {
		return existing, alreadyStored(existing.ID, collection), nil
	}

	job := template
	job.Property = p.Ref()
	doc, err := domain.ToDocument(job)
	if err != nil {
		return domain.Job{}, "", err
	}
	if _, err := r.store.InsertOne(ctx, collection, doc); err != nil {
		if !errors.Is(err, domain.ErrDuplicate) {
			return domain.Job{}, "", fmt.Errorf("store job %d in %s: %w", job.ID, collection, err)
		}
		// another request stored a job for p first
		existing, found, err = r.jobOf(ctx, collection, p.ID)
		if err != nil {
			return domain.Job{}, "", err
		}
		if !found {
			return domain.Job{}, "", fmt.Errorf("store job %d in %s: id used by another property: %w", job.ID, collection, domain.ErrConflict)
		}
		return existing, alreadyStored(existing.ID, collection), nil
	}

	r.logger.Info().Str("collection", collection).Int64("job_id", job.ID).Int64("property_id", p.ID).Msg("job stored")
	return job, fmt.Sprintf("Stored job with id %d into collection %s", job.ID, collection), nil
}

func (r *Registry) jobOf(ctx context.Context, collection string, propertyID int64) (domain.Job, bool, error) {
	doc, err := r.store.FindOne(ctx, collection, domain.Filter{"property._id": propertyID})
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Job{}, false, nil
	}
	if err != nil {
		return domain.Job{}, false, fmt.Errorf("lookup job of property %d in %s: %w", propertyID, collection, err)
	}
	var job domain.Job
	if err := domain.FromDocument(doc, &job); err != nil {
		return domain.Job{}, false, err
	}
	return job, true, nil
}

func alreadyStored(id int64, collection string) string {
	return fmt.Sprintf("Job with id %d is already in collection %s", id, collection)
}
