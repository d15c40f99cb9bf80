package jobs

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ceiba/internal/domain"
	"ceiba/internal/infra"
)

// AuthenticationFailed is the reply message of a mutation whose credential is rejected.
const AuthenticationFailed = "The user is not authenticated"

// Options tunes the controller.
type Options struct {
	// StrictTransitions makes the first DONE report a compare-and-swap on the
	// job status so concurrent reports cannot both take the completion branch.
	StrictTransitions bool
}

// Controller runs the job and property mutations.
type Controller struct {
	store    domain.CollectionStore
	gate     domain.AccessGate
	registry *Registry
	logger   infra.Logger
	opts     Options
}

// NewController wires a controller over store guarded by gate.
func NewController(store domain.CollectionStore, gate domain.AccessGate, logger infra.Logger, opts Options) *Controller {
	return &Controller{
		store:    store,
		gate:     gate,
		registry: NewRegistry(store, logger),
		logger:   logger,
		opts:     opts,
	}
}

// CreateJobInput carries a new job and the property it computes.
type CreateJobInput struct {
	Cookie   string
	Job      domain.Job
	Property domain.Property
}

// UpdateJobInput reports the outcome of a job.
type UpdateJobInput struct {
	Cookie   string
	JobID    int64
	Job      domain.JobFields
	Property domain.PropertyUpdate
	Policy   domain.DuplicationPolicy
}

// UpdateJobStatusInput moves a job to a new status.
type UpdateJobStatusInput struct {
	Cookie         string
	JobID          int64
	CollectionName string
	Status         domain.JobStatus
}

// UpdatePropertyInput writes property fields directly.
type UpdatePropertyInput struct {
	Cookie   string
	Property domain.PropertyUpdate
}

// CreateJob stores the property and its job unless they already exist.
func (c *Controller) CreateJob(ctx context.Context, in CreateJobInput) (domain.Reply, error) {
	if err := validateCollection(in.Property.CollectionName); err != nil {
		return domain.Reply{}, err
	}
	if in.Job.Status == "" {
		in.Job.Status = domain.JobStatusAvailable
	} else if _, ok := domain.ParseJobStatus(string(in.Job.Status)); !ok {
		return domain.Reply{}, fmt.Errorf("job status %q: %w", in.Job.Status, domain.ErrInvalidInput)
	}
	if !c.gate.Authorize(ctx, in.Cookie) {
		return domain.Failed(AuthenticationFailed), nil
	}

	if _, err := c.registry.EnsureProperty(ctx, in.Property); err != nil {
		return domain.Reply{}, err
	}
	_, msg, err := c.registry.EnsureJob(ctx, in.Property, in.Job)
	if err != nil {
		return domain.Reply{}, err
	}
	return domain.Done(msg), nil
}

// UpdateJob records a job report. Only the first DONE report writes the job
// metadata and the property fields; a repeated DONE report is reconciled with
// the stored property through the duplication policy.
func (c *Controller) UpdateJob(ctx context.Context, in UpdateJobInput) (domain.Reply, error) {
	if err := validateCollection(in.Property.CollectionName); err != nil {
		return domain.Reply{}, err
	}
	if _, ok := domain.ParseJobStatus(string(in.Job.Status)); !ok {
		return domain.Reply{}, fmt.Errorf("job status %q: %w", in.Job.Status, domain.ErrInvalidInput)
	}
	policy, err := domain.ParseDuplicationPolicy(string(in.Policy))
	if err != nil {
		return domain.Reply{}, err
	}
	in.Policy = policy
	if !c.gate.Authorize(ctx, in.Cookie) {
		return domain.Failed(AuthenticationFailed), nil
	}

	prop := in.Property
	jobsCollection := domain.JobsCollection(prop.CollectionName)
	log := c.logger.With().
		Str("collection", prop.CollectionName).
		Int64("job_id", in.JobID).
		Int64("property_id", prop.ID).
		Logger()

	var oldJob domain.Job
	if err := c.load(ctx, jobsCollection, in.JobID, &oldJob); err != nil {
		return domain.Reply{}, err
	}
	var oldProp domain.Property
	if err := c.load(ctx, prop.CollectionName, prop.ID, &oldProp); err != nil {
		return domain.Reply{}, err
	}

	wasDone := oldJob.Status == domain.JobStatusDone
	isDone := in.Job.Status == domain.JobStatusDone

	switch {
	case !wasDone && isDone:
		if err := c.completeJob(ctx, jobsCollection, in.JobID, oldJob.Status, in.Job); err != nil {
			return domain.Reply{}, err
		}
		if err := c.writeProperty(ctx, prop.CollectionName, prop.ID, prop.PropertyFields, false); err != nil {
			return domain.Reply{}, err
		}
		log.Info().Msg("job completed")
		return domain.Done(fmt.Sprintf("The property with id %d has been added to collection %s", prop.ID, prop.CollectionName)), nil

	case wasDone && isDone:
		resolved, err := Resolve(in.Policy, prop.PropertyFields, oldProp.PropertyFields)
		if err != nil {
			return domain.Reply{}, err
		}
		if err := c.writeProperty(ctx, prop.CollectionName, prop.ID, resolved, false); err != nil {
			return domain.Reply{}, err
		}
		log.Info().Str("policy", string(in.Policy)).Msg("duplicate report resolved")
		return domain.Done(fmt.Sprintf("Properties with id %d have been previously reported. The new properties are handled using the %s duplication policy", prop.ID, in.Policy)), nil

	case wasDone:
		log.Debug().Str("status", string(in.Job.Status)).Msg("report for completed job ignored")
		return domain.Done(fmt.Sprintf("Job with id %d has already been reported, status %s ignored", in.JobID, in.Job.Status)), nil
	}
	return domain.Done("Neither the old or the new job have succeeded, nothing new to report!"), nil
}

// UpdateJobStatus writes the status of an existing job.
func (c *Controller) UpdateJobStatus(ctx context.Context, in UpdateJobStatusInput) (domain.Reply, error) {
	if err := validateCollection(in.CollectionName); err != nil {
		return domain.Reply{}, err
	}
	if _, ok := domain.ParseJobStatus(string(in.Status)); !ok {
		return domain.Reply{}, fmt.Errorf("job status %q: %w", in.Status, domain.ErrInvalidInput)
	}
	if !c.gate.Authorize(ctx, in.Cookie) {
		return domain.Failed(AuthenticationFailed), nil
	}

	collection := domain.JobsCollection(in.CollectionName)
	res, err := c.store.UpdateOne(ctx, collection, domain.IDFilter(in.JobID), domain.JobFields{Status: in.Status}.Document(), false)
	if err != nil {
		return domain.Reply{}, fmt.Errorf("update status of job %d in %s: %w", in.JobID, collection, err)
	}
	if res.Matched == 0 {
		return domain.Reply{}, fmt.Errorf("job %d in %s: %w", in.JobID, collection, domain.ErrNotFound)
	}
	c.logger.Info().Str("collection", collection).Int64("job_id", in.JobID).Str("status", string(in.Status)).Msg("job status updated")
	return domain.Done(fmt.Sprintf("Job with id %d has status %s", in.JobID, in.Status)), nil
}

// UpdateProperty writes the property fields, creating the property when missing.
func (c *Controller) UpdateProperty(ctx context.Context, in UpdatePropertyInput) (domain.Reply, error) {
	prop := in.Property
	if err := validateCollection(prop.CollectionName); err != nil {
		return domain.Reply{}, err
	}
	if !c.gate.Authorize(ctx, in.Cookie) {
		return domain.Failed(AuthenticationFailed), nil
	}

	if err := c.writeProperty(ctx, prop.CollectionName, prop.ID, prop.PropertyFields, true); err != nil {
		return domain.Reply{}, err
	}
	return domain.Done(fmt.Sprintf("The property with id %d has been updated in collection %s", prop.ID, prop.CollectionName)), nil
}

func (c *Controller) load(ctx context.Context, collection string, id int64, v any) error {
	doc, err := c.store.FindOne(ctx, collection, domain.IDFilter(id))
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("there is no element with id %d in %s: %w", id, collection, domain.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("lookup %d in %s: %w", id, collection, err)
	}
	return domain.FromDocument(doc, v)
}

func (c *Controller) completeJob(ctx context.Context, collection string, id int64, old domain.JobStatus, fields domain.JobFields) error {
	filter := domain.IDFilter(id)
	switch {
	case !c.opts.StrictTransitions:
	case old == "":
		// equality filters cannot select a missing field
		c.logger.Warn().
			Str("collection", collection).
			Int64("job_id", id).
			Msg("job has no status, completion is not guarded against concurrent reports")
	default:
		filter["status"] = string(old)
	}
	res, err := c.store.UpdateOne(ctx, collection, filter, fields.Document(), false)
	if err != nil {
		return fmt.Errorf("update job %d in %s: %w", id, collection, err)
	}
	if res.Matched == 0 {
		if c.opts.StrictTransitions {
			return fmt.Errorf("job %d in %s left status %s: %w", id, collection, old, domain.ErrConflict)
		}
		return fmt.Errorf("job %d in %s: %w", id, collection, domain.ErrNotFound)
	}
	return nil
}

func (c *Controller) writeProperty(ctx context.Context, collection string, id int64, fields domain.PropertyFields, upsert bool) error {
	if fields.IsEmpty() && !upsert {
		return nil
	}
	if _, err := c.store.UpdateOne(ctx, collection, domain.IDFilter(id), fields.Document(), upsert); err != nil {
		return fmt.Errorf("update property %d in %s: %w", id, collection, err)
	}
	return nil
}

// validateCollection rejects names that are empty, reserved or unsafe as a
// collection name in every store.
func validateCollection(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return fmt.Errorf("collection_name is required: %w", domain.ErrInvalidInput)
	case name == domain.UsersCollection, strings.HasPrefix(name, "jobs_"), strings.HasPrefix(name, "system."):
		return fmt.Errorf("collection_name %q is reserved: %w", name, domain.ErrInvalidInput)
	case strings.ContainsAny(name, "$\x00"):
		return fmt.Errorf("collection_name %q contains invalid characters: %w", name, domain.ErrInvalidInput)
	}
	return nil
}
