package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"ceiba/internal/domain"
	"ceiba/internal/jobs"
)

type propertyPayload struct {
	ID             *int64 `json:"_id"`
	CollectionName string `json:"collection_name"`
	Smile          string `json:"smile"`
	domain.PropertyFields
}

type jobPayload struct {
	ID       *int64  `json:"_id"`
	Settings *string `json:"settings"`
	domain.JobFields
	Property *propertyPayload `json:"property"`
}

type createJobRequest struct {
	Cookie string     `json:"cookie"`
	Job    jobPayload `json:"job"`
}

type reportJobRequest struct {
	Cookie            string     `json:"cookie"`
	DuplicationPolicy string     `json:"duplication_policy"`
	Job               jobPayload `json:"job"`
}

type jobStatusRequest struct {
	Cookie         string `json:"cookie"`
	CollectionName string `json:"collection_name"`
	Status         string `json:"status"`
}

type jobsResponse struct {
	Jobs []domain.JobWithProperty `json:"jobs"`
}

// CreateJob stores a job and its property.
func (a *App) CreateJob(w http.ResponseWriter, r *http.Request) {
	var req createJobRequest
	if !a.decode(w, r, &req) {
		return
	}
	in, err := req.input(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	reply, err := a.Controller.CreateJob(r.Context(), in)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, reply)
}

func (req createJobRequest) input(r *http.Request) (jobs.CreateJobInput, error) {
	jobID, err := required(req.Job.ID, "job._id")
	if err != nil {
		return jobs.CreateJobInput{}, err
	}
	if req.Job.Property == nil {
		return jobs.CreateJobInput{}, requiredErr("job.property")
	}
	propID, err := required(req.Job.Property.ID, "job.property._id")
	if err != nil {
		return jobs.CreateJobInput{}, err
	}
	return jobs.CreateJobInput{
		Cookie: credential(r, req.Cookie),
		Job: domain.Job{
			ID:        jobID,
			Settings:  req.Job.Settings,
			JobFields: req.Job.JobFields,
		},
		Property: domain.Property{
			ID:             propID,
			CollectionName: req.Job.Property.CollectionName,
			Smile:          req.Job.Property.Smile,
			PropertyFields: req.Job.Property.PropertyFields,
		},
	}, nil
}

// ReportJob records the outcome of a job.
func (a *App) ReportJob(w http.ResponseWriter, r *http.Request) {
	jobID, err := idParam(r, "job_id")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	var req reportJobRequest
	if !a.decode(w, r, &req) {
		return
	}
	if req.Job.Property == nil {
		a.fail(w, r, requiredErr("job.property"))
		return
	}
	propID, err := required(req.Job.Property.ID, "job.property._id")
	if err != nil {
		a.fail(w, r, err)
		return
	}

	reply, err := a.Controller.UpdateJob(r.Context(), jobs.UpdateJobInput{
		Cookie: credential(r, req.Cookie),
		JobID:  jobID,
		Job:    req.Job.JobFields,
		Property: domain.PropertyUpdate{
			ID:             propID,
			CollectionName: req.Job.Property.CollectionName,
			PropertyFields: req.Job.Property.PropertyFields,
		},
		Policy: domain.DuplicationPolicy(req.DuplicationPolicy),
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, reply)
}

// UpdateJobStatus moves a job to another status.
func (a *App) UpdateJobStatus(w http.ResponseWriter, r *http.Request) {
	jobID, err := idParam(r, "job_id")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	var req jobStatusRequest
	if !a.decode(w, r, &req) {
		return
	}
	reply, err := a.Controller.UpdateJobStatus(r.Context(), jobs.UpdateJobStatusInput{
		Cookie:         credential(r, req.Cookie),
		JobID:          jobID,
		CollectionName: req.CollectionName,
		Status:         domain.JobStatus(req.Status),
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, reply)
}

// ListJobs returns jobs of a collection in a given status with their property.
func (a *App) ListJobs(w http.ResponseWriter, r *http.Request) {
	maxJobs, err := intQuery(r, "max_jobs")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	status := r.URL.Query().Get("status")
	if status == "" {
		status = string(domain.JobStatusAvailable)
	}
	items, err := a.Queries.Jobs(r.Context(), chi.URLParam(r, "collection"), domain.JobStatus(status), maxJobs)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, jobsResponse{Jobs: items})
}
