package domain

// JobStatus enumerates job lifecycle states.
type JobStatus string

const (
	JobStatusAvailable JobStatus = "AVAILABLE"
	JobStatusReserved  JobStatus = "RESERVED"
	JobStatusDone      JobStatus = "DONE"
	JobStatusFailed    JobStatus = "FAILED"
)

// ParseJobStatus validates a status received from a client.
func ParseJobStatus(s string) (JobStatus, bool) {
	switch st := JobStatus(s); st {
	case JobStatusAvailable, JobStatusReserved, JobStatusDone, JobStatusFailed:
		return st, true
	}
	return "", false
}

// JobsCollection returns the name of the job collection paired with a property collection.
func JobsCollection(collectionName string) string {
	return "jobs_" + collectionName
}

// PropertyRef is the snapshot of a property embedded in its job. It never changes
// after the job is created.
type PropertyRef struct {
	ID             int64  `json:"_id"`
	Smile          string `json:"smile"`
	CollectionName string `json:"collection_name"`
}

// JobFields holds the job members a client may change after creation.
type JobFields struct {
	Status       JobStatus `json:"status,omitempty"`
	User         *string   `json:"user,omitempty"`
	Platform     *string   `json:"platform,omitempty"`
	ReportTime   *float64  `json:"report_time,omitempty"`
	ScheduleTime *float64  `json:"schedule_time,omitempty"`
}

// Document projects the fields that are set onto a store update.
func (f JobFields) Document() Document {
	doc := Document{}
	if f.Status != "" {
		doc["status"] = string(f.Status)
	}
	if f.User != nil {
		doc["user"] = *f.User
	}
	if f.Platform != nil {
		doc["platform"] = *f.Platform
	}
	if f.ReportTime != nil {
		doc["report_time"] = *f.ReportTime
	}
	if f.ScheduleTime != nil {
		doc["schedule_time"] = *f.ScheduleTime
	}
	return doc
}

// Job is a unit of work computing the properties of exactly one Property.
type Job struct {
	ID       int64       `json:"_id"`
	Property PropertyRef `json:"property"`
	Settings *string     `json:"settings,omitempty"`
	JobFields
}

// Ref builds the snapshot stored inside the job of p.
func (p Property) Ref() PropertyRef {
	return PropertyRef{ID: p.ID, Smile: p.Smile, CollectionName: p.CollectionName}
}

// JobWithProperty is a job joined with the full property it references.
type JobWithProperty struct {
	Job
	Property *Property `json:"property"`
}
