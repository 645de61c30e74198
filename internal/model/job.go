package model

import (
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the lifecycle state of a job listing.
type JobStatus string

const (
	JobStatusDraft           JobStatus = "draft"
	JobStatusPendingApproval JobStatus = "pending-approval"
	JobStatusPublished       JobStatus = "published"
	JobStatusArchived        JobStatus = "archived"
	JobStatusRejected        JobStatus = "rejected"
)

// Job is a job listing as stored in the database. Only the fields the core
// components read are modeled here; the dashboard owns the rest of the row.
type Job struct {
	ID          uuid.UUID  `json:"job_id"`
	EmployerID  uuid.UUID  `json:"employer_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      JobStatus  `json:"status"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	ArchivedAt  *time.Time `json:"archived_at,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// JobSummary is the projection returned by job board listings.
type JobSummary struct {
	ID        uuid.UUID  `json:"job_id"`
	Title     string     `json:"title"`
	Status    JobStatus  `json:"status"`
	Published *time.Time `json:"published_at,omitempty"`
}
