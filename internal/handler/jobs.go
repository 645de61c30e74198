package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/gitjobs/gitjobs/internal/database"
	"github.com/gitjobs/gitjobs/internal/model"
	"github.com/gitjobs/gitjobs/internal/tracker"
)

// JobReader is the job data access the handlers need.
type JobReader interface {
	ListPublished(ctx context.Context) ([]model.JobSummary, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Job, error)
}

// EventTracker records job board usage events.
type EventTracker interface {
	Track(event tracker.Event) error
}

// JobsHandler serves the job board read endpoints.
type JobsHandler struct {
	jobs    JobReader
	tracker EventTracker
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(jobs JobReader, tracker EventTracker) *JobsHandler {
	return &JobsHandler{jobs: jobs, tracker: tracker}
}

// List handles GET /jobs. Every job returned counts as one search
// appearance.
func (h *JobsHandler) List(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.jobs.ListPublished(r.Context())
	if err != nil {
		slog.Error("error listing jobs", "error", err)
		WriteError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if len(jobs) > 0 {
		ids := make([]uuid.UUID, len(jobs))
		for i, j := range jobs {
			ids[i] = j.ID
		}
		h.track(tracker.SearchAppearances{JobIDs: ids})
	}

	WriteJSON(w, http.StatusOK, jobs)
}

// Get handles GET /jobs/{jobID} and tracks a job view.
func (h *JobsHandler) Get(w http.ResponseWriter, r *http.Request) {
	jobID, err := uuid.Parse(r.PathValue("jobID"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid job id")
		return
	}

	job, err := h.jobs.Get(r.Context(), jobID)
	if errors.Is(err, database.ErrNotFound) {
		WriteError(w, http.StatusNotFound, "job not found")
		return
	}
	if err != nil {
		slog.Error("error getting job", "error", err, "job_id", jobID)
		WriteError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.track(tracker.JobView{JobID: jobID})
	WriteJSON(w, http.StatusOK, job)
}

// track records an event. Tracking problems must not fail the request.
func (h *JobsHandler) track(event tracker.Event) {
	if err := h.tracker.Track(event); err != nil {
		slog.Warn("error tracking event", "error", err)
	}
}
