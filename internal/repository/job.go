package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/gitjobs/gitjobs/internal/database"
	"github.com/gitjobs/gitjobs/internal/model"
)

// JobRepository handles the job table.
type JobRepository struct {
	db database.Querier
}

// NewJobRepository creates a new job repository.
func NewJobRepository(db database.Querier) *JobRepository {
	return &JobRepository{db: db}
}

// ArchiveExpired archives every published job that has been up for more than
// 30 days, returning how many jobs were archived.
func (r *JobRepository) ArchiveExpired(ctx context.Context) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		update job
		set status = 'archived',
		    archived_at = current_timestamp,
		    updated_at = current_timestamp
		where status = 'published'
		and published_at + interval '30 days' < current_timestamp`,
	)
	if err != nil {
		return 0, fmt.Errorf("error archiving expired jobs: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ListPublished returns the published job listings, most recent first.
func (r *JobRepository) ListPublished(ctx context.Context) ([]model.JobSummary, error) {
	rows, err := r.db.Query(ctx, `
		select job_id, title, status, published_at
		from job
		where status = 'published'
		order by published_at desc`,
	)
	if err != nil {
		return nil, fmt.Errorf("error listing published jobs: %w", err)
	}
	defer rows.Close()

	var jobs []model.JobSummary
	for rows.Next() {
		var j model.JobSummary
		if err := rows.Scan(&j.ID, &j.Title, &j.Status, &j.Published); err != nil {
			return nil, fmt.Errorf("error scanning job: %w", err)
		}
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error listing published jobs: %w", err)
	}
	return jobs, nil
}

// Get returns the job with the given id, or database.ErrNotFound.
func (r *JobRepository) Get(ctx context.Context, id uuid.UUID) (*model.Job, error) {
	var j model.Job
	err := r.db.QueryRow(ctx, `
		select job_id, employer_id, title, description, status,
		       published_at, archived_at, updated_at
		from job
		where job_id = $1`,
		id,
	).Scan(&j.ID, &j.EmployerID, &j.Title, &j.Description, &j.Status,
		&j.PublishedAt, &j.ArchivedAt, &j.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, database.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error getting job: %w", err)
	}
	return &j, nil
}
