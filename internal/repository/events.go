package repository

import (
	"context"
	"fmt"

	"github.com/gitjobs/gitjobs/internal/database"
)

// Advisory lock keys passed to the aggregate update functions. Each counter
// table gets its own key so flushes for different tables don't serialize
// against each other.
const (
	lockKeyJobViews          = 1
	lockKeySearchAppearances = 2
)

// EventsRepository persists aggregated usage counters.
type EventsRepository struct {
	db database.Querier
}

// NewEventsRepository creates a new events repository.
func NewEventsRepository(db database.Querier) *EventsRepository {
	return &EventsRepository{db: db}
}

// UpdateJobViews merges a batch of per-job daily view counts into the
// job_views table. data is a JSON array of [job_id, day, total] entries.
func (r *EventsRepository) UpdateJobViews(ctx context.Context, data []byte) error {
	_, err := r.db.Exec(ctx, "select update_jobs_views($1::bigint, $2::jsonb)", lockKeyJobViews, data)
	if err != nil {
		return fmt.Errorf("error updating job views: %w", err)
	}
	return nil
}

// UpdateSearchAppearances merges a batch of per-job daily search appearance
// counts into the search_appearances table, with the same batch format as
// UpdateJobViews.
func (r *EventsRepository) UpdateSearchAppearances(ctx context.Context, data []byte) error {
	_, err := r.db.Exec(ctx, "select update_search_appearances($1::bigint, $2::jsonb)", lockKeySearchAppearances, data)
	if err != nil {
		return fmt.Errorf("error updating search appearances: %w", err)
	}
	return nil
}
