package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/gitjobs/gitjobs/internal/database"
	"github.com/gitjobs/gitjobs/internal/model"
)

// SessionRepository handles the session table.
type SessionRepository struct {
	db database.Querier
}

// NewSessionRepository creates a new session repository.
func NewSessionRepository(db database.Querier) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create inserts a new session row.
func (r *SessionRepository) Create(ctx context.Context, s model.SessionRecord) error {
	_, err := r.db.Exec(ctx, `
		insert into session (session_id, data, expires_at)
		values ($1, $2, $3)`,
		s.ID, s.Data, s.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("error creating session: %w", err)
	}
	return nil
}

// Update replaces the data and expiry of an existing session.
func (r *SessionRepository) Update(ctx context.Context, s model.SessionRecord) error {
	_, err := r.db.Exec(ctx, `
		update session
		set data = $2, expires_at = $3
		where session_id = $1`,
		s.ID, s.Data, s.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("error updating session: %w", err)
	}
	return nil
}

// Get returns the session with the given id, or database.ErrNotFound.
func (r *SessionRepository) Get(ctx context.Context, id string) (*model.SessionRecord, error) {
	s := model.SessionRecord{ID: id}
	err := r.db.QueryRow(ctx, `
		select data, expires_at
		from session
		where session_id = $1`,
		id,
	).Scan(&s.Data, &s.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, database.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error getting session: %w", err)
	}
	return &s, nil
}

// Delete removes a session. Deleting a session that does not exist is not an
// error.
func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx, "delete from session where session_id = $1", id)
	if err != nil {
		return fmt.Errorf("error deleting session: %w", err)
	}
	return nil
}
