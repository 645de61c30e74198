// Package session provides the server-side session store: sessions are
// persisted in PostgreSQL with a small in-memory LRU cache in front so
// request-path lookups rarely touch the database.
package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/gitjobs/gitjobs/internal/database"
	"github.com/gitjobs/gitjobs/internal/model"
)

// CookieName is the name of the cookie carrying the session id.
const CookieName = "session_id"

// cacheSize bounds how many sessions are kept in memory.
const cacheSize = 1000

// Repository is the persistence layer the store writes through to.
type Repository interface {
	Create(ctx context.Context, s model.SessionRecord) error
	Update(ctx context.Context, s model.SessionRecord) error
	Get(ctx context.Context, id string) (*model.SessionRecord, error)
	Delete(ctx context.Context, id string) error
}

// Store is a write-through session store. All writes go to the database
// first and update the cache only on success, so the cache never holds a
// session the database does not.
type Store struct {
	repo  Repository
	cache *lru.Cache[string, model.SessionRecord]
}

// NewStore creates a new session store backed by the given repository.
func NewStore(repo Repository) (*Store, error) {
	cache, err := lru.New[string, model.SessionRecord](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("error creating sessions cache: %w", err)
	}
	return &Store{repo: repo, cache: cache}, nil
}

// NewID returns a new random session id.
func NewID() string {
	b := make([]byte, 32)
	rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}

// Create persists a new session.
func (s *Store) Create(ctx context.Context, rec model.SessionRecord) error {
	if err := s.repo.Create(ctx, rec); err != nil {
		return err
	}
	s.cache.Add(rec.ID, rec)
	return nil
}

// Save updates an existing session.
func (s *Store) Save(ctx context.Context, rec model.SessionRecord) error {
	if err := s.repo.Update(ctx, rec); err != nil {
		return err
	}
	s.cache.Add(rec.ID, rec)
	return nil
}

// Load returns the session with the given id, or nil if it does not exist.
// Expiry is not checked here: callers decide what to do with an expired
// session, and expired rows are cleaned up out of band.
func (s *Store) Load(ctx context.Context, id string) (*model.SessionRecord, error) {
	if rec, ok := s.cache.Get(id); ok {
		return &rec, nil
	}

	rec, err := s.repo.Get(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	s.cache.Add(rec.ID, *rec)
	return rec, nil
}

// Delete removes a session.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.cache.Remove(id)
	return nil
}
