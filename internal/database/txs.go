package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ErrTxNotFound is returned when a transaction handle does not resolve to an
// open transaction, either because it was already committed or rolled back,
// or because the cleaner reaped it.
var ErrTxNotFound = errors.New("transaction not found")

const (
	// defaultTxTimeout is how long a registered transaction may stay open
	// before the cleaner rolls it back.
	defaultTxTimeout = 10 * time.Second

	// defaultCleanFrequency is how often the cleaner looks for expired
	// transactions.
	defaultCleanFrequency = 10 * time.Second
)

// txBeginner is the subset of pgxpool.Pool the registry needs.
type txBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

type registeredTx struct {
	tx        pgx.Tx
	createdAt time.Time
}

// TxRegistry hands out opaque handles for open database transactions so a
// unit of work can span several calls. Callers must resolve each handle with
// Commit or Rollback; transactions left open past the timeout are rolled
// back by a background cleaner, after which their handle resolves to
// ErrTxNotFound.
type TxRegistry struct {
	db             txBeginner
	timeout        time.Duration
	cleanFrequency time.Duration

	mu  sync.RWMutex
	txs map[uuid.UUID]registeredTx

	runMu   sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewTxRegistry creates a registry that begins transactions on db.
func NewTxRegistry(db txBeginner) *TxRegistry {
	return &TxRegistry{
		db:             db,
		timeout:        defaultTxTimeout,
		cleanFrequency: defaultCleanFrequency,
		txs:            make(map[uuid.UUID]registeredTx),
		stopCh:         make(chan struct{}),
	}
}

// Begin opens a new transaction and registers it under a fresh handle.
func (r *TxRegistry) Begin(ctx context.Context) (uuid.UUID, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return uuid.Nil, fmt.Errorf("error beginning transaction: %w", err)
	}

	id := uuid.New()
	r.mu.Lock()
	r.txs[id] = registeredTx{tx: tx, createdAt: time.Now()}
	r.mu.Unlock()

	return id, nil
}

// Tx resolves a handle to its open transaction.
func (r *TxRegistry) Tx(id uuid.UUID) (pgx.Tx, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.txs[id]
	if !ok {
		return nil, ErrTxNotFound
	}
	return entry.tx, nil
}

// Commit commits the transaction behind the handle and removes it from the
// registry.
func (r *TxRegistry) Commit(ctx context.Context, id uuid.UUID) error {
	entry, err := r.remove(id)
	if err != nil {
		return err
	}
	if err := entry.tx.Commit(ctx); err != nil {
		return fmt.Errorf("error committing transaction: %w", err)
	}
	return nil
}

// Rollback rolls back the transaction behind the handle and removes it from
// the registry.
func (r *TxRegistry) Rollback(ctx context.Context, id uuid.UUID) error {
	entry, err := r.remove(id)
	if err != nil {
		return err
	}
	if err := entry.tx.Rollback(ctx); err != nil {
		return fmt.Errorf("error rolling back transaction: %w", err)
	}
	return nil
}

func (r *TxRegistry) remove(id uuid.UUID) (registeredTx, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.txs[id]
	if !ok {
		return registeredTx{}, ErrTxNotFound
	}
	delete(r.txs, id)
	return entry, nil
}

// Start begins the background cleaner.
func (r *TxRegistry) Start() {
	r.runMu.Lock()
	if r.running {
		r.runMu.Unlock()
		return
	}
	r.running = true
	r.runMu.Unlock()

	r.wg.Add(1)
	go r.run()
	slog.Info("transactions cleaner started", "frequency", r.cleanFrequency)
}

// Stop gracefully stops the background cleaner.
func (r *TxRegistry) Stop() {
	r.runMu.Lock()
	if !r.running {
		r.runMu.Unlock()
		return
	}
	r.running = false
	r.runMu.Unlock()

	close(r.stopCh)
	r.wg.Wait()
	slog.Info("transactions cleaner stopped")
}

// run is the cleaner loop.
func (r *TxRegistry) run() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.cleanFrequency)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := r.reapExpired(); n > 0 {
				slog.Warn("rolled back expired transactions", "count", n)
			}
		case <-r.stopCh:
			return
		}
	}
}

// reapExpired rolls back every transaction open longer than the timeout and
// returns how many were reaped.
func (r *TxRegistry) reapExpired() int {
	cutoff := time.Now().Add(-r.timeout)

	var expired []registeredTx
	r.mu.Lock()
	for id, entry := range r.txs {
		if entry.createdAt.Before(cutoff) {
			expired = append(expired, entry)
			delete(r.txs, id)
		}
	}
	r.mu.Unlock()

	for _, entry := range expired {
		if err := entry.tx.Rollback(context.Background()); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			slog.Error("error rolling back expired transaction", "error", err)
		}
	}
	return len(expired)
}
