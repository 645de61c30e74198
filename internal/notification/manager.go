// Package notification implements the notifications manager: a database
// backed FIFO queue of outbound emails drained by one or more delivery
// workers. Workers lease rows with FOR UPDATE SKIP LOCKED through the
// transaction registry, so multiple workers (and multiple server instances)
// never deliver the same notification twice.
package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/gitjobs/gitjobs/internal/database"
	"github.com/gitjobs/gitjobs/internal/model"
	"github.com/gitjobs/gitjobs/internal/repository"
)

// Worker pauses. After an empty queue the worker backs off briefly; after an
// unexpected error it backs off longer to avoid hammering a struggling
// database or SMTP server.
const (
	defaultPauseOnNone  = 15 * time.Second
	defaultPauseOnError = 30 * time.Second
)

// errNonePending signals an empty queue to the worker loop.
var errNonePending = errors.New("no pending notifications")

// Repository is the queue persistence layer the manager drives.
type Repository interface {
	Enqueue(ctx context.Context, n model.NewNotification) error
	GetPendingTx(ctx context.Context, tx pgx.Tx) (*repository.PendingNotification, error)
	MarkProcessedTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, deliveryErr error) error
}

// TxRegistry hands out transaction handles for the lease protocol.
type TxRegistry interface {
	Begin(ctx context.Context) (uuid.UUID, error)
	Tx(id uuid.UUID) (pgx.Tx, error)
	Commit(ctx context.Context, id uuid.UUID) error
	Rollback(ctx context.Context, id uuid.UUID) error
}

// Manager accepts notifications and delivers them asynchronously.
type Manager struct {
	repo    Repository
	txs     TxRegistry
	sender  Sender
	workers int

	pauseOnNone  time.Duration
	pauseOnError time.Duration

	// ctx is cancelled on Stop so in-flight database and SMTP calls unwind
	// promptly.
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
	mu      sync.Mutex
}

// NewManager creates a manager that delivers notifications with the given
// number of workers.
func NewManager(repo Repository, txs TxRegistry, sender Sender, workers int) *Manager {
	if workers < 1 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		repo:         repo,
		txs:          txs,
		sender:       sender,
		workers:      workers,
		pauseOnNone:  defaultPauseOnNone,
		pauseOnError: defaultPauseOnError,
		ctx:          ctx,
		cancel:       cancel,
	}
}

// Enqueue queues a notification for delivery. Callers needing the enqueue to
// be atomic with other writes should use the repository directly inside
// their own transaction.
func (m *Manager) Enqueue(ctx context.Context, n model.NewNotification) error {
	return m.repo.Enqueue(ctx, n)
}

// Start begins the delivery workers.
func (m *Manager) Start() {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return
	}
	m.running = true
	m.mu.Unlock()

	m.wg.Add(m.workers)
	for i := range m.workers {
		go m.worker(i)
	}
	slog.Info("notifications manager started", "workers", m.workers)
}

// Stop cancels the workers and waits for them to exit. The notification
// being delivered when Stop is called may be interrupted; its row stays
// unprocessed and is picked up again on the next start.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	m.mu.Unlock()

	m.cancel()
	m.wg.Wait()
	slog.Info("notifications manager stopped")
}

// worker is one delivery loop.
func (m *Manager) worker(id int) {
	defer m.wg.Done()
	logger := slog.With("worker", id)

	for {
		select {
		case <-m.ctx.Done():
			return
		default:
		}

		err := m.deliverNext(logger)
		switch {
		case err == nil:
			// Keep draining the queue.
		case errors.Is(err, errNonePending):
			if !m.pause(m.pauseOnNone) {
				return
			}
		default:
			if m.ctx.Err() == nil {
				logger.Error("error delivering notification", "error", err)
			}
			if !m.pause(m.pauseOnError) {
				return
			}
		}
	}
}

// deliverNext leases the oldest pending notification, renders and sends it,
// and marks it processed. Render and send failures are recorded on the row
// and do not fail the iteration: each notification gets exactly one delivery
// attempt.
func (m *Manager) deliverNext(logger *slog.Logger) error {
	handle, err := m.txs.Begin(m.ctx)
	if err != nil {
		return fmt.Errorf("error beginning transaction: %w", err)
	}

	tx, err := m.txs.Tx(handle)
	if err != nil {
		m.rollback(handle, logger)
		return err
	}

	pending, err := m.repo.GetPendingTx(m.ctx, tx)
	if errors.Is(err, database.ErrNotFound) {
		m.rollback(handle, logger)
		return errNonePending
	}
	if err != nil {
		m.rollback(handle, logger)
		return err
	}

	deliveryErr := m.deliver(pending)

	if err := m.repo.MarkProcessedTx(m.ctx, tx, pending.ID, deliveryErr); err != nil {
		m.rollback(handle, logger)
		return err
	}
	if err := m.txs.Commit(m.ctx, handle); err != nil {
		logger.Error("error committing transaction", "error", err)
	}
	if deliveryErr != nil {
		logger.Warn("notification not delivered",
			"notification_id", pending.ID, "kind", pending.Kind, "error", deliveryErr)
	}
	return nil
}

func (m *Manager) deliver(pending *repository.PendingNotification) error {
	subject, body, err := Render(pending.Kind, pending.TemplateData)
	if err != nil {
		return err
	}
	return m.sender.Send(m.ctx, Message{To: pending.Email, Subject: subject, Body: body})
}

func (m *Manager) rollback(handle uuid.UUID, logger *slog.Logger) {
	if err := m.txs.Rollback(context.WithoutCancel(m.ctx), handle); err != nil && !errors.Is(err, database.ErrTxNotFound) {
		logger.Error("error rolling back transaction", "error", err)
	}
}

// pause sleeps for d, returning false if the manager was stopped meanwhile.
func (m *Manager) pause(d time.Duration) bool {
	select {
	case <-m.ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
