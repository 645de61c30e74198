package jobs

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"
)

// archiveInterval is how often the archiver looks for expired jobs.
const archiveInterval = time.Hour

// JobArchiver is the data access the archiver needs.
type JobArchiver interface {
	ArchiveExpired(ctx context.Context) (int64, error)
}

// Archiver periodically archives published jobs that have reached the end of
// their listing period.
type Archiver struct {
	repo JobArchiver

	// initialDelay spreads out the first run so multiple server instances
	// started together don't all archive at the same time. Randomized in
	// NewArchiver, shortened in tests.
	initialDelay time.Duration

	stopCh  chan struct{}
	wg      sync.WaitGroup
	running bool
	mu      sync.Mutex
}

// NewArchiver creates a new archiver job.
func NewArchiver(repo JobArchiver) *Archiver {
	return &Archiver{
		repo:         repo,
		initialDelay: time.Duration(60+rand.IntN(240)) * time.Second,
		stopCh:       make(chan struct{}),
	}
}

// Start begins the archiver job.
func (a *Archiver) Start() {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return
	}
	a.running = true
	a.mu.Unlock()

	a.wg.Add(1)
	go a.run()
	slog.Info("archiver started", "initial_delay", a.initialDelay)
}

// Stop gracefully stops the archiver job.
func (a *Archiver) Stop() {
	a.mu.Lock()
	if !a.running {
		a.mu.Unlock()
		return
	}
	a.running = false
	a.mu.Unlock()

	close(a.stopCh)
	a.wg.Wait()
	slog.Info("archiver stopped")
}

// run is the main loop.
func (a *Archiver) run() {
	defer a.wg.Done()

	select {
	case <-time.After(a.initialDelay):
	case <-a.stopCh:
		return
	}

	for {
		a.archiveExpired()

		select {
		case <-time.After(archiveInterval):
		case <-a.stopCh:
			return
		}
	}
}

// archiveExpired archives expired jobs. Errors are logged and the next run
// tries again.
func (a *Archiver) archiveExpired() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	slog.Debug("archiving expired jobs")
	archived, err := a.repo.ArchiveExpired(ctx)
	if err != nil {
		slog.Error("error archiving expired jobs", "error", err)
		return
	}
	if archived > 0 {
		slog.Info("archived expired jobs", "count", archived)
	}
}
