// Package tracker provides asynchronous, batched tracking of job board usage
// events. Events are aggregated in memory and flushed to the database
// periodically and on shutdown, keeping database writes to a minimum.
package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// defaultFlushFrequency is how often aggregated events are written to the
// database. Tests override the frequency with a much shorter one.
const defaultFlushFrequency = 5 * time.Minute

// Channel capacities. Events queue up while the aggregator is busy; batches
// queue up while the flusher is writing to the database.
const (
	eventsChanCap  = 100
	batchesChanCap = 5
)

// ErrTrackerStopped is returned by Track once the tracker has been stopped.
var ErrTrackerStopped = errors.New("tracker stopped")

// Event is a trackable usage event.
type Event interface {
	isEvent()
}

// JobView records a single view of a job's detail page.
type JobView struct {
	JobID uuid.UUID
}

// SearchAppearances records one appearance in search results for each of the
// given jobs.
type SearchAppearances struct {
	JobIDs []uuid.UUID
}

func (JobView) isEvent()           {}
func (SearchAppearances) isEvent() {}

// EventStore persists batches of aggregated event counts. data is a JSON
// array of [job_id, day, total] entries.
type EventStore interface {
	UpdateJobViews(ctx context.Context, data []byte) error
	UpdateSearchAppearances(ctx context.Context, data []byte) error
}

// EventCount is an aggregated counter: how many times something happened to
// a job on a given day (UTC, formatted YYYY-MM-DD).
type EventCount struct {
	JobID uuid.UUID
	Day   string
	Total int
}

// MarshalJSON emits the compact [job_id, day, total] triple the database
// functions expect.
func (c EventCount) MarshalJSON() ([]byte, error) {
	return json.Marshal([3]any{c.JobID, c.Day, c.Total})
}

type countKey struct {
	jobID uuid.UUID
	day   string
}

// batch holds aggregated counters for both event types.
type batch struct {
	jobViews          map[countKey]int
	searchAppearances map[countKey]int
}

func newBatch() batch {
	return batch{
		jobViews:          make(map[countKey]int),
		searchAppearances: make(map[countKey]int),
	}
}

func (b batch) isEmpty() bool {
	return len(b.jobViews) == 0 && len(b.searchAppearances) == 0
}

func (b batch) add(event Event, day string) {
	switch e := event.(type) {
	case JobView:
		b.jobViews[countKey{e.JobID, day}]++
	case SearchAppearances:
		for _, jobID := range e.JobIDs {
			b.searchAppearances[countKey{jobID, day}]++
		}
	}
}

// Tracker aggregates events in memory and flushes them to an EventStore. It
// runs two background workers: an aggregator that folds incoming events into
// per-day counters, and a flusher that writes finished batches to the store.
type Tracker struct {
	store          EventStore
	flushFrequency time.Duration

	events  chan Event
	batches chan batch
	stopCh  chan struct{}
	wg      sync.WaitGroup
	running bool
	mu      sync.Mutex
}

// NewTracker creates a new tracker backed by the given store.
func NewTracker(store EventStore) *Tracker {
	return &Tracker{
		store:          store,
		flushFrequency: defaultFlushFrequency,
		events:         make(chan Event, eventsChanCap),
		batches:        make(chan batch, batchesChanCap),
		stopCh:         make(chan struct{}),
	}
}

// Track queues an event for aggregation. It blocks while the events queue is
// full and returns ErrTrackerStopped once the tracker has been stopped.
func (t *Tracker) Track(event Event) error {
	select {
	case <-t.stopCh:
		return ErrTrackerStopped
	case t.events <- event:
		return nil
	}
}

// Start begins the background workers.
func (t *Tracker) Start() {
	t.mu.Lock()
	if t.running {
		t.mu.Unlock()
		return
	}
	t.running = true
	t.mu.Unlock()

	t.wg.Add(2)
	go t.aggregate()
	go t.flush()
	slog.Info("event tracker started", "flush_frequency", t.flushFrequency)
}

// Stop flushes any events aggregated so far and stops the workers. Events
// tracked after Stop returns are rejected.
func (t *Tracker) Stop() {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return
	}
	t.running = false
	t.mu.Unlock()

	close(t.stopCh)
	t.wg.Wait()
	slog.Info("event tracker stopped")
}

// aggregate folds incoming events into the current batch and hands the batch
// to the flusher on every tick. If the flusher is backed up the batch is
// kept and retried on the next tick, so no counts are lost.
func (t *Tracker) aggregate() {
	defer t.wg.Done()
	defer close(t.batches)

	ticker := time.NewTicker(t.flushFrequency)
	defer ticker.Stop()

	current := newBatch()
	for {
		select {
		case <-ticker.C:
			if current.isEmpty() {
				continue
			}
			select {
			case t.batches <- current:
				current = newBatch()
			default:
			}
		case event := <-t.events:
			current.add(event, day())
		case <-t.stopCh:
			// Fold in whatever is still queued, then flush one last time.
			for {
				select {
				case event := <-t.events:
					current.add(event, day())
					continue
				default:
				}
				break
			}
			if !current.isEmpty() {
				t.batches <- current
			}
			return
		}
	}
}

// flush writes finished batches to the store. Store errors are logged and
// the affected batch is dropped; a failed write must not stall tracking.
func (t *Tracker) flush() {
	defer t.wg.Done()

	for b := range t.batches {
		if len(b.jobViews) > 0 {
			t.write(t.store.UpdateJobViews, b.jobViews, "job views")
		}
		if len(b.searchAppearances) > 0 {
			t.write(t.store.UpdateSearchAppearances, b.searchAppearances, "search appearances")
		}
	}
}

func (t *Tracker) write(update func(context.Context, []byte) error, counts map[countKey]int, what string) {
	data, err := json.Marshal(sortedCounts(counts))
	if err != nil {
		slog.Error("error marshaling batch", "what", what, "error", err)
		return
	}
	if err := update(context.Background(), data); err != nil {
		slog.Error("error writing batch to database", "what", what, "error", err)
	}
}

// sortedCounts converts an aggregated counters map into a sorted slice ready
// for the database.
func sortedCounts(m map[countKey]int) []EventCount {
	counts := make([]EventCount, 0, len(m))
	for k, total := range m {
		counts = append(counts, EventCount{JobID: k.jobID, Day: k.day, Total: total})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].JobID != counts[j].JobID {
			return counts[i].JobID.String() < counts[j].JobID.String()
		}
		return counts[i].Day < counts[j].Day
	})
	return counts
}

// day returns the current day in UTC, formatted YYYY-MM-DD.
func day() string {
	return time.Now().UTC().Format(time.DateOnly)
}
