package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

var (
	job1 = uuid.MustParse("00000000-0000-0000-0000-000000000001")
	job2 = uuid.MustParse("00000000-0000-0000-0000-000000000002")
)

// ===== Test doubles =====

type mockStore struct {
	mu                sync.Mutex
	jobViews          [][]byte
	searchAppearances [][]byte
	err               error
}

func (s *mockStore) UpdateJobViews(ctx context.Context, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobViews = append(s.jobViews, data)
	return s.err
}

func (s *mockStore) UpdateSearchAppearances(ctx context.Context, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.searchAppearances = append(s.searchAppearances, data)
	return s.err
}

func (s *mockStore) calls() (jobViews, searchAppearances [][]byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]byte(nil), s.jobViews...), append([][]byte(nil), s.searchAppearances...)
}

// blockingStore holds every job views write until release is closed, so a
// test can keep the flusher busy and fill the batches channel behind it.
type blockingStore struct {
	mockStore
	started chan struct{}
	release chan struct{}
}

func (s *blockingStore) UpdateJobViews(ctx context.Context, data []byte) error {
	s.started <- struct{}{}
	<-s.release
	return s.mockStore.UpdateJobViews(ctx, data)
}

// expectedBatch renders the JSON batch the store should receive for the
// given counts, using today's UTC day.
func expectedBatch(t *testing.T, counts ...EventCount) string {
	t.Helper()
	for i := range counts {
		counts[i].Day = day()
	}
	data, err := json.Marshal(counts)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

// ===== Tests =====

func TestTracker_FlushJobViewsOnStop(t *testing.T) {
	t.Parallel()

	store := &mockStore{}
	tr := NewTracker(store)
	tr.Start()

	mustTrack(t, tr, JobView{JobID: job1})
	mustTrack(t, tr, JobView{JobID: job1})
	mustTrack(t, tr, JobView{JobID: job2})
	tr.Stop()

	jobViews, searchAppearances := store.calls()
	if len(jobViews) != 1 {
		t.Fatalf("expected 1 job views flush, got %d", len(jobViews))
	}
	if len(searchAppearances) != 0 {
		t.Fatalf("expected no search appearances flushes, got %d", len(searchAppearances))
	}

	want := expectedBatch(t, EventCount{JobID: job1, Total: 2}, EventCount{JobID: job2, Total: 1})
	if got := string(jobViews[0]); got != want {
		t.Errorf("expected batch %s, got %s", want, got)
	}
}

func TestTracker_FlushSearchAppearancesOnStop(t *testing.T) {
	t.Parallel()

	store := &mockStore{}
	tr := NewTracker(store)
	tr.Start()

	mustTrack(t, tr, SearchAppearances{JobIDs: []uuid.UUID{job1, job2}})
	tr.Stop()

	jobViews, searchAppearances := store.calls()
	if len(jobViews) != 0 {
		t.Fatalf("expected no job views flushes, got %d", len(jobViews))
	}
	if len(searchAppearances) != 1 {
		t.Fatalf("expected 1 search appearances flush, got %d", len(searchAppearances))
	}

	want := expectedBatch(t, EventCount{JobID: job1, Total: 1}, EventCount{JobID: job2, Total: 1})
	if got := string(searchAppearances[0]); got != want {
		t.Errorf("expected batch %s, got %s", want, got)
	}
}

func TestTracker_FlushMixedEvents(t *testing.T) {
	t.Parallel()

	store := &mockStore{}
	tr := NewTracker(store)
	tr.Start()

	mustTrack(t, tr, JobView{JobID: job1})
	mustTrack(t, tr, SearchAppearances{JobIDs: []uuid.UUID{job1, job2}})
	mustTrack(t, tr, JobView{JobID: job1})
	tr.Stop()

	jobViews, searchAppearances := store.calls()
	if len(jobViews) != 1 || len(searchAppearances) != 1 {
		t.Fatalf("expected 1 flush per event type, got %d and %d", len(jobViews), len(searchAppearances))
	}

	wantViews := expectedBatch(t, EventCount{JobID: job1, Total: 2})
	if got := string(jobViews[0]); got != wantViews {
		t.Errorf("expected job views batch %s, got %s", wantViews, got)
	}
	wantAppearances := expectedBatch(t, EventCount{JobID: job1, Total: 1}, EventCount{JobID: job2, Total: 1})
	if got := string(searchAppearances[0]); got != wantAppearances {
		t.Errorf("expected search appearances batch %s, got %s", wantAppearances, got)
	}
}

func TestTracker_FlushPeriodically(t *testing.T) {
	t.Parallel()

	store := &mockStore{}
	tr := NewTracker(store)
	tr.flushFrequency = 50 * time.Millisecond
	tr.Start()
	defer tr.Stop()

	mustTrack(t, tr, JobView{JobID: job1})
	mustTrack(t, tr, JobView{JobID: job1})
	mustTrack(t, tr, JobView{JobID: job2})

	deadline := time.After(2 * time.Second)
	for {
		jobViews, _ := store.calls()
		if len(jobViews) > 0 {
			want := expectedBatch(t, EventCount{JobID: job1, Total: 2}, EventCount{JobID: job2, Total: 1})
			if got := string(jobViews[0]); got != want {
				t.Errorf("expected batch %s, got %s", want, got)
			}
			return
		}
		select {
		case <-deadline:
			t.Fatal("tracker never flushed periodically")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestTracker_NoEventsNothingToFlush(t *testing.T) {
	t.Parallel()

	store := &mockStore{}
	tr := NewTracker(store)
	tr.Start()
	tr.Stop()

	jobViews, searchAppearances := store.calls()
	if len(jobViews) != 0 || len(searchAppearances) != 0 {
		t.Errorf("expected no flushes, got %d and %d", len(jobViews), len(searchAppearances))
	}
}

func TestTracker_EmptySearchAppearancesNothingToFlush(t *testing.T) {
	t.Parallel()

	store := &mockStore{}
	tr := NewTracker(store)
	tr.Start()

	mustTrack(t, tr, SearchAppearances{})
	tr.Stop()

	jobViews, searchAppearances := store.calls()
	if len(jobViews) != 0 || len(searchAppearances) != 0 {
		t.Errorf("expected no flushes, got %d and %d", len(jobViews), len(searchAppearances))
	}
}

func TestTracker_FullBatchQueueSkipsTickWithoutLosingCounts(t *testing.T) {
	t.Parallel()

	store := &blockingStore{
		started: make(chan struct{}, batchesChanCap+2),
		release: make(chan struct{}),
	}
	tr := NewTracker(store)
	tr.flushFrequency = 10 * time.Millisecond
	tr.Start()

	// The first batch is picked up right away; the flusher blocks inside the
	// store holding it, leaving the batches channel empty.
	mustTrack(t, tr, JobView{JobID: job1})
	<-store.started

	// Fill the batches channel behind the blocked flusher, one batch per
	// tick.
	for queued := 1; queued <= batchesChanCap; queued++ {
		mustTrack(t, tr, JobView{JobID: job1})
		waitForQueued(t, tr, queued)
	}

	// With the channel full, ticks skip the hand-off and the counts keep
	// accumulating in the current batch.
	mustTrack(t, tr, JobView{JobID: job2})
	mustTrack(t, tr, JobView{JobID: job2})
	time.Sleep(50 * time.Millisecond)
	if n := len(tr.batches); n != batchesChanCap {
		t.Fatalf("expected batches queue to stay at %d, got %d", batchesChanCap, n)
	}

	close(store.release)
	tr.Stop()

	// Every count made it to the store: one batch per hand-off plus the
	// final batch carrying the accumulated views.
	jobViews, _ := store.calls()
	if len(jobViews) != batchesChanCap+2 {
		t.Fatalf("expected %d flushes, got %d", batchesChanCap+2, len(jobViews))
	}
	totals := make(map[string]int)
	for _, data := range jobViews {
		for jobID, total := range decodeTotals(t, data) {
			totals[jobID] += total
		}
	}
	if totals[job1.String()] != batchesChanCap+1 {
		t.Errorf("expected %d views for %s, got %d", batchesChanCap+1, job1, totals[job1.String()])
	}
	if totals[job2.String()] != 2 {
		t.Errorf("expected 2 views for %s, got %d", job2, totals[job2.String()])
	}

	// The views that accumulated across skipped ticks arrive together.
	last := decodeTotals(t, jobViews[len(jobViews)-1])
	if last[job2.String()] != 2 {
		t.Errorf("expected the final batch to carry the accumulated views, got %v", last)
	}
}

func TestTracker_TrackAfterStop(t *testing.T) {
	t.Parallel()

	tr := NewTracker(&mockStore{})
	tr.Start()
	tr.Stop()

	if err := tr.Track(JobView{JobID: job1}); !errors.Is(err, ErrTrackerStopped) {
		t.Fatalf("expected ErrTrackerStopped, got %v", err)
	}
}

func TestTracker_StoreErrorDoesNotStopWorkers(t *testing.T) {
	t.Parallel()

	store := &mockStore{err: errors.New("connection refused")}
	tr := NewTracker(store)
	tr.flushFrequency = 20 * time.Millisecond
	tr.Start()

	mustTrack(t, tr, JobView{JobID: job1})
	time.Sleep(100 * time.Millisecond)
	mustTrack(t, tr, JobView{JobID: job2})
	tr.Stop()

	jobViews, _ := store.calls()
	if len(jobViews) < 2 {
		t.Errorf("expected tracker to keep flushing after a store error, got %d flushes", len(jobViews))
	}
}

func TestEventCount_MarshalJSON(t *testing.T) {
	t.Parallel()

	c := EventCount{JobID: job1, Day: "2024-06-01", Total: 3}
	data, err := json.Marshal(c)
	if err != nil {
		t.Fatal(err)
	}
	want := fmt.Sprintf(`["%s","2024-06-01",3]`, job1)
	if string(data) != want {
		t.Errorf("expected %s, got %s", want, string(data))
	}
}

func mustTrack(t *testing.T, tr *Tracker, event Event) {
	t.Helper()
	if err := tr.Track(event); err != nil {
		t.Fatalf("unexpected error tracking event: %v", err)
	}
}

// waitForQueued polls until n batches are queued for the flusher.
func waitForQueued(t *testing.T, tr *Tracker, n int) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for len(tr.batches) < n {
		select {
		case <-deadline:
			t.Fatalf("batches queue never reached %d", n)
		case <-time.After(time.Millisecond):
		}
	}
}

// decodeTotals sums a flushed batch's totals per job id.
func decodeTotals(t *testing.T, data []byte) map[string]int {
	t.Helper()
	var rows [][3]any
	if err := json.Unmarshal(data, &rows); err != nil {
		t.Fatal(err)
	}
	totals := make(map[string]int)
	for _, row := range rows {
		totals[row[0].(string)] += int(row[2].(float64))
	}
	return totals
}
