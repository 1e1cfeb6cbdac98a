package jobs

import (
	"context"
	"sync"
	"testing"
	"time"

	"gradex/internal/config"
	"gradex/internal/model"
)

// fakeRunnerStore hands each pending job out exactly once, the way the
// atomic claim does.
type fakeRunnerStore struct {
	mu      sync.Mutex
	pending []model.Extraction
	claims  int
}

func (f *fakeRunnerStore) ClaimPendingExtractions(_ context.Context, limit int32) ([]model.Extraction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.claims++
	n := int(limit)
	if n > len(f.pending) {
		n = len(f.pending)
	}
	claimed := make([]model.Extraction, n)
	copy(claimed, f.pending[:n])
	f.pending = f.pending[n:]
	for i := range claimed {
		claimed[i].Status = model.ExtractionRunning
	}
	return claimed, nil
}

func (f *fakeRunnerStore) DeleteExpiredExtractions(_ context.Context, _ time.Time) (int64, error) {
	return 0, nil
}

type recordingExecutor struct {
	mu   sync.Mutex
	ids  []int64
	done chan struct{}
}

func (e *recordingExecutor) ExecuteExtractionJob(_ context.Context, ext model.Extraction) {
	e.mu.Lock()
	e.ids = append(e.ids, ext.ExtractionID)
	e.mu.Unlock()
	e.done <- struct{}{}
}

func TestRunnerDispatchesClaimedJobOnce(t *testing.T) {
	st := &fakeRunnerStore{pending: []model.Extraction{
		{ExtractionID: 9, SectionID: 7, SemID: 3, Status: model.ExtractionPending},
	}}
	exec := &recordingExecutor{done: make(chan struct{}, 4)}
	cfg := &config.Config{
		Worker: config.WorkerConfig{PollIntervalMs: 1, MaxConcurrentJobs: 2},
	}

	ctx, cancel := context.WithCancel(context.Background())
	go NewRunner(cfg, st, exec, testLogger()).Start(ctx)

	select {
	case <-exec.done:
	case <-time.After(2 * time.Second):
		t.Fatal("job was never dispatched")
	}

	// Let several more polls happen; the claim already consumed the
	// row, so nothing new may be dispatched.
	time.Sleep(20 * time.Millisecond)
	cancel()

	exec.mu.Lock()
	defer exec.mu.Unlock()
	if len(exec.ids) != 1 || exec.ids[0] != 9 {
		t.Errorf("dispatched ids = %v, want [9]", exec.ids)
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if st.claims < 2 {
		t.Errorf("claims = %d, want repeated polling", st.claims)
	}
}

func TestRunnerHonorsConcurrencyCap(t *testing.T) {
	st := &fakeRunnerStore{pending: []model.Extraction{
		{ExtractionID: 1, Status: model.ExtractionPending},
		{ExtractionID: 2, Status: model.ExtractionPending},
		{ExtractionID: 3, Status: model.ExtractionPending},
	}}
	exec := &recordingExecutor{done: make(chan struct{}, 4)}
	cfg := &config.Config{
		Worker: config.WorkerConfig{PollIntervalMs: 1, MaxConcurrentJobs: 1},
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go NewRunner(cfg, st, exec, testLogger()).Start(ctx)

	for i := 0; i < 3; i++ {
		select {
		case <-exec.done:
		case <-time.After(2 * time.Second):
			t.Fatalf("job %d was never dispatched", i+1)
		}
	}

	exec.mu.Lock()
	defer exec.mu.Unlock()
	if len(exec.ids) != 3 {
		t.Errorf("dispatched %d jobs, want 3", len(exec.ids))
	}
}
