package jobs

import (
	"context"
	"log/slog"
	"time"

	"gradex/internal/config"
	"gradex/internal/model"
	"gradex/internal/store"
)

// ExtractionJobExecutor executes a single extraction job.
type ExtractionJobExecutor interface {
	ExecuteExtractionJob(ctx context.Context, ext model.Extraction)
}

// RunnerStore is the slice of the store the worker loop needs: an
// atomic claim of pending jobs plus retention cleanup.
type RunnerStore interface {
	ClaimPendingExtractions(ctx context.Context, limit int32) ([]model.Extraction, error)
	RetentionStore
}

var _ RunnerStore = (*store.Store)(nil)

// Runner polls the extractions table and dispatches claimed jobs to
// the coordinator. It encapsulates concurrency limits, polling
// intervals, and periodic retention cleanup.
type Runner struct {
	cfg      *config.Config
	store    RunnerStore
	executor ExtractionJobExecutor
	log      *slog.Logger
}

func NewRunner(cfg *config.Config, st RunnerStore, exec ExtractionJobExecutor, log *slog.Logger) *Runner {
	return &Runner{
		cfg:      cfg,
		store:    st,
		executor: exec,
		log:      log,
	}
}

// Start launches the worker loop in the current goroutine. Callers
// typically run this in its own goroutine and keep the process alive.
func (r *Runner) Start(ctx context.Context) {
	pollInterval := time.Duration(r.cfg.Worker.PollIntervalMs) * time.Millisecond
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}

	maxJobs := r.cfg.Worker.MaxConcurrentJobs
	if maxJobs <= 0 {
		maxJobs = 2
	}

	sem := make(chan struct{}, maxJobs)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	var lastCleanup time.Time
	cleanupInterval := time.Duration(r.cfg.Retention.CleanupIntervalMinutes) * time.Minute
	if cleanupInterval <= 0 {
		cleanupInterval = time.Hour
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		// Periodically run TTL cleanup for finished extractions.
		if r.cfg.Retention.Enabled {
			now := time.Now().UTC()
			if lastCleanup.IsZero() || now.Sub(lastCleanup) >= cleanupInterval {
				CleanupExpiredData(ctx, r.cfg, r.store, r.log)
				lastCleanup = now
			}
		}

		// Determine how many new jobs we can start based on current concurrency.
		capacity := maxJobs - len(sem)
		if capacity <= 0 {
			continue
		}

		// The claim flips rows to running in the same statement, so a
		// job handed out here can never be handed out again.
		claimed, err := r.store.ClaimPendingExtractions(ctx, int32(capacity))
		if err != nil {
			r.log.Error("extraction claim failed", "error", err)
			continue
		}

		for _, ext := range claimed {
			ext := ext
			sem <- struct{}{}
			go func() {
				defer func() { <-sem }()
				r.executor.ExecuteExtractionJob(ctx, ext)
			}()
		}
	}
}
