package jobs

import (
	"context"
	"log/slog"
	"time"

	"gradex/internal/config"
	"gradex/internal/metrics"
)

// RetentionStore deletes finished extraction rows past their TTL.
type RetentionStore interface {
	DeleteExpiredExtractions(ctx context.Context, cutoff time.Time) (int64, error)
}

// CleanupExpiredData deletes finished extraction rows older than the
// configured TTL so that the jobs table does not grow without bound.
// Invalid-record children follow via cascade.
func CleanupExpiredData(ctx context.Context, cfg *config.Config, st RetentionStore, log *slog.Logger) int64 {
	days := cfg.Retention.ExtractionDays
	if days <= 0 {
		return 0
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -days)
	n, err := st.DeleteExpiredExtractions(ctx, cutoff)
	if err != nil {
		log.Error("retention cleanup failed", "error", err)
		return 0
	}
	if n > 0 {
		metrics.RecordRetentionExtractions(n)
		log.Info("retention cleanup", "extractionsDeleted", n, "cutoff", cutoff)
	}
	return n
}
