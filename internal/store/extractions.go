package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gradex/internal/model"
)

func joinUSNs(usns []string) string {
	return strings.Join(usns, ",")
}

// CreateExtraction inserts a new pending extraction row together with
// its empty invalid-record child. Both inserts run in one transaction
// so a job can never exist without its invalid record.
func (s *Store) CreateExtraction(ctx context.Context, sectionID, semID int64, resultURL string, totalUSNs int) (model.Extraction, model.ExtractionInvalid, error) {
	var ext model.Extraction
	var inv model.ExtractionInvalid

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return ext, inv, err
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx, `
		INSERT INTO extractions (section_id, sem_id, status, result_url, total_usns)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING extraction_id, section_id, sem_id, status, total_usns,
		          num_completed, num_invalid, num_captcha, num_timeout, reattempts,
		          progress, completed, failed, time_taken, created_at, updated_at`,
		sectionID, semID, model.ExtractionPending, resultURL, totalUSNs,
	).Scan(
		&ext.ExtractionID, &ext.SectionID, &ext.SemID, &ext.Status, &ext.TotalUSNs,
		&ext.NumCompleted, &ext.NumInvalid, &ext.NumCaptcha, &ext.NumTimeout, &ext.Reattempts,
		&ext.Progress, &ext.Completed, &ext.Failed, &ext.TimeTaken, &ext.CreatedAt, &ext.UpdatedAt,
	)
	if err != nil {
		return ext, inv, fmt.Errorf("insert extraction: %w", err)
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO extraction_invalids (extraction_id)
		VALUES ($1)
		RETURNING invalid_id, extraction_id, invalid_usns, captcha_usns, timeout_usns, created_at, updated_at`,
		ext.ExtractionID,
	).Scan(&inv.InvalidID, &inv.ExtractionID, &inv.InvalidUSNs, &inv.CaptchaUSNs, &inv.TimeoutUSNs, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return ext, inv, fmt.Errorf("insert extraction invalid: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return ext, inv, err
	}
	return ext, inv, nil
}

// GetExtraction fetches a full job row snapshot by id.
func (s *Store) GetExtraction(ctx context.Context, id int64) (model.Extraction, error) {
	var ext model.Extraction
	err := s.DB.QueryRowContext(ctx, `
		SELECT extraction_id, section_id, sem_id, status, total_usns,
		       num_completed, num_invalid, num_captcha, num_timeout, reattempts,
		       progress, completed, failed, time_taken, created_at, updated_at
		FROM extractions WHERE extraction_id = $1`, id,
	).Scan(
		&ext.ExtractionID, &ext.SectionID, &ext.SemID, &ext.Status, &ext.TotalUSNs,
		&ext.NumCompleted, &ext.NumInvalid, &ext.NumCaptcha, &ext.NumTimeout, &ext.Reattempts,
		&ext.Progress, &ext.Completed, &ext.Failed, &ext.TimeTaken, &ext.CreatedAt, &ext.UpdatedAt,
	)
	return ext, err
}

// ListExtractionsBySection returns all jobs recorded for a section,
// newest first.
func (s *Store) ListExtractionsBySection(ctx context.Context, sectionID int64) ([]model.Extraction, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT extraction_id, section_id, sem_id, status, total_usns,
		       num_completed, num_invalid, num_captcha, num_timeout, reattempts,
		       progress, completed, failed, time_taken, created_at, updated_at
		FROM extractions WHERE section_id = $1
		ORDER BY extraction_id DESC`, sectionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Extraction
	for rows.Next() {
		var ext model.Extraction
		if err := rows.Scan(
			&ext.ExtractionID, &ext.SectionID, &ext.SemID, &ext.Status, &ext.TotalUSNs,
			&ext.NumCompleted, &ext.NumInvalid, &ext.NumCaptcha, &ext.NumTimeout, &ext.Reattempts,
			&ext.Progress, &ext.Completed, &ext.Failed, &ext.TimeTaken, &ext.CreatedAt, &ext.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, ext)
	}
	return out, rows.Err()
}

// ClaimPendingExtractions atomically moves up to limit pending jobs to
// running and returns them, oldest first so jobs start in submission
// order. Claiming in the same statement means two concurrent pollers
// can never hand the same job to two coordinators.
func (s *Store) ClaimPendingExtractions(ctx context.Context, limit int32) ([]model.Extraction, error) {
	rows, err := s.DB.QueryContext(ctx, `
		WITH picked AS (
			SELECT extraction_id
			FROM extractions
			WHERE status = $1
			ORDER BY extraction_id ASC
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		), claimed AS (
			UPDATE extractions e
			SET status = $3, updated_at = now()
			FROM picked
			WHERE e.extraction_id = picked.extraction_id
			RETURNING e.extraction_id, e.section_id, e.sem_id, e.status, e.total_usns,
			          e.num_completed, e.num_invalid, e.num_captcha, e.num_timeout, e.reattempts,
			          e.progress, e.completed, e.failed, e.time_taken, e.created_at, e.updated_at
		)
		SELECT * FROM claimed ORDER BY extraction_id ASC`,
		model.ExtractionPending, limit, model.ExtractionRunning)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Extraction
	for rows.Next() {
		var ext model.Extraction
		if err := rows.Scan(
			&ext.ExtractionID, &ext.SectionID, &ext.SemID, &ext.Status, &ext.TotalUSNs,
			&ext.NumCompleted, &ext.NumInvalid, &ext.NumCaptcha, &ext.NumTimeout, &ext.Reattempts,
			&ext.Progress, &ext.Completed, &ext.Failed, &ext.TimeTaken, &ext.CreatedAt, &ext.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, ext)
	}
	return out, rows.Err()
}

// GetExtractionResultURL returns the target URL stored with the job.
func (s *Store) GetExtractionResultURL(ctx context.Context, id int64) (string, error) {
	var url string
	err := s.DB.QueryRowContext(ctx,
		`SELECT result_url FROM extractions WHERE extraction_id = $1`, id).Scan(&url)
	return url, err
}

// SetExtractionStatus moves a job between lifecycle states.
func (s *Store) SetExtractionStatus(ctx context.Context, id int64, status string) error {
	_, err := s.DB.ExecContext(ctx, `
		UPDATE extractions SET status = $2, updated_at = now()
		WHERE extraction_id = $1`, id, status)
	return err
}

// MarkExtractionFailed records an unrecoverable or cancelled job.
func (s *Store) MarkExtractionFailed(ctx context.Context, id int64) error {
	_, err := s.DB.ExecContext(ctx, `
		UPDATE extractions
		SET status = $2, failed = true, updated_at = now()
		WHERE extraction_id = $1`, id, model.ExtractionFailed)
	return err
}

// ProgressDelta carries one batch of coordinator counters to be folded
// into the job row.
type ProgressDelta struct {
	Count      int
	Invalids   int
	Captchas   int
	Timeouts   int
	Reattempts int
	Elapsed    float64
}

// FlushProgress folds a batch of counters into the job row with a
// single UPDATE so a concurrent reader always sees a consistent
// snapshot. Progress and the completed flag are recomputed inside the
// statement from the post-increment counters.
func (s *Store) FlushProgress(ctx context.Context, id int64, d ProgressDelta) error {
	_, err := s.DB.ExecContext(ctx, `
		UPDATE extractions SET
			num_completed = num_completed + $2,
			num_invalid   = num_invalid + $3,
			num_captcha   = num_captcha + $4,
			num_timeout   = num_timeout + $5,
			reattempts    = reattempts + $6,
			time_taken    = time_taken + $7,
			progress      = round((num_completed + $2)::numeric / total_usns * 100, 2),
			completed     = (num_completed + $2) = total_usns,
			updated_at    = now()
		WHERE extraction_id = $1`,
		id, d.Count, d.Invalids, d.Captchas, d.Timeouts, d.Reattempts, d.Elapsed)
	if err != nil {
		return fmt.Errorf("flush progress: %w", err)
	}
	return nil
}

// GetExtractionInvalid returns the invalid-record child of a job.
func (s *Store) GetExtractionInvalid(ctx context.Context, extractionID int64) (model.ExtractionInvalid, error) {
	var inv model.ExtractionInvalid
	err := s.DB.QueryRowContext(ctx, `
		SELECT invalid_id, extraction_id, invalid_usns, captcha_usns, timeout_usns, created_at, updated_at
		FROM extraction_invalids WHERE extraction_id = $1`, extractionID,
	).Scan(&inv.InvalidID, &inv.ExtractionID, &inv.InvalidUSNs, &inv.CaptchaUSNs, &inv.TimeoutUSNs, &inv.CreatedAt, &inv.UpdatedAt)
	return inv, err
}

// AppendInvalidUSNs appends the accumulated USN lists to the job's
// invalid record in one update. Existing content is preserved; lists
// are comma-delimited.
func (s *Store) AppendInvalidUSNs(ctx context.Context, extractionID int64, invalid, captcha, timeout []string) error {
	_, err := s.DB.ExecContext(ctx, `
		UPDATE extraction_invalids SET
			invalid_usns = trim(both ',' from invalid_usns || ',' || $2),
			captcha_usns = trim(both ',' from captcha_usns || ',' || $3),
			timeout_usns = trim(both ',' from timeout_usns || ',' || $4),
			updated_at   = now()
		WHERE extraction_id = $1`,
		extractionID, joinUSNs(invalid), joinUSNs(captcha), joinUSNs(timeout))
	return err
}

// DeleteExpiredExtractions removes finished jobs older than the cutoff
// and returns the number of rows deleted. Invalid records follow via
// ON DELETE CASCADE.
func (s *Store) DeleteExpiredExtractions(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.DB.ExecContext(ctx, `
		DELETE FROM extractions
		WHERE status IN ($1, $2) AND updated_at < $3`,
		model.ExtractionCompleted, model.ExtractionFailed, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
