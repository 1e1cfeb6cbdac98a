package jobs

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"gradex/internal/browser"
	"gradex/internal/config"
	"gradex/internal/metrics"
	"gradex/internal/model"
	"gradex/internal/scraper"
	"gradex/internal/services"
	"gradex/internal/store"
)

const defaultFlushEvery = 5

// SessionProvider launches and tears down browser sessions.
type SessionProvider interface {
	Initialize() (*browser.Session, error)
	Quit(s *browser.Session)
}

// PageScraper drives one form submission for one USN.
type PageScraper interface {
	Scrape(ctx context.Context, sess *browser.Session, usn, resultURL string) (*model.StudentRecord, int)
}

// CoordinatorStore is the slice of the store a running job mutates.
type CoordinatorStore interface {
	GetExtractionResultURL(ctx context.Context, id int64) (string, error)
	GetSection(ctx context.Context, id int64) (model.Section, error)
	GetSemester(ctx context.Context, id int64) (model.Semester, error)
	GetStudentByUSN(ctx context.Context, usn string, sectionID int64) (model.Student, error)
	DeactivateStudent(ctx context.Context, id int64) error
	SetExtractionStatus(ctx context.Context, id int64, status string) error
	MarkExtractionFailed(ctx context.Context, id int64) error
	FlushProgress(ctx context.Context, id int64, d store.ProgressDelta) error
	AppendInvalidUSNs(ctx context.Context, extractionID int64, invalid, captcha, timeout []string) error
}

var _ CoordinatorStore = (*store.Store)(nil)

// Coordinator runs one extraction job end to end: it owns a single
// browser session, walks the section's USN range in ascending order,
// and folds counters into the job row every flushEvery USNs.
type Coordinator struct {
	st         CoordinatorStore
	driver     SessionProvider
	scraper    PageScraper
	reconciler services.Reconciler
	log        *slog.Logger

	flushEvery int
	maxCaptcha int
	maxTimeout int
}

func NewCoordinator(st CoordinatorStore, driver SessionProvider, sc PageScraper, rec services.Reconciler, cfg *config.Config, log *slog.Logger) *Coordinator {
	c := &Coordinator{
		st:         st,
		driver:     driver,
		scraper:    sc,
		reconciler: rec,
		log:        log,
		flushEvery: cfg.Worker.FlushEvery,
		maxCaptcha: cfg.Scraper.MaxCaptchaAttempts,
		maxTimeout: cfg.Scraper.MaxTimeoutAttempts,
	}
	if c.flushEvery <= 0 {
		c.flushEvery = defaultFlushEvery
	}
	if c.maxCaptcha <= 0 {
		c.maxCaptcha = 3
	}
	if c.maxTimeout <= 0 {
		c.maxTimeout = 3
	}
	return c
}

// batch holds the counters accumulated since the last flush.
type batch struct {
	count      int
	invalids   int
	captchas   int
	timeouts   int
	reattempts int
	tStart     time.Time
}

func (b *batch) reset() {
	*b = batch{tStart: time.Now()}
}

// ExecuteExtractionJob runs one job to completion. Per-USN failures
// never abort the job; only cancellation marks it failed.
func (c *Coordinator) ExecuteExtractionJob(ctx context.Context, ext model.Extraction) {
	log := c.log.With("extractionID", ext.ExtractionID, "sectionID", ext.SectionID)

	// The runner already flipped the row to running when it claimed
	// the job; only terminal states are written here.
	resultURL, err := c.st.GetExtractionResultURL(ctx, ext.ExtractionID)
	if err != nil {
		log.Error("result url lookup failed", "error", err)
		c.fail(ext.ExtractionID)
		return
	}
	section, err := c.st.GetSection(ctx, ext.SectionID)
	if err != nil {
		log.Error("section lookup failed", "error", err)
		c.fail(ext.ExtractionID)
		return
	}
	sem, err := c.st.GetSemester(ctx, ext.SemID)
	if err != nil {
		log.Error("semester lookup failed", "error", err)
		c.fail(ext.ExtractionID)
		return
	}
	prefix, lo, hi, err := model.USNRange(section.StartUSN, section.EndUSN)
	if err != nil {
		log.Error("usn range invalid", "error", err)
		c.fail(ext.ExtractionID)
		return
	}

	sess, err := c.driver.Initialize()
	if err != nil {
		log.Error("browser init failed", "error", err)
		c.fail(ext.ExtractionID)
		return
	}
	defer c.driver.Quit(sess)

	target := services.ReconcileTarget{
		BatchID:   section.BatchID,
		SectionID: ext.SectionID,
		SemID:     ext.SemID,
		SemNum:    sem.SemNum,
	}

	var (
		b           batch
		invalidUSNs []string
		captchaUSNs []string
		timeoutUSNs []string
		cancelled   bool
	)
	b.reset()

	log.Info("extraction started", "range", section.StartUSN+".."+section.EndUSN)

	for n := lo; n <= hi; n++ {
		// Cancellation is honored only between USNs; the in-flight
		// submission always completes or times out first.
		if ctx.Err() != nil {
			cancelled = true
			break
		}

		if b.count >= c.flushEvery {
			c.flush(ext.ExtractionID, &b)
		}

		usn := model.FormatUSN(prefix, n)
		b.count++

		student, err := c.st.GetStudentByUSN(ctx, usn, ext.SectionID)
		known := err == nil
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			log.Error("student lookup failed", "usn", usn, "error", err)
		}
		// A row already flagged inactive is skipped without touching
		// the portal; the job run that flagged it did the work.
		if known && !student.Active {
			b.invalids++
			invalidUSNs = append(invalidUSNs, usn)
			continue
		}

		rec, code := c.scraper.Scrape(ctx, sess, usn, resultURL)
		switch {
		case scraper.IsSuccess(code):
			b.reattempts += scraper.RetryCount(code)
			if err := c.reconciler.Apply(ctx, rec, target); err != nil {
				log.Error("reconcile failed", "usn", usn, "error", err)
			}

		case code == scraper.StatusInvalidUSN:
			b.invalids++
			invalidUSNs = append(invalidUSNs, usn)
			if known {
				if err := c.st.DeactivateStudent(ctx, student.StudID); err != nil {
					log.Error("deactivate failed", "usn", usn, "error", err)
				}
			}

		case code == scraper.StatusCaptchaMax:
			b.captchas++
			b.reattempts += c.maxCaptcha
			captchaUSNs = append(captchaUSNs, usn)

		case code == scraper.StatusTimeoutMax:
			b.timeouts++
			b.reattempts += c.maxTimeout
			timeoutUSNs = append(timeoutUSNs, usn)

		default:
			// DNS, refused-max, driver, other: abandoned without a list
			// entry but still paid for in reattempts.
			b.reattempts += c.maxTimeout
			log.Warn("usn abandoned", "usn", usn, "status", code)
		}
	}

	if b.count > 0 {
		c.flush(ext.ExtractionID, &b)
	}

	if err := c.st.AppendInvalidUSNs(context.WithoutCancel(ctx), ext.ExtractionID,
		invalidUSNs, captchaUSNs, timeoutUSNs); err != nil {
		log.Error("append invalid usns failed", "error", err)
	}

	if cancelled {
		c.fail(ext.ExtractionID)
		log.Warn("extraction cancelled")
		return
	}
	if err := c.st.SetExtractionStatus(context.WithoutCancel(ctx), ext.ExtractionID, model.ExtractionCompleted); err != nil {
		log.Error("mark completed failed", "error", err)
	}
	log.Info("extraction finished",
		"invalid", len(invalidUSNs), "captcha", len(captchaUSNs), "timeout", len(timeoutUSNs))
}

// flush folds the batch into the job row and resets it. Flush errors
// are logged, not fatal; the counters roll into the next flush.
func (c *Coordinator) flush(extractionID int64, b *batch) {
	delta := store.ProgressDelta{
		Count:      b.count,
		Invalids:   b.invalids,
		Captchas:   b.captchas,
		Timeouts:   b.timeouts,
		Reattempts: b.reattempts,
		Elapsed:    time.Since(b.tStart).Seconds(),
	}
	if err := c.st.FlushProgress(context.Background(), extractionID, delta); err != nil {
		c.log.Error("progress flush failed", "extractionID", extractionID, "error", err)
		return
	}
	metrics.RecordProgressFlush()
	b.reset()
}

func (c *Coordinator) fail(extractionID int64) {
	if err := c.st.MarkExtractionFailed(context.Background(), extractionID); err != nil {
		c.log.Error("mark failed failed", "extractionID", extractionID, "error", err)
	}
}
