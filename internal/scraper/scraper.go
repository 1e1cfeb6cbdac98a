// Package scraper drives the results portal form for a single USN and
// classifies every outcome into a status code.
package scraper

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"gradex/internal/browser"
	"gradex/internal/config"
	"gradex/internal/metrics"
	"gradex/internal/model"
)

// Portal element locations. The page is table-free for marks; the
// container's child divs form the rows.
const (
	captchaImgXPath     = `//*[@id="raj"]/div[2]/div[2]/img`
	captchaRefreshXPath = `/html/body/div[2]/div[1]/div[2]/div/div[2]/form/div/div[2]/div[2]/div[3]/p/a`
	usnCellXPath        = `/html/body/div[2]/div[2]/div[2]/div/div/div[2]/div[1]/div/div/div[1]/div/table/tbody/tr[1]/td[2]`
	nameCellXPath       = `/html/body/div[2]/div[2]/div[2]/div/div/div[2]/div[1]/div/div/div[1]/div/table/tbody/tr[2]/td[2]`
	marksContainerXPath = `/html/body/div[2]/div[2]/div[2]/div/div/div[2]/div[1]/div/div/div[2]/div/div/div[2]/div`

	usnFieldSelector     = `input[name="lns"]`
	captchaFieldSelector = `input[name="captchacode"]`
	submitSelector       = `#submit`
)

// Portal alert fragments. Matching is substring-based since the portal
// pads its messages inconsistently.
const (
	alertInvalidUSN = "not available or Invalid"
	alertBadCaptcha = "Invalid captcha code"
	alertCooldown   = "Please check website after 2 hour"
)

const (
	defaultDetailsWait  = 4 * time.Second
	defaultFieldWait    = 10 * time.Second
	defaultCooldownWait = 10 * time.Second
	defaultMaxAttempts  = 3

	captchaLength = 6
	alertWindow   = 1500 * time.Millisecond
	refusedSleep  = 5 * time.Second
	refreshSettle = 500 * time.Millisecond
)

var errCaptchaExhausted = errors.New("scraper: captcha attempts exhausted")

// Solver turns a captcha screenshot into text.
type Solver interface {
	Solve(ctx context.Context, png []byte, tag string) (string, error)
}

// SessionResetter tears a browser session down and relaunches it in
// place. Satisfied by browser.Driver.
type SessionResetter interface {
	Reset(s *browser.Session) error
}

// ResultScraper performs one form submission per USN against the
// portal and returns a typed outcome.
type ResultScraper struct {
	solver Solver
	driver SessionResetter
	log    *slog.Logger

	detailsWait  time.Duration
	fieldWait    time.Duration
	cooldownWait time.Duration
	refusedWait  time.Duration
	maxCaptcha   int
	maxTimeout   int
	maxRefused   int
}

func New(solver Solver, driver SessionResetter, cfg config.ScraperConfig, log *slog.Logger) *ResultScraper {
	s := &ResultScraper{
		solver:       solver,
		driver:       driver,
		log:          log,
		detailsWait:  time.Duration(cfg.DetailsWaitMs) * time.Millisecond,
		fieldWait:    time.Duration(cfg.FieldWaitMs) * time.Millisecond,
		cooldownWait: time.Duration(cfg.CooldownWaitMs) * time.Millisecond,
		maxCaptcha:   cfg.MaxCaptchaAttempts,
		maxTimeout:   cfg.MaxTimeoutAttempts,
		maxRefused:   cfg.MaxRefusedAttempts,
	}
	if s.detailsWait <= 0 {
		s.detailsWait = defaultDetailsWait
	}
	if s.fieldWait <= 0 {
		s.fieldWait = defaultFieldWait
	}
	if s.cooldownWait <= 0 {
		s.cooldownWait = defaultCooldownWait
	}
	s.refusedWait = refusedSleep
	if s.maxCaptcha <= 0 {
		s.maxCaptcha = defaultMaxAttempts
	}
	if s.maxTimeout <= 0 {
		s.maxTimeout = defaultMaxAttempts
	}
	if s.maxRefused <= 0 {
		s.maxRefused = defaultMaxAttempts
	}
	return s
}

// run tracks per-call retry state across page reloads.
type run struct {
	s    *ResultScraper
	sess *browser.Session
	usn  string
	url  string

	captchaAttempts int
	timeoutAttempts int
	refusedAttempts int
}

// Scrape submits the form for one USN and returns the parsed record on
// success. The status code encodes the outcome per the table in
// status.go; rec is non-nil only for success codes.
func (s *ResultScraper) Scrape(ctx context.Context, sess *browser.Session, usn, resultURL string) (*model.StudentRecord, int) {
	r := &run{s: s, sess: sess, usn: usn, url: resultURL}

	for {
		rec, status, done := r.attempt(ctx)
		if !done {
			continue
		}
		if rec != nil {
			// Composite codes surface the soft retries a success needed.
			switch {
			case r.captchaAttempts > 0:
				status = statusCaptchaRetryBase + r.captchaAttempts
			case r.timeoutAttempts > 0:
				status = statusTimeoutRetryBase + r.timeoutAttempts
			}
		}
		metrics.RecordScrapeOutcome(status)
		s.log.Debug("scrape finished", "usn", usn, "status", status,
			"captchaAttempts", r.captchaAttempts, "timeoutAttempts", r.timeoutAttempts)
		return rec, status
	}
}

// attempt loads the form once and drives it to a terminal or retryable
// state. done=false means the caller should reload and try again; the
// run's counters already reflect what this attempt consumed.
func (r *run) attempt(ctx context.Context) (*model.StudentRecord, int, bool) {
	page, err := r.sess.Browser.Page(proto.TargetCreateTarget{URL: r.url})
	if err != nil {
		return r.classify(err)
	}
	defer page.Close()

	if err := page.WaitLoad(); err != nil {
		return r.classify(err)
	}

	captchaText, err := r.solveCaptcha(ctx, page)
	if errors.Is(err, errCaptchaExhausted) {
		return nil, StatusCaptchaMax, true
	}
	if err != nil {
		return r.classify(err)
	}

	if err := r.fillAndSubmit(page, captchaText); err != nil {
		return r.classify(err)
	}

	// The portal signals failures with a javascript alert shortly after
	// submit; success navigates to the details view with no dialog.
	wait, handle := page.HandleDialog()
	alertCh := make(chan string, 1)
	go func() {
		e := wait()
		if e == nil {
			return
		}
		_ = handle(&proto.PageHandleJavaScriptDialog{Accept: true})
		alertCh <- e.Message
	}()

	submit, err := page.Timeout(r.s.fieldWait).Element(submitSelector)
	if err != nil {
		return r.classify(err)
	}
	if err := submit.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return r.classify(err)
	}

	select {
	case msg := <-alertCh:
		return r.handleAlert(msg)
	case <-time.After(alertWindow):
	}

	return r.extract(page)
}

// solveCaptcha screenshots the challenge and asks the solver. A short
// or failed solve clicks the refresh control and tries again on the
// same page, consuming one captcha attempt each time.
func (r *run) solveCaptcha(ctx context.Context, page *rod.Page) (string, error) {
	for {
		img, err := page.Timeout(r.s.fieldWait).ElementX(captchaImgXPath)
		if err != nil {
			return "", err
		}
		png, err := img.Screenshot(proto.PageCaptureScreenshotFormatPng, 0)
		if err != nil {
			return "", err
		}

		text, err := r.s.solver.Solve(ctx, png, r.usn)
		metrics.RecordCaptchaSolve(err == nil && len(text) == captchaLength)
		if err == nil && len(text) == captchaLength {
			return text, nil
		}
		if err != nil {
			r.s.log.Debug("captcha solve failed", "usn", r.usn, "error", err)
		}

		r.captchaAttempts++
		if r.captchaAttempts >= r.s.maxCaptcha {
			return "", errCaptchaExhausted
		}
		if err := r.refreshCaptcha(page); err != nil {
			return "", err
		}
	}
}

func (r *run) refreshCaptcha(page *rod.Page) error {
	link, err := page.Timeout(r.s.fieldWait).ElementX(captchaRefreshXPath)
	if err != nil {
		return err
	}
	if err := link.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return err
	}
	time.Sleep(refreshSettle)
	return nil
}

func (r *run) fillAndSubmit(page *rod.Page, captchaText string) error {
	usnField, err := page.Timeout(r.s.fieldWait).Element(usnFieldSelector)
	if err != nil {
		return err
	}
	if err := usnField.Input(r.usn); err != nil {
		return err
	}

	captchaField, err := page.Timeout(r.s.fieldWait).Element(captchaFieldSelector)
	if err != nil {
		return err
	}
	return captchaField.Input(captchaText)
}

// handleAlert interprets the portal's dialog text. The dialog has
// already been accepted by the time this runs.
func (r *run) handleAlert(msg string) (*model.StudentRecord, int, bool) {
	switch {
	case strings.Contains(msg, alertInvalidUSN):
		return nil, StatusInvalidUSN, true

	case strings.Contains(msg, alertBadCaptcha):
		r.captchaAttempts++
		if r.captchaAttempts >= r.s.maxCaptcha {
			return nil, StatusCaptchaMax, true
		}
		return nil, 0, false

	case strings.Contains(msg, alertCooldown):
		r.s.log.Warn("portal cooldown", "usn", r.usn)
		time.Sleep(r.s.cooldownWait)
		if err := r.s.driver.Reset(r.sess); err != nil {
			return nil, StatusDriver, true
		}
		return nil, 0, false

	default:
		r.s.log.Warn("unrecognized portal alert", "usn", r.usn, "alert", msg)
		return nil, StatusOther, true
	}
}

// extract waits for the details view and parses it into a record.
func (r *run) extract(page *rod.Page) (*model.StudentRecord, int, bool) {
	usnCell, err := page.Timeout(r.s.detailsWait).ElementX(usnCellXPath)
	if err != nil {
		return r.classify(err)
	}
	usnText, err := usnCell.Text()
	if err != nil {
		return r.classify(err)
	}

	nameCell, err := page.Timeout(r.s.detailsWait).ElementX(nameCellXPath)
	if err != nil {
		return r.classify(err)
	}
	nameText, err := nameCell.Text()
	if err != nil {
		return r.classify(err)
	}

	container, err := page.Timeout(r.s.detailsWait).ElementX(marksContainerXPath)
	if err != nil {
		return r.classify(err)
	}
	html, err := container.HTML()
	if err != nil {
		return r.classify(err)
	}

	marks, err := ParseMarks(html)
	if err != nil {
		r.s.log.Error("marks parse failed", "usn", r.usn, "error", err)
		return nil, StatusOther, true
	}

	return &model.StudentRecord{
		USN:   strings.TrimSpace(usnText),
		Name:  strings.TrimSpace(nameText),
		Marks: marks,
	}, StatusSuccess, true
}

// classify maps a driver-level error onto the status table. Transient
// network failures consume a bounded retry; everything else is
// terminal for this USN.
func (r *run) classify(err error) (*model.StudentRecord, int, bool) {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "ERR_CONNECTION_TIMED_OUT"):
		r.timeoutAttempts++
		if r.timeoutAttempts >= r.s.maxTimeout {
			return nil, StatusTimeoutMax, true
		}
		return nil, 0, false

	case strings.Contains(msg, "ERR_NAME_NOT_RESOLVED"):
		return nil, StatusDNS, true

	case strings.Contains(msg, "ERR_CONNECTION_REFUSED"):
		r.refusedAttempts++
		if r.refusedAttempts >= r.s.maxRefused {
			return nil, StatusRefusedMax, true
		}
		time.Sleep(r.s.refusedWait)
		if err := r.s.driver.Reset(r.sess); err != nil {
			return nil, StatusDriver, true
		}
		return nil, 0, false

	case strings.Contains(msg, "ERR_") || errors.Is(err, context.DeadlineExceeded):
		r.s.log.Debug("driver error", "usn", r.usn, "error", err)
		return nil, StatusDriver, true

	default:
		r.s.log.Debug("unclassified scrape error", "usn", r.usn, "error", err)
		return nil, StatusOther, true
	}
}
