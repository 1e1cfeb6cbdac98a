package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"

	"gradex/internal/browser"
	"gradex/internal/model"
	"gradex/internal/scraper"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation failed")
	ErrScrapeFailed = errors.New("scrape failed")
)

// SessionProvider launches and tears down browser sessions. Satisfied
// by browser.Driver.
type SessionProvider interface {
	Initialize() (*browser.Session, error)
	Quit(s *browser.Session)
}

// PageScraper drives one form submission for one USN.
type PageScraper interface {
	Scrape(ctx context.Context, sess *browser.Session, usn, resultURL string) (*model.StudentRecord, int)
}

// SubjectStore is the slice of the domain store subject discovery
// needs.
type SubjectStore interface {
	GetBatch(ctx context.Context, id int64) (model.Batch, error)
	GetCurrentSemester(ctx context.Context, batchID int64) (model.Semester, error)
	InsertSubjects(ctx context.Context, subjects []model.Subject) ([]model.Subject, error)
}

// SubjectService discovers a batch's subject list from one
// representative scrape and registers the curated list afterwards.
type SubjectService interface {
	Identify(ctx context.Context, batchID int64, resultURL, usn string) ([]model.Subject, error)
	Add(ctx context.Context, batchID int64, subjects []model.Subject) ([]model.Subject, error)
}

type subjectService struct {
	st      SubjectStore
	driver  SessionProvider
	scraper PageScraper
	log     *slog.Logger
}

func NewSubjectService(st SubjectStore, driver SessionProvider, sc PageScraper, log *slog.Logger) SubjectService {
	return &subjectService{st: st, driver: driver, scraper: sc, log: log}
}

// Identify scrapes a single representative USN and returns the subject
// codes and names seen in its marks table. Credits are left zero for
// the caller to fill via Add. When usn is empty, one is drawn
// uniformly from the batch's inclusive suffix range.
func (s *subjectService) Identify(ctx context.Context, batchID int64, resultURL, usn string) ([]model.Subject, error) {
	batch, err := s.st.GetBatch(ctx, batchID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: batch %d", ErrNotFound, batchID)
	}
	if err != nil {
		return nil, err
	}

	if usn == "" {
		prefix, lo, hi, err := model.USNRange(batch.StartUSN, batch.EndUSN)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		usn = model.FormatUSN(prefix, lo+rand.IntN(hi-lo+1))
	} else if len(usn) != model.USNLength {
		return nil, fmt.Errorf("%w: usn must be %d characters", ErrValidation, model.USNLength)
	}

	sess, err := s.driver.Initialize()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrScrapeFailed, err)
	}
	defer s.driver.Quit(sess)

	s.log.Info("identifying subjects", "batchID", batchID, "usn", usn)
	rec, code := s.scraper.Scrape(ctx, sess, usn, resultURL)
	if !scraper.IsSuccess(code) {
		return nil, fmt.Errorf("%w: %s", ErrScrapeFailed, scraper.StatusText(code))
	}

	subjects := make([]model.Subject, 0, len(rec.Marks))
	for _, m := range rec.Marks {
		subjects = append(subjects, model.Subject{
			SubCode: m.SubCode,
			SubName: m.SubName,
		})
	}
	return subjects, nil
}

// Add registers the curated subject list against the batch's current
// semester. Every entry must carry positive credits.
func (s *subjectService) Add(ctx context.Context, batchID int64, subjects []model.Subject) ([]model.Subject, error) {
	if len(subjects) == 0 {
		return nil, fmt.Errorf("%w: no subjects given", ErrValidation)
	}
	for _, sub := range subjects {
		if sub.Credits <= 0 {
			return nil, fmt.Errorf("%w: subject %s has no credits", ErrValidation, sub.SubCode)
		}
		if sub.SubCode == "" {
			return nil, fmt.Errorf("%w: subject with empty code", ErrValidation)
		}
	}

	if _, err := s.st.GetBatch(ctx, batchID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: batch %d", ErrNotFound, batchID)
		}
		return nil, err
	}
	sem, err := s.st.GetCurrentSemester(ctx, batchID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: batch %d has no current semester", ErrNotFound, batchID)
	}
	if err != nil {
		return nil, err
	}

	for i := range subjects {
		subjects[i].SemID = sem.SemID
	}
	return s.st.InsertSubjects(ctx, subjects)
}
