package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/temoto/robotstxt"

	"gradex/internal/config"
	"gradex/internal/model"
	"gradex/internal/store"
)

// ExtractionStore is the slice of the store the gateway-facing
// extraction service needs.
type ExtractionStore interface {
	GetSection(ctx context.Context, id int64) (model.Section, error)
	GetCurrentSemester(ctx context.Context, batchID int64) (model.Semester, error)
	CreateExtraction(ctx context.Context, sectionID, semID int64, resultURL string, totalUSNs int) (model.Extraction, model.ExtractionInvalid, error)
	GetExtraction(ctx context.Context, id int64) (model.Extraction, error)
	GetExtractionInvalid(ctx context.Context, extractionID int64) (model.ExtractionInvalid, error)
	ListExtractionsBySection(ctx context.Context, sectionID int64) ([]model.Extraction, error)
}

// StartResult is what the gateway returns when a job is accepted.
type StartResult struct {
	Extraction model.Extraction
	Invalid    model.ExtractionInvalid
	StartUSN   string
	EndUSN     string
	NumberUSNs int
}

// ExtractionService validates and registers extraction jobs. Actual
// scraping happens later when a worker picks the pending row up.
type ExtractionService interface {
	Start(ctx context.Context, sectionID int64, resultURL string) (*StartResult, error)
	Get(ctx context.Context, id int64) (model.Extraction, error)
	GetInvalid(ctx context.Context, extractionID int64) (model.ExtractionInvalid, error)
	ListBySection(ctx context.Context, sectionID int64) ([]model.Extraction, error)
}

type extractionService struct {
	st     ExtractionStore
	robots config.RobotsConfig
	client *http.Client
	log    *slog.Logger
}

func NewExtractionService(st ExtractionStore, robots config.RobotsConfig, log *slog.Logger) ExtractionService {
	return &extractionService{
		st:     st,
		robots: robots,
		client: &http.Client{Timeout: 10 * time.Second},
		log:    log,
	}
}

var _ ExtractionStore = (*store.Store)(nil)

// Start runs the pre-flight checks and creates the pending job row.
func (s *extractionService) Start(ctx context.Context, sectionID int64, resultURL string) (*StartResult, error) {
	u, err := url.Parse(resultURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: result_url is not a valid http url", ErrValidation)
	}

	section, err := s.st.GetSection(ctx, sectionID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: section %d", ErrNotFound, sectionID)
	}
	if err != nil {
		return nil, err
	}

	sem, err := s.st.GetCurrentSemester(ctx, section.BatchID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: batch %d has no current semester", ErrNotFound, section.BatchID)
	}
	if err != nil {
		return nil, err
	}

	if err := s.preflight(ctx, u); err != nil {
		return nil, err
	}
	s.advisoryRobotsCheck(ctx, u)

	_, lo, hi, err := model.USNRange(section.StartUSN, section.EndUSN)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	total := hi - lo + 1

	ext, inv, err := s.st.CreateExtraction(ctx, sectionID, sem.SemID, resultURL, total)
	if err != nil {
		return nil, err
	}

	s.log.Info("extraction queued",
		"extractionID", ext.ExtractionID, "sectionID", sectionID,
		"semID", sem.SemID, "totalUSNs", total)

	return &StartResult{
		Extraction: ext,
		Invalid:    inv,
		StartUSN:   section.StartUSN,
		EndUSN:     section.EndUSN,
		NumberUSNs: total,
	}, nil
}

// preflight confirms the portal answers with a 2xx before a job is
// accepted. TLS failures surface here as transport errors.
func (s *extractionService) preflight(ctx context.Context, u *url.URL) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: portal unreachable: %v", ErrValidation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("%w: portal returned status %d", ErrValidation, resp.StatusCode)
	}
	return nil
}

// advisoryRobotsCheck logs when the portal's robots.txt disallows the
// result path. The form flow is interactive, so this never blocks.
func (s *extractionService) advisoryRobotsCheck(ctx context.Context, u *url.URL) {
	if !s.robots.Advisory {
		return
	}

	robotsURL := u.Scheme + "://" + u.Host + "/robots.txt"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return
	}
	resp, err := s.client.Do(req)
	if err != nil {
		s.log.Debug("robots.txt fetch failed", "url", robotsURL, "error", err)
		return
	}
	defer resp.Body.Close()

	robots, err := robotstxt.FromResponse(resp)
	if err != nil {
		s.log.Debug("robots.txt parse failed", "url", robotsURL, "error", err)
		return
	}
	if !robots.TestAgent(u.Path, "gradex") {
		s.log.Warn("robots.txt disallows the result path; proceeding anyway",
			"url", u.String())
	}
}

func (s *extractionService) Get(ctx context.Context, id int64) (model.Extraction, error) {
	ext, err := s.st.GetExtraction(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Extraction{}, fmt.Errorf("%w: extraction %d", ErrNotFound, id)
	}
	return ext, err
}

func (s *extractionService) GetInvalid(ctx context.Context, extractionID int64) (model.ExtractionInvalid, error) {
	inv, err := s.st.GetExtractionInvalid(ctx, extractionID)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ExtractionInvalid{}, fmt.Errorf("%w: extraction %d", ErrNotFound, extractionID)
	}
	return inv, err
}

func (s *extractionService) ListBySection(ctx context.Context, sectionID int64) ([]model.Extraction, error) {
	if _, err := s.st.GetSection(ctx, sectionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: section %d", ErrNotFound, sectionID)
		}
		return nil, err
	}
	return s.st.ListExtractionsBySection(ctx, sectionID)
}
