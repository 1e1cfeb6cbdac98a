package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	"gradex/internal/model"
	"gradex/internal/services"
)

type fakeSubjectService struct {
	subjects []model.Subject
	err      error
}

func (f *fakeSubjectService) Identify(_ context.Context, _ int64, _, _ string) ([]model.Subject, error) {
	return f.subjects, f.err
}

func (f *fakeSubjectService) Add(_ context.Context, _ int64, subs []model.Subject) ([]model.Subject, error) {
	if f.err != nil {
		return nil, f.err
	}
	return subs, nil
}

type fakeExtractionService struct {
	res *services.StartResult
	ext model.Extraction
	err error
}

func (f *fakeExtractionService) Start(_ context.Context, _ int64, _ string) (*services.StartResult, error) {
	return f.res, f.err
}

func (f *fakeExtractionService) Get(_ context.Context, _ int64) (model.Extraction, error) {
	return f.ext, f.err
}

func (f *fakeExtractionService) GetInvalid(_ context.Context, _ int64) (model.ExtractionInvalid, error) {
	return model.ExtractionInvalid{}, f.err
}

func (f *fakeExtractionService) ListBySection(_ context.Context, _ int64) ([]model.Extraction, error) {
	return nil, f.err
}

func newTestApp(subjects services.SubjectService, extractions services.ExtractionService) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("subjectService", subjects)
		c.Locals("extractionService", extractions)
		return c.Next()
	})
	registerExtractionRoutes(app)
	return app
}

func TestIdentifySubjectsBadURL(t *testing.T) {
	app := newTestApp(&fakeSubjectService{}, &fakeExtractionService{})

	body := strings.NewReader(`{"result_url": "not a url"}`)
	req := httptest.NewRequest(http.MethodPost, "/extractions/identify_subjects/4", body)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test error: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestIdentifySubjectsBatchMissing(t *testing.T) {
	svc := &fakeSubjectService{err: fmt.Errorf("%w: batch 4", services.ErrNotFound)}
	app := newTestApp(svc, &fakeExtractionService{})

	body := strings.NewReader(`{"result_url": "https://results.example.edu/res"}`)
	req := httptest.NewRequest(http.MethodPost, "/extractions/identify_subjects/4", body)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test error: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestIdentifySubjectsScrapeFailure(t *testing.T) {
	svc := &fakeSubjectService{err: fmt.Errorf("%w: captcha failed too many times", services.ErrScrapeFailed)}
	app := newTestApp(svc, &fakeExtractionService{})

	body := strings.NewReader(`{"result_url": "https://results.example.edu/res"}`)
	req := httptest.NewRequest(http.MethodPost, "/extractions/identify_subjects/4", body)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test error: %v", err)
	}
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
}

func TestIdentifySubjectsSuccess(t *testing.T) {
	svc := &fakeSubjectService{subjects: []model.Subject{
		{SubCode: "21CS51", SubName: "SOFTWARE ENGINEERING"},
	}}
	app := newTestApp(svc, &fakeExtractionService{})

	body := strings.NewReader(`{"result_url": "https://results.example.edu/res"}`)
	req := httptest.NewRequest(http.MethodPost, "/extractions/identify_subjects/4", body)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var got []model.Subject
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 1 || got[0].SubCode != "21CS51" {
		t.Errorf("unexpected body: %+v", got)
	}
}

func TestAddSubjectsZeroCredits(t *testing.T) {
	svc := &fakeSubjectService{err: fmt.Errorf("%w: subject 21CS51 has no credits", services.ErrValidation)}
	app := newTestApp(svc, &fakeExtractionService{})

	body := strings.NewReader(`[{"sub_code":"21CS51","sub_name":"SE","credits":0}]`)
	req := httptest.NewRequest(http.MethodPost, "/extractions/add_subjects/4", body)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test error: %v", err)
	}
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
}

func TestStartScraperMissingURL(t *testing.T) {
	app := newTestApp(&fakeSubjectService{}, &fakeExtractionService{})

	req := httptest.NewRequest(http.MethodPost, "/extractions/scraper/7", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test error: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestStartScraperAccepted(t *testing.T) {
	svc := &fakeExtractionService{res: &services.StartResult{
		Extraction: model.Extraction{ExtractionID: 9},
		Invalid:    model.ExtractionInvalid{InvalidID: 5},
		StartUSN:   "1OX21CS001",
		EndUSN:     "1OX21CS065",
		NumberUSNs: 65,
	}}
	app := newTestApp(&fakeSubjectService{}, svc)

	req := httptest.NewRequest(http.MethodPost,
		"/extractions/scraper/7?result_url=https%3A%2F%2Fresults.example.edu%2Fres", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var got StartScrapeResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.ExtractionID != 9 || got.ExtractionInvalidID != 5 || got.NumberUSNs != 65 {
		t.Errorf("unexpected body: %+v", got)
	}
}

func TestGetExtractionNotFound(t *testing.T) {
	svc := &fakeExtractionService{err: fmt.Errorf("%w: extraction 99", services.ErrNotFound)}
	app := newTestApp(&fakeSubjectService{}, svc)

	req := httptest.NewRequest(http.MethodGet, "/extractions/99", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test error: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestGetExtractionSnapshot(t *testing.T) {
	svc := &fakeExtractionService{ext: model.Extraction{
		ExtractionID: 9, TotalUSNs: 65, NumCompleted: 10, Progress: 15.38,
		Status: model.ExtractionRunning,
	}}
	app := newTestApp(&fakeSubjectService{}, svc)

	req := httptest.NewRequest(http.MethodGet, "/extractions/9", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var got model.Extraction
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Progress != 15.38 || got.NumCompleted != 10 {
		t.Errorf("unexpected snapshot: %+v", got)
	}
}
