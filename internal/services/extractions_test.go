package services

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"gradex/internal/config"
	"gradex/internal/model"
)

type fakeExtractionStore struct {
	section *model.Section
	sem     *model.Semester

	created     *model.Extraction
	createdURL  string
	createdTot  int
	extractions map[int64]model.Extraction
}

func (f *fakeExtractionStore) GetSection(_ context.Context, id int64) (model.Section, error) {
	if f.section == nil || f.section.SectionID != id {
		return model.Section{}, sql.ErrNoRows
	}
	return *f.section, nil
}

func (f *fakeExtractionStore) GetCurrentSemester(_ context.Context, _ int64) (model.Semester, error) {
	if f.sem == nil {
		return model.Semester{}, sql.ErrNoRows
	}
	return *f.sem, nil
}

func (f *fakeExtractionStore) CreateExtraction(_ context.Context, sectionID, semID int64, resultURL string, totalUSNs int) (model.Extraction, model.ExtractionInvalid, error) {
	ext := model.Extraction{
		ExtractionID: 1, SectionID: sectionID, SemID: semID,
		Status: model.ExtractionPending, TotalUSNs: totalUSNs,
	}
	f.created = &ext
	f.createdURL = resultURL
	f.createdTot = totalUSNs
	return ext, model.ExtractionInvalid{InvalidID: 1, ExtractionID: 1}, nil
}

func (f *fakeExtractionStore) GetExtraction(_ context.Context, id int64) (model.Extraction, error) {
	ext, ok := f.extractions[id]
	if !ok {
		return model.Extraction{}, sql.ErrNoRows
	}
	return ext, nil
}

func (f *fakeExtractionStore) GetExtractionInvalid(_ context.Context, _ int64) (model.ExtractionInvalid, error) {
	return model.ExtractionInvalid{}, sql.ErrNoRows
}

func (f *fakeExtractionStore) ListExtractionsBySection(_ context.Context, _ int64) ([]model.Extraction, error) {
	return nil, nil
}

func TestStartCreatesPendingJob(t *testing.T) {
	portal := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer portal.Close()

	st := &fakeExtractionStore{
		section: &model.Section{SectionID: 7, BatchID: 4, StartUSN: "1OX21CS001", EndUSN: "1OX21CS065"},
		sem:     &model.Semester{SemID: 3, BatchID: 4, Current: true},
	}
	svc := NewExtractionService(st, config.RobotsConfig{}, discard())

	res, err := svc.Start(context.Background(), 7, portal.URL+"/results")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if res.NumberUSNs != 65 {
		t.Errorf("NumberUSNs = %d, want 65", res.NumberUSNs)
	}
	if res.StartUSN != "1OX21CS001" || res.EndUSN != "1OX21CS065" {
		t.Errorf("range = %s..%s", res.StartUSN, res.EndUSN)
	}
	if st.created == nil || st.created.Status != model.ExtractionPending {
		t.Errorf("job not created pending: %+v", st.created)
	}
	if st.createdTot != 65 {
		t.Errorf("total = %d, want 65", st.createdTot)
	}
}

func TestStartRejectsBadURL(t *testing.T) {
	svc := NewExtractionService(&fakeExtractionStore{}, config.RobotsConfig{}, discard())
	_, err := svc.Start(context.Background(), 7, "notaurl")
	if !errors.Is(err, ErrValidation) {
		t.Errorf("err = %v, want ErrValidation", err)
	}
}

func TestStartSectionMissing(t *testing.T) {
	svc := NewExtractionService(&fakeExtractionStore{}, config.RobotsConfig{}, discard())
	_, err := svc.Start(context.Background(), 7, "https://results.example.edu/res")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestStartNoCurrentSemester(t *testing.T) {
	st := &fakeExtractionStore{
		section: &model.Section{SectionID: 7, BatchID: 4, StartUSN: "1OX21CS001", EndUSN: "1OX21CS065"},
	}
	svc := NewExtractionService(st, config.RobotsConfig{}, discard())
	_, err := svc.Start(context.Background(), 7, "https://results.example.edu/res")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestStartPortalNon2xx(t *testing.T) {
	portal := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer portal.Close()

	st := &fakeExtractionStore{
		section: &model.Section{SectionID: 7, BatchID: 4, StartUSN: "1OX21CS001", EndUSN: "1OX21CS065"},
		sem:     &model.Semester{SemID: 3, BatchID: 4, Current: true},
	}
	svc := NewExtractionService(st, config.RobotsConfig{}, discard())
	_, err := svc.Start(context.Background(), 7, portal.URL)
	if !errors.Is(err, ErrValidation) {
		t.Errorf("err = %v, want ErrValidation", err)
	}
}

func TestGetMissingExtraction(t *testing.T) {
	svc := NewExtractionService(&fakeExtractionStore{}, config.RobotsConfig{}, discard())
	_, err := svc.Get(context.Background(), 404)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}
