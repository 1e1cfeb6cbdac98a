package jobs

import (
	"context"
	"database/sql"
	"log/slog"
	"testing"

	"gradex/internal/browser"
	"gradex/internal/config"
	"gradex/internal/model"
	"gradex/internal/services"
	"gradex/internal/store"
)

type fakeJobStore struct {
	section  model.Section
	semester model.Semester
	students map[string]model.Student

	statuses    []string
	failed      int
	deactivated []int64
	flushes     []store.ProgressDelta
	appended    [][3][]string
}

func newFakeJobStore(startUSN, endUSN string) *fakeJobStore {
	return &fakeJobStore{
		section:  model.Section{SectionID: 7, BatchID: 4, StartUSN: startUSN, EndUSN: endUSN},
		semester: model.Semester{SemID: 3, BatchID: 4, SemNum: 5, Current: true},
		students: map[string]model.Student{},
	}
}

func (f *fakeJobStore) GetExtractionResultURL(_ context.Context, _ int64) (string, error) {
	return "https://results.example.edu/res", nil
}

func (f *fakeJobStore) GetSection(_ context.Context, _ int64) (model.Section, error) {
	return f.section, nil
}

func (f *fakeJobStore) GetSemester(_ context.Context, _ int64) (model.Semester, error) {
	return f.semester, nil
}

func (f *fakeJobStore) GetStudentByUSN(_ context.Context, usn string, _ int64) (model.Student, error) {
	st, ok := f.students[usn]
	if !ok {
		return model.Student{}, sql.ErrNoRows
	}
	return st, nil
}

func (f *fakeJobStore) DeactivateStudent(_ context.Context, id int64) error {
	f.deactivated = append(f.deactivated, id)
	return nil
}

func (f *fakeJobStore) SetExtractionStatus(_ context.Context, _ int64, status string) error {
	f.statuses = append(f.statuses, status)
	return nil
}

func (f *fakeJobStore) MarkExtractionFailed(_ context.Context, _ int64) error {
	f.failed++
	return nil
}

func (f *fakeJobStore) FlushProgress(_ context.Context, _ int64, d store.ProgressDelta) error {
	f.flushes = append(f.flushes, d)
	return nil
}

func (f *fakeJobStore) AppendInvalidUSNs(_ context.Context, _ int64, invalid, captcha, timeout []string) error {
	f.appended = append(f.appended, [3][]string{invalid, captcha, timeout})
	return nil
}

type stubProvider struct{ quit int }

func (p *stubProvider) Initialize() (*browser.Session, error) { return &browser.Session{}, nil }
func (p *stubProvider) Quit(_ *browser.Session)               { p.quit++ }

// stubScraper returns a canned status per USN, defaulting to success.
type stubScraper struct {
	codes   map[string]int
	scraped []string
}

func (s *stubScraper) Scrape(_ context.Context, _ *browser.Session, usn, _ string) (*model.StudentRecord, int) {
	s.scraped = append(s.scraped, usn)
	code, ok := s.codes[usn]
	if !ok {
		code = 0
	}
	if code == 0 || code > 10 {
		return &model.StudentRecord{USN: usn, Name: "STUDENT"}, code
	}
	return nil, code
}

type stubReconciler struct{ applied []string }

func (r *stubReconciler) Apply(_ context.Context, rec *model.StudentRecord, _ services.ReconcileTarget) error {
	r.applied = append(r.applied, rec.USN)
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		Worker:  config.WorkerConfig{FlushEvery: 5},
		Scraper: config.ScraperConfig{MaxCaptchaAttempts: 3, MaxTimeoutAttempts: 3},
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestCoordinatorFlushCadence(t *testing.T) {
	st := newFakeJobStore("1OX21CS001", "1OX21CS012")
	sc := &stubScraper{}
	rec := &stubReconciler{}
	prov := &stubProvider{}

	c := NewCoordinator(st, prov, sc, rec, testConfig(), testLogger())
	c.ExecuteExtractionJob(context.Background(), model.Extraction{ExtractionID: 1, SectionID: 7, SemID: 3})

	// 12 USNs: flushes at counts 5, 5, and a final 2.
	if len(st.flushes) != 3 {
		t.Fatalf("got %d flushes, want 3", len(st.flushes))
	}
	wantCounts := []int{5, 5, 2}
	for i, d := range st.flushes {
		if d.Count != wantCounts[i] {
			t.Errorf("flush %d count = %d, want %d", i, d.Count, wantCounts[i])
		}
	}

	if len(sc.scraped) != 12 {
		t.Errorf("scraped %d usns, want 12", len(sc.scraped))
	}
	if sc.scraped[0] != "1OX21CS001" || sc.scraped[11] != "1OX21CS012" {
		t.Errorf("usns not visited in order: %v", sc.scraped)
	}
	if len(rec.applied) != 12 {
		t.Errorf("reconciled %d records, want 12", len(rec.applied))
	}
	if prov.quit != 1 {
		t.Errorf("session quit %d times, want 1", prov.quit)
	}

	last := st.statuses[len(st.statuses)-1]
	if last != model.ExtractionCompleted {
		t.Errorf("final status = %q, want completed", last)
	}
}

func TestCoordinatorInvalidUSN(t *testing.T) {
	st := newFakeJobStore("1OX21CS001", "1OX21CS002")
	st.students["1OX21CS002"] = model.Student{StudID: 22, USN: "1OX21CS002", Active: true}
	sc := &stubScraper{codes: map[string]int{"1OX21CS002": 1}}
	rec := &stubReconciler{}

	c := NewCoordinator(st, &stubProvider{}, sc, rec, testConfig(), testLogger())
	c.ExecuteExtractionJob(context.Background(), model.Extraction{ExtractionID: 1, SectionID: 7, SemID: 3})

	if len(st.flushes) != 1 {
		t.Fatalf("got %d flushes, want 1", len(st.flushes))
	}
	d := st.flushes[0]
	if d.Count != 2 || d.Invalids != 1 {
		t.Errorf("delta = %+v, want count=2 invalids=1", d)
	}
	if len(st.deactivated) != 1 || st.deactivated[0] != 22 {
		t.Errorf("deactivated = %v, want [22]", st.deactivated)
	}
	if len(st.appended) != 1 {
		t.Fatalf("appended %d times, want 1", len(st.appended))
	}
	invalid := st.appended[0][0]
	if len(invalid) != 1 || invalid[0] != "1OX21CS002" {
		t.Errorf("invalid_usns = %v", invalid)
	}
	if len(rec.applied) != 1 {
		t.Errorf("reconciled %d records, want 1", len(rec.applied))
	}
}

func TestCoordinatorCaptchaAndTimeoutMax(t *testing.T) {
	st := newFakeJobStore("1OX21CS001", "1OX21CS003")
	sc := &stubScraper{codes: map[string]int{
		"1OX21CS001": 2,
		"1OX21CS002": 3,
		"1OX21CS003": 12, // success after 2 captcha refreshes
	}}
	rec := &stubReconciler{}

	c := NewCoordinator(st, &stubProvider{}, sc, rec, testConfig(), testLogger())
	c.ExecuteExtractionJob(context.Background(), model.Extraction{ExtractionID: 1, SectionID: 7, SemID: 3})

	d := st.flushes[0]
	if d.Captchas != 1 || d.Timeouts != 1 {
		t.Errorf("delta = %+v, want captchas=1 timeouts=1", d)
	}
	// 3 for captcha max, 3 for timeout max, 2 soft retries.
	if d.Reattempts != 8 {
		t.Errorf("reattempts = %d, want 8", d.Reattempts)
	}

	captcha, timeout := st.appended[0][1], st.appended[0][2]
	if len(captcha) != 1 || captcha[0] != "1OX21CS001" {
		t.Errorf("captcha_usns = %v", captcha)
	}
	if len(timeout) != 1 || timeout[0] != "1OX21CS002" {
		t.Errorf("timeout_usns = %v", timeout)
	}
	if len(rec.applied) != 1 || rec.applied[0] != "1OX21CS003" {
		t.Errorf("applied = %v", rec.applied)
	}
}

func TestCoordinatorSkipsInactiveStudent(t *testing.T) {
	st := newFakeJobStore("1OX21CS001", "1OX21CS002")
	st.students["1OX21CS001"] = model.Student{StudID: 11, USN: "1OX21CS001", Active: false}
	sc := &stubScraper{}

	c := NewCoordinator(st, &stubProvider{}, sc, &stubReconciler{}, testConfig(), testLogger())
	c.ExecuteExtractionJob(context.Background(), model.Extraction{ExtractionID: 1, SectionID: 7, SemID: 3})

	if len(sc.scraped) != 1 || sc.scraped[0] != "1OX21CS002" {
		t.Errorf("scraped = %v, want only 1OX21CS002", sc.scraped)
	}
	d := st.flushes[0]
	if d.Count != 2 || d.Invalids != 1 {
		t.Errorf("delta = %+v, want count=2 invalids=1", d)
	}
}

func TestCoordinatorCancellation(t *testing.T) {
	st := newFakeJobStore("1OX21CS001", "1OX21CS010")
	sc := &stubScraper{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewCoordinator(st, &stubProvider{}, sc, &stubReconciler{}, testConfig(), testLogger())
	c.ExecuteExtractionJob(ctx, model.Extraction{ExtractionID: 1, SectionID: 7, SemID: 3})

	if len(sc.scraped) != 0 {
		t.Errorf("scraped %d usns after cancel, want 0", len(sc.scraped))
	}
	if st.failed != 1 {
		t.Errorf("failed marks = %d, want 1", st.failed)
	}
}
