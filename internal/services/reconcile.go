package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"gradex/internal/marks"
	"gradex/internal/model"
)

// ReconcileStore is the slice of the domain store the reconciler
// writes through.
type ReconcileStore interface {
	GetStudentByUSN(ctx context.Context, usn string, sectionID int64) (model.Student, error)
	InsertStudent(ctx context.Context, st model.Student) (model.Student, error)
	UpdateStudentScrapeState(ctx context.Context, id int64, name string, active bool) error
	GetSubjectByCode(ctx context.Context, subCode string, semID int64) (model.Subject, error)
	FindMark(ctx context.Context, studID, subjectID, sectionID int64) (model.Mark, bool, error)
	UpdateMarkScores(ctx context.Context, markID int64, internal, external, total int, result, grade string) error
	InsertMarks(ctx context.Context, batch []model.Mark) error
}

// ReconcileTarget pins a scraped record to its section and semester.
type ReconcileTarget struct {
	BatchID   int64
	SectionID int64
	SemID     int64
	SemNum    int
}

// Reconciler folds one scraped record into the domain store: student
// name/active updates first, then per-subject mark upserts.
type Reconciler interface {
	Apply(ctx context.Context, rec *model.StudentRecord, target ReconcileTarget) error
}

type reconciler struct {
	st  ReconcileStore
	log *slog.Logger
}

func NewReconciler(st ReconcileStore, log *slog.Logger) Reconciler {
	return &reconciler{st: st, log: log}
}

func (r *reconciler) Apply(ctx context.Context, rec *model.StudentRecord, target ReconcileTarget) error {
	student, err := r.ensureStudent(ctx, rec, target)
	if err != nil {
		return err
	}

	var inserts []model.Mark
	for _, sm := range rec.Marks {
		subject, err := r.st.GetSubjectByCode(ctx, sm.SubCode, target.SemID)
		if errors.Is(err, sql.ErrNoRows) {
			r.log.Warn("scraped subject not registered, mark skipped",
				"usn", rec.USN, "subCode", sm.SubCode, "semID", target.SemID)
			continue
		}
		if err != nil {
			return fmt.Errorf("subject lookup %s: %w", sm.SubCode, err)
		}

		grade := marks.Grade(sm.Result, sm.Total)
		existing, ok, err := r.st.FindMark(ctx, student.StudID, subject.SubjectID, target.SectionID)
		if err != nil {
			return fmt.Errorf("mark lookup %s: %w", sm.SubCode, err)
		}
		if ok {
			if err := r.st.UpdateMarkScores(ctx, existing.MarkID,
				sm.Internal, sm.External, sm.Total, sm.Result, grade); err != nil {
				return fmt.Errorf("mark update %s: %w", sm.SubCode, err)
			}
			continue
		}
		inserts = append(inserts, model.Mark{
			StudID:    student.StudID,
			SubjectID: subject.SubjectID,
			SectionID: target.SectionID,
			Internal:  sm.Internal,
			External:  sm.External,
			Total:     sm.Total,
			Result:    sm.Result,
			Grade:     grade,
		})
	}

	if len(inserts) > 0 {
		if err := r.st.InsertMarks(ctx, inserts); err != nil {
			return fmt.Errorf("mark insert: %w", err)
		}
	}
	return nil
}

// ensureStudent loads or creates the student row and applies the
// scrape-time mutations before any mark is written. A successful
// scrape always revives an inactive row; the name is overwritten
// whenever the portal's trimmed spelling differs.
func (r *reconciler) ensureStudent(ctx context.Context, rec *model.StudentRecord, target ReconcileTarget) (model.Student, error) {
	name := strings.TrimSpace(rec.Name)

	student, err := r.st.GetStudentByUSN(ctx, rec.USN, target.SectionID)
	if errors.Is(err, sql.ErrNoRows) {
		return r.st.InsertStudent(ctx, model.Student{
			BatchID:    target.BatchID,
			USN:        rec.USN,
			SectionID:  target.SectionID,
			StudName:   name,
			Active:     true,
			CurrentSem: target.SemNum,
		})
	}
	if err != nil {
		return model.Student{}, fmt.Errorf("student lookup %s: %w", rec.USN, err)
	}

	if student.StudName != name || !student.Active {
		if err := r.st.UpdateStudentScrapeState(ctx, student.StudID, name, true); err != nil {
			return model.Student{}, fmt.Errorf("student update %s: %w", rec.USN, err)
		}
		student.StudName = name
		student.Active = true
	}
	return student, nil
}
