package store

import (
	"context"
	"database/sql"
	"errors"

	"gradex/internal/model"
)

const markCols = `mark_id, stud_id, subject_id, section_id, internal, external, total, result, grade, created_at, updated_at`

func scanMark(row interface{ Scan(...any) error }) (model.Mark, error) {
	var m model.Mark
	err := row.Scan(&m.MarkID, &m.StudID, &m.SubjectID, &m.SectionID,
		&m.Internal, &m.External, &m.Total, &m.Result, &m.Grade, &m.CreatedAt, &m.UpdatedAt)
	return m, err
}

// FindMark returns the existing mark for (stud, subject, section), or
// ok=false when none has been written yet.
func (s *Store) FindMark(ctx context.Context, studID, subjectID, sectionID int64) (model.Mark, bool, error) {
	row := s.DB.QueryRowContext(ctx, `
		SELECT `+markCols+` FROM marks
		WHERE stud_id = $1 AND subject_id = $2 AND section_id = $3`,
		studID, subjectID, sectionID)
	m, err := scanMark(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Mark{}, false, nil
	}
	if err != nil {
		return model.Mark{}, false, err
	}
	return m, true, nil
}

// GetMark fetches a mark by primary key.
func (s *Store) GetMark(ctx context.Context, id int64) (model.Mark, error) {
	row := s.DB.QueryRowContext(ctx, `
		SELECT `+markCols+` FROM marks WHERE mark_id = $1`, id)
	return scanMark(row)
}

// ListMarksByStudent returns a student's marks ordered by subject.
func (s *Store) ListMarksByStudent(ctx context.Context, studID int64) ([]model.Mark, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT `+markCols+` FROM marks
		WHERE stud_id = $1 ORDER BY subject_id`, studID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Mark
	for rows.Next() {
		m, err := scanMark(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// UpdateMarkScores replaces the score fields of an existing mark.
// Used by reconciliation when a re-extraction supersedes older data.
func (s *Store) UpdateMarkScores(ctx context.Context, markID int64, internal, external, total int, result, grade string) error {
	_, err := s.DB.ExecContext(ctx, `
		UPDATE marks SET internal = $2, external = $3, total = $4, result = $5, grade = $6, updated_at = now()
		WHERE mark_id = $1`,
		markID, internal, external, total, result, grade)
	return err
}

// InsertMarks writes a batch of new marks in one transaction.
func (s *Store) InsertMarks(ctx context.Context, marks []model.Mark) error {
	if len(marks) == 0 {
		return nil
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, m := range marks {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO marks (stud_id, subject_id, section_id, internal, external, total, result, grade)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			m.StudID, m.SubjectID, m.SectionID, m.Internal, m.External, m.Total, m.Result, m.Grade); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// DeleteMark removes a mark row.
func (s *Store) DeleteMark(ctx context.Context, id int64) error {
	_, err := s.DB.ExecContext(ctx, `DELETE FROM marks WHERE mark_id = $1`, id)
	return err
}

// MarkWithCredits joins a mark's total with its subject credits for
// SGPA computation.
type MarkWithCredits struct {
	Total   int
	Credits int
}

// ListMarkTotalsForSemester returns a student's (total, credits) pairs
// for every subject of one semester.
func (s *Store) ListMarkTotalsForSemester(ctx context.Context, studID, semID int64) ([]MarkWithCredits, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT m.total, sub.credits
		FROM marks m
		JOIN subjects sub ON sub.subject_id = m.subject_id
		WHERE m.stud_id = $1 AND sub.sem_id = $2
		ORDER BY sub.sub_code`, studID, semID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MarkWithCredits
	for rows.Next() {
		var mc MarkWithCredits
		if err := rows.Scan(&mc.Total, &mc.Credits); err != nil {
			return nil, err
		}
		out = append(out, mc)
	}
	return out, rows.Err()
}

// UpsertStudentPerformance records the SGPA rollup for one student and
// semester, replacing any previous computation.
func (s *Store) UpsertStudentPerformance(ctx context.Context, p model.StudentPerformance) (model.StudentPerformance, error) {
	row := s.DB.QueryRowContext(ctx, `
		INSERT INTO student_performances (stud_id, sem_id, total, percentage, sgpa)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (stud_id, sem_id) DO UPDATE
		SET total = EXCLUDED.total, percentage = EXCLUDED.percentage, sgpa = EXCLUDED.sgpa, updated_at = now()
		RETURNING stud_perf_id, stud_id, sem_id, total, percentage, sgpa, created_at, updated_at`,
		p.StudID, p.SemID, p.Total, p.Percentage, p.SGPA)
	var out model.StudentPerformance
	err := row.Scan(&out.StudPerfID, &out.StudID, &out.SemID, &out.Total, &out.Percentage, &out.SGPA, &out.CreatedAt, &out.UpdatedAt)
	return out, err
}

// ListStudentPerformances returns a student's rollups ordered by semester.
func (s *Store) ListStudentPerformances(ctx context.Context, studID int64) ([]model.StudentPerformance, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT stud_perf_id, stud_id, sem_id, total, percentage, sgpa, created_at, updated_at
		FROM student_performances WHERE stud_id = $1 ORDER BY sem_id`, studID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.StudentPerformance
	for rows.Next() {
		var p model.StudentPerformance
		if err := rows.Scan(&p.StudPerfID, &p.StudID, &p.SemID, &p.Total, &p.Percentage, &p.SGPA, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
