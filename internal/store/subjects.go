package store

import (
	"context"

	"gradex/internal/model"
)

const subjectCols = `subject_id, sub_code, sem_id, sub_name, credits, created_at, updated_at`

func scanSubject(row interface{ Scan(...any) error }) (model.Subject, error) {
	var sub model.Subject
	err := row.Scan(&sub.SubjectID, &sub.SubCode, &sub.SemID, &sub.SubName,
		&sub.Credits, &sub.CreatedAt, &sub.UpdatedAt)
	return sub, err
}

// GetSubjectByCode resolves a subject within one semester. Exactly one
// row matches thanks to the (sub_code, sem_id) unique constraint.
func (s *Store) GetSubjectByCode(ctx context.Context, subCode string, semID int64) (model.Subject, error) {
	row := s.DB.QueryRowContext(ctx, `
		SELECT `+subjectCols+` FROM subjects
		WHERE sub_code = $1 AND sem_id = $2`, subCode, semID)
	return scanSubject(row)
}

// GetSubject fetches a subject by primary key.
func (s *Store) GetSubject(ctx context.Context, id int64) (model.Subject, error) {
	row := s.DB.QueryRowContext(ctx, `
		SELECT `+subjectCols+` FROM subjects WHERE subject_id = $1`, id)
	return scanSubject(row)
}

// ListSubjectsBySemester returns a semester's subjects ordered by code.
func (s *Store) ListSubjectsBySemester(ctx context.Context, semID int64) ([]model.Subject, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT `+subjectCols+` FROM subjects
		WHERE sem_id = $1 ORDER BY sub_code`, semID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Subject
	for rows.Next() {
		sub, err := scanSubject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

// InsertSubjects creates all given subjects in one transaction, the
// whole batch or nothing.
func (s *Store) InsertSubjects(ctx context.Context, subjects []model.Subject) ([]model.Subject, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	out := make([]model.Subject, 0, len(subjects))
	for _, sub := range subjects {
		row := tx.QueryRowContext(ctx, `
			INSERT INTO subjects (sub_code, sem_id, sub_name, credits)
			VALUES ($1, $2, $3, $4)
			RETURNING `+subjectCols,
			sub.SubCode, sub.SemID, sub.SubName, sub.Credits)
		created, err := scanSubject(row)
		if err != nil {
			return nil, err
		}
		out = append(out, created)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateSubject applies CRUD-level field changes.
func (s *Store) UpdateSubject(ctx context.Context, sub model.Subject) (model.Subject, error) {
	row := s.DB.QueryRowContext(ctx, `
		UPDATE subjects SET sub_code = $2, sub_name = $3, credits = $4, updated_at = now()
		WHERE subject_id = $1
		RETURNING `+subjectCols,
		sub.SubjectID, sub.SubCode, sub.SubName, sub.Credits)
	return scanSubject(row)
}

// DeleteSubject removes a subject; marks cascade.
func (s *Store) DeleteSubject(ctx context.Context, id int64) error {
	_, err := s.DB.ExecContext(ctx, `DELETE FROM subjects WHERE subject_id = $1`, id)
	return err
}
