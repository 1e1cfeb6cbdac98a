package store

import (
	"context"

	"gradex/internal/model"
)

const studentCols = `stud_id, batch_id, usn, section_id, stud_name, cgpa, active, current_sem, created_at, updated_at`

func scanStudent(row interface{ Scan(...any) error }) (model.Student, error) {
	var st model.Student
	err := row.Scan(&st.StudID, &st.BatchID, &st.USN, &st.SectionID, &st.StudName,
		&st.CGPA, &st.Active, &st.CurrentSem, &st.CreatedAt, &st.UpdatedAt)
	return st, err
}

// GetStudentByUSN looks up a student within one section. Returns
// sql.ErrNoRows when the USN has no row yet.
func (s *Store) GetStudentByUSN(ctx context.Context, usn string, sectionID int64) (model.Student, error) {
	row := s.DB.QueryRowContext(ctx, `
		SELECT `+studentCols+` FROM students
		WHERE usn = $1 AND section_id = $2`, usn, sectionID)
	return scanStudent(row)
}

// GetStudent fetches a student by primary key.
func (s *Store) GetStudent(ctx context.Context, id int64) (model.Student, error) {
	row := s.DB.QueryRowContext(ctx, `
		SELECT `+studentCols+` FROM students WHERE stud_id = $1`, id)
	return scanStudent(row)
}

// ListStudentsBySection returns students ordered by USN.
func (s *Store) ListStudentsBySection(ctx context.Context, sectionID int64) ([]model.Student, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT `+studentCols+` FROM students
		WHERE section_id = $1 ORDER BY usn`, sectionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Student
	for rows.Next() {
		st, err := scanStudent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// InsertStudent creates a student row and returns it.
func (s *Store) InsertStudent(ctx context.Context, st model.Student) (model.Student, error) {
	row := s.DB.QueryRowContext(ctx, `
		INSERT INTO students (batch_id, usn, section_id, stud_name, cgpa, active, current_sem)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+studentCols,
		st.BatchID, st.USN, st.SectionID, st.StudName, st.CGPA, st.Active, st.CurrentSem)
	return scanStudent(row)
}

// UpdateStudentScrapeState applies the post-scrape mutations (name
// and/or active revival) in one statement.
func (s *Store) UpdateStudentScrapeState(ctx context.Context, id int64, name string, active bool) error {
	_, err := s.DB.ExecContext(ctx, `
		UPDATE students SET stud_name = $2, active = $3, updated_at = now()
		WHERE stud_id = $1`, id, name, active)
	return err
}

// DeactivateStudent marks a USN the portal rejected as no longer
// enrolled. A later successful scrape revives it.
func (s *Store) DeactivateStudent(ctx context.Context, id int64) error {
	_, err := s.DB.ExecContext(ctx, `
		UPDATE students SET active = false, updated_at = now()
		WHERE stud_id = $1`, id)
	return err
}

// UpdateStudent applies CRUD-level field changes.
func (s *Store) UpdateStudent(ctx context.Context, st model.Student) (model.Student, error) {
	row := s.DB.QueryRowContext(ctx, `
		UPDATE students SET stud_name = $2, cgpa = $3, active = $4, current_sem = $5, updated_at = now()
		WHERE stud_id = $1
		RETURNING `+studentCols,
		st.StudID, st.StudName, st.CGPA, st.Active, st.CurrentSem)
	return scanStudent(row)
}

// DeleteStudent removes a student; marks cascade.
func (s *Store) DeleteStudent(ctx context.Context, id int64) error {
	_, err := s.DB.ExecContext(ctx, `DELETE FROM students WHERE stud_id = $1`, id)
	return err
}
