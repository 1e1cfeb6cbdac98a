package store

import (
	"context"
	"database/sql"

	"gradex/internal/model"
)

// Departments, batches, semesters, and sections are thin CRUD
// collaborators of the extraction engine; the engine itself only
// reads them.

func scanDepartment(row interface{ Scan(...any) error }) (model.Department, error) {
	var d model.Department
	err := row.Scan(&d.DeptID, &d.DeptName, &d.Password, &d.CreatedAt, &d.UpdatedAt)
	return d, err
}

func (s *Store) InsertDepartment(ctx context.Context, name, passwordHash string) (model.Department, error) {
	row := s.DB.QueryRowContext(ctx, `
		INSERT INTO departments (dept_name, password)
		VALUES ($1, $2)
		RETURNING dept_id, dept_name, password, created_at, updated_at`, name, passwordHash)
	return scanDepartment(row)
}

func (s *Store) GetDepartment(ctx context.Context, id int64) (model.Department, error) {
	row := s.DB.QueryRowContext(ctx, `
		SELECT dept_id, dept_name, password, created_at, updated_at
		FROM departments WHERE dept_id = $1`, id)
	return scanDepartment(row)
}

func (s *Store) GetDepartmentByName(ctx context.Context, name string) (model.Department, error) {
	row := s.DB.QueryRowContext(ctx, `
		SELECT dept_id, dept_name, password, created_at, updated_at
		FROM departments WHERE dept_name = $1`, name)
	return scanDepartment(row)
}

func (s *Store) ListDepartments(ctx context.Context) ([]model.Department, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT dept_id, dept_name, password, created_at, updated_at
		FROM departments ORDER BY dept_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Department
	for rows.Next() {
		d, err := scanDepartment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Store) DeleteDepartment(ctx context.Context, id int64) error {
	_, err := s.DB.ExecContext(ctx, `DELETE FROM departments WHERE dept_id = $1`, id)
	return err
}

const batchCols = `batch_id, dept_id, batch_name, batch_start_year, batch_end_year, scheme,
	start_usn, end_usn, lateral_start_usn, lateral_end_usn, num_students, created_at, updated_at`

func scanBatch(row interface{ Scan(...any) error }) (model.Batch, error) {
	var b model.Batch
	var lStart, lEnd sql.NullString
	err := row.Scan(&b.BatchID, &b.DeptID, &b.BatchName, &b.BatchStartYear, &b.BatchEndYear,
		&b.Scheme, &b.StartUSN, &b.EndUSN, &lStart, &lEnd, &b.NumStudents, &b.CreatedAt, &b.UpdatedAt)
	b.LateralStartUSN = strPtr(lStart)
	b.LateralEndUSN = strPtr(lEnd)
	return b, err
}

func (s *Store) InsertBatch(ctx context.Context, b model.Batch) (model.Batch, error) {
	row := s.DB.QueryRowContext(ctx, `
		INSERT INTO batches (dept_id, batch_name, batch_start_year, batch_end_year, scheme,
			start_usn, end_usn, lateral_start_usn, lateral_end_usn, num_students)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING `+batchCols,
		b.DeptID, b.BatchName, b.BatchStartYear, b.BatchEndYear, b.Scheme,
		b.StartUSN, b.EndUSN, nullStr(b.LateralStartUSN), nullStr(b.LateralEndUSN), b.NumStudents)
	return scanBatch(row)
}

func (s *Store) GetBatch(ctx context.Context, id int64) (model.Batch, error) {
	row := s.DB.QueryRowContext(ctx, `
		SELECT `+batchCols+` FROM batches WHERE batch_id = $1`, id)
	return scanBatch(row)
}

func (s *Store) ListBatches(ctx context.Context) ([]model.Batch, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT `+batchCols+` FROM batches ORDER BY batch_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Batch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *Store) DeleteBatch(ctx context.Context, id int64) error {
	_, err := s.DB.ExecContext(ctx, `DELETE FROM batches WHERE batch_id = $1`, id)
	return err
}

const semesterCols = `sem_id, batch_id, sem_num, current, num_subjects, created_at, updated_at`

func scanSemester(row interface{ Scan(...any) error }) (model.Semester, error) {
	var sem model.Semester
	err := row.Scan(&sem.SemID, &sem.BatchID, &sem.SemNum, &sem.Current,
		&sem.NumSubjects, &sem.CreatedAt, &sem.UpdatedAt)
	return sem, err
}

func (s *Store) InsertSemester(ctx context.Context, sem model.Semester) (model.Semester, error) {
	row := s.DB.QueryRowContext(ctx, `
		INSERT INTO semesters (batch_id, sem_num, current, num_subjects)
		VALUES ($1, $2, $3, $4)
		RETURNING `+semesterCols,
		sem.BatchID, sem.SemNum, sem.Current, sem.NumSubjects)
	return scanSemester(row)
}

func (s *Store) GetSemester(ctx context.Context, id int64) (model.Semester, error) {
	row := s.DB.QueryRowContext(ctx, `
		SELECT `+semesterCols+` FROM semesters WHERE sem_id = $1`, id)
	return scanSemester(row)
}

// GetCurrentSemester returns the single semester flagged current for a
// batch, or sql.ErrNoRows when none is flagged.
func (s *Store) GetCurrentSemester(ctx context.Context, batchID int64) (model.Semester, error) {
	row := s.DB.QueryRowContext(ctx, `
		SELECT `+semesterCols+` FROM semesters
		WHERE batch_id = $1 AND current`, batchID)
	return scanSemester(row)
}

func (s *Store) ListSemestersByBatch(ctx context.Context, batchID int64) ([]model.Semester, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT `+semesterCols+` FROM semesters
		WHERE batch_id = $1 ORDER BY sem_num`, batchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Semester
	for rows.Next() {
		sem, err := scanSemester(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sem)
	}
	return out, rows.Err()
}

// SetCurrentSemester moves the current flag to the given semester in
// one transaction, keeping the one-current-per-batch invariant.
func (s *Store) SetCurrentSemester(ctx context.Context, batchID, semID int64) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		UPDATE semesters SET current = false, updated_at = now()
		WHERE batch_id = $1 AND current`, batchID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE semesters SET current = true, updated_at = now()
		WHERE sem_id = $1 AND batch_id = $2`, semID, batchID); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *Store) DeleteSemester(ctx context.Context, id int64) error {
	_, err := s.DB.ExecContext(ctx, `DELETE FROM semesters WHERE sem_id = $1`, id)
	return err
}

const sectionCols = `section_id, batch_id, section, start_usn, end_usn, lateral_start_usn, lateral_end_usn, num_students, created_at, updated_at`

func scanSection(row interface{ Scan(...any) error }) (model.Section, error) {
	var sec model.Section
	var lStart, lEnd sql.NullString
	err := row.Scan(&sec.SectionID, &sec.BatchID, &sec.Section, &sec.StartUSN, &sec.EndUSN,
		&lStart, &lEnd, &sec.NumStudents, &sec.CreatedAt, &sec.UpdatedAt)
	sec.LateralStartUSN = strPtr(lStart)
	sec.LateralEndUSN = strPtr(lEnd)
	return sec, err
}

func (s *Store) InsertSection(ctx context.Context, sec model.Section) (model.Section, error) {
	row := s.DB.QueryRowContext(ctx, `
		INSERT INTO sections (batch_id, section, start_usn, end_usn, lateral_start_usn, lateral_end_usn, num_students)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+sectionCols,
		sec.BatchID, sec.Section, sec.StartUSN, sec.EndUSN,
		nullStr(sec.LateralStartUSN), nullStr(sec.LateralEndUSN), sec.NumStudents)
	return scanSection(row)
}

func (s *Store) GetSection(ctx context.Context, id int64) (model.Section, error) {
	row := s.DB.QueryRowContext(ctx, `
		SELECT `+sectionCols+` FROM sections WHERE section_id = $1`, id)
	return scanSection(row)
}

func (s *Store) ListSectionsByBatch(ctx context.Context, batchID int64) ([]model.Section, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT `+sectionCols+` FROM sections
		WHERE batch_id = $1 ORDER BY section`, batchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Section
	for rows.Next() {
		sec, err := scanSection(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sec)
	}
	return out, rows.Err()
}

func (s *Store) DeleteSection(ctx context.Context, id int64) error {
	_, err := s.DB.ExecContext(ctx, `DELETE FROM sections WHERE section_id = $1`, id)
	return err
}
