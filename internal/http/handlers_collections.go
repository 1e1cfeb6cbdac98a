package http

import (
	"database/sql"
	"errors"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"

	"gradex/internal/marks"
	"gradex/internal/model"
	"gradex/internal/store"
)

// Thin CRUD surface over the collaborator collections. These handlers
// talk to the store directly; only the extraction endpoints go through
// services.

func storeFrom(c *fiber.Ctx) *store.Store {
	return c.Locals("store").(*store.Store)
}

func notFound(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
		Success: false, Code: "NOT_FOUND", Error: msg,
	})
}

func internalError(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
		Success: false, Code: "INTERNAL_ERROR", Error: err.Error(),
	})
}

func idParam(c *fiber.Ctx, name string) (int64, bool) {
	id, err := c.ParamsInt(name)
	if err != nil {
		return 0, false
	}
	return int64(id), true
}

// --- departments ---

func createDepartmentHandler(c *fiber.Ctx) error {
	var req DepartmentRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "BAD_REQUEST_INVALID_JSON", "Bad request, malformed JSON")
	}
	if req.DeptName == "" || req.Password == "" {
		return badRequest(c, "BAD_REQUEST", "dept_name and password are required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return internalError(c, err)
	}
	dept, err := storeFrom(c).InsertDepartment(c.Context(), req.DeptName, string(hash))
	if err != nil {
		return internalError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dept)
}

func listDepartmentsHandler(c *fiber.Ctx) error {
	depts, err := storeFrom(c).ListDepartments(c.Context())
	if err != nil {
		return internalError(c, err)
	}
	return c.JSON(depts)
}

func getDepartmentHandler(c *fiber.Ctx) error {
	id, ok := idParam(c, "id")
	if !ok {
		return badRequest(c, "BAD_REQUEST", "id must be an integer")
	}
	dept, err := storeFrom(c).GetDepartment(c.Context(), id)
	if errors.Is(err, sql.ErrNoRows) {
		return notFound(c, "department not found")
	}
	if err != nil {
		return internalError(c, err)
	}
	return c.JSON(dept)
}

func deleteDepartmentHandler(c *fiber.Ctx) error {
	id, ok := idParam(c, "id")
	if !ok {
		return badRequest(c, "BAD_REQUEST", "id must be an integer")
	}
	if err := storeFrom(c).DeleteDepartment(c.Context(), id); err != nil {
		return internalError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func departmentLoginHandler(c *fiber.Ctx) error {
	var req DepartmentLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "BAD_REQUEST_INVALID_JSON", "Bad request, malformed JSON")
	}

	dept, err := storeFrom(c).GetDepartmentByName(c.Context(), req.DeptName)
	if errors.Is(err, sql.ErrNoRows) {
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
			Success: false, Code: "UNAUTHENTICATED", Error: "invalid department or password",
		})
	}
	if err != nil {
		return internalError(c, err)
	}
	if bcrypt.CompareHashAndPassword([]byte(dept.Password), []byte(req.Password)) != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
			Success: false, Code: "UNAUTHENTICATED", Error: "invalid department or password",
		})
	}
	return c.JSON(fiber.Map{"success": true, "dept_id": dept.DeptID, "dept_name": dept.DeptName})
}

// --- batches ---

func createBatchHandler(c *fiber.Ctx) error {
	var req BatchRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "BAD_REQUEST_INVALID_JSON", "Bad request, malformed JSON")
	}
	if req.StartUSN == req.EndUSN {
		return badRequest(c, "BAD_REQUEST", "start_usn and end_usn must differ")
	}
	if _, _, _, err := model.USNRange(req.StartUSN, req.EndUSN); err != nil {
		return badRequest(c, "BAD_REQUEST", err.Error())
	}

	batch, err := storeFrom(c).InsertBatch(c.Context(), model.Batch{
		DeptID:          req.DeptID,
		BatchName:       req.BatchName,
		BatchStartYear:  req.BatchStartYear,
		BatchEndYear:    req.BatchEndYear,
		Scheme:          req.Scheme,
		StartUSN:        req.StartUSN,
		EndUSN:          req.EndUSN,
		LateralStartUSN: req.LateralStartUSN,
		LateralEndUSN:   req.LateralEndUSN,
		NumStudents:     req.NumStudents,
	})
	if err != nil {
		return internalError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(batch)
}

func listBatchesHandler(c *fiber.Ctx) error {
	batches, err := storeFrom(c).ListBatches(c.Context())
	if err != nil {
		return internalError(c, err)
	}
	return c.JSON(batches)
}

func getBatchHandler(c *fiber.Ctx) error {
	id, ok := idParam(c, "id")
	if !ok {
		return badRequest(c, "BAD_REQUEST", "id must be an integer")
	}
	batch, err := storeFrom(c).GetBatch(c.Context(), id)
	if errors.Is(err, sql.ErrNoRows) {
		return notFound(c, "batch not found")
	}
	if err != nil {
		return internalError(c, err)
	}
	return c.JSON(batch)
}

func deleteBatchHandler(c *fiber.Ctx) error {
	id, ok := idParam(c, "id")
	if !ok {
		return badRequest(c, "BAD_REQUEST", "id must be an integer")
	}
	if err := storeFrom(c).DeleteBatch(c.Context(), id); err != nil {
		return internalError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// --- semesters ---

func createSemesterHandler(c *fiber.Ctx) error {
	batchID, ok := idParam(c, "batch_id")
	if !ok {
		return badRequest(c, "BAD_REQUEST", "batch_id must be an integer")
	}
	var req SemesterRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "BAD_REQUEST_INVALID_JSON", "Bad request, malformed JSON")
	}
	if req.SemNum < 1 || req.SemNum > 8 {
		return badRequest(c, "BAD_REQUEST", "sem_num must be between 1 and 8")
	}

	sem, err := storeFrom(c).InsertSemester(c.Context(), model.Semester{
		BatchID:     batchID,
		SemNum:      req.SemNum,
		Current:     req.Current,
		NumSubjects: req.NumSubjects,
	})
	if err != nil {
		return internalError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(sem)
}

func listSemestersHandler(c *fiber.Ctx) error {
	batchID, ok := idParam(c, "batch_id")
	if !ok {
		return badRequest(c, "BAD_REQUEST", "batch_id must be an integer")
	}
	sems, err := storeFrom(c).ListSemestersByBatch(c.Context(), batchID)
	if err != nil {
		return internalError(c, err)
	}
	return c.JSON(sems)
}

func setCurrentSemesterHandler(c *fiber.Ctx) error {
	batchID, ok := idParam(c, "batch_id")
	if !ok {
		return badRequest(c, "BAD_REQUEST", "batch_id must be an integer")
	}
	semID, ok := idParam(c, "id")
	if !ok {
		return badRequest(c, "BAD_REQUEST", "id must be an integer")
	}
	if err := storeFrom(c).SetCurrentSemester(c.Context(), batchID, semID); err != nil {
		return internalError(c, err)
	}
	return c.JSON(fiber.Map{"success": true})
}

func deleteSemesterHandler(c *fiber.Ctx) error {
	id, ok := idParam(c, "id")
	if !ok {
		return badRequest(c, "BAD_REQUEST", "id must be an integer")
	}
	if err := storeFrom(c).DeleteSemester(c.Context(), id); err != nil {
		return internalError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// --- sections ---

func createSectionHandler(c *fiber.Ctx) error {
	var req SectionRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "BAD_REQUEST_INVALID_JSON", "Bad request, malformed JSON")
	}
	if req.StartUSN == req.EndUSN {
		return badRequest(c, "BAD_REQUEST", "start_usn and end_usn must differ")
	}
	if _, _, _, err := model.USNRange(req.StartUSN, req.EndUSN); err != nil {
		return badRequest(c, "BAD_REQUEST", err.Error())
	}

	// The section range must sit inside the owning batch's range.
	batch, err := storeFrom(c).GetBatch(c.Context(), req.BatchID)
	if errors.Is(err, sql.ErrNoRows) {
		return notFound(c, "batch not found")
	}
	if err != nil {
		return internalError(c, err)
	}
	_, blo, bhi, err := model.USNRange(batch.StartUSN, batch.EndUSN)
	if err != nil {
		return internalError(c, err)
	}
	_, slo, shi, _ := model.USNRange(req.StartUSN, req.EndUSN)
	if slo < blo || shi > bhi {
		return badRequest(c, "BAD_REQUEST", "section usn range is outside the batch range")
	}

	section, err := storeFrom(c).InsertSection(c.Context(), model.Section{
		BatchID:         req.BatchID,
		Section:         req.Section,
		StartUSN:        req.StartUSN,
		EndUSN:          req.EndUSN,
		LateralStartUSN: req.LateralStartUSN,
		LateralEndUSN:   req.LateralEndUSN,
		NumStudents:     req.NumStudents,
	})
	if err != nil {
		return internalError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(section)
}

func listSectionsHandler(c *fiber.Ctx) error {
	batchID, ok := idParam(c, "batch_id")
	if !ok {
		return badRequest(c, "BAD_REQUEST", "batch_id must be an integer")
	}
	sections, err := storeFrom(c).ListSectionsByBatch(c.Context(), batchID)
	if err != nil {
		return internalError(c, err)
	}
	return c.JSON(sections)
}

func getSectionHandler(c *fiber.Ctx) error {
	id, ok := idParam(c, "id")
	if !ok {
		return badRequest(c, "BAD_REQUEST", "id must be an integer")
	}
	section, err := storeFrom(c).GetSection(c.Context(), id)
	if errors.Is(err, sql.ErrNoRows) {
		return notFound(c, "section not found")
	}
	if err != nil {
		return internalError(c, err)
	}
	return c.JSON(section)
}

func deleteSectionHandler(c *fiber.Ctx) error {
	id, ok := idParam(c, "id")
	if !ok {
		return badRequest(c, "BAD_REQUEST", "id must be an integer")
	}
	if err := storeFrom(c).DeleteSection(c.Context(), id); err != nil {
		return internalError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// --- students ---

func createStudentHandler(c *fiber.Ctx) error {
	var req StudentRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "BAD_REQUEST_INVALID_JSON", "Bad request, malformed JSON")
	}
	if len(req.USN) != model.USNLength {
		return badRequest(c, "BAD_REQUEST", "usn must be 10 characters")
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}
	student, err := storeFrom(c).InsertStudent(c.Context(), model.Student{
		BatchID:    req.BatchID,
		USN:        req.USN,
		SectionID:  req.SectionID,
		StudName:   req.StudName,
		CGPA:       req.CGPA,
		Active:     active,
		CurrentSem: req.CurrentSem,
	})
	if err != nil {
		return internalError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(student)
}

func listStudentsHandler(c *fiber.Ctx) error {
	sectionID, ok := idParam(c, "section_id")
	if !ok {
		return badRequest(c, "BAD_REQUEST", "section_id must be an integer")
	}
	students, err := storeFrom(c).ListStudentsBySection(c.Context(), sectionID)
	if err != nil {
		return internalError(c, err)
	}
	return c.JSON(students)
}

func getStudentHandler(c *fiber.Ctx) error {
	id, ok := idParam(c, "id")
	if !ok {
		return badRequest(c, "BAD_REQUEST", "id must be an integer")
	}
	student, err := storeFrom(c).GetStudent(c.Context(), id)
	if errors.Is(err, sql.ErrNoRows) {
		return notFound(c, "student not found")
	}
	if err != nil {
		return internalError(c, err)
	}
	return c.JSON(student)
}

func updateStudentHandler(c *fiber.Ctx) error {
	id, ok := idParam(c, "id")
	if !ok {
		return badRequest(c, "BAD_REQUEST", "id must be an integer")
	}
	var req StudentRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "BAD_REQUEST_INVALID_JSON", "Bad request, malformed JSON")
	}

	existing, err := storeFrom(c).GetStudent(c.Context(), id)
	if errors.Is(err, sql.ErrNoRows) {
		return notFound(c, "student not found")
	}
	if err != nil {
		return internalError(c, err)
	}

	existing.StudName = req.StudName
	existing.CGPA = req.CGPA
	existing.CurrentSem = req.CurrentSem
	if req.Active != nil {
		existing.Active = *req.Active
	}
	updated, err := storeFrom(c).UpdateStudent(c.Context(), existing)
	if err != nil {
		return internalError(c, err)
	}
	return c.JSON(updated)
}

func deleteStudentHandler(c *fiber.Ctx) error {
	id, ok := idParam(c, "id")
	if !ok {
		return badRequest(c, "BAD_REQUEST", "id must be an integer")
	}
	if err := storeFrom(c).DeleteStudent(c.Context(), id); err != nil {
		return internalError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// --- subjects ---

func listSubjectsHandler(c *fiber.Ctx) error {
	semID, ok := idParam(c, "sem_id")
	if !ok {
		return badRequest(c, "BAD_REQUEST", "sem_id must be an integer")
	}
	subjects, err := storeFrom(c).ListSubjectsBySemester(c.Context(), semID)
	if err != nil {
		return internalError(c, err)
	}
	return c.JSON(subjects)
}

func updateSubjectHandler(c *fiber.Ctx) error {
	id, ok := idParam(c, "id")
	if !ok {
		return badRequest(c, "BAD_REQUEST", "id must be an integer")
	}
	var req SubjectPayload
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "BAD_REQUEST_INVALID_JSON", "Bad request, malformed JSON")
	}
	if req.Credits <= 0 {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(ErrorResponse{
			Success: false, Code: "VALIDATION_FAILED", Error: "credits must be positive",
		})
	}

	subject, err := storeFrom(c).UpdateSubject(c.Context(), model.Subject{
		SubjectID: id,
		SubCode:   req.SubCode,
		SubName:   req.SubName,
		Credits:   req.Credits,
	})
	if errors.Is(err, sql.ErrNoRows) {
		return notFound(c, "subject not found")
	}
	if err != nil {
		return internalError(c, err)
	}
	return c.JSON(subject)
}

func deleteSubjectHandler(c *fiber.Ctx) error {
	id, ok := idParam(c, "id")
	if !ok {
		return badRequest(c, "BAD_REQUEST", "id must be an integer")
	}
	if err := storeFrom(c).DeleteSubject(c.Context(), id); err != nil {
		return internalError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// --- marks & performances ---

func listMarksHandler(c *fiber.Ctx) error {
	studID, ok := idParam(c, "id")
	if !ok {
		return badRequest(c, "BAD_REQUEST", "id must be an integer")
	}
	rows, err := storeFrom(c).ListMarksByStudent(c.Context(), studID)
	if err != nil {
		return internalError(c, err)
	}
	return c.JSON(rows)
}

func deleteMarkHandler(c *fiber.Ctx) error {
	id, ok := idParam(c, "id")
	if !ok {
		return badRequest(c, "BAD_REQUEST", "id must be an integer")
	}
	if err := storeFrom(c).DeleteMark(c.Context(), id); err != nil {
		return internalError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// computePerformanceHandler rolls a student's semester marks up into
// total, percentage, and SGPA, and upserts the result.
func computePerformanceHandler(c *fiber.Ctx) error {
	studID, ok := idParam(c, "id")
	if !ok {
		return badRequest(c, "BAD_REQUEST", "id must be an integer")
	}
	semID, ok := idParam(c, "sem_id")
	if !ok {
		return badRequest(c, "BAD_REQUEST", "sem_id must be an integer")
	}

	st := storeFrom(c)
	rows, err := st.ListMarkTotalsForSemester(c.Context(), studID, semID)
	if err != nil {
		return internalError(c, err)
	}
	if len(rows) == 0 {
		return notFound(c, "no marks recorded for this semester")
	}

	totals := make([]int, len(rows))
	credits := make([]int, len(rows))
	sum := 0
	for i, r := range rows {
		totals[i] = r.Total
		credits[i] = r.Credits
		sum += r.Total
	}

	sgpa, err := marks.SGPA(totals, credits)
	if errors.Is(err, marks.ErrNoCredits) {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(ErrorResponse{
			Success: false, Code: "NO_CREDITS", Error: err.Error(),
		})
	}
	if err != nil {
		return internalError(c, err)
	}

	perf, err := st.UpsertStudentPerformance(c.Context(), model.StudentPerformance{
		StudID:     studID,
		SemID:      semID,
		Total:      sum,
		Percentage: float64(sum) / float64(len(rows)),
		SGPA:       sgpa,
	})
	if err != nil {
		return internalError(c, err)
	}
	return c.JSON(perf)
}

func listPerformancesHandler(c *fiber.Ctx) error {
	studID, ok := idParam(c, "id")
	if !ok {
		return badRequest(c, "BAD_REQUEST", "id must be an integer")
	}
	perfs, err := storeFrom(c).ListStudentPerformances(c.Context(), studID)
	if err != nil {
		return internalError(c, err)
	}
	return c.JSON(perfs)
}
