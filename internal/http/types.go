package http

// ErrorResponse is the error envelope shared by every endpoint.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Code    string `json:"code,omitempty"`
	Error   string `json:"error"`
}

// IdentifySubjectsRequest starts the synchronous subject discovery
// scrape. USN is optional; when empty one is drawn from the batch's
// range.
type IdentifySubjectsRequest struct {
	USN       string `json:"usn,omitempty"`
	ResultURL string `json:"result_url"`
}

// SubjectPayload is one subject entry in add_subjects and CRUD bodies.
type SubjectPayload struct {
	SubCode string `json:"sub_code"`
	SubName string `json:"sub_name"`
	Credits int    `json:"credits"`
}

// StartScrapeResponse acknowledges an accepted extraction job.
type StartScrapeResponse struct {
	Message             string `json:"message"`
	ExtractionID        int64  `json:"extraction_id"`
	ExtractionInvalidID int64  `json:"extraction_invalid_id"`
	StartUSN            string `json:"start_usn"`
	EndUSN              string `json:"end_usn"`
	NumberUSNs          int    `json:"number_usns"`
}

// DepartmentRequest creates a department; the password is stored as a
// bcrypt hash.
type DepartmentRequest struct {
	DeptName string `json:"dept_name"`
	Password string `json:"password"`
}

// DepartmentLoginRequest authenticates against the stored hash.
type DepartmentLoginRequest struct {
	DeptName string `json:"dept_name"`
	Password string `json:"password"`
}

// BatchRequest creates a batch under a department.
type BatchRequest struct {
	DeptID          int64   `json:"dept_id"`
	BatchName       string  `json:"batch_name"`
	BatchStartYear  int     `json:"batch_start_year"`
	BatchEndYear    int     `json:"batch_end_year"`
	Scheme          int     `json:"scheme"`
	StartUSN        string  `json:"start_usn"`
	EndUSN          string  `json:"end_usn"`
	LateralStartUSN *string `json:"lateral_start_usn,omitempty"`
	LateralEndUSN   *string `json:"lateral_end_usn,omitempty"`
	NumStudents     int     `json:"num_students"`
}

// SemesterRequest creates a semester within a batch.
type SemesterRequest struct {
	SemNum      int  `json:"sem_num"`
	Current     bool `json:"current"`
	NumSubjects int  `json:"num_subjects"`
}

// SectionRequest creates a section within a batch.
type SectionRequest struct {
	BatchID         int64   `json:"batch_id"`
	Section         string  `json:"section"`
	StartUSN        string  `json:"start_usn"`
	EndUSN          string  `json:"end_usn"`
	LateralStartUSN *string `json:"lateral_start_usn,omitempty"`
	LateralEndUSN   *string `json:"lateral_end_usn,omitempty"`
	NumStudents     int     `json:"num_students"`
}

// StudentRequest creates or updates a student row.
type StudentRequest struct {
	BatchID    int64   `json:"batch_id"`
	USN        string  `json:"usn"`
	SectionID  int64   `json:"section_id"`
	StudName   string  `json:"stud_name"`
	CGPA       float64 `json:"cgpa"`
	Active     *bool   `json:"active,omitempty"`
	CurrentSem int     `json:"current_sem"`
}
