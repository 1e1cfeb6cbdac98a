package model

import "time"

// Department is the top-level organizational unit. The password is a
// bcrypt hash, never the raw credential.
type Department struct {
	DeptID   int64  `json:"dept_id"`
	DeptName string `json:"dept_name"`
	Password string `json:"-"`
	Timestamps
}

// Batch is a cohort of students admitted together. The USN range is
// inclusive; the last three characters of a USN are a zero-padded
// decimal suffix, the first seven a literal prefix shared by the
// whole batch.
type Batch struct {
	BatchID         int64   `json:"batch_id"`
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
	Timestamps
}

// Section is a sub-range of a batch with its own USN bounds.
type Section struct {
	SectionID       int64   `json:"section_id"`
	BatchID         int64   `json:"batch_id"`
	Section         string  `json:"section"`
	StartUSN        string  `json:"start_usn"`
	EndUSN          string  `json:"end_usn"`
	LateralStartUSN *string `json:"lateral_start_usn,omitempty"`
	LateralEndUSN   *string `json:"lateral_end_usn,omitempty"`
	NumStudents     int     `json:"num_students"`
	Timestamps
}

// Semester is a temporal phase of a batch. At most one semester per
// batch carries Current=true.
type Semester struct {
	SemID       int64 `json:"sem_id"`
	BatchID     int64 `json:"batch_id"`
	SemNum      int   `json:"sem_num"`
	Current     bool  `json:"current"`
	NumSubjects int   `json:"num_subjects"`
	Timestamps
}

// Subject belongs to a semester and is identified by (sub_code, sem_id).
type Subject struct {
	SubjectID int64  `json:"subject_id"`
	SubCode   string `json:"sub_code"`
	SemID     int64  `json:"sem_id"`
	SubName   string `json:"sub_name"`
	Credits   int    `json:"credits"`
	Timestamps
}

// Student is identified by a globally unique USN. Active=false means
// the portal reported the USN as invalid; a later successful scrape
// revives the row.
type Student struct {
	StudID     int64   `json:"stud_id"`
	BatchID    int64   `json:"batch_id"`
	USN        string  `json:"usn"`
	SectionID  int64   `json:"section_id"`
	StudName   string  `json:"stud_name"`
	CGPA       float64 `json:"cgpa"`
	Active     bool    `json:"active"`
	CurrentSem int     `json:"current_sem"`
	Timestamps
}

// Result codes as printed by the portal.
const (
	ResultPass   = "P"
	ResultFail   = "F"
	ResultAbsent = "A"
	ResultWith   = "W"
)

// Grade classifications derived from (result, total).
const (
	GradeFCD    = "FCD"
	GradeFC     = "FC"
	GradeSC     = "SC"
	GradeFail   = "FAIL"
	GradeAbsent = "ABSENT"
)

// Mark is one scraped subject result for one student. At most one row
// exists per (stud_id, subject_id); re-extraction updates in place.
type Mark struct {
	MarkID    int64  `json:"mark_id"`
	StudID    int64  `json:"stud_id"`
	SubjectID int64  `json:"subject_id"`
	SectionID int64  `json:"section_id"`
	Internal  int    `json:"internal"`
	External  int    `json:"external"`
	Total     int    `json:"total"`
	Result    string `json:"result"`
	Grade     string `json:"grade"`
	Timestamps
}

// StudentPerformance is the per-semester SGPA rollup for a student.
type StudentPerformance struct {
	StudPerfID int64   `json:"stud_perf_id"`
	StudID     int64   `json:"stud_id"`
	SemID      int64   `json:"sem_id"`
	Total      int     `json:"total"`
	Percentage float64 `json:"percentage"`
	SGPA       float64 `json:"sgpa"`
	Timestamps
}

// Extraction job lifecycle states stored in extractions.status. The
// completed/failed booleans remain the externally visible outcome;
// status exists so the worker runner can poll for pending rows.
const (
	ExtractionPending   = "pending"
	ExtractionRunning   = "running"
	ExtractionCompleted = "completed"
	ExtractionFailed    = "failed"
)

// Extraction is one scraping run over one section and one semester.
// Counters only ever move upward; progress is a percentage rounded to
// two decimals.
type Extraction struct {
	ExtractionID int64   `json:"extraction_id"`
	SectionID    int64   `json:"section_id"`
	SemID        int64   `json:"sem_id"`
	Status       string  `json:"status"`
	TotalUSNs    int     `json:"total_usns"`
	NumCompleted int     `json:"num_completed"`
	NumInvalid   int     `json:"num_invalid"`
	NumCaptcha   int     `json:"num_captcha"`
	NumTimeout   int     `json:"num_timeout"`
	Reattempts   int     `json:"reattempts"`
	Progress     float64 `json:"progress"`
	Completed    bool    `json:"completed"`
	Failed       bool    `json:"failed"`
	TimeTaken    float64 `json:"time_taken"`
	Timestamps
}

// ExtractionInvalid accumulates the USNs that ended in a terminal
// per-USN failure, comma-delimited per category.
type ExtractionInvalid struct {
	InvalidID    int64  `json:"invalid_id"`
	ExtractionID int64  `json:"extraction_id"`
	InvalidUSNs  string `json:"invalid_usns"`
	CaptchaUSNs  string `json:"captcha_usns"`
	TimeoutUSNs  string `json:"timeout_usns"`
	Timestamps
}

// Timestamps mirrors the created_at/updated_at columns present on
// every table.
type Timestamps struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SubjectMark is one row of the portal's marks table for one USN.
type SubjectMark struct {
	SubCode  string `json:"sub_code"`
	SubName  string `json:"sub_name"`
	Internal int    `json:"internal"`
	External int    `json:"external"`
	Total    int    `json:"total"`
	Result   string `json:"result"`
}

// StudentRecord is the typed outcome of one successful portal scrape.
type StudentRecord struct {
	USN   string        `json:"usn"`
	Name  string        `json:"name"`
	Marks []SubjectMark `json:"marks"`
}
