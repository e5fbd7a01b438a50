package academic

import (
	"fmt"
	"time"

	"github.com/volatiletech/null/v8"
)

// Student enrollment statuses as recorded by the institution's registry.
const (
	StudentStatusActive     = "ATIVO"
	StudentStatusGraduating = "ATIVO - FORMANDO"
)

// Appointed-function activities that confer management groups.
const (
	ActivityDepartmentHead    = "CHEFE DE DEPARTAMENTO"
	ActivityCourseCoordinator = "COORDENADOR DE CURSO"
)

// Academic period statuses.
const (
	PeriodStatusActive  = "ATIVO"
	PeriodStatusPlanned = "PLANEJAMENTO"
)

// RequestStatusPending marks a schedule-change request awaiting review.
const RequestStatusPending = "PENDENTE"

// SemesterBuckets are the curriculum semesters a teacher's planned schedule
// spans; 0 holds electives and components with no assigned semester.
var SemesterBuckets = []int{1, 2, 3, 4, 5, 6, 7, 8, 0}

type (
	// Teacher is a teaching staff record, identified by its siape number.
	// UserID is set once, when an account is provisioned for the number.
	Teacher struct {
		ID         string      `json:"id" db:"id"`
		Siape      string      `json:"siape" db:"siape"`
		Name       string      `json:"name" db:"name"`
		Department string      `json:"department" db:"department"`
		UserID     null.String `json:"user_id" db:"user_id"`
	}

	// Student is a learner record, identified by its matricula number.
	Student struct {
		ID         string      `json:"id" db:"id"`
		Matricula  string      `json:"matricula" db:"matricula"`
		Name       string      `json:"name" db:"name"`
		CourseCode string      `json:"course_code" db:"course_code"`
		Status     string      `json:"status" db:"status"`
		UserID     null.String `json:"user_id" db:"user_id"`
	}

	// AppointedFunction is a time-bounded administrative role held by a
	// teacher: the holder has it while `Start <= today < End`.
	AppointedFunction struct {
		ID       string    `json:"id" db:"id"`
		Siape    string    `json:"siape" db:"siape"`
		Activity string    `json:"activity" db:"activity"`
		Start    time.Time `json:"start" db:"start_date"`
		End      time.Time `json:"end" db:"end_date"`
	}

	// Period is an academic term, e.g. 2024.1.
	Period struct {
		Year int `json:"year" db:"year"`
		Term int `json:"term" db:"term"`
	}

	Course struct {
		ID   string `json:"id" db:"id"`
		Code string `json:"code" db:"code"`
		Name string `json:"name" db:"name"`
	}

	// CurriculumComponent is a course subject placed on a curriculum
	// semester; semester 0 marks electives.
	CurriculumComponent struct {
		ID         string `json:"id" db:"id"`
		Code       string `json:"code" db:"code"`
		Name       string `json:"name" db:"name"`
		CourseCode string `json:"course_code" db:"course_code"`
		Semester   int    `json:"semester" db:"semester"`
	}

	// ScheduleEntry is one class meeting on a period's timetable.
	// SlotCode is the institutional slot notation (e.g. "35M34").
	ScheduleEntry struct {
		SlotCode      string `json:"slot_code" db:"slot_code"`
		Weekday       int    `json:"weekday" db:"weekday"`
		ComponentCode string `json:"component_code" db:"component_code"`
		ComponentName string `json:"component_name" db:"component_name"`
		Room          string `json:"room" db:"room"`
		Semester      int    `json:"semester" db:"semester"`
		SectionCode   string `json:"section_code" db:"section_code"`
	}

	// ChangeRequest is a student's pending schedule-change request for a period.
	ChangeRequest struct {
		ID            string    `json:"id" db:"id"`
		Matricula     string    `json:"matricula" db:"matricula"`
		Year          int       `json:"year" db:"year"`
		Term          int       `json:"term" db:"term"`
		ComponentCode string    `json:"component_code" db:"component_code"`
		Kind          string    `json:"kind" db:"kind"`
		Status        string    `json:"status" db:"status"`
		CreatedAt     time.Time `json:"created_at" db:"created_at"`
	}

	// TranscriptEntry is one completed (or attempted) component on a
	// student's historical record.
	TranscriptEntry struct {
		ID            string  `json:"id" db:"id"`
		Matricula     string  `json:"matricula" db:"matricula"`
		Year          int     `json:"year" db:"year"`
		Term          int     `json:"term" db:"term"`
		ComponentCode string  `json:"component_code" db:"component_code"`
		ComponentName string  `json:"component_name" db:"component_name"`
		Workload      int     `json:"workload" db:"workload"`
		Grade         float64 `json:"grade" db:"grade"`
		Status        string  `json:"status" db:"status"`
	}
)

func (p Period) String() string {
	return fmt.Sprintf("%d.%d", p.Year, p.Term)
}

// IsActive reports whether the enrollment status allows a Students
// group membership.
func (s Student) IsActive() bool {
	return s.Status == StudentStatusActive || s.Status == StudentStatusGraduating
}

// ActiveOn reports whether the function is held on the given date;
// start is inclusive, end exclusive.
func (fn AppointedFunction) ActiveOn(t time.Time) bool {
	return !t.Before(fn.Start) && t.Before(fn.End)
}
