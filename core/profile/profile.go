// Package profile assembles the role-specific profile page data: pure
// read/compose over the user and academic repositories, no writes.
package profile

import (
	"github.com/ceresdev/academico/core/academic"
	"github.com/ceresdev/academico/core/user"
)

// Kind tags what the target user resolved to, decided once per load.
type Kind string

const (
	KindStudent Kind = "student"
	KindTeacher Kind = "teacher"
	KindOther   Kind = "other"
)

type (
	// HistoryEntryForm pre-populates the transcript-entry form: the
	// student's course plus the semester buckets feeding the dependent
	// component dropdown.
	HistoryEntryForm struct {
		Matricula  string `json:"matricula"`
		CourseCode string `json:"course_code"`
		Semesters  []int  `json:"semesters"`
	}

	StudentProfile struct {
		Student         academic.Student           `json:"student"`
		PlannedSchedule []academic.ScheduleEntry   `json:"planned_schedule"`
		PendingRequests []academic.ChangeRequest   `json:"pending_requests"`
		Transcript      []academic.TranscriptEntry `json:"transcript"`
		HistoryForm     HistoryEntryForm           `json:"history_form"`
	}

	TeacherProfile struct {
		Teacher academic.Teacher `json:"teacher"`
		// CurrentSections groups the active period's taught sections by
		// schedule slot.
		CurrentSections map[string][]academic.ScheduleEntry `json:"current_sections"`
		PlannedSchedule []academic.ScheduleEntry            `json:"planned_schedule"`
		Semesters       []int                               `json:"semesters"`
	}

	Profile struct {
		User          user.User       `json:"user"`
		Groups        []string        `json:"groups"`
		Kind          Kind            `json:"kind"`
		ActivePeriod  academic.Period `json:"active_period"`
		PlannedPeriod academic.Period `json:"planned_period"`
		Student       *StudentProfile `json:"student_profile,omitempty"`
		Teacher       *TeacherProfile `json:"teacher_profile,omitempty"`
	}
)
