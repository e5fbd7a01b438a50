package academic

import (
	"context"
	"errors"
	"time"
)

var (
	ErrTeacherNotFound = errors.New("teacher not found")
	ErrStudentNotFound = errors.New("student not found")
	ErrCourseNotFound  = errors.New("course not found")
	ErrPeriodNotFound  = errors.New("academic period not found")
)

type (
	TeacherRepository interface {
		GetTeacherBySiape(ctx context.Context, siape string) (Teacher, error)
		GetTeacherByUserID(ctx context.Context, userID string) (Teacher, error)
		SetTeacherUser(ctx context.Context, siape, userID string) error
	}

	StudentRepository interface {
		GetStudentByMatricula(ctx context.Context, matricula string) (Student, error)
		GetStudentByUserID(ctx context.Context, userID string) (Student, error)
		SetStudentUser(ctx context.Context, matricula, userID string) error
	}

	AppointmentRepository interface {
		// ActiveFunctionsBySiape returns the appointed functions held by
		// siape on the given date (start inclusive, end exclusive).
		ActiveFunctionsBySiape(ctx context.Context, siape string, on time.Time) ([]AppointedFunction, error)
	}

	PeriodRepository interface {
		ActivePeriod(ctx context.Context) (Period, error)
		PlannedPeriod(ctx context.Context) (Period, error)
	}

	CourseRepository interface {
		GetCourseByCode(ctx context.Context, code string) (Course, error)
	}

	ComponentRepository interface {
		ComponentsByCourseAndSemester(ctx context.Context, courseCode string, semester int) ([]CurriculumComponent, error)
	}

	ScheduleRepository interface {
		StudentGrid(ctx context.Context, matricula string, p Period) ([]ScheduleEntry, error)
		// TeacherGrid keeps only entries whose semester is in the given buckets.
		TeacherGrid(ctx context.Context, siape string, p Period, semesters []int) ([]ScheduleEntry, error)
		TeacherSections(ctx context.Context, siape string, p Period) ([]ScheduleEntry, error)
	}

	RequestRepository interface {
		PendingRequests(ctx context.Context, matricula string, p Period) ([]ChangeRequest, error)
	}

	TranscriptRepository interface {
		TranscriptByStudent(ctx context.Context, matricula string) ([]TranscriptEntry, error)
	}
)
