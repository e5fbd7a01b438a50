package profile

import (
	"context"

	"github.com/pkg/errors"

	"github.com/ceresdev/academico/core/academic"
	"github.com/ceresdev/academico/core/user"
)

// ErrNotOwner is returned when a viewer asks for someone else's profile;
// nothing is assembled in that case.
var ErrNotOwner = errors.New("no permission to view this profile")

type (
	Service interface {
		// Load resolves the target user, authorizes the viewer (self-only)
		// and assembles the role-specific profile data.
		Load(ctx context.Context, viewer user.User, username string) (Profile, error)
		// Components lists a course's curriculum components for a semester;
		// an unknown course yields an empty list, not an error.
		Components(ctx context.Context, courseCode string, semester int) ([]academic.CurriculumComponent, error)
	}

	service struct {
		usrRepo        user.Repository
		teacherRepo    academic.TeacherRepository
		studentRepo    academic.StudentRepository
		periodRepo     academic.PeriodRepository
		courseRepo     academic.CourseRepository
		componentRepo  academic.ComponentRepository
		scheduleRepo   academic.ScheduleRepository
		requestRepo    academic.RequestRepository
		transcriptRepo academic.TranscriptRepository
	}
)

var _ Service = (*service)(nil)

func NewService(
	usrRepo user.Repository,
	teacherRepo academic.TeacherRepository,
	studentRepo academic.StudentRepository,
	periodRepo academic.PeriodRepository,
	courseRepo academic.CourseRepository,
	componentRepo academic.ComponentRepository,
	scheduleRepo academic.ScheduleRepository,
	requestRepo academic.RequestRepository,
	transcriptRepo academic.TranscriptRepository,
) Service {
	return &service{
		usrRepo:        usrRepo,
		teacherRepo:    teacherRepo,
		studentRepo:    studentRepo,
		periodRepo:     periodRepo,
		courseRepo:     courseRepo,
		componentRepo:  componentRepo,
		scheduleRepo:   scheduleRepo,
		requestRepo:    requestRepo,
		transcriptRepo: transcriptRepo,
	}
}

func (svc *service) Load(ctx context.Context, viewer user.User, username string) (Profile, error) {
	var p Profile

	usr, err := svc.usrRepo.GetUserByUsername(ctx, username)
	if err != nil {
		return p, errors.Wrap(err, "finding target user")
	}
	if viewer.ID != usr.ID {
		return p, ErrNotOwner
	}

	active, err := svc.periodRepo.ActivePeriod(ctx)
	if err != nil {
		return p, errors.Wrap(err, "finding active period")
	}
	planned, err := svc.periodRepo.PlannedPeriod(ctx)
	if err != nil {
		return p, errors.Wrap(err, "finding planned period")
	}

	p = Profile{
		User:          usr,
		Groups:        usr.Groups,
		Kind:          KindOther,
		ActivePeriod:  active,
		PlannedPeriod: planned,
	}

	// role dispatch: linked student record wins, then teacher, else other
	if std, err := svc.studentRepo.GetStudentByUserID(ctx, usr.ID); err == nil {
		p.Kind = KindStudent
		sp, err := svc.loadStudent(ctx, std, planned)
		if err != nil {
			return p, err
		}
		p.Student = &sp
		return p, nil
	} else if errors.Cause(err) != academic.ErrStudentNotFound {
		return p, errors.Wrap(err, "finding linked student")
	}

	if tch, err := svc.teacherRepo.GetTeacherByUserID(ctx, usr.ID); err == nil {
		p.Kind = KindTeacher
		tp, err := svc.loadTeacher(ctx, tch, active, planned)
		if err != nil {
			return p, err
		}
		p.Teacher = &tp
		return p, nil
	} else if errors.Cause(err) != academic.ErrTeacherNotFound {
		return p, errors.Wrap(err, "finding linked teacher")
	}

	return p, nil
}

func (svc *service) loadStudent(ctx context.Context, std academic.Student, planned academic.Period) (StudentProfile, error) {
	var sp StudentProfile

	grid, err := svc.scheduleRepo.StudentGrid(ctx, std.Matricula, planned)
	if err != nil {
		return sp, errors.Wrap(err, "loading student schedule")
	}
	reqs, err := svc.requestRepo.PendingRequests(ctx, std.Matricula, planned)
	if err != nil {
		return sp, errors.Wrap(err, "loading pending requests")
	}
	transcript, err := svc.transcriptRepo.TranscriptByStudent(ctx, std.Matricula)
	if err != nil {
		return sp, errors.Wrap(err, "loading transcript")
	}

	return StudentProfile{
		Student:         std,
		PlannedSchedule: grid,
		PendingRequests: reqs,
		Transcript:      transcript,
		HistoryForm: HistoryEntryForm{
			Matricula:  std.Matricula,
			CourseCode: std.CourseCode,
			Semesters:  academic.SemesterBuckets,
		},
	}, nil
}

func (svc *service) loadTeacher(ctx context.Context, tch academic.Teacher, active, planned academic.Period) (TeacherProfile, error) {
	var tp TeacherProfile

	sections, err := svc.scheduleRepo.TeacherSections(ctx, tch.Siape, active)
	if err != nil {
		return tp, errors.Wrap(err, "loading taught sections")
	}
	bySlot := make(map[string][]academic.ScheduleEntry)
	for _, entry := range sections {
		bySlot[entry.SlotCode] = append(bySlot[entry.SlotCode], entry)
	}

	grid, err := svc.scheduleRepo.TeacherGrid(ctx, tch.Siape, planned, academic.SemesterBuckets)
	if err != nil {
		return tp, errors.Wrap(err, "loading teacher schedule")
	}

	return TeacherProfile{
		Teacher:         tch,
		CurrentSections: bySlot,
		PlannedSchedule: grid,
		Semesters:       academic.SemesterBuckets,
	}, nil
}

func (svc *service) Components(ctx context.Context, courseCode string, semester int) ([]academic.CurriculumComponent, error) {
	course, err := svc.courseRepo.GetCourseByCode(ctx, courseCode)
	if err != nil {
		if errors.Cause(err) == academic.ErrCourseNotFound {
			return []academic.CurriculumComponent{}, nil
		}
		return nil, errors.Wrap(err, "finding course")
	}

	components, err := svc.componentRepo.ComponentsByCourseAndSemester(ctx, course.Code, semester)
	if err != nil {
		return nil, errors.Wrap(err, "finding components")
	}
	if components == nil {
		components = []academic.CurriculumComponent{}
	}
	return components, nil
}
