package dummydb

import (
	"context"
	"sort"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/ceresdev/academico/core/academic"
)

type teacherRepository struct {
	db *academicTable
}

var _ academic.TeacherRepository = (*teacherRepository)(nil) // interface compliance check

func NewTeacherRepository(db *DB) academic.TeacherRepository {
	return &teacherRepository{db: db.academic}
}

func (repo *teacherRepository) GetTeacherBySiape(ctx context.Context, siape string) (academic.Teacher, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if t, ok := repo.db.teachers[siape]; ok {
		return *t, nil
	}
	return academic.Teacher{}, academic.ErrTeacherNotFound
}

func (repo *teacherRepository) GetTeacherByUserID(ctx context.Context, userID string) (academic.Teacher, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, t := range repo.db.teachers {
		if t.UserID.Valid && t.UserID.String == userID {
			return *t, nil
		}
	}
	return academic.Teacher{}, academic.ErrTeacherNotFound
}

func (repo *teacherRepository) SetTeacherUser(ctx context.Context, siape, userID string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	t, ok := repo.db.teachers[siape]
	if !ok {
		return academic.ErrTeacherNotFound
	}
	t.UserID = null.StringFrom(userID)
	return nil
}

type studentRepository struct {
	db *academicTable
}

var _ academic.StudentRepository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db *DB) academic.StudentRepository {
	return &studentRepository{db: db.academic}
}

func (repo *studentRepository) GetStudentByMatricula(ctx context.Context, matricula string) (academic.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if s, ok := repo.db.students[matricula]; ok {
		return *s, nil
	}
	return academic.Student{}, academic.ErrStudentNotFound
}

func (repo *studentRepository) GetStudentByUserID(ctx context.Context, userID string) (academic.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, s := range repo.db.students {
		if s.UserID.Valid && s.UserID.String == userID {
			return *s, nil
		}
	}
	return academic.Student{}, academic.ErrStudentNotFound
}

func (repo *studentRepository) SetStudentUser(ctx context.Context, matricula, userID string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	s, ok := repo.db.students[matricula]
	if !ok {
		return academic.ErrStudentNotFound
	}
	s.UserID = null.StringFrom(userID)
	return nil
}

type appointmentRepository struct {
	db *academicTable
}

var _ academic.AppointmentRepository = (*appointmentRepository)(nil) // interface compliance check

func NewAppointmentRepository(db *DB) academic.AppointmentRepository {
	return &appointmentRepository{db: db.academic}
}

func (repo *appointmentRepository) ActiveFunctionsBySiape(ctx context.Context, siape string, on time.Time) ([]academic.AppointedFunction, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var fns []academic.AppointedFunction
	for _, fn := range repo.db.functions {
		if fn.Siape == siape && fn.ActiveOn(on) {
			fns = append(fns, fn)
		}
	}
	return fns, nil
}

type periodRepository struct {
	db *academicTable
}

var _ academic.PeriodRepository = (*periodRepository)(nil) // interface compliance check

func NewPeriodRepository(db *DB) academic.PeriodRepository {
	return &periodRepository{db: db.academic}
}

func (repo *periodRepository) getPeriod(status string) (academic.Period, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, row := range repo.db.periods {
		if row.status == status {
			return row.period, nil
		}
	}
	return academic.Period{}, academic.ErrPeriodNotFound
}

func (repo *periodRepository) ActivePeriod(ctx context.Context) (academic.Period, error) {
	return repo.getPeriod(academic.PeriodStatusActive)
}

func (repo *periodRepository) PlannedPeriod(ctx context.Context) (academic.Period, error) {
	return repo.getPeriod(academic.PeriodStatusPlanned)
}

type courseRepository struct {
	db *academicTable
}

var _ academic.CourseRepository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *DB) academic.CourseRepository {
	return &courseRepository{db: db.academic}
}

func (repo *courseRepository) GetCourseByCode(ctx context.Context, code string) (academic.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if c, ok := repo.db.courses[code]; ok {
		return c, nil
	}
	return academic.Course{}, academic.ErrCourseNotFound
}

type componentRepository struct {
	db *academicTable
}

var _ academic.ComponentRepository = (*componentRepository)(nil) // interface compliance check

func NewComponentRepository(db *DB) academic.ComponentRepository {
	return &componentRepository{db: db.academic}
}

func (repo *componentRepository) ComponentsByCourseAndSemester(ctx context.Context, courseCode string, semester int) ([]academic.CurriculumComponent, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var comps []academic.CurriculumComponent
	for _, c := range repo.db.components {
		if c.CourseCode == courseCode && c.Semester == semester {
			comps = append(comps, c)
		}
	}
	sort.Slice(comps, func(i, j int) bool { return comps[i].Code < comps[j].Code })
	return comps, nil
}

type scheduleRepository struct {
	db *academicTable
}

var _ academic.ScheduleRepository = (*scheduleRepository)(nil) // interface compliance check

func NewScheduleRepository(db *DB) academic.ScheduleRepository {
	return &scheduleRepository{db: db.academic}
}

func (repo *scheduleRepository) StudentGrid(ctx context.Context, matricula string, p academic.Period) ([]academic.ScheduleEntry, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var entries []academic.ScheduleEntry
	for _, row := range repo.db.grid {
		if row.matricula == matricula && row.period == p {
			entries = append(entries, row.entry)
		}
	}
	return entries, nil
}

func (repo *scheduleRepository) TeacherGrid(ctx context.Context, siape string, p academic.Period, semesters []int) ([]academic.ScheduleEntry, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	buckets := make(map[int]bool, len(semesters))
	for _, s := range semesters {
		buckets[s] = true
	}

	var entries []academic.ScheduleEntry
	for _, row := range repo.db.grid {
		if row.siape == siape && row.period == p && buckets[row.entry.Semester] {
			entries = append(entries, row.entry)
		}
	}
	return entries, nil
}

func (repo *scheduleRepository) TeacherSections(ctx context.Context, siape string, p academic.Period) ([]academic.ScheduleEntry, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var entries []academic.ScheduleEntry
	for _, row := range repo.db.grid {
		if row.siape == siape && row.period == p {
			entries = append(entries, row.entry)
		}
	}
	return entries, nil
}

type requestRepository struct {
	db *academicTable
}

var _ academic.RequestRepository = (*requestRepository)(nil) // interface compliance check

func NewRequestRepository(db *DB) academic.RequestRepository {
	return &requestRepository{db: db.academic}
}

func (repo *requestRepository) PendingRequests(ctx context.Context, matricula string, p academic.Period) ([]academic.ChangeRequest, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var reqs []academic.ChangeRequest
	for _, req := range repo.db.requests {
		if req.Matricula == matricula && req.Year == p.Year && req.Term == p.Term &&
			req.Status == academic.RequestStatusPending {
			reqs = append(reqs, req)
		}
	}
	sort.Slice(reqs, func(i, j int) bool { return reqs[i].CreatedAt.Before(reqs[j].CreatedAt) })
	return reqs, nil
}

type transcriptRepository struct {
	db *academicTable
}

var _ academic.TranscriptRepository = (*transcriptRepository)(nil) // interface compliance check

func NewTranscriptRepository(db *DB) academic.TranscriptRepository {
	return &transcriptRepository{db: db.academic}
}

func (repo *transcriptRepository) TranscriptByStudent(ctx context.Context, matricula string) ([]academic.TranscriptEntry, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var entries []academic.TranscriptEntry
	for _, e := range repo.db.transcripts {
		if e.Matricula == matricula {
			entries = append(entries, e)
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Year != entries[j].Year {
			return entries[i].Year < entries[j].Year
		}
		if entries[i].Term != entries[j].Term {
			return entries[i].Term < entries[j].Term
		}
		return entries[i].ComponentCode < entries[j].ComponentCode
	})
	return entries, nil
}
