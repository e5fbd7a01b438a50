package sqlxrepos

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/ceresdev/academico/core/academic"
)

type periodRepository struct {
	db *sqlx.DB
}

var _ academic.PeriodRepository = (*periodRepository)(nil) // interface compliance check

func NewPeriodRepository(db *sqlx.DB) academic.PeriodRepository {
	return &periodRepository{db: db}
}

func (repo periodRepository) getPeriod(ctx context.Context, status string) (academic.Period, error) {
	query, args, err := psql.
		Select("year", "term").
		From("period").
		Where(sq.Eq{"status": status}).
		OrderBy("year DESC", "term DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return academic.Period{}, errors.Wrap(err, "building period query")
	}

	var p academic.Period
	if err := repo.db.GetContext(ctx, &p, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return academic.Period{}, academic.ErrPeriodNotFound
		}
		return academic.Period{}, errors.Wrap(err, "finding period")
	}
	return p, nil
}

func (repo periodRepository) ActivePeriod(ctx context.Context) (academic.Period, error) {
	return repo.getPeriod(ctx, academic.PeriodStatusActive)
}

func (repo periodRepository) PlannedPeriod(ctx context.Context) (academic.Period, error) {
	return repo.getPeriod(ctx, academic.PeriodStatusPlanned)
}

type courseRepository struct {
	db *sqlx.DB
}

var _ academic.CourseRepository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *sqlx.DB) academic.CourseRepository {
	return &courseRepository{db: db}
}

func (repo courseRepository) GetCourseByCode(ctx context.Context, code string) (academic.Course, error) {
	query, args, err := psql.
		Select("id", "code", "name").
		From("course").
		Where(sq.Eq{"code": code}).
		ToSql()
	if err != nil {
		return academic.Course{}, errors.Wrap(err, "building course query")
	}

	var c academic.Course
	if err := repo.db.GetContext(ctx, &c, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return academic.Course{}, academic.ErrCourseNotFound
		}
		return academic.Course{}, errors.Wrap(err, "finding course")
	}
	return c, nil
}

type componentRepository struct {
	db *sqlx.DB
}

var _ academic.ComponentRepository = (*componentRepository)(nil) // interface compliance check

func NewComponentRepository(db *sqlx.DB) academic.ComponentRepository {
	return &componentRepository{db: db}
}

func (repo componentRepository) ComponentsByCourseAndSemester(ctx context.Context, courseCode string, semester int) ([]academic.CurriculumComponent, error) {
	query, args, err := psql.
		Select("id", "code", "name", "course_code", "semester").
		From("curriculum_component").
		Where(sq.Eq{"course_code": courseCode, "semester": semester}).
		OrderBy("code").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building components query")
	}

	var comps []academic.CurriculumComponent
	if err := repo.db.SelectContext(ctx, &comps, query, args...); err != nil {
		return nil, errors.Wrap(err, "finding curriculum components")
	}
	return comps, nil
}

var scheduleColumns = []string{
	"m.slot_code", "m.weekday", "s.component_code", "s.component_name",
	"m.room", "s.semester", "s.code AS section_code",
}

type scheduleRepository struct {
	db *sqlx.DB
}

var _ academic.ScheduleRepository = (*scheduleRepository)(nil) // interface compliance check

func NewScheduleRepository(db *sqlx.DB) academic.ScheduleRepository {
	return &scheduleRepository{db: db}
}

func (repo scheduleRepository) selectGrid(ctx context.Context, b sq.SelectBuilder) ([]academic.ScheduleEntry, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building schedule query")
	}

	var entries []academic.ScheduleEntry
	if err := repo.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, errors.Wrap(err, "finding schedule entries")
	}
	return entries, nil
}

func (repo scheduleRepository) StudentGrid(ctx context.Context, matricula string, p academic.Period) ([]academic.ScheduleEntry, error) {
	return repo.selectGrid(ctx, psql.
		Select(scheduleColumns...).
		From("section_meeting m").
		Join("section s ON s.id = m.section_id").
		Join("enrollment e ON e.section_id = s.id").
		Where(sq.Eq{"e.matricula": matricula, "s.year": p.Year, "s.term": p.Term}).
		OrderBy("m.weekday", "m.slot_code"))
}

func (repo scheduleRepository) TeacherGrid(ctx context.Context, siape string, p academic.Period, semesters []int) ([]academic.ScheduleEntry, error) {
	return repo.selectGrid(ctx, psql.
		Select(scheduleColumns...).
		From("section_meeting m").
		Join("section s ON s.id = m.section_id").
		Join("section_teacher st ON st.section_id = s.id").
		Where(sq.Eq{"st.siape": siape, "s.year": p.Year, "s.term": p.Term, "s.semester": semesters}).
		OrderBy("s.semester", "m.weekday", "m.slot_code"))
}

func (repo scheduleRepository) TeacherSections(ctx context.Context, siape string, p academic.Period) ([]academic.ScheduleEntry, error) {
	return repo.selectGrid(ctx, psql.
		Select(scheduleColumns...).
		From("section_meeting m").
		Join("section s ON s.id = m.section_id").
		Join("section_teacher st ON st.section_id = s.id").
		Where(sq.Eq{"st.siape": siape, "s.year": p.Year, "s.term": p.Term}).
		OrderBy("s.code", "m.weekday", "m.slot_code"))
}

type requestRepository struct {
	db *sqlx.DB
}

var _ academic.RequestRepository = (*requestRepository)(nil) // interface compliance check

func NewRequestRepository(db *sqlx.DB) academic.RequestRepository {
	return &requestRepository{db: db}
}

func (repo requestRepository) PendingRequests(ctx context.Context, matricula string, p academic.Period) ([]academic.ChangeRequest, error) {
	query, args, err := psql.
		Select("id", "matricula", "year", "term", "component_code", "kind", "status", "created_at").
		From("change_request").
		Where(sq.Eq{
			"matricula": matricula,
			"year":      p.Year,
			"term":      p.Term,
			"status":    academic.RequestStatusPending,
		}).
		OrderBy("created_at").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building requests query")
	}

	var reqs []academic.ChangeRequest
	if err := repo.db.SelectContext(ctx, &reqs, query, args...); err != nil {
		return nil, errors.Wrap(err, "finding change requests")
	}
	return reqs, nil
}

type transcriptRepository struct {
	db *sqlx.DB
}

var _ academic.TranscriptRepository = (*transcriptRepository)(nil) // interface compliance check

func NewTranscriptRepository(db *sqlx.DB) academic.TranscriptRepository {
	return &transcriptRepository{db: db}
}

func (repo transcriptRepository) TranscriptByStudent(ctx context.Context, matricula string) ([]academic.TranscriptEntry, error) {
	query, args, err := psql.
		Select("id", "matricula", "year", "term", "component_code", "component_name", "workload", "grade", "status").
		From("transcript_entry").
		Where(sq.Eq{"matricula": matricula}).
		OrderBy("year", "term", "component_code").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building transcript query")
	}

	var entries []academic.TranscriptEntry
	if err := repo.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, errors.Wrap(err, "finding transcript entries")
	}
	return entries, nil
}
