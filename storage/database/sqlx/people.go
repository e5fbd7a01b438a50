package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/ceresdev/academico/core/academic"
)

type teacherRepository struct {
	db *sqlx.DB
}

var _ academic.TeacherRepository = (*teacherRepository)(nil) // interface compliance check

func NewTeacherRepository(db *sqlx.DB) academic.TeacherRepository {
	return &teacherRepository{db: db}
}

func (repo teacherRepository) getTeacher(ctx context.Context, pred interface{}) (academic.Teacher, error) {
	query, args, err := psql.
		Select("id", "siape", "name", "department", "user_id").
		From("teacher").
		Where(pred).
		ToSql()
	if err != nil {
		return academic.Teacher{}, errors.Wrap(err, "building teacher query")
	}

	var t academic.Teacher
	if err := repo.db.GetContext(ctx, &t, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return academic.Teacher{}, academic.ErrTeacherNotFound
		}
		return academic.Teacher{}, errors.Wrap(err, "finding teacher")
	}
	return t, nil
}

func (repo teacherRepository) GetTeacherBySiape(ctx context.Context, siape string) (academic.Teacher, error) {
	return repo.getTeacher(ctx, sq.Eq{"siape": siape})
}

func (repo teacherRepository) GetTeacherByUserID(ctx context.Context, userID string) (academic.Teacher, error) {
	return repo.getTeacher(ctx, sq.Eq{"user_id": userID})
}

func (repo teacherRepository) SetTeacherUser(ctx context.Context, siape, userID string) error {
	query, args, err := psql.
		Update("teacher").
		Set("user_id", userID).
		Where(sq.Eq{"siape": siape}).
		ToSql()
	if err != nil {
		return errors.Wrap(err, "building teacher update")
	}

	res, err := repo.db.ExecContext(ctx, query, args...)
	if err != nil {
		return errors.Wrap(err, "linking teacher to user")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return academic.ErrTeacherNotFound
	}
	return nil
}

type studentRepository struct {
	db *sqlx.DB
}

var _ academic.StudentRepository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db *sqlx.DB) academic.StudentRepository {
	return &studentRepository{db: db}
}

func (repo studentRepository) getStudent(ctx context.Context, pred interface{}) (academic.Student, error) {
	query, args, err := psql.
		Select("id", "matricula", "name", "course_code", "status", "user_id").
		From("student").
		Where(pred).
		ToSql()
	if err != nil {
		return academic.Student{}, errors.Wrap(err, "building student query")
	}

	var s academic.Student
	if err := repo.db.GetContext(ctx, &s, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return academic.Student{}, academic.ErrStudentNotFound
		}
		return academic.Student{}, errors.Wrap(err, "finding student")
	}
	return s, nil
}

func (repo studentRepository) GetStudentByMatricula(ctx context.Context, matricula string) (academic.Student, error) {
	return repo.getStudent(ctx, sq.Eq{"matricula": matricula})
}

func (repo studentRepository) GetStudentByUserID(ctx context.Context, userID string) (academic.Student, error) {
	return repo.getStudent(ctx, sq.Eq{"user_id": userID})
}

func (repo studentRepository) SetStudentUser(ctx context.Context, matricula, userID string) error {
	query, args, err := psql.
		Update("student").
		Set("user_id", userID).
		Where(sq.Eq{"matricula": matricula}).
		ToSql()
	if err != nil {
		return errors.Wrap(err, "building student update")
	}

	res, err := repo.db.ExecContext(ctx, query, args...)
	if err != nil {
		return errors.Wrap(err, "linking student to user")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return academic.ErrStudentNotFound
	}
	return nil
}

type appointmentRepository struct {
	db *sqlx.DB
}

var _ academic.AppointmentRepository = (*appointmentRepository)(nil) // interface compliance check

func NewAppointmentRepository(db *sqlx.DB) academic.AppointmentRepository {
	return &appointmentRepository{db: db}
}

func (repo appointmentRepository) ActiveFunctionsBySiape(ctx context.Context, siape string, on time.Time) ([]academic.AppointedFunction, error) {
	// start inclusive, end exclusive
	query, args, err := psql.
		Select("id", "siape", "activity", "start_date", "end_date").
		From("appointed_function").
		Where(sq.Eq{"siape": siape}).
		Where(sq.LtOrEq{"start_date": on}).
		Where(sq.Gt{"end_date": on}).
		OrderBy("start_date").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building appointments query")
	}

	var fns []academic.AppointedFunction
	if err := repo.db.SelectContext(ctx, &fns, query, args...); err != nil {
		return nil, errors.Wrap(err, "finding appointed functions")
	}
	return fns, nil
}
