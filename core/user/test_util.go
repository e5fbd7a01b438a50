package user

import (
	"context"

	"github.com/ceresdev/academico/core"
	"github.com/ceresdev/academico/core/academic"
)

type serviceMock struct {
	service
}

func NewServiceMock(
	repo Repository,
	groupRepo GroupRepository,
	teacherRepo academic.TeacherRepository,
	studentRepo academic.StudentRepository,
	apptRepo academic.AppointmentRepository,
	mailSvc core.EmailService,
	conf *core.Config,
) Service {
	return &serviceMock{
		service: service{
			repo:        repo,
			groupRepo:   groupRepo,
			teacherRepo: teacherRepo,
			studentRepo: studentRepo,
			apptRepo:    apptRepo,
			mailSvc:     mailSvc,
			conf:        conf,
		},
	}
}

func (svc *serviceMock) RequestPasswordReset(ctx context.Context, email string) error {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	// run synchronously
	svc.sendPasswordResetMail(usr)
	return nil
}
