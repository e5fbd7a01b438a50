package user

import (
	"context"
	"fmt"
	"net/mail"

	"github.com/pkg/errors"

	"github.com/ceresdev/academico/core"
	"github.com/ceresdev/academico/core/academic"
)

var (
	ErrAccountExists    = errors.New("an account already exists for this institutional number")
	ErrUnknownMatricula = errors.New("the institutional number is not associated with a student or teacher")

	warnInactiveStudent = "the student enrollment is not active"
)

type (
	Service interface {
		// Register provisions an account for a registration form: uniqueness
		// checks, group derivation, persist, person-record link, membership.
		Register(ctx context.Context, na NewAccount) (RegisteredAccount, error)
		GetByID(ctx context.Context, id string) (User, error)
		GetByUsername(ctx context.Context, uname string) (User, error)
		GetByEmail(ctx context.Context, email string) (User, error)
		GetByUsernameOrEmail(ctx context.Context, uname string) (User, error)
		SetLastLogin(ctx context.Context, usr User) (User, error)
		QueryGroups(ctx context.Context) ([]Group, error)
		RequestPasswordReset(ctx context.Context, email string) error
		ResetPassword(ctx context.Context, rp ResetUserPassword) error
	}

	service struct {
		repo        Repository
		groupRepo   GroupRepository
		teacherRepo academic.TeacherRepository
		studentRepo academic.StudentRepository
		apptRepo    academic.AppointmentRepository
		mailSvc     core.EmailService
		conf        *core.Config
	}
)

var _ Service = (*service)(nil)

func NewService(
	repo Repository,
	groupRepo GroupRepository,
	teacherRepo academic.TeacherRepository,
	studentRepo academic.StudentRepository,
	apptRepo academic.AppointmentRepository,
	mailSvc core.EmailService,
	conf *core.Config,
) Service {
	return &service{
		repo:        repo,
		groupRepo:   groupRepo,
		teacherRepo: teacherRepo,
		studentRepo: studentRepo,
		apptRepo:    apptRepo,
		mailSvc:     mailSvc,
		conf:        conf,
	}
}

// personKind tags the record a number resolved to; resolved once, up front.
type personKind int

const (
	kindNone personKind = iota
	kindTeacher
	kindStudent
)

func (svc *service) Register(ctx context.Context, na NewAccount) (RegisteredAccount, error) {
	var reg RegisteredAccount
	today := NowFunc()

	// resolve the person record once
	kind := kindNone
	var tch academic.Teacher
	var std academic.Student

	tch, err := svc.teacherRepo.GetTeacherBySiape(ctx, na.Matricula)
	switch {
	case err == nil:
		kind = kindTeacher
	case errors.Cause(err) == academic.ErrTeacherNotFound:
		std, err = svc.studentRepo.GetStudentByMatricula(ctx, na.Matricula)
		switch {
		case err == nil:
			kind = kindStudent
		case errors.Cause(err) == academic.ErrStudentNotFound:
			// fall through to the unknown-number failure after the checks
		default:
			return reg, errors.Wrap(err, "finding student")
		}
	default:
		return reg, errors.Wrap(err, "finding teacher")
	}

	// the number must not be linked to an existing account
	var linkedTo string
	if kind == kindTeacher && tch.UserID.Valid {
		linkedTo = tch.UserID.String
	} else if kind == kindStudent && std.UserID.Valid {
		linkedTo = std.UserID.String
	}
	if linkedTo != "" {
		existing, err := svc.repo.GetUserByID(ctx, linkedTo)
		if err != nil {
			return reg, errors.Wrap(err, "finding linked user")
		}
		msg := fmt.Sprintf("%s: %s <%s>", ErrAccountExists.Error(), existing.Username, existing.Email)
		return reg, core.NewValidationError(ErrAccountExists, core.FieldError{Field: "matricula", Error: msg})
	}

	// username and email must be unique across accounts
	if err := svc.checkUniqueness(ctx, na.Username, na.Email); err != nil {
		return reg, err
	}

	// derive role groups
	var groups []string
	var warnings []core.FieldError
	switch kind {
	case kindTeacher:
		groups = append(groups, GroupTeachers)
		fns, err := svc.apptRepo.ActiveFunctionsBySiape(ctx, tch.Siape, today)
		if err != nil {
			return reg, errors.Wrap(err, "finding appointed functions")
		}
		for _, fn := range fns {
			switch fn.Activity {
			case academic.ActivityDepartmentHead:
				groups = appendGroup(groups, GroupDepartmentHeads)
			case academic.ActivityCourseCoordinator:
				groups = appendGroup(groups, GroupCoordinators)
			}
		}
	case kindStudent:
		if std.IsActive() {
			groups = append(groups, GroupStudents)
		} else {
			// non-fatal: the account is still created, with no groups
			warnings = append(warnings, core.FieldError{Field: "matricula", Error: warnInactiveStudent})
		}
	default:
		return reg, core.NewValidationError(ErrUnknownMatricula,
			core.FieldError{Field: "matricula", Error: ErrUnknownMatricula.Error()})
	}

	// persist; every fatal failure above happens before this write
	now := NowFunc().UTC()
	usr := User{
		Name:      na.Name,
		Username:  na.Username,
		Email:     na.Email,
		CreatedAt: now,
		UpdatedAt: now,
	}
	usr.SetActive(true)
	if err := usr.SetPassword(na.Password); err != nil {
		return reg, err
	}
	usr, err = svc.repo.CreateUser(ctx, usr)
	if err != nil {
		return reg, errors.Wrap(err, "creating user")
	}

	// link the person record to the new account; only the matching kind
	// gets the back-reference, and only when its group was derived
	if kind == kindTeacher && containsGroup(groups, GroupTeachers) {
		if err := svc.teacherRepo.SetTeacherUser(ctx, tch.Siape, usr.ID); err != nil {
			return reg, errors.Wrap(err, "linking teacher")
		}
	} else if kind == kindStudent && containsGroup(groups, GroupStudents) {
		if err := svc.studentRepo.SetStudentUser(ctx, std.Matricula, usr.ID); err != nil {
			return reg, errors.Wrap(err, "linking student")
		}
	}

	// assign group memberships
	for _, name := range groups {
		grp, err := svc.groupRepo.GetGroupByName(ctx, name)
		if err != nil {
			return reg, errors.Wrap(err, "finding group "+name)
		}
		if err := svc.groupRepo.AddUserToGroup(ctx, usr.ID, grp); err != nil {
			return reg, errors.Wrap(err, "adding user to group "+name)
		}
	}
	usr.Groups = groups

	svc.sendWelcomeMail(usr)

	return RegisteredAccount{User: usr, Groups: groups, Warnings: warnings}, nil
}

func (svc *service) checkUniqueness(ctx context.Context, uname, email string, exclUsers ...User) error {
	if err := svc.repo.CheckUniqueness(ctx, uname, email, exclUsers...); err != nil {
		var field string
		switch errors.Cause(err) {
		case ErrUsernameExists:
			field = "username"
		case ErrEmailExists:
			field = "email"
		default:
			return err
		}
		return core.NewValidationError(err, core.FieldError{Field: field, Error: err.Error()})
	}
	return nil
}

func (svc *service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUserByID(ctx, id)
}

func (svc *service) GetByUsername(ctx context.Context, uname string) (User, error) {
	return svc.repo.GetUserByUsername(ctx, core.CleanString(uname, true /* lower */))
}

func (svc *service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
}

func (svc *service) GetByUsernameOrEmail(ctx context.Context, uname string) (User, error) {
	return svc.repo.GetUserByUsernameOrEmail(ctx, core.CleanString(uname, true /* lower */))
}

func (svc *service) SetLastLogin(ctx context.Context, usr User) (User, error) {
	usr.LastLogin = NowFunc().UTC()
	return svc.repo.SetLastLogin(ctx, usr)
}

func (svc *service) QueryGroups(ctx context.Context) ([]Group, error) {
	return svc.groupRepo.QueryAllGroups(ctx)
}

func (svc *service) RequestPasswordReset(ctx context.Context, email string) error {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	go svc.sendPasswordResetMail(usr)
	return nil
}

func (svc *service) ResetPassword(ctx context.Context, rp ResetUserPassword) error {
	fldErr := func(field string) error {
		return core.NewValidationError(nil, core.FieldError{Field: field, Error: "invalid value"})
	}

	id, err := decodeUID(rp.UID)
	if err != nil {
		return fldErr("uid")
	}
	usr, err := svc.repo.GetUserByID(ctx, id)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return fldErr("uid")
		}
		return errors.Wrap(err, "finding user by ID")
	}
	if err := verifyToken(usr, rp.Token); err != nil {
		return fldErr("token")
	}
	if err := usr.SetPassword(rp.Password); err != nil {
		return err
	}
	if _, err := svc.repo.UpdatePassword(ctx, usr); err != nil {
		return errors.Wrap(err, "updating password")
	}
	return nil
}

func (svc *service) sendWelcomeMail(usr User) {
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      "Welcome",
		TemplateName: "welcome",
		TemplateData: struct {
			Name     string
			Username string
			Groups   []string
		}{usr.Name, usr.Username, usr.Groups},
	})
}

func (svc *service) sendPasswordResetMail(usr User) {
	token, err := MakeToken(usr)
	if err != nil {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      "Password Reset",
		TemplateName: "password-reset",
		TemplateData: struct {
			Name  string
			UID   string
			Token string
		}{usr.Name, EncodeUID(usr), token},
	})
}

func appendGroup(groups []string, name string) []string {
	// membership is a set; concurrent rows of the same activity add it once
	if containsGroup(groups, name) {
		return groups
	}
	return append(groups, name)
}

func containsGroup(groups []string, name string) bool {
	for _, g := range groups {
		if g == name {
			return true
		}
	}
	return false
}
