package user_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/ceresdev/academico/core"
	"github.com/ceresdev/academico/core/academic"
	"github.com/ceresdev/academico/core/user"
	emailsvc "github.com/ceresdev/academico/services/email"
	dummydb "github.com/ceresdev/academico/storage/database/dummy"
	testutil "github.com/ceresdev/academico/tests"
)

// registration date used throughout; appointments are judged against it
var today = time.Date(2024, time.June, 1, 10, 0, 0, 0, time.UTC)

func setup(t *testing.T) (*dummydb.DB, user.Service) {
	t.Helper()

	conf := testutil.Config()

	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open(): %v", err)
	}

	user.NowFunc = func() time.Time { return today }
	t.Cleanup(func() { user.NowFunc = time.Now })

	svc := user.NewServiceMock(
		dummydb.NewUserRepository(db),
		dummydb.NewGroupRepository(db),
		dummydb.NewTeacherRepository(db),
		dummydb.NewStudentRepository(db),
		dummydb.NewAppointmentRepository(db),
		emailsvc.NewConsoleServiceMock(),
		conf,
	)
	return db, svc
}

func newAccount(matricula string) user.NewAccount {
	return user.NewAccount{
		Matricula:       matricula,
		Name:            "Jo Silva",
		Username:        "josilva",
		Email:           "josilva@test.test",
		Password:        "V3ryS3cretPwd!",
		PasswordConfirm: "V3ryS3cretPwd!",
	}
}

func sameGroups(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	set := make(map[string]bool, len(got))
	for _, g := range got {
		set[g] = true
	}
	for _, w := range want {
		if !set[w] {
			return false
		}
	}
	return true
}

func fieldError(t *testing.T, err error, field string) core.FieldError {
	t.Helper()
	vErr, ok := errors.Cause(err).(*core.ValidationError)
	if !ok {
		t.Fatalf("expected *core.ValidationError; got %T (%v)", errors.Cause(err), err)
	}
	for _, fErr := range vErr.Fields {
		if fErr.Field == field {
			return fErr
		}
	}
	t.Fatalf("no field error for %q in %v", field, vErr.Fields)
	return core.FieldError{}
}

func TestRegisterTeacher(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		functions  []academic.AppointedFunction
		wantGroups []string
	}{
		{
			name:       "no appointments",
			wantGroups: []string{user.GroupTeachers},
		},
		{
			name: "department head",
			functions: []academic.AppointedFunction{
				{Siape: "1001", Activity: academic.ActivityDepartmentHead,
					Start: today.AddDate(-1, 0, 0), End: today.AddDate(1, 0, 0)},
			},
			wantGroups: []string{user.GroupTeachers, user.GroupDepartmentHeads},
		},
		{
			name: "course coordinator",
			functions: []academic.AppointedFunction{
				{Siape: "1001", Activity: academic.ActivityCourseCoordinator,
					Start: today.AddDate(-1, 0, 0), End: today.AddDate(1, 0, 0)},
			},
			wantGroups: []string{user.GroupTeachers, user.GroupCoordinators},
		},
		{
			name: "both activities",
			functions: []academic.AppointedFunction{
				{Siape: "1001", Activity: academic.ActivityDepartmentHead,
					Start: today.AddDate(-1, 0, 0), End: today.AddDate(1, 0, 0)},
				{Siape: "1001", Activity: academic.ActivityCourseCoordinator,
					Start: today.AddDate(-1, 0, 0), End: today.AddDate(1, 0, 0)},
			},
			wantGroups: []string{user.GroupTeachers, user.GroupDepartmentHeads, user.GroupCoordinators},
		},
		{
			name: "duplicate activity rows grant the group once",
			functions: []academic.AppointedFunction{
				{Siape: "1001", Activity: academic.ActivityDepartmentHead,
					Start: today.AddDate(-2, 0, 0), End: today.AddDate(1, 0, 0)},
				{Siape: "1001", Activity: academic.ActivityDepartmentHead,
					Start: today.AddDate(-1, 0, 0), End: today.AddDate(2, 0, 0)},
			},
			wantGroups: []string{user.GroupTeachers, user.GroupDepartmentHeads},
		},
		{
			name: "appointment starting today counts",
			functions: []academic.AppointedFunction{
				{Siape: "1001", Activity: academic.ActivityDepartmentHead,
					Start: today, End: today.AddDate(1, 0, 0)},
			},
			wantGroups: []string{user.GroupTeachers, user.GroupDepartmentHeads},
		},
		{
			name: "appointment ending today does not count",
			functions: []academic.AppointedFunction{
				{Siape: "1001", Activity: academic.ActivityDepartmentHead,
					Start: today.AddDate(-1, 0, 0), End: today},
			},
			wantGroups: []string{user.GroupTeachers},
		},
		{
			name: "expired and future appointments are ignored",
			functions: []academic.AppointedFunction{
				{Siape: "1001", Activity: academic.ActivityDepartmentHead,
					Start: today.AddDate(-2, 0, 0), End: today.AddDate(-1, 0, 0)},
				{Siape: "1001", Activity: academic.ActivityCourseCoordinator,
					Start: today.AddDate(0, 1, 0), End: today.AddDate(1, 0, 0)},
			},
			wantGroups: []string{user.GroupTeachers},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, svc := setup(t)
			db.AddTeacher(academic.Teacher{Siape: "1001", Name: "Jo Silva", Department: "DComp"})
			for _, fn := range tt.functions {
				db.AddFunction(fn)
			}

			reg, err := svc.Register(ctx, newAccount("1001"))
			if err != nil {
				t.Fatalf("Register(): %v", err)
			}
			if !sameGroups(reg.Groups, tt.wantGroups) {
				t.Errorf("groups = %v; want %v", reg.Groups, tt.wantGroups)
			}
			if len(reg.Warnings) != 0 {
				t.Errorf("warnings = %v; want none", reg.Warnings)
			}

			// the teacher record is linked to the new account
			tch, err := dummydb.NewTeacherRepository(db).GetTeacherBySiape(ctx, "1001")
			if err != nil {
				t.Fatalf("GetTeacherBySiape(): %v", err)
			}
			if !tch.UserID.Valid || tch.UserID.String != reg.User.ID {
				t.Errorf("teacher.UserID = %v; want %q", tch.UserID, reg.User.ID)
			}

			// membership is persisted
			usr, err := svc.GetByUsername(ctx, "josilva")
			if err != nil {
				t.Fatalf("GetByUsername(): %v", err)
			}
			if !sameGroups(usr.Groups, tt.wantGroups) {
				t.Errorf("persisted groups = %v; want %v", usr.Groups, tt.wantGroups)
			}
			if usr.IsActive == nil || !*usr.IsActive {
				t.Errorf("user not active after registration")
			}
		})
	}
}

func TestRegisterStudent(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name        string
		status      string
		wantGroups  []string
		wantWarning bool
		wantLinked  bool
	}{
		{name: "active enrollment", status: academic.StudentStatusActive,
			wantGroups: []string{user.GroupStudents}, wantLinked: true},
		{name: "graduating enrollment", status: academic.StudentStatusGraduating,
			wantGroups: []string{user.GroupStudents}, wantLinked: true},
		{name: "inactive enrollment", status: "INATIVO",
			wantGroups: nil, wantWarning: true, wantLinked: false},
		{name: "cancelled enrollment", status: "CANCELADO",
			wantGroups: nil, wantWarning: true, wantLinked: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, svc := setup(t)
			db.AddStudent(academic.Student{Matricula: "20240101", Name: "Jo Silva", CourseCode: "CC01", Status: tt.status})

			reg, err := svc.Register(ctx, newAccount("20240101"))
			if err != nil {
				t.Fatalf("Register(): %v", err)
			}
			if !sameGroups(reg.Groups, tt.wantGroups) {
				t.Errorf("groups = %v; want %v", reg.Groups, tt.wantGroups)
			}

			if tt.wantWarning {
				if len(reg.Warnings) != 1 || reg.Warnings[0].Field != "matricula" {
					t.Errorf("warnings = %v; want one matricula warning", reg.Warnings)
				}
			} else if len(reg.Warnings) != 0 {
				t.Errorf("warnings = %v; want none", reg.Warnings)
			}

			// the account exists either way
			if _, err := svc.GetByUsername(ctx, "josilva"); err != nil {
				t.Fatalf("GetByUsername(): %v", err)
			}

			std, err := dummydb.NewStudentRepository(db).GetStudentByMatricula(ctx, "20240101")
			if err != nil {
				t.Fatalf("GetStudentByMatricula(): %v", err)
			}
			if tt.wantLinked && (!std.UserID.Valid || std.UserID.String != reg.User.ID) {
				t.Errorf("student.UserID = %v; want %q", std.UserID, reg.User.ID)
			}
			if !tt.wantLinked && std.UserID.Valid {
				t.Errorf("student.UserID = %v; want unset", std.UserID)
			}
		})
	}
}

func TestRegisterFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown number", func(t *testing.T) {
		_, svc := setup(t)

		_, err := svc.Register(ctx, newAccount("999999"))
		fErr := fieldError(t, err, "matricula")
		if fErr.Error != user.ErrUnknownMatricula.Error() {
			t.Errorf("error = %q; want %q", fErr.Error, user.ErrUnknownMatricula.Error())
		}
		if _, err := svc.GetByUsername(ctx, "josilva"); errors.Cause(err) != user.ErrNotFound {
			t.Errorf("an account was created for an unknown number")
		}
	})

	t.Run("teacher already linked", func(t *testing.T) {
		db, svc := setup(t)
		db.AddTeacher(academic.Teacher{Siape: "1001", Name: "Jo Silva"})

		first, err := svc.Register(ctx, newAccount("1001"))
		if err != nil {
			t.Fatalf("first Register(): %v", err)
		}

		na := newAccount("1001")
		na.Username = "otherjo"
		na.Email = "otherjo@test.test"
		_, err = svc.Register(ctx, na)
		fErr := fieldError(t, err, "matricula")
		if !strings.Contains(fErr.Error, first.User.Username) || !strings.Contains(fErr.Error, first.User.Email) {
			t.Errorf("error = %q; want existing account identity in message", fErr.Error)
		}
		if _, err := svc.GetByUsername(ctx, "otherjo"); errors.Cause(err) != user.ErrNotFound {
			t.Errorf("a second account was created for a linked number")
		}
	})

	t.Run("student already linked", func(t *testing.T) {
		db, svc := setup(t)
		// the linked account on record
		taken, err := dummydb.NewUserRepository(db).CreateUser(ctx, user.User{
			Username: "takenjo", Email: "takenjo@test.test",
		})
		if err != nil {
			t.Fatalf("CreateUser(): %v", err)
		}
		db.AddStudent(academic.Student{
			Matricula: "20240101", Name: "Jo Silva", Status: academic.StudentStatusActive,
			UserID: null.StringFrom(taken.ID),
		})

		_, err = svc.Register(ctx, newAccount("20240101"))
		fErr := fieldError(t, err, "matricula")
		if !strings.Contains(fErr.Error, "takenjo") {
			t.Errorf("error = %q; want the existing account identity in the message", fErr.Error)
		}
	})

	t.Run("duplicate username", func(t *testing.T) {
		db, svc := setup(t)
		db.AddTeacher(academic.Teacher{Siape: "1001"})
		if _, err := dummydb.NewUserRepository(db).CreateUser(ctx, user.User{
			Username: "josilva", Email: "elsewhere@test.test",
		}); err != nil {
			t.Fatalf("CreateUser(): %v", err)
		}

		_, err := svc.Register(ctx, newAccount("1001"))
		fErr := fieldError(t, err, "username")
		if fErr.Error != user.ErrUsernameExists.Error() {
			t.Errorf("error = %q; want %q", fErr.Error, user.ErrUsernameExists.Error())
		}
	})

	t.Run("duplicate email", func(t *testing.T) {
		db, svc := setup(t)
		db.AddStudent(academic.Student{Matricula: "20240101", Status: academic.StudentStatusActive})
		if _, err := dummydb.NewUserRepository(db).CreateUser(ctx, user.User{
			Username: "otherjo", Email: "josilva@test.test",
		}); err != nil {
			t.Fatalf("CreateUser(): %v", err)
		}

		_, err := svc.Register(ctx, newAccount("20240101"))
		fErr := fieldError(t, err, "email")
		if fErr.Error != user.ErrEmailExists.Error() {
			t.Errorf("error = %q; want %q", fErr.Error, user.ErrEmailExists.Error())
		}

		// fatal failure: nothing is written, the student stays unlinked
		std, err := dummydb.NewStudentRepository(db).GetStudentByMatricula(ctx, "20240101")
		if err != nil {
			t.Fatalf("GetStudentByMatricula(): %v", err)
		}
		if std.UserID.Valid {
			t.Errorf("student was linked on a failed registration")
		}
	})
}

func TestRegisterSendsWelcomeMail(t *testing.T) {
	ctx := context.Background()
	db, svc := setup(t)
	db.AddTeacher(academic.Teacher{Siape: "1001", Name: "Jo Silva"})

	before := len(emailsvc.SentMessages)
	if _, err := svc.Register(ctx, newAccount("1001")); err != nil {
		t.Fatalf("Register(): %v", err)
	}
	if len(emailsvc.SentMessages) != before+1 {
		t.Fatalf("sent %d messages; want 1", len(emailsvc.SentMessages)-before)
	}
	msg := emailsvc.SentMessages[len(emailsvc.SentMessages)-1]
	if msg.Subject != "Welcome" {
		t.Errorf("subject = %q; want %q", msg.Subject, "Welcome")
	}
	if len(msg.To) != 1 || msg.To[0].Address != "josilva@test.test" {
		t.Errorf("to = %v; want josilva@test.test", msg.To)
	}
	if !strings.Contains(msg.TextContent, "josilva") {
		t.Errorf("text content does not mention the new username:\n%s", msg.TextContent)
	}
}

func TestPasswordReset(t *testing.T) {
	ctx := context.Background()
	db, svc := setup(t)
	db.AddTeacher(academic.Teacher{Siape: "1001", Name: "Jo Silva"})

	reg, err := svc.Register(ctx, newAccount("1001"))
	if err != nil {
		t.Fatalf("Register(): %v", err)
	}

	before := len(emailsvc.SentMessages)
	if err := svc.RequestPasswordReset(ctx, "josilva@test.test"); err != nil {
		t.Fatalf("RequestPasswordReset(): %v", err)
	}
	if len(emailsvc.SentMessages) != before+1 {
		t.Fatalf("sent %d messages; want 1", len(emailsvc.SentMessages)-before)
	}

	usr, err := svc.GetByID(ctx, reg.User.ID)
	if err != nil {
		t.Fatalf("GetByID(): %v", err)
	}
	token, err := user.MakeToken(usr)
	if err != nil {
		t.Fatalf("MakeToken(): %v", err)
	}

	rp := user.ResetUserPassword{
		UID:             user.EncodeUID(usr),
		Token:           token,
		Password:        "N3wS3cretPwd!",
		PasswordConfirm: "N3wS3cretPwd!",
	}
	if err := svc.ResetPassword(ctx, rp); err != nil {
		t.Fatalf("ResetPassword(): %v", err)
	}

	usr, err = svc.GetByID(ctx, reg.User.ID)
	if err != nil {
		t.Fatalf("GetByID(): %v", err)
	}
	if err := usr.CheckPassword("N3wS3cretPwd!"); err != nil {
		t.Errorf("new password does not verify: %v", err)
	}

	// a used token no longer verifies (the hash changed)
	if err := svc.ResetPassword(ctx, rp); err == nil {
		t.Errorf("ResetPassword() accepted a stale token")
	}

	t.Run("bad uid", func(t *testing.T) {
		bad := rp
		bad.UID = "%%%"
		if err := svc.ResetPassword(ctx, bad); err == nil {
			t.Errorf("ResetPassword() accepted a bad uid")
		}
	})
}
