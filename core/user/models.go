package user

import (
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/ceresdev/academico/core"
)

// Role groups. Membership is derived once at provisioning time from the
// person record matching the institutional number; Admins is only ever
// granted through the admin CLI.
const (
	GroupTeachers        = "Teachers"
	GroupStudents        = "Students"
	GroupDepartmentHeads = "Department Heads"
	GroupCoordinators    = "Coordinators"
	GroupAdmins          = "Admins"
)

var AllGroups = []string{
	GroupTeachers,
	GroupStudents,
	GroupDepartmentHeads,
	GroupCoordinators,
	GroupAdmins,
}

// Group is a named role bucket; membership is many-to-many with User.
type Group struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	IsActive     *bool     `json:"is_active"`
	Groups       []string  `json:"groups"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
	LastLogin    time.Time `json:"last_login"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u *User) SetActive(active bool) {
	u.IsActive = &active
}

func (u *User) InGroup(name string) bool {
	for _, g := range u.Groups {
		if g == name {
			return true
		}
	}
	return false
}

func (u *User) IsAdmin() bool   { return u.InGroup(GroupAdmins) }
func (u *User) IsTeacher() bool { return u.InGroup(GroupTeachers) }
func (u *User) IsStudent() bool { return u.InGroup(GroupStudents) }

// NewAccount is the registration form: the institutional number (siape or
// matricula) plus the credentials the person wants.
type NewAccount struct {
	Matricula       string `json:"matricula" validate:"required,notblank"`
	Name            string `json:"name" validate:"required,notblank"`
	Username        string `json:"username" validate:"required,min=4,alphanum"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (na *NewAccount) Validate(validate *validator.Validate) error {
	na.Matricula = core.CleanString(na.Matricula)
	na.Name = core.CleanString(na.Name)
	na.Username = core.CleanString(na.Username, true /* lower */)
	na.Email = core.CleanString(na.Email, true /* lower */)
	return validate.Struct(na)
}

// RegisteredAccount is the outcome of a successful provisioning: the
// persisted account, its derived groups and any non-fatal field warnings
// (an inactive student still gets an account, with no groups).
type RegisteredAccount struct {
	User     User              `json:"user"`
	Groups   []string          `json:"groups"`
	Warnings []core.FieldError `json:"warnings,omitempty"`
}

type ResetUserPassword struct {
	Token           string `json:"token,omitempty" validate:"required"`
	UID             string `json:"uid,omitempty" validate:"required"`
	Password        string `json:"password,omitempty" validate:"required"`
	PasswordConfirm string `json:"password_confirm,omitempty" validate:"required,eqfield=Password"`
}

func (rp ResetUserPassword) Validate(validate *validator.Validate) error { return validate.Struct(rp) }
