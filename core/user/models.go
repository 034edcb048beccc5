package user

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/rainbowkidsrealm/jaja2-sub000/core"
)

type Role string

// Roles
const (
	RoleAdmin   Role = "admin"
	RoleTeacher Role = "teacher"
	RoleParent  Role = "parent"
)

var (
	AllRoles = []Role{RoleAdmin, RoleTeacher, RoleParent}

	rolePriorities = map[Role]int{
		RoleAdmin:   30,
		RoleTeacher: 20,
		RoleParent:  10,
	}

	Roles = []RoleChoice{
		{Name: "Parent", Value: RoleParent},
		{Name: "Teacher", Value: RoleTeacher},
		{Name: "Admin", Value: RoleAdmin},
	}
)

type RoleChoice struct {
	Name  string `json:"name"`
	Value Role   `json:"value"`
}

// ParseRole coerces a wire role tag into a Role.
// It accepts any case, surrounding whitespace and a trailing ":" (eg. "Admin", "teacher:").
func ParseRole(s string) (Role, bool) {
	r := Role(strings.TrimSuffix(core.CleanString(s, true /* lower */), ":"))
	return r, r.Valid()
}

func (r Role) Valid() bool {
	_, ok := rolePriorities[r]
	return ok
}

func (r Role) String() string { return string(r) }

func RolePriority(role Role) int {
	return rolePriorities[role]
}

// Identity is the canonical "who is logged in" record shared by the API and the portal.
type Identity struct {
	ID     string `json:"id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Role   Role   `json:"role"`
	Active bool   `json:"active"`
}

// Valid reports whether the identity carries the fields a session depends on.
func (id Identity) Valid() bool {
	return strings.TrimSpace(id.ID) != "" && id.Role.Valid()
}

// User is an account as stored by the API.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	IsActive     bool      `json:"is_active"`
	Role         Role      `json:"role"`
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

func (u User) Identity() Identity {
	return Identity{
		ID:     u.ID,
		Email:  u.Email,
		Name:   u.Name,
		Role:   u.Role,
		Active: u.IsActive,
	}
}

func (u *User) IsAdmin() bool   { return u.Role == RoleAdmin }
func (u *User) IsTeacher() bool { return u.Role == RoleTeacher }
func (u *User) IsParent() bool  { return u.Role == RoleParent }

// NewUser contains information needed to create a new User.
type NewUser struct {
	Name            string `json:"name" validate:"required,notblank"`
	Email           string `json:"email" validate:"required,email"`
	Role            Role   `json:"role" validate:"required,allroles"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (nu *NewUser) Validate(validate *validator.Validate, svc *Service) error {
	nu.Name = core.CleanString(nu.Name)
	nu.Email = core.CleanString(nu.Email, true /* lower */)

	if err := validate.Struct(nu); err != nil {
		return err
	}
	return svc.CheckUniqueness(nu.Email)
}

// ChangePassword is the settings form used to replace the password of the logged in user.
type ChangePassword struct {
	OldPassword     string `json:"old_password" validate:"required"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`

	// user attributes the new password must not resemble
	Name  string `json:"-"`
	Email string `json:"-"`
}

func (cp *ChangePassword) Validate(validate *validator.Validate) error {
	return validate.Struct(cp)
}

// ResetPassword replaces a forgotten password; only operators use it.
type ResetPassword struct {
	Password string `json:"password" validate:"required"`

	// user attributes the new password must not resemble
	Name  string `json:"-"`
	Email string `json:"-"`
}

func (rp *ResetPassword) Validate(validate *validator.Validate) error {
	return validate.Struct(rp)
}

type QueryFilter struct {
	Search   string `query:"search"`
	Role     Role   `query:"role"`
	IsActive *bool  `query:"is_active"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Role = Role(core.CleanString(string(qf.Role), true))
}
