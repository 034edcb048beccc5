package user

import (
	"time"

	"github.com/pkg/errors"

	"github.com/rainbowkidsrealm/jaja2-sub000/core"
)

var (
	// errors
	ErrNotFound       = errors.New("user not found")
	ErrEmailExists    = errors.New("a user with this email already exists")
	ErrWrongPassword  = errors.New("wrong password")
	ErrAccountBlocked = errors.New("account deactivated")
)

type (
	Repository interface {
		CheckEmailUniqueness(email string, excludedUsers ...User) error
		CreateUser(user User) (User, error)
		GetUserByID(id string) (User, error)
		GetUserByEmail(email string) (User, error)
		// FilterUsers applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of User.Name or User.Email.
		FilterUsers(filter QueryFilter) ([]User, error)
		UpdateUser(user User) (User, error)
		DeleteUsersByID(ids ...string) error
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) CheckUniqueness(email string, exclUsers ...User) error {
	if err := svc.repo.CheckEmailUniqueness(email, exclUsers...); err != nil {
		if err == ErrEmailExists {
			return core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
		}
		return err
	}
	return nil
}

func (svc *Service) Create(nu NewUser) (User, error) {
	now := time.Now().UTC()
	usr := User{
		Name:      nu.Name,
		Email:     nu.Email,
		IsActive:  true,
		Role:      nu.Role,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	return svc.repo.CreateUser(usr)
}

func (svc *Service) GetByID(id string) (User, error) {
	return svc.repo.GetUserByID(id)
}

func (svc *Service) GetByEmail(email string) (User, error) {
	return svc.repo.GetUserByEmail(core.CleanString(email, true /* lower */))
}

func (svc *Service) Filter(filter QueryFilter) ([]User, error) {
	return svc.repo.FilterUsers(filter)
}

// Authenticate returns the active User matching the credentials.
// Unknown emails and wrong passwords are both reported as ErrWrongPassword.
func (svc *Service) Authenticate(email, pwd string) (User, error) {
	usr, err := svc.GetByEmail(email)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return User{}, ErrWrongPassword
		}
		return User{}, errors.Wrap(err, "finding user by email")
	}
	if err = usr.CheckPassword(pwd); err != nil {
		return User{}, ErrWrongPassword
	}
	if !usr.IsActive {
		return User{}, ErrAccountBlocked
	}
	return svc.SetLastLogin(usr)
}

func (svc *Service) SetLastLogin(usr User) (User, error) {
	usr.LastLogin = time.Now().UTC()
	return svc.repo.UpdateUser(usr)
}

func (svc *Service) ChangePassword(usr User, cp ChangePassword) (User, error) {
	if err := usr.CheckPassword(cp.OldPassword); err != nil {
		return User{}, core.NewValidationError(ErrWrongPassword, core.FieldError{Field: "old_password", Error: ErrWrongPassword.Error()})
	}
	if err := usr.SetPassword(cp.Password); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	usr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateUser(usr)
}

// ResetPassword sets a new password without asking for the old one.
func (svc *Service) ResetPassword(usr User, rp ResetPassword) (User, error) {
	if err := usr.SetPassword(rp.Password); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	usr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateUser(usr)
}

func (svc *Service) Delete(ids ...string) error {
	return svc.repo.DeleteUsersByID(ids...)
}
