package user_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rainbowkidsrealm/jaja2-sub000/core"
	"github.com/rainbowkidsrealm/jaja2-sub000/core/user"
	inmemdb "github.com/rainbowkidsrealm/jaja2-sub000/storage/database/inmem"
	testutil "github.com/rainbowkidsrealm/jaja2-sub000/tests"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		in     string
		want   user.Role
		wantOk bool
	}{
		{in: "admin", want: user.RoleAdmin, wantOk: true},
		{in: " Teacher ", want: user.RoleTeacher, wantOk: true},
		{in: "PARENT:", want: user.RoleParent, wantOk: true},
		{in: "student"},
		{in: ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := user.ParseRole(tt.in)
			assert.Equal(t, tt.wantOk, ok)
			if tt.wantOk {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestIdentity_Valid(t *testing.T) {
	assert.True(t, user.Identity{ID: "u-1", Role: user.RoleParent}.Valid())
	assert.False(t, user.Identity{ID: " ", Role: user.RoleParent}.Valid())
	assert.False(t, user.Identity{ID: "u-1", Role: "janitor"}.Valid())
}

func TestPasswordPolicy(t *testing.T) {
	validate, translator := core.NewValidator()
	user.InitValidators(validate, translator)

	tests := []struct {
		name    string
		pwd     string
		wantErr string
	}{
		{name: "too short", pwd: "Ab#1", wantErr: "password must contain at least 8 characters"},
		{name: "whitespace", pwd: "Abc# 12345", wantErr: "password must not contain whitespace"},
		{name: "numeric", pwd: "1234567890", wantErr: "password cannot be entirely numeric"},
		{name: "simple", pwd: "abcdefgh1", wantErr: "password must contain at least 1 uppercase character, 1 lowercase character, 1 digit and 1 special character"},
		{name: "like the email", pwd: "Ada@School.test1", wantErr: "password cannot be similar to user attributes"},
		{name: "valid", pwd: "Kettle#Blue7"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rp := user.ResetPassword{Password: tt.pwd, Name: "Ada Admin", Email: "ada@school.test"}
			err := rp.Validate(validate)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, map[string]string{"password": tt.wantErr}, core.FieldErrors(err, translator))
		})
	}

	t.Run("reused", func(t *testing.T) {
		cp := user.ChangePassword{OldPassword: "Kettle#Blue7", Password: "Kettle#Blue7", PasswordConfirm: "Kettle#Blue7"}
		err := cp.Validate(validate)
		assert.Equal(t, map[string]string{"password": "new password must differ from the old one"}, core.FieldErrors(err, translator))
	})

	t.Run("confirmation", func(t *testing.T) {
		cp := user.ChangePassword{OldPassword: "Old#Pass1", Password: "Kettle#Blue7", PasswordConfirm: "Kettle#Blue8"}
		flds := core.FieldErrors(cp.Validate(validate), translator)
		assert.Contains(t, flds, "password_confirm")
		assert.NotContains(t, flds, "password")
	})
}

func TestService(t *testing.T) {
	repo := inmemdb.NewUserRepository(inmemdb.Open())
	svc := user.NewService(repo)
	usr := testutil.CreateUser(t, repo, "Tom Teacher", "tom@school.test", "Teach#2024", user.RoleTeacher, true)
	testutil.CreateUser(t, repo, "Rex Retired", "rex@school.test", "Retired#2024", user.RoleTeacher, false)

	t.Run("authenticate", func(t *testing.T) {
		got, err := svc.Authenticate(" TOM@school.test ", "Teach#2024")
		require.NoError(t, err)
		assert.Equal(t, usr.ID, got.ID)
		assert.False(t, got.LastLogin.IsZero())

		_, err = svc.Authenticate("tom@school.test", "nope")
		assert.Equal(t, user.ErrWrongPassword, err)
		_, err = svc.Authenticate("who@school.test", "Teach#2024")
		assert.Equal(t, user.ErrWrongPassword, err, "unknown emails are not revealed")
		_, err = svc.Authenticate("rex@school.test", "Retired#2024")
		assert.Equal(t, user.ErrAccountBlocked, err)
	})

	t.Run("uniqueness", func(t *testing.T) {
		err := svc.CheckUniqueness("tom@school.test")
		vErr, ok := err.(*core.ValidationError)
		require.True(t, ok, "got %v", err)
		assert.Equal(t, user.ErrEmailExists, vErr.Err)
		assert.NoError(t, svc.CheckUniqueness("tom@school.test", usr))
	})

	t.Run("change password", func(t *testing.T) {
		_, err := svc.ChangePassword(usr, user.ChangePassword{OldPassword: "wrong", Password: "Kettle#Blue7"})
		_, ok := err.(*core.ValidationError)
		assert.True(t, ok, "got %v", err)

		changed, err := svc.ChangePassword(usr, user.ChangePassword{OldPassword: "Teach#2024", Password: "Kettle#Blue7"})
		require.NoError(t, err)
		assert.NoError(t, changed.CheckPassword("Kettle#Blue7"))
	})

	t.Run("reset password", func(t *testing.T) {
		got, err := svc.GetByEmail("tom@school.test")
		require.NoError(t, err)
		reset, err := svc.ResetPassword(got, user.ResetPassword{Password: "Fresh#Start42"})
		require.NoError(t, err)
		_, err = svc.Authenticate("tom@school.test", "Fresh#Start42")
		assert.NoError(t, err)
		assert.True(t, reset.UpdatedAt.After(got.CreatedAt) || reset.UpdatedAt.Equal(got.CreatedAt))
	})
}
