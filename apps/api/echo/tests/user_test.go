package tests

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/rainbowkidsrealm/jaja2-sub000/apps/api/echo"
	"github.com/rainbowkidsrealm/jaja2-sub000/core/user"
	"github.com/rainbowkidsrealm/jaja2-sub000/tests"
)

func Test_userApi_login(t *testing.T) {
	app := setup(t)

	t.Run("success", func(t *testing.T) {
		res := login(t, app, " Admin@School.test ", adminPwd)
		assert.Equal(t, "Login successful", res.Message)
		assert.NotEmpty(t, res.Token)
		assert.NotEmpty(t, res.RefreshToken)
		assert.NotEqual(t, res.Token, res.RefreshToken)
		assert.Equal(t, user.Identity{ID: "u-admin", Email: adminEmail, Name: "Ada Admin", Role: user.RoleAdmin, Active: true}, res.User)

		usr, err := app.usrRepo.GetUserByID("u-admin")
		require.NoError(t, err)
		assert.False(t, usr.LastLogin.IsZero(), "last login is recorded")
	})

	badCreds := marchallObj(t, httpErr{Error: "invalid email or password"})
	tests := []httpTest{
		{
			name: "wrong password", body: marchallObj(t, LoginRequest{Email: adminEmail, Password: "nope"}),
			wantCode: http.StatusUnauthorized, wantData: badCreds,
		},
		{
			name: "unknown email", body: marchallObj(t, LoginRequest{Email: "who@school.test", Password: adminPwd}),
			wantCode: http.StatusUnauthorized, wantData: badCreds,
		},
		{
			name: "deactivated account", body: marchallObj(t, LoginRequest{Email: retiredEmail, Password: retiredPwd}),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
		{
			name: "missing fields", body: []byte(`{}`), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"email": "this field is required", "password": "this field is required"}),
		},
		{
			name: "invalid email", body: marchallObj(t, LoginRequest{Email: "admin", Password: adminPwd}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"email": "email must be a valid email address"}),
		},
		{name: "malformed body", body: []byte(`{"email": `), wantCode: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/api/login", tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_refreshToken(t *testing.T) {
	app := setup(t)
	res := login(t, app, teacherEmail, teacherPwd)

	t.Run("success", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/api/token-refresh", marchallObj(t, RefreshRequest{RefreshToken: res.RefreshToken}))
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var data TokenResponse
		decode(t, rec, &data)
		require.NotEmpty(t, data.Token)

		req, rec = newAuthRequest(http.MethodGet, "/api/users/me", data.Token)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, "the new token authenticates")
	})

	invalid := marchallObj(t, httpErr{Error: "invalid refresh token"})
	tests := []httpTest{
		{name: "missing token", body: []byte(`{}`), wantCode: http.StatusBadRequest},
		{name: "garbage", body: marchallObj(t, RefreshRequest{RefreshToken: "lol"}), wantCode: http.StatusUnauthorized, wantData: invalid},
		{
			name: "access token", body: marchallObj(t, RefreshRequest{RefreshToken: res.Token}),
			wantCode: http.StatusUnauthorized, wantData: invalid,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/api/token-refresh", tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("refresh token cannot authenticate", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/api/users/me", res.RefreshToken)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, httpErr{Error: "user not authenticated"}),
		}, rec)
	})
}

func Test_userApi_me(t *testing.T) {
	app := setup(t)
	parent := login(t, app, parentEmail, parentPwd)

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "bad token", token: "lol", wantCode: http.StatusUnauthorized},
		{name: "Me", token: parent.Token, wantCode: http.StatusOK, wantData: marchallObj(t, parent.User)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, "/api/users/me", tt.token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("deactivated after login", func(t *testing.T) {
		usr, err := app.usrRepo.GetUserByID("u-parent")
		require.NoError(t, err)
		usr.IsActive = false
		_, err = app.usrRepo.UpdateUser(usr)
		require.NoError(t, err)

		req, rec := newAuthRequest(http.MethodGet, "/api/users/me", parent.Token)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		}, rec)
	})
}

func Test_userApi_changePassword(t *testing.T) {
	app := setup(t)
	token := getToken(t, app, teacherEmail, teacherPwd)
	path := "/api/users/me/password"

	form := func(old, pwd, confirm string) []byte {
		return marchallObj(t, map[string]string{"old_password": old, "password": pwd, "password_confirm": confirm})
	}

	tests := []httpTest{
		{name: "Auth required", body: form(teacherPwd, "N3w#Secret", "N3w#Secret"), wantCode: http.StatusUnauthorized},
		{
			name: "wrong old password", body: form("nope", "N3w#Secret", "N3w#Secret"), token: token,
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"old_password": "wrong password"}),
		},
		{
			name: "confirmation mismatch", body: form(teacherPwd, "N3w#Secret", "N3w#Secre"), token: token,
			wantCode: http.StatusBadRequest,
		},
		{
			name: "too weak", body: form(teacherPwd, "password", "password"), token: token,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"password": "password must contain at least 1 uppercase character, 1 lowercase character, 1 digit and 1 special character",
			}),
		},
		{
			name: "reused", body: form(teacherPwd, teacherPwd, teacherPwd), token: token,
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"password": "new password must differ from the old one"}),
		},
		{
			name: "success", body: form(teacherPwd, "N3w#Secret", "N3w#Secret"), token: token,
			wantCode: http.StatusOK, wantData: marchallObj(t, SuccessResponse{Success: "Password has been changed."}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	login(t, app, teacherEmail, "N3w#Secret")
	req, rec := newRequest(http.MethodPost, "/api/login", marchallObj(t, LoginRequest{Email: teacherEmail, Password: teacherPwd}))
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "the old password is gone")
}

func Test_userApi_query(t *testing.T) {
	app := setup(t)
	adminToken := getToken(t, app, adminEmail, adminPwd)
	parentToken := getToken(t, app, parentEmail, parentPwd)
	gone := testutil.CreateUser(t, app.usrRepo, "Gina Gone", "gina@school.test", "", user.RoleParent, false)

	ids := func(emails ...string) []byte {
		objs := make([]interface{}, 0, len(emails))
		for _, email := range emails {
			usr, err := app.usrRepo.GetUserByEmail(email)
			require.NoError(t, err)
			objs = append(objs, usr.Identity())
		}
		return marchallList(t, objs...)
	}

	tests := []httpTest{
		{name: "Auth required", path: "/api/users", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "active users", path: "/api/users", token: parentToken, wantCode: http.StatusOK,
			wantData: ids(adminEmail, teacherEmail, parentEmail),
		},
		{
			name: "inactive users are for admins", path: "/api/users?is_active=false", token: parentToken, wantCode: http.StatusOK,
			wantData: ids(adminEmail, teacherEmail, parentEmail),
		},
		{
			name: "inactive users", path: "/api/users?is_active=false", token: adminToken, wantCode: http.StatusOK,
			wantData: ids(retiredEmail, gone.Email),
		},
		{name: "role", path: "/api/users?role=Teacher", token: adminToken, wantCode: http.StatusOK, wantData: ids(teacherEmail)},
		{name: "search", path: "/api/users?search=PAM", token: adminToken, wantCode: http.StatusOK, wantData: ids(parentEmail)},
		{name: "search (unknown)", path: "/api/users?search=lol", token: adminToken, wantCode: http.StatusOK, wantData: marchallList(t)},
		{
			name: "roles", path: "/api/users/roles", token: adminToken, wantCode: http.StatusOK,
			wantData: marchallList(t, user.Roles[0], user.Roles[1], user.Roles[2]),
		},
		{name: "roles are for admins", path: "/api/users/roles", token: parentToken, wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, tt.path, tt.token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_createAndDestroy(t *testing.T) {
	app := setup(t)
	adminToken := getToken(t, app, adminEmail, adminPwd)
	teacherToken := getToken(t, app, teacherEmail, teacherPwd)

	nu := user.NewUser{Name: "Nia New", Email: "NIA@school.test", Role: user.RoleTeacher, Password: "Nia#2024!", PasswordConfirm: "Nia#2024!"}

	t.Run("admin required", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/api/users", teacherToken, marchallObj(t, nu))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)}, rec)
	})

	var created user.User
	t.Run("create", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/api/users", adminToken, marchallObj(t, nu))
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		decode(t, rec, &created)
		assert.NotEmpty(t, created.ID)
		assert.Equal(t, "nia@school.test", created.Email)
		assert.True(t, created.IsActive)
		login(t, app, "nia@school.test", "Nia#2024!")
	})

	t.Run("email taken", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/api/users", adminToken, marchallObj(t, nu))
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	tests := []httpTest{
		{name: "admin required", path: "/api/users/" + created.ID, token: teacherToken, wantCode: http.StatusForbidden},
		{
			name: "not own account", path: "/api/users/u-admin", token: adminToken, wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"error": "you cannot delete your own account"}),
		},
		{name: "destroy", path: "/api/users/" + created.ID, token: adminToken, wantCode: http.StatusNoContent},
		{name: "not found", path: "/api/users/" + created.ID, token: adminToken, wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodDelete, tt.path, tt.token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}
