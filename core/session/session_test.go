package session_test

import (
	"context"
	"encoding/json"
	"io/ioutil"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rainbowkidsrealm/jaja2-sub000/core"
	"github.com/rainbowkidsrealm/jaja2-sub000/core/session"
	"github.com/rainbowkidsrealm/jaja2-sub000/core/user"
	"github.com/rainbowkidsrealm/jaja2-sub000/storage/keystore"
	"github.com/rainbowkidsrealm/jaja2-sub000/tests"
)

var admin = user.Identity{ID: "u-1", Email: "admin@school.test", Name: "Ada Admin", Role: user.RoleAdmin, Active: true}

type authFunc func(ctx context.Context, email, password string) (session.Grant, error)

func (f authFunc) Authenticate(ctx context.Context, email, password string) (session.Grant, error) {
	return f(ctx, email, password)
}

func grantFor(usr user.Identity) authFunc {
	return func(context.Context, string, string) (session.Grant, error) {
		return session.Grant{Token: "tok-" + usr.ID, RefreshToken: "ref-" + usr.ID, User: usr}, nil
	}
}

func failWith(err error) authFunc {
	return func(context.Context, string, string) (session.Grant, error) {
		return session.Grant{}, err
	}
}

func setup(t *testing.T, auth session.Authenticator) (*session.Store, *keystore.MemoryStore) {
	storage := keystore.NewMemoryStore()
	return session.NewStore(storage, auth, testutil.NewLogger(t)), storage
}

func TestNew_ProfileMustMatchRole(t *testing.T) {
	_, err := session.New(admin, session.TeacherProfile{}, "t", "r")
	assert.Equal(t, session.ErrProfileMismatch, err)

	_, err = session.New(admin, nil, "t", "r")
	assert.Equal(t, session.ErrProfileMismatch, err)

	sess, err := session.New(admin, session.AdminProfile{}, "t", "r")
	require.NoError(t, err)
	assert.True(t, sess.Authenticated)
}

func TestPlaceholderProfile(t *testing.T) {
	for _, role := range user.AllRoles {
		p := session.PlaceholderProfile(role)
		require.NotNil(t, p, role)
		assert.Equal(t, role, p.Role())
	}
	assert.Nil(t, session.PlaceholderProfile("janitor"))
}

func TestStore_Login(t *testing.T) {
	store, storage := setup(t, grantFor(admin))
	assert.Equal(t, session.Unauthenticated, store.State())

	sess, err := store.Login(context.Background(), "  Admin@School.test ", "pwd")
	require.NoError(t, err)
	assert.Equal(t, session.Authenticated, store.State())
	assert.Equal(t, admin, sess.User)
	assert.Equal(t, user.RoleAdmin, sess.Profile.Role())
	assert.Equal(t, "tok-u-1", store.Token())

	values, err := storage.Load(session.KeyToken, session.KeyRefreshToken, session.KeyUser)
	require.NoError(t, err)
	assert.Equal(t, "tok-u-1", values[session.KeyToken])
	assert.Equal(t, "ref-u-1", values[session.KeyRefreshToken])
	var persisted user.Identity
	require.NoError(t, json.Unmarshal([]byte(values[session.KeyUser]), &persisted))
	assert.Equal(t, admin, persisted)
}

func TestStore_LoginCleansEmail(t *testing.T) {
	var gotEmail string
	store, _ := setup(t, authFunc(func(_ context.Context, email, _ string) (session.Grant, error) {
		gotEmail = email
		return session.Grant{Token: "t", RefreshToken: "r", User: admin}, nil
	}))
	_, err := store.Login(context.Background(), "  Admin@School.test ", "pwd")
	require.NoError(t, err)
	assert.Equal(t, "admin@school.test", gotEmail)
}

func TestStore_LoginFailure(t *testing.T) {
	tests := []struct {
		name    string
		auth    authFunc
		wantErr error
	}{
		{name: "rejected credentials", auth: failWith(errors.Wrap(core.ErrAuthentication, "401")), wantErr: core.ErrAuthentication},
		{name: "network down", auth: failWith(errors.Wrap(core.ErrTransport, "dial tcp")), wantErr: core.ErrTransport},
		{
			name: "grant without refresh token",
			auth: func(context.Context, string, string) (session.Grant, error) {
				return session.Grant{Token: "t", User: admin}, nil
			},
			wantErr: core.ErrAuthentication,
		},
		{
			name: "grant with unknown role",
			auth: func(context.Context, string, string) (session.Grant, error) {
				return session.Grant{Token: "t", RefreshToken: "r", User: user.Identity{ID: "x", Role: "janitor"}}, nil
			},
			wantErr: core.ErrAuthentication,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, storage := setup(t, tt.auth)
			_, err := store.Login(context.Background(), "a@b.c", "pwd")
			assert.True(t, errors.Is(err, tt.wantErr), "err = %v; want %v", err, tt.wantErr)
			assert.Equal(t, session.Unauthenticated, store.State())
			assert.False(t, store.Current().Authenticated)
			assert.Equal(t, 0, storage.Len(), "nothing may be persisted")
		})
	}
}

func TestStore_FailedLoginClearsPreviousSession(t *testing.T) {
	fail := false
	store, storage := setup(t, authFunc(func(ctx context.Context, email, pwd string) (session.Grant, error) {
		if fail {
			return session.Grant{}, core.ErrAuthentication
		}
		return grantFor(admin)(ctx, email, pwd)
	}))
	_, err := store.Login(context.Background(), "a@b.c", "pwd")
	require.NoError(t, err)

	fail = true
	_, err = store.Login(context.Background(), "a@b.c", "bad")
	require.Error(t, err)
	assert.Equal(t, 0, storage.Len())
	assert.False(t, store.Rehydrate().Authenticated)
}

func TestStore_LogoutIsIdempotent(t *testing.T) {
	store, storage := setup(t, grantFor(admin))
	_, err := store.Login(context.Background(), "a@b.c", "pwd")
	require.NoError(t, err)

	require.NoError(t, store.Logout())
	once := store.Current()
	assert.Equal(t, session.Unauthenticated, store.State())
	assert.Equal(t, 0, storage.Len())

	require.NoError(t, store.Logout())
	assert.Equal(t, once, store.Current())
	assert.Equal(t, session.Unauthenticated, store.State())
	assert.Equal(t, 0, storage.Len())
}

func TestStore_LogoutWinsOverInFlightLogin(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	store, storage := setup(t, authFunc(func(ctx context.Context, email, pwd string) (session.Grant, error) {
		close(started)
		<-release
		return grantFor(admin)(ctx, email, pwd)
	}))

	var (
		wg       sync.WaitGroup
		loginErr error
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, loginErr = store.Login(context.Background(), "a@b.c", "pwd")
	}()

	<-started
	assert.Equal(t, session.Authenticating, store.State())
	require.NoError(t, store.Logout())
	close(release)
	wg.Wait()

	assert.Equal(t, session.ErrSuperseded, loginErr)
	assert.Equal(t, session.Unauthenticated, store.State())
	assert.Equal(t, 0, storage.Len())
}

func TestStore_LatestLoginWins(t *testing.T) {
	teacher := user.Identity{ID: "u-2", Email: "t@school.test", Name: "Tim", Role: user.RoleTeacher, Active: true}
	slowStarted := make(chan struct{})
	releaseSlow := make(chan struct{})
	store, _ := setup(t, authFunc(func(ctx context.Context, email, pwd string) (session.Grant, error) {
		if email == "slow@school.test" {
			close(slowStarted)
			<-releaseSlow
			return grantFor(admin)(ctx, email, pwd)
		}
		return grantFor(teacher)(ctx, email, pwd)
	}))

	var (
		wg      sync.WaitGroup
		slowErr error
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, slowErr = store.Login(context.Background(), "slow@school.test", "pwd")
	}()
	<-slowStarted

	sess, err := store.Login(context.Background(), "fast@school.test", "pwd")
	require.NoError(t, err)
	assert.Equal(t, teacher, sess.User)

	close(releaseSlow)
	wg.Wait()
	assert.Equal(t, session.ErrSuperseded, slowErr)
	assert.Equal(t, teacher, store.Current().User)
}

func TestStore_Rehydrate(t *testing.T) {
	usrJSON := func(usr user.Identity) string {
		data, err := json.Marshal(usr)
		require.NoError(t, err)
		return string(data)
	}

	tests := []struct {
		name       string
		persisted  map[string]string
		wantAuthed bool
		wantKept   bool // persisted keys left untouched
	}{
		{name: "nothing persisted", persisted: nil},
		{
			name:       "round trip",
			persisted:  map[string]string{"token": "t", "refreshToken": "r", "user": usrJSON(admin)},
			wantAuthed: true, wantKept: true,
		},
		{name: "user without token", persisted: map[string]string{"user": usrJSON(admin)}},
		{name: "missing refresh token", persisted: map[string]string{"token": "t", "user": usrJSON(admin)}},
		{name: "blank token", persisted: map[string]string{"token": " ", "refreshToken": "r", "user": usrJSON(admin)}},
		{name: "token without user", persisted: map[string]string{"token": "t", "refreshToken": "r"}},
		{name: "unparseable user", persisted: map[string]string{"token": "t", "refreshToken": "r", "user": "{not json"}},
		{name: "user without id", persisted: map[string]string{"token": "t", "refreshToken": "r", "user": `{"role":"admin"}`}},
		{name: "user with unknown role", persisted: map[string]string{"token": "t", "refreshToken": "r", "user": `{"id":"1","role":"root"}`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, storage := setup(t, failWith(errors.New("no network during rehydration")))
			if tt.persisted != nil {
				require.NoError(t, storage.Save(tt.persisted))
			}

			sess := store.Rehydrate()
			assert.Equal(t, tt.wantAuthed, sess.Authenticated)
			if tt.wantAuthed {
				assert.Equal(t, session.Authenticated, store.State())
				assert.Equal(t, admin, sess.User)
				assert.Equal(t, user.RoleAdmin, sess.Profile.Role())
				assert.Equal(t, "t", store.Token())
			} else {
				assert.Equal(t, session.Unauthenticated, store.State())
				assert.Equal(t, session.Session{}, sess)
				assert.Equal(t, "", store.Token())
			}
			if tt.wantKept {
				assert.Equal(t, 3, storage.Len())
			} else {
				assert.Equal(t, 0, storage.Len(), "corrupt session must be cleared")
			}
		})
	}
}

func TestStore_RehydrateAfterLogin(t *testing.T) {
	storage := keystore.NewMemoryStore()
	first := session.NewStore(storage, grantFor(admin), testutil.NewLogger(t))
	loggedIn, err := first.Login(context.Background(), "a@b.c", "pwd")
	require.NoError(t, err)

	// new process, same storage
	second := session.NewStore(storage, failWith(errors.New("unused")), testutil.NewLogger(t))
	restored := second.Rehydrate()
	assert.Equal(t, loggedIn, restored)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "unauthenticated", session.Unauthenticated.String())
	assert.Equal(t, "authenticating", session.Authenticating.String())
	assert.Equal(t, "authenticated", session.Authenticated.String())
	assert.Equal(t, "State(9)", session.State(9).String())
}

type refreshFunc func(ctx context.Context, refreshToken string) (string, error)

func (f refreshFunc) RefreshToken(ctx context.Context, refreshToken string) (string, error) {
	return f(ctx, refreshToken)
}

func TestStore_Refresh(t *testing.T) {
	fresh := refreshFunc(func(_ context.Context, rt string) (string, error) { return "new-" + rt, nil })

	t.Run("not logged in", func(t *testing.T) {
		store, _ := setup(t, grantFor(admin))
		_, err := store.Refresh(context.Background(), fresh)
		assert.True(t, errors.Is(err, core.ErrAuthentication))
	})

	t.Run("success", func(t *testing.T) {
		store, storage := setup(t, grantFor(admin))
		_, err := store.Login(context.Background(), admin.Email, "pwd")
		require.NoError(t, err)

		sess, err := store.Refresh(context.Background(), fresh)
		require.NoError(t, err)
		assert.Equal(t, "new-ref-u-1", sess.Token)
		assert.Equal(t, "ref-u-1", sess.RefreshToken)
		assert.Equal(t, "new-ref-u-1", store.Token())

		values, err := storage.Load(session.KeyToken, session.KeyRefreshToken)
		require.NoError(t, err)
		assert.Equal(t, map[string]string{session.KeyToken: "new-ref-u-1", session.KeyRefreshToken: "ref-u-1"}, values)
	})

	t.Run("failure keeps the session", func(t *testing.T) {
		store, _ := setup(t, grantFor(admin))
		_, err := store.Login(context.Background(), admin.Email, "pwd")
		require.NoError(t, err)

		_, err = store.Refresh(context.Background(), refreshFunc(func(context.Context, string) (string, error) {
			return "", core.ErrTransport
		}))
		assert.True(t, errors.Is(err, core.ErrTransport))
		assert.Equal(t, "tok-u-1", store.Token())

		_, err = store.Refresh(context.Background(), refreshFunc(func(context.Context, string) (string, error) { return " ", nil }))
		assert.True(t, errors.Is(err, core.ErrAuthentication))
	})

	t.Run("logout wins", func(t *testing.T) {
		store, storage := setup(t, grantFor(admin))
		_, err := store.Login(context.Background(), admin.Email, "pwd")
		require.NoError(t, err)

		_, err = store.Refresh(context.Background(), refreshFunc(func(context.Context, string) (string, error) {
			require.NoError(t, store.Logout())
			return "late", nil
		}))
		assert.Equal(t, session.ErrSuperseded, err)
		assert.Equal(t, session.Unauthenticated, store.State())
		assert.Zero(t, storage.Len())
	})
}

func TestStore_LoginWinsOverInFlightRefresh(t *testing.T) {
	teacher := user.Identity{ID: "u-2", Email: "t@school.test", Name: "Tim", Role: user.RoleTeacher, Active: true}
	store, storage := setup(t, authFunc(func(ctx context.Context, email, pwd string) (session.Grant, error) {
		if email == teacher.Email {
			return grantFor(teacher)(ctx, email, pwd)
		}
		return grantFor(admin)(ctx, email, pwd)
	}))
	_, err := store.Login(context.Background(), admin.Email, "pwd")
	require.NoError(t, err)

	refreshStarted := make(chan struct{})
	releaseRefresh := make(chan struct{})
	var (
		wg         sync.WaitGroup
		refreshErr error
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, refreshErr = store.Refresh(context.Background(), refreshFunc(func(_ context.Context, rt string) (string, error) {
			close(refreshStarted)
			<-releaseRefresh
			return "new-" + rt, nil
		}))
	}()
	<-refreshStarted

	sess, err := store.Login(context.Background(), teacher.Email, "pwd")
	require.NoError(t, err)
	assert.Equal(t, teacher, sess.User)

	close(releaseRefresh)
	wg.Wait()
	assert.Equal(t, session.ErrSuperseded, refreshErr)
	assert.Equal(t, "tok-u-2", store.Token())

	values, err := storage.Load(session.KeyToken, session.KeyRefreshToken)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{session.KeyToken: "tok-u-2", session.KeyRefreshToken: "ref-u-2"}, values)
}

func TestStore_LoginDropsPreviousSession(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	slow := false
	store, _ := setup(t, authFunc(func(ctx context.Context, email, pwd string) (session.Grant, error) {
		if slow {
			close(started)
			<-release
		}
		return grantFor(admin)(ctx, email, pwd)
	}))
	_, err := store.Login(context.Background(), admin.Email, "pwd")
	require.NoError(t, err)

	slow = true
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = store.Login(context.Background(), admin.Email, "pwd")
	}()
	<-started

	assert.Equal(t, session.Authenticating, store.State())
	assert.False(t, store.Current().Authenticated)
	assert.Equal(t, "", store.Token())
	_, err = store.Refresh(context.Background(), refreshFunc(func(context.Context, string) (string, error) {
		return "unused", nil
	}))
	assert.True(t, errors.Is(err, core.ErrAuthentication))

	close(release)
	wg.Wait()
	assert.Equal(t, session.Authenticated, store.State())
	assert.Equal(t, "tok-u-1", store.Token())
}

func TestStore_RehydrateClearsCorruptFile(t *testing.T) {
	storage := keystore.NewFileStore(filepath.Join(t.TempDir(), "session.json"))
	require.NoError(t, ioutil.WriteFile(storage.Path(), []byte(`{"token": "t", "user": `), 0o600))

	store := session.NewStore(storage, failWith(errors.New("unused")), testutil.NewLogger(t))
	assert.False(t, store.Rehydrate().Authenticated)
	assert.Equal(t, session.Unauthenticated, store.State())

	_, err := os.Stat(storage.Path())
	assert.True(t, os.IsNotExist(err), "corrupt session file must be removed")
}
