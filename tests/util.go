package testutil

import (
	"io/ioutil"
	"log"
	"testing"
	"time"

	"github.com/rainbowkidsrealm/jaja2-sub000/core"
	"github.com/rainbowkidsrealm/jaja2-sub000/core/user"
	"github.com/rainbowkidsrealm/jaja2-sub000/services/logger"
)

// NewConfig returns the configuration used by tests: test mode, fixed secret, short deltas.
func NewConfig() *core.Config {
	return &core.Config{
		AppName:          "Jaja",
		Env:              "TEST",
		Build:            "test",
		TestMode:         true,
		SecretKey:        "test-secret",
		DefaultFromEmail: "noreply@school.test",
		FrontendBaseURL:  "http://localhost:3000",
		Server: core.ServerConfig{
			Address:                   ":0",
			ShutdownTimeout:           time.Second,
			JWTExpirationDelta:        time.Hour,
			JWTRefreshExpirationDelta: 24 * time.Hour,
		},
		Client: core.ClientConfig{
			RequestTimeout: 5 * time.Second,
		},
	}
}

// NewLogger returns a logger that writes nothing and never reports to Rollbar.
// Pass -v to see its output through t.Log.
func NewLogger(t *testing.T) core.Logger {
	t.Helper()
	var w = ioutil.Discard
	if testing.Verbose() {
		w = testWriter{t}
	}
	return logsvc.NewRollbarLogger(log.New(w, "", 0), NewConfig())
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, email, pwd string,
	role user.Role,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:      name,
		Email:     email,
		Role:      role,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser(): %v", err)
		}
	}
	usr, err := repo.CreateUser(usr)
	if err != nil {
		t.Fatalf("CreateUser(): %v", err)
	}
	return usr
}
