package main

import (
	"bytes"
	"errors"
	"io/fs"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rainbowkidsrealm/jaja2-sub000/assets"
	"github.com/rainbowkidsrealm/jaja2-sub000/core"
	"github.com/rainbowkidsrealm/jaja2-sub000/core/school"
	"github.com/rainbowkidsrealm/jaja2-sub000/core/user"
	inmemdb "github.com/rainbowkidsrealm/jaja2-sub000/storage/database/inmem"
	testutil "github.com/rainbowkidsrealm/jaja2-sub000/tests"
)

func setup(t *testing.T) (*commandLine, *bytes.Buffer) {
	t.Helper()
	validate, translator := core.NewValidator()
	user.InitValidators(validate, translator)
	school.InitValidators(validate, translator)

	out := new(bytes.Buffer)
	return &commandLine{
		conf:       testutil.NewConfig(),
		logger:     testutil.NewLogger(t),
		validate:   validate,
		translator: translator,
		out:        out,
	}, out
}

// copyFixtures copies the embedded fixtures to a temporary directory.
func copyFixtures(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	entries, err := fs.ReadDir(assets.FS, assets.FixturesDir)
	require.NoError(t, err)
	for _, e := range entries {
		data, err := fs.ReadFile(assets.FS, assets.FixturesDir+"/"+e.Name())
		require.NoError(t, err)
		require.NoError(t, ioutil.WriteFile(filepath.Join(dir, e.Name()), data, 0o600))
	}
	return dir
}

// authenticate seeds dir the way the API does and logs in.
func authenticate(t *testing.T, dir, email, pwd string) error {
	t.Helper()
	db := inmemdb.Open()
	require.NoError(t, db.Seed(os.DirFS(dir), "."))
	_, err := user.NewService(inmemdb.NewUserRepository(db)).Authenticate(email, pwd)
	return err
}

type cliTest struct {
	name       string
	args       []string // without program name
	pwds       []string
	wantErr    error
	wantErrStr string
	wantOut    []string
}

func runTests(t *testing.T, cli *commandLine, out *bytes.Buffer, tests []cliTest) {
	t.Helper()
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		pwds := tt.pwds
		readPasswordFunc = func(int) ([]byte, error) {
			if len(pwds) == 0 {
				return nil, nil
			}
			pwd := pwds[0]
			pwds = pwds[1:]
			return []byte(pwd), nil
		}

		t.Run(tt.name, func(t *testing.T) {
			out.Reset()
			err := cli.run(args)
			switch {
			case tt.wantErr != nil:
				assert.True(t, errors.Is(err, tt.wantErr), "got %v, want %v", err, tt.wantErr)
			case tt.wantErrStr != "":
				if assert.Error(t, err) {
					assert.Contains(t, cli.describe(err), tt.wantErrStr)
				}
			default:
				assert.NoError(t, err)
			}
			for _, want := range tt.wantOut {
				assert.Contains(t, out.String(), want)
			}
		})
	}
}

func Test_commandLine_checkFixtures(t *testing.T) {
	cli, out := setup(t)

	broken := t.TempDir()
	require.NoError(t, ioutil.WriteFile(filepath.Join(broken, "classes.json"), []byte(`[
		{"id": "c-1", "name": "Grade 1", "sections": [{"name": "A", "capacity": 30}]},
		{"id": "c-2", "name": "Grade 2", "sections": []}
	]`), 0o600))

	runTests(t, cli, out, []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "embedded", args: []string{"checkfixtures"}, wantOut: []string{"COLLECTION", "classes", "messages"}},
		{name: "strict embedded", args: []string{"checkfixtures", "-strict"}},
		{name: "directory", args: []string{"checkfixtures", "-dir", copyFixtures(t)}, wantOut: []string{"homework"}},
		{name: "gaps", args: []string{"checkfixtures", "-dir", broken}, wantOut: []string{"gap: class #0: missing sections[0].id"}},
		{name: "strict gaps", args: []string{"checkfixtures", "-dir", broken, "-strict"}, wantErr: errFixtureGaps},
		{name: "missing directory", args: []string{"checkfixtures", "-dir", filepath.Join(broken, "nope")}, wantOut: []string{"students"}},
	})
}

func Test_commandLine_addUser(t *testing.T) {
	cli, out := setup(t)
	dir := copyFixtures(t)

	const pwd = "Chalk#Board9"
	runTests(t, cli, out, []cliTest{
		{name: "no args", args: []string{"adduser"}, wantErr: errHelp},
		{name: "no password", args: []string{"adduser", "-dir", dir, "-email", "new@school.test"}, wantErr: errHelp},
		{
			name:       "invalid",
			args:       []string{"adduser", "-dir", dir, "-name", "Nia New", "-email", "nia", "-role", "janitor"},
			pwds:       []string{pwd, pwd + "x"},
			wantErrStr: "invalid input:\n  email:",
		},
		{
			name:       "weak password",
			args:       []string{"adduser", "-dir", dir, "-name", "Nia New", "-email", "nia@school.test", "-role", "teacher"},
			pwds:       []string{"password", "password"},
			wantErrStr: "password:",
		},
		{
			name:       "email taken",
			args:       []string{"adduser", "-dir", dir, "-name", "Nia New", "-email", "Teacher@School.test", "-role", "teacher"},
			pwds:       []string{pwd, pwd},
			wantErrStr: "email: a user with this email already exists",
		},
		{
			name:    "success",
			args:    []string{"adduser", "-dir", dir, "-name", " Nia New ", "-email", "Nia@School.test", "-role", "Teacher"},
			pwds:    []string{pwd, pwd},
			wantOut: []string{"Added teacher Nia New <nia@school.test>"},
		},
	})

	assert.NoError(t, authenticate(t, dir, "nia@school.test", pwd))
	assert.NoError(t, authenticate(t, dir, "admin@school.test", "Admin#2024"), "existing accounts are kept")
	data, err := ioutil.ReadFile(filepath.Join(dir, "users.json"))
	require.NoError(t, err)
	assert.NotContains(t, string(data), pwd)
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli, out := setup(t)
	dir := copyFixtures(t)

	const pwd = "Fresh#Start42"
	runTests(t, cli, out, []cliTest{
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "email but no password", args: []string{"resetpassword", "-dir", dir, "-email", "parent@school.test"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-dir", dir, "-email", "lol@school.test"}, pwds: []string{pwd}, wantErr: user.ErrNotFound},
		{name: "weak password", args: []string{"resetpassword", "-dir", dir, "-email", "parent@school.test"}, pwds: []string{"12345678"}, wantErrStr: "password:"},
		{
			name:    "reset",
			args:    []string{"resetpassword", "-dir", dir, "-email", "Parent@School.test"},
			pwds:    []string{pwd},
			wantOut: []string{"Password of parent@school.test has been reset."},
		},
	})

	assert.NoError(t, authenticate(t, dir, "parent@school.test", pwd))
	assert.Equal(t, user.ErrWrongPassword, authenticate(t, dir, "parent@school.test", "Parent#2024"))
}
