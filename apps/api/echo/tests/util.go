package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/rainbowkidsrealm/jaja2-sub000/apps/api/echo"
	"github.com/rainbowkidsrealm/jaja2-sub000/assets"
	"github.com/rainbowkidsrealm/jaja2-sub000/core"
	"github.com/rainbowkidsrealm/jaja2-sub000/core/registry"
	"github.com/rainbowkidsrealm/jaja2-sub000/core/school"
	"github.com/rainbowkidsrealm/jaja2-sub000/core/user"
	"github.com/rainbowkidsrealm/jaja2-sub000/services/email"
	"github.com/rainbowkidsrealm/jaja2-sub000/storage/database/inmem"
	"github.com/rainbowkidsrealm/jaja2-sub000/tests"
)

// seeded accounts
const (
	adminEmail   = "admin@school.test"
	adminPwd     = "Admin#2024"
	teacherEmail = "teacher@school.test"
	teacherPwd   = "Teach#2024"
	parentEmail  = "parent@school.test"
	parentPwd    = "Parent#2024"
	retiredEmail = "retired@school.test"
	retiredPwd   = "Retired#2024"
)

var (
	errMissingToken = httpErr{Error: "missing or malformed jwt"}
	errForbidden    = httpErr{Error: "permission denied"}
	errNotFound     = httpErr{Error: "not found"}
)

type testApp struct {
	*Server
	usrRepo user.Repository
	mailer  *emailsvc.ConsoleServiceMock
}

// setup returns a server backed by a freshly seeded database.
func setup(t *testing.T) testApp {
	t.Helper()
	conf := testutil.NewConfig()
	logger := testutil.NewLogger(t)

	db := inmemdb.Open()
	require.NoError(t, db.Seed(assets.FS, assets.FixturesDir))
	usrRepo := inmemdb.NewUserRepository(db)

	mailSvc := emailsvc.NewConsoleServiceMock(conf, logger)
	usrSvc := user.NewService(usrRepo)
	regSvc := registry.NewService(inmemdb.NewRecordRepository(db), usrSvc, mailSvc)

	validate, translator := core.NewValidator()
	user.InitValidators(validate, translator)
	school.InitValidators(validate, translator)
	core.ParseEmailTemplates(assets.FS, assets.EmailTemplatesDir, conf, logger)

	server := NewServer(ServerDeps{
		Conf:        conf,
		Logger:      logger,
		UserSvc:     usrSvc,
		RegistrySvc: regSvc,
		Validate:    validate,
		Translator:  translator,
	})
	t.Cleanup(func() { _ = server.Close() })
	return testApp{Server: server, usrRepo: usrRepo, mailer: mailSvc}
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
	extra    interface{}
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

// login authenticates through the API and returns its answer.
func login(t *testing.T, app http.Handler, email, pwd string) LoginResponse {
	t.Helper()
	req, rec := newRequest(http.MethodPost, "/api/login", marchallObj(t, LoginRequest{Email: email, Password: pwd}))
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	return res
}

func getToken(t *testing.T, app http.Handler, email, pwd string) string {
	return login(t, app, email, pwd).Token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj(): %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	if objs == nil {
		objs = []interface{}{}
	}
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList(): %v", err)
	}
	return data
}

// decode unmarshals the recorded body into v.
func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
