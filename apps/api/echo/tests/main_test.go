package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"

	. "github.com/vidhyasetu/backend/apps/api/echo"
	"github.com/vidhyasetu/backend/core/user"
	"github.com/vidhyasetu/backend/services/metrics"
	testutil "github.com/vidhyasetu/backend/tests"
)

const newPassword = "Sunfl0wer#Sky"

var (
	errMissingToken = httpErr{Error: "missing or malformed jwt"}
	errInvalidToken = httpErr{Error: "invalid or expired jwt"}
	errForbidden    = httpErr{Error: "permission denied"}
)

type testEnv struct {
	*testutil.Env
	app     *Server
	metrics *metrics.Metrics
}

func setup(t *testing.T) *testEnv {
	t.Helper()

	env := testutil.NewEnv(t)
	m := metrics.New()
	app := NewServer(env.Conf, env.Logger, &Deps{
		Validate:      env.Validate,
		Translator:    env.Translator,
		Metrics:       m,
		UserSvc:       env.Users,
		AttendanceSvc: env.Attendance,
		MarksSvc:      env.Marks,
		FeesSvc:       env.Fees,
		NoticeSvc:     env.Notices,
		HomeworkSvc:   env.Homework,
		Dashboard:     env.Dashboard,
	})
	return &testEnv{Env: env, app: app, metrics: m}
}

// registerStudent registers a student and replaces the temporary password, as a first login would.
func registerStudent(t *testing.T, e *testEnv, admin user.User, first, last, dob, class, section string) user.User {
	t.Helper()

	st := testutil.RegisterStudent(t, e.Env, admin, first, last, dob, class, section)
	tmp := user.TemporaryPassword(first, st.Profile.DateOfBirth)
	usr, err := e.Users.ChangePassword(context.Background(), st.User, user.ChangePassword{
		OldPassword:     tmp,
		Password:        newPassword,
		PasswordConfirm: newPassword,
	})
	require.NoError(t, err)
	return usr
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

// do serves one request and returns the recorded response.
func (e *testEnv) do(method, path, token string, data ...[]byte) *httptest.ResponseRecorder {
	req, rec := newAuthRequest(method, path, token, data...)
	e.app.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) run(t *testing.T, tests []httpTest) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method := tt.method
			if method == "" {
				method = http.MethodGet
			}
			rec := e.do(method, tt.path, tt.token, tt.body)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func getToken(t *testing.T, e *testEnv, usr user.User) string {
	t.Helper()
	token, err := GenerateToken(e.Conf, GetUserClaims(e.Conf, usr))
	if err != nil {
		t.Fatalf("getToken(): %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj(): %v", err)
	}
	return data
}

func unmarshal(t *testing.T, rec *httptest.ResponseRecorder, obj interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), obj); err != nil {
		t.Fatalf("unmarshal(%s): %v", rec.Body.String(), err)
	}
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	wantCode := tt.wantCode
	if wantCode == 0 {
		wantCode = http.StatusOK
	}
	if rec.Code != wantCode {
		t.Errorf("failed! code = %v; wantCode %v; body %s", rec.Code, wantCode, rec.Body.String())
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
