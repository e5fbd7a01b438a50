package echoapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"reflect"
	"testing"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	. "github.com/ceresdev/academico/apps/api/echo"
	"github.com/ceresdev/academico/core"
	"github.com/ceresdev/academico/core/profile"
	"github.com/ceresdev/academico/core/user"
	emailsvc "github.com/ceresdev/academico/services/email"
	dummydb "github.com/ceresdev/academico/storage/database/dummy"
	testutil "github.com/ceresdev/academico/tests"
)

var (
	conf       *core.Config
	validate   *validator.Validate
	translator ut.Translator

	errMissingToken = httpErr{Error: "missing or malformed jwt"}
)

func TestMain(m *testing.M) {
	conf = testutil.Config()
	validate, translator = testutil.NewValidators()
	os.Exit(m.Run())
}

// setup builds a fresh in-memory store and a server wired the way main does it.
func setup(t *testing.T) (*dummydb.DB, user.Service, Server) {
	t.Helper()

	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open(): %v", err)
	}

	usrRepo := dummydb.NewUserRepository(db)
	groupRepo := dummydb.NewGroupRepository(db)
	teacherRepo := dummydb.NewTeacherRepository(db)
	studentRepo := dummydb.NewStudentRepository(db)

	usrSvc := user.NewServiceMock(
		usrRepo,
		groupRepo,
		teacherRepo,
		studentRepo,
		dummydb.NewAppointmentRepository(db),
		emailsvc.NewConsoleServiceMock(),
		conf,
	)
	profileSvc := profile.NewService(
		usrRepo,
		teacherRepo,
		studentRepo,
		dummydb.NewPeriodRepository(db),
		dummydb.NewCourseRepository(db),
		dummydb.NewComponentRepository(db),
		dummydb.NewScheduleRepository(db),
		dummydb.NewRequestRepository(db),
		dummydb.NewTranscriptRepository(db),
	)

	app := NewServer(ServerDeps{
		Conf:           conf,
		Logger:         testutil.NewLogger(),
		UserSvc:        usrSvc,
		ProfileSvc:     profileSvc,
		Validate:       validate,
		Translator:     translator,
		DisableReqLogs: true,
	})
	return db, usrSvc, app
}

// registerUser provisions an account through the service, the way the
// register endpoint would.
func registerUser(t *testing.T, svc user.Service, matricula, uname string) user.RegisteredAccount {
	t.Helper()

	acc, err := svc.Register(context.Background(), user.NewAccount{
		Matricula:       matricula,
		Name:            "Jo Silva",
		Username:        uname,
		Email:           uname + "@test.test",
		Password:        "V3ryS3cretPwd!",
		PasswordConfirm: "V3ryS3cretPwd!",
	})
	if err != nil {
		t.Fatalf("Register(%s): %v", matricula, err)
	}
	return acc
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

func getToken(t *testing.T, usr user.User) string {
	claims := GetUserClaims(usr)
	token, err := GenerateToken(claims)
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

func marchallList(t *testing.T, objs ...interface{}) []byte {
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList(): %v", err)
	}
	return data
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
