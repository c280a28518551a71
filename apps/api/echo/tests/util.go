package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"

	echoapi "github.com/trezcool/sundayschool/apps/api/echo"
	"github.com/trezcool/sundayschool/apps/shared"
	"github.com/trezcool/sundayschool/core"
	"github.com/trezcool/sundayschool/core/attendance"
	"github.com/trezcool/sundayschool/core/class"
	"github.com/trezcool/sundayschool/core/enrollment"
	"github.com/trezcool/sundayschool/core/lesson"
	"github.com/trezcool/sundayschool/core/lessonplan"
	"github.com/trezcool/sundayschool/core/quiz"
	"github.com/trezcool/sundayschool/core/relationship"
	"github.com/trezcool/sundayschool/core/user"
	"github.com/trezcool/sundayschool/core/verse"
	dummydb "github.com/trezcool/sundayschool/storage/database/dummy"
	testutil "github.com/trezcool/sundayschool/tests"
)

var (
	db        *dummydb.DB
	usrRepo   user.Repository
	classRepo class.Repository
	enrRepo   enrollment.Repository
	relRepo   relationship.Repository
	mailer    *testutil.Mailer
	tokens    *echoapi.TokenIssuer

	errMissingToken = echoapi.ErrorResponse{Message: "Unauthenticated"}
)

// setup wires a server on a fresh in-memory database.
func setup(t *testing.T) echoapi.Server {
	conf := core.NewTestConfig()
	logger := testutil.NopLogger{T: t}

	// set up DB & repos
	var err error
	if db, err = dummydb.Open(); err != nil {
		t.Fatalf("dummydb.Open() failed: %v", err)
	}
	usrRepo = dummydb.NewUserRepository(db)
	classRepo = dummydb.NewClassRepository(db)
	enrRepo = dummydb.NewEnrollmentRepository(db)
	family := dummydb.NewRelationshipRepository(db)
	relRepo = family
	lessonPlanRepo := dummydb.NewLessonPlanRepository(db)
	lessonRepo := dummydb.NewLessonRepository(db)
	quizRepo := dummydb.NewQuizRepository(db)
	attendanceRepo := dummydb.NewAttendanceRepository(db)
	verseRepo := dummydb.NewVerseRepository(db)

	// set up services
	mailer = new(testutil.Mailer)
	tokens = echoapi.NewTokenIssuer(conf)
	validate, translator := shared.NewValidator()
	enrollmentSvc := enrollment.NewService(db, enrRepo, classRepo, usrRepo, family, mailer, logger)

	// set up server
	return echoapi.NewServer(
		&echoapi.Options{
			Conf:            conf,
			Logger:          logger,
			Validate:        validate,
			Translator:      translator,
			DisableReqLogs:  true,
			UserSvc:         user.NewService(db, usrRepo, enrollmentSvc),
			ClassSvc:        class.NewService(classRepo, usrRepo),
			EnrollmentSvc:   enrollmentSvc,
			RelationshipSvc: relationship.NewService(db, relRepo, usrRepo),
			LessonPlanSvc:   lessonplan.NewService(db, lessonPlanRepo, classRepo),
			LessonSvc:       lesson.NewService(lessonRepo, classRepo, usrRepo),
			QuizSvc:         quiz.NewService(db, quizRepo, classRepo, enrRepo),
			AttendanceSvc:   attendance.NewService(db, attendanceRepo, classRepo, enrRepo, family),
			VerseSvc:        verse.NewService(verseRepo),
		},
	)
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
	token, err := tokens.Token(tokens.Claims(usr))
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	if objs == nil {
		objs = []interface{}{}
	}
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList() failed: %v", err)
	}
	return data
}

func errBody(t *testing.T, msg string) []byte {
	return marchallObj(t, echoapi.ErrorResponse{Message: msg})
}

// unmarshal decodes the recorded body into v.
func unmarshal(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("json.Unmarshal(%q) failed: %v", rec.Body.String(), err)
	}
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
	_, ok1 := j1.([]interface{})
	_, ok2 := j2.([]interface{})
	if !ok1 || !ok2 {
		return false, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

// checkCodeAndData compares the body only when the test expects one.
func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
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

func runHTTPTests(t *testing.T, app echoapi.Server, tests []httpTest) {
	t.Helper()
	for _, tt := range tests {
		if tt.method == "" {
			tt.method = http.MethodGet
		}
		if tt.wantCode == 0 {
			tt.wantCode = http.StatusOK
		}

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}
