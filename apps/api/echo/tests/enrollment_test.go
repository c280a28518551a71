package tests

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	echoapi "github.com/trezcool/sundayschool/apps/api/echo"
	"github.com/trezcool/sundayschool/core/enrollment"
	"github.com/trezcool/sundayschool/core/user"
	testutil "github.com/trezcool/sundayschool/tests"
)

func Test_enrollmentApi_enrollmentCreate(t *testing.T) {
	app := setup(t)

	teacher := testutil.CreateUser(t, usrRepo, "Teacher", "teacher@test.cd", "", user.RoleTeacher, true)
	parent := testutil.CreateUser(t, usrRepo, "Jane Doe", "jane@test.cd", "", user.RoleParent, true)
	tim := testutil.CreateUser(t, usrRepo, "Tim", "tim@test.cd", "", user.RoleStudent, true)
	ann := testutil.CreateUser(t, usrRepo, "Ann", "ann@test.cd", "", user.RoleStudent, true)
	testutil.LinkParent(t, relRepo, parent.ID, tim.ID, true)
	cls := testutil.CreateClass(t, classRepo, "Lambs", "K", 1, true)
	closed := testutil.CreateClass(t, classRepo, "Closed", "K", 10, false)
	token := getToken(t, teacher)

	enroll := func(studentID, classID int) []byte {
		return marchallObj(t, enrollment.NewEnrollment{StudentID: studentID, ClassID: classID})
	}

	runHTTPTests(t, app, []httpTest{
		{
			name: "Staff required", method: http.MethodPost, path: "/api/enrollments", token: getToken(t, parent),
			body: enroll(tim.ID, cls.ID), wantCode: http.StatusForbidden, wantData: errBody(t, "Not authorized to create enrollments"),
		},
		{
			name: "Missing fields", method: http.MethodPost, path: "/api/enrollments", token: token, body: []byte(`{}`),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, echoapi.ErrorResponse{
				Message: "Missing required fields",
				Fields:  map[string]string{"studentId": "this field is required", "classId": "this field is required"},
			}),
		},
		{
			name: "Invalid status", method: http.MethodPost, path: "/api/enrollments", token: token,
			body:     marchallObj(t, map[string]interface{}{"studentId": tim.ID, "classId": cls.ID, "status": "paused"}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, echoapi.ErrorResponse{
				Message: "Invalid fields",
				Fields:  map[string]string{"status": "must be one of: active, dropped, completed"},
			}),
		},
		{
			name: "Not a student", method: http.MethodPost, path: "/api/enrollments", token: token,
			body: enroll(teacher.ID, cls.ID), wantCode: http.StatusBadRequest, wantData: errBody(t, "Invalid student ID"),
		},
		{
			name: "Unknown class", method: http.MethodPost, path: "/api/enrollments", token: token,
			body: enroll(tim.ID, 999), wantCode: http.StatusBadRequest, wantData: errBody(t, "Invalid class ID"),
		},
		{
			name: "Inactive class", method: http.MethodPost, path: "/api/enrollments", token: token,
			body: enroll(tim.ID, closed.ID), wantCode: http.StatusBadRequest, wantData: errBody(t, "Class is not active"),
		},
		{name: "Enrolled", method: http.MethodPost, path: "/api/enrollments", token: token, body: enroll(tim.ID, cls.ID), wantCode: http.StatusCreated},
		{
			name: "Already enrolled", method: http.MethodPost, path: "/api/enrollments", token: token,
			body: enroll(tim.ID, cls.ID), wantCode: http.StatusConflict, wantData: errBody(t, "Student is already enrolled in this class"),
		},
		{
			name: "Class full", method: http.MethodPost, path: "/api/enrollments", token: token,
			body: enroll(ann.ID, cls.ID), wantCode: http.StatusConflict, wantData: errBody(t, "Class is at maximum capacity"),
		},
	})

	updated, err := classRepo.GetClassByID(context.Background(), cls.ID)
	if assert.NoError(t, err) {
		assert.Equal(t, 1, updated.CurrentEnrollment)
	}

	// only the primary parent of the enrolled student is told
	sent := mailer.Sent()
	if assert.Len(t, sent, 1) {
		assert.Equal(t, "enrollment_created", sent[0].TemplateName)
		assert.Equal(t, "Tim has been enrolled in Lambs", sent[0].Subject)
		if assert.Len(t, sent[0].To, 1) {
			assert.Equal(t, parent.Email, sent[0].To[0].Address)
		}
	}
}

func Test_enrollmentApi_enrollmentScope(t *testing.T) {
	app := setup(t)

	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin@test.cd", "", user.RoleAdmin, true)
	teacher := testutil.CreateUser(t, usrRepo, "Teacher", "teacher@test.cd", "", user.RoleTeacher, true)
	parent := testutil.CreateUser(t, usrRepo, "Parent", "parent@test.cd", "", user.RoleParent, true)
	lonely := testutil.CreateUser(t, usrRepo, "Lonely", "lonely@test.cd", "", user.RoleParent, true)
	tim := testutil.CreateUser(t, usrRepo, "Tim", "tim@test.cd", "", user.RoleStudent, true)
	ann := testutil.CreateUser(t, usrRepo, "Ann", "ann@test.cd", "", user.RoleStudent, true)
	testutil.LinkParent(t, relRepo, parent.ID, tim.ID, false)
	cls := testutil.CreateClass(t, classRepo, "Lambs", "K", 10, true)
	timEnr := testutil.Enroll(t, enrRepo, classRepo, tim.ID, cls.ID)
	annEnr := testutil.Enroll(t, enrRepo, classRepo, ann.ID, cls.ID)

	ids := func(token string, query ...string) []int {
		path := "/api/enrollments"
		if len(query) > 0 {
			path += "?" + query[0]
		}
		req, rec := newAuthRequest(http.MethodGet, path, token)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var enrs []enrollment.Enrollment
		unmarshal(t, rec, &enrs)
		found := make([]int, 0, len(enrs))
		for _, e := range enrs {
			found = append(found, e.ID)
		}
		return found
	}

	assert.ElementsMatch(t, []int{timEnr.ID, annEnr.ID}, ids(getToken(t, admin)))
	assert.ElementsMatch(t, []int{timEnr.ID, annEnr.ID}, ids(getToken(t, teacher)))
	assert.ElementsMatch(t, []int{timEnr.ID}, ids(getToken(t, tim)))
	assert.ElementsMatch(t, []int{timEnr.ID}, ids(getToken(t, parent)))
	assert.Empty(t, ids(getToken(t, lonely)))
	// students may filter, but never outside their own rows
	assert.ElementsMatch(t, []int{timEnr.ID}, ids(getToken(t, tim), fmt.Sprintf("studentId=%d", ann.ID)))
	assert.ElementsMatch(t, []int{annEnr.ID}, ids(getToken(t, admin), fmt.Sprintf("studentId=%d", ann.ID)))

	runHTTPTests(t, app, []httpTest{
		{name: "Own enrollment", path: fmt.Sprintf("/api/enrollments/%d", timEnr.ID), token: getToken(t, tim)},
		{name: "Child enrollment", path: fmt.Sprintf("/api/enrollments/%d", timEnr.ID), token: getToken(t, parent)},
		{
			name: "Other student enrollment", path: fmt.Sprintf("/api/enrollments/%d", annEnr.ID), token: getToken(t, tim),
			wantCode: http.StatusNotFound, wantData: errBody(t, "Enrollment not found"),
		},
		{name: "Not found", path: "/api/enrollments/999", token: getToken(t, admin), wantCode: http.StatusNotFound},
	})
}

func Test_enrollmentApi_enrollmentStatus(t *testing.T) {
	app := setup(t)

	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin@test.cd", "", user.RoleAdmin, true)
	teacher := testutil.CreateUser(t, usrRepo, "Teacher", "teacher@test.cd", "", user.RoleTeacher, true)
	tim := testutil.CreateUser(t, usrRepo, "Tim", "tim@test.cd", "", user.RoleStudent, true)
	ann := testutil.CreateUser(t, usrRepo, "Ann", "ann@test.cd", "", user.RoleStudent, true)
	cls := testutil.CreateClass(t, classRepo, "Lambs", "K", 1, true)
	timEnr := testutil.Enroll(t, enrRepo, classRepo, tim.ID, cls.ID)
	token := getToken(t, teacher)
	statusPath := fmt.Sprintf("/api/enrollments/%d/status", timEnr.ID)

	seats := func() int {
		c, err := classRepo.GetClassByID(context.Background(), cls.ID)
		if err != nil {
			t.Fatalf("GetClassByID() failed: %v", err)
		}
		return c.CurrentEnrollment
	}

	runHTTPTests(t, app, []httpTest{
		{
			name: "Student may not update", method: http.MethodPatch, path: statusPath, token: getToken(t, tim),
			body: []byte(`{"status": "dropped"}`), wantCode: http.StatusForbidden,
			wantData: errBody(t, "Not authorized to update enrollment status"),
		},
		{
			name: "Missing status", method: http.MethodPatch, path: statusPath, token: token,
			body: []byte(`{}`), wantCode: http.StatusBadRequest,
		},
		{
			name: "Dropped", method: http.MethodPatch, path: statusPath, token: token,
			body: []byte(`{"status": "Dropped", "grade": "B+"}`),
		},
	})
	assert.Equal(t, 0, seats())

	// the released seat can be taken
	req, rec := newAuthRequest(http.MethodPost, "/api/enrollments", token, marchallObj(t, enrollment.NewEnrollment{StudentID: ann.ID, ClassID: cls.ID}))
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, 1, seats())

	runHTTPTests(t, app, []httpTest{
		{
			name: "Reactivate in a full class", method: http.MethodPatch, path: statusPath, token: token,
			body: []byte(`{"status": "active"}`), wantCode: http.StatusConflict, wantData: errBody(t, "Class is at maximum capacity"),
		},
		{
			name: "Completed keeps no seat", method: http.MethodPatch, path: statusPath, token: token,
			body: []byte(`{"status": "completed"}`),
		},
		{
			name: "Teacher may not delete", method: http.MethodDelete, path: fmt.Sprintf("/api/enrollments/%d", timEnr.ID), token: token,
			wantCode: http.StatusForbidden, wantData: errBody(t, "Not authorized to delete enrollments"),
		},
		{name: "Deleted", method: http.MethodDelete, path: fmt.Sprintf("/api/enrollments/%d", timEnr.ID), token: getToken(t, admin), wantCode: http.StatusNoContent},
		{name: "Delete again", method: http.MethodDelete, path: fmt.Sprintf("/api/enrollments/%d", timEnr.ID), token: getToken(t, admin), wantCode: http.StatusNotFound},
	})
	assert.Equal(t, 1, seats())

	enr, err := enrRepo.GetEnrollmentByStudentAndClass(context.Background(), tim.ID, cls.ID)
	assert.Equal(t, enrollment.ErrNotFound, err)
	assert.Zero(t, enr.ID)
}
