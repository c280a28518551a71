package tests

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	echoapi "github.com/trezcool/sundayschool/apps/api/echo"
	"github.com/trezcool/sundayschool/core/class"
	"github.com/trezcool/sundayschool/core/enrollment"
	"github.com/trezcool/sundayschool/core/user"
	testutil "github.com/trezcool/sundayschool/tests"
)

func Test_classApi_classQuery(t *testing.T) {
	app := setup(t)

	parent := testutil.CreateUser(t, usrRepo, "Parent", "parent@test.cd", "", user.RoleParent, true)
	lambs := testutil.CreateClass(t, classRepo, "Lambs", "K", 10, true)
	sheep := testutil.CreateClass(t, classRepo, "Sheep", "1", 10, true)
	closed := testutil.CreateClass(t, classRepo, "Closed", "K", 10, false)
	token := getToken(t, parent)

	runHTTPTests(t, app, []httpTest{
		{name: "Auth required", path: "/api/classes", wantCode: http.StatusUnauthorized},
		{name: "Any role may read", path: "/api/classes", token: token, wantData: marchallList(t, lambs, sheep, closed)},
		{name: "isActive=false", path: "/api/classes?isActive=false", token: token, wantData: marchallList(t, closed)},
		{name: "gradeLevel=K", path: "/api/classes?gradeLevel=K", token: token, wantData: marchallList(t, lambs, closed)},
		{name: "academicYear (unknown)", path: "/api/classes?academicYear=1999", token: token, wantData: marchallList(t)},
		{name: "Retrieve", path: fmt.Sprintf("/api/classes/%d", sheep.ID), token: token, wantData: marchallObj(t, sheep)},
		{name: "Not found", path: "/api/classes/999", token: token, wantCode: http.StatusNotFound, wantData: errBody(t, "Class not found")},
	})
}

func Test_classApi_classCreate(t *testing.T) {
	app := setup(t)

	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin@test.cd", "", user.RoleAdmin, true)
	teacher := testutil.CreateUser(t, usrRepo, "Teacher", "teacher@test.cd", "", user.RoleTeacher, true)
	adminToken := getToken(t, admin)

	runHTTPTests(t, app, []httpTest{
		{
			name: "Admin required", method: http.MethodPost, path: "/api/classes", token: getToken(t, teacher),
			body: marchallObj(t, map[string]string{"name": "Lambs", "gradeLevel": "K"}), wantCode: http.StatusForbidden,
			wantData: errBody(t, "Not authorized to create classes"),
		},
		{
			name: "Missing fields", method: http.MethodPost, path: "/api/classes", token: adminToken,
			body: marchallObj(t, map[string]string{"name": "Lambs"}), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, echoapi.ErrorResponse{
				Message: "Missing required fields",
				Fields:  map[string]string{"gradeLevel": "this field is required"},
			}),
		},
		{
			name: "Invalid schedule", method: http.MethodPost, path: "/api/classes", token: adminToken,
			body: marchallObj(t, map[string]string{"name": "Lambs", "gradeLevel": "K", "scheduleDay": "Funday", "scheduleTime": "25:00"}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, echoapi.ErrorResponse{
				Message: "Invalid fields",
				Fields: map[string]string{
					"scheduleDay":  "must be a day of the week, e.g. Sunday",
					"scheduleTime": "must be a time like 10:00 AM",
				},
			}),
		},
	})

	req, rec := newAuthRequest(http.MethodPost, "/api/classes", adminToken, marchallObj(t, map[string]string{"name": " Lambs ", "gradeLevel": "K"}))
	app.ServeHTTP(rec, req)
	if !assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String()) {
		return
	}
	var cls class.Class
	unmarshal(t, rec, &cls)
	assert.Equal(t, "Lambs", cls.Name)
	assert.Equal(t, class.DefaultMaxCapacity, cls.MaxCapacity)
	assert.Equal(t, class.DefaultScheduleDay, cls.ScheduleDay)
	assert.Equal(t, class.DefaultScheduleTime, cls.ScheduleTime)
	assert.Equal(t, 0, cls.CurrentEnrollment)
	assert.True(t, cls.IsActive)
	assert.NotEmpty(t, cls.AcademicYear)
}

func Test_classApi_classUpdate(t *testing.T) {
	app := setup(t)

	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin@test.cd", "", user.RoleAdmin, true)
	s1 := testutil.CreateUser(t, usrRepo, "S1", "s1@test.cd", "", user.RoleStudent, true)
	s2 := testutil.CreateUser(t, usrRepo, "S2", "s2@test.cd", "", user.RoleStudent, true)
	cls := testutil.CreateClass(t, classRepo, "Lambs", "K", 10, true)
	testutil.Enroll(t, enrRepo, classRepo, s1.ID, cls.ID)
	testutil.Enroll(t, enrRepo, classRepo, s2.ID, cls.ID)
	adminToken := getToken(t, admin)
	detail := fmt.Sprintf("/api/classes/%d", cls.ID)

	update := func(maxCapacity int) []byte {
		return marchallObj(t, map[string]interface{}{
			"name": "Lambs", "gradeLevel": "K", "academicYear": "2026", "maxCapacity": maxCapacity,
			"scheduleDay": "Sunday", "scheduleTime": "9:30 AM", "currentEnrollment": 0,
		})
	}

	runHTTPTests(t, app, []httpTest{
		{
			name: "Capacity below enrollment", method: http.MethodPut, path: detail, token: adminToken, body: update(1),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, echoapi.ErrorResponse{
				Message: "Invalid fields",
				Fields:  map[string]string{"maxCapacity": "cannot be less than the current enrollment"},
			}),
		},
		{name: "Not found", method: http.MethodPut, path: "/api/classes/999", token: adminToken, body: update(5), wantCode: http.StatusNotFound},
		{
			name: "Missing isActive", method: http.MethodPatch, path: detail + "/status", token: adminToken,
			body: []byte(`{}`), wantCode: http.StatusBadRequest, wantData: errBody(t, "Missing isActive field"),
		},
	})

	// clients cannot overwrite the enrollment counter
	req, rec := newAuthRequest(http.MethodPut, detail, adminToken, update(2))
	app.ServeHTTP(rec, req)
	if assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String()) {
		var updated class.Class
		unmarshal(t, rec, &updated)
		assert.Equal(t, 2, updated.MaxCapacity)
		assert.Equal(t, 2, updated.CurrentEnrollment)
		assert.Equal(t, "9:30 AM", updated.ScheduleTime)
	}

	req, rec = newAuthRequest(http.MethodPatch, detail+"/status", adminToken, []byte(`{"isActive": false}`))
	app.ServeHTTP(rec, req)
	if assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String()) {
		var updated class.Class
		unmarshal(t, rec, &updated)
		assert.False(t, updated.IsActive)
	}

	req, rec = newAuthRequest(http.MethodDelete, detail, adminToken)
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	_, err := classRepo.GetClassByID(context.Background(), cls.ID)
	assert.Equal(t, class.ErrNotFound, err)
}

func Test_classApi_classStudents(t *testing.T) {
	app := setup(t)

	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin@test.cd", "", user.RoleAdmin, true)
	teacher := testutil.CreateUser(t, usrRepo, "Teacher", "teacher@test.cd", "", user.RoleTeacher, true)
	parent := testutil.CreateUser(t, usrRepo, "Parent", "parent@test.cd", "", user.RoleParent, true)
	s1 := testutil.CreateUser(t, usrRepo, "S1", "s1@test.cd", "", user.RoleStudent, true)
	s2 := testutil.CreateUser(t, usrRepo, "S2", "s2@test.cd", "", user.RoleStudent, true)
	s3 := testutil.CreateUser(t, usrRepo, "S3", "s3@test.cd", "", user.RoleStudent, true)
	cls := testutil.CreateClass(t, classRepo, "Lambs", "K", 2, true)
	path := fmt.Sprintf("/api/classes/%d/students", cls.ID)

	runHTTPTests(t, app, []httpTest{
		{name: "Staff required", path: path, token: getToken(t, parent), wantCode: http.StatusForbidden, wantData: errBody(t, "Not authorized to read class students")},
		{name: "Empty roster", path: path, token: getToken(t, teacher), wantData: marchallList(t)},
		{name: "Unknown class", path: "/api/classes/999/students", token: getToken(t, teacher), wantCode: http.StatusNotFound},
		{
			name: "Empty studentIds", method: http.MethodPost, path: path, token: getToken(t, teacher),
			body: []byte(`{"studentIds": []}`), wantCode: http.StatusBadRequest,
		},
	})

	body := marchallObj(t, enrollment.EnrollStudents{StudentIDs: []int{s1.ID, teacher.ID, s2.ID, s3.ID, s1.ID}})
	req, rec := newAuthRequest(http.MethodPost, path, getToken(t, admin), body)
	app.ServeHTTP(rec, req)
	if !assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String()) {
		return
	}
	var results []enrollment.EnrollResult
	unmarshal(t, rec, &results)
	if assert.Len(t, results, 5) {
		assert.True(t, results[0].Created)
		assert.Equal(t, "Invalid student ID", results[1].Error)
		assert.True(t, results[2].Created)
		assert.Equal(t, "Class is at maximum capacity", results[3].Error)
		// already enrolled: reported, not duplicated
		assert.False(t, results[4].Created)
		assert.Empty(t, results[4].Error)
		if assert.NotNil(t, results[4].Enrollment) {
			assert.Equal(t, results[0].Enrollment.ID, results[4].Enrollment.ID)
		}
	}

	req, rec = newAuthRequest(http.MethodGet, path, getToken(t, teacher))
	app.ServeHTTP(rec, req)
	var roster []enrollment.Enrollment
	unmarshal(t, rec, &roster)
	assert.Len(t, roster, 2)

	updated, err := classRepo.GetClassByID(context.Background(), cls.ID)
	if assert.NoError(t, err) {
		assert.Equal(t, 2, updated.CurrentEnrollment)
	}
}

func Test_classApi_classTeachers(t *testing.T) {
	app := setup(t)

	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin@test.cd", "", user.RoleAdmin, true)
	teacher := testutil.CreateUser(t, usrRepo, "Teacher", "teacher@test.cd", "", user.RoleTeacher, true)
	student := testutil.CreateUser(t, usrRepo, "Student", "student@test.cd", "", user.RoleStudent, true)
	cls := testutil.CreateClass(t, classRepo, "Lambs", "K", 10, true)
	path := fmt.Sprintf("/api/classes/%d/teachers", cls.ID)
	adminToken := getToken(t, admin)

	runHTTPTests(t, app, []httpTest{
		{name: "Admin required", path: path, token: getToken(t, teacher), wantCode: http.StatusForbidden, wantData: errBody(t, "Not authorized to read class teachers")},
		{name: "No teachers", path: path, token: adminToken, wantData: marchallList(t)},
		{
			name: "Assign", method: http.MethodPost, path: path, token: adminToken,
			body:     marchallObj(t, class.AssignTeachers{TeacherIDs: []int{teacher.ID, student.ID, 999}}),
			wantCode: http.StatusCreated,
			wantData: marchallObj(t, []class.AssignResult{
				{TeacherID: teacher.ID, Created: true},
				{TeacherID: student.ID, Error: "User is not a teacher"},
				{TeacherID: 999, Error: "User not found"},
			}),
		},
		{
			name: "Assign again", method: http.MethodPost, path: path, token: adminToken,
			body:     marchallObj(t, class.AssignTeachers{TeacherIDs: []int{teacher.ID}}),
			wantCode: http.StatusCreated,
			wantData: marchallObj(t, []class.AssignResult{{TeacherID: teacher.ID}}),
		},
	})

	req, rec := newAuthRequest(http.MethodGet, path, adminToken)
	app.ServeHTTP(rec, req)
	var teachers []class.AssignedTeacher
	unmarshal(t, rec, &teachers)
	if assert.Len(t, teachers, 1) {
		assert.Equal(t, teacher.ID, teachers[0].ID)
	}
}
