package tests

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	echoapi "github.com/trezcool/sundayschool/apps/api/echo"
	"github.com/trezcool/sundayschool/core/lesson"
	"github.com/trezcool/sundayschool/core/user"
	testutil "github.com/trezcool/sundayschool/tests"
)

func Test_lessonApi(t *testing.T) {
	app := setup(t)

	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin@test.cd", "", user.RoleAdmin, true)
	teacher := testutil.CreateUser(t, usrRepo, "Teacher", "teacher@test.cd", "", user.RoleTeacher, true)
	colleague := testutil.CreateUser(t, usrRepo, "Colleague", "colleague@test.cd", "", user.RoleTeacher, true)
	parent := testutil.CreateUser(t, usrRepo, "Parent", "parent@test.cd", "", user.RoleParent, true)
	cls := testutil.CreateClass(t, classRepo, "Lambs", "K", 10, true)
	token := getToken(t, teacher)
	scheduled := time.Date(2026, time.November, 1, 10, 0, 0, 0, time.UTC)

	newLesson := func(classID, teacherID int) []byte {
		return marchallObj(t, lesson.LessonInput{
			Title:         "Noah's Ark",
			Description:   "The flood",
			Scripture:     "Genesis 6-9",
			Objectives:    "Trust God",
			Content:       "Build a boat",
			ClassID:       classID,
			TeacherID:     teacherID,
			ScheduledDate: scheduled,
		})
	}

	runHTTPTests(t, app, []httpTest{
		{name: "Staff required", path: "/api/lessons", token: getToken(t, parent), wantCode: http.StatusForbidden, wantData: errBody(t, "Not authorized to read lessons")},
		{
			name: "Missing fields", method: http.MethodPost, path: "/api/lessons", token: token,
			body: marchallObj(t, map[string]interface{}{"title": "Noah's Ark", "classId": cls.ID}), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, echoapi.ErrorResponse{
				Message: "Missing required fields",
				Fields: map[string]string{
					"description":   "this field is required",
					"scripture":     "this field is required",
					"objectives":    "this field is required",
					"content":       "this field is required",
					"scheduledDate": "this field is required",
				},
			}),
		},
		{
			name: "Unknown class", method: http.MethodPost, path: "/api/lessons", token: token,
			body: newLesson(999, 0), wantCode: http.StatusBadRequest, wantData: errBody(t, "Invalid class ID"),
		},
		{
			name: "Parent cannot teach", method: http.MethodPost, path: "/api/lessons", token: token,
			body: newLesson(cls.ID, parent.ID), wantCode: http.StatusBadRequest, wantData: errBody(t, "Invalid teacher ID"),
		},
	})

	req, rec := newAuthRequest(http.MethodPost, "/api/lessons", token, newLesson(cls.ID, 0))
	app.ServeHTTP(rec, req)
	if !assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String()) {
		return
	}
	var l lesson.Lesson
	unmarshal(t, rec, &l)
	assert.Equal(t, teacher.ID, l.TeacherID)
	assert.Equal(t, lesson.StatusDraft, l.Status)
	assert.True(t, scheduled.Equal(l.ScheduledDate))

	detail := fmt.Sprintf("/api/lessons/%d", l.ID)

	runHTTPTests(t, app, []httpTest{
		{name: "Not found", path: "/api/lessons/999", token: token, wantCode: http.StatusNotFound, wantData: errBody(t, "Lesson not found")},
		{
			name: "Only the teacher may update", method: http.MethodPut, path: detail, token: getToken(t, colleague),
			body: newLesson(cls.ID, 0), wantCode: http.StatusForbidden, wantData: errBody(t, "You do not have permission to update this lesson"),
		},
		{name: "Updated", method: http.MethodPut, path: detail, token: token, body: newLesson(cls.ID, 0)},
		{
			name: "Invalid status", method: http.MethodPatch, path: detail + "/status", token: token,
			body: []byte(`{"status": "cancelled"}`), wantCode: http.StatusBadRequest, wantData: errBody(t, "Invalid status value"),
		},
		{
			name: "Published", method: http.MethodPatch, path: detail + "/status", token: token, body: []byte(`{"status": "Published"}`),
			wantData: marchallObj(t, echoapi.LessonStatusResponse{Message: "Lesson status updated successfully", Status: lesson.StatusPublished}),
		},
		{
			name: "Filter by teacher", path: fmt.Sprintf("/api/lessons?teacherId=%d&status=published", colleague.ID), token: token,
			wantData: marchallList(t),
		},
		{
			name: "Teacher may not delete", method: http.MethodDelete, path: detail, token: token,
			wantCode: http.StatusForbidden, wantData: errBody(t, "You do not have permission to delete this lesson"),
		},
		{name: "Deleted", method: http.MethodDelete, path: detail, token: getToken(t, admin), wantCode: http.StatusNoContent},
		{name: "Gone", path: detail, token: token, wantCode: http.StatusNotFound},
	})
}

func Test_lessonApi_lessonQuery(t *testing.T) {
	app := setup(t)

	teacher := testutil.CreateUser(t, usrRepo, "Teacher", "teacher@test.cd", "", user.RoleTeacher, true)
	cls := testutil.CreateClass(t, classRepo, "Lambs", "K", 10, true)
	token := getToken(t, teacher)

	for i, title := range []string{"Later", "Sooner"} {
		body := marchallObj(t, lesson.LessonInput{
			Title: title, Description: "d", Scripture: "s", Objectives: "o", Content: "c",
			ClassID:       cls.ID,
			ScheduledDate: time.Date(2026, time.December, 10-i, 10, 0, 0, 0, time.UTC),
		})
		req, rec := newAuthRequest(http.MethodPost, "/api/lessons", token, body)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	req, rec := newAuthRequest(http.MethodGet, fmt.Sprintf("/api/lessons?classId=%d", cls.ID), token)
	app.ServeHTTP(rec, req)
	var lessons []lesson.Lesson
	unmarshal(t, rec, &lessons)
	if assert.Len(t, lessons, 2) {
		// latest scheduled first
		assert.Equal(t, "Later", lessons[0].Title)
		assert.Equal(t, "Sooner", lessons[1].Title)
		assert.Equal(t, cls.Name, lessons[0].ClassName)
		assert.Equal(t, teacher.Name, lessons[0].TeacherName)
	}
}
