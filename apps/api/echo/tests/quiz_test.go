package tests

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	echoapi "github.com/trezcool/sundayschool/apps/api/echo"
	"github.com/trezcool/sundayschool/core/quiz"
	"github.com/trezcool/sundayschool/core/user"
	testutil "github.com/trezcool/sundayschool/tests"
)

func Test_quizApi(t *testing.T) {
	app := setup(t)

	teacher := testutil.CreateUser(t, usrRepo, "Teacher", "teacher@test.cd", "", user.RoleTeacher, true)
	tim := testutil.CreateUser(t, usrRepo, "Tim", "tim@test.cd", "", user.RoleStudent, true)
	ann := testutil.CreateUser(t, usrRepo, "Ann", "ann@test.cd", "", user.RoleStudent, true)
	cls := testutil.CreateClass(t, classRepo, "Lambs", "K", 10, true)
	testutil.Enroll(t, enrRepo, classRepo, tim.ID, cls.ID)
	token := getToken(t, teacher)

	newQuiz := func(classID int, correct string) []byte {
		return marchallObj(t, quiz.NewQuiz{
			Title:   "Genesis",
			ClassID: classID,
			Questions: []quiz.NewQuestion{
				{QuestionText: "Who built the ark?", Options: []string{"Noah", "Moses"}, CorrectAnswer: "Noah"},
				{QuestionText: "How many days of creation?", Options: []string{"6", "7"}, CorrectAnswer: correct},
			},
		})
	}

	runHTTPTests(t, app, []httpTest{
		{
			name: "Staff required", method: http.MethodPost, path: "/api/quizzes", token: getToken(t, tim),
			body: newQuiz(cls.ID, "6"), wantCode: http.StatusForbidden, wantData: errBody(t, "Not authorized to create quizzes"),
		},
		{
			name: "Too few options", method: http.MethodPost, path: "/api/quizzes", token: token,
			body: marchallObj(t, map[string]interface{}{
				"title":     "Genesis",
				"classId":   cls.ID,
				"questions": []map[string]interface{}{{"questionText": "Who?", "options": []string{"Noah"}, "correctAnswer": "Noah"}},
			}),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "Answer not in options", method: http.MethodPost, path: "/api/quizzes", token: token,
			body: newQuiz(cls.ID, "8"), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, echoapi.ErrorResponse{
				Message: "Invalid fields",
				Fields:  map[string]string{"correctAnswer": "must be one of the options"},
			}),
		},
		{
			name: "Unknown class", method: http.MethodPost, path: "/api/quizzes", token: token,
			body: newQuiz(999, "6"), wantCode: http.StatusBadRequest, wantData: errBody(t, "Invalid class ID"),
		},
	})

	req, rec := newAuthRequest(http.MethodPost, "/api/quizzes", token, newQuiz(cls.ID, "6"))
	app.ServeHTTP(rec, req)
	if !assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String()) {
		return
	}
	var qz quiz.Quiz
	unmarshal(t, rec, &qz)
	assert.Equal(t, teacher.ID, qz.CreatedBy)
	if assert.Len(t, qz.Questions, 2) {
		assert.Equal(t, 0, qz.Questions[0].Position)
		assert.Equal(t, "6", qz.Questions[1].CorrectAnswer)
	}

	detail := fmt.Sprintf("/api/quizzes/%d", qz.ID)
	submissions := detail + "/submissions"

	// takers never see the answers
	req, rec = newAuthRequest(http.MethodGet, detail, getToken(t, tim))
	app.ServeHTTP(rec, req)
	var seen quiz.Quiz
	unmarshal(t, rec, &seen)
	if assert.Len(t, seen.Questions, 2) {
		for _, q := range seen.Questions {
			assert.Empty(t, q.CorrectAnswer)
		}
		assert.Equal(t, []string{"Noah", "Moses"}, seen.Questions[0].Options)
	}

	req, rec = newAuthRequest(http.MethodGet, detail, token)
	app.ServeHTTP(rec, req)
	unmarshal(t, rec, &seen)
	if assert.Len(t, seen.Questions, 2) {
		assert.Equal(t, "Noah", seen.Questions[0].CorrectAnswer)
	}

	runHTTPTests(t, app, []httpTest{
		{name: "Filter by class", path: fmt.Sprintf("/api/quizzes?classId=%d", cls.ID+1), token: getToken(t, tim), wantData: marchallList(t)},
		{name: "Not found", path: "/api/quizzes/999", token: token, wantCode: http.StatusNotFound, wantData: errBody(t, "Quiz not found")},
		{
			name: "Only students submit", method: http.MethodPost, path: submissions, token: token,
			body: []byte(`{"answers": ["Noah", "6"], "score": 100}`), wantCode: http.StatusForbidden,
			wantData: errBody(t, "Not authorized to create quiz submissions"),
		},
		{
			name: "Missing score", method: http.MethodPost, path: submissions, token: getToken(t, tim),
			body: []byte(`{"answers": ["Noah", "6"]}`), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, echoapi.ErrorResponse{
				Message: "Missing required fields",
				Fields:  map[string]string{"score": "this field is required"},
			}),
		},
		{
			name: "Not enrolled", method: http.MethodPost, path: submissions, token: getToken(t, ann),
			body: []byte(`{"answers": ["Noah", "6"], "score": 100}`), wantCode: http.StatusForbidden,
			wantData: errBody(t, "You are not enrolled in this class"),
		},
		{
			name: "Submitted", method: http.MethodPost, path: submissions, token: getToken(t, tim),
			body: []byte(`{"answers": ["Moses", "6"], "score": 50}`), wantCode: http.StatusCreated,
		},
		{
			name: "Submitted twice", method: http.MethodPost, path: submissions, token: getToken(t, tim),
			body: []byte(`{"answers": ["Noah", "6"], "score": 100}`), wantCode: http.StatusConflict,
			wantData: errBody(t, "Quiz already submitted"),
		},
		{
			name: "Students may not list submissions", path: submissions, token: getToken(t, tim),
			wantCode: http.StatusForbidden, wantData: errBody(t, "Not authorized to read quiz submissions"),
		},
	})

	req, rec = newAuthRequest(http.MethodGet, submissions, token)
	app.ServeHTTP(rec, req)
	var subs []quiz.Submission
	unmarshal(t, rec, &subs)
	if assert.Len(t, subs, 1) {
		// the client-computed score is stored as given
		assert.Equal(t, 50.0, subs[0].Score)
		assert.Equal(t, []string{"Moses", "6"}, subs[0].Answers)
		assert.Equal(t, tim.Summary(), subs[0].Student)
	}
}
