package logsvc

import (
	"bytes"
	"net/http/httptest"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/sundayschool/core"
	"github.com/trezcool/sundayschool/core/user"
)

func newTestLogger(out *bytes.Buffer) *RollbarLogger {
	logger := NewRollbarLogger(core.NewTestConfig(), "API", out)
	logger.Enable(false)
	return logger
}

func TestRollbarLogger_prepare(t *testing.T) {
	logger := newTestLogger(new(bytes.Buffer))

	err := errors.New("boom")
	req := httptest.NewRequest("GET", "/api/classes/3", nil)
	teacher := user.User{ID: 7, Name: "Jane", Email: "jane@test.cd", Role: user.RoleTeacher}
	parent := user.User{ID: 9, Name: "Mary", Email: "mary@test.cd", Role: user.RoleParent}

	r := logger.prepare("Internal server error", []interface{}{err, req, teacher, parent, map[string]interface{}{"classId": 3}})

	assert.Equal(t, []interface{}{"Internal server error", err, req, r.extras}, r.args)
	assert.Equal(t, teacher.Summary(), r.person, "first user wins")
	assert.Equal(t, map[string]interface{}{
		"component": "API",
		"role":      user.RoleTeacher,
		"classId":   3,
	}, r.extras)

	r = logger.prepare("Application stopped", nil)
	assert.Nil(t, r.person)
	assert.Equal(t, []interface{}{"Application stopped", map[string]interface{}{"component": "API"}}, r.args)

	summary := parent.Summary()
	r = logger.prepare("finding primary parent", []interface{}{summary})
	assert.Equal(t, summary, r.person)
}

func TestRollbarLogger_print(t *testing.T) {
	out := new(bytes.Buffer)
	logger := newTestLogger(out)

	req := httptest.NewRequest("DELETE", "/api/users/4", nil)
	admin := user.User{ID: 1, Role: user.RoleAdmin}
	logger.Error("Internal server error", req, admin, errors.New("boom"))

	line := out.String()
	assert.Contains(t, line, "API : ")
	assert.Contains(t, line, "rollbar_test.go:") // caller's line, not the logger's
	assert.Contains(t, line, "Internal server error | DELETE /api/users/4 | user 1 (ADMIN)\nboom")
}
