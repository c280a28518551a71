package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/sundayschool/core/user"
)

func TestCanAccess(t *testing.T) {
	tests := []struct {
		name string
		role string
		res  Resource
		act  Action
		want bool
	}{
		{"admin reads users", user.RoleAdmin, Users, Read, true},
		{"teacher reads users", user.RoleTeacher, Users, Read, false},
		{"student reads classes", user.RoleStudent, Classes, Read, true},
		{"teacher updates class", user.RoleTeacher, Classes, Update, false},
		{"admin toggles class status", user.RoleAdmin, ClassStatus, Update, true},
		{"teacher lists roster", user.RoleTeacher, ClassStudents, Read, true},
		{"parent lists roster", user.RoleParent, ClassStudents, Read, false},
		{"teacher lists class teachers", user.RoleTeacher, ClassTeachers, Read, false},
		{"parent reads enrollments", user.RoleParent, Enrollments, Read, true},
		{"student creates enrollment", user.RoleStudent, Enrollments, Create, false},
		{"teacher creates enrollment", user.RoleTeacher, Enrollments, Create, true},
		{"teacher deletes enrollment", user.RoleTeacher, Enrollments, Delete, false},
		{"student deletes lesson", user.RoleStudent, Lessons, Delete, false},
		{"admin deletes lesson", user.RoleAdmin, Lessons, Delete, true},
		{"student reads lesson plans", user.RoleStudent, LessonPlans, Read, false},
		{"teacher lists all relationships", user.RoleTeacher, RelationshipsAll, Read, false},
		{"student submits quiz", user.RoleStudent, QuizSubmissions, Create, true},
		{"teacher submits quiz", user.RoleTeacher, QuizSubmissions, Create, false},
		{"undeclared action", user.RoleAdmin, ClassStatus, Delete, false},
		{"unknown resource", user.RoleAdmin, Resource("nope"), Read, false},
		{"unknown role on open resource", "GUEST", Classes, Read, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CanAccess(tc.role, tc.res, tc.act))
		})
	}
}

func TestRowScope(t *testing.T) {
	assert.Equal(t, ScopeAll, RowScope(user.RoleAdmin))
	assert.Equal(t, ScopeAll, RowScope(user.RoleTeacher))
	assert.Equal(t, ScopeOwn, RowScope(user.RoleStudent))
	assert.Equal(t, ScopeChildren, RowScope(user.RoleParent))
	assert.Equal(t, ScopeNone, RowScope(""))
}

func TestCanModify(t *testing.T) {
	admin := user.User{ID: 1, Role: user.RoleAdmin}
	teacher := user.User{ID: 2, Role: user.RoleTeacher}

	assert.True(t, CanModify(admin, 2))
	assert.True(t, CanModify(teacher, 2))
	assert.False(t, CanModify(teacher, 3))
}

func TestCanViewFamily(t *testing.T) {
	parent := user.User{ID: 5, Role: user.RoleParent}
	assert.True(t, CanViewFamily(parent, 5))
	assert.False(t, CanViewFamily(parent, 6))
	assert.True(t, CanViewFamily(user.User{ID: 1, Role: user.RoleTeacher}, 6))
}
