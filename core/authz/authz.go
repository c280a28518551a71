// Package authz holds the single role policy table consulted by the API gate.
package authz

import "github.com/trezcool/sundayschool/core/user"

type (
	Resource string
	Action   string
	Scope    int
)

// Resources
const (
	Users            Resource = "users"
	Classes          Resource = "classes"
	ClassStatus      Resource = "class-status"
	ClassStudents    Resource = "class-students"
	ClassTeachers    Resource = "class-teachers"
	Enrollments      Resource = "enrollments"
	EnrollmentStatus Resource = "enrollment-status"
	LessonPlans      Resource = "lesson-plans"
	Lessons          Resource = "lessons"
	LessonStatus     Resource = "lesson-status"
	Relationships    Resource = "relationships"
	RelationshipsAll Resource = "relationships-all"
	Quizzes          Resource = "quizzes"
	QuizSubmissions  Resource = "quiz-submissions"
	Attendance       Resource = "attendance"
)

// Actions
const (
	Read   Action = "read"
	Create Action = "create"
	Update Action = "update"
	Delete Action = "delete"
)

// Row scopes
const (
	ScopeNone Scope = iota
	ScopeAll
	ScopeOwn
	ScopeChildren
)

var (
	anyRole      []string // nil: any authenticated role
	adminOnly    = []string{user.RoleAdmin}
	staff        = []string{user.RoleAdmin, user.RoleTeacher}
	studentsOnly = []string{user.RoleStudent}
)

type rule struct {
	roles []string
}

// policy maps resource and action to the allowed roles.
// A missing entry denies everyone.
var policy = map[Resource]map[Action]rule{
	Users: {
		Read: {adminOnly}, Create: {adminOnly}, Update: {adminOnly}, Delete: {adminOnly},
	},
	Classes: {
		Read: {anyRole}, Create: {adminOnly}, Update: {adminOnly}, Delete: {adminOnly},
	},
	ClassStatus:   {Update: {adminOnly}},
	ClassStudents: {Read: {staff}, Create: {staff}},
	ClassTeachers: {Read: {adminOnly}, Create: {adminOnly}},
	Enrollments: {
		Read: {anyRole}, Create: {staff}, Delete: {adminOnly},
	},
	EnrollmentStatus: {Update: {staff}},
	LessonPlans: {
		Read: {staff}, Create: {staff}, Update: {staff}, Delete: {staff},
	},
	// teachers reach the lesson service, which keeps deletion to admins
	Lessons: {
		Read: {staff}, Create: {staff}, Update: {staff}, Delete: {staff},
	},
	LessonStatus: {Update: {staff}},
	Relationships: {
		Read: {anyRole}, Create: {adminOnly}, Update: {adminOnly}, Delete: {adminOnly},
	},
	RelationshipsAll: {Read: {adminOnly}},
	Quizzes:          {Read: {anyRole}, Create: {staff}},
	QuizSubmissions:  {Read: {staff}, Create: {studentsOnly}},
	Attendance:       {Read: {anyRole}, Create: {staff}},
}

// CanAccess reports whether role may perform action on resource.
func CanAccess(role string, res Resource, act Action) bool {
	if !user.IsValidRole(role) {
		return false
	}
	actions, ok := policy[res]
	if !ok {
		return false
	}
	r, ok := actions[act]
	if !ok {
		return false
	}
	if r.roles == nil {
		return true
	}
	for _, allowed := range r.roles {
		if allowed == role {
			return true
		}
	}
	return false
}

// RowScope returns which rows of student-owned data (enrollments, attendance) role may see.
func RowScope(role string) Scope {
	switch role {
	case user.RoleAdmin, user.RoleTeacher:
		return ScopeAll
	case user.RoleStudent:
		return ScopeOwn
	case user.RoleParent:
		return ScopeChildren
	default:
		return ScopeNone
	}
}

// CanModify reports whether actor may modify a row owned by ownerID.
func CanModify(actor user.User, ownerID int) bool {
	return actor.IsAdmin() || actor.ID == ownerID
}

// CanViewFamily reports whether actor may view the relationships of the target user.
func CanViewFamily(actor user.User, targetID int) bool {
	return actor.ID == targetID || actor.IsAdmin() || actor.IsTeacher()
}
