package enrollment

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/sundayschool/core"
	"github.com/trezcool/sundayschool/core/class"
	"github.com/trezcool/sundayschool/core/user"
)

// Statuses
const (
	StatusActive    = "active"
	StatusDropped   = "dropped"
	StatusCompleted = "completed"
)

var AllStatuses = []string{StatusActive, StatusDropped, StatusCompleted}

// NowFunc is mockable.
var NowFunc = time.Now

type Enrollment struct {
	ID              int            `json:"id"`
	StudentID       int            `json:"studentId"`
	ClassID         int            `json:"classId"`
	EnrollmentDate  time.Time      `json:"enrollmentDate"`
	Status          string         `json:"status"`
	AttendanceCount int            `json:"attendanceCount"`
	Grade           null.String    `json:"grade"`
	CreatedAt       time.Time      `json:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt"`
	Student         *user.Summary  `json:"student,omitempty"`
	Class           *class.Summary `json:"class,omitempty"`
}

func (e Enrollment) IsActive() bool { return e.Status == StatusActive }

// NewEnrollment contains information needed to enroll a student in a class.
type NewEnrollment struct {
	StudentID int         `json:"studentId" validate:"required"`
	ClassID   int         `json:"classId" validate:"required"`
	Status    string      `json:"status" validate:"omitempty,oneof=active dropped completed"`
	Grade     null.String `json:"grade" validate:"omitempty,max=16"`
}

func (ne *NewEnrollment) Validate(validate *validator.Validate) error {
	ne.Status = core.CleanString(ne.Status, true /* lower */)
	if ne.Status == "" {
		ne.Status = StatusActive
	}
	return validate.Struct(ne)
}

// UpdateStatus is the only way to change the status of an enrollment.
type UpdateStatus struct {
	Status string      `json:"status" validate:"required,oneof=active dropped completed"`
	Grade  null.String `json:"grade" validate:"omitempty,max=16"`
}

func (us *UpdateStatus) Validate(validate *validator.Validate) error {
	us.Status = core.CleanString(us.Status, true /* lower */)
	return validate.Struct(us)
}

type EnrollStudents struct {
	StudentIDs []int `json:"studentIds" validate:"required,min=1,dive,min=1"`
}

// EnrollResult reports the outcome of one roster enrollment.
type EnrollResult struct {
	StudentID  int         `json:"studentId"`
	Created    bool        `json:"created"`
	Enrollment *Enrollment `json:"enrollment,omitempty"`
	Error      string      `json:"error,omitempty"`
}

// ReconcileResult reports a class counter before and after recounting.
type ReconcileResult struct {
	ClassID int `json:"classId"`
	Before  int `json:"before"`
	After   int `json:"after"`
}

func (r ReconcileResult) Drifted() bool { return r.Before != r.After }

type QueryFilter struct {
	ClassID   int    `query:"classId"`
	StudentID int    `query:"studentId"`
	Status    string `query:"status"`

	// StudentIDs restricts rows to these students when not nil.
	StudentIDs []int `query:"-"`
}

func (qf *QueryFilter) Clean() {
	qf.Status = core.CleanString(qf.Status, true /* lower */)
}
