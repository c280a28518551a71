package class

import (
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/sundayschool/core"
	"github.com/trezcool/sundayschool/core/user"
)

const (
	DefaultMaxCapacity  = 25
	DefaultScheduleDay  = "Sunday"
	DefaultScheduleTime = "10:00 AM"
)

// Class-scoped roles
const (
	AssignmentRoleStudent = "STUDENT"
	AssignmentRoleTeacher = "TEACHER"
)

// NowFunc is mockable.
var NowFunc = time.Now

type Class struct {
	ID           int         `json:"id"`
	Name         string      `json:"name"`
	GradeLevel   string      `json:"gradeLevel"`
	Description  null.String `json:"description"`
	AcademicYear string      `json:"academicYear"`
	Semester     null.String `json:"semester"`
	MaxCapacity  int         `json:"maxCapacity"`
	// CurrentEnrollment equals the number of active enrollments of the class.
	// Only the enrollment service writes it.
	CurrentEnrollment int         `json:"currentEnrollment"`
	ScheduleDay       string      `json:"scheduleDay"`
	ScheduleTime      string      `json:"scheduleTime"`
	Location          null.String `json:"location"`
	IsActive          bool        `json:"isActive"`
	CreatedAt         time.Time   `json:"createdAt"`
	UpdatedAt         time.Time   `json:"updatedAt"`
}

func (c Class) IsFull() bool { return c.CurrentEnrollment >= c.MaxCapacity }

// Summary is the subset of a Class embedded in other resources.
type Summary struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	GradeLevel   string `json:"gradeLevel"`
	AcademicYear string `json:"academicYear"`
}

func (c Class) Summary() *Summary {
	return &Summary{ID: c.ID, Name: c.Name, GradeLevel: c.GradeLevel, AcademicYear: c.AcademicYear}
}

// Assignment ties a user to a class with a class-scoped role.
type Assignment struct {
	ID           int       `json:"id"`
	UserID       int       `json:"userId"`
	ClassID      int       `json:"classId"`
	Role         string    `json:"role"`
	IsPrimary    bool      `json:"isPrimary"`
	AssignedDate time.Time `json:"assignedDate"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// AssignedTeacher is a teacher listed on a class.
type AssignedTeacher struct {
	user.Summary
	IsPrimary    bool      `json:"isPrimary"`
	AssignedDate time.Time `json:"assignedDate"`
}

// AssignResult reports the outcome of one teacher assignment.
type AssignResult struct {
	TeacherID int    `json:"teacherId"`
	Created   bool   `json:"created"`
	Error     string `json:"error,omitempty"`
}

// NewClass contains information needed to create a new Class.
type NewClass struct {
	Name         string      `json:"name" validate:"required"`
	GradeLevel   string      `json:"gradeLevel" validate:"required"`
	Description  null.String `json:"description"`
	AcademicYear string      `json:"academicYear"`
	Semester     null.String `json:"semester"`
	MaxCapacity  int         `json:"maxCapacity" validate:"omitempty,min=1"`
	ScheduleDay  string      `json:"scheduleDay" validate:"omitempty,weekday"`
	ScheduleTime string      `json:"scheduleTime" validate:"omitempty,classtime"`
	Location     null.String `json:"location"`
	IsActive     *bool       `json:"isActive"`
}

func (nc *NewClass) Validate(validate *validator.Validate) error {
	nc.Name = core.CleanString(nc.Name)
	nc.GradeLevel = core.CleanString(nc.GradeLevel)
	nc.AcademicYear = core.CleanString(nc.AcademicYear)
	nc.ScheduleDay = core.CleanString(nc.ScheduleDay)
	nc.ScheduleTime = core.CleanString(nc.ScheduleTime)

	if nc.AcademicYear == "" {
		nc.AcademicYear = strconv.Itoa(NowFunc().Year())
	}
	if nc.MaxCapacity == 0 {
		nc.MaxCapacity = DefaultMaxCapacity
	}
	if nc.ScheduleDay == "" {
		nc.ScheduleDay = DefaultScheduleDay
	}
	if nc.ScheduleTime == "" {
		nc.ScheduleTime = DefaultScheduleTime
	}
	return validate.Struct(nc)
}

// UpdateClass defines the information needed to modify an existing Class.
// currentEnrollment is never accepted from clients.
type UpdateClass struct {
	Name         string      `json:"name" validate:"required"`
	GradeLevel   string      `json:"gradeLevel" validate:"required"`
	Description  null.String `json:"description"`
	AcademicYear string      `json:"academicYear" validate:"required"`
	Semester     null.String `json:"semester"`
	MaxCapacity  int         `json:"maxCapacity" validate:"required,min=1"`
	ScheduleDay  string      `json:"scheduleDay" validate:"required,weekday"`
	ScheduleTime string      `json:"scheduleTime" validate:"required,classtime"`
	Location     null.String `json:"location"`
	IsActive     *bool       `json:"isActive"`
}

func (uc *UpdateClass) Validate(cls Class, validate *validator.Validate) error {
	uc.Name = core.CleanString(uc.Name)
	uc.GradeLevel = core.CleanString(uc.GradeLevel)
	uc.AcademicYear = core.CleanString(uc.AcademicYear)
	uc.ScheduleDay = core.CleanString(uc.ScheduleDay)
	uc.ScheduleTime = core.CleanString(uc.ScheduleTime)

	if err := validate.Struct(uc); err != nil {
		return err
	}
	if uc.MaxCapacity < cls.CurrentEnrollment {
		return ErrCapacityBelowEnrollment
	}
	return nil
}

type UpdateStatus struct {
	IsActive *bool `json:"isActive"`
}

func (us UpdateStatus) Validate() error {
	if us.IsActive == nil {
		return ErrMissingIsActive
	}
	return nil
}

type AssignTeachers struct {
	TeacherIDs []int `json:"teacherIds" validate:"required,min=1,dive,min=1"`
}

type QueryFilter struct {
	IsActive     string `query:"isActive"`
	AcademicYear string `query:"academicYear"`
	GradeLevel   string `query:"gradeLevel"`

	isActive *bool
}

func (qf *QueryFilter) Clean() {
	qf.AcademicYear = core.CleanString(qf.AcademicYear)
	qf.GradeLevel = core.CleanString(qf.GradeLevel)
	switch core.CleanString(qf.IsActive, true /* lower */) {
	case "true", "1":
		t := true
		qf.isActive = &t
	case "false", "0":
		f := false
		qf.isActive = &f
	}
}

// Active returns the parsed isActive filter, nil when unset.
func (qf *QueryFilter) Active() *bool { return qf.isActive }
