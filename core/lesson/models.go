package lesson

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/sundayschool/core"
)

// Statuses. Any status may follow any other.
const (
	StatusDraft     = "draft"
	StatusPublished = "published"
	StatusArchived  = "archived"
)

const DefaultDuration = 60 // minutes

var AllStatuses = []string{StatusDraft, StatusPublished, StatusArchived}

// NowFunc is mockable.
var NowFunc = time.Now

type Lesson struct {
	ID            int       `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Scripture     string    `json:"scripture"`
	Objectives    string    `json:"objectives"`
	Materials     string    `json:"materials"`
	Content       string    `json:"content"`
	Activities    string    `json:"activities"`
	ClassID       int       `json:"classId"`
	TeacherID     int       `json:"teacherId"`
	ScheduledDate time.Time `json:"scheduledDate"`
	Duration      int       `json:"duration"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`

	// read-only, joined
	ClassName   string `json:"className"`
	TeacherName string `json:"teacherName"`
}

// LessonInput carries the fields of a lesson accepted on create and full update.
type LessonInput struct {
	Title         string    `json:"title" validate:"required"`
	Description   string    `json:"description" validate:"required"`
	Scripture     string    `json:"scripture" validate:"required"`
	Objectives    string    `json:"objectives" validate:"required"`
	Content       string    `json:"content" validate:"required"`
	ClassID       int       `json:"classId" validate:"required"`
	ScheduledDate time.Time `json:"scheduledDate" validate:"required"`
	Materials     string    `json:"materials"`
	Activities    string    `json:"activities"`
	TeacherID     int       `json:"teacherId"`
	Duration      int       `json:"duration" validate:"omitempty,min=1"`
	Status        string    `json:"status" validate:"omitempty,oneof=draft published archived"`
}

func (in *LessonInput) Validate(validate *validator.Validate) error {
	in.Title = core.CleanString(in.Title)
	in.Scripture = core.CleanString(in.Scripture)
	in.Status = core.CleanString(in.Status, true /* lower */)
	return validate.Struct(in)
}

type UpdateStatus struct {
	Status string `json:"status"`
}

func (us *UpdateStatus) Validate() error {
	us.Status = core.CleanString(us.Status, true /* lower */)
	for _, s := range AllStatuses {
		if s == us.Status {
			return nil
		}
	}
	return ErrInvalidStatus
}

type QueryFilter struct {
	ClassID   int    `query:"classId"`
	TeacherID int    `query:"teacherId"`
	Status    string `query:"status"`
}

func (qf *QueryFilter) Clean() {
	qf.Status = core.CleanString(qf.Status, true /* lower */)
}
