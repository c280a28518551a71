package attendance

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/sundayschool/core"
	"github.com/trezcool/sundayschool/core/user"
)

// Statuses
const (
	StatusPresent = "PRESENT"
	StatusAbsent  = "ABSENT"
)

// DateLayout is the layout of attendance dates.
const DateLayout = "2006-01-02"

// NowFunc is mockable.
var NowFunc = time.Now

// Attendance records whether a student attended a class on a date.
// (StudentID, ClassID, Date) is unique.
type Attendance struct {
	ID        int           `json:"id"`
	StudentID int           `json:"studentId"`
	ClassID   int           `json:"classId"`
	Date      string        `json:"date"`
	Status    string        `json:"status"`
	MarkedBy  int           `json:"markedBy"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
	Student   *user.Summary `json:"student,omitempty"`
}

// PresenceDelta returns the change moving from prev to next applies to an attendance count.
// An empty prev means the record is new.
func PresenceDelta(prev, next string) int {
	switch {
	case prev != StatusPresent && next == StatusPresent:
		return 1
	case prev == StatusPresent && next != StatusPresent:
		return -1
	default:
		return 0
	}
}

type Record struct {
	StudentID int    `json:"studentId" validate:"required"`
	Status    string `json:"status" validate:"required,oneof=PRESENT ABSENT"`
}

// MarkAttendance records the attendance of several students of a class on a date.
type MarkAttendance struct {
	ClassID int      `json:"classId" validate:"required"`
	Date    string   `json:"date" validate:"required,datetime=2006-01-02"`
	Records []Record `json:"records" validate:"required,min=1,dive"`
}

func (ma *MarkAttendance) Validate(validate *validator.Validate) error {
	ma.Date = core.CleanString(ma.Date)
	for i := range ma.Records {
		ma.Records[i].Status = strings.ToUpper(core.CleanString(ma.Records[i].Status))
	}
	return validate.Struct(ma)
}

type QueryFilter struct {
	ClassID   int    `query:"classId"`
	StudentID int    `query:"studentId"`
	Date      string `query:"date"`

	// StudentIDs restricts rows to these students when not nil.
	StudentIDs []int `query:"-"`
}

func (qf *QueryFilter) Clean() {
	qf.Date = core.CleanString(qf.Date)
	if _, err := time.Parse(DateLayout, qf.Date); err != nil {
		qf.Date = ""
	}
}
