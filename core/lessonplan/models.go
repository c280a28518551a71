package lessonplan

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/sundayschool/core"
)

// Statuses. Any status may follow any other.
const (
	StatusDraft     = "draft"
	StatusPublished = "published"
	StatusArchived  = "archived"
)

// Material types
const (
	MaterialDocument = "document"
	MaterialVideo    = "video"
	MaterialAudio    = "audio"
	MaterialImage    = "image"
	MaterialLink     = "link"
)

const DefaultDuration = 45 // minutes

var materialTypes = []string{MaterialDocument, MaterialVideo, MaterialAudio, MaterialImage, MaterialLink}

// NowFunc is mockable.
var NowFunc = time.Now

type LessonPlan struct {
	ID             int         `json:"id"`
	Title          string      `json:"title"`
	Description    string      `json:"description"`
	Content        string      `json:"content"`
	BibleReference string      `json:"bibleReference"`
	KeyPoints      []string    `json:"keyPoints"`
	Objectives     string      `json:"objectives"`
	Duration       int         `json:"duration"`
	FileURL        null.String `json:"fileUrl"`
	Status         string      `json:"status"`
	PublishDate    null.Time   `json:"publishDate"`
	ClassID        int         `json:"classId"`
	CreatedBy      int         `json:"createdBy"`
	CreatedAt      time.Time   `json:"createdAt"`
	UpdatedAt      time.Time   `json:"updatedAt"`
	Materials      []Material  `json:"materials,omitempty"`
}

type Material struct {
	ID          int         `json:"id"`
	LessonID    int         `json:"lessonId"`
	Title       string      `json:"title"`
	Description null.String `json:"description"`
	Type        string      `json:"type"`
	URL         string      `json:"url"`
	FileSize    null.Int    `json:"fileSize"`
	Format      null.String `json:"format"`
	SortOrder   int         `json:"sortOrder"`
	IsRequired  bool        `json:"isRequired"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// NewLessonPlan contains information needed to create a new LessonPlan.
type NewLessonPlan struct {
	Title          string      `json:"title" validate:"required"`
	Description    string      `json:"description" validate:"required"`
	Content        string      `json:"content" validate:"required"`
	ClassID        int         `json:"classId" validate:"required"`
	BibleReference string      `json:"bibleReference" validate:"required"`
	Objectives     string      `json:"objectives" validate:"required"`
	KeyPoints      []string    `json:"keyPoints"`
	Duration       int         `json:"duration" validate:"omitempty,min=1"`
	Status         string      `json:"status" validate:"omitempty,oneof=draft published archived"`
	PublishDate    null.Time   `json:"publishDate"`
	FileURL        null.String `json:"fileUrl" validate:"omitempty,url"`
}

func (nlp *NewLessonPlan) Validate(validate *validator.Validate) error {
	nlp.Title = core.CleanString(nlp.Title)
	nlp.BibleReference = core.CleanString(nlp.BibleReference)
	nlp.Status = core.CleanString(nlp.Status, true /* lower */)
	if nlp.Duration == 0 {
		nlp.Duration = DefaultDuration
	}
	if nlp.Status == "" {
		nlp.Status = StatusDraft
	}
	if nlp.KeyPoints == nil {
		nlp.KeyPoints = []string{}
	}
	return validate.Struct(nlp)
}

// UpdateLessonPlan defines what may change on an existing LessonPlan.
// Empty fields keep their current value.
type UpdateLessonPlan struct {
	Title          string      `json:"title"`
	Description    string      `json:"description"`
	Content        string      `json:"content"`
	ClassID        int         `json:"classId"`
	BibleReference string      `json:"bibleReference"`
	Objectives     string      `json:"objectives"`
	KeyPoints      []string    `json:"keyPoints"`
	Duration       int         `json:"duration" validate:"omitempty,min=1"`
	Status         string      `json:"status" validate:"omitempty,oneof=draft published archived"`
	PublishDate    null.Time   `json:"publishDate"`
	FileURL        null.String `json:"fileUrl" validate:"omitempty,url"`
}

func (ulp *UpdateLessonPlan) Validate(validate *validator.Validate) error {
	ulp.Title = core.CleanString(ulp.Title)
	ulp.BibleReference = core.CleanString(ulp.BibleReference)
	ulp.Status = core.CleanString(ulp.Status, true /* lower */)
	return validate.Struct(ulp)
}

func (ulp UpdateLessonPlan) apply(lp *LessonPlan) {
	if ulp.Title != "" {
		lp.Title = ulp.Title
	}
	if ulp.Description != "" {
		lp.Description = ulp.Description
	}
	if ulp.Content != "" {
		lp.Content = ulp.Content
	}
	if ulp.ClassID != 0 {
		lp.ClassID = ulp.ClassID
	}
	if ulp.BibleReference != "" {
		lp.BibleReference = ulp.BibleReference
	}
	if ulp.Objectives != "" {
		lp.Objectives = ulp.Objectives
	}
	if ulp.KeyPoints != nil {
		lp.KeyPoints = ulp.KeyPoints
	}
	if ulp.Duration != 0 {
		lp.Duration = ulp.Duration
	}
	if ulp.Status != "" {
		lp.Status = ulp.Status
	}
	if ulp.PublishDate.Valid {
		lp.PublishDate = ulp.PublishDate
	}
	if ulp.FileURL.Valid {
		lp.FileURL = ulp.FileURL
	}
}

// NewMaterial contains information needed to attach a Material to a LessonPlan.
// SortOrder defaults to one past the highest sort order of the plan.
type NewMaterial struct {
	Title       string      `json:"title" validate:"required"`
	Type        string      `json:"type" validate:"required"`
	URL         string      `json:"url" validate:"required"`
	Description null.String `json:"description"`
	FileSize    null.Int    `json:"fileSize"`
	Format      null.String `json:"format"`
	SortOrder   *int        `json:"sortOrder" validate:"omitempty,min=0"`
	IsRequired  bool        `json:"isRequired"`
}

func (nm *NewMaterial) Validate(validate *validator.Validate) error {
	nm.Title = core.CleanString(nm.Title)
	nm.Type = core.CleanString(nm.Type, true /* lower */)
	nm.URL = core.CleanString(nm.URL)
	if err := validate.Struct(nm); err != nil {
		return err
	}
	for _, t := range materialTypes {
		if t == nm.Type {
			return nil
		}
	}
	return ErrInvalidMaterialType
}

type QueryFilter struct {
	ClassID int    `query:"classId"`
	Status  string `query:"status"`
}

func (qf *QueryFilter) Clean() {
	qf.Status = core.CleanString(qf.Status, true /* lower */)
}
