package sqlxrepos

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/volatiletech/null/v8"
	"github.com/volatiletech/strmangle"

	"github.com/trezcool/sundayschool/core"
	"github.com/trezcool/sundayschool/core/lessonplan"
)

type lessonPlanRow struct {
	ID             int            `db:"id"`
	Title          string         `db:"title"`
	Description    string         `db:"description"`
	Content        string         `db:"content"`
	BibleReference string         `db:"bible_reference"`
	KeyPoints      pq.StringArray `db:"key_points"`
	Objectives     string         `db:"objectives"`
	Duration       int            `db:"duration"`
	FileURL        null.String    `db:"file_url"`
	Status         string         `db:"status"`
	PublishDate    null.Time      `db:"publish_date"`
	ClassID        int            `db:"class_id"`
	CreatedBy      int            `db:"created_by"`
	CreatedAt      time.Time      `db:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at"`
}

const lessonPlanColumns = `id, title, description, content, bible_reference, key_points, objectives, duration,
	file_url, status, publish_date, class_id, created_by, created_at, updated_at`

var lessonPlanWritable = []string{
	"title", "description", "content", "bible_reference", "key_points", "objectives", "duration",
	"file_url", "status", "publish_date", "class_id", "created_by", "created_at", "updated_at",
}

var lessonPlanOrdering = map[string]string{
	"id":         "id",
	"title":      "title",
	"status":     "status",
	"duration":   "duration",
	"created_at": "created_at",
	"updated_at": "updated_at",
}

var lessonPlanConstraints = map[string]error{
	"lesson_plans_class_id_fkey": lessonplan.ErrInvalidClass,
}

func toLessonPlanRow(lp lessonplan.LessonPlan) lessonPlanRow {
	keyPoints := lp.KeyPoints
	if keyPoints == nil {
		keyPoints = []string{}
	}
	return lessonPlanRow{
		Title:          lp.Title,
		Description:    lp.Description,
		Content:        lp.Content,
		BibleReference: lp.BibleReference,
		KeyPoints:      keyPoints,
		Objectives:     lp.Objectives,
		Duration:       lp.Duration,
		FileURL:        lp.FileURL,
		Status:         lp.Status,
		PublishDate:    lp.PublishDate,
		ClassID:        lp.ClassID,
		CreatedBy:      lp.CreatedBy,
		CreatedAt:      lp.CreatedAt.UTC(),
		UpdatedAt:      lp.UpdatedAt.UTC(),
	}
}

func (r lessonPlanRow) args() []interface{} {
	return []interface{}{
		r.Title, r.Description, r.Content, r.BibleReference, r.KeyPoints, r.Objectives, r.Duration,
		r.FileURL, r.Status, r.PublishDate, r.ClassID, r.CreatedBy, r.CreatedAt, r.UpdatedAt,
	}
}

func (r lessonPlanRow) toLessonPlan() lessonplan.LessonPlan {
	keyPoints := []string(r.KeyPoints)
	if keyPoints == nil {
		keyPoints = []string{}
	}
	return lessonplan.LessonPlan{
		ID:             r.ID,
		Title:          r.Title,
		Description:    r.Description,
		Content:        r.Content,
		BibleReference: r.BibleReference,
		KeyPoints:      keyPoints,
		Objectives:     r.Objectives,
		Duration:       r.Duration,
		FileURL:        r.FileURL,
		Status:         r.Status,
		PublishDate:    r.PublishDate,
		ClassID:        r.ClassID,
		CreatedBy:      r.CreatedBy,
		CreatedAt:      r.CreatedAt.UTC(),
		UpdatedAt:      r.UpdatedAt.UTC(),
	}
}

type materialRow struct {
	ID          int         `db:"id"`
	LessonID    int         `db:"lesson_id"`
	Title       string      `db:"title"`
	Description null.String `db:"description"`
	Type        string      `db:"type"`
	URL         string      `db:"url"`
	FileSize    null.Int    `db:"file_size"`
	Format      null.String `db:"format"`
	SortOrder   int         `db:"sort_order"`
	IsRequired  bool        `db:"is_required"`
	CreatedAt   time.Time   `db:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at"`
}

const materialColumns = `id, lesson_id, title, description, type, url, file_size, format, sort_order,
	is_required, created_at, updated_at`

func (r materialRow) toMaterial() lessonplan.Material {
	return lessonplan.Material{
		ID:          r.ID,
		LessonID:    r.LessonID,
		Title:       r.Title,
		Description: r.Description,
		Type:        r.Type,
		URL:         r.URL,
		FileSize:    r.FileSize,
		Format:      r.Format,
		SortOrder:   r.SortOrder,
		IsRequired:  r.IsRequired,
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
}

type lessonPlanRepository struct {
	baseRepository
}

var _ lessonplan.Repository = (*lessonPlanRepository)(nil) // interface compliance check

func NewLessonPlanRepository(exec core.DBExecutor) *lessonPlanRepository {
	return &lessonPlanRepository{baseRepository{exec: exec}}
}

func (repo *lessonPlanRepository) CreateLessonPlan(ctx context.Context, lp lessonplan.LessonPlan, exec ...core.DBExecutor) (lessonplan.LessonPlan, error) {
	query := fmt.Sprintf(
		"INSERT INTO lesson_plans (%s) VALUES (%s) RETURNING %s",
		strings.Join(lessonPlanWritable, ", "),
		strmangle.Placeholders(true, len(lessonPlanWritable), 1, 1),
		lessonPlanColumns,
	)
	var row lessonPlanRow
	if err := sqlx.GetContext(ctx, repo.getExec(exec), &row, query, toLessonPlanRow(lp).args()...); err != nil {
		return lessonplan.LessonPlan{}, translate(err, "inserting lesson plan", lessonPlanConstraints)
	}
	return row.toLessonPlan(), nil
}

func (repo *lessonPlanRepository) QueryLessonPlans(ctx context.Context, filter *lessonplan.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]lessonplan.LessonPlan, error) {
	var w where
	if filter != nil {
		if filter.ClassID != 0 {
			w.add("class_id = ?", filter.ClassID)
		}
		if filter.Status != "" {
			w.add("status = ?", filter.Status)
		}
	}

	query := "SELECT " + lessonPlanColumns + " FROM lesson_plans" + w.String() + orderBy(ordering, lessonPlanOrdering)
	var rows []lessonPlanRow
	if err := sqlx.SelectContext(ctx, repo.getExec(exec), &rows, rebind(query), w.args...); err != nil {
		return nil, translate(err, "querying lesson plans", nil)
	}
	plans := make([]lessonplan.LessonPlan, 0, len(rows))
	for _, r := range rows {
		plans = append(plans, r.toLessonPlan())
	}
	return plans, nil
}

func (repo *lessonPlanRepository) GetLessonPlanByID(ctx context.Context, id int, exec ...core.DBExecutor) (lessonplan.LessonPlan, error) {
	var row lessonPlanRow
	query := "SELECT " + lessonPlanColumns + " FROM lesson_plans WHERE id = $1"
	if err := sqlx.GetContext(ctx, repo.getExec(exec), &row, query, id); err != nil {
		return lessonplan.LessonPlan{}, rowError(err, "fetching lesson plan", lessonplan.ErrNotFound, nil)
	}
	return row.toLessonPlan(), nil
}

func (repo *lessonPlanRepository) UpdateLessonPlan(ctx context.Context, lp lessonplan.LessonPlan, exec ...core.DBExecutor) (lessonplan.LessonPlan, error) {
	query := fmt.Sprintf(
		"UPDATE lesson_plans SET %s WHERE id = $%d RETURNING %s",
		strmangle.SetParamNames(`"`, `"`, 1, lessonPlanWritable),
		len(lessonPlanWritable)+1,
		lessonPlanColumns,
	)
	args := append(toLessonPlanRow(lp).args(), lp.ID)

	var row lessonPlanRow
	if err := sqlx.GetContext(ctx, repo.getExec(exec), &row, query, args...); err != nil {
		return lessonplan.LessonPlan{}, rowError(err, "updating lesson plan", lessonplan.ErrNotFound, lessonPlanConstraints)
	}
	return row.toLessonPlan(), nil
}

func (repo *lessonPlanRepository) DeleteLessonPlan(ctx context.Context, id int, exec ...core.DBExecutor) error {
	res, err := repo.getExec(exec).ExecContext(ctx, "DELETE FROM lesson_plans WHERE id = $1", id)
	if err != nil {
		return translate(err, "deleting lesson plan", nil)
	}
	return affected(res, lessonplan.ErrNotFound)
}

func (repo *lessonPlanRepository) QueryMaterials(ctx context.Context, lessonID int, exec ...core.DBExecutor) ([]lessonplan.Material, error) {
	var rows []materialRow
	query := "SELECT " + materialColumns + " FROM lesson_materials WHERE lesson_id = $1 ORDER BY sort_order, id"
	if err := sqlx.SelectContext(ctx, repo.getExec(exec), &rows, query, lessonID); err != nil {
		return nil, translate(err, "querying materials", nil)
	}
	materials := make([]lessonplan.Material, 0, len(rows))
	for _, r := range rows {
		materials = append(materials, r.toMaterial())
	}
	return materials, nil
}

func (repo *lessonPlanRepository) NextSortOrder(ctx context.Context, lessonID int, exec ...core.DBExecutor) (int, error) {
	var next int
	query := "SELECT COALESCE(MAX(sort_order) + 1, 0) FROM lesson_materials WHERE lesson_id = $1"
	if err := sqlx.GetContext(ctx, repo.getExec(exec), &next, query, lessonID); err != nil {
		return 0, translate(err, "computing next sort order", nil)
	}
	return next, nil
}

func (repo *lessonPlanRepository) CreateMaterial(ctx context.Context, m lessonplan.Material, exec ...core.DBExecutor) (lessonplan.Material, error) {
	var row materialRow
	query := `
		INSERT INTO lesson_materials
			(lesson_id, title, description, type, url, file_size, format, sort_order, is_required, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11) RETURNING ` + materialColumns
	err := sqlx.GetContext(ctx, repo.getExec(exec), &row, query,
		m.LessonID, m.Title, m.Description, m.Type, m.URL, m.FileSize, m.Format, m.SortOrder, m.IsRequired,
		m.CreatedAt.UTC(), m.UpdatedAt.UTC())
	if err != nil {
		return lessonplan.Material{}, translate(err, "inserting material", map[string]error{
			"lesson_materials_lesson_id_fkey": lessonplan.ErrNotFound,
			"lesson_materials_type_check":     lessonplan.ErrInvalidMaterialType,
		})
	}
	return row.toMaterial(), nil
}
