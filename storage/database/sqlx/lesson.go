package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/sundayschool/core"
	"github.com/trezcool/sundayschool/core/lesson"
)

type lessonRow struct {
	ID            int       `db:"id"`
	Title         string    `db:"title"`
	Description   string    `db:"description"`
	Scripture     string    `db:"scripture"`
	Objectives    string    `db:"objectives"`
	Materials     string    `db:"materials"`
	Content       string    `db:"content"`
	Activities    string    `db:"activities"`
	ClassID       int       `db:"class_id"`
	TeacherID     int       `db:"teacher_id"`
	ScheduledDate time.Time `db:"scheduled_date"`
	Duration      int       `db:"duration"`
	Status        string    `db:"status"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`

	ClassName   null.String `db:"class_name"`
	TeacherName null.String `db:"teacher_name"`
}

const lessonJoinedSelect = `
	SELECT l.id, l.title, l.description, l.scripture, l.objectives, l.materials, l.content, l.activities,
		l.class_id, l.teacher_id, l.scheduled_date, l.duration, l.status, l.created_at, l.updated_at,
		c.name AS class_name, u.name AS teacher_name
	FROM lessons l
	LEFT JOIN classes c ON c.id = l.class_id
	LEFT JOIN users u ON u.id = l.teacher_id`

var lessonOrdering = map[string]string{
	"id":             "l.id",
	"title":          "l.title",
	"status":         "l.status",
	"scheduled_date": "l.scheduled_date",
	"created_at":     "l.created_at",
}

var lessonConstraints = map[string]error{
	"lessons_class_id_fkey":   lesson.ErrInvalidClass,
	"lessons_teacher_id_fkey": lesson.ErrInvalidTeacher,
}

func (r lessonRow) toLesson() lesson.Lesson {
	return lesson.Lesson{
		ID:            r.ID,
		Title:         r.Title,
		Description:   r.Description,
		Scripture:     r.Scripture,
		Objectives:    r.Objectives,
		Materials:     r.Materials,
		Content:       r.Content,
		Activities:    r.Activities,
		ClassID:       r.ClassID,
		TeacherID:     r.TeacherID,
		ScheduledDate: r.ScheduledDate.UTC(),
		Duration:      r.Duration,
		Status:        r.Status,
		CreatedAt:     r.CreatedAt.UTC(),
		UpdatedAt:     r.UpdatedAt.UTC(),
		ClassName:     r.ClassName.String,
		TeacherName:   r.TeacherName.String,
	}
}

type lessonRepository struct {
	baseRepository
}

var _ lesson.Repository = (*lessonRepository)(nil) // interface compliance check

func NewLessonRepository(exec core.DBExecutor) *lessonRepository {
	return &lessonRepository{baseRepository{exec: exec}}
}

func (repo *lessonRepository) CreateLesson(ctx context.Context, l lesson.Lesson, exec ...core.DBExecutor) (lesson.Lesson, error) {
	e := repo.getExec(exec)
	var id int
	query := `
		INSERT INTO lessons (title, description, scripture, objectives, materials, content, activities,
			class_id, teacher_id, scheduled_date, duration, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14) RETURNING id`
	err := sqlx.GetContext(ctx, e, &id, query,
		l.Title, l.Description, l.Scripture, l.Objectives, l.Materials, l.Content, l.Activities,
		l.ClassID, l.TeacherID, l.ScheduledDate.UTC(), l.Duration, l.Status, l.CreatedAt.UTC(), l.UpdatedAt.UTC())
	if err != nil {
		return lesson.Lesson{}, translate(err, "inserting lesson", lessonConstraints)
	}
	return repo.GetLessonByID(ctx, id, e)
}

func (repo *lessonRepository) QueryLessons(ctx context.Context, filter *lesson.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]lesson.Lesson, error) {
	var w where
	if filter != nil {
		if filter.ClassID != 0 {
			w.add("l.class_id = ?", filter.ClassID)
		}
		if filter.TeacherID != 0 {
			w.add("l.teacher_id = ?", filter.TeacherID)
		}
		if filter.Status != "" {
			w.add("l.status = ?", filter.Status)
		}
	}

	query := lessonJoinedSelect + w.String() + orderBy(ordering, lessonOrdering)
	var rows []lessonRow
	if err := sqlx.SelectContext(ctx, repo.getExec(exec), &rows, rebind(query), w.args...); err != nil {
		return nil, translate(err, "querying lessons", nil)
	}
	lessons := make([]lesson.Lesson, 0, len(rows))
	for _, r := range rows {
		lessons = append(lessons, r.toLesson())
	}
	return lessons, nil
}

func (repo *lessonRepository) GetLessonByID(ctx context.Context, id int, exec ...core.DBExecutor) (lesson.Lesson, error) {
	var row lessonRow
	if err := sqlx.GetContext(ctx, repo.getExec(exec), &row, lessonJoinedSelect+" WHERE l.id = $1", id); err != nil {
		return lesson.Lesson{}, rowError(err, "fetching lesson", lesson.ErrNotFound, nil)
	}
	return row.toLesson(), nil
}

func (repo *lessonRepository) UpdateLesson(ctx context.Context, l lesson.Lesson, exec ...core.DBExecutor) (lesson.Lesson, error) {
	e := repo.getExec(exec)
	res, err := e.ExecContext(ctx, `
		UPDATE lessons SET title = $1, description = $2, scripture = $3, objectives = $4, materials = $5,
			content = $6, activities = $7, class_id = $8, teacher_id = $9, scheduled_date = $10,
			duration = $11, status = $12, updated_at = $13
		WHERE id = $14`,
		l.Title, l.Description, l.Scripture, l.Objectives, l.Materials,
		l.Content, l.Activities, l.ClassID, l.TeacherID, l.ScheduledDate.UTC(),
		l.Duration, l.Status, l.UpdatedAt.UTC(), l.ID)
	if err != nil {
		return lesson.Lesson{}, translate(err, "updating lesson", lessonConstraints)
	}
	if err = affected(res, lesson.ErrNotFound); err != nil {
		return lesson.Lesson{}, err
	}
	return repo.GetLessonByID(ctx, l.ID, e)
}

func (repo *lessonRepository) DeleteLesson(ctx context.Context, id int, exec ...core.DBExecutor) error {
	res, err := repo.getExec(exec).ExecContext(ctx, "DELETE FROM lessons WHERE id = $1", id)
	if err != nil {
		return translate(err, "deleting lesson", nil)
	}
	return affected(res, lesson.ErrNotFound)
}
