package sqlxrepos

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/volatiletech/null/v8"
	"github.com/volatiletech/strmangle"

	"github.com/trezcool/sundayschool/core"
	"github.com/trezcool/sundayschool/core/class"
	"github.com/trezcool/sundayschool/core/user"
)

type classRow struct {
	ID                int         `db:"id"`
	Name              string      `db:"name"`
	GradeLevel        string      `db:"grade_level"`
	Description       null.String `db:"description"`
	AcademicYear      string      `db:"academic_year"`
	Semester          null.String `db:"semester"`
	MaxCapacity       int         `db:"max_capacity"`
	CurrentEnrollment int         `db:"current_enrollment"`
	ScheduleDay       string      `db:"schedule_day"`
	ScheduleTime      string      `db:"schedule_time"`
	Location          null.String `db:"location"`
	IsActive          bool        `db:"is_active"`
	CreatedAt         time.Time   `db:"created_at"`
	UpdatedAt         time.Time   `db:"updated_at"`
}

const classColumns = `id, name, grade_level, description, academic_year, semester, max_capacity,
	current_enrollment, schedule_day, schedule_time, location, is_active, created_at, updated_at`

// classWritable never includes current_enrollment: only the counter statements below write it.
var classWritable = []string{
	"name", "grade_level", "description", "academic_year", "semester", "max_capacity",
	"schedule_day", "schedule_time", "location", "is_active", "created_at", "updated_at",
}

var classOrdering = map[string]string{
	"id":            "id",
	"name":          "name",
	"grade_level":   "grade_level",
	"academic_year": "academic_year",
	"created_at":    "created_at",
}

var classConstraints = map[string]error{
	"classes_current_enrollment_check": class.ErrCapacityBelowEnrollment,
}

func (r classRow) args() []interface{} {
	return []interface{}{
		r.Name, r.GradeLevel, r.Description, r.AcademicYear, r.Semester, r.MaxCapacity,
		r.ScheduleDay, r.ScheduleTime, r.Location, r.IsActive, r.CreatedAt, r.UpdatedAt,
	}
}

func toClassRow(cls class.Class) classRow {
	return classRow{
		ID:           cls.ID,
		Name:         cls.Name,
		GradeLevel:   cls.GradeLevel,
		Description:  cls.Description,
		AcademicYear: cls.AcademicYear,
		Semester:     cls.Semester,
		MaxCapacity:  cls.MaxCapacity,
		ScheduleDay:  cls.ScheduleDay,
		ScheduleTime: cls.ScheduleTime,
		Location:     cls.Location,
		IsActive:     cls.IsActive,
		CreatedAt:    cls.CreatedAt.UTC(),
		UpdatedAt:    cls.UpdatedAt.UTC(),
	}
}

func (r classRow) toClass() class.Class {
	return class.Class{
		ID:                r.ID,
		Name:              r.Name,
		GradeLevel:        r.GradeLevel,
		Description:       r.Description,
		AcademicYear:      r.AcademicYear,
		Semester:          r.Semester,
		MaxCapacity:       r.MaxCapacity,
		CurrentEnrollment: r.CurrentEnrollment,
		ScheduleDay:       r.ScheduleDay,
		ScheduleTime:      r.ScheduleTime,
		Location:          r.Location,
		IsActive:          r.IsActive,
		CreatedAt:         r.CreatedAt.UTC(),
		UpdatedAt:         r.UpdatedAt.UTC(),
	}
}

type assignmentRow struct {
	ID           int       `db:"id"`
	UserID       int       `db:"user_id"`
	ClassID      int       `db:"class_id"`
	Role         string    `db:"role"`
	IsPrimary    bool      `db:"is_primary"`
	AssignedDate time.Time `db:"assigned_date"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

const assignmentColumns = "id, user_id, class_id, role, is_primary, assigned_date, created_at, updated_at"

func (r assignmentRow) toAssignment() class.Assignment {
	return class.Assignment{
		ID:           r.ID,
		UserID:       r.UserID,
		ClassID:      r.ClassID,
		Role:         r.Role,
		IsPrimary:    r.IsPrimary,
		AssignedDate: r.AssignedDate.UTC(),
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
	}
}

type classRepository struct {
	baseRepository
}

var _ class.Repository = (*classRepository)(nil) // interface compliance check

func NewClassRepository(exec core.DBExecutor) *classRepository {
	return &classRepository{baseRepository{exec: exec}}
}

func (repo *classRepository) CreateClass(ctx context.Context, cls class.Class, exec ...core.DBExecutor) (class.Class, error) {
	query := fmt.Sprintf(
		"INSERT INTO classes (%s) VALUES (%s) RETURNING %s",
		strings.Join(classWritable, ", "),
		strmangle.Placeholders(true, len(classWritable), 1, 1),
		classColumns,
	)
	var row classRow
	if err := sqlx.GetContext(ctx, repo.getExec(exec), &row, query, toClassRow(cls).args()...); err != nil {
		return class.Class{}, translate(err, "inserting class", classConstraints)
	}
	return row.toClass(), nil
}

func (repo *classRepository) QueryClasses(ctx context.Context, filter *class.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]class.Class, error) {
	var w where
	if filter != nil {
		if active := filter.Active(); active != nil {
			w.add("is_active = ?", *active)
		}
		if filter.AcademicYear != "" {
			w.add("academic_year = ?", filter.AcademicYear)
		}
		if filter.GradeLevel != "" {
			w.add("grade_level = ?", filter.GradeLevel)
		}
	}

	query := "SELECT " + classColumns + " FROM classes" + w.String() + orderBy(ordering, classOrdering)
	var rows []classRow
	if err := sqlx.SelectContext(ctx, repo.getExec(exec), &rows, rebind(query), w.args...); err != nil {
		return nil, translate(err, "querying classes", nil)
	}
	classes := make([]class.Class, 0, len(rows))
	for _, r := range rows {
		classes = append(classes, r.toClass())
	}
	return classes, nil
}

func (repo *classRepository) getClass(ctx context.Context, id int, suffix string, exec []core.DBExecutor) (class.Class, error) {
	var row classRow
	query := "SELECT " + classColumns + " FROM classes WHERE id = $1" + suffix
	if err := sqlx.GetContext(ctx, repo.getExec(exec), &row, query, id); err != nil {
		return class.Class{}, rowError(err, "fetching class", class.ErrNotFound, nil)
	}
	return row.toClass(), nil
}

func (repo *classRepository) GetClassByID(ctx context.Context, id int, exec ...core.DBExecutor) (class.Class, error) {
	return repo.getClass(ctx, id, "", exec)
}

func (repo *classRepository) GetClassForUpdate(ctx context.Context, id int, exec ...core.DBExecutor) (class.Class, error) {
	return repo.getClass(ctx, id, " FOR UPDATE", exec)
}

func (repo *classRepository) UpdateClass(ctx context.Context, cls class.Class, exec ...core.DBExecutor) (class.Class, error) {
	query := fmt.Sprintf(
		"UPDATE classes SET %s WHERE id = $%d RETURNING %s",
		strmangle.SetParamNames(`"`, `"`, 1, classWritable),
		len(classWritable)+1,
		classColumns,
	)
	args := append(toClassRow(cls).args(), cls.ID)

	var row classRow
	if err := sqlx.GetContext(ctx, repo.getExec(exec), &row, query, args...); err != nil {
		return class.Class{}, rowError(err, "updating class", class.ErrNotFound, classConstraints)
	}
	return row.toClass(), nil
}

func (repo *classRepository) DeleteClass(ctx context.Context, id int, exec ...core.DBExecutor) error {
	res, err := repo.getExec(exec).ExecContext(ctx, "DELETE FROM classes WHERE id = $1", id)
	if err != nil {
		return translate(err, "deleting class", nil)
	}
	return affected(res, class.ErrNotFound)
}

// IncrementEnrollment takes a seat only while one is left, in a single statement.
func (repo *classRepository) IncrementEnrollment(ctx context.Context, id int, exec ...core.DBExecutor) error {
	e := repo.getExec(exec)
	res, err := e.ExecContext(ctx, `
		UPDATE classes SET current_enrollment = current_enrollment + 1, updated_at = NOW()
		WHERE id = $1 AND current_enrollment < max_capacity`, id)
	if err != nil {
		return translate(err, "incrementing enrollment", map[string]error{"classes_current_enrollment_check": class.ErrFull})
	}
	if err = affected(res, class.ErrFull); err != class.ErrFull {
		return err
	}
	// no row updated: tell a missing class from a full one
	if _, err = repo.getClass(ctx, id, "", []core.DBExecutor{e}); err != nil {
		return err
	}
	return class.ErrFull
}

func (repo *classRepository) DecrementEnrollment(ctx context.Context, id int, exec ...core.DBExecutor) error {
	res, err := repo.getExec(exec).ExecContext(ctx, `
		UPDATE classes SET current_enrollment = GREATEST(current_enrollment - 1, 0), updated_at = NOW()
		WHERE id = $1`, id)
	if err != nil {
		return translate(err, "decrementing enrollment", nil)
	}
	return affected(res, class.ErrNotFound)
}

func (repo *classRepository) SetEnrollment(ctx context.Context, id, count int, exec ...core.DBExecutor) error {
	res, err := repo.getExec(exec).ExecContext(ctx,
		"UPDATE classes SET current_enrollment = $1, updated_at = NOW() WHERE id = $2", count, id)
	if err != nil {
		return translate(err, "setting enrollment", classConstraints)
	}
	return affected(res, class.ErrNotFound)
}

func (repo *classRepository) GetAssignment(ctx context.Context, userID, classID int, exec ...core.DBExecutor) (class.Assignment, error) {
	var row assignmentRow
	query := "SELECT " + assignmentColumns + " FROM class_assignments WHERE user_id = $1 AND class_id = $2"
	if err := sqlx.GetContext(ctx, repo.getExec(exec), &row, query, userID, classID); err != nil {
		return class.Assignment{}, rowError(err, "fetching assignment", class.ErrAssignmentNotFound, nil)
	}
	return row.toAssignment(), nil
}

func (repo *classRepository) CreateAssignment(ctx context.Context, asgmt class.Assignment, exec ...core.DBExecutor) (class.Assignment, error) {
	var row assignmentRow
	query := `
		INSERT INTO class_assignments (user_id, class_id, role, is_primary, assigned_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING ` + assignmentColumns
	err := sqlx.GetContext(ctx, repo.getExec(exec), &row, query,
		asgmt.UserID, asgmt.ClassID, asgmt.Role, asgmt.IsPrimary,
		asgmt.AssignedDate.UTC(), asgmt.CreatedAt.UTC(), asgmt.UpdatedAt.UTC())
	if err != nil {
		return class.Assignment{}, translate(err, "inserting assignment", map[string]error{
			"class_assignments_user_class_key": class.ErrAssignmentExists,
		})
	}
	return row.toAssignment(), nil
}

func (repo *classRepository) QueryTeachers(ctx context.Context, classID int, exec ...core.DBExecutor) ([]class.AssignedTeacher, error) {
	var rows []struct {
		ID           int       `db:"id"`
		Name         string    `db:"name"`
		Email        string    `db:"email"`
		IsPrimary    bool      `db:"is_primary"`
		AssignedDate time.Time `db:"assigned_date"`
	}
	query := `
		SELECT u.id, u.name, u.email, ca.is_primary, ca.assigned_date
		FROM class_assignments ca
		JOIN users u ON u.id = ca.user_id
		WHERE ca.class_id = $1 AND ca.role = $2
		ORDER BY ca.is_primary DESC, u.name ASC`
	if err := sqlx.SelectContext(ctx, repo.getExec(exec), &rows, query, classID, class.AssignmentRoleTeacher); err != nil {
		return nil, translate(err, "querying teachers", nil)
	}

	teachers := make([]class.AssignedTeacher, 0, len(rows))
	for _, r := range rows {
		teachers = append(teachers, class.AssignedTeacher{
			Summary:      user.Summary{ID: r.ID, Name: r.Name, Email: r.Email},
			IsPrimary:    r.IsPrimary,
			AssignedDate: r.AssignedDate.UTC(),
		})
	}
	return teachers, nil
}
