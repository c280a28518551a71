package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/sundayschool/core"
	"github.com/trezcool/sundayschool/core/class"
	"github.com/trezcool/sundayschool/core/enrollment"
	"github.com/trezcool/sundayschool/core/user"
)

type enrollmentRow struct {
	ID              int         `db:"id"`
	StudentID       int         `db:"student_id"`
	ClassID         int         `db:"class_id"`
	EnrollmentDate  time.Time   `db:"enrollment_date"`
	Status          string      `db:"status"`
	AttendanceCount int         `db:"attendance_count"`
	Grade           null.String `db:"grade"`
	CreatedAt       time.Time   `db:"created_at"`
	UpdatedAt       time.Time   `db:"updated_at"`
}

// enrollmentJoinedRow adds the columns of the student and class summaries.
type enrollmentJoinedRow struct {
	enrollmentRow
	StudentName       null.String `db:"student_name"`
	StudentEmail      null.String `db:"student_email"`
	ClassName         null.String `db:"class_name"`
	ClassGradeLevel   null.String `db:"class_grade_level"`
	ClassAcademicYear null.String `db:"class_academic_year"`
}

const enrollmentColumns = "id, student_id, class_id, enrollment_date, status, attendance_count, grade, created_at, updated_at"

const enrollmentJoinedSelect = `
	SELECT e.id, e.student_id, e.class_id, e.enrollment_date, e.status, e.attendance_count, e.grade,
		e.created_at, e.updated_at,
		u.name AS student_name, u.email AS student_email,
		c.name AS class_name, c.grade_level AS class_grade_level, c.academic_year AS class_academic_year
	FROM class_enrollments e
	LEFT JOIN users u ON u.id = e.student_id
	LEFT JOIN classes c ON c.id = e.class_id`

var enrollmentOrdering = map[string]string{
	"id":              "e.id",
	"status":          "e.status",
	"enrollment_date": "e.enrollment_date",
	"created_at":      "e.created_at",
}

func (r enrollmentRow) toEnrollment() enrollment.Enrollment {
	return enrollment.Enrollment{
		ID:              r.ID,
		StudentID:       r.StudentID,
		ClassID:         r.ClassID,
		EnrollmentDate:  r.EnrollmentDate.UTC(),
		Status:          r.Status,
		AttendanceCount: r.AttendanceCount,
		Grade:           r.Grade,
		CreatedAt:       r.CreatedAt.UTC(),
		UpdatedAt:       r.UpdatedAt.UTC(),
	}
}

func (r enrollmentJoinedRow) toEnrollment() enrollment.Enrollment {
	enr := r.enrollmentRow.toEnrollment()
	if r.StudentName.Valid {
		enr.Student = &user.Summary{ID: r.StudentID, Name: r.StudentName.String, Email: r.StudentEmail.String}
	}
	if r.ClassName.Valid {
		enr.Class = &class.Summary{
			ID:           r.ClassID,
			Name:         r.ClassName.String,
			GradeLevel:   r.ClassGradeLevel.String,
			AcademicYear: r.ClassAcademicYear.String,
		}
	}
	return enr
}

type enrollmentRepository struct {
	baseRepository
}

var _ enrollment.Repository = (*enrollmentRepository)(nil) // interface compliance check

func NewEnrollmentRepository(exec core.DBExecutor) *enrollmentRepository {
	return &enrollmentRepository{baseRepository{exec: exec}}
}

func (repo *enrollmentRepository) CreateEnrollment(ctx context.Context, enr enrollment.Enrollment, exec ...core.DBExecutor) (enrollment.Enrollment, error) {
	var row enrollmentRow
	query := `
		INSERT INTO class_enrollments
			(student_id, class_id, enrollment_date, status, attendance_count, grade, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING ` + enrollmentColumns
	err := sqlx.GetContext(ctx, repo.getExec(exec), &row, query,
		enr.StudentID, enr.ClassID, enr.EnrollmentDate.UTC(), enr.Status, enr.AttendanceCount, enr.Grade,
		enr.CreatedAt.UTC(), enr.UpdatedAt.UTC())
	if err != nil {
		return enrollment.Enrollment{}, translate(err, "inserting enrollment", map[string]error{
			"class_enrollments_student_class_key": enrollment.ErrAlreadyEnrolled,
			"class_enrollments_student_id_fkey":   enrollment.ErrInvalidStudent,
			"class_enrollments_class_id_fkey":     enrollment.ErrInvalidClass,
		})
	}
	return row.toEnrollment(), nil
}

func (repo *enrollmentRepository) QueryEnrollments(ctx context.Context, filter *enrollment.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]enrollment.Enrollment, error) {
	var w where
	if filter != nil {
		if filter.ClassID != 0 {
			w.add("e.class_id = ?", filter.ClassID)
		}
		if filter.StudentID != 0 {
			w.add("e.student_id = ?", filter.StudentID)
		}
		if filter.Status != "" {
			w.add("e.status = ?", filter.Status)
		}
		if filter.StudentIDs != nil {
			w.add("e.student_id = ANY(?)", pq.Array(filter.StudentIDs))
		}
	}

	query := enrollmentJoinedSelect + w.String() + orderBy(ordering, enrollmentOrdering)
	var rows []enrollmentJoinedRow
	if err := sqlx.SelectContext(ctx, repo.getExec(exec), &rows, rebind(query), w.args...); err != nil {
		return nil, translate(err, "querying enrollments", nil)
	}
	enrs := make([]enrollment.Enrollment, 0, len(rows))
	for _, r := range rows {
		enrs = append(enrs, r.toEnrollment())
	}
	return enrs, nil
}

func (repo *enrollmentRepository) GetEnrollmentByID(ctx context.Context, id int, exec ...core.DBExecutor) (enrollment.Enrollment, error) {
	var row enrollmentJoinedRow
	if err := sqlx.GetContext(ctx, repo.getExec(exec), &row, enrollmentJoinedSelect+" WHERE e.id = $1", id); err != nil {
		return enrollment.Enrollment{}, rowError(err, "fetching enrollment", enrollment.ErrNotFound, nil)
	}
	return row.toEnrollment(), nil
}

func (repo *enrollmentRepository) GetEnrollmentForUpdate(ctx context.Context, id int, exec ...core.DBExecutor) (enrollment.Enrollment, error) {
	var row enrollmentRow
	query := "SELECT " + enrollmentColumns + " FROM class_enrollments WHERE id = $1 FOR UPDATE"
	if err := sqlx.GetContext(ctx, repo.getExec(exec), &row, query, id); err != nil {
		return enrollment.Enrollment{}, rowError(err, "locking enrollment", enrollment.ErrNotFound, nil)
	}
	return row.toEnrollment(), nil
}

func (repo *enrollmentRepository) GetEnrollmentByStudentAndClass(ctx context.Context, studentID, classID int, exec ...core.DBExecutor) (enrollment.Enrollment, error) {
	var row enrollmentRow
	query := "SELECT " + enrollmentColumns + " FROM class_enrollments WHERE student_id = $1 AND class_id = $2"
	if err := sqlx.GetContext(ctx, repo.getExec(exec), &row, query, studentID, classID); err != nil {
		return enrollment.Enrollment{}, rowError(err, "fetching enrollment", enrollment.ErrNotFound, nil)
	}
	return row.toEnrollment(), nil
}

func (repo *enrollmentRepository) UpdateEnrollment(ctx context.Context, enr enrollment.Enrollment, exec ...core.DBExecutor) (enrollment.Enrollment, error) {
	var row enrollmentRow
	query := `
		UPDATE class_enrollments SET status = $1, grade = $2, attendance_count = $3, updated_at = $4
		WHERE id = $5 RETURNING ` + enrollmentColumns
	err := sqlx.GetContext(ctx, repo.getExec(exec), &row, query,
		enr.Status, enr.Grade, enr.AttendanceCount, enr.UpdatedAt.UTC(), enr.ID)
	if err != nil {
		return enrollment.Enrollment{}, rowError(err, "updating enrollment", enrollment.ErrNotFound, nil)
	}
	return row.toEnrollment(), nil
}

func (repo *enrollmentRepository) DeleteEnrollment(ctx context.Context, id int, exec ...core.DBExecutor) error {
	res, err := repo.getExec(exec).ExecContext(ctx, "DELETE FROM class_enrollments WHERE id = $1", id)
	if err != nil {
		return translate(err, "deleting enrollment", nil)
	}
	return affected(res, enrollment.ErrNotFound)
}

func (repo *enrollmentRepository) CountActive(ctx context.Context, classID int, exec ...core.DBExecutor) (int, error) {
	var count int
	query := "SELECT COUNT(*) FROM class_enrollments WHERE class_id = $1 AND status = $2"
	if err := sqlx.GetContext(ctx, repo.getExec(exec), &count, query, classID, enrollment.StatusActive); err != nil {
		return 0, translate(err, "counting active enrollments", nil)
	}
	return count, nil
}

func (repo *enrollmentRepository) AdjustAttendanceCount(ctx context.Context, id, delta int, exec ...core.DBExecutor) error {
	res, err := repo.getExec(exec).ExecContext(ctx, `
		UPDATE class_enrollments SET attendance_count = GREATEST(attendance_count + $1, 0), updated_at = NOW()
		WHERE id = $2`, delta, id)
	if err != nil {
		return translate(err, "adjusting attendance count", nil)
	}
	return affected(res, enrollment.ErrNotFound)
}
