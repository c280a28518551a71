package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/sundayschool/core"
	"github.com/trezcool/sundayschool/core/attendance"
	"github.com/trezcool/sundayschool/core/user"
)

type attendanceRow struct {
	ID        int       `db:"id"`
	StudentID int       `db:"student_id"`
	ClassID   int       `db:"class_id"`
	Date      time.Time `db:"date"`
	Status    string    `db:"status"`
	MarkedBy  int       `db:"marked_by"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`

	StudentName  null.String `db:"student_name"`
	StudentEmail null.String `db:"student_email"`
}

const attendanceColumns = "id, student_id, class_id, date, status, marked_by, created_at, updated_at"

var attendanceOrdering = map[string]string{
	"id":         "a.id",
	"date":       "a.date",
	"status":     "a.status",
	"created_at": "a.created_at",
}

func (r attendanceRow) toAttendance() attendance.Attendance {
	a := attendance.Attendance{
		ID:        r.ID,
		StudentID: r.StudentID,
		ClassID:   r.ClassID,
		Date:      r.Date.Format(attendance.DateLayout),
		Status:    r.Status,
		MarkedBy:  r.MarkedBy,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
	if r.StudentName.Valid {
		a.Student = &user.Summary{ID: r.StudentID, Name: r.StudentName.String, Email: r.StudentEmail.String}
	}
	return a
}

type attendanceRepository struct {
	baseRepository
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(exec core.DBExecutor) *attendanceRepository {
	return &attendanceRepository{baseRepository{exec: exec}}
}

func (repo *attendanceRepository) UpsertAttendance(ctx context.Context, a attendance.Attendance, exec ...core.DBExecutor) (attendance.Attendance, error) {
	var row attendanceRow
	query := `
		INSERT INTO attendances (student_id, class_id, date, status, marked_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT ON CONSTRAINT attendances_student_class_date_key
		DO UPDATE SET status = EXCLUDED.status, marked_by = EXCLUDED.marked_by, updated_at = EXCLUDED.updated_at
		RETURNING ` + attendanceColumns
	err := sqlx.GetContext(ctx, repo.getExec(exec), &row, query,
		a.StudentID, a.ClassID, a.Date, a.Status, a.MarkedBy, a.CreatedAt.UTC(), a.UpdatedAt.UTC())
	if err != nil {
		return attendance.Attendance{}, translate(err, "upserting attendance", map[string]error{
			"attendances_class_id_fkey": attendance.ErrInvalidClass,
		})
	}
	return row.toAttendance(), nil
}

func (repo *attendanceRepository) GetAttendance(ctx context.Context, studentID, classID int, date string, exec ...core.DBExecutor) (attendance.Attendance, error) {
	var row attendanceRow
	query := "SELECT " + attendanceColumns + " FROM attendances WHERE student_id = $1 AND class_id = $2 AND date = $3"
	if err := sqlx.GetContext(ctx, repo.getExec(exec), &row, query, studentID, classID, date); err != nil {
		return attendance.Attendance{}, rowError(err, "fetching attendance", attendance.ErrNotFound, nil)
	}
	return row.toAttendance(), nil
}

func (repo *attendanceRepository) QueryAttendances(ctx context.Context, filter *attendance.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]attendance.Attendance, error) {
	var w where
	if filter != nil {
		if filter.ClassID != 0 {
			w.add("a.class_id = ?", filter.ClassID)
		}
		if filter.StudentID != 0 {
			w.add("a.student_id = ?", filter.StudentID)
		}
		if filter.Date != "" {
			w.add("a.date = ?", filter.Date)
		}
		if filter.StudentIDs != nil {
			w.add("a.student_id = ANY(?)", pq.Array(filter.StudentIDs))
		}
	}

	query := `
		SELECT a.id, a.student_id, a.class_id, a.date, a.status, a.marked_by, a.created_at, a.updated_at,
			u.name AS student_name, u.email AS student_email
		FROM attendances a
		LEFT JOIN users u ON u.id = a.student_id` + w.String() + orderBy(ordering, attendanceOrdering)
	var rows []attendanceRow
	if err := sqlx.SelectContext(ctx, repo.getExec(exec), &rows, rebind(query), w.args...); err != nil {
		return nil, translate(err, "querying attendances", nil)
	}
	records := make([]attendance.Attendance, 0, len(rows))
	for _, r := range rows {
		records = append(records, r.toAttendance())
	}
	return records, nil
}
