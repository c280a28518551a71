package dummydb

import (
	"context"
	"strings"

	"github.com/trezcool/sundayschool/core"
	"github.com/trezcool/sundayschool/core/attendance"
)

type attendanceRepository struct {
	db *DB
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db *DB) *attendanceRepository {
	return &attendanceRepository{db: db}
}

var attendanceFields = map[string]func(a, b attendance.Attendance) int{
	"id":         func(a, b attendance.Attendance) int { return a.ID - b.ID },
	"date":       func(a, b attendance.Attendance) int { return strings.Compare(a.Date, b.Date) },
	"status":     func(a, b attendance.Attendance) int { return strings.Compare(a.Status, b.Status) },
	"created_at": func(a, b attendance.Attendance) int { return a.CreatedAt.Compare(b.CreatedAt) },
}

func (repo *attendanceRepository) UpsertAttendance(_ context.Context, a attendance.Attendance, _ ...core.DBExecutor) (attendance.Attendance, error) {
	repo.db.attendance.Lock()
	defer repo.db.attendance.Unlock()

	for id, row := range repo.db.attendance.rows {
		if row.StudentID == a.StudentID && row.ClassID == a.ClassID && row.Date == a.Date {
			row.Status = a.Status
			row.MarkedBy = a.MarkedBy
			row.UpdatedAt = a.UpdatedAt
			repo.db.attendance.rows[id] = row
			return row, nil
		}
	}
	a.ID = repo.db.attendance.nextID()
	a.Student = nil
	repo.db.attendance.rows[a.ID] = a
	return a, nil
}

func (repo *attendanceRepository) GetAttendance(_ context.Context, studentID, classID int, date string, _ ...core.DBExecutor) (attendance.Attendance, error) {
	repo.db.attendance.RLock()
	defer repo.db.attendance.RUnlock()

	for _, row := range repo.db.attendance.rows {
		if row.StudentID == studentID && row.ClassID == classID && row.Date == date {
			return row, nil
		}
	}
	return attendance.Attendance{}, attendance.ErrNotFound
}

func (repo *attendanceRepository) QueryAttendances(_ context.Context, filter *attendance.QueryFilter, ordering []core.DBOrdering, _ ...core.DBExecutor) ([]attendance.Attendance, error) {
	rows := repo.db.attendance.snapshot()

	if filter != nil {
		if filter.ClassID != 0 {
			rows = filterRows(rows, func(a attendance.Attendance) bool { return a.ClassID == filter.ClassID })
		}
		if filter.StudentID != 0 {
			rows = filterRows(rows, func(a attendance.Attendance) bool { return a.StudentID == filter.StudentID })
		}
		if filter.Date != "" {
			rows = filterRows(rows, func(a attendance.Attendance) bool { return a.Date == filter.Date })
		}
		if filter.StudentIDs != nil {
			rows = filterRows(rows, func(a attendance.Attendance) bool { return core.ContainsInt(filter.StudentIDs, a.StudentID) })
		}
	}

	sortRows(rows, ordering, attendanceFields)
	for i := range rows {
		rows[i].Student = repo.db.userSummary(rows[i].StudentID)
	}
	return rows, nil
}
