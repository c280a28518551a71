package dummydb

import (
	"context"
	"strings"

	"github.com/trezcool/sundayschool/core"
	"github.com/trezcool/sundayschool/core/enrollment"
)

type enrollmentRepository struct {
	db *DB
}

var _ enrollment.Repository = (*enrollmentRepository)(nil) // interface compliance check

func NewEnrollmentRepository(db *DB) *enrollmentRepository {
	return &enrollmentRepository{db: db}
}

var enrollmentFields = map[string]func(a, b enrollment.Enrollment) int{
	"id":              func(a, b enrollment.Enrollment) int { return a.ID - b.ID },
	"status":          func(a, b enrollment.Enrollment) int { return strings.Compare(a.Status, b.Status) },
	"enrollment_date": func(a, b enrollment.Enrollment) int { return a.EnrollmentDate.Compare(b.EnrollmentDate) },
	"created_at":      func(a, b enrollment.Enrollment) int { return a.CreatedAt.Compare(b.CreatedAt) },
}

// embed fills the student and class summaries, as the SQL joins do.
func (repo *enrollmentRepository) embed(enr enrollment.Enrollment) enrollment.Enrollment {
	enr.Student = repo.db.userSummary(enr.StudentID)
	if cls, ok := repo.db.class.get(enr.ClassID); ok {
		enr.Class = cls.Summary()
	}
	return enr
}

func (repo *enrollmentRepository) CreateEnrollment(_ context.Context, enr enrollment.Enrollment, _ ...core.DBExecutor) (enrollment.Enrollment, error) {
	repo.db.enrollment.Lock()
	defer repo.db.enrollment.Unlock()

	for _, e := range repo.db.enrollment.rows {
		if e.StudentID == enr.StudentID && e.ClassID == enr.ClassID {
			return enrollment.Enrollment{}, enrollment.ErrAlreadyEnrolled
		}
	}
	enr.ID = repo.db.enrollment.nextID()
	enr.Student, enr.Class = nil, nil
	repo.db.enrollment.rows[enr.ID] = enr
	return enr, nil
}

func (repo *enrollmentRepository) QueryEnrollments(_ context.Context, filter *enrollment.QueryFilter, ordering []core.DBOrdering, _ ...core.DBExecutor) ([]enrollment.Enrollment, error) {
	enrs := repo.db.enrollment.snapshot()

	if filter != nil {
		if filter.ClassID != 0 {
			enrs = filterRows(enrs, func(e enrollment.Enrollment) bool { return e.ClassID == filter.ClassID })
		}
		if filter.StudentID != 0 {
			enrs = filterRows(enrs, func(e enrollment.Enrollment) bool { return e.StudentID == filter.StudentID })
		}
		if filter.Status != "" {
			enrs = filterRows(enrs, func(e enrollment.Enrollment) bool { return e.Status == filter.Status })
		}
		if filter.StudentIDs != nil {
			enrs = filterRows(enrs, func(e enrollment.Enrollment) bool { return core.ContainsInt(filter.StudentIDs, e.StudentID) })
		}
	}

	sortRows(enrs, ordering, enrollmentFields)
	for i := range enrs {
		enrs[i] = repo.embed(enrs[i])
	}
	return enrs, nil
}

func (repo *enrollmentRepository) GetEnrollmentByID(_ context.Context, id int, _ ...core.DBExecutor) (enrollment.Enrollment, error) {
	if enr, ok := repo.db.enrollment.get(id); ok {
		return repo.embed(enr), nil
	}
	return enrollment.Enrollment{}, enrollment.ErrNotFound
}

func (repo *enrollmentRepository) GetEnrollmentForUpdate(_ context.Context, id int, _ ...core.DBExecutor) (enrollment.Enrollment, error) {
	if enr, ok := repo.db.enrollment.get(id); ok {
		return enr, nil
	}
	return enrollment.Enrollment{}, enrollment.ErrNotFound
}

func (repo *enrollmentRepository) GetEnrollmentByStudentAndClass(_ context.Context, studentID, classID int, _ ...core.DBExecutor) (enrollment.Enrollment, error) {
	repo.db.enrollment.RLock()
	defer repo.db.enrollment.RUnlock()

	for _, e := range repo.db.enrollment.rows {
		if e.StudentID == studentID && e.ClassID == classID {
			return e, nil
		}
	}
	return enrollment.Enrollment{}, enrollment.ErrNotFound
}

func (repo *enrollmentRepository) UpdateEnrollment(_ context.Context, enr enrollment.Enrollment, _ ...core.DBExecutor) (enrollment.Enrollment, error) {
	repo.db.enrollment.Lock()
	defer repo.db.enrollment.Unlock()

	orig, ok := repo.db.enrollment.rows[enr.ID]
	if !ok {
		return enrollment.Enrollment{}, enrollment.ErrNotFound
	}
	orig.Status = enr.Status
	orig.Grade = enr.Grade
	orig.AttendanceCount = enr.AttendanceCount
	orig.UpdatedAt = enr.UpdatedAt
	repo.db.enrollment.rows[enr.ID] = orig
	return orig, nil
}

func (repo *enrollmentRepository) DeleteEnrollment(_ context.Context, id int, _ ...core.DBExecutor) error {
	repo.db.enrollment.Lock()
	defer repo.db.enrollment.Unlock()

	if _, ok := repo.db.enrollment.rows[id]; !ok {
		return enrollment.ErrNotFound
	}
	delete(repo.db.enrollment.rows, id)
	return nil
}

func (repo *enrollmentRepository) CountActive(_ context.Context, classID int, _ ...core.DBExecutor) (int, error) {
	repo.db.enrollment.RLock()
	defer repo.db.enrollment.RUnlock()

	var count int
	for _, e := range repo.db.enrollment.rows {
		if e.ClassID == classID && e.IsActive() {
			count++
		}
	}
	return count, nil
}

func (repo *enrollmentRepository) AdjustAttendanceCount(_ context.Context, id, delta int, _ ...core.DBExecutor) error {
	repo.db.enrollment.Lock()
	defer repo.db.enrollment.Unlock()

	enr, ok := repo.db.enrollment.rows[id]
	if !ok {
		return enrollment.ErrNotFound
	}
	enr.AttendanceCount += delta
	if enr.AttendanceCount < 0 {
		enr.AttendanceCount = 0
	}
	repo.db.enrollment.rows[id] = enr
	return nil
}
