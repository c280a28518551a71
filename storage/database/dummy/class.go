package dummydb

import (
	"context"
	"strings"

	"github.com/trezcool/sundayschool/core"
	"github.com/trezcool/sundayschool/core/class"
)

type classRepository struct {
	db *DB
}

var _ class.Repository = (*classRepository)(nil) // interface compliance check

func NewClassRepository(db *DB) *classRepository {
	return &classRepository{db: db}
}

var classFields = map[string]func(a, b class.Class) int{
	"id":            func(a, b class.Class) int { return a.ID - b.ID },
	"name":          func(a, b class.Class) int { return strings.Compare(a.Name, b.Name) },
	"grade_level":   func(a, b class.Class) int { return strings.Compare(a.GradeLevel, b.GradeLevel) },
	"academic_year": func(a, b class.Class) int { return strings.Compare(a.AcademicYear, b.AcademicYear) },
	"created_at":    func(a, b class.Class) int { return a.CreatedAt.Compare(b.CreatedAt) },
}

func (repo *classRepository) CreateClass(_ context.Context, cls class.Class, _ ...core.DBExecutor) (class.Class, error) {
	repo.db.class.Lock()
	defer repo.db.class.Unlock()

	cls.ID = repo.db.class.nextID()
	cls.CurrentEnrollment = 0
	repo.db.class.rows[cls.ID] = cls
	return cls, nil
}

func (repo *classRepository) QueryClasses(_ context.Context, filter *class.QueryFilter, ordering []core.DBOrdering, _ ...core.DBExecutor) ([]class.Class, error) {
	classes := repo.db.class.snapshot()

	if filter != nil {
		if active := filter.Active(); active != nil {
			classes = filterRows(classes, func(c class.Class) bool { return c.IsActive == *active })
		}
		if filter.AcademicYear != "" {
			classes = filterRows(classes, func(c class.Class) bool { return c.AcademicYear == filter.AcademicYear })
		}
		if filter.GradeLevel != "" {
			classes = filterRows(classes, func(c class.Class) bool { return c.GradeLevel == filter.GradeLevel })
		}
	}

	sortRows(classes, ordering, classFields)
	return classes, nil
}

func (repo *classRepository) GetClassByID(_ context.Context, id int, _ ...core.DBExecutor) (class.Class, error) {
	if cls, ok := repo.db.class.get(id); ok {
		return cls, nil
	}
	return class.Class{}, class.ErrNotFound
}

func (repo *classRepository) GetClassForUpdate(ctx context.Context, id int, exec ...core.DBExecutor) (class.Class, error) {
	return repo.GetClassByID(ctx, id, exec...)
}

func (repo *classRepository) UpdateClass(_ context.Context, cls class.Class, _ ...core.DBExecutor) (class.Class, error) {
	repo.db.class.Lock()
	defer repo.db.class.Unlock()

	orig, ok := repo.db.class.rows[cls.ID]
	if !ok {
		return class.Class{}, class.ErrNotFound
	}
	cls.CurrentEnrollment = orig.CurrentEnrollment
	if cls.MaxCapacity < cls.CurrentEnrollment {
		return class.Class{}, class.ErrCapacityBelowEnrollment
	}
	repo.db.class.rows[cls.ID] = cls
	return cls, nil
}

func (repo *classRepository) DeleteClass(_ context.Context, id int, _ ...core.DBExecutor) error {
	repo.db.class.Lock()
	if _, ok := repo.db.class.rows[id]; !ok {
		repo.db.class.Unlock()
		return class.ErrNotFound
	}
	delete(repo.db.class.rows, id)
	repo.db.class.Unlock()

	repo.db.cascadeClass(id)
	return nil
}

func (repo *classRepository) IncrementEnrollment(_ context.Context, id int, _ ...core.DBExecutor) error {
	repo.db.class.Lock()
	defer repo.db.class.Unlock()

	cls, ok := repo.db.class.rows[id]
	if !ok {
		return class.ErrNotFound
	}
	if cls.CurrentEnrollment >= cls.MaxCapacity {
		return class.ErrFull
	}
	cls.CurrentEnrollment++
	repo.db.class.rows[id] = cls
	return nil
}

func (repo *classRepository) DecrementEnrollment(_ context.Context, id int, _ ...core.DBExecutor) error {
	repo.db.class.Lock()
	defer repo.db.class.Unlock()

	cls, ok := repo.db.class.rows[id]
	if !ok {
		return class.ErrNotFound
	}
	if cls.CurrentEnrollment > 0 {
		cls.CurrentEnrollment--
	}
	repo.db.class.rows[id] = cls
	return nil
}

func (repo *classRepository) SetEnrollment(_ context.Context, id, count int, _ ...core.DBExecutor) error {
	repo.db.class.Lock()
	defer repo.db.class.Unlock()

	cls, ok := repo.db.class.rows[id]
	if !ok {
		return class.ErrNotFound
	}
	cls.CurrentEnrollment = count
	repo.db.class.rows[id] = cls
	return nil
}

func (repo *classRepository) GetAssignment(_ context.Context, userID, classID int, _ ...core.DBExecutor) (class.Assignment, error) {
	repo.db.assignment.RLock()
	defer repo.db.assignment.RUnlock()

	for _, a := range repo.db.assignment.rows {
		if a.UserID == userID && a.ClassID == classID {
			return a, nil
		}
	}
	return class.Assignment{}, class.ErrAssignmentNotFound
}

func (repo *classRepository) CreateAssignment(_ context.Context, asgmt class.Assignment, _ ...core.DBExecutor) (class.Assignment, error) {
	repo.db.assignment.Lock()
	defer repo.db.assignment.Unlock()

	for _, a := range repo.db.assignment.rows {
		if a.UserID == asgmt.UserID && a.ClassID == asgmt.ClassID {
			return class.Assignment{}, class.ErrAssignmentExists
		}
	}
	asgmt.ID = repo.db.assignment.nextID()
	repo.db.assignment.rows[asgmt.ID] = asgmt
	return asgmt, nil
}

func (repo *classRepository) QueryTeachers(_ context.Context, classID int, _ ...core.DBExecutor) ([]class.AssignedTeacher, error) {
	assignments := filterRows(repo.db.assignment.snapshot(), func(a class.Assignment) bool {
		return a.ClassID == classID && a.Role == class.AssignmentRoleTeacher
	})

	teachers := make([]class.AssignedTeacher, 0, len(assignments))
	for _, a := range assignments {
		summary := repo.db.userSummary(a.UserID)
		if summary == nil {
			continue
		}
		teachers = append(teachers, class.AssignedTeacher{
			Summary:      *summary,
			IsPrimary:    a.IsPrimary,
			AssignedDate: a.AssignedDate,
		})
	}
	return teachers, nil
}
