package class

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/sundayschool/core"
	"github.com/trezcool/sundayschool/core/user"
)

var (
	// errors
	ErrNotFound                = core.NewNotFoundError("Class not found")
	ErrAssignmentNotFound      = core.NewNotFoundError("Class assignment not found")
	ErrFull                    = core.NewConflictError("Class is at maximum capacity")
	ErrInactive                = core.NewValidationError(errors.New("Class is not active"))
	ErrMissingIsActive         = core.NewValidationError(errors.New("Missing isActive field"))
	ErrCapacityBelowEnrollment = core.NewValidationError(
		errors.New("Invalid fields"),
		core.FieldError{Field: "maxCapacity", Error: "cannot be less than the current enrollment"},
	)
	ErrAssignmentExists = core.NewConflictError("User is already assigned to this class")

	errNotTeacher = "User is not a teacher"
)

type (
	Repository interface {
		CreateClass(ctx context.Context, cls Class, exec ...core.DBExecutor) (Class, error)
		QueryClasses(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Class, error)
		GetClassByID(ctx context.Context, id int, exec ...core.DBExecutor) (Class, error)
		// GetClassForUpdate locks the class row until the end of the transaction.
		GetClassForUpdate(ctx context.Context, id int, exec ...core.DBExecutor) (Class, error)
		// UpdateClass never writes CurrentEnrollment.
		UpdateClass(ctx context.Context, cls Class, exec ...core.DBExecutor) (Class, error)
		DeleteClass(ctx context.Context, id int, exec ...core.DBExecutor) error

		// IncrementEnrollment adds one to the enrollment counter only while it stays within
		// the capacity, in a single statement. Returns ErrFull otherwise.
		IncrementEnrollment(ctx context.Context, id int, exec ...core.DBExecutor) error
		// DecrementEnrollment subtracts one from the enrollment counter, floored at 0.
		DecrementEnrollment(ctx context.Context, id int, exec ...core.DBExecutor) error
		SetEnrollment(ctx context.Context, id, count int, exec ...core.DBExecutor) error

		GetAssignment(ctx context.Context, userID, classID int, exec ...core.DBExecutor) (Assignment, error)
		CreateAssignment(ctx context.Context, asgmt Assignment, exec ...core.DBExecutor) (Assignment, error)
		QueryTeachers(ctx context.Context, classID int, exec ...core.DBExecutor) ([]AssignedTeacher, error)
	}

	ServiceInterface interface {
		Create(ctx context.Context, nc NewClass) (Class, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Class, error)
		GetByID(ctx context.Context, id int) (Class, error)
		Update(ctx context.Context, cls Class, uc UpdateClass) (Class, error)
		SetStatus(ctx context.Context, cls Class, active bool) (Class, error)
		Delete(ctx context.Context, id int) error
		ListTeachers(ctx context.Context, classID int) ([]AssignedTeacher, error)
		AssignTeachers(ctx context.Context, classID int, teacherIDs []int) ([]AssignResult, error)
	}

	Service struct {
		repo     Repository
		userRepo user.Repository
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(repo Repository, userRepo user.Repository) *Service {
	return &Service{repo: repo, userRepo: userRepo}
}

func (svc *Service) Create(ctx context.Context, nc NewClass) (Class, error) {
	now := NowFunc().UTC()
	cls := Class{
		Name:         nc.Name,
		GradeLevel:   nc.GradeLevel,
		Description:  nc.Description,
		AcademicYear: nc.AcademicYear,
		Semester:     nc.Semester,
		MaxCapacity:  nc.MaxCapacity,
		ScheduleDay:  nc.ScheduleDay,
		ScheduleTime: nc.ScheduleTime,
		Location:     nc.Location,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if nc.IsActive != nil {
		cls.IsActive = *nc.IsActive
	}
	return svc.repo.CreateClass(ctx, cls)
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Class, error) {
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{
			{Field: "grade_level", Ascending: true},
			{Field: "name", Ascending: true},
		}
	}
	return svc.repo.QueryClasses(ctx, filter, ordering)
}

func (svc *Service) GetByID(ctx context.Context, id int) (Class, error) {
	return svc.repo.GetClassByID(ctx, id)
}

func (svc *Service) Update(ctx context.Context, cls Class, uc UpdateClass) (Class, error) {
	cls.Name = uc.Name
	cls.GradeLevel = uc.GradeLevel
	cls.Description = uc.Description
	cls.AcademicYear = uc.AcademicYear
	cls.Semester = uc.Semester
	cls.MaxCapacity = uc.MaxCapacity
	cls.ScheduleDay = uc.ScheduleDay
	cls.ScheduleTime = uc.ScheduleTime
	cls.Location = uc.Location
	if uc.IsActive != nil {
		cls.IsActive = *uc.IsActive
	}
	cls.UpdatedAt = NowFunc().UTC()
	return svc.repo.UpdateClass(ctx, cls)
}

func (svc *Service) SetStatus(ctx context.Context, cls Class, active bool) (Class, error) {
	cls.IsActive = active
	cls.UpdatedAt = NowFunc().UTC()
	return svc.repo.UpdateClass(ctx, cls)
}

func (svc *Service) Delete(ctx context.Context, id int) error {
	return svc.repo.DeleteClass(ctx, id)
}

func (svc *Service) ListTeachers(ctx context.Context, classID int) ([]AssignedTeacher, error) {
	if _, err := svc.repo.GetClassByID(ctx, classID); err != nil {
		return nil, err
	}
	return svc.repo.QueryTeachers(ctx, classID)
}

// AssignTeachers finds or creates a TEACHER assignment per id.
// Ids that are not teachers are reported per item instead of failing the batch.
func (svc *Service) AssignTeachers(ctx context.Context, classID int, teacherIDs []int) ([]AssignResult, error) {
	if _, err := svc.repo.GetClassByID(ctx, classID); err != nil {
		return nil, err
	}

	results := make([]AssignResult, 0, len(teacherIDs))
	for _, id := range teacherIDs {
		res := AssignResult{TeacherID: id}

		usr, err := svc.userRepo.GetUserByID(ctx, id)
		if err != nil {
			if errors.Cause(err) != user.ErrNotFound {
				return nil, err
			}
			res.Error = user.ErrNotFound.Error()
			results = append(results, res)
			continue
		}
		if !usr.IsTeacher() {
			res.Error = errNotTeacher
			results = append(results, res)
			continue
		}

		_, err = svc.repo.GetAssignment(ctx, id, classID)
		switch errors.Cause(err) {
		case nil: // already assigned
		case ErrAssignmentNotFound:
			now := NowFunc().UTC()
			_, err = svc.repo.CreateAssignment(ctx, Assignment{
				UserID:       id,
				ClassID:      classID,
				Role:         AssignmentRoleTeacher,
				AssignedDate: now,
				CreatedAt:    now,
				UpdatedAt:    now,
			})
			if err != nil && errors.Cause(err) != ErrAssignmentExists {
				return nil, err
			}
			res.Created = err == nil
		default:
			return nil, err
		}
		results = append(results, res)
	}
	return results, nil
}
