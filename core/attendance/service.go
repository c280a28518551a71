package attendance

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/sundayschool/core"
	"github.com/trezcool/sundayschool/core/class"
	"github.com/trezcool/sundayschool/core/enrollment"
	"github.com/trezcool/sundayschool/core/user"
)

var (
	// errors
	ErrNotFound     = core.NewNotFoundError("Attendance not found")
	ErrInvalidClass = core.NewValidationError(errors.New("Invalid class ID"))
)

func notEnrolledError(studentID int) error {
	return core.NewValidationError(errors.Errorf("Student %d is not actively enrolled in this class", studentID))
}

type (
	Repository interface {
		// UpsertAttendance inserts or updates the record of (StudentID, ClassID, Date).
		UpsertAttendance(ctx context.Context, a Attendance, exec ...core.DBExecutor) (Attendance, error)
		GetAttendance(ctx context.Context, studentID, classID int, date string, exec ...core.DBExecutor) (Attendance, error)
		// QueryAttendances embeds the student summaries.
		QueryAttendances(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Attendance, error)
	}

	ServiceInterface interface {
		Mark(ctx context.Context, actor user.User, ma MarkAttendance) ([]Attendance, error)
		Query(ctx context.Context, actor user.User, filter *QueryFilter, ordering []core.DBOrdering) ([]Attendance, error)
	}

	Service struct {
		db             core.Transactor
		repo           Repository
		classRepo      class.Repository
		enrollmentRepo enrollment.Repository
		family         enrollment.Family
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(
	db core.Transactor,
	repo Repository,
	classRepo class.Repository,
	enrollmentRepo enrollment.Repository,
	family enrollment.Family,
) *Service {
	return &Service{db: db, repo: repo, classRepo: classRepo, enrollmentRepo: enrollmentRepo, family: family}
}

// Mark upserts one record per student and keeps the enrollments' attendance counts in step,
// in a single transaction. Every student must hold an active enrollment in the class.
func (svc *Service) Mark(ctx context.Context, actor user.User, ma MarkAttendance) ([]Attendance, error) {
	if _, err := svc.classRepo.GetClassByID(ctx, ma.ClassID); err != nil {
		if errors.Cause(err) == class.ErrNotFound {
			return nil, ErrInvalidClass
		}
		return nil, err
	}

	records := make([]Attendance, 0, len(ma.Records))
	err := svc.db.InTx(ctx, func(exec core.DBExecutor) error {
		// check every student before writing anything
		enrollments := make([]enrollment.Enrollment, len(ma.Records))
		for i, rec := range ma.Records {
			enr, err := svc.enrollmentRepo.GetEnrollmentByStudentAndClass(ctx, rec.StudentID, ma.ClassID, exec)
			if err != nil {
				if errors.Cause(err) == enrollment.ErrNotFound {
					return notEnrolledError(rec.StudentID)
				}
				return err
			}
			if !enr.IsActive() {
				return notEnrolledError(rec.StudentID)
			}
			enrollments[i] = enr
		}

		now := NowFunc().UTC()
		for i, rec := range ma.Records {
			var prev string
			existing, err := svc.repo.GetAttendance(ctx, rec.StudentID, ma.ClassID, ma.Date, exec)
			switch errors.Cause(err) {
			case nil:
				prev = existing.Status
			case ErrNotFound:
			default:
				return err
			}

			a, err := svc.repo.UpsertAttendance(ctx, Attendance{
				StudentID: rec.StudentID,
				ClassID:   ma.ClassID,
				Date:      ma.Date,
				Status:    rec.Status,
				MarkedBy:  actor.ID,
				CreatedAt: now,
				UpdatedAt: now,
			}, exec)
			if err != nil {
				return err
			}
			if delta := PresenceDelta(prev, rec.Status); delta != 0 {
				if err = svc.enrollmentRepo.AdjustAttendanceCount(ctx, enrollments[i].ID, delta, exec); err != nil {
					return err
				}
			}
			records = append(records, a)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Query returns attendance rows narrowed to the students actor may see.
func (svc *Service) Query(ctx context.Context, actor user.User, filter *QueryFilter, ordering []core.DBOrdering) ([]Attendance, error) {
	if filter == nil {
		filter = new(QueryFilter)
	}
	ids, all, err := enrollment.StudentScope(ctx, svc.family, actor)
	if err != nil {
		return nil, err
	}
	if !all {
		if len(ids) == 0 {
			return []Attendance{}, nil
		}
		if actor.IsStudent() {
			filter.StudentID = actor.ID
		} else {
			filter.StudentIDs = ids
		}
	}

	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "date"}}
	}
	return svc.repo.QueryAttendances(ctx, filter, ordering)
}

// ParseDate parses an attendance date.
func ParseDate(date string) (time.Time, error) {
	return time.Parse(DateLayout, date)
}
