package lesson

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/sundayschool/core"
	"github.com/trezcool/sundayschool/core/authz"
	"github.com/trezcool/sundayschool/core/class"
	"github.com/trezcool/sundayschool/core/user"
)

var (
	// errors
	ErrNotFound        = core.NewNotFoundError("Lesson not found")
	ErrInvalidClass    = core.NewValidationError(errors.New("Invalid class ID"))
	ErrInvalidTeacher  = core.NewValidationError(errors.New("Invalid teacher ID"))
	ErrInvalidStatus   = core.NewValidationError(errors.New("Invalid status value"))
	ErrUpdateForbidden = core.NewForbiddenError("You do not have permission to update this lesson")
	ErrDeleteForbidden = core.NewForbiddenError("You do not have permission to delete this lesson")
)

type (
	Repository interface {
		CreateLesson(ctx context.Context, l Lesson, exec ...core.DBExecutor) (Lesson, error)
		// QueryLessons embeds the class and teacher names.
		QueryLessons(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Lesson, error)
		GetLessonByID(ctx context.Context, id int, exec ...core.DBExecutor) (Lesson, error)
		UpdateLesson(ctx context.Context, l Lesson, exec ...core.DBExecutor) (Lesson, error)
		DeleteLesson(ctx context.Context, id int, exec ...core.DBExecutor) error
	}

	ServiceInterface interface {
		Create(ctx context.Context, actor user.User, in LessonInput) (Lesson, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Lesson, error)
		GetByID(ctx context.Context, id int) (Lesson, error)
		Update(ctx context.Context, actor user.User, id int, in LessonInput) (Lesson, error)
		SetStatus(ctx context.Context, actor user.User, id int, status string) (Lesson, error)
		Delete(ctx context.Context, actor user.User, id int) error
	}

	Service struct {
		repo      Repository
		classRepo class.Repository
		userRepo  user.Repository
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(repo Repository, classRepo class.Repository, userRepo user.Repository) *Service {
	return &Service{repo: repo, classRepo: classRepo, userRepo: userRepo}
}

func (svc *Service) checkRefs(ctx context.Context, classID, teacherID int) error {
	if _, err := svc.classRepo.GetClassByID(ctx, classID); err != nil {
		if errors.Cause(err) == class.ErrNotFound {
			return ErrInvalidClass
		}
		return err
	}
	teacher, err := svc.userRepo.GetUserByID(ctx, teacherID)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return ErrInvalidTeacher
		}
		return err
	}
	if !teacher.IsTeacher() && !teacher.IsAdmin() {
		return ErrInvalidTeacher
	}
	return nil
}

func (svc *Service) fill(l *Lesson, in LessonInput) {
	l.Title = in.Title
	l.Description = in.Description
	l.Scripture = in.Scripture
	l.Objectives = in.Objectives
	l.Materials = in.Materials
	l.Content = in.Content
	l.Activities = in.Activities
	l.ClassID = in.ClassID
	l.ScheduledDate = in.ScheduledDate.UTC()
	if in.TeacherID != 0 {
		l.TeacherID = in.TeacherID
	}
	if in.Duration != 0 {
		l.Duration = in.Duration
	}
	if in.Status != "" {
		l.Status = in.Status
	}
}

// Create schedules a lesson. The teacher defaults to the actor.
func (svc *Service) Create(ctx context.Context, actor user.User, in LessonInput) (Lesson, error) {
	now := NowFunc().UTC()
	l := Lesson{
		TeacherID: actor.ID,
		Duration:  DefaultDuration,
		Status:    StatusDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}
	svc.fill(&l, in)
	if err := svc.checkRefs(ctx, l.ClassID, l.TeacherID); err != nil {
		return Lesson{}, err
	}
	return svc.repo.CreateLesson(ctx, l)
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Lesson, error) {
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "scheduled_date"}}
	}
	return svc.repo.QueryLessons(ctx, filter, ordering)
}

func (svc *Service) GetByID(ctx context.Context, id int) (Lesson, error) {
	return svc.repo.GetLessonByID(ctx, id)
}

func (svc *Service) Update(ctx context.Context, actor user.User, id int, in LessonInput) (Lesson, error) {
	l, err := svc.repo.GetLessonByID(ctx, id)
	if err != nil {
		return Lesson{}, err
	}
	if !authz.CanModify(actor, l.TeacherID) {
		return Lesson{}, ErrUpdateForbidden
	}

	svc.fill(&l, in)
	if err = svc.checkRefs(ctx, l.ClassID, l.TeacherID); err != nil {
		return Lesson{}, err
	}
	l.UpdatedAt = NowFunc().UTC()
	return svc.repo.UpdateLesson(ctx, l)
}

func (svc *Service) SetStatus(ctx context.Context, actor user.User, id int, status string) (Lesson, error) {
	l, err := svc.repo.GetLessonByID(ctx, id)
	if err != nil {
		return Lesson{}, err
	}
	if !authz.CanModify(actor, l.TeacherID) {
		return Lesson{}, ErrUpdateForbidden
	}
	l.Status = status
	l.UpdatedAt = NowFunc().UTC()
	return svc.repo.UpdateLesson(ctx, l)
}

func (svc *Service) Delete(ctx context.Context, actor user.User, id int) error {
	if !actor.IsAdmin() {
		return ErrDeleteForbidden
	}
	if _, err := svc.repo.GetLessonByID(ctx, id); err != nil {
		return err
	}
	return svc.repo.DeleteLesson(ctx, id)
}
