package lessonplan

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
	ErrNotFound            = core.NewNotFoundError("Lesson plan not found")
	ErrInvalidClass        = core.NewValidationError(errors.New("Invalid class ID"))
	ErrInvalidMaterialType = core.NewValidationError(errors.New("Invalid material type"))
	ErrUpdateForbidden     = core.NewForbiddenError("Not authorized to update this lesson plan")
	ErrDeleteForbidden     = core.NewForbiddenError("Not authorized to delete this lesson plan")
	ErrMaterialForbidden   = core.NewForbiddenError("Not authorized to add materials to this lesson plan")
)

type (
	Repository interface {
		CreateLessonPlan(ctx context.Context, lp LessonPlan, exec ...core.DBExecutor) (LessonPlan, error)
		QueryLessonPlans(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]LessonPlan, error)
		GetLessonPlanByID(ctx context.Context, id int, exec ...core.DBExecutor) (LessonPlan, error)
		UpdateLessonPlan(ctx context.Context, lp LessonPlan, exec ...core.DBExecutor) (LessonPlan, error)
		DeleteLessonPlan(ctx context.Context, id int, exec ...core.DBExecutor) error

		// QueryMaterials returns the materials of a plan ordered by sort order.
		QueryMaterials(ctx context.Context, lessonID int, exec ...core.DBExecutor) ([]Material, error)
		// NextSortOrder returns one past the highest sort order of the plan, 0 when it has none.
		NextSortOrder(ctx context.Context, lessonID int, exec ...core.DBExecutor) (int, error)
		CreateMaterial(ctx context.Context, m Material, exec ...core.DBExecutor) (Material, error)
	}

	ServiceInterface interface {
		Create(ctx context.Context, actor user.User, nlp NewLessonPlan) (LessonPlan, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]LessonPlan, error)
		GetByID(ctx context.Context, id int) (LessonPlan, error)
		Update(ctx context.Context, actor user.User, id int, ulp UpdateLessonPlan) (LessonPlan, error)
		Delete(ctx context.Context, actor user.User, id int) error
		ListMaterials(ctx context.Context, id int) ([]Material, error)
		AddMaterial(ctx context.Context, actor user.User, id int, nm NewMaterial) (Material, error)
	}

	Service struct {
		db        core.Transactor
		repo      Repository
		classRepo class.Repository
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(db core.Transactor, repo Repository, classRepo class.Repository) *Service {
	return &Service{db: db, repo: repo, classRepo: classRepo}
}

func (svc *Service) checkClass(ctx context.Context, classID int) error {
	if _, err := svc.classRepo.GetClassByID(ctx, classID); err != nil {
		if errors.Cause(err) == class.ErrNotFound {
			return ErrInvalidClass
		}
		return err
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, actor user.User, nlp NewLessonPlan) (LessonPlan, error) {
	if err := svc.checkClass(ctx, nlp.ClassID); err != nil {
		return LessonPlan{}, err
	}

	now := NowFunc().UTC()
	return svc.repo.CreateLessonPlan(ctx, LessonPlan{
		Title:          nlp.Title,
		Description:    nlp.Description,
		Content:        nlp.Content,
		BibleReference: nlp.BibleReference,
		KeyPoints:      nlp.KeyPoints,
		Objectives:     nlp.Objectives,
		Duration:       nlp.Duration,
		FileURL:        nlp.FileURL,
		Status:         nlp.Status,
		PublishDate:    nlp.PublishDate,
		ClassID:        nlp.ClassID,
		CreatedBy:      actor.ID,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]LessonPlan, error) {
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "created_at"}}
	}
	return svc.repo.QueryLessonPlans(ctx, filter, ordering)
}

// GetByID returns the plan with its materials.
func (svc *Service) GetByID(ctx context.Context, id int) (LessonPlan, error) {
	lp, err := svc.repo.GetLessonPlanByID(ctx, id)
	if err != nil {
		return LessonPlan{}, err
	}
	if lp.Materials, err = svc.repo.QueryMaterials(ctx, id); err != nil {
		return LessonPlan{}, err
	}
	return lp, nil
}

func (svc *Service) Update(ctx context.Context, actor user.User, id int, ulp UpdateLessonPlan) (LessonPlan, error) {
	lp, err := svc.repo.GetLessonPlanByID(ctx, id)
	if err != nil {
		return LessonPlan{}, err
	}
	if !authz.CanModify(actor, lp.CreatedBy) {
		return LessonPlan{}, ErrUpdateForbidden
	}
	if ulp.ClassID != 0 && ulp.ClassID != lp.ClassID {
		if err = svc.checkClass(ctx, ulp.ClassID); err != nil {
			return LessonPlan{}, err
		}
	}

	ulp.apply(&lp)
	lp.UpdatedAt = NowFunc().UTC()
	return svc.repo.UpdateLessonPlan(ctx, lp)
}

func (svc *Service) Delete(ctx context.Context, actor user.User, id int) error {
	lp, err := svc.repo.GetLessonPlanByID(ctx, id)
	if err != nil {
		return err
	}
	if !authz.CanModify(actor, lp.CreatedBy) {
		return ErrDeleteForbidden
	}
	return svc.repo.DeleteLessonPlan(ctx, id)
}

func (svc *Service) ListMaterials(ctx context.Context, id int) ([]Material, error) {
	if _, err := svc.repo.GetLessonPlanByID(ctx, id); err != nil {
		return nil, err
	}
	return svc.repo.QueryMaterials(ctx, id)
}

func (svc *Service) AddMaterial(ctx context.Context, actor user.User, id int, nm NewMaterial) (Material, error) {
	var m Material
	err := svc.db.InTx(ctx, func(exec core.DBExecutor) error {
		lp, err := svc.repo.GetLessonPlanByID(ctx, id, exec)
		if err != nil {
			return err
		}
		if !authz.CanModify(actor, lp.CreatedBy) {
			return ErrMaterialForbidden
		}

		var sortOrder int
		if nm.SortOrder != nil {
			sortOrder = *nm.SortOrder
		} else if sortOrder, err = svc.repo.NextSortOrder(ctx, id, exec); err != nil {
			return err
		}

		now := NowFunc().UTC()
		m, err = svc.repo.CreateMaterial(ctx, Material{
			LessonID:    id,
			Title:       nm.Title,
			Description: nm.Description,
			Type:        nm.Type,
			URL:         nm.URL,
			FileSize:    nm.FileSize,
			Format:      nm.Format,
			SortOrder:   sortOrder,
			IsRequired:  nm.IsRequired,
			CreatedAt:   now,
			UpdatedAt:   now,
		}, exec)
		return err
	})
	if err != nil {
		return Material{}, err
	}
	return m, nil
}
