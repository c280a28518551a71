package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/sundayschool/core/authz"
	"github.com/trezcool/sundayschool/core/lessonplan"
)

var lessonPlanOrderingColumns = []string{"id", "title", "status", "duration", "created_at", "updated_at"}

type lessonPlanApi struct {
	svc      lessonplan.ServiceInterface
	validate *validator.Validate
}

type MessageResponse struct {
	Message string `json:"message"`
}

func registerLessonPlanAPI(g *echo.Group, auth []echo.MiddlewareFunc, opts *Options) {
	api := lessonPlanApi{svc: opts.LessonPlanSvc, validate: opts.Validate}

	lg := g.Group("/lesson-plans", auth...)
	lg.GET("", api.query, authorize(authz.LessonPlans, authz.Read))
	lg.POST("", api.create, authorize(authz.LessonPlans, authz.Create))

	// detail endpoints
	lg.GET("/:id", api.retrieve, authorize(authz.LessonPlans, authz.Read))
	lg.PUT("/:id", api.update, authorize(authz.LessonPlans, authz.Update))
	lg.DELETE("/:id", api.destroy, authorize(authz.LessonPlans, authz.Delete))
	lg.GET("/:id/materials", api.materials, authorize(authz.LessonPlans, authz.Read))
	lg.POST("/:id/materials", api.addMaterial, authorize(authz.LessonPlans, authz.Update))
}

// Handlers

func (api *lessonPlanApi) query(ctx echo.Context) error {
	filter := new(lessonplan.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []lessonplan.LessonPlan{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx, lessonPlanOrderingColumns...)

	plans, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying lesson plans")
	}
	if plans == nil {
		plans = []lessonplan.LessonPlan{}
	}
	return ctx.JSON(http.StatusOK, plans)
}

func (api *lessonPlanApi) create(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}

	var data lessonplan.NewLessonPlan
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewLessonPlan")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	lp, err := api.svc.Create(ctx.Request().Context(), usr, data)
	if err != nil {
		return errors.Wrap(err, "creating lesson plan")
	}
	return ctx.JSON(http.StatusCreated, lp)
}

func (api *lessonPlanApi) retrieve(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return lessonplan.ErrNotFound
	}
	lp, err := api.svc.GetByID(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "finding lesson plan by ID")
	}
	return ctx.JSON(http.StatusOK, lp)
}

func (api *lessonPlanApi) update(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	id, err := paramID(ctx, "id")
	if err != nil {
		return lessonplan.ErrNotFound
	}

	var data lessonplan.UpdateLessonPlan
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateLessonPlan")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	lp, err := api.svc.Update(ctx.Request().Context(), usr, id, data)
	if err != nil {
		return errors.Wrap(err, "updating lesson plan")
	}
	return ctx.JSON(http.StatusOK, lp)
}

func (api *lessonPlanApi) destroy(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	id, err := paramID(ctx, "id")
	if err != nil {
		return lessonplan.ErrNotFound
	}
	if err := api.svc.Delete(ctx.Request().Context(), usr, id); err != nil {
		return errors.Wrap(err, "deleting lesson plan")
	}
	return ctx.JSON(http.StatusOK, MessageResponse{Message: "Lesson plan deleted successfully"})
}

func (api *lessonPlanApi) materials(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return lessonplan.ErrNotFound
	}
	materials, err := api.svc.ListMaterials(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "querying lesson plan materials")
	}
	if materials == nil {
		materials = []lessonplan.Material{}
	}
	return ctx.JSON(http.StatusOK, materials)
}

func (api *lessonPlanApi) addMaterial(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	id, err := paramID(ctx, "id")
	if err != nil {
		return lessonplan.ErrNotFound
	}

	var data lessonplan.NewMaterial
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewMaterial")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	m, err := api.svc.AddMaterial(ctx.Request().Context(), usr, id, data)
	if err != nil {
		return errors.Wrap(err, "adding material")
	}
	return ctx.JSON(http.StatusCreated, m)
}
