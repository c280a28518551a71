package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/sundayschool/core/authz"
	"github.com/trezcool/sundayschool/core/lesson"
)

var lessonOrderingColumns = []string{"id", "title", "status", "scheduled_date", "created_at"}

type lessonApi struct {
	svc      lesson.ServiceInterface
	validate *validator.Validate
}

type LessonStatusResponse struct {
	Message string `json:"message"`
	Status  string `json:"status"`
}

func registerLessonAPI(g *echo.Group, auth []echo.MiddlewareFunc, opts *Options) {
	api := lessonApi{svc: opts.LessonSvc, validate: opts.Validate}

	lg := g.Group("/lessons", auth...)
	lg.GET("", api.query, authorize(authz.Lessons, authz.Read))
	lg.POST("", api.create, authorize(authz.Lessons, authz.Create))

	// detail endpoints
	lg.GET("/:id", api.retrieve, authorize(authz.Lessons, authz.Read))
	lg.PUT("/:id", api.update, authorize(authz.Lessons, authz.Update))
	lg.DELETE("/:id", api.destroy, authorize(authz.Lessons, authz.Delete))
	lg.PATCH("/:id/status", api.setStatus, authorize(authz.LessonStatus, authz.Update))
}

// Handlers

func (api *lessonApi) query(ctx echo.Context) error {
	filter := new(lesson.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []lesson.Lesson{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx, lessonOrderingColumns...)

	lessons, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying lessons")
	}
	if lessons == nil {
		lessons = []lesson.Lesson{}
	}
	return ctx.JSON(http.StatusOK, lessons)
}

func (api *lessonApi) create(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}

	var data lesson.LessonInput
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LessonInput")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	l, err := api.svc.Create(ctx.Request().Context(), usr, data)
	if err != nil {
		return errors.Wrap(err, "creating lesson")
	}
	return ctx.JSON(http.StatusCreated, l)
}

func (api *lessonApi) retrieve(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return lesson.ErrNotFound
	}
	l, err := api.svc.GetByID(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "finding lesson by ID")
	}
	return ctx.JSON(http.StatusOK, l)
}

func (api *lessonApi) update(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	id, err := paramID(ctx, "id")
	if err != nil {
		return lesson.ErrNotFound
	}

	var data lesson.LessonInput
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LessonInput")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	l, err := api.svc.Update(ctx.Request().Context(), usr, id, data)
	if err != nil {
		return errors.Wrap(err, "updating lesson")
	}
	return ctx.JSON(http.StatusOK, l)
}

func (api *lessonApi) destroy(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	id, err := paramID(ctx, "id")
	if err != nil {
		return lesson.ErrNotFound
	}
	if err := api.svc.Delete(ctx.Request().Context(), usr, id); err != nil {
		return errors.Wrap(err, "deleting lesson")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *lessonApi) setStatus(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	id, err := paramID(ctx, "id")
	if err != nil {
		return lesson.ErrNotFound
	}

	var data lesson.UpdateStatus
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateStatus")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	l, err := api.svc.SetStatus(ctx.Request().Context(), usr, id, data.Status)
	if err != nil {
		return errors.Wrap(err, "setting lesson status")
	}
	return ctx.JSON(http.StatusOK, LessonStatusResponse{Message: "Lesson status updated successfully", Status: l.Status})
}
