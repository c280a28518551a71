package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/sundayschool/core/authz"
	"github.com/trezcool/sundayschool/core/enrollment"
)

var enrollmentOrderingColumns = []string{"id", "status", "enrollment_date", "created_at"}

type enrollmentApi struct {
	svc      enrollment.ServiceInterface
	validate *validator.Validate
}

func registerEnrollmentAPI(g *echo.Group, auth []echo.MiddlewareFunc, opts *Options) {
	api := enrollmentApi{svc: opts.EnrollmentSvc, validate: opts.Validate}

	eg := g.Group("/enrollments", auth...)
	eg.GET("", api.query, authorize(authz.Enrollments, authz.Read))
	eg.POST("", api.create, authorize(authz.Enrollments, authz.Create))

	// detail endpoints
	eg.GET("/:id", api.retrieve, authorize(authz.Enrollments, authz.Read))
	eg.PATCH("/:id/status", api.updateStatus, authorize(authz.EnrollmentStatus, authz.Update))
	eg.DELETE("/:id", api.destroy, authorize(authz.Enrollments, authz.Delete))
}

// Handlers

func (api *enrollmentApi) query(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}

	filter := new(enrollment.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []enrollment.Enrollment{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx, enrollmentOrderingColumns...)

	enrollments, err := api.svc.Query(ctx.Request().Context(), usr, filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying enrollments")
	}
	if enrollments == nil {
		enrollments = []enrollment.Enrollment{}
	}
	return ctx.JSON(http.StatusOK, enrollments)
}

func (api *enrollmentApi) create(ctx echo.Context) error {
	var data enrollment.NewEnrollment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewEnrollment")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	enr, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating enrollment")
	}
	return ctx.JSON(http.StatusCreated, enr)
}

func (api *enrollmentApi) retrieve(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	id, err := paramID(ctx, "id")
	if err != nil {
		return enrollment.ErrNotFound
	}

	enr, err := api.svc.GetByID(ctx.Request().Context(), usr, id)
	if err != nil {
		return errors.Wrap(err, "finding enrollment by ID")
	}
	return ctx.JSON(http.StatusOK, enr)
}

func (api *enrollmentApi) updateStatus(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return enrollment.ErrNotFound
	}

	var data enrollment.UpdateStatus
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateStatus")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	enr, err := api.svc.UpdateStatus(ctx.Request().Context(), id, data)
	if err != nil {
		return errors.Wrap(err, "updating enrollment status")
	}
	return ctx.JSON(http.StatusOK, enr)
}

func (api *enrollmentApi) destroy(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return enrollment.ErrNotFound
	}
	if err := api.svc.Delete(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "deleting enrollment")
	}
	return ctx.NoContent(http.StatusNoContent)
}
