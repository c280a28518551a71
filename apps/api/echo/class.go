package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/sundayschool/core/authz"
	"github.com/trezcool/sundayschool/core/class"
	"github.com/trezcool/sundayschool/core/enrollment"
)

var classOrderingColumns = []string{"id", "name", "grade_level", "academic_year", "created_at"}

type classApi struct {
	svc           class.ServiceInterface
	enrollmentSvc enrollment.ServiceInterface
	validate      *validator.Validate
}

func registerClassAPI(g *echo.Group, auth []echo.MiddlewareFunc, opts *Options) {
	api := classApi{
		svc:           opts.ClassSvc,
		enrollmentSvc: opts.EnrollmentSvc,
		validate:      opts.Validate,
	}

	cg := g.Group("/classes", auth...)
	cg.GET("", api.query, authorize(authz.Classes, authz.Read))
	cg.POST("", api.create, authorize(authz.Classes, authz.Create))

	// detail endpoints
	cg.GET("/:id", api.retrieve, authorize(authz.Classes, authz.Read))
	cg.PUT("/:id", api.update, authorize(authz.Classes, authz.Update))
	cg.DELETE("/:id", api.destroy, authorize(authz.Classes, authz.Delete))
	cg.PATCH("/:id/status", api.setStatus, authorize(authz.ClassStatus, authz.Update))

	cg.GET("/:id/students", api.roster, authorize(authz.ClassStudents, authz.Read))
	cg.POST("/:id/students", api.enrollStudents, authorize(authz.ClassStudents, authz.Create))
	cg.GET("/:id/teachers", api.teachers, authorize(authz.ClassTeachers, authz.Read))
	cg.POST("/:id/teachers", api.assignTeachers, authorize(authz.ClassTeachers, authz.Create))
}

// Handlers

func (api *classApi) query(ctx echo.Context) error {
	filter := new(class.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []class.Class{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx, classOrderingColumns...)

	classes, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying classes")
	}
	if classes == nil {
		classes = []class.Class{}
	}
	return ctx.JSON(http.StatusOK, classes)
}

func (api *classApi) create(ctx echo.Context) error {
	var data class.NewClass
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewClass")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	cls, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating class")
	}
	return ctx.JSON(http.StatusCreated, cls)
}

func (api *classApi) getObject(ctx echo.Context) (class.Class, error) {
	id, err := paramID(ctx, "id")
	if err != nil {
		return class.Class{}, class.ErrNotFound
	}
	cls, err := api.svc.GetByID(ctx.Request().Context(), id)
	if err != nil {
		return class.Class{}, errors.Wrap(err, "finding class by ID")
	}
	return cls, nil
}

func (api *classApi) retrieve(ctx echo.Context) error {
	cls, err := api.getObject(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, cls)
}

func (api *classApi) update(ctx echo.Context) error {
	cls, err := api.getObject(ctx)
	if err != nil {
		return err
	}

	var data class.UpdateClass
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateClass")
	}
	if err := data.Validate(cls, api.validate); err != nil {
		return err
	}

	cls, err = api.svc.Update(ctx.Request().Context(), cls, data)
	if err != nil {
		return errors.Wrap(err, "updating class")
	}
	return ctx.JSON(http.StatusOK, cls)
}

func (api *classApi) destroy(ctx echo.Context) error {
	cls, err := api.getObject(ctx)
	if err != nil {
		return err
	}
	if err := api.svc.Delete(ctx.Request().Context(), cls.ID); err != nil {
		return errors.Wrap(err, "deleting class")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *classApi) setStatus(ctx echo.Context) error {
	cls, err := api.getObject(ctx)
	if err != nil {
		return err
	}

	var data class.UpdateStatus
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateStatus")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	cls, err = api.svc.SetStatus(ctx.Request().Context(), cls, *data.IsActive)
	if err != nil {
		return errors.Wrap(err, "setting class status")
	}
	return ctx.JSON(http.StatusOK, cls)
}

func (api *classApi) roster(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return class.ErrNotFound
	}
	enrollments, err := api.enrollmentSvc.Roster(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "querying class roster")
	}
	if enrollments == nil {
		enrollments = []enrollment.Enrollment{}
	}
	return ctx.JSON(http.StatusOK, enrollments)
}

func (api *classApi) enrollStudents(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return class.ErrNotFound
	}

	var data enrollment.EnrollStudents
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to EnrollStudents")
	}
	if err := api.validate.Struct(data); err != nil {
		return err
	}

	results, err := api.enrollmentSvc.EnrollStudents(ctx.Request().Context(), id, data.StudentIDs)
	if err != nil {
		return errors.Wrap(err, "enrolling students")
	}
	return ctx.JSON(http.StatusCreated, results)
}

func (api *classApi) teachers(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return class.ErrNotFound
	}
	teachers, err := api.svc.ListTeachers(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "querying class teachers")
	}
	if teachers == nil {
		teachers = []class.AssignedTeacher{}
	}
	return ctx.JSON(http.StatusOK, teachers)
}

func (api *classApi) assignTeachers(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return class.ErrNotFound
	}

	var data class.AssignTeachers
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AssignTeachers")
	}
	if err := api.validate.Struct(data); err != nil {
		return err
	}

	results, err := api.svc.AssignTeachers(ctx.Request().Context(), id, data.TeacherIDs)
	if err != nil {
		return errors.Wrap(err, "assigning teachers")
	}
	return ctx.JSON(http.StatusCreated, results)
}
