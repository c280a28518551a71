package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/sundayschool/core/authz"
	"github.com/trezcool/sundayschool/core/quiz"
)

var quizOrderingColumns = []string{"id", "title", "created_at"}

type quizApi struct {
	svc      quiz.ServiceInterface
	validate *validator.Validate
}

func registerQuizAPI(g *echo.Group, auth []echo.MiddlewareFunc, opts *Options) {
	api := quizApi{svc: opts.QuizSvc, validate: opts.Validate}

	qg := g.Group("/quizzes", auth...)
	qg.GET("", api.query, authorize(authz.Quizzes, authz.Read))
	qg.POST("", api.create, authorize(authz.Quizzes, authz.Create))
	qg.GET("/:id", api.retrieve, authorize(authz.Quizzes, authz.Read))
	qg.GET("/:id/submissions", api.submissions, authorize(authz.QuizSubmissions, authz.Read))
	qg.POST("/:id/submissions", api.submit, authorize(authz.QuizSubmissions, authz.Create))
}

// Handlers

func (api *quizApi) query(ctx echo.Context) error {
	filter := new(quiz.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []quiz.Quiz{})
	}
	ordering := new(Ordering)
	ordering.Bind(ctx, quizOrderingColumns...)

	quizzes, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying quizzes")
	}
	if quizzes == nil {
		quizzes = []quiz.Quiz{}
	}
	return ctx.JSON(http.StatusOK, quizzes)
}

func (api *quizApi) create(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}

	var data quiz.NewQuiz
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewQuiz")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	qz, err := api.svc.Create(ctx.Request().Context(), usr, data)
	if err != nil {
		return errors.Wrap(err, "creating quiz")
	}
	return ctx.JSON(http.StatusCreated, qz)
}

func (api *quizApi) retrieve(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	id, err := paramID(ctx, "id")
	if err != nil {
		return quiz.ErrNotFound
	}

	qz, err := api.svc.GetByID(ctx.Request().Context(), usr, id)
	if err != nil {
		return errors.Wrap(err, "finding quiz by ID")
	}
	return ctx.JSON(http.StatusOK, qz)
}

func (api *quizApi) submissions(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return quiz.ErrNotFound
	}
	subs, err := api.svc.ListSubmissions(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "querying quiz submissions")
	}
	if subs == nil {
		subs = []quiz.Submission{}
	}
	return ctx.JSON(http.StatusOK, subs)
}

func (api *quizApi) submit(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	id, err := paramID(ctx, "id")
	if err != nil {
		return quiz.ErrNotFound
	}

	var data quiz.NewSubmission
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubmission")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	sub, err := api.svc.Submit(ctx.Request().Context(), usr, id, data)
	if err != nil {
		return errors.Wrap(err, "submitting quiz")
	}
	return ctx.JSON(http.StatusCreated, sub)
}
