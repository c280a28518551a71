package echoapi

import (
	"context"
	"net/http"
	"os"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/trezcool/sundayschool/core"
	"github.com/trezcool/sundayschool/core/attendance"
	"github.com/trezcool/sundayschool/core/class"
	"github.com/trezcool/sundayschool/core/enrollment"
	"github.com/trezcool/sundayschool/core/lesson"
	"github.com/trezcool/sundayschool/core/lessonplan"
	"github.com/trezcool/sundayschool/core/quiz"
	"github.com/trezcool/sundayschool/core/relationship"
	"github.com/trezcool/sundayschool/core/user"
	"github.com/trezcool/sundayschool/core/verse"
)

type (
	Options struct {
		Conf           *core.Config
		Logger         core.Logger
		Validate       *validator.Validate
		Translator     ut.Translator
		DisableReqLogs bool
		// Shutdown receives a signal when a handler hits an unrecoverable error.
		Shutdown chan os.Signal

		UserSvc         user.ServiceInterface
		ClassSvc        class.ServiceInterface
		EnrollmentSvc   enrollment.ServiceInterface
		RelationshipSvc relationship.ServiceInterface
		LessonPlanSvc   lessonplan.ServiceInterface
		LessonSvc       lesson.ServiceInterface
		QuizSvc         quiz.ServiceInterface
		AttendanceSvc   attendance.ServiceInterface
		VerseSvc        *verse.Service
	}

	Server interface {
		http.Handler
		Start() error
		Stop(context.Context) error
	}

	server struct {
		opts   *Options
		app    *echo.Echo
		tokens *TokenIssuer
	}
)

var _ Server = (*server)(nil)

func NewServer(opts *Options) Server {
	s := &server{
		opts:   opts,
		app:    echo.New(),
		tokens: NewTokenIssuer(opts.Conf),
	}
	s.setup()
	return s
}

func (s *server) signalShutdown() {
	if s.opts.Shutdown != nil {
		s.opts.Shutdown <- syscall.SIGTERM
	}
}

func (s *server) setup() {
	conf := s.opts.Conf

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	s.app.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}))
	if conf.Telemetry.Enabled {
		s.app.Use(echo.WrapMiddleware(func(next http.Handler) http.Handler {
			return otelhttp.NewHandler(next, "api")
		}))
	}
	if !s.opts.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.opts.Logger, s.opts.Translator, s.signalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", home)
	registerDocs(s.app, conf.AppName)

	g := s.app.Group("/api")
	auth := []echo.MiddlewareFunc{
		middleware.JWTWithConfig(s.tokens.jwtConfig()),
		sessionMiddleware(s.opts.UserSvc),
	}

	registerAuthAPI(g, auth, s.tokens, s.opts.UserSvc)
	registerUserAPI(g, auth, s.opts)
	registerClassAPI(g, auth, s.opts)
	registerEnrollmentAPI(g, auth, s.opts)
	registerRelationshipAPI(g, auth, s.opts)
	registerLessonPlanAPI(g, auth, s.opts)
	registerLessonAPI(g, auth, s.opts)
	registerQuizAPI(g, auth, s.opts)
	registerAttendanceAPI(g, auth, s.opts)
	registerVerseAPI(g, s.opts.VerseSvc)
}

// Start blocks until the server stops. http.ErrServerClosed is returned after Stop.
func (s *server) Start() error {
	return s.app.Start(s.opts.Conf.Server.Address())
}

func (s *server) Stop(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to the Sunday School API!")
}
