package dig_container

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/sundayschool/apps/api/echo"
	"github.com/trezcool/sundayschool/apps/shared"
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
	emailsvc "github.com/trezcool/sundayschool/services/email"
	logsvc "github.com/trezcool/sundayschool/services/logger"
	"github.com/trezcool/sundayschool/services/telemetry"
	"github.com/trezcool/sundayschool/storage/database"
	sqlxrepos "github.com/trezcool/sundayschool/storage/database/sqlx"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

type ServerParam struct {
	dig.In

	Conf       *core.Config
	Logger     core.Logger
	Validate   *validator.Validate
	Translator ut.Translator
	Shutdown   chan os.Signal

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

// telemetry must be set up before the otel logger grabs the global provider
func newTelemetry(conf *core.Config) (telemetry.ShutdownFunc, error) {
	return telemetry.Setup(context.Background(), conf, os.Stdout)
}

func newLogger(conf *core.Config, component string, _ telemetry.ShutdownFunc) core.Logger {
	if conf.LoggerBackend == "otel" {
		return logsvc.NewOtelLogger()
	}
	logger := logsvc.NewRollbarLogger(conf, component, os.Stdout)
	logger.Enable(!conf.Debug)
	return logger
}

func newAPILogger(conf *core.Config, shutdown telemetry.ShutdownFunc) core.Logger {
	return newLogger(conf, "API", shutdown)
}

func newDBLogger(conf *core.Config, shutdown telemetry.ShutdownFunc) core.Logger {
	return newLogger(conf, "DB", shutdown)
}

func newDB(conf *core.Config, loggerParam DBLoggerParam) (*database.DB, core.Transactor, core.DBExecutor) {
	setUp := func() (*database.DB, error) {
		if err := database.CreateIfNotExist(conf); err != nil {
			return nil, err
		}

		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}

		if err = database.Migrate(db, "up"); err != nil {
			_ = db.Close()
			return nil, err
		}
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return db, db, db
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(conf, logger, os.Stdout)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

func newShutdownChannel() chan os.Signal {
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	return shutdown
}

func newServer(p ServerParam) echoapi.Server {
	return echoapi.NewServer(&echoapi.Options{
		Conf:            p.Conf,
		Logger:          p.Logger,
		Validate:        p.Validate,
		Translator:      p.Translator,
		Shutdown:        p.Shutdown,
		UserSvc:         p.UserSvc,
		ClassSvc:        p.ClassSvc,
		EnrollmentSvc:   p.EnrollmentSvc,
		RelationshipSvc: p.RelationshipSvc,
		LessonPlanSvc:   p.LessonPlanSvc,
		LessonSvc:       p.LessonSvc,
		QuizSvc:         p.QuizSvc,
		AttendanceSvc:   p.AttendanceSvc,
		VerseSvc:        p.VerseSvc,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newTelemetry))
	must(c.Provide(newAPILogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newDB))
	must(c.Provide(newEmailService))
	must(c.Provide(shared.NewValidator))
	must(c.Provide(newShutdownChannel))

	// repositories
	must(c.Provide(sqlxrepos.NewUserRepository, dig.As(new(user.Repository))))
	must(c.Provide(sqlxrepos.NewClassRepository, dig.As(new(class.Repository))))
	must(c.Provide(sqlxrepos.NewEnrollmentRepository, dig.As(new(enrollment.Repository))))
	must(c.Provide(sqlxrepos.NewRelationshipRepository, dig.As(new(relationship.Repository), new(enrollment.Family))))
	must(c.Provide(sqlxrepos.NewLessonPlanRepository, dig.As(new(lessonplan.Repository))))
	must(c.Provide(sqlxrepos.NewLessonRepository, dig.As(new(lesson.Repository))))
	must(c.Provide(sqlxrepos.NewQuizRepository, dig.As(new(quiz.Repository))))
	must(c.Provide(sqlxrepos.NewAttendanceRepository, dig.As(new(attendance.Repository))))
	must(c.Provide(sqlxrepos.NewVerseRepository, dig.As(new(verse.Repository))))

	// services
	must(c.Provide(user.NewService, dig.As(new(user.ServiceInterface))))
	must(c.Provide(class.NewService, dig.As(new(class.ServiceInterface))))
	must(c.Provide(enrollment.NewService, dig.As(new(enrollment.ServiceInterface), new(user.Withdrawer))))
	must(c.Provide(relationship.NewService, dig.As(new(relationship.ServiceInterface))))
	must(c.Provide(lessonplan.NewService, dig.As(new(lessonplan.ServiceInterface))))
	must(c.Provide(lesson.NewService, dig.As(new(lesson.ServiceInterface))))
	must(c.Provide(quiz.NewService, dig.As(new(quiz.ServiceInterface))))
	must(c.Provide(attendance.NewService, dig.As(new(attendance.ServiceInterface))))
	must(c.Provide(verse.NewService))

	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
