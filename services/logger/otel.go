package logsvc

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"go.opentelemetry.io/contrib/bridges/otelslog"

	"github.com/trezcool/sundayschool/core"
	"github.com/trezcool/sundayschool/core/user"
)

const instrumentationName = "github.com/trezcool/sundayschool"

// OtelLogger forwards entries to the global otel LoggerProvider through slog.
type OtelLogger struct {
	sl *slog.Logger
}

var _ core.Logger = (*OtelLogger)(nil)

func NewOtelLogger() *OtelLogger {
	return &OtelLogger{sl: otelslog.NewLogger(instrumentationName)}
}

// same args as RollbarLogger.prepare, turned into slog attributes
func (l OtelLogger) attrs(args []interface{}) []slog.Attr {
	attrs := make([]slog.Attr, 0, len(args))
	for _, arg := range args {
		switch a := arg.(type) {
		case error:
			attrs = append(attrs, slog.String("error", a.Error()))
		case user.User:
			attrs = append(attrs, slog.Group("user", slog.Int("id", a.ID), slog.String("email", a.Email), slog.String("role", a.Role)))
		case *user.Summary:
			attrs = append(attrs, slog.Group("user", slog.Int("id", a.ID), slog.String("email", a.Email)))
		case *http.Request:
			attrs = append(attrs, slog.Group("request", slog.String("method", a.Method), slog.String("path", a.URL.Path)))
		case map[string]interface{}:
			for k, v := range a {
				attrs = append(attrs, slog.Any(k, v))
			}
		default:
			attrs = append(attrs, slog.Any("extra", a))
		}
	}
	return attrs
}

func (l OtelLogger) log(level slog.Level, msg string, args []interface{}) {
	l.sl.LogAttrs(context.Background(), level, msg, l.attrs(args)...)
}

func (l OtelLogger) Debug(msg string, args ...interface{}) { l.log(slog.LevelDebug, msg, args) }
func (l OtelLogger) Info(msg string, args ...interface{})  { l.log(slog.LevelInfo, msg, args) }
func (l OtelLogger) Warn(msg string, args ...interface{})  { l.log(slog.LevelWarn, msg, args) }
func (l OtelLogger) Error(msg string, args ...interface{}) { l.log(slog.LevelError, msg, args) }

func (l OtelLogger) Fatal(msg string, args ...interface{}) {
	l.log(slog.LevelError+4, msg, args)
	os.Exit(1)
}
