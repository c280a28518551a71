package logsvc

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"

	"github.com/trezcool/sundayschool/core"
	"github.com/trezcool/sundayschool/core/user"
)

// RollbarLogger reports to rollbar and echoes every entry to out, prefixed with its component (API, DB, ADMIN).
type RollbarLogger struct {
	component string
	std       *log.Logger
}

var _ core.Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(conf *core.Config, component string, out io.Writer) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)
	return &RollbarLogger{
		component: component,
		std:       log.New(out, component+" : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
	}
}

func (l RollbarLogger) Enable(enabled bool) {
	rollbar.SetEnabled(enabled)
}

type report struct {
	args   []interface{} // msg, then errors and requests, then extras
	person *user.Summary
	extras map[string]interface{}
}

// expected args: error, *http.Request, map[string]interface{}, user.User | *user.Summary
// rollbar tracks a single person per report, so only the first user is kept.
func (l RollbarLogger) prepare(msg string, args []interface{}) report {
	r := report{
		args:   []interface{}{msg},
		extras: map[string]interface{}{"component": l.component},
	}
	for _, arg := range args {
		switch a := arg.(type) {
		case user.User:
			if r.person == nil {
				r.person = a.Summary()
				r.extras["role"] = a.Role
			}
		case *user.Summary:
			if r.person == nil && a != nil {
				r.person = a
			}
		case map[string]interface{}:
			for k, v := range a {
				r.extras[k] = v
			}
		default:
			r.args = append(r.args, a)
		}
	}
	r.args = append(r.args, r.extras)
	return r
}

func (l RollbarLogger) send(send func(...interface{}), msg string, args []interface{}) {
	r := l.prepare(msg, args)
	if r.person != nil {
		rollbar.SetPerson(strconv.Itoa(r.person.ID), r.person.Name, r.person.Email)
	} else {
		rollbar.ClearPerson()
	}
	send(r.args...)
	l.print(msg, args)
}

func (l RollbarLogger) print(msg string, args []interface{}) {
	var b strings.Builder
	b.WriteString(msg)
	for _, arg := range args {
		switch a := arg.(type) {
		case user.User:
			fmt.Fprintf(&b, " | user %d (%s)", a.ID, a.Role)
		case *user.Summary:
			fmt.Fprintf(&b, " | user %d", a.ID)
		case *http.Request:
			fmt.Fprintf(&b, " | %s %s", a.Method, a.URL.Path)
		default:
			fmt.Fprintf(&b, "\n%+v", a)
		}
	}
	// skip print, send and the level method: report the caller's line
	_ = l.std.Output(4, b.String())
}

func (l RollbarLogger) Debug(msg string, args ...interface{}) { l.send(rollbar.Debug, msg, args) }
func (l RollbarLogger) Info(msg string, args ...interface{})  { l.send(rollbar.Info, msg, args) }
func (l RollbarLogger) Warn(msg string, args ...interface{})  { l.send(rollbar.Warning, msg, args) }
func (l RollbarLogger) Error(msg string, args ...interface{}) { l.send(rollbar.Error, msg, args) }

func (l RollbarLogger) Fatal(msg string, args ...interface{}) {
	l.send(rollbar.Critical, msg, args)
	rollbar.Wait()
	l.std.Fatal(msg)
}
