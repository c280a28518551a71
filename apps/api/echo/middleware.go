package echoapi

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/sundayschool/core/authz"
)

// authorize lets the request through when the session role may perform act on res.
func authorize(res authz.Resource, act authz.Action) echo.MiddlewareFunc {
	denied := echo.NewHTTPError(
		http.StatusForbidden,
		fmt.Sprintf("Not authorized to %s %s", act, strings.ReplaceAll(string(res), "-", " ")),
	)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := getContextUser(ctx)
			if err != nil {
				return err
			}
			if !authz.CanAccess(usr.Role, res, act) {
				return denied
			}
			return next(ctx)
		}
	}
}
