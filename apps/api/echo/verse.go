package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/sundayschool/core/verse"
)

// registerVerseAPI registers the public routes; no session is required.
func registerVerseAPI(g *echo.Group, svc *verse.Service) {
	g.GET("/daily-verse", func(ctx echo.Context) error {
		v, err := svc.Daily(ctx.Request().Context(), ctx.QueryParam("language"))
		if err != nil {
			return errors.Wrap(err, "picking daily verse")
		}
		return ctx.JSON(http.StatusOK, v)
	})
}
