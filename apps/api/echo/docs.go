package echoapi

import (
	"io/fs"
	"net/http"

	"github.com/labstack/echo/v4"
	swgui "github.com/swaggest/swgui/v5cdn"

	appfs "github.com/trezcool/sundayschool/fs"
)

const (
	docsPath        = "/api/docs"
	openAPISpecPath = docsPath + "/openapi.yaml"
)

func registerDocs(app *echo.Echo, title string) {
	ui := echo.WrapHandler(swgui.New(title+" API", openAPISpecPath, docsPath+"/"))
	app.GET(docsPath, ui)
	app.GET(docsPath+"/*", ui)
	app.GET(openAPISpecPath, serveOpenAPISpec)
}

func serveOpenAPISpec(ctx echo.Context) error {
	spec, err := fs.ReadFile(appfs.FS, appfs.OpenAPIPath)
	if err != nil {
		return err
	}
	return ctx.Blob(http.StatusOK, "application/yaml", spec)
}
