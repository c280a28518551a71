// Package appfs embeds the files shipped with the binaries:
// SQL migrations, email templates and the OpenAPI document.
package appfs

import "embed"

//go:embed migrations/*.sql templates/email/* api/openapi.yaml
var FS embed.FS

const (
	MigrationsDir = "migrations"
	OpenAPIPath   = "api/openapi.yaml"
)
