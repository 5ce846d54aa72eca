// Package docs registers the OpenAPI description served at /swagger/doc.json.
package docs

import (
	_ "embed"

	"github.com/swaggo/swag"
)

//go:embed openapi.json
var doc string

type openAPIDoc struct{}

func (openAPIDoc) ReadDoc() string { return doc }

func init() {
	swag.Register(swag.Name, openAPIDoc{})
}
