// Package docs registers the swagger spec for the operator-facing
// /swagger/*any route. It mirrors what `swag init` emits from the
// handler annotations in internal/api/handlers/trends.go.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "{{.Title}}",
        "description": "{{.Description}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/trends": {
            "post": {
                "summary": "Submit a trend query",
                "description": "Scores a keyword's search interest over the requested window against its baseline.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {"type": "object"}
                    }
                ],
                "responses": {
                    "200": {"description": "scored trend response"},
                    "400": {"description": "validation failure"},
                    "404": {"description": "no data for keyword"},
                    "503": {"description": "upstream unreachable and no stale cache"}
                }
            }
        },
        "/trends/countries": {
            "get": {
                "summary": "List supported countries",
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "supported country codes"}
                }
            }
        }
    }
}`

// SwaggerInfo holds exported swagger metadata, populated at init time and
// consumed by gin-swagger's handler.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "TrendPulse API",
	Description:      "Analytics trend query engine for Google Trends-style keyword interest scoring.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
