// Package swagger holds the generated API documentation registration.
package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {
            "name": "API Support",
            "email": "support@bloodlink.example"
        },
        "license": {
            "name": "Apache 2.0",
            "url": "http://www.apache.org/licenses/LICENSE-2.0.html"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "securityDefinitions": {
        "BearerAuth": {
            "description": "Type \"Bearer\" followed by a space and the JWT token.",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    },
    "tags": [
        {"name": "organizations", "description": "Organization tree (read-only)"},
        {"name": "blood-units", "description": "Collected blood unit operations"},
        {"name": "components", "description": "Blood component catalog operations"},
        {"name": "requests", "description": "Inter-organization request lifecycle"},
        {"name": "custody", "description": "Chain-of-custody ledger"},
        {"name": "stats", "description": "Dashboard aggregates"},
        {"name": "audit", "description": "Append-only audit trail"}
    ]
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8010",
	BasePath:         "/api",
	Schemes:          []string{"http", "https"},
	Title:            "BloodLink Inventory API",
	Description:      "Blood component inventory and inter-organization request fulfillment engine",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
