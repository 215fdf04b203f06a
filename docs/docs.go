// Package docs registers the OpenAPI description served under /swagger.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/api/session": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["session"],
                "summary": "Create session",
                "parameters": [
                    {"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/models.SessionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.SessionResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/common.ErrorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/common.ErrorResponse"}}
                }
            },
            "delete": {
                "produces": ["application/json"],
                "tags": ["session"],
                "summary": "End session",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/me": {
            "get": {
                "produces": ["application/json"],
                "tags": ["session"],
                "summary": "Current user",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.UserProfile"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/common.ErrorResponse"}}
                }
            }
        },
        "/api/tenant": {
            "get": {
                "produces": ["application/json"],
                "tags": ["tenant"],
                "summary": "Get tenant",
                "parameters": [{"type": "string", "description": "Tenant slug", "name": "tenantId", "in": "query"}],
                "responses": {
                    "200": {"description": "OK"},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/common.ErrorResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/common.ErrorResponse"}}
                }
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["tenant"],
                "summary": "Create tenant",
                "responses": {
                    "200": {"description": "OK"},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/common.ErrorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/common.ErrorResponse"}}
                }
            },
            "put": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["tenant"],
                "summary": "Update tenant",
                "responses": {
                    "200": {"description": "OK"},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/common.ErrorResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/common.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/common.ErrorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/common.ErrorResponse"}}
                }
            },
            "delete": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["tenant"],
                "summary": "Delete tenant",
                "responses": {
                    "200": {"description": "OK"},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/common.ErrorResponse"}}
                }
            }
        },
        "/api/admin/tenant-theme": {
            "get": {
                "produces": ["application/json"],
                "tags": ["theme"],
                "summary": "Get tenant theme",
                "parameters": [{"type": "string", "description": "Tenant slug", "name": "tenantId", "in": "query", "required": true}],
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["theme"],
                "summary": "Update tenant theme",
                "responses": {
                    "200": {"description": "OK"},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/common.ErrorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/common.ErrorResponse"}}
                }
            }
        },
        "/api/public/{tenantId}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["public"],
                "summary": "Public landing page",
                "parameters": [{"type": "string", "description": "Tenant slug", "name": "tenantId", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.PublicTenant"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/common.ErrorResponse"}}
                }
            }
        },
        "/admin": {
            "get": {
                "produces": ["application/json"],
                "tags": ["admin"],
                "summary": "Owner dashboard",
                "responses": {"200": {"description": "OK"}, "302": {"description": "redirect to login"}}
            }
        },
        "/health": {
            "get": {"produces": ["application/json"], "tags": ["health"], "summary": "Liveness", "responses": {"200": {"description": "OK"}}}
        },
        "/health/ready": {
            "get": {"produces": ["application/json"], "tags": ["health"], "summary": "Readiness",
                "responses": {"200": {"description": "OK"}, "503": {"description": "Service Unavailable"}}}
        }
    },
    "definitions": {
        "common.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {
                    "type": "object",
                    "properties": {
                        "code": {"type": "string"},
                        "message": {"type": "string"},
                        "details": {"type": "object", "additionalProperties": {"type": "string"}}
                    }
                }
            }
        },
        "models.SessionRequest": {
            "type": "object",
            "properties": {"idToken": {"type": "string"}}
        },
        "models.SessionResponse": {
            "type": "object",
            "properties": {"ok": {"type": "boolean"}, "uid": {"type": "string"}, "email": {"type": "string"}}
        },
        "models.UserProfile": {
            "type": "object",
            "properties": {
                "uid": {"type": "string"},
                "email": {"type": "string"},
                "displayName": {"type": "string"},
                "photoURL": {"type": "string"},
                "phoneNumber": {"type": "string"},
                "provider": {"type": "string"},
                "locale": {"type": "string"}
            }
        },
        "models.ThemeConfig": {
            "type": "object",
            "properties": {
                "background": {"type": "string"},
                "foreground": {"type": "string"},
                "primary": {"type": "string"},
                "muted": {"type": "string"},
                "font": {"type": "string", "enum": ["geist", "serif", "mono", "sans", "inter"]},
                "radius": {"type": "number"}
            }
        },
        "models.TenantLink": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "type": {"type": "string", "enum": ["instagram", "facebook", "x", "tiktok", "waze", "google-maps", "whatsapp", "other"]},
                "href": {"type": "string"},
                "label": {"type": "string"}
            }
        },
        "models.PublicTenant": {
            "type": "object",
            "properties": {
                "tenantId": {"type": "string"},
                "displayName": {"type": "string"},
                "theme": {"$ref": "#/definitions/models.ThemeConfig"},
                "links": {"type": "array", "items": {"$ref": "#/definitions/models.TenantLink"}},
                "updatedAt": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "consultapp API",
	Description:      "Tenant identity, session and landing page directory.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
