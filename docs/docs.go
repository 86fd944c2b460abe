// Package docs registers the OpenAPI document served at /api/v1/swagger.json.
// Keep it in step with the swag annotations on the handlers.
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
        "/api/v1/analytics/dashboard": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Analytics"
                ],
                "summary": "Analytics Dashboard",
                "parameters": [
                    {
                        "type": "string",
                        "description": "Restrict to links created by this owner",
                        "name": "owner_id",
                        "in": "query"
                    },
                    {
                        "type": "string",
                        "description": "Owner fallback when owner_id is absent",
                        "name": "X-Owner-ID",
                        "in": "header"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "allOf": [
                                {
                                    "$ref": "#/definitions/dto.APIResponse"
                                },
                                {
                                    "type": "object",
                                    "properties": {
                                        "data": {
                                            "$ref": "#/definitions/dto.DashboardResponse"
                                        }
                                    }
                                }
                            ]
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/dto.APIResponse"
                        }
                    },
                    "500": {
                        "description": "Internal Server Error",
                        "schema": {
                            "$ref": "#/definitions/dto.APIResponse"
                        }
                    }
                }
            }
        },
        "/api/v1/analytics/{code}": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Analytics"
                ],
                "summary": "Link Analytics",
                "parameters": [
                    {
                        "type": "string",
                        "description": "Short code or alias",
                        "name": "code",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "allOf": [
                                {
                                    "$ref": "#/definitions/dto.APIResponse"
                                },
                                {
                                    "type": "object",
                                    "properties": {
                                        "data": {
                                            "$ref": "#/definitions/dto.LinkAnalyticsResponse"
                                        }
                                    }
                                }
                            ]
                        }
                    },
                    "404": {
                        "description": "Not Found",
                        "schema": {
                            "$ref": "#/definitions/dto.APIResponse"
                        }
                    },
                    "500": {
                        "description": "Internal Server Error",
                        "schema": {
                            "$ref": "#/definitions/dto.APIResponse"
                        }
                    }
                }
            }
        },
        "/api/v1/analytics/{code}/export": {
            "get": {
                "produces": [
                    "text/csv",
                    "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
                ],
                "tags": [
                    "Analytics"
                ],
                "summary": "Export Clicks",
                "parameters": [
                    {
                        "type": "string",
                        "description": "Short code or alias",
                        "name": "code",
                        "in": "path",
                        "required": true
                    },
                    {
                        "type": "string",
                        "description": "csv (default) or xlsx",
                        "name": "format",
                        "in": "query"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "type": "file"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/dto.APIResponse"
                        }
                    },
                    "404": {
                        "description": "Not Found",
                        "schema": {
                            "$ref": "#/definitions/dto.APIResponse"
                        }
                    },
                    "500": {
                        "description": "Internal Server Error",
                        "schema": {
                            "$ref": "#/definitions/dto.APIResponse"
                        }
                    }
                }
            }
        },
        "/api/v1/url/shorten": {
            "post": {
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "ShortLinks"
                ],
                "summary": "Shorten URL",
                "parameters": [
                    {
                        "description": "Target URL and options",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/dto.CreateShortLinkRequest"
                        }
                    }
                ],
                "responses": {
                    "201": {
                        "description": "Created",
                        "schema": {
                            "allOf": [
                                {
                                    "$ref": "#/definitions/dto.APIResponse"
                                },
                                {
                                    "type": "object",
                                    "properties": {
                                        "data": {
                                            "$ref": "#/definitions/dto.CreateShortLinkResponse"
                                        }
                                    }
                                }
                            ]
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/dto.APIResponse"
                        }
                    },
                    "500": {
                        "description": "Internal Server Error",
                        "schema": {
                            "$ref": "#/definitions/dto.APIResponse"
                        }
                    }
                }
            }
        },
        "/api/v1/url/{code}": {
            "delete": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "ShortLinks"
                ],
                "summary": "Delete Short Link",
                "parameters": [
                    {
                        "type": "string",
                        "description": "Short code or alias",
                        "name": "code",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/dto.APIResponse"
                        }
                    },
                    "404": {
                        "description": "Not Found",
                        "schema": {
                            "$ref": "#/definitions/dto.APIResponse"
                        }
                    },
                    "500": {
                        "description": "Internal Server Error",
                        "schema": {
                            "$ref": "#/definitions/dto.APIResponse"
                        }
                    }
                }
            }
        },
        "/api/v1/url/{code}/info": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "ShortLinks"
                ],
                "summary": "Short Link Info",
                "parameters": [
                    {
                        "type": "string",
                        "description": "Short code or alias",
                        "name": "code",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "allOf": [
                                {
                                    "$ref": "#/definitions/dto.APIResponse"
                                },
                                {
                                    "type": "object",
                                    "properties": {
                                        "data": {
                                            "$ref": "#/definitions/dto.ShortLinkInfoResponse"
                                        }
                                    }
                                }
                            ]
                        }
                    },
                    "404": {
                        "description": "Not Found",
                        "schema": {
                            "$ref": "#/definitions/dto.APIResponse"
                        }
                    },
                    "500": {
                        "description": "Internal Server Error",
                        "schema": {
                            "$ref": "#/definitions/dto.APIResponse"
                        }
                    }
                }
            }
        },
        "/{code}": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "ShortLinks"
                ],
                "summary": "Visit Short Link",
                "parameters": [
                    {
                        "type": "string",
                        "description": "Short code or alias",
                        "name": "code",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "301": {
                        "description": "Redirect",
                        "schema": {
                            "type": "string"
                        }
                    },
                    "404": {
                        "description": "Not Found",
                        "schema": {
                            "$ref": "#/definitions/dto.APIResponse"
                        }
                    },
                    "500": {
                        "description": "Internal Server Error",
                        "schema": {
                            "$ref": "#/definitions/dto.APIResponse"
                        }
                    }
                }
            }
        }
    },
    "definitions": {
        "dto.APIResponse": {
            "type": "object",
            "properties": {
                "data": {},
                "error": {},
                "message": {
                    "type": "string"
                },
                "success": {
                    "type": "boolean"
                }
            }
        },
        "dto.CreateShortLinkRequest": {
            "type": "object",
            "required": [
                "originalUrl"
            ],
            "properties": {
                "customAlias": {
                    "type": "string",
                    "maxLength": 20
                },
                "expiresInDays": {
                    "type": "integer",
                    "maximum": 3650,
                    "minimum": 0
                },
                "originalUrl": {
                    "type": "string",
                    "maxLength": 2048
                },
                "ownerId": {
                    "type": "string",
                    "maxLength": 128
                }
            }
        },
        "dto.CreateShortLinkResponse": {
            "type": "object",
            "properties": {
                "createdAt": {
                    "type": "string"
                },
                "expiresAt": {
                    "type": "string"
                },
                "originalUrl": {
                    "type": "string"
                },
                "shortCode": {
                    "type": "string"
                },
                "shortUrl": {
                    "type": "string"
                }
            }
        },
        "dto.ShortLinkInfoResponse": {
            "type": "object",
            "properties": {
                "originalUrl": {
                    "type": "string"
                },
                "shortCode": {
                    "type": "string"
                },
                "shortUrl": {
                    "type": "string"
                }
            }
        },
        "dto.ShortLinkDTO": {
            "type": "object",
            "properties": {
                "clickCount": {
                    "type": "integer"
                },
                "createdAt": {
                    "type": "string"
                },
                "customAlias": {
                    "type": "string"
                },
                "expiresAt": {
                    "type": "string"
                },
                "isActive": {
                    "type": "boolean"
                },
                "lastAccessed": {
                    "type": "string"
                },
                "originalUrl": {
                    "type": "string"
                },
                "shortCode": {
                    "type": "string"
                },
                "shortUrl": {
                    "type": "string"
                }
            }
        },
        "dto.ClickDTO": {
            "type": "object",
            "properties": {
                "browser": {
                    "type": "string"
                },
                "browserVersion": {
                    "type": "string"
                },
                "country": {
                    "type": "string"
                },
                "device": {
                    "type": "string"
                },
                "deviceModel": {
                    "type": "string"
                },
                "ip": {
                    "type": "string"
                },
                "os": {
                    "type": "string"
                },
                "osVersion": {
                    "type": "string"
                },
                "referer": {
                    "type": "string"
                },
                "region": {
                    "type": "string"
                },
                "timestamp": {
                    "type": "string"
                },
                "userAgent": {
                    "type": "string"
                }
            }
        },
        "dto.DayVisits": {
            "type": "object",
            "properties": {
                "date": {
                    "type": "string"
                },
                "visitors": {
                    "type": "integer"
                },
                "visits": {
                    "type": "integer"
                }
            }
        },
        "dto.DashboardResponse": {
            "type": "object",
            "properties": {
                "clicksByDay": {
                    "type": "object",
                    "additionalProperties": {
                        "type": "integer"
                    }
                },
                "clicksByReferer": {
                    "type": "object",
                    "additionalProperties": {
                        "type": "integer"
                    }
                },
                "recentUrls": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/dto.ShortLinkDTO"
                    }
                },
                "topUrls": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/dto.ShortLinkDTO"
                    }
                },
                "totalClicks": {
                    "type": "integer"
                },
                "totalUrls": {
                    "type": "integer"
                }
            }
        },
        "dto.LinkAnalyticsResponse": {
            "type": "object",
            "properties": {
                "clickCount": {
                    "type": "integer"
                },
                "clicks": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/dto.ClickDTO"
                    }
                },
                "clicksByBrowser": {
                    "type": "object",
                    "additionalProperties": {
                        "type": "integer"
                    }
                },
                "clicksByCountry": {
                    "type": "object",
                    "additionalProperties": {
                        "type": "integer"
                    }
                },
                "clicksByDay": {
                    "type": "object",
                    "additionalProperties": {
                        "type": "integer"
                    }
                },
                "clicksByDevice": {
                    "type": "object",
                    "additionalProperties": {
                        "type": "integer"
                    }
                },
                "clicksByOS": {
                    "type": "object",
                    "additionalProperties": {
                        "type": "integer"
                    }
                },
                "clicksByReferer": {
                    "type": "object",
                    "additionalProperties": {
                        "type": "integer"
                    }
                },
                "clicksByRegion": {
                    "type": "object",
                    "additionalProperties": {
                        "type": "integer"
                    }
                },
                "createdAt": {
                    "type": "string"
                },
                "expiresAt": {
                    "type": "string"
                },
                "isActive": {
                    "type": "boolean"
                },
                "lastAccessed": {
                    "type": "string"
                },
                "originalUrl": {
                    "type": "string"
                },
                "shortCode": {
                    "type": "string"
                },
                "shortUrl": {
                    "type": "string"
                },
                "uniqueVisitors": {
                    "type": "integer"
                },
                "visitsAndVisitorsByDay": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/dto.DayVisits"
                    }
                }
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
	Title:            "Kusanagi API",
	Description:      "Short link resolution and click analytics service",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
