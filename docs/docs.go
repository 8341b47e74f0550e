// Package docs holds the generated OpenAPI description of the GeoMinder API.
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
        "/auth/login": {
            "post": {
                "tags": [
                    "auth"
                ],
                "summary": "Sign in",
                "description": "Exchange the device password for a bearer token",
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "in": "body",
                        "name": "request",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/ports.LoginRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/http.LoginResponse"
                        }
                    },
                    "401": {
                        "description": "Unauthorized",
                        "schema": {
                            "$ref": "#/definitions/http.EventsResponse"
                        }
                    }
                }
            }
        },
        "/auth/logout": {
            "post": {
                "tags": [
                    "auth"
                ],
                "summary": "Sign out",
                "description": "Revoke the current bearer token",
                "produces": [
                    "application/json"
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/http.EventsResponse"
                        }
                    },
                    "401": {
                        "description": "Unauthorized",
                        "schema": {
                            "$ref": "#/definitions/http.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/auth/state": {
            "get": {
                "tags": [
                    "auth"
                ],
                "summary": "Authentication state",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ports.AuthStateResponse"
                        }
                    }
                }
            }
        },
        "/reminders": {
            "get": {
                "tags": [
                    "reminders"
                ],
                "summary": "List reminders",
                "description": "List saved reminders in insertion order",
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "type": "boolean",
                        "description": "Pull-to-refresh; suppresses the loading indicator",
                        "name": "refresh",
                        "in": "query"
                    }
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/http.RemindersResponse"
                        }
                    },
                    "500": {
                        "description": "Internal Server Error",
                        "schema": {
                            "$ref": "#/definitions/http.EventsResponse"
                        }
                    }
                }
            },
            "post": {
                "tags": [
                    "reminders"
                ],
                "summary": "Create a reminder",
                "description": "Validate and save a reminder; registers its geofence",
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "in": "body",
                        "name": "request",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/ports.SaveReminderRequest"
                        }
                    }
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "responses": {
                    "201": {
                        "description": "Created",
                        "schema": {
                            "$ref": "#/definitions/http.ReminderResponse"
                        }
                    },
                    "422": {
                        "description": "Unprocessable Entity",
                        "schema": {
                            "$ref": "#/definitions/http.EventsResponse"
                        }
                    }
                }
            },
            "delete": {
                "tags": [
                    "reminders"
                ],
                "summary": "Delete all reminders",
                "produces": [
                    "application/json"
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "responses": {
                    "204": {
                        "description": "No Content"
                    }
                }
            }
        },
        "/reminders/{id}": {
            "get": {
                "tags": [
                    "reminders"
                ],
                "summary": "Get reminder by ID",
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "type": "string",
                        "description": "Reminder ID",
                        "name": "id",
                        "in": "path",
                        "required": true
                    }
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/entities.Reminder"
                        }
                    },
                    "404": {
                        "description": "Not Found",
                        "schema": {
                            "$ref": "#/definitions/http.ErrorResponse"
                        }
                    }
                }
            },
            "put": {
                "tags": [
                    "reminders"
                ],
                "summary": "Update a reminder",
                "description": "Replace title and description; the location is kept unless provided",
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "type": "string",
                        "description": "Reminder ID",
                        "name": "id",
                        "in": "path",
                        "required": true
                    },
                    {
                        "in": "body",
                        "name": "request",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/ports.SaveReminderRequest"
                        }
                    }
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/http.ReminderResponse"
                        }
                    },
                    "404": {
                        "description": "Not Found",
                        "schema": {
                            "$ref": "#/definitions/http.ErrorResponse"
                        }
                    },
                    "422": {
                        "description": "Unprocessable Entity",
                        "schema": {
                            "$ref": "#/definitions/http.EventsResponse"
                        }
                    }
                }
            },
            "delete": {
                "tags": [
                    "reminders"
                ],
                "summary": "Delete a reminder",
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "type": "string",
                        "description": "Reminder ID",
                        "name": "id",
                        "in": "path",
                        "required": true
                    }
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/http.RemindersResponse"
                        }
                    },
                    "500": {
                        "description": "Internal Server Error",
                        "schema": {
                            "$ref": "#/definitions/http.EventsResponse"
                        }
                    }
                }
            }
        },
        "/geometry/circle": {
            "post": {
                "tags": [
                    "geometry"
                ],
                "summary": "Reduce points to a circle",
                "description": "Compute the point of interest and camera bounds for a selection",
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "in": "body",
                        "name": "request",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/ports.CircleRequest"
                        }
                    }
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ports.CircleResponse"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/http.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/geofences/containing": {
            "get": {
                "tags": [
                    "geofences"
                ],
                "summary": "Geofences containing a point",
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "type": "number",
                        "description": "Latitude",
                        "name": "lat",
                        "in": "query",
                        "required": true
                    },
                    {
                        "type": "number",
                        "description": "Longitude",
                        "name": "lng",
                        "in": "query",
                        "required": true
                    }
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ports.ContainingResponse"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/http.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/sessions/ws": {
            "get": {
                "tags": [
                    "sessions"
                ],
                "summary": "Reminder edit session",
                "description": "WebSocket: send SessionCommand messages, receive workflow event envelopes",
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "type": "string",
                        "description": "Bearer token for clients that cannot set headers",
                        "name": "token",
                        "in": "query"
                    }
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "responses": {
                    "101": {
                        "description": "Switching Protocols"
                    }
                }
            }
        }
    },
    "definitions": {
        "entities.Coordinate": {
            "type": "object",
            "properties": {
                "latitude": {
                    "type": "number"
                },
                "longitude": {
                    "type": "number"
                }
            }
        },
        "entities.PointOfInterest": {
            "type": "object",
            "properties": {
                "center": {
                    "$ref": "#/definitions/entities.Coordinate"
                },
                "radius": {
                    "type": "number"
                },
                "name": {
                    "type": "string"
                }
            }
        },
        "entities.Reminder": {
            "type": "object",
            "properties": {
                "id": {
                    "type": "string"
                },
                "title": {
                    "type": "string"
                },
                "description": {
                    "type": "string"
                },
                "location": {
                    "type": "string"
                },
                "latitude": {
                    "type": "number"
                },
                "longitude": {
                    "type": "number"
                },
                "radius": {
                    "type": "number"
                }
            }
        },
        "workflow.Envelope": {
            "type": "object",
            "properties": {
                "type": {
                    "type": "string"
                },
                "payload": {
                    "type": "object"
                }
            }
        },
        "ports.LoginRequest": {
            "type": "object",
            "properties": {
                "password": {
                    "type": "string"
                }
            }
        },
        "ports.AuthStateResponse": {
            "type": "object",
            "properties": {
                "state": {
                    "type": "string",
                    "enum": [
                        "authenticated",
                        "unauthenticated"
                    ]
                }
            }
        },
        "ports.SaveReminderRequest": {
            "type": "object",
            "properties": {
                "title": {
                    "type": "string"
                },
                "description": {
                    "type": "string"
                },
                "location": {
                    "$ref": "#/definitions/entities.PointOfInterest"
                }
            }
        },
        "ports.CircleRequest": {
            "type": "object",
            "properties": {
                "points": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/entities.Coordinate"
                    }
                },
                "previous": {
                    "$ref": "#/definitions/entities.PointOfInterest"
                },
                "name": {
                    "type": "string"
                }
            },
            "required": [
                "points"
            ]
        },
        "ports.BoundsResponse": {
            "type": "object",
            "properties": {
                "southwest": {
                    "$ref": "#/definitions/entities.Coordinate"
                },
                "northeast": {
                    "$ref": "#/definitions/entities.Coordinate"
                }
            }
        },
        "ports.CircleResponse": {
            "type": "object",
            "properties": {
                "poi": {
                    "$ref": "#/definitions/entities.PointOfInterest"
                },
                "camera_bounds": {
                    "$ref": "#/definitions/ports.BoundsResponse"
                }
            }
        },
        "ports.ContainingResponse": {
            "type": "object",
            "properties": {
                "point": {
                    "$ref": "#/definitions/entities.Coordinate"
                },
                "geofence_ids": {
                    "type": "array",
                    "items": {
                        "type": "string"
                    }
                }
            }
        },
        "http.ErrorResponse": {
            "type": "object",
            "properties": {
                "message": {
                    "type": "string"
                }
            }
        },
        "http.EventsResponse": {
            "type": "object",
            "properties": {
                "message": {
                    "type": "string"
                },
                "events": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/workflow.Envelope"
                    }
                }
            }
        },
        "http.LoginResponse": {
            "type": "object",
            "properties": {
                "access_token": {
                    "type": "string"
                },
                "token_type": {
                    "type": "string"
                },
                "expires_in": {
                    "type": "integer"
                },
                "events": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/workflow.Envelope"
                    }
                }
            }
        },
        "http.ReminderResponse": {
            "type": "object",
            "properties": {
                "reminder": {
                    "$ref": "#/definitions/entities.Reminder"
                },
                "events": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/workflow.Envelope"
                    }
                }
            }
        },
        "http.RemindersResponse": {
            "type": "object",
            "properties": {
                "reminders": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/entities.Reminder"
                    }
                },
                "events": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/workflow.Envelope"
                    }
                }
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "description": "Type \"Bearer\" followed by a space and JWT token.",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/api/v1",
	Schemes:          []string{"http"},
	Title:            "GeoMinder API",
	Description:      "Location reminders, point-of-interest selection and geofences",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
