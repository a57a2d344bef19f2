package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/reviews": {
            "get": {
                "description": "Reviews are returned in the order they were submitted",
                "produces": ["application/json"],
                "tags": ["reviews"],
                "summary": "List reviews of a movie",
                "parameters": [
                    {
                        "type": "string",
                        "description": "Movie identifier ([A-Za-z0-9_]+)",
                        "name": "movieId",
                        "in": "query",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"$ref": "#/definitions/http.ReviewsResponse"}
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {"$ref": "#/definitions/http.StatusResponse"}
                    },
                    "500": {
                        "description": "Internal Server Error",
                        "schema": {"$ref": "#/definitions/http.StatusResponse"}
                    }
                }
            },
            "post": {
                "description": "Name and review text are trimmed and HTML-escaped; the timestamp is assigned by the server",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["reviews"],
                "summary": "Submit a review",
                "parameters": [
                    {
                        "description": "Review",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/ports.AddReviewRequest"}
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"$ref": "#/definitions/http.StatusResponse"}
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {"$ref": "#/definitions/http.StatusResponse"}
                    },
                    "500": {
                        "description": "Internal Server Error",
                        "schema": {"$ref": "#/definitions/http.StatusResponse"}
                    }
                }
            }
        }
    },
    "definitions": {
        "entities.Review": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "text": {"type": "string"},
                "timestamp": {"type": "string", "format": "date-time"}
            }
        },
        "http.ReviewsResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string", "example": "success"},
                "reviews": {
                    "type": "array",
                    "items": {"$ref": "#/definitions/entities.Review"}
                }
            }
        },
        "http.StatusResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string"},
                "message": {"type": "string"}
            }
        },
        "ports.AddReviewRequest": {
            "type": "object",
            "required": ["movieId", "name", "review"],
            "properties": {
                "movieId": {"type": "string", "example": "tt001"},
                "name": {"type": "string", "example": "Alice"},
                "review": {"type": "string", "example": "Great film"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/api/v1",
	Schemes:          []string{"http"},
	Title:            "CineReview API",
	Description:      "Per-movie review store",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
