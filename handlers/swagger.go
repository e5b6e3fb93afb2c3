package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger registers minimal Swagger/OpenAPI endpoints.
// - GET /swagger/index.html  -> a small HTML page that loads the OpenAPI JSON
// - GET /swagger/doc.json    -> machine-readable OpenAPI JSON
func RegisterSwagger(rg *gin.Engine) {
	rg.GET("/swagger/index.html", func(c *gin.Context) {
		c.Header("Content-Type", "text/html; charset=utf-8")
		c.String(http.StatusOK, swaggerHTML)
	})

	rg.GET("/swagger/doc.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(swaggerJSON))
	})
}

const swaggerHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>docchat - Swagger</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@4/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@4/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '/swagger/doc.json',
        dom_id: '#swagger-ui',
      })
    </script>
  </body>
</html>`

const swaggerJSON = `{
  "openapi": "3.0.0",
  "info": { "title": "docchat", "version": "v1.0.0" },
  "components": {
    "securitySchemes": { "bearer": { "type": "http", "scheme": "bearer", "bearerFormat": "JWT" } },
    "schemas": {
      "Credentials": { "type": "object", "required": ["email", "password"], "properties": { "email": { "type": "string" }, "password": { "type": "string" } } },
      "Error": { "type": "object", "properties": { "detail": { "type": "string" } } }
    }
  },
  "paths": {
    "/auth/signup": {
      "post": {
        "summary": "Create an account",
        "requestBody": { "content": { "application/json": { "schema": { "$ref": "#/components/schemas/Credentials" } } } },
        "responses": { "200": { "description": "id and email" }, "409": { "description": "email already registered" }, "422": { "description": "validation error" } }
      }
    },
    "/auth/login": {
      "post": {
        "summary": "Exchange email and password for a bearer token",
        "requestBody": { "content": { "application/json": { "schema": { "$ref": "#/components/schemas/Credentials" } } } },
        "responses": { "200": { "description": "token and token_type" }, "401": { "description": "invalid credentials" }, "422": { "description": "malformed body" } }
      }
    },
    "/auth/logout": {
      "post": { "summary": "Revoke the current bearer token", "security": [{ "bearer": [] }], "responses": { "200": { "description": "logged out" }, "401": { "description": "unauthorized" } } }
    },
    "/document": {
      "get": { "summary": "Get the raw stored document", "security": [{ "bearer": [] }], "responses": { "200": { "description": "document or empty marker" }, "401": { "description": "unauthorized" }, "404": { "description": "user not found" } } },
      "put": {
        "summary": "Overwrite the raw stored document",
        "security": [{ "bearer": [] }],
        "requestBody": { "content": { "application/json": { "schema": { "type": "object", "properties": { "document": { "type": "string" } } } } } },
        "responses": { "200": { "description": "id, email and document" }, "401": { "description": "unauthorized" }, "422": { "description": "missing document" } }
      }
    },
    "/chat": {
      "get": { "summary": "Get the parsed document", "security": [{ "bearer": [] }], "responses": { "200": { "description": "data with file=true, or message with file=false" }, "401": { "description": "unauthorized" }, "404": { "description": "user not found" }, "500": { "description": "corrupt stored document" } } }
    },
    "/chat/upload": {
      "post": {
        "summary": "Upload a PDF, DOC or DOCX file",
        "security": [{ "bearer": [] }],
        "requestBody": { "content": { "multipart/form-data": { "schema": { "type": "object", "properties": { "file": { "type": "string", "format": "binary" } } } } } },
        "responses": { "200": { "description": "filename and data.message" }, "400": { "description": "unsupported type or too large" }, "401": { "description": "unauthorized" }, "422": { "description": "file missing" }, "500": { "description": "parse failure" } }
      }
    },
    "/chat/ask": {
      "post": {
        "summary": "Ask a question about the stored document",
        "security": [{ "bearer": [] }],
        "requestBody": { "content": { "application/json": { "schema": { "type": "object", "properties": { "question": { "type": "string" } } } } } },
        "responses": { "200": { "description": "answer" }, "401": { "description": "unauthorized" }, "404": { "description": "document is empty" }, "422": { "description": "question missing" } }
      }
    },
    "/chat/delete": {
      "delete": { "summary": "Delete the stored document", "security": [{ "bearer": [] }], "responses": { "200": { "description": "deleted" }, "401": { "description": "unauthorized" } } }
    },
    "/health": { "get": { "summary": "Liveness check", "responses": { "200": { "description": "healthy" } } } },
    "/ready": { "get": { "summary": "Readiness check", "responses": { "200": { "description": "ready" }, "503": { "description": "not ready" } } } },
    "/metrics": { "get": { "summary": "Prometheus metrics", "responses": { "200": { "description": "metrics" } } } }
  }
}`
