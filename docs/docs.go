// Paperbound - Serial Fiction and Comic Publishing Platform
// Copyright 2026 Paperbound Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/paperbound/paperbound

// Package docs registers the OpenAPI document served at /swagger/doc.json.
//
// The document is maintained by hand alongside the handler annotations;
// regenerate with `swag init -g cmd/server/main.go` when the API surface
// changes.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {"name": "Paperbound Contributors", "url": "https://github.com/paperbound/paperbound"},
        "license": {"name": "AGPL-3.0-or-later"},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/auth/register": {
            "post": {
                "tags": ["auth"],
                "summary": "Register a new reader account",
                "parameters": [{"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/models.RegisterRequest"}}],
                "responses": {"201": {"description": "Created"}, "409": {"description": "Username or email taken"}}
            }
        },
        "/auth/login": {
            "post": {
                "tags": ["auth"],
                "summary": "Log in and receive a session cookie",
                "parameters": [{"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/models.LoginRequest"}}],
                "responses": {"200": {"description": "OK"}, "401": {"description": "Invalid credentials"}, "429": {"description": "Account locked"}}
            }
        },
        "/works": {
            "get": {
                "tags": ["works"],
                "summary": "Browse published works",
                "parameters": [
                    {"name": "kind", "in": "query", "type": "string", "enum": ["fiction", "comic"]},
                    {"name": "genre", "in": "query", "type": "string"},
                    {"name": "tag", "in": "query", "type": "string"},
                    {"name": "sort", "in": "query", "type": "string", "enum": ["updated", "rating", "bookmarks", "views", "newest"]},
                    {"name": "offset", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "tags": ["works"],
                "summary": "Create a draft work",
                "security": [{"SessionCookie": []}],
                "parameters": [{"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/models.CreateWorkRequest"}}],
                "responses": {"201": {"description": "Created"}, "403": {"description": "Author role required"}}
            }
        },
        "/works/{id}": {
            "get": {
                "tags": ["works"],
                "summary": "Get a work by id",
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not found"}}
            }
        },
        "/works/{id}/publish": {
            "post": {
                "tags": ["works"],
                "summary": "Publish a draft work",
                "security": [{"SessionCookie": []}],
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "responses": {"200": {"description": "OK"}, "409": {"description": "Archived works cannot be published"}}
            }
        },
        "/works/{id}/chapters": {
            "get": {
                "tags": ["chapters"],
                "summary": "List a work's chapters",
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "tags": ["chapters"],
                "summary": "Add a draft chapter",
                "security": [{"SessionCookie": []}],
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/models.CreateChapterRequest"}}
                ],
                "responses": {"201": {"description": "Created"}}
            }
        },
        "/chapters/{id}": {
            "get": {
                "tags": ["chapters"],
                "summary": "Read a chapter (tier-gated)",
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "responses": {"200": {"description": "OK"}, "403": {"description": "Tier too low"}, "404": {"description": "Not found"}}
            }
        },
        "/chapters/{id}/publish": {
            "post": {
                "tags": ["chapters"],
                "summary": "Publish or schedule a chapter",
                "security": [{"SessionCookie": []}],
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Schedule time in the past"}}
            }
        },
        "/chapters/{id}/comments": {
            "get": {
                "tags": ["comments"],
                "summary": "List chapter comments",
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "tags": ["comments"],
                "summary": "Comment on a chapter",
                "security": [{"SessionCookie": []}],
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/models.CreateCommentRequest"}}
                ],
                "responses": {"201": {"description": "Created"}}
            }
        },
        "/works/{id}/bookmark": {
            "put": {
                "tags": ["library"],
                "summary": "Bookmark a work",
                "security": [{"SessionCookie": []}],
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "responses": {"200": {"description": "OK"}}
            },
            "delete": {
                "tags": ["library"],
                "summary": "Remove a bookmark",
                "security": [{"SessionCookie": []}],
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/works/{id}/rating": {
            "put": {
                "tags": ["ratings"],
                "summary": "Rate a work",
                "security": [{"SessionCookie": []}],
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/models.RateWorkRequest"}}
                ],
                "responses": {"200": {"description": "Updated"}, "201": {"description": "Created"}}
            }
        },
        "/me/library": {
            "get": {
                "tags": ["library"],
                "summary": "List bookmarked works with reading progress",
                "security": [{"SessionCookie": []}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/me/notifications": {
            "get": {
                "tags": ["notifications"],
                "summary": "List notifications, unread first",
                "security": [{"SessionCookie": []}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/me/subscription": {
            "post": {
                "tags": ["membership"],
                "summary": "Start checkout for a paid tier",
                "security": [{"SessionCookie": []}],
                "parameters": [{"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/models.StartSubscriptionRequest"}}],
                "responses": {"201": {"description": "Checkout started"}, "503": {"description": "Billing disabled or provider down"}}
            },
            "delete": {
                "tags": ["membership"],
                "summary": "Cancel at period end",
                "security": [{"SessionCookie": []}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/search": {
            "get": {
                "tags": ["discovery"],
                "summary": "Search published works by title or author",
                "parameters": [{"name": "q", "in": "query", "type": "string", "required": true}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/admin/stats": {
            "get": {
                "tags": ["admin"],
                "summary": "Dashboard totals, signups, top works",
                "security": [{"SessionCookie": []}],
                "responses": {"200": {"description": "OK"}, "403": {"description": "Admin role required"}}
            }
        }
    },
    "definitions": {
        "models.RegisterRequest": {"type": "object", "properties": {"username": {"type": "string"}, "email": {"type": "string"}, "password": {"type": "string"}, "display_name": {"type": "string"}}},
        "models.LoginRequest": {"type": "object", "properties": {"username": {"type": "string"}, "password": {"type": "string"}, "remember_me": {"type": "boolean"}}},
        "models.CreateWorkRequest": {"type": "object", "properties": {"title": {"type": "string"}, "kind": {"type": "string"}, "summary": {"type": "string"}, "genres": {"type": "array", "items": {"type": "string"}}, "tags": {"type": "array", "items": {"type": "string"}}, "min_tier": {"type": "string"}}},
        "models.CreateChapterRequest": {"type": "object", "properties": {"title": {"type": "string"}, "body": {"type": "string"}, "min_tier": {"type": "string"}}},
        "models.CreateCommentRequest": {"type": "object", "properties": {"body": {"type": "string"}, "parent_id": {"type": "string"}}},
        "models.RateWorkRequest": {"type": "object", "properties": {"score": {"type": "integer"}, "review": {"type": "string"}}},
        "models.StartSubscriptionRequest": {"type": "object", "properties": {"tier": {"type": "string", "enum": ["supporter", "premium"]}}}
    },
    "securityDefinitions": {
        "SessionCookie": {"type": "apiKey", "name": "paperbound_token", "in": "cookie"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Paperbound API",
	Description:      "Serial fiction and comic publishing platform with bookmarks, tier-gated chapters, and live release notifications.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
