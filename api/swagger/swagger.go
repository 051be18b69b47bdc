package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Schedule Builder API",
        "description": "Timetable generation, validation and export service",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Schedules", "description": "Weekly timetable generation and lifecycle"},
        {"name": "Exports", "description": "Asynchronous timetable exports"}
    ],
    "paths": {
        "/schedules/generate": {
            "post": {
                "tags": ["Schedules"],
                "summary": "Generate a weekly schedule",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/GenerateScheduleRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "No lesson could be placed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/schedules/validate": {
            "post": {
                "tags": ["Schedules"],
                "summary": "Validate a schedule snapshot",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ValidateScheduleRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/schedules": {
            "get": {
                "tags": ["Schedules"],
                "summary": "List stored schedules",
                "parameters": [
                    {"name": "year", "in": "query", "type": "integer"},
                    {"name": "week", "in": "query", "type": "integer"},
                    {"name": "status", "in": "query", "type": "string", "enum": ["draft", "active", "archived"]},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "pageSize", "in": "query", "type": "integer"},
                    {"name": "sortBy", "in": "query", "type": "string"},
                    {"name": "sortOrder", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/schedules/{id}": {
            "get": {
                "tags": ["Schedules"],
                "summary": "Get a schedule with its lessons",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/schedules/{id}/validation": {
            "get": {
                "tags": ["Schedules"],
                "summary": "Validation report for a stored schedule",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/schedules/{id}/activate": {
            "post": {
                "tags": ["Schedules"],
                "summary": "Promote a schedule to active",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Already active", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "412": {"description": "Failed runs cannot be activated", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/schedules/{id}/archive": {
            "post": {
                "tags": ["Schedules"],
                "summary": "Archive a schedule",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Already archived", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/exports": {
            "post": {
                "tags": ["Exports"],
                "summary": "Queue a timetable export",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ExportRequest"}}
                ],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/exports/{id}": {
            "get": {
                "tags": ["Exports"],
                "summary": "Export job status",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/exports/download/{token}": {
            "get": {
                "tags": ["Exports"],
                "summary": "Download a finished export via signed token",
                "produces": ["application/octet-stream"],
                "parameters": [
                    {"name": "token", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "File stream"},
                    "403": {"description": "Invalid token", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "410": {"description": "Token expired", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "Schedule": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "year": {"type": "integer"},
                "week": {"type": "integer"},
                "version": {"type": "integer"},
                "status": {"type": "string", "enum": ["draft", "active", "archived"]},
                "generation_status": {"type": "string", "enum": ["success", "partial", "failed"]},
                "messages": {"type": "array", "items": {"type": "string"}},
                "conflicts_resolved": {"type": "integer"},
                "lessons": {"type": "array", "items": {"$ref": "#/definitions/Lesson"}},
                "created_at": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "Lesson": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "course_id": {"type": "string"},
                "subject_id": {"type": "string"},
                "teacher_id": {"type": "string"},
                "group_ids": {"type": "array", "items": {"type": "string"}},
                "day_of_week": {"type": "integer"},
                "start_time": {"type": "string"},
                "duration_minutes": {"type": "integer"},
                "version": {"type": "integer"}
            }
        },
        "RuleViolation": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "lesson_ids": {"type": "array", "items": {"type": "string"}}
            }
        },
        "ValidationResult": {
            "type": "object",
            "properties": {
                "is_valid": {"type": "boolean"},
                "violations": {"type": "array", "items": {"$ref": "#/definitions/RuleViolation"}}
            }
        },
        "GenerateScheduleRequest": {
            "type": "object",
            "properties": {
                "year": {"type": "integer"},
                "week": {"type": "integer"},
                "constraints": {"type": "object"}
            },
            "required": ["year", "week"]
        },
        "ValidateScheduleRequest": {
            "type": "object",
            "properties": {
                "lessons": {"type": "array", "items": {"$ref": "#/definitions/LessonPayload"}}
            },
            "required": ["lessons"]
        },
        "LessonPayload": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "courseId": {"type": "string"},
                "subjectId": {"type": "string"},
                "teacherId": {"type": "string"},
                "groupIds": {"type": "array", "items": {"type": "string"}},
                "dayOfWeek": {"type": "integer"},
                "startTime": {"type": "string"},
                "durationMinutes": {"type": "integer"},
                "version": {"type": "integer"}
            }
        },
        "ExportRequest": {
            "type": "object",
            "properties": {
                "scheduleId": {"type": "string"},
                "format": {"type": "string", "enum": ["csv", "pdf"]},
                "groupId": {"type": "string"},
                "teacherId": {"type": "string"}
            },
            "required": ["scheduleId", "format"]
        },
        "ExportStatusResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "scheduleId": {"type": "string"},
                "status": {"type": "string", "enum": ["QUEUED", "PROCESSING", "FINISHED", "FAILED"]},
                "resultUrl": {"type": "string"},
                "error": {"type": "string"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
