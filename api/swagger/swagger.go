package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Asrama API",
        "description": "Dormitory administration: rooms, residents, occupancy and resident services",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    },
    "tags": [
        {
            "name": "Rooms"
        },
        {
            "name": "Residents"
        },
        {
            "name": "Imports"
        },
        {
            "name": "Payments"
        },
        {
            "name": "Violations"
        },
        {
            "name": "Complaints"
        },
        {
            "name": "Announcements"
        },
        {
            "name": "Activities"
        },
        {
            "name": "Dashboard"
        },
        {
            "name": "Realtime"
        }
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Liveness check",
                "responses": {
                    "200": {
                        "description": "OK"
                    }
                }
            }
        },
        "/ready": {
            "get": {
                "summary": "Readiness check of store and cache",
                "responses": {
                    "200": {
                        "description": "Ready"
                    },
                    "503": {
                        "description": "Degraded"
                    }
                }
            }
        },
        "/metrics": {
            "get": {
                "summary": "Prometheus metrics",
                "produces": [
                    "text/plain"
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    }
                }
            }
        },
        "/api/v1/rooms": {
            "get": {
                "tags": [
                    "Rooms"
                ],
                "summary": "List rooms",
                "parameters": [
                    {
                        "name": "building",
                        "in": "query",
                        "type": "string"
                    },
                    {
                        "name": "available",
                        "in": "query",
                        "type": "boolean"
                    },
                    {
                        "name": "status",
                        "in": "query",
                        "type": "string",
                        "description": "AVAILABLE, FULL or UNDER_REPAIR"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/api/v1/rooms/{building}/{number}": {
            "get": {
                "tags": [
                    "Rooms"
                ],
                "summary": "Get room",
                "parameters": [
                    {
                        "name": "building",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "name": "number",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            },
            "patch": {
                "tags": [
                    "Rooms"
                ],
                "summary": "Update room capacity, status or notes",
                "parameters": [
                    {
                        "name": "building",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "name": "number",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/RoomUpdate"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/api/v1/rooms/reconcile": {
            "post": {
                "tags": [
                    "Rooms"
                ],
                "summary": "Recompute room occupancy now",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/api/v1/students": {
            "get": {
                "tags": [
                    "Residents"
                ],
                "summary": "List students",
                "parameters": [
                    {
                        "name": "search",
                        "in": "query",
                        "type": "string"
                    },
                    {
                        "name": "building",
                        "in": "query",
                        "type": "string"
                    },
                    {
                        "name": "room",
                        "in": "query",
                        "type": "string"
                    },
                    {
                        "name": "gender",
                        "in": "query",
                        "type": "string",
                        "description": "Laki-laki or Perempuan"
                    },
                    {
                        "name": "status",
                        "in": "query",
                        "type": "string",
                        "description": "LIVING or CHECKED_OUT"
                    },
                    {
                        "name": "page",
                        "in": "query",
                        "type": "integer"
                    },
                    {
                        "name": "limit",
                        "in": "query",
                        "type": "integer"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            },
            "post": {
                "tags": [
                    "Residents"
                ],
                "summary": "Register resident and assign a room",
                "parameters": [
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/CreateResidentRequest"
                        }
                    }
                ],
                "responses": {
                    "201": {
                        "description": "Created",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/api/v1/students/export": {
            "get": {
                "tags": [
                    "Residents"
                ],
                "summary": "Download roster as CSV",
                "parameters": [
                    {
                        "name": "search",
                        "in": "query",
                        "type": "string"
                    },
                    {
                        "name": "building",
                        "in": "query",
                        "type": "string"
                    },
                    {
                        "name": "room",
                        "in": "query",
                        "type": "string"
                    },
                    {
                        "name": "gender",
                        "in": "query",
                        "type": "string",
                        "description": "Laki-laki or Perempuan"
                    },
                    {
                        "name": "status",
                        "in": "query",
                        "type": "string",
                        "description": "LIVING or CHECKED_OUT"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "CSV file"
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "produces": [
                    "text/csv"
                ]
            }
        },
        "/api/v1/students/{nim}": {
            "get": {
                "tags": [
                    "Residents"
                ],
                "summary": "Get resident",
                "parameters": [
                    {
                        "name": "nim",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            },
            "put": {
                "tags": [
                    "Residents"
                ],
                "summary": "Update resident",
                "parameters": [
                    {
                        "name": "nim",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/UpdateResidentRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            },
            "delete": {
                "tags": [
                    "Residents"
                ],
                "summary": "Delete resident",
                "parameters": [
                    {
                        "name": "nim",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    }
                ],
                "responses": {
                    "204": {
                        "description": "No Content"
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/api/v1/students/{nim}/checkout": {
            "post": {
                "tags": [
                    "Residents"
                ],
                "summary": "Check resident out",
                "parameters": [
                    {
                        "name": "nim",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/api/v1/kasra": {
            "get": {
                "tags": [
                    "Residents"
                ],
                "summary": "List kasra",
                "parameters": [
                    {
                        "name": "search",
                        "in": "query",
                        "type": "string"
                    },
                    {
                        "name": "building",
                        "in": "query",
                        "type": "string"
                    },
                    {
                        "name": "room",
                        "in": "query",
                        "type": "string"
                    },
                    {
                        "name": "gender",
                        "in": "query",
                        "type": "string",
                        "description": "Laki-laki or Perempuan"
                    },
                    {
                        "name": "status",
                        "in": "query",
                        "type": "string",
                        "description": "LIVING or CHECKED_OUT"
                    },
                    {
                        "name": "page",
                        "in": "query",
                        "type": "integer"
                    },
                    {
                        "name": "limit",
                        "in": "query",
                        "type": "integer"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            },
            "post": {
                "tags": [
                    "Residents"
                ],
                "summary": "Register resident and assign a room",
                "parameters": [
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/CreateResidentRequest"
                        }
                    }
                ],
                "responses": {
                    "201": {
                        "description": "Created",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/api/v1/kasra/export": {
            "get": {
                "tags": [
                    "Residents"
                ],
                "summary": "Download roster as CSV",
                "parameters": [
                    {
                        "name": "search",
                        "in": "query",
                        "type": "string"
                    },
                    {
                        "name": "building",
                        "in": "query",
                        "type": "string"
                    },
                    {
                        "name": "room",
                        "in": "query",
                        "type": "string"
                    },
                    {
                        "name": "gender",
                        "in": "query",
                        "type": "string",
                        "description": "Laki-laki or Perempuan"
                    },
                    {
                        "name": "status",
                        "in": "query",
                        "type": "string",
                        "description": "LIVING or CHECKED_OUT"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "CSV file"
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "produces": [
                    "text/csv"
                ]
            }
        },
        "/api/v1/kasra/{nim}": {
            "get": {
                "tags": [
                    "Residents"
                ],
                "summary": "Get resident",
                "parameters": [
                    {
                        "name": "nim",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            },
            "put": {
                "tags": [
                    "Residents"
                ],
                "summary": "Update resident",
                "parameters": [
                    {
                        "name": "nim",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/UpdateResidentRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            },
            "delete": {
                "tags": [
                    "Residents"
                ],
                "summary": "Delete resident",
                "parameters": [
                    {
                        "name": "nim",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    }
                ],
                "responses": {
                    "204": {
                        "description": "No Content"
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/api/v1/kasra/{nim}/checkout": {
            "post": {
                "tags": [
                    "Residents"
                ],
                "summary": "Check resident out",
                "parameters": [
                    {
                        "name": "nim",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/api/v1/imports/students": {
            "post": {
                "tags": [
                    "Imports"
                ],
                "summary": "Bulk import students",
                "parameters": [
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "type": "array",
                            "items": {
                                "$ref": "#/definitions/CreateResidentRequest"
                            }
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/api/v1/imports/kasra": {
            "post": {
                "tags": [
                    "Imports"
                ],
                "summary": "Bulk import resident assistants",
                "parameters": [
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "type": "array",
                            "items": {
                                "$ref": "#/definitions/CreateResidentRequest"
                            }
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/api/v1/payments": {
            "get": {
                "tags": [
                    "Payments"
                ],
                "summary": "List payments",
                "parameters": [
                    {
                        "name": "nim",
                        "in": "query",
                        "type": "string"
                    },
                    {
                        "name": "status",
                        "in": "query",
                        "type": "string"
                    },
                    {
                        "name": "period",
                        "in": "query",
                        "type": "string"
                    },
                    {
                        "name": "page",
                        "in": "query",
                        "type": "integer"
                    },
                    {
                        "name": "limit",
                        "in": "query",
                        "type": "integer"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            },
            "post": {
                "tags": [
                    "Payments"
                ],
                "summary": "Submit payment",
                "parameters": [
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/CreatePaymentRequest"
                        }
                    }
                ],
                "responses": {
                    "201": {
                        "description": "Created",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/api/v1/payments/{id}": {
            "get": {
                "tags": [
                    "Payments"
                ],
                "summary": "Get payment",
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/api/v1/payments/{id}/verify": {
            "post": {
                "tags": [
                    "Payments"
                ],
                "summary": "Verify or reject a pending payment",
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/VerifyPaymentRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/api/v1/violations": {
            "get": {
                "tags": [
                    "Violations"
                ],
                "summary": "List violations",
                "parameters": [
                    {
                        "name": "nim",
                        "in": "query",
                        "type": "string"
                    },
                    {
                        "name": "category",
                        "in": "query",
                        "type": "string"
                    },
                    {
                        "name": "page",
                        "in": "query",
                        "type": "integer"
                    },
                    {
                        "name": "limit",
                        "in": "query",
                        "type": "integer"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            },
            "post": {
                "tags": [
                    "Violations"
                ],
                "summary": "Record a violation",
                "parameters": [
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/RecordViolationRequest"
                        }
                    }
                ],
                "responses": {
                    "201": {
                        "description": "Created",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/api/v1/violations/summary/{nim}": {
            "get": {
                "tags": [
                    "Violations"
                ],
                "summary": "Violation points for a resident",
                "parameters": [
                    {
                        "name": "nim",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/api/v1/violations/{id}": {
            "delete": {
                "tags": [
                    "Violations"
                ],
                "summary": "Delete violation",
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    }
                ],
                "responses": {
                    "204": {
                        "description": "No Content"
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/api/v1/complaints": {
            "get": {
                "tags": [
                    "Complaints"
                ],
                "summary": "List complaints",
                "parameters": [
                    {
                        "name": "nim",
                        "in": "query",
                        "type": "string"
                    },
                    {
                        "name": "status",
                        "in": "query",
                        "type": "string"
                    },
                    {
                        "name": "page",
                        "in": "query",
                        "type": "integer"
                    },
                    {
                        "name": "limit",
                        "in": "query",
                        "type": "integer"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            },
            "post": {
                "tags": [
                    "Complaints"
                ],
                "summary": "File a complaint",
                "parameters": [
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/CreateComplaintRequest"
                        }
                    }
                ],
                "responses": {
                    "201": {
                        "description": "Created",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/api/v1/complaints/{id}": {
            "get": {
                "tags": [
                    "Complaints"
                ],
                "summary": "Get complaint",
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/api/v1/complaints/{id}/status": {
            "patch": {
                "tags": [
                    "Complaints"
                ],
                "summary": "Move complaint forward",
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/UpdateComplaintStatusRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/api/v1/announcements": {
            "get": {
                "tags": [
                    "Announcements"
                ],
                "summary": "List announcements",
                "parameters": [
                    {
                        "name": "page",
                        "in": "query",
                        "type": "integer"
                    },
                    {
                        "name": "limit",
                        "in": "query",
                        "type": "integer"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            },
            "post": {
                "tags": [
                    "Announcements"
                ],
                "summary": "Create announcement",
                "parameters": [
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/AnnouncementRequest"
                        }
                    }
                ],
                "responses": {
                    "201": {
                        "description": "Created",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/api/v1/announcements/{id}": {
            "get": {
                "tags": [
                    "Announcements"
                ],
                "summary": "Get by id",
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            },
            "put": {
                "tags": [
                    "Announcements"
                ],
                "summary": "Update",
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/AnnouncementRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            },
            "delete": {
                "tags": [
                    "Announcements"
                ],
                "summary": "Delete",
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    }
                ],
                "responses": {
                    "204": {
                        "description": "No Content"
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/api/v1/activities": {
            "get": {
                "tags": [
                    "Activities"
                ],
                "summary": "List activities",
                "parameters": [
                    {
                        "name": "building",
                        "in": "query",
                        "type": "string"
                    },
                    {
                        "name": "from",
                        "in": "query",
                        "type": "string",
                        "description": "RFC3339"
                    },
                    {
                        "name": "to",
                        "in": "query",
                        "type": "string",
                        "description": "RFC3339"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            },
            "post": {
                "tags": [
                    "Activities"
                ],
                "summary": "Create activity",
                "parameters": [
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/ActivityRequest"
                        }
                    }
                ],
                "responses": {
                    "201": {
                        "description": "Created",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/api/v1/activities/{id}": {
            "get": {
                "tags": [
                    "Activities"
                ],
                "summary": "Get by id",
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            },
            "put": {
                "tags": [
                    "Activities"
                ],
                "summary": "Update",
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/ActivityRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            },
            "delete": {
                "tags": [
                    "Activities"
                ],
                "summary": "Delete",
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    }
                ],
                "responses": {
                    "204": {
                        "description": "No Content"
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/api/v1/dashboard/occupancy": {
            "get": {
                "tags": [
                    "Dashboard"
                ],
                "summary": "Occupancy per building",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/api/v1/changes/ws": {
            "get": {
                "tags": [
                    "Realtime"
                ],
                "summary": "Websocket stream of collection changes",
                "parameters": [
                    {
                        "name": "access_token",
                        "in": "query",
                        "type": "string"
                    }
                ],
                "responses": {
                    "101": {
                        "description": "Switching Protocols"
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        }
    },
    "definitions": {
        "RoomUpdate": {
            "type": "object",
            "properties": {
                "capacity": {
                    "type": "integer",
                    "minimum": 1,
                    "maximum": 20
                },
                "status": {
                    "type": "string",
                    "enum": [
                        "AVAILABLE",
                        "FULL",
                        "UNDER_REPAIR"
                    ]
                },
                "notes": {
                    "type": "string"
                }
            }
        },
        "CreateResidentRequest": {
            "type": "object",
            "properties": {
                "nim": {
                    "type": "string"
                },
                "name": {
                    "type": "string"
                },
                "gender": {
                    "type": "string",
                    "enum": [
                        "Laki-laki",
                        "Perempuan"
                    ]
                },
                "building": {
                    "type": "string"
                },
                "room_number": {
                    "type": "string"
                },
                "program": {
                    "type": "string"
                },
                "faculty": {
                    "type": "string"
                },
                "email": {
                    "type": "string"
                },
                "phone": {
                    "type": "string"
                },
                "check_in_date": {
                    "type": "string",
                    "format": "date-time"
                }
            },
            "required": [
                "nim",
                "name",
                "gender"
            ]
        },
        "UpdateResidentRequest": {
            "type": "object",
            "properties": {
                "name": {
                    "type": "string"
                },
                "gender": {
                    "type": "string",
                    "enum": [
                        "Laki-laki",
                        "Perempuan"
                    ]
                },
                "building": {
                    "type": "string"
                },
                "room_number": {
                    "type": "string"
                },
                "status": {
                    "type": "string",
                    "enum": [
                        "LIVING",
                        "CHECKED_OUT"
                    ]
                },
                "program": {
                    "type": "string"
                },
                "faculty": {
                    "type": "string"
                },
                "email": {
                    "type": "string"
                },
                "phone": {
                    "type": "string"
                },
                "check_in_date": {
                    "type": "string",
                    "format": "date-time"
                }
            },
            "required": [
                "name",
                "gender"
            ]
        },
        "CreatePaymentRequest": {
            "type": "object",
            "properties": {
                "nim": {
                    "type": "string"
                },
                "amount": {
                    "type": "integer"
                },
                "period": {
                    "type": "string",
                    "example": "2024-08"
                },
                "method": {
                    "type": "string"
                },
                "notes": {
                    "type": "string"
                }
            },
            "required": [
                "nim",
                "amount",
                "period",
                "method"
            ]
        },
        "VerifyPaymentRequest": {
            "type": "object",
            "properties": {
                "status": {
                    "type": "string",
                    "enum": [
                        "PAID",
                        "REJECTED"
                    ]
                },
                "notes": {
                    "type": "string"
                }
            },
            "required": [
                "status"
            ]
        },
        "RecordViolationRequest": {
            "type": "object",
            "properties": {
                "nim": {
                    "type": "string"
                },
                "category": {
                    "type": "string",
                    "enum": [
                        "RINGAN",
                        "SEDANG",
                        "BERAT"
                    ]
                },
                "description": {
                    "type": "string"
                },
                "points": {
                    "type": "integer"
                },
                "date": {
                    "type": "string",
                    "format": "date-time"
                }
            },
            "required": [
                "nim",
                "category",
                "description"
            ]
        },
        "CreateComplaintRequest": {
            "type": "object",
            "properties": {
                "nim": {
                    "type": "string",
                    "description": "Staff only"
                },
                "title": {
                    "type": "string"
                },
                "description": {
                    "type": "string"
                },
                "building": {
                    "type": "string"
                },
                "room_number": {
                    "type": "string"
                }
            },
            "required": [
                "title",
                "description"
            ]
        },
        "UpdateComplaintStatusRequest": {
            "type": "object",
            "properties": {
                "status": {
                    "type": "string",
                    "enum": [
                        "IN_PROGRESS",
                        "RESOLVED"
                    ]
                },
                "response": {
                    "type": "string"
                }
            },
            "required": [
                "status"
            ]
        },
        "AnnouncementRequest": {
            "type": "object",
            "properties": {
                "title": {
                    "type": "string"
                },
                "content": {
                    "type": "string"
                },
                "audience": {
                    "type": "string",
                    "enum": [
                        "ALL",
                        "STUDENT",
                        "KASRA"
                    ]
                },
                "pinned": {
                    "type": "boolean"
                },
                "published_at": {
                    "type": "string",
                    "format": "date-time"
                },
                "expires_at": {
                    "type": "string",
                    "format": "date-time"
                }
            },
            "required": [
                "title",
                "content",
                "audience"
            ]
        },
        "ActivityRequest": {
            "type": "object",
            "properties": {
                "title": {
                    "type": "string"
                },
                "description": {
                    "type": "string"
                },
                "location": {
                    "type": "string"
                },
                "building": {
                    "type": "string"
                },
                "starts_at": {
                    "type": "string",
                    "format": "date-time"
                },
                "ends_at": {
                    "type": "string",
                    "format": "date-time"
                }
            },
            "required": [
                "title",
                "location",
                "starts_at",
                "ends_at"
            ]
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {
                    "type": "integer"
                },
                "page_size": {
                    "type": "integer"
                },
                "total_count": {
                    "type": "integer"
                }
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {
                    "type": "string"
                },
                "message": {
                    "type": "string"
                },
                "status": {
                    "type": "integer"
                }
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {
                    "type": "object"
                },
                "error": {
                    "$ref": "#/definitions/APIError"
                },
                "pagination": {
                    "$ref": "#/definitions/Pagination"
                },
                "warnings": {
                    "type": "array",
                    "items": {
                        "type": "string"
                    }
                },
                "meta": {
                    "type": "object"
                }
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
