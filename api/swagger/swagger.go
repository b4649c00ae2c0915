package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "School Dismissal API",
        "description": "Dismissal queue, check-ins and realtime pickup updates",
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
            "name": "Sessions",
            "description": "Daily dismissal sessions"
        },
        {
            "name": "Queue",
            "description": "Pickup queue transitions"
        },
        {
            "name": "Check-ins",
            "description": "Enrollment by app, car, bus or walker release"
        },
        {
            "name": "Change Requests",
            "description": "Same-day pickup changes"
        },
        {
            "name": "Realtime",
            "description": "Websocket subscriptions"
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
                "summary": "Readiness check",
                "responses": {
                    "200": {
                        "description": "Ready"
                    },
                    "503": {
                        "description": "Dependency unavailable"
                    }
                }
            }
        },
        "/api/v1/schools/{schoolId}/sessions/today": {
            "get": {
                "tags": [
                    "Sessions"
                ],
                "summary": "Get or create today's dismissal session",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "403": {
                        "description": "Forbidden",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "name": "schoolId",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    }
                ]
            }
        },
        "/api/v1/sessions/{id}": {
            "get": {
                "tags": [
                    "Sessions"
                ],
                "summary": "Get a dismissal session",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "404": {
                        "description": "Not found",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    }
                ]
            }
        },
        "/api/v1/sessions/{id}/status": {
            "patch": {
                "tags": [
                    "Sessions"
                ],
                "summary": "Change a session status",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "409": {
                        "description": "Invalid state",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
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
                            "$ref": "#/definitions/UpdateSessionStatusRequest"
                        }
                    }
                ]
            }
        },
        "/api/v1/sessions/{id}/queue": {
            "get": {
                "tags": [
                    "Queue"
                ],
                "summary": "List a session queue in position order",
                "security": [
                    {
                        "BearerAuth": []
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
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "name": "status",
                        "in": "query",
                        "type": "string"
                    }
                ]
            }
        },
        "/api/v1/sessions/{id}/queue/call-batch": {
            "post": {
                "tags": [
                    "Queue"
                ],
                "summary": "Call the next waiting entries",
                "security": [
                    {
                        "BearerAuth": []
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
                            "$ref": "#/definitions/CallBatchRequest"
                        }
                    }
                ]
            }
        },
        "/api/v1/sessions/{id}/stats": {
            "get": {
                "tags": [
                    "Queue"
                ],
                "summary": "Queue counts by status and average wait",
                "security": [
                    {
                        "BearerAuth": []
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
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    }
                ]
            }
        },
        "/api/v1/sessions/{id}/activity": {
            "get": {
                "tags": [
                    "Queue"
                ],
                "summary": "Newest activity rows of a session",
                "security": [
                    {
                        "BearerAuth": []
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
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "name": "limit",
                        "in": "query",
                        "type": "integer"
                    }
                ]
            }
        },
        "/api/v1/sessions/{id}/export": {
            "get": {
                "tags": [
                    "Sessions"
                ],
                "summary": "Download a session report",
                "produces": [
                    "text/csv",
                    "application/pdf"
                ],
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "name": "format",
                        "in": "query",
                        "type": "string",
                        "enum": [
                            "csv",
                            "pdf"
                        ]
                    }
                ],
                "responses": {
                    "200": {
                        "description": "Report file",
                        "schema": {
                            "type": "file"
                        }
                    }
                }
            }
        },
        "/api/v1/checkins/app": {
            "post": {
                "tags": [
                    "Check-ins"
                ],
                "summary": "Guardian check-in from the mobile app",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "responses": {
                    "201": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "200": {
                        "description": "Already submitted",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "404": {
                        "description": "No eligible students",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/AppCheckInRequest"
                        }
                    }
                ]
            }
        },
        "/api/v1/checkins/car": {
            "post": {
                "tags": [
                    "Check-ins"
                ],
                "summary": "Check in by car number",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "responses": {
                    "201": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "200": {
                        "description": "Already submitted",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "404": {
                        "description": "Unknown car number",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/CarCheckInRequest"
                        }
                    }
                ]
            }
        },
        "/api/v1/checkins/bus": {
            "post": {
                "tags": [
                    "Check-ins"
                ],
                "summary": "Check in every rider of a bus route",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "responses": {
                    "201": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "404": {
                        "description": "Unknown bus route",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/BusCheckInRequest"
                        }
                    }
                ]
            }
        },
        "/api/v1/checkins/walkers": {
            "post": {
                "tags": [
                    "Check-ins"
                ],
                "summary": "Release walkers",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "responses": {
                    "201": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/WalkerReleaseRequest"
                        }
                    }
                ]
            }
        },
        "/api/v1/queue/{id}/call": {
            "post": {
                "tags": [
                    "Queue"
                ],
                "summary": "Call one entry to a pickup zone",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "409": {
                        "description": "Invalid state",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
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
                        "required": false,
                        "schema": {
                            "$ref": "#/definitions/CallEntryRequest"
                        }
                    }
                ]
            }
        },
        "/api/v1/queue/{id}/release": {
            "post": {
                "tags": [
                    "Queue"
                ],
                "summary": "Release a waiting or called entry",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "409": {
                        "description": "Invalid state",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    }
                ]
            }
        },
        "/api/v1/queue/{id}/dismiss": {
            "post": {
                "tags": [
                    "Queue"
                ],
                "summary": "Confirm the student has left",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "403": {
                        "description": "Forbidden",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "409": {
                        "description": "Invalid state",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    }
                ]
            }
        },
        "/api/v1/queue/{id}/hold": {
            "post": {
                "tags": [
                    "Queue"
                ],
                "summary": "Hold an entry with a reason",
                "security": [
                    {
                        "BearerAuth": []
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
                            "$ref": "#/definitions/HoldEntryRequest"
                        }
                    }
                ]
            }
        },
        "/api/v1/queue/{id}/delay": {
            "post": {
                "tags": [
                    "Queue"
                ],
                "summary": "Delay an entry by the configured offset",
                "security": [
                    {
                        "BearerAuth": []
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
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    }
                ]
            }
        },
        "/api/v1/queue/release-batch": {
            "post": {
                "tags": [
                    "Queue"
                ],
                "summary": "Release many entries",
                "security": [
                    {
                        "BearerAuth": []
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
                "parameters": [
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/BatchEntriesRequest"
                        }
                    }
                ]
            }
        },
        "/api/v1/queue/dismiss-batch": {
            "post": {
                "tags": [
                    "Queue"
                ],
                "summary": "Dismiss many entries",
                "security": [
                    {
                        "BearerAuth": []
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
                "parameters": [
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/BatchEntriesRequest"
                        }
                    }
                ]
            }
        },
        "/api/v1/change-requests": {
            "get": {
                "tags": [
                    "Change Requests"
                ],
                "summary": "List change requests",
                "security": [
                    {
                        "BearerAuth": []
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
                "parameters": [
                    {
                        "name": "schoolId",
                        "in": "query",
                        "required": false,
                        "type": "string"
                    },
                    {
                        "name": "sessionId",
                        "in": "query",
                        "required": false,
                        "type": "string"
                    },
                    {
                        "name": "status",
                        "in": "query",
                        "required": false,
                        "type": "string"
                    }
                ]
            },
            "post": {
                "tags": [
                    "Change Requests"
                ],
                "summary": "Request a different pickup type for today",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "responses": {
                    "201": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "403": {
                        "description": "Forbidden",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/SubmitChangeRequest"
                        }
                    }
                ]
            }
        },
        "/api/v1/change-requests/{id}/resolve": {
            "post": {
                "tags": [
                    "Change Requests"
                ],
                "summary": "Approve or deny a pending change request",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "409": {
                        "description": "Already resolved",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
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
                            "$ref": "#/definitions/ResolveChangeRequest"
                        }
                    }
                ]
            }
        },
        "/api/v1/ws": {
            "get": {
                "tags": [
                    "Realtime"
                ],
                "summary": "Open a realtime subscription",
                "description": "Upgrade to a websocket, then send {\"type\":\"subscribe\",\"schoolId\",\"role\",\"homeroomId\"}.",
                "parameters": [
                    {
                        "name": "token",
                        "in": "query",
                        "required": false,
                        "type": "string"
                    }
                ],
                "responses": {
                    "101": {
                        "description": "Switching protocols"
                    },
                    "401": {
                        "description": "Unauthorized",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        }
    },
    "definitions": {
        "UpdateSessionStatusRequest": {
            "type": "object",
            "properties": {
                "status": {
                    "type": "string",
                    "enum": [
                        "pending",
                        "active",
                        "completed"
                    ]
                }
            },
            "required": [
                "status"
            ]
        },
        "CallEntryRequest": {
            "type": "object",
            "properties": {
                "zone": {
                    "type": "string"
                }
            }
        },
        "CallBatchRequest": {
            "type": "object",
            "properties": {
                "count": {
                    "type": "integer"
                },
                "zone": {
                    "type": "string"
                }
            },
            "required": [
                "count"
            ]
        },
        "HoldEntryRequest": {
            "type": "object",
            "properties": {
                "reason": {
                    "type": "string"
                }
            },
            "required": [
                "reason"
            ]
        },
        "BatchEntriesRequest": {
            "type": "object",
            "properties": {
                "entryIds": {
                    "type": "array",
                    "items": {
                        "type": "string"
                    }
                }
            },
            "required": [
                "entryIds"
            ]
        },
        "AppCheckInRequest": {
            "type": "object",
            "properties": {
                "schoolId": {
                    "type": "string"
                },
                "method": {
                    "type": "string",
                    "enum": [
                        "app",
                        "qr",
                        "sms"
                    ]
                }
            },
            "required": [
                "schoolId"
            ]
        },
        "CarCheckInRequest": {
            "type": "object",
            "properties": {
                "schoolId": {
                    "type": "string"
                },
                "carNumber": {
                    "type": "string"
                }
            },
            "required": [
                "schoolId",
                "carNumber"
            ]
        },
        "BusCheckInRequest": {
            "type": "object",
            "properties": {
                "schoolId": {
                    "type": "string"
                },
                "busNumber": {
                    "type": "string"
                }
            },
            "required": [
                "schoolId",
                "busNumber"
            ]
        },
        "WalkerReleaseRequest": {
            "type": "object",
            "properties": {
                "schoolId": {
                    "type": "string"
                },
                "grade": {
                    "type": "string"
                },
                "homeroomId": {
                    "type": "string"
                }
            },
            "required": [
                "schoolId"
            ]
        },
        "SubmitChangeRequest": {
            "type": "object",
            "properties": {
                "studentId": {
                    "type": "string"
                },
                "toType": {
                    "type": "string",
                    "enum": [
                        "car",
                        "bus",
                        "walker"
                    ]
                },
                "busRoute": {
                    "type": "string"
                },
                "note": {
                    "type": "string"
                }
            },
            "required": [
                "studentId",
                "toType"
            ]
        },
        "ResolveChangeRequest": {
            "type": "object",
            "properties": {
                "decision": {
                    "type": "string",
                    "enum": [
                        "approved",
                        "denied"
                    ]
                }
            },
            "required": [
                "decision"
            ]
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
