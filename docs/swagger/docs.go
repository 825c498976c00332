// Package swagger 注册 /swagger 页面使用的 OpenAPI 文档, 与 internal/handler 上的注解保持一致
package swagger

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
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "paths": {
        "/deposit": {
            "post": {
                "tags": ["Ledger"],
                "summary": "App 充值",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "description": "Bearer <oracle token>", "name": "Authorization", "in": "header", "required": true},
                    {"type": "string", "description": "yocto", "name": "X-Attached-Deposit", "in": "header", "required": true},
                    {"description": "Deposit Request", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/request.DepositRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}}}
            }
        },
        "/execute": {
            "post": {
                "tags": ["Relay"],
                "summary": "执行动作 (EVM)",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"description": "Execute Request", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/request.ExecuteRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}}}
            }
        },
        "/execute_native": {
            "post": {
                "tags": ["Relay"],
                "summary": "执行动作 (原生)",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"description": "Execute Native Request", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/request.ExecuteRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}}}
            }
        },
        "/bundles": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["Oracle"],
                "summary": "注册 Bundle",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"description": "Bundle Request", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/request.RegisterBundleRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}}}
            }
        },
        "/session_keys": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["Oracle"],
                "summary": "注册 Session Key",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"description": "Session Key Request", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/request.RegisterSessionKeyRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}}}
            }
        },
        "/bundles/{path}": {
            "get": {
                "tags": ["View"],
                "summary": "查询 Bundle",
                "produces": ["application/json"],
                "parameters": [{"type": "string", "name": "path", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}}}
            }
        },
        "/key_usage/{public_key}": {
            "get": {
                "tags": ["View"],
                "summary": "查询 session key 用量",
                "produces": ["application/json"],
                "parameters": [{"type": "string", "name": "public_key", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}}}
            }
        },
        "/balances/{app_id}": {
            "get": {
                "tags": ["View"],
                "summary": "查询 App 余额",
                "produces": ["application/json"],
                "parameters": [{"type": "string", "name": "app_id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}}}
            }
        },
        "/actions/{id}": {
            "get": {
                "tags": ["View"],
                "summary": "查询动作的签名流程状态",
                "produces": ["application/json"],
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}}}
            }
        }
    },
    "definitions": {
        "request.DepositRequest": {
            "type": "object",
            "required": ["app_id"],
            "properties": {"app_id": {"type": "string"}}
        },
        "request.ExecuteRequest": {
            "type": "object",
            "required": ["signature", "session_key"],
            "properties": {
                "signature": {"type": "string", "description": "base64 ed25519"},
                "payload": {"type": "object"},
                "session_key": {"type": "string"},
                "app_id": {"type": "string"}
            }
        },
        "request.RegisterBundleRequest": {
            "type": "object",
            "required": ["path"],
            "properties": {
                "path": {"type": "string"},
                "mpc_key": {"type": "string"},
                "eth_address": {"type": "string"}
            }
        },
        "request.RegisterSessionKeyRequest": {
            "type": "object",
            "required": ["public_key", "path"],
            "properties": {
                "public_key": {"type": "string"},
                "path": {"type": "string"},
                "app_id": {"type": "string"}
            }
        },
        "response.Response": {
            "type": "object",
            "properties": {
                "code": {"type": "integer"},
                "msg": {"type": "string"},
                "data": {}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Relay Core API",
	Description:      "Delegated signing relay: session keys, app balances, threshold-signed EVM transactions",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
