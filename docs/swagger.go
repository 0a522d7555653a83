package docs

import "github.com/swaggo/swag"

// @title           TodoFlow API
// @version         1.0
// @description     API for managing to-do tasks, sharing them between users, and streaming change events

// @contact.name   API Support
// @contact.email  support@todoflow.dev

// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT

// @host      localhost:8080
// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token

// @tag.name Users
// @tag.description User registration and authentication

// @tag.name Tasks
// @tag.description Task management operations

// @tag.name Task Sharing
// @tag.description Task sharing operations

// @tag.name Events
// @tag.description Realtime change event stream

// Register swagger info
func SwaggerInfo() *swag.Spec {
	return swag.Instance
}
