// @title           Factory Scheduler API
// @version         1.0
// @description     Production scheduling API: conflict detection, schedule optimization, reassignment and maintenance tracking

// @contact.name   API Support
// @contact.email  support@example.com

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token from Keycloak
package main

import "github.com/Pushparaj13811/smart-factory-scheduler-sub000/cmd"

func main() {
	cmd.Execute()
}
