package main

// General API documentation for swaggo. Run `swag init -g cmd/stemd/docs.go -o docs` to regenerate.
//
// @title           stemd API
// @version         1.0
// @description     HTTP API for local audio stem separation jobs.
//
// @contact.name   stemd maintainers
// @contact.url    https://github.com/your-org/stemd
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
