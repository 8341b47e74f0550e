package main

import (
	"log"
	"os"

	"github.com/geominder/core/cmd/api/commands"
)

// @title GeoMinder API
// @version 1.0
// @description Location reminders, point-of-interest selection and geofences

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	if err := commands.NewRootCommand().Execute(); err != nil {
		log.Printf("Command execution failed: %v", err)
		os.Exit(1)
	}
}
