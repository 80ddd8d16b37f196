// Package main Help Bot AI
//
//	@title			Help Bot AI Ops API
//	@version		1.0
//	@description	Operational API for the Drone Academy consultation bot: health, debug search and usage statistics
//
//	@host		localhost:8080
//	@BasePath	/
package main

import (
	"context"
	"log"

	_ "helpbot/docs" // swagger docs registration
	"helpbot/internal/server"
)

func main() {
	ctx := context.Background()

	app, err := server.NewApp(ctx)
	if err != nil {
		log.Fatalf("Failed to start: %v", err)
	}

	if err := app.Run(ctx); err != nil {
		log.Fatalf("Runtime error: %v", err)
	}
}
