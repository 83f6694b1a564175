package main

import (
	"context"
	"log"

	"github.com/dkorolev/slateboard/internal/server"
	"github.com/dkorolev/slateboard/internal/server/config"
)

func main() {
	cfg := config.LoadConfig()

	app, err := server.NewApp(context.Background(), cfg)
	if err != nil {
		log.Fatalf("startup failed: %v", err)
	}

	if err := app.Run(); err != nil {
		log.Fatalf("server stopped with error: %v", err)
	}
}
