package main

import (
	"context"
	"log"

	"jobflow/internal/app"
	"jobflow/internal/config"
)

func main() {
	logger := log.Default()
	app.LoadDotenv(logger)

	cfg, err := config.LoadAPI()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	f, cleanup, err := app.BuildAPI(context.Background(), cfg, logger)
	if err != nil {
		log.Fatalf("failed to bootstrap api: %v", err)
	}

	if err := app.Serve(f, cfg.App.HTTPPort, cleanup, logger); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
