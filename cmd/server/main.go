package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/photocaption/internal/logging"
	"github.com/dmitrijs2005/photocaption/internal/server"
	"github.com/dmitrijs2005/photocaption/internal/server/config"
)

func main() {
	ctx := context.Background()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stdout)

	app, err := server.NewApp(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "startup failed", "error", err)
		os.Exit(1)
	}

	app.Run(ctx)
}
