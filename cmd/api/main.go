package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"teamTracker/internal/app"
	"teamTracker/internal/config"
	"teamTracker/internal/logger"
)

func main() {
	configPath := flag.String("config", "config.yml", "path to the YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := app.New(cfg)
	if err := a.Init(ctx); err != nil {
		return fmt.Errorf("init app: %w", err)
	}

	if err := a.Run(ctx); err != nil {
		logger.Error("Server stopped with error", err)
		return err
	}
	logger.Info("Server stopped")
	return nil
}
