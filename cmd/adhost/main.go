package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mahimeta/mahimeta-go-sdk/internal/app"
	"github.com/mahimeta/mahimeta-go-sdk/internal/config"
	"github.com/mahimeta/mahimeta-go-sdk/internal/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "adhost start failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.Init(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()

	logger.InfoObj("adhost starting", "config", cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	host, err := app.NewHost(ctx, cfg, log)
	if err != nil {
		logger.ErrorObj("failed to initialize host", "error", err.Error())
		return err
	}

	if err := host.Run(ctx); err != nil {
		return fmt.Errorf("host run: %w", err)
	}

	return nil
}
