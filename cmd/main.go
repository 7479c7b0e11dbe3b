package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"replayRecorder/internal/cli"
	"replayRecorder/internal/config"
	"replayRecorder/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := logger.New(cfg.Logger.Env, cfg.Logger.Level)
	if err != nil {
		panic(err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = cli.New(cfg, log).Run(ctx)
	cancel()
	_ = log.Sync()

	if err != nil {
		os.Exit(1)
	}
}
