package main

import (
	"context"
	"errors"
	"flag"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/gglang/the-voices-sub000/internal/app"
	"github.com/gglang/the-voices-sub000/internal/telemetry"
)

func main() {
	envFile := flag.String("env", ".env", "dotenv file to load before reading the environment")
	addr := flag.String("addr", "", "listen address, overrides LISTEN_ADDR")
	seed := flag.String("seed", "", "simulation seed, overrides SIM_SEED")
	flag.Parse()

	envErr := godotenv.Load(*envFile)

	cfg, err := app.ConfigFromEnv()
	logger := telemetry.NewLogrus(cfg.Logger)
	if envErr != nil && !errors.Is(envErr, fs.ErrNotExist) {
		logger.WithError(envErr).Warnf("could not load %s", *envFile)
	}
	if err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}
	if *addr != "" {
		cfg.ListenAddr = *addr
	}
	if *seed != "" {
		cfg.Seed = *seed
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, cfg, logger); err != nil {
		logger.WithError(err).Fatal("server exited")
	}
}
