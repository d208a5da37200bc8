package main

import (
	"fmt"
	"os"

	"taskflow/internal/config"
	"taskflow/internal/logging"
	"taskflow/internal/store"
	"taskflow/internal/ui"
)

func main() {
	cfg, err := config.LoadOrCreate(config.ResolveConfigPath())
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, logFile, err := logging.Open(cfg.LogPath, cfg.LogLevel)
	if err != nil {
		fmt.Printf("failed to open log file: %v\n", err)
		os.Exit(1)
	}
	defer logFile.Close()

	st, err := store.Open(store.Options{
		Latency: cfg.Latency(),
		Seed:    cfg.Seed,
		Logger:  logger,
	})
	if err != nil {
		fmt.Printf("failed to open store: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	logger.Info().Dur("latency", cfg.Latency()).Bool("seed", cfg.Seed).Msg("starting taskflow")

	if err := ui.Run(st, st, cfg, logger); err != nil {
		fmt.Printf("error running program: %v\n", err)
		os.Exit(1)
	}
}
