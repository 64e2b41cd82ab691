package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"scrivo/internal/config"
	"scrivo/internal/daemonrun"
)

func main() {
	var (
		configPath = flag.String("config", "", "configuration file path")
		socketPath = flag.String("socket", "", "control socket path override")
		logLevel   = flag.String("log-level", "", "log level override (debug, info, warn, error)")
	)
	flag.Parse()

	// Best effort: a missing .env is not an error.
	_ = godotenv.Load()

	cfg, resolved, exists, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if !exists {
		fmt.Fprintf(os.Stderr, "config file %s not found; using defaults\n", resolved)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("prepare directories: %v", err)
	}

	if err := daemonrun.Run(context.Background(), cfg, buildRunOptions(cfg, *logLevel, *socketPath)); err != nil {
		log.Fatalf("scrivod: %v", err)
	}
}
