package main

import (
	"strings"

	"scrivo/internal/config"
	"scrivo/internal/daemonrun"
)

// buildRunOptions resolves command-line overrides against configuration
// defaults. Empty overrides fall back to the configured values; the socket
// default is left to the daemon runtime so it lands in the log directory.
func buildRunOptions(cfg *config.Config, logLevel, socketPath string) daemonrun.Options {
	opts := daemonrun.Options{
		LogLevel:   strings.TrimSpace(logLevel),
		SocketPath: strings.TrimSpace(socketPath),
	}
	if opts.LogLevel == "" && cfg != nil {
		opts.LogLevel = cfg.Logging.Level
	}
	return opts
}
