package main

import (
	"fmt"
	"log/slog"

	"scrivo/internal/analysis"
	"scrivo/internal/config"
	"scrivo/internal/formatters"
	"scrivo/internal/logging"
	"scrivo/internal/pipeline"
	"scrivo/internal/ratelimit"
	"scrivo/internal/resultcache"
	"scrivo/internal/services/ffmpeg"
	"scrivo/internal/services/llm"
	"scrivo/internal/services/whisperx"
)

// newRunLogger builds a console logger for one-off pipeline runs. Logs go to
// stderr so command output stays pipeable; progress lines are the user-facing
// signal unless --verbose asks for the full stream.
func newRunLogger(verbose bool) (*slog.Logger, error) {
	level := "warn"
	if verbose {
		level = "debug"
	}
	return logging.New(logging.Options{
		Level:            level,
		Format:           "console",
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	})
}

// buildRunProcessor assembles the same pipeline the daemon runs, wired from
// configuration: ffmpeg conversion, WhisperX transcription, the formatter
// registry, and the result cache when enabled.
func buildRunProcessor(cfg *config.Config, logger *slog.Logger) (*pipeline.Processor, error) {
	converter := ffmpeg.NewService(ffmpeg.Config{
		Binary:       cfg.FFmpegBinary(),
		AudioFormat:  cfg.Conversion.AudioFormat,
		AudioBitrate: cfg.Conversion.AudioBitrate,
		SampleRate:   cfg.Conversion.SampleRate,
	})
	transcriber := whisperx.NewService(whisperx.Config{
		Binary:  cfg.WhisperXBinary(),
		Model:   cfg.Transcription.Model,
		WorkDir: cfg.Paths.WorkDir,
	})

	var cache *resultcache.Cache
	if cfg.Results.CacheEnabled {
		var err error
		cache, err = resultcache.New(cfg.Paths.CacheDir, logger)
		if err != nil {
			return nil, fmt.Errorf("open result cache: %w", err)
		}
	}

	return pipeline.New(cfg, pipeline.Deps{
		Converter:   converter,
		Transcriber: transcriber,
		Formatters:  formatters.DefaultRegistry(cfg.Results.PrettyJSON),
		Cache:       cache,
		Limits:      ratelimit.NewRegistry(),
		Logger:      logger,
	})
}

// buildRunAnalyzer wires the LLM client and analyzer for a one-off run.
func buildRunAnalyzer(cfg *config.Config, processor *pipeline.Processor, logger *slog.Logger) (*analysis.Analyzer, error) {
	llmCfg := cfg.AnalysisLLM()
	client := llm.NewClient(llm.Config{
		APIKey:         llmCfg.APIKey,
		BaseURL:        llmCfg.BaseURL,
		Model:          llmCfg.Model,
		TimeoutSeconds: llmCfg.TimeoutSeconds,
	})
	return analysis.New(cfg, client, processor.Token(), logger)
}
