// Package daemonrun assembles and runs the scrivo daemon process: session
// logging, pid file, queue store, pipeline collaborators, workflow manager,
// and the IPC control socket.
package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"scrivo/internal/analysis"
	"scrivo/internal/config"
	"scrivo/internal/daemon"
	"scrivo/internal/formatters"
	"scrivo/internal/ipc"
	"scrivo/internal/logging"
	"scrivo/internal/pipeline"
	"scrivo/internal/preflight"
	"scrivo/internal/queue"
	"scrivo/internal/ratelimit"
	"scrivo/internal/resultcache"
	"scrivo/internal/services/ffmpeg"
	"scrivo/internal/services/llm"
	"scrivo/internal/services/whisperx"
	"scrivo/internal/workflow"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
	// SocketPath overrides the control socket location. Empty means
	// scrivo.sock in the configured log directory.
	SocketPath string
}

// Run starts the scrivo daemon runtime loop and blocks until the context is
// canceled or a termination signal arrives.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runID := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("scrivo-%s.log", runID))

	level := strings.TrimSpace(opts.LogLevel)
	if level == "" {
		level = cfg.Logging.Level
	}
	logger, err := logging.New(logging.Options{
		Level:            level,
		Format:           cfg.Logging.Format,
		OutputPaths:      []string{"stdout", logPath},
		ErrorOutputPaths: []string{"stderr", logPath},
		Development:      opts.Development,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	logDependencySnapshot(logger, cfg)
	if err := ensureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update scrivod.log link: %v\n", err)
	}
	if removed := logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays,
		logging.RetentionTarget{Dir: cfg.Paths.LogDir, Pattern: "scrivo-*.log", Exclude: []string{logPath}},
	); removed > 0 {
		logger.Info("pruned old session logs",
			logging.String(logging.FieldEventType, "log_retention"),
			logging.Int("removed_count", removed))
	}

	pidPath := filepath.Join(cfg.Paths.LogDir, "scrivod.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	store, err := queue.Open(cfg)
	if err != nil {
		logger.Error("open queue store", logging.Error(err))
		return err
	}
	defer store.Close()

	processor, cache, err := buildProcessor(cfg, logger)
	if err != nil {
		return fmt.Errorf("assemble pipeline: %w", err)
	}

	managerOpts := []workflow.ManagerOption{}
	if cache != nil {
		managerOpts = append(managerOpts, workflow.WithCache(cache))
	}
	if cfg.Analysis.Enabled {
		analyzer, analyzerErr := buildAnalyzer(cfg, processor, logger)
		if analyzerErr != nil {
			logging.WarnWithContext(logger, "transcript analysis unavailable", "analysis_init_failed",
				logging.Error(analyzerErr),
				logging.String(logging.FieldImpact, "completed items will not receive analysis reports"),
				logging.String(logging.FieldErrorHint, "check the [analysis] section of the configuration"))
		} else {
			managerOpts = append(managerOpts, workflow.WithAnalyzer(analyzer))
		}
	}
	manager := workflow.NewManager(cfg, store, processor, logger, managerOpts...)

	d, err := daemon.New(cfg, store, logger, manager)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	socketPath := strings.TrimSpace(opts.SocketPath)
	if socketPath == "" {
		socketPath = filepath.Join(cfg.Paths.LogDir, "scrivo.sock")
	}
	ipcServer, err := ipc.NewServer(signalCtx, socketPath, d, logger)
	if err != nil {
		return fmt.Errorf("start IPC server: %w", err)
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	logPreflight(signalCtx, logger, cfg)

	if err := d.Start(signalCtx); err != nil {
		logger.Warn("daemon start failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "daemon_start_failed"),
			logging.String(logging.FieldErrorHint, "check configuration and queue database access"),
			logging.String(logging.FieldImpact, "daemon will not process queue items"),
		)
	}

	<-signalCtx.Done()
	logger.Info("scrivo daemon shutting down")
	return nil
}

func buildProcessor(cfg *config.Config, logger *slog.Logger) (*pipeline.Processor, *resultcache.Cache, error) {
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
			return nil, nil, fmt.Errorf("open result cache: %w", err)
		}
	}

	processor, err := pipeline.New(cfg, pipeline.Deps{
		Converter:   converter,
		Transcriber: transcriber,
		Formatters:  formatters.DefaultRegistry(cfg.Results.PrettyJSON),
		Cache:       cache,
		Limits:      ratelimit.NewRegistry(),
		Logger:      logger,
	})
	if err != nil {
		return nil, nil, err
	}
	return processor, cache, nil
}

func buildAnalyzer(cfg *config.Config, processor *pipeline.Processor, logger *slog.Logger) (*analysis.Analyzer, error) {
	llmCfg := cfg.AnalysisLLM()
	client := llm.NewClient(llm.Config{
		APIKey:         llmCfg.APIKey,
		BaseURL:        llmCfg.BaseURL,
		Model:          llmCfg.Model,
		TimeoutSeconds: llmCfg.TimeoutSeconds,
	})
	return analysis.New(cfg, client, processor.Token(), logger)
}

func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, "scrivod.log")
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logDependencySnapshot(logger *slog.Logger, cfg *config.Config) {
	if logger == nil || cfg == nil {
		return
	}
	ffmpegBin := cfg.FFmpegBinary()
	whisperxBin := cfg.WhisperXBinary()
	logger.Info("dependency snapshot",
		logging.String(logging.FieldEventType, "dependency_snapshot"),
		logging.Bool("ffmpeg_available", binaryAvailable(ffmpegBin)),
		logging.String("ffmpeg_binary", ffmpegBin),
		logging.Bool("whisperx_available", binaryAvailable(whisperxBin)),
		logging.String("whisperx_binary", whisperxBin),
		logging.Bool("analysis_enabled", cfg.Analysis.Enabled),
		logging.Bool("analysis_key_present", strings.TrimSpace(cfg.Analysis.APIKey) != ""),
		logging.Bool("ntfy_configured", strings.TrimSpace(cfg.Notifications.NtfyTopic) != ""),
		logging.Bool("watch_enabled", strings.TrimSpace(cfg.Paths.WatchDir) != ""),
	)
}

func logPreflight(ctx context.Context, logger *slog.Logger, cfg *config.Config) {
	results := preflight.RunAll(ctx, cfg)
	for _, result := range results {
		if result.Passed {
			continue
		}
		logging.WarnWithContext(logger, "preflight check failed", "preflight_failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
			logging.String(logging.FieldImpact, "processing may fail until this is resolved"),
			logging.String(logging.FieldErrorHint, "run `scrivo status` for the full preflight report"))
	}
	if preflight.AllPassed(results) {
		logger.Info("preflight checks passed",
			logging.String(logging.FieldEventType, "preflight_passed"),
			logging.Int("check_count", len(results)))
	}
}

func binaryAvailable(name string) bool {
	if strings.TrimSpace(name) == "" {
		return false
	}
	_, err := exec.LookPath(name)
	return err == nil
}
