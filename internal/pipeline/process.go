// Package pipeline drives media files through validation, conversion,
// transcription, and persistence. The single-item orchestrator runs the
// stages strictly in order with a cancellation check before each one; the
// batch coordinator fans items out across a bounded worker pool.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"scrivo/internal/cancel"
	"scrivo/internal/config"
	"scrivo/internal/fileutil"
	"scrivo/internal/formatters"
	"scrivo/internal/logging"
	"scrivo/internal/media"
	"scrivo/internal/ratelimit"
	"scrivo/internal/resultcache"
	"scrivo/internal/services"
	"scrivo/internal/transcript"
)

// Stage names reported through ProgressFunc, in execution order.
const (
	StageValidate   = "validate"
	StageCache      = "cache"
	StageConvert    = "convert"
	StageTranscribe = "transcribe"
	StageWrap       = "wrap"
	StageSave       = "save"
	StageCacheWrite = "cache_write"
	StageCleanup    = "cleanup"
	StageComplete   = "complete"

	stageUnits = 8
)

// TranscriptionLimiter is the rate limiter name shared by every caller of
// the transcription backend.
const TranscriptionLimiter = "transcription"

// Deps are the collaborators a Processor is assembled from. Converter,
// Transcriber, and Formatters are required; the rest default to inert
// implementations.
type Deps struct {
	Converter   AudioConverter
	Transcriber TranscriptionService
	Formatters  *formatters.Registry
	Cache       *resultcache.Cache
	Limits      *ratelimit.Registry
	Token       *cancel.Token
	Logger      *slog.Logger
}

// Processor orchestrates the processing of media files.
type Processor struct {
	cfg         *config.Config
	converter   AudioConverter
	transcriber TranscriptionService
	formatters  *formatters.Registry
	cache       *resultcache.Cache
	limits      *ratelimit.Registry
	token       *cancel.Token
	logger      *slog.Logger
}

// New assembles a Processor from configuration and collaborators.
func New(cfg *config.Config, deps Deps) (*Processor, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "new", "config is nil", nil)
	}
	if deps.Converter == nil {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "new", "audio converter is required", nil)
	}
	if deps.Transcriber == nil {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "new", "transcription service is required", nil)
	}
	if deps.Formatters == nil {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "new", "formatter registry is required", nil)
	}
	if deps.Limits == nil {
		deps.Limits = ratelimit.NewRegistry()
	}
	if deps.Token == nil {
		deps.Token = cancel.New()
	}
	return &Processor{
		cfg:         cfg,
		converter:   deps.Converter,
		transcriber: deps.Transcriber,
		formatters:  deps.Formatters,
		cache:       deps.Cache,
		limits:      deps.Limits,
		token:       deps.Token,
		logger:      logging.NewComponentLogger(deps.Logger, "pipeline"),
	}, nil
}

// Token returns the cancellation token the processor checks at stage
// boundaries. Controllers request cancellation through it and reset it
// before starting a new logical operation.
func (p *Processor) Token() *cancel.Token {
	return p.token
}

// ProcessOptions adjust a single processing run. Zero values fall back to
// the configuration defaults.
type ProcessOptions struct {
	// OutputDir overrides the configured output directory.
	OutputDir string
	// Formats overrides the configured output formats.
	Formats []string
	// Force skips the cache lookup and always reprocesses.
	Force bool
	// KeepAudio keeps the intermediate converted audio file.
	KeepAudio bool
	// Language overrides the configured transcript language.
	Language string
	// Progress receives stage-by-stage progress updates.
	Progress ProgressFunc
}

// Outcome is the result of processing one input file.
type Outcome struct {
	// Input is the path as given by the caller.
	Input string
	// Source is the canonical absolute input path.
	Source string
	// Result holds the transcription when it fit in memory.
	Result *transcript.Result
	// Lazy holds the transcription when it exceeded the lazy threshold.
	// Callers own it and must Close.
	Lazy *transcript.LazyResult
	// FromCache marks an outcome served entirely from the result cache.
	FromCache bool
	// OutputPaths lists the documents written during the save stage.
	OutputPaths []string
	// AudioPath is the kept converted audio file, when requested.
	AudioPath string
	// Elapsed is the wall-clock processing time.
	Elapsed time.Duration
}

// UtteranceCount returns the utterance count of either result form.
func (o *Outcome) UtteranceCount() int {
	if o == nil {
		return 0
	}
	if o.Lazy != nil {
		return o.Lazy.Count()
	}
	return o.Result.UtteranceCount()
}

// Transcript materializes the transcription result regardless of form.
func (o *Outcome) Transcript() (*transcript.Result, error) {
	if o == nil {
		return nil, fmt.Errorf("outcome is nil")
	}
	if o.Lazy != nil {
		return o.Lazy.ToResult()
	}
	if o.Result == nil {
		return nil, fmt.Errorf("outcome has no result")
	}
	return o.Result, nil
}

// Close releases resources held by the outcome. Safe on nil and safe to
// call more than once.
func (o *Outcome) Close() error {
	if o == nil || o.Lazy == nil {
		return nil
	}
	return o.Lazy.Close()
}

// Process runs input through the full stage sequence and returns its
// outcome. Every stage is preceded by a cancellation check; a requested
// cancellation surfaces as a typed cancellation error and stops before the
// next stage's side effects.
func (p *Processor) Process(ctx context.Context, input string, opts ProcessOptions) (*Outcome, error) {
	started := time.Now()
	logger := logging.WithContext(ctx, p.logger).With(logging.String("input", input))

	report := func(stage string, current, total int) {
		if opts.Progress != nil {
			opts.Progress(stage, current, total)
		}
	}

	// Stage 1: validate.
	if err := p.checkCancelled(ctx, StageValidate); err != nil {
		return nil, err
	}
	report(StageValidate, 0, stageUnits)
	if err := media.ValidatePath(input, p.cfg.Input.AllowedExtensions); err != nil {
		return nil, p.fail(logger, input, services.Wrap(services.ErrValidation, StageValidate, "input", err.Error(), nil))
	}
	source, err := filepath.Abs(input)
	if err != nil {
		return nil, p.fail(logger, input, services.Wrap(services.ErrValidation, StageValidate, "resolve", "cannot resolve input path", err))
	}
	info, err := os.Stat(source)
	if err != nil {
		return nil, p.fail(logger, input, services.Wrap(services.ErrNotFound, StageValidate, "stat", "input file not found", err))
	}
	if info.IsDir() {
		return nil, p.fail(logger, input, services.Wrap(services.ErrValidation, StageValidate, "stat", "input is a directory", nil))
	}

	// Stage 2: cache lookup.
	if err := p.checkCancelled(ctx, StageCache); err != nil {
		return nil, err
	}
	report(StageCache, 1, stageUnits)
	if p.cacheEnabled() && !opts.Force {
		if cached, ok := p.cache.Get(source); ok {
			logger.Info("serving transcription from cache",
				logging.String("source", source),
				logging.Int("utterances", cached.UtteranceCount()))
			report(StageComplete, stageUnits, stageUnits)
			return &Outcome{
				Input:     input,
				Source:    source,
				Result:    cached,
				FromCache: true,
				Elapsed:   time.Since(started),
			}, nil
		}
	}

	// Stage 3: convert.
	if err := p.checkCancelled(ctx, StageConvert); err != nil {
		return nil, err
	}
	report(StageConvert, 2, stageUnits)
	if err := os.MkdirAll(p.cfg.Paths.WorkDir, 0o755); err != nil {
		return nil, p.fail(logger, input, services.Wrap(services.ErrService, StageConvert, "workdir", "cannot create work directory", err))
	}
	audioPath := filepath.Join(p.cfg.Paths.WorkDir, media.UniqueOutputName(source, p.cfg.Conversion.AudioFormat))
	if err := p.converter.Convert(ctx, source, audioPath); err != nil {
		if !services.IsTyped(err) {
			err = services.Wrap(services.ErrService, StageConvert, "audio", "audio conversion failed", err)
		}
		return nil, p.fail(logger, input, err)
	}
	audioInfo, err := os.Stat(audioPath)
	if err != nil {
		return nil, p.fail(logger, input, services.Wrap(services.ErrService, StageConvert, "audio", "converter produced no output", err))
	}

	keepAudio := opts.KeepAudio || p.cfg.Conversion.KeepAudio
	succeeded := false
	var lazy *transcript.LazyResult
	defer func() {
		if succeeded {
			return
		}
		if !keepAudio {
			p.removeAudio(logger, audioPath)
		}
		if lazy != nil {
			lazy.Close()
		}
	}()

	// Stage 4: transcribe.
	if err := p.checkCancelled(ctx, StageTranscribe); err != nil {
		return nil, err
	}
	report(StageTranscribe, 3, stageUnits)
	result, err := p.transcribe(ctx, logger, audioPath, audioInfo.Size(), opts, report)
	if err != nil {
		return nil, p.fail(logger, input, err)
	}
	if result.Empty() {
		return nil, p.fail(logger, input, services.Wrap(services.ErrTranscription, StageTranscribe, "result", "transcription produced no text", nil))
	}
	if result.Source == "" {
		result.Source = source
	}

	// Stage 5: wrap.
	if err := p.checkCancelled(ctx, StageWrap); err != nil {
		return nil, err
	}
	report(StageWrap, 4, stageUnits)
	if result.UtteranceCount() > p.cfg.Results.LazyThreshold {
		wrapped, wrapErr := transcript.NewLazyResult(result.Utterances, source, p.cfg.Paths.WorkDir)
		if wrapErr != nil {
			logging.WarnWithContext(logger, "lazy wrap failed, keeping result in memory", "lazy_wrap_failed",
				logging.Error(wrapErr),
				logging.Int("utterances", result.UtteranceCount()))
		} else {
			lazy = wrapped
		}
	}

	// Stage 6: persist.
	if err := p.checkCancelled(ctx, StageSave); err != nil {
		return nil, err
	}
	report(StageSave, 5, stageUnits)
	outputPaths, err := p.persist(source, result, opts)
	if err != nil {
		return nil, p.fail(logger, input, err)
	}

	// Stage 7: cache write, best-effort.
	if err := p.checkCancelled(ctx, StageCacheWrite); err != nil {
		return nil, err
	}
	report(StageCacheWrite, 6, stageUnits)
	if p.cacheEnabled() {
		p.cache.Set(source, result)
	}

	// Stage 8: cleanup, best-effort.
	if err := p.checkCancelled(ctx, StageCleanup); err != nil {
		return nil, err
	}
	report(StageCleanup, 7, stageUnits)
	if keepAudio {
		audioPath = p.relocateAudio(logger, audioPath, opts)
	} else {
		p.removeAudio(logger, audioPath)
	}

	report(StageComplete, stageUnits, stageUnits)
	succeeded = true

	outcome := &Outcome{
		Input:       input,
		Source:      source,
		OutputPaths: outputPaths,
		Elapsed:     time.Since(started),
	}
	if lazy != nil {
		outcome.Lazy = lazy
	} else {
		outcome.Result = result
	}
	if keepAudio {
		outcome.AudioPath = audioPath
	}

	logger.Info("processing complete",
		logging.String("source", source),
		logging.Int("utterances", outcome.UtteranceCount()),
		logging.Bool("lazy", lazy != nil),
		logging.Int("outputs", len(outputPaths)),
		logging.Duration("elapsed", outcome.Elapsed))
	return outcome, nil
}

// transcribe runs the sync or streaming path, consuming a rate limiter token
// first. Streaming is chosen for large converted files when enabled and the
// collaborator implements the capability.
func (p *Processor) transcribe(ctx context.Context, logger *slog.Logger, audioPath string, size int64, opts ProcessOptions, report ProgressFunc) (*transcript.Result, error) {
	tcfg := TranscribeConfig{
		Model:         p.cfg.Transcription.Model,
		Language:      p.cfg.Transcription.Language,
		SpeakerLabels: p.cfg.Transcription.SpeakerLabels,
	}
	if opts.Language != "" {
		tcfg.Language = opts.Language
	}

	limiter := p.limits.GetOrCreate(TranscriptionLimiter,
		p.cfg.Transcription.RateLimitTokens,
		time.Duration(p.cfg.Transcription.RateLimitPerSeconds)*time.Second,
		p.cfg.Transcription.RateLimitBurst)
	if !limiter.Consume(ctx, 1, true) {
		if ctx.Err() != nil {
			return nil, services.Wrap(services.ErrCancelled, StageTranscribe, "rate_limit", "cancelled while waiting for a transcription slot", ctx.Err())
		}
		return nil, services.Wrap(services.ErrService, StageTranscribe, "rate_limit", "transcription request rejected by rate limiter", nil)
	}

	streamer, canStream := p.transcriber.(StreamingTranscriptionService)
	useStreaming := canStream && p.cfg.Transcription.StreamingEnabled && size > p.cfg.LargeFileThresholdBytes()

	if !useStreaming {
		result, err := p.transcriber.Transcribe(ctx, audioPath, tcfg)
		if err != nil {
			if !services.IsTyped(err) {
				err = services.Wrap(services.ErrTranscription, StageTranscribe, "sync", "transcription failed", err)
			}
			return nil, err
		}
		return result, nil
	}

	logger.Info("streaming large file transcription",
		logging.Int64("bytes", size),
		logging.Int64("threshold_bytes", p.cfg.LargeFileThresholdBytes()))

	streamCtx, stopStream := context.WithCancel(ctx)
	defer stopStream()

	lastPoll := 0.0
	onProgress := func(percent float64, message string) {
		if percent < 0 {
			percent = 0
		}
		if percent > 100 {
			percent = 100
		}
		// Map the session's 0-100 into the transcribe stage band.
		report(StageTranscribe, 3*100+int(percent), stageUnits*100)
		if percent-lastPoll >= 10 {
			lastPoll = percent
			if p.token.IsRequested() {
				stopStream()
			}
		}
	}
	onPartial := func(text string) {
		logger.Debug("streaming partial transcript", logging.Int("chars", len(text)))
	}

	result, err := streamer.StreamFile(streamCtx, audioPath, p.cfg.Transcription.StreamingChunkSize, onPartial, onProgress, tcfg)
	if tokenErr := p.token.Err(); tokenErr != nil {
		return nil, tokenErr
	}
	if err != nil {
		if !services.IsTyped(err) {
			err = services.Wrap(services.ErrTranscription, StageTranscribe, "streaming", "streaming transcription failed", err)
		}
		return nil, err
	}
	return result, nil
}

// persist renders the result in every requested format and writes the
// documents to the output directory.
func (p *Processor) persist(source string, result *transcript.Result, opts ProcessOptions) ([]string, error) {
	outputDir := opts.OutputDir
	if outputDir == "" {
		outputDir = p.cfg.Paths.OutputDir
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrFormatting, StageSave, "outdir", "cannot create output directory", err)
	}

	formats := opts.Formats
	if len(formats) == 0 {
		formats = p.cfg.Results.Formats
	}

	paths := make([]string, 0, len(formats))
	for _, name := range formats {
		formatter, ok := p.formatters.Get(name)
		if !ok {
			return nil, services.Wrap(services.ErrFormatting, StageSave, "lookup", fmt.Sprintf("unknown output format %q", name), nil)
		}
		rendered, err := formatter.Format(result)
		if err != nil {
			if !services.IsTyped(err) {
				err = services.Wrap(services.ErrFormatting, StageSave, name, "formatting failed", err)
			}
			return nil, err
		}
		path := filepath.Join(outputDir, media.UniqueOutputName(source, formatter.Extension()))
		if err := os.WriteFile(path, []byte(rendered), 0o644); err != nil {
			return nil, services.Wrap(services.ErrFormatting, StageSave, name, "cannot write output file", err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func (p *Processor) cacheEnabled() bool {
	return p.cache != nil && p.cfg.Results.CacheEnabled
}

// checkCancelled enforces the stage-boundary cancellation contract for both
// the token and the context.
func (p *Processor) checkCancelled(ctx context.Context, stage string) error {
	if err := p.token.Err(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return services.Wrap(services.ErrCancelled, stage, "context", "context cancelled", err)
	}
	return nil
}

func (p *Processor) removeAudio(logger *slog.Logger, audioPath string) {
	if err := os.Remove(audioPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logging.WarnWithContext(logger, "failed to remove converted audio", "cleanup_failed",
			logging.String("path", audioPath),
			logging.Error(err),
			logging.String(logging.FieldImpact, "stale file left in work directory"))
	}
}

// relocateAudio moves kept audio out of the scratch directory so maintenance
// sweeps cannot reclaim it. Returns the final path; a failed move keeps the
// scratch path and warns rather than failing a completed transcription.
func (p *Processor) relocateAudio(logger *slog.Logger, audioPath string, opts ProcessOptions) string {
	outputDir := opts.OutputDir
	if outputDir == "" {
		outputDir = p.cfg.Paths.OutputDir
	}
	target := filepath.Join(outputDir, filepath.Base(audioPath))
	if target == audioPath {
		return audioPath
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		logging.WarnWithContext(logger, "kept audio stays in work directory", "keep_audio_failed",
			logging.String("path", audioPath),
			logging.Error(err),
			logging.String(logging.FieldImpact, "kept audio may be removed by the next maintenance sweep"))
		return audioPath
	}
	if err := fileutil.MoveFile(audioPath, target); err != nil {
		logging.WarnWithContext(logger, "kept audio stays in work directory", "keep_audio_failed",
			logging.String("path", audioPath),
			logging.Error(err),
			logging.String(logging.FieldImpact, "kept audio may be removed by the next maintenance sweep"))
		return audioPath
	}
	return target
}

// fail logs the error once with its user-facing message and hands the typed
// error back to the caller. Untyped errors keep their chain but gain the
// input for context.
func (p *Processor) fail(logger *slog.Logger, input string, err error) error {
	if !services.IsTyped(err) {
		err = fmt.Errorf("process %s: %w", filepath.Base(input), err)
	}
	logging.ErrorWithContext(logger, "processing failed", "processing_failed",
		logging.Error(err),
		logging.String("user_message", services.UserMessage(err, services.UserContext{FilePath: input})))
	return err
}
