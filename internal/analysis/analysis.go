// Package analysis turns finished transcripts into LLM-generated reports.
// Long transcripts are read chunkwise so lazily-wrapped results are never
// materialized; each chunk is prompted separately and the per-chunk outputs
// are joined into one report written next to the other transcript documents.
package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"scrivo/internal/cancel"
	"scrivo/internal/config"
	"scrivo/internal/logging"
	"scrivo/internal/pipeline"
	"scrivo/internal/services"
	"scrivo/internal/transcript"
)

// PlaceholderTranscription marks where the transcript text is substituted
// into a user prompt template.
const PlaceholderTranscription = "{transcription}"

const defaultSystemPrompt = `You are a meeting analyst. You receive a transcription of a recorded
conversation and produce a concise, well-structured report with these sections:
Summary, Key Points, Decisions, and Action Items (with owners when speakers
are labeled). Only state what the transcript supports.`

const defaultUserPromptTemplate = "Analyze the following transcription:\n" + PlaceholderTranscription

// Utterance chunks are capped regardless of configuration so a single prompt
// never grows past what the generation backend accepts.
const maxChunkUtterances = 100

// ReportSuffix is appended to the media file stem to name the report file.
const ReportSuffix = "_analysis.txt"

// Analyzer drives transcript analysis through a text generation service.
type Analyzer struct {
	cfg       *config.Config
	generator pipeline.TextGenerationService
	token     *cancel.Token
	logger    *slog.Logger
}

// New assembles an Analyzer. The generator is required; a nil token disables
// cooperative cancellation checks.
func New(cfg *config.Config, generator pipeline.TextGenerationService, token *cancel.Token, logger *slog.Logger) (*Analyzer, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "analysis", "new", "config is nil", nil)
	}
	if generator == nil {
		return nil, services.Wrap(services.ErrConfiguration, "analysis", "new", "text generation service is required", nil)
	}
	return &Analyzer{
		cfg:       cfg,
		generator: generator,
		token:     token,
		logger:    logging.NewComponentLogger(logger, "analysis"),
	}, nil
}

// Request adjusts one analysis run. Zero values fall back to the built-in
// prompts and the configured output directory.
type Request struct {
	// SystemPrompt primes the model.
	SystemPrompt string
	// UserPromptTemplate is the per-chunk prompt; occurrences of
	// PlaceholderTranscription are replaced with the chunk text. A template
	// without the placeholder gets the text appended.
	UserPromptTemplate string
	// OutputDir receives the report file.
	OutputDir string
	// Options tune the generation calls.
	Options pipeline.GenerationOptions
}

// Report is the outcome of one analysis run.
type Report struct {
	// Text is the combined analysis.
	Text string
	// Path is the written report file.
	Path string
	// Chunks is how many generation calls produced the report.
	Chunks int
}

// Analyze runs analysis over an in-memory result.
func (a *Analyzer) Analyze(ctx context.Context, result *transcript.Result, req Request) (*Report, error) {
	if result == nil || result.Empty() {
		return nil, services.Wrap(services.ErrValidation, "analysis", "input", "transcript is empty", nil)
	}
	// A result without utterances still has plain text to analyze in one shot.
	count := result.UtteranceCount()
	if count == 0 {
		count = 1
	}
	fullText := func() string {
		if len(result.Utterances) == 0 {
			return result.PlainText()
		}
		return formatChunk(result.Utterances)
	}
	chunkFn := func(start, size int) ([]transcript.Utterance, error) {
		if start >= len(result.Utterances) {
			return nil, nil
		}
		end := start + size
		if end > len(result.Utterances) {
			end = len(result.Utterances)
		}
		return result.Utterances[start:end], nil
	}
	return a.analyze(ctx, result.Source, count, fullText, chunkFn, req)
}

// AnalyzeLazy runs analysis over a lazy result, reading it chunk by chunk
// without materializing the whole transcript.
func (a *Analyzer) AnalyzeLazy(ctx context.Context, lazy *transcript.LazyResult, req Request) (*Report, error) {
	if lazy == nil || lazy.Count() == 0 {
		return nil, services.Wrap(services.ErrValidation, "analysis", "input", "transcript is empty", nil)
	}
	return a.analyze(ctx, lazy.Source(), lazy.Count(), nil, lazy.Chunk, req)
}

// AnalyzeOutcome dispatches on the result form carried by a pipeline outcome.
func (a *Analyzer) AnalyzeOutcome(ctx context.Context, outcome *pipeline.Outcome, req Request) (*Report, error) {
	if outcome == nil {
		return nil, services.Wrap(services.ErrValidation, "analysis", "input", "outcome is nil", nil)
	}
	if outcome.Lazy != nil {
		return a.AnalyzeLazy(ctx, outcome.Lazy, req)
	}
	return a.Analyze(ctx, outcome.Result, req)
}

// analyze is the shared chunk loop. fullText, when non-nil, supplies the
// single-prompt text for transcripts that fit in one chunk; otherwise the
// first chunk read serves.
func (a *Analyzer) analyze(ctx context.Context, source string, count int, fullText func() string, chunkFn func(start, size int) ([]transcript.Utterance, error), req Request) (*Report, error) {
	if err := a.checkCancelled(ctx); err != nil {
		return nil, err
	}

	systemPrompt := req.SystemPrompt
	if strings.TrimSpace(systemPrompt) == "" {
		systemPrompt = defaultSystemPrompt
	}
	template := req.UserPromptTemplate
	if strings.TrimSpace(template) == "" {
		template = defaultUserPromptTemplate
	}

	size := a.chunkSize()
	chunks := (count + size - 1) / size
	a.logger.Info("analyzing transcript",
		logging.String("source", source),
		logging.Int("utterances", count),
		logging.Int("chunks", chunks))

	var parts []string
	if chunks == 1 && fullText != nil {
		if err := a.checkCancelled(ctx); err != nil {
			return nil, err
		}
		output, err := a.generator.Generate(ctx, systemPrompt, renderPrompt(template, fullText()), req.Options)
		if err != nil {
			return nil, services.Wrap(services.ErrService, "analysis", "generate", "text generation failed", err)
		}
		parts = append(parts, output)
	} else {
		for i := 0; i < chunks; i++ {
			if err := a.checkCancelled(ctx); err != nil {
				return nil, err
			}
			utterances, err := chunkFn(i*size, size)
			if err != nil {
				return nil, services.Wrap(services.ErrService, "analysis", "read", "cannot read transcript chunk", err)
			}
			if len(utterances) == 0 {
				break
			}
			a.logger.Debug("analyzing chunk",
				logging.Int("chunk", i+1),
				logging.Int("chunks", chunks),
				logging.Int("utterances", len(utterances)))

			output, err := a.generator.Generate(ctx, systemPrompt, renderPrompt(template, formatChunk(utterances)), req.Options)
			if err != nil {
				// One bad chunk must not lose the rest of the report; the
				// failure is recorded inline at its position.
				logging.WarnWithContext(a.logger, "chunk analysis failed", "chunk_failed",
					logging.Int("chunk", i+1),
					logging.Error(err))
				output = fmt.Sprintf("[error processing this section: %v]", err)
			}
			parts = append(parts, output)
		}
	}

	text := strings.TrimSpace(strings.Join(parts, "\n"))
	if text == "" {
		return nil, services.Wrap(services.ErrService, "analysis", "generate", "text generation returned an empty result", nil)
	}

	path, err := a.writeReport(source, text, req.OutputDir)
	if err != nil {
		return nil, err
	}
	a.logger.Info("analysis complete",
		logging.String("path", path),
		logging.Int("chunks", len(parts)))
	return &Report{Text: text, Path: path, Chunks: len(parts)}, nil
}

// chunkSize returns the effective utterances-per-chunk.
func (a *Analyzer) chunkSize() int {
	size := a.cfg.Analysis.ChunkSize
	if size <= 0 || size > maxChunkUtterances {
		size = maxChunkUtterances
	}
	return size
}

// ReportPath returns where the report for source lands inside outputDir.
func ReportPath(source, outputDir string) string {
	stem := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	if stem == "" {
		stem = "transcript"
	}
	return filepath.Join(outputDir, stem+ReportSuffix)
}

func (a *Analyzer) writeReport(source, text, outputDir string) (string, error) {
	if outputDir == "" {
		outputDir = a.cfg.Paths.OutputDir
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", services.Wrap(services.ErrService, "analysis", "save", "cannot create output directory", err)
	}
	path := ReportPath(source, outputDir)
	if err := os.WriteFile(path, []byte(text+"\n"), 0o644); err != nil {
		return "", services.Wrap(services.ErrService, "analysis", "save", "cannot write analysis report", err)
	}
	return path, nil
}

func (a *Analyzer) checkCancelled(ctx context.Context) error {
	if a.token != nil {
		if err := a.token.Err(); err != nil {
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		return services.Wrap(services.ErrCancelled, "analysis", "context", "context cancelled", err)
	}
	return nil
}

// renderPrompt substitutes the transcript text into the template, appending
// it when the template carries no placeholder.
func renderPrompt(template, text string) string {
	if strings.Contains(template, PlaceholderTranscription) {
		return strings.ReplaceAll(template, PlaceholderTranscription, text)
	}
	return template + "\n\n" + text
}

// formatChunk renders utterances as speaker-prefixed lines.
func formatChunk(utterances []transcript.Utterance) string {
	lines := make([]string, 0, len(utterances))
	for _, u := range utterances {
		text := strings.TrimSpace(u.Text)
		if text == "" {
			continue
		}
		if u.Speaker != "" {
			lines = append(lines, u.Speaker+": "+text)
		} else {
			lines = append(lines, text)
		}
	}
	return strings.Join(lines, "\n")
}
