package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"scrivo/internal/cancel"
	"scrivo/internal/config"
	"scrivo/internal/formatters"
	"scrivo/internal/logging"
	"scrivo/internal/ratelimit"
	"scrivo/internal/resultcache"
	"scrivo/internal/services"
	"scrivo/internal/transcript"
)

type fakeConverter struct {
	mu     sync.Mutex
	calls  []string
	failOn map[string]bool
	output []byte
}

func (f *fakeConverter) Convert(ctx context.Context, inputPath, outputPath string) error {
	f.mu.Lock()
	f.calls = append(f.calls, inputPath)
	fail := f.failOn[filepath.Base(inputPath)]
	f.mu.Unlock()

	if fail {
		return errors.New("codec exploded")
	}
	output := f.output
	if output == nil {
		output = []byte("fake audio bytes")
	}
	return os.WriteFile(outputPath, output, 0o644)
}

func (f *fakeConverter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeTranscriber struct {
	mu         sync.Mutex
	calls      int
	utterances int
	err        error
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, audioPath string, cfg TranscribeConfig) (*transcript.Result, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}
	return buildResult(f.utterances), nil
}

func (f *fakeTranscriber) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeStreamer struct {
	fakeTranscriber
	mu          sync.Mutex
	streamCalls int
	maxPercent  float64
	hook        func(percent float64)
}

func (f *fakeStreamer) StreamFile(ctx context.Context, audioPath string, chunkSize int, onPartial func(string), onProgress func(float64, string), cfg TranscribeConfig) (*transcript.Result, error) {
	f.mu.Lock()
	f.streamCalls++
	f.mu.Unlock()

	for _, percent := range []float64{0, 25, 50, 75, 100} {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		onProgress(percent, "chunk")
		f.mu.Lock()
		if percent > f.maxPercent {
			f.maxPercent = percent
		}
		f.mu.Unlock()
		if f.hook != nil {
			f.hook(percent)
		}
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	onPartial("partial text")
	return buildResult(f.utterances), nil
}

func buildResult(utterances int) *transcript.Result {
	if utterances <= 0 {
		utterances = 2
	}
	result := &transcript.Result{}
	for i := 0; i < utterances; i++ {
		result.Utterances = append(result.Utterances, transcript.Utterance{
			Speaker: fmt.Sprintf("S%d", i%2+1),
			Text:    fmt.Sprintf("utterance %d", i),
			Start:   float64(i),
			End:     float64(i) + 0.5,
		})
	}
	result.Text = transcript.JoinUtterances(result.Utterances)
	return result
}

func newTestConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Paths.OutputDir = t.TempDir()
	cfg.Paths.CacheDir = t.TempDir()
	cfg.Paths.WorkDir = t.TempDir()
	cfg.Paths.LogDir = t.TempDir()
	cfg.Transcription.RateLimitTokens = 100
	cfg.Transcription.RateLimitPerSeconds = 1
	cfg.Transcription.RateLimitBurst = 100
	return &cfg
}

func newTestProcessor(t *testing.T, cfg *config.Config, converter AudioConverter, transcriber TranscriptionService) *Processor {
	t.Helper()
	cache, err := resultcache.New(cfg.Paths.CacheDir, logging.NewNop())
	if err != nil {
		t.Fatalf("create cache: %v", err)
	}
	processor, err := New(cfg, Deps{
		Converter:   converter,
		Transcriber: transcriber,
		Formatters:  formatters.DefaultRegistry(true),
		Cache:       cache,
		Limits:      ratelimit.NewRegistry(),
		Token:       cancel.New(),
		Logger:      logging.NewNop(),
	})
	if err != nil {
		t.Fatalf("create processor: %v", err)
	}
	return processor
}

func writeInput(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("media content for "+name), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}
	return path
}

func TestProcessWritesRequestedOutputs(t *testing.T) {
	cfg := newTestConfig(t)
	converter := &fakeConverter{}
	transcriber := &fakeTranscriber{}
	processor := newTestProcessor(t, cfg, converter, transcriber)
	input := writeInput(t, "meeting.mp4")

	var fractions []float64
	outcome, err := processor.Process(context.Background(), input, ProcessOptions{
		Formats: []string{"txt", "json"},
		Progress: func(stage string, current, total int) {
			fractions = append(fractions, float64(current)/float64(total))
		},
	})
	if err != nil {
		t.Fatalf("Process returned error: %v", err)
	}
	defer outcome.Close()

	if outcome.FromCache {
		t.Fatal("first run should not come from cache")
	}
	if got, want := len(outcome.OutputPaths), 2; got != want {
		t.Fatalf("OutputPaths = %v, want %d entries", outcome.OutputPaths, want)
	}
	for _, path := range outcome.OutputPaths {
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("output file missing: %v", err)
		}
		if len(data) == 0 {
			t.Fatalf("output file %s is empty", path)
		}
	}
	txt, err := os.ReadFile(outcome.OutputPaths[0])
	if err != nil {
		t.Fatalf("read txt output: %v", err)
	}
	if !strings.Contains(string(txt), "S1: utterance 0") {
		t.Fatalf("txt output missing speaker line:\n%s", txt)
	}

	for i := 1; i < len(fractions); i++ {
		if fractions[i] < fractions[i-1] {
			t.Fatalf("progress regressed at %d: %v", i, fractions)
		}
	}
	if fractions[len(fractions)-1] != 1.0 {
		t.Fatalf("final progress = %v, want 1.0", fractions[len(fractions)-1])
	}

	entries, err := os.ReadDir(cfg.Paths.WorkDir)
	if err != nil {
		t.Fatalf("read work dir: %v", err)
	}
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), "."+cfg.Conversion.AudioFormat) {
			t.Fatalf("converted audio %s should be cleaned up", entry.Name())
		}
	}
}

func TestProcessCacheIdempotence(t *testing.T) {
	cfg := newTestConfig(t)
	converter := &fakeConverter{}
	transcriber := &fakeTranscriber{}
	processor := newTestProcessor(t, cfg, converter, transcriber)
	input := writeInput(t, "meeting.mp4")

	first, err := processor.Process(context.Background(), input, ProcessOptions{})
	if err != nil {
		t.Fatalf("first Process returned error: %v", err)
	}
	defer first.Close()

	second, err := processor.Process(context.Background(), input, ProcessOptions{})
	if err != nil {
		t.Fatalf("second Process returned error: %v", err)
	}
	defer second.Close()

	if got, want := transcriber.callCount(), 1; got != want {
		t.Fatalf("transcriber calls = %d, want %d", got, want)
	}
	if !second.FromCache {
		t.Fatal("second run should be served from cache")
	}
	if first.Result.Text != second.Result.Text {
		t.Fatalf("cached text %q differs from original %q", second.Result.Text, first.Result.Text)
	}
}

func TestProcessForceBypassesCache(t *testing.T) {
	cfg := newTestConfig(t)
	converter := &fakeConverter{}
	transcriber := &fakeTranscriber{}
	processor := newTestProcessor(t, cfg, converter, transcriber)
	input := writeInput(t, "meeting.mp4")

	if _, err := processor.Process(context.Background(), input, ProcessOptions{}); err != nil {
		t.Fatalf("first Process returned error: %v", err)
	}
	outcome, err := processor.Process(context.Background(), input, ProcessOptions{Force: true})
	if err != nil {
		t.Fatalf("forced Process returned error: %v", err)
	}
	defer outcome.Close()

	if outcome.FromCache {
		t.Fatal("forced run should not be served from cache")
	}
	if got, want := transcriber.callCount(), 2; got != want {
		t.Fatalf("transcriber calls = %d, want %d", got, want)
	}
}

func TestProcessCancellationStopsBeforeNextStage(t *testing.T) {
	cfg := newTestConfig(t)
	converter := &fakeConverter{}
	transcriber := &fakeTranscriber{}
	processor := newTestProcessor(t, cfg, converter, transcriber)
	input := writeInput(t, "meeting.mp4")

	_, err := processor.Process(context.Background(), input, ProcessOptions{
		Progress: func(stage string, current, total int) {
			if stage == StageConvert {
				processor.Token().Request("test cancel")
			}
		},
	})
	if err == nil {
		t.Fatal("expected cancellation error")
	}
	if !errors.Is(err, services.ErrCancelled) {
		t.Fatalf("error = %v, want ErrCancelled", err)
	}
	if got, want := converter.callCount(), 1; got != want {
		t.Fatalf("converter calls = %d, want %d (its own stage had started)", got, want)
	}
	if got, want := transcriber.callCount(), 0; got != want {
		t.Fatalf("transcriber calls = %d, want %d (next stage must not run)", got, want)
	}
}

func TestProcessRejectsDisallowedExtension(t *testing.T) {
	cfg := newTestConfig(t)
	converter := &fakeConverter{}
	processor := newTestProcessor(t, cfg, converter, &fakeTranscriber{})

	_, err := processor.Process(context.Background(), "notes.txt", ProcessOptions{})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("error = %v, want ErrValidation", err)
	}
	if converter.callCount() != 0 {
		t.Fatal("converter must not run for invalid input")
	}
}

func TestProcessRejectsSuspiciousPath(t *testing.T) {
	cfg := newTestConfig(t)
	processor := newTestProcessor(t, cfg, &fakeConverter{}, &fakeTranscriber{})

	_, err := processor.Process(context.Background(), "../escape.mp4", ProcessOptions{})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("error = %v, want ErrValidation", err)
	}
}

func TestProcessMissingFile(t *testing.T) {
	cfg := newTestConfig(t)
	processor := newTestProcessor(t, cfg, &fakeConverter{}, &fakeTranscriber{})

	_, err := processor.Process(context.Background(), filepath.Join(t.TempDir(), "ghost.mp4"), ProcessOptions{})
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}

func TestProcessConversionFailureIsServiceError(t *testing.T) {
	cfg := newTestConfig(t)
	converter := &fakeConverter{failOn: map[string]bool{"meeting.mp4": true}}
	transcriber := &fakeTranscriber{}
	processor := newTestProcessor(t, cfg, converter, transcriber)
	input := writeInput(t, "meeting.mp4")

	_, err := processor.Process(context.Background(), input, ProcessOptions{})
	if !errors.Is(err, services.ErrService) {
		t.Fatalf("error = %v, want ErrService", err)
	}
	if transcriber.callCount() != 0 {
		t.Fatal("transcriber must not run after conversion failure")
	}
}

func TestProcessEmptyTranscriptIsTranscriptionError(t *testing.T) {
	cfg := newTestConfig(t)
	processor := newTestProcessor(t, cfg, &fakeConverter{}, emptyTranscriber{})
	input := writeInput(t, "meeting.mp4")

	_, err := processor.Process(context.Background(), input, ProcessOptions{})
	if !errors.Is(err, services.ErrTranscription) {
		t.Fatalf("error = %v, want ErrTranscription", err)
	}
}

type emptyTranscriber struct{}

func (emptyTranscriber) Transcribe(context.Context, string, TranscribeConfig) (*transcript.Result, error) {
	return &transcript.Result{}, nil
}

func TestProcessUnknownFormatIsFormattingError(t *testing.T) {
	cfg := newTestConfig(t)
	processor := newTestProcessor(t, cfg, &fakeConverter{}, &fakeTranscriber{})
	input := writeInput(t, "meeting.mp4")

	_, err := processor.Process(context.Background(), input, ProcessOptions{Formats: []string{"pdf"}})
	if !errors.Is(err, services.ErrFormatting) {
		t.Fatalf("error = %v, want ErrFormatting", err)
	}
}

func TestProcessWrapsLargeResultsLazily(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.Results.LazyThreshold = 10
	transcriber := &fakeTranscriber{utterances: 25}
	processor := newTestProcessor(t, cfg, &fakeConverter{}, transcriber)
	input := writeInput(t, "meeting.mp4")

	outcome, err := processor.Process(context.Background(), input, ProcessOptions{})
	if err != nil {
		t.Fatalf("Process returned error: %v", err)
	}

	if outcome.Lazy == nil {
		t.Fatal("expected lazy result above threshold")
	}
	if outcome.Result != nil {
		t.Fatal("eager result should not be retained alongside the lazy form")
	}
	if got, want := outcome.UtteranceCount(), 25; got != want {
		t.Fatalf("UtteranceCount = %d, want %d", got, want)
	}
	if len(outcome.OutputPaths) == 0 {
		t.Fatal("outputs should still be written for lazy results")
	}

	backing := outcome.Lazy.Path()
	if err := outcome.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
	if _, err := os.Stat(backing); !os.IsNotExist(err) {
		t.Fatalf("lazy backing file should be deleted on Close, stat err = %v", err)
	}
}

func TestProcessKeepsEagerResultUnderThreshold(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.Results.LazyThreshold = 10
	transcriber := &fakeTranscriber{utterances: 10}
	processor := newTestProcessor(t, cfg, &fakeConverter{}, transcriber)
	input := writeInput(t, "meeting.mp4")

	outcome, err := processor.Process(context.Background(), input, ProcessOptions{})
	if err != nil {
		t.Fatalf("Process returned error: %v", err)
	}
	defer outcome.Close()

	if outcome.Lazy != nil {
		t.Fatal("count at threshold should stay eager")
	}
	if outcome.Result == nil {
		t.Fatal("expected eager result")
	}
}

func TestProcessStreamsLargeFiles(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.Transcription.LargeFileThresholdMB = 0
	streamer := &fakeStreamer{}
	processor := newTestProcessor(t, cfg, &fakeConverter{}, streamer)
	input := writeInput(t, "meeting.mp4")

	outcome, err := processor.Process(context.Background(), input, ProcessOptions{})
	if err != nil {
		t.Fatalf("Process returned error: %v", err)
	}
	defer outcome.Close()

	if got, want := streamer.streamCalls, 1; got != want {
		t.Fatalf("stream calls = %d, want %d", got, want)
	}
	if got, want := streamer.callCount(), 0; got != want {
		t.Fatalf("sync calls = %d, want %d", got, want)
	}
}

func TestProcessFallsBackToSyncWithoutStreamingCapability(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.Transcription.LargeFileThresholdMB = 0
	transcriber := &fakeTranscriber{}
	processor := newTestProcessor(t, cfg, &fakeConverter{}, transcriber)
	input := writeInput(t, "meeting.mp4")

	outcome, err := processor.Process(context.Background(), input, ProcessOptions{})
	if err != nil {
		t.Fatalf("Process returned error: %v", err)
	}
	defer outcome.Close()

	if got, want := transcriber.callCount(), 1; got != want {
		t.Fatalf("sync calls = %d, want %d", got, want)
	}
}

func TestProcessSyncWhenStreamingDisabled(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.Transcription.LargeFileThresholdMB = 0
	cfg.Transcription.StreamingEnabled = false
	streamer := &fakeStreamer{}
	processor := newTestProcessor(t, cfg, &fakeConverter{}, streamer)
	input := writeInput(t, "meeting.mp4")

	outcome, err := processor.Process(context.Background(), input, ProcessOptions{})
	if err != nil {
		t.Fatalf("Process returned error: %v", err)
	}
	defer outcome.Close()

	if got, want := streamer.streamCalls, 0; got != want {
		t.Fatalf("stream calls = %d, want %d", got, want)
	}
	if got, want := streamer.callCount(), 1; got != want {
		t.Fatalf("sync calls = %d, want %d", got, want)
	}
}

func TestProcessStreamingPollsCancellation(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.Transcription.LargeFileThresholdMB = 0
	streamer := &fakeStreamer{}
	processor := newTestProcessor(t, cfg, &fakeConverter{}, streamer)
	streamer.hook = func(percent float64) {
		if percent == 25 {
			processor.Token().Request("abort stream")
		}
	}
	input := writeInput(t, "meeting.mp4")

	_, err := processor.Process(context.Background(), input, ProcessOptions{})
	if !errors.Is(err, services.ErrCancelled) {
		t.Fatalf("error = %v, want ErrCancelled", err)
	}
	if streamer.maxPercent > 50 {
		t.Fatalf("stream progressed to %v%% after cancellation", streamer.maxPercent)
	}
}

func TestProcessKeepAudioRetainsConvertedFile(t *testing.T) {
	cfg := newTestConfig(t)
	processor := newTestProcessor(t, cfg, &fakeConverter{}, &fakeTranscriber{})
	input := writeInput(t, "meeting.mp4")

	outcome, err := processor.Process(context.Background(), input, ProcessOptions{KeepAudio: true})
	if err != nil {
		t.Fatalf("Process returned error: %v", err)
	}
	defer outcome.Close()

	if outcome.AudioPath == "" {
		t.Fatal("AudioPath should be set when audio is kept")
	}
	if _, err := os.Stat(outcome.AudioPath); err != nil {
		t.Fatalf("kept audio missing: %v", err)
	}
	if got, want := filepath.Dir(outcome.AudioPath), cfg.Paths.OutputDir; got != want {
		t.Fatalf("kept audio dir = %q, want output dir %q", got, want)
	}

	// Nothing should linger in the scratch directory once the run is done.
	entries, err := os.ReadDir(cfg.Paths.WorkDir)
	if err != nil {
		t.Fatalf("read work dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("work dir holds %d entries after keep-audio run, want 0", len(entries))
	}
}

func TestNewRequiresCollaborators(t *testing.T) {
	cfg := newTestConfig(t)
	_, err := New(cfg, Deps{Transcriber: &fakeTranscriber{}, Formatters: formatters.DefaultRegistry(true)})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("error = %v, want ErrConfiguration", err)
	}
	_, err = New(cfg, Deps{Converter: &fakeConverter{}, Formatters: formatters.DefaultRegistry(true)})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("error = %v, want ErrConfiguration", err)
	}
	_, err = New(nil, Deps{})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("error = %v, want ErrConfiguration", err)
	}
}
