package pipeline

import (
	"context"

	"scrivo/internal/transcript"
)

// TranscribeConfig carries the per-request transcription settings handed to
// the transcription collaborator.
type TranscribeConfig struct {
	Model         string
	Language      string
	SpeakerLabels bool
}

// GenerationOptions carries per-request settings for text generation.
type GenerationOptions struct {
	MaxTokens   int
	Temperature float64
}

// AudioConverter extracts or transcodes the audio track of a media file.
type AudioConverter interface {
	Convert(ctx context.Context, inputPath, outputPath string) error
}

// TranscriptionService turns an audio file into a transcription result.
type TranscriptionService interface {
	Transcribe(ctx context.Context, audioPath string, cfg TranscribeConfig) (*transcript.Result, error)
}

// StreamingTranscriptionService is the optional capability of transcribing a
// large file in chunks. onPartial receives intermediate transcript fragments,
// onProgress receives the session's own 0-100 percent. Implementations must
// honor context cancellation between chunks.
type StreamingTranscriptionService interface {
	StreamFile(ctx context.Context, audioPath string, chunkSize int, onPartial func(text string), onProgress func(percent float64, message string), cfg TranscribeConfig) (*transcript.Result, error)
}

// TextGenerationService produces text from a prompt pair. Used by the
// analysis feature, never by the core pipeline stages.
type TextGenerationService interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string, opts GenerationOptions) (string, error)
}

// ProgressFunc receives progress updates as (stage, current, total). The
// total varies with reporting granularity, so consumers should derive the
// fraction current/total rather than assume a fixed scale.
type ProgressFunc func(stage string, current, total int)
