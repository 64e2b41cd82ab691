package whisperx

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"scrivo/internal/pipeline"
)

const samplePayload = `{
  "segments": [
    {
      "text": " Welcome everyone to the meeting.",
      "start": 0.5,
      "end": 3.2,
      "speaker": "SPEAKER_00",
      "words": [
        {"word": "Welcome", "start": 0.5, "end": 0.9, "score": 0.98, "speaker": "SPEAKER_00"},
        {"word": "everyone", "start": 1.0, "end": 1.6, "score": 0.97, "speaker": "SPEAKER_00"}
      ]
    },
    {
      "text": "Thanks for having me.",
      "start": 3.8,
      "end": 5.1,
      "speaker": "SPEAKER_01"
    }
  ],
  "language": "en"
}`

// writePayloadRunner returns a command runner that emulates whisperx by
// writing payload as <stem>.json into the --output_dir argument.
func writePayloadRunner(t *testing.T, payload string, captured *[]string) func(ctx context.Context, name string, args ...string) error {
	t.Helper()
	return func(ctx context.Context, name string, args ...string) error {
		if captured != nil {
			*captured = append([]string{name}, args...)
		}
		var outputDir string
		for i, arg := range args {
			if arg == "--output_dir" && i+1 < len(args) {
				outputDir = args[i+1]
			}
		}
		if outputDir == "" {
			t.Fatal("runner did not receive --output_dir")
		}
		stem := strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
		return os.WriteFile(filepath.Join(outputDir, stem+".json"), []byte(payload), 0o644)
	}
}

func writeAudioFixture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "meeting.mp3")
	if err := os.WriteFile(path, []byte("audio"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func TestTranscribeParsesSegments(t *testing.T) {
	audio := writeAudioFixture(t)
	svc := NewService(Config{WorkDir: t.TempDir()})
	svc.WithCommandRunner(writePayloadRunner(t, samplePayload, nil))

	result, err := svc.Transcribe(context.Background(), audio, pipeline.TranscribeConfig{Language: "en"})
	if err != nil {
		t.Fatalf("Transcribe returned error: %v", err)
	}

	if got := result.UtteranceCount(); got != 2 {
		t.Fatalf("expected 2 utterances, got %d", got)
	}
	first := result.Utterances[0]
	if first.Speaker != "SPEAKER_00" {
		t.Errorf("expected speaker SPEAKER_00, got %q", first.Speaker)
	}
	if first.Text != "Welcome everyone to the meeting." {
		t.Errorf("unexpected trimmed text: %q", first.Text)
	}
	if len(first.Words) != 2 || first.Words[0].Text != "Welcome" {
		t.Errorf("unexpected words: %+v", first.Words)
	}
	if result.Language != "en" {
		t.Errorf("expected language en, got %q", result.Language)
	}
	if result.Duration != 5.1 {
		t.Errorf("expected duration 5.1, got %v", result.Duration)
	}
	if !strings.Contains(result.Text, "Thanks for having me.") {
		t.Errorf("joined text missing second utterance: %q", result.Text)
	}
}

func TestTranscribeBuildsDiarizationArgs(t *testing.T) {
	audio := writeAudioFixture(t)
	svc := NewService(Config{Model: "small", WorkDir: t.TempDir(), HFToken: "hf_secret"})

	var captured []string
	svc.WithCommandRunner(writePayloadRunner(t, samplePayload, &captured))

	_, err := svc.Transcribe(context.Background(), audio, pipeline.TranscribeConfig{
		Language:      "english",
		SpeakerLabels: true,
	})
	if err != nil {
		t.Fatalf("Transcribe returned error: %v", err)
	}

	joined := strings.Join(captured, " ")
	for _, want := range []string{
		"whisperx " + audio,
		"--model small",
		"--output_format json",
		"--language en",
		"--diarize",
		"--hf_token hf_secret",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("expected args to contain %q, got %q", want, joined)
		}
	}
}

func TestTranscribeOmitsDiarizeWhenDisabled(t *testing.T) {
	audio := writeAudioFixture(t)
	svc := NewService(Config{WorkDir: t.TempDir()})

	var captured []string
	svc.WithCommandRunner(writePayloadRunner(t, samplePayload, &captured))

	if _, err := svc.Transcribe(context.Background(), audio, pipeline.TranscribeConfig{}); err != nil {
		t.Fatalf("Transcribe returned error: %v", err)
	}

	joined := strings.Join(captured, " ")
	if strings.Contains(joined, "--diarize") {
		t.Errorf("expected no --diarize flag, got %q", joined)
	}
	if strings.Contains(joined, "--language") {
		t.Errorf("expected no --language flag for empty language, got %q", joined)
	}
}

func TestTranscribeRequestModelOverridesConfig(t *testing.T) {
	audio := writeAudioFixture(t)
	svc := NewService(Config{Model: "large-v2", WorkDir: t.TempDir()})

	var captured []string
	svc.WithCommandRunner(writePayloadRunner(t, samplePayload, &captured))

	_, err := svc.Transcribe(context.Background(), audio, pipeline.TranscribeConfig{Model: "tiny"})
	if err != nil {
		t.Fatalf("Transcribe returned error: %v", err)
	}
	if joined := strings.Join(captured, " "); !strings.Contains(joined, "--model tiny") {
		t.Errorf("expected request model to win, got %q", joined)
	}
}

func TestTranscribeMissingAudio(t *testing.T) {
	svc := NewService(Config{WorkDir: t.TempDir()})
	svc.WithCommandRunner(writePayloadRunner(t, samplePayload, nil))

	if _, err := svc.Transcribe(context.Background(), filepath.Join(t.TempDir(), "missing.mp3"), pipeline.TranscribeConfig{}); err == nil {
		t.Fatal("expected error for missing audio file")
	}
}

func TestTranscribePropagatesRunnerFailure(t *testing.T) {
	audio := writeAudioFixture(t)
	svc := NewService(Config{WorkDir: t.TempDir()})
	boom := errors.New("exit status 1")
	svc.WithCommandRunner(func(ctx context.Context, name string, args ...string) error {
		return boom
	})

	if _, err := svc.Transcribe(context.Background(), audio, pipeline.TranscribeConfig{}); !errors.Is(err, boom) {
		t.Fatalf("expected runner error surfaced, got %v", err)
	}
}

func TestTranscribeRejectsMalformedOutput(t *testing.T) {
	audio := writeAudioFixture(t)
	svc := NewService(Config{WorkDir: t.TempDir()})
	svc.WithCommandRunner(writePayloadRunner(t, "{not json", nil))

	if _, err := svc.Transcribe(context.Background(), audio, pipeline.TranscribeConfig{}); err == nil {
		t.Fatal("expected error for malformed whisperx output")
	}
}

func TestTranscribeCleansScratchDir(t *testing.T) {
	audio := writeAudioFixture(t)
	workDir := t.TempDir()
	svc := NewService(Config{WorkDir: workDir})
	svc.WithCommandRunner(writePayloadRunner(t, samplePayload, nil))

	if _, err := svc.Transcribe(context.Background(), audio, pipeline.TranscribeConfig{}); err != nil {
		t.Fatalf("Transcribe returned error: %v", err)
	}

	entries, err := os.ReadDir(workDir)
	if err != nil {
		t.Fatalf("read work dir: %v", err)
	}
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), "whisperx-") {
			t.Fatalf("scratch dir %s left behind", entry.Name())
		}
	}
}
