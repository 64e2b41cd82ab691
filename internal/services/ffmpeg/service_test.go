package ffmpeg

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

func TestConvertBuildsMP3Args(t *testing.T) {
	svc := NewService(Config{AudioFormat: "mp3", AudioBitrate: "128k", SampleRate: 44100})

	var gotName string
	var gotArgs []string
	svc.WithCommandRunner(func(ctx context.Context, name string, args ...string) error {
		gotName = name
		gotArgs = args
		return nil
	})

	out := filepath.Join(t.TempDir(), "audio.mp3")
	if err := svc.Convert(context.Background(), "/media/input.mp4", out); err != nil {
		t.Fatalf("Convert returned error: %v", err)
	}

	if gotName != "ffmpeg" {
		t.Fatalf("expected default binary ffmpeg, got %q", gotName)
	}
	joined := strings.Join(gotArgs, " ")
	for _, want := range []string{"-i /media/input.mp4", "-vn", "-acodec libmp3lame", "-b:a 128k", "-ar 44100", out} {
		if !strings.Contains(joined, want) {
			t.Fatalf("expected args to contain %q, got %q", want, joined)
		}
	}
	if gotArgs[len(gotArgs)-1] != out {
		t.Fatalf("expected output path last, got %q", gotArgs[len(gotArgs)-1])
	}
}

func TestConvertWAVSkipsBitrate(t *testing.T) {
	svc := NewService(Config{AudioFormat: "wav", AudioBitrate: "128k"})

	var gotArgs []string
	svc.WithCommandRunner(func(ctx context.Context, name string, args ...string) error {
		gotArgs = args
		return nil
	})

	out := filepath.Join(t.TempDir(), "audio.wav")
	if err := svc.Convert(context.Background(), "/media/input.mov", out); err != nil {
		t.Fatalf("Convert returned error: %v", err)
	}

	joined := strings.Join(gotArgs, " ")
	if !strings.Contains(joined, "-acodec pcm_s16le") {
		t.Fatalf("expected pcm codec for wav, got %q", joined)
	}
	if strings.Contains(joined, "-b:a") {
		t.Fatalf("expected no bitrate flag for wav, got %q", joined)
	}
}

func TestConvertRequiresPaths(t *testing.T) {
	svc := NewService(Config{})
	if err := svc.Convert(context.Background(), "", "/tmp/out.mp3"); err == nil {
		t.Fatal("expected error for missing input")
	}
	if err := svc.Convert(context.Background(), "/media/input.mp4", "  "); err == nil {
		t.Fatal("expected error for missing output")
	}
}

func TestConvertPropagatesRunnerFailure(t *testing.T) {
	svc := NewService(Config{AudioFormat: "mp3"})
	boom := errors.New("exit status 1")
	svc.WithCommandRunner(func(ctx context.Context, name string, args ...string) error {
		return boom
	})

	out := filepath.Join(t.TempDir(), "audio.mp3")
	err := svc.Convert(context.Background(), "/media/input.mp4", out)
	if !errors.Is(err, boom) {
		t.Fatalf("expected runner error surfaced, got %v", err)
	}
}

func TestConvertUsesConfiguredBinary(t *testing.T) {
	svc := NewService(Config{Binary: "/opt/ffmpeg/bin/ffmpeg", AudioFormat: "mp3"})

	var gotName string
	svc.WithCommandRunner(func(ctx context.Context, name string, args ...string) error {
		gotName = name
		return nil
	})

	out := filepath.Join(t.TempDir(), "audio.mp3")
	if err := svc.Convert(context.Background(), "/media/input.mp4", out); err != nil {
		t.Fatalf("Convert returned error: %v", err)
	}
	if gotName != "/opt/ffmpeg/bin/ffmpeg" {
		t.Fatalf("expected configured binary, got %q", gotName)
	}
}
