package services_test

import (
	"errors"
	"strings"
	"testing"

	"scrivo/internal/queue"
	"scrivo/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrService, "convert", "ffmpeg", "failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrService) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"convert", "ffmpeg", "failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapNilMarkerDefaultsToService(t *testing.T) {
	err := services.Wrap(nil, "transcribe", "run", "unexpected", errors.New("io"))
	if !errors.Is(err, services.ErrService) {
		t.Fatalf("expected service marker fallback, got %v", err)
	}
}

func TestIsTyped(t *testing.T) {
	if services.IsTyped(errors.New("plain")) {
		t.Fatal("plain error should not be typed")
	}
	err := services.Wrap(services.ErrFormatting, "save", "json", "encode", nil)
	if !services.IsTyped(err) {
		t.Fatalf("wrapped error should be typed: %v", err)
	}
	if services.IsTyped(nil) {
		t.Fatal("nil should not be typed")
	}
}

func TestFailureStatusMapping(t *testing.T) {
	validationErr := services.Wrap(services.ErrValidation, "validate", "extension", "rejected", nil)
	if status := services.FailureStatus(validationErr); status != queue.StatusReview {
		t.Fatalf("expected review for validation error, got %s", status)
	}

	serviceErr := services.Wrap(services.ErrService, "convert", "ffmpeg", "exit 1", errors.New("io"))
	if status := services.FailureStatus(serviceErr); status != queue.StatusFailed {
		t.Fatalf("expected failed for service error, got %s", status)
	}

	cancelErr := services.Wrap(services.ErrCancelled, "transcribe", "", "stopped", nil)
	if status := services.FailureStatus(cancelErr); status != queue.StatusPending {
		t.Fatalf("expected pending for cancellation, got %s", status)
	}

	if status := services.FailureStatus(nil); status != queue.StatusFailed {
		t.Fatalf("expected failed for nil error, got %s", status)
	}
}

func TestUserMessageByKind(t *testing.T) {
	cases := []struct {
		name string
		err  error
		uctx services.UserContext
		want string
	}{
		{
			name: "validation with file",
			err:  services.Wrap(services.ErrValidation, "validate", "extension", "extension not allowed", nil),
			uctx: services.UserContext{FilePath: "/media/meeting.xyz"},
			want: "meeting.xyz",
		},
		{
			name: "service rate limit",
			err:  services.Wrap(services.ErrService, "transcribe", "", "rate limit exceeded", nil),
			uctx: services.UserContext{ServiceName: "whisperx"},
			want: "rate limit",
		},
		{
			name: "formatting unknown",
			err:  services.Wrap(services.ErrFormatting, "save", "", "unknown format", nil),
			uctx: services.UserContext{FormatName: "pdf"},
			want: "pdf",
		},
		{
			name: "cancelled",
			err:  services.Wrap(services.ErrCancelled, "batch", "", "user requested", nil),
			want: "cancelled",
		},
		{
			name: "untyped",
			err:  errors.New("weird state"),
			want: "unexpected",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			msg := services.UserMessage(tc.err, tc.uctx)
			if msg == "" {
				t.Fatal("expected non-empty message")
			}
			if !strings.Contains(strings.ToLower(msg), strings.ToLower(tc.want)) {
				t.Fatalf("expected %q in %q", tc.want, msg)
			}
		})
	}

	if msg := services.UserMessage(nil, services.UserContext{}); msg != "" {
		t.Fatalf("nil error should give empty message, got %q", msg)
	}
}
