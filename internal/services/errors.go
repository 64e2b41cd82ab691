package services

import (
	"errors"
	"fmt"
	"strings"

	"scrivo/internal/queue"
)

var (
	ErrValidation    = errors.New("validation error")
	ErrService       = errors.New("service error")
	ErrTranscription = errors.New("transcription error")
	ErrFormatting    = errors.New("formatting error")
	ErrCancelled     = errors.New("operation cancelled")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrService
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsTyped reports whether err already carries one of the pipeline markers.
// Untyped errors get wrapped into the generic service marker before they
// surface to callers.
func IsTyped(err error) bool {
	if err == nil {
		return false
	}
	for _, marker := range []error{
		ErrValidation,
		ErrService,
		ErrTranscription,
		ErrFormatting,
		ErrCancelled,
		ErrConfiguration,
		ErrNotFound,
	} {
		if errors.Is(err, marker) {
			return true
		}
	}
	return false
}

// FailureStatus maps a pipeline error to the queue status the workflow
// manager should persist after the item fails.
func FailureStatus(err error) queue.Status {
	switch {
	case errors.Is(err, ErrValidation), errors.Is(err, ErrConfiguration), errors.Is(err, ErrNotFound):
		return queue.StatusReview
	case errors.Is(err, ErrCancelled):
		return queue.StatusPending
	default:
		return queue.StatusFailed
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
