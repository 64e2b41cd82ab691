package services

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// UserContext carries the details available at the failure site that make a
// user-facing message concrete: which file, which external service, which
// output format.
type UserContext struct {
	FilePath    string
	ServiceName string
	FormatName  string
}

// UserMessage derives a user-facing message from the error kind and the
// supplied context. The technical chain stays on the error itself; this is
// what CLIs and notifications show.
func UserMessage(err error, uctx UserContext) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	lower := strings.ToLower(msg)

	switch {
	case errors.Is(err, ErrCancelled):
		return "The operation was cancelled before it completed."
	case errors.Is(err, ErrValidation):
		return validationMessage(lower, uctx)
	case errors.Is(err, ErrTranscription):
		return transcriptionMessage(lower)
	case errors.Is(err, ErrFormatting):
		return formattingMessage(lower, uctx)
	case errors.Is(err, ErrService):
		return serviceMessage(lower, uctx)
	case errors.Is(err, ErrConfiguration):
		return configurationMessage(lower, uctx)
	case errors.Is(err, ErrNotFound):
		return fmt.Sprintf("%s was not found. Check that the path is correct and the file exists.", fileLabel(uctx))
	default:
		return fmt.Sprintf("An unexpected error occurred: %s. If the problem persists, check the logs for details.", msg)
	}
}

func fileLabel(uctx UserContext) string {
	if strings.TrimSpace(uctx.FilePath) == "" {
		return "The file"
	}
	return fmt.Sprintf("File %q", filepath.Base(uctx.FilePath))
}

func serviceLabel(uctx UserContext) string {
	if strings.TrimSpace(uctx.ServiceName) == "" {
		return "the external service"
	}
	return uctx.ServiceName
}

func validationMessage(lower string, uctx UserContext) string {
	switch {
	case strings.Contains(lower, "extension"), strings.Contains(lower, "unsupported"):
		return fmt.Sprintf("%s is not a supported media format. Use one of the supported formats (such as MP4, MP3, WAV).", fileLabel(uctx))
	case strings.Contains(lower, "suspicious"), strings.Contains(lower, "pattern"):
		return fmt.Sprintf("%s has a path that cannot be accepted. Remove special characters and path traversal sequences.", fileLabel(uctx))
	case strings.Contains(lower, "not found"), strings.Contains(lower, "no such file"):
		return fmt.Sprintf("%s was not found. Check that the path is correct and the file exists.", fileLabel(uctx))
	case strings.Contains(lower, "permission"):
		return fmt.Sprintf("%s cannot be accessed. Check file permissions.", fileLabel(uctx))
	default:
		return fmt.Sprintf("%s failed validation and was not processed.", fileLabel(uctx))
	}
}

func serviceMessage(lower string, uctx UserContext) string {
	switch {
	case strings.Contains(lower, "conversion"):
		return "Audio conversion failed. Check that the media file is not corrupted and that ffmpeg is installed."
	case strings.Contains(lower, "api key"):
		return fmt.Sprintf("The API key for %s is missing or invalid. Check the configured credentials.", serviceLabel(uctx))
	case strings.Contains(lower, "rate limit"):
		return fmt.Sprintf("The rate limit for %s was exceeded. Wait a moment and try again.", serviceLabel(uctx))
	case strings.Contains(lower, "network"), strings.Contains(lower, "connection"), strings.Contains(lower, "timeout"):
		return fmt.Sprintf("Could not reach %s. Check the network connection and try again.", serviceLabel(uctx))
	case strings.Contains(lower, "empty"):
		return fmt.Sprintf("%s returned no result. Check the credentials and service availability.", serviceLabel(uctx))
	default:
		return fmt.Sprintf("A problem occurred while using %s.", serviceLabel(uctx))
	}
}

func transcriptionMessage(lower string) string {
	switch {
	case strings.Contains(lower, "empty"):
		return "The transcription service returned no result. The audio may be silent or too low quality."
	case strings.Contains(lower, "parse"), strings.Contains(lower, "decode"):
		return "The transcription result could not be processed. The service response format may have changed."
	default:
		return "A problem occurred during transcription. Check that the audio file is valid and the credentials are correct."
	}
}

func formattingMessage(lower string, uctx UserContext) string {
	format := strings.TrimSpace(uctx.FormatName)
	if format == "" {
		format = "the requested format"
	} else {
		format = fmt.Sprintf("format %q", format)
	}
	switch {
	case strings.Contains(lower, "unknown"), strings.Contains(lower, "unsupported"):
		return fmt.Sprintf("%s is not supported. Supported formats include txt, json, and html.", format)
	case strings.Contains(lower, "save"), strings.Contains(lower, "write"):
		return fmt.Sprintf("The output could not be saved in %s. Check output directory permissions and disk space.", format)
	default:
		return fmt.Sprintf("A problem occurred while producing %s.", format)
	}
}

func configurationMessage(lower string, uctx UserContext) string {
	if strings.Contains(lower, "api key") {
		return fmt.Sprintf("No API key configured for %s. Set the key in the config file or environment.", serviceLabel(uctx))
	}
	return "A configuration value is invalid. Run the config validate command for details."
}
