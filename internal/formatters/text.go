package formatters

import (
	"fmt"
	"strings"

	"scrivo/internal/transcript"
)

// TextFormatter renders a transcript as plain text, one utterance per line.
type TextFormatter struct {
	// IncludeSpeakers prefixes each line with the speaker label.
	IncludeSpeakers bool
	// IncludeTimestamps prefixes each line with the utterance start time.
	IncludeTimestamps bool
	// SpeakerSuffix separates the speaker label from the text.
	SpeakerSuffix string
}

// NewTextFormatter returns a text formatter with speakers on and
// timestamps off.
func NewTextFormatter() *TextFormatter {
	return &TextFormatter{
		IncludeSpeakers: true,
		SpeakerSuffix:   ":",
	}
}

// Extension returns "txt".
func (f *TextFormatter) Extension() string { return "txt" }

// Format renders the result. A result without utterances falls back to the
// plain transcript text.
func (f *TextFormatter) Format(result *transcript.Result) (string, error) {
	if result == nil {
		return "", fmt.Errorf("result is nil")
	}
	if len(result.Utterances) == 0 {
		return result.PlainText() + "\n", nil
	}

	suffix := f.SpeakerSuffix
	if suffix == "" {
		suffix = ":"
	}

	var b strings.Builder
	for _, u := range result.Utterances {
		if f.IncludeTimestamps {
			b.WriteString(Timestamp(u.Start))
			b.WriteByte(' ')
		}
		if f.IncludeSpeakers && u.Speaker != "" {
			b.WriteString(u.Speaker)
			b.WriteString(suffix)
			b.WriteByte(' ')
		}
		b.WriteString(strings.TrimSpace(u.Text))
		b.WriteByte('\n')
	}
	return b.String(), nil
}

// Timestamp renders seconds as [MM:SS], growing to [H:MM:SS] past one hour.
func Timestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int(seconds)
	hours := total / 3600
	minutes := (total % 3600) / 60
	secs := total % 60
	if hours > 0 {
		return fmt.Sprintf("[%d:%02d:%02d]", hours, minutes, secs)
	}
	return fmt.Sprintf("[%02d:%02d]", minutes, secs)
}
