// Package transcript defines the transcription result model shared by the
// pipeline, formatters, cache, and analysis layers, together with a lazy
// file-backed variant for very long transcripts.
package transcript

import "strings"

// Word is a single recognized word with timing in seconds.
type Word struct {
	Text    string  `json:"text"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Score   float64 `json:"score,omitempty"`
	Speaker string  `json:"speaker,omitempty"`
}

// Utterance is a contiguous span of speech attributed to one speaker.
type Utterance struct {
	Speaker    string  `json:"speaker,omitempty"`
	Text       string  `json:"text"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Confidence float64 `json:"confidence,omitempty"`
	Words      []Word  `json:"words,omitempty"`
}

// Result is a complete in-memory transcription of one media file.
type Result struct {
	Source     string      `json:"source"`
	Language   string      `json:"language,omitempty"`
	Duration   float64     `json:"duration,omitempty"`
	Text       string      `json:"text"`
	Utterances []Utterance `json:"utterances"`
}

// UtteranceCount returns the number of utterances in the result.
func (r *Result) UtteranceCount() int {
	if r == nil {
		return 0
	}
	return len(r.Utterances)
}

// PlainText returns the full transcript text, joining utterances when the
// transcriber did not supply a combined text.
func (r *Result) PlainText() string {
	if r == nil {
		return ""
	}
	if strings.TrimSpace(r.Text) != "" {
		return r.Text
	}
	return JoinUtterances(r.Utterances)
}

// Empty reports whether the result carries no usable transcript.
func (r *Result) Empty() bool {
	return r == nil || (len(r.Utterances) == 0 && strings.TrimSpace(r.Text) == "")
}

// JoinUtterances concatenates utterance texts into one transcript string.
func JoinUtterances(utterances []Utterance) string {
	parts := make([]string, 0, len(utterances))
	for _, u := range utterances {
		if text := strings.TrimSpace(u.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}
