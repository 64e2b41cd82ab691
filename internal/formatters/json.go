package formatters

import (
	"encoding/json"
	"fmt"

	"scrivo/internal/transcript"
)

// JSONFormatter renders a transcript as a JSON document.
type JSONFormatter struct {
	// Pretty indents the output for readability.
	Pretty bool
	// IncludeMetadata emits source, language, and duration fields.
	IncludeMetadata bool
	// IncludeText emits the combined transcript text.
	IncludeText bool
	// IncludeUtterances emits the utterance list.
	IncludeUtterances bool
	// IncludeTimes emits start/end seconds on each utterance.
	IncludeTimes bool
}

// NewJSONFormatter returns a json formatter with every section enabled and
// pretty printing on.
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{
		Pretty:            true,
		IncludeMetadata:   true,
		IncludeText:       true,
		IncludeUtterances: true,
		IncludeTimes:      true,
	}
}

// Extension returns "json".
func (f *JSONFormatter) Extension() string { return "json" }

type jsonUtterance struct {
	Speaker string   `json:"speaker,omitempty"`
	Text    string   `json:"text"`
	Start   *float64 `json:"start,omitempty"`
	End     *float64 `json:"end,omitempty"`
}

type jsonDocument struct {
	Source     string          `json:"source,omitempty"`
	Language   string          `json:"language,omitempty"`
	Duration   float64         `json:"duration,omitempty"`
	Text       string          `json:"text,omitempty"`
	Utterances []jsonUtterance `json:"utterances,omitempty"`
}

// Format renders the result according to the formatter's include flags.
func (f *JSONFormatter) Format(result *transcript.Result) (string, error) {
	if result == nil {
		return "", fmt.Errorf("result is nil")
	}

	doc := jsonDocument{}
	if f.IncludeMetadata {
		doc.Source = result.Source
		doc.Language = result.Language
		doc.Duration = result.Duration
	}
	if f.IncludeText {
		doc.Text = result.PlainText()
	}
	if f.IncludeUtterances {
		doc.Utterances = make([]jsonUtterance, 0, len(result.Utterances))
		for _, u := range result.Utterances {
			entry := jsonUtterance{Speaker: u.Speaker, Text: u.Text}
			if f.IncludeTimes {
				start, end := u.Start, u.End
				entry.Start = &start
				entry.End = &end
			}
			doc.Utterances = append(doc.Utterances, entry)
		}
	}

	var (
		data []byte
		err  error
	)
	if f.Pretty {
		data, err = json.MarshalIndent(doc, "", "  ")
	} else {
		data, err = json.Marshal(doc)
	}
	if err != nil {
		return "", fmt.Errorf("marshal transcript: %w", err)
	}
	return string(data) + "\n", nil
}
