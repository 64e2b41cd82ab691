package formatters

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestJSONFormatterFullDocument(t *testing.T) {
	out, err := NewJSONFormatter().Format(sampleResult())
	if err != nil {
		t.Fatalf("Format returned error: %v", err)
	}

	var doc map[string]any
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if got, want := doc["source"], "/data/meeting.mp4"; got != want {
		t.Fatalf("source = %v, want %v", got, want)
	}
	if got, want := doc["text"], "hello there general"; got != want {
		t.Fatalf("text = %v, want %v", got, want)
	}
	utterances, ok := doc["utterances"].([]any)
	if !ok || len(utterances) != 2 {
		t.Fatalf("utterances = %v, want 2 entries", doc["utterances"])
	}
	first := utterances[0].(map[string]any)
	if _, ok := first["start"]; !ok {
		t.Fatal("expected start time on utterance")
	}
}

func TestJSONFormatterStripsSectionsWhenDisabled(t *testing.T) {
	formatter := NewJSONFormatter()
	formatter.IncludeMetadata = false
	formatter.IncludeText = false
	formatter.IncludeTimes = false

	out, err := formatter.Format(sampleResult())
	if err != nil {
		t.Fatalf("Format returned error: %v", err)
	}

	var doc map[string]any
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if _, ok := doc["source"]; ok {
		t.Fatal("metadata should be omitted")
	}
	if _, ok := doc["text"]; ok {
		t.Fatal("text should be omitted")
	}
	utterances := doc["utterances"].([]any)
	first := utterances[0].(map[string]any)
	if _, ok := first["start"]; ok {
		t.Fatal("start time should be omitted")
	}
}

func TestJSONFormatterCompactMode(t *testing.T) {
	formatter := NewJSONFormatter()
	formatter.Pretty = false

	out, err := formatter.Format(sampleResult())
	if err != nil {
		t.Fatalf("Format returned error: %v", err)
	}
	if strings.Contains(strings.TrimRight(out, "\n"), "\n") {
		t.Fatalf("compact output should be a single line, got %q", out)
	}
}

func TestJSONFormatterKeepsZeroStartTime(t *testing.T) {
	out, err := NewJSONFormatter().Format(sampleResult())
	if err != nil {
		t.Fatalf("Format returned error: %v", err)
	}
	// The first utterance starts at zero; pointer fields keep it visible.
	if !strings.Contains(out, "\"start\": 0") {
		t.Fatalf("zero start time missing from output:\n%s", out)
	}
}

func TestJSONFormatterRejectsNilResult(t *testing.T) {
	if _, err := NewJSONFormatter().Format(nil); err == nil {
		t.Fatal("expected error for nil result")
	}
}
