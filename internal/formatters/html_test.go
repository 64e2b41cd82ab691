package formatters

import (
	"strings"
	"testing"

	"scrivo/internal/transcript"
)

func TestHTMLFormatterDocumentStructure(t *testing.T) {
	formatter := NewHTMLFormatter()
	formatter.Title = "Weekly Sync"

	out, err := formatter.Format(sampleResult())
	if err != nil {
		t.Fatalf("Format returned error: %v", err)
	}

	for _, want := range []string{
		"<!DOCTYPE html>",
		"<title>Weekly Sync</title>",
		`<h1 class="transcript-title">Weekly Sync</h1>`,
		`class="transcript-utterance"`,
		`class="transcript-speaker transcript-speaker-0"`,
		`class="transcript-speaker transcript-speaker-1"`,
		"[01:05]",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestHTMLFormatterEscapesContent(t *testing.T) {
	result := &transcript.Result{
		Utterances: []transcript.Utterance{
			{Speaker: "S<1>", Text: `<script>alert("x")</script>`},
		},
	}

	out, err := NewHTMLFormatter().Format(result)
	if err != nil {
		t.Fatalf("Format returned error: %v", err)
	}
	if strings.Contains(out, "<script>alert") {
		t.Fatal("script tag was not escaped")
	}
	if !strings.Contains(out, "&lt;script&gt;") {
		t.Fatalf("expected escaped script tag in output:\n%s", out)
	}
	if !strings.Contains(out, "S&lt;1&gt;") {
		t.Fatalf("expected escaped speaker label in output:\n%s", out)
	}
}

func TestHTMLFormatterCustomPrefix(t *testing.T) {
	formatter := NewHTMLFormatter()
	formatter.CSSPrefix = "meeting"
	formatter.SpeakerColors = false

	out, err := formatter.Format(sampleResult())
	if err != nil {
		t.Fatalf("Format returned error: %v", err)
	}
	if !strings.Contains(out, `class="meeting-utterance"`) {
		t.Fatalf("expected custom prefix classes in output:\n%s", out)
	}
	if strings.Contains(out, "meeting-speaker-0") {
		t.Fatal("speaker color classes should be absent when disabled")
	}
}

func TestHTMLFormatterRejectsNilResult(t *testing.T) {
	if _, err := NewHTMLFormatter().Format(nil); err == nil {
		t.Fatal("expected error for nil result")
	}
}
