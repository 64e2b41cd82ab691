package formatters

import (
	"strings"
	"testing"

	"scrivo/internal/transcript"
)

func sampleResult() *transcript.Result {
	return &transcript.Result{
		Source: "/data/meeting.mp4",
		Text:   "hello there general",
		Utterances: []transcript.Utterance{
			{Speaker: "S1", Text: "hello there", Start: 0, End: 2.5},
			{Speaker: "S2", Text: "general", Start: 65.2, End: 66},
		},
	}
}

func TestTextFormatterDefaultOutput(t *testing.T) {
	out, err := NewTextFormatter().Format(sampleResult())
	if err != nil {
		t.Fatalf("Format returned error: %v", err)
	}

	want := "S1: hello there\nS2: general\n"
	if out != want {
		t.Fatalf("Format = %q, want %q", out, want)
	}
}

func TestTextFormatterWithTimestamps(t *testing.T) {
	formatter := NewTextFormatter()
	formatter.IncludeTimestamps = true

	out, err := formatter.Format(sampleResult())
	if err != nil {
		t.Fatalf("Format returned error: %v", err)
	}

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if got, want := lines[0], "[00:00] S1: hello there"; got != want {
		t.Fatalf("line 0 = %q, want %q", got, want)
	}
	if got, want := lines[1], "[01:05] S2: general"; got != want {
		t.Fatalf("line 1 = %q, want %q", got, want)
	}
}

func TestTextFormatterWithoutSpeakers(t *testing.T) {
	formatter := NewTextFormatter()
	formatter.IncludeSpeakers = false

	out, err := formatter.Format(sampleResult())
	if err != nil {
		t.Fatalf("Format returned error: %v", err)
	}
	if strings.Contains(out, "S1") {
		t.Fatalf("output %q should not contain speaker labels", out)
	}
}

func TestTextFormatterFallsBackToPlainText(t *testing.T) {
	out, err := NewTextFormatter().Format(&transcript.Result{Text: "just text"})
	if err != nil {
		t.Fatalf("Format returned error: %v", err)
	}
	if got, want := out, "just text\n"; got != want {
		t.Fatalf("Format = %q, want %q", got, want)
	}
}

func TestTextFormatterRejectsNilResult(t *testing.T) {
	if _, err := NewTextFormatter().Format(nil); err == nil {
		t.Fatal("expected error for nil result")
	}
}

func TestTimestampRendering(t *testing.T) {
	cases := []struct {
		seconds float64
		want    string
	}{
		{0, "[00:00]"},
		{59.9, "[00:59]"},
		{65.2, "[01:05]"},
		{3599, "[59:59]"},
		{3725, "[1:02:05]"},
		{-3, "[00:00]"},
	}
	for _, tc := range cases {
		if got := Timestamp(tc.seconds); got != tc.want {
			t.Fatalf("Timestamp(%v) = %q, want %q", tc.seconds, got, tc.want)
		}
	}
}
