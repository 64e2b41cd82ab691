package transcript

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func makeUtterances(n int) []Utterance {
	utterances := make([]Utterance, 0, n)
	for i := 0; i < n; i++ {
		utterances = append(utterances, Utterance{
			Speaker: fmt.Sprintf("S%d", i%3),
			Text:    fmt.Sprintf("utterance %d", i),
			Start:   float64(i),
			End:     float64(i) + 0.9,
		})
	}
	return utterances
}

func TestLazyResultTwoPassesAreIdentical(t *testing.T) {
	lazy, err := NewLazyResult(makeUtterances(250), "meeting.mp4", t.TempDir())
	if err != nil {
		t.Fatalf("NewLazyResult returned error: %v", err)
	}
	defer lazy.Close()

	if got, want := lazy.Count(), 250; got != want {
		t.Fatalf("Count = %d, want %d", got, want)
	}

	collect := func() []Utterance {
		var out []Utterance
		if err := lazy.Each(func(u Utterance) error {
			out = append(out, u)
			return nil
		}); err != nil {
			t.Fatalf("Each returned error: %v", err)
		}
		return out
	}

	first := collect()
	second := collect()

	if len(first) != 250 || len(second) != 250 {
		t.Fatalf("pass lengths = %d, %d; want 250 each", len(first), len(second))
	}
	for i := range first {
		if !reflect.DeepEqual(first[i], second[i]) {
			t.Fatalf("passes diverge at index %d: %+v vs %+v", i, first[i], second[i])
		}
	}
	if got, want := first[249].Text, "utterance 249"; got != want {
		t.Fatalf("last utterance = %q, want %q", got, want)
	}
}

func TestLazyResultChunk(t *testing.T) {
	lazy, err := NewLazyResult(makeUtterances(25), "meeting.mp4", t.TempDir())
	if err != nil {
		t.Fatalf("NewLazyResult returned error: %v", err)
	}
	defer lazy.Close()

	chunk, err := lazy.Chunk(10, 5)
	if err != nil {
		t.Fatalf("Chunk returned error: %v", err)
	}
	if got, want := len(chunk), 5; got != want {
		t.Fatalf("chunk length = %d, want %d", got, want)
	}
	if got, want := chunk[0].Text, "utterance 10"; got != want {
		t.Fatalf("chunk[0] = %q, want %q", got, want)
	}
	if got, want := chunk[4].Text, "utterance 14"; got != want {
		t.Fatalf("chunk[4] = %q, want %q", got, want)
	}

	tail, err := lazy.Chunk(20, 10)
	if err != nil {
		t.Fatalf("Chunk at tail returned error: %v", err)
	}
	if got, want := len(tail), 5; got != want {
		t.Fatalf("tail chunk length = %d, want %d", got, want)
	}

	empty, err := lazy.Chunk(25, 5)
	if err != nil {
		t.Fatalf("Chunk past end returned error: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("chunk past end has %d entries, want 0", len(empty))
	}

	if _, err := lazy.Chunk(-1, 5); err == nil {
		t.Fatal("negative start should be rejected")
	}
	if _, err := lazy.Chunk(0, 0); err == nil {
		t.Fatal("zero size should be rejected")
	}
}

func TestLazyResultEachStopsOnCallbackError(t *testing.T) {
	lazy, err := NewLazyResult(makeUtterances(10), "meeting.mp4", t.TempDir())
	if err != nil {
		t.Fatalf("NewLazyResult returned error: %v", err)
	}
	defer lazy.Close()

	seen := 0
	wantErr := fmt.Errorf("boom")
	err = lazy.Each(func(Utterance) error {
		seen++
		if seen == 3 {
			return wantErr
		}
		return nil
	})
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Fatalf("Each error = %v, want boom", err)
	}
	if got, want := seen, 3; got != want {
		t.Fatalf("callback ran %d times, want %d", got, want)
	}
}

func TestLazyResultToResult(t *testing.T) {
	lazy, err := NewLazyResult(makeUtterances(3), "meeting.mp4", t.TempDir())
	if err != nil {
		t.Fatalf("NewLazyResult returned error: %v", err)
	}
	defer lazy.Close()

	result, err := lazy.ToResult()
	if err != nil {
		t.Fatalf("ToResult returned error: %v", err)
	}
	if got, want := result.Source, "meeting.mp4"; got != want {
		t.Fatalf("Source = %q, want %q", got, want)
	}
	if got, want := result.UtteranceCount(), 3; got != want {
		t.Fatalf("UtteranceCount = %d, want %d", got, want)
	}
	if got, want := result.Text, "utterance 0 utterance 1 utterance 2"; got != want {
		t.Fatalf("Text = %q, want %q", got, want)
	}
}

func TestLazyResultCloseDeletesOwnedFileOnce(t *testing.T) {
	lazy, err := NewLazyResult(makeUtterances(2), "meeting.mp4", t.TempDir())
	if err != nil {
		t.Fatalf("NewLazyResult returned error: %v", err)
	}

	path := lazy.Path()
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("backing file missing before close: %v", err)
	}

	if err := lazy.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("backing file still present after close: %v", err)
	}
	if err := lazy.Close(); err != nil {
		t.Fatalf("second Close returned error: %v", err)
	}

	if err := lazy.Each(func(Utterance) error { return nil }); err == nil {
		t.Fatal("Each after Close should fail")
	}
}

func TestOpenLazyResultLeavesFileInPlace(t *testing.T) {
	dir := t.TempDir()
	source, err := NewLazyResult(makeUtterances(7), "meeting.mp4", dir)
	if err != nil {
		t.Fatalf("NewLazyResult returned error: %v", err)
	}
	path := source.Path()

	copied := filepath.Join(dir, "kept.jsonl")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read backing file: %v", err)
	}
	if err := os.WriteFile(copied, data, 0o644); err != nil {
		t.Fatalf("copy backing file: %v", err)
	}
	source.Close()

	opened, err := OpenLazyResult(copied, "meeting.mp4")
	if err != nil {
		t.Fatalf("OpenLazyResult returned error: %v", err)
	}
	if got, want := opened.Count(), 7; got != want {
		t.Fatalf("Count = %d, want %d", got, want)
	}

	if err := opened.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
	if _, err := os.Stat(copied); err != nil {
		t.Fatalf("unowned file should survive Close: %v", err)
	}
}
