package analysis

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"scrivo/internal/cancel"
	"scrivo/internal/pipeline"
	"scrivo/internal/services"
	"scrivo/internal/testsupport"
	"scrivo/internal/transcript"
)

type generateCall struct {
	system string
	user   string
}

type fakeGenerator struct {
	calls   []generateCall
	outputs []string
	errs    []error
	onCall  func(call int)
}

func (f *fakeGenerator) Generate(ctx context.Context, systemPrompt, userPrompt string, opts pipeline.GenerationOptions) (string, error) {
	idx := len(f.calls)
	f.calls = append(f.calls, generateCall{system: systemPrompt, user: userPrompt})
	if f.onCall != nil {
		f.onCall(idx)
	}
	if idx < len(f.errs) && f.errs[idx] != nil {
		return "", f.errs[idx]
	}
	if idx < len(f.outputs) {
		return f.outputs[idx], nil
	}
	return fmt.Sprintf("analysis %d", idx+1), nil
}

func sampleResult(utterances int) *transcript.Result {
	result := &transcript.Result{Source: "/media/standup.mp4"}
	for i := 0; i < utterances; i++ {
		result.Utterances = append(result.Utterances, transcript.Utterance{
			Speaker: fmt.Sprintf("SPEAKER_%02d", i%2),
			Text:    fmt.Sprintf("utterance %d", i),
			Start:   float64(i),
			End:     float64(i) + 0.9,
		})
	}
	return result
}

func newAnalyzer(t *testing.T, gen pipeline.TextGenerationService, token *cancel.Token, chunkSize int) *Analyzer {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	if chunkSize > 0 {
		cfg.Analysis.ChunkSize = chunkSize
	}
	analyzer, err := New(cfg, gen, token, nil)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	return analyzer
}

func TestAnalyzeSingleChunkWritesReport(t *testing.T) {
	gen := &fakeGenerator{outputs: []string{"the team discussed the rollout"}}
	analyzer := newAnalyzer(t, gen, nil, 0)

	report, err := analyzer.Analyze(context.Background(), sampleResult(3), Request{})
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}

	if len(gen.calls) != 1 {
		t.Fatalf("expected 1 generation call, got %d", len(gen.calls))
	}
	if !strings.Contains(gen.calls[0].user, "SPEAKER_00: utterance 0") {
		t.Errorf("prompt missing speaker-formatted transcript: %q", gen.calls[0].user)
	}
	if report.Text != "the team discussed the rollout" {
		t.Errorf("unexpected report text: %q", report.Text)
	}
	if filepath.Base(report.Path) != "standup_analysis.txt" {
		t.Errorf("unexpected report name: %s", report.Path)
	}
	data, err := os.ReadFile(report.Path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if got := strings.TrimSpace(string(data)); got != report.Text {
		t.Errorf("file content %q does not match report %q", got, report.Text)
	}
}

func TestAnalyzeChunksLargeTranscript(t *testing.T) {
	gen := &fakeGenerator{outputs: []string{"part one", "part two", "part three"}}
	analyzer := newAnalyzer(t, gen, nil, 2)

	report, err := analyzer.Analyze(context.Background(), sampleResult(5), Request{})
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}

	if len(gen.calls) != 3 {
		t.Fatalf("expected 3 generation calls, got %d", len(gen.calls))
	}
	if report.Chunks != 3 {
		t.Errorf("expected 3 chunks reported, got %d", report.Chunks)
	}
	if report.Text != "part one\npart two\npart three" {
		t.Errorf("unexpected joined report: %q", report.Text)
	}
	// The second chunk sees only its own utterances.
	if strings.Contains(gen.calls[1].user, "utterance 0") || !strings.Contains(gen.calls[1].user, "utterance 2") {
		t.Errorf("chunk 2 prompt has wrong slice: %q", gen.calls[1].user)
	}
}

func TestAnalyzeChunkFailureRecordedInline(t *testing.T) {
	gen := &fakeGenerator{
		outputs: []string{"part one", "", "part three"},
		errs:    []error{nil, errors.New("upstream 500"), nil},
	}
	analyzer := newAnalyzer(t, gen, nil, 2)

	report, err := analyzer.Analyze(context.Background(), sampleResult(5), Request{})
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}
	if !strings.Contains(report.Text, "[error processing this section:") {
		t.Errorf("expected inline chunk failure marker, got %q", report.Text)
	}
	if !strings.Contains(report.Text, "part one") || !strings.Contains(report.Text, "part three") {
		t.Errorf("surviving chunks missing from report: %q", report.Text)
	}
}

func TestAnalyzeEmptyGenerationFails(t *testing.T) {
	gen := &fakeGenerator{outputs: []string{"   "}}
	analyzer := newAnalyzer(t, gen, nil, 0)

	_, err := analyzer.Analyze(context.Background(), sampleResult(2), Request{})
	if !errors.Is(err, services.ErrService) {
		t.Fatalf("expected service error for empty generation, got %v", err)
	}
}

func TestAnalyzeLazyReadsChunkwise(t *testing.T) {
	result := sampleResult(5)
	lazy, err := transcript.NewLazyResult(result.Utterances, result.Source, t.TempDir())
	if err != nil {
		t.Fatalf("NewLazyResult: %v", err)
	}
	defer lazy.Close()

	gen := &fakeGenerator{outputs: []string{"a", "b", "c"}}
	analyzer := newAnalyzer(t, gen, nil, 2)

	report, err := analyzer.AnalyzeLazy(context.Background(), lazy, Request{})
	if err != nil {
		t.Fatalf("AnalyzeLazy returned error: %v", err)
	}
	if len(gen.calls) != 3 {
		t.Fatalf("expected 3 generation calls, got %d", len(gen.calls))
	}
	if report.Text != "a\nb\nc" {
		t.Errorf("unexpected report: %q", report.Text)
	}
}

func TestAnalyzeStopsOnCancellation(t *testing.T) {
	token := cancel.New()
	gen := &fakeGenerator{}
	gen.onCall = func(call int) {
		if call == 0 {
			token.Request("user hit ctrl-c")
		}
	}
	analyzer := newAnalyzer(t, gen, token, 2)

	_, err := analyzer.Analyze(context.Background(), sampleResult(6), Request{})
	if !errors.Is(err, services.ErrCancelled) {
		t.Fatalf("expected cancellation error, got %v", err)
	}
	if len(gen.calls) != 1 {
		t.Fatalf("expected processing to stop after first chunk, got %d calls", len(gen.calls))
	}
}

func TestAnalyzeEmptyTranscript(t *testing.T) {
	analyzer := newAnalyzer(t, &fakeGenerator{}, nil, 0)
	_, err := analyzer.Analyze(context.Background(), &transcript.Result{}, Request{})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestAnalyzeCustomPrompts(t *testing.T) {
	gen := &fakeGenerator{outputs: []string{"ok"}}
	analyzer := newAnalyzer(t, gen, nil, 0)

	_, err := analyzer.Analyze(context.Background(), sampleResult(1), Request{
		SystemPrompt:       "You summarize legal depositions.",
		UserPromptTemplate: "Summarize:\n" + PlaceholderTranscription + "\nEnd.",
	})
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}
	call := gen.calls[0]
	if call.system != "You summarize legal depositions." {
		t.Errorf("system prompt not used: %q", call.system)
	}
	if !strings.HasPrefix(call.user, "Summarize:\n") || !strings.HasSuffix(call.user, "\nEnd.") {
		t.Errorf("template not rendered around transcript: %q", call.user)
	}
}

func TestAnalyzeTemplateWithoutPlaceholderAppends(t *testing.T) {
	gen := &fakeGenerator{outputs: []string{"ok"}}
	analyzer := newAnalyzer(t, gen, nil, 0)

	_, err := analyzer.Analyze(context.Background(), sampleResult(1), Request{
		UserPromptTemplate: "List the action items.",
	})
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}
	if !strings.HasPrefix(gen.calls[0].user, "List the action items.\n\n") {
		t.Errorf("transcript not appended after template: %q", gen.calls[0].user)
	}
}

func TestReportPath(t *testing.T) {
	got := ReportPath("/media/team sync.mp4", "/out")
	if got != filepath.Join("/out", "team sync_analysis.txt") {
		t.Errorf("unexpected report path: %s", got)
	}
}
