package whisperx

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"scrivo/internal/language"
	"scrivo/internal/pipeline"
	"scrivo/internal/transcript"
)

// Service transcribes audio files by invoking the whisperx CLI and parsing
// its JSON output. It implements the pipeline's transcription contract.
type Service struct {
	cfg           Config
	commandRunner func(ctx context.Context, name string, args ...string) error
}

// NewService creates a whisperx service with the given configuration.
func NewService(cfg Config) *Service {
	if cfg.Binary == "" {
		cfg.Binary = DefaultBinary
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	return &Service{cfg: cfg}
}

// WithCommandRunner sets a custom command runner (for testing).
func (s *Service) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) error) {
	s.commandRunner = runner
}

// Binary returns the configured whisperx executable for logging.
func (s *Service) Binary() string {
	return s.cfg.Binary
}

// Model returns the model used when the request does not name one.
func (s *Service) Model() string {
	return s.cfg.Model
}

// Transcribe runs whisperx over audioPath and returns the parsed result.
// Output files land in a scratch directory that is removed before returning.
func (s *Service) Transcribe(ctx context.Context, audioPath string, cfg pipeline.TranscribeConfig) (*transcript.Result, error) {
	if strings.TrimSpace(audioPath) == "" {
		return nil, fmt.Errorf("transcribe: audio path required")
	}
	if _, err := os.Stat(audioPath); err != nil {
		return nil, fmt.Errorf("transcribe: %w", err)
	}

	scratchBase := s.cfg.WorkDir
	if scratchBase == "" {
		scratchBase = filepath.Dir(audioPath)
	}
	if err := os.MkdirAll(scratchBase, 0o755); err != nil {
		return nil, fmt.Errorf("transcribe: ensure work dir: %w", err)
	}
	scratchDir, err := os.MkdirTemp(scratchBase, "whisperx-")
	if err != nil {
		return nil, fmt.Errorf("transcribe: create scratch dir: %w", err)
	}
	defer os.RemoveAll(scratchDir)

	args := s.buildArgs(audioPath, scratchDir, cfg)
	if err := s.run(ctx, s.cfg.Binary, args...); err != nil {
		return nil, fmt.Errorf("whisperx: %w", err)
	}

	stem := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	payloadPath := filepath.Join(scratchDir, stem+".json")
	payload, err := loadPayload(payloadPath)
	if err != nil {
		return nil, fmt.Errorf("whisperx output: %w", err)
	}
	return payload.toResult(), nil
}

// run executes a command, using the custom runner if set.
func (s *Service) run(ctx context.Context, name string, args ...string) error {
	if s.commandRunner != nil {
		return s.commandRunner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}

// buildArgs constructs the whisperx command line for one transcription.
func (s *Service) buildArgs(audioPath, outputDir string, cfg pipeline.TranscribeConfig) []string {
	model := cfg.Model
	if model == "" {
		model = s.cfg.Model
	}

	args := []string{
		audioPath,
		"--model", model,
		"--batch_size", batchSize,
		"--output_dir", outputDir,
		"--output_format", outputFormat,
	}

	if lang := language.ToISO2(cfg.Language); lang != "" {
		args = append(args, "--language", lang)
	}

	if cfg.SpeakerLabels {
		args = append(args, "--diarize")
		if s.cfg.HFToken != "" {
			args = append(args, "--hf_token", s.cfg.HFToken)
		}
	}

	return args
}

// payloadWord is a single word in whisperx JSON output.
type payloadWord struct {
	Word    string  `json:"word"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Score   float64 `json:"score"`
	Speaker string  `json:"speaker"`
}

// payloadSegment is a transcribed segment in whisperx JSON output. The
// speaker field is present only when diarization ran.
type payloadSegment struct {
	Text    string        `json:"text"`
	Start   float64       `json:"start"`
	End     float64       `json:"end"`
	Speaker string        `json:"speaker"`
	Words   []payloadWord `json:"words"`
}

// payload is the top-level whisperx JSON document.
type payload struct {
	Segments []payloadSegment `json:"segments"`
	Language string           `json:"language"`
}

func loadPayload(jsonPath string) (*payload, error) {
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, err
	}
	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(jsonPath), err)
	}
	return &p, nil
}

// toResult converts the wire payload into the shared transcript model.
// Segments without their own speaker inherit the speaker of their first
// labeled word.
func (p *payload) toResult() *transcript.Result {
	result := &transcript.Result{
		Language:   p.Language,
		Utterances: make([]transcript.Utterance, 0, len(p.Segments)),
	}
	for _, seg := range p.Segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		utterance := transcript.Utterance{
			Speaker: seg.Speaker,
			Text:    text,
			Start:   seg.Start,
			End:     seg.End,
		}
		if len(seg.Words) > 0 {
			utterance.Words = make([]transcript.Word, 0, len(seg.Words))
			for _, w := range seg.Words {
				if utterance.Speaker == "" && w.Speaker != "" {
					utterance.Speaker = w.Speaker
				}
				utterance.Words = append(utterance.Words, transcript.Word{
					Text:    strings.TrimSpace(w.Word),
					Start:   w.Start,
					End:     w.End,
					Score:   w.Score,
					Speaker: w.Speaker,
				})
			}
		}
		result.Utterances = append(result.Utterances, utterance)
		if seg.End > result.Duration {
			result.Duration = seg.End
		}
	}
	result.Text = transcript.JoinUtterances(result.Utterances)
	return result
}
