package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// DefaultBinary is the ffmpeg executable resolved from PATH when no
// explicit binary is configured.
const DefaultBinary = "ffmpeg"

// Config captures runtime settings for audio conversion.
type Config struct {
	// Binary is the ffmpeg executable (default "ffmpeg").
	Binary string
	// AudioFormat selects the output container ("mp3", "wav", "flac", "ogg", "m4a").
	AudioFormat string
	// AudioBitrate sets the target bitrate for lossy formats (e.g. "128k").
	AudioBitrate string
	// SampleRate sets the output sample rate in Hz (e.g. 44100).
	SampleRate int
}

// Service extracts audio tracks via ffmpeg.
type Service struct {
	cfg           Config
	commandRunner func(ctx context.Context, name string, args ...string) error
}

// NewService creates an ffmpeg service with the given configuration.
func NewService(cfg Config) *Service {
	if cfg.Binary == "" {
		cfg.Binary = DefaultBinary
	}
	return &Service{cfg: cfg}
}

// WithCommandRunner sets a custom command runner (for testing).
func (s *Service) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) error) {
	s.commandRunner = runner
}

// Binary returns the configured ffmpeg executable for logging.
func (s *Service) Binary() string {
	return s.cfg.Binary
}

// Convert transcodes the audio track of inputPath into outputPath, dropping
// video, subtitle, and data streams. The output format follows the
// configured audio settings.
func (s *Service) Convert(ctx context.Context, inputPath, outputPath string) error {
	if strings.TrimSpace(inputPath) == "" {
		return fmt.Errorf("convert: input path required")
	}
	if strings.TrimSpace(outputPath) == "" {
		return fmt.Errorf("convert: output path required")
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return fmt.Errorf("convert: ensure output dir: %w", err)
	}

	args := s.buildConvertArgs(inputPath, outputPath)
	return s.run(ctx, s.cfg.Binary, args...)
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

// buildConvertArgs constructs the ffmpeg arguments for audio extraction.
func (s *Service) buildConvertArgs(inputPath, outputPath string) []string {
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", inputPath,
		"-vn",
		"-sn",
		"-dn",
	}

	format := strings.ToLower(strings.TrimSpace(s.cfg.AudioFormat))
	bitrate := strings.TrimSpace(s.cfg.AudioBitrate)
	switch format {
	case "wav":
		args = append(args, "-acodec", "pcm_s16le")
	case "flac":
		args = append(args, "-acodec", "flac")
	case "ogg":
		args = append(args, "-acodec", "libvorbis")
		if bitrate != "" {
			args = append(args, "-b:a", bitrate)
		}
	case "m4a", "aac":
		args = append(args, "-acodec", "aac")
		if bitrate != "" {
			args = append(args, "-b:a", bitrate)
		}
	default:
		// mp3 and anything unrecognized falls back to the lame encoder.
		args = append(args, "-acodec", "libmp3lame")
		if bitrate != "" {
			args = append(args, "-b:a", bitrate)
		}
	}

	if s.cfg.SampleRate > 0 {
		args = append(args, "-ar", strconv.Itoa(s.cfg.SampleRate))
	}

	args = append(args, outputPath)
	return args
}
