package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	OutputDir string `toml:"output_dir"`
	CacheDir  string `toml:"cache_dir"`
	WorkDir   string `toml:"work_dir"`
	LogDir    string `toml:"log_dir"`
	WatchDir  string `toml:"watch_dir"`
	QueueDB   string `toml:"queue_db"`
}

// Input contains configuration for accepted media files.
type Input struct {
	AllowedExtensions []string `toml:"allowed_extensions"`
}

// Conversion contains configuration for the audio extraction step.
type Conversion struct {
	FFmpegBinary string `toml:"ffmpeg_binary"`
	AudioFormat  string `toml:"audio_format"`
	AudioBitrate string `toml:"audio_bitrate"`
	SampleRate   int    `toml:"sample_rate"`
	KeepAudio    bool   `toml:"keep_audio"`
}

// Transcription contains configuration for the speech-to-text step.
type Transcription struct {
	WhisperXBinary       string  `toml:"whisperx_binary"`
	Model                string  `toml:"model"`
	Language             string  `toml:"language"`
	SpeakerLabels        bool    `toml:"speaker_labels"`
	LargeFileThresholdMB int     `toml:"large_file_threshold_mb"`
	StreamingEnabled     bool    `toml:"streaming_enabled"`
	StreamingChunkSize   int     `toml:"streaming_chunk_size"`
	RateLimitTokens      float64 `toml:"rate_limit_tokens"`
	RateLimitPerSeconds  int     `toml:"rate_limit_per_seconds"`
	RateLimitBurst       int     `toml:"rate_limit_burst"`
}

// Results contains configuration for result handling and output formats.
type Results struct {
	CacheEnabled  bool     `toml:"cache_enabled"`
	LazyThreshold int      `toml:"lazy_threshold"`
	ChunkSize     int      `toml:"chunk_size"`
	Formats       []string `toml:"formats"`
	PrettyJSON    bool     `toml:"pretty_json"`
}

// Analysis contains configuration for LLM-backed transcript analysis.
type Analysis struct {
	Enabled        bool   `toml:"enabled"`
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	ChunkSize      int    `toml:"chunk_size"`
}

// Batch contains configuration for multi-file processing.
type Batch struct {
	MaxWorkers      int  `toml:"max_workers"`
	Parallel        bool `toml:"parallel"`
	ContinueOnError bool `toml:"continue_on_error"`
}

// Workflow contains configuration for daemon timing and intervals.
type Workflow struct {
	QueuePollInterval   int    `toml:"queue_poll_interval"`
	HeartbeatInterval   int    `toml:"heartbeat_interval"`
	HeartbeatTimeout    int    `toml:"heartbeat_timeout"`
	WatchScanInterval   int    `toml:"watch_scan_interval"`
	MaintenanceSchedule string `toml:"maintenance_schedule"`
	StaleWorkHours      int    `toml:"stale_work_hours"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Items          bool   `toml:"items"`
	Batches        bool   `toml:"batches"`
	Errors         bool   `toml:"errors"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for scrivo.
//
// Configuration sections by subsystem:
//   - Paths: output, cache, work, log, and watch directories
//   - Input: accepted media extensions
//   - Conversion: ffmpeg audio extraction settings
//   - Transcription: whisperx settings, streaming thresholds, rate limits
//   - Results: result cache, lazy wrapping thresholds, output formats
//   - Analysis: LLM connection for transcript analysis
//   - Batch: worker pool sizing and error policy
//   - Workflow: daemon polling intervals and maintenance schedule
//   - Notifications: ntfy push notification settings
//   - Logging: log format, level, and retention
type Config struct {
	Paths         Paths         `toml:"paths"`
	Input         Input         `toml:"input"`
	Conversion    Conversion    `toml:"conversion"`
	Transcription Transcription `toml:"transcription"`
	Results       Results       `toml:"results"`
	Analysis      Analysis      `toml:"analysis"`
	Batch         Batch         `toml:"batch"`
	Workflow      Workflow      `toml:"workflow"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/scrivo/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("scrivo.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
// The watch directory is created on a best-effort basis so the daemon can run
// when the watched location is temporarily unavailable.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.OutputDir, c.Paths.CacheDir, c.Paths.WorkDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Paths.WatchDir) != "" {
		_ = os.MkdirAll(c.Paths.WatchDir, 0o755)
	}
	return nil
}

// QueueDatabasePath returns the location of the sqlite job store.
func (c *Config) QueueDatabasePath() string {
	if c.Paths.QueueDB != "" {
		return c.Paths.QueueDB
	}
	return filepath.Join(c.Paths.WorkDir, "queue.db")
}

// FFmpegBinary returns the ffmpeg executable to invoke for conversion.
func (c *Config) FFmpegBinary() string {
	if bin := strings.TrimSpace(c.Conversion.FFmpegBinary); bin != "" {
		return bin
	}
	return "ffmpeg"
}

// WhisperXBinary returns the whisperx executable to invoke for transcription.
func (c *Config) WhisperXBinary() string {
	if bin := strings.TrimSpace(c.Transcription.WhisperXBinary); bin != "" {
		return bin
	}
	return "whisperx"
}

// LargeFileThresholdBytes returns the streaming decision threshold in bytes.
func (c *Config) LargeFileThresholdBytes() int64 {
	return int64(c.Transcription.LargeFileThresholdMB) * 1024 * 1024
}

// LLMConfig contains the LLM connection settings used by the analysis feature.
type LLMConfig struct {
	APIKey         string
	BaseURL        string
	Model          string
	TimeoutSeconds int
}

// AnalysisLLM returns the LLM connection settings for transcript analysis.
func (c *Config) AnalysisLLM() LLMConfig {
	return LLMConfig{
		APIKey:         strings.TrimSpace(c.Analysis.APIKey),
		BaseURL:        strings.TrimSpace(c.Analysis.BaseURL),
		Model:          strings.TrimSpace(c.Analysis.Model),
		TimeoutSeconds: c.Analysis.TimeoutSeconds,
	}
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
