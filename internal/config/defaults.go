package config

// Default values for configuration fields.
const (
	defaultOutputDir = "~/scrivo/output"
	defaultCacheDir  = "~/.cache/scrivo/results"
	defaultWorkDir   = "~/.local/share/scrivo/work"
	defaultLogDir    = "~/.local/share/scrivo/logs"

	defaultAudioFormat  = "mp3"
	defaultAudioBitrate = "128k"
	defaultSampleRate   = 44100

	defaultTranscriptionModel  = "large-v2"
	defaultLargeFileMB         = 100
	defaultStreamingChunkSize  = 4096
	defaultRateLimitTokens     = 5.0
	defaultRateLimitPerSeconds = 60
	defaultRateLimitBurst      = 5

	defaultLazyThreshold    = 1000
	defaultResultChunkSize  = 100
	defaultAnalysisBaseURL  = "https://openrouter.ai/api/v1"
	defaultAnalysisModel    = "anthropic/claude-sonnet-4"
	defaultAnalysisTimeout  = 120
	defaultAnalysisChunk    = 1000
	defaultBatchMaxWorkers  = 4
	defaultQueuePollSec     = 5
	defaultHeartbeatSec     = 15
	defaultHeartbeatTimeout = 120
	defaultWatchScanSec     = 30
	defaultMaintenanceCron  = "@hourly"
	defaultStaleWorkHours   = 24
	defaultNtfyTimeout      = 10
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
	defaultLogRetentionDays = 30
)

func defaultAllowedExtensions() []string {
	return []string{
		"mp4", "avi", "mov", "mkv", "wmv", "flv", "webm",
		"mp3", "wav", "ogg", "flac", "m4v", "3gp", "mpg",
		"mpeg", "ts", "m2ts", "vob", "ogv", "divx", "aac",
		"m4a", "wma", "aiff", "ac3", "amr",
	}
}

// Default returns a Config populated with default values.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir: defaultOutputDir,
			CacheDir:  defaultCacheDir,
			WorkDir:   defaultWorkDir,
			LogDir:    defaultLogDir,
		},
		Input: Input{
			AllowedExtensions: defaultAllowedExtensions(),
		},
		Conversion: Conversion{
			AudioFormat:  defaultAudioFormat,
			AudioBitrate: defaultAudioBitrate,
			SampleRate:   defaultSampleRate,
		},
		Transcription: Transcription{
			Model:                defaultTranscriptionModel,
			SpeakerLabels:        true,
			LargeFileThresholdMB: defaultLargeFileMB,
			StreamingEnabled:     true,
			StreamingChunkSize:   defaultStreamingChunkSize,
			RateLimitTokens:      defaultRateLimitTokens,
			RateLimitPerSeconds:  defaultRateLimitPerSeconds,
			RateLimitBurst:       defaultRateLimitBurst,
		},
		Results: Results{
			CacheEnabled:  true,
			LazyThreshold: defaultLazyThreshold,
			ChunkSize:     defaultResultChunkSize,
			Formats:       []string{"txt"},
			PrettyJSON:    true,
		},
		Analysis: Analysis{
			BaseURL:        defaultAnalysisBaseURL,
			Model:          defaultAnalysisModel,
			TimeoutSeconds: defaultAnalysisTimeout,
			ChunkSize:      defaultAnalysisChunk,
		},
		Batch: Batch{
			MaxWorkers:      defaultBatchMaxWorkers,
			Parallel:        true,
			ContinueOnError: true,
		},
		Workflow: Workflow{
			QueuePollInterval:   defaultQueuePollSec,
			HeartbeatInterval:   defaultHeartbeatSec,
			HeartbeatTimeout:    defaultHeartbeatTimeout,
			WatchScanInterval:   defaultWatchScanSec,
			MaintenanceSchedule: defaultMaintenanceCron,
			StaleWorkHours:      defaultStaleWorkHours,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNtfyTimeout,
			Items:          true,
			Batches:        true,
			Errors:         true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
