package config

import (
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
)

var knownFormats = map[string]struct{}{
	"txt":  {},
	"json": {},
	"html": {},
}

var knownLogFormats = map[string]struct{}{
	"console": {},
	"json":    {},
}

var knownLogLevels = map[string]struct{}{
	"debug": {},
	"info":  {},
	"warn":  {},
	"error": {},
}

// Validate checks the configuration for invalid or inconsistent values.
func (c *Config) Validate() error {
	if err := c.Paths.validate(); err != nil {
		return err
	}
	if err := c.Input.validate(); err != nil {
		return err
	}
	if err := c.Conversion.validate(); err != nil {
		return err
	}
	if err := c.Transcription.validate(); err != nil {
		return err
	}
	if err := c.Results.validate(); err != nil {
		return err
	}
	if err := c.Analysis.validate(); err != nil {
		return err
	}
	if err := c.Batch.validate(); err != nil {
		return err
	}
	if err := c.Workflow.validate(); err != nil {
		return err
	}
	if err := c.Notifications.validate(); err != nil {
		return err
	}
	return c.Logging.validate()
}

func (p *Paths) validate() error {
	required := map[string]string{
		"paths.output_dir": p.OutputDir,
		"paths.cache_dir":  p.CacheDir,
		"paths.work_dir":   p.WorkDir,
		"paths.log_dir":    p.LogDir,
	}
	for key, value := range required {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("%s is required", key)
		}
	}
	return nil
}

func (i *Input) validate() error {
	if len(i.AllowedExtensions) == 0 {
		return fmt.Errorf("input.allowed_extensions must list at least one extension")
	}
	return nil
}

func (cv *Conversion) validate() error {
	if cv.SampleRate <= 0 {
		return fmt.Errorf("conversion.sample_rate must be positive, got %d", cv.SampleRate)
	}
	return nil
}

func (t *Transcription) validate() error {
	return ensurePositiveMap(map[string]int{
		"transcription.large_file_threshold_mb": t.LargeFileThresholdMB,
		"transcription.streaming_chunk_size":    t.StreamingChunkSize,
		"transcription.rate_limit_per_seconds":  t.RateLimitPerSeconds,
		"transcription.rate_limit_burst":        t.RateLimitBurst,
	})
}

func (r *Results) validate() error {
	if err := ensurePositiveMap(map[string]int{
		"results.lazy_threshold": r.LazyThreshold,
		"results.chunk_size":     r.ChunkSize,
	}); err != nil {
		return err
	}
	for _, name := range r.Formats {
		if _, ok := knownFormats[name]; !ok {
			return fmt.Errorf("results.formats contains unknown format %q", name)
		}
	}
	return nil
}

func (a *Analysis) validate() error {
	if !a.Enabled {
		return nil
	}
	if a.APIKey == "" {
		return fmt.Errorf("analysis.api_key is required when analysis is enabled (or set SCRIVO_LLM_API_KEY)")
	}
	return ensurePositiveMap(map[string]int{
		"analysis.timeout_seconds": a.TimeoutSeconds,
		"analysis.chunk_size":      a.ChunkSize,
	})
}

func (b *Batch) validate() error {
	return ensurePositiveMap(map[string]int{
		"batch.max_workers": b.MaxWorkers,
	})
}

func (w *Workflow) validate() error {
	if err := ensurePositiveMap(map[string]int{
		"workflow.queue_poll_interval": w.QueuePollInterval,
		"workflow.heartbeat_interval":  w.HeartbeatInterval,
		"workflow.heartbeat_timeout":   w.HeartbeatTimeout,
		"workflow.watch_scan_interval": w.WatchScanInterval,
		"workflow.stale_work_hours":    w.StaleWorkHours,
	}); err != nil {
		return err
	}
	if w.HeartbeatTimeout <= w.HeartbeatInterval {
		return fmt.Errorf("workflow.heartbeat_timeout must exceed workflow.heartbeat_interval")
	}
	if _, err := cron.ParseStandard(w.MaintenanceSchedule); err != nil {
		return fmt.Errorf("workflow.maintenance_schedule is not a valid cron expression: %w", err)
	}
	return nil
}

func (n *Notifications) validate() error {
	if n.NtfyTopic == "" {
		return nil
	}
	return ensurePositiveMap(map[string]int{
		"notifications.request_timeout": n.RequestTimeout,
	})
}

func (l *Logging) validate() error {
	if _, ok := knownLogFormats[l.Format]; !ok {
		return fmt.Errorf("logging.format must be console or json, got %q", l.Format)
	}
	if _, ok := knownLogLevels[l.Level]; !ok {
		return fmt.Errorf("logging.level must be one of debug, info, warn, error, got %q", l.Level)
	}
	if l.RetentionDays < 0 {
		return fmt.Errorf("logging.retention_days must not be negative, got %d", l.RetentionDays)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive, got %d", key, value)
		}
	}
	return nil
}
