package config

import (
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.Paths.normalize(); err != nil {
		return err
	}
	c.Input.normalize()
	c.Conversion.normalize()
	c.Transcription.normalize()
	c.Results.normalize()
	c.Analysis.normalize()
	c.Workflow.normalize()
	c.Notifications.normalize()
	c.Logging.normalize()
	return nil
}

func (p *Paths) normalize() error {
	fields := []struct {
		value    *string
		optional bool
	}{
		{&p.OutputDir, false},
		{&p.CacheDir, false},
		{&p.WorkDir, false},
		{&p.LogDir, false},
		{&p.WatchDir, true},
		{&p.QueueDB, true},
	}
	for _, field := range fields {
		trimmed := strings.TrimSpace(*field.value)
		if trimmed == "" && field.optional {
			*field.value = ""
			continue
		}
		expanded, err := expandPath(trimmed)
		if err != nil {
			return err
		}
		*field.value = expanded
	}
	return nil
}

func (i *Input) normalize() {
	normalized := make([]string, 0, len(i.AllowedExtensions))
	seen := make(map[string]struct{}, len(i.AllowedExtensions))
	for _, ext := range i.AllowedExtensions {
		ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
		if ext == "" {
			continue
		}
		if _, ok := seen[ext]; ok {
			continue
		}
		seen[ext] = struct{}{}
		normalized = append(normalized, ext)
	}
	i.AllowedExtensions = normalized
}

func (cv *Conversion) normalize() {
	cv.FFmpegBinary = strings.TrimSpace(cv.FFmpegBinary)
	cv.AudioFormat = strings.ToLower(strings.TrimSpace(cv.AudioFormat))
	if cv.AudioFormat == "" {
		cv.AudioFormat = defaultAudioFormat
	}
	cv.AudioBitrate = strings.TrimSpace(cv.AudioBitrate)
	if cv.AudioBitrate == "" {
		cv.AudioBitrate = defaultAudioBitrate
	}
}

func (t *Transcription) normalize() {
	t.WhisperXBinary = strings.TrimSpace(t.WhisperXBinary)
	t.Model = strings.TrimSpace(t.Model)
	if t.Model == "" {
		t.Model = defaultTranscriptionModel
	}
	t.Language = strings.ToLower(strings.TrimSpace(t.Language))
}

func (r *Results) normalize() {
	normalized := make([]string, 0, len(r.Formats))
	seen := make(map[string]struct{}, len(r.Formats))
	for _, name := range r.Formats {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		normalized = append(normalized, name)
	}
	if len(normalized) == 0 {
		normalized = []string{"txt"}
	}
	r.Formats = normalized
}

func (a *Analysis) normalize() {
	a.APIKey = strings.TrimSpace(a.APIKey)
	if a.APIKey == "" {
		if key, ok := os.LookupEnv("SCRIVO_LLM_API_KEY"); ok {
			a.APIKey = strings.TrimSpace(key)
		}
	}
	if a.APIKey == "" {
		if key, ok := os.LookupEnv("OPENROUTER_API_KEY"); ok {
			a.APIKey = strings.TrimSpace(key)
		}
	}
	a.BaseURL = strings.TrimSpace(a.BaseURL)
	if a.BaseURL == "" {
		a.BaseURL = defaultAnalysisBaseURL
	}
	a.Model = strings.TrimSpace(a.Model)
	if a.Model == "" {
		a.Model = defaultAnalysisModel
	}
}

func (w *Workflow) normalize() {
	w.MaintenanceSchedule = strings.TrimSpace(w.MaintenanceSchedule)
	if w.MaintenanceSchedule == "" {
		w.MaintenanceSchedule = defaultMaintenanceCron
	}
}

func (n *Notifications) normalize() {
	n.NtfyTopic = strings.TrimSpace(n.NtfyTopic)
}

func (l *Logging) normalize() {
	l.Format = strings.ToLower(strings.TrimSpace(l.Format))
	if l.Format == "" {
		l.Format = defaultLogFormat
	}
	l.Level = strings.ToLower(strings.TrimSpace(l.Level))
	if l.Level == "" {
		l.Level = defaultLogLevel
	}
}
