// Package workdir keeps the scratch directory tidy. Converted audio files,
// whisperx output directories, and lazy transcript spill files are removed by
// their owners on clean exits; a crashed or killed run leaves them behind.
// The sweep removes entries older than a cutoff, skipping excluded paths such
// as the queue database.
package workdir

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"scrivo/internal/logging"
)

// SweepResult contains the outcome of one sweep pass.
type SweepResult struct {
	Removed []string
	Errors  []SweepError
}

// SweepError pairs an entry path with its removal error.
type SweepError struct {
	Path  string
	Error error
}

// Options adjust a sweep pass.
type Options struct {
	// MaxAge is the minimum age before an entry counts as stale. Zero
	// removes every non-excluded entry.
	MaxAge time.Duration
	// Exclude lists paths that are never removed. Entries are compared
	// after filepath.Abs normalization.
	Exclude []string
}

// SweepStale removes files and directories in workDir whose modification
// time is older than the cutoff. Exclusions and the directory itself are
// left alone; removal errors are collected rather than aborting the pass.
func SweepStale(ctx context.Context, workDir string, opts Options, logger *slog.Logger) SweepResult {
	result := SweepResult{}

	workDir = strings.TrimSpace(workDir)
	if workDir == "" {
		return result
	}

	entries, err := os.ReadDir(workDir)
	if err != nil {
		if !os.IsNotExist(err) {
			result.Errors = append(result.Errors, SweepError{Path: workDir, Error: err})
		}
		return result
	}

	excluded := normalizeExclusions(opts.Exclude)
	cutoff := time.Now().Add(-opts.MaxAge)

	for _, entry := range entries {
		if ctx.Err() != nil {
			return result
		}

		entryPath := filepath.Join(workDir, entry.Name())
		if abs, err := filepath.Abs(entryPath); err == nil {
			if _, skip := excluded[abs]; skip {
				continue
			}
		}

		info, err := entry.Info()
		if err != nil {
			result.Errors = append(result.Errors, SweepError{Path: entryPath, Error: err})
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}

		if err := os.RemoveAll(entryPath); err != nil {
			result.Errors = append(result.Errors, SweepError{Path: entryPath, Error: err})
			if logger != nil {
				logger.Warn("failed to remove stale work entry",
					logging.String("path", entryPath),
					logging.Error(err),
					logging.String(logging.FieldEventType, "workdir_sweep_failed"),
					logging.String(logging.FieldErrorHint, "check work_dir permissions"),
					logging.String(logging.FieldImpact, "disk space not reclaimed"),
				)
			}
			continue
		}

		result.Removed = append(result.Removed, entryPath)
		if logger != nil {
			logger.Info("removed stale work entry",
				logging.String("path", entryPath),
				logging.Duration("age", time.Since(info.ModTime())),
				logging.String(logging.FieldEventType, "workdir_sweep"),
			)
		}
	}

	return result
}

// Entry describes one item inside the work directory.
type Entry struct {
	Name    string    `json:"name"`
	Path    string    `json:"path"`
	ModTime time.Time `json:"modTime"`
	Size    int64     `json:"sizeBytes"`
	IsDir   bool      `json:"isDir"`
}

// List returns the entries inside workDir with their sizes. Directory sizes
// are computed recursively, best effort.
func List(workDir string) ([]Entry, error) {
	workDir = strings.TrimSpace(workDir)
	if workDir == "" {
		return nil, nil
	}

	dirEntries, err := os.ReadDir(workDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var entries []Entry
	for _, entry := range dirEntries {
		info, err := entry.Info()
		if err != nil {
			continue
		}

		entryPath := filepath.Join(workDir, entry.Name())
		size := info.Size()
		if entry.IsDir() {
			size, _ = dirSize(entryPath)
		}

		entries = append(entries, Entry{
			Name:    entry.Name(),
			Path:    entryPath,
			ModTime: info.ModTime(),
			Size:    size,
			IsDir:   entry.IsDir(),
		})
	}

	return entries, nil
}

func normalizeExclusions(paths []string) map[string]struct{} {
	excluded := make(map[string]struct{}, len(paths))
	for _, path := range paths {
		path = strings.TrimSpace(path)
		if path == "" {
			continue
		}
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
		excluded[path] = struct{}{}
	}
	return excluded
}

func dirSize(path string) (int64, error) {
	var size int64
	err := filepath.Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() {
			size += info.Size()
		}
		return nil
	})
	return size, err
}
