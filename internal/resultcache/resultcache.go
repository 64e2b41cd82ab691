// Package resultcache stores transcription results on disk keyed by a
// fingerprint of the source file. A fingerprint covers the absolute path,
// size, and modification time, so editing or replacing a media file naturally
// invalidates its cached transcript.
//
// Cache failures are soft: reads that fail behave as misses, writes that fail
// are logged and dropped. Processing never stops because the cache is
// unavailable.
package resultcache

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"scrivo/internal/logging"
	"scrivo/internal/transcript"
)

// Entry is the stored form of one cached transcription.
type Entry struct {
	Source     string                 `json:"source"`
	Text       string                 `json:"text"`
	Language   string                 `json:"language,omitempty"`
	Duration   float64                `json:"duration,omitempty"`
	Utterances []transcript.Utterance `json:"utterances"`
	CachedAt   time.Time              `json:"cached_at"`
}

// Info summarizes one cache entry for listings.
type Info struct {
	Fingerprint string
	Source      string
	Utterances  int
	CachedAt    time.Time
}

// Cache is a directory of JSON result blobs, one file per fingerprint.
type Cache struct {
	mu     sync.Mutex
	dir    string
	logger *slog.Logger
}

// New returns a cache rooted at dir, creating the directory when needed.
func New(dir string, logger *slog.Logger) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}
	return &Cache{
		dir:    dir,
		logger: logging.NewComponentLogger(logger, "resultcache"),
	}, nil
}

// Dir returns the cache root directory.
func (c *Cache) Dir() string {
	return c.dir
}

// Fingerprint derives the cache key for path. The same key identifies queue
// items, so enqueue deduplication and cache lookups agree on file identity.
// When the file cannot be stat'ed the key degrades to the path alone, which
// keeps lookups working at the cost of change detection.
func Fingerprint(path string) string {
	fingerprint, _ := fingerprintInfo(path)
	return fingerprint
}

func fingerprintInfo(path string) (string, bool) {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	key := fmt.Sprintf("%s:0:0", abs)
	degraded := true
	if info, statErr := os.Stat(abs); statErr == nil {
		key = fmt.Sprintf("%s:%d:%d", abs, info.Size(), info.ModTime().Unix())
		degraded = false
	}

	sum := md5.Sum([]byte(key))
	return hex.EncodeToString(sum[:]), degraded
}

// Fingerprint derives the cache key for path, logging when change detection
// degrades to a path-only key.
func (c *Cache) Fingerprint(path string) string {
	fingerprint, degraded := fingerprintInfo(path)
	if degraded {
		logging.WarnWithContext(c.logger, "fingerprint falling back to path-only key", "cache_fingerprint_degraded",
			logging.String("path", path),
			logging.String(logging.FieldImpact, "cached result will not expire when the file changes"))
	}
	return fingerprint
}

// Get returns the cached result for path, or false on a miss. A corrupt
// entry is evicted and reported as a miss.
func (c *Cache) Get(path string) (*transcript.Result, bool) {
	fingerprint := c.Fingerprint(path)

	c.mu.Lock()
	defer c.mu.Unlock()

	entryPath := c.entryPath(fingerprint)
	data, err := os.ReadFile(entryPath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logging.WarnWithContext(c.logger, "cache read failed", "cache_read_failed",
				logging.String("fingerprint", fingerprint),
				logging.Error(err))
		}
		return nil, false
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		logging.WarnWithContext(c.logger, "evicting corrupt cache entry", "cache_entry_corrupt",
			logging.String("fingerprint", fingerprint),
			logging.Error(err),
			logging.String(logging.FieldImpact, "file will be transcribed again"))
		if removeErr := os.Remove(entryPath); removeErr != nil && !errors.Is(removeErr, fs.ErrNotExist) {
			logging.WarnWithContext(c.logger, "failed to evict corrupt cache entry", "cache_evict_failed",
				logging.String("fingerprint", fingerprint),
				logging.Error(removeErr))
		}
		return nil, false
	}

	return &transcript.Result{
		Source:     entry.Source,
		Language:   entry.Language,
		Duration:   entry.Duration,
		Text:       entry.Text,
		Utterances: entry.Utterances,
	}, true
}

// Set stores result under the fingerprint of path. Failures are logged and
// reported as false; they never interrupt processing.
func (c *Cache) Set(path string, result *transcript.Result) bool {
	if result == nil {
		return false
	}
	fingerprint := c.Fingerprint(path)

	c.mu.Lock()
	defer c.mu.Unlock()

	entry := Entry{
		Source:     result.Source,
		Text:       result.Text,
		Language:   result.Language,
		Duration:   result.Duration,
		Utterances: result.Utterances,
		CachedAt:   time.Now().UTC(),
	}
	data, err := json.Marshal(entry)
	if err != nil {
		logging.WarnWithContext(c.logger, "cache entry marshal failed", "cache_write_failed",
			logging.String("fingerprint", fingerprint),
			logging.Error(err))
		return false
	}

	if err := c.writeAtomic(c.entryPath(fingerprint), data); err != nil {
		logging.WarnWithContext(c.logger, "cache write failed", "cache_write_failed",
			logging.String("fingerprint", fingerprint),
			logging.Error(err),
			logging.String(logging.FieldImpact, "result will be recomputed next run"))
		return false
	}
	return true
}

// Invalidate removes the entry for path. It returns true when the entry is
// gone afterwards, whether or not it existed.
func (c *Cache) Invalidate(path string) bool {
	fingerprint := c.Fingerprint(path)

	c.mu.Lock()
	defer c.mu.Unlock()

	err := os.Remove(c.entryPath(fingerprint))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		logging.WarnWithContext(c.logger, "cache invalidate failed", "cache_invalidate_failed",
			logging.String("fingerprint", fingerprint),
			logging.Error(err))
		return false
	}
	return true
}

// Clear removes every entry. It returns true when all entries were removed.
func (c *Cache) Clear() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	paths, err := filepath.Glob(filepath.Join(c.dir, "*.json"))
	if err != nil {
		logging.WarnWithContext(c.logger, "cache clear failed", "cache_clear_failed", logging.Error(err))
		return false
	}

	ok := true
	for _, path := range paths {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			logging.WarnWithContext(c.logger, "cache clear failed to remove entry", "cache_clear_failed",
				logging.String("path", path),
				logging.Error(err))
			ok = false
		}
	}
	return ok
}

// Count returns the number of stored entries.
func (c *Cache) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	paths, err := filepath.Glob(filepath.Join(c.dir, "*.json"))
	if err != nil {
		return 0
	}
	return len(paths)
}

// List returns a summary of every readable entry, newest first. Corrupt
// entries are skipped.
func (c *Cache) List() []Info {
	c.mu.Lock()
	defer c.mu.Unlock()

	paths, err := filepath.Glob(filepath.Join(c.dir, "*.json"))
	if err != nil {
		return nil
	}

	infos := make([]Info, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var entry Entry
		if err := json.Unmarshal(data, &entry); err != nil {
			continue
		}
		fingerprint := filepath.Base(path)
		fingerprint = fingerprint[:len(fingerprint)-len(filepath.Ext(fingerprint))]
		infos = append(infos, Info{
			Fingerprint: fingerprint,
			Source:      entry.Source,
			Utterances:  len(entry.Utterances),
			CachedAt:    entry.CachedAt,
		})
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].CachedAt.After(infos[j].CachedAt)
	})
	return infos
}

// Prune removes entries whose source file no longer exists, plus entries too
// corrupt to read a source from. It returns the number of entries removed.
func (c *Cache) Prune() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	paths, err := filepath.Glob(filepath.Join(c.dir, "*.json"))
	if err != nil {
		logging.WarnWithContext(c.logger, "cache prune failed", "cache_prune_failed", logging.Error(err))
		return 0
	}

	removed := 0
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		orphaned := false
		var entry Entry
		if err := json.Unmarshal(data, &entry); err != nil {
			orphaned = true
		} else if entry.Source != "" {
			if _, statErr := os.Stat(entry.Source); errors.Is(statErr, fs.ErrNotExist) {
				orphaned = true
			}
		}
		if !orphaned {
			continue
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			logging.WarnWithContext(c.logger, "cache prune failed to remove entry", "cache_prune_failed",
				logging.String("path", path),
				logging.Error(err))
			continue
		}
		removed++
	}
	return removed
}

func (c *Cache) entryPath(fingerprint string) string {
	return filepath.Join(c.dir, fingerprint+".json")
}

func (c *Cache) writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(c.dir, ".entry-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}
