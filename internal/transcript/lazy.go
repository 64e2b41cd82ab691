package transcript

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sync"
)

var errLazyClosed = errors.New("lazy result is closed")

// LazyResult is a transcription result kept on disk as JSON lines instead of
// in memory. Every read pass re-opens the backing file, so the sequence can be
// consumed any number of times and two passes always yield the same
// utterances.
//
// Ownership of the backing file is explicit: results built from a slice own
// their temp file and delete it on Close, results opened over an existing file
// leave it in place. Callers defer Close.
type LazyResult struct {
	mu     sync.Mutex
	path   string
	source string
	count  int
	owned  bool
	closed bool
}

// NewLazyResult serializes utterances to a private temp file under dir (the
// system temp directory when dir is empty) and returns a lazy view over it.
func NewLazyResult(utterances []Utterance, source, dir string) (*LazyResult, error) {
	file, err := os.CreateTemp(dir, "utterances_*.jsonl")
	if err != nil {
		return nil, fmt.Errorf("create lazy result file: %w", err)
	}

	writer := bufio.NewWriter(file)
	encoder := json.NewEncoder(writer)
	for i := range utterances {
		if err := encoder.Encode(&utterances[i]); err != nil {
			file.Close()
			os.Remove(file.Name())
			return nil, fmt.Errorf("write lazy result: %w", err)
		}
	}
	if err := writer.Flush(); err != nil {
		file.Close()
		os.Remove(file.Name())
		return nil, fmt.Errorf("flush lazy result: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(file.Name())
		return nil, fmt.Errorf("close lazy result: %w", err)
	}

	return &LazyResult{
		path:   file.Name(),
		source: source,
		count:  len(utterances),
		owned:  true,
	}, nil
}

// OpenLazyResult returns a lazy view over an existing JSONL utterance file.
// The file is scanned once to establish the count and stays owned by the
// caller.
func OpenLazyResult(path, source string) (*LazyResult, error) {
	count := 0
	err := scanUtterances(path, func(Utterance) error {
		count++
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &LazyResult{
		path:   path,
		source: source,
		count:  count,
	}, nil
}

// Count returns the number of utterances in the sequence.
func (l *LazyResult) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.count
}

// Source returns the media path this result was transcribed from.
func (l *LazyResult) Source() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.source
}

// Path returns the backing file location.
func (l *LazyResult) Path() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.path
}

// Each streams every utterance through fn in file order. The backing file is
// re-opened for each call, so Each restarts from the beginning every time. A
// non-nil error from fn stops the pass and is returned.
func (l *LazyResult) Each(fn func(Utterance) error) error {
	path, err := l.backingPath()
	if err != nil {
		return err
	}
	return scanUtterances(path, fn)
}

// Chunk returns up to size utterances starting at the zero-based offset
// start. A start at or past the end returns an empty slice.
func (l *LazyResult) Chunk(start, size int) ([]Utterance, error) {
	if start < 0 {
		return nil, fmt.Errorf("chunk start must not be negative, got %d", start)
	}
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}

	path, err := l.backingPath()
	if err != nil {
		return nil, err
	}

	chunk := make([]Utterance, 0, size)
	index := 0
	err = scanUtterances(path, func(u Utterance) error {
		if index >= start && len(chunk) < size {
			chunk = append(chunk, u)
		}
		index++
		if len(chunk) == size {
			return errStopScan
		}
		return nil
	})
	if err != nil && !errors.Is(err, errStopScan) {
		return nil, err
	}
	return chunk, nil
}

// ToResult materializes the full in-memory result. Intended for consumers
// that genuinely need the whole transcript at once, such as formatters.
func (l *LazyResult) ToResult() (*Result, error) {
	utterances := make([]Utterance, 0, l.Count())
	err := l.Each(func(u Utterance) error {
		utterances = append(utterances, u)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &Result{
		Source:     l.Source(),
		Text:       JoinUtterances(utterances),
		Utterances: utterances,
	}, nil
}

// Close releases the lazy result. An owned temp file is deleted on the first
// call; later calls are no-ops.
func (l *LazyResult) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	if !l.owned {
		return nil
	}
	if err := os.Remove(l.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove lazy result file: %w", err)
	}
	return nil
}

func (l *LazyResult) backingPath() (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return "", errLazyClosed
	}
	return l.path, nil
}

var errStopScan = errors.New("stop scan")

func scanUtterances(path string, fn func(Utterance) error) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open lazy result file: %w", err)
	}
	defer file.Close()

	decoder := json.NewDecoder(bufio.NewReader(file))
	for {
		var u Utterance
		if err := decoder.Decode(&u); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("decode lazy result entry: %w", err)
		}
		if err := fn(u); err != nil {
			return err
		}
	}
}
