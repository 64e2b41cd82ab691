// Package cancel provides a resettable cancellation token shared between a
// controller and the pipeline stages it supervises.
//
// A Token is requested with a reason, optionally annotated with metadata, and
// checked at stage boundaries. Unlike context cancellation it can be cleared
// with Reset and reused for the next logical operation, which is what the
// batch coordinator does between files.
package cancel

import (
	"fmt"
	"sync"

	"scrivo/internal/services"
)

// Token is a cooperative cancellation flag with an attached reason and
// metadata. The zero value is ready to use.
type Token struct {
	mu        sync.Mutex
	requested bool
	reason    string
	metadata  map[string]any
}

// New returns a fresh token.
func New() *Token {
	return &Token{}
}

// Request marks the token as cancelled with the given reason. Later requests
// keep the first reason so checkpoints report why cancellation started.
func (t *Token) Request(reason string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.requested {
		return
	}
	t.requested = true
	t.reason = reason
}

// IsRequested reports whether cancellation has been requested.
func (t *Token) IsRequested() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.requested
}

// Reason returns the cancellation reason and whether cancellation was
// requested at all.
func (t *Token) Reason() (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.reason, t.requested
}

// SetMetadata attaches a key/value pair to the token. Metadata survives until
// the next Reset and travels with the cancellation reason into logs.
func (t *Token) SetMetadata(key string, value any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.metadata == nil {
		t.metadata = make(map[string]any)
	}
	t.metadata[key] = value
}

// Metadata returns the value stored under key, or def when absent.
func (t *Token) Metadata(key string, def any) any {
	t.mu.Lock()
	defer t.mu.Unlock()
	if value, ok := t.metadata[key]; ok {
		return value
	}
	return def
}

// Reset clears the flag, reason, and metadata in one step so the token can
// supervise the next operation.
func (t *Token) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.requested = false
	t.reason = ""
	t.metadata = nil
}

// Err returns nil when the token is active, or a typed cancellation error
// carrying the reason when cancellation was requested. Stage checkpoints call
// this to abort uniformly.
func (t *Token) Err() error {
	reason, requested := t.Reason()
	if !requested {
		return nil
	}
	if reason == "" {
		return services.ErrCancelled
	}
	return fmt.Errorf("%w: %s", services.ErrCancelled, reason)
}
