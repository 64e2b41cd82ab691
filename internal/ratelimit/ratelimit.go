// Package ratelimit provides named token buckets shared through an injected
// registry. Components that call external services ask the registry for a
// bucket by name, so every caller of the same service draws from the same
// budget without package-level state.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter is a token bucket for one named resource. Tokens refill lazily at
// the configured rate up to the burst capacity.
type Limiter struct {
	name   string
	bucket *rate.Limiter
}

// Name returns the resource name the limiter was registered under.
func (l *Limiter) Name() string {
	return l.name
}

// Consume takes tokens from the bucket. With wait false it returns immediately
// and reports whether the tokens were available. With wait true it blocks the
// calling goroutine until the bucket refills enough, then returns true; it
// returns false when the context is cancelled first or the request can never
// be satisfied because tokens exceeds the burst capacity.
func (l *Limiter) Consume(ctx context.Context, tokens int, wait bool) bool {
	if tokens <= 0 {
		return true
	}
	if !wait {
		return l.bucket.AllowN(time.Now(), tokens)
	}
	return l.bucket.WaitN(ctx, tokens) == nil
}

// Registry hands out named limiters. Construct one per application and pass
// it to the components that need throttling.
type Registry struct {
	mu       sync.Mutex
	limiters map[string]*Limiter
}

// NewRegistry returns an empty limiter registry.
func NewRegistry() *Registry {
	return &Registry{limiters: make(map[string]*Limiter)}
}

// GetOrCreate returns the limiter registered under name, creating it with the
// given shape when absent. r tokens refill per interval, up to burst. An
// existing limiter keeps its original shape.
func (r *Registry) GetOrCreate(name string, tokens float64, per time.Duration, burst int) *Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	if limiter, ok := r.limiters[name]; ok {
		return limiter
	}

	refill := rate.Inf
	if per > 0 && tokens > 0 {
		refill = rate.Limit(tokens / per.Seconds())
	}
	limiter := &Limiter{
		name:   name,
		bucket: rate.NewLimiter(refill, burst),
	}
	r.limiters[name] = limiter
	return limiter
}

// Get returns the limiter registered under name, if any.
func (r *Registry) Get(name string) (*Limiter, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	limiter, ok := r.limiters[name]
	return limiter, ok
}

// Remove drops the limiter registered under name. Existing references stay
// usable but new GetOrCreate calls start a fresh bucket.
func (r *Registry) Remove(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.limiters, name)
}
