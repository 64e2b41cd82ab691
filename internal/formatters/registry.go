// Package formatters renders transcription results into output documents.
// Formatters are registered by name in an injected registry; the pipeline
// asks the registry for the formats named in configuration.
package formatters

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"scrivo/internal/transcript"
)

// Formatter renders a transcription result into one output document.
type Formatter interface {
	Format(result *transcript.Result) (string, error)
	Extension() string
}

// Registry maps format names to formatters.
type Registry struct {
	mu         sync.RWMutex
	formatters map[string]Formatter
}

// NewRegistry returns an empty formatter registry.
func NewRegistry() *Registry {
	return &Registry{formatters: make(map[string]Formatter)}
}

// Register adds formatter under name, replacing any previous registration.
func (r *Registry) Register(name string, formatter Formatter) error {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return fmt.Errorf("formatter name is empty")
	}
	if formatter == nil {
		return fmt.Errorf("formatter %q is nil", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.formatters[name] = formatter
	return nil
}

// Get returns the formatter registered under name.
func (r *Registry) Get(name string) (Formatter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	formatter, ok := r.formatters[strings.ToLower(strings.TrimSpace(name))]
	return formatter, ok
}

// Names returns the registered format names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.formatters))
	for name := range r.formatters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry returns a registry with the built-in formatters. prettyJSON
// controls indentation of the json formatter.
func DefaultRegistry(prettyJSON bool) *Registry {
	registry := NewRegistry()
	registry.Register("txt", NewTextFormatter())
	json := NewJSONFormatter()
	json.Pretty = prettyJSON
	registry.Register("json", json)
	registry.Register("html", NewHTMLFormatter())
	return registry
}
