// Package stt provides speech-to-text provider interface and implementations.
package stt

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
)

// Request carries one transcription call: the encoded capture payload
// plus the credentials for the remote service.
type Request struct {
	// AudioBase64 is a base64-encoded mono 16-bit PCM WAV file.
	AudioBase64 string

	// APIKey authenticates the call. Optional for self-hosted providers.
	APIKey string

	// Model selects the transcription model. Empty picks the provider default.
	Model string
}

// Provider defines the interface for speech-to-text providers.
type Provider interface {
	// Name returns the provider identifier used in configuration.
	Name() string

	// Transcribe converts the request's audio to text. Errors are
	// returned as-is for the caller to surface; providers do not retry.
	Transcribe(ctx context.Context, req Request) (string, error)
}

// Registry holds registered STT providers.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewRegistry creates a new provider registry.
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]Provider),
	}
}

// Register adds a provider to the registry, replacing any provider
// already registered under the same name.
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Name()] = p
}

// Get returns a provider by name.
func (r *Registry) Get(name string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("unknown provider: %s", name)
	}
	return p, nil
}

// Names returns the registered provider names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.providers))
}
