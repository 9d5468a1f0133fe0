// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"os"
	"strings"
	"sync"
)

// =============================================================================
// PROVIDER REGISTRY
// =============================================================================

// Provider describes one upstream chat completion endpoint.
type Provider struct {
	// Name is the lowercase identifier used in config and commands
	Name string
	// DisplayName is the human-readable name shown in errors and UI
	DisplayName string
	// Endpoint is the chat completions URL
	Endpoint string
	// DefaultModel is used when no model is configured
	DefaultModel string
	// EnvKey is the environment variable holding the API key
	EnvKey string
}

// builtinProviders are the OpenAI-compatible providers loom ships with.
var builtinProviders = []Provider{
	{
		Name:         "openai",
		DisplayName:  "OpenAI",
		Endpoint:     "https://api.openai.com/v1/chat/completions",
		DefaultModel: "gpt-4o-mini",
		EnvKey:       "OPENAI_API_KEY",
	},
	{
		Name:         "groq",
		DisplayName:  "Groq",
		Endpoint:     "https://api.groq.com/openai/v1/chat/completions",
		DefaultModel: "llama-3.3-70b-versatile",
		EnvKey:       "GROQ_API_KEY",
	},
	{
		Name:         "openrouter",
		DisplayName:  "OpenRouter",
		Endpoint:     "https://openrouter.ai/api/v1/chat/completions",
		DefaultModel: "openai/gpt-4o-mini",
		EnvKey:       "OPENROUTER_API_KEY",
	},
	{
		Name:         "perplexity",
		DisplayName:  "Perplexity",
		Endpoint:     "https://api.perplexity.ai/chat/completions",
		DefaultModel: "sonar",
		EnvKey:       "PERPLEXITY_API_KEY",
	},
}

// Registry holds the known providers and their API keys.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
	keys      map[string]string
}

// NewRegistry builds a registry with the built-in providers, seeding
// API keys from the environment.
func NewRegistry() *Registry {
	r := &Registry{
		providers: make(map[string]Provider, len(builtinProviders)),
		keys:      make(map[string]string, len(builtinProviders)),
	}
	for _, p := range builtinProviders {
		r.providers[p.Name] = p
		if key := os.Getenv(p.EnvKey); key != "" {
			r.keys[p.Name] = key
		}
	}
	return r
}

// Register adds or replaces a provider definition.
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[strings.ToLower(p.Name)] = p
}

// Get returns the provider for name (case-insensitive).
func (r *Registry) Get(name string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[strings.ToLower(name)]
	return p, ok
}

// Names returns the provider identifiers in declaration order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(builtinProviders))
	for _, p := range builtinProviders {
		names = append(names, p.Name)
	}
	return names
}

// Key returns the API key configured for a provider, or "".
func (r *Registry) Key(name string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.keys[strings.ToLower(name)]
}

// SetKey replaces the API key for a provider at runtime.
func (r *Registry) SetKey(name, key string) bool {
	name = strings.ToLower(name)

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.providers[name]; !ok {
		return false
	}
	r.keys[name] = key
	return true
}

// HasKey reports whether a non-empty key is configured for a provider.
func (r *Registry) HasKey(name string) bool {
	return r.Key(name) != ""
}
