package ai

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/samber/lo"
)

// Builder constructs a provider for model. model is never empty.
type Builder func(model string) Provider

type registration struct {
	build        Builder
	defaultModel string
}

// Registry resolves the translation backend named by AI_PROVIDER.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]registration
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]registration)}
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Register adds a backend. defaultModel is used when Open is called without one.
func (r *Registry) Register(name, defaultModel string, build Builder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[normalizeName(name)] = registration{build: build, defaultModel: defaultModel}
}

// Open builds the named provider.
func (r *Registry) Open(name, model string) (Provider, error) {
	r.mu.RLock()
	reg, ok := r.entries[normalizeName(name)]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown ai provider: %s (known: %s)", normalizeName(name), strings.Join(r.Names(), ", "))
	}
	model = strings.TrimSpace(model)
	if model == "" {
		model = reg.defaultModel
	}
	return reg.build(model), nil
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	names := lo.Keys(r.entries)
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}
