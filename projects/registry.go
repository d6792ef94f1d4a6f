// Package projects holds the static, insertion-ordered registry of OAuth
// project configurations.
package projects

import (
	"github.com/notionify/auth-broker/domain"
	"github.com/notionify/auth-broker/errors"
)

// Registry is an immutable view over the configured projects. Construct it
// once at startup and share it by reference.
type Registry struct {
	ordered []domain.ProjectConfig
	byKey   map[string]domain.ProjectConfig
}

// InvalidProject pairs an incomplete configuration with the names of its
// missing fields, for startup diagnostics.
type InvalidProject struct {
	Config  domain.ProjectConfig
	Missing []string
}

// NewRegistry builds a registry from the configured projects, preserving
// registration order.
func NewRegistry(configs []domain.ProjectConfig) *Registry {
	r := &Registry{
		ordered: make([]domain.ProjectConfig, 0, len(configs)),
		byKey:   make(map[string]domain.ProjectConfig, len(configs)),
	}
	for _, cfg := range configs {
		if _, exists := r.byKey[cfg.Key]; exists {
			continue
		}
		r.ordered = append(r.ordered, cfg)
		r.byKey[cfg.Key] = cfg
	}
	return r
}

// Available returns the complete configurations in registration order.
// Incomplete projects are excluded.
func (r *Registry) Available() []domain.ProjectConfig {
	available := make([]domain.ProjectConfig, 0, len(r.ordered))
	for _, cfg := range r.ordered {
		if cfg.Complete() {
			available = append(available, cfg)
		}
	}
	return available
}

// Get returns the configuration for key. Unknown keys fail with
// NotFoundError; known but incomplete projects fail with
// IncompleteConfigError.
func (r *Registry) Get(key string) (domain.ProjectConfig, error) {
	cfg, ok := r.byKey[key]
	if !ok {
		return domain.ProjectConfig{}, errors.NewNotFound(key)
	}
	if !cfg.Complete() {
		return domain.ProjectConfig{}, errors.NewIncompleteConfig(key, cfg.MissingFields())
	}
	return cfg, nil
}

// ValidateAll partitions the registered projects into valid and invalid
// sets. It is a diagnostic and never fails.
func (r *Registry) ValidateAll() (valid []domain.ProjectConfig, invalid []InvalidProject) {
	for _, cfg := range r.ordered {
		if cfg.Complete() {
			valid = append(valid, cfg)
			continue
		}
		invalid = append(invalid, InvalidProject{Config: cfg, Missing: cfg.MissingFields()})
	}
	return valid, invalid
}
