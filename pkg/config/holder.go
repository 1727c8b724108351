package config

import (
	"sync"
)

// Holder owns the live config of a running studio. Readers get the
// current value; the settings endpoint saves through it and the file
// watcher swaps in reloaded values.
type Holder struct {
	path string

	mu  sync.RWMutex
	cfg *AppConfig
}

// NewHolder wraps cfg, persisted at path. An empty path keeps changes in
// memory only.
func NewHolder(path string, cfg *AppConfig) *Holder {
	if cfg == nil {
		cfg = &AppConfig{}
		cfg.ApplyDefaults("")
	}
	return &Holder{path: path, cfg: cfg}
}

// Path is the file the holder saves to.
func (h *Holder) Path() string {
	return h.path
}

// Current returns a copy of the live config.
func (h *Holder) Current() *AppConfig {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.cfg.Clone()
}

// Set replaces the live config without writing it.
func (h *Holder) Set(cfg *AppConfig) {
	h.mu.Lock()
	h.cfg = cfg.Clone()
	h.mu.Unlock()
}

// Update applies fn to a copy of the config, saves the result and makes
// it live. Nothing changes when fn or the save fails.
func (h *Holder) Update(fn func(*AppConfig) error) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	next := h.cfg.Clone()
	if err := fn(next); err != nil {
		return err
	}
	if h.path != "" {
		if err := Save(h.path, next); err != nil {
			return err
		}
	}
	h.cfg = next
	return nil
}

// Clone deep-copies the provider map; the other sections are values.
func (c *AppConfig) Clone() *AppConfig {
	if c == nil {
		return nil
	}
	cp := *c
	cp.Providers = make(map[string]ProviderConfig, len(c.Providers))
	for name, p := range c.Providers {
		fields := make(ProviderConfig, len(p))
		for k, v := range p {
			fields[k] = v
		}
		cp.Providers[name] = fields
	}
	return &cp
}
