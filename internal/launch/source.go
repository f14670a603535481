package launch

import (
	"reflect"
	"sync"
)

// Source holds the current launch configuration and builds a Spec on demand.
type Source struct {
	mu  sync.RWMutex
	cfg Config
}

// NewSource creates a Source with an initial configuration.
func NewSource(cfg Config) *Source {
	return &Source{cfg: cfg}
}

// LaunchSpec builds a Spec from the current snapshot.
func (s *Source) LaunchSpec() (Spec, error) {
	return Build(s.Config())
}

// Config returns the current snapshot.
func (s *Source) Config() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Update swaps the snapshot and reports whether it changed.
func (s *Source) Update(cfg Config) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if reflect.DeepEqual(s.cfg, cfg) {
		return false
	}
	s.cfg = cfg
	return true
}
