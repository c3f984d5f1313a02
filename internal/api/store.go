package api

import (
	"sync"
	"time"

	"github.com/tilakarasunh/K8s-health-guardian/internal/analyzer"
	"github.com/tilakarasunh/K8s-health-guardian/internal/snapshot"
)

// Result is one completed pipeline run.
type Result struct {
	Snapshot    snapshot.Snapshot   `json:"snapshot"`
	Assessment  analyzer.Assessment `json:"assessment"`
	CompletedAt time.Time           `json:"completedAt"`
}

// Store keeps the last completed run in memory for the HTTP surface.
type Store struct {
	mu     sync.RWMutex
	result Result
	ready  bool
}

// NewStore constructs an empty store.
func NewStore() *Store {
	return &Store{}
}

// Update swaps the stored result atomically.
func (s *Store) Update(result Result) {
	s.mu.Lock()
	s.result = result
	s.ready = true
	s.mu.Unlock()
}

// Latest returns the most recent result, if any run has completed.
func (s *Store) Latest() (Result, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.ready {
		return Result{}, false
	}
	return s.result, true
}
