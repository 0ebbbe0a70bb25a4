package service

import (
	"maps"
	"sync"
)

// Tally counts outcomes in process; the prometheus collectors are optional,
// the tally always backs the job summary
// a nil *Tally ignores writes
type Tally struct {
	mu sync.Mutex
	m  map[string]int64
}

// NewTally returns an empty tally
func NewTally() *Tally { return &Tally{m: map[string]int64{}} }

// Add adds n to outcome
func (t *Tally) Add(outcome string, n int64) {
	if t == nil || n == 0 {
		return
	}
	t.mu.Lock()
	t.m[outcome] += n
	t.mu.Unlock()
}

// Get returns the count of outcome
func (t *Tally) Get(outcome string) int64 {
	if t == nil {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.m[outcome]
}

// Snapshot copies the counts
func (t *Tally) Snapshot() map[string]int64 {
	if t == nil {
		return map[string]int64{}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return maps.Clone(t.m)
}

// Reset clears every count
func (t *Tally) Reset() {
	if t == nil {
		return
	}
	t.mu.Lock()
	clear(t.m)
	t.mu.Unlock()
}
