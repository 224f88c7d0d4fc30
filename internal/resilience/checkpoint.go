package resilience

import (
	"sync"
	"time"
)

// Checkpoint is the last partial result a failed attempt produced. It exists
// for diagnostics and operator visibility only.
type Checkpoint struct {
	ID      string    `json:"id"`
	Attempt int       `json:"attempt"`
	Partial any       `json:"partial"`
	SavedAt time.Time `json:"saved_at"`
}

// CheckpointStore keeps the most recent partial result per retry id.
// Process-local; entries are overwritten by later attempts and evicted
// oldest-first past the capacity limit.
type CheckpointStore struct {
	mu    sync.Mutex
	max   int
	order []string
	byID  map[string]Checkpoint
}

// NewCheckpointStore creates a store holding at most max entries.
// A max of 0 or less defaults to 256.
func NewCheckpointStore(max int) *CheckpointStore {
	if max <= 0 {
		max = 256
	}
	return &CheckpointStore{
		max:  max,
		byID: make(map[string]Checkpoint),
	}
}

// Save records the partial result of a failed attempt.
func (s *CheckpointStore) Save(id string, attempt int, partial any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[id]; !exists {
		s.order = append(s.order, id)
		if len(s.order) > s.max {
			evict := s.order[0]
			s.order = s.order[1:]
			delete(s.byID, evict)
		}
	}
	s.byID[id] = Checkpoint{
		ID:      id,
		Attempt: attempt,
		Partial: partial,
		SavedAt: time.Now(),
	}
}

// Load returns the checkpoint for id, if one exists.
func (s *CheckpointStore) Load(id string) (Checkpoint, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp, ok := s.byID[id]
	return cp, ok
}

// Delete removes the checkpoint for id. Called after a validated success so
// stale partials do not linger.
func (s *CheckpointStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[id]; !ok {
		return
	}
	delete(s.byID, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Len reports the number of stored checkpoints.
func (s *CheckpointStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}
