package sleep

import (
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Registry is the set of participants currently sleeping. It is safe for
// concurrent use; every operation is atomic and total.
type Registry struct {
	mu       sync.RWMutex
	sleepers map[uuid.UUID]Participant
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{sleepers: make(map[uuid.UUID]Participant)}
}

// Add inserts p, replacing any previous entry with the same ID, and returns the new size.
func (r *Registry) Add(p Participant) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sleepers[p.ID()] = p
	return len(r.sleepers)
}

// Remove deletes id if present and returns the new size.
func (r *Registry) Remove(id uuid.UUID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sleepers, id)
	return len(r.sleepers)
}

func (r *Registry) Contains(id uuid.UUID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.sleepers[id]
	return ok
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sleepers)
}

// Clear removes every sleeper.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.sleepers)
}

// Snapshot returns the current sleepers ordered by ID so iteration is stable.
func (r *Registry) Snapshot() []Participant {
	r.mu.RLock()
	out := make([]Participant, 0, len(r.sleepers))
	for _, p := range r.sleepers {
		out = append(out, p)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].ID(), out[j].ID()
		return a.String() < b.String()
	})
	return out
}
