package trajectory

import (
	"fmt"
	"sort"
	"sync"
)

// NotFoundError indicates a lookup of a trajectory or sequence name that
// was never registered.
type NotFoundError struct {
	Name string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("trajectory %q is not registered", e.Name)
}

// Registry holds named trajectories and sequences.  It is safe for
// concurrent use; registration normally happens once at startup from the
// system configuration.
type Registry struct {
	mu   sync.RWMutex
	trjs map[string]Trajectory
	seqs map[string]Sequence
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		trjs: make(map[string]Trajectory),
		seqs: make(map[string]Sequence),
	}
}

// Register adds or replaces a trajectory under its name.
func (r *Registry) Register(t Trajectory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.trjs[t.Name] = t
}

// RegisterSequence adds or replaces a waypoint sequence under its name.
func (r *Registry) RegisterSequence(s Sequence) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seqs[s.Name] = s
}

// Get looks up a trajectory by name.
func (r *Registry) Get(name string) (Trajectory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.trjs[name]
	if !ok {
		return Trajectory{}, NotFoundError{Name: name}
	}
	return t, nil
}

// GetSequence looks up a waypoint sequence by name.
func (r *Registry) GetSequence(name string) (Sequence, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.seqs[name]
	if !ok {
		return Sequence{}, NotFoundError{Name: name}
	}
	return s, nil
}

// Names returns all registered trajectory names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.trjs))
	for n := range r.trjs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ForMotor returns the names of trajectories targeting a motor, sorted.
func (r *Registry) ForMotor(motor string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var names []string
	for n, t := range r.trjs {
		if t.Motor == motor {
			names = append(names, n)
		}
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered trajectories.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.trjs)
}
