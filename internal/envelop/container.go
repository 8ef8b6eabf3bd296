package envelop

import (
	"fmt"
	"sync"
)

// State is the lifecycle position of a context building run.
type State int

const (
	StateSeeded State = iota
	StateBuilding
	StateSealed
	StateDispatched
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateSeeded:
		return "SEEDED"
	case StateBuilding:
		return "BUILDING"
	case StateSealed:
		return "SEALED"
	case StateDispatched:
		return "DISPATCHED"
	case StateFailed:
		return "FAILED"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Container owns the context map of a single run.
type Container struct {
	mu     sync.RWMutex
	state  State
	values map[string]any
}

// NewContainer copies seed into a fresh container in StateSeeded. The seed
// itself is never modified.
func NewContainer(seed map[string]any) *Container {
	values := make(map[string]any, len(seed))
	for k, v := range seed {
		values[k] = v
	}
	return &Container{values: values}
}

func (c *Container) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Value returns the live context map. Every call returns the same map.
func (c *Container) Value() map[string]any {
	return c.values
}

// Get reads a single key under the container lock.
func (c *Container) Get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.values[key]
	return v, ok
}

// Snapshot returns a copy of the context taken under the container lock.
func (c *Container) Snapshot() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]any, len(c.values))
	for k, v := range c.values {
		out[k] = v
	}
	return out
}

// Len returns the number of keys in the context.
func (c *Container) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.values)
}

// Extend shallow-merges partial into the context. It is only allowed while
// building.
func (c *Container) Extend(partial map[string]any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateBuilding {
		return fmt.Errorf("%w (state %s)", ErrContextSealed, c.state)
	}
	for k, v := range partial {
		c.values[k] = v
	}
	return nil
}

var transitions = map[State][]State{
	StateSeeded:   {StateBuilding},
	StateBuilding: {StateSealed, StateFailed},
	StateSealed:   {StateDispatched},
}

func (c *Container) transition(to State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, next := range transitions[c.state] {
		if next == to {
			c.state = to
			return
		}
	}
	panic(fmt.Sprintf("envelop: invalid context transition %s -> %s", c.state, to))
}
