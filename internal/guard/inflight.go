package guard

import "sync"

// InFlight suppresses concurrent duplicates of a non-idempotent command.
// Begin claims a key; a second Begin for the same key fails until End
// releases it. Used to fast-fail a double winner declaration instead of
// queueing it behind the lobby row lock.
type InFlight struct {
	mu     sync.Mutex
	active map[string]bool
}

// NewInFlight creates an in-flight guard.
func NewInFlight() *InFlight {
	return &InFlight{active: make(map[string]bool)}
}

// Begin claims the key. Returns false if the key is already claimed.
func (g *InFlight) Begin(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.active[key] {
		return false
	}
	g.active[key] = true
	return true
}

// End releases the key.
func (g *InFlight) End(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.active, key)
}
