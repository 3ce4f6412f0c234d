package session

import "sync"

// ============================================================================
// SINGLE-FLIGHT GUARDS
// ============================================================================
// Several operations must not be issued twice concurrently (double-click on
// a login button, a greeting fired from two code paths). A guard is a named
// latch: the first caller enters, everyone else is turned away immediately.
// Callers that lose the race do not wait for the winner.

const (
	OpLogin    = "login"
	OpSignup   = "signup"
	OpGreeting = "greeting"
)

type Guards struct {
	mu   sync.Mutex
	held map[string]bool
}

func NewGuards() *Guards {
	return &Guards{held: make(map[string]bool)}
}

// TryEnter claims the latch for op. It returns false if another caller
// already holds it.
func (g *Guards) TryEnter(op string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.held[op] {
		return false
	}
	g.held[op] = true
	return true
}

// Leave releases the latch for op. Releasing an unheld latch is a no-op, so
// a deferred Leave is always safe.
func (g *Guards) Leave(op string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.held, op)
}

// Held reports whether op is currently in flight.
func (g *Guards) Held(op string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.held[op]
}
