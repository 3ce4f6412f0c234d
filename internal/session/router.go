package session

import (
	"sort"
	"sync"
	"time"

	"aura/internal/types"
)

// ============================================================================
// AGENT ROUTER
// ============================================================================
// The router tracks which interactive agent currently fronts the
// conversation and which system agents are busy in the background. Primary
// hand-offs come from response payloads; background activity is either
// explicit (mark/clear) or transient (flagged for a fixed window and then
// auto-cleared).

// Default windows for transient background activity.
const (
	OrionWindow = 2 * time.Second
	AegisWindow = 3 * time.Second
)

type Router struct {
	mu         sync.Mutex
	primary    string
	background map[string]*time.Timer
	onChange   func()
}

// NewRouter returns a router fronted by the default companion agent.
// onChange, if non-nil, is invoked (on its own goroutine for timer-driven
// clears, synchronously otherwise) whenever the visible routing state moves.
func NewRouter(onChange func()) *Router {
	return &Router{
		primary:    types.AgentElara,
		background: make(map[string]*time.Timer),
		onChange:   onChange,
	}
}

func (r *Router) notify() {
	if r.onChange != nil {
		r.onChange()
	}
}

// Primary returns the agent currently fronting the conversation.
func (r *Router) Primary() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.primary
}

// SetPrimary hands the conversation to the named agent. Unknown keys fall
// back to the default companion rather than leaving the UI headless.
func (r *Router) SetPrimary(key string) {
	r.mu.Lock()
	if !types.KnownAgent(key) {
		key = types.AgentElara
	}
	changed := r.primary != key
	r.primary = key
	r.mu.Unlock()
	if changed {
		r.notify()
	}
}

// MarkBackground flags an agent as busy in the background. Marking an
// already-active agent is a no-op.
func (r *Router) MarkBackground(key string) {
	r.mu.Lock()
	if _, ok := r.background[key]; ok {
		r.mu.Unlock()
		return
	}
	r.background[key] = nil
	r.mu.Unlock()
	r.notify()
}

// ClearBackground removes an agent's background flag. Clearing an inactive
// agent is a no-op.
func (r *Router) ClearBackground(key string) {
	r.mu.Lock()
	t, ok := r.background[key]
	if !ok {
		r.mu.Unlock()
		return
	}
	if t != nil {
		t.Stop()
	}
	delete(r.background, key)
	r.mu.Unlock()
	r.notify()
}

// FlagTransient marks an agent busy and schedules the clear after d.
// Re-flagging an active agent restarts its window.
func (r *Router) FlagTransient(key string, d time.Duration) {
	r.mu.Lock()
	if t, ok := r.background[key]; ok && t != nil {
		t.Stop()
	}
	r.background[key] = time.AfterFunc(d, func() {
		r.ClearBackground(key)
	})
	r.mu.Unlock()
	r.notify()
}

// BackgroundActive returns the active background agent keys in stable order.
func (r *Router) BackgroundActive() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	keys := make([]string, 0, len(r.background))
	for k := range r.background {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// IsBackgroundActive reports whether the named agent is flagged busy.
func (r *Router) IsBackgroundActive(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.background[key]
	return ok
}

// ClearAllBackground drops every background flag without touching the
// primary agent. Used when a request fails and stale indicators would lie.
func (r *Router) ClearAllBackground() {
	r.mu.Lock()
	if len(r.background) == 0 {
		r.mu.Unlock()
		return
	}
	for k, t := range r.background {
		if t != nil {
			t.Stop()
		}
		delete(r.background, k)
	}
	r.mu.Unlock()
	r.notify()
}

// Reset stops all pending timers, clears every background flag and hands
// the conversation back to the default companion.
func (r *Router) Reset() {
	r.mu.Lock()
	for k, t := range r.background {
		if t != nil {
			t.Stop()
		}
		delete(r.background, k)
	}
	r.primary = types.AgentElara
	r.mu.Unlock()
	r.notify()
}
