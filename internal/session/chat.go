package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"aura/internal/backend"
	"aura/internal/transcript"
	"aura/internal/types"
)

// ============================================================================
// CHAT SESSION
// ============================================================================
// One live conversation with the backend. The session owns the in-memory
// transcript, the greeting latch, the per-send input lock and the
// generation counter that lets us throw away responses that arrive after
// the session they belonged to is gone.

// Canned lines shown when the backend cannot be reached. These are part of
// the product surface, not debug strings.
const (
	GreetingFallback = "Hello! I'm Elara, your AI companion. How are you feeling today?"
	ConnectFallback  = "Sorry, I'm having trouble connecting."
)

// SendResult reports what a completed send produced beyond the transcript
// append itself.
type SendResult struct {
	// Stale is set when the response arrived for a session that no longer
	// exists (logout or a new session started while the request was in
	// flight). Nothing else in the result is meaningful.
	Stale bool

	Agent         string
	Metrics       *types.Metrics
	Resource      *types.Resource
	OfferResource bool
}

type Chat struct {
	api    backend.API
	store  *transcript.Store
	router *Router
	guards *Guards
	logger *zap.Logger

	userID string
	region types.Region

	// Windows for transient background indicators. Overridable in tests.
	orionWindow time.Duration
	aegisWindow time.Duration

	mu            sync.Mutex
	sessionID     string
	transcript    []types.ChatMessage
	greetingShown bool
	sending       bool
	generation    uint64
}

func NewChat(api backend.API, store *transcript.Store, router *Router, guards *Guards, logger *zap.Logger, userID string, region types.Region) *Chat {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Chat{
		api:         api,
		store:       store,
		router:      router,
		guards:      guards,
		logger:      logger,
		userID:      userID,
		region:      region,
		orionWindow: OrionWindow,
		aegisWindow: AegisWindow,
	}
}

// Start enters (or re-enters) the conversation surface.
//
// A new session clears the transcript, resets the greeting latch, bumps the
// generation so in-flight responses from the previous session are
// discarded, and fires the one greeting request. sessionID seeds the
// session identifier (empty means the backend will assign one with the
// greeting).
//
// A non-new start restores the transcript persisted for the current scope
// and never greets.
func (c *Chat) Start(ctx context.Context, isNew bool, sessionID string, metrics types.Metrics) error {
	if !isNew {
		c.mu.Lock()
		uid, sid := c.userID, c.sessionID
		c.mu.Unlock()
		if msgs, ok := c.store.Load(ctx, uid, sid); ok {
			c.mu.Lock()
			c.transcript = msgs
			c.mu.Unlock()
		}
		return nil
	}

	c.mu.Lock()
	c.generation++
	c.sessionID = sessionID
	c.transcript = nil
	c.greetingShown = false
	c.sending = false
	c.mu.Unlock()

	return c.greet(ctx, metrics)
}

func (c *Chat) greet(ctx context.Context, metrics types.Metrics) error {
	if !c.guards.TryEnter(OpGreeting) {
		return nil
	}
	defer c.guards.Leave(OpGreeting)

	c.mu.Lock()
	if c.greetingShown {
		c.mu.Unlock()
		return nil
	}
	c.greetingShown = true
	gen := c.generation
	c.mu.Unlock()

	resp, err := c.api.Greeting(ctx, backend.GreetingRequest{
		UserID:  c.userID,
		Metrics: metrics,
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		return nil
	}
	if err != nil {
		// The fallback bubble is the whole failure surface. The shown latch
		// stays set so a retry does not stack fallback greetings.
		c.logger.Debug("greeting failed, using fallback", zap.Error(err))
		c.transcript = append(c.transcript, types.ChatMessage{
			Text:    GreetingFallback,
			Speaker: types.AgentElara,
		})
		c.saveLocked(ctx)
		return nil
	}

	if resp.SessionID != "" {
		c.sessionID = resp.SessionID
	}
	if !resp.Duplicate {
		speaker := resp.Agent
		if !types.KnownAgent(speaker) {
			speaker = types.AgentElara
		}
		c.router.SetPrimary(speaker)
		c.transcript = append(c.transcript, types.ChatMessage{
			Text:    resp.Response,
			Speaker: speaker,
		})
		c.saveLocked(ctx)
	}
	return nil
}

// Send submits one user message. The user's text is appended and persisted
// before the request goes out, so a failed send still shows what the user
// said. Empty input is rejected without a request, and a second send while
// one is in flight is rejected immediately.
func (c *Chat) Send(ctx context.Context, text string) (SendResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return SendResult{}, ErrEmptyMessage
	}

	c.mu.Lock()
	if c.sending {
		c.mu.Unlock()
		return SendResult{}, ErrBusy
	}
	c.sending = true
	gen := c.generation
	sid := c.sessionID
	c.transcript = append(c.transcript, types.ChatMessage{
		Text:    text,
		Speaker: types.SpeakerUser,
	})
	c.saveLocked(ctx)
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.sending = false
		c.mu.Unlock()
	}()

	// The memory agent files every exchange away. The indicator is purely
	// temporal, it clears after a fixed window whatever the outcome.
	c.router.FlagTransient(types.AgentOrion, c.orionWindow)

	resp, err := c.api.Chat(ctx, backend.ChatRequest{
		UserID:    c.userID,
		SessionID: sid,
		Message:   text,
		Region:    c.region,
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		return SendResult{Stale: true}, nil
	}
	if err != nil {
		c.logger.Debug("chat send failed", zap.Error(err))
		c.router.ClearAllBackground()
		c.transcript = append(c.transcript, types.ChatMessage{
			Text:    ConnectFallback,
			Speaker: types.AgentElara,
		})
		c.saveLocked(ctx)
		return SendResult{}, err
	}

	// The session id in the response is optional. Crisis turns in particular
	// omit it; adopting the empty value would orphan the live session.
	if resp.SessionID != "" {
		c.sessionID = resp.SessionID
	}
	speaker := resp.Agent
	if !types.KnownAgent(speaker) {
		speaker = types.AgentElara
	}
	c.router.SetPrimary(speaker)
	if speaker == types.AgentAegis {
		c.router.FlagTransient(types.AgentAegis, c.aegisWindow)
	}
	c.transcript = append(c.transcript, types.ChatMessage{
		Text:    resp.Response,
		Speaker: speaker,
	})
	c.saveLocked(ctx)

	return SendResult{
		Agent:         speaker,
		Metrics:       resp.Metrics,
		Resource:      resp.ResourceData,
		OfferResource: resp.ShowResourceButton,
	}, nil
}

// saveLocked persists the transcript under the current scope. Callers hold
// c.mu. Persistence is best effort, Store swallows adapter failures.
func (c *Chat) saveLocked(ctx context.Context) {
	msgs := make([]types.ChatMessage, len(c.transcript))
	copy(msgs, c.transcript)
	c.store.Save(ctx, c.userID, c.sessionID, msgs)
}

// Invalidate bumps the generation so any response still in flight is
// discarded on arrival. Called on logout and before replacing the session.
func (c *Chat) Invalidate() {
	c.mu.Lock()
	c.generation++
	c.sending = false
	c.mu.Unlock()
}

// AdoptSession replaces the current session identifier, e.g. when a past
// session is opened for replay and becomes the live one.
func (c *Chat) AdoptSession(sessionID string) {
	c.mu.Lock()
	c.generation++
	c.sessionID = sessionID
	c.transcript = nil
	c.mu.Unlock()
}

// SessionID returns the current session identifier, empty before the first
// greeting response assigns one.
func (c *Chat) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// Transcript returns a copy of the visible conversation.
func (c *Chat) Transcript() []types.ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]types.ChatMessage, len(c.transcript))
	copy(out, c.transcript)
	return out
}

// Sending reports whether a send is in flight (the input is disabled).
func (c *Chat) Sending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sending
}
