package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"aura/internal/backend"
	"aura/internal/transcript"
	"aura/internal/types"
)

// ============================================================================
// SESSION CONTROLLER
// ============================================================================
// The controller is the single authority over which surface the user is on
// and what may happen there. Every user-visible operation funnels through
// it; the UI renders projections and never mutates session state directly.

var (
	ErrBusy          = errors.New("operation already in flight")
	ErrNotLoggedIn   = errors.New("not logged in")
	ErrEmptyMessage  = errors.New("message is empty")
	ErrBadTransition = errors.New("invalid mode transition")
)

// Mode is the surface the user is currently on.
type Mode int

const (
	ModeLoggedOut Mode = iota
	ModeScreening
	ModeChatting
	ModeViewingResource
	ModeViewingHistory
)

func (m Mode) String() string {
	switch m {
	case ModeLoggedOut:
		return "logged-out"
	case ModeScreening:
		return "screening"
	case ModeChatting:
		return "chatting"
	case ModeViewingResource:
		return "viewing-resource"
	case ModeViewingHistory:
		return "viewing-history"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// allowedTransitions is the full transition table. Logout is reachable from
// everywhere and is therefore handled separately.
var allowedTransitions = map[Mode][]Mode{
	ModeLoggedOut:       {ModeScreening, ModeChatting},
	ModeScreening:       {ModeChatting},
	ModeChatting:        {ModeViewingResource, ModeViewingHistory},
	ModeViewingResource: {ModeChatting},
	ModeViewingHistory:  {ModeChatting},
}

// Sidebar holds the ancillary panel data fetched alongside the chat. Load
// failures degrade the panel, they never abort the session.
type Sidebar struct {
	History    []types.HistoryEntry
	HistoryErr bool
	Tip        string
	TipErr     bool
}

type Controller struct {
	api    backend.API
	store  *transcript.Store
	guards *Guards
	router *Router
	logger *zap.Logger

	mu              sync.Mutex
	mode            Mode
	user            types.User
	chat            *Chat
	flow            *Flow
	resource        *types.Resource
	replay          []types.ReplayTurn
	replaySessionID string
	sidebar         Sidebar
}

func NewController(api backend.API, store *transcript.Store, router *Router, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		api:    api,
		store:  store,
		guards: NewGuards(),
		router: router,
		logger: logger,
		mode:   ModeLoggedOut,
	}
}

// transitionLocked validates and applies a mode change. Callers hold c.mu.
func (c *Controller) transitionLocked(to Mode) error {
	if to == ModeLoggedOut {
		c.mode = ModeLoggedOut
		return nil
	}
	for _, m := range allowedTransitions[c.mode] {
		if m == to {
			c.mode = to
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrBadTransition, c.mode, to)
}

// ----------------------------------------------------------------------------
// Authentication
// ----------------------------------------------------------------------------

// Login authenticates and routes the user to screening or, when the
// backend reports a recent screening, straight into a fresh chat session.
// Concurrent calls beyond the first return ErrBusy. On any failure the
// controller stays logged out.
func (c *Controller) Login(ctx context.Context, email, password string) error {
	if strings.TrimSpace(email) == "" || strings.TrimSpace(password) == "" {
		return errors.New("email and password are required")
	}
	if !c.guards.TryEnter(OpLogin) {
		return ErrBusy
	}
	defer c.guards.Leave(OpLogin)

	res, err := c.api.Login(ctx, email, password)
	if err != nil {
		c.logger.Warn("login failed", zap.Error(err))
		return err
	}

	if res.User.Region == "" {
		zone := os.Getenv("TZ")
		if zone == "" {
			zone = time.Now().Location().String()
		}
		res.User.Region = types.DetectRegion(zone)
	}

	c.mu.Lock()
	c.user = res.User
	c.chat = NewChat(c.api, c.store, c.router, c.guards, c.logger, res.User.ID, res.User.Region)
	c.flow = nil
	c.mu.Unlock()

	var routeErr error
	if res.HasRecentScreening {
		routeErr = c.enterChat(ctx, true, "", res.User.Metrics)
	} else {
		routeErr = c.startScreening(ctx)
	}
	if routeErr != nil {
		// Authenticated but could not land anywhere. Back to the login
		// surface rather than a half-open session.
		c.mu.Lock()
		c.user = types.User{}
		c.chat = nil
		c.flow = nil
		c.mode = ModeLoggedOut
		c.mu.Unlock()
		return routeErr
	}
	return nil
}

// Signup registers a new account. The user is routed back to login on
// success rather than being signed in implicitly.
func (c *Controller) Signup(ctx context.Context, req backend.SignupRequest) error {
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Email) == "" || strings.TrimSpace(req.Password) == "" {
		return errors.New("name, email and password are required")
	}
	if req.Age <= 0 {
		return errors.New("age must be a positive number")
	}
	if !c.guards.TryEnter(OpSignup) {
		return ErrBusy
	}
	defer c.guards.Leave(OpSignup)

	if err := c.api.Signup(ctx, req); err != nil {
		c.logger.Warn("signup failed", zap.Error(err))
		return err
	}
	return nil
}

// Logout drops all session state and returns to the logged-out surface. It
// is unconditional and idempotent: callers confirm with the user before
// invoking it, not after. Persisted transcripts are kept, only the
// in-memory view is cleared.
func (c *Controller) Logout() {
	c.mu.Lock()
	if c.chat != nil {
		c.chat.Invalidate()
	}
	c.user = types.User{}
	c.chat = nil
	c.flow = nil
	c.resource = nil
	c.replay = nil
	c.replaySessionID = ""
	c.sidebar = Sidebar{}
	c.mode = ModeLoggedOut
	c.mu.Unlock()
	c.router.Reset()
}

// ----------------------------------------------------------------------------
// Screening
// ----------------------------------------------------------------------------

func (c *Controller) startScreening(ctx context.Context) error {
	c.mu.Lock()
	user := c.user
	c.mu.Unlock()
	if !user.LoggedIn() {
		return ErrNotLoggedIn
	}

	flow := NewFlow(c.api, user.ID, user.Age)
	res, err := flow.Start(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	if err := c.transitionLocked(ModeScreening); err != nil {
		c.mu.Unlock()
		return err
	}
	c.flow = flow
	c.mu.Unlock()

	return c.resolveScreening(ctx, res)
}

// SubmitScreeningAnswer advances the screening by one answered question and
// routes to chat when the flow concludes.
func (c *Controller) SubmitScreeningAnswer(ctx context.Context, answerIndex *int) error {
	c.mu.Lock()
	if c.mode != ModeScreening || c.flow == nil {
		c.mu.Unlock()
		return fmt.Errorf("%w: not screening", ErrBadTransition)
	}
	flow := c.flow
	c.mu.Unlock()

	res, err := flow.SubmitAnswer(ctx, answerIndex)
	if err != nil {
		return err
	}
	return c.resolveScreening(ctx, res)
}

func (c *Controller) resolveScreening(ctx context.Context, res ScreeningResult) error {
	switch res.Outcome {
	case ScreeningContinue:
		return nil
	case ScreeningComplete:
		c.mu.Lock()
		if res.Metrics != nil {
			c.user.Metrics.Merge(*res.Metrics)
		}
		metrics := c.user.Metrics
		c.mu.Unlock()
		return c.enterChat(ctx, true, res.SessionID, metrics)
	case ScreeningCooldown:
		// Too soon to screen again. The user keeps their existing metrics
		// and continues the conversation without a fresh greeting.
		c.logger.Info("screening on cooldown", zap.String("message", res.Message))
		c.mu.Lock()
		metrics := c.user.Metrics
		c.mu.Unlock()
		return c.enterChat(ctx, false, "", metrics)
	default:
		return fmt.Errorf("unknown screening outcome %d", res.Outcome)
	}
}

// CheckRescreen reports whether the user may take a fresh screening. The
// questionnaire itself only runs from the login path, so an eligible user is
// told to sign back in rather than being rerouted mid-chat.
func (c *Controller) CheckRescreen(ctx context.Context) (backend.Eligibility, error) {
	c.mu.Lock()
	user := c.user
	c.mu.Unlock()
	if !user.LoggedIn() {
		return backend.Eligibility{}, ErrNotLoggedIn
	}
	return c.api.ScreeningEligibility(ctx, user.ID)
}

// ScreeningProgress returns the current question state.
func (c *Controller) ScreeningProgress() types.ScreeningProgress {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.flow == nil {
		return types.ScreeningProgress{}
	}
	return c.flow.Progress()
}

// ----------------------------------------------------------------------------
// Chat
// ----------------------------------------------------------------------------

func (c *Controller) enterChat(ctx context.Context, isNew bool, sessionID string, metrics types.Metrics) error {
	c.mu.Lock()
	if c.chat == nil {
		c.mu.Unlock()
		return ErrNotLoggedIn
	}
	if err := c.transitionLocked(ModeChatting); err != nil {
		c.mu.Unlock()
		return err
	}
	c.flow = nil
	chat := c.chat
	c.mu.Unlock()

	return chat.Start(ctx, isNew, sessionID, metrics)
}

// StartNewSession abandons the current conversation view and opens a fresh
// session with a new greeting.
func (c *Controller) StartNewSession(ctx context.Context) error {
	c.mu.Lock()
	if c.mode != ModeChatting || c.chat == nil {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s -> %s", ErrBadTransition, c.mode, ModeChatting)
	}
	chat := c.chat
	metrics := c.user.Metrics
	c.mu.Unlock()
	return chat.Start(ctx, true, "", metrics)
}

// SendMessage forwards one user message to the active chat session.
func (c *Controller) SendMessage(ctx context.Context, text string) (SendResult, error) {
	c.mu.Lock()
	if c.mode != ModeChatting || c.chat == nil {
		c.mu.Unlock()
		return SendResult{}, fmt.Errorf("%w: cannot send while %s", ErrBadTransition, c.mode)
	}
	chat := c.chat
	c.mu.Unlock()

	res, err := chat.Send(ctx, text)
	if err != nil {
		return res, err
	}
	if res.Metrics != nil {
		c.mu.Lock()
		c.user.Metrics.Merge(*res.Metrics)
		c.mu.Unlock()
	}
	return res, nil
}

// ----------------------------------------------------------------------------
// Resources
// ----------------------------------------------------------------------------

// OpenResource looks up curated help for query and switches to the resource
// surface. A failed lookup leaves the user in chat.
func (c *Controller) OpenResource(ctx context.Context, query string) error {
	c.mu.Lock()
	if c.mode != ModeChatting {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s -> %s", ErrBadTransition, c.mode, ModeViewingResource)
	}
	user := c.user
	c.mu.Unlock()

	res, err := c.api.Resource(ctx, backend.ResourceRequest{
		Query:  query,
		UserID: user.ID,
		Region: user.Region,
	})
	if err != nil {
		c.logger.Warn("resource lookup failed", zap.Error(err))
		return err
	}
	return c.ShowResource(res)
}

// ShowResource presents an already-fetched resource, e.g. one attached to a
// chat response.
func (c *Controller) ShowResource(res types.Resource) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.transitionLocked(ModeViewingResource); err != nil {
		return err
	}
	c.resource = &res
	return nil
}

// CloseResource returns from the resource surface to the live chat, with
// the transcript restored from the persisted scope.
func (c *Controller) CloseResource(ctx context.Context) error {
	c.mu.Lock()
	if c.mode != ModeViewingResource || c.chat == nil {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s -> %s", ErrBadTransition, c.mode, ModeChatting)
	}
	c.mode = ModeChatting
	c.resource = nil
	chat := c.chat
	metrics := c.user.Metrics
	c.mu.Unlock()
	return chat.Start(ctx, false, "", metrics)
}

// Resource returns the resource being viewed, nil outside that mode.
func (c *Controller) Resource() *types.Resource {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resource
}

// DailyTip fetches the short wellness tip for the sidebar.
func (c *Controller) DailyTip(ctx context.Context) (string, error) {
	c.mu.Lock()
	user := c.user
	c.mu.Unlock()
	if !user.LoggedIn() {
		return "", ErrNotLoggedIn
	}
	return c.api.DailyTip(ctx, user.ID)
}

// ----------------------------------------------------------------------------
// History
// ----------------------------------------------------------------------------

// OpenPastSession fetches the replay of a past conversation and switches to
// the history surface. The opened session becomes the current one: reading
// an old conversation resumes it.
func (c *Controller) OpenPastSession(ctx context.Context, sessionID string) error {
	c.mu.Lock()
	if c.mode != ModeChatting || c.chat == nil {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s -> %s", ErrBadTransition, c.mode, ModeViewingHistory)
	}
	chat := c.chat
	c.mu.Unlock()

	turns, err := c.api.SessionReplay(ctx, sessionID)
	if err != nil {
		c.logger.Warn("session replay failed", zap.Error(err), zap.String("session", sessionID))
		return err
	}

	c.mu.Lock()
	if err := c.transitionLocked(ModeViewingHistory); err != nil {
		c.mu.Unlock()
		return err
	}
	c.replay = turns
	c.replaySessionID = sessionID
	c.mu.Unlock()

	chat.AdoptSession(sessionID)
	return nil
}

// ReturnToChat leaves the history surface and resumes the (now adopted)
// session as the live conversation.
func (c *Controller) ReturnToChat(ctx context.Context) error {
	c.mu.Lock()
	if c.mode != ModeViewingHistory || c.chat == nil {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s -> %s", ErrBadTransition, c.mode, ModeChatting)
	}
	c.mode = ModeChatting
	c.replay = nil
	c.replaySessionID = ""
	chat := c.chat
	metrics := c.user.Metrics
	c.mu.Unlock()
	return chat.Start(ctx, false, "", metrics)
}

// Replay returns the turns of the past session being viewed.
func (c *Controller) Replay() (string, []types.ReplayTurn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]types.ReplayTurn, len(c.replay))
	copy(out, c.replay)
	return c.replaySessionID, out
}

// ----------------------------------------------------------------------------
// Sidebar and metrics
// ----------------------------------------------------------------------------

// RefreshSidebar loads the history list and the daily tip concurrently.
// Individual failures mark the affected panel as degraded instead of
// failing the refresh.
func (c *Controller) RefreshSidebar(ctx context.Context) Sidebar {
	c.mu.Lock()
	user := c.user
	c.mu.Unlock()
	if !user.LoggedIn() {
		return Sidebar{}
	}

	var (
		sb Sidebar
		mu sync.Mutex
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		entries, err := c.api.HistoryList(gctx, user.ID)
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			c.logger.Debug("history list failed", zap.Error(err))
			sb.HistoryErr = true
			return nil
		}
		sb.History = entries
		return nil
	})
	g.Go(func() error {
		tip, err := c.api.DailyTip(gctx, user.ID)
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			c.logger.Debug("daily tip failed", zap.Error(err))
			sb.TipErr = true
			return nil
		}
		sb.Tip = tip
		return nil
	})
	g.Wait()

	c.mu.Lock()
	c.sidebar = sb
	c.mu.Unlock()
	return sb
}

// Sidebar returns the last refreshed sidebar contents.
func (c *Controller) Sidebar() Sidebar {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sidebar
}

// RefreshMetrics re-reads the stored wellness metrics and merges them into
// the user profile.
func (c *Controller) RefreshMetrics(ctx context.Context) (types.Metrics, error) {
	c.mu.Lock()
	user := c.user
	c.mu.Unlock()
	if !user.LoggedIn() {
		return types.Metrics{}, ErrNotLoggedIn
	}
	m, err := c.api.Metrics(ctx, user.ID)
	if err != nil {
		return types.Metrics{}, err
	}
	c.mu.Lock()
	c.user.Metrics.Merge(m)
	out := c.user.Metrics
	c.mu.Unlock()
	return out, nil
}

// SendFeedback submits a session rating. Requires an active session.
func (c *Controller) SendFeedback(ctx context.Context, rating int, comment string) error {
	c.mu.Lock()
	chat := c.chat
	c.mu.Unlock()
	if chat == nil {
		return ErrNotLoggedIn
	}
	sid := chat.SessionID()
	if sid == "" {
		return errors.New("no active session to rate")
	}
	return c.api.SendFeedback(ctx, types.Feedback{
		SessionID: sid,
		Rating:    rating,
		Comment:   comment,
		SentAt:    time.Now(),
	})
}

// ----------------------------------------------------------------------------
// Projections
// ----------------------------------------------------------------------------

func (c *Controller) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

func (c *Controller) User() types.User {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.user
}

func (c *Controller) SessionID() string {
	c.mu.Lock()
	chat := c.chat
	c.mu.Unlock()
	if chat == nil {
		return ""
	}
	return chat.SessionID()
}

func (c *Controller) Transcript() []types.ChatMessage {
	c.mu.Lock()
	chat := c.chat
	c.mu.Unlock()
	if chat == nil {
		return nil
	}
	return chat.Transcript()
}

// InputEnabled reports whether the chat input should accept a send.
func (c *Controller) InputEnabled() bool {
	c.mu.Lock()
	chat := c.chat
	mode := c.mode
	c.mu.Unlock()
	return mode == ModeChatting && chat != nil && !chat.Sending()
}

// Router exposes the agent router for rendering.
func (c *Controller) Router() *Router {
	return c.router
}
