// Package chat provides the interactive TUI for the aura wellness client.
package chat

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"go.uber.org/zap"

	"aura/cmd/aura/ui"
	"aura/internal/backend"
	"aura/internal/config"
	"aura/internal/session"
	"aura/internal/transcript"
	"aura/internal/types"
)

// requestTimeout bounds every backend call issued from the UI.
const requestTimeout = 30 * time.Second

// New assembles the full client: backend API, transcript store, session
// controller and the bubbletea model on top.
func New(cfg config.Config, cfgPath string, logger *zap.Logger) (*Model, error) {
	api := backend.NewClient(backend.ClientConfig{
		BaseURL: cfg.Backend.URL,
		Timeout: cfg.Backend.Timeout,
		Logger:  logger,
	})

	capability, err := newCapability(cfg, logger)
	if err != nil {
		return nil, err
	}
	store := transcript.NewStore(capability, logger)

	routerCh := make(chan struct{}, 8)
	router := session.NewRouter(func() {
		select {
		case routerCh <- struct{}{}:
		default:
		}
	})
	ctrl := session.NewController(api, store, router, logger)

	return newModel(ctrl, router, routerCh, cfg, cfgPath), nil
}

// newModel wires the widgets around an already-built session core.
func newModel(ctrl *session.Controller, router *session.Router, routerCh chan struct{}, cfg config.Config, cfgPath string) *Model {
	m := &Model{
		ctrl:     ctrl,
		router:   router,
		cfg:      cfg,
		cfgPath:  cfgPath,
		styles:   ui.NewStyles(ui.ThemeByName(cfg.UI.Theme)),
		routerCh: routerCh,
		reloadCh: make(chan config.Config, 1),
	}

	m.textarea = newInput()
	m.spinner = spinner.New(spinner.WithSpinner(spinner.Dot))
	m.spinner.Style = m.styles.Spinner

	m.authIn = make([]textinput.Model, authFieldCount)
	for i := range m.authIn {
		m.authIn[i] = textinput.New()
	}
	m.authIn[fieldEmail].Placeholder = "email"
	m.authIn[fieldPassword].Placeholder = "password"
	m.authIn[fieldPassword].EchoMode = textinput.EchoPassword
	m.authIn[fieldName].Placeholder = "name"
	m.authIn[fieldAge].Placeholder = "age"
	m.authIn[fieldRegion].Placeholder = "region (us/eu/asia/au)"
	m.authIn[fieldEmail].Focus()

	m.ratingNote = textinput.New()
	m.ratingNote.Placeholder = "anything to add? (optional)"

	delegate := list.NewDefaultDelegate()
	m.histList = list.New(nil, delegate, 0, 0)
	m.histList.Title = "Past sessions"
	m.histList.SetShowStatusBar(false)

	if r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	); err == nil {
		m.renderer = r
	}

	return m
}

func newCapability(cfg config.Config, logger *zap.Logger) (transcript.Capability, error) {
	switch cfg.Transcript.Adapter {
	case "redis":
		return transcript.NewRedisCapability(
			cfg.Transcript.RedisAddr,
			cfg.Transcript.RedisPassword,
			cfg.Transcript.RedisDB,
			transcript.WithTTL(cfg.Transcript.RedisTTL),
		), nil
	case "sqlite":
		return transcript.NewSQLiteCapability(cfg.Transcript.SQLitePath)
	default:
		logger.Debug("using in-memory transcript store")
		return transcript.NewMemoryCapability(), nil
	}
}

func newInput() textarea.Model {
	ta := textarea.New()
	ta.Placeholder = "Share what's on your mind... (/help for commands)"
	ta.CharLimit = 2000
	ta.SetHeight(3)
	ta.ShowLineNumbers = false
	ta.Focus()
	return ta
}

// ReloadConfig hands a freshly parsed config file to the running UI. Safe to
// call from the watcher goroutine.
func (m *Model) ReloadConfig(cfg config.Config) {
	select {
	case m.reloadCh <- cfg:
	default:
	}
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		textarea.Blink,
		m.waitRouterChange(),
		m.waitConfigReload(),
	)
}

// =============================================================================
// ASYNC COMMANDS
// =============================================================================
// Every backend interaction runs as a tea.Cmd so the event loop never blocks.

func reqCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), requestTimeout)
}

func (m *Model) waitRouterChange() tea.Cmd {
	ch := m.routerCh
	return func() tea.Msg {
		<-ch
		return routerChangedMsg{}
	}
}

func (m *Model) waitConfigReload() tea.Cmd {
	ch := m.reloadCh
	return func() tea.Msg {
		return configReloadedMsg(<-ch)
	}
}

func (m *Model) loginCmd(email, password string) tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		ctx, cancel := reqCtx()
		defer cancel()
		return loginDoneMsg{err: ctrl.Login(ctx, email, password)}
	}
}

func (m *Model) signupCmd(req backend.SignupRequest) tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		ctx, cancel := reqCtx()
		defer cancel()
		return signupDoneMsg{err: ctrl.Signup(ctx, req)}
	}
}

func (m *Model) answerCmd(idx *int) tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		ctx, cancel := reqCtx()
		defer cancel()
		return screeningDoneMsg{err: ctrl.SubmitScreeningAnswer(ctx, idx)}
	}
}

func (m *Model) sendCmd(text string) tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		ctx, cancel := reqCtx()
		defer cancel()
		res, err := ctrl.SendMessage(ctx, text)
		return sendDoneMsg{res: res, err: err}
	}
}

func (m *Model) newSessionCmd() tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		ctx, cancel := reqCtx()
		defer cancel()
		return newSessionMsg{err: ctrl.StartNewSession(ctx)}
	}
}

func (m *Model) sidebarCmd() tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		ctx, cancel := reqCtx()
		defer cancel()
		return sidebarMsg(ctrl.RefreshSidebar(ctx))
	}
}

func (m *Model) metricsCmd() tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		ctx, cancel := reqCtx()
		defer cancel()
		met, err := ctrl.RefreshMetrics(ctx)
		return metricsMsg{metrics: met, err: err}
	}
}

func (m *Model) openResourceCmd(query string) tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		ctx, cancel := reqCtx()
		defer cancel()
		return resourceOpenedMsg{err: ctrl.OpenResource(ctx, query)}
	}
}

func (m *Model) openPastSessionCmd(id string) tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		ctx, cancel := reqCtx()
		defer cancel()
		return historyOpenedMsg{err: ctrl.OpenPastSession(ctx, id)}
	}
}

func (m *Model) returnToChatCmd() tea.Cmd {
	ctrl := m.ctrl
	mode := m.ctrl.Mode()
	return func() tea.Msg {
		ctx, cancel := reqCtx()
		defer cancel()
		if mode == session.ModeViewingResource {
			return returnedMsg{err: ctrl.CloseResource(ctx)}
		}
		return returnedMsg{err: ctrl.ReturnToChat(ctx)}
	}
}

func (m *Model) eligibilityCmd() tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		ctx, cancel := reqCtx()
		defer cancel()
		elig, err := ctrl.CheckRescreen(ctx)
		return eligibilityMsg{elig: elig, err: err}
	}
}

func (m *Model) feedbackCmd(rating int, comment string) tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		ctx, cancel := reqCtx()
		defer cancel()
		return feedbackDoneMsg{err: ctrl.SendFeedback(ctx, rating, comment)}
	}
}

// refreshHistoryList rebuilds the bubbles list from the sidebar snapshot.
func (m *Model) refreshHistoryList(entries []types.HistoryEntry) {
	items := make([]list.Item, 0, len(entries))
	for _, e := range entries {
		items = append(items, historyItem{id: e.ID, date: e.Date})
	}
	m.histList.SetItems(items)
}
