package chat

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"aura/cmd/aura/ui"
	"aura/internal/backend"
	"aura/internal/config"
	"aura/internal/session"
	"aura/internal/types"
)

// =============================================================================
// UPDATE LOOP
// =============================================================================

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		m.ready = true
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)

	case routerChangedMsg:
		// An indicator timer fired in the background; re-render and keep
		// listening.
		m.syncViewport()
		return m, m.waitRouterChange()

	case configReloadedMsg:
		m.cfg = config.Config(msg)
		m.styles = ui.NewStyles(ui.ThemeByName(m.cfg.UI.Theme))
		m.statusLine = "settings reloaded"
		m.syncViewport()
		return m, m.waitConfigReload()

	case loginDoneMsg:
		return m.afterLogin(msg.err)

	case signupDoneMsg:
		if msg.err != nil {
			m.authNote = msg.err.Error()
			return m, nil
		}
		m.authStep = AuthStepLogin
		m.authNote = "account created, sign in to continue"
		m.focusAuthField(fieldEmail)
		return m, nil

	case screeningDoneMsg:
		m.screenWaiting = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.screenSel = 0
		if m.ctrl.Mode() == session.ModeChatting {
			m.syncViewport()
			return m, m.sidebarCmd()
		}
		return m, nil

	case sendDoneMsg:
		m.sending = false
		if msg.err != nil {
			m.statusLine = "delivery failed"
		} else if msg.res.Stale {
			return m, nil
		} else if msg.res.OfferResource && msg.res.Resource != nil {
			m.offered = msg.res.Resource
			m.statusLine = "a resource is available, press ctrl+r to open it"
		}
		m.syncViewport()
		return m, nil

	case newSessionMsg:
		if msg.err != nil {
			m.err = msg.err
		}
		m.offered = nil
		m.syncViewport()
		return m, m.sidebarCmd()

	case sidebarMsg:
		m.refreshHistoryList(msg.History)
		m.syncViewport()
		return m, nil

	case metricsMsg:
		if msg.err != nil {
			m.statusLine = "could not load metrics"
		} else {
			m.statusLine = fmt.Sprintf("anxiety %d  depression %d  stress %d",
				msg.metrics.DisplayAnxiety(), msg.metrics.DisplayDepression(), msg.metrics.DisplayStress())
		}
		return m, nil

	case resourceOpenedMsg:
		if msg.err != nil {
			m.statusLine = "could not load that resource right now"
		}
		m.syncViewport()
		return m, nil

	case historyOpenedMsg:
		m.pickingHistory = false
		if msg.err != nil {
			m.statusLine = "could not open that session"
		}
		m.syncViewport()
		return m, nil

	case returnedMsg:
		if msg.err != nil {
			m.err = msg.err
		}
		m.offered = nil
		m.syncViewport()
		return m, nil

	case eligibilityMsg:
		switch {
		case msg.err != nil:
			m.statusLine = "could not check screening eligibility"
		case msg.elig.Eligible:
			m.statusLine = "you can take a new screening, log out and back in to start it"
		default:
			m.statusLine = msg.elig.Message
		}
		return m, nil

	case feedbackDoneMsg:
		m.overlay = OverlayNone
		if msg.err != nil {
			m.statusLine = "could not send feedback"
		} else {
			m.statusLine = "thanks for the feedback"
		}
		return m, nil

	case errMsg:
		m.err = msg
		return m, nil
	}

	return m, nil
}

func (m *Model) afterLogin(err error) (tea.Model, tea.Cmd) {
	if err != nil {
		m.authNote = err.Error()
		return m, nil
	}
	m.authNote = ""
	m.err = nil
	m.statusLine = ""
	switch m.ctrl.Mode() {
	case session.ModeChatting:
		m.syncViewport()
		return m, m.sidebarCmd()
	case session.ModeScreening:
		m.screenSel = 0
		return m, nil
	}
	return m, nil
}

// =============================================================================
// KEY HANDLING
// =============================================================================

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m, tea.Quit
	}

	if m.overlay != OverlayNone {
		return m.handleOverlayKey(msg)
	}

	switch m.ctrl.Mode() {
	case session.ModeLoggedOut:
		return m.handleAuthKey(msg)
	case session.ModeScreening:
		return m.handleScreeningKey(msg)
	case session.ModeChatting:
		if m.pickingHistory {
			return m.handleHistoryPickKey(msg)
		}
		return m.handleChatKey(msg)
	case session.ModeViewingResource, session.ModeViewingHistory:
		switch msg.String() {
		case "esc", "q", "enter":
			return m, m.returnToChatCmd()
		}
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) handleOverlayKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.overlay {
	case OverlayConfirmLogout:
		switch msg.String() {
		case "y", "Y":
			m.overlay = OverlayNone
			m.ctrl.Logout()
			m.resetToAuth()
			return m, nil
		case "n", "N", "esc":
			m.overlay = OverlayNone
			return m, nil
		}
		return m, nil

	case OverlayFeedback:
		switch msg.String() {
		case "esc":
			m.overlay = OverlayNone
			return m, nil
		case "1", "2", "3", "4", "5":
			m.rating, _ = strconv.Atoi(msg.String())
			return m, nil
		case "enter":
			if m.rating == 0 {
				return m, nil
			}
			return m, m.feedbackCmd(m.rating, m.ratingNote.Value())
		}
		var cmd tea.Cmd
		m.ratingNote, cmd = m.ratingNote.Update(msg)
		return m, cmd

	case OverlayHelp:
		m.overlay = OverlayNone
		return m, nil
	}
	return m, nil
}

func (m *Model) handleAuthKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "tab", "down":
		m.focusAuthField(m.nextAuthField(1))
		return m, nil
	case "shift+tab", "up":
		m.focusAuthField(m.nextAuthField(-1))
		return m, nil
	case "ctrl+s":
		if m.authStep == AuthStepLogin {
			m.authStep = AuthStepSignup
		} else {
			m.authStep = AuthStepLogin
		}
		m.authNote = ""
		m.focusAuthField(fieldEmail)
		return m, nil
	case "enter":
		return m.submitAuth()
	}

	var cmd tea.Cmd
	m.authIn[m.authFocus], cmd = m.authIn[m.authFocus].Update(msg)
	return m, cmd
}

// nextAuthField steps through the fields the current form actually shows.
func (m *Model) nextAuthField(dir int) int {
	visible := []int{fieldEmail, fieldPassword}
	if m.authStep == AuthStepSignup {
		visible = []int{fieldName, fieldEmail, fieldPassword, fieldAge, fieldRegion}
	}
	cur := 0
	for i, f := range visible {
		if f == m.authFocus {
			cur = i
			break
		}
	}
	cur = (cur + dir + len(visible)) % len(visible)
	return visible[cur]
}

func (m *Model) focusAuthField(f int) {
	for i := range m.authIn {
		m.authIn[i].Blur()
	}
	m.authFocus = f
	m.authIn[f].Focus()
}

func (m *Model) submitAuth() (tea.Model, tea.Cmd) {
	email := strings.TrimSpace(m.authIn[fieldEmail].Value())
	password := m.authIn[fieldPassword].Value()

	if m.authStep == AuthStepLogin {
		if email == "" || strings.TrimSpace(password) == "" {
			m.authNote = "email and password are required"
			return m, nil
		}
		m.authNote = "signing in..."
		return m, m.loginCmd(email, password)
	}

	age, err := strconv.Atoi(strings.TrimSpace(m.authIn[fieldAge].Value()))
	if err != nil || age <= 0 {
		m.authNote = "age must be a positive number"
		return m, nil
	}
	region := types.ParseRegion(strings.TrimSpace(m.authIn[fieldRegion].Value()))
	m.authNote = "creating account..."
	return m, m.signupCmd(backend.SignupRequest{
		Name:     strings.TrimSpace(m.authIn[fieldName].Value()),
		Email:    email,
		Password: password,
		Age:      age,
		Region:   region,
	})
}

func (m *Model) handleScreeningKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.screenWaiting {
		return m, nil
	}
	prog := m.ctrl.ScreeningProgress()
	switch msg.String() {
	case "up", "k":
		if m.screenSel > 0 {
			m.screenSel--
		}
		return m, nil
	case "down", "j":
		if m.screenSel < len(prog.Options)-1 {
			m.screenSel++
		}
		return m, nil
	case "enter":
		if len(prog.Options) == 0 {
			return m, nil
		}
		m.screenWaiting = true
		return m, m.answerCmd(types.IntPtr(m.screenSel))
	}
	if n, err := strconv.Atoi(msg.String()); err == nil && n >= 1 && n <= len(prog.Options) {
		m.screenSel = n - 1
		m.screenWaiting = true
		return m, m.answerCmd(types.IntPtr(m.screenSel))
	}
	return m, nil
}

func (m *Model) handleHistoryPickKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.pickingHistory = false
		return m, nil
	case "enter":
		if item, ok := m.histList.SelectedItem().(historyItem); ok {
			return m, m.openPastSessionCmd(item.id)
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.histList, cmd = m.histList.Update(msg)
	return m, cmd
}

func (m *Model) handleChatKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		text := strings.TrimSpace(m.textarea.Value())
		if text == "" {
			return m, nil
		}
		if strings.HasPrefix(text, "/") {
			m.textarea.Reset()
			return m.runCommand(text)
		}
		if m.sending {
			m.statusLine = "still waiting on the last message"
			return m, nil
		}
		m.textarea.Reset()
		m.sending = true
		m.statusLine = ""
		m.syncViewport()
		return m, m.sendCmd(text)
	case "ctrl+r":
		if m.offered != nil {
			res := *m.offered
			m.offered = nil
			if err := m.ctrl.ShowResource(res); err != nil {
				m.err = err
			}
			return m, nil
		}
	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	return m, cmd
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

func (m *Model) runCommand(input string) (tea.Model, tea.Cmd) {
	parts := strings.Fields(input)
	cmd, args := parts[0], parts[1:]

	switch cmd {
	case "/help":
		m.overlay = OverlayHelp
		return m, nil

	case "/new":
		return m, m.newSessionCmd()

	case "/history":
		m.pickingHistory = true
		return m, m.sidebarCmd()

	case "/resource":
		if len(args) == 0 {
			m.statusLine = "usage: /resource <topic>"
			return m, nil
		}
		return m, m.openResourceCmd(strings.Join(args, " "))

	case "/screen":
		return m, m.eligibilityCmd()

	case "/metrics":
		return m, m.metricsCmd()

	case "/feedback":
		m.overlay = OverlayFeedback
		m.rating = 0
		m.ratingNote.Reset()
		m.ratingNote.Focus()
		return m, nil

	case "/theme":
		if m.styles.Theme.IsDark {
			m.styles = ui.NewStyles(ui.LightTheme())
			m.cfg.UI.Theme = "light"
		} else {
			m.styles = ui.NewStyles(ui.DarkTheme())
			m.cfg.UI.Theme = "dark"
		}
		if m.cfgPath != "" {
			if err := m.cfg.Save(m.cfgPath); err != nil {
				m.statusLine = "theme switched (could not save config)"
			} else {
				m.statusLine = "theme switched and saved"
			}
		}
		m.syncViewport()
		return m, nil

	case "/logout":
		m.overlay = OverlayConfirmLogout
		return m, nil

	case "/quit":
		return m, tea.Quit

	default:
		m.statusLine = "unknown command, try /help"
		return m, nil
	}
}

// resetToAuth clears the UI back to the sign-in form after logout.
func (m *Model) resetToAuth() {
	m.authStep = AuthStepLogin
	m.authNote = ""
	m.statusLine = ""
	m.offered = nil
	m.pickingHistory = false
	m.sending = false
	m.err = nil
	for i := range m.authIn {
		m.authIn[i].Reset()
	}
	m.focusAuthField(fieldEmail)
	m.textarea.Reset()
	m.viewport.SetContent("")
}
