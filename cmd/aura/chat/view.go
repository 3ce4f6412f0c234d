// View rendering for the aura TUI.
package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"aura/cmd/aura/ui"
	"aura/internal/session"
	"aura/internal/types"
)

// =============================================================================
// VIEW RENDERING
// =============================================================================

func (m *Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	if m.overlay != OverlayNone {
		return m.renderOverlay()
	}

	switch m.ctrl.Mode() {
	case session.ModeLoggedOut:
		return m.renderAuth()
	case session.ModeScreening:
		return m.renderScreening()
	case session.ModeViewingResource:
		return m.renderResource()
	case session.ModeViewingHistory:
		return m.renderReplay()
	default:
		if m.pickingHistory {
			return m.styles.Content.Render(m.histList.View())
		}
		return m.renderChat()
	}
}

// layout resizes the size-aware components after a window change.
func (m *Model) layout() {
	m.viewport.Width = m.width - 4
	m.viewport.Height = m.height - 10
	if m.viewport.Height < 3 {
		m.viewport.Height = 3
	}
	m.textarea.SetWidth(m.width - 6)
	m.histList.SetSize(m.width-4, m.height-4)
	m.syncViewport()
}

// syncViewport re-renders whatever the main pane currently shows.
func (m *Model) syncViewport() {
	switch m.ctrl.Mode() {
	case session.ModeChatting:
		m.viewport.SetContent(m.renderTranscript())
		m.viewport.GotoBottom()
	case session.ModeViewingHistory:
		m.viewport.SetContent(m.renderReplayTurns())
		m.viewport.GotoTop()
	}
}

// safeRenderMarkdown renders markdown with panic recovery.
func (m *Model) safeRenderMarkdown(content string) (result string) {
	defer func() {
		if r := recover(); r != nil {
			result = content
		}
	}()

	if m.renderer != nil && content != "" {
		rendered, err := m.renderer.Render(content)
		if err == nil {
			return rendered
		}
	}
	return content
}

// -----------------------------------------------------------------------------
// Auth
// -----------------------------------------------------------------------------

func (m *Model) renderAuth() string {
	var sb strings.Builder

	title := "Sign in"
	fields := []int{fieldEmail, fieldPassword}
	hint := "enter: sign in  ctrl+s: create an account  ctrl+c: quit"
	if m.authStep == AuthStepSignup {
		title = "Create your account"
		fields = []int{fieldName, fieldEmail, fieldPassword, fieldAge, fieldRegion}
		hint = "enter: sign up  ctrl+s: back to sign in  ctrl+c: quit"
	}

	sb.WriteString(m.styles.Title.Render("aura") + "\n")
	sb.WriteString(m.styles.Subtitle.Render("your wellness companion") + "\n\n")
	sb.WriteString(m.styles.Bold.Render(title) + "\n\n")
	for _, f := range fields {
		sb.WriteString(m.authIn[f].View() + "\n")
	}
	if m.authNote != "" {
		sb.WriteString("\n" + m.styles.Warning.Render(m.authNote) + "\n")
	}
	sb.WriteString("\n" + m.styles.Muted.Render(hint))

	card := m.styles.Card.Width(min(m.width-4, 60)).Render(sb.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, card)
}

// -----------------------------------------------------------------------------
// Screening
// -----------------------------------------------------------------------------

func (m *Model) renderScreening() string {
	prog := m.ctrl.ScreeningProgress()

	var sb strings.Builder
	sb.WriteString(m.styles.AgentName.Foreground(ui.AgentColor(types.AgentKai)).Render("Kai") + "\n")
	if prog.TotalQuestions > 0 {
		pct := int(prog.Percent())
		sb.WriteString(m.styles.Muted.Render(
			fmt.Sprintf("question %d of %d  (%d%%)", prog.CurrentQuestion, prog.TotalQuestions, pct)) + "\n")
		sb.WriteString(ui.RenderGauge(pct, 30) + "\n\n")
	}
	sb.WriteString(m.styles.Body.Render(prog.QuestionText) + "\n\n")

	for i, opt := range prog.Options {
		line := fmt.Sprintf("%d. %s", i+1, opt)
		if i == m.screenSel {
			sb.WriteString(m.styles.Chosen.Render("> "+line) + "\n")
		} else {
			sb.WriteString(m.styles.Option.Render(line) + "\n")
		}
	}

	if m.screenWaiting {
		sb.WriteString("\n" + m.spinner.View() + m.styles.Muted.Render(" sending..."))
	} else {
		sb.WriteString("\n" + m.styles.Muted.Render("up/down: choose  enter: answer"))
	}
	if m.err != nil {
		sb.WriteString("\n" + m.styles.Error.Render(m.err.Error()))
	}

	card := m.styles.Card.Width(min(m.width-4, 72)).Render(sb.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, card)
}

// -----------------------------------------------------------------------------
// Chat
// -----------------------------------------------------------------------------

func (m *Model) renderChat() string {
	header := m.renderHeader()
	body := m.styles.Content.Render(m.viewport.View())

	inputStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(m.styles.Theme.Accent).
		Padding(0, 1)
	input := inputStyle.Render(m.textarea.View())

	return lipgloss.JoinVertical(lipgloss.Left, header, body, input, m.renderFooter())
}

func (m *Model) renderTranscript() string {
	var sb strings.Builder

	for _, msg := range m.ctrl.Transcript() {
		if msg.Speaker == types.SpeakerUser {
			userStyle := m.styles.Bold.
				Foreground(m.styles.Theme.Primary).
				MarginTop(1)
			sb.WriteString(userStyle.Render("You") + "\n")
			sb.WriteString(m.styles.UserBubble.Render(msg.Text))
			sb.WriteString("\n\n")
			continue
		}

		agent := types.LookupAgent(msg.Speaker)
		nameStyle := m.styles.AgentName.
			Foreground(ui.AgentColor(agent.Key)).
			MarginTop(1)
		sb.WriteString(nameStyle.Render(agent.Icon+" "+agent.Label) + "\n")
		bubble := m.styles.AgentBubble.BorderForeground(ui.AgentColor(agent.Key))
		sb.WriteString(bubble.Render(m.safeRenderMarkdown(msg.Text)))
		sb.WriteString("\n")
	}

	if m.sending {
		sb.WriteString("\n" + m.spinner.View() + m.styles.Indicator.Render(" thinking..."))
	}

	return sb.String()
}

func (m *Model) renderHeader() string {
	title := m.styles.Header.Render(" aura ")

	primary := types.LookupAgent(m.router.Primary())
	active := m.styles.Badge.
		Background(ui.AgentColor(primary.Key)).
		Render(primary.Icon + " " + primary.Label)

	var busy []string
	for _, key := range m.router.BackgroundActive() {
		a := types.LookupAgent(key)
		busy = append(busy, m.styles.Indicator.Render(a.Icon+" "+a.Label+" working..."))
	}

	user := m.ctrl.User()
	who := ""
	if user.LoggedIn() {
		who = m.styles.Muted.Render("  " + user.Name)
	}

	headerLine := lipgloss.JoinHorizontal(lipgloss.Center,
		title, " ", active, who, "  ", strings.Join(busy, "  "))

	return lipgloss.JoinVertical(lipgloss.Left, headerLine, m.styles.RenderDivider(m.width))
}

func (m *Model) renderFooter() string {
	metrics := m.ctrl.User().Metrics
	gauges := fmt.Sprintf("anx %s  dep %s  str %s",
		ui.RenderGauge(metrics.DisplayAnxiety(), 10),
		ui.RenderGauge(metrics.DisplayDepression(), 10),
		ui.RenderGauge(metrics.DisplayStress(), 10))

	line := gauges
	if m.statusLine != "" {
		line += "  |  " + m.statusLine
	}
	line += "  |  /help"

	return m.styles.Footer.MarginTop(1).Render(line)
}

// -----------------------------------------------------------------------------
// Resource and replay
// -----------------------------------------------------------------------------

func (m *Model) renderResource() string {
	res := m.ctrl.Resource()
	if res == nil {
		return m.styles.Muted.Render("nothing to show")
	}

	var sb strings.Builder
	sb.WriteString(m.styles.Title.Render(res.Title) + "\n")
	if res.Source != "" {
		sb.WriteString(m.styles.Subtitle.Render(res.Source) + "\n")
	}
	sb.WriteString("\n" + m.safeRenderMarkdown(res.Description) + "\n")
	for i, step := range res.Steps {
		sb.WriteString(m.styles.Body.Render(fmt.Sprintf("  %d. %s", i+1, step)) + "\n")
	}
	if res.SourceURL != "" {
		sb.WriteString("\n" + m.styles.Info.Render(res.SourceURL) + "\n")
	}
	sb.WriteString("\n" + m.styles.Muted.Render("esc: back to chat"))

	card := m.styles.Card.Width(min(m.width-4, 76)).Render(sb.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, card)
}

func (m *Model) renderReplay() string {
	sid, _ := m.ctrl.Replay()
	header := lipgloss.JoinVertical(lipgloss.Left,
		m.styles.Header.Render(" past conversation ")+m.styles.Muted.Render("  "+sid),
		m.styles.RenderDivider(m.width))
	body := m.styles.Content.Render(m.viewport.View())
	footer := m.styles.Footer.Render("esc: resume this conversation")
	return lipgloss.JoinVertical(lipgloss.Left, header, body, footer)
}

func (m *Model) renderReplayTurns() string {
	_, turns := m.ctrl.Replay()

	var sb strings.Builder
	for _, t := range turns {
		if t.User != "" && t.User != types.SessionStartSentinel {
			sb.WriteString(m.styles.Bold.Foreground(m.styles.Theme.Primary).Render("You") + "\n")
			sb.WriteString(m.styles.UserBubble.Render(t.User) + "\n\n")
		}
		if t.AI != "" {
			sb.WriteString(m.styles.AgentName.Foreground(ui.AgentElaraColor).Render("Elara") + "\n")
			sb.WriteString(m.styles.AgentBubble.Render(m.safeRenderMarkdown(t.AI)) + "\n")
		}
	}
	return sb.String()
}

// -----------------------------------------------------------------------------
// Overlays
// -----------------------------------------------------------------------------

func (m *Model) renderOverlay() string {
	var sb strings.Builder

	switch m.overlay {
	case OverlayConfirmLogout:
		sb.WriteString(m.styles.Bold.Render("Log out?") + "\n\n")
		sb.WriteString(m.styles.Body.Render("Your conversation stays saved for next time.") + "\n\n")
		sb.WriteString(m.styles.Muted.Render("y: log out  n: stay"))

	case OverlayFeedback:
		sb.WriteString(m.styles.Bold.Render("How was this session?") + "\n\n")
		stars := ""
		for i := 1; i <= 5; i++ {
			if i <= m.rating {
				stars += m.styles.Warning.Render("★ ")
			} else {
				stars += m.styles.Muted.Render("☆ ")
			}
		}
		sb.WriteString(stars + "\n\n")
		sb.WriteString(m.ratingNote.View() + "\n\n")
		sb.WriteString(m.styles.Muted.Render("1-5: rate  enter: send  esc: cancel"))

	case OverlayHelp:
		rows := [][2]string{
			{"/new", "start a fresh conversation"},
			{"/history", "browse past conversations"},
			{"/resource <topic>", "look up curated help"},
			{"/screen", "check if you can re-take the screening"},
			{"/metrics", "show your wellness metrics"},
			{"/feedback", "rate this session"},
			{"/theme", "toggle light/dark"},
			{"/logout", "sign out"},
			{"/quit", "exit"},
		}
		sb.WriteString(m.styles.Bold.Render("Commands") + "\n\n")
		for _, r := range rows {
			sb.WriteString(fmt.Sprintf("%s  %s\n",
				m.styles.Prompt.Render(fmt.Sprintf("%-20s", r[0])),
				m.styles.Muted.Render(r[1])))
		}
		sb.WriteString("\n" + m.styles.Muted.Render("any key to close"))
	}

	card := m.styles.Card.Width(min(m.width-4, 60)).Render(sb.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, card)
}
