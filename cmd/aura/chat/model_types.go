package chat

import (
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/glamour"

	"aura/cmd/aura/ui"
	"aura/internal/backend"
	"aura/internal/config"
	"aura/internal/session"
	"aura/internal/types"
)

// =============================================================================
// SCREENS AND INPUT STATES
// =============================================================================

// AuthStep selects which form the logged-out screen shows.
type AuthStep int

const (
	AuthStepLogin AuthStep = iota
	AuthStepSignup
)

// Auth form field indexes, in tab order.
const (
	fieldEmail = iota
	fieldPassword
	fieldName
	fieldAge
	fieldRegion
	authFieldCount
)

// Overlay is a modal layered on top of the current screen.
type Overlay int

const (
	OverlayNone Overlay = iota
	OverlayConfirmLogout
	OverlayFeedback
	OverlayHelp
)

// historyItem is a list item for the past-session list.
type historyItem struct {
	id, date string
}

func (i historyItem) Title() string       { return i.date }
func (i historyItem) Description() string { return "[" + i.id + "]" }
func (i historyItem) FilterValue() string { return i.id + " " + i.date }

// =============================================================================
// CORE TYPES
// =============================================================================

// Model is the main model for the interactive wellness client.
type Model struct {
	// UI Components
	textarea  textarea.Model
	viewport  viewport.Model
	spinner   spinner.Model
	histList  list.Model
	authIn    []textinput.Model
	styles    ui.Styles
	renderer  *glamour.TermRenderer

	// Session core
	ctrl   *session.Controller
	router *session.Router

	// Config
	cfg     config.Config
	cfgPath string

	// Auth screen state
	authStep  AuthStep
	authFocus int
	authNote  string

	// Screening screen state
	screenSel     int
	screenWaiting bool

	// Chat screen state
	sending        bool
	offered        *types.Resource
	statusLine     string
	overlay        Overlay
	rating         int
	ratingNote     textinput.Model
	pickingHistory bool

	// Async plumbing
	routerCh chan struct{}
	reloadCh chan config.Config

	// Layout
	width  int
	height int
	ready  bool
	err    error
}

// =============================================================================
// TEA MESSAGES
// =============================================================================

type (
	errMsg error

	// Auth
	loginDoneMsg  struct{ err error }
	signupDoneMsg struct{ err error }

	// Screening
	screeningDoneMsg struct{ err error }

	// Chat
	sendDoneMsg struct {
		res session.SendResult
		err error
	}
	newSessionMsg struct{ err error }

	// Sidebar and metrics
	sidebarMsg  session.Sidebar
	metricsMsg  struct {
		metrics types.Metrics
		err     error
	}

	// Resource and history
	resourceOpenedMsg struct{ err error }
	historyOpenedMsg  struct{ err error }
	returnedMsg       struct{ err error }

	// Feedback
	feedbackDoneMsg struct{ err error }

	// Re-screening eligibility check
	eligibilityMsg struct {
		elig backend.Eligibility
		err  error
	}

	// Agent routing changed in the background (indicator timers firing).
	routerChangedMsg struct{}

	// Config file rewritten on disk.
	configReloadedMsg config.Config
)
