// Package ui provides the visual styling for the aura terminal client.
// Calm wellness palette with light/dark mode support.
package ui

import (
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"aura/internal/types"
)

var (
	// Light Mode Colors (Default)
	LightBackground = lipgloss.Color("#f6f4f9") // soft lavender white
	LightForeground = lipgloss.Color("#2b2440") // deep plum
	LightPrimary    = lipgloss.Color("#7c6bb0") // muted violet
	LightAccent     = lipgloss.Color("#4db6ac") // calm teal
	LightSecondary  = lipgloss.Color("#e8e4f0")
	LightMuted      = lipgloss.Color("#a79fc0")
	LightBorder     = lipgloss.Color("#ddd7e8")
	LightCard       = lipgloss.Color("#ffffff")

	// Dark Mode Colors
	DarkBackground = lipgloss.Color("#1b1625")
	DarkForeground = lipgloss.Color("#ece9f4")
	DarkPrimary    = lipgloss.Color("#a796d6")
	DarkAccent     = lipgloss.Color("#4db6ac")
	DarkSecondary  = lipgloss.Color("#2a2338")
	DarkMuted      = lipgloss.Color("#6f6590")
	DarkBorder     = lipgloss.Color("#3a3150")
	DarkCard       = lipgloss.Color("#241d33")

	// Semantic Colors (same in both modes)
	Destructive = lipgloss.Color("#e53935")
	Success     = lipgloss.Color("#66bb6a")
	Warning     = lipgloss.Color("#FFC107")
	Info        = lipgloss.Color("#2196F3")

	// Agent Colors
	AgentKaiColor   = lipgloss.Color("#5c9ce6") // steady blue, the screener
	AgentElaraColor = lipgloss.Color("#b085d6") // warm violet, the companion
	AgentVeroColor  = lipgloss.Color("#4db6ac") // teal, the guide
	AgentAegisColor = lipgloss.Color("#ffb74d") // amber, the analyst
	AgentOrionColor = lipgloss.Color("#90a4ae") // slate, the archivist

	// Metric gauge colors, low to high severity.
	GaugeLow  = lipgloss.Color("#66bb6a")
	GaugeMid  = lipgloss.Color("#ffd54f")
	GaugeHigh = lipgloss.Color("#e57373")
)

// Theme holds the current color scheme
type Theme struct {
	Background lipgloss.Color
	Foreground lipgloss.Color
	Primary    lipgloss.Color
	Accent     lipgloss.Color
	Secondary  lipgloss.Color
	Muted      lipgloss.Color
	Border     lipgloss.Color
	Card       lipgloss.Color
	IsDark     bool
}

// LightTheme returns the light mode theme
func LightTheme() Theme {
	return Theme{
		Background: LightBackground,
		Foreground: LightForeground,
		Primary:    LightPrimary,
		Accent:     LightAccent,
		Secondary:  LightSecondary,
		Muted:      LightMuted,
		Border:     LightBorder,
		Card:       LightCard,
		IsDark:     false,
	}
}

// DarkTheme returns the dark mode theme
func DarkTheme() Theme {
	return Theme{
		Background: DarkBackground,
		Foreground: DarkForeground,
		Primary:    DarkPrimary,
		Accent:     DarkAccent,
		Secondary:  DarkSecondary,
		Muted:      DarkMuted,
		Border:     DarkBorder,
		Card:       DarkCard,
		IsDark:     true,
	}
}

// ThemeByName resolves a configured theme name, defaulting to light.
func ThemeByName(name string) Theme {
	if strings.EqualFold(name, "dark") {
		return DarkTheme()
	}
	return LightTheme()
}

// DetectTheme auto-detects based on terminal hints or returns light mode.
// TODO: use termenv to query the real terminal background instead of COLORFGBG.
func DetectTheme() Theme {
	colorTerm := os.Getenv("COLORFGBG")
	if colorTerm != "" {
		// Format is usually "foreground;background". Low ANSI indexes are
		// dark backgrounds.
		parts := strings.Split(colorTerm, ";")
		if len(parts) == 2 {
			if bgIdx, err := strconv.Atoi(parts[1]); err == nil {
				if (bgIdx >= 0 && bgIdx <= 6) || bgIdx == 8 {
					return DarkTheme()
				}
			}
		}
	}

	if os.Getenv("AURA_DARK_MODE") == "1" {
		return DarkTheme()
	}

	return LightTheme()
}

// Styles holds all the styled components
type Styles struct {
	Theme Theme

	// Layout
	App     lipgloss.Style
	Header  lipgloss.Style
	Footer  lipgloss.Style
	Content lipgloss.Style
	Sidebar lipgloss.Style

	// Text
	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Body     lipgloss.Style
	Muted    lipgloss.Style
	Bold     lipgloss.Style

	// Conversation
	Prompt      lipgloss.Style
	UserBubble  lipgloss.Style
	AgentBubble lipgloss.Style
	AgentName   lipgloss.Style
	Indicator   lipgloss.Style

	// Status
	Success lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
	Info    lipgloss.Style

	// Components
	Card    lipgloss.Style
	Spinner lipgloss.Style
	Divider lipgloss.Style
	Badge   lipgloss.Style
	Option  lipgloss.Style
	Chosen  lipgloss.Style
}

// NewStyles creates a new Styles instance with the given theme
func NewStyles(theme Theme) Styles {
	return Styles{
		Theme: theme,

		App: lipgloss.NewStyle().
			Background(theme.Background).
			Foreground(theme.Foreground),

		Header: lipgloss.NewStyle().
			Background(theme.Primary).
			Foreground(lipgloss.Color("#ffffff")).
			Padding(0, 2).
			Bold(true),

		Footer: lipgloss.NewStyle().
			Foreground(theme.Muted).
			Padding(0, 2),

		Content: lipgloss.NewStyle().
			Padding(1, 2),

		Sidebar: lipgloss.NewStyle().
			Padding(1, 2).
			BorderLeft(true).
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(theme.Border),

		Title: lipgloss.NewStyle().
			Foreground(theme.Primary).
			Bold(true).
			MarginBottom(1),

		Subtitle: lipgloss.NewStyle().
			Foreground(theme.Muted).
			Italic(true),

		Body: lipgloss.NewStyle().
			Foreground(theme.Foreground),

		Muted: lipgloss.NewStyle().
			Foreground(theme.Muted),

		Bold: lipgloss.NewStyle().
			Foreground(theme.Foreground).
			Bold(true),

		Prompt: lipgloss.NewStyle().
			Foreground(theme.Accent).
			Bold(true),

		UserBubble: lipgloss.NewStyle().
			Foreground(theme.Foreground).
			PaddingLeft(2).
			BorderLeft(true).
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(theme.Muted),

		AgentBubble: lipgloss.NewStyle().
			Foreground(theme.Foreground).
			PaddingLeft(2).
			BorderLeft(true).
			BorderStyle(lipgloss.ThickBorder()).
			BorderForeground(theme.Accent),

		AgentName: lipgloss.NewStyle().
			Bold(true),

		Indicator: lipgloss.NewStyle().
			Foreground(theme.Muted).
			Italic(true),

		Success: lipgloss.NewStyle().
			Foreground(Success).
			Bold(true),

		Error: lipgloss.NewStyle().
			Foreground(Destructive).
			Bold(true),

		Warning: lipgloss.NewStyle().
			Foreground(Warning).
			Bold(true),

		Info: lipgloss.NewStyle().
			Foreground(Info),

		Card: lipgloss.NewStyle().
			Background(theme.Card).
			Foreground(theme.Foreground).
			Padding(1, 2).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(theme.Border),

		Spinner: lipgloss.NewStyle().
			Foreground(theme.Accent),

		Divider: lipgloss.NewStyle().
			Foreground(theme.Border),

		Badge: lipgloss.NewStyle().
			Background(theme.Accent).
			Foreground(lipgloss.Color("#ffffff")).
			Padding(0, 1).
			Bold(true),

		Option: lipgloss.NewStyle().
			Foreground(theme.Foreground).
			PaddingLeft(2),

		Chosen: lipgloss.NewStyle().
			Foreground(theme.Accent).
			Bold(true).
			PaddingLeft(0),
	}
}

// DefaultStyles returns styles with the auto-detected theme
func DefaultStyles() Styles {
	return NewStyles(DetectTheme())
}

// AgentColor returns the display color for an agent key.
func AgentColor(key string) lipgloss.Color {
	switch key {
	case types.AgentKai:
		return AgentKaiColor
	case types.AgentElara:
		return AgentElaraColor
	case types.AgentVero:
		return AgentVeroColor
	case types.AgentAegis:
		return AgentAegisColor
	case types.AgentOrion:
		return AgentOrionColor
	default:
		return AgentElaraColor
	}
}

// GaugeColor maps a 0-100 wellness value onto the severity scale.
func GaugeColor(v int) lipgloss.Color {
	switch {
	case v >= 67:
		return GaugeHigh
	case v >= 34:
		return GaugeMid
	default:
		return GaugeLow
	}
}

// RenderDivider returns a horizontal divider
func (s Styles) RenderDivider(width int) string {
	return s.Divider.Render(strings.Repeat("─", width))
}

// RenderGauge draws a fixed-width bar for a 0-100 metric value.
func RenderGauge(v, width int) string {
	if width < 1 {
		width = 10
	}
	if v < 0 {
		v = 0
	}
	if v > 100 {
		v = 100
	}
	filled := v * width / 100
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	return lipgloss.NewStyle().Foreground(GaugeColor(v)).Render(bar)
}
