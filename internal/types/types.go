// Package types provides shared type definitions used across aura packages.
// This package exists to break import cycles between session, backend, and the
// TUI. Types in this package should be foundational data structures with no
// complex dependencies.
package types

import (
	"strings"
	"time"
)

// =============================================================================
// USER & METRICS
// =============================================================================

// Region is the coarse service region used for helpline and resource lookup.
type Region string

const (
	RegionUS     Region = "US"
	RegionEU     Region = "EU"
	RegionAsia   Region = "ASIA"
	RegionAU     Region = "AU"
	RegionGlobal Region = "GLOBAL"
)

// ParseRegion normalizes a region string to one of the known values.
// Unknown or empty input maps to RegionGlobal.
func ParseRegion(s string) Region {
	switch Region(strings.ToUpper(strings.TrimSpace(s))) {
	case RegionUS:
		return RegionUS
	case RegionEU:
		return RegionEU
	case RegionAsia:
		return RegionAsia
	case RegionAU:
		return RegionAU
	default:
		return RegionGlobal
	}
}

// DetectRegion derives a region from the local timezone name, working from
// names like "America/New_York". Unknown zones fall back to RegionGlobal.
func DetectRegion(zoneName string) Region {
	switch {
	case strings.Contains(zoneName, "America"):
		return RegionUS
	case strings.Contains(zoneName, "Europe"):
		return RegionEU
	case strings.Contains(zoneName, "Asia"):
		return RegionAsia
	case strings.Contains(zoneName, "Australia"):
		return RegionAU
	default:
		return RegionGlobal
	}
}

// Metrics holds the three wellbeing scores on a 0-100 scale. Fields are
// pointers so that "unknown" stays distinct from an explicit zero: the backend
// owns these values and a partial payload must not clobber scores it omitted.
type Metrics struct {
	Anxiety    *int `json:"anxiety,omitempty"`
	Depression *int `json:"depression,omitempty"`
	Stress     *int `json:"stress,omitempty"`
}

// Merge overwrites only the fields present in the incoming payload.
func (m *Metrics) Merge(in Metrics) {
	if in.Anxiety != nil {
		m.Anxiety = in.Anxiety
	}
	if in.Depression != nil {
		m.Depression = in.Depression
	}
	if in.Stress != nil {
		m.Stress = in.Stress
	}
}

// displayScore clamps a score for display. Unknown and out-of-range values
// render as 0; stored state is never coerced.
func displayScore(v *int) int {
	if v == nil || *v < 0 || *v > 100 {
		return 0
	}
	return *v
}

// DisplayAnxiety returns the anxiety score as shown to the user.
func (m Metrics) DisplayAnxiety() int { return displayScore(m.Anxiety) }

// DisplayDepression returns the depression score as shown to the user.
func (m Metrics) DisplayDepression() int { return displayScore(m.Depression) }

// DisplayStress returns the stress score as shown to the user.
func (m Metrics) DisplayStress() int { return displayScore(m.Stress) }

// IntPtr is a convenience constructor for metric literals.
func IntPtr(v int) *int { return &v }

// User is the authenticated identity. Replaced wholesale on login and reset
// to the zero value on logout.
type User struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Age     int     `json:"age"`
	Region  Region  `json:"region"`
	Metrics Metrics `json:"metrics"`
}

// LoggedIn reports whether this value carries a real identity.
func (u User) LoggedIn() bool { return u.ID != "" }

// =============================================================================
// CHAT
// =============================================================================

// SpeakerUser is the speaker key for user-authored transcript entries. Agent
// turns use the agent's catalog key.
const SpeakerUser = "user"

// ChatMessage is one immutable transcript entry. Ordering is insertion order
// and is significant.
type ChatMessage struct {
	Text    string `json:"text"`
	Speaker string `json:"agent"`
}

// HistoryEntry is one item of the past-session list.
type HistoryEntry struct {
	ID   string `json:"id"`
	Date string `json:"date"`
}

// ReplayTurn is one turn pair of a replayed past session. A User value of
// SessionStartSentinel marks the session-open record and is not rendered as a
// user turn.
type ReplayTurn struct {
	User string `json:"user"`
	AI   string `json:"ai"`
}

// SessionStartSentinel marks the opening record of a stored session.
const SessionStartSentinel = "SESSION_START"

// Resource is a self-help technique returned by the resource lookup.
type Resource struct {
	Title       string   `json:"title"`
	Source      string   `json:"source"`
	Description string   `json:"description,omitempty"`
	Steps       []string `json:"steps"`
	SourceURL   string   `json:"source_url"`
}

// =============================================================================
// SCREENING
// =============================================================================

// ScreeningProgress is the live state of the questionnaire. It exists only
// while the screening flow is active.
type ScreeningProgress struct {
	CurrentQuestion int
	TotalQuestions  int
	QuestionText    string
	Options         []string
}

// Percent returns the completion percentage for the progress bar.
func (p ScreeningProgress) Percent() float64 {
	if p.TotalQuestions <= 0 {
		return 0
	}
	return float64(p.CurrentQuestion) / float64(p.TotalQuestions) * 100
}

// =============================================================================
// SESSION FEEDBACK
// =============================================================================

// Feedback is a user rating for a finished session.
type Feedback struct {
	SessionID string    `json:"sessionId"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment,omitempty"`
	SentAt    time.Time `json:"-"`
}
