package backend

import (
	"fmt"

	"aura/internal/types"
)

// APIError is a backend-declared failure. The Reason is surfaced verbatim to
// the user for authentication errors.
type APIError struct {
	StatusCode int
	Reason     string
}

func (e *APIError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("backend error (%d): %s", e.StatusCode, e.Reason)
	}
	return fmt.Sprintf("backend error (%d)", e.StatusCode)
}

// =============================================================================
// REQUEST / RESPONSE SHAPES
// =============================================================================
// Field names follow the wire contract exactly; the payload shape is the
// contract, the paths are incidental.

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResult is the successful outcome of a login call.
type LoginResult struct {
	User               types.User `json:"user"`
	HasRecentScreening bool       `json:"hasRecentScreening"`
}

// SignupRequest is the profile submitted when creating an account.
type SignupRequest struct {
	Name     string       `json:"name"`
	Email    string       `json:"email"`
	Password string       `json:"password"`
	Age      int          `json:"age"`
	Region   types.Region `json:"region"`
}

// ScreeningRequest advances the questionnaire by one answer. AnswerIndex is
// nil exactly once, for the request that fetches the first question, and the
// key is serialized as null rather than omitted.
type ScreeningRequest struct {
	UserID      string `json:"userId"`
	UserAge     int    `json:"userAge"`
	AnswerIndex *int   `json:"answerIndex"`
}

// ScreeningResponse is the union of the three screening outcomes. Exactly one
// of the groups is populated: continuation (Question set), completion (Message
// set), or cooldown (Err == "screening_cooldown" with Message).
type ScreeningResponse struct {
	// Continuation
	Question        string   `json:"question,omitempty"`
	Options         []string `json:"options,omitempty"`
	CurrentQuestion int      `json:"currentQuestion,omitempty"`
	TotalQuestions  int      `json:"totalQuestions,omitempty"`

	// Completion
	Message   string         `json:"message,omitempty"`
	SessionID string         `json:"sessionId,omitempty"`
	Metrics   *types.Metrics `json:"metrics,omitempty"`

	// Cooldown
	Err string `json:"error,omitempty"`
}

// screeningCooldown is the backend's distinguished cooldown marker.
const screeningCooldown = "screening_cooldown"

// IsCooldown reports the screened-too-recently outcome.
func (r ScreeningResponse) IsCooldown() bool { return r.Err == screeningCooldown }

// IsComplete reports the terminal screening outcome.
func (r ScreeningResponse) IsComplete() bool { return !r.IsCooldown() && r.Message != "" }

// Eligibility is the pre-screening check result.
type Eligibility struct {
	Eligible      bool   `json:"eligible"`
	Message       string `json:"message"`
	NextAvailable string `json:"next_available,omitempty"`
}

// GreetingRequest opens a new session with the companion agent.
type GreetingRequest struct {
	UserID  string        `json:"userId"`
	Metrics types.Metrics `json:"metrics"`
}

// GreetingResponse carries the first agent turn of a new session. Duplicate
// is set when the backend already issued a greeting for this session from
// another client context; no message is rendered in that case.
type GreetingResponse struct {
	Agent     string `json:"agent"`
	Response  string `json:"response"`
	SessionID string `json:"sessionId"`
	Duplicate bool   `json:"duplicate,omitempty"`
}

// ChatRequest is one user turn.
type ChatRequest struct {
	UserID    string       `json:"userId"`
	SessionID string       `json:"sessionId,omitempty"`
	Message   string       `json:"message"`
	Region    types.Region `json:"region"`
}

// ChatResponse is one agent turn. The backend decides the responder; Agent
// names the catalog entry that authored Response. SessionID is set when the
// backend assigned or rotated the session.
type ChatResponse struct {
	Agent              string          `json:"agent"`
	Response           string          `json:"response"`
	SessionID          string          `json:"sessionId,omitempty"`
	ShowResourceButton bool            `json:"show_resource_button,omitempty"`
	ResourceData       *types.Resource `json:"resource_data,omitempty"`
	Metrics            *types.Metrics  `json:"metrics,omitempty"`
}

// ResourceRequest looks up a self-help resource.
type ResourceRequest struct {
	Query  string       `json:"query"`
	UserID string       `json:"userId"`
	Region types.Region `json:"region"`
}

type historyRequest struct {
	UserID string `json:"userId"`
}

type replayRequest struct {
	SessionID string `json:"sessionId"`
}

type tipRequest struct {
	UserID string `json:"userId"`
}

type tipResponse struct {
	Tip string `json:"tip"`
}

type metricsResponse struct {
	Metrics types.Metrics `json:"metrics"`
}

type feedbackRequest struct {
	SessionID string `json:"sessionId"`
	Rating    int    `json:"rating"`
	Comment   string `json:"comment,omitempty"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
