package session

import (
	"context"

	"aura/internal/backend"
	"aura/internal/types"
)

// ============================================================================
// SCREENING FLOW
// ============================================================================
// The screening agent drives a fixed question sequence. Each answer submits
// the chosen option index and yields either the next question, a completion
// payload carrying the initial wellness metrics, or a cooldown rejection
// when the user screened too recently.

type ScreeningOutcome int

const (
	ScreeningContinue ScreeningOutcome = iota
	ScreeningComplete
	ScreeningCooldown
)

type ScreeningResult struct {
	Outcome  ScreeningOutcome
	Progress types.ScreeningProgress
	Message  string
	// SessionID and Metrics are set on completion only.
	SessionID string
	Metrics   *types.Metrics
}

type Flow struct {
	api      backend.API
	userID   string
	userAge  int
	progress types.ScreeningProgress
}

func NewFlow(api backend.API, userID string, userAge int) *Flow {
	return &Flow{api: api, userID: userID, userAge: userAge}
}

// Start requests the first question. It is SubmitAnswer with no answer: the
// question server treats a null index as "begin".
func (f *Flow) Start(ctx context.Context) (ScreeningResult, error) {
	return f.SubmitAnswer(ctx, nil)
}

// SubmitAnswer sends the chosen option index (nil on the opening request)
// and interprets the response. Transport failures leave the recorded
// progress untouched so the caller can retry the same step.
func (f *Flow) SubmitAnswer(ctx context.Context, answerIndex *int) (ScreeningResult, error) {
	resp, err := f.api.ScreeningStep(ctx, backend.ScreeningRequest{
		UserID:      f.userID,
		UserAge:     f.userAge,
		AnswerIndex: answerIndex,
	})
	if err != nil {
		return ScreeningResult{}, err
	}

	switch {
	case resp.IsCooldown():
		return ScreeningResult{Outcome: ScreeningCooldown, Message: resp.Message}, nil
	case resp.IsComplete():
		return ScreeningResult{
			Outcome:   ScreeningComplete,
			Message:   resp.Message,
			SessionID: resp.SessionID,
			Metrics:   resp.Metrics,
		}, nil
	default:
		f.progress = types.ScreeningProgress{
			CurrentQuestion: resp.CurrentQuestion,
			TotalQuestions:  resp.TotalQuestions,
			QuestionText:    resp.Question,
			Options:         resp.Options,
		}
		return ScreeningResult{Outcome: ScreeningContinue, Progress: f.progress}, nil
	}
}

// Progress returns the most recently received question state.
func (f *Flow) Progress() types.ScreeningProgress {
	return f.progress
}
