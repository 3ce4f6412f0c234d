package backend

import (
	"context"
	"sync"

	"aura/internal/types"
)

// Mock is a scriptable API implementation for tests. Each operation delegates
// to its function field when set and returns the zero value otherwise. Call
// counts are tracked so tests can assert single-flight behavior.
type Mock struct {
	mu    sync.Mutex
	calls map[string]int

	LoginFunc                func(ctx context.Context, email, password string) (LoginResult, error)
	SignupFunc               func(ctx context.Context, req SignupRequest) error
	MetricsFunc              func(ctx context.Context, userID string) (types.Metrics, error)
	ScreeningStepFunc        func(ctx context.Context, req ScreeningRequest) (ScreeningResponse, error)
	ScreeningEligibilityFunc func(ctx context.Context, userID string) (Eligibility, error)
	GreetingFunc             func(ctx context.Context, req GreetingRequest) (GreetingResponse, error)
	ChatFunc                 func(ctx context.Context, req ChatRequest) (ChatResponse, error)
	HistoryListFunc          func(ctx context.Context, userID string) ([]types.HistoryEntry, error)
	SessionReplayFunc        func(ctx context.Context, sessionID string) ([]types.ReplayTurn, error)
	ResourceFunc             func(ctx context.Context, req ResourceRequest) (types.Resource, error)
	DailyTipFunc             func(ctx context.Context, userID string) (string, error)
	SendFeedbackFunc         func(ctx context.Context, fb types.Feedback) error
}

// NewMock returns an empty mock.
func NewMock() *Mock {
	return &Mock{calls: make(map[string]int)}
}

func (m *Mock) record(op string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[op]++
}

// Calls returns how many times op was invoked.
func (m *Mock) Calls(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

func (m *Mock) Login(ctx context.Context, email, password string) (LoginResult, error) {
	m.record("login")
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, email, password)
	}
	return LoginResult{}, nil
}

func (m *Mock) Signup(ctx context.Context, req SignupRequest) error {
	m.record("signup")
	if m.SignupFunc != nil {
		return m.SignupFunc(ctx, req)
	}
	return nil
}

func (m *Mock) Metrics(ctx context.Context, userID string) (types.Metrics, error) {
	m.record("metrics")
	if m.MetricsFunc != nil {
		return m.MetricsFunc(ctx, userID)
	}
	return types.Metrics{}, nil
}

func (m *Mock) ScreeningStep(ctx context.Context, req ScreeningRequest) (ScreeningResponse, error) {
	m.record("screening")
	if m.ScreeningStepFunc != nil {
		return m.ScreeningStepFunc(ctx, req)
	}
	return ScreeningResponse{}, nil
}

func (m *Mock) ScreeningEligibility(ctx context.Context, userID string) (Eligibility, error) {
	m.record("eligibility")
	if m.ScreeningEligibilityFunc != nil {
		return m.ScreeningEligibilityFunc(ctx, userID)
	}
	return Eligibility{Eligible: true}, nil
}

func (m *Mock) Greeting(ctx context.Context, req GreetingRequest) (GreetingResponse, error) {
	m.record("greeting")
	if m.GreetingFunc != nil {
		return m.GreetingFunc(ctx, req)
	}
	return GreetingResponse{}, nil
}

func (m *Mock) Chat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	m.record("chat")
	if m.ChatFunc != nil {
		return m.ChatFunc(ctx, req)
	}
	return ChatResponse{}, nil
}

func (m *Mock) HistoryList(ctx context.Context, userID string) ([]types.HistoryEntry, error) {
	m.record("history")
	if m.HistoryListFunc != nil {
		return m.HistoryListFunc(ctx, userID)
	}
	return nil, nil
}

func (m *Mock) SessionReplay(ctx context.Context, sessionID string) ([]types.ReplayTurn, error) {
	m.record("replay")
	if m.SessionReplayFunc != nil {
		return m.SessionReplayFunc(ctx, sessionID)
	}
	return nil, nil
}

func (m *Mock) Resource(ctx context.Context, req ResourceRequest) (types.Resource, error) {
	m.record("resource")
	if m.ResourceFunc != nil {
		return m.ResourceFunc(ctx, req)
	}
	return types.Resource{}, nil
}

func (m *Mock) DailyTip(ctx context.Context, userID string) (string, error) {
	m.record("tip")
	if m.DailyTipFunc != nil {
		return m.DailyTipFunc(ctx, userID)
	}
	return "", nil
}

func (m *Mock) SendFeedback(ctx context.Context, fb types.Feedback) error {
	m.record("feedback")
	if m.SendFeedbackFunc != nil {
		return m.SendFeedbackFunc(ctx, fb)
	}
	return nil
}

var _ API = (*Mock)(nil)
