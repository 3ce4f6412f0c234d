package session

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"aura/internal/backend"
	"aura/internal/transcript"
	"aura/internal/types"
)

func newTestController(t *testing.T, mock *backend.Mock) *Controller {
	t.Helper()
	store := transcript.NewStore(transcript.NewMemoryCapability(), zap.NewNop())
	return NewController(mock, store, NewRouter(nil), zap.NewNop())
}

func testUser() types.User {
	return types.User{
		ID:     "u1",
		Name:   "Sam",
		Age:    29,
		Region: types.RegionEU,
		Metrics: types.Metrics{
			Anxiety:    types.IntPtr(35),
			Depression: types.IntPtr(20),
			Stress:     types.IntPtr(50),
		},
	}
}

func scriptGreeting(mock *backend.Mock, sessionID string) {
	mock.GreetingFunc = func(ctx context.Context, req backend.GreetingRequest) (backend.GreetingResponse, error) {
		return backend.GreetingResponse{
			Agent:     types.AgentElara,
			Response:  "Good to see you.",
			SessionID: sessionID,
		}, nil
	}
}

func TestLoginValidation(t *testing.T) {
	mock := backend.NewMock()
	c := newTestController(t, mock)

	assert.Error(t, c.Login(context.Background(), "", "secret"))
	assert.Error(t, c.Login(context.Background(), "sam@example.com", " "))
	assert.Zero(t, mock.Calls("login"), "validation failures never reach the backend")
	assert.Equal(t, ModeLoggedOut, c.Mode())
}

func TestLoginFailureStaysLoggedOut(t *testing.T) {
	mock := backend.NewMock()
	mock.LoginFunc = func(ctx context.Context, email, password string) (backend.LoginResult, error) {
		return backend.LoginResult{}, errors.New("Invalid credentials")
	}
	c := newTestController(t, mock)

	err := c.Login(context.Background(), "sam@example.com", "wrong")
	require.Error(t, err)
	assert.Equal(t, ModeLoggedOut, c.Mode())
	assert.False(t, c.User().LoggedIn())
}

func TestLoginWithRecentScreeningEntersChat(t *testing.T) {
	mock := backend.NewMock()
	mock.LoginFunc = func(ctx context.Context, email, password string) (backend.LoginResult, error) {
		return backend.LoginResult{User: testUser(), HasRecentScreening: true}, nil
	}
	scriptGreeting(mock, "s-1")
	c := newTestController(t, mock)

	require.NoError(t, c.Login(context.Background(), "sam@example.com", "secret"))
	assert.Equal(t, ModeChatting, c.Mode())
	assert.Equal(t, "s-1", c.SessionID())
	assert.Equal(t, 1, mock.Calls("greeting"))
	assert.Zero(t, mock.Calls("screening"), "recent screening skips the questionnaire")
	require.Len(t, c.Transcript(), 1)
}

func TestLoginWithoutRecentScreeningStartsScreening(t *testing.T) {
	mock := backend.NewMock()
	mock.LoginFunc = func(ctx context.Context, email, password string) (backend.LoginResult, error) {
		return backend.LoginResult{User: testUser()}, nil
	}
	mock.ScreeningStepFunc = func(ctx context.Context, req backend.ScreeningRequest) (backend.ScreeningResponse, error) {
		assert.Nil(t, req.AnswerIndex, "the opening request carries no answer")
		return backend.ScreeningResponse{
			Question:        "How often have you felt down?",
			Options:         []string{"Not at all", "Several days", "Most days"},
			CurrentQuestion: 1,
			TotalQuestions:  10,
		}, nil
	}
	c := newTestController(t, mock)

	require.NoError(t, c.Login(context.Background(), "sam@example.com", "secret"))
	assert.Equal(t, ModeScreening, c.Mode())
	assert.Equal(t, 1, c.ScreeningProgress().CurrentQuestion)
	assert.Zero(t, mock.Calls("greeting"))
}

func TestLoginSingleFlight(t *testing.T) {
	release := make(chan struct{})
	mock := backend.NewMock()
	mock.LoginFunc = func(ctx context.Context, email, password string) (backend.LoginResult, error) {
		<-release
		return backend.LoginResult{User: testUser(), HasRecentScreening: true}, nil
	}
	scriptGreeting(mock, "s-1")
	c := newTestController(t, mock)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = c.Login(context.Background(), "sam@example.com", "secret")
	}()
	require.Eventually(t, func() bool { return mock.Calls("login") == 1 }, time.Second, time.Millisecond)

	err := c.Login(context.Background(), "sam@example.com", "secret")
	assert.ErrorIs(t, err, ErrBusy)

	close(release)
	<-done
	assert.Equal(t, 1, mock.Calls("login"))
}

func TestSignupValidation(t *testing.T) {
	mock := backend.NewMock()
	c := newTestController(t, mock)

	req := backend.SignupRequest{Name: "Sam", Email: "sam@example.com", Password: "secret", Age: 0}
	assert.Error(t, c.Signup(context.Background(), req))

	req.Age = 29
	req.Email = ""
	assert.Error(t, c.Signup(context.Background(), req))
	assert.Zero(t, mock.Calls("signup"))

	req.Email = "sam@example.com"
	assert.NoError(t, c.Signup(context.Background(), req))
	assert.Equal(t, ModeLoggedOut, c.Mode(), "signup routes back to login, never signs in")
}

func TestScreeningCompletionEntersChatWithGreeting(t *testing.T) {
	mock := backend.NewMock()
	mock.LoginFunc = func(ctx context.Context, email, password string) (backend.LoginResult, error) {
		u := testUser()
		u.Metrics = types.Metrics{}
		return backend.LoginResult{User: u}, nil
	}
	step := 0
	mock.ScreeningStepFunc = func(ctx context.Context, req backend.ScreeningRequest) (backend.ScreeningResponse, error) {
		step++
		if step == 1 {
			return backend.ScreeningResponse{Question: "Q1", Options: []string{"a", "b"}, CurrentQuestion: 1, TotalQuestions: 1}, nil
		}
		require.NotNil(t, req.AnswerIndex)
		assert.Equal(t, 1, *req.AnswerIndex)
		return backend.ScreeningResponse{
			Message:   "All done, thank you.",
			SessionID: "s-screen",
			Metrics:   &types.Metrics{Anxiety: types.IntPtr(60)},
		}, nil
	}
	scriptGreeting(mock, "s-live")
	c := newTestController(t, mock)

	require.NoError(t, c.Login(context.Background(), "sam@example.com", "secret"))
	require.Equal(t, ModeScreening, c.Mode())

	require.NoError(t, c.SubmitScreeningAnswer(context.Background(), types.IntPtr(1)))
	assert.Equal(t, ModeChatting, c.Mode())
	assert.Equal(t, 1, mock.Calls("greeting"))
	assert.Equal(t, "s-live", c.SessionID(), "the greeting's session id wins over the screening one")
	assert.Equal(t, 60, c.User().Metrics.DisplayAnxiety())
}

func TestScreeningCooldownEntersChatWithoutGreeting(t *testing.T) {
	mock := backend.NewMock()
	mock.LoginFunc = func(ctx context.Context, email, password string) (backend.LoginResult, error) {
		return backend.LoginResult{User: testUser()}, nil
	}
	mock.ScreeningStepFunc = func(ctx context.Context, req backend.ScreeningRequest) (backend.ScreeningResponse, error) {
		return backend.ScreeningResponse{
			Err:     "screening_cooldown",
			Message: "You completed a screening recently.",
		}, nil
	}
	c := newTestController(t, mock)

	require.NoError(t, c.Login(context.Background(), "sam@example.com", "secret"))
	assert.Equal(t, ModeChatting, c.Mode())
	assert.Zero(t, mock.Calls("greeting"), "cooldown resumes chat without a fresh greeting")
	assert.Equal(t, 35, c.User().Metrics.DisplayAnxiety(), "existing metrics are kept")
}

func TestSubmitScreeningAnswerOutsideScreening(t *testing.T) {
	c := newTestController(t, backend.NewMock())
	err := c.SubmitScreeningAnswer(context.Background(), types.IntPtr(0))
	assert.ErrorIs(t, err, ErrBadTransition)
}

func TestSendMessageRequiresChatting(t *testing.T) {
	mock := backend.NewMock()
	c := newTestController(t, mock)

	_, err := c.SendMessage(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrBadTransition)
	assert.Zero(t, mock.Calls("chat"))
}

func loginIntoChat(t *testing.T, mock *backend.Mock) *Controller {
	t.Helper()
	mock.LoginFunc = func(ctx context.Context, email, password string) (backend.LoginResult, error) {
		return backend.LoginResult{User: testUser(), HasRecentScreening: true}, nil
	}
	if mock.GreetingFunc == nil {
		scriptGreeting(mock, "s-1")
	}
	c := newTestController(t, mock)
	require.NoError(t, c.Login(context.Background(), "sam@example.com", "secret"))
	require.Equal(t, ModeChatting, c.Mode())
	return c
}

func TestSendMessageMergesMetrics(t *testing.T) {
	mock := backend.NewMock()
	mock.ChatFunc = func(ctx context.Context, req backend.ChatRequest) (backend.ChatResponse, error) {
		return backend.ChatResponse{
			Agent:     types.AgentElara,
			Response:  "That sounds hard.",
			SessionID: "s-1",
			Metrics:   &types.Metrics{Stress: types.IntPtr(70)},
		}, nil
	}
	c := loginIntoChat(t, mock)

	_, err := c.SendMessage(context.Background(), "rough day")
	require.NoError(t, err)
	u := c.User()
	assert.Equal(t, 70, u.Metrics.DisplayStress())
	assert.Equal(t, 35, u.Metrics.DisplayAnxiety(), "absent fields stay untouched")
}

func TestResourceRoundTrip(t *testing.T) {
	mock := backend.NewMock()
	mock.ResourceFunc = func(ctx context.Context, req backend.ResourceRequest) (types.Resource, error) {
		assert.Equal(t, "breathing", req.Query)
		return types.Resource{Title: "Box breathing", Steps: []string{"Inhale", "Hold", "Exhale"}}, nil
	}
	c := loginIntoChat(t, mock)

	require.NoError(t, c.OpenResource(context.Background(), "breathing"))
	assert.Equal(t, ModeViewingResource, c.Mode())
	require.NotNil(t, c.Resource())
	assert.Equal(t, "Box breathing", c.Resource().Title)

	require.NoError(t, c.CloseResource(context.Background()))
	assert.Equal(t, ModeChatting, c.Mode())
	assert.Nil(t, c.Resource())
	require.Len(t, c.Transcript(), 1, "the greeting is restored from the persisted scope")
}

func TestResourceLookupFailureStaysInChat(t *testing.T) {
	mock := backend.NewMock()
	mock.ResourceFunc = func(ctx context.Context, req backend.ResourceRequest) (types.Resource, error) {
		return types.Resource{}, errors.New("not found")
	}
	c := loginIntoChat(t, mock)

	require.Error(t, c.OpenResource(context.Background(), "anything"))
	assert.Equal(t, ModeChatting, c.Mode())
	assert.Nil(t, c.Resource())
}

func TestResourceFromLoggedOutRejected(t *testing.T) {
	c := newTestController(t, backend.NewMock())
	err := c.OpenResource(context.Background(), "breathing")
	assert.ErrorIs(t, err, ErrBadTransition)
}

func TestHistoryReplayAdoptsSession(t *testing.T) {
	mock := backend.NewMock()
	mock.SessionReplayFunc = func(ctx context.Context, sessionID string) ([]types.ReplayTurn, error) {
		assert.Equal(t, "s-old", sessionID)
		return []types.ReplayTurn{{User: "hi", AI: "hello"}}, nil
	}
	c := loginIntoChat(t, mock)

	require.NoError(t, c.OpenPastSession(context.Background(), "s-old"))
	assert.Equal(t, ModeViewingHistory, c.Mode())
	sid, turns := c.Replay()
	assert.Equal(t, "s-old", sid)
	require.Len(t, turns, 1)
	assert.Equal(t, "s-old", c.SessionID(), "reading an old conversation resumes it")

	require.NoError(t, c.ReturnToChat(context.Background()))
	assert.Equal(t, ModeChatting, c.Mode())
	assert.Equal(t, 1, mock.Calls("greeting"), "returning never greets")
}

func TestHistoryReplayFailureStaysInChat(t *testing.T) {
	mock := backend.NewMock()
	mock.SessionReplayFunc = func(ctx context.Context, sessionID string) ([]types.ReplayTurn, error) {
		return nil, errors.New("boom")
	}
	c := loginIntoChat(t, mock)

	require.Error(t, c.OpenPastSession(context.Background(), "s-old"))
	assert.Equal(t, ModeChatting, c.Mode())
	assert.Equal(t, "s-1", c.SessionID())
}

func TestRefreshSidebarDegradesPerPanel(t *testing.T) {
	mock := backend.NewMock()
	mock.HistoryListFunc = func(ctx context.Context, userID string) ([]types.HistoryEntry, error) {
		return nil, errors.New("history down")
	}
	mock.DailyTipFunc = func(ctx context.Context, userID string) (string, error) {
		return "Drink some water.", nil
	}
	c := loginIntoChat(t, mock)

	sb := c.RefreshSidebar(context.Background())
	assert.True(t, sb.HistoryErr)
	assert.False(t, sb.TipErr)
	assert.Equal(t, "Drink some water.", sb.Tip)
	assert.Equal(t, sb, c.Sidebar())
}

func TestRefreshMetrics(t *testing.T) {
	mock := backend.NewMock()
	mock.MetricsFunc = func(ctx context.Context, userID string) (types.Metrics, error) {
		return types.Metrics{Depression: types.IntPtr(15)}, nil
	}
	c := loginIntoChat(t, mock)

	m, err := c.RefreshMetrics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 15, m.DisplayDepression())
	assert.Equal(t, 35, m.DisplayAnxiety())
}

func TestSendFeedbackRequiresSession(t *testing.T) {
	mock := backend.NewMock()
	c := newTestController(t, mock)

	err := c.SendFeedback(context.Background(), 5, "great")
	assert.ErrorIs(t, err, ErrNotLoggedIn)

	c = loginIntoChat(t, mock)
	var got types.Feedback
	mock.SendFeedbackFunc = func(ctx context.Context, fb types.Feedback) error {
		got = fb
		return nil
	}
	require.NoError(t, c.SendFeedback(context.Background(), 4, "helpful"))
	assert.Equal(t, "s-1", got.SessionID)
	assert.Equal(t, 4, got.Rating)
}

func TestLogoutIsIdempotentAndResetsEverything(t *testing.T) {
	mock := backend.NewMock()
	c := loginIntoChat(t, mock)
	c.Router().SetPrimary(types.AgentVero)
	c.Router().MarkBackground(types.AgentOrion)

	c.Logout()
	assert.Equal(t, ModeLoggedOut, c.Mode())
	assert.False(t, c.User().LoggedIn())
	assert.Empty(t, c.Transcript())
	assert.Equal(t, types.AgentElara, c.Router().Primary())
	assert.Empty(t, c.Router().BackgroundActive())

	c.Logout()
	assert.Equal(t, ModeLoggedOut, c.Mode())
}

func TestStartNewSessionGreetsAgain(t *testing.T) {
	mock := backend.NewMock()
	n := 0
	mock.GreetingFunc = func(ctx context.Context, req backend.GreetingRequest) (backend.GreetingResponse, error) {
		n++
		return backend.GreetingResponse{
			Agent:     types.AgentElara,
			Response:  "Fresh start.",
			SessionID: fmt.Sprintf("s-%d", n),
		}, nil
	}
	c := loginIntoChat(t, mock)
	first := c.SessionID()

	require.NoError(t, c.StartNewSession(context.Background()))
	assert.Equal(t, 2, mock.Calls("greeting"))
	assert.NotEqual(t, first, c.SessionID())
	require.Len(t, c.Transcript(), 1, "the old transcript is gone from view")
}

func TestModeString(t *testing.T) {
	assert.Equal(t, "logged-out", ModeLoggedOut.String())
	assert.Equal(t, "screening", ModeScreening.String())
	assert.Equal(t, "chatting", ModeChatting.String())
	assert.Equal(t, "viewing-resource", ModeViewingResource.String())
	assert.Equal(t, "viewing-history", ModeViewingHistory.String())
}

func TestTransitionTableIsExhaustive(t *testing.T) {
	modes := []Mode{ModeLoggedOut, ModeScreening, ModeChatting, ModeViewingResource, ModeViewingHistory}

	allowed := func(from, to Mode) bool {
		if to == ModeLoggedOut {
			return true
		}
		for _, m := range allowedTransitions[from] {
			if m == to {
				return true
			}
		}
		return false
	}

	for _, from := range modes {
		for _, to := range modes {
			t.Run(fmt.Sprintf("%s_to_%s", from, to), func(t *testing.T) {
				c := newTestController(t, backend.NewMock())
				c.mode = from
				err := c.transitionLocked(to)
				if allowed(from, to) {
					require.NoError(t, err)
					assert.Equal(t, to, c.mode)
				} else {
					require.ErrorIs(t, err, ErrBadTransition)
					assert.Equal(t, from, c.mode)
				}
			})
		}
	}
}
