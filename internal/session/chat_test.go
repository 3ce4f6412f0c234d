package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"aura/internal/backend"
	"aura/internal/transcript"
	"aura/internal/types"
)

func newTestChat(t *testing.T, api backend.API) (*Chat, *transcript.Store) {
	t.Helper()
	store := transcript.NewStore(transcript.NewMemoryCapability(), zap.NewNop())
	chat := NewChat(api, store, NewRouter(nil), NewGuards(), zap.NewNop(), "u1", types.RegionEU)
	chat.orionWindow = 10 * time.Millisecond
	chat.aegisWindow = 10 * time.Millisecond
	return chat, store
}

func TestChatStartNewGreetsOnce(t *testing.T) {
	mock := backend.NewMock()
	mock.GreetingFunc = func(ctx context.Context, req backend.GreetingRequest) (backend.GreetingResponse, error) {
		assert.Equal(t, "u1", req.UserID)
		return backend.GreetingResponse{
			Agent:     types.AgentElara,
			Response:  "Welcome back.",
			SessionID: "s-1",
		}, nil
	}
	chat, _ := newTestChat(t, mock)

	require.NoError(t, chat.Start(context.Background(), true, "", types.Metrics{}))
	assert.Equal(t, 1, mock.Calls("greeting"))
	assert.Equal(t, "s-1", chat.SessionID())

	msgs := chat.Transcript()
	require.Len(t, msgs, 1)
	assert.Equal(t, "Welcome back.", msgs[0].Text)
	assert.Equal(t, types.AgentElara, msgs[0].Speaker)
}

func TestChatStartConcurrentGreetingSingleFlight(t *testing.T) {
	release := make(chan struct{})
	mock := backend.NewMock()
	mock.GreetingFunc = func(ctx context.Context, req backend.GreetingRequest) (backend.GreetingResponse, error) {
		<-release
		return backend.GreetingResponse{SessionID: "s-1", Agent: types.AgentElara, Response: "hi"}, nil
	}
	chat, _ := newTestChat(t, mock)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = chat.Start(context.Background(), true, "", types.Metrics{})
	}()

	require.Eventually(t, func() bool { return mock.Calls("greeting") == 1 }, time.Second, time.Millisecond)

	// A second start while the greeting is in flight must not fire another
	// request.
	require.NoError(t, chat.Start(context.Background(), true, "", types.Metrics{}))
	assert.Equal(t, 1, mock.Calls("greeting"))

	close(release)
	<-done
	assert.Equal(t, 1, mock.Calls("greeting"))
}

func TestChatGreetingDuplicateSuppressed(t *testing.T) {
	mock := backend.NewMock()
	mock.GreetingFunc = func(ctx context.Context, req backend.GreetingRequest) (backend.GreetingResponse, error) {
		return backend.GreetingResponse{SessionID: "s-dup", Duplicate: true}, nil
	}
	chat, _ := newTestChat(t, mock)

	require.NoError(t, chat.Start(context.Background(), true, "", types.Metrics{}))
	assert.Equal(t, "s-dup", chat.SessionID(), "session id is adopted even when the bubble is suppressed")
	assert.Empty(t, chat.Transcript())
}

func TestChatGreetingFailureShowsFallback(t *testing.T) {
	mock := backend.NewMock()
	mock.GreetingFunc = func(ctx context.Context, req backend.GreetingRequest) (backend.GreetingResponse, error) {
		return backend.GreetingResponse{}, errors.New("backend down")
	}
	chat, _ := newTestChat(t, mock)

	require.NoError(t, chat.Start(context.Background(), true, "", types.Metrics{}))

	msgs := chat.Transcript()
	require.Len(t, msgs, 1)
	assert.Equal(t, GreetingFallback, msgs[0].Text)
	assert.Equal(t, types.AgentElara, msgs[0].Speaker)
}

func TestChatSendRejectsEmpty(t *testing.T) {
	mock := backend.NewMock()
	chat, _ := newTestChat(t, mock)

	_, err := chat.Send(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyMessage)
	assert.Zero(t, mock.Calls("chat"))
}

func TestChatSendRejectsWhileInFlight(t *testing.T) {
	release := make(chan struct{})
	mock := backend.NewMock()
	mock.ChatFunc = func(ctx context.Context, req backend.ChatRequest) (backend.ChatResponse, error) {
		<-release
		return backend.ChatResponse{SessionID: "s-1", Agent: types.AgentElara, Response: "ok"}, nil
	}
	chat, _ := newTestChat(t, mock)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = chat.Send(context.Background(), "first")
	}()

	require.Eventually(t, chat.Sending, time.Second, time.Millisecond)
	_, err := chat.Send(context.Background(), "second")
	assert.ErrorIs(t, err, ErrBusy)

	close(release)
	<-done
	assert.Equal(t, 1, mock.Calls("chat"))
	assert.False(t, chat.Sending(), "input re-enables after the send settles")
}

func TestChatSendSuccess(t *testing.T) {
	mock := backend.NewMock()
	mock.ChatFunc = func(ctx context.Context, req backend.ChatRequest) (backend.ChatResponse, error) {
		assert.Equal(t, "u1", req.UserID)
		assert.Equal(t, "hello", req.Message)
		assert.Equal(t, types.RegionEU, req.Region)
		return backend.ChatResponse{
			Agent:     types.AgentVero,
			Response:  "Here is something that may help.",
			SessionID: "s-2",
			Metrics:   &types.Metrics{Anxiety: types.IntPtr(40)},
		}, nil
	}
	chat, store := newTestChat(t, mock)

	res, err := chat.Send(context.Background(), "hello")
	require.NoError(t, err)
	assert.False(t, res.Stale)
	assert.Equal(t, types.AgentVero, res.Agent)
	require.NotNil(t, res.Metrics)

	assert.Equal(t, "s-2", chat.SessionID(), "session rotates to the id the backend returned")
	assert.Equal(t, types.AgentVero, chat.router.Primary())
	assert.False(t, chat.router.IsBackgroundActive(types.AgentAegis), "a non-Aegis responder never flags Aegis, metrics or not")

	msgs := chat.Transcript()
	require.Len(t, msgs, 2)
	assert.Equal(t, types.SpeakerUser, msgs[0].Speaker)
	assert.Equal(t, types.AgentVero, msgs[1].Speaker)

	saved, ok := store.Load(context.Background(), "u1", "s-2")
	require.True(t, ok, "transcript persists under the rotated scope")
	assert.Len(t, saved, 2)
}

func TestChatSendAegisResponder(t *testing.T) {
	mock := backend.NewMock()
	mock.ChatFunc = func(ctx context.Context, req backend.ChatRequest) (backend.ChatResponse, error) {
		// Crisis responses name Aegis as the speaker and carry neither
		// metrics nor a session id.
		return backend.ChatResponse{Agent: types.AgentAegis, Response: "help is available"}, nil
	}
	chat, _ := newTestChat(t, mock)
	chat.sessionID = "s-live"
	chat.aegisWindow = time.Minute

	res, err := chat.Send(context.Background(), "I can't cope")
	require.NoError(t, err)
	assert.Equal(t, types.AgentAegis, res.Agent)

	assert.Equal(t, types.AgentAegis, chat.router.Primary())
	assert.True(t, chat.router.IsBackgroundActive(types.AgentAegis), "the crisis agent shows as working after it responds")

	chat.aegisWindow = 10 * time.Millisecond
	chat.router.FlagTransient(types.AgentAegis, chat.aegisWindow)
	assert.Eventually(t, func() bool {
		return !chat.router.IsBackgroundActive(types.AgentAegis)
	}, time.Second, time.Millisecond, "the crisis indicator clears on its own")
}

func TestChatSendKeepsSessionWhenResponseOmitsID(t *testing.T) {
	mock := backend.NewMock()
	mock.ChatFunc = func(ctx context.Context, req backend.ChatRequest) (backend.ChatResponse, error) {
		assert.Equal(t, "s-live", req.SessionID)
		return backend.ChatResponse{Agent: types.AgentAegis, Response: "help is available"}, nil
	}
	chat, store := newTestChat(t, mock)
	chat.sessionID = "s-live"

	_, err := chat.Send(context.Background(), "I can't cope")
	require.NoError(t, err)
	assert.Equal(t, "s-live", chat.SessionID(), "a response without a session id leaves the current one alone")

	saved, ok := store.Load(context.Background(), "u1", "s-live")
	require.True(t, ok, "the transcript stays under the live scope")
	assert.Len(t, saved, 2)
}

func TestChatSendFailureKeepsUserMessageAndFallsBack(t *testing.T) {
	mock := backend.NewMock()
	mock.ChatFunc = func(ctx context.Context, req backend.ChatRequest) (backend.ChatResponse, error) {
		return backend.ChatResponse{}, errors.New("connection refused")
	}
	chat, _ := newTestChat(t, mock)
	chat.router.MarkBackground(types.AgentAegis)

	_, err := chat.Send(context.Background(), "are you there")
	require.Error(t, err)

	msgs := chat.Transcript()
	require.Len(t, msgs, 2)
	assert.Equal(t, "are you there", msgs[0].Text, "the user's message survives the failure")
	assert.Equal(t, ConnectFallback, msgs[1].Text)
	assert.Empty(t, chat.router.BackgroundActive(), "stale busy indicators are cleared on failure")
	assert.False(t, chat.Sending())
}

func TestChatStaleResponseDiscarded(t *testing.T) {
	release := make(chan struct{})
	mock := backend.NewMock()
	mock.ChatFunc = func(ctx context.Context, req backend.ChatRequest) (backend.ChatResponse, error) {
		<-release
		return backend.ChatResponse{SessionID: "s-old", Agent: types.AgentElara, Response: "late"}, nil
	}
	chat, _ := newTestChat(t, mock)

	results := make(chan SendResult, 1)
	go func() {
		res, _ := chat.Send(context.Background(), "slow one")
		results <- res
	}()
	require.Eventually(t, chat.Sending, time.Second, time.Millisecond)

	// The session goes away while the request is still in flight.
	chat.Invalidate()
	close(release)

	res := <-results
	assert.True(t, res.Stale)
	assert.NotEqual(t, "s-old", chat.SessionID())
	for _, m := range chat.Transcript() {
		assert.NotEqual(t, "late", m.Text, "a stale response must never reach the transcript")
	}
}

func TestChatStartNonNewRestoresTranscript(t *testing.T) {
	mock := backend.NewMock()
	chat, store := newTestChat(t, mock)
	chat.AdoptSession("s-9")

	want := []types.ChatMessage{
		{Text: "hi", Speaker: types.SpeakerUser},
		{Text: "hello", Speaker: types.AgentElara},
	}
	store.Save(context.Background(), "u1", "s-9", want)

	require.NoError(t, chat.Start(context.Background(), false, "", types.Metrics{}))
	assert.Equal(t, want, chat.Transcript())
	assert.Zero(t, mock.Calls("greeting"), "re-entering a session never greets")
}

func TestChatOrionFlagClearsAfterWindow(t *testing.T) {
	mock := backend.NewMock()
	mock.ChatFunc = func(ctx context.Context, req backend.ChatRequest) (backend.ChatResponse, error) {
		return backend.ChatResponse{SessionID: "s-1", Agent: types.AgentElara, Response: "noted"}, nil
	}
	chat, _ := newTestChat(t, mock)

	_, err := chat.Send(context.Background(), "remember this")
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return !chat.router.IsBackgroundActive(types.AgentOrion)
	}, time.Second, time.Millisecond, "the memory indicator clears on its own")
}
