package controller_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recava/recava-server/internal/widget/controller"
	"github.com/recava/recava-server/internal/widget/conversation"
	"github.com/recava/recava-server/internal/widget/environment"
	"github.com/recava/recava-server/internal/widget/orchestrator"
	"github.com/recava/recava-server/internal/widget/session"
)

// recorderRenderer records every display call for assertions.
type recorderRenderer struct {
	mu sync.Mutex

	userMessages      []string
	assistantHTML     []string
	systemMessages    []string
	statusLines       []string
	typingShown       int
	typingRemoved     int
	verifyBanners     int
	placeholders      []string
	inputEnabled      []bool
	replayTransitions []bool
}

func (r *recorderRenderer) AppendUserMessage(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.userMessages = append(r.userMessages, text)
}

func (r *recorderRenderer) AppendAssistantHTML(html string, _ []conversation.Citation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.assistantHTML = append(r.assistantHTML, html)
}

func (r *recorderRenderer) AppendSystemMessage(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.systemMessages = append(r.systemMessages, text)
}

func (r *recorderRenderer) ShowTypingIndicator() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.typingShown++
}

func (r *recorderRenderer) RemoveTypingIndicator() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.typingRemoved++
}

func (r *recorderRenderer) ShowStatus(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statusLines = append(r.statusLines, text)
}

func (r *recorderRenderer) ShowVerifyBanner() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.verifyBanners++
}

func (r *recorderRenderer) SetInputEnabled(enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inputEnabled = append(r.inputEnabled, enabled)
}

func (r *recorderRenderer) SetPlaceholder(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.placeholders = append(r.placeholders, text)
}

func (r *recorderRenderer) SetReplayMode(instant bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.replayTransitions = append(r.replayTransitions, instant)
}

// MockChat is a mock implementation of the controller's chat surface.
type MockChat struct {
	SendMessageFunc         func(ctx context.Context, endpoints environment.Endpoints, token string, mode conversation.Mode, text, threadID string) (*orchestrator.ChatReply, error)
	RecentConversationsFunc func(ctx context.Context, endpoints environment.Endpoints, token string, limit int) ([]conversation.Summary, error)
	ConversationThreadFunc  func(ctx context.Context, endpoints environment.Endpoints, token, threadID string) (*orchestrator.ThreadPayload, error)

	mu          sync.Mutex
	sendCalls   int
	threadCalls int
}

func (m *MockChat) SendMessage(ctx context.Context, endpoints environment.Endpoints, token string, mode conversation.Mode, text, threadID string) (*orchestrator.ChatReply, error) {
	m.mu.Lock()
	m.sendCalls++
	m.mu.Unlock()
	if m.SendMessageFunc != nil {
		return m.SendMessageFunc(ctx, endpoints, token, mode, text, threadID)
	}
	return &orchestrator.ChatReply{Response: "ok"}, nil
}

func (m *MockChat) RecentConversations(ctx context.Context, endpoints environment.Endpoints, token string, limit int) ([]conversation.Summary, error) {
	if m.RecentConversationsFunc != nil {
		return m.RecentConversationsFunc(ctx, endpoints, token, limit)
	}
	return nil, nil
}

func (m *MockChat) ConversationThread(ctx context.Context, endpoints environment.Endpoints, token, threadID string) (*orchestrator.ThreadPayload, error) {
	m.mu.Lock()
	m.threadCalls++
	m.mu.Unlock()
	if m.ConversationThreadFunc != nil {
		return m.ConversationThreadFunc(ctx, endpoints, token, threadID)
	}
	return &orchestrator.ThreadPayload{ThreadID: threadID}, nil
}

func (m *MockChat) SendCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sendCalls
}

func (m *MockChat) ThreadCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.threadCalls
}

type staticEnv struct{ endpoints environment.Endpoints }

func (e staticEnv) Resolve(context.Context) environment.Endpoints { return e.endpoints }

type tokenFunc func(ctx context.Context) (string, error)

func (f tokenFunc) VerifiedIDToken(ctx context.Context) (string, error) { return f(ctx) }

func verifiedToken() tokenFunc {
	return func(context.Context) (string, error) { return "tok", nil }
}

type fixture struct {
	renderer *recorderRenderer
	chat     *MockChat
	store    *conversation.Store
	ctrl     *controller.Controller
}

func newFixture(tokens controller.TokenSource, chat *MockChat) *fixture {
	renderer := &recorderRenderer{}
	store := conversation.NewStore()
	ctrl := controller.New(renderer, tokens, chat, staticEnv{}, store, zerolog.Nop())
	return &fixture{renderer: renderer, chat: chat, store: store, ctrl: ctrl}
}

func TestSendMessageEmptyInputIsNoOp(t *testing.T) {
	f := newFixture(verifiedToken(), &MockChat{})
	f.ctrl.SelectMode(conversation.ModeAdvisor)

	f.ctrl.SendMessage(context.Background(), "   ")

	assert.Empty(t, f.renderer.userMessages)
	assert.Empty(t, f.renderer.systemMessages)
	assert.Equal(t, 0, f.chat.SendCalls())
}

func TestSendMessageWithoutModeShowsInstruction(t *testing.T) {
	f := newFixture(verifiedToken(), &MockChat{})

	f.ctrl.SendMessage(context.Background(), "Hola")

	require.Len(t, f.renderer.systemMessages, 1)
	assert.Equal(t, "Elige primero Modo Asesor o Modo Auditor.", f.renderer.systemMessages[0])
	assert.Empty(t, f.renderer.userMessages)
	assert.Equal(t, 0, f.chat.SendCalls())
}

func TestSendMessageUnverifiedShowsBanner(t *testing.T) {
	tokens := tokenFunc(func(context.Context) (string, error) {
		return "", session.ErrEmailNotVerified
	})
	f := newFixture(tokens, &MockChat{})
	f.ctrl.SelectMode(conversation.ModeAdvisor)

	f.ctrl.SendMessage(context.Background(), "Hola")

	require.Len(t, f.renderer.systemMessages, 1)
	assert.Equal(t, session.ErrEmailNotVerified.Error(), f.renderer.systemMessages[0])
	assert.Equal(t, 1, f.renderer.verifyBanners)
	assert.Equal(t, 0, f.chat.SendCalls())
}

func TestSendMessageSuccessRoundTrip(t *testing.T) {
	chat := &MockChat{
		SendMessageFunc: func(_ context.Context, _ environment.Endpoints, _ string, _ conversation.Mode, text, threadID string) (*orchestrator.ChatReply, error) {
			assert.Equal(t, "Hola", text)
			assert.Empty(t, threadID)
			return &orchestrator.ChatReply{Response: "**Bienvenido** 【1:0†source】", ThreadID: "t1"}, nil
		},
	}
	f := newFixture(verifiedToken(), chat)
	f.ctrl.SelectMode(conversation.ModeAdvisor)

	f.ctrl.SendMessage(context.Background(), "Hola")

	require.Len(t, f.renderer.userMessages, 1)
	assert.Equal(t, "Hola", f.renderer.userMessages[0])
	assert.Equal(t, 1, f.renderer.typingShown)
	assert.Equal(t, 1, f.renderer.typingRemoved)

	// One welcome bubble and one reply, markdown rendered, markers gone.
	require.Len(t, f.renderer.assistantHTML, 2)
	reply := f.renderer.assistantHTML[1]
	assert.Contains(t, reply, "<strong>Bienvenido</strong>")
	assert.NotContains(t, reply, "†source")

	assert.Equal(t, "t1", f.ctrl.ThreadID())

	cached, ok := f.store.Get("t1")
	require.True(t, ok)
	assert.Equal(t, "chat_assistant", cached.EndpointSource)
	require.Len(t, cached.Messages, 2)
	assert.Equal(t, conversation.RoleUser, cached.Messages[0].Role)
	assert.Equal(t, "**Bienvenido**", cached.Messages[1].Text)
}

func TestSendMessageThreadIDIsSticky(t *testing.T) {
	var threadIDs []string
	chat := &MockChat{
		SendMessageFunc: func(_ context.Context, _ environment.Endpoints, _ string, _ conversation.Mode, _, threadID string) (*orchestrator.ChatReply, error) {
			threadIDs = append(threadIDs, threadID)
			// Later replies omit the thread id; the first one sticks.
			if threadID == "" {
				return &orchestrator.ChatReply{Response: "Bienvenido", ThreadID: "t1"}, nil
			}
			return &orchestrator.ChatReply{Response: "sigo aquí"}, nil
		},
	}
	f := newFixture(verifiedToken(), chat)
	f.ctrl.SelectMode(conversation.ModeAdvisor)

	f.ctrl.SendMessage(context.Background(), "Hola")
	f.ctrl.SendMessage(context.Background(), "¿Y ahora?")
	f.ctrl.SendMessage(context.Background(), "Sigue")

	assert.Equal(t, []string{"", "t1", "t1"}, threadIDs)
	assert.Equal(t, "t1", f.ctrl.ThreadID())
}

func TestModeSwitchStartsNewThread(t *testing.T) {
	var threadIDs []string
	chat := &MockChat{
		SendMessageFunc: func(_ context.Context, _ environment.Endpoints, _ string, mode conversation.Mode, _, threadID string) (*orchestrator.ChatReply, error) {
			threadIDs = append(threadIDs, threadID)
			return &orchestrator.ChatReply{Response: "ok", ThreadID: "t-" + string(mode)}, nil
		},
	}
	f := newFixture(verifiedToken(), chat)

	f.ctrl.SelectMode(conversation.ModeAdvisor)
	f.ctrl.SendMessage(context.Background(), "Hola")
	require.Equal(t, "t-advisor", f.ctrl.ThreadID())

	f.ctrl.SelectMode(conversation.ModeAuditor)
	assert.Empty(t, f.ctrl.ThreadID())
	assert.Empty(t, f.ctrl.Messages())

	f.ctrl.SendMessage(context.Background(), "Empecemos")
	assert.Equal(t, []string{"", ""}, threadIDs)
}

func TestSendMessageServerErrorShowsOneSystemMessage(t *testing.T) {
	chat := &MockChat{
		SendMessageFunc: func(context.Context, environment.Endpoints, string, conversation.Mode, string, string) (*orchestrator.ChatReply, error) {
			return nil, &orchestrator.APIError{StatusCode: 500, Message: "internal"}
		},
	}
	f := newFixture(verifiedToken(), chat)
	f.ctrl.SelectMode(conversation.ModeAuditor)

	f.ctrl.SendMessage(context.Background(), "Hola")

	// The optimistic user bubble stays; exactly one error message follows.
	require.Len(t, f.renderer.userMessages, 1)
	require.Len(t, f.renderer.systemMessages, 1)
	assert.Equal(t, "Error del servidor: internal.", f.renderer.systemMessages[0])
	assert.Equal(t, 1, f.renderer.typingShown)
	assert.Equal(t, 1, f.renderer.typingRemoved)
}

func TestSendMessageConnectionFailure(t *testing.T) {
	chat := &MockChat{
		SendMessageFunc: func(context.Context, environment.Endpoints, string, conversation.Mode, string, string) (*orchestrator.ChatReply, error) {
			return nil, errors.New("dial tcp: connection refused")
		},
	}
	f := newFixture(verifiedToken(), chat)
	f.ctrl.SelectMode(conversation.ModeAdvisor)

	f.ctrl.SendMessage(context.Background(), "Hola")

	require.Len(t, f.renderer.systemMessages, 1)
	assert.Equal(t, "No se pudo conectar con el servidor.", f.renderer.systemMessages[0])
}

func TestSendMessageResolvingAfterResetIsDropped(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	chat := &MockChat{
		SendMessageFunc: func(context.Context, environment.Endpoints, string, conversation.Mode, string, string) (*orchestrator.ChatReply, error) {
			close(started)
			<-release
			return &orchestrator.ChatReply{Response: "tarde", ThreadID: "t9"}, nil
		},
	}
	f := newFixture(verifiedToken(), chat)
	f.ctrl.SelectMode(conversation.ModeAdvisor)
	welcomes := len(f.renderer.assistantHTML)

	done := make(chan struct{})
	go func() {
		f.ctrl.SendMessage(context.Background(), "Hola")
		close(done)
	}()

	<-started
	f.ctrl.ResetSession()
	close(release)
	<-done

	// The late reply never lands: no assistant bubble, no thread id.
	assert.Len(t, f.renderer.assistantHTML, welcomes)
	assert.Empty(t, f.ctrl.ThreadID())
	assert.Empty(t, f.ctrl.Messages())
	assert.Equal(t, 0, f.store.Len())
}

func TestSelectModeWelcomeAndPlaceholder(t *testing.T) {
	f := newFixture(verifiedToken(), &MockChat{})

	f.ctrl.SelectMode(conversation.ModeAuditor)

	require.Len(t, f.renderer.assistantHTML, 1)
	assert.Contains(t, f.renderer.assistantHTML[0], "AUDITOR")
	require.NotEmpty(t, f.renderer.placeholders)
	assert.Contains(t, f.renderer.placeholders[len(f.renderer.placeholders)-1], "sector")
	assert.Equal(t, conversation.ModeAuditor, f.ctrl.Mode())
}

func TestRecentConversationsSeedsStore(t *testing.T) {
	chat := &MockChat{
		RecentConversationsFunc: func(_ context.Context, _ environment.Endpoints, _ string, limit int) ([]conversation.Summary, error) {
			assert.Equal(t, 20, limit)
			return []conversation.Summary{
				{ThreadID: "t2", Summary: "Auditoría", LastTimestamp: "2026-08-31T09:00:00Z", EndpointSource: "chat_auditor"},
				{ThreadID: "t1", Summary: "Consulta", LastTimestamp: "2026-08-30T10:00:00Z", EndpointSource: "chat_assistant"},
			}, nil
		},
	}
	f := newFixture(verifiedToken(), chat)

	summaries := f.ctrl.RecentConversations(context.Background(), 20)

	require.Len(t, summaries, 2)
	assert.Equal(t, 2, f.store.Len())
	cached, ok := f.store.Get("t2")
	require.True(t, ok)
	assert.Equal(t, "Auditoría", cached.Summary)
	assert.Empty(t, cached.Messages)
}

func TestRecentConversationsFailureShowsStatus(t *testing.T) {
	chat := &MockChat{
		RecentConversationsFunc: func(context.Context, environment.Endpoints, string, int) ([]conversation.Summary, error) {
			return nil, errors.New("boom")
		},
	}
	f := newFixture(verifiedToken(), chat)

	summaries := f.ctrl.RecentConversations(context.Background(), 20)

	assert.Nil(t, summaries)
	require.Len(t, f.renderer.statusLines, 1)
	assert.Equal(t, 0, f.store.Len())
}

func TestResumeThreadCachedMessagesSkipFetch(t *testing.T) {
	chat := &MockChat{}
	f := newFixture(verifiedToken(), chat)
	f.store.Merge("t1", conversation.Conversation{
		EndpointSource: "chat_auditor",
		Messages: []conversation.Message{
			{Role: conversation.RoleUser, Text: "Hola"},
			{Role: conversation.RoleAssistant, Text: "Bienvenido"},
		},
	})

	f.ctrl.ResumeThread(context.Background(), conversation.Summary{ThreadID: "t1"})

	assert.Equal(t, 0, chat.ThreadCalls())
	require.Len(t, f.renderer.userMessages, 1)
	require.Len(t, f.renderer.assistantHTML, 1)
	assert.Equal(t, conversation.ModeAuditor, f.ctrl.Mode())
	assert.Equal(t, "t1", f.ctrl.ThreadID())
	// Replay runs with instant scrolling, then turns it off.
	assert.Equal(t, []bool{true, false}, f.renderer.replayTransitions)
}

func TestResumeThreadUncachedFetchesExactlyOnce(t *testing.T) {
	chat := &MockChat{
		ConversationThreadFunc: func(_ context.Context, _ environment.Endpoints, _ string, threadID string) (*orchestrator.ThreadPayload, error) {
			return &orchestrator.ThreadPayload{
				ThreadID:       threadID,
				EndpointSource: "chat_assistant",
				Messages: []conversation.Message{
					{Role: conversation.RoleUser, Text: "Hola"},
					{Role: conversation.RoleAssistant, Text: "Bienvenido"},
				},
			}, nil
		},
	}
	f := newFixture(verifiedToken(), chat)
	f.store.Merge("t1", conversation.Conversation{Summary: "Consulta"})

	f.ctrl.ResumeThread(context.Background(), conversation.Summary{ThreadID: "t1"})

	assert.Equal(t, 1, chat.ThreadCalls())
	assert.Equal(t, conversation.ModeAdvisor, f.ctrl.Mode())

	// The fetched messages are cached; reopening hits the store.
	f.ctrl.ResumeThread(context.Background(), conversation.Summary{ThreadID: "t1"})
	assert.Equal(t, 1, chat.ThreadCalls())
}

func TestResumeThreadReplaysOnlyTheTail(t *testing.T) {
	messages := make([]conversation.Message, 0, 8)
	for i := 0; i < 8; i++ {
		role := conversation.RoleUser
		if i%2 == 1 {
			role = conversation.RoleAssistant
		}
		messages = append(messages, conversation.Message{Role: role, Text: strings.Repeat("m", i+1)})
	}
	f := newFixture(verifiedToken(), &MockChat{})
	f.store.Merge("t1", conversation.Conversation{EndpointSource: "chat_assistant", Messages: messages})

	f.ctrl.ResumeThread(context.Background(), conversation.Summary{ThreadID: "t1"})

	replayed := len(f.renderer.userMessages) + len(f.renderer.assistantHTML)
	assert.Equal(t, 5, replayed)
	// The full list stays in memory even though only the tail rendered.
	assert.Len(t, f.ctrl.Messages(), 8)
}

func TestResumeThreadFetchFailureLeavesViewUnchanged(t *testing.T) {
	chat := &MockChat{
		ConversationThreadFunc: func(context.Context, environment.Endpoints, string, string) (*orchestrator.ThreadPayload, error) {
			return nil, &orchestrator.APIError{StatusCode: 404, Message: "thread not found"}
		},
	}
	f := newFixture(verifiedToken(), chat)
	f.ctrl.SelectMode(conversation.ModeAdvisor)

	f.ctrl.ResumeThread(context.Background(), conversation.Summary{ThreadID: "missing"})

	require.Len(t, f.renderer.statusLines, 1)
	assert.Equal(t, conversation.ModeAdvisor, f.ctrl.Mode())
	assert.Empty(t, f.ctrl.ThreadID())
	assert.Empty(t, f.renderer.userMessages)
}

func TestResetSessionClearsEverything(t *testing.T) {
	chat := &MockChat{
		SendMessageFunc: func(context.Context, environment.Endpoints, string, conversation.Mode, string, string) (*orchestrator.ChatReply, error) {
			return &orchestrator.ChatReply{Response: "ok", ThreadID: "t1"}, nil
		},
	}
	f := newFixture(verifiedToken(), chat)
	f.ctrl.SelectMode(conversation.ModeAdvisor)
	f.ctrl.SendMessage(context.Background(), "Hola")
	require.Equal(t, 1, f.store.Len())

	f.ctrl.ResetSession()

	assert.Empty(t, f.ctrl.Mode())
	assert.Empty(t, f.ctrl.ThreadID())
	assert.Empty(t, f.ctrl.Messages())
	assert.Equal(t, 0, f.store.Len())
}
