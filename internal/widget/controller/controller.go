package controller

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/recava/recava-server/internal/widget/conversation"
	"github.com/recava/recava-server/internal/widget/environment"
	"github.com/recava/recava-server/internal/widget/orchestrator"
	"github.com/recava/recava-server/internal/widget/render"
)

// Renderer is the display surface the controller drives. Implementations
// own scrolling: instant during bulk history replay, animated live.
type Renderer interface {
	AppendUserMessage(text string)
	AppendAssistantHTML(html string, citations []conversation.Citation)
	AppendSystemMessage(text string)
	ShowTypingIndicator()
	RemoveTypingIndicator()
	ShowStatus(text string)
	ShowVerifyBanner()
	SetInputEnabled(enabled bool)
	SetPlaceholder(text string)
	SetReplayMode(instant bool)
}

// TokenSource supplies fresh verified bearer tokens, failing when no
// credential is held or its email is unverified.
type TokenSource interface {
	VerifiedIDToken(ctx context.Context) (string, error)
}

// Chat is the orchestrator surface the controller depends on.
type Chat interface {
	SendMessage(ctx context.Context, endpoints environment.Endpoints, token string, mode conversation.Mode, text, threadID string) (*orchestrator.ChatReply, error)
	RecentConversations(ctx context.Context, endpoints environment.Endpoints, token string, limit int) ([]conversation.Summary, error)
	ConversationThread(ctx context.Context, endpoints environment.Endpoints, token, threadID string) (*orchestrator.ThreadPayload, error)
}

// Environment settles the backend endpoint set before any call proceeds.
type Environment interface {
	Resolve(ctx context.Context) environment.Endpoints
}

// replayDepth caps how many cached messages a history resume replays.
const replayDepth = 5

// User-facing copy, mode-specific where the original widget is.
const (
	msgPickModeFirst    = "Elige primero Modo Asesor o Modo Auditor."
	msgConnectionFailed = "No se pudo conectar con el servidor."

	welcomeAuditor     = "Has seleccionado el modo AUDITOR. Comienza por contarme: nombre de la empresa, sector, tamaño y sedes."
	welcomeAdvisor     = "Has seleccionado el modo ASESOR. ¿En qué puedo ayudarte hoy?"
	placeholderAuditor = "Nombre, sector, tamaño, sedes..."
	placeholderAdvisor = "Escribe tu consulta de asesoría..."
	placeholderNoMode  = "Selecciona un modo para comenzar..."
)

// Controller owns the widget's session-scoped state: active mode, active
// thread, in-memory message list and the conversation store. All state
// lives here and is reset through ResetSession on every identity
// transition, never by scattered reassignment.
type Controller struct {
	renderer Renderer
	tokens   TokenSource
	chat     Chat
	env      Environment
	store    *conversation.Store
	log      zerolog.Logger

	mu       sync.Mutex
	mode     conversation.Mode // empty while no mode is selected
	threadID string
	messages []conversation.Message
	typing   bool
	// epoch stamps in-flight sends; a send resolving under a stale epoch
	// discards its result instead of landing on the next conversation.
	epoch uint64
	// loading guards each history entry against duplicate concurrent
	// fetches of the same thread.
	loading map[string]bool

	now func() time.Time
}

// New builds a controller in the NoMode state.
func New(renderer Renderer, tokens TokenSource, chat Chat, env Environment, store *conversation.Store, log zerolog.Logger) *Controller {
	return &Controller{
		renderer: renderer,
		tokens:   tokens,
		chat:     chat,
		env:      env,
		store:    store,
		log:      log.With().Str("component", "chat-controller").Logger(),
		loading:  map[string]bool{},
		now:      time.Now,
	}
}

// Mode returns the active mode, empty while none is selected.
func (c *Controller) Mode() conversation.Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// ThreadID returns the active thread identifier, empty until the first
// successful round-trip supplies one.
func (c *Controller) ThreadID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.threadID
}

// Messages returns a copy of the in-memory message list.
func (c *Controller) Messages() []conversation.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]conversation.Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// ResetSession clears every piece of session-scoped state. It runs on each
// identity transition (sign-in and sign-out) and drops in-flight sends.
func (c *Controller) ResetSession() {
	c.mu.Lock()
	c.epoch++
	c.mode = ""
	c.threadID = ""
	c.messages = nil
	c.typing = false
	c.loading = map[string]bool{}
	c.mu.Unlock()

	c.store.Clear()
	c.renderer.SetInputEnabled(false)
	c.renderer.SetPlaceholder(placeholderNoMode)
}

// SelectMode moves into ModeSelected: the thread identifier resets, the
// in-memory message list clears, and a mode-specific welcome is shown.
// Switching mode always starts a new thread, even when messages remain
// cached under the old identifier.
func (c *Controller) SelectMode(mode conversation.Mode) {
	c.mu.Lock()
	c.epoch++
	c.mode = mode
	c.threadID = ""
	c.messages = nil
	c.mu.Unlock()

	c.renderer.SetInputEnabled(false)

	welcome, placeholder := welcomeAdvisor, placeholderAdvisor
	if mode == conversation.ModeAuditor {
		welcome, placeholder = welcomeAuditor, placeholderAuditor
	}
	c.renderer.SetPlaceholder(placeholder)
	c.renderer.AppendAssistantHTML(render.AssistantHTML(welcome), nil)
	c.renderer.SetInputEnabled(true)
}

// SendMessage runs one request/response cycle against the chat endpoint.
// Empty input is a no-op; without an active mode only an instruction
// message is shown. The user message is rendered optimistically and never
// rolled back: a failed send leaves it visible, followed by exactly one
// system-role error message.
func (c *Controller) SendMessage(ctx context.Context, text string) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return
	}

	c.mu.Lock()
	mode := c.mode
	threadID := c.threadID
	epoch := c.epoch
	c.mu.Unlock()

	if mode == "" {
		c.renderer.AppendSystemMessage(msgPickModeFirst)
		return
	}

	token, err := c.tokens.VerifiedIDToken(ctx)
	if err != nil {
		c.removeTypingIndicator()
		c.renderer.AppendSystemMessage(err.Error())
		c.renderer.ShowVerifyBanner()
		return
	}

	userMessage := conversation.Message{
		Role:      conversation.RoleUser,
		Text:      trimmed,
		Timestamp: c.now().UTC().Format(time.RFC3339),
	}
	c.mu.Lock()
	c.messages = append(c.messages, userMessage)
	c.mu.Unlock()
	c.renderer.AppendUserMessage(trimmed)
	c.showTypingIndicator()

	endpoints := c.env.Resolve(ctx)
	reply, err := c.chat.SendMessage(ctx, endpoints, token, mode, trimmed, threadID)

	c.mu.Lock()
	stale := c.epoch != epoch
	c.mu.Unlock()
	if stale {
		c.log.Debug().Msg("dropping send result from a previous conversation")
		return
	}

	c.removeTypingIndicator()

	if err != nil {
		var apiErr *orchestrator.APIError
		if errors.As(err, &apiErr) {
			c.renderer.AppendSystemMessage("Error del servidor: " + apiErr.Error() + ".")
		} else {
			c.log.Error().Err(err).Msg("chat send failed")
			c.renderer.AppendSystemMessage(msgConnectionFailed)
		}
		return
	}

	c.applyReply(mode, reply)
}

func (c *Controller) applyReply(mode conversation.Mode, reply *orchestrator.ChatReply) {
	if reply.Error != "" {
		c.renderer.AppendSystemMessage("Error del asistente: " + reply.Error)
		return
	}

	c.mu.Lock()
	if reply.ThreadID != "" {
		// Sticky once set: later replies without an id keep the first one.
		c.threadID = reply.ThreadID
	}
	threadID := c.threadID

	cleaned := render.StripSourceMarkers(reply.Response)
	assistantMessage := conversation.Message{
		Role:      conversation.RoleAssistant,
		Text:      cleaned,
		Timestamp: c.now().UTC().Format(time.RFC3339),
		Citations: reply.Citations,
	}
	c.messages = append(c.messages, assistantMessage)
	snapshot := make([]conversation.Message, len(c.messages))
	copy(snapshot, c.messages)
	c.mu.Unlock()

	c.renderer.AppendAssistantHTML(render.AssistantHTML(cleaned), reply.Citations)

	if threadID != "" {
		c.store.Merge(threadID, conversation.Conversation{
			Mode:           mode,
			EndpointSource: endpointTag(mode),
			LastTimestamp:  c.now().UTC().Format(time.RFC3339),
			Messages:       snapshot,
		})
	}
}

// RecentConversations lists the caller's history entries and seeds the
// store with summary-only records. Failures surface as a status line.
func (c *Controller) RecentConversations(ctx context.Context, limit int) []conversation.Summary {
	token, err := c.tokens.VerifiedIDToken(ctx)
	if err != nil {
		c.renderer.ShowStatus(err.Error())
		c.renderer.ShowVerifyBanner()
		return nil
	}

	endpoints := c.env.Resolve(ctx)
	summaries, err := c.chat.RecentConversations(ctx, endpoints, token, limit)
	if err != nil {
		c.log.Error().Err(err).Msg("recent conversations fetch failed")
		c.renderer.ShowStatus("No se pudo obtener el historial de conversaciones.")
		return nil
	}

	for _, s := range summaries {
		c.store.Merge(s.ThreadID, conversation.Conversation{
			Summary:        s.Summary,
			LastTimestamp:  s.LastTimestamp,
			EndpointSource: s.EndpointSource,
		})
	}
	return summaries
}

// ResumeThread reopens a past conversation. Cache-first: a cached entry
// with a non-empty message list is reused without a network call; an
// uncached thread is fetched exactly once, guarded per entry against
// duplicate concurrent fetches. On fetch failure the current view stays
// unchanged beyond a status line.
func (c *Controller) ResumeThread(ctx context.Context, summary conversation.Summary) {
	c.mu.Lock()
	if c.loading[summary.ThreadID] {
		c.mu.Unlock()
		return
	}
	c.loading[summary.ThreadID] = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.loading, summary.ThreadID)
		c.mu.Unlock()
	}()

	cached, ok := c.store.Get(summary.ThreadID)
	if !ok || len(cached.Messages) == 0 {
		token, err := c.tokens.VerifiedIDToken(ctx)
		if err != nil {
			c.renderer.ShowStatus(err.Error())
			c.renderer.ShowVerifyBanner()
			return
		}

		endpoints := c.env.Resolve(ctx)
		payload, err := c.chat.ConversationThread(ctx, endpoints, token, summary.ThreadID)
		if err != nil {
			c.log.Error().Err(err).Str("thread_id", summary.ThreadID).Msg("thread fetch failed")
			c.renderer.ShowStatus("No se pudo recuperar la conversación.")
			return
		}
		cached = c.store.Merge(summary.ThreadID, conversation.Conversation{
			EndpointSource: payload.EndpointSource,
			Messages:       payload.Messages,
		})
	}

	mode := c.inferMode(cached.EndpointSource)

	c.mu.Lock()
	c.epoch++
	c.mode = mode
	c.threadID = summary.ThreadID
	c.messages = append([]conversation.Message(nil), cached.Messages...)
	c.mu.Unlock()

	c.renderer.SetInputEnabled(false)
	c.renderer.SetReplayMode(true)
	c.replay(cached.Messages)
	c.renderer.SetReplayMode(false)

	placeholder := placeholderAdvisor
	if mode == conversation.ModeAuditor {
		placeholder = placeholderAuditor
	}
	c.renderer.SetPlaceholder(placeholder)
	c.renderer.SetInputEnabled(true)
}

func (c *Controller) replay(messages []conversation.Message) {
	start := 0
	if len(messages) > replayDepth {
		start = len(messages) - replayDepth
	}
	for _, m := range messages[start:] {
		switch m.Role {
		case conversation.RoleAssistant:
			c.renderer.AppendAssistantHTML(render.AssistantHTML(m.Text), m.Citations)
		case conversation.RoleSystem:
			c.renderer.AppendSystemMessage(m.Text)
		default:
			c.renderer.AppendUserMessage(m.Text)
		}
	}
}

// inferMode maps a history entry's endpoint source onto a mode, retaining
// the current one (advisor by default) when the source matches neither.
func (c *Controller) inferMode(endpointSource string) conversation.Mode {
	switch {
	case strings.Contains(endpointSource, "auditor"):
		return conversation.ModeAuditor
	case strings.Contains(endpointSource, "assistant"):
		return conversation.ModeAdvisor
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mode != "" {
		return c.mode
	}
	return conversation.ModeAdvisor
}

// showTypingIndicator shows the singleton indicator; a second call while
// one is visible is a no-op.
func (c *Controller) showTypingIndicator() {
	c.mu.Lock()
	if c.typing {
		c.mu.Unlock()
		return
	}
	c.typing = true
	c.mu.Unlock()
	c.renderer.ShowTypingIndicator()
}

// removeTypingIndicator removes the indicator at most once per showing.
func (c *Controller) removeTypingIndicator() {
	c.mu.Lock()
	if !c.typing {
		c.mu.Unlock()
		return
	}
	c.typing = false
	c.mu.Unlock()
	c.renderer.RemoveTypingIndicator()
}

func endpointTag(mode conversation.Mode) string {
	if mode == conversation.ModeAuditor {
		return "chat_auditor"
	}
	return "chat_assistant"
}
