package orchestrator

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/recava/recava-server/internal/widget/conversation"
	"github.com/recava/recava-server/internal/widget/environment"
)

// APIError is a non-2xx reply from the orchestrator, carrying the
// server-provided error field when present and the status text otherwise.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return http.StatusText(e.StatusCode)
}

// ChatReply is the orchestrator's answer to one posted message.
type ChatReply struct {
	Response  string                  `json:"response"`
	Citations []conversation.Citation `json:"citations,omitempty"`
	ThreadID  string                  `json:"thread_id,omitempty"`
	Error     string                  `json:"error,omitempty"`
}

// ThreadPayload is one full conversation as served by the history endpoint.
type ThreadPayload struct {
	ThreadID       string                 `json:"thread_id"`
	EndpointSource string                 `json:"endpoint_source,omitempty"`
	Messages       []conversation.Message `json:"messages"`
}

type recentsPayload struct {
	Conversations []conversation.Summary `json:"conversations"`
}

type errorPayload struct {
	Error string `json:"error"`
}

// Client performs the synchronous request/response cycles against the
// external orchestrator service.
type Client struct {
	http *resty.Client
	log  zerolog.Logger
}

// NewClient builds an orchestrator client.
func NewClient(log zerolog.Logger) *Client {
	return &Client{
		http: resty.New(),
		log:  log.With().Str("component", "orchestrator").Logger(),
	}
}

// SendMessage posts one user message to the mode-specific chat endpoint.
// threadID may be empty for the first message of a conversation.
func (c *Client) SendMessage(ctx context.Context, endpoints environment.Endpoints, token string, mode conversation.Mode, text, threadID string) (*ChatReply, error) {
	endpoint := endpoints.Advisor
	if mode == conversation.ModeAuditor {
		endpoint = endpoints.Auditor
	}

	body := map[string]any{"message": text}
	if threadID != "" {
		body["thread_id"] = threadID
	} else {
		body["thread_id"] = nil
	}

	var reply ChatReply
	var apiErr errorPayload
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetBody(body).
		SetResult(&reply).
		SetError(&apiErr).
		Post(endpoint)
	if err != nil {
		return nil, fmt.Errorf("post chat message: %w", err)
	}
	if resp.IsError() {
		return nil, &APIError{StatusCode: resp.StatusCode(), Message: apiErr.Error}
	}
	return &reply, nil
}

// RecentConversations lists the caller's most recent conversations, newest
// first. The ordering contract is owned by the server.
func (c *Client) RecentConversations(ctx context.Context, endpoints environment.Endpoints, token string, limit int) ([]conversation.Summary, error) {
	var payload recentsPayload
	var apiErr errorPayload
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetQueryParam("limit", strconv.Itoa(limit)).
		SetResult(&payload).
		SetError(&apiErr).
		Get(endpoints.History + "/recents")
	if err != nil {
		return nil, fmt.Errorf("fetch recent conversations: %w", err)
	}
	if resp.IsError() {
		return nil, &APIError{StatusCode: resp.StatusCode(), Message: apiErr.Error}
	}
	return payload.Conversations, nil
}

// ConversationThread fetches the full message list of one thread.
func (c *Client) ConversationThread(ctx context.Context, endpoints environment.Endpoints, token, threadID string) (*ThreadPayload, error) {
	var payload ThreadPayload
	var apiErr errorPayload
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetResult(&payload).
		SetError(&apiErr).
		Get(endpoints.History + "/thread/" + threadID)
	if err != nil {
		return nil, fmt.Errorf("fetch conversation thread: %w", err)
	}
	if resp.IsError() {
		return nil, &APIError{StatusCode: resp.StatusCode(), Message: apiErr.Error}
	}
	return &payload, nil
}
