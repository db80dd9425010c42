package conversation

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Mode selects which conversation persona and backend endpoint applies.
type Mode string

const (
	ModeAdvisor Mode = "advisor"
	ModeAuditor Mode = "auditor"
)

// Citation is a structured reference attached to an assistant response,
// pointing at a source document excerpt.
type Citation struct {
	Marker        string `json:"marker"`
	QuoteFromFile string `json:"quote_from_file"`
	FileID        string `json:"file_id,omitempty"`
}

// Message is one chat bubble. Messages are appended in chronological order
// and never mutated afterwards.
type Message struct {
	Role      Role       `json:"role"`
	Text      string     `json:"text"`
	Timestamp string     `json:"timestamp"`
	Citations []Citation `json:"citations,omitempty"`
}

// Conversation groups the messages exchanged under one server-side thread.
// ThreadID stays empty until the first successful round-trip returns one,
// then remains stable for the rest of the conversation.
type Conversation struct {
	ThreadID       string    `json:"thread_id"`
	Mode           Mode      `json:"mode,omitempty"`
	EndpointSource string    `json:"endpoint_source,omitempty"`
	LastTimestamp  string    `json:"last_timestamp,omitempty"`
	Summary        string    `json:"summary,omitempty"`
	Messages       []Message `json:"messages"`
}

// Summary is one entry of the recent conversations list, used for display
// and as a lookup key into the store.
type Summary struct {
	ThreadID       string `json:"thread_id"`
	Summary        string `json:"summary"`
	LastTimestamp  string `json:"last_timestamp"`
	EndpointSource string `json:"endpoint_source,omitempty"`
}
