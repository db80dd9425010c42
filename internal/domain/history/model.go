package history

import "time"

// Record represents one audited chat exchange as served to the admin panel.
type Record struct {
	ID                string    `json:"id"`
	Timestamp         time.Time `json:"timestamp"`
	ThreadID          string    `json:"thread_id"`
	UserMessage       string    `json:"user_message"`
	AssistantResponse string    `json:"assistant_response"`
	ExpertResponse    string    `json:"expert_response"`
	EndpointSource    string    `json:"endpoint_source"`
}
