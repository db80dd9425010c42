package requests

// The admin panel posts its payloads wrapped in a "data" envelope, kept here
// for compatibility with the existing clients.

// GetChatHistoryRequest is the body of POST /getChatHistory.
type GetChatHistoryRequest struct {
	Data struct {
		SearchTerm string `json:"searchTerm"`
	} `json:"data"`
}

// UpdateExpertResponseRequest is the body of POST /updateExpertResponse.
type UpdateExpertResponseRequest struct {
	Data struct {
		ID             string  `json:"id"`
		ExpertResponse *string `json:"expertResponse"`
	} `json:"data"`
}

// CreateCheckoutSessionRequest is the body of POST /create-checkout-session.
type CreateCheckoutSessionRequest struct {
	Credits     int64  `json:"credits"`
	AmountCents int64  `json:"amount_cents"`
	SuccessURL  string `json:"success_url"`
	CancelURL   string `json:"cancel_url"`
}

// AgentConfigRequest is the body of PUT /admin/agents-config.
type AgentConfigRequest struct {
	YAML         string            `json:"yaml"`
	Instructions map[string]string `json:"instructions"`
}
