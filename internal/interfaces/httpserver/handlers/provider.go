package handlers

import (
	"github.com/rs/zerolog"

	"github.com/recava/recava-server/internal/config"
	"github.com/recava/recava-server/internal/domain/agentconfig"
	"github.com/recava/recava-server/internal/domain/billing"
	"github.com/recava/recava-server/internal/domain/history"
)

// Provider wires all HTTP handlers for dependency injection.
type Provider struct {
	History     *HistoryHandler
	Stripe      *StripeHandler
	AgentConfig *AgentConfigHandler
}

// NewProvider constructs the handler provider with domain services.
func NewProvider(
	cfg *config.Config,
	historyService history.Service,
	billingService billing.Service,
	agentConfigService agentconfig.Service,
	log zerolog.Logger,
) *Provider {
	return &Provider{
		History: NewHistoryHandler(historyService, log),
		Stripe: NewStripeHandler(
			billingService,
			cfg.StripeWebhookSecret,
			cfg.CheckoutSuccessURL,
			cfg.CheckoutCancelURL,
			log,
		),
		AgentConfig: NewAgentConfigHandler(agentConfigService, log),
	}
}
