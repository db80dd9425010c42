package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/recava/recava-server/internal/infrastructure/auth"
	"github.com/recava/recava-server/internal/interfaces/httpserver/handlers"
)

// Routes encapsulates route registration for the support API.
type Routes struct {
	handlers *handlers.Provider
	auth     *auth.Validator
}

// New builds the route registrar.
func New(handlerProvider *handlers.Provider, authValidator *auth.Validator) *Routes {
	return &Routes{
		handlers: handlerProvider,
		auth:     authValidator,
	}
}

// Register attaches all routes. The payment webhook stays outside the
// bearer middleware: its caller authenticates with a signature header.
func (r *Routes) Register(engine *gin.Engine) {
	engine.POST("/stripeWebhook", r.handlers.Stripe.Webhook)

	protected := engine.Group("/")
	protected.Use(r.auth.Middleware())
	{
		protected.POST("/getChatHistory", r.handlers.History.GetChatHistory)
		protected.POST("/updateExpertResponse", r.handlers.History.UpdateExpertResponse)
		protected.POST("/create-checkout-session", r.handlers.Stripe.CreateCheckoutSession)
		protected.POST("/deductCredit", r.handlers.Stripe.DeductCredit)

		admin := protected.Group("/admin")
		{
			admin.GET("/agents-config", r.handlers.AgentConfig.Get)
			admin.PUT("/agents-config", r.handlers.AgentConfig.Update)
		}
	}
}
