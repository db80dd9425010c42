package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	stripe "github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/webhook"

	"github.com/recava/recava-server/internal/domain/billing"
	"github.com/recava/recava-server/internal/infrastructure/auth"
	"github.com/recava/recava-server/internal/infrastructure/metrics"
	"github.com/recava/recava-server/internal/interfaces/httpserver/requests"
	"github.com/recava/recava-server/internal/interfaces/httpserver/responses"
)

// StripeHandler receives payment provider webhooks and serves checkout
// session creation.
type StripeHandler struct {
	service       billing.Service
	webhookSecret string
	successURL    string
	cancelURL     string
	log           zerolog.Logger
}

// NewStripeHandler wires dependencies for billing routes. successURL and
// cancelURL are the checkout redirect defaults used when the request omits
// its own.
func NewStripeHandler(service billing.Service, webhookSecret, successURL, cancelURL string, log zerolog.Logger) *StripeHandler {
	return &StripeHandler{
		service:       service,
		webhookSecret: webhookSecret,
		successURL:    successURL,
		cancelURL:     cancelURL,
		log:           log.With().Str("handler", "stripe").Logger(),
	}
}

// Webhook handles POST /stripeWebhook.
//
// The signature is verified against the raw body. Once it passes, the
// endpoint acknowledges with 200 regardless of downstream outcome; failures
// are logged and counted, never surfaced to the provider, so deliveries are
// not retried forever.
func (h *StripeHandler) Webhook(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		responses.AbortWithError(c, http.StatusBadRequest, "could not read request body")
		return
	}

	event, err := webhook.ConstructEvent(payload, c.GetHeader("Stripe-Signature"), h.webhookSecret)
	if err != nil {
		h.log.Warn().Err(err).Msg("webhook signature verification failed")
		responses.AbortWithError(c, http.StatusBadRequest, "webhook signature verification failed")
		return
	}

	if event.Type == "checkout.session.completed" {
		h.handleCheckoutCompleted(c, event)
	} else {
		metrics.RecordWebhookEvent(string(event.Type), "ignored")
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

func (h *StripeHandler) handleCheckoutCompleted(c *gin.Context, event stripe.Event) {
	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		h.log.Error().Err(err).Str("event_id", event.ID).Msg("decode checkout session payload")
		metrics.RecordWebhookEvent(string(event.Type), "error")
		return
	}

	uid := session.Metadata["user_uid"]
	credits, convErr := strconv.ParseInt(session.Metadata["credits_to_add"], 10, 64)
	if uid == "" || convErr != nil || credits <= 0 {
		h.log.Error().Str("session_id", session.ID).Msg("missing or invalid metadata in checkout session")
		metrics.RecordWebhookEvent(string(event.Type), "invalid_metadata")
		return
	}

	if err := h.service.GrantCredits(c.Request.Context(), uid, credits); err != nil {
		h.log.Error().Err(err).Str("uid", uid).Msg("grant credits from webhook")
		metrics.RecordWebhookEvent(string(event.Type), "error")
		return
	}

	metrics.CreditsGrantedTotal.Add(float64(credits))
	metrics.RecordWebhookEvent(string(event.Type), "ok")
}

// CreateCheckoutSession handles POST /create-checkout-session
// @Summary Start a credit purchase
// @Tags Billing
// @Accept json
// @Produce json
// @Success 200 {object} billing.CheckoutSession
// @Failure 400 {object} responses.ErrorBody
// @Failure 401 {object} responses.ErrorBody
// @Failure 500 {object} responses.ErrorBody
// @Router /create-checkout-session [post]
func (h *StripeHandler) CreateCheckoutSession(c *gin.Context) {
	var req requests.CreateCheckoutSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.AbortWithError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.SuccessURL == "" {
		req.SuccessURL = h.successURL
	}
	if req.CancelURL == "" {
		req.CancelURL = h.cancelURL
	}

	uid := c.GetString(auth.ContextUserID)
	session, err := h.service.CreateCheckout(c.Request.Context(), billing.CheckoutParams{
		UID:         uid,
		Credits:     req.Credits,
		AmountCents: req.AmountCents,
		SuccessURL:  req.SuccessURL,
		CancelURL:   req.CancelURL,
	})
	if err != nil {
		responses.HandleError(c, err, "could not create checkout session")
		return
	}

	c.JSON(http.StatusOK, session)
}

// DeductCredit handles POST /deductCredit, spending one credit for the
// authenticated account.
func (h *StripeHandler) DeductCredit(c *gin.Context) {
	uid := c.GetString(auth.ContextUserID)
	remaining, err := h.service.DeductCredit(c.Request.Context(), uid)
	if err != nil {
		responses.HandleError(c, err, "could not deduct credit")
		return
	}
	c.JSON(http.StatusOK, gin.H{"remaining": remaining})
}
