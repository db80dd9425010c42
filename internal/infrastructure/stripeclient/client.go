package stripeclient

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rs/zerolog"
	stripe "github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"

	"github.com/recava/recava-server/internal/domain/billing"
)

// Client creates hosted checkout sessions through the Stripe API.
type Client struct {
	api *client.API
	log zerolog.Logger
}

// New builds a Stripe-backed checkout provider.
func New(secretKey string, log zerolog.Logger) *Client {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &Client{
		api: api,
		log: log.With().Str("component", "stripe-client").Logger(),
	}
}

var _ billing.CheckoutProvider = (*Client)(nil)

// CreateSession starts a one-off payment session carrying the account uid
// and credit count as metadata, which the webhook reads back on completion.
func (c *Client) CreateSession(ctx context.Context, params billing.CheckoutParams) (billing.CheckoutSession, error) {
	sessionParams := &stripe.CheckoutSessionParams{
		Params: stripe.Params{Context: ctx},
		Mode:   stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(string(stripe.CurrencyEUR)),
				UnitAmount: stripe.Int64(params.AmountCents),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(fmt.Sprintf("%d chat credits", params.Credits)),
				},
			},
			Quantity: stripe.Int64(1),
		}},
		SuccessURL: stripe.String(params.SuccessURL),
		CancelURL:  stripe.String(params.CancelURL),
	}
	sessionParams.AddMetadata("user_uid", params.UID)
	sessionParams.AddMetadata("credits_to_add", strconv.FormatInt(params.Credits, 10))

	created, err := c.api.CheckoutSessions.New(sessionParams)
	if err != nil {
		return billing.CheckoutSession{}, fmt.Errorf("create stripe checkout session: %w", err)
	}

	c.log.Debug().Str("session_id", created.ID).Msg("checkout session created upstream")
	return billing.CheckoutSession{ID: created.ID, URL: created.URL}, nil
}
