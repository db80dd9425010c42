package billing

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
)

// ErrInvalidCreditAmount reports a grant or checkout with a non-positive
// credit count.
var ErrInvalidCreditAmount = errors.New("credit amount must be positive")

// CheckoutParams describes a credit purchase to start with the payment
// provider.
type CheckoutParams struct {
	UID         string
	Credits     int64
	AmountCents int64
	SuccessURL  string
	CancelURL   string
}

// CheckoutSession is the provider-hosted payment page reference returned to
// the caller.
type CheckoutSession struct {
	ID  string `json:"session_id"`
	URL string `json:"url"`
}

// CheckoutProvider creates hosted payment sessions upstream.
type CheckoutProvider interface {
	CreateSession(ctx context.Context, params CheckoutParams) (CheckoutSession, error)
}

// Service describes the credit accounting surface.
type Service interface {
	// GrantCredits applies a completed purchase to the account balance.
	GrantCredits(ctx context.Context, uid string, credits int64) error
	// DeductCredit spends one credit, returning the remaining balance.
	DeductCredit(ctx context.Context, uid string) (int64, error)
	// CreateCheckout starts a hosted payment session for a credit purchase.
	CreateCheckout(ctx context.Context, params CheckoutParams) (CheckoutSession, error)
}

type service struct {
	repo     Repository
	checkout CheckoutProvider
	log      zerolog.Logger
}

// NewService wires the billing service with its repository and payment
// provider.
func NewService(repo Repository, checkout CheckoutProvider, log zerolog.Logger) Service {
	return &service{
		repo:     repo,
		checkout: checkout,
		log:      log.With().Str("component", "billing-service").Logger(),
	}
}

func (s *service) GrantCredits(ctx context.Context, uid string, credits int64) error {
	if credits <= 0 {
		return ErrInvalidCreditAmount
	}
	if err := s.repo.IncrementCredits(ctx, uid, credits); err != nil {
		s.log.Error().Err(err).Str("uid", uid).Int64("credits", credits).Msg("grant credits")
		return err
	}
	s.log.Info().Str("uid", uid).Int64("credits", credits).Msg("credits granted")
	return nil
}

func (s *service) DeductCredit(ctx context.Context, uid string) (int64, error) {
	remaining, err := s.repo.DeductCredit(ctx, uid)
	if err != nil {
		if errors.Is(err, ErrInsufficientCredits) {
			s.log.Info().Str("uid", uid).Msg("account has no credits")
		} else {
			s.log.Error().Err(err).Str("uid", uid).Msg("deduct credit")
		}
		return 0, err
	}
	s.log.Info().Str("uid", uid).Int64("remaining", remaining).Msg("credit deducted")
	return remaining, nil
}

func (s *service) CreateCheckout(ctx context.Context, params CheckoutParams) (CheckoutSession, error) {
	if params.Credits <= 0 || params.AmountCents <= 0 {
		return CheckoutSession{}, ErrInvalidCreditAmount
	}
	session, err := s.checkout.CreateSession(ctx, params)
	if err != nil {
		s.log.Error().Err(err).Str("uid", params.UID).Msg("create checkout session")
		return CheckoutSession{}, err
	}
	s.log.Info().Str("uid", params.UID).Str("session_id", session.ID).Msg("checkout session created")
	return session, nil
}
