package billing_test

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recava/recava-server/internal/domain/billing"
)

// MockRepository is a mock implementation of billing.Repository for testing.
type MockRepository struct {
	IncrementCreditsFunc func(ctx context.Context, uid string, delta int64) error
	DeductCreditFunc     func(ctx context.Context, uid string) (int64, error)
	CreditsFunc          func(ctx context.Context, uid string) (int64, error)
}

func (m *MockRepository) IncrementCredits(ctx context.Context, uid string, delta int64) error {
	if m.IncrementCreditsFunc != nil {
		return m.IncrementCreditsFunc(ctx, uid, delta)
	}
	return nil
}

func (m *MockRepository) DeductCredit(ctx context.Context, uid string) (int64, error) {
	if m.DeductCreditFunc != nil {
		return m.DeductCreditFunc(ctx, uid)
	}
	return 0, nil
}

func (m *MockRepository) Credits(ctx context.Context, uid string) (int64, error) {
	if m.CreditsFunc != nil {
		return m.CreditsFunc(ctx, uid)
	}
	return 0, nil
}

// MockCheckoutProvider is a mock implementation of billing.CheckoutProvider.
type MockCheckoutProvider struct {
	CreateSessionFunc func(ctx context.Context, params billing.CheckoutParams) (billing.CheckoutSession, error)
}

func (m *MockCheckoutProvider) CreateSession(ctx context.Context, params billing.CheckoutParams) (billing.CheckoutSession, error) {
	if m.CreateSessionFunc != nil {
		return m.CreateSessionFunc(ctx, params)
	}
	return billing.CheckoutSession{}, nil
}

func TestGrantCreditsRejectsNonPositiveAmounts(t *testing.T) {
	svc := billing.NewService(&MockRepository{}, &MockCheckoutProvider{}, zerolog.Nop())

	assert.ErrorIs(t, svc.GrantCredits(context.Background(), "u1", 0), billing.ErrInvalidCreditAmount)
	assert.ErrorIs(t, svc.GrantCredits(context.Background(), "u1", -5), billing.ErrInvalidCreditAmount)
}

func TestGrantCreditsIncrementsBalance(t *testing.T) {
	var gotUID string
	var gotDelta int64
	repo := &MockRepository{
		IncrementCreditsFunc: func(_ context.Context, uid string, delta int64) error {
			gotUID, gotDelta = uid, delta
			return nil
		},
	}
	svc := billing.NewService(repo, &MockCheckoutProvider{}, zerolog.Nop())

	require.NoError(t, svc.GrantCredits(context.Background(), "u1", 50))
	assert.Equal(t, "u1", gotUID)
	assert.Equal(t, int64(50), gotDelta)
}

func TestDeductCreditReturnsRemainingBalance(t *testing.T) {
	repo := &MockRepository{
		DeductCreditFunc: func(context.Context, string) (int64, error) {
			return 9, nil
		},
	}
	svc := billing.NewService(repo, &MockCheckoutProvider{}, zerolog.Nop())

	remaining, err := svc.DeductCredit(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(9), remaining)
}

func TestDeductCreditEmptyBalance(t *testing.T) {
	repo := &MockRepository{
		DeductCreditFunc: func(context.Context, string) (int64, error) {
			return 0, billing.ErrInsufficientCredits
		},
	}
	svc := billing.NewService(repo, &MockCheckoutProvider{}, zerolog.Nop())

	_, err := svc.DeductCredit(context.Background(), "u1")
	assert.ErrorIs(t, err, billing.ErrInsufficientCredits)
}

func TestCreateCheckoutValidatesParams(t *testing.T) {
	svc := billing.NewService(&MockRepository{}, &MockCheckoutProvider{}, zerolog.Nop())

	_, err := svc.CreateCheckout(context.Background(), billing.CheckoutParams{UID: "u1", Credits: 0, AmountCents: 500})
	assert.ErrorIs(t, err, billing.ErrInvalidCreditAmount)

	_, err = svc.CreateCheckout(context.Background(), billing.CheckoutParams{UID: "u1", Credits: 10, AmountCents: 0})
	assert.ErrorIs(t, err, billing.ErrInvalidCreditAmount)
}

func TestCreateCheckoutReturnsProviderSession(t *testing.T) {
	provider := &MockCheckoutProvider{
		CreateSessionFunc: func(_ context.Context, params billing.CheckoutParams) (billing.CheckoutSession, error) {
			assert.Equal(t, "u1", params.UID)
			return billing.CheckoutSession{ID: "cs_123", URL: "https://checkout.example/cs_123"}, nil
		},
	}
	svc := billing.NewService(&MockRepository{}, provider, zerolog.Nop())

	session, err := svc.CreateCheckout(context.Background(), billing.CheckoutParams{UID: "u1", Credits: 10, AmountCents: 500})
	require.NoError(t, err)
	assert.Equal(t, "cs_123", session.ID)
	assert.Equal(t, "https://checkout.example/cs_123", session.URL)
}

func TestCreateCheckoutPropagatesProviderError(t *testing.T) {
	provider := &MockCheckoutProvider{
		CreateSessionFunc: func(context.Context, billing.CheckoutParams) (billing.CheckoutSession, error) {
			return billing.CheckoutSession{}, errors.New("stripe unavailable")
		},
	}
	svc := billing.NewService(&MockRepository{}, provider, zerolog.Nop())

	_, err := svc.CreateCheckout(context.Background(), billing.CheckoutParams{UID: "u1", Credits: 10, AmountCents: 500})
	assert.Error(t, err)
}
