package session_test

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recava/recava-server/internal/widget/identity"
	"github.com/recava/recava-server/internal/widget/session"
)

// MockProvider is a mock implementation of identity.Provider for testing.
type MockProvider struct {
	SignInFunc            func(ctx context.Context, email, password string) (identity.Credential, error)
	SignUpFunc            func(ctx context.Context, email, password string) (identity.Credential, error)
	SendVerificationFunc  func(ctx context.Context, idToken string) error
	SendPasswordResetFunc func(ctx context.Context, email string) error
	LookupFunc            func(ctx context.Context, idToken string) (identity.Account, error)
	RefreshFunc           func(ctx context.Context, refreshToken string) (string, error)
}

func (m *MockProvider) SignIn(ctx context.Context, email, password string) (identity.Credential, error) {
	if m.SignInFunc != nil {
		return m.SignInFunc(ctx, email, password)
	}
	return identity.Credential{}, nil
}

func (m *MockProvider) SignUp(ctx context.Context, email, password string) (identity.Credential, error) {
	if m.SignUpFunc != nil {
		return m.SignUpFunc(ctx, email, password)
	}
	return identity.Credential{}, nil
}

func (m *MockProvider) SendVerification(ctx context.Context, idToken string) error {
	if m.SendVerificationFunc != nil {
		return m.SendVerificationFunc(ctx, idToken)
	}
	return nil
}

func (m *MockProvider) SendPasswordReset(ctx context.Context, email string) error {
	if m.SendPasswordResetFunc != nil {
		return m.SendPasswordResetFunc(ctx, email)
	}
	return nil
}

func (m *MockProvider) Lookup(ctx context.Context, idToken string) (identity.Account, error) {
	if m.LookupFunc != nil {
		return m.LookupFunc(ctx, idToken)
	}
	return identity.Account{}, nil
}

func (m *MockProvider) Refresh(ctx context.Context, refreshToken string) (string, error) {
	if m.RefreshFunc != nil {
		return m.RefreshFunc(ctx, refreshToken)
	}
	return "", nil
}

func verifiedProvider() *MockProvider {
	return &MockProvider{
		SignInFunc: func(_ context.Context, email, _ string) (identity.Credential, error) {
			return identity.Credential{UID: "u1", Email: email, IDToken: "tok", RefreshToken: "ref"}, nil
		},
		LookupFunc: func(context.Context, string) (identity.Account, error) {
			return identity.Account{UID: "u1", EmailVerified: true}, nil
		},
		RefreshFunc: func(context.Context, string) (string, error) {
			return "fresh-tok", nil
		},
	}
}

func TestVerifiedIDTokenSignedOut(t *testing.T) {
	gate := session.NewGate(&MockProvider{}, zerolog.Nop())

	_, err := gate.VerifiedIDToken(context.Background())
	assert.ErrorIs(t, err, session.ErrNotAuthenticated)
}

func TestVerifiedIDTokenUnverifiedEmail(t *testing.T) {
	provider := verifiedProvider()
	provider.LookupFunc = func(context.Context, string) (identity.Account, error) {
		return identity.Account{UID: "u1", EmailVerified: false}, nil
	}
	gate := session.NewGate(provider, zerolog.Nop())
	require.NoError(t, gate.SignIn(context.Background(), "a@b.es", "pw"))

	_, err := gate.VerifiedIDToken(context.Background())
	assert.ErrorIs(t, err, session.ErrEmailNotVerified)
}

func TestVerifiedIDTokenRefreshesToken(t *testing.T) {
	gate := session.NewGate(verifiedProvider(), zerolog.Nop())
	require.NoError(t, gate.SignIn(context.Background(), "a@b.es", "pw"))

	token, err := gate.VerifiedIDToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fresh-tok", token)
}

func TestSignInLoadsVerificationFlag(t *testing.T) {
	gate := session.NewGate(verifiedProvider(), zerolog.Nop())
	require.NoError(t, gate.SignIn(context.Background(), "a@b.es", "pw"))

	current := gate.Current()
	require.NotNil(t, current)
	assert.True(t, current.EmailVerified)
	assert.Equal(t, "a@b.es", current.Email)
}

func TestRegisterSendsVerificationMail(t *testing.T) {
	var sentFor string
	provider := &MockProvider{
		SignUpFunc: func(_ context.Context, email, _ string) (identity.Credential, error) {
			return identity.Credential{UID: "u2", Email: email, IDToken: "new-tok"}, nil
		},
		SendVerificationFunc: func(_ context.Context, idToken string) error {
			sentFor = idToken
			return nil
		},
	}
	gate := session.NewGate(provider, zerolog.Nop())

	require.NoError(t, gate.Register(context.Background(), "n@b.es", "pw"))
	assert.Equal(t, "new-tok", sentFor)

	// A failed mail send does not fail registration.
	provider.SendVerificationFunc = func(context.Context, string) error {
		return errors.New("smtp down")
	}
	assert.NoError(t, gate.Register(context.Background(), "m@b.es", "pw"))
}

func TestOnChangeFiresImmediatelyAndOnTransitions(t *testing.T) {
	gate := session.NewGate(verifiedProvider(), zerolog.Nop())

	var states []session.State
	gate.OnChange(func(state session.State, _ *session.Session) {
		states = append(states, state)
	})
	require.Equal(t, []session.State{session.StateSignedOut}, states)

	require.NoError(t, gate.SignIn(context.Background(), "a@b.es", "pw"))
	gate.SignOut()

	assert.Equal(t, []session.State{session.StateSignedOut, session.StateVerified, session.StateSignedOut}, states)
}

func TestRecheckVerificationNotifiesOnChange(t *testing.T) {
	verified := false
	provider := verifiedProvider()
	provider.LookupFunc = func(context.Context, string) (identity.Account, error) {
		return identity.Account{UID: "u1", EmailVerified: verified}, nil
	}
	gate := session.NewGate(provider, zerolog.Nop())
	require.NoError(t, gate.SignIn(context.Background(), "a@b.es", "pw"))

	var notifications int
	gate.OnChange(func(session.State, *session.Session) { notifications++ })
	notifications = 0 // drop the immediate replay

	// Unchanged flag: no notification.
	ok, err := gate.RecheckVerification(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, notifications)

	// Flag flips: exactly one notification.
	verified = true
	ok, err = gate.RecheckVerification(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, notifications)
}

func TestSendPasswordResetDefaultsToHeldEmail(t *testing.T) {
	var resetFor string
	provider := verifiedProvider()
	provider.SendPasswordResetFunc = func(_ context.Context, email string) error {
		resetFor = email
		return nil
	}
	gate := session.NewGate(provider, zerolog.Nop())
	require.NoError(t, gate.SignIn(context.Background(), "a@b.es", "pw"))

	require.NoError(t, gate.SendPasswordReset(context.Background(), ""))
	assert.Equal(t, "a@b.es", resetFor)

	require.NoError(t, gate.SendPasswordReset(context.Background(), "otro@b.es"))
	assert.Equal(t, "otro@b.es", resetFor)
}

func TestSendPasswordResetRequiresAnAddress(t *testing.T) {
	gate := session.NewGate(&MockProvider{}, zerolog.Nop())
	assert.Error(t, gate.SendPasswordReset(context.Background(), ""))
}
