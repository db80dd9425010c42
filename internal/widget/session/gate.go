package session

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/recava/recava-server/internal/widget/identity"
)

// Errors returned by VerifiedIDToken. Every protected call resolves these
// locally into a banner or system message; they are never left unhandled.
var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrEmailNotVerified = errors.New("email not verified")
)

// State is the gate's view of the held identity.
type State int

const (
	StateSignedOut State = iota
	StateUnverified
	StateVerified
)

// Session is the browser-held identity snapshot.
type Session struct {
	UID           string
	Email         string
	EmailVerified bool
}

// Listener observes auth-state transitions. It fires on sign-in, sign-out
// and verification changes; consumers clear their session-scoped caches on
// every call.
type Listener func(state State, session *Session)

// Gate tracks the current credential and decides whether it is usable.
type Gate struct {
	mu       sync.Mutex
	provider identity.Provider
	current  *identity.Credential
	listener Listener
	log      zerolog.Logger
}

// NewGate builds a signed-out gate.
func NewGate(provider identity.Provider, log zerolog.Logger) *Gate {
	return &Gate{
		provider: provider,
		log:      log.With().Str("component", "session-gate").Logger(),
	}
}

// OnChange registers the transition listener and immediately reports the
// current state.
func (g *Gate) OnChange(listener Listener) {
	g.mu.Lock()
	g.listener = listener
	state, session := g.snapshot()
	g.mu.Unlock()
	if listener != nil {
		listener(state, session)
	}
}

// Current returns the held session, or nil when signed out.
func (g *Gate) Current() *Session {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, session := g.snapshot()
	return session
}

// SignIn authenticates and loads the account's verification flag.
func (g *Gate) SignIn(ctx context.Context, email, password string) error {
	cred, err := g.provider.SignIn(ctx, email, password)
	if err != nil {
		return err
	}
	if account, err := g.provider.Lookup(ctx, cred.IDToken); err == nil {
		cred.EmailVerified = account.EmailVerified
	}

	g.setCredential(&cred)
	return nil
}

// Register creates an account and immediately sends the verification mail.
func (g *Gate) Register(ctx context.Context, email, password string) error {
	cred, err := g.provider.SignUp(ctx, email, password)
	if err != nil {
		return err
	}
	if err := g.provider.SendVerification(ctx, cred.IDToken); err != nil {
		g.log.Error().Err(err).Msg("could not send verification mail")
	}

	g.setCredential(&cred)
	return nil
}

// SignOut discards the credential.
func (g *Gate) SignOut() {
	g.setCredential(nil)
}

// VerifiedIDToken returns a fresh bearer token for the held credential.
// It fails with ErrNotAuthenticated when no credential is held and with
// ErrEmailNotVerified when the account's email is unverified.
func (g *Gate) VerifiedIDToken(ctx context.Context) (string, error) {
	g.mu.Lock()
	cred := g.current
	g.mu.Unlock()

	if cred == nil {
		return "", ErrNotAuthenticated
	}
	if !cred.EmailVerified {
		return "", ErrEmailNotVerified
	}

	token, err := g.provider.Refresh(ctx, cred.RefreshToken)
	if err != nil {
		return "", err
	}

	g.mu.Lock()
	if g.current == cred {
		g.current.IDToken = token
	}
	g.mu.Unlock()
	return token, nil
}

// RecheckVerification reloads the account and re-tests the verification
// flag, reporting whether it is now set.
func (g *Gate) RecheckVerification(ctx context.Context) (bool, error) {
	g.mu.Lock()
	cred := g.current
	g.mu.Unlock()
	if cred == nil {
		return false, ErrNotAuthenticated
	}

	account, err := g.provider.Lookup(ctx, cred.IDToken)
	if err != nil {
		return false, err
	}

	g.mu.Lock()
	changed := cred.EmailVerified != account.EmailVerified
	cred.EmailVerified = account.EmailVerified
	listener := g.listener
	state, session := g.snapshot()
	g.mu.Unlock()

	if changed && listener != nil {
		listener(state, session)
	}
	return account.EmailVerified, nil
}

// ResendVerification mails a new verification link for the held credential.
func (g *Gate) ResendVerification(ctx context.Context) error {
	g.mu.Lock()
	cred := g.current
	g.mu.Unlock()
	if cred == nil {
		return ErrNotAuthenticated
	}
	return g.provider.SendVerification(ctx, cred.IDToken)
}

// SendPasswordReset mails a password-reset link. The address defaults to
// the held credential's when empty.
func (g *Gate) SendPasswordReset(ctx context.Context, email string) error {
	if email == "" {
		g.mu.Lock()
		if g.current != nil {
			email = g.current.Email
		}
		g.mu.Unlock()
	}
	if email == "" {
		return errors.New("an email address is required")
	}
	return g.provider.SendPasswordReset(ctx, email)
}

func (g *Gate) setCredential(cred *identity.Credential) {
	g.mu.Lock()
	g.current = cred
	listener := g.listener
	state, session := g.snapshot()
	g.mu.Unlock()

	if listener != nil {
		listener(state, session)
	}
}

func (g *Gate) snapshot() (State, *Session) {
	if g.current == nil {
		return StateSignedOut, nil
	}
	session := &Session{
		UID:           g.current.UID,
		Email:         g.current.Email,
		EmailVerified: g.current.EmailVerified,
	}
	if !g.current.EmailVerified {
		return StateUnverified, session
	}
	return StateVerified, session
}
