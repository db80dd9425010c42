package identity

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

// Credential is the browser-held identity returned by sign-in and sign-up.
type Credential struct {
	UID           string
	Email         string
	EmailVerified bool
	IDToken       string
	RefreshToken  string
}

// Account is the server-side view of an account, returned by Lookup.
type Account struct {
	UID           string
	Email         string
	EmailVerified bool
}

// Provider is the identity-provider surface the session gate depends on.
type Provider interface {
	SignIn(ctx context.Context, email, password string) (Credential, error)
	SignUp(ctx context.Context, email, password string) (Credential, error)
	SendVerification(ctx context.Context, idToken string) error
	SendPasswordReset(ctx context.Context, email string) error
	Lookup(ctx context.Context, idToken string) (Account, error)
	Refresh(ctx context.Context, refreshToken string) (string, error)
}

// Config points the client at an identity-provider deployment. BaseURL and
// TokenURL allow targeting a local emulator.
type Config struct {
	BaseURL  string
	TokenURL string
	APIKey   string
}

// Client talks to the hosted identity provider's REST API.
type Client struct {
	cfg  Config
	http *resty.Client
	log  zerolog.Logger
}

var _ Provider = (*Client)(nil)

// NewClient builds an identity client.
func NewClient(cfg Config, log zerolog.Logger) *Client {
	return &Client{
		cfg:  cfg,
		http: resty.New(),
		log:  log.With().Str("component", "identity").Logger(),
	}
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

type credentialPayload struct {
	LocalID      string `json:"localId"`
	Email        string `json:"email"`
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
}

type lookupPayload struct {
	Users []struct {
		LocalID       string `json:"localId"`
		Email         string `json:"email"`
		EmailVerified bool   `json:"emailVerified"`
	} `json:"users"`
}

type refreshPayload struct {
	IDToken string `json:"id_token"`
}

// SignIn exchanges email and password for a credential.
func (c *Client) SignIn(ctx context.Context, email, password string) (Credential, error) {
	return c.credentialCall(ctx, "accounts:signInWithPassword", map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	})
}

// SignUp registers a new account and returns its credential. The account
// starts unverified.
func (c *Client) SignUp(ctx context.Context, email, password string) (Credential, error) {
	return c.credentialCall(ctx, "accounts:signUp", map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	})
}

// SendVerification asks the provider to mail a verification link to the
// credential's address.
func (c *Client) SendVerification(ctx context.Context, idToken string) error {
	return c.oobCall(ctx, map[string]any{
		"requestType": "VERIFY_EMAIL",
		"idToken":     idToken,
	})
}

// SendPasswordReset asks the provider to mail a password-reset link.
func (c *Client) SendPasswordReset(ctx context.Context, email string) error {
	return c.oobCall(ctx, map[string]any{
		"requestType": "PASSWORD_RESET",
		"email":       email,
	})
}

// Lookup reloads the account state behind a credential, including the
// current verification flag.
func (c *Client) Lookup(ctx context.Context, idToken string) (Account, error) {
	var result lookupPayload
	var apiErr apiError
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("key", c.cfg.APIKey).
		SetBody(map[string]any{"idToken": idToken}).
		SetResult(&result).
		SetError(&apiErr).
		Post(c.cfg.BaseURL + "/accounts:lookup")
	if err != nil {
		return Account{}, fmt.Errorf("account lookup: %w", err)
	}
	if resp.IsError() {
		return Account{}, providerError("account lookup", resp.StatusCode(), apiErr)
	}
	if len(result.Users) == 0 {
		return Account{}, fmt.Errorf("account lookup: no account for credential")
	}
	u := result.Users[0]
	return Account{UID: u.LocalID, Email: u.Email, EmailVerified: u.EmailVerified}, nil
}

// Refresh trades a refresh token for a fresh bearer token.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (string, error) {
	var result refreshPayload
	var apiErr apiError
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("key", c.cfg.APIKey).
		SetFormData(map[string]string{
			"grant_type":    "refresh_token",
			"refresh_token": refreshToken,
		}).
		SetResult(&result).
		SetError(&apiErr).
		Post(c.cfg.TokenURL + "/token")
	if err != nil {
		return "", fmt.Errorf("token refresh: %w", err)
	}
	if resp.IsError() {
		return "", providerError("token refresh", resp.StatusCode(), apiErr)
	}
	return result.IDToken, nil
}

func (c *Client) credentialCall(ctx context.Context, endpoint string, body map[string]any) (Credential, error) {
	var result credentialPayload
	var apiErr apiError
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("key", c.cfg.APIKey).
		SetBody(body).
		SetResult(&result).
		SetError(&apiErr).
		Post(c.cfg.BaseURL + "/" + endpoint)
	if err != nil {
		return Credential{}, fmt.Errorf("%s: %w", endpoint, err)
	}
	if resp.IsError() {
		return Credential{}, providerError(endpoint, resp.StatusCode(), apiErr)
	}
	return Credential{
		UID:          result.LocalID,
		Email:        result.Email,
		IDToken:      result.IDToken,
		RefreshToken: result.RefreshToken,
	}, nil
}

func (c *Client) oobCall(ctx context.Context, body map[string]any) error {
	var apiErr apiError
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("key", c.cfg.APIKey).
		SetBody(body).
		SetError(&apiErr).
		Post(c.cfg.BaseURL + "/accounts:sendOobCode")
	if err != nil {
		return fmt.Errorf("send oob code: %w", err)
	}
	if resp.IsError() {
		return providerError("send oob code", resp.StatusCode(), apiErr)
	}
	return nil
}

func providerError(op string, status int, apiErr apiError) error {
	if apiErr.Error.Message != "" {
		return fmt.Errorf("%s: %s", op, apiErr.Error.Message)
	}
	return fmt.Errorf("%s: provider returned status %d", op, status)
}
