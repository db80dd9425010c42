package auth

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/recava/recava-server/internal/config"
)

// Context keys set by the middleware for downstream handlers.
const (
	ContextUserID        = "auth_user_id"
	ContextUserEmail     = "auth_user_email"
	ContextEmailVerified = "auth_email_verified"
)

// Claims carries the identity fields extracted from a verified token.
type Claims struct {
	UID           string
	Email         string
	EmailVerified bool
}

// Validator validates identity-provider JWTs using JWKS.
type Validator struct {
	cfg  *config.Config
	log  zerolog.Logger
	jwks *keyfunc.JWKS
}

// NewValidator initializes JWKS fetching when auth is enabled.
func NewValidator(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Validator, error) {
	if !cfg.AuthEnabled {
		return &Validator{cfg: cfg, log: log}, nil
	}

	options := keyfunc.Options{
		Ctx:               ctx,
		RefreshInterval:   time.Hour,
		RefreshUnknownKID: true,
		RefreshErrorHandler: func(err error) {
			log.Error().Err(err).Msg("jwks refresh error")
		},
	}

	jwks, err := keyfunc.Get(cfg.AuthJWKSURL, options)
	if err != nil {
		return nil, err
	}

	return &Validator{
		cfg:  cfg,
		log:  log,
		jwks: jwks,
	}, nil
}

// Middleware enforces bearer auth and the verified-email contract:
// missing or invalid tokens get 401, valid tokens whose account has not
// confirmed its email get 403.
func (v *Validator) Middleware() gin.HandlerFunc {
	if v == nil || !v.cfg.AuthEnabled {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return func(c *gin.Context) {
		tokenString := bearerToken(c.GetHeader("Authorization"))
		if tokenString == "" {
			abortUnauthorized(c, "missing or invalid Authorization header")
			return
		}

		claims, err := v.verify(tokenString)
		if err != nil {
			v.log.Warn().Err(err).Msg("token verification failed")
			abortUnauthorized(c, "unauthorized")
			return
		}
		if !claims.EmailVerified {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "email not verified",
			})
			return
		}

		c.Set(ContextUserID, claims.UID)
		c.Set(ContextUserEmail, claims.Email)
		c.Set(ContextEmailVerified, claims.EmailVerified)
		c.Next()
	}
}

func (v *Validator) verify(tokenString string) (*Claims, error) {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, v.jwks.Keyfunc,
		jwt.WithAudience(v.cfg.AuthProject),
		jwt.WithIssuer(v.cfg.AuthIssuer),
		jwt.WithValidMethods([]string{"RS256", "RS384", "RS512"}),
	)
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, jwt.ErrTokenUnverifiable
	}

	out := &Claims{}
	if sub, err := claims.GetSubject(); err == nil {
		out.UID = sub
	}
	if email, ok := claims["email"].(string); ok {
		out.Email = email
	}
	if verified, ok := claims["email_verified"].(bool); ok {
		out.EmailVerified = verified
	}
	return out, nil
}

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": message,
	})
}
