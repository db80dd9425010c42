package responses

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/recava/recava-server/internal/domain/agentconfig"
	"github.com/recava/recava-server/internal/domain/billing"
	"github.com/recava/recava-server/internal/domain/history"
)

// ErrorBody is the structured JSON error envelope returned to clients.
// Detail stays server-side; only the message crosses the wire.
type ErrorBody struct {
	Error string `json:"error"`
}

// AbortWithError writes a structured error with an explicit status.
func AbortWithError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, ErrorBody{Error: message})
}

// HandleError maps domain sentinel errors to conventional status codes,
// falling back to 500 with the given message.
func HandleError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, history.ErrRecordNotFound):
		AbortWithError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, agentconfig.ErrInvalidYAML):
		AbortWithError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, billing.ErrInvalidCreditAmount):
		AbortWithError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, billing.ErrInsufficientCredits):
		AbortWithError(c, http.StatusPaymentRequired, err.Error())
	default:
		AbortWithError(c, http.StatusInternalServerError, fallback)
	}
}
