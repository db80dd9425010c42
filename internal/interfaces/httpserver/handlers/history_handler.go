package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	domain "github.com/recava/recava-server/internal/domain/history"
	"github.com/recava/recava-server/internal/interfaces/httpserver/requests"
	"github.com/recava/recava-server/internal/interfaces/httpserver/responses"
)

// HistoryHandler exposes the chat history review endpoints used by the
// admin panel.
type HistoryHandler struct {
	service domain.Service
	log     zerolog.Logger
}

// NewHistoryHandler wires dependencies for history routes.
func NewHistoryHandler(service domain.Service, log zerolog.Logger) *HistoryHandler {
	return &HistoryHandler{
		service: service,
		log:     log.With().Str("handler", "history").Logger(),
	}
}

// GetChatHistory handles POST /getChatHistory
// @Summary List chat history
// @Description Returns the most recent chat records, optionally filtered by a search term
// @Tags History
// @Accept json
// @Produce json
// @Success 200 {object} map[string]any
// @Failure 401 {object} responses.ErrorBody
// @Failure 500 {object} responses.ErrorBody
// @Router /getChatHistory [post]
func (h *HistoryHandler) GetChatHistory(c *gin.Context) {
	var req requests.GetChatHistoryRequest
	// An empty or absent body means an unfiltered listing.
	_ = c.ShouldBindJSON(&req)

	records, err := h.service.GetHistory(c.Request.Context(), req.Data.SearchTerm)
	if err != nil {
		responses.HandleError(c, err, "could not fetch chat history")
		return
	}

	c.JSON(http.StatusOK, gin.H{"history": records})
}

// UpdateExpertResponse handles POST /updateExpertResponse
// @Summary Update the expert response of one record
// @Tags History
// @Accept json
// @Produce json
// @Success 200 {object} map[string]any
// @Failure 400 {object} responses.ErrorBody
// @Failure 404 {object} responses.ErrorBody
// @Failure 500 {object} responses.ErrorBody
// @Router /updateExpertResponse [post]
func (h *HistoryHandler) UpdateExpertResponse(c *gin.Context) {
	var req requests.UpdateExpertResponseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.AbortWithError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Data.ID == "" || req.Data.ExpertResponse == nil {
		responses.AbortWithError(c, http.StatusBadRequest, "an 'id' and a valid 'expertResponse' are required")
		return
	}

	if err := h.service.UpdateExpertResponse(c.Request.Context(), req.Data.ID, *req.Data.ExpertResponse); err != nil {
		responses.HandleError(c, err, "could not update the expert response")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Record " + req.Data.ID + " updated successfully.",
	})
}
