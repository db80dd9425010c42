package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	domain "github.com/recava/recava-server/internal/domain/agentconfig"
	"github.com/recava/recava-server/internal/interfaces/httpserver/requests"
	"github.com/recava/recava-server/internal/interfaces/httpserver/responses"
)

// AgentConfigHandler exposes the admin agent configuration editor endpoints.
type AgentConfigHandler struct {
	service domain.Service
	log     zerolog.Logger
}

// NewAgentConfigHandler wires dependencies for agent configuration routes.
func NewAgentConfigHandler(service domain.Service, log zerolog.Logger) *AgentConfigHandler {
	return &AgentConfigHandler{
		service: service,
		log:     log.With().Str("handler", "agentconfig").Logger(),
	}
}

// Get handles GET /admin/agents-config
// @Summary Read the agent configuration
// @Tags Admin
// @Produce json
// @Success 200 {object} agentconfig.Document
// @Failure 401 {object} responses.ErrorBody
// @Failure 500 {object} responses.ErrorBody
// @Router /admin/agents-config [get]
func (h *AgentConfigHandler) Get(c *gin.Context) {
	doc, err := h.service.Get(c.Request.Context())
	if err != nil {
		responses.HandleError(c, err, "could not load agent configuration")
		return
	}
	c.JSON(http.StatusOK, doc)
}

// Update handles PUT /admin/agents-config
// @Summary Persist and reload the agent configuration
// @Tags Admin
// @Accept json
// @Produce json
// @Success 200 {object} agentconfig.Document
// @Failure 400 {object} responses.ErrorBody
// @Failure 401 {object} responses.ErrorBody
// @Failure 500 {object} responses.ErrorBody
// @Router /admin/agents-config [put]
func (h *AgentConfigHandler) Update(c *gin.Context) {
	var req requests.AgentConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.AbortWithError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	saved, err := h.service.Update(c.Request.Context(), domain.Document{
		YAML:         req.YAML,
		Instructions: req.Instructions,
	})
	if err != nil {
		responses.HandleError(c, err, "could not save agent configuration")
		return
	}
	c.JSON(http.StatusOK, saved)
}
