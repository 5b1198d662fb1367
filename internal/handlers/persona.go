package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"linkbio/internal/middleware"
)

type personaRequest struct {
	Text string `json:"text" binding:"required"`
}

func (h HandlerSet) CreatePersonaEntry(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req personaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text required"})
		return
	}

	entry, err := h.persona.CreateEntry(c.Request.Context(), user.ID, req.Text)
	if err != nil {
		h.log.Error().Err(err).Msg("create persona entry failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}
	c.JSON(http.StatusOK, entry)
}

func (h HandlerSet) GeneratePersonaImage(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	url, err := h.persona.GenerateImage(c.Request.Context(), user.ID, c.Param("entryId"))
	if err != nil {
		// Single-shot call: the user retries by triggering the action again.
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"generatedImageUrl": url})
}
