package handler

import (
	"net/http"

	"flashai/internal/models"

	"github.com/gin-gonic/gin"
)

func (h *Handler) createGeneration(c *gin.Context) {
	identity, ok := h.currentIdentity(c)
	if !ok {
		return
	}
	var req models.GenerateFlashcardsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	resp, err := h.generationService.Generate(c.Request.Context(), identity, req.SourceText)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	generationsTotal.WithLabelValues("success").Inc()
	c.JSON(http.StatusCreated, resp)
}
