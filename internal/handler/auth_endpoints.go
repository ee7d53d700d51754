package handler

import (
	"net/http"

	"flashai/internal/models"

	"github.com/gin-gonic/gin"
)

func (h *Handler) register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	resp, err := h.authService.Register(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	registrationsTotal.Inc()
	c.JSON(http.StatusCreated, resp)
}

func (h *Handler) login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	resp, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		loginsTotal.WithLabelValues("failure").Inc()
		h.handleServiceError(c, err)
		return
	}

	loginsTotal.WithLabelValues("success").Inc()
	c.JSON(http.StatusOK, resp)
}

// logout ничего не хранит на сервере: токен просто перестает использоваться клиентом.
func (h *Handler) logout(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

func (h *Handler) me(c *gin.Context) {
	identity, ok := h.currentIdentity(c)
	if !ok {
		return
	}
	user, err := h.authService.Me(c.Request.Context(), identity)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.MeResponse{User: user})
}

func (h *Handler) refresh(c *gin.Context) {
	identity, ok := h.currentIdentity(c)
	if !ok {
		return
	}
	resp, err := h.authService.Refresh(c.Request.Context(), identity)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	refreshesTotal.Inc()
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) changePassword(c *gin.Context) {
	identity, ok := h.currentIdentity(c)
	if !ok {
		return
	}
	var req models.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	resp, err := h.authService.ChangePassword(c.Request.Context(), identity, req.CurrentPassword, req.NewPassword)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
