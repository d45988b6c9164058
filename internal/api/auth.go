package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"collegeattend/internal/auth"
)

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failBind(c, err)
		return
	}
	u, tokens, err := h.Auth.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		failErr(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"user": u, "tokens": tokens})
}

func (h *Handler) Refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refreshToken" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		failBind(c, err)
		return
	}
	tokens, err := h.Auth.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		failErr(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"tokens": tokens})
}

func (h *Handler) Logout(c *gin.Context) {
	claims, _ := auth.ClaimsFrom(c)
	if err := h.Auth.Logout(c.Request.Context(), claims.Subject); err != nil {
		failErr(c, err)
		return
	}
	respondMessage(c, "logged out")
}

func (h *Handler) Verify(c *gin.Context) {
	claims, _ := auth.ClaimsFrom(c)
	u, err := h.Auth.Me(c.Request.Context(), claims)
	if err != nil {
		failErr(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"user": u})
}

func (h *Handler) ChangePassword(c *gin.Context) {
	var req struct {
		CurrentPassword string `json:"currentPassword" binding:"required"`
		NewPassword     string `json:"newPassword" binding:"required,min=6,nefield=CurrentPassword"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		failBind(c, err)
		return
	}
	claims, _ := auth.ClaimsFrom(c)
	if err := h.Auth.ChangePassword(c.Request.Context(), claims.Subject, req.CurrentPassword, req.NewPassword); err != nil {
		failErr(c, err)
		return
	}
	respondMessage(c, "password changed")
}
