package auth

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	Keys   KeyChecker
	Tokens TokenService
}

func NewHandler(keys KeyChecker, tokens TokenService) *Handler {
	return &Handler{Keys: keys, Tokens: tokens}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/token", h.token)
}

type tokenReq struct {
	AdminKey string `json:"admin_key"`
}

// token exchanges the admin key for a short-lived bearer token.
func (h *Handler) token(c *gin.Context) {
	var req tokenReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	if !h.Keys.Check(req.AdminKey) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden. Invalid admin key."})
		return
	}

	token, exp, err := h.Tokens.Sign()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"expires_at": exp.UTC().Format(time.RFC3339),
	})
}
