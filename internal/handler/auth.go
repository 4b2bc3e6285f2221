package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"cortex-server/internal/auth"
	"cortex-server/internal/user"
	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	Users       *user.Service
	TokenConfig auth.TokenConfig
	Logger      *slog.Logger
}

type loginBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login exchanges email and password for a bearer token. The same token
// authenticates the websocket "auth" event.
func (h *AuthHandler) Login(c *gin.Context) {
	var body loginBody
	if err := c.ShouldBindJSON(&body); err != nil || body.Email == "" || body.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body."})
		return
	}

	u, err := h.Users.Authenticate(c.Request.Context(), body.Email, body.Password)
	if err != nil {
		if errors.Is(err, user.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid email or password."})
			return
		}
		logger(h.Logger).Error("login failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error."})
		return
	}

	token, err := auth.CreateToken(u.ID, u.RoleID, h.TokenConfig)
	if err != nil {
		logger(h.Logger).Error("token creation failed", "user", u.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Token creation failed."})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "token": token, "userId": u.ID})
}
