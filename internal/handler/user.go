package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"cortex-server/internal/middleware"
	"cortex-server/internal/store"
	"cortex-server/internal/user"
	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	Users  *user.Service
	Logger *slog.Logger
}

func (h *UserHandler) Create(c *gin.Context) {
	var in user.CreateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body."})
		return
	}

	u, _, err := h.Users.Create(c.Request.Context(), in)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, u)
}

func (h *UserHandler) Get(c *gin.Context) {
	h.get(c, c.Param("id"))
}

func (h *UserHandler) Me(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid authentication token."})
		return
	}
	h.get(c, userID)
}

func (h *UserHandler) get(c *gin.Context, id string) {
	u, err := h.Users.Get(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *UserHandler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, user.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
	case errors.Is(err, store.ErrRoleNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": "Role identifier not found."})
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": "User not found."})
	case errors.Is(err, store.ErrInvalidRelation):
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid Sector or Role relation."})
	default:
		logger(h.Logger).Error("user request failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error."})
	}
}

func logger(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return l
}
