package handler

import (
	"net/http"

	"cortex-server/internal/hub"
	"github.com/gin-gonic/gin"
)

type HubHandler struct {
	Hub *hub.Hub
}

func (h *HubHandler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.Hub.Stats())
}
