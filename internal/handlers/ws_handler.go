package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"owatch/internal/auth"
	"owatch/internal/logger"
	"owatch/internal/ws"
)

type WSHandler struct {
	hub    *ws.Hub
	logger zerolog.Logger
}

func NewWSHandler(hub *ws.Hub, logger zerolog.Logger) *WSHandler {
	return &WSHandler{hub: hub, logger: logger}
}

// Connect upgrades the request to a websocket bound to the caller's profile
func (h *WSHandler) Connect(c *gin.Context) {
	profileID, ok := auth.GetProfileID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	ws.ServeWs(h.hub, profileID, logger.WithProfile(h.logger, profileID), c.Writer, c.Request)
}
