package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"owatch/internal/auth"
	"owatch/internal/services"
	"owatch/internal/tracker"
)

type WatchHandler struct {
	videoService *services.VideoService
	sessions     *tracker.Manager
}

func NewWatchHandler(videoService *services.VideoService, sessions *tracker.Manager) *WatchHandler {
	return &WatchHandler{videoService: videoService, sessions: sessions}
}

// StartSession opens a watch session for a video. An existing session for
// the same video is replaced.
func (h *WatchHandler) StartSession(c *gin.Context) {
	profileID, _ := auth.GetProfileID(c)
	wallet, _ := auth.GetWalletAddress(c)

	videoID, err := parseVideoID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid video id"})
		return
	}

	video, err := h.videoService.GetVideo(videoID)
	if err != nil {
		if errors.Is(err, services.ErrVideoNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Video not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch video"})
		return
	}

	session, err := h.sessions.Start(profileID, wallet, video)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start watch session"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    session.State(),
	})
}

// Heartbeat reports playback position and watched time for a live session
func (h *WatchHandler) Heartbeat(c *gin.Context) {
	profileID, _ := auth.GetProfileID(c)

	videoID, err := parseVideoID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid video id"})
		return
	}

	var req struct {
		Position     int     `json:"position"`
		WatchedDelta float64 `json:"watched_delta"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session, ok := h.sessions.Get(profileID, videoID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "No active watch session"})
		return
	}

	state := session.Heartbeat(req.Position, req.WatchedDelta)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    state,
	})
}

// StopSession closes a session, flushing progress to the database
func (h *WatchHandler) StopSession(c *gin.Context) {
	profileID, _ := auth.GetProfileID(c)

	videoID, err := parseVideoID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid video id"})
		return
	}

	state, ok := h.sessions.Stop(profileID, videoID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "No active watch session"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    state,
	})
}
