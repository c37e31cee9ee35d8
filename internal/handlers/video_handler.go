package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"owatch/internal/auth"
	"owatch/internal/models"
	"owatch/internal/services"
)

type VideoHandler struct {
	videoService *services.VideoService
}

func NewVideoHandler(videoService *services.VideoService) *VideoHandler {
	return &VideoHandler{videoService: videoService}
}

// GetVideos returns the catalog with optional category filtering
func (h *VideoHandler) GetVideos(c *gin.Context) {
	category := c.Query("category")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	videos, err := h.videoService.ListVideos(category, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch videos"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    videos,
		"count":   len(videos),
	})
}

// GetVideoByID returns a single catalog entry
func (h *VideoHandler) GetVideoByID(c *gin.Context) {
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

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    video,
	})
}

// CreateVideo adds a video to the catalog
func (h *VideoHandler) CreateVideo(c *gin.Context) {
	var req struct {
		YoutubeID               string     `json:"youtube_id" binding:"required"`
		Title                   string     `json:"title" binding:"required"`
		ThumbnailURL            *string    `json:"thumbnail_url"`
		PublishedAt             *time.Time `json:"published_at"`
		RewardPointsAmount      int64      `json:"reward_points_amount" binding:"required"`
		RequiredDurationSeconds int        `json:"required_duration_seconds" binding:"required"`
		Category                *string    `json:"category"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	video := &models.RewardVideo{
		YoutubeID:               req.YoutubeID,
		Title:                   req.Title,
		ThumbnailURL:            req.ThumbnailURL,
		PublishedAt:             req.PublishedAt,
		RewardPointsAmount:      req.RewardPointsAmount,
		RequiredDurationSeconds: req.RequiredDurationSeconds,
		Category:                req.Category,
	}
	if err := h.videoService.CreateVideo(video); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    video,
	})
}

// GetProgress returns the caller's progress on one video
func (h *VideoHandler) GetProgress(c *gin.Context) {
	profileID, _ := auth.GetProfileID(c)

	videoID, err := parseVideoID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid video id"})
		return
	}

	progress, err := h.videoService.GetProgress(profileID, videoID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch progress"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    progress,
	})
}

// ListProgress returns all of the caller's progress rows
func (h *VideoHandler) ListProgress(c *gin.Context) {
	profileID, _ := auth.GetProfileID(c)

	rows, err := h.videoService.ListProgress(profileID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch progress"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    rows,
		"count":   len(rows),
	})
}

func parseVideoID(c *gin.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	return uint(id), err
}
