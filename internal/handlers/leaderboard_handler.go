package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"owatch/internal/auth"
	"owatch/internal/services"
)

type LeaderboardHandler struct {
	leaderboardService *services.LeaderboardService
	profileService     *services.ProfileService
}

func NewLeaderboardHandler(leaderboardService *services.LeaderboardService, profileService *services.ProfileService) *LeaderboardHandler {
	return &LeaderboardHandler{
		leaderboardService: leaderboardService,
		profileService:     profileService,
	}
}

// GetLeaderboard returns the top profiles by points. Falls back to the
// database when Redis is not configured.
func (h *LeaderboardHandler) GetLeaderboard(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	if h.leaderboardService == nil {
		profiles, err := h.profileService.GetTopProfiles(limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch leaderboard"})
			return
		}

		entries := make([]services.LeaderboardEntry, 0, len(profiles))
		for i, profile := range profiles {
			entries = append(entries, services.LeaderboardEntry{
				Rank:      int64(i + 1),
				ProfileID: profile.ID,
				Username:  profile.Username,
				AvatarURL: profile.AvatarURL,
				Points:    profile.TotalPoints,
			})
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"data":    entries,
		})
		return
	}

	entries, err := h.leaderboardService.GetTop(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch leaderboard"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    entries,
	})
}

// GetMyRank returns the caller's leaderboard position
func (h *LeaderboardHandler) GetMyRank(c *gin.Context) {
	profileID, _ := auth.GetProfileID(c)

	if h.leaderboardService == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Leaderboard ranking unavailable"})
		return
	}

	rank, points, err := h.leaderboardService.GetRank(c.Request.Context(), profileID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch rank"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"profile_id": profileID,
			"rank":       rank,
			"points":     points,
		},
	})
}
