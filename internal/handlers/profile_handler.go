package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"owatch/internal/auth"
	"owatch/internal/services"
)

type ProfileHandler struct {
	profileService *services.ProfileService
	videoService   *services.VideoService
	stakingService *services.StakingService
}

func NewProfileHandler(profileService *services.ProfileService, videoService *services.VideoService, stakingService *services.StakingService) *ProfileHandler {
	return &ProfileHandler{
		profileService: profileService,
		videoService:   videoService,
		stakingService: stakingService,
	}
}

// GetProfile returns the authenticated profile with linked wallets
func (h *ProfileHandler) GetProfile(c *gin.Context) {
	profileID, _ := auth.GetProfileID(c)

	profile, err := h.profileService.GetProfile(profileID)
	if err != nil {
		if errors.Is(err, services.ErrProfileNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Profile not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch profile"})
		return
	}

	wallets, err := h.profileService.GetWallets(profileID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch wallets"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"profile": profile,
			"wallets": wallets,
		},
	})
}

// UpdateUsername changes the authenticated profile's username
func (h *ProfileHandler) UpdateUsername(c *gin.Context) {
	profileID, _ := auth.GetProfileID(c)

	var req struct {
		Username string `json:"username" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	profile, err := h.profileService.UpdateUsername(profileID, req.Username)
	if err != nil {
		if errors.Is(err, services.ErrProfileNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Profile not found"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    profile,
	})
}

// GetPointHistory returns the profile's ledger, optionally filtered by
// source
func (h *ProfileHandler) GetPointHistory(c *gin.Context) {
	profileID, _ := auth.GetProfileID(c)

	source := c.Query("source")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	var entries interface{}
	var err error
	if source != "" {
		entries, err = h.profileService.GetPointHistoryBySource(profileID, source, limit)
	} else {
		entries, err = h.profileService.GetPointHistory(profileID, limit)
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch point history"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    entries,
	})
}

// GetDailyPoints returns a zero-filled per-day earning summary
func (h *ProfileHandler) GetDailyPoints(c *gin.Context) {
	profileID, _ := auth.GetProfileID(c)

	days, _ := strconv.Atoi(c.DefaultQuery("days", "7"))

	buckets, err := h.profileService.GetDailyPoints(profileID, days)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch daily points"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    buckets,
	})
}

// GetStats aggregates watch and staking statistics for the profile page
func (h *ProfileHandler) GetStats(c *gin.Context) {
	profileID, _ := auth.GetProfileID(c)

	watchStats, err := h.videoService.GetCompletionStats(profileID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch watch stats"})
		return
	}

	stakingStats, err := h.stakingService.GetStakingStats(profileID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch staking stats"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"watch":   watchStats,
			"staking": stakingStats,
		},
	})
}
