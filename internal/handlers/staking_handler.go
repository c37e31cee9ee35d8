package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"owatch/internal/auth"
	"owatch/internal/services"
)

type StakingHandler struct {
	stakingService *services.StakingService
}

func NewStakingHandler(stakingService *services.StakingService) *StakingHandler {
	return &StakingHandler{stakingService: stakingService}
}

// GetPools returns active staking pools
func (h *StakingHandler) GetPools(c *gin.Context) {
	pools, err := h.stakingService.ListPools()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch pools"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    pools,
	})
}

// Stake locks points into a pool
func (h *StakingHandler) Stake(c *gin.Context) {
	profileID, _ := auth.GetProfileID(c)

	var req struct {
		PoolID uint  `json:"pool_id" binding:"required"`
		Amount int64 `json:"amount" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	position, err := h.stakingService.Stake(profileID, req.PoolID, req.Amount)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrPoolNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Staking pool not found"})
		case errors.Is(err, services.ErrInsufficientPoints):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Insufficient points balance"})
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    position,
	})
}

// Unstake releases a position after its lock ends
func (h *StakingHandler) Unstake(c *gin.Context) {
	profileID, _ := auth.GetProfileID(c)

	positionID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid position id"})
		return
	}

	position, err := h.stakingService.Unstake(profileID, uint(positionID))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrStakeNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Staking position not found"})
		case errors.Is(err, services.ErrStakeLocked):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Staking position is still locked"})
		case errors.Is(err, services.ErrStakeNotActive):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Staking position is not active"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to unstake"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    position,
	})
}

// GetPositions returns the caller's staking positions
func (h *StakingHandler) GetPositions(c *gin.Context) {
	profileID, _ := auth.GetProfileID(c)

	positions, err := h.stakingService.ListPositions(profileID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch positions"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    positions,
		"count":   len(positions),
	})
}
