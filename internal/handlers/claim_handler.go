package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"owatch/internal/auth"
	"owatch/internal/blockchain"
	"owatch/internal/metrics"
	"owatch/internal/models"
	"owatch/internal/services"
)

// ClaimHandler serves the on-chain claim flow. Only registered when the
// server runs in on-chain reward mode.
type ClaimHandler struct {
	claimService *services.ClaimService
	chain        *blockchain.Client
	rate         decimal.Decimal
}

func NewClaimHandler(claimService *services.ClaimService, chain *blockchain.Client, rate decimal.Decimal) *ClaimHandler {
	return &ClaimHandler{claimService: claimService, chain: chain, rate: rate}
}

// GetInfo returns what the client needs to build claim transactions
func (h *ClaimHandler) GetInfo(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"chain_id":        h.chain.ChainID(),
			"reward_contract": h.chain.RewardContract(),
			"conversion_rate": h.rate,
		},
	})
}

// CreateConversion deducts points and issues a signed claim authorization
// for the equivalent tokens
func (h *ClaimHandler) CreateConversion(c *gin.Context) {
	profileID, _ := auth.GetProfileID(c)
	wallet, _ := auth.GetWalletAddress(c)

	var req struct {
		Points int64 `json:"points" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	authz, err := h.claimService.CreateConversion(profileID, wallet, req.Points)
	if err != nil {
		if errors.Is(err, services.ErrInsufficientPoints) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Insufficient points balance"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	metrics.RecordClaim(models.ClaimStatusPending)

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    authz,
	})
}

// Confirm attaches the submitted tx hash and waits for inclusion
func (h *ClaimHandler) Confirm(c *gin.Context) {
	profileID, _ := auth.GetProfileID(c)

	claimID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid claim id"})
		return
	}

	var req struct {
		TxHash string `json:"tx_hash" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	claim, err := h.claimService.Confirm(c.Request.Context(), profileID, uint(claimID), req.TxHash)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrClaimNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Claim not found"})
		case errors.Is(err, services.ErrClaimNotPending):
			c.JSON(http.StatusConflict, gin.H{"error": "Claim is not pending"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to confirm claim"})
		}
		return
	}

	metrics.RecordClaim(claim.Status)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    claim,
	})
}

// ListClaims returns the caller's claim history
func (h *ClaimHandler) ListClaims(c *gin.Context) {
	profileID, _ := auth.GetProfileID(c)

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	claims, err := h.claimService.ListClaims(profileID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch claims"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    claims,
		"count":   len(claims),
	})
}

// GetTokenBalance reads the caller's on-chain token balance
func (h *ClaimHandler) GetTokenBalance(c *gin.Context) {
	wallet, _ := auth.GetWalletAddress(c)

	balance, err := h.chain.GetTokenBalance(c.Request.Context(), wallet)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to read token balance"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"wallet_address": wallet,
			"balance":        balance,
		},
	})
}
