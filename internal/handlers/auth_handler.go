package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"owatch/internal/auth"
	"owatch/internal/blockchain"
	"owatch/internal/services"
)

// LoginMessage is the fixed text wallets sign to authenticate
const LoginMessage = "Sign this message to authenticate with OWATCH"

type AuthHandler struct {
	profileService *services.ProfileService
}

func NewAuthHandler(profileService *services.ProfileService) *AuthHandler {
	return &AuthHandler{profileService: profileService}
}

// WalletLogin authenticates a wallet by signature. The profile is created on
// first login.
func (h *AuthHandler) WalletLogin(c *gin.Context) {
	var req struct {
		WalletAddress string `json:"wallet_address" binding:"required"`
		Signature     string `json:"signature" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !blockchain.ValidateWalletAddress(req.WalletAddress) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid wallet address"})
		return
	}

	signer, err := blockchain.RecoverPersonalSigner(LoginMessage, req.Signature)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid signature"})
		return
	}

	address := strings.ToLower(req.WalletAddress)
	if strings.ToLower(signer) != address {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Signature does not match wallet"})
		return
	}

	profile, err := h.profileService.EnsureProfile(address)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve profile"})
		return
	}

	token, err := auth.GenerateToken(profile.ID, address)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"token":   token,
		"profile": profile,
	})
}

// GetMe returns the authenticated profile
func (h *AuthHandler) GetMe(c *gin.Context) {
	profileID, ok := auth.GetProfileID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	profile, err := h.profileService.GetProfile(profileID)
	if err != nil {
		if err == services.ErrProfileNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Profile not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch profile"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    profile,
	})
}

// Logout is a no-op for stateless tokens; clients drop the token
func (h *AuthHandler) Logout(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// GetLoginMessage returns the text the wallet must sign
func (h *AuthHandler) GetLoginMessage(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": LoginMessage,
	})
}
