package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"owatch/internal/blockchain"
	"owatch/internal/metrics"
	"owatch/internal/models"
)

var (
	// ErrClaimNotFound is returned when a claim lookup misses.
	ErrClaimNotFound = errors.New("claim not found")

	// ErrClaimNotPending is returned when a confirmation is submitted for a
	// claim that already left the pending state.
	ErrClaimNotPending = errors.New("claim is not pending")
)

// ChainConfirmer waits for transaction inclusion. Satisfied by
// blockchain.Client; tests substitute a fake.
type ChainConfirmer interface {
	WaitForReceipt(ctx context.Context, txHash string, timeout time.Duration) (*types.Receipt, error)
}

// ClaimService manages on-chain token claims: video reward claims and
// point-to-token conversions
type ClaimService struct {
	db             *gorm.DB
	logger         zerolog.Logger
	signer         *blockchain.ClaimSigner
	chain          ChainConfirmer
	rate           decimal.Decimal
	confirmTimeout time.Duration
	hooks          []PointsHook
}

// NewClaimService creates a new claim service
func NewClaimService(db *gorm.DB, logger zerolog.Logger, signer *blockchain.ClaimSigner, chain ChainConfirmer, rate decimal.Decimal, confirmTimeout time.Duration) *ClaimService {
	return &ClaimService{
		db:             db,
		logger:         logger,
		signer:         signer,
		chain:          chain,
		rate:           rate,
		confirmTimeout: confirmTimeout,
	}
}

// AddPointsHook registers a hook invoked after a confirmed reward claim
// credits its points
func (s *ClaimService) AddPointsHook(hook PointsHook) {
	s.hooks = append(s.hooks, hook)
}

// ClaimAuthorization is everything the client needs to submit the claim
// transaction itself
type ClaimAuthorization struct {
	Claim     *models.ClaimTransaction `json:"claim"`
	Amount    string                   `json:"amount"`
	Signature string                   `json:"signature"`
}

// CreateRewardClaim creates a pending claim for a video reward and signs the
// authorization the contract verifies. No points move yet; the watch points
// are credited when the claim confirms.
func (s *ClaimService) CreateRewardClaim(profileID, walletAddress string, video *models.RewardVideo) (*ClaimAuthorization, error) {
	amount := blockchain.PointsToTokenAmount(video.RewardPointsAmount, s.rate)

	signature, err := s.signer.SignClaim(walletAddress, amount)
	if err != nil {
		return nil, fmt.Errorf("failed to authorize claim: %w", err)
	}

	claim := &models.ClaimTransaction{
		ProfileID:      profileID,
		SourceVideoID:  &video.ID,
		PointsDeducted: 0,
		TokenMinted:    s.rate.Mul(decimal.NewFromInt(video.RewardPointsAmount)),
		ConversionRate: s.rate,
		Status:         models.ClaimStatusPending,
	}
	if err := s.db.Create(claim).Error; err != nil {
		return nil, fmt.Errorf("failed to create reward claim: %w", err)
	}

	s.logger.Info().
		Str("profile_id", profileID).
		Uint("claim_id", claim.ID).
		Uint("video_id", video.ID).
		Str("token_amount", claim.TokenMinted.String()).
		Msg("reward claim authorized")

	return &ClaimAuthorization{Claim: claim, Amount: amount.String(), Signature: signature}, nil
}

// CreateConversion deducts points and creates a pending claim for the
// equivalent tokens. The deduction and the claim row are one transaction, so
// a short balance leaves no partial state.
func (s *ClaimService) CreateConversion(profileID, walletAddress string, points int64) (*ClaimAuthorization, error) {
	if points <= 0 {
		return nil, fmt.Errorf("conversion amount must be positive, got %d", points)
	}

	// Sign before touching the database; a signing failure must not strand
	// deducted points behind a claim that can never be submitted.
	amount := blockchain.PointsToTokenAmount(points, s.rate)
	signature, err := s.signer.SignClaim(walletAddress, amount)
	if err != nil {
		return nil, fmt.Errorf("failed to authorize claim: %w", err)
	}

	claim := &models.ClaimTransaction{
		ProfileID:      profileID,
		PointsDeducted: points,
		TokenMinted:    s.rate.Mul(decimal.NewFromInt(points)),
		ConversionRate: s.rate,
		Status:         models.ClaimStatusPending,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(claim).Error; err != nil {
			return fmt.Errorf("failed to create conversion: %w", err)
		}
		return DeductPointsTx(tx, profileID, points, models.PointSourceConversion, &claim.ID)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("profile_id", profileID).
		Uint("claim_id", claim.ID).
		Int64("points", points).
		Str("token_amount", claim.TokenMinted.String()).
		Msg("conversion created")

	return &ClaimAuthorization{Claim: claim, Amount: amount.String(), Signature: signature}, nil
}

// Confirm attaches the submitted transaction hash to a pending claim and
// waits for inclusion. Success and failure are both terminal; a failed
// conversion refunds its deducted points.
func (s *ClaimService) Confirm(ctx context.Context, profileID string, claimID uint, txHash string) (*models.ClaimTransaction, error) {
	claim, err := s.GetClaim(profileID, claimID)
	if err != nil {
		return nil, err
	}
	if claim.Status != models.ClaimStatusPending {
		return nil, ErrClaimNotPending
	}

	updates := map[string]interface{}{
		"status":  models.ClaimStatusConfirming,
		"tx_hash": txHash,
	}
	result := s.db.Model(&models.ClaimTransaction{}).
		Where("id = ? AND status = ?", claimID, models.ClaimStatusPending).
		Updates(updates)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to move claim to confirming: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrClaimNotPending
	}

	receipt, err := s.chain.WaitForReceipt(ctx, txHash, s.confirmTimeout)
	switch {
	case err != nil:
		return s.failClaim(claim, fmt.Sprintf("confirmation failed: %v", err))
	case receipt.Status != types.ReceiptStatusSuccessful:
		return s.failClaim(claim, "transaction reverted")
	default:
		return s.succeedClaim(claim)
	}
}

func (s *ClaimService) succeedClaim(claim *models.ClaimTransaction) (*models.ClaimTransaction, error) {
	var credited int64
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.ClaimTransaction{}).
			Where("id = ?", claim.ID).
			Update("status", models.ClaimStatusSuccess).Error; err != nil {
			return fmt.Errorf("failed to mark claim successful: %w", err)
		}

		// A confirmed video reward credits the watch points alongside the
		// minted tokens; conversions already paid with theirs.
		if claim.SourceVideoID != nil && claim.PointsDeducted == 0 {
			var video models.RewardVideo
			if err := tx.First(&video, *claim.SourceVideoID).Error; err != nil {
				return fmt.Errorf("failed to load reward video: %w", err)
			}
			credited = video.RewardPointsAmount
			return AwardPointsTx(tx, claim.ProfileID, credited, models.PointSourceVideoWatch, claim.SourceVideoID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if credited > 0 {
		metrics.RecordPointsAwarded(models.PointSourceVideoWatch, credited)
		for _, hook := range s.hooks {
			hook(claim.ProfileID, credited, models.PointSourceVideoWatch)
		}
	}

	s.logger.Info().
		Str("profile_id", claim.ProfileID).
		Uint("claim_id", claim.ID).
		Int64("points_credited", credited).
		Msg("claim confirmed")

	return s.GetClaim(claim.ProfileID, claim.ID)
}

func (s *ClaimService) failClaim(claim *models.ClaimTransaction, reason string) (*models.ClaimTransaction, error) {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"status":         models.ClaimStatusFailed,
			"failure_reason": reason,
		}
		if err := tx.Model(&models.ClaimTransaction{}).Where("id = ?", claim.ID).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to mark claim failed: %w", err)
		}

		// Conversions give the deducted points back; reward claims moved
		// nothing.
		if claim.PointsDeducted > 0 {
			return AwardPointsTx(tx, claim.ProfileID, claim.PointsDeducted, models.PointSourceConversion, &claim.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Warn().
		Str("profile_id", claim.ProfileID).
		Uint("claim_id", claim.ID).
		Str("reason", reason).
		Msg("claim failed")

	return s.GetClaim(claim.ProfileID, claim.ID)
}

// GetClaim gets a claim owned by the given profile
func (s *ClaimService) GetClaim(profileID string, claimID uint) (*models.ClaimTransaction, error) {
	var claim models.ClaimTransaction
	err := s.db.Where("id = ? AND profile_id = ?", claimID, profileID).First(&claim).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClaimNotFound
		}
		return nil, fmt.Errorf("failed to get claim: %w", err)
	}
	return &claim, nil
}

// ListClaims lists a profile's claims, newest first
func (s *ClaimService) ListClaims(profileID string, limit int) ([]models.ClaimTransaction, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	var claims []models.ClaimTransaction
	err := s.db.Where("profile_id = ?", profileID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&claims).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list claims: %w", err)
	}
	return claims, nil
}
