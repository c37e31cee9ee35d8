package services

import (
	"fmt"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"owatch/internal/config"
	"owatch/internal/metrics"
	"owatch/internal/models"
)

// RewardResult describes what a completion produced: points credited
// directly, or a claim authorization the client must submit on-chain.
type RewardResult struct {
	Mode          string              `json:"mode"`
	PointsAwarded int64               `json:"points_awarded"`
	Authorization *ClaimAuthorization `json:"authorization,omitempty"`
}

// PointsHook is called after points land, outside the transaction. Used to
// fan out to the leaderboard, the event stream and websocket clients.
type PointsHook func(profileID string, amount int64, source string)

// RewardService turns a detected completion into its reward
type RewardService struct {
	db     *gorm.DB
	logger zerolog.Logger
	mode   string
	claims *ClaimService
	hooks  []PointsHook
}

// NewRewardService creates a new reward service. claims may be nil in
// off-chain mode.
func NewRewardService(db *gorm.DB, logger zerolog.Logger, mode string, claims *ClaimService) *RewardService {
	return &RewardService{db: db, logger: logger, mode: mode, claims: claims}
}

// AddPointsHook registers a post-award hook
func (s *RewardService) AddPointsHook(hook PointsHook) {
	s.hooks = append(s.hooks, hook)
}

// Dispatch records the completion and pays the reward. Off-chain mode marks
// the video completed and credits points in one transaction; on-chain mode
// marks it completed and issues a signed claim authorization instead.
// Returns ErrAlreadyCompleted if this profile already completed the video.
func (s *RewardService) Dispatch(profileID, walletAddress string, video *models.RewardVideo) (*RewardResult, error) {
	switch s.mode {
	case config.RewardModeOnChain:
		return s.dispatchOnChain(profileID, walletAddress, video)
	default:
		return s.dispatchOffChain(profileID, video)
	}
}

func (s *RewardService) dispatchOffChain(profileID string, video *models.RewardVideo) (*RewardResult, error) {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := CompleteVideoTx(tx, profileID, video.ID); err != nil {
			return err
		}
		return AwardPointsTx(tx, profileID, video.RewardPointsAmount, models.PointSourceVideoWatch, &video.ID)
	})
	if err != nil {
		return nil, err
	}

	metrics.VideoCompletionsTotal.Inc()
	metrics.RecordPointsAwarded(models.PointSourceVideoWatch, video.RewardPointsAmount)

	s.logger.Info().
		Str("profile_id", profileID).
		Uint("video_id", video.ID).
		Int64("points", video.RewardPointsAmount).
		Msg("video reward credited")

	s.runHooks(profileID, video.RewardPointsAmount, models.PointSourceVideoWatch)

	return &RewardResult{Mode: config.RewardModeOffChain, PointsAwarded: video.RewardPointsAmount}, nil
}

func (s *RewardService) dispatchOnChain(profileID, walletAddress string, video *models.RewardVideo) (*RewardResult, error) {
	if s.claims == nil {
		return nil, fmt.Errorf("on-chain rewards not configured")
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		return CompleteVideoTx(tx, profileID, video.ID)
	})
	if err != nil {
		return nil, err
	}

	metrics.VideoCompletionsTotal.Inc()

	auth, err := s.claims.CreateRewardClaim(profileID, walletAddress, video)
	if err != nil {
		// Completion already stands; the claim can be re-issued through the
		// claims endpoint.
		s.logger.Error().Err(err).
			Str("profile_id", profileID).
			Uint("video_id", video.ID).
			Msg("completion recorded but claim authorization failed")
		return nil, err
	}

	return &RewardResult{Mode: config.RewardModeOnChain, Authorization: auth}, nil
}

func (s *RewardService) runHooks(profileID string, amount int64, source string) {
	for _, hook := range s.hooks {
		hook(profileID, amount, source)
	}
}
