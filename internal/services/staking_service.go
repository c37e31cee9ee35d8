package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"owatch/internal/models"
)

var (
	// ErrPoolNotFound is returned when a pool lookup misses or the pool is
	// inactive.
	ErrPoolNotFound = errors.New("staking pool not found")

	// ErrStakeNotFound is returned when a position lookup misses.
	ErrStakeNotFound = errors.New("staking position not found")

	// ErrStakeLocked is returned when an unstake arrives before the lock
	// period ends.
	ErrStakeLocked = errors.New("staking position is still locked")

	// ErrStakeNotActive is returned when the position already left the
	// staked state.
	ErrStakeNotActive = errors.New("staking position is not active")
)

// daysPerYear is the accrual basis for APY math.
var daysPerYear = decimal.NewFromInt(365)

// StakingService manages point staking: pools, positions, locks and reward
// accrual
type StakingService struct {
	db     *gorm.DB
	logger zerolog.Logger
}

// NewStakingService creates a new staking service
func NewStakingService(db *gorm.DB, logger zerolog.Logger) *StakingService {
	return &StakingService{db: db, logger: logger}
}

// ListPools lists active staking pools
func (s *StakingService) ListPools() ([]models.StakingPool, error) {
	var pools []models.StakingPool
	err := s.db.Where("status = ?", models.PoolStatusActive).
		Order("lock_period_days ASC, id ASC").
		Find(&pools).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list pools: %w", err)
	}
	return pools, nil
}

// GetPool gets an active pool by ID
func (s *StakingService) GetPool(poolID uint) (*models.StakingPool, error) {
	var pool models.StakingPool
	err := s.db.Where("id = ? AND status = ?", poolID, models.PoolStatusActive).First(&pool).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPoolNotFound
		}
		return nil, fmt.Errorf("failed to get pool: %w", err)
	}
	return &pool, nil
}

// Stake locks points into a pool. The position row and the point deduction
// are one transaction; a short balance leaves no position behind.
func (s *StakingService) Stake(profileID string, poolID uint, amount int64) (*models.StakingPosition, error) {
	pool, err := s.GetPool(poolID)
	if err != nil {
		return nil, err
	}

	if amount < pool.MinStake {
		return nil, fmt.Errorf("stake amount %d below pool minimum %d", amount, pool.MinStake)
	}
	if pool.MaxStake > 0 && amount > pool.MaxStake {
		return nil, fmt.Errorf("stake amount %d above pool maximum %d", amount, pool.MaxStake)
	}

	now := time.Now().UTC()
	position := &models.StakingPosition{
		ProfileID:    profileID,
		PoolID:       pool.ID,
		AmountStaked: amount,
		RewardEarned: decimal.Zero,
		StartDate:    now,
		Status:       models.StakeStatusStaked,
	}
	if pool.LockPeriodDays > 0 {
		end := now.AddDate(0, 0, pool.LockPeriodDays)
		position.EstimatedEndDate = &end
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(position).Error; err != nil {
			return fmt.Errorf("failed to create staking position: %w", err)
		}
		return DeductPointsTx(tx, profileID, amount, models.PointSourceStakingStake, &position.ID)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("profile_id", profileID).
		Uint("pool_id", pool.ID).
		Uint("position_id", position.ID).
		Int64("amount", amount).
		Msg("points staked")

	position.Pool = pool
	return position, nil
}

// Unstake releases a position after its lock ends, crediting the principal
// and the earned reward back to the point balance in one transaction
func (s *StakingService) Unstake(profileID string, positionID uint) (*models.StakingPosition, error) {
	var position models.StakingPosition
	err := s.db.Preload("Pool").
		Where("id = ? AND profile_id = ?", positionID, profileID).
		First(&position).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStakeNotFound
		}
		return nil, fmt.Errorf("failed to get staking position: %w", err)
	}

	if position.Status != models.StakeStatusStaked {
		return nil, ErrStakeNotActive
	}

	now := time.Now().UTC()
	if position.EstimatedEndDate != nil && now.Before(*position.EstimatedEndDate) {
		return nil, ErrStakeLocked
	}

	reward := s.finalReward(&position)
	rewardPoints := reward.Round(0).IntPart()

	err = s.db.Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"status":        models.StakeStatusUnlocked,
			"reward_earned": reward,
		}
		result := tx.Model(&models.StakingPosition{}).
			Where("id = ? AND status = ?", position.ID, models.StakeStatusStaked).
			Updates(updates)
		if result.Error != nil {
			return fmt.Errorf("failed to unlock position: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrStakeNotActive
		}

		if err := AwardPointsTx(tx, profileID, position.AmountStaked, models.PointSourceStakingUnlock, &position.ID); err != nil {
			return err
		}
		if rewardPoints > 0 {
			return AwardPointsTx(tx, profileID, rewardPoints, models.PointSourceStakingReward, &position.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("profile_id", profileID).
		Uint("position_id", position.ID).
		Int64("principal", position.AmountStaked).
		Int64("reward", rewardPoints).
		Msg("points unstaked")

	position.Status = models.StakeStatusUnlocked
	position.RewardEarned = reward
	return &position, nil
}

// finalReward computes the reward to pay at unstake time. Locked pools pay
// the full-term formula amount*apy*lockDays/365/100; flexible pools pay
// whatever the daily accrual job has built up.
func (s *StakingService) finalReward(position *models.StakingPosition) decimal.Decimal {
	if position.Pool == nil || position.Pool.LockPeriodDays == 0 {
		return position.RewardEarned
	}
	return decimal.NewFromInt(position.AmountStaked).
		Mul(position.Pool.APY).
		Mul(decimal.NewFromInt(int64(position.Pool.LockPeriodDays))).
		Div(daysPerYear).
		Div(decimal.NewFromInt(100))
}

// AccrueFlexibleRewards adds one day of APY to every active position in a
// flexible pool. Called by the accrual job.
func (s *StakingService) AccrueFlexibleRewards() (int64, error) {
	var positions []models.StakingPosition
	err := s.db.Preload("Pool").
		Joins("JOIN staking_pools ON staking_pools.id = staking_transactions.pool_id").
		Where("staking_transactions.status = ? AND staking_pools.lock_period_days = 0", models.StakeStatusStaked).
		Find(&positions).Error
	if err != nil {
		return 0, fmt.Errorf("failed to load flexible positions: %w", err)
	}

	var updated int64
	for i := range positions {
		position := &positions[i]
		if position.Pool == nil {
			continue
		}

		daily := decimal.NewFromInt(position.AmountStaked).
			Mul(position.Pool.APY).
			Div(daysPerYear).
			Div(decimal.NewFromInt(100))

		err := s.db.Model(&models.StakingPosition{}).
			Where("id = ? AND status = ?", position.ID, models.StakeStatusStaked).
			Update("reward_earned", gorm.Expr("reward_earned + ?", daily)).Error
		if err != nil {
			s.logger.Error().Err(err).
				Uint("position_id", position.ID).
				Msg("failed to accrue staking reward")
			continue
		}
		updated++
	}

	return updated, nil
}

// ListPositions lists a profile's staking positions, newest first
func (s *StakingService) ListPositions(profileID string) ([]models.StakingPosition, error) {
	var positions []models.StakingPosition
	err := s.db.Preload("Pool").
		Where("profile_id = ?", profileID).
		Order("start_date DESC, id DESC").
		Find(&positions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list staking positions: %w", err)
	}
	return positions, nil
}

// StakingStats summarizes a profile's staking activity
type StakingStats struct {
	ActivePositions int64           `json:"active_positions"`
	TotalStaked     int64           `json:"total_staked"`
	TotalRewards    decimal.Decimal `json:"total_rewards"`
}

// GetStakingStats computes staking statistics for a profile
func (s *StakingService) GetStakingStats(profileID string) (*StakingStats, error) {
	stats := &StakingStats{TotalRewards: decimal.Zero}

	err := s.db.Model(&models.StakingPosition{}).
		Where("profile_id = ? AND status = ?", profileID, models.StakeStatusStaked).
		Count(&stats.ActivePositions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count positions: %w", err)
	}

	var staked *int64
	err = s.db.Model(&models.StakingPosition{}).
		Where("profile_id = ? AND status = ?", profileID, models.StakeStatusStaked).
		Select("COALESCE(SUM(amount_staked), 0)").
		Scan(&staked).Error
	if err != nil {
		return nil, fmt.Errorf("failed to sum staked amount: %w", err)
	}
	if staked != nil {
		stats.TotalStaked = *staked
	}

	var rewards []decimal.Decimal
	err = s.db.Model(&models.StakingPosition{}).
		Where("profile_id = ?", profileID).
		Pluck("reward_earned", &rewards).Error
	if err != nil {
		return nil, fmt.Errorf("failed to sum rewards: %w", err)
	}
	for _, r := range rewards {
		stats.TotalRewards = stats.TotalRewards.Add(r)
	}

	return stats, nil
}
