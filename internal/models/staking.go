package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Staking pool statuses.
const (
	PoolStatusActive   = "active"
	PoolStatusInactive = "inactive"
)

// Staking position statuses.
const (
	StakeStatusStaked   = "staked"
	StakeStatusClaimed  = "claimed"
	StakeStatusUnlocked = "unlocked"
)

// StakingPool describes a pool users can lock points into. LockPeriodDays 0
// means flexible staking with daily accrual.
type StakingPool struct {
	ID                   uint            `gorm:"primaryKey" json:"id"`
	Name                 string          `gorm:"not null" json:"name"`
	TokenContractAddress string          `gorm:"not null" json:"token_contract_address"`
	APY                  decimal.Decimal `gorm:"type:numeric(8,4);not null" json:"apy"`
	MinStake             int64           `gorm:"not null;default:1" json:"min_stake"`
	MaxStake             int64           `gorm:"not null" json:"max_stake"`
	LockPeriodDays       int             `gorm:"not null;default:0" json:"lock_period_days"`
	Status               string          `gorm:"size:20;not null;default:'active'" json:"status"`
	CreatedAt            time.Time       `json:"created_at"`
}

// TableName specifies the table name for StakingPool model
func (StakingPool) TableName() string {
	return "staking_pools"
}

// StakingPosition is one stake of points into a pool. The lock is enforced
// server-side: unstaking before EstimatedEndDate is rejected.
type StakingPosition struct {
	ID               uint            `gorm:"primaryKey" json:"id"`
	ProfileID        string          `gorm:"size:36;not null;index" json:"profile_id"`
	PoolID           uint            `gorm:"not null;index" json:"pool_id"`
	Pool             *StakingPool    `gorm:"foreignKey:PoolID" json:"pool,omitempty"`
	AmountStaked     int64           `gorm:"not null" json:"amount_staked"`
	RewardEarned     decimal.Decimal `gorm:"type:numeric(20,8);not null" json:"reward_earned"`
	StartDate        time.Time       `gorm:"not null" json:"start_date"`
	EstimatedEndDate *time.Time      `json:"estimated_end_date,omitempty"`
	Status           string          `gorm:"size:20;not null;default:'staked';index" json:"status"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// TableName specifies the table name for StakingPosition model
func (StakingPosition) TableName() string {
	return "staking_transactions"
}
