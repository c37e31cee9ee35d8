package models

import (
	"time"
)

// Point entry sources.
const (
	PointSourceVideoWatch    = "video_watch"
	PointSourceStakingStake  = "staking_stake"
	PointSourceStakingUnlock = "staking_unlock"
	PointSourceStakingReward = "staking_reward"
	PointSourceConversion    = "token_conversion"
)

// PointEntry is one row of the append-only point ledger. Entries are never
// mutated or deleted; the profile's total is maintained in the same
// transaction that appends an entry.
type PointEntry struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ProfileID string    `gorm:"size:36;not null;index" json:"profile_id"`
	Amount    int64     `gorm:"not null" json:"amount"`
	Source    string    `gorm:"size:50;not null;index" json:"source"`
	SourceID  *uint     `json:"source_id,omitempty"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// TableName specifies the table name for PointEntry model
func (PointEntry) TableName() string {
	return "point_history"
}
