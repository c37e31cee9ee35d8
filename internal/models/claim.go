package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Claim transaction statuses. A claim moves pending -> confirming ->
// success | failed. Failed is terminal for the attempt; a new claim must be
// created to retry.
const (
	ClaimStatusPending    = "pending"
	ClaimStatusConfirming = "confirming"
	ClaimStatusSuccess    = "success"
	ClaimStatusFailed     = "failed"
)

// ClaimTransaction records an on-chain token claim. Two shapes share the
// table: point-to-token conversions (PointsDeducted > 0) and video reward
// claims (SourceVideoID set, PointsDeducted 0).
type ClaimTransaction struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	ProfileID      string          `gorm:"size:36;not null;index" json:"profile_id"`
	SourceVideoID  *uint           `gorm:"index" json:"source_video_id,omitempty"`
	PointsDeducted int64           `gorm:"not null;default:0" json:"points_deducted"`
	TokenMinted    decimal.Decimal `gorm:"type:numeric(30,18);not null" json:"token_minted"`
	ConversionRate decimal.Decimal `gorm:"type:numeric(18,8);not null" json:"conversion_rate"`
	TxHash         *string         `gorm:"uniqueIndex" json:"tx_hash,omitempty"`
	Status         string          `gorm:"size:20;not null;default:'pending';index" json:"status"`
	FailureReason  *string         `json:"failure_reason,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// TableName specifies the table name for ClaimTransaction model
func (ClaimTransaction) TableName() string {
	return "conversion_transactions"
}
