package models

import (
	"time"
)

// Wallet links a blockchain address to a profile. Addresses are stored
// lowercased; the unique index is the arbiter for concurrent first-contact
// creation.
type Wallet struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	ProfileID     string    `gorm:"size:36;not null;index" json:"profile_id"`
	Profile       *Profile  `gorm:"foreignKey:ProfileID" json:"profile,omitempty"`
	WalletAddress string    `gorm:"uniqueIndex;not null" json:"wallet_address"`
	IsPrimary     bool      `gorm:"default:false" json:"is_primary"`
	CreatedAt     time.Time `json:"created_at"`
}

// TableName specifies the table name for Wallet model
func (Wallet) TableName() string {
	return "wallets"
}
