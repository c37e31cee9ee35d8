package models

import (
	"time"
)

// Profile represents an application-level user record, independent of any
// single wallet. Profiles are keyed by UUID so they can outlive wallet
// re-links.
type Profile struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	Username    string    `gorm:"uniqueIndex;not null" json:"username"`
	TotalPoints int64     `gorm:"not null;default:0" json:"total_points"`
	AvatarURL   *string   `json:"avatar_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName specifies the table name for Profile model
func (Profile) TableName() string {
	return "profiles"
}
