package models

import (
	"time"
)

// VideoProgress is the per-profile per-video watch state. The composite
// primary key makes progress writes natural upserts.
type VideoProgress struct {
	ProfileID         string     `gorm:"primaryKey;size:36" json:"profile_id"`
	VideoID           uint       `gorm:"primaryKey" json:"video_id"`
	LastWatchedSecond int        `gorm:"not null;default:0" json:"last_watched_second"`
	IsCompleted       bool       `gorm:"not null;default:false" json:"is_completed"`
	CompletionTime    *time.Time `json:"completion_time,omitempty"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// TableName specifies the table name for VideoProgress model
func (VideoProgress) TableName() string {
	return "user_video_progress"
}
