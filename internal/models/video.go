package models

import (
	"time"
)

// RewardVideo is a watchable video with an attached point reward. Rows are
// immutable from the watcher's perspective; only admin tooling writes them.
type RewardVideo struct {
	ID                      uint       `gorm:"primaryKey" json:"id"`
	YoutubeID               string     `gorm:"uniqueIndex;not null" json:"youtube_id"`
	Title                   string     `gorm:"not null" json:"title"`
	ThumbnailURL            *string    `json:"thumbnail_url,omitempty"`
	PublishedAt             *time.Time `json:"published_at,omitempty"`
	RewardPointsAmount      int64      `gorm:"not null" json:"reward_points_amount"`
	RequiredDurationSeconds int        `gorm:"not null" json:"required_duration_seconds"`
	Category                *string    `gorm:"index" json:"category,omitempty"`
	CreatedAt               time.Time  `json:"created_at"`
}

// TableName specifies the table name for RewardVideo model
func (RewardVideo) TableName() string {
	return "reward_videos"
}
