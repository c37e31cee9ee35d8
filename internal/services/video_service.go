package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"owatch/internal/models"
)

// CompletionThreshold is the fraction of a video's required duration that
// counts as watched.
const CompletionThreshold = 0.8

var (
	// ErrVideoNotFound is returned when a video lookup misses.
	ErrVideoNotFound = errors.New("video not found")

	// ErrAlreadyCompleted is returned when a completion is attempted for a
	// video the profile has already completed.
	ErrAlreadyCompleted = errors.New("video already completed")
)

// VideoService manages the video catalog and per-profile watch progress
type VideoService struct {
	db     *gorm.DB
	logger zerolog.Logger
}

// NewVideoService creates a new video service
func NewVideoService(db *gorm.DB, logger zerolog.Logger) *VideoService {
	return &VideoService{db: db, logger: logger}
}

// ListVideos lists catalog videos, optionally filtered by category
func (s *VideoService) ListVideos(category string, limit, offset int) ([]models.RewardVideo, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	query := s.db.Model(&models.RewardVideo{})
	if category != "" {
		query = query.Where("category = ?", category)
	}

	var videos []models.RewardVideo
	err := query.Order("published_at DESC NULLS LAST, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&videos).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list videos: %w", err)
	}
	return videos, nil
}

// GetVideo gets a video by ID
func (s *VideoService) GetVideo(videoID uint) (*models.RewardVideo, error) {
	var video models.RewardVideo
	if err := s.db.First(&video, videoID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVideoNotFound
		}
		return nil, fmt.Errorf("failed to get video: %w", err)
	}
	return &video, nil
}

// GetVideoByYoutubeID gets a video by its YouTube identifier
func (s *VideoService) GetVideoByYoutubeID(youtubeID string) (*models.RewardVideo, error) {
	var video models.RewardVideo
	if err := s.db.Where("youtube_id = ?", youtubeID).First(&video).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVideoNotFound
		}
		return nil, fmt.Errorf("failed to get video: %w", err)
	}
	return &video, nil
}

// CreateVideo adds a video to the catalog
func (s *VideoService) CreateVideo(video *models.RewardVideo) error {
	if video.YoutubeID == "" || video.Title == "" {
		return fmt.Errorf("youtube_id and title are required")
	}
	if video.RewardPointsAmount <= 0 {
		return fmt.Errorf("reward_points_amount must be positive")
	}
	if video.RequiredDurationSeconds <= 0 {
		return fmt.Errorf("required_duration_seconds must be positive")
	}

	if video.ThumbnailURL == nil {
		url := DefaultThumbnailURL(video.YoutubeID)
		video.ThumbnailURL = &url
	}

	if err := s.db.Create(video).Error; err != nil {
		return fmt.Errorf("failed to create video: %w", err)
	}

	s.logger.Info().
		Uint("video_id", video.ID).
		Str("youtube_id", video.YoutubeID).
		Int64("reward", video.RewardPointsAmount).
		Msg("video added to catalog")

	return nil
}

// DefaultThumbnailURL builds the standard YouTube thumbnail URL for a video
func DefaultThumbnailURL(youtubeID string) string {
	return fmt.Sprintf("https://img.youtube.com/vi/%s/hqdefault.jpg", youtubeID)
}

// GetProgress gets a profile's progress on a video. Returns a zero-value
// record when the profile has never watched the video.
func (s *VideoService) GetProgress(profileID string, videoID uint) (*models.VideoProgress, error) {
	var progress models.VideoProgress
	err := s.db.Where("profile_id = ? AND video_id = ?", profileID, videoID).First(&progress).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &models.VideoProgress{ProfileID: profileID, VideoID: videoID}, nil
		}
		return nil, fmt.Errorf("failed to get progress: %w", err)
	}
	return &progress, nil
}

// ListProgress lists all progress rows for a profile
func (s *VideoService) ListProgress(profileID string) ([]models.VideoProgress, error) {
	var rows []models.VideoProgress
	err := s.db.Where("profile_id = ?", profileID).
		Order("updated_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list progress: %w", err)
	}
	return rows, nil
}

// UpsertProgress writes the latest watched second for a profile/video pair.
// Only last_watched_second moves on this path; the completion flag is owned
// by the completion flow.
func (s *VideoService) UpsertProgress(profileID string, videoID uint, lastWatchedSecond int) error {
	if lastWatchedSecond < 0 {
		lastWatchedSecond = 0
	}

	progress := models.VideoProgress{
		ProfileID:         profileID,
		VideoID:           videoID,
		LastWatchedSecond: lastWatchedSecond,
	}

	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "profile_id"}, {Name: "video_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"last_watched_second", "updated_at"}),
	}).Create(&progress).Error
	if err != nil {
		return fmt.Errorf("failed to upsert progress: %w", err)
	}
	return nil
}

// CompleteVideoTx marks a video completed for a profile inside an existing
// transaction. The guarded UPDATE makes completion idempotent under
// concurrency: only the first caller flips the flag.
func CompleteVideoTx(tx *gorm.DB, profileID string, videoID uint) error {
	now := time.Now().UTC()

	progress := models.VideoProgress{
		ProfileID:         profileID,
		VideoID:           videoID,
		IsCompleted:       true,
		CompletionTime:    &now,
		LastWatchedSecond: 0,
	}

	result := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "profile_id"}, {Name: "video_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"is_completed":        true,
			"completion_time":     now,
			"last_watched_second": 0,
			"updated_at":          now,
		}),
		Where: clause.Where{Exprs: []clause.Expression{
			clause.Eq{Column: clause.Column{Table: "user_video_progress", Name: "is_completed"}, Value: false},
		}},
	}).Create(&progress)
	if result.Error != nil {
		return fmt.Errorf("failed to mark video completed: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrAlreadyCompleted
	}

	return nil
}

// CompletionStats summarizes a profile's watch activity
type CompletionStats struct {
	VideosCompleted int64 `json:"videos_completed"`
	VideosStarted   int64 `json:"videos_started"`
	PointsFromWatch int64 `json:"points_from_watch"`
}

// GetCompletionStats computes watch statistics for a profile
func (s *VideoService) GetCompletionStats(profileID string) (*CompletionStats, error) {
	var stats CompletionStats

	err := s.db.Model(&models.VideoProgress{}).
		Where("profile_id = ?", profileID).
		Count(&stats.VideosStarted).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count started videos: %w", err)
	}

	err = s.db.Model(&models.VideoProgress{}).
		Where("profile_id = ? AND is_completed = ?", profileID, true).
		Count(&stats.VideosCompleted).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count completed videos: %w", err)
	}

	var total *int64
	err = s.db.Model(&models.PointEntry{}).
		Where("profile_id = ? AND source = ?", profileID, models.PointSourceVideoWatch).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total).Error
	if err != nil {
		return nil, fmt.Errorf("failed to sum watch points: %w", err)
	}
	if total != nil {
		stats.PointsFromWatch = *total
	}

	return &stats, nil
}

// RequiredWatchSeconds returns the threshold in whole seconds for a video
func RequiredWatchSeconds(video *models.RewardVideo) float64 {
	return CompletionThreshold * float64(video.RequiredDurationSeconds)
}
