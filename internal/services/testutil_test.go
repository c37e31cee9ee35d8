package services

import (
	"fmt"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"owatch/internal/database"
	"owatch/internal/models"
)

// setupTestDB opens an isolated in-memory database and migrates the schema
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Discard,
	})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}

	return db
}

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func seedProfile(t *testing.T, db *gorm.DB, points int64) *models.Profile {
	t.Helper()

	service := NewProfileService(db, testLogger())
	profile, err := service.EnsureProfile("0xAbCd000000000000000000000000000000000001")
	if err != nil {
		t.Fatalf("failed to seed profile: %v", err)
	}

	if points > 0 {
		if err := service.AwardPoints(profile.ID, points, models.PointSourceVideoWatch, nil); err != nil {
			t.Fatalf("failed to seed points: %v", err)
		}
	}

	return profile
}

func seedVideo(t *testing.T, db *gorm.DB, reward int64, duration int) *models.RewardVideo {
	t.Helper()

	video := &models.RewardVideo{
		YoutubeID:               fmt.Sprintf("yt-%s-%d", t.Name(), duration),
		Title:                   "test video",
		RewardPointsAmount:      reward,
		RequiredDurationSeconds: duration,
	}
	if err := db.Create(video).Error; err != nil {
		t.Fatalf("failed to seed video: %v", err)
	}
	return video
}
