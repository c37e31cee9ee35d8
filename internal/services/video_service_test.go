package services

import (
	"errors"
	"testing"

	"gorm.io/gorm"

	"owatch/internal/models"
)

func TestUpsertProgressMovesOnlyPosition(t *testing.T) {
	db := setupTestDB(t)
	service := NewVideoService(db, testLogger())
	profile := seedProfile(t, db, 0)
	video := seedVideo(t, db, 100, 300)

	if err := service.UpsertProgress(profile.ID, video.ID, 42); err != nil {
		t.Fatalf("first upsert failed: %v", err)
	}
	if err := service.UpsertProgress(profile.ID, video.ID, 90); err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}

	progress, err := service.GetProgress(profile.ID, video.ID)
	if err != nil {
		t.Fatalf("GetProgress failed: %v", err)
	}
	if progress.LastWatchedSecond != 90 {
		t.Errorf("expected last watched second 90, got %d", progress.LastWatchedSecond)
	}
	if progress.IsCompleted {
		t.Error("progress sync must not flip the completion flag")
	}

	var count int64
	db.Model(&models.VideoProgress{}).Count(&count)
	if count != 1 {
		t.Errorf("expected a single progress row, got %d", count)
	}
}

func TestGetProgressReturnsZeroValueWhenUnwatched(t *testing.T) {
	db := setupTestDB(t)
	service := NewVideoService(db, testLogger())
	profile := seedProfile(t, db, 0)
	video := seedVideo(t, db, 100, 300)

	progress, err := service.GetProgress(profile.ID, video.ID)
	if err != nil {
		t.Fatalf("GetProgress failed: %v", err)
	}
	if progress.LastWatchedSecond != 0 || progress.IsCompleted {
		t.Errorf("expected zero-value progress, got %+v", progress)
	}
}

func TestCompleteVideoIsOneShot(t *testing.T) {
	db := setupTestDB(t)
	service := NewVideoService(db, testLogger())
	profile := seedProfile(t, db, 0)
	video := seedVideo(t, db, 100, 300)

	if err := service.UpsertProgress(profile.ID, video.ID, 250); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		return CompleteVideoTx(tx, profile.ID, video.ID)
	})
	if err != nil {
		t.Fatalf("first completion failed: %v", err)
	}

	progress, _ := service.GetProgress(profile.ID, video.ID)
	if !progress.IsCompleted {
		t.Error("expected completion flag set")
	}
	if progress.CompletionTime == nil {
		t.Error("expected completion time set")
	}
	if progress.LastWatchedSecond != 0 {
		t.Errorf("completion should reset position, got %d", progress.LastWatchedSecond)
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		return CompleteVideoTx(tx, profile.ID, video.ID)
	})
	if !errors.Is(err, ErrAlreadyCompleted) {
		t.Fatalf("expected ErrAlreadyCompleted on second completion, got %v", err)
	}
}

func TestCompleteVideoWithoutPriorProgress(t *testing.T) {
	db := setupTestDB(t)
	service := NewVideoService(db, testLogger())
	profile := seedProfile(t, db, 0)
	video := seedVideo(t, db, 100, 300)

	err := db.Transaction(func(tx *gorm.DB) error {
		return CompleteVideoTx(tx, profile.ID, video.ID)
	})
	if err != nil {
		t.Fatalf("completion without prior progress failed: %v", err)
	}

	progress, _ := service.GetProgress(profile.ID, video.ID)
	if !progress.IsCompleted {
		t.Error("expected completion flag set")
	}
}

func TestCreateVideoValidatesAndDefaultsThumbnail(t *testing.T) {
	db := setupTestDB(t)
	service := NewVideoService(db, testLogger())

	err := service.CreateVideo(&models.RewardVideo{YoutubeID: "abc", Title: "x", RewardPointsAmount: 0, RequiredDurationSeconds: 10})
	if err == nil {
		t.Error("expected error for non-positive reward")
	}

	video := &models.RewardVideo{
		YoutubeID:               "abc123xyz",
		Title:                   "Intro",
		RewardPointsAmount:      100,
		RequiredDurationSeconds: 60,
	}
	if err := service.CreateVideo(video); err != nil {
		t.Fatalf("CreateVideo failed: %v", err)
	}
	if video.ThumbnailURL == nil || *video.ThumbnailURL != "https://img.youtube.com/vi/abc123xyz/hqdefault.jpg" {
		t.Errorf("unexpected thumbnail: %v", video.ThumbnailURL)
	}
}

func TestGetCompletionStats(t *testing.T) {
	db := setupTestDB(t)
	service := NewVideoService(db, testLogger())
	profiles := NewProfileService(db, testLogger())
	profile := seedProfile(t, db, 0)
	first := seedVideo(t, db, 100, 100)
	second := seedVideo(t, db, 50, 200)

	if err := service.UpsertProgress(profile.ID, first.ID, 30); err != nil {
		t.Fatal(err)
	}
	if err := service.UpsertProgress(profile.ID, second.ID, 10); err != nil {
		t.Fatal(err)
	}
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := CompleteVideoTx(tx, profile.ID, first.ID); err != nil {
			return err
		}
		return AwardPointsTx(tx, profile.ID, first.RewardPointsAmount, models.PointSourceVideoWatch, &first.ID)
	})
	if err != nil {
		t.Fatalf("completion failed: %v", err)
	}

	stats, err := service.GetCompletionStats(profile.ID)
	if err != nil {
		t.Fatalf("GetCompletionStats failed: %v", err)
	}
	if stats.VideosStarted != 2 || stats.VideosCompleted != 1 || stats.PointsFromWatch != 100 {
		t.Errorf("unexpected stats: %+v", stats)
	}

	// Ledger total matches the profile total
	updated, _ := profiles.GetProfile(profile.ID)
	if updated.TotalPoints != 100 {
		t.Errorf("expected total 100, got %d", updated.TotalPoints)
	}
}
