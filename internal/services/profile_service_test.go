package services

import (
	"errors"
	"strings"
	"testing"

	"owatch/internal/models"
)

func TestEnsureProfileIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	service := NewProfileService(db, testLogger())

	address := "0xDeAd000000000000000000000000000000000042"

	first, err := service.EnsureProfile(address)
	if err != nil {
		t.Fatalf("first EnsureProfile failed: %v", err)
	}

	second, err := service.EnsureProfile(address)
	if err != nil {
		t.Fatalf("second EnsureProfile failed: %v", err)
	}

	if first.ID != second.ID {
		t.Errorf("expected same profile, got %s and %s", first.ID, second.ID)
	}

	// Mixed-case address resolves to the same profile
	third, err := service.EnsureProfile(strings.ToUpper(address[:2]) + strings.ToLower(address[2:]))
	if err != nil {
		t.Fatalf("mixed-case EnsureProfile failed: %v", err)
	}
	if third.ID != first.ID {
		t.Errorf("mixed-case address created a new profile")
	}

	var walletCount int64
	db.Model(&models.Wallet{}).Count(&walletCount)
	if walletCount != 1 {
		t.Errorf("expected 1 wallet row, got %d", walletCount)
	}
}

func TestEnsureProfileDefaultUsername(t *testing.T) {
	db := setupTestDB(t)
	service := NewProfileService(db, testLogger())

	profile, err := service.EnsureProfile("0xAbCdEf0000000000000000000000000000000001")
	if err != nil {
		t.Fatalf("EnsureProfile failed: %v", err)
	}

	if profile.Username != "user_abcdef" {
		t.Errorf("expected username user_abcdef, got %s", profile.Username)
	}
	if profile.TotalPoints != 0 {
		t.Errorf("new profile should start with 0 points, got %d", profile.TotalPoints)
	}
}

func TestAwardPointsUpdatesLedgerAndTotal(t *testing.T) {
	db := setupTestDB(t)
	service := NewProfileService(db, testLogger())
	profile := seedProfile(t, db, 0)

	videoID := uint(7)
	if err := service.AwardPoints(profile.ID, 150, models.PointSourceVideoWatch, &videoID); err != nil {
		t.Fatalf("AwardPoints failed: %v", err)
	}

	updated, err := service.GetProfile(profile.ID)
	if err != nil {
		t.Fatalf("GetProfile failed: %v", err)
	}
	if updated.TotalPoints != 150 {
		t.Errorf("expected total 150, got %d", updated.TotalPoints)
	}

	entries, err := service.GetPointHistory(profile.ID, 10)
	if err != nil {
		t.Fatalf("GetPointHistory failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 ledger entry, got %d", len(entries))
	}
	if entries[0].Amount != 150 || entries[0].Source != models.PointSourceVideoWatch {
		t.Errorf("unexpected ledger entry: %+v", entries[0])
	}
	if entries[0].SourceID == nil || *entries[0].SourceID != videoID {
		t.Errorf("expected source_id %d, got %v", videoID, entries[0].SourceID)
	}
}

func TestDeductPointsRejectsOverdraw(t *testing.T) {
	db := setupTestDB(t)
	service := NewProfileService(db, testLogger())
	profile := seedProfile(t, db, 100)

	err := service.DeductPoints(profile.ID, 200, models.PointSourceConversion, nil)
	if !errors.Is(err, ErrInsufficientPoints) {
		t.Fatalf("expected ErrInsufficientPoints, got %v", err)
	}

	// Nothing moved
	updated, _ := service.GetProfile(profile.ID)
	if updated.TotalPoints != 100 {
		t.Errorf("balance changed on failed deduction: %d", updated.TotalPoints)
	}

	var entryCount int64
	db.Model(&models.PointEntry{}).
		Where("profile_id = ? AND amount < 0", profile.ID).
		Count(&entryCount)
	if entryCount != 0 {
		t.Errorf("failed deduction wrote %d ledger entries", entryCount)
	}
}

func TestDeductPointsWritesNegativeEntry(t *testing.T) {
	db := setupTestDB(t)
	service := NewProfileService(db, testLogger())
	profile := seedProfile(t, db, 500)

	if err := service.DeductPoints(profile.ID, 200, models.PointSourceStakingStake, nil); err != nil {
		t.Fatalf("DeductPoints failed: %v", err)
	}

	updated, _ := service.GetProfile(profile.ID)
	if updated.TotalPoints != 300 {
		t.Errorf("expected total 300, got %d", updated.TotalPoints)
	}

	entries, _ := service.GetPointHistoryBySource(profile.ID, models.PointSourceStakingStake, 10)
	if len(entries) != 1 || entries[0].Amount != -200 {
		t.Errorf("expected one -200 entry, got %+v", entries)
	}
}

func TestGetDailyPointsZeroFills(t *testing.T) {
	db := setupTestDB(t)
	service := NewProfileService(db, testLogger())
	profile := seedProfile(t, db, 50)

	buckets, err := service.GetDailyPoints(profile.ID, 7)
	if err != nil {
		t.Fatalf("GetDailyPoints failed: %v", err)
	}
	if len(buckets) != 7 {
		t.Fatalf("expected 7 buckets, got %d", len(buckets))
	}

	var total int64
	for _, b := range buckets {
		total += b.Points
	}
	if total != 50 {
		t.Errorf("expected 50 points across buckets, got %d", total)
	}
	if buckets[6].Points != 50 {
		t.Errorf("expected today's bucket to hold the points, got %d", buckets[6].Points)
	}
}

func TestUpdateUsernameValidatesLength(t *testing.T) {
	db := setupTestDB(t)
	service := NewProfileService(db, testLogger())
	profile := seedProfile(t, db, 0)

	if _, err := service.UpdateUsername(profile.ID, "ab"); err == nil {
		t.Error("expected error for too-short username")
	}

	updated, err := service.UpdateUsername(profile.ID, "watcher_42")
	if err != nil {
		t.Fatalf("UpdateUsername failed: %v", err)
	}
	if updated.Username != "watcher_42" {
		t.Errorf("expected username watcher_42, got %s", updated.Username)
	}
}
