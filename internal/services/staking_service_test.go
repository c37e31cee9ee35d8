package services

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"owatch/internal/models"
)

func createPool(t *testing.T, service *StakingService, apy string, minStake, maxStake int64, lockDays int) *models.StakingPool {
	t.Helper()

	pool := &models.StakingPool{
		Name:                 "test pool",
		TokenContractAddress: "0x0000000000000000000000000000000000000001",
		APY:                  decimal.RequireFromString(apy),
		MinStake:             minStake,
		MaxStake:             maxStake,
		LockPeriodDays:       lockDays,
		Status:               models.PoolStatusActive,
	}
	if err := service.db.Create(pool).Error; err != nil {
		t.Fatalf("failed to seed pool: %v", err)
	}
	return pool
}

func TestStakeDeductsPointsAtomically(t *testing.T) {
	db := setupTestDB(t)
	service := NewStakingService(db, testLogger())
	profiles := NewProfileService(db, testLogger())
	profile := seedProfile(t, db, 1000)
	pool := createPool(t, service, "10", 100, 10000, 30)

	position, err := service.Stake(profile.ID, pool.ID, 600)
	if err != nil {
		t.Fatalf("Stake failed: %v", err)
	}
	if position.Status != models.StakeStatusStaked {
		t.Errorf("expected staked status, got %s", position.Status)
	}
	if position.EstimatedEndDate == nil {
		t.Fatal("locked pool stake must carry an end date")
	}

	updated, _ := profiles.GetProfile(profile.ID)
	if updated.TotalPoints != 400 {
		t.Errorf("expected 400 points after stake, got %d", updated.TotalPoints)
	}

	entries, _ := profiles.GetPointHistoryBySource(profile.ID, models.PointSourceStakingStake, 10)
	if len(entries) != 1 || entries[0].Amount != -600 {
		t.Errorf("expected one -600 stake entry, got %+v", entries)
	}
}

func TestStakeValidatesLimitsAndBalance(t *testing.T) {
	db := setupTestDB(t)
	service := NewStakingService(db, testLogger())
	profile := seedProfile(t, db, 1000)
	pool := createPool(t, service, "10", 100, 500, 0)

	if _, err := service.Stake(profile.ID, pool.ID, 50); err == nil {
		t.Error("expected error below pool minimum")
	}
	if _, err := service.Stake(profile.ID, pool.ID, 600); err == nil {
		t.Error("expected error above pool maximum")
	}

	_, err := service.Stake(profile.ID, pool.ID, 500)
	if err != nil {
		t.Fatalf("valid stake failed: %v", err)
	}

	// Balance is now 500; a second full stake must fail atomically
	_, err = service.Stake(profile.ID, pool.ID, 500)
	if err == nil {
		t.Fatal("expected insufficient balance error")
	}
	if !errors.Is(err, ErrInsufficientPoints) {
		t.Fatalf("expected ErrInsufficientPoints, got %v", err)
	}

	var positions int64
	db.Model(&models.StakingPosition{}).Where("profile_id = ?", profile.ID).Count(&positions)
	if positions != 1 {
		t.Errorf("failed stake left %d positions", positions)
	}
}

func TestUnstakeRejectedBeforeLockEnds(t *testing.T) {
	db := setupTestDB(t)
	service := NewStakingService(db, testLogger())
	profile := seedProfile(t, db, 1000)
	pool := createPool(t, service, "10", 100, 10000, 30)

	position, err := service.Stake(profile.ID, pool.ID, 500)
	if err != nil {
		t.Fatalf("Stake failed: %v", err)
	}

	_, err = service.Unstake(profile.ID, position.ID)
	if !errors.Is(err, ErrStakeLocked) {
		t.Fatalf("expected ErrStakeLocked, got %v", err)
	}
}

func TestUnstakePaysPrincipalAndLockedReward(t *testing.T) {
	db := setupTestDB(t)
	service := NewStakingService(db, testLogger())
	profiles := NewProfileService(db, testLogger())
	profile := seedProfile(t, db, 1000)
	pool := createPool(t, service, "10", 100, 10000, 30)

	position, err := service.Stake(profile.ID, pool.ID, 1000)
	if err != nil {
		t.Fatalf("Stake failed: %v", err)
	}

	// Expire the lock
	past := time.Now().UTC().Add(-time.Hour)
	if err := db.Model(&models.StakingPosition{}).Where("id = ?", position.ID).Update("estimated_end_date", past).Error; err != nil {
		t.Fatalf("failed to expire lock: %v", err)
	}

	released, err := service.Unstake(profile.ID, position.ID)
	if err != nil {
		t.Fatalf("Unstake failed: %v", err)
	}
	if released.Status != models.StakeStatusUnlocked {
		t.Errorf("expected unlocked status, got %s", released.Status)
	}

	// 1000 * 10% * 30/365 = 8.2191..., credited as 8 points
	expectedReward := decimal.NewFromInt(1000).
		Mul(decimal.RequireFromString("10")).
		Mul(decimal.NewFromInt(30)).
		Div(decimal.NewFromInt(365)).
		Div(decimal.NewFromInt(100))
	if !released.RewardEarned.Equal(expectedReward) {
		t.Errorf("expected reward %s, got %s", expectedReward, released.RewardEarned)
	}

	updated, _ := profiles.GetProfile(profile.ID)
	if updated.TotalPoints != 1008 {
		t.Errorf("expected 1008 points after unstake, got %d", updated.TotalPoints)
	}

	// Second unstake must fail
	if _, err := service.Unstake(profile.ID, position.ID); !errors.Is(err, ErrStakeNotActive) {
		t.Fatalf("expected ErrStakeNotActive, got %v", err)
	}
}

func TestAccrueFlexibleRewards(t *testing.T) {
	db := setupTestDB(t)
	service := NewStakingService(db, testLogger())
	profile := seedProfile(t, db, 1000)
	flexible := createPool(t, service, "36.5", 100, 10000, 0)
	locked := createPool(t, service, "10", 100, 10000, 30)

	flexPos, err := service.Stake(profile.ID, flexible.ID, 365)
	if err != nil {
		t.Fatalf("flexible stake failed: %v", err)
	}
	if _, err := service.Stake(profile.ID, locked.ID, 100); err != nil {
		t.Fatalf("locked stake failed: %v", err)
	}

	updated, err := service.AccrueFlexibleRewards()
	if err != nil {
		t.Fatalf("AccrueFlexibleRewards failed: %v", err)
	}
	if updated != 1 {
		t.Errorf("expected 1 position accrued, got %d", updated)
	}

	var reloaded models.StakingPosition
	if err := db.First(&reloaded, flexPos.ID).Error; err != nil {
		t.Fatal(err)
	}
	// 365 * 36.5% / 365 = 0.365 per day
	if !reloaded.RewardEarned.Equal(decimal.RequireFromString("0.365")) {
		t.Errorf("expected 0.365 accrued, got %s", reloaded.RewardEarned)
	}
}
