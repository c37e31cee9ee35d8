package services

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"owatch/internal/logger"
	"owatch/internal/models"
)

// usernameRetries bounds collision handling during first-contact profile
// creation.
const usernameRetries = 5

var (
	// ErrInsufficientPoints is returned when a deduction would take the
	// profile's balance negative.
	ErrInsufficientPoints = errors.New("insufficient points balance")

	// ErrProfileNotFound is returned when a profile lookup misses.
	ErrProfileNotFound = errors.New("profile not found")
)

// ProfileService manages profiles, linked wallets and the point ledger
type ProfileService struct {
	db     *gorm.DB
	logger zerolog.Logger
}

// NewProfileService creates a new profile service
func NewProfileService(db *gorm.DB, logger zerolog.Logger) *ProfileService {
	return &ProfileService{db: db, logger: logger}
}

// EnsureProfile resolves a wallet address to its profile, creating both the
// profile and the wallet link on first contact. Safe to call concurrently:
// the wallets unique index arbitrates races, and the loser adopts the
// winner's profile.
func (s *ProfileService) EnsureProfile(walletAddress string) (*models.Profile, error) {
	address := strings.ToLower(walletAddress)

	if profile, err := s.GetProfileByWallet(address); err == nil {
		return profile, nil
	} else if !errors.Is(err, ErrProfileNotFound) {
		return nil, err
	}

	profile := &models.Profile{
		ID:       uuid.New().String(),
		Username: s.generateUsername(address),
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(profile).Error; err != nil {
			return fmt.Errorf("failed to create profile: %w", err)
		}

		wallet := &models.Wallet{
			ProfileID:     profile.ID,
			WalletAddress: address,
			IsPrimary:     true,
		}
		if err := tx.Create(wallet).Error; err != nil {
			return fmt.Errorf("failed to link wallet: %w", err)
		}

		return nil
	})
	if err != nil {
		// Another request may have created the wallet first. Re-read and
		// return the winner's profile.
		if existing, lookupErr := s.GetProfileByWallet(address); lookupErr == nil {
			log := logger.WithWallet(s.logger, address)
			log.Debug().
				Str("profile_id", existing.ID).
				Msg("lost profile creation race, adopting existing profile")
			return existing, nil
		}
		return nil, err
	}

	log := logger.WithWallet(s.logger, address)
	log.Info().
		Str("profile_id", profile.ID).
		Str("username", profile.Username).
		Msg("profile created")

	return profile, nil
}

// generateUsername derives a default username from the wallet address,
// retrying with a random suffix on collision
func (s *ProfileService) generateUsername(address string) string {
	base := "user_" + strings.TrimPrefix(address, "0x")
	if len(base) > 11 {
		base = base[:11]
	}

	candidate := base
	for i := 0; i < usernameRetries; i++ {
		var count int64
		if err := s.db.Model(&models.Profile{}).Where("username = ?", candidate).Count(&count).Error; err != nil || count == 0 {
			return candidate
		}
		candidate = fmt.Sprintf("%s_%04d", base, rand.Intn(10000))
	}

	// Exhausted retries; fall back to something effectively unique
	return fmt.Sprintf("%s_%d", base, time.Now().UnixNano()%1000000)
}

// GetProfile gets a profile by ID
func (s *ProfileService) GetProfile(profileID string) (*models.Profile, error) {
	var profile models.Profile
	if err := s.db.First(&profile, "id = ?", profileID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return &profile, nil
}

// GetProfileByWallet gets the profile linked to a wallet address
func (s *ProfileService) GetProfileByWallet(walletAddress string) (*models.Profile, error) {
	var wallet models.Wallet
	err := s.db.Preload("Profile").
		Where("wallet_address = ?", strings.ToLower(walletAddress)).
		First(&wallet).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to look up wallet: %w", err)
	}
	if wallet.Profile == nil {
		return nil, ErrProfileNotFound
	}
	return wallet.Profile, nil
}

// GetWallets lists the wallets linked to a profile
func (s *ProfileService) GetWallets(profileID string) ([]models.Wallet, error) {
	var wallets []models.Wallet
	if err := s.db.Where("profile_id = ?", profileID).Order("created_at ASC").Find(&wallets).Error; err != nil {
		return nil, fmt.Errorf("failed to list wallets: %w", err)
	}
	return wallets, nil
}

// UpdateUsername changes a profile's username
func (s *ProfileService) UpdateUsername(profileID, username string) (*models.Profile, error) {
	username = strings.TrimSpace(username)
	if len(username) < 3 || len(username) > 30 {
		return nil, fmt.Errorf("username must be between 3 and 30 characters")
	}

	result := s.db.Model(&models.Profile{}).Where("id = ?", profileID).Update("username", username)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to update username: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrProfileNotFound
	}

	return s.GetProfile(profileID)
}

// AwardPoints appends a positive ledger entry and bumps the profile total in
// one transaction
func (s *ProfileService) AwardPoints(profileID string, amount int64, source string, sourceID *uint) error {
	if amount <= 0 {
		return fmt.Errorf("award amount must be positive, got %d", amount)
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		return AwardPointsTx(tx, profileID, amount, source, sourceID)
	})
}

// DeductPoints appends a negative ledger entry and decrements the profile
// total in one transaction. Fails without writing if the balance is short.
func (s *ProfileService) DeductPoints(profileID string, amount int64, source string, sourceID *uint) error {
	if amount <= 0 {
		return fmt.Errorf("deduction amount must be positive, got %d", amount)
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		return DeductPointsTx(tx, profileID, amount, source, sourceID)
	})
}

// AwardPointsTx performs the ledger append and total bump inside an existing
// transaction. Used by flows that award points alongside other writes.
func AwardPointsTx(tx *gorm.DB, profileID string, amount int64, source string, sourceID *uint) error {
	entry := &models.PointEntry{
		ProfileID: profileID,
		Amount:    amount,
		Source:    source,
		SourceID:  sourceID,
	}
	if err := tx.Create(entry).Error; err != nil {
		return fmt.Errorf("failed to append point entry: %w", err)
	}

	result := tx.Model(&models.Profile{}).
		Where("id = ?", profileID).
		Update("total_points", gorm.Expr("total_points + ?", amount))
	if result.Error != nil {
		return fmt.Errorf("failed to update point total: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrProfileNotFound
	}

	return nil
}

// DeductPointsTx performs a guarded deduction inside an existing
// transaction. The balance check and decrement are one UPDATE so concurrent
// deductions cannot overdraw.
func DeductPointsTx(tx *gorm.DB, profileID string, amount int64, source string, sourceID *uint) error {
	result := tx.Model(&models.Profile{}).
		Where("id = ? AND total_points >= ?", profileID, amount).
		Update("total_points", gorm.Expr("total_points - ?", amount))
	if result.Error != nil {
		return fmt.Errorf("failed to deduct points: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := tx.Model(&models.Profile{}).Where("id = ?", profileID).Count(&count).Error; err == nil && count == 0 {
			return ErrProfileNotFound
		}
		return ErrInsufficientPoints
	}

	entry := &models.PointEntry{
		ProfileID: profileID,
		Amount:    -amount,
		Source:    source,
		SourceID:  sourceID,
	}
	if err := tx.Create(entry).Error; err != nil {
		return fmt.Errorf("failed to append point entry: %w", err)
	}

	return nil
}

// GetPointHistory lists ledger entries for a profile, newest first
func (s *ProfileService) GetPointHistory(profileID string, limit int) ([]models.PointEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	var entries []models.PointEntry
	err := s.db.Where("profile_id = ?", profileID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list point history: %w", err)
	}
	return entries, nil
}

// GetPointHistoryBySource lists ledger entries for a profile filtered by
// source
func (s *ProfileService) GetPointHistoryBySource(profileID, source string, limit int) ([]models.PointEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	var entries []models.PointEntry
	err := s.db.Where("profile_id = ? AND source = ?", profileID, source).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list point history: %w", err)
	}
	return entries, nil
}

// DailyPoints is one day of earned points for the activity summary
type DailyPoints struct {
	Day    time.Time `json:"day"`
	Points int64     `json:"points"`
}

// GetDailyPoints sums positive ledger entries per day over the trailing
// window
func (s *ProfileService) GetDailyPoints(profileID string, days int) ([]DailyPoints, error) {
	if days <= 0 || days > 90 {
		days = 7
	}
	since := time.Now().UTC().Truncate(24 * time.Hour).AddDate(0, 0, -(days - 1))

	var entries []models.PointEntry
	err := s.db.Where("profile_id = ? AND amount > 0 AND created_at >= ?", profileID, since).
		Order("created_at ASC").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load daily points: %w", err)
	}

	// Emit a bucket per day, zero-filled, oldest first
	buckets := make([]DailyPoints, days)
	for i := range buckets {
		buckets[i].Day = since.AddDate(0, 0, i)
	}
	for _, e := range entries {
		idx := int(e.CreatedAt.UTC().Truncate(24*time.Hour).Sub(since).Hours() / 24)
		if idx >= 0 && idx < days {
			buckets[idx].Points += e.Amount
		}
	}

	return buckets, nil
}

// GetProfilesByIDs fetches profiles for a set of IDs, used to hydrate
// leaderboard rows
func (s *ProfileService) GetProfilesByIDs(ids []string) (map[string]*models.Profile, error) {
	out := make(map[string]*models.Profile, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var profiles []models.Profile
	if err := s.db.Where("id IN ?", ids).Find(&profiles).Error; err != nil {
		return nil, fmt.Errorf("failed to load profiles: %w", err)
	}
	for i := range profiles {
		out[profiles[i].ID] = &profiles[i]
	}
	return out, nil
}

// GetTopProfiles lists profiles ordered by total points, for leaderboard
// rebuilds
func (s *ProfileService) GetTopProfiles(limit int) ([]models.Profile, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	var profiles []models.Profile
	err := s.db.Order("total_points DESC, created_at ASC").
		Limit(limit).
		Find(&profiles).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list top profiles: %w", err)
	}
	return profiles, nil
}
