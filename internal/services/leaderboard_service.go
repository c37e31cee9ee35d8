package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"owatch/internal/models"
)

// leaderboardKey is the sorted set holding profile point totals.
const leaderboardKey = "owatch:leaderboard:points"

// LeaderboardEntry is one hydrated leaderboard row
type LeaderboardEntry struct {
	Rank      int64   `json:"rank"`
	ProfileID string  `json:"profile_id"`
	Username  string  `json:"username"`
	AvatarURL *string `json:"avatar_url,omitempty"`
	Points    int64   `json:"points"`
}

// LeaderboardService maintains a point leaderboard in a Redis sorted set,
// kept in step with the profiles table by award hooks and a periodic rebuild
type LeaderboardService struct {
	rdb      *redis.Client
	profiles *ProfileService
	logger   zerolog.Logger
}

// NewLeaderboardService creates a new leaderboard service
func NewLeaderboardService(rdb *redis.Client, profiles *ProfileService, logger zerolog.Logger) *LeaderboardService {
	return &LeaderboardService{rdb: rdb, profiles: profiles, logger: logger}
}

// IncrementScore bumps a profile's leaderboard score. Deltas may be
// negative (conversions, staking).
func (s *LeaderboardService) IncrementScore(ctx context.Context, profileID string, delta int64) error {
	if err := s.rdb.ZIncrBy(ctx, leaderboardKey, float64(delta), profileID).Err(); err != nil {
		return fmt.Errorf("failed to increment leaderboard score: %w", err)
	}
	return nil
}

// GetTop returns the top-ranked profiles with usernames attached
func (s *LeaderboardService) GetTop(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	rows, err := s.rdb.ZRevRangeWithScores(ctx, leaderboardKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read leaderboard: %w", err)
	}

	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		if id, ok := row.Member.(string); ok {
			ids = append(ids, id)
		}
	}

	profiles, err := s.profiles.GetProfilesByIDs(ids)
	if err != nil {
		return nil, err
	}

	entries := make([]LeaderboardEntry, 0, len(rows))
	for i, row := range rows {
		id, ok := row.Member.(string)
		if !ok {
			continue
		}
		entry := LeaderboardEntry{
			Rank:      int64(i + 1),
			ProfileID: id,
			Points:    int64(row.Score),
		}
		if profile, ok := profiles[id]; ok {
			entry.Username = profile.Username
			entry.AvatarURL = profile.AvatarURL
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

// GetRank returns a profile's 1-based rank and score. Rank 0 means the
// profile is not on the board.
func (s *LeaderboardService) GetRank(ctx context.Context, profileID string) (int64, int64, error) {
	rank, err := s.rdb.ZRevRank(ctx, leaderboardKey, profileID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, 0, nil
		}
		return 0, 0, fmt.Errorf("failed to read leaderboard rank: %w", err)
	}

	score, err := s.rdb.ZScore(ctx, leaderboardKey, profileID).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, 0, fmt.Errorf("failed to read leaderboard score: %w", err)
	}

	return rank + 1, int64(score), nil
}

// Rebuild replaces the sorted set from the profiles table. Corrects any
// drift the incremental path accumulated.
func (s *LeaderboardService) Rebuild(ctx context.Context, profiles []models.Profile) error {
	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, leaderboardKey)
	for _, profile := range profiles {
		pipe.ZAdd(ctx, leaderboardKey, redis.Z{
			Score:  float64(profile.TotalPoints),
			Member: profile.ID,
		})
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to rebuild leaderboard: %w", err)
	}

	s.logger.Debug().Int("profiles", len(profiles)).Msg("leaderboard rebuilt")
	return nil
}
