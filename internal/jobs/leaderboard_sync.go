package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"owatch/internal/services"
	"owatch/internal/ws"
)

// LeaderboardSync periodically rebuilds the Redis leaderboard from the
// profiles table and pushes the fresh top list to websocket clients. The
// incremental hook path keeps the board warm between runs; this job corrects
// drift.
type LeaderboardSync struct {
	leaderboard *services.LeaderboardService
	profiles    *services.ProfileService
	hub         *ws.Hub
	interval    time.Duration
	limit       int
	logger      zerolog.Logger
	stopChan    chan struct{}
}

// NewLeaderboardSync creates a new leaderboard sync job. hub may be nil.
func NewLeaderboardSync(leaderboard *services.LeaderboardService, profiles *services.ProfileService, hub *ws.Hub, interval time.Duration, limit int, logger zerolog.Logger) *LeaderboardSync {
	return &LeaderboardSync{
		leaderboard: leaderboard,
		profiles:    profiles,
		hub:         hub,
		interval:    interval,
		limit:       limit,
		logger:      logger,
		stopChan:    make(chan struct{}),
	}
}

// Start begins the sync loop. A first rebuild runs immediately so the board
// is populated right after boot.
func (ls *LeaderboardSync) Start() {
	ls.logger.Info().Dur("interval", ls.interval).Msg("leaderboard sync job started")

	ls.sync()

	ticker := time.NewTicker(ls.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ls.sync()
		case <-ls.stopChan:
			ls.logger.Info().Msg("leaderboard sync job stopped")
			return
		}
	}
}

// Stop stops the sync loop
func (ls *LeaderboardSync) Stop() {
	close(ls.stopChan)
}

func (ls *LeaderboardSync) sync() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	profiles, err := ls.profiles.GetTopProfiles(ls.limit)
	if err != nil {
		ls.logger.Error().Err(err).Msg("leaderboard sync: failed to load profiles")
		return
	}

	if err := ls.leaderboard.Rebuild(ctx, profiles); err != nil {
		ls.logger.Error().Err(err).Msg("leaderboard sync: rebuild failed")
		return
	}

	if ls.hub == nil {
		return
	}

	entries, err := ls.leaderboard.GetTop(ctx, ls.limit)
	if err != nil {
		ls.logger.Error().Err(err).Msg("leaderboard sync: failed to read top entries")
		return
	}
	ls.hub.BroadcastLeaderboard(entries)
}
