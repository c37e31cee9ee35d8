package tracker

import (
	"errors"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"owatch/internal/logger"
	"owatch/internal/metrics"
	"owatch/internal/models"
	"owatch/internal/services"
)

// ProgressStore persists watch progress. Satisfied by services.VideoService.
type ProgressStore interface {
	GetProgress(profileID string, videoID uint) (*models.VideoProgress, error)
	UpsertProgress(profileID string, videoID uint, lastWatchedSecond int) error
}

// RewardDispatcher pays out a detected completion. Satisfied by
// services.RewardService.
type RewardDispatcher interface {
	Dispatch(profileID, walletAddress string, video *models.RewardVideo) (*services.RewardResult, error)
}

// SessionState is a point-in-time snapshot of a watch session
type SessionState struct {
	VideoID          uint                   `json:"video_id"`
	Position         int                    `json:"position"`
	ElapsedSeconds   float64                `json:"elapsed_seconds"`
	RequiredSeconds  float64                `json:"required_seconds"`
	Completed        bool                   `json:"completed"`
	RewardResult     *services.RewardResult `json:"reward_result,omitempty"`
	LastSyncedSecond int                    `json:"last_synced_second"`
}

// Session tracks one profile watching one video. Heartbeats are the fast
// path: they only update in-memory counters. A slow ticker persists
// progress and runs completion detection, so the database sees one write
// per interval no matter how often the player reports.
type Session struct {
	profileID string
	wallet    string
	video     *models.RewardVideo
	store     ProgressStore
	rewards   RewardDispatcher
	clock     Clock
	logger    zerolog.Logger

	mu         sync.Mutex
	position   int
	elapsed    float64
	completed  bool
	lastSynced int
	result     *services.RewardResult

	ticker   Ticker
	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once
}

func newSession(profileID, wallet string, video *models.RewardVideo, store ProgressStore, rewards RewardDispatcher, clock Clock, syncInterval time.Duration, log zerolog.Logger) (*Session, error) {
	progress, err := store.GetProgress(profileID, video.ID)
	if err != nil {
		return nil, err
	}

	s := &Session{
		profileID:  profileID,
		wallet:     wallet,
		video:      video,
		store:      store,
		rewards:    rewards,
		clock:      clock,
		logger:     logger.WithVideo(logger.WithProfile(log, profileID), video.ID),
		position:   progress.LastWatchedSecond,
		completed:  progress.IsCompleted,
		lastSynced: progress.LastWatchedSecond,
		ticker:     clock.NewTicker(syncInterval),
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}

	go s.run()
	return s, nil
}

// Heartbeat records the player's current position and the watch time that
// passed since the last report. It never touches the database.
func (s *Session) Heartbeat(position int, watchedDelta float64) SessionState {
	if position < 0 {
		position = 0
	}
	if watchedDelta < 0 || math.IsNaN(watchedDelta) {
		watchedDelta = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.position = position
	s.elapsed += watchedDelta
	return s.stateLocked()
}

// State returns a snapshot of the session
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *Session) stateLocked() SessionState {
	return SessionState{
		VideoID:          s.video.ID,
		Position:         s.position,
		ElapsedSeconds:   s.elapsed,
		RequiredSeconds:  services.RequiredWatchSeconds(s.video),
		Completed:        s.completed,
		RewardResult:     s.result,
		LastSyncedSecond: s.lastSynced,
	}
}

// Close stops the slow ticker after one final sync. Safe to call more than
// once.
func (s *Session) Close() SessionState {
	s.stopOnce.Do(func() {
		close(s.stopCh)
		<-s.doneCh
		s.ticker.Stop()
	})
	return s.State()
}

func (s *Session) run() {
	defer close(s.doneCh)

	// Completion ends the slow path: a completed session has nothing left
	// to persist or detect, so the ticker stops and only Close remains.
	tickCh := s.ticker.C()
	if s.State().Completed {
		s.ticker.Stop()
		tickCh = nil
	}

	for {
		select {
		case <-s.stopCh:
			s.sync()
			return
		case <-tickCh:
			s.sync()
			if s.State().Completed {
				s.ticker.Stop()
				tickCh = nil
			}
		}
	}
}

// sync is the slow path: persist the latest position and run completion
// detection once per interval.
func (s *Session) sync() {
	s.mu.Lock()
	position := s.position
	elapsed := s.elapsed
	completed := s.completed
	s.mu.Unlock()

	// Completion owns the progress row from here on; a late position write
	// would resurrect a stale last_watched_second.
	if !completed {
		if err := s.store.UpsertProgress(s.profileID, s.video.ID, position); err != nil {
			metrics.RecordProgressSync("error")
			s.logger.Error().Err(err).Msg("failed to persist watch progress")
		} else {
			metrics.RecordProgressSync("ok")
			s.mu.Lock()
			s.lastSynced = position
			s.mu.Unlock()
		}
	}

	if completed || elapsed < services.RequiredWatchSeconds(s.video) {
		return
	}

	result, err := s.rewards.Dispatch(s.profileID, s.wallet, s.video)
	if err != nil {
		if errors.Is(err, services.ErrAlreadyCompleted) {
			// Another session (or device) got there first. Stop trying.
			s.mu.Lock()
			s.completed = true
			s.mu.Unlock()
			return
		}
		// Transient failure; the next tick retries.
		s.logger.Error().Err(err).Msg("failed to dispatch completion reward")
		return
	}

	s.mu.Lock()
	s.completed = true
	s.result = result
	s.mu.Unlock()

	s.logger.Info().
		Float64("elapsed", elapsed).
		Msg("video completion detected")
}
