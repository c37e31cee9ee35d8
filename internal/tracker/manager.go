package tracker

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"owatch/internal/metrics"
	"owatch/internal/models"
)

// Manager owns all live watch sessions, one per profile/video pair
type Manager struct {
	store        ProgressStore
	rewards      RewardDispatcher
	clock        Clock
	syncInterval time.Duration
	logger       zerolog.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates a session manager
func NewManager(store ProgressStore, rewards RewardDispatcher, clock Clock, syncInterval time.Duration, logger zerolog.Logger) *Manager {
	return &Manager{
		store:        store,
		rewards:      rewards,
		clock:        clock,
		syncInterval: syncInterval,
		logger:       logger,
		sessions:     make(map[string]*Session),
	}
}

func sessionKey(profileID string, videoID uint) string {
	return fmt.Sprintf("%s:%d", profileID, videoID)
}

// Start opens a watch session. An existing session for the same pair is
// closed and replaced, so a page reload starts clean.
func (m *Manager) Start(profileID, wallet string, video *models.RewardVideo) (*Session, error) {
	key := sessionKey(profileID, video.ID)

	m.mu.Lock()
	old := m.sessions[key]
	delete(m.sessions, key)
	m.mu.Unlock()

	if old != nil {
		old.Close()
		metrics.WatchSessionsActive.Dec()
	}

	session, err := newSession(profileID, wallet, video, m.store, m.rewards, m.clock, m.syncInterval, m.logger)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.sessions[key] = session
	m.mu.Unlock()
	metrics.WatchSessionsActive.Inc()

	return session, nil
}

// Get returns the live session for a profile/video pair
func (m *Manager) Get(profileID string, videoID uint) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[sessionKey(profileID, videoID)]
	return session, ok
}

// Stop closes a session and removes it. Returns the final state and whether
// a session existed.
func (m *Manager) Stop(profileID string, videoID uint) (SessionState, bool) {
	key := sessionKey(profileID, videoID)

	m.mu.Lock()
	session, ok := m.sessions[key]
	delete(m.sessions, key)
	m.mu.Unlock()

	if !ok {
		return SessionState{}, false
	}

	state := session.Close()
	metrics.WatchSessionsActive.Dec()
	return state, true
}

// Shutdown closes every live session, flushing progress to the database
func (m *Manager) Shutdown() {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.Close()
		metrics.WatchSessionsActive.Dec()
	}

	if len(sessions) > 0 {
		m.logger.Info().Int("sessions", len(sessions)).Msg("watch sessions flushed")
	}
}
