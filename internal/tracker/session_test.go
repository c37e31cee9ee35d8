package tracker

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"owatch/internal/config"
	"owatch/internal/models"
	"owatch/internal/services"
)

type fakeTicker struct {
	ch      chan time.Time
	stopped chan struct{}
	once    sync.Once
}

func (f *fakeTicker) C() <-chan time.Time { return f.ch }

func (f *fakeTicker) Stop() { f.once.Do(func() { close(f.stopped) }) }

func (f *fakeTicker) isStopped() bool {
	select {
	case <-f.stopped:
		return true
	default:
		return false
	}
}

type fakeClock struct {
	ticker *fakeTicker
}

func newFakeClock() *fakeClock {
	return &fakeClock{ticker: &fakeTicker{
		ch:      make(chan time.Time),
		stopped: make(chan struct{}),
	}}
}

func (f *fakeClock) Now() time.Time { return time.Now() }

func (f *fakeClock) NewTicker(time.Duration) Ticker { return f.ticker }

// tick delivers one tick, or returns once the session stopped its ticker
func (f *fakeClock) tick() {
	select {
	case f.ticker.ch <- time.Now():
	case <-f.ticker.stopped:
	}
}

type fakeStore struct {
	mu       sync.Mutex
	existing map[string]*models.VideoProgress
	upserts  []int
	err      error
}

func newFakeStore() *fakeStore {
	return &fakeStore{existing: make(map[string]*models.VideoProgress)}
}

func storeKey(profileID string, videoID uint) string {
	return fmt.Sprintf("%s:%d", profileID, videoID)
}

func (f *fakeStore) GetProgress(profileID string, videoID uint) (*models.VideoProgress, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.existing[storeKey(profileID, videoID)]; ok {
		return p, nil
	}
	return &models.VideoProgress{ProfileID: profileID, VideoID: videoID}, nil
}

func (f *fakeStore) UpsertProgress(profileID string, videoID uint, lastWatchedSecond int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.upserts = append(f.upserts, lastWatchedSecond)
	return nil
}

func (f *fakeStore) upsertCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.upserts)
}

func (f *fakeStore) lastUpsert() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.upserts) == 0 {
		return -1
	}
	return f.upserts[len(f.upserts)-1]
}

type fakeDispatcher struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeDispatcher) Dispatch(profileID, walletAddress string, video *models.RewardVideo) (*services.RewardResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.calls++
	return &services.RewardResult{Mode: config.RewardModeOffChain, PointsAwarded: video.RewardPointsAmount}, nil
}

func (f *fakeDispatcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeDispatcher) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func testVideo() *models.RewardVideo {
	return &models.RewardVideo{ID: 1, YoutubeID: "yt-1", Title: "t", RewardPointsAmount: 100, RequiredDurationSeconds: 100}
}

func newTestManager(store *fakeStore, rewards *fakeDispatcher, clock Clock) *Manager {
	return NewManager(store, rewards, clock, 10*time.Second, zerolog.Nop())
}

func TestSessionPersistsProgressOnTick(t *testing.T) {
	store := newFakeStore()
	rewards := &fakeDispatcher{}
	clock := newFakeClock()
	manager := newTestManager(store, rewards, clock)
	defer manager.Shutdown()

	session, err := manager.Start("p1", "0xabc", testVideo())
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	session.Heartbeat(42, 5)
	clock.tick()

	waitFor(t, func() bool { return store.upsertCount() == 1 })
	if store.lastUpsert() != 42 {
		t.Errorf("expected position 42 persisted, got %d", store.lastUpsert())
	}
	if rewards.callCount() != 0 {
		t.Errorf("dispatch fired below threshold")
	}
}

func TestCompletionFiresAtThreshold(t *testing.T) {
	store := newFakeStore()
	rewards := &fakeDispatcher{}
	clock := newFakeClock()
	manager := newTestManager(store, rewards, clock)
	defer manager.Shutdown()

	session, err := manager.Start("p1", "0xabc", testVideo())
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// 79 of the 80 required seconds: no completion
	session.Heartbeat(85, 79)
	clock.tick()
	waitFor(t, func() bool { return store.upsertCount() == 1 })
	if rewards.callCount() != 0 {
		t.Fatal("dispatch fired one second early")
	}

	// Crossing the 0.8 threshold completes exactly once
	session.Heartbeat(86, 1)
	clock.tick()
	waitFor(t, func() bool { return rewards.callCount() == 1 })

	state := session.State()
	if !state.Completed {
		t.Error("expected session marked completed")
	}

	// Further ticks and heartbeats never re-fire
	session.Heartbeat(90, 10)
	clock.tick()
	clock.tick()
	if rewards.callCount() != 1 {
		t.Errorf("expected a single dispatch, got %d", rewards.callCount())
	}
}

func TestCompletionStopsSyncTicker(t *testing.T) {
	store := newFakeStore()
	rewards := &fakeDispatcher{}
	clock := newFakeClock()
	manager := newTestManager(store, rewards, clock)
	defer manager.Shutdown()

	session, err := manager.Start("p1", "0xabc", testVideo())
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	session.Heartbeat(90, 100)
	clock.tick()
	waitFor(t, func() bool { return rewards.callCount() == 1 })

	// A completed session has nothing left to sync, so its ticker stops
	waitFor(t, func() bool { return clock.ticker.isStopped() })
}

func TestCompletedProgressSuppressesDispatchAndSync(t *testing.T) {
	store := newFakeStore()
	now := time.Now()
	store.existing[storeKey("p1", 1)] = &models.VideoProgress{
		ProfileID:      "p1",
		VideoID:        1,
		IsCompleted:    true,
		CompletionTime: &now,
	}
	rewards := &fakeDispatcher{}
	clock := newFakeClock()
	manager := newTestManager(store, rewards, clock)
	defer manager.Shutdown()

	session, err := manager.Start("p1", "0xabc", testVideo())
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	session.Heartbeat(50, 100)
	clock.tick()
	clock.tick()

	if rewards.callCount() != 0 {
		t.Errorf("completed video dispatched again")
	}
	if store.upsertCount() != 0 {
		t.Errorf("completed video progress was overwritten")
	}
}

func TestDispatchErrorRetriesNextTick(t *testing.T) {
	store := newFakeStore()
	rewards := &fakeDispatcher{}
	rewards.setErr(errors.New("transient"))
	clock := newFakeClock()
	manager := newTestManager(store, rewards, clock)
	defer manager.Shutdown()

	session, err := manager.Start("p1", "0xabc", testVideo())
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	session.Heartbeat(90, 100)
	clock.tick()
	waitFor(t, func() bool { return store.upsertCount() == 1 })

	if session.State().Completed {
		t.Fatal("session completed despite dispatch failure")
	}

	rewards.setErr(nil)
	clock.tick()
	waitFor(t, func() bool { return rewards.callCount() == 1 })
	waitFor(t, func() bool { return session.State().Completed })
}

func TestAlreadyCompletedDispatchMarksSession(t *testing.T) {
	store := newFakeStore()
	rewards := &fakeDispatcher{}
	rewards.setErr(services.ErrAlreadyCompleted)
	clock := newFakeClock()
	manager := newTestManager(store, rewards, clock)
	defer manager.Shutdown()

	session, err := manager.Start("p1", "0xabc", testVideo())
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	session.Heartbeat(90, 100)
	clock.tick()

	waitFor(t, func() bool { return session.State().Completed })
	if rewards.callCount() != 0 {
		t.Errorf("dispatch should have been rejected, got %d calls", rewards.callCount())
	}
}

func TestStopFlushesFinalProgress(t *testing.T) {
	store := newFakeStore()
	rewards := &fakeDispatcher{}
	clock := newFakeClock()
	manager := newTestManager(store, rewards, clock)

	session, err := manager.Start("p1", "0xabc", testVideo())
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	session.Heartbeat(33, 10)

	state, ok := manager.Stop("p1", 1)
	if !ok {
		t.Fatal("expected live session")
	}
	if state.Position != 33 {
		t.Errorf("expected final position 33, got %d", state.Position)
	}
	if store.upsertCount() != 1 || store.lastUpsert() != 33 {
		t.Errorf("expected final flush of 33, got %v", store.upserts)
	}

	if _, ok := manager.Get("p1", 1); ok {
		t.Error("stopped session still registered")
	}
}

func TestStartReplacesExistingSession(t *testing.T) {
	store := newFakeStore()
	rewards := &fakeDispatcher{}
	clock := newFakeClock()
	manager := newTestManager(store, rewards, clock)
	defer manager.Shutdown()

	first, err := manager.Start("p1", "0xabc", testVideo())
	if err != nil {
		t.Fatalf("first Start failed: %v", err)
	}
	first.Heartbeat(10, 5)

	second, err := manager.Start("p1", "0xabc", testVideo())
	if err != nil {
		t.Fatalf("second Start failed: %v", err)
	}
	if first == second {
		t.Fatal("expected a fresh session")
	}

	// The replaced session flushed its progress on close
	if store.upsertCount() != 1 {
		t.Errorf("expected 1 flush from replaced session, got %d", store.upsertCount())
	}

	current, ok := manager.Get("p1", 1)
	if !ok || current != second {
		t.Error("manager should hold the replacement session")
	}
}

func TestManagerShutdownClosesAll(t *testing.T) {
	store := newFakeStore()
	rewards := &fakeDispatcher{}
	clock := newFakeClock()
	manager := newTestManager(store, rewards, clock)

	video2 := testVideo()
	video2.ID = 2
	video2.YoutubeID = "yt-2"

	if _, err := manager.Start("p1", "0xabc", testVideo()); err != nil {
		t.Fatal(err)
	}
	if _, err := manager.Start("p2", "0xdef", video2); err != nil {
		t.Fatal(err)
	}

	manager.Shutdown()

	if store.upsertCount() != 2 {
		t.Errorf("expected 2 final flushes, got %d", store.upsertCount())
	}
	if _, ok := manager.Get("p1", 1); ok {
		t.Error("session survived shutdown")
	}
}
