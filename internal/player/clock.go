package player

import (
	"context"
	"sync"
	"time"

	"github.com/afanty2021/DashPlayer/pkg/log"
	"github.com/afanty2021/DashPlayer/pkg/strutil"
)

const (
	defaultSyncInterval        = 300 * time.Millisecond
	defaultPausedRefreshPeriod = 1000 * time.Millisecond
	defaultPersistEveryNthTick = 5
)

// SetExactTime is the high-frequency playback position feed from the
// player shell. It only records the value; projection into the
// display time happens on the synchronizer's schedule.
func (c *Controller) SetExactTime(t time.Duration) {
	c.mu.Lock()
	c.exactTime = t
	c.mu.Unlock()
}

// SetPlaying switches the play state and notifies subscribers. The
// synchronizer reacts by rotating its timers.
func (c *Controller) SetPlaying(playing bool) {
	c.mu.Lock()
	if c.playing == playing {
		c.mu.Unlock()
		return
	}
	c.playing = playing
	c.mu.Unlock()
	c.publish(EventPlayStateChanged)
}

// Playing reports the current play state.
func (c *Controller) Playing() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.playing
}

// Seek moves both clock faces at once and refreshes the sentence
// pointer immediately, bypassing the periodic sync.
func (c *Controller) Seek(t time.Duration) {
	c.mu.Lock()
	c.exactTime = t
	c.displayTime = t
	c.mu.Unlock()
	c.refreshCurrentSentence()
}

// syncDisplayTime copies the exact time into the display time.
func (c *Controller) syncDisplayTime() {
	c.mu.Lock()
	c.displayTime = c.exactTime
	c.mu.Unlock()
	c.refreshCurrentSentence()
}

// refreshCurrentSentence recomputes the sentence pointer from the
// exact time. The pointer only moves when the looked-up sentence
// differs by identity, so downstream reactivity stays quiet during
// steady playback.
func (c *Controller) refreshCurrentSentence() {
	c.mu.Lock()
	if c.index == nil {
		c.mu.Unlock()
		return
	}
	next := c.index.Lookup(c.exactTime)
	if next == c.current {
		c.mu.Unlock()
		return
	}
	c.current = next
	c.mu.Unlock()
	c.publish(EventSentenceChanged)
}

// persistProgress sends the current display position to the history
// sink. No-op when no media file is loaded; failures are logged only.
func (c *Controller) persistProgress() {
	if c.history == nil {
		return
	}
	c.mu.RLock()
	file := c.mediaPath
	position := c.displayTime
	duration := c.duration
	c.mu.RUnlock()
	if strutil.IsBlank(file) {
		return
	}
	if err := c.history.SaveProgress(context.Background(), file, position, duration); err != nil {
		log.Warn("Failed to persist playback progress for %s: %v", file, err)
	}
}

// Synchronizer reconciles the high-frequency clock with the display
// time and keeps the sentence pointer fresh while paused. It owns its
// timers exclusively: every play-state transition cancels the previous
// state's timer before starting the next, so at most one timer of each
// kind is ever outstanding.
type Synchronizer struct {
	c *Controller

	syncInterval   time.Duration
	pausedInterval time.Duration
	persistEvery   int

	unsubscribe func()

	timerMu    sync.Mutex
	syncStop   chan struct{}
	pausedStop chan struct{}
}

// SyncOption configures a Synchronizer.
type SyncOption func(*Synchronizer)

func WithSyncInterval(d time.Duration) SyncOption {
	return func(s *Synchronizer) {
		if d > 0 {
			s.syncInterval = d
		}
	}
}

func WithPausedRefreshInterval(d time.Duration) SyncOption {
	return func(s *Synchronizer) {
		if d > 0 {
			s.pausedInterval = d
		}
	}
}

func WithPersistEvery(n int) SyncOption {
	return func(s *Synchronizer) {
		if n > 0 {
			s.persistEvery = n
		}
	}
}

func NewSynchronizer(c *Controller, opts ...SyncOption) *Synchronizer {
	s := &Synchronizer{
		c:              c,
		syncInterval:   defaultSyncInterval,
		pausedInterval: defaultPausedRefreshPeriod,
		persistEvery:   defaultPersistEveryNthTick,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start subscribes to play-state changes and applies the current state
// once.
func (s *Synchronizer) Start() {
	s.unsubscribe = s.c.Subscribe(func(e Event) {
		if e.Kind == EventPlayStateChanged {
			s.apply(s.c.Playing())
		}
	})
	s.apply(s.c.Playing())
}

// Stop cancels timers and drops the subscription.
func (s *Synchronizer) Stop() {
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
	s.timerMu.Lock()
	s.stopSyncLocked()
	s.stopPausedLocked()
	s.timerMu.Unlock()
}

func (s *Synchronizer) apply(playing bool) {
	s.timerMu.Lock()
	defer s.timerMu.Unlock()

	if playing {
		s.stopPausedLocked()
		s.startSyncLocked()
		return
	}

	s.stopSyncLocked()
	// While paused the high-frequency sync is off, but scrubbing must
	// still move the highlighted sentence, just at a lower frequency.
	// Modes that pin the current sentence suppress the refresh.
	c := s.c
	c.mu.RLock()
	skip := c.autoPause || c.singleRepeat || c.index == nil
	c.mu.RUnlock()
	if !skip {
		s.startPausedLocked()
	}
}

func (s *Synchronizer) startSyncLocked() {
	if s.syncStop != nil {
		return
	}
	stop := make(chan struct{})
	s.syncStop = stop
	go s.syncLoop(stop)
}

func (s *Synchronizer) stopSyncLocked() {
	if s.syncStop != nil {
		close(s.syncStop)
		s.syncStop = nil
	}
}

func (s *Synchronizer) startPausedLocked() {
	if s.pausedStop != nil {
		return
	}
	stop := make(chan struct{})
	s.pausedStop = stop
	go s.pausedRefreshLoop(stop)
}

func (s *Synchronizer) stopPausedLocked() {
	if s.pausedStop != nil {
		close(s.pausedStop)
		s.pausedStop = nil
	}
}

// syncLoop runs while playing: one immediate sync, then one per tick,
// with a progress persist every Nth tick.
func (s *Synchronizer) syncLoop(stop chan struct{}) {
	ticker := time.NewTicker(s.syncInterval)
	defer ticker.Stop()

	s.c.syncDisplayTime()

	ticks := 0
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.c.syncDisplayTime()
			ticks++
			if ticks%s.persistEvery == 0 {
				s.c.persistProgress()
			}
		}
	}
}

// pausedRefreshLoop keeps the sentence pointer tracking the exact time
// while the player is paused.
func (s *Synchronizer) pausedRefreshLoop(stop chan struct{}) {
	ticker := time.NewTicker(s.pausedInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.c.refreshCurrentSentence()
		}
	}
}
