package player

// EventKind identifies a state-change notification.
type EventKind string

const (
	EventSubtitleLoaded    EventKind = "subtitle_loaded"
	EventSubtitleCleared   EventKind = "subtitle_cleared"
	EventTranslationMerged EventKind = "translation_merged"
	EventSentenceChanged   EventKind = "sentence_changed"
	EventPlayStateChanged  EventKind = "play_state_changed"
	EventClipsUpdated      EventKind = "clips_updated"
)

// Event is published to subscribers after the corresponding state
// change is visible. Listeners run synchronously on the publishing
// goroutine and must return quickly.
type Event struct {
	Kind EventKind
}

// Listener receives published events.
type Listener func(Event)

// Subscribe registers a listener and returns its unsubscribe func.
func (c *Controller) Subscribe(fn Listener) func() {
	c.subMu.Lock()
	id := c.nextSubID
	c.nextSubID++
	c.subscribers[id] = fn
	c.subMu.Unlock()

	return func() {
		c.subMu.Lock()
		delete(c.subscribers, id)
		c.subMu.Unlock()
	}
}

// publish must be called without holding c.mu; listeners may call
// back into the controller.
func (c *Controller) publish(kind EventKind) {
	c.subMu.RLock()
	listeners := make([]Listener, 0, len(c.subscribers))
	for _, fn := range c.subscribers {
		listeners = append(listeners, fn)
	}
	c.subMu.RUnlock()

	for _, fn := range listeners {
		fn(Event{Kind: kind})
	}
}
