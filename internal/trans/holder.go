package trans

import "sync"

// Holder accumulates partial translation results for one playback
// session, keyed by source text. It grows monotonically; merging is
// idempotent and last-write-wins on conflicting values. A Holder is
// discarded wholesale when the session ends.
type Holder struct {
	mu      sync.RWMutex
	entries map[string]string
}

func NewHolder() *Holder {
	return &Holder{entries: make(map[string]string)}
}

// HolderFrom creates a Holder pre-populated with the given entries.
func HolderFrom(entries map[string]string) *Holder {
	h := NewHolder()
	h.Merge(entries)
	return h
}

// Merge adds the entries to the holder. Existing keys are overwritten
// with the newer value.
func (h *Holder) Merge(entries map[string]string) {
	if h == nil || len(entries) == 0 {
		return
	}
	h.mu.Lock()
	for text, translated := range entries {
		h.entries[text] = translated
	}
	h.mu.Unlock()
}

// Get returns the translation for a source text. The second return
// value distinguishes "not yet translated" from an explicitly empty
// translation.
func (h *Holder) Get(text string) (string, bool) {
	if h == nil {
		return "", false
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	translated, ok := h.entries[text]
	return translated, ok
}

func (h *Holder) IsEmpty() bool {
	return h.Len() == 0
}

func (h *Holder) Len() int {
	if h == nil {
		return 0
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.entries)
}

// Snapshot returns a copy of the accumulated entries.
func (h *Holder) Snapshot() map[string]string {
	if h == nil {
		return nil
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	ret := make(map[string]string, len(h.entries))
	for text, translated := range h.entries {
		ret[text] = translated
	}
	return ret
}
