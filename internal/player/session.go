package player

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/afanty2021/DashPlayer/internal/subtitle"
	"github.com/afanty2021/DashPlayer/internal/trans"
	"github.com/afanty2021/DashPlayer/pkg/log"
	"github.com/afanty2021/DashPlayer/pkg/strutil"
)

const (
	defaultPollInterval = 500 * time.Millisecond
	// defaultTransGroup is assumed when no sentence is active yet;
	// groups number from 1.
	defaultTransGroup = 1
)

// Controller owns the active playback session: the subtitle path (the
// session token), the published sentence set, the translation holder
// and the playback clock. The path is the sole staleness signal: any
// goroutine resuming after a blocking step must re-check its captured
// token before mutating shared state, and abandon silently otherwise.
type Controller struct {
	parser   Parser
	provider trans.Provider
	history  HistorySink

	pollInterval time.Duration

	mu           sync.RWMutex
	state        State
	mediaPath    string
	subtitlePath string
	set          *subtitle.Set
	index        *subtitle.Index
	holder       *trans.Holder
	current      *subtitle.Sentence
	favorites    map[int]bool

	playing      bool
	autoPause    bool
	singleRepeat bool
	exactTime    time.Duration
	displayTime  time.Duration
	duration     time.Duration

	subMu       sync.RWMutex
	subscribers map[int]Listener
	nextSubID   int

	wg sync.WaitGroup
}

// Option configures a Controller.
type Option func(*Controller)

// WithPollInterval overrides the translation loop sleep interval.
func WithPollInterval(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

func NewController(parser Parser, provider trans.Provider, history HistorySink, opts ...Option) *Controller {
	c := &Controller{
		parser:       parser,
		provider:     provider,
		history:      history,
		pollInterval: defaultPollInterval,
		state:        StateIdle,
		holder:       trans.NewHolder(),
		subscribers:  make(map[int]Listener),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetSubtitlePath replaces the session token. The previous session's
// loop observes the change on its next resumption point and exits
// without further mutation. Setting the already-current path is a
// no-op. A blank path tears the session down.
func (c *Controller) SetSubtitlePath(path string) {
	c.mu.Lock()
	if path == c.subtitlePath {
		c.mu.Unlock()
		return
	}
	c.subtitlePath = path
	c.set = nil
	c.index = nil
	c.holder = trans.NewHolder()
	c.current = nil
	c.favorites = nil
	if strutil.IsBlank(path) {
		c.state = StateIdle
	} else {
		c.state = StateLoading
	}
	c.mu.Unlock()

	c.publish(EventSubtitleCleared)

	if strutil.IsNotBlank(path) {
		c.wg.Add(1)
		go c.runSession(path)
	}
}

// SubtitlePath returns the current session token.
func (c *Controller) SubtitlePath() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.subtitlePath
}

// SetMediaPath records the media file currently loaded in the player.
func (c *Controller) SetMediaPath(path string) {
	c.mu.Lock()
	c.mediaPath = path
	c.mu.Unlock()
}

// SetDuration records the media duration reported by the player shell.
func (c *Controller) SetDuration(d time.Duration) {
	c.mu.Lock()
	c.duration = d
	c.mu.Unlock()
}

// SetAutoPause toggles auto-pause mode.
func (c *Controller) SetAutoPause(on bool) {
	c.mu.Lock()
	c.autoPause = on
	c.mu.Unlock()
}

// SetSingleRepeat toggles single-sentence repeat mode.
func (c *Controller) SetSingleRepeat(on bool) {
	c.mu.Lock()
	c.singleRepeat = on
	c.mu.Unlock()
}

// Close tears down the active session and waits for its loop to exit.
func (c *Controller) Close() {
	c.SetSubtitlePath("")
	c.wg.Wait()
}

func (c *Controller) isCurrent(token string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.subtitlePath == token
}

// runSession parses the subtitle and drives the incremental
// translation loop until the token is superseded.
func (c *Controller) runSession(token string) {
	defer c.wg.Done()
	ctx := context.Background()

	set, err := c.parser.Parse(ctx, token)
	if err != nil || set == nil || len(set.Sentences) == 0 {
		// Soft failure: clear the path and the published subtitles,
		// no user-facing error.
		log.Warn("Failed to parse subtitle %s: %v", token, err)
		c.mu.Lock()
		if c.subtitlePath != token {
			c.mu.Unlock()
			return
		}
		c.subtitlePath = ""
		c.state = StateFailed
		c.set = nil
		c.index = nil
		c.holder = trans.NewHolder()
		c.current = nil
		c.favorites = nil
		c.mu.Unlock()
		c.publish(EventSubtitleCleared)
		return
	}

	c.mu.Lock()
	if c.subtitlePath != token {
		c.mu.Unlock()
		return
	}
	// Publish untranslated sentences immediately; translations stream
	// in behind them.
	c.set = set
	c.index = subtitle.NewIndex(set.Sentences)
	c.state = StateStreaming
	c.favorites = make(map[int]bool)
	c.mu.Unlock()
	c.publish(EventSubtitleLoaded)

	log.Info("Subtitle loaded: %s (%d sentences, lang %s)", token, len(set.Sentences), set.Language)

	// finishedGroups is per-session and monotonic: a group is never
	// re-submitted, even when the playhead scrubs back into it.
	finished := make(map[int]struct{})

	for c.isCurrent(token) {
		batch := c.nextVisibleBatch(finished, set.Sentences)
		if len(batch) > 0 {
			texts := make([]string, len(batch))
			indices := make([]int, len(batch))
			for i, s := range batch {
				texts[i] = s.Text
				indices[i] = s.Index
			}

			result, err := c.provider.BatchTranslate(ctx, texts)
			if !c.isCurrent(token) {
				return
			}
			if err != nil {
				// The groups stay finished: failed batches are not
				// retried within the session.
				log.Warn("Batch translation of %d sentences failed, leaving them untranslated: %v", len(texts), err)
			} else {
				if len(result) > 0 {
					if !c.mergeTranslations(token, result) {
						return
					}
					c.publish(EventTranslationMerged)
				}
				// clip metadata only matters for sentences that made
				// it through translation
				c.refreshFavorites(token, set.Hash, indices)
			}
		}
		time.Sleep(c.pollInterval)
	}
}

// nextVisibleBatch returns the sentences of the untranslated groups
// around the playhead, marking those groups finished. Returns nil when
// the surrounding groups are already done.
func (c *Controller) nextVisibleBatch(finished map[int]struct{}, sentences []subtitle.Sentence) []subtitle.Sentence {
	currentGroup := defaultTransGroup
	c.mu.RLock()
	if c.current != nil {
		currentGroup = c.current.TransGroup
	}
	c.mu.RUnlock()

	candidates := make(map[int]struct{}, 3)
	for _, g := range []int{currentGroup - 1, currentGroup, currentGroup + 1} {
		if _, done := finished[g]; !done {
			candidates[g] = struct{}{}
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	var batch []subtitle.Sentence
	for _, s := range sentences {
		if _, ok := candidates[s.TransGroup]; ok {
			batch = append(batch, s)
		}
	}
	for g := range candidates {
		finished[g] = struct{}{}
	}
	return batch
}

// mergeTranslations applies a provider result to the session's holder.
// Returns false when the token went stale and nothing was merged.
func (c *Controller) mergeTranslations(token string, result map[string]string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.subtitlePath != token {
		return false
	}
	c.holder.Merge(result)
	return true
}

// refreshFavorites asynchronously associates the freshly translated
// sentence indices with favorited-clip metadata. Best effort.
func (c *Controller) refreshFavorites(token, srtHash string, indices []int) {
	if c.history == nil {
		return
	}
	go func() {
		favs, err := c.history.ClipIndices(context.Background(), srtHash, indices)
		if err != nil {
			log.Debug("Favorite clip lookup failed for %s: %v", srtHash, err)
			return
		}
		if len(favs) == 0 {
			return
		}
		c.mu.Lock()
		if c.subtitlePath != token || c.favorites == nil {
			c.mu.Unlock()
			return
		}
		for _, idx := range favs {
			c.favorites[idx] = true
		}
		c.mu.Unlock()
		c.publish(EventClipsUpdated)
	}()
}

// Translation returns the translated text for a source sentence.
func (c *Controller) Translation(text string) (string, bool) {
	c.mu.RLock()
	holder := c.holder
	c.mu.RUnlock()
	return holder.Get(text)
}

// Snapshot returns a consistent copy of the observable state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snap := Snapshot{
		State:        c.state,
		MediaPath:    c.mediaPath,
		SubtitlePath: c.subtitlePath,
		Playing:      c.playing,
		AutoPause:    c.autoPause,
		SingleRepeat: c.singleRepeat,
		ExactTime:    Seconds(c.exactTime),
		DisplayTime:  Seconds(c.displayTime),
		Duration:     Seconds(c.duration),
	}
	if c.set != nil {
		snap.SrtHash = c.set.Hash
		snap.SentenceCount = len(c.set.Sentences)
	}
	snap.TranslatedCount = c.holder.Len()
	if c.current != nil {
		view := SentenceView{
			Index:     c.current.Index,
			Start:     Seconds(c.current.Start),
			End:       Seconds(c.current.End),
			Text:      c.current.Text,
			Favorited: c.favorites[c.current.Index],
		}
		view.Translation, view.Translated = c.holder.Get(c.current.Text)
		snap.CurrentSentence = &view
	}
	for idx, ok := range c.favorites {
		if ok {
			snap.FavoriteIndices = append(snap.FavoriteIndices, idx)
		}
	}
	sort.Ints(snap.FavoriteIndices)
	return snap
}

// CurrentSentence returns the active sentence pointer, nil when none.
func (c *Controller) CurrentSentence() *subtitle.Sentence {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}
