package player

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/afanty2021/DashPlayer/internal/subtitle"
)

type fakeParser struct {
	mu    sync.Mutex
	sets  map[string]*subtitle.Set
	calls int
}

func (p *fakeParser) Parse(_ context.Context, path string) (*subtitle.Set, error) {
	p.mu.Lock()
	p.calls++
	set := p.sets[path]
	p.mu.Unlock()
	if set == nil {
		return nil, fmt.Errorf("unparseable subtitle: %s", path)
	}
	return set, nil
}

func (p *fakeParser) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

type fakeProvider struct {
	mu      sync.Mutex
	calls   [][]string
	failing bool
	// gate, when set, blocks the first call until released so a
	// superseding session can run while that call is in flight
	gate chan struct{}
}

// BatchTranslate tags every result with the call ordinal so tests can
// tell which call produced a holder entry.
func (p *fakeProvider) BatchTranslate(_ context.Context, texts []string) (map[string]string, error) {
	p.mu.Lock()
	idx := len(p.calls)
	p.calls = append(p.calls, append([]string(nil), texts...))
	gate := p.gate
	failing := p.failing
	p.mu.Unlock()

	if gate != nil && idx == 0 {
		<-gate
	}
	if failing {
		return nil, fmt.Errorf("provider unavailable")
	}

	ret := make(map[string]string, len(texts))
	for _, text := range texts {
		ret[text] = fmt.Sprintf("call%d:%s", idx, text)
	}
	return ret, nil
}

func (p *fakeProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

func (p *fakeProvider) call(i int) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[i]
}

type fakeHistory struct {
	mu        sync.Mutex
	saves     []time.Duration
	saveFiles []string
	favorites map[string][]int
	clipCalls int
}

func (h *fakeHistory) SaveProgress(_ context.Context, file string, position, _ time.Duration) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.saves = append(h.saves, position)
	h.saveFiles = append(h.saveFiles, file)
	return nil
}

func (h *fakeHistory) ClipIndices(_ context.Context, srtHash string, _ []int) ([]int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clipCalls++
	return h.favorites[srtHash], nil
}

func (h *fakeHistory) saveCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.saves)
}

func (h *fakeHistory) clipLookupCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.clipCalls
}

// makeSet builds n contiguous five-second sentences with the given
// group window.
func makeSet(hash string, n, groupSize int) *subtitle.Set {
	sentences := make([]subtitle.Sentence, n)
	for i := range sentences {
		sentences[i] = subtitle.Sentence{
			Index:      i,
			Start:      time.Duration(i*5) * time.Second,
			End:        time.Duration(i*5+5) * time.Second,
			Text:       fmt.Sprintf("sentence %d", i),
			TransGroup: i/groupSize + 1,
		}
	}
	return &subtitle.Set{Sentences: sentences, Hash: hash}
}

func newTestController(t *testing.T, parser Parser, provider *fakeProvider, history HistorySink) *Controller {
	t.Helper()
	c := NewController(parser, provider, history, WithPollInterval(5*time.Millisecond))
	t.Cleanup(c.Close)
	return c
}

func TestController_LoadPublishesSentencesBeforeTranslations(t *testing.T) {
	parser := &fakeParser{sets: map[string]*subtitle.Set{"a.srt": makeSet("hash-a", 4, 2)}}
	provider := &fakeProvider{gate: make(chan struct{})}
	c := newTestController(t, parser, provider, nil)

	c.SetSubtitlePath("a.srt")

	// sentences are visible while the first translate call is gated
	require.Eventually(t, func() bool {
		snap := c.Snapshot()
		return snap.State == StateStreaming && snap.SentenceCount == 4
	}, time.Second, 2*time.Millisecond)

	snap := c.Snapshot()
	assert.Equal(t, "hash-a", snap.SrtHash)
	assert.Zero(t, snap.TranslatedCount)

	close(provider.gate)
	require.Eventually(t, func() bool {
		_, ok := c.Translation("sentence 0")
		return ok
	}, time.Second, 2*time.Millisecond)
}

func TestController_SoftParseFailureClearsPath(t *testing.T) {
	parser := &fakeParser{sets: map[string]*subtitle.Set{}}
	provider := &fakeProvider{}
	c := newTestController(t, parser, provider, nil)

	c.SetSubtitlePath("broken.srt")

	require.Eventually(t, func() bool {
		return c.Snapshot().State == StateFailed
	}, time.Second, 2*time.Millisecond)

	snap := c.Snapshot()
	assert.Empty(t, snap.SubtitlePath)
	assert.Zero(t, snap.SentenceCount)
	assert.Zero(t, provider.callCount())
}

func TestController_TranslatesGroupsAroundPlayhead(t *testing.T) {
	// groups: 1:[s0,s1] 2:[s2,s3] 3:[s4,s5]
	parser := &fakeParser{sets: map[string]*subtitle.Set{"a.srt": makeSet("hash-a", 6, 2)}}
	provider := &fakeProvider{}
	c := newTestController(t, parser, provider, nil)

	c.SetSubtitlePath("a.srt")

	// no sentence is active yet: default group 1 → candidates {1,2}
	// (group 0 does not exist)
	require.Eventually(t, func() bool {
		return provider.callCount() >= 1
	}, time.Second, 2*time.Millisecond)
	first := provider.call(0)
	assert.ElementsMatch(t,
		[]string{"sentence 0", "sentence 1", "sentence 2", "sentence 3"},
		first)

	require.Eventually(t, func() bool {
		got, ok := c.Translation("sentence 0")
		return ok && got == "call0:sentence 0"
	}, time.Second, 2*time.Millisecond)

	// surrounding groups are finished: the loop idles
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, provider.callCount())

	// playhead moves into group 3 → candidates {2,3,4} minus finished
	// {1,2} → group 3 sentences only
	c.Seek(21 * time.Second)
	require.Eventually(t, func() bool {
		return provider.callCount() >= 2
	}, time.Second, 2*time.Millisecond)
	second := provider.call(1)
	assert.ElementsMatch(t, []string{"sentence 4", "sentence 5"}, second)
}

func TestController_FinishedGroupsAreNeverRevisited(t *testing.T) {
	parser := &fakeParser{sets: map[string]*subtitle.Set{"a.srt": makeSet("hash-a", 4, 2)}}
	provider := &fakeProvider{}
	c := newTestController(t, parser, provider, nil)

	c.SetSubtitlePath("a.srt")
	require.Eventually(t, func() bool {
		return provider.callCount() >= 1
	}, time.Second, 2*time.Millisecond)

	// scrub back to the beginning; groups 1 and 2 are already done
	c.Seek(0)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, provider.callCount())
}

func TestController_FailedBatchIsNotRetried(t *testing.T) {
	parser := &fakeParser{sets: map[string]*subtitle.Set{"a.srt": makeSet("hash-a", 4, 2)}}
	provider := &fakeProvider{failing: true}
	c := newTestController(t, parser, provider, nil)

	c.SetSubtitlePath("a.srt")
	require.Eventually(t, func() bool {
		return provider.callCount() >= 1
	}, time.Second, 2*time.Millisecond)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, provider.callCount())
	assert.True(t, c.Snapshot().State == StateStreaming)
	_, ok := c.Translation("sentence 0")
	assert.False(t, ok)
}

func TestController_FailedBatchSkipsClipLookup(t *testing.T) {
	parser := &fakeParser{sets: map[string]*subtitle.Set{"a.srt": makeSet("hash-a", 4, 2)}}
	provider := &fakeProvider{failing: true}
	history := &fakeHistory{favorites: map[string][]int{"hash-a": {1}}}
	c := newTestController(t, parser, provider, history)

	c.SetSubtitlePath("a.srt")
	require.Eventually(t, func() bool {
		return provider.callCount() >= 1
	}, time.Second, 2*time.Millisecond)

	// untranslated sentences have no clip metadata to associate
	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, history.clipLookupCount())
	assert.Empty(t, c.Snapshot().FavoriteIndices)
}

func TestController_StaleTranslationIsDiscarded(t *testing.T) {
	parser := &fakeParser{sets: map[string]*subtitle.Set{
		"a.srt": makeSet("hash-a", 2, 2),
		"b.srt": makeSet("hash-b", 2, 2),
	}}
	gate := make(chan struct{})
	provider := &fakeProvider{gate: gate}
	c := newTestController(t, parser, provider, nil)

	c.SetSubtitlePath("a.srt")
	require.Eventually(t, func() bool {
		return provider.callCount() >= 1
	}, time.Second, 2*time.Millisecond)

	// supersede the session while a.srt's translate call (call 0) is
	// gated in flight
	c.SetSubtitlePath("b.srt")

	// the new session translates on its own; both files share sentence
	// texts, so the call ordinal in the value tells the merges apart
	require.Eventually(t, func() bool {
		got, ok := c.Translation("sentence 0")
		return ok && got == "call1:sentence 0"
	}, time.Second, 2*time.Millisecond)
	assert.Equal(t, "hash-b", c.Snapshot().SrtHash)
	assert.Equal(t, 2, c.Snapshot().TranslatedCount)

	// release the superseded call; its result must not overwrite the
	// new session's entries
	close(gate)
	time.Sleep(30 * time.Millisecond)

	got, _ := c.Translation("sentence 0")
	assert.Equal(t, "call1:sentence 0", got)
	assert.Equal(t, 2, c.Snapshot().TranslatedCount)
}

func TestController_SettingSamePathIsNoop(t *testing.T) {
	parser := &fakeParser{sets: map[string]*subtitle.Set{"a.srt": makeSet("hash-a", 2, 2)}}
	provider := &fakeProvider{}
	c := newTestController(t, parser, provider, nil)

	c.SetSubtitlePath("a.srt")
	require.Eventually(t, func() bool {
		return c.Snapshot().State == StateStreaming
	}, time.Second, 2*time.Millisecond)

	c.SetSubtitlePath("a.srt")
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, parser.callCount())
	assert.Equal(t, StateStreaming, c.Snapshot().State)
}

func TestController_ClearingPathTearsDownSession(t *testing.T) {
	parser := &fakeParser{sets: map[string]*subtitle.Set{"a.srt": makeSet("hash-a", 2, 2)}}
	provider := &fakeProvider{}
	c := newTestController(t, parser, provider, nil)

	c.SetSubtitlePath("a.srt")
	require.Eventually(t, func() bool {
		return c.Snapshot().State == StateStreaming && provider.callCount() == 1
	}, time.Second, 2*time.Millisecond)

	c.SetSubtitlePath("")
	snap := c.Snapshot()
	assert.Equal(t, StateIdle, snap.State)
	assert.Zero(t, snap.SentenceCount)
	assert.Zero(t, snap.TranslatedCount)

	calls := provider.callCount()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, calls, provider.callCount())
}

func TestController_FavoriteIndicesAreAssociated(t *testing.T) {
	parser := &fakeParser{sets: map[string]*subtitle.Set{"a.srt": makeSet("hash-a", 4, 2)}}
	provider := &fakeProvider{}
	history := &fakeHistory{favorites: map[string][]int{"hash-a": {1, 3}}}
	c := newTestController(t, parser, provider, history)

	c.SetSubtitlePath("a.srt")

	require.Eventually(t, func() bool {
		snap := c.Snapshot()
		return len(snap.FavoriteIndices) == 2
	}, time.Second, 2*time.Millisecond)
	assert.Equal(t, []int{1, 3}, c.Snapshot().FavoriteIndices)
}

func TestController_EventsArePublished(t *testing.T) {
	parser := &fakeParser{sets: map[string]*subtitle.Set{"a.srt": makeSet("hash-a", 2, 2)}}
	provider := &fakeProvider{}
	c := newTestController(t, parser, provider, nil)

	var mu sync.Mutex
	seen := make(map[EventKind]int)
	unsubscribe := c.Subscribe(func(e Event) {
		mu.Lock()
		seen[e.Kind]++
		mu.Unlock()
	})
	defer unsubscribe()

	c.SetSubtitlePath("a.srt")
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return seen[EventSubtitleLoaded] == 1 && seen[EventTranslationMerged] >= 1
	}, time.Second, 2*time.Millisecond)

	unsubscribe()
	mu.Lock()
	loaded := seen[EventSubtitleLoaded]
	mu.Unlock()

	c.SetSubtitlePath("")
	time.Sleep(20 * time.Millisecond)
	mu.Lock()
	assert.Equal(t, loaded, seen[EventSubtitleLoaded])
	mu.Unlock()
}
