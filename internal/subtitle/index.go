package subtitle

import (
	"sort"
	"time"
)

// Index provides time-range lookup over the sentences of one Set.
// Lookup follows continuous-playback expectations: inside a gap or
// past the last sentence, the nearest preceding sentence persists;
// only before the first sentence does lookup return nil.
type Index struct {
	sentences []Sentence
}

// NewIndex builds an index over the given sentences. The slice is
// copied and ordered by start time.
func NewIndex(sentences []Sentence) *Index {
	sorted := append([]Sentence(nil), sentences...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Start < sorted[j].Start
	})
	return &Index{sentences: sorted}
}

// Len returns the number of indexed sentences.
func (x *Index) Len() int {
	if x == nil {
		return 0
	}
	return len(x.sentences)
}

// Lookup returns the sentence active at time t, or nil when t is
// before the first sentence starts.
func (x *Index) Lookup(t time.Duration) *Sentence {
	if x == nil || len(x.sentences) == 0 {
		return nil
	}

	// First sentence with Start > t; the candidate is the one before it.
	i := sort.Search(len(x.sentences), func(i int) bool {
		return x.sentences[i].Start > t
	})
	if i == 0 {
		return nil
	}
	return &x.sentences[i-1]
}
