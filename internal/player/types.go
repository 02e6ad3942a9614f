package player

import (
	"context"
	"encoding/json"
	"time"

	"github.com/afanty2021/DashPlayer/internal/subtitle"
)

// State describes the subtitle session lifecycle.
type State string

const (
	// StateIdle means no subtitle path is set.
	StateIdle State = "idle"
	// StateLoading means parsing is in flight.
	StateLoading State = "loading"
	// StateStreaming means the subtitle is published and the
	// incremental translation loop is active.
	StateStreaming State = "streaming"
	// StateFailed means the last subtitle path was unparseable.
	StateFailed State = "failed"
)

// Parser converts a subtitle file path into a sentence set.
type Parser interface {
	Parse(ctx context.Context, path string) (*subtitle.Set, error)
}

// HistorySink receives fire-and-forget progress writes and
// favorite-clip lookups. Failures are logged, never surfaced.
type HistorySink interface {
	SaveProgress(ctx context.Context, file string, position, duration time.Duration) error
	ClipIndices(ctx context.Context, srtHash string, indices []int) ([]int, error)
}

// Seconds is a duration that serializes as fractional seconds,
// matching the seconds-based time inputs the API accepts.
type Seconds time.Duration

func (s Seconds) Duration() time.Duration {
	return time.Duration(s)
}

func (s Seconds) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(s).Seconds())
}

func (s *Seconds) UnmarshalJSON(data []byte) error {
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*s = Seconds(time.Duration(v * float64(time.Second)))
	return nil
}

// SentenceView is the API-facing projection of the current sentence.
type SentenceView struct {
	Index       int     `json:"index"`
	Start       Seconds `json:"start"`
	End         Seconds `json:"end"`
	Text        string  `json:"text"`
	Translation string  `json:"translation"`
	Translated  bool    `json:"translated"`
	Favorited   bool    `json:"favorited"`
}

// Snapshot is a consistent copy of the observable player state.
type Snapshot struct {
	State           State         `json:"state"`
	MediaPath       string        `json:"media_path"`
	SubtitlePath    string        `json:"subtitle_path"`
	SrtHash         string        `json:"srt_hash"`
	SentenceCount   int           `json:"sentence_count"`
	TranslatedCount int           `json:"translated_count"`
	Playing         bool          `json:"playing"`
	AutoPause       bool          `json:"auto_pause"`
	SingleRepeat    bool          `json:"single_repeat"`
	ExactTime       Seconds       `json:"exact_time"`
	DisplayTime     Seconds       `json:"display_time"`
	Duration        Seconds       `json:"duration"`
	CurrentSentence *SentenceView `json:"current_sentence,omitempty"`
	FavoriteIndices []int         `json:"favorite_indices,omitempty"`
}
