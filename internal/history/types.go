package history

import "time"

// WatchProgress is the persisted playback position of one media file.
type WatchProgress struct {
	File      string        `json:"file"`
	Position  time.Duration `json:"position"`
	Duration  time.Duration `json:"duration"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// FavoriteClip marks one subtitle sentence of a specific subtitle
// content (identified by hash) as favorited.
type FavoriteClip struct {
	ID            string    `json:"id"`
	SrtHash       string    `json:"srt_hash"`
	SentenceIndex int       `json:"sentence_index"`
	Text          string    `json:"text"`
	CreatedAt     time.Time `json:"created_at"`
}
