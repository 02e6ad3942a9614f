package subtitle

import (
	"time"

	"golang.org/x/text/language"
)

// DefaultGroupSize is the number of sentences per translation group.
// Groups number from 1; group 0 never exists.
const DefaultGroupSize = 20

// Reader is the interface for parsing subtitle files
type Reader interface {
	Read() (*Set, error)
}

// Sentence represents a single timed subtitle sentence
type Sentence struct {
	Index      int           // position in the file, zero-based
	Start      time.Duration // start time
	End        time.Duration // end time
	Text       string        // subtitle text
	TransGroup int           // translation batch this sentence belongs to
}

// Set represents the parsed content of one subtitle file. It is
// replaced wholesale when the subtitle path changes, never mutated.
type Set struct {
	Sentences []Sentence
	Hash      string // hex SHA-256 of the raw file bytes
	Language  language.Tag
}
