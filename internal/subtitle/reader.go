package subtitle

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/abadojack/whatlanggo"
	"golang.org/x/text/language"
)

// DefaultReader parses SRT subtitle files into sentence sets
type DefaultReader struct {
	path      string
	groupSize int
}

// NewReader creates a new subtitle file reader
func NewReader(path string) Reader {
	return &DefaultReader{
		path:      path,
		groupSize: DefaultGroupSize,
	}
}

// NewReaderWithGroupSize creates a reader with a custom translation
// group window.
func NewReaderWithGroupSize(path string, groupSize int) Reader {
	if groupSize <= 0 {
		groupSize = DefaultGroupSize
	}
	return &DefaultReader{
		path:      path,
		groupSize: groupSize,
	}
}

// Read parses the subtitle file into a Set
func (r *DefaultReader) Read() (*Set, error) {
	if !strings.HasSuffix(strings.ToLower(r.path), ".srt") {
		return nil, fmt.Errorf("only SRT format subtitle files are supported: %s", r.path)
	}

	if _, err := os.Stat(r.path); os.IsNotExist(err) {
		return nil, fmt.Errorf("subtitle file does not exist: %s", r.path)
	}

	data, err := os.ReadFile(r.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read subtitle file: %w", err)
	}

	return ReadBytes(data, r.groupSize)
}

// ReadBytes parses raw SRT content. The sentence index is the position
// in the file, not the declared SRT counter, so it stays unique and
// monotonic even for sloppy files.
func ReadBytes(data []byte, groupSize int) (*Set, error) {
	if groupSize <= 0 {
		groupSize = DefaultGroupSize
	}

	var sentences []Sentence
	scanner := bufio.NewScanner(bytes.NewReader(data))

	current := Sentence{}
	state := "index" // possible values: "index", "time", "text"
	var textLines []string

	appendSentence := func() {
		current.Index = len(sentences)
		current.Text = strings.Join(textLines, "\n")
		current.TransGroup = current.Index/groupSize + 1
		sentences = append(sentences, current)
		current = Sentence{}
	}

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		switch state {
		case "index":
			if line == "" {
				continue
			}
			if _, err := strconv.Atoi(line); err != nil {
				continue // skip non-index lines
			}
			state = "time"

		case "time":
			if line == "" {
				continue
			}
			start, end, err := parseSRTTime(line)
			if err != nil {
				return nil, fmt.Errorf("failed to parse time: %w", err)
			}
			current.Start = start
			current.End = end
			state = "text"
			textLines = []string{}

		case "text":
			if line == "" {
				// sentence text ends
				if len(textLines) > 0 {
					appendSentence()
				}
				state = "index"
				textLines = []string{}
			} else {
				textLines = append(textLines, line)
			}
		}
	}

	// handle last sentence
	if state == "text" && len(textLines) > 0 {
		appendSentence()
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read subtitle content: %w", err)
	}

	if len(sentences) == 0 {
		return nil, fmt.Errorf("no subtitle sentences found")
	}

	sum := sha256.Sum256(data)

	return &Set{
		Sentences: sentences,
		Hash:      hex.EncodeToString(sum[:]),
		Language:  detectLanguage(sentences),
	}, nil
}

var srtTimeRe = regexp.MustCompile(`(\d{2}):(\d{2}):(\d{2}),(\d{3}) --> (\d{2}):(\d{2}):(\d{2}),(\d{3})`)

// parseSRTTime parses an SRT time line, e.g.
// "00:02:16,612 --> 00:02:19,376".
func parseSRTTime(timeString string) (time.Duration, time.Duration, error) {
	matches := srtTimeRe.FindStringSubmatch(timeString)
	if len(matches) != 9 {
		return 0, 0, fmt.Errorf("invalid time format: %s", timeString)
	}

	parseTime := func(hours, minutes, seconds, milliseconds string) time.Duration {
		h, _ := strconv.Atoi(hours)
		m, _ := strconv.Atoi(minutes)
		s, _ := strconv.Atoi(seconds)
		ms, _ := strconv.Atoi(milliseconds)

		return time.Duration(h)*time.Hour +
			time.Duration(m)*time.Minute +
			time.Duration(s)*time.Second +
			time.Duration(ms)*time.Millisecond
	}

	start := parseTime(matches[1], matches[2], matches[3], matches[4])
	end := parseTime(matches[5], matches[6], matches[7], matches[8])
	return start, end, nil
}

// detectLanguage picks the majority language across all sentences
func detectLanguage(sentences []Sentence) language.Tag {
	if len(sentences) == 0 {
		return language.Und
	}

	langMap := make(map[string]int)
	for _, s := range sentences {
		lang := whatlanggo.DetectLang(s.Text).Iso6391()
		langMap[lang]++
	}

	var topLang string
	var topCount int
	for lang, count := range langMap {
		if count > topCount {
			topLang = lang
			topCount = count
		}
	}

	return language.All.Make(topLang)
}
