package player

import (
	"context"

	"golang.org/x/sync/singleflight"

	"github.com/afanty2021/DashPlayer/internal/subtitle"
)

// SRTParser parses subtitle files with concurrent parse requests for
// the same path collapsed into one read.
type SRTParser struct {
	groupSize int
	group     singleflight.Group
}

func NewSRTParser(groupSize int) *SRTParser {
	if groupSize <= 0 {
		groupSize = subtitle.DefaultGroupSize
	}
	return &SRTParser{groupSize: groupSize}
}

func (p *SRTParser) Parse(_ context.Context, path string) (*subtitle.Set, error) {
	v, err, _ := p.group.Do(path, func() (any, error) {
		return subtitle.NewReaderWithGroupSize(path, p.groupSize).Read()
	})
	if err != nil {
		return nil, err
	}
	return v.(*subtitle.Set), nil
}
