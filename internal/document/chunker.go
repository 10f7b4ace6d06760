package document

import (
	"strconv"
	"strings"
)

const (
	DefaultWindow  = 200
	DefaultOverlap = 20
)

// Chunker splits segment text into fixed windows of runes where each window
// shares overlap runes with the previous one.
type Chunker struct {
	window  int
	overlap int
}

// NewChunker returns a Chunker. Settings that cannot produce forward
// progress fall back to the defaults.
func NewChunker(window, overlap int) *Chunker {
	if window <= 0 {
		window = DefaultWindow
	}
	if overlap < 0 || overlap >= window {
		overlap = min(DefaultOverlap, window-1)
	}
	return &Chunker{window: window, overlap: overlap}
}

// Split returns the passages of all segments in order. Blank segments
// produce no passages; any other segment produces at least one.
func (c *Chunker) Split(segments []Segment) []Passage {
	var out []Passage
	for _, seg := range segments {
		if strings.TrimSpace(seg.Text) == "" {
			continue
		}
		runes := []rune(seg.Text)
		step := c.window - c.overlap
		for start, n := 0, 0; ; start, n = start+step, n+1 {
			end := min(start+c.window, len(runes))
			out = append(out, Passage{
				ID:       seg.Source + ":" + strconv.Itoa(seg.Page) + ":" + strconv.Itoa(n),
				Source:   seg.Source,
				Page:     seg.Page,
				Position: start,
				Text:     string(runes[start:end]),
			})
			if end == len(runes) {
				break
			}
		}
	}
	return out
}
