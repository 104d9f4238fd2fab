// Package chunk partitions normalized document text into an ordered sequence
// of fixed-size, overlapping fragments. Splitting is a pure function of
// (text, size, overlap): identical inputs always yield identical chunks with
// identical indices and offsets, so documents can be re-derived and audited.
//
// Offsets are rune-based. Consecutive chunks overlap by exactly `overlap`
// runes; the final chunk may be shorter and carries no trailing overlap.
package chunk

import (
	"errors"
	"strings"
)

// Sentinel errors returned by Split.
var (
	// ErrInvalidConfig indicates size <= 0 or overlap outside [0, size).
	ErrInvalidConfig = errors.New("chunk: size must be > 0 and overlap in [0, size)")

	// ErrEmptyDocument indicates the text is empty after trimming.
	ErrEmptyDocument = errors.New("chunk: document text is empty")
)

// Chunk is one window of the source text. Start and End are rune offsets
// into the normalized text, with Content == text[Start:End).
type Chunk struct {
	Index   int
	Content string
	Start   int
	End     int
}

// Split walks the normalized text in a single forward pass, cutting windows
// of size runes and advancing by size-overlap runes each step. The remainder
// shorter than size becomes the final chunk.
func Split(text string, size, overlap int) ([]Chunk, error) {
	if size <= 0 || overlap < 0 || overlap >= size {
		return nil, ErrInvalidConfig
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyDocument
	}

	runes := []rune(text)
	n := len(runes)
	step := size - overlap

	out := make([]Chunk, 0, n/step+1)
	for start := 0; ; start += step {
		end := start + size
		if end > n {
			end = n
		}
		out = append(out, Chunk{
			Index:   len(out),
			Content: string(runes[start:end]),
			Start:   start,
			End:     end,
		})
		if end == n {
			break
		}
	}
	return out, nil
}

// Join reconstructs the original normalized text from a chunk sequence by
// concatenating each chunk's non-overlapping span. It is the inverse of
// Split and exists mainly to verify round-trip coverage.
func Join(chunks []Chunk) string {
	var b strings.Builder
	prevEnd := 0
	for _, c := range chunks {
		runes := []rune(c.Content)
		skip := prevEnd - c.Start
		if skip < 0 {
			skip = 0
		}
		b.WriteString(string(runes[skip:]))
		prevEnd = c.End
	}
	return b.String()
}
