package search

import (
	"strings"
	"unicode/utf8"
)

// Delimiter separates chunk contents in an assembled context block.
const Delimiter = "\n\n"

// Context is a length-bounded text block built from ranked chunks, together
// with the indices of the chunks that actually made it in.
type Context struct {
	Text    string
	Indices []int
}

// Assemble concatenates chunk contents in rank order until adding the next
// chunk would exceed maxRunes. Chunks that do not fit are dropped whole,
// never truncated mid-chunk, so every included index maps to a verbatim
// fragment of the source document. Deterministic for identical input.
func Assemble(ranked []Result, maxRunes int) Context {
	if maxRunes <= 0 || len(ranked) == 0 {
		return Context{Indices: []int{}}
	}

	var b strings.Builder
	indices := make([]int, 0, len(ranked))
	used := 0
	for _, r := range ranked {
		need := utf8.RuneCountInString(r.Content)
		if len(indices) > 0 {
			need += utf8.RuneCountInString(Delimiter)
		}
		if used+need > maxRunes {
			break
		}
		if len(indices) > 0 {
			b.WriteString(Delimiter)
		}
		b.WriteString(r.Content)
		used += need
		indices = append(indices, r.Index)
	}
	return Context{Text: b.String(), Indices: indices}
}
