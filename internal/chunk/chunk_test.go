package chunk

import (
	"strings"
	"testing"
)

func TestSplit_InvalidConfig(t *testing.T) {
	cases := []struct {
		name          string
		size, overlap int
	}{
		{"zero size", 0, 0},
		{"negative size", -1, 0},
		{"negative overlap", 10, -1},
		{"overlap equals size", 10, 10},
		{"overlap exceeds size", 10, 20},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Split("some text", tc.size, tc.overlap); err != ErrInvalidConfig {
				t.Fatalf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestSplit_EmptyDocument(t *testing.T) {
	for _, text := range []string{"", "   ", "\n\t  \n"} {
		if _, err := Split(text, 10, 2); err != ErrEmptyDocument {
			t.Fatalf("expected ErrEmptyDocument for %q, got %v", text, err)
		}
	}
}

func TestSplit_KnownOffsets(t *testing.T) {
	// 100 chars, size 40, overlap 10 → [0,40) [30,70) [60,100).
	text := strings.Repeat("abcde", 20)
	chunks, err := Split(text, 40, 10)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	want := [][2]int{{0, 40}, {30, 70}, {60, 100}}
	if len(chunks) != len(want) {
		t.Fatalf("expected %d chunks, got %d", len(want), len(chunks))
	}
	for i, w := range want {
		c := chunks[i]
		if c.Index != i {
			t.Errorf("chunk %d: index %d", i, c.Index)
		}
		if c.Start != w[0] || c.End != w[1] {
			t.Errorf("chunk %d: offsets [%d,%d), want [%d,%d)", i, c.Start, c.End, w[0], w[1])
		}
		if c.Content != text[c.Start:c.End] {
			t.Errorf("chunk %d: content does not match its offset span", i)
		}
	}
}

func TestSplit_ShortFinalChunk(t *testing.T) {
	text := strings.Repeat("x", 95)
	chunks, err := Split(text, 40, 10)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	last := chunks[len(chunks)-1]
	if last.End != 95 {
		t.Fatalf("final chunk must end at text end, got %d", last.End)
	}
	if last.End-last.Start >= 40 && len(chunks) > 1 {
		t.Fatalf("final chunk should be shorter than size, got [%d,%d)", last.Start, last.End)
	}
}

func TestSplit_TextShorterThanSize(t *testing.T) {
	chunks, err := Split("tiny", 100, 10)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if len(chunks) != 1 || chunks[0].Content != "tiny" || chunks[0].Start != 0 || chunks[0].End != 4 {
		t.Fatalf("unexpected single chunk: %+v", chunks)
	}
}

func TestSplit_OverlapInvariant(t *testing.T) {
	text := strings.Repeat("lorem ipsum dolor sit amet ", 30)
	const size, overlap = 50, 13
	chunks, err := Split(text, size, overlap)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	for i := 1; i < len(chunks); i++ {
		prev, cur := chunks[i-1], chunks[i]
		if prev.End-cur.Start != overlap {
			t.Fatalf("chunks %d/%d overlap by %d runes, want %d", i-1, i, prev.End-cur.Start, overlap)
		}
		if cur.Index != prev.Index+1 {
			t.Fatalf("indices not dense at %d", i)
		}
	}
}

func TestSplit_Deterministic(t *testing.T) {
	text := strings.Repeat("the quick brown fox jumps over the lazy dog. ", 10)
	a, err := Split(text, 64, 16)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	b, err := Split(text, 64, 16)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if len(a) != len(b) {
		t.Fatalf("chunk counts differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("chunk %d differs between identical calls", i)
		}
	}
}

func TestJoin_RoundTrip(t *testing.T) {
	texts := []string{
		strings.Repeat("abcdefghij", 10),
		"short",
		strings.Repeat("päivää ", 40), // multi-byte runes
	}
	for _, text := range texts {
		text = strings.TrimSpace(text)
		chunks, err := Split(text, 33, 7)
		if err != nil {
			t.Fatalf("split: %v", err)
		}
		if got := Join(chunks); got != text {
			t.Fatalf("round trip mismatch:\n got %q\nwant %q", got, text)
		}
	}
}
