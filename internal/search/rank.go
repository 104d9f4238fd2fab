// Package search provides deterministic lexical retrieval over a document's
// chunks. It is intentionally small and dependency-free, but engineered with
// production-grade ergonomics:
//
//   - No logging in the library (callers decide how/what to log)
//   - Unicode-aware, case-folded, punctuation-insensitive tokenization
//   - Deterministic scoring and sorting (ties broken by ascending chunk index)
//   - Zero-scoring chunks are never returned, even when fewer than K match
//
// Scoring is a TF-IDF weighted term overlap: each query term contributes its
// relative frequency in the chunk, weighted by log-scaled inverse document
// frequency across the chunk set. The formula is linear in total chunk text
// and query length, which is fine for single-document scale (dozens to low
// hundreds of chunks); it is not meant for corpus-wide search.
package search

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/studylens/go-docchat-backend/internal/chunk"
)

// Result is one ranked chunk with its relevance score.
type Result struct {
	Index   int
	Content string
	Score   float64
}

var wordRE = regexp.MustCompile(`\p{L}+\p{N}*|\p{N}+`)

// fold normalizes a token: lower-case, possessives stripped, and a light
// plural fold so "cats" matches "cat". Anything heavier (a real stemmer)
// buys little at single-document scale.
func fold(w string) string {
	w = strings.ToLower(w)
	w = strings.TrimSuffix(w, "'s")
	w = strings.TrimSuffix(w, "’s")
	if len(w) > 3 && strings.HasSuffix(w, "s") && !strings.HasSuffix(w, "ss") {
		w = w[:len(w)-1]
	}
	return w
}

func tokenize(s string) []string {
	words := wordRE.FindAllString(s, -1)
	out := make([]string, 0, len(words))
	for _, w := range words {
		if t := fold(w); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// Rank scores every chunk against the query and returns the top k by score
// descending, ties broken by ascending chunk index. Chunks with zero score
// are dropped. An empty chunk slice or blank query yields an empty result.
func Rank(chunks []chunk.Chunk, query string, k int) []Result {
	if len(chunks) == 0 || k <= 0 {
		return nil
	}
	qTokens := tokenize(query)
	if len(qTokens) == 0 {
		return nil
	}
	// Deduplicate and sort the query terms. Scores are summed in this fixed
	// order; float addition is not associative, so iterating a map here would
	// make scores vary run to run.
	qTerms := qTokens[:0]
	seen := make(map[string]struct{}, len(qTokens))
	for _, t := range qTokens {
		if _, dup := seen[t]; !dup {
			seen[t] = struct{}{}
			qTerms = append(qTerms, t)
		}
	}
	sort.Strings(qTerms)

	// Term frequencies per chunk and document frequencies per query term.
	type chunkTF struct {
		counts map[string]int
		total  int
	}
	tfs := make([]chunkTF, len(chunks))
	df := make(map[string]int, len(qTerms))
	for i, c := range chunks {
		toks := tokenize(c.Content)
		counts := make(map[string]int, len(toks))
		for _, t := range toks {
			counts[t]++
		}
		tfs[i] = chunkTF{counts: counts, total: len(toks)}
		for _, t := range qTerms {
			if counts[t] > 0 {
				df[t]++
			}
		}
	}

	n := float64(len(chunks))
	idf := make(map[string]float64, len(qTerms))
	for _, t := range qTerms {
		idf[t] = math.Log(1 + n/float64(1+df[t]))
	}

	out := make([]Result, 0, k)
	for i, c := range chunks {
		tf := tfs[i]
		if tf.total == 0 {
			continue
		}
		score := 0.0
		for _, t := range qTerms {
			if cnt := tf.counts[t]; cnt > 0 {
				score += float64(cnt) / float64(tf.total) * idf[t]
			}
		}
		if score <= 0 {
			continue
		}
		out = append(out, Result{Index: c.Index, Content: c.Content, Score: score})
	}

	sort.SliceStable(out, func(a, b int) bool {
		if out[a].Score != out[b].Score {
			return out[a].Score > out[b].Score
		}
		return out[a].Index < out[b].Index
	})
	if len(out) > k {
		out = out[:k]
	}
	return out
}
