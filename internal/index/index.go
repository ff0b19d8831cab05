// Package index builds a TF-IDF document index over the food catalog and
// ranks records by lexical similarity to a free-text query.
package index

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/nutrisolve/nutrichat/internal/domain"
)

var tokenPattern = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)

// Match is one ranked retrieval result.
type Match struct {
	Record domain.FoodRecord
	Score  float64
}

// Index is an immutable TF-IDF index over a food record set.
// One synthetic document per record: description + category, lower-cased.
type Index struct {
	records    []domain.FoodRecord
	vocabulary map[string]int
	idf        []float64
	docs       []map[int]float64 // sparse L2-normalized TF-IDF per document
}

// Build constructs an index from the given records. Pure function of the
// record set; an empty set yields an index that returns no results.
func Build(records []domain.FoodRecord) *Index {
	ix := &Index{
		records:    records,
		vocabulary: make(map[string]int),
	}
	if len(records) == 0 {
		return ix
	}

	// Document frequencies over unique terms per document.
	df := make(map[string]int)
	tokenized := make([][]string, len(records))
	for i, rec := range records {
		tokens := tokenize(rec.Document())
		tokenized[i] = tokens
		seen := make(map[string]struct{}, len(tokens))
		for _, tok := range tokens {
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			df[tok]++
		}
	}

	// Stable vocabulary ordering keeps builds deterministic.
	terms := make([]string, 0, len(df))
	for term := range df {
		terms = append(terms, term)
	}
	sort.Strings(terms)

	ix.idf = make([]float64, len(terms))
	n := float64(len(records))
	for i, term := range terms {
		ix.vocabulary[term] = i
		// Smoothed IDF
		ix.idf[i] = math.Log((1+n)/(1+float64(df[term]))) + 1.0
	}

	ix.docs = make([]map[int]float64, len(records))
	for i, tokens := range tokenized {
		ix.docs[i] = ix.vectorize(tokens)
	}

	return ix
}

// Len returns the number of indexed documents.
func (ix *Index) Len() int {
	return len(ix.records)
}

// Search ranks indexed records by TF-IDF cosine similarity to query and
// returns at most topN matches. Zero-score documents are discarded; ties
// keep original record order. An empty index returns no results.
func (ix *Index) Search(query string, topN int) []Match {
	if topN <= 0 || len(ix.records) == 0 {
		return nil
	}

	qvec := ix.vectorize(tokenize(strings.ToLower(query)))
	if len(qvec) == 0 {
		return nil
	}

	matches := make([]Match, 0, len(ix.records))
	for i, doc := range ix.docs {
		score := dot(qvec, doc)
		if score <= 0 {
			continue
		}
		matches = append(matches, Match{Record: ix.records[i], Score: score})
	}

	sort.SliceStable(matches, func(a, b int) bool {
		return matches[a].Score > matches[b].Score
	})

	if len(matches) > topN {
		matches = matches[:topN]
	}
	return matches
}

// vectorize computes a sparse L2-normalized TF-IDF vector for tokens.
// Tokens outside the vocabulary are ignored.
func (ix *Index) vectorize(tokens []string) map[int]float64 {
	tf := make(map[int]int)
	total := 0
	for _, tok := range tokens {
		if idx, ok := ix.vocabulary[tok]; ok {
			tf[idx]++
			total++
		}
	}
	if total == 0 {
		return nil
	}

	vec := make(map[int]float64, len(tf))
	norm := 0.0
	for idx, count := range tf {
		v := float64(count) / float64(total) * ix.idf[idx]
		vec[idx] = v
		norm += v * v
	}
	norm = math.Sqrt(norm)
	if norm > 0 {
		for idx := range vec {
			vec[idx] /= norm
		}
	}
	return vec
}

func dot(a, b map[int]float64) float64 {
	if len(b) < len(a) {
		a, b = b, a
	}
	sum := 0.0
	for idx, v := range a {
		sum += v * b[idx]
	}
	return sum
}

func tokenize(text string) []string {
	lower := strings.ToLower(text)
	raw := tokenPattern.FindAllString(lower, -1)
	if len(raw) == 0 {
		return nil
	}
	out := raw[:0]
	for _, t := range raw {
		if _, isStop := stopwords[t]; isStop {
			continue
		}
		out = append(out, t)
	}
	return out
}

var stopwords = func() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "for", "to", "of", "in",
		"on", "at", "by", "with", "as", "is", "are", "was", "were", "be",
		"it", "this", "that", "these", "those", "from", "into", "about",
		"some", "any", "can", "will", "just",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}()

// Holder swaps a built index atomically. Readers observe either the old or
// the new index, never a partially built one.
type Holder struct {
	current atomic.Pointer[Index]
}

// NewHolder creates a holder seeded with ix (may be nil).
func NewHolder(ix *Index) *Holder {
	h := &Holder{}
	if ix != nil {
		h.current.Store(ix)
	}
	return h
}

// Load returns the current index. Returns an empty index if none was set.
func (h *Holder) Load() *Index {
	if ix := h.current.Load(); ix != nil {
		return ix
	}
	return Build(nil)
}

// Store replaces the current index.
func (h *Holder) Store(ix *Index) {
	h.current.Store(ix)
}

// Search ranks against the currently held index.
func (h *Holder) Search(query string, topN int) []Match {
	return h.Load().Search(query, topN)
}
