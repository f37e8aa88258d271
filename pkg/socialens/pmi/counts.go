package pmi

import "sort"

// Counter maintains document and co-document counts.
type Counter struct {
	n     int64
	df    map[string]int64
	pairs map[Pair]int64
	vocab map[string]struct{}
}

// Pair is a canonical token pair (A < B).
type Pair struct {
	A, B string
}

// MakePair orders two tokens canonically.
func MakePair(a, b string) Pair {
	if a > b {
		a, b = b, a
	}
	return Pair{A: a, B: b}
}

// NewCounter creates a counter. When vocab is non-empty only those tokens
// are counted, which keeps pair counts bounded on large corpora.
func NewCounter(vocab []string) *Counter {
	c := &Counter{
		df:    make(map[string]int64),
		pairs: make(map[Pair]int64),
	}
	if len(vocab) > 0 {
		c.vocab = make(map[string]struct{}, len(vocab))
		for _, t := range vocab {
			c.vocab[t] = struct{}{}
		}
	}
	return c
}

// AddDocument counts one document. Repeated tokens count once.
func (c *Counter) AddDocument(tokens []string) {
	c.n++

	seen := make(map[string]struct{}, len(tokens))
	uniq := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if c.vocab != nil {
			if _, ok := c.vocab[t]; !ok {
				continue
			}
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		uniq = append(uniq, t)
	}
	sort.Strings(uniq)

	for i, a := range uniq {
		c.df[a]++
		for _, b := range uniq[i+1:] {
			c.pairs[Pair{A: a, B: b}]++
		}
	}
}

// PairCount returns how many documents contain both tokens.
func (c *Counter) PairCount(a, b string) int64 {
	return c.pairs[MakePair(a, b)]
}

// TokenCount returns the document frequency of a token.
func (c *Counter) TokenCount(t string) int64 {
	return c.df[t]
}

// TotalDocs returns the number of documents counted.
func (c *Counter) TotalDocs() int64 {
	return c.n
}

// UniquePairs returns the number of distinct co-occurring pairs.
func (c *Counter) UniquePairs() int {
	return len(c.pairs)
}
