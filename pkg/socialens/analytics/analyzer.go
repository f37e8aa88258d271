// Package analytics computes corpus statistics and per-day summaries over
// joined records.
package analytics

import (
	"sort"

	"github.com/cognicore/socialens/pkg/socialens/stoplist"
)

// Analyzer accumulates document frequencies over normalized documents.
type Analyzer struct {
	totalDocs int64
	tokenDF   map[string]int64
	tokenTF   map[string]int64
}

// NewAnalyzer creates an empty analyzer.
func NewAnalyzer() *Analyzer {
	return &Analyzer{
		tokenDF: make(map[string]int64),
		tokenTF: make(map[string]int64),
	}
}

// Process consumes one document's tokens.
func (a *Analyzer) Process(tokens []string) {
	a.totalDocs++
	seen := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		if tok == "" {
			continue
		}
		a.tokenTF[tok]++
		if _, ok := seen[tok]; ok {
			continue
		}
		seen[tok] = struct{}{}
		a.tokenDF[tok]++
	}
}

// Stats is a snapshot of the accumulated counts.
type Stats struct {
	TotalDocs int64
	TokenDF   map[string]int64
	TokenTF   map[string]int64
}

// Snapshot returns a copy of the accumulated statistics.
func (a *Analyzer) Snapshot() Stats {
	df := make(map[string]int64, len(a.tokenDF))
	for tok, c := range a.tokenDF {
		df[tok] = c
	}
	tf := make(map[string]int64, len(a.tokenTF))
	for tok, c := range a.tokenTF {
		tf[tok] = c
	}
	return Stats{TotalDocs: a.totalDocs, TokenDF: df, TokenTF: tf}
}

// StopwordStats converts the counts into stoplist input, sorted by token.
func (s Stats) StopwordStats() []stoplist.Stats {
	if s.TotalDocs == 0 {
		return nil
	}
	out := make([]stoplist.Stats, 0, len(s.TokenDF))
	for tok, df := range s.TokenDF {
		out = append(out, stoplist.Stats{
			Token:     tok,
			DF:        df,
			DFPercent: 100 * float64(df) / float64(s.TotalDocs),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Token < out[j].Token })
	return out
}

// TokenCount is a token with its total frequency.
type TokenCount struct {
	Token string `json:"token"`
	Count int64  `json:"count"`
	DF    int64  `json:"df"`
}

// TopTokens returns the n most frequent tokens, ties by token.
func (s Stats) TopTokens(n int) []TokenCount {
	out := make([]TokenCount, 0, len(s.TokenTF))
	for tok, c := range s.TokenTF {
		out = append(out, TokenCount{Token: tok, Count: c, DF: s.TokenDF[tok]})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Token < out[j].Token
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
