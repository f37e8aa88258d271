package stoplist

import (
	"context"
	"sort"
)

// Stats holds corpus statistics for one token.
type Stats struct {
	Token     string
	DF        int64
	DFPercent float64
}

// Candidate is a token that looks like a stop term for this corpus.
type Candidate struct {
	Token     string  `json:"token"`
	DFPercent float64 `json:"df_percent"`
	Score     float64 `json:"score"` // DF share in [0,1]
}

// Reviewer filters suggested stop terms, for example through a language
// model.
type Reviewer interface {
	Review(ctx context.Context, candidates []Candidate) []Candidate
}

// Thresholds defines criteria for stop-term identification.
type Thresholds struct {
	DFPercent float64 // e.g. 60 - appears in 60% of documents
	MinDocs   int64   // ignore corpora smaller than this
}

// DefaultThresholds returns the thresholds used by the CLI report.
func DefaultThresholds() Thresholds {
	return Thresholds{
		DFPercent: 60.0,
		MinDocs:   10,
	}
}

// Suggest returns tokens whose document frequency exceeds the threshold and
// which are not already excluded by s. Highest DF first, ties by token.
func (s *Set) Suggest(stats []Stats, totalDocs int64, th Thresholds) []Candidate {
	if totalDocs < th.MinDocs || totalDocs == 0 {
		return nil
	}

	var candidates []Candidate
	for _, st := range stats {
		if s.IsStop(st.Token) {
			continue
		}
		if st.DFPercent <= th.DFPercent {
			continue
		}
		candidates = append(candidates, Candidate{
			Token:     st.Token,
			DFPercent: st.DFPercent,
			Score:     st.DFPercent / 100.0,
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].DFPercent != candidates[j].DFPercent {
			return candidates[i].DFPercent > candidates[j].DFPercent
		}
		return candidates[i].Token < candidates[j].Token
	})
	return candidates
}
