// Package sentiment scores texts that may exceed a classifier's input limit.
//
// A text is encoded into tokens, cut into consecutive non-overlapping chunks
// of at most MaxChunkLength tokens, and every chunk is classified on its own.
// Chunk boundaries are plain token-count cuts and may split a sentence.
//
// Per-chunk results are folded into one Verdict:
//
//   - label: the most frequent chunk label. Ties go to the label seen first
//     among the tied labels, so [positive, negative] yields positive.
//   - score: the arithmetic mean over every scored chunk. Unknown chunks
//     contribute 0.0 and dilute the mean.
//
// Classifier failures never escape the Scorer. A failed or timed-out chunk
// becomes {unknown, 0.0} and the remaining chunks are still scored. Callers
// analyzing score distributions must treat unknown as its own category and
// not as a genuine neutral.
package sentiment

import "strings"

// Label is a canonical sentiment label.
type Label string

const (
	Negative Label = "negative"
	Neutral  Label = "neutral"
	Positive Label = "positive"
	Unknown  Label = "unknown"
)

// Verdict is the aggregated sentiment of one text.
type Verdict struct {
	Label  Label   `json:"label"`
	Score  float64 `json:"score"`
	Chunks int     `json:"chunks"`
	Failed int     `json:"failed_chunks"`
}

// IsUnknown reports whether no classification could be produced.
func (v Verdict) IsUnknown() bool {
	return v.Label == Unknown
}

// LabelMap translates raw model labels into canonical labels.
type LabelMap map[string]Label

// DefaultLabelMap covers three-class BERT heads (LABEL_0..2) and models that
// already emit English label names.
func DefaultLabelMap() LabelMap {
	return LabelMap{
		"LABEL_0":  Negative,
		"LABEL_1":  Neutral,
		"LABEL_2":  Positive,
		"negative": Negative,
		"neutral":  Neutral,
		"positive": Positive,
	}
}

// Lookup resolves a raw label. Exact matches win over case-insensitive ones.
func (m LabelMap) Lookup(raw string) (Label, bool) {
	if l, ok := m[raw]; ok {
		return l, true
	}
	raw = strings.TrimSpace(raw)
	for k, l := range m {
		if strings.EqualFold(k, raw) {
			return l, true
		}
	}
	return Unknown, false
}

// ChunkResult is the outcome for a single chunk.
type ChunkResult struct {
	Label Label
	Score float64
}

var unknownResult = ChunkResult{Label: Unknown, Score: 0}

// Aggregate folds chunk results into a label and mean score. Unknown takes
// part in the vote like any other label. An empty slice yields {unknown, 0}.
func Aggregate(results []ChunkResult) (Label, float64) {
	if len(results) == 0 {
		return Unknown, 0
	}

	counts := make(map[Label]int, 4)
	var order []Label
	var sum float64
	for _, r := range results {
		if _, seen := counts[r.Label]; !seen {
			order = append(order, r.Label)
		}
		counts[r.Label]++
		sum += r.Score
	}

	// Strict > keeps the earliest label among equal counts.
	best := order[0]
	for _, l := range order[1:] {
		if counts[l] > counts[best] {
			best = l
		}
	}
	return best, sum / float64(len(results))
}
