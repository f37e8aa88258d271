// Package pmi computes pointwise mutual information over document
// co-occurrence counts. It backs topic coherence scoring.
package pmi

import "math"

// Calculator computes smoothed PMI and NPMI.
type Calculator struct {
	epsilon float64
}

// NewCalculator creates a calculator; epsilon <= 0 means 1.0.
func NewCalculator(epsilon float64) *Calculator {
	if epsilon <= 0 {
		epsilon = 1.0
	}
	return &Calculator{epsilon: epsilon}
}

// PMI returns log((N_ab + ε) * N / ((N_a + ε)(N_b + ε))).
func (c *Calculator) PMI(nAB, nA, nB, n int64) float64 {
	if n == 0 {
		return 0
	}
	num := (float64(nAB) + c.epsilon) * float64(n)
	den := (float64(nA) + c.epsilon) * (float64(nB) + c.epsilon)
	return math.Log(num / den)
}

// NPMI normalizes PMI into [-1, 1]. Pairs that never co-occur score -1.
func (c *Calculator) NPMI(nAB, nA, nB, n int64) float64 {
	if n == 0 {
		return 0
	}
	if nAB == 0 {
		return -1
	}
	pAB := (float64(nAB) + c.epsilon) / (float64(n) + c.epsilon)
	logPAB := math.Log(pAB)
	if logPAB == 0 {
		return 1
	}
	v := c.PMI(nAB, nA, nB, n) / -logPAB
	return math.Max(-1, math.Min(1, v))
}

// Coherence averages NPMI over every pair of terms. Fewer than two terms,
// or an empty counter, give 0.
func (c *Calculator) Coherence(counts *Counter, terms []string) float64 {
	if counts == nil || counts.TotalDocs() == 0 || len(terms) < 2 {
		return 0
	}
	var sum float64
	pairs := 0
	for i, a := range terms {
		for _, b := range terms[i+1:] {
			if a == b {
				continue
			}
			sum += c.NPMI(counts.PairCount(a, b), counts.TokenCount(a), counts.TokenCount(b), counts.TotalDocs())
			pairs++
		}
	}
	if pairs == 0 {
		return 0
	}
	return sum / float64(pairs)
}
