package topics

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
)

const nmfEpsilon = 1e-10

// NMF factorizes the TF-IDF matrix X ≈ W·H with Lee-Seung multiplicative
// updates. Each row of H is a topic over the vocabulary; each document is
// assigned to its largest W component.
func (e *Extractor) NMF(docs []Document) []Topic {
	tm := vectorize(docs, e.cfg)
	if len(tm.vocab) == 0 {
		return []Topic{}
	}

	n, v, k := len(docs), len(tm.vocab), e.cfg.Topics
	x := mat.NewDense(n, v, nil)
	var total float64
	for d, row := range tm.rows {
		for _, en := range row {
			x.Set(d, en.col, en.val)
			total += en.val
		}
	}

	// Random init scaled like scikit-learn: sqrt(mean(X) / k).
	rng := rand.New(rand.NewPCG(uint64(e.cfg.Seed), uint64(e.cfg.Seed)))
	scale := math.Sqrt(total / float64(n*v) / float64(k))
	w := mat.NewDense(n, k, nil)
	h := mat.NewDense(k, v, nil)
	w.Apply(func(_, _ int, _ float64) float64 { return scale * math.Abs(rng.NormFloat64()) }, w)
	h.Apply(func(_, _ int, _ float64) float64 { return scale * math.Abs(rng.NormFloat64()) }, h)

	prevErr := math.Inf(1)
	for it := 0; it < e.cfg.Iterations; it++ {
		var wtx, wtw, wtwh mat.Dense
		wtx.Mul(w.T(), x)
		wtw.Mul(w.T(), w)
		wtwh.Mul(&wtw, h)
		h.Apply(func(i, j int, val float64) float64 {
			return val * wtx.At(i, j) / (wtwh.At(i, j) + nmfEpsilon)
		}, h)

		var xht, hht, whht mat.Dense
		xht.Mul(x, h.T())
		hht.Mul(h, h.T())
		whht.Mul(w, &hht)
		w.Apply(func(i, j int, val float64) float64 {
			return val * xht.At(i, j) / (whht.At(i, j) + nmfEpsilon)
		}, w)

		if it%10 == 9 {
			err := reconstructionError(x, w, h)
			if prevErr-err < 1e-4*prevErr {
				break
			}
			prevErr = err
		}
	}

	members := make([][]int, k)
	for d := 0; d < n; d++ {
		best, bestVal := -1, 0.0
		for c := 0; c < k; c++ {
			if val := w.At(d, c); val > bestVal {
				best, bestVal = c, val
			}
		}
		if best >= 0 {
			members[best] = append(members[best], d)
		}
	}

	out := make([]Topic, 0, k)
	for c := 0; c < k; c++ {
		kw := topKeywords(mat.Row(nil, c, h), tm.vocab, e.cfg.TopK)
		if len(kw) == 0 {
			continue
		}
		col := c
		out = append(out, Topic{
			Method:    MethodNMF,
			Index:     c,
			Keywords:  kw,
			Documents: representatives(docs, members[c], func(d int) float64 { return w.At(d, col) }, e.cfg.Representatives),
		})
	}
	return out
}

func reconstructionError(x, w, h *mat.Dense) float64 {
	var diff mat.Dense
	diff.Mul(w, h)
	diff.Sub(x, &diff)
	return mat.Norm(&diff, 2)
}
