package topics

import (
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mathext"
)

const (
	ldaGammaThreshold = 1e-3
	ldaInnerMaxIter   = 50
)

// bow is a document as parallel term-id and count slices.
type bow struct {
	ids    []int
	counts []float64
}

// LDA fits Topics latent topics with batch variational EM over Passes
// passes. Priors are symmetric: alpha = eta = 1/Topics. Topic weights are
// term probabilities.
func (e *Extractor) LDA(docs []Document) []Topic {
	vocab, corpus := dictionary(docs)
	if len(vocab) == 0 {
		return []Topic{}
	}

	k, v := e.cfg.Topics, len(vocab)
	alpha := 1.0 / float64(k)
	eta := 1.0 / float64(k)
	rng := rand.New(rand.NewPCG(uint64(e.cfg.Seed), uint64(e.cfg.Seed)^0x9e3779b97f4a7c15))

	lambda := make([][]float64, k)
	for i := range lambda {
		lambda[i] = make([]float64, v)
		for j := range lambda[i] {
			lambda[i][j] = positiveJitter(rng)
		}
	}

	gammas := make([][]float64, len(corpus))
	expElogBeta := make([][]float64, k)
	for pass := 0; pass < e.cfg.Passes; pass++ {
		for i := range lambda {
			expElogBeta[i] = dirichletExpectation(lambda[i])
		}

		sstats := make([][]float64, k)
		for i := range sstats {
			sstats[i] = make([]float64, v)
		}
		for d, doc := range corpus {
			gammas[d] = inferDocument(doc, expElogBeta, alpha, rng, sstats)
		}

		for i := range lambda {
			for j := range lambda[i] {
				lambda[i][j] = eta + sstats[i][j]*expElogBeta[i][j]
			}
		}
	}

	members := make([][]int, k)
	for d, g := range gammas {
		if len(corpus[d].ids) == 0 {
			continue
		}
		best := floats.MaxIdx(g)
		members[best] = append(members[best], d)
	}

	out := make([]Topic, 0, k)
	for i := range lambda {
		probs := append([]float64(nil), lambda[i]...)
		floats.Scale(1/floats.Sum(probs), probs)
		topic := i
		out = append(out, Topic{
			Method:   MethodLDA,
			Index:    i,
			Keywords: topKeywords(probs, vocab, e.cfg.TopK),
			Documents: representatives(docs, members[i], func(d int) float64 {
				return gammas[d][topic] / floats.Sum(gammas[d])
			}, e.cfg.Representatives),
		})
	}
	return out
}

// dictionary maps every token to an id (sorted vocabulary) and converts
// documents to bag-of-words.
func dictionary(docs []Document) ([]string, []bow) {
	set := make(map[string]struct{})
	for _, d := range docs {
		for _, t := range d.Tokens {
			set[t] = struct{}{}
		}
	}
	if len(set) == 0 {
		return nil, nil
	}
	vocab := make([]string, 0, len(set))
	for t := range set {
		vocab = append(vocab, t)
	}
	sort.Strings(vocab)
	id := make(map[string]int, len(vocab))
	for i, t := range vocab {
		id[t] = i
	}

	corpus := make([]bow, len(docs))
	for d, doc := range docs {
		counts := make(map[int]float64)
		for _, t := range doc.Tokens {
			counts[id[t]]++
		}
		b := bow{ids: make([]int, 0, len(counts)), counts: make([]float64, 0, len(counts))}
		for i := range counts {
			b.ids = append(b.ids, i)
		}
		sort.Ints(b.ids)
		for _, i := range b.ids {
			b.counts = append(b.counts, counts[i])
		}
		corpus[d] = b
	}
	return vocab, corpus
}

// inferDocument runs the E-step for one document and adds its sufficient
// statistics to sstats. It returns the variational topic weights gamma.
func inferDocument(doc bow, expElogBeta [][]float64, alpha float64, rng *rand.Rand, sstats [][]float64) []float64 {
	k := len(expElogBeta)
	gamma := make([]float64, k)
	for i := range gamma {
		gamma[i] = positiveJitter(rng)
	}
	if len(doc.ids) == 0 {
		return gamma
	}

	expElogTheta := dirichletExpectation(gamma)
	phiNorm := make([]float64, len(doc.ids))
	updateNorm := func() {
		for n, id := range doc.ids {
			var s float64
			for i := 0; i < k; i++ {
				s += expElogTheta[i] * expElogBeta[i][id]
			}
			phiNorm[n] = s + 1e-100
		}
	}
	updateNorm()

	last := make([]float64, k)
	for it := 0; it < ldaInnerMaxIter; it++ {
		copy(last, gamma)
		for i := 0; i < k; i++ {
			var s float64
			for n, id := range doc.ids {
				s += doc.counts[n] / phiNorm[n] * expElogBeta[i][id]
			}
			gamma[i] = alpha + expElogTheta[i]*s
		}
		expElogTheta = dirichletExpectation(gamma)
		updateNorm()

		if floats.Distance(gamma, last, 1)/float64(k) < ldaGammaThreshold {
			break
		}
	}

	for i := 0; i < k; i++ {
		for n, id := range doc.ids {
			sstats[i][id] += expElogTheta[i] * doc.counts[n] / phiNorm[n]
		}
	}
	return gamma
}

// dirichletExpectation returns exp(E[log x]) for x ~ Dir(alpha).
func dirichletExpectation(alpha []float64) []float64 {
	total := mathext.Digamma(floats.Sum(alpha))
	out := make([]float64, len(alpha))
	for i, a := range alpha {
		out[i] = math.Exp(mathext.Digamma(a) - total)
	}
	return out
}

// positiveJitter draws values near 1 for variational initialization.
func positiveJitter(rng *rand.Rand) float64 {
	return math.Max(0.01, 1+0.1*rng.NormFloat64())
}
