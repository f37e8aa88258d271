package topics

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"

	"github.com/cognicore/socialens/pkg/socialens/internalerr"
)

// ClusterResult is the output of Clusters.
type ClusterResult struct {
	Topics []Topic
	// Failed counts documents whose embedding failed or had the wrong
	// dimension; they take no part in clustering.
	Failed int
}

// Clusters embeds every document and partitions the vectors with seeded
// k-means++ followed by Lloyd iterations, stopping when assignments no
// longer change or after Iterations rounds. A cluster's keywords are the
// terms found in most of its documents; its representatives are the
// documents nearest the centroid.
func (e *Extractor) Clusters(ctx context.Context, docs []Document) (ClusterResult, error) {
	if len(docs) == 0 {
		return ClusterResult{Topics: []Topic{}}, nil
	}
	if e.embedder == nil {
		return ClusterResult{}, fmt.Errorf("embedding clusters need an embedder: %w", internalerr.ErrInvalidConfig)
	}

	var (
		points  [][]float64
		indices []int
		failed  int
	)
	for d, doc := range docs {
		text := doc.Text
		if strings.TrimSpace(text) == "" {
			text = strings.Join(doc.Tokens, " ")
		}
		if strings.TrimSpace(text) == "" {
			failed++
			continue
		}
		vec, err := e.embed(ctx, text)
		if err == nil && len(points) > 0 && len(vec) != len(points[0]) {
			err = fmt.Errorf("dimension %d, want %d", len(vec), len(points[0]))
		}
		if err == nil && len(vec) == 0 {
			err = fmt.Errorf("empty embedding")
		}
		if err != nil {
			failed++
			e.cfg.Logger.Warn("[Topics] Embedding failed",
				slog.String("doc", doc.ID),
				slog.String("error", err.Error()))
			continue
		}
		points = append(points, vec)
		indices = append(indices, d)
	}
	if len(points) == 0 {
		return ClusterResult{Topics: []Topic{}, Failed: failed}, nil
	}

	k := min(e.cfg.Topics, len(points))
	rng := rand.New(rand.NewPCG(uint64(e.cfg.Seed), 0x5eed))
	centroids := seedCentroids(points, k, rng)
	assign := lloyd(points, centroids, e.cfg.Iterations)

	out := make([]Topic, 0, k)
	for c := 0; c < k; c++ {
		var members []int
		for p, a := range assign {
			if a == c {
				members = append(members, p)
			}
		}
		if len(members) == 0 {
			continue
		}
		docIdx := make([]int, len(members))
		for i, p := range members {
			docIdx[i] = indices[p]
		}

		centroid := centroids[c]
		nearest := func(p int) float64 { return -floats.Distance(points[p], centroid, 2) }
		reps := rankMembers(members, nearest, e.cfg.Representatives)
		ids := make([]string, len(reps))
		for i, p := range reps {
			ids[i] = docs[indices[p]].ID
		}

		out = append(out, Topic{
			Method:    MethodEmbedding,
			Index:     c,
			Keywords:  clusterKeywords(docs, docIdx, e.cfg.TopK),
			Documents: ids,
		})
	}
	return ClusterResult{Topics: out, Failed: failed}, nil
}

func (e *Extractor) embed(ctx context.Context, text string) ([]float64, error) {
	if e.cfg.EmbedTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.EmbedTimeout)
		defer cancel()
	}
	return e.embedder.Embed(ctx, text)
}

// seedCentroids picks k starting centroids with k-means++: the first
// uniformly, each next one with probability proportional to its squared
// distance from the nearest chosen centroid.
func seedCentroids(points [][]float64, k int, rng *rand.Rand) [][]float64 {
	centroids := make([][]float64, 0, k)
	centroids = append(centroids, append([]float64(nil), points[rng.IntN(len(points))]...))

	dist := make([]float64, len(points))
	for len(centroids) < k {
		var total float64
		for i, p := range points {
			d := math.Inf(1)
			for _, c := range centroids {
				d = math.Min(d, sqDist(p, c))
			}
			dist[i] = d
			total += d
		}

		next := len(points) - 1
		if total == 0 {
			next = rng.IntN(len(points))
		} else {
			r := rng.Float64() * total
			for i, d := range dist {
				r -= d
				if r <= 0 {
					next = i
					break
				}
			}
		}
		centroids = append(centroids, append([]float64(nil), points[next]...))
	}
	return centroids
}

// lloyd refines centroids in place and returns the final assignment.
func lloyd(points, centroids [][]float64, maxIter int) []int {
	assign := make([]int, len(points))
	for i := range assign {
		assign[i] = -1
	}
	dim := len(points[0])

	for it := 0; it < maxIter; it++ {
		changed := false
		for i, p := range points {
			best, bestD := 0, math.Inf(1)
			for c, cen := range centroids {
				if d := sqDist(p, cen); d < bestD {
					best, bestD = c, d
				}
			}
			if assign[i] != best {
				assign[i] = best
				changed = true
			}
		}
		if !changed {
			break
		}

		sums := make([][]float64, len(centroids))
		counts := make([]int, len(centroids))
		for c := range sums {
			sums[c] = make([]float64, dim)
		}
		for i, p := range points {
			floats.Add(sums[assign[i]], p)
			counts[assign[i]]++
		}
		for c := range centroids {
			// An emptied cluster keeps its previous centroid.
			if counts[c] == 0 {
				continue
			}
			floats.ScaleTo(centroids[c], 1/float64(counts[c]), sums[c])
		}
	}
	return assign
}

func sqDist(a, b []float64) float64 {
	d := floats.Distance(a, b, 2)
	return d * d
}

func rankMembers(members []int, score func(int) float64, n int) []int {
	if n == 0 {
		return nil
	}
	ranked := append([]int(nil), members...)
	sort.SliceStable(ranked, func(a, b int) bool { return score(ranked[a]) > score(ranked[b]) })
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

// clusterKeywords weighs each term by the share of member documents that
// contain it.
func clusterKeywords(docs []Document, members []int, k int) []Keyword {
	df := make(map[string]int)
	for _, d := range members {
		seen := make(map[string]struct{})
		for _, t := range docs[d].Tokens {
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			df[t]++
		}
	}
	vocab := make([]string, 0, len(df))
	for t := range df {
		vocab = append(vocab, t)
	}
	weights := make([]float64, len(vocab))
	for i, t := range vocab {
		weights[i] = float64(df[t]) / float64(len(members))
	}
	return topKeywords(weights, vocab, k)
}
