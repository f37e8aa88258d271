// Package topics reduces a normalized corpus to keyword sets.
//
// Four methods run independently over the same documents:
//
//   - TFIDF: top-K weighted terms per document, with document-frequency
//     bounds on the vocabulary.
//   - NMF: non-negative factorization of the TF-IDF matrix.
//   - LDA: latent Dirichlet allocation fitted by batch variational EM.
//   - Clusters: k-means over document embeddings.
//
// Their weights live on different scales and are never merged. Reconcile
// cross-checks each method's topics against a seed keyword list.
package topics

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/cognicore/socialens/pkg/socialens/classify"
)

// Method tags the algorithm that produced a topic.
type Method string

const (
	MethodTFIDF     Method = "tfidf"
	MethodNMF       Method = "nmf"
	MethodLDA       Method = "lda"
	MethodEmbedding Method = "embedding"
)

// AllMethods lists every method in run order.
var AllMethods = []Method{MethodTFIDF, MethodNMF, MethodLDA, MethodEmbedding}

// Keyword is a weighted term.
type Keyword struct {
	Term   string  `json:"term"`
	Weight float64 `json:"weight"`
}

// Topic is one ranked keyword list from one method.
type Topic struct {
	Method    Method    `json:"method"`
	Index     int       `json:"index"`
	Keywords  []Keyword `json:"keywords"`
	Documents []string  `json:"documents,omitempty"`
	Coherence *float64  `json:"coherence,omitempty"`
}

// Terms returns the keyword terms in rank order.
func (t Topic) Terms() []string {
	out := make([]string, len(t.Keywords))
	for i, k := range t.Keywords {
		out[i] = k.Term
	}
	return out
}

// Document is one corpus entry.
type Document struct {
	ID     string
	Tokens []string
	// Text is embedded by Clusters; the joined tokens are used when empty.
	Text string
}

// Config holds parameters shared by all methods.
type Config struct {
	TopK            int
	MinDF           int
	MaxDF           float64
	MaxFeatures     int
	Topics          int
	Passes          int
	Iterations      int
	Seed            int64
	Representatives int
	EmbedTimeout    time.Duration
	Logger          *slog.Logger
}

// DefaultConfig mirrors common scikit-learn/gensim settings.
func DefaultConfig() Config {
	return Config{
		TopK:            10,
		MinDF:           2,
		MaxDF:           0.85,
		MaxFeatures:     1000,
		Topics:          5,
		Passes:          10,
		Iterations:      200,
		Seed:            42,
		Representatives: 3,
		EmbedTimeout:    30 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.TopK <= 0 {
		c.TopK = def.TopK
	}
	if c.MinDF <= 0 {
		c.MinDF = 1
	}
	if c.MaxDF <= 0 {
		c.MaxDF = 1.0
	}
	if c.Topics <= 0 {
		c.Topics = def.Topics
	}
	if c.Passes <= 0 {
		c.Passes = def.Passes
	}
	if c.Iterations <= 0 {
		c.Iterations = def.Iterations
	}
	if c.Representatives < 0 {
		c.Representatives = 0
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// Extractor runs the topic methods with one configuration.
type Extractor struct {
	cfg      Config
	embedder classify.Embedder
}

// NewExtractor creates an extractor. embedder may be nil when Clusters is
// not used.
func NewExtractor(cfg Config, embedder classify.Embedder) *Extractor {
	return &Extractor{cfg: cfg.withDefaults(), embedder: embedder}
}

// Result collects the output of one Extract run.
type Result struct {
	TFIDF     []Topic `json:"tfidf"`
	NMF       []Topic `json:"nmf"`
	LDA       []Topic `json:"lda"`
	Embedding []Topic `json:"embedding"`
	// EmbeddingFailures counts documents left out of clustering.
	EmbeddingFailures int `json:"embedding_failures"`
}

// All returns every topic, method by method.
func (r Result) All() []Topic {
	out := make([]Topic, 0, len(r.TFIDF)+len(r.NMF)+len(r.LDA)+len(r.Embedding))
	out = append(out, r.TFIDF...)
	out = append(out, r.NMF...)
	out = append(out, r.LDA...)
	return append(out, r.Embedding...)
}

// Extract runs the requested methods (all when none are given) and
// annotates every topic with its NPMI coherence.
func (e *Extractor) Extract(ctx context.Context, docs []Document, methods ...Method) (Result, error) {
	if len(methods) == 0 {
		methods = AllMethods
	}

	var res Result
	for _, m := range methods {
		start := time.Now()
		switch m {
		case MethodTFIDF:
			res.TFIDF = e.TFIDF(docs)
		case MethodNMF:
			res.NMF = e.NMF(docs)
		case MethodLDA:
			res.LDA = e.LDA(docs)
		case MethodEmbedding:
			cr, err := e.Clusters(ctx, docs)
			if err != nil {
				return Result{}, err
			}
			res.Embedding = cr.Topics
			res.EmbeddingFailures = cr.Failed
		default:
			continue
		}
		e.cfg.Logger.Info("[Topics] Method finished",
			slog.String("method", string(m)),
			slog.Int("documents", len(docs)),
			slog.Duration("elapsed", time.Since(start)))
	}

	res.TFIDF = Annotate(res.TFIDF, docs)
	res.NMF = Annotate(res.NMF, docs)
	res.LDA = Annotate(res.LDA, docs)
	res.Embedding = Annotate(res.Embedding, docs)
	return res, nil
}

// topKeywords ranks weights descending, ties by term, keeping positive
// weights only.
func topKeywords(weights []float64, vocab []string, k int) []Keyword {
	idx := make([]int, 0, len(weights))
	for i, w := range weights {
		if w > 0 {
			idx = append(idx, i)
		}
	}
	sort.Slice(idx, func(a, b int) bool {
		wa, wb := weights[idx[a]], weights[idx[b]]
		if wa != wb {
			return wa > wb
		}
		return vocab[idx[a]] < vocab[idx[b]]
	})
	if len(idx) > k {
		idx = idx[:k]
	}
	out := make([]Keyword, len(idx))
	for i, j := range idx {
		out[i] = Keyword{Term: vocab[j], Weight: weights[j]}
	}
	return out
}

// representatives picks up to n document ids with the highest score among
// the members of one group.
func representatives(docs []Document, members []int, score func(int) float64, n int) []string {
	ranked := rankMembers(members, score, n)
	if len(ranked) == 0 {
		return nil
	}
	out := make([]string, len(ranked))
	for i, d := range ranked {
		out[i] = docs[d].ID
	}
	return out
}
