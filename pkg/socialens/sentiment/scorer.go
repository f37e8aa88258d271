package sentiment

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cognicore/socialens/pkg/socialens/classify"
)

// Config controls chunking, timeouts and fan-out.
type Config struct {
	MaxChunkLength int
	ChunkTimeout   time.Duration
	Concurrency    int
	Labels         LabelMap
	Codec          Codec
	Logger         *slog.Logger
}

// DefaultConfig returns single-threaded scoring with 512-token chunks.
func DefaultConfig() Config {
	return Config{
		MaxChunkLength: DefaultMaxChunkLength,
		ChunkTimeout:   30 * time.Second,
		Concurrency:    1,
		Labels:         DefaultLabelMap(),
		Codec:          RuneCodec{},
	}
}

// Scorer produces Verdicts through an injected classifier. It holds no
// mutable state and may be shared across goroutines.
type Scorer struct {
	classifier classify.Classifier
	cfg        Config
	logger     *slog.Logger
}

// NewScorer creates a scorer. Zero-valued config fields fall back to
// DefaultConfig.
func NewScorer(c classify.Classifier, cfg Config) *Scorer {
	def := DefaultConfig()
	if cfg.MaxChunkLength <= 0 {
		cfg.MaxChunkLength = def.MaxChunkLength
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = def.Concurrency
	}
	if cfg.Labels == nil {
		cfg.Labels = def.Labels
	}
	if cfg.Codec == nil {
		cfg.Codec = def.Codec
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Scorer{classifier: c, cfg: cfg, logger: logger}
}

// Config returns the effective configuration.
func (s *Scorer) Config() Config {
	return s.cfg
}

// Score classifies text. It always returns a verdict; blank text yields
// {unknown, 0.0} without calling the classifier.
func (s *Scorer) Score(ctx context.Context, text string) Verdict {
	if strings.TrimSpace(text) == "" {
		return Verdict{Label: Unknown}
	}

	chunks := Split(s.cfg.Codec.Encode(text), s.cfg.MaxChunkLength, s.cfg.Codec)
	results := make([]ChunkResult, 0, len(chunks))
	failed := 0
	for _, ch := range chunks {
		if strings.TrimSpace(ch.Text) == "" {
			continue
		}
		r, ok := s.scoreChunk(ctx, ch)
		if !ok {
			failed++
		}
		results = append(results, r)
	}

	label, score := Aggregate(results)
	return Verdict{Label: label, Score: score, Chunks: len(results), Failed: failed}
}

// scoreChunk classifies one chunk. A classifier error or panic yields an
// unknown result marked failed.
func (s *Scorer) scoreChunk(ctx context.Context, ch Chunk) (res ChunkResult, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("[Scorer] Classifier panicked",
				slog.Int("chunk", ch.Index),
				slog.Any("panic", r))
			res, ok = unknownResult, false
		}
	}()

	cctx := ctx
	if s.cfg.ChunkTimeout > 0 {
		var cancel context.CancelFunc
		cctx, cancel = context.WithTimeout(ctx, s.cfg.ChunkTimeout)
		defer cancel()
	}

	out, err := s.classifier.Classify(cctx, ch.Text)
	if err != nil {
		s.logger.Warn("[Scorer] Chunk classification failed",
			slog.Int("chunk", ch.Index),
			slog.Int("tokens", ch.Len()),
			slog.String("error", err.Error()))
		return unknownResult, false
	}

	label, mapped := s.cfg.Labels.Lookup(out.Label)
	if !mapped {
		s.logger.Warn("[Scorer] Unmapped classifier label",
			slog.Int("chunk", ch.Index),
			slog.String("label", out.Label))
		return unknownResult, true
	}
	return ChunkResult{Label: label, Score: out.Score}, true
}

// ScoreAll scores texts with at most Concurrency records in flight. Output
// order matches input order. Once ctx is done no new records are submitted;
// records already running finish under their own chunk timeouts, and the
// unsubmitted ones keep an unknown verdict. The returned error is ctx.Err()
// in that case.
func (s *Scorer) ScoreAll(ctx context.Context, texts []string) ([]Verdict, error) {
	out := make([]Verdict, len(texts))
	for i := range out {
		out[i] = Verdict{Label: Unknown}
	}

	inflight := context.WithoutCancel(ctx)
	var g errgroup.Group
	g.SetLimit(s.cfg.Concurrency)

	submitted := 0
	for i, text := range texts {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			out[i] = s.Score(inflight, text)
			return nil
		})
		submitted++
	}
	_ = g.Wait()

	if submitted < len(texts) {
		s.logger.Warn("[Scorer] Batch stopped early",
			slog.Int("submitted", submitted),
			slog.Int("total", len(texts)))
		return out, ctx.Err()
	}
	return out, nil
}
