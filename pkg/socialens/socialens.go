// Package socialens wires normalization, chunked sentiment scoring, entity
// linking and topic extraction into one batch run over scraped short-video
// comments, videos and creators.
package socialens

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cognicore/socialens/pkg/socialens/analytics"
	"github.com/cognicore/socialens/pkg/socialens/config"
	"github.com/cognicore/socialens/pkg/socialens/internalerr"
	"github.com/cognicore/socialens/pkg/socialens/link"
	"github.com/cognicore/socialens/pkg/socialens/normalize"
	"github.com/cognicore/socialens/pkg/socialens/records"
	"github.com/cognicore/socialens/pkg/socialens/sentiment"
	"github.com/cognicore/socialens/pkg/socialens/stoplist"
	"github.com/cognicore/socialens/pkg/socialens/store"
	"github.com/cognicore/socialens/pkg/socialens/topics"
)

// TopTokenCount is how many frequent tokens a report lists.
const TopTokenCount = 50

// Engine is the pipeline facade.
type Engine struct {
	store      store.Store
	normalizer *normalize.Normalizer
	stops      *stoplist.Set
	scorer     *sentiment.Scorer
	resolver   *link.Resolver
	linker     *link.Linker
	extractor  *topics.Extractor
	methods    []topics.Method
	seeds      []string
	suggest    stoplist.Thresholds
	reviewer   stoplist.Reviewer
	now        func() time.Time
	logger     *slog.Logger
}

// Options configures an Engine. Store, Normalizer, Scorer, Resolver,
// Linker and Extractor are required.
type Options struct {
	Store      store.Store
	Normalizer *normalize.Normalizer
	Stops      *stoplist.Set
	Scorer     *sentiment.Scorer
	Resolver   *link.Resolver
	Linker     *link.Linker
	Extractor  *topics.Extractor
	Methods    []topics.Method
	Seeds      []string
	Suggest    stoplist.Thresholds
	// Reviewer, when set, filters stop-term suggestions.
	Reviewer stoplist.Reviewer
	Now      func() time.Time
	Logger   *slog.Logger
}

// New creates an Engine with the given dependencies.
func New(opts Options) (*Engine, error) {
	if opts.Store == nil || opts.Normalizer == nil || opts.Scorer == nil ||
		opts.Resolver == nil || opts.Linker == nil || opts.Extractor == nil {
		return nil, fmt.Errorf("engine: missing dependency: %w", internalerr.ErrInvalidConfig)
	}
	e := &Engine{
		store:      opts.Store,
		normalizer: opts.Normalizer,
		stops:      opts.Stops,
		scorer:     opts.Scorer,
		resolver:   opts.Resolver,
		linker:     opts.Linker,
		extractor:  opts.Extractor,
		methods:    opts.Methods,
		seeds:      opts.Seeds,
		suggest:    opts.Suggest,
		reviewer:   opts.Reviewer,
		now:        opts.Now,
		logger:     opts.Logger,
	}
	if e.stops == nil {
		e.stops = stoplist.New(stoplist.Options{})
	}
	if e.suggest == (stoplist.Thresholds{}) {
		e.suggest = stoplist.DefaultThresholds()
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e, nil
}

// FromComponents creates an Engine from loaded configuration components.
func FromComponents(c *config.Components, logger *slog.Logger) (*Engine, error) {
	return New(Options{
		Store:      c.Store,
		Normalizer: c.Normalizer,
		Stops:      c.Stops,
		Scorer:     c.Scorer,
		Resolver:   c.Resolver,
		Linker:     c.Linker,
		Extractor:  c.Extractor,
		Methods:    c.Methods,
		Seeds:      c.Seeds,
		Suggest:    c.Suggest,
		Reviewer:   c.Reviewer,
		Logger:     logger,
	})
}

// Store returns the snapshot store.
func (e *Engine) Store() store.Store { return e.store }

// Inputs are the loaded record collections of one run. Mappings is
// optional. SkippedComments counts comments dropped as malformed while
// loading; the join report accounts for them.
type Inputs struct {
	Comments        []records.Comment
	SkippedComments int
	Videos          []records.Video
	Creators        []records.Creator
	Mappings        []records.Mapping
}

// Run scores, joins and analyzes the inputs and saves the result as a new
// snapshot. Per-record failures are reported in the snapshot, never
// returned.
func (e *Engine) Run(ctx context.Context, in Inputs) (store.Snapshot, error) {
	start := e.now()

	// Sentiment over cleaned comment text
	cleaned := make([]string, len(in.Comments))
	for i, c := range in.Comments {
		cleaned[i] = e.normalizer.Clean(c.Content)
	}
	verdicts, err := e.scorer.ScoreAll(ctx, cleaned)
	if err != nil {
		return store.Snapshot{}, fmt.Errorf("score comments: %w", err)
	}

	// Mapping and join
	res, err := e.resolver.Resolve(ctx, in.Mappings, in.Comments, in.Videos)
	if err != nil {
		return store.Snapshot{}, fmt.Errorf("resolve mapping: %w", err)
	}
	joined := e.linker.Join(link.Input{
		Comments:      in.Comments,
		Skipped:       in.SkippedComments,
		Mappings:      res.Mappings,
		MappingSource: res.Source,
		Videos:        in.Videos,
		Creators:      in.Creators,
		Verdicts:      verdicts,
	})

	// Topics over normalized comments
	analyzer := analytics.NewAnalyzer()
	docs := make([]topics.Document, 0, len(in.Comments))
	for i, c := range in.Comments {
		tokens := e.normalizer.Normalize(c.Content)
		if len(tokens) == 0 {
			continue
		}
		analyzer.Process(tokens)
		docs = append(docs, topics.Document{ID: string(c.CommentID), Tokens: tokens, Text: cleaned[i]})
	}
	found, err := e.extractor.Extract(ctx, docs, e.methods...)
	if err != nil {
		return store.Snapshot{}, fmt.Errorf("extract topics: %w", err)
	}
	matches := topics.Reconcile(found.All(), e.seeds)

	stats := analyzer.Snapshot()
	report := store.Report{
		Join:              joined.Report,
		Sentiment:         make(map[sentiment.Label]int),
		EmbeddingFailures: found.EmbeddingFailures,
		StopSuggestions:   e.stops.Suggest(stats.StopwordStats(), stats.TotalDocs, e.suggest),
		TopTokens:         stats.TopTokens(TopTokenCount),
		Timeline:          analytics.Timeline(joined.Records),
		Influence:         analytics.Breakdown(joined.Records),
		Engagement:        analytics.EngagementByLabel(joined.Records),
		SeedCoverage:      topics.Coverage(matches, e.seeds),
	}
	if e.reviewer != nil && len(report.StopSuggestions) > 0 {
		report.StopSuggestions = e.reviewer.Review(ctx, report.StopSuggestions)
	}
	for _, v := range verdicts {
		report.Sentiment[v.Label]++
		report.FailedChunks += v.Failed
	}

	snap := store.Snapshot{
		ID:        store.NewRunID(),
		CreatedAt: e.now().UTC(),
		Records:   joined.Records,
		Topics:    found,
		Reconcile: matches,
		Report:    report,
	}
	if err := e.store.SaveSnapshot(ctx, snap); err != nil {
		return store.Snapshot{}, fmt.Errorf("save snapshot: %w", err)
	}

	e.logger.Info("[Engine] Run complete",
		slog.String("run_id", snap.ID),
		slog.Int("comments", len(in.Comments)),
		slog.Int("joined", joined.Report.Joined),
		slog.Int("excluded", joined.Report.TotalExcluded()),
		slog.Int("documents", len(docs)),
		slog.Int("topics", len(found.All())),
		slog.Int("stop_suggestions", len(report.StopSuggestions)),
		slog.Duration("elapsed", e.now().Sub(start)))

	return snap, nil
}

// Close releases the store.
func (e *Engine) Close() error {
	return e.store.Close()
}
