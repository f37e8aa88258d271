package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cognicore/socialens/internal/llm"
	"github.com/cognicore/socialens/pkg/socialens/classify"
	"github.com/cognicore/socialens/pkg/socialens/internalerr"
	"github.com/cognicore/socialens/pkg/socialens/link"
	"github.com/cognicore/socialens/pkg/socialens/normalize"
	"github.com/cognicore/socialens/pkg/socialens/records"
	"github.com/cognicore/socialens/pkg/socialens/sentiment"
	"github.com/cognicore/socialens/pkg/socialens/stoplist"
	"github.com/cognicore/socialens/pkg/socialens/store"
	"github.com/cognicore/socialens/pkg/socialens/store/memstore"
	"github.com/cognicore/socialens/pkg/socialens/store/sqlite"
	"github.com/cognicore/socialens/pkg/socialens/topics"
)

// Loader builds pipeline components from a validated Config.
type Loader struct {
	Config  Config
	Secrets Secrets
	Logger  *slog.Logger
}

// Components holds everything a run needs.
type Components struct {
	Stops      *stoplist.Set
	Normalizer *normalize.Normalizer
	Scorer     *sentiment.Scorer
	Resolver   *link.Resolver
	Linker     *link.Linker
	Extractor  *topics.Extractor
	Methods    []topics.Method
	Seeds      []string
	Suggest    stoplist.Thresholds
	Reviewer   stoplist.Reviewer
	Store      store.Store

	closers []func() error
}

// Close releases models, cache connections and the store.
func (c *Components) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}

// Load constructs all components. On error everything opened so far is
// closed.
func (l *Loader) Load(ctx context.Context) (_ *Components, err error) {
	cfg := l.Config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}

	comp := &Components{}
	defer func() {
		if err != nil {
			comp.Close()
		}
	}()

	// Stop-set
	custom := append([]string(nil), cfg.Stoplist.Terms...)
	if cfg.Stoplist.File != "" {
		sl, err := LoadStoplist(cfg.Stoplist.File)
		if err != nil {
			return nil, fmt.Errorf("load stoplist: %w", err)
		}
		custom = append(custom, sl.Terms...)
	}
	comp.Stops = stoplist.New(stoplist.Options{
		Defaults: cfg.Stoplist.Defaults,
		Custom:   custom,
		Language: cfg.Stoplist.Language,
	})
	comp.Suggest = stoplist.Thresholds{DFPercent: cfg.Stoplist.DFPercent, MinDocs: cfg.Stoplist.MinDocs}
	if r := cfg.Stoplist.Review; r.Model != "" {
		reviewer := llm.New(l.Secrets.OpenAIKey, r.BaseURL, r.Model, nil)
		reviewer.Limit = r.Limit
		reviewer.Logger = logger
		comp.Reviewer = reviewer
	}

	// Normalizer
	dict := append([]string(nil), cfg.Normalize.Dictionary...)
	if cfg.Normalize.DictionaryFile != "" {
		words, err := LoadDictionary(cfg.Normalize.DictionaryFile)
		if err != nil {
			return nil, fmt.Errorf("load dictionary: %w", err)
		}
		dict = append(dict, words...)
	}
	comp.Normalizer = normalize.New(normalize.Config{
		MinTokenLength: cfg.Normalize.MinTokenLength,
		Markdown:       cfg.Normalize.Markdown,
		Dictionary:     dict,
	}, comp.Stops)

	// Classifier and scorer
	b := &builder{cfg: cfg, secrets: l.Secrets, logger: logger, comp: comp}
	classifier, err := b.classifier(cfg.Sentiment.Classifier)
	if err != nil {
		return nil, fmt.Errorf("build classifier: %w", err)
	}
	classifier, err = b.cached(ctx, classifier)
	if err != nil {
		return nil, fmt.Errorf("build verdict cache: %w", err)
	}
	labels, err := labelMap(cfg.Sentiment.Labels)
	if err != nil {
		return nil, err
	}
	var codec sentiment.Codec = sentiment.RuneCodec{}
	if cfg.Sentiment.Codec == "word" {
		codec = sentiment.WordCodec{}
	}
	comp.Scorer = sentiment.NewScorer(classifier, sentiment.Config{
		MaxChunkLength: cfg.Sentiment.MaxChunkLength,
		ChunkTimeout:   cfg.Sentiment.ChunkTimeout,
		Concurrency:    cfg.Sentiment.Concurrency,
		Labels:         labels,
		Codec:          codec,
		Logger:         logger,
	})

	// Store
	if cfg.Store.Path != "" {
		st, err := sqlite.OpenSQLite(ctx, cfg.Store.Path)
		if err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
		comp.Store = st
		comp.closers = append(comp.closers, st.Close)
	} else {
		comp.Store = memstore.New()
	}

	// Mapping and join
	var mappingStore link.MappingStore = comp.Store
	if cfg.Mapping.Path != "" {
		mappingStore = link.FileMappingStore{Path: cfg.Mapping.Path}
	}
	comp.Resolver = &link.Resolver{
		Store:    mappingStore,
		Strategy: link.Strategy(cfg.Mapping.Strategy),
		Logger:   logger,
	}

	unit, err := records.ParseUnit(cfg.Timestamps.Unit)
	if err != nil {
		return nil, fmt.Errorf("timestamps: %w: %v", internalerr.ErrInvalidConfig, err)
	}
	fieldUnits, err := records.ParseUnits(cfg.Timestamps.Fields)
	if err != nil {
		return nil, fmt.Errorf("timestamps: %w: %v", internalerr.ErrInvalidConfig, err)
	}
	loc, err := time.LoadLocation(cfg.Timestamps.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timestamps: %w: %v", internalerr.ErrInvalidConfig, err)
	}
	comp.Linker, err = link.NewLinker(link.Options{
		CreatorKey: link.CreatorKey(cfg.Join.CreatorKey),
		Threshold:  cfg.Join.Influence,
		Clock:      records.Clock{Unit: unit, Fields: fieldUnits, Location: loc},
		Logger:     logger,
	})
	if err != nil {
		return nil, err
	}

	// Topics
	comp.Methods, err = parseMethods(cfg.Topics.Methods)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", internalerr.ErrInvalidConfig, err)
	}
	embedder, err := b.embedder(cfg.Topics.Embedder)
	if err != nil {
		return nil, fmt.Errorf("build embedder: %w", err)
	}
	t := cfg.Topics
	comp.Extractor = topics.NewExtractor(topics.Config{
		TopK:            t.TopK,
		MinDF:           t.MinDF,
		MaxDF:           t.MaxDF,
		MaxFeatures:     t.MaxFeatures,
		Topics:          t.Count,
		Passes:          t.Passes,
		Iterations:      t.Iterations,
		Seed:            t.Seed,
		Representatives: t.Representatives,
		EmbedTimeout:    t.EmbedTimeout,
		Logger:          logger,
	}, embedder)
	comp.Seeds = append([]string(nil), t.Seeds...)

	logger.Info("[Config] Components ready",
		slog.String("classifier", cfg.Sentiment.Classifier),
		slog.String("cache", cfg.Sentiment.Cache.Kind),
		slog.String("mapping_strategy", cfg.Mapping.Strategy),
		slog.Int("stop_terms", comp.Stops.Len()),
		slog.Bool("persistent_store", cfg.Store.Path != ""))

	return comp, nil
}

// builder shares one hugot session between the classifier and embedder.
type builder struct {
	cfg     Config
	secrets Secrets
	logger  *slog.Logger
	comp    *Components
	hugot   *classify.Hugot
}

func (b *builder) classifier(kind string) (classify.Classifier, error) {
	s := b.cfg.Sentiment
	switch kind {
	case "vader":
		return classify.NewVader(s.Vader.Threshold), nil
	case "hf":
		if s.HF.Endpoint == "" {
			return nil, fmt.Errorf("sentiment.hf.endpoint: %w", internalerr.ErrInvalidConfig)
		}
		return &classify.HFInference{
			Endpoint:       s.HF.Endpoint,
			Token:          b.secrets.HFToken,
			MaxRetries:     s.HF.MaxRetries,
			InitialBackoff: s.HF.Backoff,
			Logger:         b.logger,
		}, nil
	case "hugot":
		if s.Hugot.ClassifierModel == "" {
			return nil, fmt.Errorf("sentiment.hugot.classifier_model: %w", internalerr.ErrInvalidConfig)
		}
		return b.session()
	case "composite":
		label, err := b.classifier(s.Composite.Label)
		if err != nil {
			return nil, fmt.Errorf("composite label: %w", err)
		}
		score, err := b.classifier(s.Composite.Score)
		if err != nil {
			return nil, fmt.Errorf("composite score: %w", err)
		}
		return classify.Composite{Label: label, Score: score}, nil
	}
	return nil, fmt.Errorf("classifier %q: %w", kind, internalerr.ErrInvalidConfig)
}

func (b *builder) embedder(e Embedder) (classify.Embedder, error) {
	switch e.Kind {
	case "", "none":
		return nil, nil
	case "openai":
		if b.secrets.OpenAIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY not set: %w", internalerr.ErrInvalidConfig)
		}
		return classify.NewOpenAIEmbedder(b.secrets.OpenAIKey, e.BaseURL, e.Model), nil
	case "hugot":
		if b.cfg.Sentiment.Hugot.EmbeddingModel == "" {
			return nil, fmt.Errorf("sentiment.hugot.embedding_model: %w", internalerr.ErrInvalidConfig)
		}
		return b.session()
	}
	return nil, fmt.Errorf("embedder %q: %w", e.Kind, internalerr.ErrInvalidConfig)
}

func (b *builder) session() (*classify.Hugot, error) {
	if b.hugot != nil {
		return b.hugot, nil
	}
	h := b.cfg.Sentiment.Hugot
	opts := classify.HugotOptions{
		ClassifierModel: h.ClassifierModel,
		ModelDir:        h.ModelDir,
		Download:        h.Download,
		Logger:          b.logger,
	}
	if b.cfg.Topics.Embedder.Kind == "hugot" {
		opts.EmbeddingModel = h.EmbeddingModel
	}
	if !b.usesHugotClassifier() {
		opts.ClassifierModel = ""
	}
	hg, err := classify.NewHugot(opts)
	if err != nil {
		return nil, err
	}
	b.hugot = hg
	b.comp.closers = append(b.comp.closers, hg.Close)
	return hg, nil
}

func (b *builder) usesHugotClassifier() bool {
	s := b.cfg.Sentiment
	if s.Classifier == "hugot" {
		return true
	}
	return s.Classifier == "composite" && (s.Composite.Label == "hugot" || s.Composite.Score == "hugot")
}

func (b *builder) cached(ctx context.Context, inner classify.Classifier) (classify.Classifier, error) {
	c := b.cfg.Sentiment.Cache
	var cache classify.Cache
	switch c.Kind {
	case "", "none":
		return inner, nil
	case "memory":
		cache = classify.NewMemoryCache()
	case "valkey":
		vc, err := classify.NewValkeyCache(ctx, classify.ValkeyOptions{
			Address:  c.Address,
			Password: b.secrets.ValkeyPassword,
			TLS:      c.TLS,
			TTL:      c.TTL,
		})
		if err != nil {
			return nil, err
		}
		b.comp.closers = append(b.comp.closers, func() error { vc.Close(); return nil })
		cache = vc
	default:
		return nil, fmt.Errorf("cache kind %q: %w", c.Kind, internalerr.ErrInvalidConfig)
	}
	return &classify.Cached{Inner: inner, Cache: cache, Namespace: c.Namespace, Logger: b.logger}, nil
}

func labelMap(overrides map[string]string) (sentiment.LabelMap, error) {
	m := sentiment.DefaultLabelMap()
	for raw, name := range overrides {
		label, err := parseLabel(name)
		if err != nil {
			return nil, fmt.Errorf("sentiment.labels[%s]: %w: %v", raw, internalerr.ErrInvalidConfig, err)
		}
		m[raw] = label
	}
	return m, nil
}

func parseLabel(s string) (sentiment.Label, error) {
	switch l := sentiment.Label(strings.ToLower(strings.TrimSpace(s))); l {
	case sentiment.Negative, sentiment.Neutral, sentiment.Positive:
		return l, nil
	}
	return "", fmt.Errorf("unknown label %q", s)
}
