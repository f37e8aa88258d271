package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cognicore/socialens/pkg/socialens/internalerr"
	"github.com/cognicore/socialens/pkg/socialens/link"
	"github.com/cognicore/socialens/pkg/socialens/records"
	"github.com/cognicore/socialens/pkg/socialens/sentiment"
	"github.com/cognicore/socialens/pkg/socialens/topics"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Join.Influence != link.DefaultThreshold() {
		t.Errorf("influence = %+v", cfg.Join.Influence)
	}
	if cfg.Topics.MaxDF != 0.85 || cfg.Topics.MinDF != 2 || cfg.Topics.MaxFeatures != 1000 {
		t.Errorf("unexpected topic defaults %+v", cfg.Topics)
	}
	if len(cfg.Topics.Seeds) != 4 || cfg.Topics.Seeds[0] != "黄梅戏" {
		t.Errorf("seeds = %v", cfg.Topics.Seeds)
	}
}

func TestParseOverridesDefaults(t *testing.T) {
	data := []byte(`
sentiment:
  classifier: vader
  max_chunk_length: 128
  chunk_timeout: 5s
  labels:
    POS: positive
join:
  creator_key: comment
  influence:
    metric: liked
    value: 500
timestamps:
  unit: ms
  timezone: Asia/Shanghai
topics:
  methods: [tfidf, lda]
  seeds: [唱腔]
`)
	cfg, err := Parse(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Sentiment.MaxChunkLength != 128 || cfg.Sentiment.ChunkTimeout != 5*time.Second {
		t.Errorf("sentiment = %+v", cfg.Sentiment)
	}
	if cfg.Sentiment.Concurrency != 1 {
		t.Errorf("untouched default lost: concurrency=%d", cfg.Sentiment.Concurrency)
	}
	if cfg.Join.CreatorKey != "comment" || cfg.Join.Influence.Metric != link.MetricLiked {
		t.Errorf("join = %+v", cfg.Join)
	}
	if cfg.Timestamps.Unit != "ms" || cfg.Timestamps.Timezone != "Asia/Shanghai" {
		t.Errorf("timestamps = %+v", cfg.Timestamps)
	}
	if len(cfg.Topics.Seeds) != 1 || len(cfg.Topics.Methods) != 2 {
		t.Errorf("topics = %+v", cfg.Topics)
	}
	if cfg.Topics.TopK != 10 {
		t.Errorf("top_k default lost: %d", cfg.Topics.TopK)
	}
}

func TestParseEmptyKeepsDefaults(t *testing.T) {
	cfg, err := Parse(nil)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Sentiment.Classifier != "vader" {
		t.Errorf("classifier = %q", cfg.Sentiment.Classifier)
	}
}

func TestParseRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown key", "bogus: 1\n"},
		{"unknown classifier", "sentiment:\n  classifier: magic\n"},
		{"bad composite source", "sentiment:\n  classifier: composite\n  composite:\n    label: composite\n    score: vader\n"},
		{"valkey without address", "sentiment:\n  cache:\n    kind: valkey\n"},
		{"bad label", "sentiment:\n  labels:\n    X: happy\n"},
		{"unknown strategy", "mapping:\n  strategy: random\n"},
		{"unknown creator key", "join:\n  creator_key: author\n"},
		{"bad threshold metric", "join:\n  influence:\n    metric: views\n    value: 1\n"},
		{"unknown unit", "timestamps:\n  unit: ns\n"},
		{"unknown timezone", "timestamps:\n  timezone: Mars/Olympus\n"},
		{"unknown method", "topics:\n  methods: [bert]\n"},
		{"zero chunk length", "sentiment:\n  max_chunk_length: 0\n"},
		{"unknown embedder", "topics:\n  embedder:\n    kind: word2vec\n"},
		{"unknown field unit", "timestamps:\n  fields:\n    last_modify_ts: ns\n"},
		{"embedding without embedder", "topics:\n  methods: [tfidf, embedding]\n"},
		{"embedding with embedder none", "topics:\n  methods: [embedding]\n  embedder:\n    kind: none\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if !errors.Is(err, internalerr.ErrInvalidConfig) {
				t.Fatalf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestTimestampFieldUnits(t *testing.T) {
	cfg := Default()
	if cfg.Timestamps.Fields["last_modify_ts"] != "ms" {
		t.Errorf("default last_modify_ts unit = %q, want ms", cfg.Timestamps.Fields["last_modify_ts"])
	}

	cfg, err := Parse([]byte("timestamps:\n  unit: s\n  fields:\n    creator.last_modify_ts: s\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Timestamps.Fields["creator.last_modify_ts"] != "s" {
		t.Errorf("fields = %v", cfg.Timestamps.Fields)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "socialens.yaml")
	if err := os.WriteFile(path, []byte("output:\n  dir: results\n"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Output.Dir != "results" {
		t.Errorf("output dir = %q", cfg.Output.Dir)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadStoplistAndDictionary(t *testing.T) {
	dir := t.TempDir()
	stopPath := filepath.Join(dir, "stoplist.yaml")
	if err := os.WriteFile(stopPath, []byte("terms:\n  - 哈哈哈\n  - 666\n"), 0644); err != nil {
		t.Fatal(err)
	}
	sl, err := LoadStoplist(stopPath)
	if err != nil {
		t.Fatalf("load stoplist: %v", err)
	}
	if len(sl.Terms) != 2 || sl.Terms[0] != "哈哈哈" {
		t.Errorf("terms = %v", sl.Terms)
	}

	dictPath := filepath.Join(dir, "dict.txt")
	content := "# words\n黄梅戏 100 n\n\n唱腔\n"
	if err := os.WriteFile(dictPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	words, err := LoadDictionary(dictPath)
	if err != nil {
		t.Fatalf("load dictionary: %v", err)
	}
	if len(words) != 2 || words[0] != "黄梅戏" || words[1] != "唱腔" {
		t.Errorf("words = %v", words)
	}
}

func TestLoadEnv(t *testing.T) {
	for _, k := range []string{"HF_TOKEN", "OPENAI_API_KEY", "VALKEY_PASSWORD"} {
		unsetForTest(t, k)
	}
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("HF_TOKEN=hf_123\nOPENAI_API_KEY=sk-test\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		os.Unsetenv("HF_TOKEN")
		os.Unsetenv("OPENAI_API_KEY")
	})

	s := LoadEnv(path)
	if s.HFToken != "hf_123" || s.OpenAIKey != "sk-test" || s.ValkeyPassword != "" {
		t.Fatalf("secrets = %+v", s)
	}

	// A missing file falls back to the environment.
	s = LoadEnv(filepath.Join(t.TempDir(), "missing.env"))
	if s.HFToken != "hf_123" {
		t.Fatalf("environment not read: %+v", s)
	}
}

func unsetForTest(t *testing.T, key string) {
	t.Helper()
	prev, ok := os.LookupEnv(key)
	os.Unsetenv(key)
	t.Cleanup(func() {
		if ok {
			os.Setenv(key, prev)
		} else {
			os.Unsetenv(key)
		}
	})
}

func TestLoaderBuildsComponents(t *testing.T) {
	dir := t.TempDir()
	cfg := Default()
	cfg.Stoplist.Terms = []string{"好看"}
	cfg.Sentiment.Cache.Kind = "memory"
	cfg.Sentiment.Labels = map[string]string{"POS": "positive"}
	cfg.Store.Path = filepath.Join(dir, "test.db")
	cfg.Timestamps.Unit = "ms"
	cfg.Topics.Methods = []string{"tfidf"}

	l := &Loader{Config: cfg}
	comp, err := l.Load(context.Background())
	if err != nil {
		t.Fatalf("load components: %v", err)
	}
	defer comp.Close()

	if !comp.Stops.IsStop("好看") || !comp.Stops.IsStop("的") {
		t.Error("stop-set missing configured terms")
	}
	if comp.Scorer.Config().Labels["POS"] != sentiment.Positive {
		t.Error("label override not applied")
	}
	if len(comp.Methods) != 1 || comp.Methods[0] != topics.MethodTFIDF {
		t.Errorf("methods = %v", comp.Methods)
	}
	if comp.Suggest.DFPercent != 60 || comp.Suggest.MinDocs != 10 {
		t.Errorf("suggest thresholds = %+v", comp.Suggest)
	}

	v := comp.Scorer.Score(context.Background(), "I love this, it is wonderful")
	if v.Label != sentiment.Positive {
		t.Errorf("vader verdict = %+v", v)
	}

	// The mapping persists through the sqlite store.
	ctx := context.Background()
	res, err := comp.Resolver.Resolve(ctx, nil,
		[]records.Comment{{CommentID: "c1"}},
		[]records.Video{{VideoID: "v1"}})
	if err != nil {
		t.Fatal(err)
	}
	if res.Source != link.SourceSynthesized {
		t.Errorf("source = %s", res.Source)
	}
	if _, ok, _ := comp.Store.LoadMapping(ctx); !ok {
		t.Error("mapping not persisted in store")
	}
}

func TestLoaderMappingFile(t *testing.T) {
	cfg := Default()
	cfg.Mapping.Path = filepath.Join(t.TempDir(), "mapping.json")
	comp, err := (&Loader{Config: cfg}).Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	defer comp.Close()

	_, err = comp.Resolver.Resolve(context.Background(), nil,
		[]records.Comment{{CommentID: "c1"}},
		[]records.Video{{VideoID: "v1"}})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(cfg.Mapping.Path); err != nil {
		t.Fatalf("mapping file not written: %v", err)
	}
}

func TestLoaderMissingCredentials(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"hf without endpoint", func(c *Config) { c.Sentiment.Classifier = "hf" }},
		{"hugot without model", func(c *Config) { c.Sentiment.Classifier = "hugot" }},
		{"openai without key", func(c *Config) { c.Topics.Embedder.Kind = "openai" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			_, err := (&Loader{Config: cfg}).Load(context.Background())
			if !errors.Is(err, internalerr.ErrInvalidConfig) {
				t.Fatalf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestLoaderBuildsStopReviewer(t *testing.T) {
	cfg := Default()
	cfg.Stoplist.Review = Review{Model: "gpt-test", BaseURL: "http://127.0.0.1:1/v1", Limit: 5}
	comp, err := (&Loader{Config: cfg, Secrets: Secrets{OpenAIKey: "sk-test"}}).Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	defer comp.Close()
	if comp.Reviewer == nil {
		t.Fatal("expected reviewer when review.model is set")
	}

	comp2, err := (&Loader{Config: Default()}).Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	defer comp2.Close()
	if comp2.Reviewer != nil {
		t.Fatal("reviewer should be disabled by default")
	}
}
