// Package config loads the YAML run configuration and builds pipeline
// components from it.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/socialens/pkg/socialens/internalerr"
	"github.com/cognicore/socialens/pkg/socialens/link"
	"github.com/cognicore/socialens/pkg/socialens/records"
	"github.com/cognicore/socialens/pkg/socialens/topics"
)

// DefaultStopTerms are function words and filler common in Chinese
// short-video comments.
var DefaultStopTerms = []string{
	"的", "了", "是", "啊", "吧", "都", "和", "着", "就", "呢", "在", "也",
	"你", "我", "他", "她", "我们", "这", "那", "一个", "有", "说", "要", "到",
	"还有", "这个", "那个", "什么", "这么", "这样", "真的", "哈哈", "就是",
	"可以", "不会", "不是", "没有", "已经", "知道", "doge", "吃瓜",
}

// DefaultSeeds is the reference keyword set topics are reconciled against.
var DefaultSeeds = []string{"黄梅戏", "音频分开录制", "虚拟背景", "数字化创新"}

// Config is the full run configuration.
type Config struct {
	LogLevel   string     `yaml:"log_level"`
	Normalize  Normalize  `yaml:"normalize"`
	Stoplist   Stoplist   `yaml:"stoplist"`
	Sentiment  Sentiment  `yaml:"sentiment"`
	Mapping    Mapping    `yaml:"mapping"`
	Join       Join       `yaml:"join"`
	Timestamps Timestamps `yaml:"timestamps"`
	Topics     Topics     `yaml:"topics"`
	Store      Store      `yaml:"store"`
	Output     Output     `yaml:"output"`
}

// Normalize configures the text normalizer.
type Normalize struct {
	MinTokenLength int      `yaml:"min_token_length"`
	Markdown       bool     `yaml:"markdown"`
	Dictionary     []string `yaml:"dictionary"`
	DictionaryFile string   `yaml:"dictionary_file"`
}

// Stoplist configures the stop-set and stop-term suggestions.
type Stoplist struct {
	Defaults  []string `yaml:"defaults"`
	Terms     []string `yaml:"terms"`
	File      string   `yaml:"file"`
	Language  string   `yaml:"language"`
	DFPercent float64  `yaml:"suggest_df_percent"`
	MinDocs   int64    `yaml:"suggest_min_docs"`
	Review    Review   `yaml:"review"`
}

// Review configures optional language-model review of stop-term
// suggestions. An empty model disables it.
type Review struct {
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
	Limit   int    `yaml:"limit"`
}

// Sentiment configures the classifier and the chunked scorer.
type Sentiment struct {
	Classifier     string            `yaml:"classifier"`
	MaxChunkLength int               `yaml:"max_chunk_length"`
	ChunkTimeout   time.Duration     `yaml:"chunk_timeout"`
	Concurrency    int               `yaml:"concurrency"`
	Codec          string            `yaml:"codec"`
	Labels         map[string]string `yaml:"labels"`
	Vader          Vader             `yaml:"vader"`
	HF             HF                `yaml:"hf"`
	Hugot          Hugot             `yaml:"hugot"`
	Composite      Composite         `yaml:"composite"`
	Cache          Cache             `yaml:"cache"`
}

// Vader configures the lexicon classifier.
type Vader struct {
	Threshold float64 `yaml:"threshold"`
}

// HF configures the remote inference endpoint. The token comes from the
// environment.
type HF struct {
	Endpoint   string        `yaml:"endpoint"`
	MaxRetries int           `yaml:"max_retries"`
	Backoff    time.Duration `yaml:"backoff"`
}

// Hugot configures local ONNX models.
type Hugot struct {
	ClassifierModel string `yaml:"classifier_model"`
	EmbeddingModel  string `yaml:"embedding_model"`
	ModelDir        string `yaml:"model_dir"`
	Download        bool   `yaml:"download"`
}

// Composite names the classifiers supplying the label and the score.
type Composite struct {
	Label string `yaml:"label"`
	Score string `yaml:"score"`
}

// Cache configures verdict caching.
type Cache struct {
	Kind      string        `yaml:"kind"`
	Namespace string        `yaml:"namespace"`
	Address   string        `yaml:"address"`
	TLS       bool          `yaml:"tls"`
	TTL       time.Duration `yaml:"ttl"`
}

// Mapping configures comment→video mapping resolution.
type Mapping struct {
	Strategy string `yaml:"strategy"`
	Path     string `yaml:"path"`
}

// Join configures the linker.
type Join struct {
	CreatorKey string         `yaml:"creator_key"`
	Influence  link.Threshold `yaml:"influence"`
}

// Timestamps configures epoch interpretation. Unit covers every epoch
// field; Fields overrides it per field name, optionally qualified by
// collection (comment, video, creator), e.g. "creator.last_modify_ts".
type Timestamps struct {
	Unit     string            `yaml:"unit"`
	Fields   map[string]string `yaml:"fields"`
	Timezone string            `yaml:"timezone"`
}

// Topics configures topic extraction.
type Topics struct {
	Methods         []string      `yaml:"methods"`
	TopK            int           `yaml:"top_k"`
	MinDF           int           `yaml:"min_df"`
	MaxDF           float64       `yaml:"max_df"`
	MaxFeatures     int           `yaml:"max_features"`
	Count           int           `yaml:"topics"`
	Passes          int           `yaml:"passes"`
	Iterations      int           `yaml:"iterations"`
	Seed            int64         `yaml:"seed"`
	Representatives int           `yaml:"representatives"`
	EmbedTimeout    time.Duration `yaml:"embed_timeout"`
	Seeds           []string      `yaml:"seeds"`
	Embedder        Embedder      `yaml:"embedder"`
}

// Embedder selects the embedding capability for clustering.
type Embedder struct {
	Kind    string `yaml:"kind"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

// Store selects the snapshot store. An empty path keeps snapshots in
// memory.
type Store struct {
	Path string `yaml:"path"`
}

// Output configures where JSON artifacts are written.
type Output struct {
	Dir string `yaml:"dir"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	tc := topics.DefaultConfig()
	return Config{
		LogLevel: "info",
		Normalize: Normalize{
			MinTokenLength: 2,
		},
		Stoplist: Stoplist{
			Defaults:  append([]string(nil), DefaultStopTerms...),
			DFPercent: 60,
			MinDocs:   10,
		},
		Sentiment: Sentiment{
			Classifier:     "vader",
			MaxChunkLength: 512,
			ChunkTimeout:   30 * time.Second,
			Concurrency:    1,
			Codec:          "rune",
			HF:             HF{MaxRetries: 3, Backoff: time.Second},
			Composite:      Composite{Label: "hugot", Score: "vader"},
			Cache:          Cache{Kind: "none", Namespace: "socialens:verdict", TTL: 30 * 24 * time.Hour},
		},
		Mapping: Mapping{
			Strategy: string(link.StrategyRoundRobin),
		},
		Join: Join{
			CreatorKey: string(link.CreatorFromVideo),
			Influence:  link.DefaultThreshold(),
		},
		Timestamps: Timestamps{
			Unit:     string(records.Seconds),
			Fields:   map[string]string{"last_modify_ts": string(records.Milliseconds)},
			Timezone: "UTC",
		},
		Topics: Topics{
			Methods:         []string{string(topics.MethodTFIDF), string(topics.MethodNMF), string(topics.MethodLDA)},
			TopK:            tc.TopK,
			MinDF:           tc.MinDF,
			MaxDF:           tc.MaxDF,
			MaxFeatures:     tc.MaxFeatures,
			Count:           tc.Topics,
			Passes:          tc.Passes,
			Iterations:      tc.Iterations,
			Seed:            tc.Seed,
			Representatives: tc.Representatives,
			EmbedTimeout:    tc.EmbedTimeout,
			Seeds:           append([]string(nil), DefaultSeeds...),
			Embedder:        Embedder{Kind: "none"},
		},
		Output: Output{Dir: "out"},
	}
}

// Load reads a YAML file over Default and validates the result.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML over Default. Unknown keys are rejected.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parse config: %w: %v", internalerr.ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

var (
	classifierKinds = map[string]bool{"vader": true, "hf": true, "hugot": true, "composite": true}
	cacheKinds      = map[string]bool{"": true, "none": true, "memory": true, "valkey": true}
	embedderKinds   = map[string]bool{"": true, "none": true, "openai": true, "hugot": true}
	codecs          = map[string]bool{"": true, "rune": true, "word": true}
)

// Validate checks enumerations and ranges.
func (c Config) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if c.Normalize.MinTokenLength < 0 {
		bad("normalize.min_token_length must be >= 0")
	}

	s := c.Sentiment
	if !classifierKinds[s.Classifier] {
		bad("sentiment.classifier %q unknown", s.Classifier)
	}
	if s.Classifier == "composite" {
		for _, k := range []string{s.Composite.Label, s.Composite.Score} {
			if !classifierKinds[k] || k == "composite" {
				bad("sentiment.composite source %q unknown", k)
			}
		}
	}
	if s.MaxChunkLength <= 0 {
		bad("sentiment.max_chunk_length must be > 0")
	}
	if s.Concurrency <= 0 {
		bad("sentiment.concurrency must be > 0")
	}
	if !codecs[s.Codec] {
		bad("sentiment.codec %q unknown", s.Codec)
	}
	if !cacheKinds[s.Cache.Kind] {
		bad("sentiment.cache.kind %q unknown", s.Cache.Kind)
	}
	if s.Cache.Kind == "valkey" && s.Cache.Address == "" {
		bad("sentiment.cache.address required for valkey")
	}
	for raw, label := range s.Labels {
		if _, err := parseLabel(label); err != nil {
			bad("sentiment.labels[%s]: %v", raw, err)
		}
	}

	switch link.Strategy(c.Mapping.Strategy) {
	case link.StrategyRoundRobin, link.StrategySharedUser:
	default:
		bad("mapping.strategy %q unknown", c.Mapping.Strategy)
	}
	switch link.CreatorKey(c.Join.CreatorKey) {
	case link.CreatorFromVideo, link.CreatorFromComment:
	default:
		bad("join.creator_key %q unknown", c.Join.CreatorKey)
	}
	if err := c.Join.Influence.Validate(); err != nil {
		errs = append(errs, err)
	}

	if _, err := records.ParseUnit(c.Timestamps.Unit); err != nil {
		errs = append(errs, err)
	}
	if _, err := records.ParseUnits(c.Timestamps.Fields); err != nil {
		bad("timestamps.fields: %v", err)
	}
	if _, err := time.LoadLocation(c.Timestamps.Timezone); err != nil {
		bad("timestamps.timezone %q: %v", c.Timestamps.Timezone, err)
	}

	t := c.Topics
	methods, err := parseMethods(t.Methods)
	if err != nil {
		errs = append(errs, err)
	}
	if t.MaxDF <= 0 || (t.MaxDF > 1 && t.MaxDF < float64(t.MinDF)) {
		bad("topics.max_df %v out of range", t.MaxDF)
	}
	if t.TopK <= 0 || t.Count <= 0 {
		bad("topics.top_k and topics.topics must be > 0")
	}
	if !embedderKinds[t.Embedder.Kind] {
		bad("topics.embedder.kind %q unknown", t.Embedder.Kind)
	}
	if slices.Contains(methods, topics.MethodEmbedding) && (t.Embedder.Kind == "" || t.Embedder.Kind == "none") {
		bad("topics.methods includes embedding but topics.embedder.kind is not set")
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %v", internalerr.ErrInvalidConfig, errors.Join(errs...))
}

func parseMethods(names []string) ([]topics.Method, error) {
	out := make([]topics.Method, 0, len(names))
	for _, n := range names {
		m := topics.Method(strings.ToLower(strings.TrimSpace(n)))
		switch m {
		case topics.MethodTFIDF, topics.MethodNMF, topics.MethodLDA, topics.MethodEmbedding:
			out = append(out, m)
		default:
			return nil, fmt.Errorf("topics.methods: unknown method %q", n)
		}
	}
	return out, nil
}

// StopFile is the on-disk stoplist format.
type StopFile struct {
	Terms []string `yaml:"terms"`
}

// LoadStoplist loads stop terms from a YAML file.
func LoadStoplist(path string) (*StopFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var sl StopFile
	if err := yaml.Unmarshal(data, &sl); err != nil {
		return nil, fmt.Errorf("parse stoplist %s: %w: %v", path, internalerr.ErrInvalidConfig, err)
	}
	return &sl, nil
}

// LoadDictionary loads segmentation words, one per line. Blank lines and
// lines starting with # are ignored; anything after the first whitespace
// (frequency, tag) is dropped.
func LoadDictionary(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var words []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		words = append(words, strings.Fields(line)[0])
	}
	return words, nil
}
