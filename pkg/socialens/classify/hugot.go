package classify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/pipelines"
)

// HugotOptions configures local ONNX pipelines.
type HugotOptions struct {
	// ClassifierModel and EmbeddingModel are local model directories, or
	// Hugging Face repository names when Download is set. Either may be empty.
	ClassifierModel string
	EmbeddingModel  string
	ModelDir        string
	Download        bool
	Logger          *slog.Logger
}

// Hugot runs text classification and feature extraction locally through
// hugot's ONNX Runtime backend. Pipelines are serialized behind a mutex.
type Hugot struct {
	session    *hugot.Session
	classifier *pipelines.TextClassificationPipeline
	extractor  *pipelines.FeatureExtractionPipeline
	mu         sync.Mutex
}

// NewHugot creates the session and the requested pipelines.
func NewHugot(opts HugotOptions) (*Hugot, error) {
	if opts.ClassifierModel == "" && opts.EmbeddingModel == "" {
		return nil, errors.New("hugot: no model configured")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	session, err := hugot.NewORTSession()
	if err != nil {
		return nil, fmt.Errorf("hugot session: %w", err)
	}
	h := &Hugot{session: session}

	if opts.ClassifierModel != "" {
		path, err := resolveModel(opts.ClassifierModel, opts, logger)
		if err != nil {
			h.Close()
			return nil, err
		}
		cfg := hugot.TextClassificationConfig{
			ModelPath: path,
			Name:      "socialensSentiment",
		}
		h.classifier, err = hugot.NewPipeline(session, cfg)
		if err != nil {
			h.Close()
			return nil, fmt.Errorf("classification pipeline: %w", err)
		}
	}

	if opts.EmbeddingModel != "" {
		path, err := resolveModel(opts.EmbeddingModel, opts, logger)
		if err != nil {
			h.Close()
			return nil, err
		}
		cfg := hugot.FeatureExtractionConfig{
			ModelPath: path,
			Name:      "socialensEmbedding",
		}
		h.extractor, err = hugot.NewPipeline(session, cfg)
		if err != nil {
			h.Close()
			return nil, fmt.Errorf("feature extraction pipeline: %w", err)
		}
	}

	return h, nil
}

func resolveModel(model string, opts HugotOptions, logger *slog.Logger) (string, error) {
	if _, err := os.Stat(model); err == nil {
		return model, nil
	}
	if !opts.Download {
		return "", fmt.Errorf("hugot: model %s not found locally", model)
	}
	if err := os.MkdirAll(opts.ModelDir, 0o755); err != nil {
		return "", fmt.Errorf("create model dir: %w", err)
	}

	logger.Info("[Hugot] Model not found, downloading...", slog.String("model", model))
	path, err := hugot.DownloadModel(model, opts.ModelDir, hugot.NewDownloadOptions())
	if err != nil {
		return "", fmt.Errorf("download model %s: %w", model, err)
	}
	logger.Info("[Hugot] Model downloaded", slog.String("path", path))
	return path, nil
}

// Classify implements Classifier.
func (h *Hugot) Classify(ctx context.Context, text string) (Result, error) {
	if h.classifier == nil {
		return Result{}, errors.New("hugot: no classification model loaded")
	}
	out, err := runWithContext(ctx, func() (*pipelines.TextClassificationOutput, error) {
		h.mu.Lock()
		defer h.mu.Unlock()
		return h.classifier.RunPipeline([]string{text})
	})
	if err != nil {
		return Result{}, err
	}
	if len(out.ClassificationOutputs) == 0 || len(out.ClassificationOutputs[0]) == 0 {
		return Result{}, errors.New("hugot: empty classification output")
	}

	top := out.ClassificationOutputs[0][0]
	for _, c := range out.ClassificationOutputs[0][1:] {
		if c.Score > top.Score {
			top = c
		}
	}
	return Result{Label: top.Label, Score: float64(top.Score)}, nil
}

// Embed implements Embedder.
func (h *Hugot) Embed(ctx context.Context, text string) ([]float64, error) {
	if h.extractor == nil {
		return nil, errors.New("hugot: no embedding model loaded")
	}
	out, err := runWithContext(ctx, func() (*pipelines.FeatureExtractionOutput, error) {
		h.mu.Lock()
		defer h.mu.Unlock()
		return h.extractor.RunPipeline([]string{text})
	})
	if err != nil {
		return nil, err
	}
	if len(out.Embeddings) == 0 {
		return nil, errors.New("hugot: empty embedding output")
	}
	return toFloat64(out.Embeddings[0]), nil
}

// Close releases the session.
func (h *Hugot) Close() error {
	if h.session == nil {
		return nil
	}
	return h.session.Destroy()
}
