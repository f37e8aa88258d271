// Package classify provides the opaque model capabilities used by the
// pipeline: text classification and text embedding. Every implementation
// sits behind a small interface so callers never depend on a transport.
package classify

import "context"

// Result is a raw classifier answer. Label is model-specific ("LABEL_1",
// "positive", ...); mapping to canonical sentiment labels is the caller's job.
type Result struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Classifier labels a single text.
type Classifier interface {
	Classify(ctx context.Context, text string) (Result, error)
}

// Embedder maps a single text to a fixed-length dense vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// ClassifierFunc adapts a function to Classifier.
type ClassifierFunc func(ctx context.Context, text string) (Result, error)

// Classify implements Classifier.
func (f ClassifierFunc) Classify(ctx context.Context, text string) (Result, error) {
	return f(ctx, text)
}

// EmbedderFunc adapts a function to Embedder.
type EmbedderFunc func(ctx context.Context, text string) ([]float64, error)

// Embed implements Embedder.
func (f EmbedderFunc) Embed(ctx context.Context, text string) ([]float64, error) {
	return f(ctx, text)
}

// runWithContext runs a blocking call that has no context support. The call
// is allowed to finish in the background if ctx expires first.
func runWithContext[T any](ctx context.Context, call func() (T, error)) (T, error) {
	type outcome struct {
		val T
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		v, err := call()
		done <- outcome{val: v, err: err}
	}()

	select {
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	case o := <-done:
		return o.val, o.err
	}
}
