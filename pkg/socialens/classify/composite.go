package classify

import (
	"context"
	"fmt"
)

// Composite takes its label from one classifier and its score from another,
// e.g. a transformer label with a VADER intensity. A failure of either
// source fails the whole call.
type Composite struct {
	Label Classifier
	Score Classifier
}

// Classify implements Classifier.
func (c Composite) Classify(ctx context.Context, text string) (Result, error) {
	labelRes, err := c.Label.Classify(ctx, text)
	if err != nil {
		return Result{}, fmt.Errorf("label source: %w", err)
	}
	scoreRes, err := c.Score.Classify(ctx, text)
	if err != nil {
		return Result{}, fmt.Errorf("score source: %w", err)
	}
	return Result{Label: labelRes.Label, Score: scoreRes.Score}, nil
}
