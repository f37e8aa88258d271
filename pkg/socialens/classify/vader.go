package classify

import (
	"context"

	"github.com/jonreiter/govader"
)

// DefaultVaderThreshold is the compound score magnitude separating
// positive/negative from neutral.
const DefaultVaderThreshold = 0.20

// Vader is a lexicon classifier. Its score is the VADER compound polarity
// in [-1, 1].
type Vader struct {
	analyzer  *govader.SentimentIntensityAnalyzer
	threshold float64
}

// NewVader creates a VADER classifier. threshold <= 0 uses the default.
func NewVader(threshold float64) *Vader {
	if threshold <= 0 {
		threshold = DefaultVaderThreshold
	}
	return &Vader{
		analyzer:  govader.NewSentimentIntensityAnalyzer(),
		threshold: threshold,
	}
}

// Classify implements Classifier.
func (v *Vader) Classify(ctx context.Context, text string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	score := v.analyzer.PolarityScores(text).Compound

	label := "neutral"
	if score >= v.threshold {
		label = "positive"
	} else if score <= -v.threshold {
		label = "negative"
	}
	return Result{Label: label, Score: score}, nil
}
