package link

import (
	"fmt"

	"github.com/cognicore/socialens/pkg/socialens/internalerr"
	"github.com/cognicore/socialens/pkg/socialens/records"
)

// Influence classifies an account by reach.
type Influence string

const (
	Ordinary    Influence = "ordinary"
	Influential Influence = "influential"
)

// Metric names the creator counter compared against a Threshold.
type Metric string

const (
	MetricFans  Metric = "fans"
	MetricLiked Metric = "liked"
)

// Threshold is a single cut-off on one creator metric.
type Threshold struct {
	Metric Metric  `yaml:"metric" json:"metric"`
	Value  float64 `yaml:"value" json:"value"`
}

// DefaultThreshold marks creators with at least 10000 fans as influential.
func DefaultThreshold() Threshold {
	return Threshold{Metric: MetricFans, Value: 10000}
}

// Validate checks the metric name and value.
func (t Threshold) Validate() error {
	if t.Metric != MetricFans && t.Metric != MetricLiked {
		return fmt.Errorf("influence metric %q: %w", t.Metric, internalerr.ErrInvalidConfig)
	}
	if t.Value < 0 {
		return fmt.Errorf("influence threshold %v: %w", t.Value, internalerr.ErrInvalidConfig)
	}
	return nil
}

// ClassifyInfluence compares the creator's metric against the threshold.
// A missing or non-numeric counter is an error, never a zero.
func ClassifyInfluence(c records.Creator, t Threshold) (Influence, error) {
	if err := t.Validate(); err != nil {
		return "", err
	}
	src := c.TotalFans
	if t.Metric == MetricLiked {
		src = c.TotalLiked
	}
	v, err := src.Float64()
	if err != nil {
		return "", fmt.Errorf("creator %s %s: %w", c.UserID, t.Metric, err)
	}
	if v >= t.Value {
		return Influential, nil
	}
	return Ordinary, nil
}

func classifyMetric(m Metrics, t Threshold) Influence {
	v := m.Fans
	if t.Metric == MetricLiked {
		v = m.TotalLiked
	}
	if float64(v) >= t.Value {
		return Influential
	}
	return Ordinary
}
