package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const (
	defaultMaxRetries     = 3
	defaultInitialBackoff = 500 * time.Millisecond
	userAgent             = "socialens/1.0"
)

// HFInference calls a Hugging Face style text-classification endpoint:
// POST {"inputs": text} -> [{"label": ..., "score": ...}, ...] (optionally
// nested one level). The highest scoring label wins.
type HFInference struct {
	Endpoint string
	Token    string

	MaxRetries     int
	InitialBackoff time.Duration

	HTTPClient *http.Client
	Logger     *slog.Logger
}

type hfRequest struct {
	Inputs string `json:"inputs"`
}

type hfLabel struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

type hfError struct {
	Error string `json:"error"`
}

// Classify implements Classifier.
func (h *HFInference) Classify(ctx context.Context, text string) (Result, error) {
	if h.Endpoint == "" {
		return Result{}, errors.New("hf inference: endpoint required")
	}
	body, err := json.Marshal(hfRequest{Inputs: text})
	if err != nil {
		return Result{}, fmt.Errorf("marshal request: %w", err)
	}

	resp, err := h.doWithRetry(ctx, body)
	if err != nil {
		return Result{}, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		var apiErr hfError
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error != "" {
			return Result{}, fmt.Errorf("hf inference: status %d: %s", resp.StatusCode, apiErr.Error)
		}
		return Result{}, fmt.Errorf("hf inference: status %d", resp.StatusCode)
	}

	labels, err := decodeLabels(raw)
	if err != nil {
		return Result{}, err
	}
	return best(labels), nil
}

// doWithRetry retries transport errors and 5xx responses with exponential
// backoff. The request is rebuilt per attempt since the body is consumed.
func (h *HFInference) doWithRetry(ctx context.Context, body []byte) (*http.Response, error) {
	retries := h.MaxRetries
	if retries <= 0 {
		retries = defaultMaxRetries
	}
	backoff := h.InitialBackoff
	if backoff <= 0 {
		backoff = defaultInitialBackoff
	}

	var lastErr error
	for attempt := 0; attempt < retries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.Endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", userAgent)
		if h.Token != "" {
			req.Header.Set("Authorization", "Bearer "+h.Token)
		}

		resp, err := h.httpClient().Do(req)
		if err == nil && resp.StatusCode < 500 {
			return resp, nil
		}
		if resp != nil {
			resp.Body.Close()
			lastErr = fmt.Errorf("status code %d", resp.StatusCode)
		} else {
			lastErr = err
		}

		h.logger().Warn("[HFInference] Request failed, will retry",
			slog.Int("attempt", attempt+1),
			slog.String("error", lastErr.Error()))

		if attempt == retries-1 {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return nil, fmt.Errorf("request failed after %d attempts: %w", retries, lastErr)
}

func decodeLabels(raw []byte) ([]hfLabel, error) {
	var nested [][]hfLabel
	if err := json.Unmarshal(raw, &nested); err == nil && len(nested) > 0 {
		if len(nested[0]) == 0 {
			return nil, errors.New("hf inference: empty response")
		}
		return nested[0], nil
	}
	var flat []hfLabel
	if err := json.Unmarshal(raw, &flat); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if len(flat) == 0 {
		return nil, errors.New("hf inference: empty response")
	}
	return flat, nil
}

func best(labels []hfLabel) Result {
	top := labels[0]
	for _, l := range labels[1:] {
		if l.Score > top.Score {
			top = l
		}
	}
	return Result{Label: top.Label, Score: top.Score}
}

func (h *HFInference) httpClient() *http.Client {
	if h.HTTPClient != nil {
		return h.HTTPClient
	}
	return &http.Client{Timeout: 30 * time.Second}
}

func (h *HFInference) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}
