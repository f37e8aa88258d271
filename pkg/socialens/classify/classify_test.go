package classify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestVaderLabels(t *testing.T) {
	v := NewVader(0)
	ctx := context.Background()

	tests := []struct {
		text string
		want string
	}{
		{"I love this, it is wonderful and great!", "positive"},
		{"This is terrible, awful and I hate it.", "negative"},
		{"The video is ten minutes long.", "neutral"},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			res, err := v.Classify(ctx, tt.text)
			if err != nil {
				t.Fatalf("Classify: %v", err)
			}
			if res.Label != tt.want {
				t.Errorf("label = %q (score %.3f), want %q", res.Label, res.Score, tt.want)
			}
			if res.Score < -1 || res.Score > 1 {
				t.Errorf("compound score %f out of range", res.Score)
			}
		})
	}
}

func TestVaderCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewVader(0).Classify(ctx, "great"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestComposite(t *testing.T) {
	label := ClassifierFunc(func(ctx context.Context, text string) (Result, error) {
		return Result{Label: "LABEL_2", Score: 0.99}, nil
	})
	score := ClassifierFunc(func(ctx context.Context, text string) (Result, error) {
		return Result{Label: "positive", Score: 0.42}, nil
	})

	res, err := Composite{Label: label, Score: score}.Classify(context.Background(), "x")
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if res.Label != "LABEL_2" || res.Score != 0.42 {
		t.Errorf("got %+v, want {LABEL_2 0.42}", res)
	}

	boom := errors.New("boom")
	failing := ClassifierFunc(func(ctx context.Context, text string) (Result, error) {
		return Result{}, boom
	})
	if _, err := (Composite{Label: label, Score: failing}).Classify(context.Background(), "x"); !errors.Is(err, boom) {
		t.Errorf("expected wrapped score error, got %v", err)
	}
	if _, err := (Composite{Label: failing, Score: score}).Classify(context.Background(), "x"); !errors.Is(err, boom) {
		t.Errorf("expected wrapped label error, got %v", err)
	}
}

func TestHFInferenceResponses(t *testing.T) {
	tests := []struct {
		name string
		body string
		want Result
	}{
		{
			name: "nested",
			body: `[[{"label":"LABEL_0","score":0.1},{"label":"LABEL_2","score":0.8},{"label":"LABEL_1","score":0.1}]]`,
			want: Result{Label: "LABEL_2", Score: 0.8},
		},
		{
			name: "flat",
			body: `[{"label":"negative","score":0.7},{"label":"positive","score":0.3}]`,
			want: Result{Label: "negative", Score: 0.7},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Header.Get("Authorization") != "Bearer secret" {
					t.Errorf("missing bearer token")
				}
				var req hfRequest
				if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Inputs != "hello" {
					t.Errorf("unexpected request %+v (%v)", req, err)
				}
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			h := &HFInference{Endpoint: srv.URL, Token: "secret"}
			res, err := h.Classify(context.Background(), "hello")
			if err != nil {
				t.Fatalf("Classify: %v", err)
			}
			if res != tt.want {
				t.Errorf("got %+v, want %+v", res, tt.want)
			}
		})
	}
}

func TestHFInferenceEmptyResponses(t *testing.T) {
	for _, body := range []string{`[[]]`, `[]`, `[[],[]]`} {
		t.Run(body, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(body))
			}))
			defer srv.Close()

			h := &HFInference{Endpoint: srv.URL}
			if _, err := h.Classify(context.Background(), "好看"); err == nil {
				t.Errorf("expected error for body %s", body)
			}
		})
	}
}

func TestHFInferenceRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`[{"label":"LABEL_1","score":0.9}]`))
	}))
	defer srv.Close()

	h := &HFInference{Endpoint: srv.URL, MaxRetries: 3, InitialBackoff: time.Millisecond}
	res, err := h.Classify(context.Background(), "retry me")
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if res.Label != "LABEL_1" {
		t.Errorf("label = %q, want LABEL_1", res.Label)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("calls = %d, want 3", got)
	}
}

func TestHFInferenceGivesUp(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	h := &HFInference{Endpoint: srv.URL, MaxRetries: 2, InitialBackoff: time.Millisecond}
	if _, err := h.Classify(context.Background(), "x"); err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("calls = %d, want 2", got)
	}
}

func TestHFInferenceClientError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"input too long"}`))
	}))
	defer srv.Close()

	h := &HFInference{Endpoint: srv.URL, InitialBackoff: time.Millisecond}
	_, err := h.Classify(context.Background(), "x")
	if err == nil || !strings.Contains(err.Error(), "input too long") {
		t.Fatalf("expected API error message, got %v", err)
	}
}

func TestHFInferenceRequiresEndpoint(t *testing.T) {
	if _, err := (&HFInference{}).Classify(context.Background(), "x"); err == nil {
		t.Fatal("expected error for missing endpoint")
	}
}

func TestCachedClassifier(t *testing.T) {
	var calls int
	inner := ClassifierFunc(func(ctx context.Context, text string) (Result, error) {
		calls++
		return Result{Label: "positive", Score: 0.5}, nil
	})
	cache := NewMemoryCache()
	c := &Cached{Inner: inner, Cache: cache, Namespace: "test"}

	for i := 0; i < 3; i++ {
		res, err := c.Classify(context.Background(), "same text")
		if err != nil {
			t.Fatalf("Classify: %v", err)
		}
		if res.Label != "positive" {
			t.Errorf("label = %q", res.Label)
		}
	}
	if calls != 1 {
		t.Errorf("inner called %d times, want 1", calls)
	}
	if cache.Len() != 1 {
		t.Errorf("cache entries = %d, want 1", cache.Len())
	}
}

type brokenCache struct{}

func (brokenCache) Get(ctx context.Context, key string) (Result, bool, error) {
	return Result{}, false, errors.New("down")
}

func (brokenCache) Set(ctx context.Context, key string, r Result) error {
	return errors.New("down")
}

func TestCachedFallsThroughOnCacheErrors(t *testing.T) {
	inner := ClassifierFunc(func(ctx context.Context, text string) (Result, error) {
		return Result{Label: "neutral"}, nil
	})
	c := &Cached{Inner: inner, Cache: brokenCache{}}
	res, err := c.Classify(context.Background(), "x")
	if err != nil {
		t.Fatalf("cache errors must not fail classification: %v", err)
	}
	if res.Label != "neutral" {
		t.Errorf("label = %q, want neutral", res.Label)
	}
}

func TestCacheKeyStable(t *testing.T) {
	a := CacheKey("ns", "hello")
	if a != CacheKey("ns", "hello") {
		t.Error("cache key must be deterministic")
	}
	if a == CacheKey("ns", "hello!") {
		t.Error("different text must give different keys")
	}
	if !strings.HasPrefix(CacheKey("", "x"), "socialens:verdict:") {
		t.Error("empty namespace should use the default prefix")
	}
}

func TestRunWithContextTimeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	release := make(chan struct{})
	defer close(release)
	_, err := runWithContext(ctx, func() (int, error) {
		<-release
		return 1, nil
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}

	v, err := runWithContext(context.Background(), func() (int, error) { return 7, nil })
	if err != nil || v != 7 {
		t.Fatalf("got %d, %v", v, err)
	}
}
