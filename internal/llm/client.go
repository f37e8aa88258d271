// Package llm reviews stop-term suggestions through an OpenAI-compatible
// chat completion endpoint.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/cognicore/socialens/pkg/socialens/stoplist"
)

const defaultPrompt = "The token '%s' appears in %.1f%% of the comments of a Chinese short-video corpus about traditional opera. " +
	"Is it a generic filler or function word that should be excluded from topic keywords? " +
	"Reply with JSON {\"approve\": true|false}."

// Client asks a chat model to approve stop-term candidates.
type Client struct {
	Model string
	// Prompt is a format string receiving the token and its DF percent.
	Prompt string
	// Limit caps how many candidates are sent; the rest pass unreviewed.
	// Zero reviews all.
	Limit  int
	Logger *slog.Logger

	chat *openai.Client
}

type verdict struct {
	Approve bool   `json:"approve"`
	Reason  string `json:"reason,omitempty"`
}

// New creates a client. An empty baseURL uses the public OpenAI API.
func New(apiKey, baseURL, model string, httpClient *http.Client) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	cfg.HTTPClient = httpClient
	return &Client{Model: model, chat: openai.NewClientWithConfig(cfg)}
}

// Approve asks whether one candidate is a stop term.
func (c *Client) Approve(ctx context.Context, cand stoplist.Candidate) (bool, error) {
	if c.Model == "" {
		return false, fmt.Errorf("llm: model required")
	}
	tpl := c.Prompt
	if tpl == "" {
		tpl = defaultPrompt
	}
	resp, err := c.chat.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: "You curate stop word lists. Answer only with JSON."},
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf(tpl, cand.Token, cand.DFPercent)},
		},
	})
	if err != nil {
		return false, fmt.Errorf("llm: %w", err)
	}
	if len(resp.Choices) == 0 {
		return false, fmt.Errorf("llm: empty response")
	}
	return parseVerdict(resp.Choices[0].Message.Content)
}

// Review implements stoplist.Reviewer. Candidates the model rejects, or
// that fail review, are dropped.
func (c *Client) Review(ctx context.Context, candidates []stoplist.Candidate) []stoplist.Candidate {
	logger := c.Logger
	if logger == nil {
		logger = slog.Default()
	}
	var out []stoplist.Candidate
	for i, cand := range candidates {
		if c.Limit > 0 && i >= c.Limit {
			out = append(out, cand)
			continue
		}
		ok, err := c.Approve(ctx, cand)
		if err != nil {
			logger.Warn("[LLM] Review failed",
				slog.String("token", cand.Token),
				slog.String("error", err.Error()))
			continue
		}
		if ok {
			out = append(out, cand)
		}
	}
	return out
}

// parseVerdict reads {"approve": bool} from a reply that may be wrapped in
// a markdown code fence or surrounded by prose.
func parseVerdict(content string) (bool, error) {
	s := strings.TrimSpace(content)
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end < start {
		return false, fmt.Errorf("llm: no JSON object in reply %q", content)
	}
	var v verdict
	if err := json.Unmarshal([]byte(s[start:end+1]), &v); err != nil {
		return false, fmt.Errorf("llm: decode reply: %w", err)
	}
	return v.Approve, nil
}
