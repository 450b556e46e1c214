package recommend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// ModelClient is the single blocking completion call made to the external
// ranking model. Retries and timeouts are the caller's concern.
type ModelClient interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Ranking is one entry of the model's structured reply.
type Ranking struct {
	ID         string `json:"id"`
	MatchScore int    `json:"match_score"`
	Reason     string `json:"reason"`
}

// GeminiClient ranks candidates through the Gemini API.
type GeminiClient struct {
	client *genai.Client
	model  string
}

// NewGeminiClient builds the model client. The low temperature keeps the
// ranking reply close to deterministic.
func NewGeminiClient(ctx context.Context, apiKey, model string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, errors.New("recommend: api key required")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("recommend: genai client: %w", err)
	}
	return &GeminiClient{client: client, model: model}, nil
}

// Complete sends the ranking prompt and returns the raw model reply.
func (c *GeminiClient) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature:     genai.Ptr[float32](0.3),
		MaxOutputTokens: 1024,
	})
	if err != nil {
		return "", fmt.Errorf("recommend: generate: %w", err)
	}
	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", errors.New("recommend: empty model reply")
	}
	return text, nil
}

// ParseRankings extracts the first well-formed JSON array substring from a
// model reply. Prose around the array is tolerated; an unparsable reply
// yields nil, which callers resolve via the deterministic fallback.
func ParseRankings(reply string) []Ranking {
	start := strings.Index(reply, "[")
	end := strings.LastIndex(reply, "]")
	if start < 0 || end <= start {
		return nil
	}
	var rankings []Ranking
	if err := json.Unmarshal([]byte(reply[start:end+1]), &rankings); err != nil {
		return nil
	}
	return rankings
}
