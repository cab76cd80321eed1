// Package perplexity wraps the Perplexity chat-completions API as a
// search.Provider: the model's answer plus its citations become the result
// list, scored by citation order.
package perplexity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/truthseekerlabs/truthseeker/internal/ratelimit"
	"github.com/truthseekerlabs/truthseeker/internal/search"
)

const (
	apiURL       = "https://api.perplexity.ai/chat/completions"
	maxPerSecond = 5

	defaultModel        = "sonar"
	defaultSystemPrompt = "Be precise and concise. Provide factual information with sources."
	defaultMaxTokens    = 500
	defaultTemperature  = 0.2
	defaultTopP         = 0.9
)

// Client is a Perplexity API client implementing search.Provider.
type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
	limiter *ratelimit.Limiter
}

// NewClient creates a new Perplexity API client.
func NewClient(apiKey string) *Client {
	if apiKey == "" {
		log.Printf("[Perplexity] PERPLEXITY_API_KEY is not set, Perplexity search will not be available")
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: apiURL,
		client:  &http.Client{Timeout: 60 * time.Second},
		limiter: ratelimit.New(maxPerSecond),
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model                  string        `json:"model"`
	Messages               []chatMessage `json:"messages"`
	MaxTokens              int           `json:"max_tokens"`
	Temperature            float64       `json:"temperature"`
	TopP                   float64       `json:"top_p"`
	ReturnRelatedQuestions bool          `json:"return_related_questions"`
	SearchRecencyFilter    string        `json:"search_recency_filter,omitempty"`
	Stream                 bool          `json:"stream"`
}

type chatChoice struct {
	Message chatMessage `json:"message"`
}

type chatResponse struct {
	Choices   []chatChoice `json:"choices"`
	Citations []string     `json:"citations"`
}

// Name returns the provider identifier.
func (c *Client) Name() string {
	return search.ProviderPerplexity
}

// IsAvailable reports whether the API key is configured.
func (c *Client) IsAvailable() bool {
	return c.apiKey != ""
}

// Search implements search.Provider. Every citation becomes one result
// carrying the full answer as content, scored 1.0 - 0.1*index so earlier
// citations rank higher.
func (c *Client) Search(ctx context.Context, query string, opts search.Options) (*search.Response, error) {
	if !c.IsAvailable() {
		return nil, fmt.Errorf("perplexity: %w", search.ErrProviderUnavailable)
	}

	o := opts.Perplexity
	reqBody := chatRequest{
		Model:               o.Model,
		MaxTokens:           o.MaxTokens,
		Temperature:         o.Temperature,
		TopP:                o.TopP,
		SearchRecencyFilter: o.RecencyFilter,
	}
	if reqBody.Model == "" {
		reqBody.Model = defaultModel
	}
	if reqBody.MaxTokens <= 0 {
		reqBody.MaxTokens = defaultMaxTokens
	}
	if reqBody.Temperature <= 0 {
		reqBody.Temperature = defaultTemperature
	}
	if reqBody.TopP <= 0 {
		reqBody.TopP = defaultTopP
	}
	systemPrompt := o.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = defaultSystemPrompt
	}
	reqBody.Messages = []chatMessage{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: query},
	}

	log.Printf("[Perplexity] Scheduling search for: %q (with rate limiting)", query)

	var chatResp chatResponse
	err := c.limiter.Do(func() error {
		log.Printf("[Perplexity] Executing search for: %q", query)

		jsonBody, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL, bytes.NewBuffer(jsonBody))
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.client.Do(req)
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			bodyBytes, _ := io.ReadAll(resp.Body)
			return fmt.Errorf("api error: %d %s", resp.StatusCode, string(bodyBytes))
		}
		if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
		return nil
	})
	if err != nil {
		log.Printf("[Perplexity] Search error for %q: %v", query, err)
		return nil, err
	}

	if len(chatResp.Choices) == 0 {
		return nil, fmt.Errorf("no choices returned")
	}
	answer := chatResp.Choices[0].Message.Content

	out := &search.Response{
		Provider:  c.Name(),
		Answer:    answer,
		Citations: chatResp.Citations,
		Results:   make([]search.Result, len(chatResp.Citations)),
	}
	for i, url := range chatResp.Citations {
		out.Results[i] = search.Result{
			Title:   fmt.Sprintf("Result %d", i+1),
			URL:     url,
			Content: answer,
			Score:   1.0 - float64(i)*0.1,
			Source:  c.Name(),
		}
	}

	log.Printf("[Perplexity] Search completed for %q (%d citations)", query, len(chatResp.Citations))
	return out, nil
}
