// Package exa wraps the Exa neural search API as a search.Provider. Exa
// caps at 5 requests per second, enforced through a local rate limiter.
package exa

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
	apiURL        = "https://api.exa.ai/search"
	maxPerSecond  = 5
	defaultLimit  = 3
	defaultChars  = 1000
	summaryPrefix = "Summarize the content considering the query was "
)

// Client is an Exa search API client implementing search.Provider.
type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
	limiter *ratelimit.Limiter
}

// NewClient creates a new Exa API client.
func NewClient(apiKey string) *Client {
	if apiKey == "" {
		log.Printf("[Exa] EXA_API_KEY is not set, Exa search will not be available")
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: apiURL,
		client:  &http.Client{Timeout: 30 * time.Second},
		limiter: ratelimit.New(maxPerSecond),
	}
}

type contentsSpec struct {
	Text    textSpec    `json:"text"`
	Summary summarySpec `json:"summary"`
}

type textSpec struct {
	MaxCharacters int `json:"maxCharacters"`
}

type summarySpec struct {
	Query string `json:"query"`
}

type searchRequest struct {
	Query         string       `json:"query"`
	Type          string       `json:"type"`
	NumResults    int          `json:"numResults"`
	UseAutoprompt bool         `json:"useAutoprompt"`
	Moderation    bool         `json:"moderation"`
	Contents      contentsSpec `json:"contents"`
}

type searchResult struct {
	Title         string  `json:"title"`
	URL           string  `json:"url"`
	Text          string  `json:"text"`
	Summary       string  `json:"summary"`
	Score         float64 `json:"score"`
	PublishedDate string  `json:"publishedDate"`
	Author        string  `json:"author"`
}

type searchResponse struct {
	Results []searchResult `json:"results"`
}

// Name returns the provider identifier.
func (c *Client) Name() string {
	return search.ProviderExa
}

// IsAvailable reports whether the API key is configured.
func (c *Client) IsAvailable() bool {
	return c.apiKey != ""
}

// Search implements search.Provider. Each result gets a one-line summary
// framed by the query; the summary wins over the raw text snippet when
// normalizing content.
func (c *Client) Search(ctx context.Context, query string, opts search.Options) (*search.Response, error) {
	if !c.IsAvailable() {
		return nil, fmt.Errorf("exa: %w", search.ErrProviderUnavailable)
	}

	o := opts.Exa
	reqBody := searchRequest{
		Query:         query,
		Type:          o.Type,
		NumResults:    o.Limit,
		UseAutoprompt: o.UseAutoprompt,
		Moderation:    o.Moderation,
		Contents: contentsSpec{
			Text:    textSpec{MaxCharacters: o.MaxCharacters},
			Summary: summarySpec{Query: summaryPrefix + query},
		},
	}
	if reqBody.Type == "" {
		reqBody.Type = "keyword"
	}
	if reqBody.NumResults <= 0 {
		reqBody.NumResults = defaultLimit
	}
	if reqBody.Contents.Text.MaxCharacters <= 0 {
		reqBody.Contents.Text.MaxCharacters = defaultChars
	}

	log.Printf("[Exa] Scheduling search for: %q (with rate limiting)", query)

	var searchResp searchResponse
	err := c.limiter.Do(func() error {
		log.Printf("[Exa] Executing search for: %q", query)

		jsonBody, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL, bytes.NewBuffer(jsonBody))
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("x-api-key", c.apiKey)

		resp, err := c.client.Do(req)
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			bodyBytes, _ := io.ReadAll(resp.Body)
			return fmt.Errorf("api error: %d %s", resp.StatusCode, string(bodyBytes))
		}
		if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
		return nil
	})
	if err != nil {
		log.Printf("[Exa] Search error for %q: %v", query, err)
		return nil, err
	}

	log.Printf("[Exa] Found %d results for query: %s", len(searchResp.Results), query)

	out := &search.Response{
		Provider: c.Name(),
		Results:  make([]search.Result, len(searchResp.Results)),
	}
	for i, r := range searchResp.Results {
		content := r.Summary
		if content == "" {
			content = r.Text
		}
		out.Results[i] = search.Result{
			Title:   r.Title,
			URL:     r.URL,
			Content: content,
			Score:   r.Score,
			Source:  c.Name(),
		}
		if r.Author != "" || r.PublishedDate != "" {
			md := map[string]any{}
			if r.Author != "" {
				md["author"] = r.Author
			}
			if r.PublishedDate != "" {
				md["published_date"] = r.PublishedDate
			}
			out.Results[i].Metadata = md
		}
	}
	return out, nil
}
