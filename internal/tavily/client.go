package tavily

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/truthseekerlabs/truthseeker/internal/search"
)

const apiURL = "https://api.tavily.com/search"

// Client is a Tavily Search API client implementing search.Provider.
type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewClient creates a new Tavily API client. With an empty key the provider
// is constructed but reports itself unavailable.
func NewClient(apiKey string) *Client {
	if apiKey == "" {
		log.Printf("[Tavily] TAVILY_API_KEY is not set, Tavily search will not be available")
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: apiURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

type searchRequest struct {
	Query         string `json:"query"`
	APIKey        string `json:"api_key"`
	SearchDepth   string `json:"search_depth,omitempty"` // "basic" or "advanced"
	Topic         string `json:"topic,omitempty"`        // "general" or "news"
	Days          int    `json:"days,omitempty"`         // news topic only
	IncludeAnswer bool   `json:"include_answer,omitempty"`
	IncludeImages bool   `json:"include_images,omitempty"`
	MaxResults    int    `json:"max_results,omitempty"`
}

type searchResult struct {
	Title         string  `json:"title"`
	URL           string  `json:"url"`
	Content       string  `json:"content"` // snippet
	Score         float64 `json:"score"`
	PublishedDate string  `json:"published_date,omitempty"`
}

type searchResponse struct {
	Query        string         `json:"query"`
	Answer       string         `json:"answer,omitempty"`
	Results      []searchResult `json:"results"`
	ResponseTime float64        `json:"response_time"`
}

// Name returns the provider identifier.
func (c *Client) Name() string {
	return search.ProviderTavily
}

// IsAvailable reports whether the API key is configured.
func (c *Client) IsAvailable() bool {
	return c.apiKey != ""
}

// Search implements search.Provider.
func (c *Client) Search(ctx context.Context, query string, opts search.Options) (*search.Response, error) {
	if !c.IsAvailable() {
		return nil, fmt.Errorf("tavily: %w", search.ErrProviderUnavailable)
	}

	o := opts.Tavily
	reqBody := searchRequest{
		Query:         query,
		APIKey:        c.apiKey,
		SearchDepth:   o.SearchDepth,
		Topic:         o.Topic,
		IncludeAnswer: o.IncludeAnswer,
		IncludeImages: o.IncludeImages,
		MaxResults:    o.Limit,
	}
	if reqBody.SearchDepth == "" {
		reqBody.SearchDepth = "basic"
	}
	if reqBody.Topic == "" {
		reqBody.Topic = "general"
	}
	if reqBody.MaxResults <= 0 {
		reqBody.MaxResults = 3
	}
	if reqBody.Topic == "news" && o.Days > 0 {
		reqBody.Days = o.Days
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	log.Printf("[Tavily] Searching for: %q (max %d results, topic=%s, depth=%s)",
		query, reqBody.MaxResults, reqBody.Topic, reqBody.SearchDepth)

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL, bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("api error: %d %s", resp.StatusCode, string(bodyBytes))
	}

	var searchResp searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	log.Printf("[Tavily] Found %d results for query: %s", len(searchResp.Results), query)

	out := &search.Response{
		Provider: c.Name(),
		Answer:   searchResp.Answer,
		Results:  make([]search.Result, len(searchResp.Results)),
	}
	for i, r := range searchResp.Results {
		out.Results[i] = search.Result{
			Title:   r.Title,
			URL:     r.URL,
			Content: r.Content,
			Score:   r.Score,
			Source:  c.Name(),
		}
		if r.PublishedDate != "" {
			out.Results[i].Metadata = map[string]any{"published_date": r.PublishedDate}
		}
	}
	return out, nil
}
