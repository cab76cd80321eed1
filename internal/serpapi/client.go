// Package serpapi wraps Google search via the SerpApi service as a
// search.Provider.
package serpapi

import (
	"context"
	"fmt"
	"log"
	"strconv"

	g "github.com/serpapi/google-search-results-golang"

	"github.com/truthseekerlabs/truthseeker/internal/ratelimit"
	"github.com/truthseekerlabs/truthseeker/internal/search"
)

const maxPerSecond = 5

// Client is a SerpApi search client implementing search.Provider.
type Client struct {
	apiKey  string
	limiter *ratelimit.Limiter

	// fetch runs the actual SerpApi call; replaced in tests.
	fetch func(parameter map[string]string) (map[string]any, error)
}

// NewClient creates a new SerpApi client.
func NewClient(apiKey string) *Client {
	if apiKey == "" {
		log.Printf("[SerpApi] SERPAPI_API_KEY is not set, SerpApi search will not be available")
	}
	c := &Client{
		apiKey:  apiKey,
		limiter: ratelimit.New(maxPerSecond),
	}
	c.fetch = func(parameter map[string]string) (map[string]any, error) {
		s := g.NewGoogleSearch(parameter, c.apiKey)
		return s.GetJSON()
	}
	return c
}

// Name returns the provider identifier.
func (c *Client) Name() string {
	return search.ProviderSerpAPI
}

// IsAvailable reports whether the API key is configured.
func (c *Client) IsAvailable() bool {
	return c.apiKey != ""
}

// Search implements search.Provider. Organic results are scored by position,
// a knowledge graph entry (when present) outranks them, and related
// questions rank below organic results.
func (c *Client) Search(ctx context.Context, query string, opts search.Options) (*search.Response, error) {
	if !c.IsAvailable() {
		return nil, fmt.Errorf("serpapi: %w", search.ErrProviderUnavailable)
	}

	o := opts.SerpAPI
	if o.Num <= 0 {
		o.Num = 10
	}
	if o.Page <= 0 {
		o.Page = 1
	}
	if o.CountryCode == "" {
		o.CountryCode = "us"
	}
	if o.Language == "" {
		o.Language = "en"
	}

	parameter := map[string]string{
		"engine":        "google",
		"q":             query,
		"google_domain": "google.com",
		"gl":            o.CountryCode,
		"hl":            o.Language,
		"num":           strconv.Itoa(o.Num),
		"start":         strconv.Itoa((o.Page - 1) * o.Num),
	}

	log.Printf("[SerpApi] Scheduling search for: %q (with rate limiting)", query)

	var raw map[string]any
	err := c.limiter.Do(func() error {
		log.Printf("[SerpApi] Executing search for: %q", query)
		if err := ctx.Err(); err != nil {
			return err
		}
		var err error
		raw, err = c.fetch(parameter)
		if err != nil {
			return fmt.Errorf("serpapi search failed: %w", err)
		}
		return nil
	})
	if err != nil {
		log.Printf("[SerpApi] Search error for %q: %v", query, err)
		return nil, err
	}

	results := normalize(raw)
	log.Printf("[SerpApi] Found %d results for query: %s", len(results), query)
	return &search.Response{
		Provider: c.Name(),
		Results:  results,
	}, nil
}

// normalize maps a raw SerpApi payload into the common result schema.
func normalize(raw map[string]any) []search.Result {
	var results []search.Result

	if organic, ok := raw["organic_results"].([]any); ok {
		for i, item := range organic {
			res, ok := item.(map[string]any)
			if !ok {
				continue
			}
			title, _ := res["title"].(string)
			link, _ := res["link"].(string)
			snippet, _ := res["snippet"].(string)
			if title == "" || link == "" {
				continue
			}
			results = append(results, search.Result{
				Title:   title,
				URL:     link,
				Content: snippet,
				Score:   positionScore(1.0, i),
				Source:  search.ProviderSerpAPI,
			})
		}
	}

	if kg, ok := raw["knowledge_graph"].(map[string]any); ok {
		title, _ := kg["title"].(string)
		link, _ := kg["description_link"].(string)
		description, _ := kg["description"].(string)
		if title == "" {
			title = "Knowledge Graph"
		}
		results = append(results, search.Result{
			Title:   title,
			URL:     link,
			Content: description,
			Score:   1.0,
			Source:  search.ProviderSerpAPI,
		})
	}

	if related, ok := raw["related_questions"].([]any); ok {
		for i, item := range related {
			res, ok := item.(map[string]any)
			if !ok {
				continue
			}
			question, _ := res["question"].(string)
			link, _ := res["link"].(string)
			snippet, _ := res["snippet"].(string)
			if question == "" {
				continue
			}
			results = append(results, search.Result{
				Title:   question,
				URL:     link,
				Content: snippet,
				Score:   positionScore(0.8, i),
				Source:  search.ProviderSerpAPI,
			})
		}
	}

	return results
}

func positionScore(base float64, index int) float64 {
	score := base - float64(index)*0.05
	if score < 0.1 {
		score = 0.1
	}
	return score
}
