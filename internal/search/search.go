package search

import (
	"context"
	"errors"
)

// Provider names used as registry keys and result source tags.
const (
	ProviderTavily     = "tavily"
	ProviderExa        = "exa"
	ProviderPerplexity = "perplexity"
	ProviderSerpAPI    = "serpapi"
	ProviderTwitter    = "twitter"
	ProviderAll        = "all"
)

var (
	// ErrProviderUnavailable means a named provider is not registered or not
	// authenticated. Distinct from an empty result set.
	ErrProviderUnavailable = errors.New("search provider is not available")

	// ErrNoProviders means a fan-out found zero providers that returned
	// successfully.
	ErrNoProviders = errors.New("no search providers are available")

	// ErrAuthenticationFailed means a provider's login handshake failed.
	ErrAuthenticationFailed = errors.New("search provider authentication failed")
)

// Result is a search result normalized across all providers. Score is only
// comparable within a single provider's own scale (higher = more relevant).
type Result struct {
	Title    string         `json:"title"`
	URL      string         `json:"url"`
	Content  string         `json:"content"`
	Score    float64        `json:"score"`
	Source   string         `json:"source"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Response is a single provider's response, normalized at the provider edge.
type Response struct {
	Provider  string   `json:"provider"`
	Answer    string   `json:"answer,omitempty"`
	Results   []Result `json:"results"`
	Citations []string `json:"citations,omitempty"`
}

// Aggregated is the fan-out response: every succeeding provider's own
// response under its name, plus the flattened combined result list. For a
// single named provider Responses holds exactly one entry.
type Aggregated struct {
	Provider        string               `json:"provider"`
	Responses       map[string]*Response `json:"responses"`
	UsedProviders   []string             `json:"usedProviders"`
	CombinedResults []Result             `json:"combinedResults"`
}

// TavilyOptions configures the Tavily web search provider.
type TavilyOptions struct {
	Limit         int    // default 3
	SearchDepth   string // "basic" or "advanced", default "basic"
	Topic         string // "general" or "news", default "general"
	Days          int    // max article age, news topic only
	IncludeAnswer bool
	IncludeImages bool
}

// ExaOptions configures the Exa neural search provider.
type ExaOptions struct {
	Limit         int    // default 3
	Type          string // "keyword", "neural" or "auto", default "keyword"
	MaxCharacters int    // text snippet cap, default 1000
	UseAutoprompt bool
	Moderation    bool
}

// PerplexityOptions configures the Perplexity Q&A provider.
type PerplexityOptions struct {
	Model         string  // default "sonar"
	SystemPrompt  string  // default factual-answering prompt
	MaxTokens     int     // default 500
	Temperature   float64 // default 0.2
	TopP          float64 // default 0.9
	RecencyFilter string  // e.g. "day", "week"; empty = no filter
}

// SerpAPIOptions configures the SerpAPI Google search provider.
type SerpAPIOptions struct {
	Num         int    // results per page, default 10
	Page        int    // 1-based page, default 1
	CountryCode string // gl parameter, default "us"
	Language    string // hl parameter, default "en"
}

// TwitterOptions configures the Twitter social search provider.
type TwitterOptions struct {
	Count  int    // default 10
	Mode   string // "top" or "latest", default "top"
	Offset int    // items to skip before collecting
}

// Options selects a provider and carries per-provider overrides. Providers
// read only their own sub-struct; zero values mean "use the default".
type Options struct {
	// Provider is a provider name, ProviderAll, or empty (same as all).
	Provider string

	Tavily     TavilyOptions
	Exa        ExaOptions
	Perplexity PerplexityOptions
	SerpAPI    SerpAPIOptions
	Twitter    TwitterOptions
}

// Provider is the capability contract every search backend implements.
type Provider interface {
	// Name returns the stable provider identifier used as registry key and
	// result source tag.
	Name() string

	// IsAvailable reports whether credentials are present and any required
	// authentication handshake has completed.
	IsAvailable() bool

	// Search runs a query against the backend. It fails with
	// ErrProviderUnavailable when called on an unavailable provider and
	// propagates backend failures unswallowed.
	Search(ctx context.Context, query string, opts Options) (*Response, error)
}
