package search

import (
	"context"
	"fmt"
	"log"
	"sync"
)

// Service owns the name-keyed provider map and dispatches queries either to
// one named provider or to all registered providers concurrently. Providers
// are registered once during initialization; the map is read-only afterwards.
type Service struct {
	mu        sync.RWMutex
	providers map[string]Provider
	order     []string // registration order, used for deterministic assembly
}

// NewService creates an empty aggregator service.
func NewService() *Service {
	return &Service{
		providers: make(map[string]Provider),
	}
}

// Register adds a provider to the registry. Providers that are not available
// at registration time are rejected, never retried.
func (s *Service) Register(p Provider) error {
	if !p.IsAvailable() {
		log.Printf("[Search] Refusing to register unavailable provider: %s", p.Name())
		return fmt.Errorf("register %s: %w", p.Name(), ErrProviderUnavailable)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.providers[p.Name()]; !exists {
		s.order = append(s.order, p.Name())
	}
	s.providers[p.Name()] = p
	log.Printf("[Search] Registered search provider: %s", p.Name())
	return nil
}

// Providers returns the registered provider names in registration order.
func (s *Service) Providers() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, len(s.order))
	copy(names, s.order)
	return names
}

// Search dispatches a query. With a named provider in opts the provider's own
// response is returned untouched under its name; errors propagate to the
// caller. With ProviderAll (or no provider) the query fans out to every
// registered provider, individual failures are logged and skipped, and the
// remaining responses are merged.
func (s *Service) Search(ctx context.Context, query string, opts Options) (*Aggregated, error) {
	name := opts.Provider
	if name == "" {
		name = ProviderAll
	}
	log.Printf("[Search] Dispatch provider=%s query=%q", name, query)

	if name != ProviderAll {
		return s.searchOne(ctx, name, query, opts)
	}
	return s.searchAll(ctx, query, opts)
}

func (s *Service) searchOne(ctx context.Context, name, query string, opts Options) (*Aggregated, error) {
	s.mu.RLock()
	p, ok := s.providers[name]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("requested provider %q: %w", name, ErrProviderUnavailable)
	}

	resp, err := p.Search(ctx, query, opts)
	if err != nil {
		log.Printf("[Search] Provider %s failed: %v", name, err)
		return nil, err
	}
	return &Aggregated{
		Provider:        name,
		Responses:       map[string]*Response{name: resp},
		UsedProviders:   []string{name},
		CombinedResults: resp.Results,
	}, nil
}

type settled struct {
	resp *Response
	err  error
}

func (s *Service) searchAll(ctx context.Context, query string, opts Options) (*Aggregated, error) {
	s.mu.RLock()
	names := make([]string, len(s.order))
	copy(names, s.order)
	providers := make([]Provider, 0, len(names))
	for _, n := range names {
		providers = append(providers, s.providers[n])
	}
	s.mu.RUnlock()

	// Fan out and wait for every call to settle; one provider's failure must
	// never abort the others.
	outcomes := make([]settled, len(providers))
	var wg sync.WaitGroup
	for i, p := range providers {
		wg.Add(1)
		go func(i int, p Provider) {
			defer wg.Done()
			resp, err := p.Search(ctx, query, opts)
			outcomes[i] = settled{resp: resp, err: err}
		}(i, p)
	}
	wg.Wait()

	agg := &Aggregated{
		Provider:  ProviderAll,
		Responses: make(map[string]*Response),
	}
	for i, name := range names {
		if outcomes[i].err != nil {
			log.Printf("[Search] Provider %s failed during fan-out: %v", name, outcomes[i].err)
			continue
		}
		resp := outcomes[i].resp
		agg.Responses[name] = resp
		agg.UsedProviders = append(agg.UsedProviders, name)
		for _, r := range resp.Results {
			if r.Source == "" {
				r.Source = name
			}
			agg.CombinedResults = append(agg.CombinedResults, r)
		}
	}

	if len(agg.UsedProviders) == 0 {
		return nil, ErrNoProviders
	}
	log.Printf("[Search] Fan-out complete for %q: %d/%d providers, %d combined results",
		query, len(agg.UsedProviders), len(names), len(agg.CombinedResults))
	return agg, nil
}

// SearchTavily searches using only the Tavily provider.
func (s *Service) SearchTavily(ctx context.Context, query string, opts Options) (*Aggregated, error) {
	opts.Provider = ProviderTavily
	return s.Search(ctx, query, opts)
}

// SearchExa searches using only the Exa provider.
func (s *Service) SearchExa(ctx context.Context, query string, opts Options) (*Aggregated, error) {
	opts.Provider = ProviderExa
	return s.Search(ctx, query, opts)
}

// SearchPerplexity searches using only the Perplexity provider.
func (s *Service) SearchPerplexity(ctx context.Context, query string, opts Options) (*Aggregated, error) {
	opts.Provider = ProviderPerplexity
	return s.Search(ctx, query, opts)
}

// SearchSerpAPI searches using only the SerpAPI provider.
func (s *Service) SearchSerpAPI(ctx context.Context, query string, opts Options) (*Aggregated, error) {
	opts.Provider = ProviderSerpAPI
	return s.Search(ctx, query, opts)
}

// SearchTwitter searches using only the Twitter provider.
func (s *Service) SearchTwitter(ctx context.Context, query string, opts Options) (*Aggregated, error) {
	opts.Provider = ProviderTwitter
	return s.Search(ctx, query, opts)
}
