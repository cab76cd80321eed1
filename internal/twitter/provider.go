// Package twitter implements the social search provider. Unlike the HTTP
// providers it depends on an unofficial scraper client that must complete a
// login handshake before the provider becomes usable, so construction and
// authentication run asynchronously and the provider is only registered once
// the handshake has settled.
package twitter

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/truthseekerlabs/truthseeker/internal/search"
)

// State is the provider's initialization state.
type State int

const (
	StateUnconfigured State = iota // no credentials
	StateConfiguring               // client construction in flight
	StateConfigured                // client built, not yet authenticated
	StateAuthenticating
	StateAuthenticated // terminal, available
	StateAuthFailed    // terminal for this process lifetime
)

func (s State) String() string {
	switch s {
	case StateUnconfigured:
		return "unconfigured"
	case StateConfiguring:
		return "configuring"
	case StateConfigured:
		return "configured"
	case StateAuthenticating:
		return "authenticating"
	case StateAuthenticated:
		return "authenticated"
	case StateAuthFailed:
		return "auth_failed"
	default:
		return "unknown"
	}
}

// Config carries the credentials and cookie cache location for the provider.
type Config struct {
	Username   string
	Password   string
	Email      string
	CookiePath string // empty disables cookie persistence
}

// Provider is the Twitter search provider.
type Provider struct {
	cfg     Config
	cookies *cookieCache

	mu     sync.Mutex
	state  State
	client client

	configured chan struct{} // closed once client construction settles
	done       chan struct{} // closed once the auth handshake settles
	doneOnce   sync.Once

	newClient func() (client, error)
}

// NewProvider constructs the provider and, when credentials are present,
// starts the configuration and authentication handshake in the background.
// Construction never blocks and never fails the host process.
func NewProvider(cfg Config) *Provider {
	p := &Provider{
		cfg:        cfg,
		state:      StateUnconfigured,
		configured: make(chan struct{}),
		done:       make(chan struct{}),
		newClient:  newScraperClient,
	}
	if cfg.CookiePath != "" {
		p.cookies = newCookieCache(cfg.CookiePath)
	}

	if cfg.Username == "" || cfg.Password == "" {
		log.Printf("[Twitter] Credentials are not set, Twitter search will not be available")
		close(p.configured)
		p.settle()
		return p
	}

	go p.initialize()
	return p
}

// initialize builds the underlying client and then runs the handshake. Any
// failure degrades the provider to AuthFailed with a logged diagnostic.
func (p *Provider) initialize() {
	p.setState(StateConfiguring)

	c, err := p.newClient()
	if err != nil {
		log.Printf("[Twitter] Failed to initialize scraper client: %v", err)
		p.setState(StateAuthFailed)
		close(p.configured)
		p.settle()
		return
	}

	p.mu.Lock()
	p.client = c
	p.state = StateConfigured
	p.mu.Unlock()
	close(p.configured)
	log.Printf("[Twitter] Initialized Twitter search provider")

	if err := p.Authenticate(context.Background()); err != nil {
		log.Printf("[Twitter] Authentication handshake failed: %v", err)
	}
}

// Authenticate runs the login handshake. It is idempotent: a no-op while
// already authenticated, waits for configuration first, and once the
// handshake has failed it stays failed for the process lifetime.
func (p *Provider) Authenticate(ctx context.Context) error {
	select {
	case <-p.configured:
	case <-ctx.Done():
		return ctx.Err()
	}

	p.mu.Lock()
	switch p.state {
	case StateAuthenticated:
		p.mu.Unlock()
		return nil
	case StateUnconfigured, StateAuthFailed:
		p.mu.Unlock()
		return fmt.Errorf("twitter: %w", search.ErrAuthenticationFailed)
	case StateAuthenticating:
		// Another call is mid-handshake; wait for it to settle.
		p.mu.Unlock()
		select {
		case <-p.done:
		case <-ctx.Done():
			return ctx.Err()
		}
		if p.currentState() == StateAuthenticated {
			return nil
		}
		return fmt.Errorf("twitter: %w", search.ErrAuthenticationFailed)
	}
	p.state = StateAuthenticating
	c := p.client
	p.mu.Unlock()

	// Cached cookies from a previous run may still carry a valid session.
	if p.cookies != nil {
		if cookies, err := p.cookies.load(p.cfg.Username); err != nil {
			log.Printf("[Twitter] Failed to load cached cookies: %v", err)
		} else if len(cookies) > 0 {
			c.SetCookies(cookies)
		}
	}

	if c.IsLoggedIn() {
		log.Printf("[Twitter] Already logged in with existing cookies")
		p.setState(StateAuthenticated)
		p.settle()
		return nil
	}

	log.Printf("[Twitter] Logging in as %s...", p.cfg.Username)
	creds := []string{p.cfg.Username, p.cfg.Password}
	if p.cfg.Email != "" {
		creds = append(creds, p.cfg.Email)
	}
	if err := c.Login(creds...); err != nil {
		log.Printf("[Twitter] Login failed: %v", err)
		p.setState(StateAuthFailed)
		p.settle()
		return fmt.Errorf("twitter login: %w", search.ErrAuthenticationFailed)
	}

	if p.cookies != nil {
		if err := p.cookies.save(p.cfg.Username, c.Cookies()); err != nil {
			log.Printf("[Twitter] Failed to cache cookies: %v", err)
		} else {
			log.Printf("[Twitter] Login successful, cookies cached")
		}
	}

	p.setState(StateAuthenticated)
	p.settle()
	return nil
}

// AwaitReady blocks until the handshake settles or ctx expires, then reports
// whether the provider ended up available. Registration uses this as its
// bounded wait; a handshake slower than the deadline simply misses
// registration.
func (p *Provider) AwaitReady(ctx context.Context) error {
	select {
	case <-p.done:
	case <-ctx.Done():
		return fmt.Errorf("twitter handshake still pending: %w", ctx.Err())
	}
	if p.currentState() != StateAuthenticated {
		return fmt.Errorf("twitter: %w", search.ErrAuthenticationFailed)
	}
	return nil
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return search.ProviderTwitter
}

// IsAvailable reports whether the login handshake has completed successfully.
func (p *Provider) IsAvailable() bool {
	return p.currentState() == StateAuthenticated
}

// State returns the current initialization state.
func (p *Provider) State() State {
	return p.currentState()
}

// Search implements search.Provider. Results are paginated past the offset,
// reduced to simplified tweet records and scored by position.
func (p *Provider) Search(ctx context.Context, query string, opts search.Options) (*search.Response, error) {
	if !p.IsAvailable() {
		if err := p.Authenticate(ctx); err != nil {
			return nil, fmt.Errorf("twitter: %w", search.ErrProviderUnavailable)
		}
	}

	o := opts.Twitter
	if o.Count <= 0 {
		o.Count = 10
	}
	if o.Mode == "" {
		o.Mode = "top"
	}
	if o.Offset < 0 {
		o.Offset = 0
	}

	log.Printf("[Twitter] Executing search for: %q (count=%d, mode=%s, offset=%d)",
		query, o.Count, o.Mode, o.Offset)

	p.mu.Lock()
	c := p.client
	p.mu.Unlock()

	stream := c.SearchTweets(ctx, query, o.Count+o.Offset, o.Mode)
	tweets, err := collect(stream, o.Offset, o.Count)
	if err != nil {
		if len(tweets) == 0 {
			return nil, fmt.Errorf("twitter search failed: %w", err)
		}
		// Partial results are still results.
		log.Printf("[Twitter] Stream ended early after %d tweets: %v", len(tweets), err)
	}

	out := &search.Response{
		Provider: p.Name(),
		Results:  make([]search.Result, len(tweets)),
	}
	for i, t := range tweets {
		out.Results[i] = search.Result{
			Title:   fmt.Sprintf("Tweet by @%s", t.Username),
			URL:     t.URL,
			Content: t.Text,
			Score:   1.0 - float64(i)*0.05,
			Source:  p.Name(),
			Metadata: map[string]any{
				"likes":    t.Likes,
				"retweets": t.Retweets,
				"replies":  t.Replies,
				"username": t.Username,
				"name":     t.Name,
				"date":     t.Date,
			},
		}
	}

	log.Printf("[Twitter] Found %d tweets for query: %q", len(tweets), query)
	return out, nil
}

// Trends returns the currently trending topics.
func (p *Provider) Trends(ctx context.Context) ([]string, error) {
	if err := p.Authenticate(ctx); err != nil {
		return nil, err
	}
	p.mu.Lock()
	c := p.client
	p.mu.Unlock()
	return c.Trends()
}

// UserTweets returns up to count recent tweets from one user.
func (p *Provider) UserTweets(ctx context.Context, username string, count int) ([]Tweet, error) {
	if err := p.Authenticate(ctx); err != nil {
		return nil, err
	}
	if count <= 0 {
		count = 20
	}
	p.mu.Lock()
	c := p.client
	p.mu.Unlock()
	return collect(c.UserTweets(ctx, username, count), 0, count)
}

func (p *Provider) currentState() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Provider) setState(s State) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
}

func (p *Provider) settle() {
	p.doneOnce.Do(func() { close(p.done) })
}
