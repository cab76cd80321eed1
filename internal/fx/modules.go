package fx

import (
	"context"
	"log"
	"time"

	"github.com/truthseekerlabs/truthseeker/internal/config"
	"github.com/truthseekerlabs/truthseeker/internal/exa"
	"github.com/truthseekerlabs/truthseeker/internal/llm"
	"github.com/truthseekerlabs/truthseeker/internal/perplexity"
	"github.com/truthseekerlabs/truthseeker/internal/scraper"
	"github.com/truthseekerlabs/truthseeker/internal/search"
	"github.com/truthseekerlabs/truthseeker/internal/serpapi"
	"github.com/truthseekerlabs/truthseeker/internal/store"
	"github.com/truthseekerlabs/truthseeker/internal/tavily"
	"github.com/truthseekerlabs/truthseeker/internal/twitter"
	"github.com/truthseekerlabs/truthseeker/internal/verdict"
	"github.com/truthseekerlabs/truthseeker/internal/worker"

	"go.uber.org/fx"
)

// ============================================================================
// FX MODULES - Group related providers together
// ============================================================================

// ConfigModule provides application configuration
var ConfigModule = fx.Module("config",
	fx.Provide(config.Load),
)

// StoreModule provides database connectivity (optional)
var StoreModule = fx.Module("store",
	fx.Provide(NewPostgresStore),
)

// ScraperModule provides web page content extraction
var ScraperModule = fx.Module("scraper",
	fx.Provide(scraper.NewScraper),
)

// SearchModule provides the aggregator with all configured search providers
var SearchModule = fx.Module("search",
	fx.Provide(NewSearchService),
)

// VerdictModule provides the claim verification engine
var VerdictModule = fx.Module("verdict",
	fx.Provide(NewVerdictEngine),
)

// WorkerModule provides the background verification worker
var WorkerModule = fx.Module("worker",
	fx.Provide(NewVerificationWorker),
)

// ============================================================================
// PROVIDER FUNCTIONS - Constructors that FX will call automatically
// ============================================================================

// NewPostgresStore creates database connection. Returns nil when no
// DATABASE_URL is configured; verification results are then kept in memory
// only.
func NewPostgresStore(cfg config.Config) (*store.PostgresStore, error) {
	if cfg.DatabaseURL == "" {
		log.Printf("[FX] PostgresStore disabled (no DATABASE_URL), persistence off")
		return nil, nil
	}

	st, err := store.NewPostgresStore(context.Background(), cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	log.Printf("[FX] PostgresStore initialized")
	return st, nil
}

// NewSearchService creates the search aggregator with every provider whose
// credential is present. Twitter's login handshake runs in the background, so
// registration waits for it with a bounded timeout before moving on.
func NewSearchService(cfg config.Config) *search.Service {
	svc := search.NewService()

	if cfg.TavilyAPIKey != "" {
		if err := svc.Register(tavily.NewClient(cfg.TavilyAPIKey)); err == nil {
			log.Printf("[FX] Search: Tavily registered")
		}
	}
	if cfg.ExaAPIKey != "" {
		if err := svc.Register(exa.NewClient(cfg.ExaAPIKey)); err == nil {
			log.Printf("[FX] Search: Exa registered")
		}
	}
	if cfg.PerplexityAPIKey != "" {
		if err := svc.Register(perplexity.NewClient(cfg.PerplexityAPIKey)); err == nil {
			log.Printf("[FX] Search: Perplexity registered")
		}
	}
	if cfg.SerpAPIKey != "" {
		if err := svc.Register(serpapi.NewClient(cfg.SerpAPIKey)); err == nil {
			log.Printf("[FX] Search: SerpApi registered")
		}
	}

	if cfg.TwitterUsername != "" && cfg.TwitterPassword != "" {
		tw := twitter.NewProvider(twitter.Config{
			Username:   cfg.TwitterUsername,
			Password:   cfg.TwitterPassword,
			Email:      cfg.TwitterEmail,
			CookiePath: cfg.TwitterCookiePath,
		})
		ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.TwitterAuthTimeout)*time.Second)
		defer cancel()
		if err := tw.AwaitReady(ctx); err != nil {
			log.Printf("[FX] Search: Twitter not registered: %v", err)
		} else if err := svc.Register(tw); err == nil {
			log.Printf("[FX] Search: Twitter registered")
		}
	}

	log.Printf("[FX] Search service initialized with %d providers", len(svc.Providers()))
	return svc
}

// NewVerdictEngine creates the verification engine (optional - returns nil
// without an LLM key)
func NewVerdictEngine(cfg config.Config, svc *search.Service, sc *scraper.Scraper) *verdict.Engine {
	if cfg.LLMAPIKey == "" {
		log.Printf("[FX] VerdictEngine disabled (no LLM_API_KEY)")
		return nil
	}

	gen := llm.NewClient(llm.Config{
		BaseURL: cfg.LLMBaseURL,
		APIKey:  cfg.LLMAPIKey,
		Model:   cfg.LLMModel,
	})
	engine := verdict.NewEngine(svc, gen)
	engine.SetScraper(sc)
	log.Printf("[FX] VerdictEngine initialized (model: %s)", cfg.LLMModel)
	return engine
}

// NewVerificationWorker creates the pending-claim sweeper (optional - needs
// both a store and an engine)
func NewVerificationWorker(st *store.PostgresStore, engine *verdict.Engine) *worker.Worker {
	if st == nil || engine == nil {
		log.Printf("[FX] VerificationWorker disabled (requires store and verdict engine)")
		return nil
	}

	w := worker.NewWorker(st, engine)
	log.Printf("[FX] VerificationWorker initialized")
	return w
}
