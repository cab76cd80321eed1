package main

import (
	"log"

	appfx "github.com/truthseekerlabs/truthseeker/internal/fx"
	"github.com/joho/godotenv"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// FX resolves the dependency graph, runs OnStart/OnStop hooks and handles
	// graceful shutdown on SIGINT/SIGTERM.
	app := fx.New(
		appfx.ConfigModule,  // Provides: config.Config
		appfx.StoreModule,   // Provides: *store.PostgresStore (nil without DATABASE_URL)
		appfx.ScraperModule, // Provides: *scraper.Scraper
		appfx.SearchModule,  // Provides: *search.Service with all configured providers
		appfx.VerdictModule, // Provides: *verdict.Engine (nil without LLM_API_KEY)
		appfx.WorkerModule,  // Provides: *worker.Worker (nil without store+engine)
		appfx.ServerModule,  // Starts HTTP server and worker

		// Use simple console logger for cleaner output
		fx.WithLogger(func() fxevent.Logger {
			return &fxevent.ConsoleLogger{W: log.Writer()}
		}),
	)

	// Run blocks until the app receives a shutdown signal
	app.Run()
}
