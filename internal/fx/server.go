package fx

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/truthseekerlabs/truthseeker/internal/config"
	"github.com/truthseekerlabs/truthseeker/internal/search"
	"github.com/truthseekerlabs/truthseeker/internal/server"
	"github.com/truthseekerlabs/truthseeker/internal/store"
	"github.com/truthseekerlabs/truthseeker/internal/verdict"
	"github.com/truthseekerlabs/truthseeker/internal/worker"

	"go.uber.org/fx"
)

// ServerModule starts the HTTP server and the background worker
var ServerModule = fx.Module("server",
	fx.Invoke(
		StartServer,
		StartWorker,
	),
)

// ServerParams groups dependencies for starting the HTTP server
type ServerParams struct {
	fx.In
	Lifecycle fx.Lifecycle
	Search    *search.Service
	Engine    *verdict.Engine      `optional:"true"`
	Store     *store.PostgresStore `optional:"true"`
	Config    config.Config
}

// StartServer starts the REST server with lifecycle management
func StartServer(p ServerParams) {
	restHandler := server.CreateRESTHandler(server.Services{
		Search: p.Search,
		Engine: p.Engine,
		Store:  p.Store,
	})
	handler := server.CreateRecoveryHandler(restHandler)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", p.Config.ServerPort),
		Handler: handler,
	}

	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Printf("[FX] HTTP Server listening on %s", srv.Addr)
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Printf("[FX] HTTP Server error: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Printf("[FX] Shutting down HTTP server...")
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return err
			}
			if p.Store != nil {
				p.Store.Close()
			}
			return nil
		},
	})
}

// WorkerParams for optional worker injection
type WorkerParams struct {
	fx.In
	Lifecycle fx.Lifecycle
	Worker    *worker.Worker `optional:"true"`
}

// StartWorker starts the verification worker if available
func StartWorker(p WorkerParams) {
	if p.Worker == nil {
		return
	}

	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			p.Worker.Start()
			log.Printf("[FX] VerificationWorker started (sweep: every 1m)")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			p.Worker.Stop()
			return nil
		},
	})
}
