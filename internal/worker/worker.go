// Package worker sweeps queued verifications from the store through the
// verdict engine on a schedule.
package worker

import (
	"context"
	"errors"
	"log"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/truthseekerlabs/truthseeker/internal/store"
	"github.com/truthseekerlabs/truthseeker/internal/verdict"
)

// Worker drains pending claim verifications in the background.
type Worker struct {
	store   *store.PostgresStore
	engine  *verdict.Engine
	cron    *cron.Cron
	running atomic.Bool
}

// NewWorker creates a new verification worker.
func NewWorker(st *store.PostgresStore, engine *verdict.Engine) *Worker {
	return &Worker{
		store:  st,
		engine: engine,
		cron:   cron.New(),
	}
}

// Start begins the periodic sweep of pending verifications.
func (w *Worker) Start() {
	log.Println("[Worker] Starting pending verification sweeper...")
	_, err := w.cron.AddFunc("@every 1m", func() {
		// A long debate can outlast one tick; skip overlapping sweeps.
		if !w.running.CompareAndSwap(false, true) {
			return
		}
		defer w.running.Store(false)
		w.ProcessPending()
	})
	if err != nil {
		log.Printf("[Worker] Failed to schedule sweep job: %v", err)
		return
	}
	w.cron.Start()
	log.Println("[Worker] Scheduled pending verification sweep every minute")
}

// Stop stops the scheduler and waits for a running sweep's cron entry to
// return.
func (w *Worker) Stop() {
	ctx := w.cron.Stop()
	<-ctx.Done()
	log.Println("[Worker] Stopped")
}

// ProcessPending drains the pending queue one verification at a time.
func (w *Worker) ProcessPending() {
	for {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
		v, err := w.store.ClaimPending(ctx)
		if errors.Is(err, store.ErrNotFound) {
			cancel()
			return
		}
		if err != nil {
			log.Printf("[Worker] Failed to claim pending verification: %v", err)
			cancel()
			return
		}

		log.Printf("[Worker] Verifying queued claim %s: %q", v.ID, v.Claim)
		result, err := w.engine.Verify(ctx, v.Claim, nil)
		if err != nil {
			log.Printf("[Worker] Verification %s failed: %v", v.ID, err)
			if serr := w.store.FailVerification(ctx, v.ID, err.Error()); serr != nil {
				log.Printf("[Worker] Failed to record failure for %s: %v", v.ID, serr)
			}
			cancel()
			continue
		}

		if serr := w.store.CompleteVerification(ctx, v.ID,
			result.Final.Decision, int(result.Final.Confidence), result.Final.Reason, result); serr != nil {
			log.Printf("[Worker] Failed to record result for %s: %v", v.ID, serr)
		}
		cancel()
	}
}
