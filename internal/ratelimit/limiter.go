// Package ratelimit bounds the start rate of outbound API calls to a single
// provider: at most N operation starts within any trailing one-second window.
// Admission is FIFO; admitted operations run concurrently and the limiter
// never waits for them to finish.
package ratelimit

import (
	"sync"
	"time"
)

const window = time.Second

type job struct {
	fn   func() error
	done chan error
}

// Limiter schedules operations so that no more than maxPerSecond of them
// start within any trailing one-second window.
type Limiter struct {
	maxPerSecond int

	mu         sync.Mutex
	queue      []job
	starts     []time.Time // admission timestamps within the trailing window
	processing bool
}

// New creates a limiter admitting at most maxPerSecond operation starts per
// trailing second.
func New(maxPerSecond int) *Limiter {
	if maxPerSecond < 1 {
		maxPerSecond = 1
	}
	return &Limiter{maxPerSecond: maxPerSecond}
}

// Schedule queues fn and returns a channel that receives its error once it
// has been admitted and has finished. The channel is buffered; the result is
// never lost if the caller stops listening.
func (l *Limiter) Schedule(fn func() error) <-chan error {
	j := job{fn: fn, done: make(chan error, 1)}

	l.mu.Lock()
	l.queue = append(l.queue, j)
	kick := !l.processing
	if kick {
		l.processing = true
	}
	l.mu.Unlock()

	if kick {
		go l.admitLoop()
	}
	return j.done
}

// Do schedules fn and blocks until it has run, returning its error.
func (l *Limiter) Do(fn func() error) error {
	return <-l.Schedule(fn)
}

// admitLoop is the single admission pass: only one runs at a time. It drains
// the queue in submission order, sleeping until the oldest admission falls
// out of the window whenever capacity is exhausted.
func (l *Limiter) admitLoop() {
	for {
		l.mu.Lock()
		if len(l.queue) == 0 {
			l.processing = false
			l.mu.Unlock()
			return
		}

		now := time.Now()
		l.purgeLocked(now)

		if len(l.starts) >= l.maxPerSecond {
			wait := l.starts[0].Add(window).Sub(now)
			l.mu.Unlock()
			if wait > 0 {
				time.Sleep(wait)
			}
			continue
		}

		n := l.maxPerSecond - len(l.starts)
		if n > len(l.queue) {
			n = len(l.queue)
		}
		batch := l.queue[:n]
		l.queue = append([]job(nil), l.queue[n:]...)
		for range batch {
			l.starts = append(l.starts, now)
		}
		l.mu.Unlock()

		for _, j := range batch {
			go func(j job) {
				j.done <- j.fn()
			}(j)
		}
	}
}

// purgeLocked drops admission timestamps older than the trailing window.
// Caller holds l.mu.
func (l *Limiter) purgeLocked(now time.Time) {
	kept := l.starts[:0]
	for _, t := range l.starts {
		if now.Sub(t) < window {
			kept = append(kept, t)
		}
	}
	l.starts = kept
}
