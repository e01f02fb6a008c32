package catalog

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// gate serializes request sequences to one source and spaces them by a
// fixed interval measured from the end of the previous sequence.
type gate struct {
	mu       sync.Mutex
	interval time.Duration
	lim      *rate.Limiter
}

func newGate(interval time.Duration) *gate {
	return &gate{interval: interval}
}

// do runs fn as one paced sequence. The gate is held for the whole of fn.
func (g *gate) do(ctx context.Context, fn func()) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.lim != nil {
		if err := g.lim.Wait(ctx); err != nil {
			return err
		}
	}

	fn()

	// Restart the window now so the next sequence waits a full interval.
	g.lim = rate.NewLimiter(rate.Every(g.interval), 1)
	g.lim.Allow()
	return nil
}
