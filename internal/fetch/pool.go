// Package fetch runs per-artist provider lookups on a bounded worker pool.
package fetch

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// PoolConfig sizes a fetch stage
type PoolConfig struct {
	Name  string        // Stage name used in logs
	Size  int           // Maximum concurrent workers
	Delay time.Duration // Pause before each remote call (0 = none)
}

// Pool is a bounded set of workers for one fetch stage
type Pool struct {
	name   string
	size   int
	delay  time.Duration
	logger zerolog.Logger
}

// Stats summarizes a completed stage
type Stats struct {
	Items    int // Distinct items dispatched
	Failed   int // Items whose resolver failed or panicked
	Returned int // Non-nil results
}

// NewPool creates a pool. A non-positive size runs items one at a time.
func NewPool(cfg PoolConfig, logger zerolog.Logger) *Pool {
	size := cfg.Size
	if size <= 0 {
		size = 1
	}
	return &Pool{
		name:   cfg.Name,
		size:   size,
		delay:  cfg.Delay,
		logger: logger.With().Str("component", "fetch").Str("stage", cfg.Name).Logger(),
	}
}

// Name returns the stage name
func (p *Pool) Name() string {
	return p.name
}

// Wait blocks for the pool's per-call delay. Resolvers call it right
// before they contact a provider, so cache hits are not delayed.
func (p *Pool) Wait(ctx context.Context) {
	if p.delay <= 0 {
		return
	}
	t := time.NewTimer(p.delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// Logger returns the stage logger
func (p *Pool) Logger() zerolog.Logger {
	return p.logger
}

// Job describes how to resolve one kind of work item
type Job[I, R any] struct {
	// ID identifies an item in logs and for deduplication
	ID func(I) string

	// Resolve produces the result for an item. A nil result with a nil
	// error means the item yields nothing.
	Resolve func(ctx context.Context, item I) (*R, error)

	// Fallback produces the result used when Resolve fails. Optional.
	Fallback func(item I) *R
}

// Map resolves every distinct item exactly once on the pool and returns
// the non-nil results in completion order. A failing item is logged and
// replaced by its fallback; it never aborts the batch.
func Map[I, R any](ctx context.Context, p *Pool, items []I, job Job[I, R]) ([]R, Stats) {
	seen := make(map[string]struct{}, len(items))
	unique := make([]I, 0, len(items))
	for _, item := range items {
		id := job.ID(item)
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, item)
	}

	var (
		mu      sync.Mutex
		results = make([]R, 0, len(unique))
		failed  atomic.Int64
	)

	var g errgroup.Group
	g.SetLimit(p.size)

	start := time.Now()
	for _, item := range unique {
		g.Go(func() error {
			r, err := resolveItem(ctx, item, job)
			if err != nil {
				failed.Add(1)
				p.logger.Warn().
					Err(err).
					Str("item", job.ID(item)).
					Msg("Fetch failed, using fallback")
				if job.Fallback != nil {
					r = job.Fallback(item)
				}
			}
			if r != nil {
				mu.Lock()
				results = append(results, *r)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	stats := Stats{
		Items:    len(unique),
		Failed:   int(failed.Load()),
		Returned: len(results),
	}
	p.logger.Info().
		Int("items", stats.Items).
		Int("failed", stats.Failed).
		Int("returned", stats.Returned).
		Dur("elapsed", time.Since(start)).
		Msg("Stage complete")

	return results, stats
}

// resolveItem runs one item, converting a panic into an error
func resolveItem[I, R any](ctx context.Context, item I, job Job[I, R]) (r *R, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			r = nil
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return job.Resolve(ctx, item)
}
