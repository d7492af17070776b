package work

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"golang.org/x/sync/errgroup"
)

// DefaultSize returns the number of logical CPUs.
func DefaultSize() int {
	n, err := cpu.Counts(true)
	if err != nil || n <= 0 {
		return runtime.NumCPU()
	}
	return n
}

// Pool executes work items concurrently, at most size at a time.
type Pool struct {
	size    int
	timeout time.Duration
	log     zerolog.Logger
}

// NewPool creates a pool. A size <= 0 uses DefaultSize, a timeout <= 0
// uses WorkTimeout.
func NewPool(size int, timeout time.Duration, log zerolog.Logger) *Pool {
	if size <= 0 {
		size = DefaultSize()
	}
	if timeout <= 0 {
		timeout = WorkTimeout
	}

	return &Pool{
		size:    size,
		timeout: timeout,
		log:     log.With().Str("component", "work_pool").Logger(),
	}
}

// Size returns the maximum number of concurrently running items.
func (p *Pool) Size() int {
	return p.size
}

// Run executes all items and blocks until every one of them has finished.
// Each item runs under its own timeout; failures and panics are recorded
// in the summary and never cancel the other items.
func (p *Pool) Run(ctx context.Context, items []*WorkItem) *Summary {
	start := time.Now()
	summary := &Summary{Results: make([]Result, len(items))}

	var g errgroup.Group
	g.SetLimit(p.size)

	for i, item := range items {
		g.Go(func() error {
			// Each goroutine owns exactly one slot of summary.Results.
			summary.Results[i] = p.execute(ctx, item)
			return nil
		})
	}
	_ = g.Wait()

	summary.Duration = time.Since(start)

	p.log.Info().
		Int("total", len(items)).
		Int("succeeded", summary.Succeeded()).
		Int("failed", len(items)-summary.Succeeded()).
		Dur("duration", summary.Duration).
		Msg("Work batch finished")

	return summary
}

func (p *Pool) execute(parent context.Context, item *WorkItem) (result Result) {
	result = Result{ID: item.ID, Subject: item.Subject}
	start := time.Now()

	ctx, cancel := context.WithTimeout(parent, p.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			result.Err = fmt.Errorf("panic: %v", r)
		}
		result.Duration = time.Since(start)

		if result.Err != nil {
			if result.TimedOut {
				p.log.Error().Str("work", item.ID).Dur("timeout", p.timeout).Msg("work timed out")
			} else {
				p.log.Error().Err(result.Err).Str("work", item.ID).Msg("work failed")
			}
			return
		}
		p.log.Debug().Str("work", item.ID).Dur("duration", result.Duration).Msg("work completed")
	}()

	result.Err = item.Execute(ctx)
	if result.Err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		result.TimedOut = true
	}

	return result
}
