package services

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/kbnote/internal/core/domain"
	"github.com/custodia-labs/kbnote/internal/core/ports/driven"
	"github.com/custodia-labs/kbnote/internal/core/ports/driving"
	"github.com/custodia-labs/kbnote/internal/logger"
)

// OutcomeFunc is called after each item has been replied to.
type OutcomeFunc func(outcome driven.ItemOutcome, result *driving.NoteResult)

// PoolStats are the totals of one Run.
type PoolStats struct {
	Processed int64
	Failed    int64
	Degraded  int64
}

// WorkerPool feeds items from a source through the note service with a
// bounded queue and a fixed number of workers. Items are independent:
// one failing item never stops the others.
type WorkerPool struct {
	notes     driving.NoteService
	source    driven.ItemSource
	cfg       domain.PipelineConfig
	onOutcome OutcomeFunc

	processed atomic.Int64
	failed    atomic.Int64
	degraded  atomic.Int64
}

// NewWorkerPool creates a pool. Zero worker or queue sizes fall back to
// the defaults.
func NewWorkerPool(notes driving.NoteService, source driven.ItemSource, cfg domain.PipelineConfig) *WorkerPool {
	defaults := domain.DefaultConfig().Pipeline
	if cfg.Workers <= 0 {
		cfg.Workers = defaults.Workers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaults.QueueSize
	}
	return &WorkerPool{
		notes:  notes,
		source: source,
		cfg:    cfg,
	}
}

// OnOutcome registers a callback for every replied item. It must be set
// before Run.
func (p *WorkerPool) OnOutcome(fn OutcomeFunc) {
	p.onOutcome = fn
}

// Stats returns the totals so far.
func (p *WorkerPool) Stats() PoolStats {
	return PoolStats{
		Processed: p.processed.Load(),
		Failed:    p.failed.Load(),
		Degraded:  p.degraded.Load(),
	}
}

// Run processes items until the source closes its item channel or ctx is
// done. Items already queued when ctx ends are dropped without a reply.
func (p *WorkerPool) Run(ctx context.Context) error {
	items, errs := p.source.Items(ctx)
	queue := make(chan domain.RawItem, p.cfg.QueueSize)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(queue)
		for items != nil || errs != nil {
			select {
			case <-gctx.Done():
				return nil
			case err, ok := <-errs:
				if !ok {
					errs = nil
					continue
				}
				logger.Warn("item source: %v", err)
			case item, ok := <-items:
				if !ok {
					items = nil
					continue
				}
				select {
				case queue <- item:
				case <-gctx.Done():
					return nil
				}
			}
		}
		return nil
	})

	for i := 0; i < p.cfg.Workers; i++ {
		g.Go(func() error {
			for item := range queue {
				if gctx.Err() != nil {
					continue
				}
				p.handle(gctx, item)
			}
			return nil
		})
	}

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// handle processes one item under its own deadline and replies.
func (p *WorkerPool) handle(ctx context.Context, item domain.RawItem) {
	itemCtx := ctx
	if p.cfg.ItemTimeout > 0 {
		var cancel context.CancelFunc
		itemCtx, cancel = context.WithTimeout(ctx, p.cfg.ItemTimeout)
		defer cancel()
	}

	start := time.Now()
	result, err := p.notes.Process(itemCtx, item)
	outcome := driven.ItemOutcome{Item: item}
	if err != nil {
		p.failed.Add(1)
		outcome.Reason = domain.FailureReason(err)
		logger.Error("process %q: %v", item.SourceRef, err)
	} else {
		p.processed.Add(1)
		if result.Classification != nil && result.Classification.Degraded {
			p.degraded.Add(1)
		}
		outcome.Rendered = result.Document.Rendered
		outcome.Location = result.Document.Location
		logger.Debug("processed %q in %s", item.SourceRef, time.Since(start).Round(time.Millisecond))
	}

	// The reply uses the pool context so a timed-out item still gets its reason.
	if err := p.source.Reply(ctx, outcome); err != nil {
		logger.Warn("reply for %q: %v", item.SourceRef, err)
	}
	if p.onOutcome != nil {
		p.onOutcome(outcome, result)
	}
}
