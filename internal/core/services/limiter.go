package services

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/kbnote/internal/core/domain"
	"github.com/custodia-labs/kbnote/internal/logger"
)

// Attempt describes one invocation of a WorkFunc.
type Attempt struct {
	// Number counts invocations for the request, starting at 1.
	Number int

	// Strict is set on the single retry after a malformed response.
	Strict bool
}

// WorkFunc performs one outbound inference call.
type WorkFunc func(ctx context.Context, attempt Attempt) (*domain.InferenceResult, error)

// Request is one call through the Limiter.
type Request struct {
	// Key identifies the content; equal keys share cached results.
	Key string

	// AcquireTimeout overrides the configured capacity wait when positive.
	AcquireTimeout time.Duration

	// Work performs the call.
	Work WorkFunc
}

// Outcome is the result of Execute.
type Outcome struct {
	Result   *domain.InferenceResult
	CacheHit bool

	// Attempts is the number of Work invocations made for the result.
	Attempts int
}

// LimiterStats are cumulative counters.
type LimiterStats struct {
	CacheHits   int64
	CacheMisses int64
	Calls       int64
	Rejections  int64
	Cached      int
}

// Limiter composes a result cache with rate and concurrency bounds on
// outbound inference calls, and retries transient failures.
//
// Policies, in order:
//
//   - a live cache entry for the key is returned without calling Work
//   - concurrent requests for one key share a single call
//   - each attempt waits for a rate token and an in-flight slot, up to
//     the acquire timeout, then fails with domain.ErrBackpressure
//   - domain.ErrTransient is retried with exponential backoff up to
//     MaxAttempts; domain.ErrMalformedResponse is retried once in strict mode
//   - only successful results are cached
//
// A Limiter is owned by the pipeline that created it; there is no
// process-wide instance.
type Limiter struct {
	cfg      domain.LimiterConfig
	rate     *rate.Limiter
	inflight *semaphore.Weighted
	cache    *resultCache
	flights  singleflight.Group
	sleep    func(ctx context.Context, d time.Duration) error

	hits       atomic.Int64
	misses     atomic.Int64
	calls      atomic.Int64
	rejections atomic.Int64
}

// LimiterOption configures a Limiter.
type LimiterOption func(*limiterOptions)

type limiterOptions struct {
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// WithClock sets the clock used for cache expiry.
func WithClock(now func() time.Time) LimiterOption {
	return func(o *limiterOptions) {
		o.now = now
	}
}

// WithSleep sets the function used to wait between retries.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) LimiterOption {
	return func(o *limiterOptions) {
		o.sleep = sleep
	}
}

// NewLimiter creates a Limiter from validated configuration.
func NewLimiter(cfg domain.LimiterConfig, opts ...LimiterOption) *Limiter {
	o := limiterOptions{
		now:   time.Now,
		sleep: sleepContext,
	}
	for _, opt := range opts {
		opt(&o)
	}

	// N calls per window: one token every Window/N and no burst, so no
	// span of one window ever holds more than N call starts.
	every := cfg.Window / time.Duration(cfg.RequestsPerMinute)

	return &Limiter{
		cfg:      cfg,
		rate:     rate.NewLimiter(rate.Every(every), 1),
		inflight: semaphore.NewWeighted(int64(cfg.MaxConcurrent)),
		cache:    newResultCache(cfg.CacheTTL, o.now),
		sleep:    o.sleep,
	}
}

// Execute runs req through the cache, the bounds and the retry policy.
func (l *Limiter) Execute(ctx context.Context, req Request) (Outcome, error) {
	if req.Work == nil {
		return Outcome{}, fmt.Errorf("%w: request has no work function", domain.ErrInvalidInput)
	}

	if result, ok := l.cache.get(req.Key); ok {
		l.hits.Add(1)
		logger.Debug("limiter: cache hit for %s", shortKey(req.Key))
		return Outcome{Result: result, CacheHit: true}, nil
	}
	l.misses.Add(1)

	ch := l.flights.DoChan(req.Key, func() (any, error) {
		if result, ok := l.cache.get(req.Key); ok {
			return Outcome{Result: result, CacheHit: true}, nil
		}
		return l.run(ctx, req)
	})

	select {
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	case res := <-ch:
		out, _ := res.Val.(Outcome)
		if res.Err != nil {
			// The call we joined was cut short by its owner's context,
			// not ours. Run our own.
			if res.Shared && isContextError(res.Err) && ctx.Err() == nil {
				return l.run(ctx, req)
			}
			return out, res.Err
		}
		out.Result = cloneResult(out.Result)
		return out, nil
	}
}

// run performs the attempts for one request.
func (l *Limiter) run(ctx context.Context, req Request) (Outcome, error) {
	timeout := l.cfg.AcquireTimeout
	if req.AcquireTimeout > 0 {
		timeout = req.AcquireTimeout
	}

	var (
		attempt    Attempt
		transients int
		strictUsed bool
	)
	for {
		attempt.Number++

		if err := l.acquire(ctx, timeout); err != nil {
			return Outcome{Attempts: attempt.Number - 1}, err
		}
		l.calls.Add(1)
		result, err := req.Work(ctx, attempt)
		l.inflight.Release(1)

		if err == nil {
			l.cache.put(req.Key, result)
			return Outcome{Result: result, Attempts: attempt.Number}, nil
		}

		out := Outcome{Attempts: attempt.Number}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return out, ctxErr
		}

		switch {
		case errors.Is(err, domain.ErrMalformedResponse) && !strictUsed:
			strictUsed = true
			attempt.Strict = true
			logger.Debug("limiter: malformed response, retrying in strict mode")

		case domain.IsRetryable(err) && transients+1 < l.cfg.MaxAttempts:
			transients++
			delay := l.backoff(transients, err)
			logger.Debug("limiter: transient failure (%v), retry %d in %s", err, transients, delay)
			if err := l.sleep(ctx, delay); err != nil {
				return out, err
			}

		default:
			return out, err
		}
	}
}

// acquire waits for a rate token and an in-flight slot.
func (l *Limiter) acquire(ctx context.Context, timeout time.Duration) error {
	acquireCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := l.rate.Wait(acquireCtx); err != nil {
		return l.acquireError(ctx, err)
	}
	if err := l.inflight.Acquire(acquireCtx, 1); err != nil {
		return l.acquireError(ctx, err)
	}
	return nil
}

// acquireError distinguishes the caller's own context ending from the
// acquire timeout passing.
func (l *Limiter) acquireError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	l.rejections.Add(1)
	return fmt.Errorf("%w: %w", domain.ErrBackpressure, err)
}

// backoff returns the delay before transient retry n (1-based): BackoffBase
// doubled per retry, at least any server-supplied Retry-After, and at most
// BackoffMax.
func (l *Limiter) backoff(n int, err error) time.Duration {
	delay := l.cfg.BackoffBase << (n - 1)
	var ra interface{ RetryAfter() time.Duration }
	if errors.As(err, &ra) && ra.RetryAfter() > delay {
		delay = ra.RetryAfter()
	}
	if l.cfg.BackoffMax > 0 && delay > l.cfg.BackoffMax {
		delay = l.cfg.BackoffMax
	}
	return delay
}

// Stats returns the current counters.
func (l *Limiter) Stats() LimiterStats {
	return LimiterStats{
		CacheHits:   l.hits.Load(),
		CacheMisses: l.misses.Load(),
		Calls:       l.calls.Load(),
		Rejections:  l.rejections.Load(),
		Cached:      l.cache.len(),
	}
}

// Purge evicts expired cache entries.
func (l *Limiter) Purge() int {
	return l.cache.purge()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func cloneResult(r *domain.InferenceResult) *domain.InferenceResult {
	if r == nil {
		return nil
	}
	c := copyInference(*r)
	return &c
}

func shortKey(key string) string {
	if len(key) > 12 {
		return key[:12]
	}
	return key
}
