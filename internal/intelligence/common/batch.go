// Package common holds inference helpers shared by the model front ends: a
// bounded-concurrency batch processor with per-item timeouts, retries and
// back-pressure.
package common

import (
	"context"
	stderrors "errors"
	"fmt"
	"math"
	"math/rand/v2"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/turtacn/COF-H2-Predictor/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/COF-H2-Predictor/pkg/errors"
)

var (
	ErrShutdown     = errors.Unavailable("batch processor is shutting down")
	ErrBackpressure = errors.RateLimit("batch capacity exceeded, retry later")
)

// ItemStatus is the outcome of one batch item.
type ItemStatus int

const (
	ItemStatusSuccess ItemStatus = iota
	ItemStatusFailed
	ItemStatusTimeout
	ItemStatusCancelled
)

func (s ItemStatus) String() string {
	switch s {
	case ItemStatusSuccess:
		return "SUCCESS"
	case ItemStatusFailed:
		return "FAILED"
	case ItemStatusTimeout:
		return "TIMEOUT"
	case ItemStatusCancelled:
		return "CANCELLED"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int(s))
	}
}

// MarshalText renders the status name in JSON.
func (s ItemStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ProcessFunc processes a single item.
type ProcessFunc[T, R any] func(ctx context.Context, item T) (R, error)

// ItemResult is the outcome of one item. Index is its position in the input.
type ItemResult[R any] struct {
	Index    int
	Result   R
	Err      error
	Duration time.Duration
	Attempts int
	Status   ItemStatus
}

// BatchResult aggregates a run. Results are in input order.
type BatchResult[R any] struct {
	Results      []*ItemResult[R]
	TotalCount   int
	SuccessCount int
	FailureCount int
	Duration     time.Duration
}

// RetryPolicy governs how failed items are retried.
type RetryPolicy struct {
	MaxRetries        int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
	// Retryable selects the errors worth another attempt. Nil retries all.
	Retryable func(error) bool
}

func (p *RetryPolicy) shouldRetry(err error) bool {
	if p == nil || err == nil {
		return false
	}
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return p.Retryable == nil || p.Retryable(err)
}

// backoff is the delay before retry number attempt (0-based), with ±25%
// jitter and capped at MaxBackoff.
func (p *RetryPolicy) backoff(attempt int) time.Duration {
	if p == nil || p.InitialBackoff <= 0 {
		return 0
	}
	multiplier := p.BackoffMultiplier
	if multiplier <= 0 {
		multiplier = 2.0
	}
	base := float64(p.InitialBackoff) * math.Pow(multiplier, float64(attempt))
	if p.MaxBackoff > 0 && base > float64(p.MaxBackoff) {
		base = float64(p.MaxBackoff)
	}
	jitter := base * 0.25 * (rand.Float64()*2 - 1)
	return max(time.Duration(base+jitter), 0)
}

type batchConfig struct {
	maxConcurrency        int
	itemTimeout           time.Duration
	batchTimeout          time.Duration
	retryPolicy           *RetryPolicy
	backpressureThreshold int
	logger                logging.Logger
}

func defaultBatchConfig() *batchConfig {
	return &batchConfig{
		maxConcurrency: runtime.NumCPU(),
		itemTimeout:    30 * time.Second,
		batchTimeout:   5 * time.Minute,
		logger:         logging.NewNopLogger(),
	}
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*batchConfig)

// WithMaxConcurrency sets the maximum number of items processed concurrently.
func WithMaxConcurrency(n int) BatchOption {
	return func(c *batchConfig) {
		if n > 0 {
			c.maxConcurrency = n
		}
	}
}

// WithItemTimeout sets the per-item processing timeout.
func WithItemTimeout(d time.Duration) BatchOption {
	return func(c *batchConfig) {
		if d > 0 {
			c.itemTimeout = d
		}
	}
}

// WithBatchTimeout sets the overall batch processing timeout.
func WithBatchTimeout(d time.Duration) BatchOption {
	return func(c *batchConfig) {
		if d > 0 {
			c.batchTimeout = d
		}
	}
}

// WithRetryPolicy configures retries of failed items.
func WithRetryPolicy(policy *RetryPolicy) BatchOption {
	return func(c *batchConfig) {
		if policy != nil && policy.MaxRetries > 0 {
			c.retryPolicy = policy
		}
	}
}

// WithBackpressureThreshold caps the items queued or in flight across all
// concurrent batches. 0 disables the cap.
func WithBackpressureThreshold(n int) BatchOption {
	return func(c *batchConfig) {
		if n > 0 {
			c.backpressureThreshold = n
		}
	}
}

// WithBatchLogger injects a logger.
func WithBatchLogger(l logging.Logger) BatchOption {
	return func(c *batchConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// BatchProcessor runs a function over a slice of items. The concurrency
// limit is shared by all batches running on one processor.
type BatchProcessor[T, R any] struct {
	cfg *batchConfig
	sem *semaphore.Weighted

	// mu orders the shutdown flag against activeWg.Add so that Add never
	// races a Wait that has already seen a zero counter.
	mu           sync.Mutex
	isShutdown   bool
	activeWg     sync.WaitGroup
	pendingCount atomic.Int64
}

// NewBatchProcessor creates a BatchProcessor with the supplied options.
func NewBatchProcessor[T, R any](opts ...BatchOption) *BatchProcessor[T, R] {
	cfg := defaultBatchConfig()
	for _, o := range opts {
		o(cfg)
	}
	return &BatchProcessor[T, R]{
		cfg: cfg,
		sem: semaphore.NewWeighted(int64(cfg.maxConcurrency)),
	}
}

// Process runs fn for every item. Item failures are reported in the result;
// the returned error is only set when the batch as a whole is refused.
func (bp *BatchProcessor[T, R]) Process(ctx context.Context, items []T, fn ProcessFunc[T, R]) (*BatchResult[R], error) {
	if fn == nil {
		return nil, errors.InvalidParam("process function must not be nil")
	}
	n := len(items)
	if n == 0 {
		if bp.shuttingDown() {
			return nil, ErrShutdown
		}
		return &BatchResult[R]{Results: []*ItemResult[R]{}}, nil
	}
	bp.mu.Lock()
	if bp.isShutdown {
		bp.mu.Unlock()
		return nil, ErrShutdown
	}
	bp.activeWg.Add(1)
	bp.mu.Unlock()
	defer bp.activeWg.Done()

	if limit := int64(bp.cfg.backpressureThreshold); limit > 0 {
		if bp.pendingCount.Add(int64(n)) > limit {
			bp.pendingCount.Add(-int64(n))
			return nil, ErrBackpressure
		}
	} else {
		bp.pendingCount.Add(int64(n))
	}
	defer bp.pendingCount.Add(-int64(n))

	start := time.Now()
	batchCtx, cancel := context.WithTimeout(ctx, bp.cfg.batchTimeout)
	defer cancel()

	results := make([]*ItemResult[R], n)
	var wg sync.WaitGroup
	for i, item := range items {
		if err := bp.sem.Acquire(batchCtx, 1); err != nil {
			for j := i; j < n; j++ {
				results[j] = &ItemResult[R]{Index: j, Err: batchCtx.Err(), Status: classifyError(batchCtx, batchCtx.Err())}
			}
			break
		}
		wg.Add(1)
		go func(idx int, item T) {
			defer wg.Done()
			defer bp.sem.Release(1)
			results[idx] = bp.processOne(batchCtx, idx, item, fn)
		}(i, item)
	}
	wg.Wait()

	br := &BatchResult[R]{Results: results, TotalCount: n, Duration: time.Since(start)}
	for _, r := range results {
		if r.Status == ItemStatusSuccess {
			br.SuccessCount++
		} else {
			br.FailureCount++
		}
	}
	bp.cfg.logger.Debug("batch processed",
		logging.Int("total", br.TotalCount),
		logging.Int("succeeded", br.SuccessCount),
		logging.Int("failed", br.FailureCount),
		logging.Duration("duration", br.Duration))
	return br, nil
}

func (bp *BatchProcessor[T, R]) shuttingDown() bool {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	return bp.isShutdown
}

// Pending is the number of items queued or in flight.
func (bp *BatchProcessor[T, R]) Pending() int64 {
	return bp.pendingCount.Load()
}

// Shutdown refuses new batches and waits for running ones or ctx expiry.
func (bp *BatchProcessor[T, R]) Shutdown(ctx context.Context) error {
	bp.mu.Lock()
	bp.isShutdown = true
	bp.mu.Unlock()

	done := make(chan struct{})
	go func() {
		bp.activeWg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (bp *BatchProcessor[T, R]) processOne(batchCtx context.Context, idx int, item T, fn ProcessFunc[T, R]) *ItemResult[R] {
	start := time.Now()
	policy := bp.cfg.retryPolicy
	maxAttempts := 1
	if policy != nil {
		maxAttempts += policy.MaxRetries
	}

	var lastErr error
	attempt := 0
	for attempt < maxAttempts {
		if err := batchCtx.Err(); err != nil {
			return &ItemResult[R]{Index: idx, Err: err, Attempts: attempt,
				Status: classifyError(batchCtx, err), Duration: time.Since(start)}
		}
		if attempt > 0 {
			if delay := policy.backoff(attempt - 1); delay > 0 {
				t := time.NewTimer(delay)
				select {
				case <-batchCtx.Done():
					t.Stop()
					return &ItemResult[R]{Index: idx, Err: batchCtx.Err(), Attempts: attempt,
						Status: classifyError(batchCtx, batchCtx.Err()), Duration: time.Since(start)}
				case <-t.C:
				}
			}
		}
		attempt++

		itemCtx, itemCancel := context.WithTimeout(batchCtx, bp.cfg.itemTimeout)
		result, err := fn(itemCtx, item)
		itemCancel()
		if err == nil {
			return &ItemResult[R]{Index: idx, Result: result, Attempts: attempt,
				Status: ItemStatusSuccess, Duration: time.Since(start)}
		}
		lastErr = err
		if !policy.shouldRetry(err) {
			break
		}
	}

	return &ItemResult[R]{Index: idx, Err: lastErr, Attempts: attempt,
		Status: classifyError(batchCtx, lastErr), Duration: time.Since(start)}
}

func classifyError(batchCtx context.Context, err error) ItemStatus {
	switch {
	case err == nil:
		return ItemStatusSuccess
	case stderrors.Is(err, context.DeadlineExceeded):
		return ItemStatusTimeout
	case stderrors.Is(err, context.Canceled):
		return ItemStatusCancelled
	case batchCtx.Err() == context.DeadlineExceeded:
		return ItemStatusTimeout
	case batchCtx.Err() == context.Canceled:
		return ItemStatusCancelled
	}
	return ItemStatusFailed
}

//Personal.AI order the ending
