package common

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/turtacn/COF-H2-Predictor/pkg/errors"
)

func TestProcess_AllSuccess(t *testing.T) {
	bp := NewBatchProcessor[string, string]()
	fn := func(ctx context.Context, item string) (string, error) {
		return item + "_processed", nil
	}

	res, err := bp.Process(context.Background(), []string{"a", "b", "c"}, fn)
	require.NoError(t, err)
	assert.Equal(t, 3, res.TotalCount)
	assert.Equal(t, 3, res.SuccessCount)
	assert.Equal(t, 0, res.FailureCount)
	for i, want := range []string{"a_processed", "b_processed", "c_processed"} {
		assert.Equal(t, i, res.Results[i].Index)
		assert.Equal(t, want, res.Results[i].Result)
		assert.Equal(t, ItemStatusSuccess, res.Results[i].Status)
		assert.Equal(t, 1, res.Results[i].Attempts)
	}
}

func TestProcess_MixedResultsKeepOrder(t *testing.T) {
	bp := NewBatchProcessor[int, int](WithMaxConcurrency(4))
	fn := func(ctx context.Context, item int) (int, error) {
		time.Sleep(time.Duration(10-item) * time.Millisecond)
		if item%2 == 1 {
			return 0, errors.New("odd")
		}
		return item * 10, nil
	}

	res, err := bp.Process(context.Background(), []int{0, 1, 2, 3, 4}, fn)
	require.NoError(t, err)
	assert.Equal(t, 3, res.SuccessCount)
	assert.Equal(t, 2, res.FailureCount)
	assert.Equal(t, 40, res.Results[4].Result)
	assert.Equal(t, ItemStatusFailed, res.Results[1].Status)
	assert.EqualError(t, res.Results[3].Err, "odd")
}

func TestProcess_EmptyAndNilFunc(t *testing.T) {
	bp := NewBatchProcessor[int, int]()

	res, err := bp.Process(context.Background(), nil, func(ctx context.Context, item int) (int, error) { return item, nil })
	require.NoError(t, err)
	assert.Empty(t, res.Results)

	_, err = bp.Process(context.Background(), []int{1}, nil)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidParam))
}

func TestProcess_ConcurrencyLimit(t *testing.T) {
	var current, peak int32
	bp := NewBatchProcessor[int, int](WithMaxConcurrency(2))

	fn := func(ctx context.Context, item int) (int, error) {
		n := atomic.AddInt32(&current, 1)
		defer atomic.AddInt32(&current, -1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		return item, nil
	}

	res, err := bp.Process(context.Background(), []int{1, 2, 3, 4, 5, 6}, fn)
	require.NoError(t, err)
	assert.Equal(t, 6, res.SuccessCount)
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
}

func TestProcess_ItemTimeout(t *testing.T) {
	bp := NewBatchProcessor[int, int](WithItemTimeout(20 * time.Millisecond))
	fn := func(ctx context.Context, item int) (int, error) {
		if item == 1 {
			<-ctx.Done()
			return 0, ctx.Err()
		}
		return item, nil
	}

	res, err := bp.Process(context.Background(), []int{0, 1}, fn)
	require.NoError(t, err)
	assert.Equal(t, ItemStatusSuccess, res.Results[0].Status)
	assert.Equal(t, ItemStatusTimeout, res.Results[1].Status)
	assert.ErrorIs(t, res.Results[1].Err, context.DeadlineExceeded)
}

func TestProcess_CancelledContext(t *testing.T) {
	bp := NewBatchProcessor[int, int](WithMaxConcurrency(1))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := bp.Process(ctx, []int{1, 2, 3}, func(ctx context.Context, item int) (int, error) {
		return item, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, res.FailureCount)
	for _, r := range res.Results {
		assert.Equal(t, ItemStatusCancelled, r.Status)
	}
}

func TestProcess_Retry(t *testing.T) {
	transient := errors.New("transient")
	permanent := errors.New("permanent")
	bp := NewBatchProcessor[string, string](WithRetryPolicy(&RetryPolicy{
		MaxRetries:     2,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
		Retryable:      func(err error) bool { return errors.Is(err, transient) },
	}))

	var mu sync.Mutex
	calls := map[string]int{}
	fn := func(ctx context.Context, item string) (string, error) {
		mu.Lock()
		calls[item]++
		n := calls[item]
		mu.Unlock()
		switch item {
		case "flaky":
			if n < 3 {
				return "", transient
			}
			return "ok", nil
		case "broken":
			return "", permanent
		}
		return "", transient
	}

	res, err := bp.Process(context.Background(), []string{"flaky", "broken", "down"}, fn)
	require.NoError(t, err)

	assert.Equal(t, ItemStatusSuccess, res.Results[0].Status)
	assert.Equal(t, 3, res.Results[0].Attempts)
	assert.Equal(t, 1, res.Results[1].Attempts)
	assert.ErrorIs(t, res.Results[1].Err, permanent)
	assert.Equal(t, 3, res.Results[2].Attempts)
	assert.ErrorIs(t, res.Results[2].Err, transient)
}

func TestProcess_Backpressure(t *testing.T) {
	bp := NewBatchProcessor[int, int](WithBackpressureThreshold(3))
	release := make(chan struct{})
	started := make(chan struct{}, 3)

	done := make(chan error, 1)
	go func() {
		_, err := bp.Process(context.Background(), []int{1, 2}, func(ctx context.Context, item int) (int, error) {
			started <- struct{}{}
			<-release
			return item, nil
		})
		done <- err
	}()
	<-started

	_, err := bp.Process(context.Background(), []int{3, 4}, func(ctx context.Context, item int) (int, error) { return item, nil })
	assert.ErrorIs(t, err, ErrBackpressure)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeRateLimit))

	close(release)
	require.NoError(t, <-done)
	assert.Zero(t, bp.Pending())
}

func TestShutdown(t *testing.T) {
	bp := NewBatchProcessor[int, int]()
	release := make(chan struct{})
	started := make(chan struct{})

	go func() {
		_, _ = bp.Process(context.Background(), []int{1}, func(ctx context.Context, item int) (int, error) {
			close(started)
			<-release
			return item, nil
		})
	}()
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.Error(t, bp.Shutdown(ctx), "running batch must block shutdown")

	close(release)
	require.NoError(t, bp.Shutdown(context.Background()))

	_, err := bp.Process(context.Background(), []int{1}, func(ctx context.Context, item int) (int, error) { return item, nil })
	assert.ErrorIs(t, err, ErrShutdown)
}

func TestShutdown_RacingProcess(t *testing.T) {
	bp := NewBatchProcessor[int, int](WithMaxConcurrency(4))
	var accepted, finished atomic.Int32

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := bp.Process(context.Background(), []int{i}, func(ctx context.Context, item int) (int, error) {
				accepted.Add(1)
				time.Sleep(time.Millisecond)
				finished.Add(1)
				return item, nil
			})
			if err != nil {
				assert.ErrorIs(t, err, ErrShutdown)
			}
		}()
	}
	require.NoError(t, bp.Shutdown(context.Background()))
	// Every batch admitted before Shutdown has completed by now.
	assert.Equal(t, accepted.Load(), finished.Load())
	wg.Wait()

	_, err := bp.Process(context.Background(), nil, func(ctx context.Context, item int) (int, error) { return item, nil })
	assert.ErrorIs(t, err, ErrShutdown)
}

func TestRetryPolicyBackoff(t *testing.T) {
	p := &RetryPolicy{InitialBackoff: 100 * time.Millisecond, MaxBackoff: 300 * time.Millisecond}
	d0 := p.backoff(0)
	assert.GreaterOrEqual(t, d0, 75*time.Millisecond)
	assert.LessOrEqual(t, d0, 125*time.Millisecond)
	assert.LessOrEqual(t, p.backoff(5), 375*time.Millisecond)

	var nilPolicy *RetryPolicy
	assert.Zero(t, nilPolicy.backoff(1))
	assert.False(t, nilPolicy.shouldRetry(errors.New("x")))
}

func TestItemStatusString(t *testing.T) {
	assert.Equal(t, "TIMEOUT", ItemStatusTimeout.String())
	assert.Equal(t, "UNKNOWN(9)", ItemStatus(9).String())
	b, err := ItemStatusFailed.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "FAILED", string(b))
}
