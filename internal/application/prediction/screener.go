package prediction

import (
	"context"
	"slices"
	"time"

	"github.com/samber/lo"

	"github.com/turtacn/COF-H2-Predictor/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/COF-H2-Predictor/internal/intelligence/common"
	"github.com/turtacn/COF-H2-Predictor/pkg/errors"
)

// ScreenOptions bounds a screening run.
type ScreenOptions struct {
	// MaxItems is the largest accepted batch.
	MaxItems       int
	MaxConcurrency int
	ItemTimeout    time.Duration
	BatchTimeout   time.Duration
	// MaxPending caps the candidates queued across concurrent runs. 0 is
	// unlimited.
	MaxPending int
}

// DefaultScreenOptions returns the limits used when none are configured.
func DefaultScreenOptions() ScreenOptions {
	return ScreenOptions{
		MaxItems:       100,
		MaxConcurrency: 4,
		ItemTimeout:    2 * time.Minute,
		BatchTimeout:   10 * time.Minute,
		MaxPending:     400,
	}
}

// ScreenItem is the outcome of one candidate.
type ScreenItem struct {
	Index    int               `json:"index"`
	SMILES   string            `json:"smiles"`
	Result   *PredictResult    `json:"result,omitempty"`
	Err      error             `json:"-"`
	Status   common.ItemStatus `json:"status"`
	Attempts int               `json:"attempts"`
	Duration time.Duration     `json:"duration_ns"`
}

// ScreenReport aggregates a run. Items keep the input order; Best is the
// index of the highest predicted rate or -1 when nothing succeeded.
type ScreenReport struct {
	Items     []ScreenItem  `json:"items"`
	Total     int           `json:"total"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Best      int           `json:"best"`
	Elapsed   time.Duration `json:"elapsed_ns"`
}

// Ranked returns the successful items ordered by predicted rate, highest
// first. Ties keep input order.
func (r *ScreenReport) Ranked() []ScreenItem {
	ok := lo.Filter(r.Items, func(it ScreenItem, _ int) bool { return it.Result != nil })
	slices.SortStableFunc(ok, func(a, b ScreenItem) int {
		switch av, bv := a.Result.Value(), b.Result.Value(); {
		case av > bv:
			return -1
		case av < bv:
			return 1
		}
		return 0
	})
	return ok
}

// Screener predicts many candidates concurrently on one Service.
type Screener struct {
	svc    Service
	opts   ScreenOptions
	proc   *common.BatchProcessor[PredictInput, *PredictResult]
	logger logging.Logger
}

// NewScreener creates a Screener. Zero options fall back to the defaults.
func NewScreener(svc Service, opts ScreenOptions, logger logging.Logger) (*Screener, error) {
	if svc == nil {
		return nil, errors.Internal("screener requires a prediction service")
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	def := DefaultScreenOptions()
	if opts.MaxItems <= 0 {
		opts.MaxItems = def.MaxItems
	}
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = def.MaxConcurrency
	}
	if opts.ItemTimeout <= 0 {
		opts.ItemTimeout = def.ItemTimeout
	}
	if opts.BatchTimeout <= 0 {
		opts.BatchTimeout = def.BatchTimeout
	}
	logger = logger.Named("screener")

	proc := common.NewBatchProcessor[PredictInput, *PredictResult](
		common.WithMaxConcurrency(opts.MaxConcurrency),
		common.WithItemTimeout(opts.ItemTimeout),
		common.WithBatchTimeout(opts.BatchTimeout),
		common.WithBackpressureThreshold(opts.MaxPending),
		common.WithRetryPolicy(&common.RetryPolicy{
			MaxRetries:     1,
			InitialBackoff: 200 * time.Millisecond,
			MaxBackoff:     time.Second,
			Retryable:      retryableScreenError,
		}),
		common.WithBatchLogger(logger),
	)
	return &Screener{svc: svc, opts: opts, proc: proc, logger: logger}, nil
}

// MaxItems is the largest batch Screen accepts.
func (s *Screener) MaxItems() int { return s.opts.MaxItems }

// Screen predicts every input. Per-candidate failures such as an invalid
// SMILES are reported in the items; the error is set only when the batch is
// refused.
func (s *Screener) Screen(ctx context.Context, inputs []PredictInput) (*ScreenReport, error) {
	if len(inputs) == 0 {
		return nil, errors.InvalidParam("at least one candidate is required")
	}
	if len(inputs) > s.opts.MaxItems {
		return nil, errors.Newf(errors.CodeInvalidParam, "too many candidates: %d (max %d)", len(inputs), s.opts.MaxItems)
	}

	start := time.Now()
	br, err := s.proc.Process(ctx, inputs, func(ctx context.Context, in PredictInput) (*PredictResult, error) {
		return s.svc.Predict(ctx, &in)
	})
	if err != nil {
		return nil, err
	}

	report := &ScreenReport{
		Items:     make([]ScreenItem, len(br.Results)),
		Total:     br.TotalCount,
		Succeeded: br.SuccessCount,
		Failed:    br.FailureCount,
		Best:      -1,
		Elapsed:   time.Since(start),
	}
	for i, r := range br.Results {
		item := ScreenItem{
			Index:    i,
			SMILES:   inputs[i].SMILES,
			Err:      r.Err,
			Status:   r.Status,
			Attempts: r.Attempts,
			Duration: r.Duration,
		}
		if r.Status == common.ItemStatusSuccess {
			item.Result = r.Result
			if report.Best < 0 || r.Result.Value() > report.Items[report.Best].Result.Value() {
				report.Best = i
			}
		}
		report.Items[i] = item
	}

	s.logger.Info("screening completed",
		logging.Int("total", report.Total),
		logging.Int("succeeded", report.Succeeded),
		logging.Int("failed", report.Failed),
		logging.Duration("elapsed", report.Elapsed))
	return report, nil
}

// Close refuses new runs and waits for running ones.
func (s *Screener) Close(ctx context.Context) error {
	return s.proc.Shutdown(ctx)
}

// retryableScreenError selects failures that may pass on a second attempt.
// Input errors never do.
func retryableScreenError(err error) bool {
	return errors.IsCode(err, errors.CodeUnavailable) ||
		errors.IsCode(err, errors.ErrCodeModelArtifactLoadFailed)
}

//Personal.AI order the ending
