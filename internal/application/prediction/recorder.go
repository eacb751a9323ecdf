package prediction

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/turtacn/COF-H2-Predictor/internal/domain/history"
	"github.com/turtacn/COF-H2-Predictor/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/COF-H2-Predictor/internal/infrastructure/monitoring/prometheus"
)

// MultiRecorder sends each record to every recorder concurrently. One
// failing sink does not stop the others.
type MultiRecorder struct {
	recorders []history.Recorder
	logger    logging.Logger
	metrics   *prometheus.AppMetrics
}

var _ history.Recorder = (*MultiRecorder)(nil)

// NewMultiRecorder skips nil recorders.
func NewMultiRecorder(log logging.Logger, metrics *prometheus.AppMetrics, recorders ...history.Recorder) *MultiRecorder {
	if log == nil {
		log = logging.NewNopLogger()
	}
	if metrics == nil {
		metrics = prometheus.NewNoopAppMetrics()
	}
	m := &MultiRecorder{logger: log, metrics: metrics}
	for _, r := range recorders {
		if r != nil {
			m.recorders = append(m.recorders, r)
		}
	}
	return m
}

// Len is the number of sinks.
func (m *MultiRecorder) Len() int { return len(m.recorders) }

// Record implements history.Recorder. The returned error joins every sink
// failure.
func (m *MultiRecorder) Record(ctx context.Context, rec *history.Record) error {
	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs []error
	)
	for _, r := range m.recorders {
		g.Go(func() error {
			if err := r.Record(ctx, rec); err != nil {
				name := recorderName(r)
				m.metrics.RecorderErrorsTotal.WithLabelValues(name).Inc()
				m.logger.Warn("prediction recorder failed",
					logging.String("recorder", name),
					logging.String("id", rec.ID.String()),
					logging.Err(err))
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return stderrors.Join(errs...)
}

// recorderName is the short type name used as a metric label.
func recorderName(r history.Recorder) string {
	if n, ok := r.(interface{ Name() string }); ok {
		return n.Name()
	}
	name := fmt.Sprintf("%T", r)
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	return strings.TrimPrefix(name, "*")
}

//Personal.AI order the ending
