package prometheus

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAppMetrics(t *testing.T) (*AppMetrics, MetricsCollector) {
	c := newTestCollector(t)
	m := NewAppMetrics(c)
	return m, c
}

func TestNewAppMetrics_AllMetricsRegistered(t *testing.T) {
	m, _ := newTestAppMetrics(t)
	require.NotNil(t, m)

	assert.NotNil(t, m.HTTPRequestsTotal)
	assert.NotNil(t, m.DescriptorDuration)
	assert.NotNil(t, m.PredictionValue)
	assert.NotNil(t, m.ModelLoadsTotal)
	assert.NotNil(t, m.CacheHitsTotal)
	assert.NotNil(t, m.RecorderErrorsTotal)
}

func TestRecordHTTPRequest(t *testing.T) {
	m, c := newTestAppMetrics(t)

	RecordHTTPRequest(m, "POST", "/api/v1/predictions", 200, 100*time.Millisecond, 2048)

	output := scrapeMetrics(t, c)
	assert.Contains(t, output, `test_unit_http_requests_total{method="POST",path="/api/v1/predictions",status_code="200"} 1`)
	assert.Contains(t, output, `test_unit_http_response_size_bytes_sum{method="POST",path="/api/v1/predictions"} 2048`)
	assert.Contains(t, output, `test_unit_http_request_duration_seconds_count{method="POST",path="/api/v1/predictions"} 1`)
}

func TestRecordDescriptorExtraction(t *testing.T) {
	m, c := newTestAppMetrics(t)

	RecordDescriptorExtraction(m, "ok", 300*time.Millisecond, 2)
	RecordDescriptorExtraction(m, "empty", time.Millisecond, 0)

	output := scrapeMetrics(t, c)
	assert.Contains(t, output, `test_unit_descriptor_requests_total{result="ok"} 1`)
	assert.Contains(t, output, `test_unit_descriptor_requests_total{result="empty"} 1`)
	assert.Contains(t, output, `test_unit_conformer_attempts_count 1`)
	assert.Contains(t, output, `test_unit_conformer_attempts_sum 2`)
}

func TestRecordPrediction(t *testing.T) {
	m, c := newTestAppMetrics(t)

	RecordPrediction(m, "cof-h2-ann", true, 5*time.Millisecond, 1234.5)
	RecordPrediction(m, "cof-h2-ann", false, time.Millisecond)

	output := scrapeMetrics(t, c)
	assert.Contains(t, output, `test_unit_predictions_total{model="cof-h2-ann",status="success"} 1`)
	assert.Contains(t, output, `test_unit_predictions_total{model="cof-h2-ann",status="failure"} 1`)
	assert.Contains(t, output, `test_unit_prediction_value_sum{model="cof-h2-ann"} 1234.5`)
	assert.Contains(t, output, `test_unit_prediction_value_count{model="cof-h2-ann"} 1`)
}

func TestRecordModelLoad(t *testing.T) {
	m, c := newTestAppMetrics(t)

	RecordModelLoad(m, 20*time.Millisecond, nil)
	RecordModelLoad(m, time.Millisecond, errors.New("missing manifest"))

	output := scrapeMetrics(t, c)
	assert.Contains(t, output, `test_unit_model_loads_total{status="success"} 1`)
	assert.Contains(t, output, `test_unit_model_loads_total{status="failure"} 1`)
	assert.Contains(t, output, `test_unit_model_load_duration_seconds_count 2`)
}

func TestRecordCacheAccess(t *testing.T) {
	m, c := newTestAppMetrics(t)

	RecordCacheAccess(m, "descriptors", true)
	RecordCacheAccess(m, "descriptors", false)

	output := scrapeMetrics(t, c)
	assert.Contains(t, output, `test_unit_cache_hits_total{cache="descriptors"} 1`)
	assert.Contains(t, output, `test_unit_cache_misses_total{cache="descriptors"} 1`)
}

func TestRecordError(t *testing.T) {
	m, c := newTestAppMetrics(t)

	RecordError(m, "prediction", "MODEL_002")

	output := scrapeMetrics(t, c)
	assert.Contains(t, output, `test_unit_errors_total{code="MODEL_002",component="prediction"} 1`)
}

func TestNoopAppMetrics(t *testing.T) {
	m := NewNoopAppMetrics()
	RecordHTTPRequest(m, "GET", "/", 200, time.Millisecond, 1)
	RecordPrediction(m, "x", true, time.Millisecond, 1)
	RecordModelLoad(m, time.Millisecond, nil)
}

func TestConcurrentMetricRecording(t *testing.T) {
	m, c := newTestAppMetrics(t)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				RecordHTTPRequest(m, "GET", "/predictor", 200, time.Millisecond, 10)
			}
		}()
	}
	wg.Wait()

	output := scrapeMetrics(t, c)
	assert.Contains(t, output, `test_unit_http_requests_total{method="GET",path="/predictor",status_code="200"} 1000`)
}
//Personal.AI order the ending
