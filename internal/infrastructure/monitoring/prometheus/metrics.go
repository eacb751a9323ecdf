package prometheus

import (
	"strconv"
	"time"
)

// AppMetrics holds all application metrics.
type AppMetrics struct {
	// HTTP Layer
	HTTPRequestsTotal   CounterVec
	HTTPRequestDuration HistogramVec
	HTTPResponseSize    HistogramVec
	HTTPActiveRequests  GaugeVec

	// Descriptor Layer
	DescriptorRequestsTotal CounterVec
	DescriptorDuration      HistogramVec
	ConformerAttempts       HistogramVec

	// Model Layer
	PredictionsTotal   CounterVec
	PredictionDuration HistogramVec
	PredictionValue    HistogramVec
	ModelLoadsTotal    CounterVec
	ModelLoadDuration  HistogramVec
	ModelInfo          GaugeVec

	// Infrastructure Layer
	CacheHitsTotal      CounterVec
	CacheMissesTotal    CounterVec
	RecorderErrorsTotal CounterVec

	// System Health
	HealthCheckStatus GaugeVec
	ErrorsTotal       CounterVec
}

// Default Buckets
var (
	DefaultHTTPDurationBuckets       = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
	DefaultDescriptorDurationBuckets = []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30}
	DefaultPredictionValueBuckets    = []float64{0, 100, 500, 1000, 2500, 5000, 10000, 25000, 50000}
	DefaultSizeBuckets               = []float64{100, 1000, 10000, 100000, 1000000}
	DefaultAttemptBuckets            = []float64{1, 2, 3, 5, 10}
)

// NewAppMetrics registers all metrics and returns AppMetrics struct.
func NewAppMetrics(collector MetricsCollector) *AppMetrics {
	m := &AppMetrics{}

	// HTTP
	m.HTTPRequestsTotal = collector.RegisterCounter("http_requests_total", "Total HTTP requests", "method", "path", "status_code")
	m.HTTPRequestDuration = collector.RegisterHistogram("http_request_duration_seconds", "HTTP request duration", DefaultHTTPDurationBuckets, "method", "path")
	m.HTTPResponseSize = collector.RegisterHistogram("http_response_size_bytes", "HTTP response size", DefaultSizeBuckets, "method", "path")
	m.HTTPActiveRequests = collector.RegisterGauge("http_active_requests", "Active HTTP requests", "method", "path")

	// Descriptors
	m.DescriptorRequestsTotal = collector.RegisterCounter("descriptor_requests_total", "Descriptor extractions", "result")
	m.DescriptorDuration = collector.RegisterHistogram("descriptor_duration_seconds", "Descriptor extraction duration", DefaultDescriptorDurationBuckets, "result")
	m.ConformerAttempts = collector.RegisterHistogram("conformer_attempts", "Embedding attempts per conformer", DefaultAttemptBuckets)

	// Model
	m.PredictionsTotal = collector.RegisterCounter("predictions_total", "Predictions served", "model", "status")
	m.PredictionDuration = collector.RegisterHistogram("prediction_duration_seconds", "Model inference duration", DefaultHTTPDurationBuckets, "model")
	m.PredictionValue = collector.RegisterHistogram("prediction_value", "Predicted H2 evolution rate", DefaultPredictionValueBuckets, "model")
	m.ModelLoadsTotal = collector.RegisterCounter("model_loads_total", "Model artifact loads", "status")
	m.ModelLoadDuration = collector.RegisterHistogram("model_load_duration_seconds", "Model artifact load duration", DefaultDescriptorDurationBuckets)
	m.ModelInfo = collector.RegisterGauge("model_info", "Loaded model (value is input width)", "model", "version")

	// Infrastructure
	m.CacheHitsTotal = collector.RegisterCounter("cache_hits_total", "Cache hits", "cache")
	m.CacheMissesTotal = collector.RegisterCounter("cache_misses_total", "Cache misses", "cache")
	m.RecorderErrorsTotal = collector.RegisterCounter("recorder_errors_total", "Failed prediction side effects", "recorder")

	// System Health
	m.HealthCheckStatus = collector.RegisterGauge("health_check_status", "Health check status (1=up, 0=down)", "component")
	m.ErrorsTotal = collector.RegisterCounter("errors_total", "Total errors", "component", "code")

	return m
}

// NewNoopAppMetrics returns metrics that discard every observation.
func NewNoopAppMetrics() *AppMetrics {
	return NewAppMetrics(NewNoopCollector())
}

// Helpers

func RecordHTTPRequest(metrics *AppMetrics, method, path string, statusCode int, duration time.Duration, respSize int64) {
	status := strconv.Itoa(statusCode)
	metrics.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	metrics.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	metrics.HTTPResponseSize.WithLabelValues(method, path).Observe(float64(respSize))
}

// RecordDescriptorExtraction records one extraction. result is "ok", "empty"
// (unparseable SMILES) or "error".
func RecordDescriptorExtraction(metrics *AppMetrics, result string, duration time.Duration, attempts int) {
	metrics.DescriptorRequestsTotal.WithLabelValues(result).Inc()
	metrics.DescriptorDuration.WithLabelValues(result).Observe(duration.Seconds())
	if attempts > 0 {
		metrics.ConformerAttempts.WithLabelValues().Observe(float64(attempts))
	}
}

func RecordPrediction(metrics *AppMetrics, model string, success bool, duration time.Duration, values ...float64) {
	status := "success"
	if !success {
		status = "failure"
	}
	metrics.PredictionsTotal.WithLabelValues(model, status).Inc()
	metrics.PredictionDuration.WithLabelValues(model).Observe(duration.Seconds())
	for _, v := range values {
		metrics.PredictionValue.WithLabelValues(model).Observe(v)
	}
}

func RecordModelLoad(metrics *AppMetrics, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	metrics.ModelLoadsTotal.WithLabelValues(status).Inc()
	metrics.ModelLoadDuration.WithLabelValues().Observe(duration.Seconds())
}

func RecordCacheAccess(metrics *AppMetrics, cache string, hit bool) {
	if hit {
		metrics.CacheHitsTotal.WithLabelValues(cache).Inc()
	} else {
		metrics.CacheMissesTotal.WithLabelValues(cache).Inc()
	}
}

func RecordError(metrics *AppMetrics, component, code string) {
	metrics.ErrorsTotal.WithLabelValues(component, code).Inc()
}

//Personal.AI order the ending
