package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/COF-H2-Predictor/pkg/errors"
	"github.com/turtacn/COF-H2-Predictor/pkg/types/prediction"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	opts = append([]Option{WithRetryWait(time.Millisecond, 2*time.Millisecond)}, opts...)
	c, err := NewClient(server.URL+"/", opts...)
	require.NoError(t, err)
	return c
}

type testLogger struct {
	mu   sync.Mutex
	msgs []string
}

func (l *testLogger) Debugf(format string, args ...interface{}) { l.log(format, args...) }
func (l *testLogger) Infof(format string, args ...interface{})  { l.log(format, args...) }
func (l *testLogger) Errorf(format string, args ...interface{}) { l.log(format, args...) }

func (l *testLogger) log(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.msgs = append(l.msgs, fmt.Sprintf(format, args...))
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestNewClient(t *testing.T) {
	c, err := NewClient("http://predictor.local:8080/")
	require.NoError(t, err)
	assert.Equal(t, "http://predictor.local:8080", c.baseURL)
	assert.Equal(t, 3, c.retryMax)
	assert.Contains(t, c.userAgent, "cofh2-go-client/")
}

func TestNewClient_InvalidBaseURL(t *testing.T) {
	for _, u := range []string{"", "ftp://predictor.local", "predictor.local", "http://[::1"} {
		_, err := NewClient(u)
		require.Error(t, err, u)
		assert.Equal(t, errors.CodeInvalidParam, errors.GetCode(err), u)
	}
}

func TestClient_Schema(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v1/schema", r.URL.Path)
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		writeJSON(w, http.StatusOK, prediction.SchemaResponse{
			DescriptorColumns: []string{"6", "1024"},
			InputWidth:        25,
			Unit:              "μmol*h-1",
		})
	})

	s, err := c.Schema(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 25, s.InputWidth)
	assert.Equal(t, []string{"6", "1024"}, s.DescriptorColumns)
}

func TestClient_Descriptors(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/descriptors", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req prediction.DescriptorsRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		writeJSON(w, http.StatusOK, prediction.DescriptorsResponse{
			SMILES: req.SMILES,
			Valid:  true,
			Descriptors: prediction.Table{
				Columns: []string{"6"},
				Rows:    [][]float64{{1}},
			},
		})
	})

	res, err := c.Descriptors(context.Background(), "c1ccccc1")
	require.NoError(t, err)
	assert.True(t, res.Valid)
	assert.Equal(t, "c1ccccc1", res.SMILES)
	assert.False(t, res.Descriptors.IsEmpty())
}

func TestClient_Predict(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/predictions", r.URL.Path)
		var req prediction.PredictionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.NotNil(t, req.Parameters)
		writeJSON(w, http.StatusCreated, prediction.PredictionResponse{
			ID:          "0b6f7e0c-3c1c-4d7b-9a51-5f3e0f8b2a11",
			SMILES:      req.SMILES,
			Parameters:  *req.Parameters,
			Predictions: []float64{4321},
			Value:       4321,
			Unit:        "μmol*h-1",
		})
	})

	res, err := c.Predict(context.Background(), &prediction.PredictionRequest{
		SMILES:     "c1ccccc1",
		Parameters: &prediction.Parameters{CoCatalyst: "Pt", SED: "TEOA", CatalystMg: 3, CoCatalystWt: 3},
	})
	require.NoError(t, err)
	assert.Equal(t, 4321.0, res.Value)
	assert.Equal(t, "Pt", res.Parameters.CoCatalyst)

	_, err = c.Predict(context.Background(), nil)
	assert.Error(t, err)
}

func TestClient_HistoryAndGet(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/predictions":
			assert.Equal(t, "5", r.URL.Query().Get("limit"))
			writeJSON(w, http.StatusOK, prediction.HistoryResponse{
				Items: []prediction.HistoryRecord{{ID: "a"}, {ID: "b"}},
				Count: 2,
			})
		case "/api/v1/predictions/a":
			writeJSON(w, http.StatusOK, prediction.HistoryRecord{ID: "a", Seed: 42})
		default:
			writeJSON(w, http.StatusNotFound, prediction.ErrorResponse{Code: "COMMON_005", Message: "not found"})
		}
	})

	h, err := c.History(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, 2, h.Count)

	rec, err := c.GetPrediction(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, int64(42), rec.Seed)

	_, err = c.GetPrediction(context.Background(), "zzz")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.IsNotFound())

	_, err = c.GetPrediction(context.Background(), "")
	assert.Error(t, err)
}

func TestClient_APIErrorIsNotRetriedOn4xx(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		writeJSON(w, http.StatusUnprocessableEntity, prediction.ErrorResponse{
			Code:      "MOL_004",
			Message:   "Please complete the descriptors calculation before predicting.",
			RequestID: "req-1",
		})
	})

	_, err := c.Predict(context.Background(), &prediction.PredictionRequest{SMILES: "C"})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "MOL_004", apiErr.Code)
	assert.Equal(t, "req-1", apiErr.RequestID)
	assert.Contains(t, apiErr.Error(), "HTTP 422")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls int32
	logger := &testLogger{}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			writeJSON(w, http.StatusServiceUnavailable, prediction.ErrorResponse{Code: "MODEL_001", Message: "model unavailable"})
			return
		}
		writeJSON(w, http.StatusOK, prediction.SchemaResponse{InputWidth: 25})
	}, WithLogger(logger))

	s, err := c.Schema(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 25, s.InputWidth)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.NotEmpty(t, logger.msgs)
}

func TestClient_GivesUpAfterRetryMax(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		writeJSON(w, http.StatusServiceUnavailable, prediction.ErrorResponse{Code: "MODEL_001", Message: "model unavailable"})
	}, WithRetryMax(2))

	_, err := c.Schema(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.IsModelUnavailable())
	assert.True(t, apiErr.IsServerError())
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestClient_NotImplementedIsNotRetried(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		writeJSON(w, http.StatusNotImplemented, prediction.ErrorResponse{Code: "COMMON_016", Message: "prediction history is disabled"})
	})

	_, err := c.History(context.Background(), 0)
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestClient_RateLimitedHonoursRetryAfter(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.Header().Set("Retry-After", "0")
			writeJSON(w, http.StatusTooManyRequests, prediction.ErrorResponse{Code: "COMMON_007", Message: "rate limit exceeded"})
			return
		}
		writeJSON(w, http.StatusOK, prediction.DescriptorsResponse{Valid: true})
	})

	res, err := c.Descriptors(context.Background(), "C")
	require.NoError(t, err)
	assert.True(t, res.Valid)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestClient_RateLimitedWithoutRetryAfter(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusTooManyRequests, prediction.ErrorResponse{Code: "COMMON_007", Message: "rate limit exceeded"})
	})

	_, err := c.Descriptors(context.Background(), "C")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.IsRateLimited())
}

func TestClient_NonJSONErrorBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}, WithRetryMax(0))

	err := c.Ready(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "bad gateway", apiErr.Message)
	assert.Empty(t, apiErr.Code)
}

func TestClient_ContextCancelled(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusServiceUnavailable, prediction.ErrorResponse{Code: "MODEL_001"})
	}, WithRetryWait(time.Second, time.Second))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := c.Schema(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClient_CalculateBackoff(t *testing.T) {
	c := &Client{retryWaitMin: 100 * time.Millisecond, retryWaitMax: 300 * time.Millisecond}
	for attempt, base := range map[int]time.Duration{1: 100 * time.Millisecond, 2: 200 * time.Millisecond, 5: 300 * time.Millisecond} {
		d := c.calculateBackoff(attempt)
		assert.GreaterOrEqual(t, d, base)
		assert.LessOrEqual(t, d, base+base/4)
	}
}

func TestClient_PredictBatch(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/predictions/batch", r.URL.Path)
		var req prediction.BatchPredictionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []string{"CCO", "xx"}, req.SMILES)
		assert.Equal(t, "Pt", req.Parameters.CoCatalyst)
		writeJSON(w, http.StatusOK, prediction.BatchPredictionResponse{
			Items: []prediction.BatchItem{
				{Index: 0, SMILES: "CCO", Status: "SUCCESS", Prediction: &prediction.PredictionResponse{Value: 12}},
				{Index: 1, SMILES: "xx", Status: "FAILED", Error: &prediction.ErrorResponse{Code: "MOL_004"}},
			},
			Ranking: []int{0}, Best: 0, Total: 2, Succeeded: 1, Failed: 1,
		})
	})

	resp, err := c.PredictBatch(context.Background(), &prediction.BatchPredictionRequest{
		SMILES:     []string{"CCO", "xx"},
		Parameters: &prediction.Parameters{CoCatalyst: "Pt", SED: "TEOA", CatalystMg: 5},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Succeeded)
	assert.Equal(t, []int{0}, resp.Ranking)
	assert.Equal(t, "MOL_004", resp.Items[1].Error.Code)
	assert.InDelta(t, 12.0, resp.Items[0].Prediction.Value, 1e-12)
}

func TestClient_PredictBatch_Validation(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) { calls.Add(1) })

	_, err := c.PredictBatch(context.Background(), nil)
	assert.True(t, errors.IsCode(err, errors.CodeInvalidParam))
	_, err = c.PredictBatch(context.Background(), &prediction.BatchPredictionRequest{})
	assert.True(t, errors.IsCode(err, errors.CodeInvalidParam))
	assert.Zero(t, calls.Load())
}

func TestClient_PredictBatch_TooMany(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, prediction.ErrorResponse{Code: "COMMON_002", Message: "too many candidates: 3 (max 2)"})
	})
	_, err := c.PredictBatch(context.Background(), &prediction.BatchPredictionRequest{SMILES: []string{"a", "b", "c"}})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Contains(t, apiErr.Message, "too many")
}
