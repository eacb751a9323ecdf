// Package client is a Go client for the COF-H2 predictor JSON API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/COF-H2-Predictor/pkg/errors"
	"github.com/turtacn/COF-H2-Predictor/pkg/types/prediction"
)

const Version = "0.1.0"

const apiPrefix = "/api/v1"

// Logger defines the logging interface used by the Client
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

type noopLogger struct{}

func (noopLogger) Debugf(format string, args ...interface{}) {}
func (noopLogger) Infof(format string, args ...interface{})  {}
func (noopLogger) Errorf(format string, args ...interface{}) {}

// Client calls the predictor API.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	userAgent    string
	logger       Logger
	retryMax     int
	retryWaitMin time.Duration
	retryWaitMax time.Duration
}

// APIError is a non-2xx API response.
type APIError struct {
	StatusCode int    `json:"status_code"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	Detail     string `json:"detail,omitempty"`
	RequestID  string `json:"request_id"`
}

func (e *APIError) Error() string {
	msg := e.Message
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return fmt.Sprintf("cofh2: %s (HTTP %d): %s [request_id=%s]", e.Code, e.StatusCode, msg, e.RequestID)
}

func (e *APIError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

func (e *APIError) IsRateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

// IsModelUnavailable reports a server whose model artifact is not loaded.
func (e *APIError) IsModelUnavailable() bool {
	return e.Code == string(errors.ErrCodeModelArtifactLoadFailed)
}

func (e *APIError) IsServerError() bool {
	return e.StatusCode >= 500 && e.StatusCode < 600
}

// NewClient creates a client for the server at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.InvalidParam("client: baseURL is required")
	}
	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalidParam, "client: invalid baseURL")
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return nil, errors.InvalidParam("client: baseURL scheme must be http or https")
	}

	c := &Client{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		httpClient:   &http.Client{Timeout: 2 * time.Minute},
		userAgent:    fmt.Sprintf("cofh2-go-client/%s", Version),
		logger:       noopLogger{},
		retryMax:     3,
		retryWaitMin: 500 * time.Millisecond,
		retryWaitMax: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Schema fetches the input schema and the loaded model.
func (c *Client) Schema(ctx context.Context) (*prediction.SchemaResponse, error) {
	var out prediction.SchemaResponse
	if err := c.do(ctx, http.MethodGet, apiPrefix+"/schema", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Descriptors computes the descriptor row of smiles. An unparseable SMILES is
// not an error: the response has Valid false.
func (c *Client) Descriptors(ctx context.Context, smiles string) (*prediction.DescriptorsResponse, error) {
	var out prediction.DescriptorsResponse
	if err := c.do(ctx, http.MethodPost, apiPrefix+"/descriptors", prediction.DescriptorsRequest{SMILES: smiles}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Predict runs one prediction.
func (c *Client) Predict(ctx context.Context, req *prediction.PredictionRequest) (*prediction.PredictionResponse, error) {
	if req == nil {
		return nil, errors.InvalidParam("client: prediction request is nil")
	}
	var out prediction.PredictionResponse
	if err := c.do(ctx, http.MethodPost, apiPrefix+"/predictions", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PredictBatch screens several SMILES under one set of conditions. Failed
// candidates are reported per item and do not fail the call.
func (c *Client) PredictBatch(ctx context.Context, req *prediction.BatchPredictionRequest) (*prediction.BatchPredictionResponse, error) {
	if req == nil || len(req.SMILES) == 0 {
		return nil, errors.InvalidParam("client: batch request needs at least one SMILES")
	}
	var out prediction.BatchPredictionResponse
	if err := c.do(ctx, http.MethodPost, apiPrefix+"/predictions/batch", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// History lists the most recent predictions, newest first. A limit of 0
// uses the server default.
func (c *Client) History(ctx context.Context, limit int) (*prediction.HistoryResponse, error) {
	path := apiPrefix + "/predictions"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var out prediction.HistoryResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetPrediction fetches one stored prediction.
func (c *Client) GetPrediction(ctx context.Context, id string) (*prediction.HistoryRecord, error) {
	if id == "" {
		return nil, errors.InvalidParam("client: prediction id is required")
	}
	var out prediction.HistoryRecord
	if err := c.do(ctx, http.MethodGet, apiPrefix+"/predictions/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Ready reports whether the server has a model loaded.
func (c *Client) Ready(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/readyz", nil, nil)
}

// do performs an HTTP request with retry logic.
func (c *Client) do(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		payload = b
	}

	var lastErr error
	for attempt := 0; attempt <= c.retryMax; attempt++ {
		if attempt > 0 {
			backoff := c.calculateBackoff(attempt)
			c.logger.Debugf("Retry attempt %d after %v", attempt, backoff)
			if err := sleep(ctx, backoff); err != nil {
				return err
			}
		}

		var bodyReader io.Reader
		if payload != nil {
			bodyReader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}

		requestID := uuid.New().String()
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", c.userAgent)
		req.Header.Set("X-Request-ID", requestID)

		start := time.Now()
		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Errorf("Request failed: %v", err)
			lastErr = err
			continue
		}
		c.logger.Debugf("%s %s %d (%v)", method, path, resp.StatusCode, time.Since(start))

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("failed to read response body: %w", err)
		}

		if resp.StatusCode >= 400 {
			apiErr := decodeAPIError(resp.StatusCode, respBody, requestID)
			lastErr = apiErr
			if attempt == c.retryMax {
				break
			}
			if resp.StatusCode == http.StatusTooManyRequests {
				if wait, ok := retryAfter(resp.Header.Get("Retry-After")); ok {
					c.logger.Infof("Rate limited, retrying after %v", wait)
					if err := sleep(ctx, wait); err != nil {
						return err
					}
					continue
				}
				return apiErr
			}
			if resp.StatusCode >= 500 && resp.StatusCode != http.StatusNotImplemented {
				continue
			}
			return apiErr
		}

		if result != nil && len(respBody) > 0 {
			if err := json.Unmarshal(respBody, result); err != nil {
				return fmt.Errorf("failed to unmarshal response: %w", err)
			}
		}
		return nil
	}
	return lastErr
}

func decodeAPIError(status int, body []byte, requestID string) *APIError {
	apiErr := &APIError{StatusCode: status, RequestID: requestID}
	if len(body) == 0 {
		return apiErr
	}
	var errResp prediction.ErrorResponse
	if err := json.Unmarshal(body, &errResp); err != nil || errResp.Code == "" {
		apiErr.Message = strings.TrimSpace(string(body))
		return apiErr
	}
	apiErr.Code = errResp.Code
	apiErr.Message = errResp.Message
	apiErr.Detail = errResp.Detail
	if errResp.RequestID != "" {
		apiErr.RequestID = errResp.RequestID
	}
	return apiErr
}

// retryAfter parses a Retry-After header given in seconds.
func retryAfter(v string) (time.Duration, bool) {
	seconds, err := strconv.Atoi(v)
	if err != nil || seconds < 0 {
		return 0, false
	}
	return time.Duration(seconds) * time.Second, true
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) calculateBackoff(attempt int) time.Duration {
	backoff := c.retryWaitMin * time.Duration(1<<uint(attempt-1))
	if backoff > c.retryWaitMax {
		backoff = c.retryWaitMax
	}
	if backoff < 4 {
		return backoff
	}
	// up to 25% jitter
	return backoff + time.Duration(rand.Int64N(int64(backoff/4)))
}

//Personal.AI order the ending
