package bootstrap

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/COF-H2-Predictor/internal/domain/experiment"
	"github.com/turtacn/COF-H2-Predictor/internal/testutil"
	dto "github.com/turtacn/COF-H2-Predictor/pkg/types/prediction"
)

// descriptorWidth reports how many descriptor columns the configured profile
// yields, using an app without a model.
func descriptorWidth(t *testing.T) int {
	t.Helper()
	app, err := New(context.Background(), testConfig(t), nil, Options{Offline: true})
	require.NoError(t, err)
	defer app.Close()
	return len(app.Extractor.Columns())
}

func TestPipeline_PredictThroughHTTP(t *testing.T) {
	cfg := testConfig(t)
	cfg.Descriptor.Seed = 42
	testutil.WriteConstantModel(t, cfg.Model.Dir, testutil.ModelSpec{
		Version: "e2e",
		Width:   experiment.Width() + descriptorWidth(t),
		Value:   1234.5,
	})

	logger := testutil.NewCaptureLogger()
	app, err := New(context.Background(), cfg, logger, Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })
	require.NoError(t, app.Service.Ready(context.Background()))
	_, warned := logger.Find("warn", "model not available")
	assert.False(t, warned)

	h, err := app.Handler("test")
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/predictions",
		strings.NewReader(`{"smiles":"c1ccccc1","parameters":{"cat_mg":5,"cocat_wt":1,"cocat":"Pt","sed":"TEOA"}}`)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp dto.PredictionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.InDelta(t, 1234.5, resp.Value, 1e-9)
	assert.Equal(t, "e2e", resp.Model.Version)
	assert.Equal(t, experiment.Width()+len(resp.Descriptors.Columns), len(resp.Input.Columns))

	_, logged := logger.Find("info", "prediction completed")
	assert.True(t, logged)
}

func TestPipeline_MissingModelIsLogged(t *testing.T) {
	logger := testutil.NewCaptureLogger()
	app, err := New(context.Background(), testConfig(t), logger, Options{})
	require.NoError(t, err)
	defer app.Close()

	entry, ok := logger.Find("warn", "model not available")
	require.True(t, ok)
	_, hasErr := entry.Field("error")
	assert.True(t, hasErr)
}
