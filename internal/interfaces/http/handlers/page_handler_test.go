package handlers

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/COF-H2-Predictor/internal/application/prediction"
	"github.com/turtacn/COF-H2-Predictor/internal/domain/frame"
	"github.com/turtacn/COF-H2-Predictor/pkg/errors"
)

func newPageHandler(t *testing.T, svc *mockService) *PageHandler {
	t.Helper()
	svc.On("Schema", mock.Anything).Return(prediction.NewSchema([]string{"6", "13", "PMI1"}))
	h, err := NewPageHandler(svc, nil)
	require.NoError(t, err)
	return h
}

func submit(h *PageHandler, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/predictor", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	h.Submit(w, req)
	return w
}

func TestPageHandler_Predictor(t *testing.T) {
	h := newPageHandler(t, &mockService{})

	w := httptest.NewRecorder()
	h.Predictor(w, httptest.NewRequest(http.MethodGet, "/predictor", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))
	body := w.Body.String()
	assert.Contains(t, body, "<title>COF-H2 Predictor Platform</title>")
	assert.Contains(t, body, "Enter SMILE Structure:")
	assert.Contains(t, body, "Please be sure about the following inputs before Prediction")
	assert.Contains(t, body, `<option value="TEOA"`)
	assert.Contains(t, body, `max="50"`)
	assert.NotContains(t, body, "Descriptors Calculated:")
}

func TestPageHandler_InfoPages(t *testing.T) {
	h := newPageHandler(t, &mockService{})

	w := httptest.NewRecorder()
	h.Optimization(w, httptest.NewRequest(http.MethodGet, "/optimization", nil))
	assert.Contains(t, w.Body.String(), "<h1>Page 2: Optimization</h1>")

	w = httptest.NewRecorder()
	h.Placeholder(w, httptest.NewRequest(http.MethodGet, "/placeholder", nil))
	assert.Contains(t, w.Body.String(), "<h1>Page 3: Placeholder</h1>")
	assert.Contains(t, w.Body.String(), "This page can contain any additional content or functionality.")
}

func TestPageHandler_Submit_EmptySMILES(t *testing.T) {
	svc := &mockService{}
	h := newPageHandler(t, svc)

	w := submit(h, url.Values{"smiles": {"  "}})

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, prediction.MsgEnterSMILES)
	assert.Contains(t, body, prediction.MsgDescriptorsRequired)
	svc.AssertNotCalled(t, "Descriptors", mock.Anything, mock.Anything)
}

func TestPageHandler_Submit_InvalidSMILES(t *testing.T) {
	svc := &mockService{}
	h := newPageHandler(t, svc)
	svc.On("Descriptors", mock.Anything, "C1CC").Return(&prediction.DescriptorsResult{
		SMILES: "C1CC", Table: frame.Empty(),
	}, nil)

	w := submit(h, url.Values{"smiles": {"C1CC"}, "cocat": {"Pt"}, "sed": {"TEOA"}})

	body := w.Body.String()
	assert.Contains(t, body, prediction.MsgDescriptorsRequired)
	assert.Contains(t, body, "Experimental Parameters DataFrame:")
	// The combined table falls back to the parameter row alone.
	assert.Contains(t, body, "All Parameters DataFrame:")
	assert.Equal(t, 2, strings.Count(body, "<th>SED_TEOA</th>"))
	assert.NotContains(t, body, "<th>PMI1</th>")
	svc.AssertNotCalled(t, "Predict", mock.Anything, mock.Anything)
}

func TestPageHandler_Submit_Prediction(t *testing.T) {
	svc := &mockService{}
	h := newPageHandler(t, svc)
	desc, err := frame.New([]string{"6", "13", "PMI1"}, []float64{1, 0, 12.5})
	require.NoError(t, err)
	svc.On("Descriptors", mock.Anything, "CCO").Return(&prediction.DescriptorsResult{
		SMILES: "CCO", Valid: true, Table: desc,
	}, nil)
	svc.On("Predict", mock.Anything, mock.MatchedBy(func(in *prediction.PredictInput) bool {
		return in.Params.CoCatalyst == "CoCat_Pt" && in.Params.SED == "SED_TEOA" &&
			in.Params.CatalystMg == 10 && in.Descriptors == desc
	})).Return(&prediction.PredictResult{
		ID: uuid.New(), Predictions: []float64{4321}, Unit: "μmol*h-1", Descriptors: desc,
	}, nil)

	w := submit(h, url.Values{
		"smiles": {"CCO"}, "cocat": {"Pt"}, "sed": {"TEOA"},
		"Cat_mg": {"10"}, "CoCat_wt%": {"2"},
	})

	body := w.Body.String()
	assert.Contains(t, body, "Descriptors Calculated:")
	assert.Contains(t, body, "<th>PMI1</th>")
	assert.Contains(t, body, "Predictions:")
	assert.Contains(t, body, "4321 μmol*h-1")
	assert.Contains(t, body, `<option value="Pt" selected>`)
	svc.AssertExpectations(t)
}

func TestPageHandler_Submit_ModelError(t *testing.T) {
	svc := &mockService{}
	h := newPageHandler(t, svc)
	desc, err := frame.New([]string{"6"}, []float64{1})
	require.NoError(t, err)
	svc.On("Descriptors", mock.Anything, "CCO").Return(&prediction.DescriptorsResult{
		SMILES: "CCO", Valid: true, Table: desc,
	}, nil)
	svc.On("Predict", mock.Anything, mock.Anything).
		Return(nil, errors.New(errors.ErrCodeModelArtifactLoadFailed, "model.yaml not found"))

	w := submit(h, url.Values{"smiles": {"CCO"}, "cocat": {"Pt"}, "sed": {"TEOA"}})

	assert.Contains(t, w.Body.String(), "Error loading model or scalers: model.yaml not found")
}

func TestPageHandler_Submit_OutOfRange(t *testing.T) {
	svc := &mockService{}
	h := newPageHandler(t, svc)

	w := submit(h, url.Values{"smiles": {"CCO"}, "Cat_mg": {"80"}})

	assert.Contains(t, w.Body.String(), "Cat_ weight (mg) must be within [0, 50], got 80")
	svc.AssertNotCalled(t, "Descriptors", mock.Anything, mock.Anything)
}

func TestPageHandler_Submit_NaN(t *testing.T) {
	svc := &mockService{}
	h := newPageHandler(t, svc)

	w := submit(h, url.Values{"smiles": {"CCO"}, "Cat_mg": {"NaN"}})

	assert.Contains(t, w.Body.String(), "Cat_ weight (mg) must be within [0, 50], got NaN")
	svc.AssertNotCalled(t, "Descriptors", mock.Anything, mock.Anything)
}

func TestParseNumber(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("Cat_mg=abc"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	_, err := parseNumber(req, "Cat_mg")
	assert.True(t, errors.IsCode(err, errors.CodeInvalidParam))

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	v, err := parseNumber(req, "Cat_mg")
	require.NoError(t, err)
	assert.Equal(t, 3.0, v)
}
