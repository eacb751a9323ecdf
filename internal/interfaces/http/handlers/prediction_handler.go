package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/turtacn/COF-H2-Predictor/internal/application/prediction"
	"github.com/turtacn/COF-H2-Predictor/internal/infrastructure/monitoring/logging"
	dto "github.com/turtacn/COF-H2-Predictor/pkg/types/prediction"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 200
)

// PredictionHandler serves the JSON API.
type PredictionHandler struct {
	svc    prediction.Service
	logger logging.Logger
}

// NewPredictionHandler creates a new PredictionHandler.
func NewPredictionHandler(svc prediction.Service, logger logging.Logger) *PredictionHandler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &PredictionHandler{svc: svc, logger: logger}
}

// Schema handles GET /api/v1/schema.
func (h *PredictionHandler) Schema(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toSchemaResponse(h.svc.Schema(r.Context())))
}

// Descriptors handles POST /api/v1/descriptors.
func (h *PredictionHandler) Descriptors(w http.ResponseWriter, r *http.Request) {
	var req dto.DescriptorsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeAppError(w, r, err)
		return
	}
	res, err := h.svc.Descriptors(r.Context(), req.SMILES)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toDescriptorsResponse(res))
}

// Predict handles POST /api/v1/predictions.
func (h *PredictionHandler) Predict(w http.ResponseWriter, r *http.Request) {
	var req dto.PredictionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeAppError(w, r, err)
		return
	}
	desc, err := fromTable(req.Descriptors)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	res, err := h.svc.Predict(r.Context(), &prediction.PredictInput{
		SMILES:      req.SMILES,
		Params:      fromParameters(req.Parameters),
		Descriptors: desc,
	})
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPredictionResponse(res))
}

// ListHistory handles GET /api/v1/predictions.
func (h *PredictionHandler) ListHistory(w http.ResponseWriter, r *http.Request) {
	records, err := h.svc.History(r.Context(), parseLimit(r, defaultHistoryLimit, maxHistoryLimit))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	resp := dto.HistoryResponse{Items: make([]dto.HistoryRecord, 0, len(records))}
	for _, rec := range records {
		resp.Items = append(resp.Items, toHistoryRecord(rec))
	}
	resp.Count = len(resp.Items)
	writeJSON(w, http.StatusOK, resp)
}

// GetPrediction handles GET /api/v1/predictions/{predictionID}.
func (h *PredictionHandler) GetPrediction(w http.ResponseWriter, r *http.Request) {
	rec, err := h.svc.GetPrediction(r.Context(), chi.URLParam(r, "predictionID"))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toHistoryRecord(rec))
}

//Personal.AI order the ending
