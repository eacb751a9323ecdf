package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/samber/lo"

	"github.com/turtacn/COF-H2-Predictor/internal/application/prediction"
	"github.com/turtacn/COF-H2-Predictor/internal/infrastructure/monitoring/logging"
	dto "github.com/turtacn/COF-H2-Predictor/pkg/types/prediction"
)

// Screener ranks many candidates in one call.
type Screener interface {
	Screen(ctx context.Context, inputs []prediction.PredictInput) (*prediction.ScreenReport, error)
}

// ScreenHandler serves batch screening.
type ScreenHandler struct {
	screener Screener
	logger   logging.Logger
}

// NewScreenHandler creates a ScreenHandler.
func NewScreenHandler(screener Screener, logger logging.Logger) *ScreenHandler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &ScreenHandler{screener: screener, logger: logger}
}

// Screen handles POST /api/v1/predictions/batch. Candidates that fail are
// reported per item; the call itself fails only for a malformed or refused
// batch.
func (h *ScreenHandler) Screen(w http.ResponseWriter, r *http.Request) {
	var req dto.BatchPredictionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeAppError(w, r, err)
		return
	}
	params := fromParameters(req.Parameters)
	inputs := lo.Map(req.SMILES, func(smi string, _ int) prediction.PredictInput {
		return prediction.PredictInput{SMILES: strings.TrimSpace(smi), Params: params}
	})

	report, err := h.screener.Screen(r.Context(), inputs)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBatchResponse(r, report))
}

func toBatchResponse(r *http.Request, report *prediction.ScreenReport) dto.BatchPredictionResponse {
	resp := dto.BatchPredictionResponse{
		Items:     make([]dto.BatchItem, len(report.Items)),
		Best:      report.Best,
		Total:     report.Total,
		Succeeded: report.Succeeded,
		Failed:    report.Failed,
		ElapsedMs: ms(report.Elapsed),
	}
	for i, it := range report.Items {
		item := dto.BatchItem{
			Index:      it.Index,
			SMILES:     it.SMILES,
			Status:     it.Status.String(),
			Attempts:   it.Attempts,
			DurationMs: ms(it.Duration),
		}
		if it.Result != nil {
			pr := toPredictionResponse(it.Result)
			item.Prediction = &pr
		} else if it.Err != nil {
			er := errorResponse(r, it.Err)
			item.Error = &er
		}
		resp.Items[i] = item
	}
	resp.Ranking = lo.Map(report.Ranked(), func(it prediction.ScreenItem, _ int) int { return it.Index })
	return resp
}

//Personal.AI order the ending
