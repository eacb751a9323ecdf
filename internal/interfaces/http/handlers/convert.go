package handlers

import (
	"time"

	"github.com/turtacn/COF-H2-Predictor/internal/application/prediction"
	"github.com/turtacn/COF-H2-Predictor/internal/domain/experiment"
	"github.com/turtacn/COF-H2-Predictor/internal/domain/frame"
	"github.com/turtacn/COF-H2-Predictor/internal/domain/history"
	dto "github.com/turtacn/COF-H2-Predictor/pkg/types/prediction"
)

func toTable(t *frame.Table) dto.Table {
	if t == nil {
		return dto.Table{Columns: []string{}, Rows: [][]float64{}}
	}
	return dto.Table{Columns: t.Columns, Rows: t.Rows}
}

func fromTable(t *dto.Table) (*frame.Table, error) {
	if t == nil {
		return nil, nil
	}
	if len(t.Rows) == 0 {
		return frame.Empty(), nil
	}
	return frame.New(t.Columns, t.Rows...)
}

func toParameters(p experiment.Params) dto.Parameters {
	return dto.Parameters{
		CatalystMg:   p.CatalystMg,
		CoCatalystWt: p.CoCatalystWt,
		CoCatalyst:   p.CoCatalyst,
		SED:          p.SED,
	}
}

func fromParameters(p *dto.Parameters) experiment.Params {
	if p == nil {
		return experiment.DefaultParams()
	}
	return experiment.Params{
		CatalystMg:   p.CatalystMg,
		CoCatalystWt: p.CoCatalystWt,
		CoCatalyst:   p.CoCatalyst,
		SED:          p.SED,
	}
}

func toOptions(opts []experiment.Option) []dto.Option {
	out := make([]dto.Option, len(opts))
	for i, o := range opts {
		out[i] = dto.Option{Column: o.Column, Label: o.Label}
	}
	return out
}

func ms(d time.Duration) float64 { return float64(d) / float64(time.Millisecond) }

func toDescriptorsResponse(r *prediction.DescriptorsResult) dto.DescriptorsResponse {
	return dto.DescriptorsResponse{
		SMILES:      r.SMILES,
		Formula:     r.Formula,
		Valid:       r.Valid,
		Descriptors: toTable(r.Table),
		ElapsedMs:   ms(r.Elapsed),
	}
}

func toPredictionResponse(r *prediction.PredictResult) dto.PredictionResponse {
	return dto.PredictionResponse{
		ID:           r.ID.String(),
		SMILES:       r.SMILES,
		Formula:      r.Formula,
		Parameters:   toParameters(r.Params),
		Descriptors:  toTable(r.Descriptors),
		ParameterRow: toTable(r.Parameters),
		Input:        toTable(r.Input),
		Predictions:  r.Predictions,
		Value:        r.Value(),
		Unit:         r.Unit,
		Model:        dto.ModelInfo{Name: r.ModelName, Version: r.ModelVersion},
		Timings: dto.Timings{
			DescriptorsMs: ms(r.Timings.Descriptors),
			InferenceMs:   ms(r.Timings.Inference),
			TotalMs:       ms(r.Timings.Total),
		},
		CreatedAt: r.CreatedAt,
	}
}

func toSchemaResponse(s *prediction.Schema) dto.SchemaResponse {
	resp := dto.SchemaResponse{
		ParameterColumns:  s.ParameterColumns,
		DescriptorColumns: s.DescriptorColumns,
		ShapeColumns:      s.ShapeColumns,
		CoCatalysts:       toOptions(s.CoCatalysts),
		SEDs:              toOptions(s.SEDs),
		InputWidth:        s.InputWidth(),
		Unit:              s.Unit,
	}
	for _, b := range s.Numeric {
		resp.Numeric = append(resp.Numeric, dto.NumericField{
			Column: b.Column, Label: b.Label, Min: b.Min, Max: b.Max, Default: b.Default,
		})
	}
	if m := s.Model; m != nil {
		resp.Model = &dto.ModelInfo{
			Name:           m.Name,
			Version:        m.Version,
			Unit:           m.Unit,
			InputWidth:     m.InputWidth,
			OutputWidth:    m.OutputWidth,
			FeatureColumns: m.FeatureColumns,
			LoadedAt:       m.LoadedAt,
		}
	}
	return resp
}

func toHistoryRecord(r *history.Record) dto.HistoryRecord {
	return dto.HistoryRecord{
		ID:          r.ID.String(),
		SMILES:      r.SMILES,
		Formula:     r.Formula,
		Parameters:  toParameters(r.Parameters),
		Predictions: r.Predictions,
		Unit:        r.Unit,
		Model:       dto.ModelInfo{Name: r.ModelName, Version: r.ModelVersion},
		Seed:        r.Seed,
		DurationMs:  ms(r.Duration),
		CreatedAt:   r.CreatedAt,
	}
}
