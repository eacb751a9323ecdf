// Package prediction provides the application service that runs the COF-H2
// pipeline: descriptor extraction, parameter encoding, model inference and
// the best-effort recording of finished predictions.
package prediction

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/COF-H2-Predictor/internal/domain/descriptor"
	"github.com/turtacn/COF-H2-Predictor/internal/domain/experiment"
	"github.com/turtacn/COF-H2-Predictor/internal/domain/frame"
	"github.com/turtacn/COF-H2-Predictor/internal/domain/history"
	"github.com/turtacn/COF-H2-Predictor/internal/domain/molecule"
	"github.com/turtacn/COF-H2-Predictor/internal/intelligence/cof_ann"
	"github.com/turtacn/COF-H2-Predictor/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/COF-H2-Predictor/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/COF-H2-Predictor/pkg/errors"
)

// User-facing messages.
const (
	MsgEnterSMILES         = "Please enter a SMILE Structure!"
	MsgDescriptorsRequired = "Please complete the descriptors calculation before predicting."
)

// recordTimeout bounds the side effects of one prediction.
const recordTimeout = 10 * time.Second

// Service defines the prediction application operations.
type Service interface {
	Schema(ctx context.Context) *Schema
	Descriptors(ctx context.Context, smiles string) (*DescriptorsResult, error)
	Predict(ctx context.Context, input *PredictInput) (*PredictResult, error)
	Ready(ctx context.Context) error
	History(ctx context.Context, limit int) ([]*history.Record, error)
	GetPrediction(ctx context.Context, id string) (*history.Record, error)
	Close() error
}

// ModelProvider hands out the current model bundle.
type ModelProvider interface {
	Bundle(ctx context.Context) (*cof_ann.Bundle, error)
}

// PredictInput contains input for one prediction.
type PredictInput struct {
	SMILES string
	Params experiment.Params
	// Descriptors, when set, skips extraction. Callers pass the table from a
	// previous Descriptors call, the way the form keeps it between submits.
	Descriptors *frame.Table
}

// DescriptorsResult is the outcome of Descriptors. Valid is false when the
// SMILES did not parse, in which case Table is empty.
type DescriptorsResult struct {
	SMILES  string        `json:"smiles"`
	Formula string        `json:"formula,omitempty"`
	Valid   bool          `json:"valid"`
	Table   *frame.Table  `json:"descriptors"`
	Elapsed time.Duration `json:"elapsed_ns"`
}

// Timings splits the latency of a prediction.
type Timings struct {
	Descriptors time.Duration `json:"descriptors_ns"`
	Inference   time.Duration `json:"inference_ns"`
	Total       time.Duration `json:"total_ns"`
}

// PredictResult is the outcome of Predict.
type PredictResult struct {
	ID           uuid.UUID         `json:"id"`
	SMILES       string            `json:"smiles"`
	Formula      string            `json:"formula,omitempty"`
	Params       experiment.Params `json:"params"`
	Descriptors  *frame.Table      `json:"descriptors"`
	Parameters   *frame.Table      `json:"parameters"`
	Input        *frame.Table      `json:"input"`
	Predictions  []float64         `json:"predictions"`
	Unit         string            `json:"unit"`
	ModelName    string            `json:"model_name"`
	ModelVersion string            `json:"model_version"`
	Timings      Timings           `json:"timings"`
	CreatedAt    time.Time         `json:"created_at"`
}

// Value is the first prediction, the H2 evolution rate.
func (r *PredictResult) Value() float64 {
	if len(r.Predictions) == 0 {
		return 0
	}
	return r.Predictions[0]
}

// Deps are the collaborators of the service. Extractor and Model are
// required.
type Deps struct {
	Extractor descriptor.Extractor
	Model     ModelProvider
	// Recorders receive every successful prediction after it is returned.
	Recorders []history.Recorder
	// History backs the history queries; nil disables them.
	History history.Repository
	Metrics *prometheus.AppMetrics
	Logger  logging.Logger
	// Seed is reported with each record; 0 means random conformers.
	Seed int64
	// Unit overrides the manifest's unit label.
	Unit string
}

// serviceImpl implements the Service interface.
type serviceImpl struct {
	extractor descriptor.Extractor
	model     ModelProvider
	recorder  history.Recorder
	history   history.Repository
	metrics   *prometheus.AppMetrics
	logger    logging.Logger
	seed      int64
	unit      string

	pending sync.WaitGroup
	now     func() time.Time
}

// NewService creates a new prediction service.
func NewService(deps Deps) (Service, error) {
	if deps.Extractor == nil {
		return nil, errors.Internal("prediction service requires a descriptor extractor")
	}
	if deps.Model == nil {
		return nil, errors.Internal("prediction service requires a model provider")
	}
	if deps.Logger == nil {
		deps.Logger = logging.NewNopLogger()
	}
	if deps.Metrics == nil {
		deps.Metrics = prometheus.NewNoopAppMetrics()
	}
	s := &serviceImpl{
		extractor: deps.Extractor,
		model:     deps.Model,
		history:   deps.History,
		metrics:   deps.Metrics,
		logger:    deps.Logger.Named("prediction"),
		seed:      deps.Seed,
		unit:      deps.Unit,
		now:       time.Now,
	}
	if len(deps.Recorders) > 0 {
		s.recorder = NewMultiRecorder(s.logger, s.metrics, deps.Recorders...)
	}
	return s, nil
}

func (s *serviceImpl) Schema(ctx context.Context) *Schema {
	schema := NewSchema(s.extractor.Columns())
	if b, err := s.currentBundle(ctx); err == nil && b != nil {
		schema.Model = &ModelInfo{
			Name:           b.Manifest.Name,
			Version:        b.Manifest.Version,
			Unit:           b.Manifest.Unit,
			InputWidth:     b.InputWidth(),
			OutputWidth:    b.OutputWidth(),
			FeatureColumns: b.Manifest.FeatureColumns,
			LoadedAt:       b.LoadedAt,
		}
		schema.Unit = s.unitFor(b)
	}
	return schema
}

// currentBundle avoids triggering a load for schema requests when the
// provider exposes its cache.
func (s *serviceImpl) currentBundle(ctx context.Context) (*cof_ann.Bundle, error) {
	if c, ok := s.model.(interface{ Current() *cof_ann.Bundle }); ok {
		return c.Current(), nil
	}
	return s.model.Bundle(ctx)
}

func (s *serviceImpl) Descriptors(ctx context.Context, smiles string) (*DescriptorsResult, error) {
	smiles = strings.TrimSpace(smiles)
	if smiles == "" {
		return nil, errors.InvalidParam(MsgEnterSMILES)
	}

	start := time.Now()
	tbl, err := s.extractor.Extract(ctx, smiles)
	elapsed := time.Since(start)
	if err != nil {
		prometheus.RecordDescriptorExtraction(s.metrics, "error", elapsed, 0)
		prometheus.RecordError(s.metrics, "descriptor", string(errors.GetCode(err)))
		s.logger.Warn("descriptor extraction failed",
			logging.String("smiles", smiles),
			logging.Err(err))
		return nil, err
	}

	res := &DescriptorsResult{SMILES: smiles, Table: tbl, Elapsed: elapsed}
	if tbl.IsEmpty() {
		res.Table = frame.Empty()
		prometheus.RecordDescriptorExtraction(s.metrics, "empty", elapsed, 0)
		return res, nil
	}
	res.Valid = true
	res.Formula = formulaOf(smiles)
	prometheus.RecordDescriptorExtraction(s.metrics, "ok", elapsed, 0)
	s.logger.Debug("descriptors calculated",
		logging.String("smiles", smiles),
		logging.Int("columns", tbl.Width()),
		logging.Duration("elapsed", elapsed))
	return res, nil
}

func (s *serviceImpl) Predict(ctx context.Context, input *PredictInput) (*PredictResult, error) {
	if input == nil {
		return nil, errors.InvalidParam("input is required")
	}
	start := time.Now()
	smiles := strings.TrimSpace(input.SMILES)
	if smiles == "" {
		return nil, errors.InvalidParam(MsgEnterSMILES)
	}
	if err := input.Params.Validate(); err != nil {
		return nil, err
	}

	desc := input.Descriptors
	var descElapsed time.Duration
	if desc == nil {
		d, err := s.Descriptors(ctx, smiles)
		if err != nil {
			return nil, err
		}
		desc, descElapsed = d.Table, d.Elapsed
	}
	if desc.IsEmpty() {
		return nil, errors.New(errors.ErrCodeMoleculeDescriptorsMissing, MsgDescriptorsRequired)
	}
	if input.Descriptors != nil {
		if want := s.extractor.Columns(); !slices.Equal(desc.Columns, want) {
			return nil, errors.Newf(errors.ErrCodeModelSchemaMismatch,
				"descriptor columns do not match the extractor profile (%d given, %d expected)",
				desc.Width(), len(want))
		}
	}

	params := input.Params.Normalized()
	paramRow, err := params.Row()
	if err != nil {
		return nil, err
	}
	combined, err := frame.HConcat(paramRow, desc)
	if err != nil {
		return nil, err
	}

	bundle, err := s.model.Bundle(ctx)
	if err != nil {
		prometheus.RecordError(s.metrics, "model", string(errors.GetCode(err)))
		return nil, err
	}

	inferStart := time.Now()
	preds, err := bundle.Predict(combined)
	inferElapsed := time.Since(inferStart)
	if err != nil {
		prometheus.RecordPrediction(s.metrics, bundle.Manifest.Name, false, inferElapsed)
		prometheus.RecordError(s.metrics, "model", string(errors.GetCode(err)))
		s.logger.Error("prediction failed",
			logging.String("smiles", smiles),
			logging.Int("input_width", combined.Width()),
			logging.Err(err))
		return nil, err
	}
	values := preds[0].Values
	prometheus.RecordPrediction(s.metrics, bundle.Manifest.Name, true, inferElapsed, values...)

	res := &PredictResult{
		ID:           uuid.New(),
		SMILES:       smiles,
		Formula:      formulaOf(smiles),
		Params:       params,
		Descriptors:  desc,
		Parameters:   paramRow,
		Input:        combined,
		Predictions:  values,
		Unit:         s.unitFor(bundle),
		ModelName:    bundle.Manifest.Name,
		ModelVersion: bundle.Manifest.Version,
		Timings: Timings{
			Descriptors: descElapsed,
			Inference:   inferElapsed,
			Total:       time.Since(start),
		},
		CreatedAt: s.now().UTC(),
	}

	s.logger.Info("prediction completed",
		logging.String("id", res.ID.String()),
		logging.String("smiles", smiles),
		logging.Float64("value", res.Value()),
		logging.String("model", res.ModelName),
		logging.Duration("elapsed", res.Timings.Total))

	s.record(ctx, res)
	return res, nil
}

// record hands the result to the recorders in the background.
func (s *serviceImpl) record(ctx context.Context, res *PredictResult) {
	if s.recorder == nil {
		return
	}
	rec := &history.Record{
		ID:           res.ID,
		SMILES:       res.SMILES,
		Formula:      res.Formula,
		Parameters:   res.Params,
		Descriptors:  res.Descriptors,
		Predictions:  res.Predictions,
		Unit:         res.Unit,
		ModelName:    res.ModelName,
		ModelVersion: res.ModelVersion,
		Seed:         s.seed,
		Duration:     res.Timings.Total,
		CreatedAt:    res.CreatedAt,
	}
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
		defer cancel()
		// Failures are logged and counted by the recorder.
		_ = s.recorder.Record(rctx, rec)
	}()
}

func (s *serviceImpl) unitFor(b *cof_ann.Bundle) string {
	if s.unit != "" {
		return s.unit
	}
	if b != nil && b.Manifest.Unit != "" {
		return b.Manifest.Unit
	}
	return cof_ann.DefaultUnit
}

// Ready loads the model if needed and reports whether it is usable.
func (s *serviceImpl) Ready(ctx context.Context) error {
	_, err := s.model.Bundle(ctx)
	return err
}

func (s *serviceImpl) History(ctx context.Context, limit int) ([]*history.Record, error) {
	if s.history == nil {
		return nil, errors.New(errors.ErrCodeNotImplemented, "prediction history is disabled")
	}
	if limit <= 0 {
		limit = 20
	}
	return s.history.ListRecent(ctx, limit)
}

func (s *serviceImpl) GetPrediction(ctx context.Context, id string) (*history.Record, error) {
	if s.history == nil {
		return nil, errors.New(errors.ErrCodeNotImplemented, "prediction history is disabled")
	}
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, errors.InvalidParam("invalid prediction id").WithCause(err)
	}
	return s.history.FindByID(ctx, uid)
}

// Close waits for in-flight recorders.
func (s *serviceImpl) Close() error {
	s.pending.Wait()
	return nil
}

func formulaOf(smiles string) string {
	mol, err := molecule.ParseSMILES(smiles)
	if err != nil {
		return ""
	}
	return mol.Formula()
}

//Personal.AI order the ending
