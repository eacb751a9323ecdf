// Package history describes completed predictions as they are persisted and
// published.
package history

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/COF-H2-Predictor/internal/domain/experiment"
	"github.com/turtacn/COF-H2-Predictor/internal/domain/frame"
	"github.com/turtacn/COF-H2-Predictor/pkg/errors"
)

// Record is one completed prediction.
type Record struct {
	ID           uuid.UUID         `json:"id"`
	SMILES       string            `json:"smiles"`
	Formula      string            `json:"formula,omitempty"`
	Parameters   experiment.Params `json:"parameters"`
	Descriptors  *frame.Table      `json:"descriptors"`
	Predictions  []float64         `json:"predictions"`
	Unit         string            `json:"unit"`
	ModelName    string            `json:"model_name"`
	ModelVersion string            `json:"model_version"`
	Seed         int64             `json:"seed"`
	Duration     time.Duration     `json:"duration_ns"`
	CreatedAt    time.Time         `json:"created_at"`
}

// Validate checks the fields every sink relies on.
func (r *Record) Validate() error {
	if r == nil {
		return errors.InvalidParam("record is nil")
	}
	if r.ID == uuid.Nil {
		return errors.InvalidParam("record id is required")
	}
	if r.SMILES == "" {
		return errors.InvalidParam("record smiles is required")
	}
	if len(r.Predictions) == 0 {
		return errors.InvalidParam("record has no predictions")
	}
	return nil
}

// Value is the first predicted output.
func (r *Record) Value() float64 {
	if len(r.Predictions) == 0 {
		return 0
	}
	return r.Predictions[0]
}

// Repository stores prediction history.
type Repository interface {
	Save(ctx context.Context, r *Record) error
	FindByID(ctx context.Context, id uuid.UUID) (*Record, error)
	ListRecent(ctx context.Context, limit int) ([]*Record, error)
}

// Recorder receives every completed prediction.
type Recorder interface {
	Record(ctx context.Context, r *Record) error
}

// RecorderFunc adapts a function to Recorder.
type RecorderFunc func(ctx context.Context, r *Record) error

func (f RecorderFunc) Record(ctx context.Context, r *Record) error { return f(ctx, r) }

//Personal.AI order the ending
