package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/COF-H2-Predictor/internal/domain/history"
	"github.com/turtacn/COF-H2-Predictor/internal/infrastructure/database/postgres"
	"github.com/turtacn/COF-H2-Predictor/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/COF-H2-Predictor/pkg/errors"
)

const maxListLimit = 500

const predictionColumns = `id, smiles, formula, parameters, descriptors, predictions,
		unit, model_name, model_version, seed, duration_ms, created_at`

// PostgresPredictionRepo stores prediction history in the predictions table.
// It is both a history.Repository and a history.Recorder.
type PostgresPredictionRepo struct {
	baseRepo
}

var (
	_ history.Repository = (*PostgresPredictionRepo)(nil)
	_ history.Recorder   = (*PostgresPredictionRepo)(nil)
)

// NewPostgresPredictionRepo returns the history repository over conn.
func NewPostgresPredictionRepo(conn *postgres.Connection, log logging.Logger) *PostgresPredictionRepo {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &PostgresPredictionRepo{
		baseRepo: baseRepo{conn: conn, log: log},
	}
}

// Record implements history.Recorder.
func (r *PostgresPredictionRepo) Record(ctx context.Context, rec *history.Record) error {
	return r.Save(ctx, rec)
}

func (r *PostgresPredictionRepo) Save(ctx context.Context, rec *history.Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	params, err := json.Marshal(rec.Parameters)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "marshal parameters")
	}
	descriptors, err := json.Marshal(rec.Descriptors)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "marshal descriptors")
	}
	predictions, err := json.Marshal(rec.Predictions)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "marshal predictions")
	}
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	query := `
		INSERT INTO predictions (` + predictionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO NOTHING
	`
	_, err = r.executor().ExecContext(ctx, query,
		rec.ID, rec.SMILES, rec.Formula, params, descriptors, predictions,
		rec.Unit, rec.ModelName, rec.ModelVersion, rec.Seed, rec.Duration.Milliseconds(), createdAt,
	)
	if err != nil {
		r.log.Error("failed to insert prediction", logging.String("id", rec.ID.String()), logging.Err(err))
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to insert prediction")
	}
	return nil
}

func (r *PostgresPredictionRepo) FindByID(ctx context.Context, id uuid.UUID) (*history.Record, error) {
	query := `SELECT ` + predictionColumns + ` FROM predictions WHERE id = $1`
	rec, err := scanPrediction(r.executor().QueryRowContext(ctx, query, id))
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.Newf(errors.ErrCodeNotFound, "prediction %s not found", id)
		}
		return nil, err
	}
	return rec, nil
}

func (r *PostgresPredictionRepo) ListRecent(ctx context.Context, limit int) ([]*history.Record, error) {
	if limit <= 0 || limit > maxListLimit {
		limit = maxListLimit
	}
	query := `SELECT ` + predictionColumns + ` FROM predictions ORDER BY created_at DESC LIMIT $1`
	rows, err := r.executor().QueryContext(ctx, query, limit)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list predictions")
	}
	defer rows.Close()

	var out []*history.Record
	for rows.Next() {
		rec, err := scanPrediction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to iterate predictions")
	}
	return out, nil
}

func scanPrediction(row scanner) (*history.Record, error) {
	var (
		rec                              history.Record
		params, descriptors, predictions []byte
		durationMs                       int64
	)
	err := row.Scan(
		&rec.ID, &rec.SMILES, &rec.Formula, &params, &descriptors, &predictions,
		&rec.Unit, &rec.ModelName, &rec.ModelVersion, &rec.Seed, &durationMs, &rec.CreatedAt,
	)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan prediction")
	}
	if err := json.Unmarshal(params, &rec.Parameters); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "decode parameters")
	}
	if len(descriptors) > 0 && string(descriptors) != "null" {
		if err := json.Unmarshal(descriptors, &rec.Descriptors); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeSerialization, "decode descriptors")
		}
	}
	if err := json.Unmarshal(predictions, &rec.Predictions); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "decode predictions")
	}
	rec.Duration = time.Duration(durationMs) * time.Millisecond
	return &rec, nil
}
