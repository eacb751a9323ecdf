package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/COF-H2-Predictor/internal/domain/experiment"
	"github.com/turtacn/COF-H2-Predictor/internal/domain/history"
	"github.com/turtacn/COF-H2-Predictor/pkg/errors"
)

// Topic Constants
const (
	TopicPredictionCompleted = "cofh2.prediction.completed"
)

// EventPredictionCompleted is the event type carried on
// TopicPredictionCompleted.
const EventPredictionCompleted = "prediction.completed"

// EventEnvelope standardizes event messages.
type EventEnvelope struct {
	EventID       string            `json:"event_id"`
	EventType     string            `json:"event_type"`
	Source        string            `json:"source"`
	Timestamp     time.Time         `json:"timestamp"`
	SchemaVersion string            `json:"schema_version"`
	TraceID       string            `json:"trace_id,omitempty"`
	Payload       json.RawMessage   `json:"payload"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// PredictionCompletedPayload summarises one prediction. Descriptor values are
// left out; consumers that need them read the history table.
type PredictionCompletedPayload struct {
	PredictionID string            `json:"prediction_id"`
	SMILES       string            `json:"smiles"`
	Formula      string            `json:"formula,omitempty"`
	Parameters   experiment.Params `json:"parameters"`
	Predictions  []float64         `json:"predictions"`
	Unit         string            `json:"unit"`
	ModelName    string            `json:"model_name"`
	ModelVersion string            `json:"model_version"`
	DurationMs   int64             `json:"duration_ms"`
	CompletedAt  time.Time         `json:"completed_at"`
}

// NewPredictionCompletedPayload builds the payload for rec.
func NewPredictionCompletedPayload(rec *history.Record) PredictionCompletedPayload {
	return PredictionCompletedPayload{
		PredictionID: rec.ID.String(),
		SMILES:       rec.SMILES,
		Formula:      rec.Formula,
		Parameters:   rec.Parameters,
		Predictions:  rec.Predictions,
		Unit:         rec.Unit,
		ModelName:    rec.ModelName,
		ModelVersion: rec.ModelVersion,
		DurationMs:   rec.Duration.Milliseconds(),
		CompletedAt:  rec.CreatedAt,
	}
}

// Helper functions for EventEnvelope

func NewEventEnvelope(eventType string, source string, payload interface{}) (*EventEnvelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal payload")
	}
	return &EventEnvelope{
		EventID:       uuid.New().String(),
		EventType:     eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		SchemaVersion: "v1",
		Payload:       data,
	}, nil
}

func (e *EventEnvelope) ToMessage(topic string, key []byte) (*ProducerMessage, error) {
	val, err := json.Marshal(e)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal envelope")
	}
	headers := map[string]string{
		"event_type":     e.EventType,
		"source_service": e.Source,
		"schema_version": e.SchemaVersion,
	}
	if e.TraceID != "" {
		headers["trace_id"] = e.TraceID
	}
	return &ProducerMessage{
		Topic:     topic,
		Key:       key,
		Value:     val,
		Headers:   headers,
		Timestamp: e.Timestamp,
	}, nil
}

// DecodeEnvelope parses a message value published by ToMessage.
func DecodeEnvelope(value []byte) (*EventEnvelope, error) {
	if len(value) == 0 {
		return nil, errors.New(errors.ErrCodeValidation, "empty message value")
	}
	var env EventEnvelope
	if err := json.Unmarshal(value, &env); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to unmarshal envelope")
	}
	return &env, nil
}

// publisher is the part of Producer the event recorder needs.
type publisher interface {
	Publish(ctx context.Context, msg *ProducerMessage) error
}

// PredictionEventRecorder publishes every completed prediction to
// TopicPredictionCompleted, keyed by prediction ID.
type PredictionEventRecorder struct {
	producer publisher
	topic    string
	source   string
}

var _ history.Recorder = (*PredictionEventRecorder)(nil)

// NewPredictionEventRecorder returns a recorder over p. An empty topic means
// TopicPredictionCompleted.
func NewPredictionEventRecorder(p *Producer, topic, source string) *PredictionEventRecorder {
	return newPredictionEventRecorder(p, topic, source)
}

func newPredictionEventRecorder(p publisher, topic, source string) *PredictionEventRecorder {
	if topic == "" {
		topic = TopicPredictionCompleted
	}
	if source == "" {
		source = "cofh2"
	}
	return &PredictionEventRecorder{producer: p, topic: topic, source: source}
}

// Record implements history.Recorder.
func (r *PredictionEventRecorder) Record(ctx context.Context, rec *history.Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	env, err := NewEventEnvelope(EventPredictionCompleted, r.source, NewPredictionCompletedPayload(rec))
	if err != nil {
		return err
	}
	msg, err := env.ToMessage(r.topic, []byte(rec.ID.String()))
	if err != nil {
		return err
	}
	return r.producer.Publish(ctx, msg)
}

//Personal.AI order the ending
