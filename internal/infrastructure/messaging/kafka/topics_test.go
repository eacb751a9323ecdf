package kafka

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/COF-H2-Predictor/internal/domain/experiment"
	"github.com/turtacn/COF-H2-Predictor/internal/domain/history"
	pkgerrors "github.com/turtacn/COF-H2-Predictor/pkg/errors"
)

type capturePublisher struct {
	msgs []*ProducerMessage
	err  error
}

func (c *capturePublisher) Publish(ctx context.Context, msg *ProducerMessage) error {
	c.msgs = append(c.msgs, msg)
	return c.err
}

func testRecord() *history.Record {
	return &history.Record{
		ID:           uuid.New(),
		SMILES:       "c1ccccc1",
		Formula:      "C6H6",
		Parameters:   experiment.DefaultParams(),
		Predictions:  []float64{6.8},
		Unit:         "μmol*h-1",
		ModelName:    "cof-ann",
		ModelVersion: "7",
		Duration:     250 * time.Millisecond,
		CreatedAt:    time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestEventEnvelope_RoundTrip(t *testing.T) {
	env, err := NewEventEnvelope("test.event", "unit", map[string]int{"a": 1})
	require.NoError(t, err)
	assert.NotEmpty(t, env.EventID)
	assert.Equal(t, "v1", env.SchemaVersion)

	env.TraceID = "trace-1"
	msg, err := env.ToMessage("topic", []byte("key"))
	require.NoError(t, err)
	assert.Equal(t, "trace-1", msg.Headers["trace_id"])
	assert.Equal(t, "test.event", msg.Headers["event_type"])

	decoded, err := DecodeEnvelope(msg.Value)
	require.NoError(t, err)
	var payload map[string]int
	require.NoError(t, json.Unmarshal(decoded.Payload, &payload))
	assert.Equal(t, 1, payload["a"])
}

func TestDecodeEnvelope_Errors(t *testing.T) {
	_, err := DecodeEnvelope(nil)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.ErrCodeValidation))

	_, err = DecodeEnvelope([]byte("{"))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.ErrCodeSerialization))
}

func TestNewEventEnvelope_Unmarshalable(t *testing.T) {
	_, err := NewEventEnvelope("x", "y", make(chan int))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.ErrCodeSerialization))
}

func TestPredictionEventRecorder(t *testing.T) {
	pub := &capturePublisher{}
	rec := newPredictionEventRecorder(pub, "", "")
	r := testRecord()

	require.NoError(t, rec.Record(context.Background(), r))
	require.Len(t, pub.msgs, 1)

	msg := pub.msgs[0]
	assert.Equal(t, TopicPredictionCompleted, msg.Topic)
	assert.Equal(t, r.ID.String(), string(msg.Key))
	assert.Equal(t, EventPredictionCompleted, msg.Headers["event_type"])
	assert.Equal(t, "cofh2", msg.Headers["source_service"])

	env, err := DecodeEnvelope(msg.Value)
	require.NoError(t, err)
	var payload PredictionCompletedPayload
	require.NoError(t, json.Unmarshal(env.Payload, &payload))
	assert.Equal(t, r.ID.String(), payload.PredictionID)
	assert.Equal(t, []float64{6.8}, payload.Predictions)
	assert.Equal(t, int64(250), payload.DurationMs)
	assert.Equal(t, r.Parameters, payload.Parameters)
}

func TestPredictionEventRecorder_Errors(t *testing.T) {
	pub := &capturePublisher{err: ErrProducerClosed}
	rec := newPredictionEventRecorder(pub, "custom.topic", "svc")

	assert.Equal(t, ErrProducerClosed, rec.Record(context.Background(), testRecord()))
	assert.Equal(t, "custom.topic", pub.msgs[0].Topic)

	bad := testRecord()
	bad.SMILES = ""
	assert.True(t, pkgerrors.IsCode(rec.Record(context.Background(), bad), pkgerrors.CodeInvalidParam))
}

//Personal.AI order the ending
