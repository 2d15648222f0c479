package kafka

import (
	"fmt"
	"io"
	"log/slog"
	"testing"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/hazard-replay/internal/domain"
	"github.com/couchcryptid/hazard-replay/internal/observability"
)

const featurePayload = `{
	"type": "Feature",
	"id": "shock-001",
	"geometry": {"type": "Point", "coordinates": [-97.5, 35.4]},
	"properties": {
		"event_type": "earthquake",
		"time": "2024-04-26T12:00:00Z",
		"magnitude": 5.1
	}
}`

func TestDecodeMessage(t *testing.T) {
	msg := kafkago.Message{
		Key:   []byte("fallback-seq"),
		Value: []byte(featurePayload),
		Headers: []kafkago.Header{
			{Key: "sequence_id", Value: []byte("anatolia-2024")},
		},
	}

	event, sequenceID, err := decodeMessage(msg)
	require.NoError(t, err)

	assert.Equal(t, "anatolia-2024", sequenceID, "header wins over the key")
	assert.Equal(t, "shock-001", event.ID)
	assert.Equal(t, "earthquake", event.EventType)
	assert.Equal(t, 5.1, event.Properties["magnitude"])
	require.NotNil(t, event.Geometry)
	assert.Equal(t, []float64{-97.5, 35.4}, event.Geometry.Point)
}

func TestDecodeMessage_SequenceFallbacks(t *testing.T) {
	t.Run("property when no header", func(t *testing.T) {
		payload := `{
			"type": "Feature",
			"geometry": {"type": "Point", "coordinates": [0, 0]},
			"properties": {"event_type": "tornado", "sequence_id": "from-props"}
		}`
		_, sequenceID, err := decodeMessage(kafkago.Message{Value: []byte(payload)})
		require.NoError(t, err)
		assert.Equal(t, "from-props", sequenceID)
	})

	t.Run("message key when neither", func(t *testing.T) {
		_, sequenceID, err := decodeMessage(kafkago.Message{
			Key:   []byte("keyed-seq"),
			Value: []byte(featurePayload),
		})
		require.NoError(t, err)
		assert.Equal(t, "keyed-seq", sequenceID)
	})

	t.Run("rejected with no sequence at all", func(t *testing.T) {
		payload := `{
			"type": "Feature",
			"geometry": {"type": "Point", "coordinates": [0, 0]},
			"properties": {"event_type": "tornado"}
		}`
		_, _, err := decodeMessage(kafkago.Message{Value: []byte(payload)})
		assert.Error(t, err)
	})
}

func TestDecodeMessage_DerivesMissingID(t *testing.T) {
	payload := `{
		"type": "Feature",
		"geometry": {"type": "Point", "coordinates": [-97.5, 35.4]},
		"properties": {"event_type": "hail", "time": "2024-04-26T12:00:00Z"}
	}`
	msg := kafkago.Message{Key: []byte("seq"), Value: []byte(payload)}

	first, _, err := decodeMessage(msg)
	require.NoError(t, err)
	second, _, err := decodeMessage(msg)
	require.NoError(t, err)

	assert.NotEmpty(t, first.ID)
	assert.Equal(t, first.ID, second.ID, "identity must be stable across redelivery")
	assert.Contains(t, first.ID, "hail-")
}

func TestDecodeMessage_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{"not json", `not-json{{{`},
		{"no geometry", `{"type":"Feature","properties":{"event_type":"hail"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := decodeMessage(kafkago.Message{Key: []byte("seq"), Value: []byte(tt.value)})
			assert.Error(t, err)
		})
	}
}

// --- handle tests ---

type appendCall struct {
	sequenceID string
	event      domain.Event
}

type recordingSink struct {
	calls []appendCall
	err   error
}

func (s *recordingSink) Append(sequenceID string, e domain.Event) error {
	if s.err != nil {
		return s.err
	}
	s.calls = append(s.calls, appendCall{sequenceID: sequenceID, event: e})
	return nil
}

func testConsumer(sink Sink) *Consumer {
	return &Consumer{
		sink:    sink,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		metrics: observability.NewMetricsForTesting(),
	}
}

func TestConsumerHandle(t *testing.T) {
	sink := &recordingSink{}
	c := testConsumer(sink)

	err := c.handle(kafkago.Message{
		Key:   []byte("anatolia-2024"),
		Value: []byte(featurePayload),
	})
	require.NoError(t, err)

	require.Len(t, sink.calls, 1)
	assert.Equal(t, "anatolia-2024", sink.calls[0].sequenceID)
	assert.Equal(t, "shock-001", sink.calls[0].event.ID)
}

func TestConsumerHandle_SinkFailure(t *testing.T) {
	sink := &recordingSink{err: fmt.Errorf("catalog full")}
	c := testConsumer(sink)

	err := c.handle(kafkago.Message{Key: []byte("seq"), Value: []byte(featurePayload)})
	assert.Error(t, err)
}
