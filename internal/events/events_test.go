package events

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeWriter) snapshot() ([]kafka.Message, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]kafka.Message(nil), f.msgs...), f.closed
}

type samplePayload struct {
	Customer string `json:"customer"`
	Amount   string `json:"amount"`
}

func discardLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestNewEnvelope(t *testing.T) {
	at := time.Date(2024, 6, 1, 10, 0, 0, 0, time.FixedZone("PHT", 8*3600))
	env, err := NewEnvelope(EventPaymentRecorded, "Ana", samplePayload{Customer: "Ana", Amount: "120.00"}, at)
	require.NoError(t, err)
	require.NotEmpty(t, env.EventID)
	require.Equal(t, 1, env.EventVersion)
	require.Equal(t, ProducerName, env.Producer)
	require.Equal(t, time.UTC, env.OccurredAt.Location())

	payload, err := UnwrapPayload[samplePayload](env.Payload)
	require.NoError(t, err)
	require.Equal(t, "120.00", payload.Amount)
}

func TestProducerFlushesOnClose(t *testing.T) {
	w := &fakeWriter{}
	p := NewProducer(w, 8, discardLogger())
	p.Start(context.Background())

	for _, customer := range []string{"Ana", "Ben"} {
		env, err := NewEnvelope(EventSaleCompleted, customer, samplePayload{Customer: customer}, time.Now())
		require.NoError(t, err)
		require.NoError(t, p.Publish(context.Background(), env))
	}
	p.Close()

	msgs, closed := w.snapshot()
	require.True(t, closed)
	require.Len(t, msgs, 2)
	require.Equal(t, "Ana", string(msgs[0].Key))
	require.Equal(t, EventSaleCompleted, string(msgs[0].Headers[0].Value))

	var env Envelope
	require.NoError(t, json.Unmarshal(msgs[1].Value, &env))
	require.Equal(t, "Ben", env.CorrelationID)

	env, err := NewEnvelope(EventSaleCompleted, "Cy", samplePayload{}, time.Now())
	require.NoError(t, err)
	require.ErrorIs(t, p.Publish(context.Background(), env), ErrClosed)
}

func TestProducerInboxFull(t *testing.T) {
	w := &fakeWriter{}
	p := NewProducer(w, 1, discardLogger())
	env, err := NewEnvelope(EventCatalogChanged, "Rice", samplePayload{}, time.Now())
	require.NoError(t, err)

	require.NoError(t, p.Publish(context.Background(), env))
	require.ErrorIs(t, p.Publish(context.Background(), env), ErrInboxFull)

	p.Close()
	msgs, closed := w.snapshot()
	require.True(t, closed)
	require.Len(t, msgs, 1)
}

func TestNopPublisher(t *testing.T) {
	var pub Publisher = Nop{}
	require.NoError(t, pub.Publish(context.Background(), Envelope{}))
}
