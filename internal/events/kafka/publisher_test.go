package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sheikh-saqib/banking-settlement-pipeline/internal/models/events"
)

type fakeWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestPublishSettledEvent(t *testing.T) {
	w := &fakeWriter{}
	p := &Publisher{writer: w}

	event := events.TransactionSettled{
		TransactionID: 42,
		SenderIBAN:    "DE-A",
		TargetIBAN:    "DE-B",
		Amount:        decimal.RequireFromString("12.50"),
		SettledAt:     time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	require.NoError(t, p.Publish(context.Background(), "transaction_settled", event))

	require.Len(t, w.messages, 1)
	msg := w.messages[0]
	assert.Equal(t, "transaction_settled", msg.Topic)
	assert.Equal(t, []byte("42"), msg.Key)

	var decoded events.TransactionSettled
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, int64(42), decoded.TransactionID)
	assert.True(t, decoded.Amount.Equal(event.Amount))
}

func TestPublishOtherEventHasNoKey(t *testing.T) {
	w := &fakeWriter{}
	p := &Publisher{writer: w}

	require.NoError(t, p.Publish(context.Background(), "audit", map[string]string{"k": "v"}))
	require.Len(t, w.messages, 1)
	assert.Nil(t, w.messages[0].Key)
}

func TestPublishWrapsWriterError(t *testing.T) {
	boom := errors.New("broker unavailable")
	p := &Publisher{writer: &fakeWriter{err: boom}}

	err := p.Publish(context.Background(), "transaction_settled", events.TransactionSettled{TransactionID: 1})
	assert.ErrorIs(t, err, boom)
}

func TestPublishRejectsUnmarshalableEvent(t *testing.T) {
	w := &fakeWriter{}
	p := &Publisher{writer: w}

	err := p.Publish(context.Background(), "audit", make(chan int))
	assert.Error(t, err)
	assert.Empty(t, w.messages)
}

func TestClose(t *testing.T) {
	w := &fakeWriter{}
	p := &Publisher{writer: w}

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}
