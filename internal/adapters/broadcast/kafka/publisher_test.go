package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vncsmyrnk/livepoll/internal/config"
	"github.com/vncsmyrnk/livepoll/internal/core/domain"
)

type fakeWriter struct {
	messages []kafkago.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestPublisher_Publish(t *testing.T) {
	w := &fakeWriter{}
	p := &Publisher{writer: w}

	poll := &domain.Poll{ID: uuid.New(), Question: "Streamed?"}
	occurred := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	require.NoError(t, p.Publish(context.Background(), domain.Event{Type: domain.EventPollClosed, Poll: poll, OccurredAt: occurred}))

	require.Len(t, w.messages, 1)
	msg := w.messages[0]
	assert.Equal(t, poll.ID.String(), string(msg.Key))
	assert.Equal(t, occurred, msg.Time)
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, "poll.closed", string(msg.Headers[0].Value))

	var decoded domain.Event
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, domain.EventPollClosed, decoded.Type)
	assert.Equal(t, poll.ID, decoded.Poll.ID)

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestPublisher_RespondentEventsKeyedByRespondent(t *testing.T) {
	msg, err := newMessage(domain.Event{Type: domain.EventRespondentLeft, RespondentID: "s1"})
	require.NoError(t, err)
	assert.Equal(t, "s1", string(msg.Key))
}

func TestPublisher_WriteError(t *testing.T) {
	p := &Publisher{writer: &fakeWriter{err: errors.New("no brokers")}}
	err := p.Publish(context.Background(), domain.Event{Type: domain.EventPollUpdated, Poll: &domain.Poll{}})
	assert.Error(t, err)
}

func TestNewPublisher(t *testing.T) {
	p := NewPublisher(config.KafkaConfig{Brokers: []string{"localhost:9092"}, Topic: "livepoll.events"})
	w, ok := p.writer.(*kafkago.Writer)
	require.True(t, ok)
	assert.Equal(t, "livepoll.events", w.Topic)
	assert.True(t, w.Async)
	assert.NoError(t, p.Close())
}
