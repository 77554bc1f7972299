package queue

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryPublishConsume(t *testing.T) {
	q := NewInMemory(4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, q.Publish(ctx, Message{Type: "badge", Body: json.RawMessage(`{"id":"1"}`)}))
	require.NoError(t, q.Publish(ctx, Message{Type: "badge", Body: json.RawMessage(`{"id":"2"}`)}))
	assert.Equal(t, 2, q.Len())

	msgs, err := q.Consume(ctx)
	require.NoError(t, err)

	first := <-msgs
	second := <-msgs
	assert.JSONEq(t, `{"id":"1"}`, string(first.Body))
	assert.JSONEq(t, `{"id":"2"}`, string(second.Body))

	cancel()
	require.Eventually(t, func() bool {
		_, open := <-msgs
		return !open
	}, time.Second, 5*time.Millisecond)
}

func TestInMemoryPublishRespectsContext(t *testing.T) {
	q := NewInMemory(1)
	require.NoError(t, q.Publish(context.Background(), Message{Type: "badge"}))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := q.Publish(ctx, Message{Type: "badge"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestEncodeDecode(t *testing.T) {
	raw, err := encode(Message{Type: "badge", Body: json.RawMessage(`{"name":"Ada|Lovelace"}`)})
	require.NoError(t, err)

	msg, err := decode(raw)
	require.NoError(t, err)
	assert.Equal(t, "badge", msg.Type)
	assert.JSONEq(t, `{"name":"Ada|Lovelace"}`, string(msg.Body))

	_, err = decode("badge|{}")
	assert.Error(t, err)
	_, err = decode(`{"body":{}}`)
	assert.Error(t, err)
}
