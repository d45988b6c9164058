package queue

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type event struct {
	SessionID string `json:"sessionId"`
}

func receive(t *testing.T, ch <-chan Message) Message {
	t.Helper()
	select {
	case msg, ok := <-ch:
		require.True(t, ok, "channel closed")
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
		return Message{}
	}
}

func TestNewMessage(t *testing.T) {
	msg, err := NewMessage(TypeAttendanceMarked, event{SessionID: "A"})
	require.NoError(t, err)
	assert.Equal(t, TypeAttendanceMarked, msg.Type)
	assert.JSONEq(t, `{"sessionId":"A"}`, string(msg.Body))
}

func TestInMemoryDeliversInOrder(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	q := NewInMemory(4)

	for _, id := range []string{"A", "B"} {
		msg, err := NewMessage(TypeAttendanceMarked, event{SessionID: id})
		require.NoError(t, err)
		require.NoError(t, q.Publish(ctx, msg))
	}

	ch, err := q.Consume(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `{"sessionId":"A"}`, string(receive(t, ch).Body))
	assert.JSONEq(t, `{"sessionId":"B"}`, string(receive(t, ch).Body))

	cancel()
	for range ch {
	}
}

func TestInMemoryPublishHonoursContext(t *testing.T) {
	q := NewInMemory(1)
	require.NoError(t, q.Publish(context.Background(), Message{Type: "x"}))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, q.Publish(ctx, Message{Type: "x"}), context.DeadlineExceeded)
}

func TestRedisQueue(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	q := NewRedisQueue(client, "")
	q.wait = 100 * time.Millisecond
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for _, id := range []string{"A", "B"} {
		msg, err := NewMessage(TypeAttendanceMarked, event{SessionID: id})
		require.NoError(t, err)
		require.NoError(t, q.Publish(ctx, msg))
	}
	n, err := client.LLen(ctx, "attendance:events").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	require.NoError(t, client.LPush(ctx, "attendance:events", "not json").Err())

	ch, err := q.Consume(ctx)
	require.NoError(t, err)
	first := receive(t, ch)
	assert.Equal(t, TypeAttendanceMarked, first.Type)
	assert.JSONEq(t, `{"sessionId":"A"}`, string(first.Body))
	assert.JSONEq(t, `{"sessionId":"B"}`, string(receive(t, ch).Body))
}
