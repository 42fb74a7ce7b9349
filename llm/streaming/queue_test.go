package streaming

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue_BuffersInOrder(t *testing.T) {
	q := NewQueue()
	for _, s := range []string{"a", "b", "c"} {
		require.True(t, q.Push(TextDelta(s)))
	}
	q.Close()
	assert.False(t, q.Push(TextDelta("d")))

	var got []string
	for {
		ev, ok := q.Pop(context.Background())
		if !ok {
			break
		}
		got = append(got, ev.Text)
	}
	assert.Equal(t, []string{"a", "b", "c"}, got)
	assert.Equal(t, QueueStats{Produced: 3, Consumed: 3}, q.Stats())
}

func TestQueue_WakesWaitingConsumer(t *testing.T) {
	q := NewQueue()
	got := make(chan Event, 1)
	go func() {
		ev, _ := q.Pop(context.Background())
		got <- ev
	}()

	time.Sleep(10 * time.Millisecond)
	q.Push(TextDelta("now"))

	select {
	case ev := <-got:
		assert.Equal(t, "now", ev.Text)
	case <-time.After(time.Second):
		t.Fatal("consumer was not woken")
	}
}

func TestQueue_PopRespectsContext(t *testing.T) {
	q := NewQueue()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, ok := q.Pop(ctx)
	assert.False(t, ok)
}

func TestQueue_DrainDropsBuffered(t *testing.T) {
	q := NewQueue()
	q.Push(TextDelta("a"))
	q.Drain()
	q.Drain()

	_, ok := q.Pop(context.Background())
	assert.False(t, ok)
	assert.Zero(t, q.Len())
}
