package eventbus

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestQueueRoundsCapacityToPowerOfTwo(t *testing.T) {
	q := NewQueue(5)
	require.Equal(t, 8, q.Cap())
}

func TestQueuePushPopOrder(t *testing.T) {
	q := NewQueue(4)
	for i := 0; i < 3; i++ {
		q.Push(Event{Line: i})
	}
	for i := 0; i < 3; i++ {
		ev, ok := q.Pop()
		require.True(t, ok)
		require.Equal(t, i, ev.Line)
	}
	_, ok := q.Pop()
	require.False(t, ok, "Pop on an empty queue should report false")
}

func TestQueueDropsOldestWhenFull(t *testing.T) {
	q := NewQueue(4)
	for i := 0; i < 4; i++ {
		q.Push(Event{Line: i})
	}
	q.Push(Event{Line: 99})

	require.EqualValues(t, 1, q.Dropped())
	require.Equal(t, 4, q.Len(), "queue should stay bounded at capacity")

	first, ok := q.Pop()
	require.True(t, ok)
	require.Equal(t, 1, first.Line, "entry 0 should have been dropped as the oldest")
}

func TestQueueDrainReturnsAllInOrder(t *testing.T) {
	q := NewQueue(4)
	q.Push(Event{Line: 1})
	q.Push(Event{Line: 2})

	got := q.Drain()
	require.Len(t, got, 2)
	require.Equal(t, 1, got[0].Line)
	require.Equal(t, 2, got[1].Line)
	require.Equal(t, 0, q.Len(), "Drain should empty the queue")
}
