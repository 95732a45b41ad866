package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jsteinberg1/cucm-phone-info/internal/inventory"
)

func TestQueueEnqueueDequeue(t *testing.T) {
	t.Parallel()

	q := NewQueue(4)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, inventory.ScrapeUnit{IP: "10.0.0.1", Model: "8841"}))
	require.NoError(t, q.Enqueue(ctx, inventory.ScrapeUnit{IP: "10.0.0.2", Model: "7940"}))
	require.Equal(t, 2, q.Len())

	unit, err := q.Dequeue(ctx)
	require.NoError(t, err)
	require.Equal(t, "10.0.0.1", unit.IP)
	require.Equal(t, 1, q.Len())

	unit, err = q.Dequeue(ctx)
	require.NoError(t, err)
	require.Equal(t, "10.0.0.2", unit.IP)
	require.Equal(t, 0, q.Len())
}

func TestQueueDequeueRespectsContext(t *testing.T) {
	t.Parallel()

	q := NewQueue(1)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := q.Dequeue(ctx)
	require.Error(t, err)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestQueueEnqueueBlocksWhenFull(t *testing.T) {
	t.Parallel()

	q := NewQueue(1)
	ctx := context.Background()
	require.NoError(t, q.Enqueue(ctx, inventory.ScrapeUnit{IP: "10.0.0.1"}))

	blocked, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := q.Enqueue(blocked, inventory.ScrapeUnit{IP: "10.0.0.2"})
	require.Error(t, err)
}

func TestQueueCloseIsIdempotent(t *testing.T) {
	t.Parallel()

	q := NewQueue(1)
	q.Close()
	q.Close()

	_, err := q.Dequeue(context.Background())
	require.EqualError(t, err, "queue closed")
}
