package positions

import (
	"context"
	"testing"
	"time"

	"github.com/neuralprobe/d4/internal/broker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLiveReconcilePullsSnapshotFromBroker(t *testing.T) {
	b := broker.NewLocal(10000)
	b.SetPrice("AAA", 50)
	ctx := context.Background()
	_, err := b.SubmitMarketOrder(ctx, broker.OrderRequest{Symbol: "AAA", Side: broker.Buy, Qty: 10, ClientOrderID: "c1"})
	require.NoError(t, err)

	l := NewLive(b)
	require.NoError(t, l.Reconcile(ctx))

	pos, ok := l.Get("AAA")
	require.True(t, ok)
	assert.Equal(t, 10.0, pos.Quantity)
	assert.Equal(t, 500.0, l.Value())
}

func TestLiveAddRemoveUpdatePriceAreNoOps(t *testing.T) {
	b := broker.NewLocal(10000)
	l := NewLive(b)

	l.Add("AAA", 1, 10, 10, 0, "", 0, time.Now())
	_, ok := l.Get("AAA")
	assert.False(t, ok, "Live.Add must never mutate the cached snapshot directly")

	l.Remove("AAA")
	l.UpdatePrice("AAA", 99)
}
