package retry

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/neuralprobe/d4/internal/broker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBroker struct {
	callCount int32

	successAfterN int
	errTransient  error
	errPermanent  error
}

func (f *fakeBroker) GetAllPositions(_ context.Context) ([]broker.Position, error) { return nil, nil }
func (f *fakeBroker) GetAccount(_ context.Context) (broker.Account, error)         { return broker.Account{}, nil }
func (f *fakeBroker) GetOrderByClientID(_ context.Context, _ string) (broker.Order, error) {
	return broker.Order{}, nil
}
func (f *fakeBroker) GetOpenOrders(_ context.Context) ([]broker.Order, error) { return nil, nil }
func (f *fakeBroker) CancelOrders(_ context.Context) error                    { return nil }

func (f *fakeBroker) SubmitMarketOrder(_ context.Context, req broker.OrderRequest) (broker.Order, error) {
	n := atomic.AddInt32(&f.callCount, 1)
	if f.successAfterN > 0 && int(n) < f.successAfterN {
		if f.errTransient != nil {
			return broker.Order{}, f.errTransient
		}
		return broker.Order{}, errors.New("connection reset")
	}
	if f.errPermanent != nil {
		return broker.Order{}, f.errPermanent
	}
	return broker.Order{ClientOrderID: req.ClientOrderID, Symbol: req.Symbol, Status: broker.StatusFilled}, nil
}

func TestSubmitMarketOrderWithRetrySucceedsAfterTransientFailures(t *testing.T) {
	fb := &fakeBroker{successAfterN: 3, errTransient: errors.New("connection reset by peer")}
	c := NewClient(fb, nil, Config{MaxRetries: 5, InitialBackoff: time.Millisecond, MaxBackoff: 5 * time.Millisecond, Timeout: time.Second})

	ord, err := c.SubmitMarketOrderWithRetry(context.Background(), broker.OrderRequest{Symbol: "AAA", Side: broker.Buy, Qty: 1, ClientOrderID: "x"})
	require.NoError(t, err)
	assert.Equal(t, "AAA", ord.Symbol)
	assert.Equal(t, int32(3), fb.callCount)
}

func TestSubmitMarketOrderWithRetryStopsOnPermanentError(t *testing.T) {
	fb := &fakeBroker{errPermanent: errors.New("insufficient buying power")}
	c := NewClient(fb, nil, Config{MaxRetries: 5, InitialBackoff: time.Millisecond, MaxBackoff: 5 * time.Millisecond, Timeout: time.Second})

	_, err := c.SubmitMarketOrderWithRetry(context.Background(), broker.OrderRequest{Symbol: "AAA", Side: broker.Buy, Qty: 1, ClientOrderID: "x"})
	assert.Error(t, err)
	assert.Equal(t, int32(1), fb.callCount, "a non-transient error must not be retried")
}

func TestSubmitMarketOrderWithRetryExhaustsAttemptsOnPersistentTransientError(t *testing.T) {
	fb := &fakeBroker{successAfterN: 100, errTransient: errors.New("503 service unavailable")}
	c := NewClient(fb, nil, Config{MaxRetries: 2, InitialBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond, Timeout: time.Second})

	_, err := c.SubmitMarketOrderWithRetry(context.Background(), broker.OrderRequest{Symbol: "AAA", Side: broker.Buy, Qty: 1, ClientOrderID: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), fmt.Sprintf("failed to submit order after %d attempts", 3))
}
