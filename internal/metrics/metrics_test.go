package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, g.Write(&m))
	return m.GetGauge().GetValue()
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func TestSetAccountStateUpdatesGauges(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewRegistry(reg)

	m.SetAccountState(12345.67, 20000, 3)

	assert.Equal(t, 12345.67, gaugeValue(t, m.AccountCash))
	assert.Equal(t, 20000.0, gaugeValue(t, m.AccountTotalValue))
	assert.Equal(t, 3.0, gaugeValue(t, m.PositionsOpen))
}

func TestRecordDecisionIncrementsOnlyTheSignalsThatFired(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewRegistry(reg)

	m.RecordDecision(true, false)
	m.RecordDecision(false, true)
	m.RecordDecision(false, false)

	assert.Equal(t, 1.0, counterValue(t, m.DecisionsEvaluated.WithLabelValues("buy")))
	assert.Equal(t, 1.0, counterValue(t, m.DecisionsEvaluated.WithLabelValues("sell")))
}

func TestRecordOrderIncrementsBySide(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewRegistry(reg)

	m.RecordOrder("buy")
	m.RecordOrder("buy")
	m.RecordOrder("sell")

	assert.Equal(t, 2.0, counterValue(t, m.OrdersDispatched.WithLabelValues("buy")))
	assert.Equal(t, 1.0, counterValue(t, m.OrdersDispatched.WithLabelValues("sell")))
}

func TestObserveTickRecordsIntoHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewRegistry(reg)

	m.ObserveTick(250 * time.Millisecond)

	var hist dto.Metric
	require.NoError(t, m.TickDuration.Write(&hist))
	assert.Equal(t, uint64(1), hist.GetHistogram().GetSampleCount())
}
