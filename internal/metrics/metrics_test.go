package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.BlocksChanged(10)
	m.BlocksChanged(-3)
	m.TransactionCommitted(false)
	m.TransactionCommitted(true)
	m.TransactionCommitted(true)
	m.Undo()
	m.LimitHit()
	m.ObserveSlice(2 * time.Millisecond)
	m.SetQueued(4)
	m.OperationFinished("completed")

	assert.Equal(t, 10.0, testutil.ToFloat64(m.blocksChanged), "отрицательные значения игнорируются")
	assert.Equal(t, 2.0, testutil.ToFloat64(m.transactions.WithLabelValues("partial")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.history.WithLabelValues("undo")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.slices))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.queued))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.operationsDone.WithLabelValues("completed")))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.BlocksChanged(1)
		m.TransactionCommitted(false)
		m.Undo()
		m.Redo()
		m.LimitHit()
		m.ObserveSlice(time.Second)
		m.SetQueued(1)
		m.OperationFinished("failed")
	})
}
