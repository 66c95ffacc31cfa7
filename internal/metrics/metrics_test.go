package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.Event("Debug")
	m.Transaction("createTokens", "ok", time.Second)
	assert.Nil(t, m.Registry())
}

func TestCounters(t *testing.T) {
	m := New()
	m.Event("PoolCreated")
	m.Event("PoolCreated")
	m.Transaction("addLiquidity", "ok", 2*time.Second)
	m.Transaction("addLiquidity", "reverted", 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.EventsObserved.WithLabelValues("PoolCreated")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Transactions.WithLabelValues("addLiquidity", "reverted")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.ConfirmSeconds))
}
