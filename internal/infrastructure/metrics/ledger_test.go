package metrics_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/Distribuidora-api/internal/infrastructure/metrics"
)

func TestLedgerMetrics_Counts(t *testing.T) {
	m := metrics.NewLedgerMetrics()

	m.MovementRecorded("OUT", -3)
	m.MovementRecorded("OUT", -2)
	m.MovementRecorded("IN", 10)
	m.OperationRejected("deduct", "insufficient_stock")
	m.ReconcileRun(12, 1)
	m.ReconcileRun(12, 0)

	n, err := testutil.GatherAndCount(m.Registry(), "distribuidora_ledger_movements_total")
	assert.NoError(t, err)
	assert.Equal(t, 2, n) // una serie por tipo

	n, err = testutil.GatherAndCount(m.Registry(), "distribuidora_ledger_rejections_total")
	assert.NoError(t, err)
	assert.Equal(t, 1, n)
}
