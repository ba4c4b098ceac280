package ports

// LedgerMetrics instrumentación del libro de stock.
type LedgerMetrics interface {
	MovementRecorded(movementType string, quantity int)
	OperationRejected(operation, reason string)
	ReconcileRun(products, mismatches int)
}

// NopMetrics no registra nada.
type NopMetrics struct{}

func (NopMetrics) MovementRecorded(string, int)     {}
func (NopMetrics) OperationRejected(string, string) {}
func (NopMetrics) ReconcileRun(int, int)            {}
