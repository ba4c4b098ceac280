// Package metrics instrumentación Prometheus del libro de stock.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jhoicas/Distribuidora-api/internal/application/ports"
)

var _ ports.LedgerMetrics = (*LedgerMetrics)(nil)

// LedgerMetrics contadores con registro propio para no depender del registro global.
type LedgerMetrics struct {
	registry   *prometheus.Registry
	movements  *prometheus.CounterVec
	units      *prometheus.CounterVec
	rejections *prometheus.CounterVec
	reconciled prometheus.Counter
	mismatches prometheus.Gauge
}

func NewLedgerMetrics() *LedgerMetrics {
	m := &LedgerMetrics{
		registry: prometheus.NewRegistry(),
		movements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "distribuidora",
			Subsystem: "ledger",
			Name:      "movements_total",
			Help:      "Movimientos de stock registrados por tipo.",
		}, []string{"type"}),
		units: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "distribuidora",
			Subsystem: "ledger",
			Name:      "units_total",
			Help:      "Unidades movidas por tipo (valor absoluto).",
		}, []string{"type"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "distribuidora",
			Subsystem: "ledger",
			Name:      "rejections_total",
			Help:      "Operaciones rechazadas por operación y motivo.",
		}, []string{"operation", "reason"}),
		reconciled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "distribuidora",
			Subsystem: "ledger",
			Name:      "reconciled_products_total",
			Help:      "Productos verificados por la conciliación.",
		}),
		mismatches: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "distribuidora",
			Subsystem: "ledger",
			Name:      "last_reconcile_mismatches",
			Help:      "Inconsistencias encontradas en la última conciliación.",
		}),
	}
	m.registry.MustRegister(
		m.movements, m.units, m.rejections, m.reconciled, m.mismatches,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *LedgerMetrics) MovementRecorded(movementType string, quantity int) {
	if quantity < 0 {
		quantity = -quantity
	}
	m.movements.WithLabelValues(movementType).Inc()
	m.units.WithLabelValues(movementType).Add(float64(quantity))
}

func (m *LedgerMetrics) OperationRejected(operation, reason string) {
	m.rejections.WithLabelValues(operation, reason).Inc()
}

func (m *LedgerMetrics) ReconcileRun(products, mismatches int) {
	m.reconciled.Add(float64(products))
	m.mismatches.Set(float64(mismatches))
}

// Registry para pruebas y exportadores adicionales.
func (m *LedgerMetrics) Registry() *prometheus.Registry { return m.registry }

// Handler exposición en formato Prometheus.
func (m *LedgerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
