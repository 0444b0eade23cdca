package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ledger"

// Metrics contadores del libro y de la orquestación. Un *Metrics nil es válido y no registra nada.
type Metrics struct {
	registry     *prometheus.Registry
	transactions *prometheus.CounterVec
	stockErrors  *prometheus.CounterVec
	allocations  *prometheus.CounterVec
	reservations *prometheus.CounterVec
	syncAttempts *prometheus.CounterVec
	published    prometheus.Counter
}

// NewMetrics crea un registro propio con los colectores de Go y de proceso.
func NewMetrics() *Metrics {
	r := prometheus.NewRegistry()
	r.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		registry: r,
		transactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "transactions_total",
			Help: "Transacciones de inventario registradas, por tipo.",
		}, []string{"type"}),
		stockErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "stock_errors_total",
			Help: "Errores de la taxonomía del libro, por operación.",
		}, []string{"op"}),
		allocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "allocations_total",
			Help: "Pasadas del enrutador de asignación, por resultado.",
		}, []string{"outcome"}),
		reservations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "reservations_total",
			Help: "Reservas intentadas contra fuentes, por resultado.",
		}, []string{"result"}),
		syncAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "wms_sync_attempts_total",
			Help: "Intentos de sincronización con el WMS, por resultado.",
		}, []string{"result"}),
		published: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "channel_stock_updates_total",
			Help: "Actualizaciones de stock de canal publicadas.",
		}),
	}
	r.MustRegister(m.transactions, m.stockErrors, m.allocations, m.reservations, m.syncAttempts, m.published)
	return m
}

// Handler expone el registro en formato Prometheus.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry devuelve el registro subyacente.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) Transaction(txType string) {
	if m != nil {
		m.transactions.WithLabelValues(txType).Inc()
	}
}

func (m *Metrics) StockError(op string) {
	if m != nil {
		m.stockErrors.WithLabelValues(op).Inc()
	}
}

func (m *Metrics) Allocation(outcome string) {
	if m != nil {
		m.allocations.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) Reservation(result string) {
	if m != nil {
		m.reservations.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) SyncAttempt(result string) {
	if m != nil {
		m.syncAttempts.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) StockPublished(n int) {
	if m != nil {
		m.published.Add(float64(n))
	}
}
