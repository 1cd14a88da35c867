// Package metrics expone métricas Prometheus del API y del motor de movimientos.
package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jhoicas/stock-movements/internal/application/inventory"
	"github.com/jhoicas/stock-movements/internal/domain"
)

// Nombres de métricas.
const (
	MetricHTTPRequestsTotal   = "stock_http_requests_total"
	MetricHTTPDurationSeconds = "stock_http_request_duration_seconds"
	MetricMovementOpsTotal    = "stock_movement_operations_total"
	MetricMovementOpSeconds   = "stock_movement_operation_duration_seconds"
)

// Outcomes de una operación de movimiento.
const (
	OutcomeOK           = "ok"
	OutcomeInvalid      = "invalid"
	OutcomeNotFound     = "not_found"
	OutcomeInsufficient = "insufficient_quantity"
	OutcomeError        = "error"
)

var _ inventory.MetricsRecorder = (*Metrics)(nil)

// Metrics registro propio (no el global) con los colectores de la aplicación.
// Seguro para uso concurrente.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	movementOps  *prometheus.CounterVec
	movementDur  *prometheus.HistogramVec
}

// New crea el registro e incluye los colectores de proceso y runtime de Go.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricHTTPRequestsTotal,
			Help: "Peticiones HTTP por método, ruta y código de estado.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    MetricHTTPDurationSeconds,
			Help:    "Duración de las peticiones HTTP.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		movementOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricMovementOpsTotal,
			Help: "Operaciones de escritura sobre movimientos por resultado.",
		}, []string{"operation", "outcome"}),
		movementDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    MetricMovementOpSeconds,
			Help:    "Duración de las operaciones de escritura sobre movimientos (incluye la transacción).",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests, m.httpDuration, m.movementOps, m.movementDur,
	)
	return m
}

// ObserveHTTP registra una petición atendida. route es el patrón de la ruta, no el path.
func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// ObserveMovementOp implementa inventory.MetricsRecorder.
func (m *Metrics) ObserveMovementOp(op string, err error, elapsed time.Duration) {
	m.movementOps.WithLabelValues(op, Outcome(err)).Inc()
	m.movementDur.WithLabelValues(op).Observe(elapsed.Seconds())
}

// Handler sirve el formato de exposición de Prometheus.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry devuelve el registro subyacente.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Outcome clasifica un error de dominio en una etiqueta de baja cardinalidad.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, domain.ErrInsufficientQuantity):
		return OutcomeInsufficient
	case errors.Is(err, domain.ErrNotFound):
		return OutcomeNotFound
	case errors.Is(err, domain.ErrInvalidInput):
		return OutcomeInvalid
	default:
		return OutcomeError
	}
}
