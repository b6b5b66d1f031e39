package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the encrypted-value pipeline.
// Plaintexts and key material never appear in labels.
type Metrics struct {
	Operations         *prometheus.CounterVec
	OperationDuration  *prometheus.HistogramVec
	ProofVerifications *prometheus.CounterVec
	RelayerRequests    *prometheus.CounterVec
	RelayerBreakerOpen prometheus.Gauge
}

// New registers the pipeline metrics with the default registerer.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers the pipeline metrics with reg.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Operations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "titlechain_fhe_operations_total",
			Help: "Encrypted-value operations by operation and result",
		}, []string{"op", "result"}),
		OperationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "titlechain_fhe_operation_duration_seconds",
			Help:    "Duration of encrypted-value operations",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5},
		}, []string{"op"}),
		ProofVerifications: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "titlechain_fhe_proof_verifications_total",
			Help: "Proof verifications by outcome (valid, invalid, error)",
		}, []string{"outcome"}),
		RelayerRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "titlechain_fhe_relayer_requests_total",
			Help: "Requests to the remote coprocessor by endpoint and status class",
		}, []string{"endpoint", "status"}),
		RelayerBreakerOpen: factory.NewGauge(prometheus.GaugeOpts{
			Name: "titlechain_fhe_relayer_breaker_open",
			Help: "1 when the coprocessor circuit breaker is open",
		}),
	}
}

// ObserveOperation records one operation. Call with time.Now() at the start.
func (m *Metrics) ObserveOperation(op string, start time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.Operations.WithLabelValues(op, result).Inc()
	m.OperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// IncrementProofVerification records a verification outcome.
func (m *Metrics) IncrementProofVerification(outcome string) {
	m.ProofVerifications.WithLabelValues(outcome).Inc()
}

// IncrementRelayerRequest records a coprocessor request.
func (m *Metrics) IncrementRelayerRequest(endpoint, status string) {
	m.RelayerRequests.WithLabelValues(endpoint, status).Inc()
}

// SetRelayerBreakerOpen mirrors the breaker state.
func (m *Metrics) SetRelayerBreakerOpen(open bool) {
	if open {
		m.RelayerBreakerOpen.Set(1)
		return
	}
	m.RelayerBreakerOpen.Set(0)
}
