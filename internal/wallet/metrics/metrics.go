package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks wallet session activity.
type Metrics struct {
	Connects       prometheus.Counter
	Disconnects    prometheus.Counter
	ResolveResults *prometheus.CounterVec
	SignInRejects  *prometheus.CounterVec
}

// New registers the wallet metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Connects: f.NewCounter(prometheus.CounterOpts{
			Name: "titlechain_wallet_connects_total",
			Help: "Total number of wallet sessions created",
		}),
		Disconnects: f.NewCounter(prometheus.CounterOpts{
			Name: "titlechain_wallet_disconnects_total",
			Help: "Total number of wallet sessions disconnected",
		}),
		ResolveResults: f.NewCounterVec(prometheus.CounterOpts{
			Name: "titlechain_wallet_resolve_total",
			Help: "Session token resolutions by result",
		}, []string{"result"}),
		SignInRejects: f.NewCounterVec(prometheus.CounterOpts{
			Name: "titlechain_wallet_sign_in_rejected_total",
			Help: "Rejected wallet sign-ins by reason",
		}, []string{"reason"}),
	}
}

func (m *Metrics) IncrementConnects() {
	m.Connects.Inc()
}

func (m *Metrics) IncrementDisconnects() {
	m.Disconnects.Inc()
}

// IncrementResolve records a resolution outcome: connected, disconnected or invalid.
func (m *Metrics) IncrementResolve(result string) {
	m.ResolveResults.WithLabelValues(result).Inc()
}

// IncrementSignInRejected records why a signed connect was refused.
func (m *Metrics) IncrementSignInRejected(reason string) {
	m.SignInRejects.WithLabelValues(reason).Inc()
}
