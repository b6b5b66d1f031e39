package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks registry activity.
type Metrics struct {
	Registrations       *prometheus.CounterVec
	Transfers           *prometheus.CounterVec
	PortfolioValuations prometheus.Counter
	PortfolioSize       prometheus.Histogram
	Disclosures         *prometheus.CounterVec
}

// New registers the registry metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Registrations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "titlechain_property_registrations_total",
			Help: "Property registrations by result",
		}, []string{"result"}),
		Transfers: f.NewCounterVec(prometheus.CounterOpts{
			Name: "titlechain_property_transfers_total",
			Help: "Property transfers by result",
		}, []string{"result"}),
		PortfolioValuations: f.NewCounter(prometheus.CounterOpts{
			Name: "titlechain_property_portfolio_valuations_total",
			Help: "Encrypted portfolio valuations computed",
		}),
		PortfolioSize: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "titlechain_property_portfolio_size",
			Help:    "Number of properties summed per portfolio valuation",
			Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100},
		}),
		Disclosures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "titlechain_property_disclosures_total",
			Help: "Owner decryptions of property fields or portfolio totals by result",
		}, []string{"kind", "result"}),
	}
}

func (m *Metrics) ObserveRegistration(err error) {
	m.Registrations.WithLabelValues(result(err)).Inc()
}

func (m *Metrics) ObserveTransfer(err error) {
	m.Transfers.WithLabelValues(result(err)).Inc()
}

func (m *Metrics) ObservePortfolio(size int) {
	m.PortfolioValuations.Inc()
	m.PortfolioSize.Observe(float64(size))
}

func (m *Metrics) ObserveDisclosure(kind string, err error) {
	m.Disclosures.WithLabelValues(kind, result(err)).Inc()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
