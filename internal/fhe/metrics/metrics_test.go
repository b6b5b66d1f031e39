package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	m := NewWithRegisterer(prometheus.NewRegistry())

	m.ObserveOperation("encrypt", time.Now(), nil)
	m.ObserveOperation("encrypt", time.Now(), errors.New("boom"))
	m.IncrementProofVerification("valid")
	m.IncrementRelayerRequest("encrypt", "2xx")
	m.SetRelayerBreakerOpen(true)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Operations.WithLabelValues("encrypt", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Operations.WithLabelValues("encrypt", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ProofVerifications.WithLabelValues("valid")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RelayerRequests.WithLabelValues("encrypt", "2xx")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RelayerBreakerOpen))

	m.SetRelayerBreakerOpen(false)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.RelayerBreakerOpen))
}
