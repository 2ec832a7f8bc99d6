package runtime

import "github.com/prometheus/client_golang/prometheus"

// facadeMetrics counts facade operations by type and outcome. A nil receiver
// is a no-op, so metrics stay entirely optional.
type facadeMetrics struct {
	operations *prometheus.CounterVec
}

func newFacadeMetrics(reg prometheus.Registerer) *facadeMetrics {
	operations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mfuses",
		Subsystem: "facade",
		Name:      "operations_total",
		Help:      "Facade operations by type (call, emit, broadcast) and outcome.",
	}, []string{"op", "outcome"})
	reg.MustRegister(operations)
	return &facadeMetrics{operations: operations}
}

func (m *facadeMetrics) observe(op string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.operations.WithLabelValues(op, outcome).Inc()
}
