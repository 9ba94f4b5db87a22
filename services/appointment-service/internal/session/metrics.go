package session

import "github.com/prometheus/client_golang/prometheus"

type Metrics struct {
	initTotal *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		initTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pubike",
			Subsystem: "session",
			Name:      "initializations_total",
			Help:      "Session sign-ins by method and result.",
		}, []string{"method", "result"}),
	}
	reg.MustRegister(m.initTotal)
	return m
}

func (m *Metrics) observe(method, result string) {
	if m == nil {
		return
	}
	m.initTotal.WithLabelValues(method, result).Inc()
}
