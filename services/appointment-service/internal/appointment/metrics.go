package appointment

import "github.com/prometheus/client_golang/prometheus"

const (
	outcomeSuccess    = "success"
	outcomeValidation = "validation_error"
	outcomeNotReady   = "not_ready"
	outcomeWriteError = "write_error"
)

type Metrics struct {
	submissions *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pubike",
			Subsystem: "appointments",
			Name:      "submissions_total",
			Help:      "Appointment submissions by outcome.",
		}, []string{"outcome"}),
	}
	reg.MustRegister(m.submissions)
	return m
}

func (m *Metrics) observe(outcome string) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(outcome).Inc()
}
