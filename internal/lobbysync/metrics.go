package lobbysync

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts sync activity. A nil *Metrics records nothing.
type Metrics struct {
	polls        *prometheus.CounterVec
	submits      *prometheus.CounterVec
	phaseChanges prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		polls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "dipclient",
				Subsystem: "sync",
				Name:      "polls_total",
				Help:      "Polls by outcome.",
			},
			[]string{"result"},
		),
		submits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "dipclient",
				Subsystem: "sync",
				Name:      "submits_total",
				Help:      "Order submissions by outcome.",
			},
			[]string{"result"},
		),
		phaseChanges: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "dipclient",
				Subsystem: "sync",
				Name:      "phase_changes_total",
				Help:      "Phase changes observed.",
			},
		),
	}
	if reg != nil {
		reg.MustRegister(m.polls, m.submits, m.phaseChanges)
	}
	return m
}

func (m *Metrics) poll(result string) {
	if m == nil {
		return
	}
	m.polls.WithLabelValues(result).Inc()
}

func (m *Metrics) submit(result string) {
	if m == nil {
		return
	}
	m.submits.WithLabelValues(result).Inc()
}

func (m *Metrics) phaseChanged() {
	if m == nil {
		return
	}
	m.phaseChanges.Inc()
}
