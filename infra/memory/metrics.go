package memory

import "github.com/prometheus/client_golang/prometheus"

// Metrics mirrors Domain.Stats as Prometheus collectors.
type Metrics struct {
	registered prometheus.Gauge
	retired    prometheus.Gauge
	scans      prometheus.Counter
	reclaimed  prometheus.Counter
}

func newMetrics(name string) *Metrics {
	labels := prometheus.Labels{"domain": name}
	return &Metrics{
		registered: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "rcud",
			Subsystem:   "hazard",
			Name:        "registered_slots",
			Help:        "Hazard slots currently visible to scans.",
			ConstLabels: labels,
		}),
		retired: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "rcud",
			Subsystem:   "hazard",
			Name:        "retired_addresses",
			Help:        "Superseded values waiting for reclamation.",
			ConstLabels: labels,
		}),
		scans: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "rcud",
			Subsystem:   "hazard",
			Name:        "scans_total",
			Help:        "Reclamation scans performed.",
			ConstLabels: labels,
		}),
		reclaimed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "rcud",
			Subsystem:   "hazard",
			Name:        "reclaimed_total",
			Help:        "Retired values handed back to their owners.",
			ConstLabels: labels,
		}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{m.registered, m.retired, m.scans, m.reclaimed}
}

func (m *Metrics) setRegistered(n int) {
	if m != nil {
		m.registered.Set(float64(n))
	}
}

func (m *Metrics) setRetired(n int) {
	if m != nil {
		m.retired.Set(float64(n))
	}
}

func (m *Metrics) scanned(reclaimed int) {
	if m == nil {
		return
	}
	m.scans.Inc()
	m.reclaimed.Add(float64(reclaimed))
}
