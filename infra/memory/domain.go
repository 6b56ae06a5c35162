package memory

import (
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"

	"rcud/infra/sequence"
)

// DefaultScanThreshold is the retired-list length that triggers an inline scan.
const DefaultScanThreshold = 10

// Config tunes a Domain. The zero value is usable.
type Config struct {
	// Name labels the domain's metrics. Default: "default".
	Name string
	// ScanThreshold is the retired-list length at which Retire scans inline.
	ScanThreshold int
}

// Domain ties together one hazard registry and one retired list.
// Readers and writers that share values must share a domain.
type Domain struct {
	cfg      Config
	ids      *sequence.Sequencer
	registry *Registry
	retired  RetireList
	metrics  *Metrics

	scans     atomic.Uint64
	reclaimed atomic.Uint64
}

// Stats is a point-in-time view of a domain's bookkeeping.
type Stats struct {
	Registered int
	Retired    int
	Scans      uint64 // scan and drain passes
	Reclaimed  uint64
}

// NewDomain builds a domain, filling defaults into cfg.
func NewDomain(cfg Config) *Domain {
	if cfg.Name == "" {
		cfg.Name = "default"
	}
	if cfg.ScanThreshold <= 0 {
		cfg.ScanThreshold = DefaultScanThreshold
	}
	m := newMetrics(cfg.Name)
	return &Domain{
		cfg:      cfg,
		ids:      sequence.New(0),
		registry: newRegistry(m),
		metrics:  m,
	}
}

var defaultDomain = sync.OnceValue(func() *Domain {
	return NewDomain(Config{})
})

// Default returns the process-wide domain, creating it on first use.
func Default() *Domain { return defaultDomain() }

// Config returns the effective configuration.
func (d *Domain) Config() Config { return d.cfg }

// NewSlot returns an unregistered slot bound to d.
// It joins the registry the first time it publishes.
func (d *Domain) NewSlot() *Slot {
	return &Slot{id: d.ids.Next(), domain: d}
}

// Registry exposes the domain's hazard registry.
func (d *Domain) Registry() *Registry { return d.registry }

// MustRegister registers the domain's collectors with reg.
func (d *Domain) MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(d.metrics.collectors()...)
}

// Stats returns current counters.
func (d *Domain) Stats() Stats {
	return Stats{
		Registered: d.registry.Len(),
		Retired:    d.retired.Len(),
		Scans:      d.scans.Load(),
		Reclaimed:  d.reclaimed.Load(),
	}
}
