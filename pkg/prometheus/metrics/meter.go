package metrics

import (
	"github.com/Borislavv/page-hazard/pkg/prometheus/metrics/keyword"
	"github.com/VictoriaMetrics/metrics"
)

// Meter records hazard protocol and eviction outcomes.
type Meter interface {
	IncAcquired()
	IncTableFull()
	IncLostRace()
	IncReleased()
	IncResidual()
	IncUseAfterFree()
	IncEvicted(freedBytes int)
	IncEvictionBackoff()
	IncWriteback()
	IncVictimHit()
	RegisterResidentPages(fn func() float64)
	RegisterOpenSessions(fn func() float64)
}

// Metrics is a Meter on top of the VictoriaMetrics default registry.
type Metrics struct {
	acquired     *metrics.Counter
	tableFull    *metrics.Counter
	lostRace     *metrics.Counter
	released     *metrics.Counter
	residual     *metrics.Counter
	useAfterFree *metrics.Counter
	evicted      *metrics.Counter
	freedBytes   *metrics.Counter
	backoff      *metrics.Counter
	writebacks   *metrics.Counter
	victimHits   *metrics.Counter
}

func New() *Metrics {
	return &Metrics{
		acquired:     metrics.GetOrCreateCounter(keyword.AcquireOk),
		tableFull:    metrics.GetOrCreateCounter(keyword.AcquireTableFull),
		lostRace:     metrics.GetOrCreateCounter(keyword.AcquireLostRace),
		released:     metrics.GetOrCreateCounter(keyword.Released),
		residual:     metrics.GetOrCreateCounter(keyword.Residual),
		useAfterFree: metrics.GetOrCreateCounter(keyword.UseAfterFreeHazard),
		evicted:      metrics.GetOrCreateCounter(keyword.Evicted),
		freedBytes:   metrics.GetOrCreateCounter(keyword.FreedBytes),
		backoff:      metrics.GetOrCreateCounter(keyword.EvictionBackoff),
		writebacks:   metrics.GetOrCreateCounter(keyword.Writebacks),
		victimHits:   metrics.GetOrCreateCounter(keyword.VictimHits),
	}
}

func (m *Metrics) IncAcquired()        { m.acquired.Inc() }
func (m *Metrics) IncTableFull()       { m.tableFull.Inc() }
func (m *Metrics) IncLostRace()        { m.lostRace.Inc() }
func (m *Metrics) IncReleased()        { m.released.Inc() }
func (m *Metrics) IncResidual()        { m.residual.Inc() }
func (m *Metrics) IncUseAfterFree()    { m.useAfterFree.Inc() }
func (m *Metrics) IncEvictionBackoff() { m.backoff.Inc() }
func (m *Metrics) IncWriteback()       { m.writebacks.Inc() }
func (m *Metrics) IncVictimHit()       { m.victimHits.Inc() }

func (m *Metrics) IncEvicted(freedBytes int) {
	m.evicted.Inc()
	m.freedBytes.Add(freedBytes)
}

// RegisterResidentPages exposes the resident page count. The first registered callback wins.
func (m *Metrics) RegisterResidentPages(fn func() float64) {
	metrics.GetOrCreateGauge(keyword.ResidentPages, fn)
}

// RegisterOpenSessions exposes the open session count. The first registered callback wins.
func (m *Metrics) RegisterOpenSessions(fn func() float64) {
	metrics.GetOrCreateGauge(keyword.OpenSessions, fn)
}
