package hazard

import (
	"github.com/Borislavv/page-hazard/pkg/config"
	"github.com/Borislavv/page-hazard/pkg/model"
	"github.com/Borislavv/page-hazard/pkg/prometheus/metrics"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// Context is an execution context (session) owning one hazard table.
type Context interface {
	ID() uint64
	Hazards() *Table
}

// Registry enumerates live execution contexts.
type Registry interface {
	Range(fn func(ctx Context) bool)
}

// Manager runs the hazard protocol over session tables. It holds no per-session state and
// is safe for concurrent use.
type Manager struct {
	diagnostics bool
	reporter    Reporter
	meter       metrics.Meter
	limiter     *rate.Limiter // throttles table-full reports, nil means unlimited
}

func NewManager(cfg config.Hazard, reporter Reporter, meter metrics.Meter) *Manager {
	m := &Manager{
		diagnostics: cfg.Diagnostics || compiledDiagnostics,
		reporter:    reporter,
		meter:       meter,
	}
	if cfg.ReportRate > 0 {
		burst := cfg.ReportBurst
		if burst < 1 {
			burst = 1
		}
		m.limiter = rate.NewLimiter(rate.Limit(cfg.ReportRate), burst)
	}
	return m
}

// Reporter returns the sink violations are reported to.
func (m *Manager) Reporter() Reporter {
	return m.reporter
}

// Diagnostics reports whether site capture and cross-session validation are on.
func (m *Manager) Diagnostics() bool {
	return m.diagnostics
}

// Acquire pins p in ctx's table. It returns true if the caller may dereference p until the
// matching Release. False means either the table is full or the evictor got to the page
// first; in both cases no slot is held and the page must not be used.
func (m *Manager) Acquire(ctx Context, p *model.Page) bool {
	if p == nil {
		m.reporter.Fatal(ctx.ID(), errors.Wrapf(ErrNilPage, "session %d: acquire", ctx.ID()))
		return false
	}

	t := ctx.Hazards()
	i, ok := t.FirstFree()
	if !ok {
		m.meter.IncTableFull()
		if m.limiter == nil || m.limiter.Allow() {
			m.reporter.Error(ctx.ID(), errors.Wrapf(ErrTableFull, "session %d: %d slots in use", ctx.ID(), t.Cap()))
		}
		if m.diagnostics {
			m.DumpActive(ctx)
		}
		return false
	}

	var site *Site
	if m.diagnostics {
		site = captureSite()
	}

	// Publish, then re-check. The evictor locks the page before scanning tables, so
	// either it sees this slot and backs off, or this load sees its lock.
	slot := t.Slot(i)
	slot.publish(p, site)
	if p.State() == model.InMemory {
		m.meter.IncAcquired()
		log.Trace().Uint64("session", ctx.ID()).Uint64("page", p.ID()).Int("slot", i).Msg("[hazard] set")
		return true
	}

	// The page is being evicted (or already gone). If the evictor saw the slot it will
	// give the page back; either way it is not ours.
	slot.clear()
	m.meter.IncLostRace()
	return false
}

// Release drops the hazard reference ctx holds on p. Releasing a page the session does not
// hold is fatal.
func (m *Manager) Release(ctx Context, p *model.Page) {
	if p == nil {
		m.reporter.Fatal(ctx.ID(), errors.Wrapf(ErrNilPage, "session %d: release", ctx.ID()))
		return
	}

	t := ctx.Hazards()
	if i, ok := t.Find(p); ok {
		t.Slot(i).clear()
		m.meter.IncReleased()
		log.Trace().Uint64("session", ctx.ID()).Uint64("page", p.ID()).Int("slot", i).Msg("[hazard] clr")
		return
	}

	m.reporter.Fatal(ctx.ID(), errors.Wrapf(ErrReferenceNotFound, "session %d: page %d", ctx.ID(), p.ID()))
}
