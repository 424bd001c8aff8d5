package hazard

import (
	"time"

	"github.com/Borislavv/page-hazard/pkg/model"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Active describes one occupied slot.
type Active struct {
	Slot   int    `yaml:"slot"`
	PageID uint64 `yaml:"page"`
	State  string `yaml:"state"`
	Site   string `yaml:"site,omitempty"`
}

// ValidateEmpty is called once when ctx is being closed. Every occupied slot is a missing
// Release: it is reported, then cleared so the page does not stay pinned forever.
// Returns the number of leaked slots.
func (m *Manager) ValidateEmpty(ctx Context) (leaked int) {
	ctx.Hazards().Range(func(i int, s *Slot) bool {
		p := s.Page()
		if p == nil {
			return true
		}
		site := s.Site()
		s.clear()
		leaked++
		m.meter.IncResidual()
		m.reporter.Error(ctx.ID(), errors.Wrapf(ErrResidualReference,
			"session %d slot %d: page %d acquired at %s", ctx.ID(), i, p.ID(), site))
		return true
	})
	return leaked
}

// A reader that loaded p from the page map before it was unlinked may publish a slot after
// the eviction scan and clear it as soon as it sees the locked state. Such slots are waited
// out for up to transientSpins*transientWait before being treated as a violation.
const (
	transientSpins = 64
	transientWait  = 10 * time.Microsecond
)

// ValidateNotReferenced asserts that no session holds p. The caller is about to free p and
// owns it exclusively, so a lasting hit means memory safety is already gone: it is reported
// fatal. The abort is not immediate: a hit is re-scanned for up to
// transientSpins*transientWait (640µs) first, since readers that raced the page map unlink
// publish and then drop their slot within that window. No-op unless diagnostics are on.
func (m *Manager) ValidateNotReferenced(reg Registry, p *model.Page) {
	if !m.diagnostics || p == nil {
		return
	}
	for spin := 0; ; spin++ {
		holder, slot := m.holder(reg, p)
		if holder == nil {
			return
		}
		if spin < transientSpins {
			time.Sleep(transientWait)
			continue
		}
		m.meter.IncUseAfterFree()
		m.DumpActive(holder)
		m.reporter.Fatal(holder.ID(), errors.Wrapf(ErrUseAfterFreeHazard,
			"page %d: session %d slot %d acquired at %s", p.ID(), holder.ID(), slot, holder.Hazards().Slot(slot).Site()))
		return
	}
}

func (m *Manager) holder(reg Registry, p *model.Page) (holder Context, slot int) {
	reg.Range(func(ctx Context) bool {
		if i, ok := ctx.Hazards().Find(p); ok {
			holder, slot = ctx, i
			return false
		}
		return true
	})
	return holder, slot
}

// Referenced scans every session for a hazard reference on p. The evictor calls it after
// moving p to LockedForEviction; a hit means the page must be given back.
func (m *Manager) Referenced(reg Registry, p *model.Page) (sessionID uint64, found bool) {
	if holder, _ := m.holder(reg, p); holder != nil {
		return holder.ID(), true
	}
	return 0, false
}

// Snapshot lists the occupied slots of ctx. Sites are filled only when diagnostics recorded them.
func (m *Manager) Snapshot(ctx Context) []Active {
	var out []Active
	ctx.Hazards().Range(func(i int, s *Slot) bool {
		p := s.Page()
		if p == nil {
			return true
		}
		a := Active{Slot: i, PageID: p.ID(), State: p.State().String()}
		if site := s.Site(); site != nil {
			a.Site = site.String()
		}
		out = append(out, a)
		return true
	})
	return out
}

// DumpActive logs and returns the occupied slots of ctx. Nil unless diagnostics are on.
func (m *Manager) DumpActive(ctx Context) []Active {
	if !m.diagnostics {
		return nil
	}
	active := m.Snapshot(ctx)
	for _, a := range active {
		log.Warn().
			Uint64("session", ctx.ID()).
			Int("slot", a.Slot).
			Uint64("page", a.PageID).
			Str("state", a.State).
			Msgf("[hazard] hazard reference: (page %d: %s)", a.PageID, a.Site)
	}
	return active
}
