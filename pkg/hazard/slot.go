package hazard

import (
	"sync/atomic"

	"github.com/Borislavv/page-hazard/pkg/model"
)

// Slot is one hazard announcement. A nil page means the slot is free.
type Slot struct {
	page atomic.Pointer[model.Page]
	site atomic.Pointer[Site]
}

// Page returns the pinned page or nil.
func (s *Slot) Page() *model.Page {
	return s.page.Load()
}

func (s *Slot) IsFree() bool {
	return s.page.Load() == nil
}

// Site returns the recorded acquire site, nil unless diagnostics were on.
func (s *Slot) Site() *Site {
	return s.site.Load()
}

// publish makes p visible to every goroutine scanning the table. The site goes first so a
// scanner that sees the page also sees where it came from.
func (s *Slot) publish(p *model.Page, site *Site) {
	s.site.Store(site)
	s.page.Store(p)
}

// clear frees the slot. The store publishes every write the owner made to the page while
// holding it before the slot reads as free.
func (s *Slot) clear() {
	s.page.Store(nil)
}
