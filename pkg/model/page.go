package model

import (
	"sync"
	"sync/atomic"
)

const DefaultPageSize = 4096

var bufPool = sync.Pool{
	New: func() any {
		b := make([]byte, 0, DefaultPageSize)
		return &b
	},
}

// Page is an in-memory cached unit. Readers must hold a hazard reference on it before
// touching Data, and must re-check State after publishing that reference.
type Page struct {
	id       uint64
	state    atomic.Uint32
	dirty    atomic.Bool
	// clock bit, set on every successful pin
	accessed atomic.Bool
	// nil once reclaimed
	data     atomic.Pointer[[]byte]
	reclaims atomic.Uint64
}

// NewPage returns a page in Disk state without a buffer.
func NewPage(id uint64) *Page {
	return &Page{id: id}
}

// NewResidentPage returns an InMemory page holding a pooled copy of data.
func NewResidentPage(id uint64, data []byte) *Page {
	p := &Page{id: id}
	p.Load(data)
	p.state.Store(uint32(InMemory))
	return p
}

func (p *Page) ID() uint64 { return p.id }

// State loads the page state. Go atomics are sequentially consistent, so this load also
// orders after any preceding atomic store made by the same goroutine.
func (p *Page) State() State {
	return State(p.state.Load())
}

func (p *Page) SetState(s State) {
	p.state.Store(uint32(s))
}

func (p *Page) CompareAndSwapState(old, new State) bool {
	return p.state.CompareAndSwap(uint32(old), uint32(new))
}

// Load replaces the page buffer with a pooled copy of data. The caller must own the page
// exclusively (Reading state or not yet published).
func (p *Page) Load(data []byte) {
	buf := bufPool.Get().(*[]byte)
	*buf = append((*buf)[:0], data...)
	if old := p.data.Swap(buf); old != nil {
		putBuf(old)
	}
	p.dirty.Store(false)
}

// Data returns the page buffer, nil if the page was reclaimed. The slice is only valid while
// the caller holds a hazard reference on the page.
func (p *Page) Data() []byte {
	if b := p.data.Load(); b != nil {
		return *b
	}
	return nil
}

// Copy returns a private copy of the page contents, nil if reclaimed.
func (p *Page) Copy() []byte {
	b := p.data.Load()
	if b == nil {
		return nil
	}
	out := make([]byte, len(*b))
	copy(out, *b)
	return out
}

// WriteAt copies src into the page at off, growing the buffer when needed, and marks the page dirty.
// Returns false if the page has no buffer.
func (p *Page) WriteAt(off int, src []byte) bool {
	b := p.data.Load()
	if b == nil || off < 0 {
		return false
	}
	if need := off + len(src); need > len(*b) {
		if need > cap(*b) {
			grown := make([]byte, len(*b), need)
			copy(grown, *b)
			*b = grown
		}
		*b = (*b)[:need]
	}
	copy((*b)[off:], src)
	p.dirty.Store(true)
	return true
}

func (p *Page) IsDirty() bool    { return p.dirty.Load() }
func (p *Page) MarkClean()       { p.dirty.Store(false) }
func (p *Page) MarkDirty()       { p.dirty.Store(true) }
func (p *Page) Touch()           { p.accessed.Store(true) }
func (p *Page) IsResident() bool { return p.data.Load() != nil }

// ClearAccessed resets the clock bit and returns its previous value.
func (p *Page) ClearAccessed() bool {
	return p.accessed.Swap(false)
}

// Reclaims returns how many times the page buffer has been freed.
func (p *Page) Reclaims() uint64 {
	return p.reclaims.Load()
}

// Reclaim frees the page buffer. Only the evictor calls it, with the page in
// LockedForEviction state and after proving no hazard reference points at it.
func (p *Page) Reclaim() (freed int) {
	old := p.data.Swap(nil)
	if old == nil {
		return 0
	}
	freed = cap(*old)
	p.reclaims.Add(1)
	p.dirty.Store(false)
	p.accessed.Store(false)
	putBuf(old)
	return freed
}

func putBuf(b *[]byte) {
	// wipe so a stale reader that slipped the protocol reads zeros rather than foreign data
	clear((*b)[:cap(*b)])
	*b = (*b)[:0]
	bufPool.Put(b)
}
