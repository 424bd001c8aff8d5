package hazard

import "github.com/Borislavv/page-hazard/pkg/model"

// Table is a fixed-capacity array of hazard slots owned by one session.
// Only the owner writes; any goroutine may read. There is no locking.
type Table struct {
	slots []Slot
}

func NewTable(capacity int) (*Table, error) {
	if capacity < 1 {
		return nil, ErrInvalidCapacity
	}
	return &Table{slots: make([]Slot, capacity)}, nil
}

func (t *Table) Cap() int {
	return len(t.slots)
}

// Slot returns the slot at index i.
func (t *Table) Slot(i int) *Slot {
	return &t.slots[i]
}

// FirstFree returns the index of the lowest free slot.
func (t *Table) FirstFree() (int, bool) {
	for i := range t.slots {
		if t.slots[i].IsFree() {
			return i, true
		}
	}
	return -1, false
}

// Find returns the index of the lowest slot currently holding p.
func (t *Table) Find(p *model.Page) (int, bool) {
	if p == nil {
		return -1, false
	}
	for i := range t.slots {
		if t.slots[i].Page() == p {
			return i, true
		}
	}
	return -1, false
}

// Range calls fn for every slot in index order until fn returns false.
func (t *Table) Range(fn func(i int, s *Slot) bool) {
	for i := range t.slots {
		if !fn(i, &t.slots[i]) {
			return
		}
	}
}

// Occupied counts slots holding a page. It is a racy snapshot when read by a non-owner.
func (t *Table) Occupied() (n int) {
	for i := range t.slots {
		if !t.slots[i].IsFree() {
			n++
		}
	}
	return n
}
