package model

import "strconv"

// State is the residency state of a page. It lives in one atomic uint32 on the Page and is
// only mutated by the cache (loading) and the evictor (locking and reclaiming).
type State uint32

const (
	// Disk means the page is not resident, its data pointer is nil.
	Disk State = iota
	// Reading means a loader owns the page and is filling its buffer.
	Reading
	// InMemory means the page is resident and safe to read.
	InMemory
	// LockedForEviction means the evictor owns the page and may reclaim it at any moment.
	LockedForEviction
)

var stateNames = [...]string{
	Disk:              "disk",
	Reading:           "reading",
	InMemory:          "in-memory",
	LockedForEviction: "locked-for-eviction",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "state(" + strconv.Itoa(int(s)) + ")"
}

// IsReadable reports whether a reader may dereference data of a page in this state.
func (s State) IsReadable() bool {
	return s == InMemory
}
