// Package hazard implements hazard references for the page cache.
//
// A reader publishes the page it is about to dereference into a free slot of its own
// session table, then re-reads the page state. If the page is still InMemory the reader
// may use it until Release; otherwise the slot is rolled back and the reader must treat
// the page as gone. The evictor mirrors the dance: it flips the page to
// LockedForEviction first and only then scans every session table (Manager.Referenced).
// Go atomics are sequentially consistent, so the publish store and the state load cannot
// be reordered and exactly one side observes the other.
//
// Each Table has a single writer (the goroutine bound to its session) and any number of
// readers. Slots are announcements, not reference counts: pinning the same page twice takes
// two slots.
//
// Diagnostics (source sites, DumpActive, ValidateNotReferenced) are switched on by the
// hazard.diagnostics config key or by building with the hazarddiag tag.
package hazard
