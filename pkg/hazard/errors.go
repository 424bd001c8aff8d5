package hazard

import "github.com/pkg/errors"

var (
	// ErrTableFull means every slot of the session table is occupied. Recoverable: the
	// caller treats the page as unpinned and backs off.
	ErrTableFull = errors.New("there are no more hazard reference slots in the session")
	// ErrReferenceNotFound means Release was called for a page the session does not hold.
	ErrReferenceNotFound = errors.New("hazard reference not found")
	// ErrNilPage means a nil page was passed to Acquire or Release.
	ErrNilPage = errors.New("nil page passed as hazard reference")
	// ErrResidualReference means a slot was still occupied at session close.
	ErrResidualReference = errors.New("unexpected hazard reference at session close")
	// ErrUseAfterFreeHazard means a page about to be freed is still hazard-protected.
	ErrUseAfterFreeHazard = errors.New("discarded page has hazard reference")
	// ErrInvalidCapacity means a table was requested with fewer than one slot.
	ErrInvalidCapacity = errors.New("hazard table capacity must be positive")
)

// IsFatal reports whether err is an invariant violation the process must not survive.
func IsFatal(err error) bool {
	return errors.Is(err, ErrReferenceNotFound) ||
		errors.Is(err, ErrNilPage) ||
		errors.Is(err, ErrUseAfterFreeHazard)
}
