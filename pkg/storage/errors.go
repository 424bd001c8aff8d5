package storage

import "github.com/pkg/errors"

var (
	// ErrPageNotFound means neither the cache nor the backing store holds the page.
	ErrPageNotFound = errors.New("page not found")
	// ErrBusy means the session hazard table is full.
	ErrBusy = errors.New("session has no free hazard slot")
	// ErrRetriesExhausted means the page kept being evicted under the reader.
	ErrRetriesExhausted = errors.New("page evicted during every retry")
	ErrPageReferenced   = errors.New("page is referenced by a session")
	ErrPageNotResident  = errors.New("page is not resident")
	ErrOutOfRange       = errors.New("write is out of page bounds")
)
