package storage

import (
	"context"
	"encoding/binary"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/pkg/errors"
)

// PebbleStore keeps pages in a pebble LSM keyed by big-endian page id.
type PebbleStore struct {
	db *pebble.DB
}

// NewPebbleStore opens pebble at path, or an in-memory filesystem when path is empty.
func NewPebbleStore(path string) (*PebbleStore, error) {
	opts := &pebble.Options{}
	if path == "" {
		opts.FS = vfs.NewMem()
	}
	db, err := pebble.Open(path, opts)
	if err != nil {
		return nil, errors.Wrapf(err, "open pebble store at %q", path)
	}
	return &PebbleStore{db: db}, nil
}

func pebbleKey(id uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, id)
	return key
}

func (s *PebbleStore) Read(_ context.Context, id uint64) ([]byte, error) {
	value, closer, err := s.db.Get(pebbleKey(id))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, ErrPageNotFound
		}
		return nil, errors.Wrapf(err, "read page %d", id)
	}
	defer closer.Close()
	return append([]byte(nil), value...), nil
}

func (s *PebbleStore) Write(_ context.Context, id uint64, data []byte) error {
	if err := s.db.Set(pebbleKey(id), data, pebble.NoSync); err != nil {
		return errors.Wrapf(err, "write page %d", id)
	}
	return nil
}

func (s *PebbleStore) Close() error {
	if err := s.db.Flush(); err != nil {
		return errors.Wrap(err, "flush pebble store")
	}
	return s.db.Close()
}
