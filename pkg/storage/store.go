package storage

import (
	"context"
	"sync"

	"github.com/Borislavv/page-hazard/pkg/config"
	"github.com/pkg/errors"
)

// Store is the backing storage pages are read from on a miss and written back to on eviction.
type Store interface {
	Read(ctx context.Context, id uint64) ([]byte, error)
	Write(ctx context.Context, id uint64, data []byte) error
	Close() error
}

// NewStore builds the store named by cfg.Type.
func NewStore(cfg config.Store) (Store, error) {
	switch cfg.Type {
	case config.StoreMemory, "":
		return NewMemoryStore(), nil
	case config.StorePebble:
		return NewPebbleStore(cfg.Path)
	default:
		return nil, errors.Errorf("unknown store type %q", cfg.Type)
	}
}

type MemoryStore struct {
	mu    sync.RWMutex
	pages map[uint64][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{pages: make(map[uint64][]byte)}
}

func (s *MemoryStore) Read(_ context.Context, id uint64) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.pages[id]
	if !ok {
		return nil, ErrPageNotFound
	}
	return append([]byte(nil), data...), nil
}

func (s *MemoryStore) Write(_ context.Context, id uint64, data []byte) error {
	cp := append([]byte(nil), data...)
	s.mu.Lock()
	s.pages[id] = cp
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Close() error { return nil }
