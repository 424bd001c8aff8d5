package sharded

import (
	"sync"
	"sync/atomic"
)

// Shard is a single partition of the sharded map, guarded by its own RWMutex.
type Shard[V any] struct {
	*sync.RWMutex              // Shard-level RWMutex for concurrency
	items         map[uint64]V // page id -> value
	id            uint64       // Shard ID (index)
	len           atomic.Int64
}

// NewShard creates a new shard with its own lock and value map.
func NewShard[V any](id uint64, defaultLen int) *Shard[V] {
	return &Shard[V]{
		id:      id,
		RWMutex: &sync.RWMutex{},
		items:   make(map[uint64]V, defaultLen),
	}
}

// ID returns the numeric index of this shard.
func (shard *Shard[V]) ID() uint64 {
	return shard.id
}

func (shard *Shard[V]) Len() int64 {
	return shard.len.Load()
}

// Get returns the value stored under key.
func (shard *Shard[V]) Get(key uint64) (val V, ok bool) {
	shard.RLock()
	val, ok = shard.items[key]
	shard.RUnlock()
	return val, ok
}

// SetIfAbsent stores value unless key is present, returning whichever value ends up stored.
func (shard *Shard[V]) SetIfAbsent(key uint64, value V) (actual V, inserted bool) {
	shard.Lock()
	defer shard.Unlock()
	if cur, ok := shard.items[key]; ok {
		return cur, false
	}
	shard.items[key] = value
	shard.len.Add(1)
	return value, true
}

// RemoveIf deletes key only when match accepts the stored value.
func (shard *Shard[V]) RemoveIf(key uint64, match func(V) bool) (removed bool) {
	shard.Lock()
	defer shard.Unlock()
	v, ok := shard.items[key]
	if !ok || !match(v) {
		return false
	}
	delete(shard.items, key)
	shard.len.Add(-1)
	return true
}

// Range walks a snapshot of the shard values so fn may call back into the map.
func (shard *Shard[V]) Range(fn func(key uint64, v V) bool) bool {
	shard.RLock()
	keys := make([]uint64, 0, len(shard.items))
	vals := make([]V, 0, len(shard.items))
	for k, v := range shard.items {
		keys = append(keys, k)
		vals = append(vals, v)
	}
	shard.RUnlock()

	for i := range keys {
		if !fn(keys[i], vals[i]) {
			return false
		}
	}
	return true
}
