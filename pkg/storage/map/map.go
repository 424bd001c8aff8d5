package sharded

import (
	"encoding/binary"

	"github.com/zeebo/xxh3"
)

const (
	NumOfShards  = 256
	shardMask    = NumOfShards - 1
	defaultShLen = 64
)

// Map is a page id keyed map split into NumOfShards independently locked shards.
type Map[V any] struct {
	shards [NumOfShards]*Shard[V]
}

func NewMap[V any](defaultLen int) *Map[V] {
	perShard := defaultLen / NumOfShards
	if perShard < defaultShLen {
		perShard = defaultShLen
	}
	m := &Map[V]{}
	for i := range m.shards {
		m.shards[i] = NewShard[V](uint64(i), perShard)
	}
	return m
}

// MapKey spreads sequential page ids across shards.
func MapKey(id uint64) uint64 {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], id)
	return xxh3.Hash(b[:])
}

func (m *Map[V]) Shard(id uint64) *Shard[V] {
	return m.shards[MapKey(id)&shardMask]
}

func (m *Map[V]) Get(id uint64) (V, bool) {
	return m.Shard(id).Get(id)
}

func (m *Map[V]) SetIfAbsent(id uint64, v V) (V, bool) {
	return m.Shard(id).SetIfAbsent(id, v)
}

func (m *Map[V]) RemoveIf(id uint64, match func(V) bool) bool {
	return m.Shard(id).RemoveIf(id, match)
}

func (m *Map[V]) Len() (n int64) {
	for _, shard := range m.shards {
		n += shard.Len()
	}
	return n
}

// Range stops as soon as fn returns false.
func (m *Map[V]) Range(fn func(id uint64, v V) bool) {
	for _, shard := range m.shards {
		if !shard.Range(fn) {
			return
		}
	}
}
