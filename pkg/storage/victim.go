package storage

import (
	"github.com/Borislavv/page-hazard/pkg/config"
	"github.com/dgraph-io/ristretto"
	"github.com/pkg/errors"
)

const minVictimCounters = 1 << 10

// victims holds clean copies of recently evicted pages so a quick re-read skips the store.
type victims struct {
	cache *ristretto.Cache
}

func newVictims(cfg config.Victim) (*victims, error) {
	if !cfg.Enabled || cfg.MaxCost <= 0 {
		return nil, nil
	}
	counters := cfg.MaxCost / 64 * 10
	if counters < minVictimCounters {
		counters = minVictimCounters
	}
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: counters,
		MaxCost:     cfg.MaxCost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, errors.Wrap(err, "victim cache")
	}
	return &victims{cache: c}, nil
}

func (v *victims) put(id uint64, data []byte) {
	if v == nil {
		return
	}
	v.cache.Set(id, data, int64(len(data)))
}

// take removes the copy so the page has a single owner once reloaded.
func (v *victims) take(id uint64) ([]byte, bool) {
	if v == nil {
		return nil, false
	}
	val, ok := v.cache.Get(id)
	if !ok {
		return nil, false
	}
	v.cache.Del(id)
	data, ok := val.([]byte)
	return data, ok
}

func (v *victims) drop(id uint64) {
	if v != nil {
		v.cache.Del(id)
	}
}

func (v *victims) close() {
	if v != nil {
		v.cache.Close()
	}
}
