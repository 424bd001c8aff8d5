package storage

import (
	"context"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/Borislavv/page-hazard/pkg/config"
	"github.com/Borislavv/page-hazard/pkg/model"
	"github.com/Borislavv/page-hazard/pkg/utils"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

var evictionStatCh = make(chan EvictionStat, runtime.GOMAXPROCS(0)*4)

// EvictionStat carries statistics for each eviction pass.
type EvictionStat struct {
	items    int   // evicted pages
	backoffs int   // pages skipped because a session referenced them
	freedMem int64 // bytes returned to the buffer pool
}

func (s EvictionStat) Items() int      { return s.items }
func (s EvictionStat) Backoffs() int   { return s.backoffs }
func (s EvictionStat) FreedMem() int64 { return s.freedMem }

// Evictor keeps the resident page count under the configured threshold. It walks the clock
// queue, gives recently touched pages a second chance and reclaims only pages no session
// holds a hazard reference on.
type Evictor struct {
	ctx       context.Context
	cfg       *config.Config
	cache     *Cache
	threshold int
	batch     []uint64
	wg        sync.WaitGroup
}

func NewEvictor(ctx context.Context, cfg *config.Config, cache *Cache) *Evictor {
	batch := cfg.Cache.Eviction.Batch
	if batch < 1 {
		batch = 1
	}
	return &Evictor{
		ctx:       ctx,
		cfg:       cfg,
		cache:     cache,
		threshold: cfg.EvictionThreshold(),
		batch:     make([]uint64, 0, batch),
	}
}

// Run starts the background eviction loop when eviction is enabled.
func (e *Evictor) Run() *Evictor {
	if !e.cfg.Cache.Eviction.Enabled {
		log.Info().Msg("[evictor] disabled")
		return e
	}

	e.runLogger()

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		t := utils.NewTicker(e.ctx, e.cfg.Cache.Eviction.Interval)
		for {
			select {
			case <-e.ctx.Done():
				return
			case <-t:
				stat := e.EvictUntilWithinLimit()
				if stat.items > 0 || stat.backoffs > 0 {
					select {
					case <-e.ctx.Done():
						return
					case evictionStatCh <- stat:
					}
				}
			}
		}
	}()

	return e
}

// Wait blocks until the eviction loop started by Run has exited.
func (e *Evictor) Wait() {
	e.wg.Wait()
}

// ShouldEvict reports whether the resident page count is above the threshold.
func (e *Evictor) ShouldEvict() bool {
	return e.cache.Resident() > e.threshold
}

// EvictUntilWithinLimit evicts until the cache is under the threshold or every candidate was
// visited twice (pinned pages can keep it above).
func (e *Evictor) EvictUntilWithinLimit() (stat EvictionStat) {
	visits := 2 * (e.cache.Len() + 1)
	refilled := false

	for e.ShouldEvict() && visits > 0 {
		e.batch = e.cache.clock.Drain(e.batch[:0], cap(e.batch))
		if len(e.batch) == 0 {
			if refilled {
				return stat
			}
			e.refill()
			refilled = true
			continue
		}

		for _, id := range e.batch {
			visits--
			if !e.ShouldEvict() {
				e.cache.clock.Push(id)
				continue
			}
			p, ok := e.cache.pages.Get(id)
			if !ok || p.State() != model.InMemory {
				continue
			}
			if p.ClearAccessed() {
				e.cache.clock.Push(id)
				continue
			}

			freed, err := e.EvictPage(p)
			switch {
			case err == nil:
				stat.items++
				stat.freedMem += int64(freed)
			case errors.Is(err, ErrPageReferenced):
				stat.backoffs++
				e.cache.clock.Push(id)
			case errors.Is(err, ErrPageNotResident):
			default:
				log.Error().Err(err).Uint64("page", id).Msg("[evictor] failed to evict page")
				e.cache.clock.Push(id)
			}
		}
	}
	return stat
}

// refill re-queues every resident page after the clock queue overflowed.
func (e *Evictor) refill() {
	e.cache.pages.Range(func(id uint64, p *model.Page) bool {
		if p.State() == model.InMemory {
			return e.cache.clock.Push(id)
		}
		return true
	})
}

// EvictPage tries to reclaim p. It locks the page, then looks for hazard references; if any
// session holds one the page goes back to InMemory and ErrPageReferenced is returned.
func (e *Evictor) EvictPage(p *model.Page) (freed int, err error) {
	if !p.CompareAndSwapState(model.InMemory, model.LockedForEviction) {
		return 0, errors.Wrapf(ErrPageNotResident, "page %d is %s", p.ID(), p.State())
	}

	c := e.cache
	manager := c.conn.Manager()
	if sessionID, found := manager.Referenced(c.conn, p); found {
		p.SetState(model.InMemory)
		c.meter.IncEvictionBackoff()
		return 0, errors.Wrapf(ErrPageReferenced, "page %d by session %d", p.ID(), sessionID)
	}

	if p.IsDirty() {
		if err = c.store.Write(e.ctx, p.ID(), p.Data()); err != nil {
			p.SetState(model.InMemory)
			return 0, errors.Wrapf(err, "write back page %d", p.ID())
		}
		p.MarkClean()
		c.meter.IncWriteback()
	}
	c.victims.put(p.ID(), p.Copy())

	c.pages.RemoveIf(p.ID(), func(v *model.Page) bool { return v == p })
	manager.ValidateNotReferenced(c.conn, p)

	freed = p.Reclaim()
	c.resident.Add(-1)
	p.SetState(model.Disk)
	c.meter.IncEvicted(freed)

	log.Trace().Uint64("page", p.ID()).Int("freed", freed).Msg("[evictor] page reclaimed")
	return freed, nil
}

// runLogger emits eviction stats every 5 seconds.
func (e *Evictor) runLogger() {
	go func() {
		var (
			evicted  int
			backoffs int
			freedMem int64
			ticker   = utils.NewTicker(e.ctx, 5*time.Second)
		)
	loop:
		for {
			select {
			case <-e.ctx.Done():
				return
			case stat := <-evictionStatCh:
				evicted += stat.items
				backoffs += stat.backoffs
				freedMem += stat.freedMem
			case <-ticker:
				if evicted <= 0 && backoffs <= 0 {
					continue loop
				}

				logEvent := log.Info()

				if e.cfg.IsProd() {
					logEvent.
						Str("target", "eviction").
						Str("freedMemBytes", strconv.Itoa(int(freedMem))).
						Str("evictedPages", strconv.Itoa(evicted)).
						Str("backoffs", strconv.Itoa(backoffs))
				}

				logEvent.Msgf("[evictor][5s] evicted %d pages, freed %s, backed off %d times",
					evicted, utils.FmtMem(freedMem), backoffs)

				evicted, backoffs, freedMem = 0, 0, 0
			}
		}
	}()
}
