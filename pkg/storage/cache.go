package storage

import (
	"context"
	"runtime"
	"sync/atomic"

	"github.com/Borislavv/page-hazard/pkg/buffer"
	"github.com/Borislavv/page-hazard/pkg/config"
	"github.com/Borislavv/page-hazard/pkg/model"
	"github.com/Borislavv/page-hazard/pkg/prometheus/metrics"
	"github.com/Borislavv/page-hazard/pkg/session"
	sharded "github.com/Borislavv/page-hazard/pkg/storage/map"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Cache maps page ids to resident pages. Sessions pin pages through it with hazard
// references; the Evictor reclaims the ones nobody references.
type Cache struct {
	ctx      context.Context
	cfg      *config.Config
	conn     *session.Connection
	store    Store
	meter    metrics.Meter
	pages    *sharded.Map[*model.Page]
	clock    *buffer.RingBuffer
	victims  *victims
	resident atomic.Int64
}

func NewCache(ctx context.Context, cfg *config.Config, conn *session.Connection, store Store, meter metrics.Meter) (*Cache, error) {
	v, err := newVictims(cfg.Cache.Victim)
	if err != nil {
		return nil, err
	}
	c := &Cache{
		ctx:     ctx,
		cfg:     cfg,
		conn:    conn,
		store:   store,
		meter:   meter,
		pages:   sharded.NewMap[*model.Page](cfg.Cache.MaxPages),
		clock:   buffer.NewRingBuffer(cfg.Cache.MaxPages * 2),
		victims: v,
	}
	meter.RegisterResidentPages(func() float64 { return float64(c.resident.Load()) })
	return c, nil
}

func (c *Cache) Connection() *session.Connection { return c.conn }

func (c *Cache) Store() Store { return c.store }

// Resident returns the number of pages holding a buffer.
func (c *Cache) Resident() int { return int(c.resident.Load()) }

// Len returns the number of pages in the map, including ones still loading.
func (c *Cache) Len() int { return int(c.pages.Len()) }

// Peek returns the mapped page without pinning it. The page must not be read.
func (c *Cache) Peek(id uint64) (*model.Page, bool) {
	return c.pages.Get(id)
}

// Get returns page id pinned by s. Every successful Get must be paired with a Put.
func (c *Cache) Get(s *session.Session, id uint64) (*model.Page, error) {
	for attempt := 0; attempt <= c.cfg.Cache.GetRetries; attempt++ {
		p, err := c.lookup(id)
		if err != nil {
			return nil, err
		}
		if s.Acquire(p) {
			p.Touch()
			return p, nil
		}
		// a failed Acquire holds no slot, so a full table is the session's own doing
		if _, free := s.Hazards().FirstFree(); !free {
			return nil, ErrBusy
		}
		// the page is loading or being evicted, let the other side finish
		runtime.Gosched()
	}
	return nil, errors.Wrapf(ErrRetriesExhausted, "page %d", id)
}

// Put releases the hazard reference taken by Get.
func (c *Cache) Put(s *session.Session, p *model.Page) {
	s.Release(p)
}

// Write copies data into p at off. The session must hold p. Page contents are not latched,
// so concurrent readers of p are the caller's concern.
func (c *Cache) Write(s *session.Session, p *model.Page, off int, data []byte) error {
	if _, held := s.Hazards().Find(p); !held {
		return errors.Wrapf(ErrPageNotResident, "page %d is not held by session %d", p.ID(), s.ID())
	}
	if off < 0 || off+len(data) > c.cfg.Cache.PageSize {
		return errors.Wrapf(ErrOutOfRange, "page %d write [%d:%d]", p.ID(), off, off+len(data))
	}
	if !p.WriteAt(off, data) {
		return errors.Wrapf(ErrPageNotResident, "page %d", p.ID())
	}
	return nil
}

// NewPage inserts a dirty page with data and returns it pinned by s.
func (c *Cache) NewPage(s *session.Session, id uint64, data []byte) (*model.Page, error) {
	if len(data) > c.cfg.Cache.PageSize {
		return nil, errors.Wrapf(ErrOutOfRange, "page %d of %d bytes", id, len(data))
	}
	p := model.NewPage(id)
	p.SetState(model.Reading)
	if _, inserted := c.pages.SetIfAbsent(id, p); !inserted {
		return nil, errors.Errorf("page %d already cached", id)
	}
	p.Load(data)
	p.MarkDirty()
	c.admit(p)
	if !s.Acquire(p) {
		return nil, ErrBusy
	}
	return p, nil
}

// lookup returns the mapped page or loads it. Concurrent misses on one id load once.
func (c *Cache) lookup(id uint64) (*model.Page, error) {
	if p, ok := c.pages.Get(id); ok {
		return p, nil
	}

	p := model.NewPage(id)
	p.SetState(model.Reading)
	if actual, inserted := c.pages.SetIfAbsent(id, p); !inserted {
		return actual, nil
	}

	data, ok := c.victims.take(id)
	if ok {
		c.meter.IncVictimHit()
	} else {
		var err error
		if data, err = c.store.Read(c.ctx, id); err != nil {
			c.pages.RemoveIf(id, func(v *model.Page) bool { return v == p })
			p.SetState(model.Disk)
			return nil, errors.Wrapf(err, "load page %d", id)
		}
		c.victims.drop(id)
	}

	p.Load(data)
	c.admit(p)
	return p, nil
}

// admit publishes a loaded page to readers and queues it for the clock.
func (c *Cache) admit(p *model.Page) {
	c.resident.Add(1)
	p.SetState(model.InMemory)
	if !c.clock.Push(p.ID()) {
		log.Debug().Uint64("page", p.ID()).Msg("[cache] clock queue is full, page will be found by map scan")
	}
}

// Close writes back dirty pages and closes the store. Sessions must be closed first.
func (c *Cache) Close() error {
	var firstErr error
	c.pages.Range(func(id uint64, p *model.Page) bool {
		if p.State() == model.InMemory && p.IsDirty() {
			if err := c.store.Write(context.Background(), id, p.Data()); err != nil && firstErr == nil {
				firstErr = err
			}
			p.MarkClean()
		}
		return true
	})
	c.victims.close()
	if err := c.store.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
