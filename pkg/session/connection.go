package session

import (
	"sync/atomic"

	"github.com/Borislavv/page-hazard/pkg/config"
	"github.com/Borislavv/page-hazard/pkg/hazard"
	"github.com/Borislavv/page-hazard/pkg/prometheus/metrics"
	"github.com/rs/zerolog/log"
)

var _ hazard.Registry = (*Connection)(nil)

// Connection is the session registry. Sessions live at stable indices of a fixed array of
// atomic pointers, so Range never blocks Open or Close.
type Connection struct {
	capacity int
	manager  *hazard.Manager
	sessions []atomic.Pointer[Session]
	nextID   atomic.Uint64
	open     atomic.Int64
	closed   atomic.Bool
}

func NewConnection(cfg *config.Config, reporter hazard.Reporter, meter metrics.Meter) (*Connection, error) {
	if cfg.Hazard.Capacity < 1 {
		return nil, hazard.ErrInvalidCapacity
	}
	if cfg.Sessions.Max < 1 {
		return nil, ErrSessionLimit
	}
	c := &Connection{
		capacity: cfg.Hazard.Capacity,
		manager:  hazard.NewManager(cfg.Hazard, reporter, meter),
		sessions: make([]atomic.Pointer[Session], cfg.Sessions.Max),
	}
	meter.RegisterOpenSessions(func() float64 { return float64(c.open.Load()) })
	return c, nil
}

// Capacity is the hazard table size of every session.
func (c *Connection) Capacity() int { return c.capacity }

func (c *Connection) Manager() *hazard.Manager { return c.manager }

// Len returns the number of open sessions.
func (c *Connection) Len() int { return int(c.open.Load()) }

// Open creates a session with its own hazard table in the first free registry slot.
func (c *Connection) Open() (*Session, error) {
	if c.closed.Load() {
		return nil, ErrConnClosed
	}
	table, err := hazard.NewTable(c.capacity)
	if err != nil {
		return nil, err
	}
	s := &Session{
		id:      c.nextID.Add(1),
		conn:    c,
		hazards: table,
	}
	for i := range c.sessions {
		s.idx = i // published by the CAS
		if c.sessions[i].CompareAndSwap(nil, s) {
			c.open.Add(1)
			// Close may have swept this slot before the CAS landed; whichever side
			// wins the session close unregisters it.
			if c.closed.Load() {
				_ = s.Close()
				return nil, ErrConnClosed
			}
			log.Debug().Uint64("session", s.id).Int("index", i).Msg("[session] opened")
			return s, nil
		}
	}
	return nil, ErrSessionLimit
}

// Range calls fn for every open session until fn returns false.
func (c *Connection) Range(fn func(ctx hazard.Context) bool) {
	for i := range c.sessions {
		if s := c.sessions[i].Load(); s != nil {
			if !fn(s) {
				return
			}
		}
	}
}

// Session returns the open session with id.
func (c *Connection) Session(id uint64) (*Session, bool) {
	for i := range c.sessions {
		if s := c.sessions[i].Load(); s != nil && s.id == id {
			return s, true
		}
	}
	return nil, false
}

// Close closes every open session and refuses new ones. The goroutines owning those
// sessions must have finished: each session table has a single writer.
func (c *Connection) Close() {
	if !c.closed.CompareAndSwap(false, true) {
		return
	}
	for i := range c.sessions {
		if s := c.sessions[i].Load(); s != nil {
			_ = s.Close()
		}
	}
	log.Info().Msg("[session] connection closed")
}

func (c *Connection) unregister(s *Session) {
	if c.sessions[s.idx].CompareAndSwap(s, nil) {
		c.open.Add(-1)
		log.Debug().Uint64("session", s.id).Msg("[session] closed")
	}
}
