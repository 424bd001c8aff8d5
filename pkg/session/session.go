package session

import (
	"sync/atomic"

	"github.com/Borislavv/page-hazard/pkg/hazard"
	"github.com/Borislavv/page-hazard/pkg/model"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

var _ hazard.Context = (*Session)(nil)

// Session is an execution context. It must be used by one goroutine at a time: that
// goroutine is the only writer of the session hazard table.
type Session struct {
	id      uint64
	idx     int // registry index
	conn    *Connection
	hazards *hazard.Table
	closed  atomic.Bool
}

func (s *Session) ID() uint64 { return s.id }

func (s *Session) Hazards() *hazard.Table { return s.hazards }

// Acquire pins p for this session, see hazard.Manager.Acquire. A closed session is no
// longer scanned by the evictor, so it never pins anything.
func (s *Session) Acquire(p *model.Page) bool {
	if s.closed.Load() {
		log.Warn().Uint64("session", s.id).Msg("[session] acquire on closed session")
		return false
	}
	return s.conn.manager.Acquire(s, p)
}

// Release unpins p, see hazard.Manager.Release. Close already released everything, so
// a release after it is fatal.
func (s *Session) Release(p *model.Page) {
	if s.closed.Load() {
		var id uint64
		if p != nil {
			id = p.ID()
		}
		s.conn.manager.Reporter().Fatal(s.id, errors.Wrapf(ErrSessionClosed, "session %d: release page %d", s.id, id))
		return
	}
	s.conn.manager.Release(s, p)
}

// Held reports how many hazard slots the session occupies.
func (s *Session) Held() int {
	return s.hazards.Occupied()
}

func (s *Session) IsClosed() bool {
	return s.closed.Load()
}

// Close validates the hazard table is empty (clearing and reporting any leak) and removes
// the session from its connection. Repeated calls are no-ops.
func (s *Session) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return ErrSessionClosed
	}
	if leaked := s.conn.manager.ValidateEmpty(s); leaked > 0 {
		log.Warn().Uint64("session", s.id).Int("leaked", leaked).Msg("[session] closed with residual hazard references")
	}
	s.conn.unregister(s)
	return nil
}
