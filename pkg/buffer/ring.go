package buffer

import (
	"sync/atomic"
)

type cell struct {
	seq atomic.Uint64
	val uint64
}

// RingBuffer is a bounded MPMC queue of page ids. Each cell carries a sequence number
// that tells producers and consumers whose turn it is, so Push and Pop never block.
type RingBuffer struct {
	buf      []cell
	mask     uint64
	_        [56]byte
	head     atomic.Uint64 // next push position
	_        [56]byte
	tail     atomic.Uint64 // next pop position
	capacity uint64
}

// NewRingBuffer rounds size up to a power of two.
func NewRingBuffer(size int) *RingBuffer {
	n := uint64(1)
	for n < uint64(size) {
		n <<= 1
	}
	r := &RingBuffer{
		buf:      make([]cell, n),
		capacity: n,
		mask:     n - 1,
	}
	for i := range r.buf {
		r.buf[i].seq.Store(uint64(i))
	}
	return r
}

func (r *RingBuffer) Cap() int { return int(r.capacity) }

// Len is approximate under concurrent use.
func (r *RingBuffer) Len() int {
	head, tail := r.head.Load(), r.tail.Load()
	if head < tail {
		return 0
	}
	return int(head - tail)
}

// Push returns false when the buffer is full.
func (r *RingBuffer) Push(key uint64) bool {
	for {
		pos := r.head.Load()
		c := &r.buf[pos&r.mask]
		seq := c.seq.Load()
		switch {
		case seq == pos:
			if r.head.CompareAndSwap(pos, pos+1) {
				c.val = key
				c.seq.Store(pos + 1)
				return true
			}
		case seq < pos:
			return false
		}
	}
}

// Pop returns false when the buffer is empty.
func (r *RingBuffer) Pop() (uint64, bool) {
	for {
		pos := r.tail.Load()
		c := &r.buf[pos&r.mask]
		seq := c.seq.Load()
		switch {
		case seq == pos+1:
			if r.tail.CompareAndSwap(pos, pos+1) {
				val := c.val
				c.seq.Store(pos + r.capacity)
				return val, true
			}
		case seq < pos+1:
			return 0, false
		}
	}
}

// Drain pops up to max ids into dst and returns it.
func (r *RingBuffer) Drain(dst []uint64, max int) []uint64 {
	for i := 0; i < max; i++ {
		v, ok := r.Pop()
		if !ok {
			break
		}
		dst = append(dst, v)
	}
	return dst
}
