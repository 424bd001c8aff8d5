package ctime

import (
	"sync/atomic"
	"time"
)

// nowUnix is a coarse clock refreshed by Start; zero until Start is called.
var nowUnix atomic.Int64

// Start refreshes the clock every resolution and returns a stop func.
func Start(resolution time.Duration) (stop func()) {
	nowUnix.Store(time.Now().UnixNano())
	t := time.NewTicker(resolution)
	done := make(chan struct{})
	go func() {
		defer t.Stop()
		for {
			select {
			case tt := <-t.C:
				nowUnix.Store(tt.UnixNano())
			case <-done:
				return
			}
		}
	}()
	return func() { close(done) }
}

// Now falls back to time.Now when the coarse clock is not running.
func Now() time.Time {
	if n := nowUnix.Load(); n != 0 {
		return time.Unix(0, n)
	}
	return time.Now()
}

func Since(t time.Time) time.Duration { return Now().Sub(t) }
