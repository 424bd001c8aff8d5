package utils

import (
	"context"
	"time"

	"github.com/Borislavv/page-hazard/pkg/ctime"
)

// NewTicker emits one tick immediately and then every interval until ctx is done,
// at which point the channel is closed.
func NewTicker(ctx context.Context, interval time.Duration) <-chan time.Time {
	tickCh := make(chan time.Time, 1)
	tickCh <- ctime.Now()

	go func() {
		ticker := time.NewTicker(interval)
		defer func() {
			ticker.Stop()
			close(tickCh)
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case t := <-ticker.C:
				select {
				case tickCh <- t:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return tickCh
}
