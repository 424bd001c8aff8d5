package liveness

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
)

// Service is anything that can answer whether it is still healthy.
type Service interface {
	IsAlive(ctx context.Context) bool
}

type Prober interface {
	Watch(services ...Service)
	IsAlive() bool
	Stop()
}

// Probe polls watched services every timeout; it is alive only while all of them are.
type Probe struct {
	timeout time.Duration
	alive   atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewProbe(timeout time.Duration) *Probe {
	if timeout <= 0 {
		timeout = time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Probe{timeout: timeout, ctx: ctx, cancel: cancel}
}

// Watch starts polling in the background and returns immediately.
func (p *Probe) Watch(services ...Service) {
	go func() {
		t := time.NewTicker(p.timeout)
		defer t.Stop()
		for {
			p.check(services)
			select {
			case <-p.ctx.Done():
				return
			case <-t.C:
			}
		}
	}()
}

func (p *Probe) check(services []Service) {
	ctx, cancel := context.WithTimeout(p.ctx, p.timeout)
	defer cancel()

	alive := true
	for _, svc := range services {
		if !svc.IsAlive(ctx) {
			alive = false
			break
		}
	}
	if p.alive.Swap(alive) != alive && !alive {
		log.Warn().Msg("[probe] service is not alive")
	}
}

func (p *Probe) IsAlive() bool {
	return p.alive.Load()
}

func (p *Probe) Stop() {
	p.cancel()
}
