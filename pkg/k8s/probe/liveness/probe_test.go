package liveness

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fasthttp/router"
	"github.com/stretchr/testify/assert"
	"github.com/valyala/fasthttp"
)

type fakeService struct{ alive atomic.Bool }

func (f *fakeService) IsAlive(context.Context) bool { return f.alive.Load() }

func TestProbe_WatchAndToggle(t *testing.T) {
	svc := &fakeService{}
	svc.alive.Store(true)
	probe := NewProbe(50 * time.Millisecond)
	defer probe.Stop()
	probe.Watch(svc)

	assert.Eventually(t, probe.IsAlive, time.Second, 10*time.Millisecond)

	// change state
	svc.alive.Store(false)
	assert.Eventually(t, func() bool { return !probe.IsAlive() }, time.Second, 10*time.Millisecond)
}

func TestController_ReflectsProbe(t *testing.T) {
	svc := &fakeService{}
	probe := NewProbe(10 * time.Millisecond)
	defer probe.Stop()

	r := router.New()
	NewController(probe).AddRoute(r)

	call := func() int {
		var ctx fasthttp.RequestCtx
		ctx.Request.Header.SetMethod(fasthttp.MethodGet)
		ctx.Request.SetRequestURI(ProbePath)
		r.Handler(&ctx)
		return ctx.Response.StatusCode()
	}

	assert.Equal(t, fasthttp.StatusServiceUnavailable, call())

	svc.alive.Store(true)
	probe.Watch(svc)
	assert.Eventually(t, func() bool { return call() == fasthttp.StatusOK }, time.Second, 10*time.Millisecond)
}
