package liveness

import (
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"
)

const ProbePath = "/k8s/probe"

var (
	aliveBytes    = []byte(`{"status":200,"message":"alive"}`)
	notAliveBytes = []byte(`{"status":503,"message":"not alive"}`)
)

type Controller struct {
	probe Prober
}

func NewController(probe Prober) *Controller {
	return &Controller{probe: probe}
}

func (c *Controller) Probe(ctx *fasthttp.RequestCtx) {
	ctx.SetContentType("application/json")
	if c.probe.IsAlive() {
		ctx.SetStatusCode(fasthttp.StatusOK)
		ctx.SetBody(aliveBytes)
		return
	}
	ctx.SetStatusCode(fasthttp.StatusServiceUnavailable)
	ctx.SetBody(notAliveBytes)
}

func (c *Controller) AddRoute(r *router.Router) {
	r.GET(ProbePath, c.Probe)
}
