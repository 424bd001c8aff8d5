package api

import (
	"strconv"

	"github.com/Borislavv/page-hazard/pkg/storage"
	serverutils "github.com/Borislavv/page-hazard/pkg/server/utils"
	"github.com/fasthttp/router"
	"github.com/pkg/errors"
	gotils "github.com/savsgio/gotils/strconv"
	"github.com/valyala/fasthttp"
	"gopkg.in/yaml.v3"
)

const (
	StatsPath = "/debug/cache"
	EvictPath = "/debug/evict/{page}"
)

type cacheStats struct {
	Resident  int  `yaml:"resident"`
	Mapped    int  `yaml:"mapped"`
	Sessions  int  `yaml:"sessions"`
	Capacity  int  `yaml:"hazard_capacity"`
	OverLimit bool `yaml:"over_limit"`
}

type evictResult struct {
	Page    uint64 `yaml:"page"`
	Evicted bool   `yaml:"evicted"`
	Freed   int    `yaml:"freed,omitempty"`
	Reason  string `yaml:"reason,omitempty"`
}

// PagesController exposes cache state and a manual single-page eviction.
type PagesController struct {
	cache   *storage.Cache
	evictor *storage.Evictor
}

func NewPagesController(cache *storage.Cache, evictor *storage.Evictor) *PagesController {
	return &PagesController{cache: cache, evictor: evictor}
}

func (c *PagesController) Stats(ctx *fasthttp.RequestCtx) {
	conn := c.cache.Connection()
	writeYAML(ctx, cacheStats{
		Resident:  c.cache.Resident(),
		Mapped:    c.cache.Len(),
		Sessions:  conn.Len(),
		Capacity:  conn.Capacity(),
		OverLimit: c.evictor.ShouldEvict(),
	})
}

// Evict tries to evict one page. A referenced page answers 409 with the holder in the reason.
func (c *PagesController) Evict(ctx *fasthttp.RequestCtx) {
	raw, _ := ctx.UserValue("page").(string)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		serverutils.WriteError(ctx, fasthttp.StatusBadRequest, errors.Wrap(err, "invalid page id"))
		return
	}

	p, ok := c.cache.Peek(id)
	if !ok {
		serverutils.WriteError(ctx, fasthttp.StatusNotFound, errors.Wrapf(storage.ErrPageNotFound, "page %s", gotils.B2S(ctx.Path())))
		return
	}

	freed, err := c.evictor.EvictPage(p)
	res := evictResult{Page: id, Evicted: err == nil, Freed: freed}
	switch {
	case err == nil:
		ctx.SetStatusCode(fasthttp.StatusOK)
	case errors.Is(err, storage.ErrPageReferenced), errors.Is(err, storage.ErrPageNotResident):
		res.Reason = err.Error()
		ctx.SetStatusCode(fasthttp.StatusConflict)
	default:
		serverutils.WriteError(ctx, fasthttp.StatusInternalServerError, err)
		return
	}
	writeYAML(ctx, res)
}

func writeYAML(ctx *fasthttp.RequestCtx, v any) {
	body, err := yaml.Marshal(v)
	if err != nil {
		serverutils.WriteError(ctx, fasthttp.StatusInternalServerError, err)
		return
	}
	ctx.SetContentType("application/yaml")
	_, _ = serverutils.Write(body, ctx)
}

func (c *PagesController) AddRoute(r *router.Router) {
	r.GET(StatsPath, c.Stats)
	r.GET(EvictPath, c.Evict)
}
