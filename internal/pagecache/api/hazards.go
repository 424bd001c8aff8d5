package api

import (
	"strconv"

	"github.com/Borislavv/page-hazard/pkg/hazard"
	"github.com/Borislavv/page-hazard/pkg/session"
	serverutils "github.com/Borislavv/page-hazard/pkg/server/utils"
	"github.com/fasthttp/router"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	gotils "github.com/savsgio/gotils/strconv"
	"github.com/valyala/fasthttp"
	"gopkg.in/yaml.v3"
)

const HazardsPath = "/debug/hazards"

var sessionArg = []byte("session")

// SessionHazards is one session's occupied slots.
type SessionHazards struct {
	Session uint64          `yaml:"session"`
	Held    int             `yaml:"held"`
	Slots   []hazard.Active `yaml:"slots,omitempty"`
}

// HazardsController dumps active hazard references as YAML.
type HazardsController struct {
	conn *session.Connection
}

func NewHazardsController(conn *session.Connection) *HazardsController {
	return &HazardsController{conn: conn}
}

func (c *HazardsController) Get(ctx *fasthttp.RequestCtx) {
	var (
		filter   uint64
		filtered bool
	)
	if raw := ctx.QueryArgs().PeekBytes(sessionArg); len(raw) > 0 {
		id, err := strconv.ParseUint(gotils.B2S(raw), 10, 64)
		if err != nil {
			serverutils.WriteError(ctx, fasthttp.StatusBadRequest, errors.Wrap(err, "invalid session id"))
			return
		}
		filter, filtered = id, true
	}

	out := c.collect(filter, filtered)
	if filtered && len(out) == 0 {
		serverutils.WriteError(ctx, fasthttp.StatusNotFound, errors.Errorf("session %d is not open", filter))
		return
	}

	body, err := yaml.Marshal(out)
	if err != nil {
		log.Error().Err(err).Msg("[api] failed to marshal hazard dump")
		serverutils.WriteError(ctx, fasthttp.StatusInternalServerError, err)
		return
	}
	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetContentType("application/yaml")
	_, _ = serverutils.Write(body, ctx)
}

func (c *HazardsController) collect(filter uint64, filtered bool) []SessionHazards {
	manager := c.conn.Manager()
	out := make([]SessionHazards, 0, c.conn.Len())
	c.conn.Range(func(sctx hazard.Context) bool {
		if filtered && sctx.ID() != filter {
			return true
		}
		slots := manager.Snapshot(sctx)
		out = append(out, SessionHazards{Session: sctx.ID(), Held: len(slots), Slots: slots})
		return !filtered
	})
	return out
}

func (c *HazardsController) AddRoute(r *router.Router) {
	r.GET(HazardsPath, c.Get)
}
