package middleware

import (
	"github.com/Borislavv/page-hazard/pkg/config"
	"github.com/valyala/fasthttp"
)

type ServerNameMiddleware struct {
	serverName []byte
}

func NewServerNameMiddleware(cfg config.Api) ServerNameMiddleware {
	return ServerNameMiddleware{serverName: []byte(cfg.Name)}
}

func (m ServerNameMiddleware) Middleware(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		next(ctx)
		ctx.Response.Header.SetServerBytes(m.serverName)
	}
}
