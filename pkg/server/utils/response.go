package serverutils

import (
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/valyala/fasthttp"
)

var ErrWriteResponse = errors.New("error occurred while writing data into *fasthttp.RequestCtx")

func Write(b []byte, ctx *fasthttp.RequestCtx) (int, error) {
	n, err := ctx.Write(b)
	if err != nil {
		log.Error().Err(err).Msg("[server] error while writing data into *fasthttp.RequestCtx")
		return 0, ErrWriteResponse
	}
	return n, nil
}

// WriteError responds with status and err as plain text.
func WriteError(ctx *fasthttp.RequestCtx, status int, err error) {
	ctx.SetStatusCode(status)
	ctx.SetContentType("text/plain; charset=utf-8")
	_, _ = Write([]byte(err.Error()+"\n"), ctx)
}
