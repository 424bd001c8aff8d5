package middleware

import "github.com/valyala/fasthttp"

var textPlainBytes = []byte("text/plain; charset=utf-8")

// DefaultContentTypeMiddleware sets a content type on responses that did not set one.
type DefaultContentTypeMiddleware struct{}

func NewDefaultContentTypeMiddleware() DefaultContentTypeMiddleware {
	return DefaultContentTypeMiddleware{}
}

func (DefaultContentTypeMiddleware) Middleware(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		next(ctx)
		if len(ctx.Response.Header.ContentType()) == 0 {
			ctx.Response.Header.SetContentTypeBytes(textPlainBytes)
		}
	}
}
