package middleware

import "github.com/valyala/fasthttp"

// HttpMiddleware wraps a handler. Middlewares are applied in slice order.
type HttpMiddleware interface {
	Middleware(next fasthttp.RequestHandler) fasthttp.RequestHandler
}
