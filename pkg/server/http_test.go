package httpserver

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/Borislavv/page-hazard/pkg/config"
	"github.com/Borislavv/page-hazard/pkg/server/controller"
	"github.com/Borislavv/page-hazard/pkg/server/middleware"
	"github.com/fasthttp/router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"
)

type pingController struct{}

func (pingController) AddRoute(r *router.Router) {
	r.GET("/ping", func(ctx *fasthttp.RequestCtx) { ctx.SetBodyString("pong") })
}

func TestHTTP_ServesControllersWithMiddlewares(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := config.Api{Name: "page-hazard-test"}

	srv := New(ctx, cfg,
		[]controller.HttpController{pingController{}},
		[]middleware.HttpMiddleware{
			middleware.NewDefaultContentTypeMiddleware(),
			middleware.NewServerNameMiddleware(cfg),
		},
	)

	ln := fasthttputil.NewInmemoryListener()
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		srv.Serve(ln)
	}()

	client := &fasthttp.Client{Dial: func(string) (net.Conn, error) { return ln.Dial() }}
	req, resp := fasthttp.AcquireRequest(), fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)
	req.SetRequestURI("http://test/ping")

	require.NoError(t, client.DoTimeout(req, resp, time.Second))
	assert.Equal(t, fasthttp.StatusOK, resp.StatusCode())
	assert.Equal(t, "pong", string(resp.Body()))
	assert.Equal(t, "page-hazard-test", string(resp.Header.Server()))
	assert.Contains(t, string(resp.Header.ContentType()), "text/plain")

	req.SetRequestURI("http://test/missing")
	require.NoError(t, client.DoTimeout(req, resp, time.Second))
	assert.Equal(t, fasthttp.StatusNotFound, resp.StatusCode())

	cancel()
	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop after cancel")
	}
}
