package pagecache

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/Borislavv/page-hazard/internal/pagecache/api"
	"github.com/Borislavv/page-hazard/pkg/config"
	"github.com/Borislavv/page-hazard/pkg/hazard"
	"github.com/Borislavv/page-hazard/pkg/k8s/probe/liveness"
	"github.com/Borislavv/page-hazard/pkg/prometheus/metrics"
	metricscontroller "github.com/Borislavv/page-hazard/pkg/prometheus/metrics/controller"
	httpserver "github.com/Borislavv/page-hazard/pkg/server"
	"github.com/Borislavv/page-hazard/pkg/server/controller"
	"github.com/Borislavv/page-hazard/pkg/server/middleware"
	"github.com/Borislavv/page-hazard/pkg/session"
	"github.com/Borislavv/page-hazard/pkg/shutdown"
	"github.com/Borislavv/page-hazard/pkg/storage"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// App wires the page cache, its evictor, the debug API and the synthetic workload.
type App struct {
	cfg      *config.Config
	ctx      context.Context
	cancel   context.CancelFunc
	probe    liveness.Prober
	conn     *session.Connection
	store    storage.Store
	cache    *storage.Cache
	evictor  *storage.Evictor
	workload *Workload
	server   *httpserver.HTTP
	serving  atomic.Bool
}

func NewApp(ctx context.Context, cfg *config.Config, probe liveness.Prober) (*App, error) {
	return newApp(ctx, cfg, probe, hazard.NewLogReporter())
}

func newApp(ctx context.Context, cfg *config.Config, probe liveness.Prober, reporter hazard.Reporter) (*App, error) {
	ctx, cancel := context.WithCancel(ctx)

	meter := metrics.New()
	conn, err := session.NewConnection(cfg, reporter, meter)
	if err != nil {
		cancel()
		return nil, errors.Wrap(err, "open connection")
	}

	store, err := storage.NewStore(cfg.Cache.Store)
	if err != nil {
		cancel()
		return nil, err
	}

	cache, err := storage.NewCache(ctx, cfg, conn, store, meter)
	if err != nil {
		cancel()
		_ = store.Close()
		return nil, err
	}

	app := &App{
		cfg:      cfg,
		ctx:      ctx,
		cancel:   cancel,
		probe:    probe,
		conn:     conn,
		store:    store,
		cache:    cache,
		evictor:  storage.NewEvictor(ctx, cfg, cache),
		workload: NewWorkload(ctx, cfg, conn, cache),
	}

	if cfg.Api.Enabled {
		app.server = httpserver.New(ctx, cfg.Api, app.controllers(), app.middlewares())
	}

	return app, nil
}

func (a *App) controllers() []controller.HttpController {
	return []controller.HttpController{
		liveness.NewController(a.probe),
		metricscontroller.NewPrometheusMetrics(),
		api.NewHazardsController(a.conn),
		api.NewPagesController(a.cache, a.evictor),
	}
}

func (a *App) middlewares() []middleware.HttpMiddleware {
	return []middleware.HttpMiddleware{
		middleware.NewDefaultContentTypeMiddleware(),
		middleware.NewServerNameMiddleware(a.cfg.Api),
	}
}

// Start runs until the app context is cancelled, then stops everything and calls gc.Done.
func (a *App) Start(gc shutdown.Gracefuller) {
	defer func() {
		a.stop()
		gc.Done()
	}()

	log.Info().Msg("[app] starting page cache")

	if err := a.workload.Seed(); err != nil {
		log.Error().Err(err).Msg("[app] failed to seed pages")
		return
	}

	a.evictor.Run()

	wg := &sync.WaitGroup{}
	a.workload.Run(wg)

	a.probe.Watch(a)

	log.Info().Msg("[app] page cache has been started")

	if a.server != nil {
		a.serving.Store(true)
		a.server.ListenAndServe()
		a.serving.Store(false)
	}
	<-a.ctx.Done()

	wg.Wait()
}

// stop closes sessions (validating their tables), writes back dirty pages and closes the store.
func (a *App) stop() {
	log.Info().Msg("[app] stopping page cache")
	defer a.cancel()

	a.probe.Stop()
	a.cancel()
	a.evictor.Wait()
	a.conn.Close()
	if err := a.cache.Close(); err != nil {
		log.Err(err).Msg("[app] failed to close cache")
	}

	log.Info().Msg("[app] page cache has been stopped")
}

// IsAlive is polled by the liveness probe.
func (a *App) IsAlive(_ context.Context) bool {
	if a.server != nil && !a.serving.Load() {
		log.Info().Msg("[app] http server has gone away")
		return false
	}
	return a.ctx.Err() == nil
}
