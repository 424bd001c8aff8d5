package shutdown

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

var ErrGracefulTimeout = errors.New("graceful shutdown timed out")

const defaultGracefulTimeout = 30 * time.Second

// Gracefuller is handed to components that must finish before the process exits.
type Gracefuller interface {
	Add(n int)
	Done()
}

type Graceful struct {
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	timeout time.Duration
}

func NewGraceful(ctx context.Context, cancel context.CancelFunc) *Graceful {
	return &Graceful{ctx: ctx, cancel: cancel, timeout: defaultGracefulTimeout}
}

func (g *Graceful) SetGracefulTimeout(timeout time.Duration) {
	g.timeout = timeout
}

func (g *Graceful) Add(n int) { g.wg.Add(n) }

func (g *Graceful) Done() { g.wg.Done() }

// ListenCancelAndAwait cancels the root context on SIGINT or SIGTERM (or returns when it is
// cancelled elsewhere) and waits for every registered component to call Done.
func (g *Graceful) ListenCancelAndAwait() error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		log.Info().Msgf("[shutdown] %v signal received, shutting down", sig)
		g.cancel()
	case <-g.ctx.Done():
		log.Info().Msg("[shutdown] context cancelled, shutting down")
	}

	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info().Msg("[shutdown] all components stopped")
		return nil
	case <-time.After(g.timeout):
		return errors.Wrapf(ErrGracefulTimeout, "after %s", g.timeout)
	}
}
