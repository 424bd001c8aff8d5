package main

import (
	"context"
	"os"
	"runtime"
	"time"

	"github.com/Borislavv/page-hazard/internal/pagecache"
	"github.com/Borislavv/page-hazard/pkg/config"
	"github.com/Borislavv/page-hazard/pkg/ctime"
	"github.com/Borislavv/page-hazard/pkg/gc"
	"github.com/Borislavv/page-hazard/pkg/k8s/probe/liveness"
	"github.com/Borislavv/page-hazard/pkg/shutdown"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.uber.org/automaxprocs/maxprocs"
)

const (
	configPath      = "pagehazard.cfg.yaml"
	configPathLocal = "pagehazard.cfg.local.yaml"
)

// setMaxProcs sets GOMAXPROCS from the cgroup CPU quota.
func setMaxProcs() {
	if _, err := maxprocs.Set(); err != nil {
		log.Err(err).Msg("[main] setting up GOMAXPROCS value failed")
		panic(err)
	}
	log.Info().Msgf("[main] optimized GOMAXPROCS=%d was set up", runtime.GOMAXPROCS(0))
}

// loadCfg prefers the local config file and falls back to the default one.
func loadCfg() (*config.Config, error) {
	cfg, err := config.LoadConfig(configPathLocal)
	if err != nil {
		cfg, err = config.LoadConfig(configPath)
		if err != nil {
			log.Err(err).Msg("[config] failed to load")
			return nil, err
		}
		log.Info().Msgf("[config] config loaded from '%v'", configPath)
	} else {
		log.Info().Msgf("[config] config loaded from '%v'", configPathLocal)
	}
	return cfg, nil
}

func setupLogger(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.Logs.Level)
	if err != nil || cfg.Logs.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if !cfg.IsProd() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})
	}
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	setMaxProcs()

	cfg, cfgError := loadCfg()
	if cfgError != nil {
		log.Err(cfgError).Msg("[main] failed to load config")
		return
	}
	setupLogger(cfg)

	stopClock := ctime.Start(time.Millisecond)
	defer stopClock()

	gracefulShutdown := shutdown.NewGraceful(ctx, cancel)
	gracefulShutdown.SetGracefulTimeout(time.Minute)

	probe := liveness.NewProbe(cfg.K8S.Probe.Timeout)

	app, err := pagecache.NewApp(ctx, cfg, probe)
	if err != nil {
		log.Err(err).Msg("[main] failed to init page cache app")
		return
	}

	gracefulShutdown.Add(1)
	go app.Start(gracefulShutdown)

	gc.Run(ctx, cfg.Cache.ForceGC)

	if err = gracefulShutdown.ListenCancelAndAwait(); err != nil {
		log.Err(err).Msg("[main] failed to gracefully shut down service")
	}
}
