package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"FinCorr/internal/service/ratelimit"
	"FinCorr/pkg/config"
	xhttp "FinCorr/pkg/http"
	applogger "FinCorr/pkg/logger"
)

const limiterIdle = 10 * time.Minute

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	l          *applogger.Logger
	httpServer *xhttp.Server
	limiter    *ratelimit.Limiter
}

// New creates a new App instance with all dependencies.
func New(cfg *config.Config, l *applogger.Logger, httpServer *xhttp.Server, limiter *ratelimit.Limiter) *App {
	return &App{
		cfg:        cfg,
		l:          l,
		httpServer: httpServer,
		limiter:    limiter,
	}
}

// Run starts the application and blocks until interrupted or ctx is done.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.httpServer.Start(); err != nil {
		a.l.Error("http server start error", applogger.Error(err))
		return err
	}
	a.l.Info("fincorr started",
		applogger.String("env", a.cfg.Environment),
		applogger.String("addr", a.httpServer.Addr()),
		applogger.String("cache_backend", a.cfg.Cache.Backend),
		applogger.String("price_backend", a.cfg.Prices.Backend),
		applogger.Bool("kafka", a.cfg.Kafka.Enabled),
	)

	if a.limiter != nil {
		go a.pruneLimiter(ctx)
	}

	<-ctx.Done()
	a.l.Info("shutdown signal received")
	return a.shutdown()
}

func (a *App) pruneLimiter(ctx context.Context) {
	t := time.NewTicker(limiterIdle)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := a.limiter.Prune(limiterIdle); n > 0 {
				a.l.Debug("rate limiter pruned", applogger.Int("buckets", n))
			}
		}
	}
}

// shutdown stops the HTTP server. Infrastructure clients are closed by the
// DI cleanup returned alongside the App.
func (a *App) shutdown() error {
	a.l.Info("shutting down...")
	if err := a.httpServer.Stop(context.Background()); err != nil {
		a.l.Error("http shutdown error", applogger.Error(err))
		return err
	}
	a.l.Info("shutdown complete")
	return nil
}
