package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"RegimeGuard/internal/handler/api"
	"RegimeGuard/internal/service/marketdata"
	"RegimeGuard/internal/usecase"
	"RegimeGuard/pkg/config"
	xhttp "RegimeGuard/pkg/http"
	applogger "RegimeGuard/pkg/logger"
)

// App encapsulates the application lifecycle.
type App struct {
	cfg        *config.Config
	log        *applogger.Logger
	handler    *api.Handler
	eval       *usecase.Evaluator
	data       *marketdata.Client
	httpServer *xhttp.Server
}

func New(cfg *config.Config, l *applogger.Logger, h *api.Handler, eval *usecase.Evaluator, data *marketdata.Client) *App {
	return &App{cfg: cfg, log: l, handler: h, eval: eval, data: data}
}

// Evaluator is used by one-shot CLI commands that skip the HTTP server.
func (a *App) Evaluator() *usecase.Evaluator { return a.eval }

func (a *App) MarketData() *marketdata.Client { return a.data }

// Run serves HTTP until ctx ends, SIGINT/SIGTERM arrives or the listener
// fails, then drains in-flight requests.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	metricsPath := ""
	if a.cfg.Metrics.Enabled {
		metricsPath = a.cfg.Metrics.Path
	}
	a.httpServer = xhttp.NewServer(a.handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithMetricsPath(metricsPath),
		xhttp.WithLogger(a.log),
	)

	a.log.Info("regimeguard starting",
		applogger.String("env", a.cfg.Environment),
		applogger.String("cache", a.cfg.Cache.Backend),
		applogger.String("history", a.cfg.History.Backend),
		applogger.Bool("kafka", a.cfg.Kafka.Enabled),
		applogger.Bool("advisor", a.cfg.Advisor.Enabled),
		applogger.Int("rate_limit_per_minute", a.cfg.Finnhub.RateLimitPerMinute),
	)

	errCh := a.httpServer.Start()
	var runErr error
	select {
	case <-ctx.Done():
		a.log.Info("shutdown signal received")
	case err, ok := <-errCh:
		if ok {
			runErr = err
		}
	}
	return a.shutdown(runErr)
}

func (a *App) shutdown(runErr error) error {
	a.log.Info("shutting down")
	if err := a.httpServer.Stop(context.Background()); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
		if runErr == nil {
			runErr = err
		}
	}

	st := a.data.Stats()
	a.log.Info("fetch stats",
		applogger.Int64("api_calls", st.APICalls),
		applogger.Int64("cache_hits", st.CacheHits),
		applogger.Int64("cache_misses", st.CacheMisses),
		applogger.Float64("cache_hit_rate", st.CacheHitRate),
		applogger.Int64("rate_limit_waits", st.RateLimitWaits),
	)
	return runErr
}
