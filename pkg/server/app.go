package server

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	domrepo "TradeDesk/internal/domain/repository"
	"TradeDesk/internal/handler/api"
	"TradeDesk/internal/service/gateway"
	"TradeDesk/internal/usecase"
	"TradeDesk/pkg/config"
	xhttp "TradeDesk/pkg/http"
	xlogger "TradeDesk/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	log        *xlogger.Logger
	supervisor *usecase.Supervisor
	collector  *usecase.QuoteCollector
	gw         *gateway.Gateway
	handler    *api.BotHandler
	httpServer *xhttp.Server

	state    domrepo.StateStore
	activity domrepo.ActivityLog
	events   domrepo.Publisher
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	log *xlogger.Logger,
	supervisor *usecase.Supervisor,
	collector *usecase.QuoteCollector,
	gw *gateway.Gateway,
	handler *api.BotHandler,
	state domrepo.StateStore,
	activity domrepo.ActivityLog,
	events domrepo.Publisher,
) *App {
	return &App{
		cfg:        cfg,
		log:        log,
		supervisor: supervisor,
		collector:  collector,
		gw:         gw,
		handler:    handler,
		state:      state,
		activity:   activity,
		events:     events,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if a.collector != nil {
		go func() {
			if err := a.collector.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				a.log.Error("quote collector stopped", xlogger.Error(err))
			}
		}()
		a.log.Info("quote collector started", xlogger.Any("watchlist", a.cfg.Bot.Watchlist))
	}

	if a.cfg.Bot.AutoStart {
		if _, err := a.supervisor.Start(ctx, nil); err != nil {
			a.log.Error("bot autostart failed", xlogger.Error(err))
		} else {
			a.log.Info("bot autostarted", xlogger.String("mode", a.cfg.Bot.Mode))
		}
	}

	a.httpServer = xhttp.NewServer(a.handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)
	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", xlogger.Error(err))
		return err
	}
	a.log.Info("http server started", xlogger.Int("port", a.cfg.Server.Port))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	return a.shutdown(ctx, cancel)
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context, cancel context.CancelFunc) error {
	if _, err := a.supervisor.Stop(ctx); err != nil {
		a.log.Warn("bot stop error", xlogger.Error(err))
	}

	// Stops the collector.
	cancel()

	a.gw.Close()

	shutdownCtx, sCancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer sCancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.log.Error("http shutdown error", xlogger.Error(err))
	}

	if err := a.events.Close(); err != nil {
		a.log.Warn("event publisher close error", xlogger.Error(err))
	}
	if err := a.activity.Close(); err != nil {
		a.log.Warn("activity log close error", xlogger.Error(err))
	}
	if err := a.state.Close(); err != nil {
		a.log.Warn("state store close error", xlogger.Error(err))
	}

	a.log.Info("shutdown complete")
	return nil
}
