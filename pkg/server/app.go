package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"FlipSight/internal/handler/api"
	"FlipSight/internal/usecase"
	pkgch "FlipSight/pkg/clickhouse"
	"FlipSight/pkg/config"
	xhttp "FlipSight/pkg/http"
	pkgkafka "FlipSight/pkg/kafka"
	applogger "FlipSight/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg         *config.Config
	log         *applogger.Logger
	refresher   *usecase.Refresher
	consumer    *pkgkafka.Consumer
	kh          pkgkafka.MessageHandler
	chClient    *pkgch.Client
	httpServer  *xhttp.Server
	httpHandler xhttp.Handler
	hub         *api.StreamHub
	TickProc    *usecase.TickProcessor
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	refresher *usecase.Refresher,
	consumer *pkgkafka.Consumer,
	kh pkgkafka.MessageHandler,
	chClient *pkgch.Client,
	handler xhttp.Handler,
	hub *api.StreamHub,
) *App {
	return &App{
		cfg:         cfg,
		log:         log,
		refresher:   refresher,
		consumer:    consumer,
		kh:          kh,
		chClient:    chClient,
		httpHandler: handler,
		hub:         hub,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := a.log

	a.httpServer = xhttp.NewServer(a.httpHandler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithRequestMetrics(l, time.Second),
	)

	// Bootstrap the catalog and start the scheduled refresh loops.
	if err := a.refresher.Start(ctx); err != nil {
		l.Error("refresher start error", applogger.Error(err))
		return err
	}
	l.Info("refresher started",
		applogger.String("backend", a.cfg.Backend.Type),
		applogger.Int64("budget", a.cfg.Flipper.Budget))

	// The kafka backend writes history through an out-of-process consumer.
	if a.consumer != nil && a.kh != nil {
		a.consumer.RegisterHandler(a.kh)
		go func() {
			if err := a.consumer.Start(); err != nil {
				l.Error("kafka consumer error", applogger.Error(err))
			}
		}()
		l.Info("kafka consumer started", applogger.String("topic", a.kh.Topic()))
	}

	if err := a.httpServer.Start(); err != nil {
		l.Error("http server start error", applogger.Error(err))
		return err
	}
	l.Info("http server listening", applogger.Int("port", a.cfg.Server.Port))

	// Wait for interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	l.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	l := a.log

	// Stop the refresh scheduler first so nothing new enters the pipeline.
	if err := a.refresher.Shutdown(ctx); err != nil {
		l.Warn("refresher stop error", applogger.Error(err))
	}

	// Drop websocket subscribers before the HTTP listener goes away.
	if a.hub != nil {
		a.hub.Close()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		l.Error("http shutdown error", applogger.Error(err))
	}

	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			l.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	// Close tick processor resources (publisher/storage).
	if a.TickProc != nil {
		a.TickProc.Close()
	}

	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			l.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	l.Info("shutdown complete")
	return nil
}
