package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sheikh-saqib/banking-settlement-pipeline/internal/app"
	"github.com/sheikh-saqib/banking-settlement-pipeline/internal/config"
	"github.com/sheikh-saqib/banking-settlement-pipeline/internal/httpapi"
	"github.com/sheikh-saqib/banking-settlement-pipeline/internal/logging"
	"github.com/sheikh-saqib/banking-settlement-pipeline/internal/scheduler"
)

func main() {
	envFile := flag.String("env", ".env", "path to an optional .env file")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		logrus.WithError(err).Fatal("failed to load config")
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		logrus.WithError(err).Fatal("failed to configure logging")
	}
	entry := logrus.NewEntry(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logging.WithLogger(ctx, entry)

	application, err := app.New(ctx, cfg)
	if err != nil {
		entry.WithError(err).Fatal("failed to initialise application")
	}
	defer func() {
		if err := application.Close(context.Background()); err != nil {
			entry.WithError(err).Error("failed to close application")
		}
	}()

	var sched *scheduler.Scheduler
	if cfg.PipelineSchedule != "" {
		sched = scheduler.New(application.Orchestrator, cfg.PipelineLevel, cfg.PipelineTimeout, entry)
		if err := sched.Start(cfg.PipelineSchedule); err != nil {
			entry.WithError(err).Fatal("failed to start scheduler")
		}
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpapi.NewRouter(application.Store, application.Orchestrator, entry),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		entry.WithField("addr", cfg.HTTPAddr).Info("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			entry.WithError(err).Error("server stopped")
			stop()
		}
	}()

	<-ctx.Done()
	entry.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.PipelineTimeout)
	defer cancel()

	if sched != nil {
		select {
		case <-sched.Stop().Done():
		case <-shutdownCtx.Done():
			entry.Warn("scheduled run still in progress at shutdown")
		}
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		entry.WithError(err).Error("graceful shutdown failed")
	}
}
