// Package main wires together the phone inventory service.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/jsteinberg1/cucm-phone-info/internal/api"
	"github.com/jsteinberg1/cucm-phone-info/internal/clock/system"
	"github.com/jsteinberg1/cucm-phone-info/internal/cluster"
	"github.com/jsteinberg1/cucm-phone-info/internal/config"
	"github.com/jsteinberg1/cucm-phone-info/internal/inventory"
	"github.com/jsteinberg1/cucm-phone-info/internal/logging"
	"github.com/jsteinberg1/cucm-phone-info/internal/metrics"
	queueMemory "github.com/jsteinberg1/cucm-phone-info/internal/queue/memory"
	"github.com/jsteinberg1/cucm-phone-info/internal/scheduler"
	"github.com/jsteinberg1/cucm-phone-info/internal/scraper"
	storageMemory "github.com/jsteinberg1/cucm-phone-info/internal/storage/memory"
	storagePostgres "github.com/jsteinberg1/cucm-phone-info/internal/storage/postgres"
	"github.com/jsteinberg1/cucm-phone-info/internal/syncjob"
	"github.com/jsteinberg1/cucm-phone-info/internal/worker"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
		}
	}()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.Init()

	var store inventory.Store
	if cfg.DB.DSN != "" {
		pgStore, err := storagePostgres.NewStore(ctx, cfg.DB.DSN)
		if err != nil {
			logger.Fatal("database connect failed", zap.Error(err))
		}
		defer pgStore.Close()
		if err := pgStore.Migrate(ctx); err != nil {
			logger.Fatal("database migrate failed", zap.Error(err))
		}
		store = pgStore
	} else {
		logger.Warn("db.dsn not set, using in-memory store")
		store = storageMemory.NewStore()
	}

	registry := cluster.NewRegistry(logger.Named("cluster"))
	if err := registry.Reload(cfg.Clusters); err != nil {
		logger.Fatal("cluster setup failed", zap.Error(err))
	}

	clock := system.New()
	queue := queueMemory.NewQueue(cfg.Scrape.QueueDepth)

	fetcher := scraper.NewCollyFetcher(cfg.RequestTimeout())
	scrape := scraper.New(fetcher, logger.Named("scraper"))
	pool := worker.NewPool(queue, store, scrape, clock, cfg.Scrape.Concurrency, logger.Named("worker"))

	syncJob := syncjob.NewClusterSync(store, clock, cfg.Sync, logger.Named("sync"))
	fanout := syncjob.NewFanout(store, queue, clock, cfg.Scrape, logger.Named("fanout"))

	sched := scheduler.New(registry, syncJob, fanout, cfg, logger.Named("scheduler"))
	if err := sched.Start(ctx); err != nil {
		logger.Fatal("scheduler start failed", zap.Error(err))
	}

	apiServer := api.NewServer(store, sched, cfg, logger.Named("api"))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("worker pool started", zap.Int("size", cfg.Scrape.Concurrency))
		pool.Run(ctx)
	}()

	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")

	sched.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	queue.Close()
	logger.Info("shutdown complete")
}
