package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"veridoc/internal/callback"
	"veridoc/internal/classify"
	"veridoc/internal/docvalidator"
	"veridoc/internal/identity"
	"veridoc/internal/notify"
	notifykafka "veridoc/internal/notify/kafka"
	"veridoc/internal/ocr"
	"veridoc/internal/pipeline"
	pipelinemetrics "veridoc/internal/pipeline/metrics"
	"veridoc/internal/platform/auth"
	"veridoc/internal/platform/config"
	"veridoc/internal/platform/httpserver"
	"veridoc/internal/platform/logger"
	platformredis "veridoc/internal/platform/redis"
	"veridoc/internal/store"
	httpapi "veridoc/internal/transport/http"
	"veridoc/internal/worker"
)

// main wires the dependency graph and owns the process lifecycle. Business
// logic lives in the internal packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	validator := docvalidator.New(cfg.Limits.AllowedExtensions, cfg.Limits.MaxFileSizeMB, nil)

	ocrClient := ocr.New(cfg.OCR.Endpoint, cfg.OCR.APIKey, cfg.OCR.Timeout)
	ocrClient.PollInterval = cfg.OCR.PollInterval
	ocrClient.PollAttempts = cfg.OCR.PollAttempts

	classifier := classify.New(cfg.AI.BaseURL, cfg.AI.APIKey,
		cfg.AI.ClassifyModel, cfg.AI.ExtractionModel, cfg.AI.Timeout)
	if cfg.SchemaSet != "" {
		catalog, err := classify.LoadCatalog(cfg.SchemaSet)
		if err != nil {
			log.Error("extraction schema catalog load failed", "path", cfg.SchemaSet, "error", err)
			os.Exit(1)
		}
		classifier.Catalog = catalog
	}

	// Identity registry, optionally fronted by a Redis cache.
	var registry identity.Validator = identity.New(cfg.Identity.BaseURL, cfg.Identity.APIKey, cfg.Identity.Timeout)
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		registry = identity.NewCachedValidator(registry,
			identity.RedisKV{Client: redisClient.Client}, cfg.Identity.CacheTTL, log)
	}

	// Progress notification: a channel worker draining into Kafka when
	// brokers are configured, otherwise events are dropped.
	var notifier notify.Notifier = notify.Discard{}
	if len(cfg.Kafka.Brokers) > 0 {
		publisher, err := notifykafka.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
		if err != nil {
			log.Error("kafka publisher init failed", "error", err)
			os.Exit(1)
		}
		defer publisher.Close()

		notifyWorker := notify.NewWorker(publisher, 256, log)
		go func() {
			if err := notifyWorker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("notify worker stopped", "error", err)
			}
		}()
		notifier = notifyWorker
	}

	// Result store: Postgres when configured, in-memory otherwise.
	var results store.ResultStore = store.NewInMemoryResultStore()
	var healthChecks []httpapi.HandlerOption
	if cfg.Postgres.DSN != "" {
		pg, err := store.OpenPostgres(ctx, cfg.Postgres.DSN)
		if err != nil {
			log.Error("postgres connection failed", "error", err)
			os.Exit(1)
		}
		defer pg.Close()

		pgStore := store.NewPostgresResultStore(pg)
		if err := pgStore.EnsureSchema(ctx); err != nil {
			log.Error("postgres schema setup failed", "error", err)
			os.Exit(1)
		}
		results = pgStore
		healthChecks = append(healthChecks, httpapi.WithHealthCheck("postgres", pg.PingContext))
	}
	if redisClient != nil {
		healthChecks = append(healthChecks, httpapi.WithHealthCheck("redis", redisClient.Health))
	}

	proc := pipeline.New(validator, ocrClient, classifier,
		pipeline.WithIdentityValidator(registry),
		pipeline.WithNotifier(notifier),
		pipeline.WithLogger(log),
		pipeline.WithMetrics(pipelinemetrics.New()),
		pipeline.WithMinConfidence(cfg.Limits.MinConfidence),
	)
	callbacks := callback.New(cfg.Callback.DefaultURL, cfg.Callback.Timeout, log)
	batch := worker.New(proc, results,
		worker.WithCallback(callbacks),
		worker.WithConcurrency(cfg.Limits.WorkerConcurrency),
		worker.WithLogger(log),
	)

	tokens := auth.NewTokenService(cfg.Server.JWTSigningKey)
	handlerOpts := append([]httpapi.HandlerOption{
		httpapi.WithMaxDocuments(cfg.Limits.MaxDocumentsPerRequest),
	}, healthChecks...)
	handler := httpapi.New(batch, results, log, handlerOpts...)
	router := httpapi.NewRouter(handler, tokens, log)

	srv := httpserver.New(cfg.Server.Addr, router)
	go func() {
		log.Info("veridoc listening", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}
