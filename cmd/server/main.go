// Command server runs the certificate generation and verification service.
// main wires dependencies and owns the process lifecycle; business logic lives
// in internal packages.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "certpass/internal/http"
	"certpass/internal/pipeline"
	pipelinehandler "certpass/internal/pipeline/handler"
	"certpass/internal/pipeline/job"
	pipelinemetrics "certpass/internal/pipeline/metrics"
	"certpass/internal/platform/config"
	"certpass/internal/platform/httpserver"
	"certpass/internal/platform/logger"
	platformredis "certpass/internal/platform/redis"
	"certpass/internal/qr"
	"certpass/internal/record"
	recordmemory "certpass/internal/record/memory"
	recordpostgres "certpass/internal/record/postgres"
	"certpass/internal/render"
	"certpass/internal/verify"
	verifyhandler "certpass/internal/verify/handler"
	verifymetrics "certpass/internal/verify/metrics"
	"certpass/pkg/platform/audit"
)

func main() {
	log := logger.New()
	slog.SetDefault(log)

	if err := run(log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	checks := map[string]httpapi.HealthCheck{}

	// Record store: Postgres when configured, in-memory otherwise.
	var records record.Store
	if cfg.PostgresURL != "" {
		pool, err := recordpostgres.Connect(ctx, cfg.PostgresURL)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pool.Close()
		records = recordpostgres.New(pool)
		checks["records"] = func(ctx context.Context) error { return pool.Ping(ctx) }
		log.Info("record store ready", "backend", "postgres")
	} else {
		records = recordmemory.New()
		log.Warn("record store is in-memory; records are lost on restart")
	}

	// Job store: Redis when configured, in-memory otherwise.
	var jobs job.Store = job.NewMemoryStore()
	rdb, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	if rdb != nil {
		defer rdb.Close()
		jobs = job.NewRedisStore(rdb.Client, cfg.Redis.JobTTL)
		checks["jobs"] = rdb.Health
		log.Info("job store ready", "backend", "redis")
	}

	// Audit trail: Kafka when configured, process-local otherwise.
	var auditPub audit.Publisher = audit.NewMemoryPublisher()
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaPub, err := audit.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			return fmt.Errorf("connect kafka: %w", err)
		}
		defer kafkaPub.Close()
		auditPub = kafkaPub
		log.Info("audit publisher ready", "backend", "kafka", "topic", cfg.Kafka.Topic)
	}

	renderer, err := render.New(render.Options{
		Format:       render.Format(cfg.RenderFormat),
		FontPath:     cfg.FontPath,
		FontPoints:   cfg.FontPoints,
		FetchTimeout: cfg.FetchTimeout,
	})
	if err != nil {
		return fmt.Errorf("build renderer: %w", err)
	}

	pipe, err := pipeline.New(qr.New(), renderer,
		pipeline.WithLogger(log),
		pipeline.WithRecordStore(records),
		pipeline.WithMetrics(pipelinemetrics.New()),
		pipeline.WithAuditPublisher(auditPub),
		pipeline.WithItemTimeout(cfg.ItemTimeout),
	)
	if err != nil {
		return fmt.Errorf("build pipeline: %w", err)
	}

	verifier, err := verify.New(records, cfg.Salt,
		verify.WithLogger(log),
		verify.WithMetrics(verifymetrics.New()),
		verify.WithAuditPublisher(auditPub),
	)
	if err != nil {
		return fmt.Errorf("build verifier: %w", err)
	}

	router := httpapi.New(log, checks,
		pipelinehandler.New(pipe, jobs, log, cfg.Salt, cfg.LinkBaseURL),
		verifyhandler.New(verifier, log),
	)
	srv := httpserver.New(cfg.Addr, router)

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}
