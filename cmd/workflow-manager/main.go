// cmd/workflow-manager/main.go
package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"assistance-workflow/internal/api"
	"assistance-workflow/internal/cache"
	"assistance-workflow/internal/common/camunda"
	"assistance-workflow/internal/common/config"
	"assistance-workflow/internal/common/database"
	"assistance-workflow/internal/common/logger"
	"assistance-workflow/internal/common/observability"
	"assistance-workflow/internal/common/validation"
	"assistance-workflow/internal/notify"
	"assistance-workflow/internal/search"
	"assistance-workflow/internal/signature"
	"assistance-workflow/internal/store"
	"assistance-workflow/internal/workflow"
	"assistance-workflow/pkg/registry"

	as "assistance-workflow/internal/workers/application/attach-signature"
	nb "assistance-workflow/internal/workers/application/notify-beneficiary"
	sa "assistance-workflow/internal/workers/application/submit-application"
	ta "assistance-workflow/internal/workers/application/transition-application"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log logger.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName), map[string]interface{}{
				"error":       err,
				"attempt":     i + 1,
				"maxRetries":  maxRetries,
				"nextRetryIn": delay.String(),
			})
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting workflow manager...",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	obs, err := observability.New(observability.Options{
		ServiceName:    cfg.App.Name,
		JaegerEndpoint: cfg.Tracing.JaegerEndpoint,
	})
	if err != nil {
		zapLog.Fatal("observability setup failed", zap.Error(err))
	}
	defer func() {
		if err := obs.Shutdown(context.Background()); err != nil {
			zapLog.Warn("observability shutdown failed", zap.Error(err))
		}
	}()

	health := database.NewHealth(3 * time.Second)

	// --- PostgreSQL ---
	var db *sql.DB
	err = retryWithBackoff(func() error {
		var err error
		db, err = database.OpenPostgres(ctx, cfg.Database.Postgres)
		return err
	}, 15, 2*time.Second, log, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer db.Close()
	health.Register("postgres", db.PingContext)

	repo := store.New(db, log)
	if err := repo.Migrate(ctx); err != nil {
		zapLog.Fatal("schema migration failed", zap.Error(err))
	}
	zapLog.Info("PostgreSQL connected successfully")

	deps := workflow.Deps{Repository: repo}

	// --- Redis dashboard cache ---
	if cfg.Cache.Enabled {
		var rdb *redis.Client
		err = retryWithBackoff(func() error {
			var err error
			rdb, err = database.OpenRedis(ctx, cfg.Database.Redis)
			return err
		}, 10, 2*time.Second, log, "Redis connection")
		if err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		defer rdb.Close()
		health.Register("redis", func(ctx context.Context) error { return database.PingRedis(ctx, rdb) })
		deps.Cache = cache.NewListCache(rdb, time.Duration(cfg.Cache.ListTTL)*time.Second, log)
		zapLog.Info("Redis connected successfully")
	}

	// --- Elasticsearch full-text index ---
	if cfg.Search.Enabled {
		var es *elasticsearch.Client
		err = retryWithBackoff(func() error {
			var err error
			es, err = database.OpenElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return database.PingElasticsearch(ctx, es)
		}, 15, 2*time.Second, log, "Elasticsearch connection")
		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		idx := search.NewIndex(es, cfg.Search.Index, log)
		if err := idx.EnsureIndex(ctx); err != nil {
			zapLog.Fatal("elasticsearch index setup failed", zap.Error(err))
		}
		health.Register("elasticsearch", func(ctx context.Context) error { return database.PingElasticsearch(ctx, es) })
		deps.Index = idx
		zapLog.Info("Elasticsearch connected successfully")
	}

	// --- Signatures, programs, payload schema, notifications ---
	signatures, err := signature.NewFileStore(cfg.Signatures.BaseDir, log)
	if err != nil {
		zapLog.Fatal("signature store setup failed", zap.Error(err))
	}
	deps.Signatures = signatures

	if cfg.Programs.CatalogPath != "" {
		catalog, err := registry.LoadCatalog(cfg.Programs.CatalogPath)
		if err != nil {
			zapLog.Fatal("program catalog load failed", zap.Error(err))
		}
		deps.Catalog = catalog
		zapLog.Info("program catalog loaded", zap.Int("activePrograms", len(catalog.Active())))
	}

	validator, err := validation.NewSubmissionValidator()
	if err != nil {
		zapLog.Fatal("submission schema load failed", zap.Error(err))
	}
	deps.Validator = validator

	notifier, err := notify.NewAWS(ctx, cfg.Notifications, log)
	if err != nil {
		zapLog.Fatal("notification clients setup failed", zap.Error(err))
	}
	deps.Notifier = notifier

	wfCfg, err := workflow.NewConfig(cfg.Workflow, cfg.HTTP)
	if err != nil {
		zapLog.Fatal("invalid workflow configuration", zap.Error(err))
	}
	svc, err := workflow.NewService(wfCfg, deps, log)
	if err != nil {
		zapLog.Fatal("workflow service setup failed", zap.Error(err))
	}

	// --- Zeebe job workers ---
	if cfg.Camunda.Enabled {
		var zeebe *camunda.Client
		err = retryWithBackoff(func() error {
			var err error
			zeebe, err = camunda.NewClientWithConfig(ctx, camunda.ConfigFrom(cfg.Camunda))
			return err
		}, 10, 2*time.Second, log, "Zeebe client initialization")
		if err != nil {
			zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
		}
		defer zeebe.Close()
		health.Register("zeebe", zeebe.HealthCheck)

		pool := camunda.NewPool(zeebe.GetClient(), log)
		defer pool.Close()

		pool.Start(sa.TaskType, config.GetWorkerConfig(cfg, sa.TaskType),
			sa.NewHandler(sa.LoadConfig(config.GetWorkerConfig(cfg, sa.TaskType)), svc, obs, log))
		pool.Start(ta.TaskType, config.GetWorkerConfig(cfg, ta.TaskType),
			ta.NewHandler(ta.LoadConfig(config.GetWorkerConfig(cfg, ta.TaskType)), svc, obs, log))
		pool.Start(as.TaskType, config.GetWorkerConfig(cfg, as.TaskType),
			as.NewHandler(as.LoadConfig(config.GetWorkerConfig(cfg, as.TaskType)), svc, obs, log))
		pool.Start(nb.TaskType, config.GetWorkerConfig(cfg, nb.TaskType),
			nb.NewHandler(nb.LoadConfig(config.GetWorkerConfig(cfg, nb.TaskType)), svc, obs, log))

		zapLog.Info("workers registered", zap.Strings("taskTypes", pool.TaskTypes()))
	}

	// --- HTTP API ---
	server := api.NewServer(svc, health, log, api.Options{
		MaxBodyBytes: int64(cfg.HTTP.MaxSignatureKiB+64) * 1024,
	})
	httpServer := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      server.Router(),
		ReadTimeout:  config.GetDuration(cfg.HTTP.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.HTTP.WriteTimeout),
	}

	if err := api.Serve(ctx, httpServer, log); err != nil {
		zapLog.Error("http server failed", zap.Error(err))
	}

	zapLog.Info("Workflow manager stopped gracefully")
}
