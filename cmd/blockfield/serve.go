package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/blockfield/internal/config"
	"github.com/kailas-cloud/blockfield/internal/db"
	dbRedis "github.com/kailas-cloud/blockfield/internal/db/redis"
	dbValkey "github.com/kailas-cloud/blockfield/internal/db/valkey"
	logpkg "github.com/kailas-cloud/blockfield/internal/logger"
	"github.com/kailas-cloud/blockfield/internal/metrics"
	documentrepo "github.com/kailas-cloud/blockfield/internal/repository/document"
	"github.com/kailas-cloud/blockfield/internal/repository/fsdoc"
	metadatarepo "github.com/kailas-cloud/blockfield/internal/repository/metadata"
	"github.com/kailas-cloud/blockfield/internal/repository/schemafile"
	chiTransport "github.com/kailas-cloud/blockfield/internal/transport/chi"
	healthuc "github.com/kailas-cloud/blockfield/internal/usecase/health"
	"github.com/kailas-cloud/blockfield/internal/usecase/metasync"
	"github.com/kailas-cloud/blockfield/internal/usecase/projection"
	"github.com/kailas-cloud/blockfield/internal/version"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, save hook and optional filesystem watcher",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, env, err := opts.loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
			if err != nil {
				return fmt.Errorf("failed to create logger: %w", err)
			}
			defer func() { _ = logger.Sync() }()

			return serve(cmd.Context(), cfg, env, logger)
		},
	}
}

func serve(ctx context.Context, cfg config.Config, env string, logger *zap.Logger) error {
	logger.Info("Starting blockfield API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.Strings("db_addrs", cfg.Database.Addrs),
		zap.String("documents", cfg.Documents.Source),
	)

	// Schema registration fails fast on any collision.
	reg, err := schemafile.Load(cfg.Schema.Files)
	if err != nil {
		return fmt.Errorf("load schema: %w", err)
	}
	logger.Info("Schema registered", zap.Int("blocks", reg.Len()), zap.Strings("names", reg.Names()))

	store, err := openStore(cfg.Database)
	if err != nil {
		return fmt.Errorf("create database store: %w", err)
	}
	defer store.Close()

	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		return fmt.Errorf("database not ready: %w", err)
	}
	logger.Info("Connected to database")

	metrics.RegisterPipelineMetrics()

	metaRepo := metadatarepo.New(store, cfg.Storage.KeyPrefix)
	syncSvc := metasync.New(reg, metaRepo, logger.Named("sync"))
	hook := metasync.NewHook(syncSvc, logger.Named("hook"),
		metasync.WithWorkers(cfg.Sync.Workers),
		metasync.WithQueueSize(cfg.Sync.QueueSize),
		metasync.WithFailureThreshold(cfg.Sync.FailureThreshold),
	)
	if err := hook.Start(ctx); err != nil {
		return fmt.Errorf("start save hook: %w", err)
	}
	defer func() {
		if err := hook.Stop(time.Duration(cfg.Sync.ShutdownSec) * time.Second); err != nil {
			logger.Warn("Save hook did not drain", zap.Error(err))
		}
	}()

	var (
		docs    projection.DocumentSource
		checker healthuc.DocumentChecker
	)
	switch cfg.Documents.Source {
	case config.SourceFS:
		src, err := fsdoc.New(cfg.Documents.Root, cfg.Documents.Pattern)
		if err != nil {
			return fmt.Errorf("open document root: %w", err)
		}
		docs, checker = src, src

		if cfg.Documents.InitialSync {
			initialSync(ctx, src, hook, logger)
		}
		if cfg.Documents.Watch {
			w := fsdoc.NewWatcher(src, hook, logger.Named("watcher"))
			if err := w.Start(ctx); err != nil {
				return fmt.Errorf("start watcher: %w", err)
			}
			defer func() { _ = w.Stop() }()
			logger.Info("Watching documents", zap.String("root", src.Root()), zap.String("pattern", cfg.Documents.Pattern))
		}
	default:
		docs = documentrepo.New(store, cfg.Storage.KeyPrefix)
	}

	engine := projection.New(reg, docs, metaRepo, logger.Named("projection"))
	healthSvc := healthuc.New(store, checker, hook)
	server := chiTransport.NewServer(engine, syncSvc, hook, reg, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Routes(r)
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(chiTransport.ErrorResponse{
			Code:    chiTransport.CodeBadRequest,
			Message: "route not found",
		})
	})

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
		logger.Info("Received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
	return nil
}

func openStore(cfg config.DatabaseConfig) (db.Store, error) {
	switch cfg.Driver {
	case config.DriverValkey:
		return dbValkey.NewStore(dbValkey.Config{
			Addrs:    cfg.Addrs,
			Username: cfg.Username,
			Password: cfg.Password,
			DB:       cfg.DB,
		})
	case config.DriverRedis:
		return dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Addrs,
			Username: cfg.Username,
			Password: cfg.Password,
			DB:       cfg.DB,
		})
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

// initialSync queues every document below the root so metadata written by an
// earlier run catches up with edits made while the service was down.
func initialSync(ctx context.Context, src *fsdoc.Source, hook *metasync.Hook, logger *zap.Logger) {
	ids, err := src.IDs()
	if err != nil {
		logger.Warn("Initial sync skipped", zap.Error(err))
		return
	}
	queued := 0
	for _, id := range ids {
		doc, err := src.Get(ctx, id)
		if err != nil {
			logger.Warn("Initial sync read failed", zap.String("document_id", id), zap.Error(err))
			continue
		}
		if err := hook.Notify(doc.ID(), doc.Content(), doc.Version()); err != nil {
			logger.Warn("Initial sync queue full", zap.Int("queued", queued), zap.Int("total", len(ids)))
			return
		}
		queued++
	}
	logger.Info("Initial sync queued", zap.Int("documents", queued))
}
