package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"elliptigraph-backend/internal/analytics"
	"elliptigraph-backend/internal/config"
	"elliptigraph-backend/internal/dataset"
	"elliptigraph-backend/internal/ingest"
	httpapi "elliptigraph-backend/internal/interfaces/http"
	"elliptigraph-backend/internal/observability"
	"elliptigraph-backend/internal/preprocess"
	"elliptigraph-backend/internal/queries"
	"elliptigraph-backend/internal/storage"
	"elliptigraph-backend/internal/storage/arango"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("Starting ElliptiGraph pipeline",
		zap.String("environment", string(cfg.Environment)),
		zap.Strings("config_sources", cfg.LoadedFrom),
	)

	var metrics *observability.Collector
	if cfg.Features.EnableMetrics {
		metrics = observability.NewCollector("elliptigraph")
	}

	// Stage 1: load and preprocess the dataset. Everything downstream
	// depends on this, so a failure here is fatal.
	ds, err := dataset.NewLoader(cfg.Dataset.Dir, logger).Load()
	if err != nil {
		logger.Fatal("Failed to load dataset", zap.Error(err))
	}

	result := preprocess.NewProcessor(logger).Run(ds)
	if path, err := result.WriteCSV(cfg.Dataset.OutputDir); err != nil {
		logger.Warn("Failed to export processed features", zap.Error(err))
	} else {
		logger.Info("Processed features exported", zap.String("path", path))
	}

	// Stage 2: summary statistics and charts. Best effort: the pipeline
	// continues without them.
	analyzer := analytics.NewAnalyzer(logger)
	report := analyzer.Summarize(result, ds.Edges)
	if path, err := analyzer.WriteSummary(report, cfg.Dataset.OutputDir); err != nil {
		logger.Warn("Failed to write summary statistics", zap.Error(err))
	} else {
		logger.Info("Summary statistics written", zap.String("path", path))
	}
	if cfg.Features.EnableCharts {
		chartsDir := cfg.Dataset.ChartsDir
		if chartsDir == "" {
			chartsDir = cfg.Dataset.OutputDir
		}
		if err := analyzer.RenderCharts(report, chartsDir); err != nil {
			logger.Warn("Failed to render charts", zap.Error(err))
		}
	}

	// Stage 3: graph store. Without a reachable store the ingestion and
	// query stages are skipped and the dashboard serves in-memory data
	// only.
	var (
		store    *arango.Client
		catalog  *queries.Catalog
		ingestor *ingest.Ingestor
	)
	if client, err := arango.Connect(cfg.Arango, logger); err != nil {
		logger.Warn("Graph store unavailable, store-backed features disabled", zap.Error(err))
	} else if err := client.Setup(ctx); err != nil {
		logger.Warn("Graph store setup failed, store-backed features disabled", zap.Error(err))
	} else {
		store = client
		catalog = queries.NewCatalog(store, cfg.Query, metrics, logger)
		ingestor = ingest.NewIngestor(store, cfg.Ingest, metrics, logger)
	}

	// Stage 4: streaming ingestion, then the query catalog once the graph
	// is populated. Runs in the background so the dashboard is reachable
	// while batches stream in.
	if ingestor != nil {
		go func() {
			summary, err := ingestor.Run(ctx, result, ds.Edges)
			if err != nil {
				logger.Warn("Ingestion stopped before completion", zap.Error(err))
				return
			}
			logger.Info("Ingestion complete",
				zap.String("run_id", summary.RunID),
				zap.Int("steps", summary.StepsProcessed),
				zap.Int("failed_steps", summary.FailedSteps),
			)

			executions := catalog.RunAll(ctx)
			if err := queries.ExportCSV(cfg.Dataset.OutputDir, executions); err != nil {
				logger.Warn("Failed to export query results", zap.Error(err))
			}
		}()
	}

	// Stage 5: dashboard API.
	data := &httpapi.Data{Result: result, Edges: ds.Edges, Report: report}
	router := httpapi.NewRouter(cfg, data, storeOrNil(store), catalog, ingestor, metrics, logger)

	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	var watcher *config.Watcher
	if cfg.Features.EnableHotReload {
		if w, err := config.NewWatcher(cfg, logger); err != nil {
			logger.Warn("Config hot reload unavailable", zap.Error(err))
		} else {
			watcher = w
			watcher.OnChange(func(updated *config.Config) {
				if catalog != nil {
					catalog.SetDefaults(updated.Query)
				}
				logger.Info("Applied reloaded configuration",
					zap.Strings("config_sources", updated.LoadedFrom),
				)
			})
			defer watcher.Stop()
		}
	}

	go func() {
		logger.Info("Dashboard listening", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", zap.Error(err))
	}
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsDevelopment() {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// storeOrNil avoids handing the router a typed nil behind the Store
// interface.
func storeOrNil(c *arango.Client) storage.Store {
	if c == nil {
		return nil
	}
	return c
}
