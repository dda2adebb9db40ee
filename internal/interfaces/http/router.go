// Package http wires the dashboard-facing REST API: dataset overview and
// explorer endpoints computed in memory, live graph store metrics, and
// parameterized catalog query execution.
package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"elliptigraph-backend/internal/analytics"
	"elliptigraph-backend/internal/config"
	"elliptigraph-backend/internal/dataset"
	"elliptigraph-backend/internal/ingest"
	"elliptigraph-backend/internal/observability"
	"elliptigraph-backend/internal/preprocess"
	"elliptigraph-backend/internal/queries"
	"elliptigraph-backend/internal/storage"
)

// Data carries the in-memory pipeline artifacts the API serves without
// touching the store.
type Data struct {
	Result *preprocess.Result
	Edges  []dataset.Edge
	Report *analytics.Report
}

// Router assembles the HTTP API.
type Router struct {
	cfg      *config.Config
	logger   *zap.Logger
	metrics  *observability.Collector
	store    storage.Store
	catalog  *queries.Catalog
	ingestor *ingest.Ingestor
	data     *Data
	validate *validator.Validate
}

// NewRouter creates the router. metrics, store, catalog, and ingestor may
// be nil when the corresponding stage is disabled; affected endpoints then
// answer 503.
func NewRouter(
	cfg *config.Config,
	data *Data,
	store storage.Store,
	catalog *queries.Catalog,
	ingestor *ingest.Ingestor,
	metrics *observability.Collector,
	logger *zap.Logger,
) *Router {
	return &Router{
		cfg:      cfg,
		logger:   logger,
		metrics:  metrics,
		store:    store,
		catalog:  catalog,
		ingestor: ingestor,
		data:     data,
		validate: validator.New(),
	}
}

// Setup builds the chi handler tree.
func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(rt.logger))
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	if rt.metrics != nil {
		r.Use(MetricsMiddleware(rt.metrics))
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(
			rt.metrics.Registry(),
			promhttp.HandlerOpts{},
		))
	}

	r.Get("/health", rt.healthHandler)

	r.Route("/api", func(r chi.Router) {
		r.Get("/overview", rt.overviewHandler)
		r.Get("/network", rt.networkHandler)

		r.Get("/store/summary", rt.storeSummaryHandler)
		r.Get("/ingest/status", rt.ingestStatusHandler)

		r.Get("/queries", rt.catalogHandler)
		r.Post("/queries/{tier}/{name}", rt.executeQueryHandler)

		r.Route("/explorer", func(r chi.Router) {
			r.Get("/correlation", rt.correlationHandler)
			r.Get("/rows", rt.rowsHandler)
		})
	})

	// Generated artifacts: charts and result CSVs.
	fileServer := http.StripPrefix("/files/", http.FileServer(http.Dir(rt.cfg.Dataset.OutputDir)))
	r.Get("/files/*", fileServer.ServeHTTP)

	return r
}
