// Package api exposes the feature graph service over HTTP.
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/rohankatakam/featurekg/internal/config"
	"github.com/rohankatakam/featurekg/internal/metrics"
	"github.com/rohankatakam/featurekg/internal/service"
)

// Router creates and configures the HTTP router
type Router struct {
	svc    *service.Service
	cfg    config.ServerConfig
	logger *slog.Logger
}

// NewRouter creates a new router instance
func NewRouter(svc *service.Service, cfg config.ServerConfig, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxUploadMB <= 0 {
		cfg.MaxUploadMB = config.Default().Server.MaxUploadMB
	}
	return &Router{svc: svc, cfg: cfg, logger: logger.With("component", "api")}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(requestLogger(rt.logger))
	router.Use(observe)

	origins := rt.cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID", "Content-Disposition"},
		MaxAge:         300,
	}))

	router.Handle("/metrics", metrics.Handler())

	graphHandler := &graphHandler{svc: rt.svc, logger: rt.logger}
	editHandler := &editHandler{svc: rt.svc, logger: rt.logger}
	exchangeHandler := &exchangeHandler{svc: rt.svc, logger: rt.logger, maxUpload: rt.cfg.MaxUploadMB << 20}

	router.Route("/api", func(r chi.Router) {
		r.Get("/health", graphHandler.Health)
		r.Post("/reconnect", graphHandler.Reconnect)
		r.Get("/test-connection", graphHandler.TestConnection)
		r.Get("/graph", graphHandler.GraphData)
		r.Get("/labels", graphHandler.Labels)
		r.Get("/debug/nodes", graphHandler.DebugNodes)
		r.Get("/history", graphHandler.History)
		r.Get("/history/{runID}", graphHandler.Run)

		r.Route("/repositories", func(r chi.Router) {
			r.Get("/", graphHandler.Repositories)
			r.Get("/{repositoryID}/structures", graphHandler.RepositoryStructures)
		})

		r.Route("/nodes", func(r chi.Router) {
			r.Post("/", editHandler.CreateNode)
			r.Put("/{nodeID}", editHandler.UpdateNode)
			r.Delete("/{nodeID}", editHandler.DeleteNode)
		})

		r.Route("/relationships", func(r chi.Router) {
			r.Post("/", editHandler.CreateRelationship)
			r.Put("/{relationshipID}", editHandler.UpdateRelationship)
			r.Delete("/{relationshipID}", editHandler.DeleteRelationship)
		})

		r.Route("/export", func(r chi.Router) {
			r.Get("/", exchangeHandler.Export)
			r.Get("/xml/full", exchangeHandler.ExportFullXML)
			r.Post("/xml/selective", exchangeHandler.ExportSelectiveXML)
			r.Post("/xml", exchangeHandler.ExportXML)
			r.Post("/selective", exchangeHandler.ExportSelective)
		})

		r.Route("/import", func(r chi.Router) {
			r.Post("/", exchangeHandler.ImportXML)
			r.Post("/json", exchangeHandler.ImportJSON)
		})

		r.Post("/cleanse", exchangeHandler.Cleanse)
	})

	return router
}
