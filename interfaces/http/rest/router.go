// Package rest wires the chi router, middleware stack and handlers of the
// studio HTTP API.
package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"studio-backend/interfaces/http/rest/handlers"
	"studio-backend/pkg/auth"
	"studio-backend/pkg/observability"
)

// RouterConfig carries everything the router needs
type RouterConfig struct {
	FlowHandler    *handlers.FlowHandler
	CatalogHandler *handlers.CatalogHandler
	AuthHandler    *handlers.AuthHandler
	Tokens         *auth.TokenService
	Metrics        *observability.Metrics
	Logger         *zap.Logger
	AllowedOrigins []string
}

// NewRouter builds the HTTP router
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(RequestLogger(cfg.Logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	if cfg.Metrics != nil {
		r.Use(MetricsCollector(cfg.Metrics))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/token", cfg.AuthHandler.IssueToken)

		r.Group(func(r chi.Router) {
			r.Use(Authenticator(cfg.Tokens))

			r.Get("/catalog", cfg.CatalogHandler.GetCatalog)

			r.Route("/flows", func(r chi.Router) {
				r.Post("/", cfg.FlowHandler.CreateFlow)
				r.Get("/", cfg.FlowHandler.ListFlows)

				r.Route("/{flowId}", func(r chi.Router) {
					r.Get("/", cfg.FlowHandler.GetFlow)
					r.Put("/", cfg.FlowHandler.RenameFlow)
					r.Delete("/", cfg.FlowHandler.DeleteFlow)
					r.Get("/render", cfg.FlowHandler.Render)

					r.Route("/nodes", func(r chi.Router) {
						r.Post("/", cfg.FlowHandler.CreateNode)
						r.Route("/{nodeId}", func(r chi.Router) {
							r.Put("/", cfg.FlowHandler.RenameNode)
							r.Delete("/", cfg.FlowHandler.DeleteNode)
							r.Put("/details", cfg.FlowHandler.SetNodeDetails)
							r.Post("/configure", cfg.FlowHandler.ConfigureNode)
							r.Get("/variables", cfg.FlowHandler.AvailableVariables)
							r.Post("/ports", cfg.FlowHandler.AddPort)
							r.Put("/ports/reorder", cfg.FlowHandler.ReorderPorts)
						})
					})

					r.Route("/ports/{portId}", func(r chi.Router) {
						r.Delete("/", cfg.FlowHandler.DeletePort)
						r.Put("/label", cfg.FlowHandler.SetPortLabel)
					})

					r.Route("/edges", func(r chi.Router) {
						r.Post("/", cfg.FlowHandler.CreateEdge)
						r.Route("/{edgeId}", func(r chi.Router) {
							r.Delete("/", cfg.FlowHandler.DeleteEdge)
							r.Put("/details", cfg.FlowHandler.SetEdgeDetails)
						})
					})
				})
			})
		})
	})

	return r
}
