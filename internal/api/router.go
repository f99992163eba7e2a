package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/sadewadee/marketing-engine/internal/api/handlers"
)

// Router sets up all API routes
type Router struct {
	campaigns  *handlers.CampaignHandler
	visibility *handlers.VisibilityHandler
	batch      *handlers.BatchHandler
	health     http.Handler
	metrics    http.Handler
	logger     *zap.Logger
}

// NewRouter creates a new Router. metrics may be nil.
func NewRouter(
	campaigns *handlers.CampaignHandler,
	visibility *handlers.VisibilityHandler,
	batch *handlers.BatchHandler,
	health http.Handler,
	metrics http.Handler,
	logger *zap.Logger,
) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Router{
		campaigns:  campaigns,
		visibility: visibility,
		batch:      batch,
		health:     health,
		metrics:    metrics,
		logger:     logger.Named("http"),
	}
}

// Setup configures all routes. Health and metrics stay outside auth.
func (r *Router) Setup(token string) http.Handler {
	mux := chi.NewRouter()

	mux.Use(
		middleware.RequestID,
		Recovery(r.logger),
		Logger(r.logger),
		CORS,
		SecurityHeaders,
	)

	mux.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		handlers.RenderError(w, http.StatusNotFound, "Not found")
	})
	mux.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		handlers.RenderError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	mux.Method(http.MethodGet, "/healthz", r.health)
	if r.metrics != nil {
		mux.Method(http.MethodGet, "/metrics", r.metrics)
	}

	mux.Route("/api/v2", func(api chi.Router) {
		api.Use(Auth(token))

		api.Post("/campaign-plans", r.campaigns.Create)
		api.Get("/verticals", r.campaigns.Verticals)

		api.Route("/businesses/{businessID}/visibility", func(v chi.Router) {
			v.Get("/organic", r.visibility.Organic)
			v.Get("/map-pack", r.visibility.MapPack)
			v.Get("/share-of-voice", r.visibility.ShareOfVoice)
			v.Get("/serp-features", r.visibility.SerpFeatures)
			v.Get("/metrics", r.visibility.Metrics)
			v.Post("/compute", r.visibility.Compute)
		})

		api.Post("/visibility/batch", r.batch.Run)
	})

	return mux
}
