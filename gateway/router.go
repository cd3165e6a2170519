// Package gateway exposes the marketplace node over REST for the dashboard
// and other API clients.
package gateway

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"fanmarket/core"
	"fanmarket/gateway/middleware"
)

// Config bundles the gateway's edge configuration.
type Config struct {
	Auth           middleware.AuthConfig
	Observability  middleware.ObservabilityConfig
	AllowedOrigins []string
}

// Server routes REST traffic onto the node's serialized operation surface.
type Server struct {
	node   *core.Node
	logger *slog.Logger
	auth   *middleware.Authenticator
	obs    *middleware.Observability
	cfg    Config
}

// NewServer builds the gateway around an assembled node.
func NewServer(node *core.Node, cfg Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		node:   node,
		logger: logger,
		auth:   middleware.NewAuthenticator(cfg.Auth, logger),
		obs:    middleware.NewObservability(cfg.Observability, logger),
		cfg:    cfg,
	}
}

// Router assembles the REST surface.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.CORS(s.cfg.AllowedOrigins))
	r.Use(s.auth.Middleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Method(http.MethodGet, "/metrics", s.obs.MetricsHandler())

	r.Route("/v1", func(r chi.Router) {
		r.With(s.obs.Middleware("products")).Route("/products", func(r chi.Router) {
			r.Post("/", s.handleDefineProduct)
			r.Get("/", s.handleListProducts)
			r.Get("/{id}", s.handleGetProduct)
			r.Post("/{id}/active", s.handleSetProductActive)
			r.Get("/{id}/purchases", s.handlePurchaseHistory)
		})
		r.With(s.obs.Middleware("purchases")).Post("/purchases", s.handleBuyItem)
		r.With(s.obs.Middleware("loyalty")).Route("/loyalty", func(r chi.Router) {
			r.Get("/thresholds", s.handleThresholds)
			r.Get("/accounts/{address}", s.handleSpendingInfo)
			r.Post("/minters", s.handleSetAuthorizedMinter)
			r.Post("/badges/mint", s.handleMintBadge)
			r.Get("/badges/{address}/{tier}", s.handleBadgeBalance)
		})
		r.With(s.obs.Middleware("resale")).Route("/resale", func(r chi.Router) {
			r.Post("/listings", s.handleListForResale)
			r.Get("/listings", s.handleActiveListings)
			r.Post("/listings/{id}/cancel", s.handleCancelListing)
			r.Post("/fees", s.handleResaleFees)
			r.Post("/purchases", s.handleBuyResaleItem)
		})
		r.With(s.obs.Middleware("accounts")).Route("/accounts", func(r chi.Router) {
			r.Get("/{address}", s.handleGetAccount)
			r.Get("/{address}/products", s.handleOwnedProducts)
			r.Get("/{address}/can-resell/{productId}", s.handleCanResell)
			r.Post("/{address}/fund", s.handleFundAccount)
		})
	})
	return r
}
