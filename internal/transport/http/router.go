// Package httptransport is the ops and relay HTTP surface. It delegates to
// domain services without embedding business logic so transport concerns
// remain isolated.
package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	authmw "mintgate/pkg/platform/middleware/auth"
	request "mintgate/pkg/platform/middleware/request"
)

// RouterConfig carries the cross-cutting dependencies the router mounts
// around the handlers.
type RouterConfig struct {
	Logger       *slog.Logger
	JWTValidator authmw.JWTValidator
	Registry     *prometheus.Registry
	Health       func(r *http.Request) error
}

// NewRouter wires all endpoints. The admin subtree is gated behind bearer
// auth; everything else is open to the relay and operators.
func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(chimw.Recoverer)

	r.Get("/healthz", h.HandleHealth(cfg.Health))
	if cfg.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/v1", func(r chi.Router) {
		r.Get("/transactions", h.HandleTransactionsByIdentity)
		r.Get("/transactions/{txID}/status", h.HandleTransactionStatus)
		r.Get("/transactions/{txID}/metadata", h.HandleTransactionMetadata)

		r.Post("/events/member-join", h.HandleMemberJoin)

		r.Route("/admin", func(r chi.Router) {
			r.Use(authmw.RequireAuth(cfg.JWTValidator, cfg.Logger))
			r.Post("/reissue/{memberID}", h.HandleForceReissue)
		})
	})
	return r
}
