package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/shopkeeper/internal/server/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// NewRouter mounts the API under /api plus /health and /metrics at the root.
// m may be nil, in which case /metrics is not served.
func NewRouter(h *Handler, m *metrics.Metrics) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.logRequests)
	if m != nil {
		r.Use(m.Middleware)
	}
	r.Use(middleware.Recoverer)

	r.NotFound(h.notFound)
	r.MethodNotAllowed(h.methodNotAllowed)

	r.Get("/health", h.health)
	if m != nil {
		r.Method(http.MethodGet, "/metrics", m.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", h.register)
			r.Post("/login", h.login)
			r.Get("/me", h.requireAuth(h.me))
			r.Post("/refresh", h.requireAuth(h.refresh))
			r.Post("/logout", h.requireAuth(h.logout))
		})

		r.Route("/users", func(r chi.Router) {
			r.Get("/", h.listUsers)
			r.Post("/", h.requireAuth(h.createUser))
			r.Get("/{id}", h.getUser)
			r.Put("/{id}", h.requireAuth(h.updateUser))
			r.Delete("/{id}", h.requireAuth(h.deleteUser))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", h.listOrders)
			r.Post("/", h.requireAuth(h.createOrder))
			r.Get("/{id}", h.getOrder)
			r.Put("/{id}", h.requireAuth(h.updateOrder))
			r.Delete("/{id}", h.requireAuth(h.deleteOrder))
		})
	})

	return otelhttp.NewHandler(r, "shopkeeper",
		otelhttp.WithFilter(func(r *http.Request) bool {
			return r.URL.Path != "/health" && r.URL.Path != "/metrics"
		}),
	)
}
