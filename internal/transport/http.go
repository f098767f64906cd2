package transport

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"
	handler "github.com/vasiliy-maslov/laptop-store/internal/handler/http"
)

// Pinger reports whether a backing dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handlers struct {
	Products *handler.ProductHandler
	Carts    *handler.CartHandler
	Orders   *handler.OrderHandler
	Payments *handler.PaymentHandler
	Refunds  *handler.RefundHandler
	Reviews  *handler.ReviewHandler
}

// NewRouter mounts public catalog routes, customer routes that require a
// caller identity, the payment gateway callbacks and admin routes under /admin.
func NewRouter(h Handlers, db Pinger) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(hlog.NewHandler(log.Logger))
	r.Use(requestIDLogger)
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("HTTP request")
	}))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := db.Ping(ctx); err != nil {
			hlog.FromRequest(r).Error().Err(err).Msg("Health check failed")
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("UNAVAILABLE"))
			return
		}
		_, _ = w.Write([]byte("OK"))
	})

	h.Products.RegisterRoutes(r)
	h.Reviews.RegisterRoutes(r)

	r.Group(func(r chi.Router) {
		r.Use(handler.RequireCaller)
		h.Carts.RegisterRoutes(r)
		h.Orders.RegisterRoutes(r)
		h.Refunds.RegisterRoutes(r)
	})

	r.Group(func(r chi.Router) {
		r.Use(handler.RequireCaller)
		r.Use(handler.RequireAdmin)
		h.Payments.RegisterRoutes(r)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(handler.RequireCaller)
		r.Use(handler.RequireAdmin)
		h.Products.RegisterAdminRoutes(r)
		h.Orders.RegisterAdminRoutes(r)
		h.Refunds.RegisterAdminRoutes(r)
	})

	return r
}

// requestIDLogger copies chi's request id into the request logger.
func requestIDLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := middleware.GetReqID(r.Context()); id != "" {
			hlog.FromRequest(r).UpdateContext(func(c zerolog.Context) zerolog.Context {
				return c.Str("request_id", id)
			})
		}
		next.ServeHTTP(w, r)
	})
}
