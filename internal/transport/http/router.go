package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/vladislavdragonenkov/storefront/internal/auth"
)

// NewRouter собирает REST-маршруты заказов поверх chi.
func NewRouter(handler *Handler, jwtSecret []byte) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Route("/api/v1/orders", func(r chi.Router) {
		r.Use(Authenticate(jwtSecret))

		r.Post("/", handler.CreateOrder)
		r.Get("/{number}", handler.GetOrder)
		r.Get("/{number}/timeline", handler.GetOrderTimeline)

		r.Group(func(r chi.Router) {
			r.Use(RequireRole(auth.RoleAdmin))
			r.Get("/", handler.ListOrders)
			r.Patch("/{number}/status", handler.UpdateStatus)
		})
	})

	return r
}
