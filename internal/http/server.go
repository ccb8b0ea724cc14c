package http

import (
	"net/http"

	"solshop-be/internal/logger"
	appmw "solshop-be/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Server struct {
	Router *chi.Mux
}

func NewServer(handler *Handler) *Server {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(logger.RequestIDMiddleware)
	r.Use(logger.LoggingMiddleware)
	r.Use(appmw.CORS)
	r.Use(appmw.RateLimitMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/cart", func(r chi.Router) {
			r.Get("/", handler.GetCart)
			r.Delete("/", handler.ClearCart)
			r.Post("/items", handler.AddCartItem)
			r.Patch("/items/{itemID}", handler.UpdateCartItem)
			r.Delete("/items/{itemID}", handler.RemoveCartItem)
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Get("/", handler.CheckoutState)
			r.Post("/begin", handler.BeginCheckout)
			r.Post("/shipping", handler.SubmitShipping)
			r.Post("/back", handler.CheckoutBack)
			r.Post("/submit", handler.SubmitPayment)
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", handler.ListOrders)
			r.Post("/{orderID}/cancel", handler.CancelOrder)
		})

		r.Get("/rates/convert", handler.ConvertRate)
	})

	return &Server{Router: r}
}
