package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/mmeshcher/foodie-express/internal/events"
	custommiddleware "github.com/mmeshcher/foodie-express/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware витрины.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(custommiddleware.Logger(h.logger))
	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.GuestSession)
	r.Use(h.authMiddleware.Optional)

	r.Get("/api/events", events.HandleWebSocket(h.hub))

	r.Route("/api/menu", func(r chi.Router) {
		r.Get("/", h.GetMenu)
		r.Get("/categories", h.GetCategories)
		r.Get("/{id}", h.GetMenuItem)
	})

	r.Route("/api/cart", func(r chi.Router) {
		r.Get("/", h.GetCart)
		r.Delete("/", h.ClearCart)
		r.Post("/items", h.AddCartItem)
		r.Put("/items/{id}", h.UpdateCartItem)
		r.Delete("/items/{id}", h.RemoveCartItem)
	})

	r.Get("/api/locations", h.GetLocations)
	r.Get("/api/location", h.GetLocation)
	r.Put("/api/location", h.SetLocation)

	r.Route("/api/user", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.Post("/logout", h.Logout)

		r.Group(func(r chi.Router) {
			r.Use(h.authMiddleware.Middleware)

			r.Get("/me", h.Me)

			r.Post("/orders", h.PlaceOrder)
			r.Get("/orders", h.GetOrders)
			r.Get("/orders/{id}", h.GetOrder)

			r.Get("/customer-info", h.GetCustomerInfo)
		})
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(h.authMiddleware.Middleware)
		r.Use(h.RequireAdmin)

		r.Post("/menu", h.AddMenuItem)
		r.Patch("/menu/{id}", h.UpdateMenuItem)
		r.Delete("/menu/{id}", h.DeleteMenuItem)

		r.Get("/orders", h.GetAllOrders)
		r.Put("/orders/{userId}/{id}/status", h.UpdateOrderStatus)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}
