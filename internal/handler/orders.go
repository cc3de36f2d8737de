package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mmeshcher/foodie-express/internal/middleware"
	"github.com/mmeshcher/foodie-express/internal/model"
	"github.com/mmeshcher/foodie-express/internal/order"
)

type placeOrderRequest struct {
	CustomerInfo  model.CustomerInfo  `json:"customerInfo"`
	PaymentMethod model.PaymentMethod `json:"paymentMethod"`
}

type statusRequest struct {
	Status model.OrderStatus `json:"status"`
}

// PlaceOrder оформляет заказ из корзины текущего пользователя.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req placeOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	o, err := h.service.PlaceOrder(r.Context(), owner(r), req.CustomerInfo, req.PaymentMethod)
	if err != nil {
		if writeValidationError(w, err) {
			return
		}
		switch {
		case errors.Is(err, order.ErrNoIdentity):
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		case errors.Is(err, order.ErrEmptyCart):
			http.Error(w, order.ErrEmptyCart.Error(), http.StatusBadRequest)
		default:
			h.internalError(w, "place order error", err)
		}
		return
	}

	writeJSON(w, http.StatusCreated, o)
}

// GetOrders возвращает заказы текущего пользователя, новые первыми.
func (h *Handler) GetOrders(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	status := model.OrderStatus(r.URL.Query().Get("status"))
	if status != "" && !status.Valid() {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	orders, err := h.service.Orders(r.Context(), userID, status)
	if err != nil {
		h.internalError(w, "get orders error", err, zap.String("userID", userID))
		return
	}

	if len(orders) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	writeJSON(w, http.StatusOK, orders)
}

// GetOrder возвращает заказ текущего пользователя.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	o, err := h.service.Order(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		h.internalError(w, "get order error", err, zap.String("userID", userID))
		return
	}

	writeJSON(w, http.StatusOK, o)
}

// GetCustomerInfo возвращает контактные данные из последнего заказа для предзаполнения формы.
func (h *Handler) GetCustomerInfo(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	info, found, err := h.service.CustomerInfo(r.Context(), userID)
	if err != nil {
		h.internalError(w, "get customer info error", err, zap.String("userID", userID))
		return
	}

	if !found {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	writeJSON(w, http.StatusOK, info)
}

// RequireAdmin пропускает только пользователей из списка администраторов.
func (h *Handler) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := middleware.GetUserIDFromContext(r.Context())
		if !ok {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		if !h.service.IsAdmin(r.Context(), userID) {
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetAllOrders возвращает заказы всех пользователей.
func (h *Handler) GetAllOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.service.AllOrders(r.Context())
	if err != nil {
		h.internalError(w, "get all orders error", err)
		return
	}

	if len(orders) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	writeJSON(w, http.StatusOK, orders)
}

// UpdateOrderStatus меняет статус заказа пользователя.
func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	orderID := chi.URLParam(r, "id")

	var req statusRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	o, err := h.service.UpdateOrderStatus(r.Context(), userID, orderID, req.Status)
	if err != nil {
		switch {
		case errors.Is(err, order.ErrInvalidStatus):
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		case errors.Is(err, order.ErrNotFound):
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		case errors.Is(err, order.ErrInvalidTransition):
			http.Error(w, err.Error(), http.StatusConflict)
		default:
			h.internalError(w, "update order status error", err,
				zap.String("userID", userID), zap.String("order", orderID))
		}
		return
	}

	writeJSON(w, http.StatusOK, o)
}
