package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mmeshcher/foodie-express/internal/cart"
	"github.com/mmeshcher/foodie-express/internal/model"
	"github.com/mmeshcher/foodie-express/internal/service"
)

func zapItem(id string) zap.Field {
	return zap.String("item", id)
}

type cartResponse struct {
	model.CartState
	Summary cart.Summary `json:"summary"`
}

func newCartResponse(state model.CartState) cartResponse {
	if state.Items == nil {
		state.Items = []model.CartLine{}
	}
	return cartResponse{CartState: state, Summary: cart.Summarize(state)}
}

type addItemRequest struct {
	ID string `json:"id"`
}

type quantityRequest struct {
	Quantity *int `json:"quantity"`
}

// GetCart возвращает корзину текущего владельца с итогом.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, newCartResponse(h.service.Cart(r.Context(), owner(r))))
}

// AddCartItem добавляет в корзину одну единицу позиции меню.
func (h *Handler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := decodeJSON(r, &req); err != nil || req.ID == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	state, err := h.service.AddToCart(r.Context(), owner(r), req.ID)
	if err != nil {
		if errors.Is(err, service.ErrItemNotFound) {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		h.internalError(w, "add cart item error", err, zapItem(req.ID))
		return
	}

	writeJSON(w, http.StatusOK, newCartResponse(state))
}

// UpdateCartItem задаёт количество позиции. Количество 0 и меньше удаляет строку.
func (h *Handler) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	var req quantityRequest
	if err := decodeJSON(r, &req); err != nil || req.Quantity == nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	state := h.service.UpdateCartItem(r.Context(), owner(r), chi.URLParam(r, "id"), *req.Quantity)
	writeJSON(w, http.StatusOK, newCartResponse(state))
}

// RemoveCartItem удаляет строку корзины.
func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	state := h.service.RemoveCartItem(r.Context(), owner(r), chi.URLParam(r, "id"))
	writeJSON(w, http.StatusOK, newCartResponse(state))
}

// ClearCart очищает корзину.
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	state := h.service.ClearCart(r.Context(), owner(r))
	writeJSON(w, http.StatusOK, newCartResponse(state))
}

type locationRequest struct {
	ID string `json:"id"`
}

// GetLocations возвращает список регионов доставки.
func (h *Handler) GetLocations(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Locations())
}

// GetLocation возвращает выбранный регион.
func (h *Handler) GetLocation(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.CurrentLocation(r.Context(), owner(r).Identity()))
}

// SetLocation сохраняет выбранный регион.
func (h *Handler) SetLocation(w http.ResponseWriter, r *http.Request) {
	var req locationRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	identity := owner(r).Identity()
	l, err := h.service.SetLocation(r.Context(), identity, req.ID)
	if err != nil {
		if errors.Is(err, service.ErrUnknownLocation) {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		h.internalError(w, "set location error", err, zap.String("identity", identity))
		return
	}

	writeJSON(w, http.StatusOK, l)
}
