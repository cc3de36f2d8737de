package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/mmeshcher/foodie-express/internal/catalog"
	"github.com/mmeshcher/foodie-express/internal/model"
	"github.com/mmeshcher/foodie-express/internal/service"
)

// parseFilter читает условия отбора меню из строки запроса.
func parseFilter(r *http.Request) (catalog.Filter, error) {
	q := r.URL.Query()
	f := catalog.Filter{
		Query:    q.Get("q"),
		Category: q.Get("category"),
	}

	if v := q.Get("veg"); v != "" {
		veg, err := strconv.ParseBool(v)
		if err != nil {
			return catalog.Filter{}, err
		}
		f.VegOnly = veg
	}
	if v := q.Get("minPrice"); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return catalog.Filter{}, err
		}
		f.MinPrice = &d
	}
	if v := q.Get("maxPrice"); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return catalog.Filter{}, err
		}
		f.MaxPrice = &d
	}
	if v := q.Get("minRating"); v != "" {
		rating, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return catalog.Filter{}, err
		}
		f.MinRating = rating
	}
	return f, nil
}

// GetMenu возвращает действующее меню с учётом фильтров.
func (h *Handler) GetMenu(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusOK, h.service.Menu(f))
}

// GetCategories возвращает категории меню.
func (h *Handler) GetCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Categories())
}

// GetMenuItem возвращает позицию меню.
func (h *Handler) GetMenuItem(w http.ResponseWriter, r *http.Request) {
	item, ok := h.service.MenuItem(chi.URLParam(r, "id"))
	if !ok {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, item)
}

func (h *Handler) menuError(w http.ResponseWriter, msg, id string, err error) {
	switch {
	case errors.Is(err, service.ErrItemNotFound):
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	case errors.Is(err, catalog.ErrInvalidItem):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		h.internalError(w, msg, err, zapItem(id))
	}
}

// AddMenuItem добавляет позицию в меню.
func (h *Handler) AddMenuItem(w http.ResponseWriter, r *http.Request) {
	var item model.MenuItem
	if err := decodeJSON(r, &item); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	added, err := h.service.AddMenuItem(r.Context(), item)
	if err != nil {
		h.menuError(w, "add menu item error", item.Name, err)
		return
	}

	writeJSON(w, http.StatusCreated, added)
}

// UpdateMenuItem применяет частичную правку к позиции меню.
func (h *Handler) UpdateMenuItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var patch model.MenuItemPatch
	if err := decodeJSON(r, &patch); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := h.service.UpdateMenuItem(r.Context(), id, patch); err != nil {
		h.menuError(w, "update menu item error", id, err)
		return
	}

	item, ok := h.service.MenuItem(id)
	if !ok {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// DeleteMenuItem удаляет позицию из меню.
func (h *Handler) DeleteMenuItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.service.RemoveMenuItem(r.Context(), id); err != nil {
		h.menuError(w, "delete menu item error", id, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
