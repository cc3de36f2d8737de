// Package handler содержит HTTP-обработчики API витрины доставки еды.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/mmeshcher/foodie-express/internal/cart"
	"github.com/mmeshcher/foodie-express/internal/catalog"
	"github.com/mmeshcher/foodie-express/internal/events"
	"github.com/mmeshcher/foodie-express/internal/middleware"
	"github.com/mmeshcher/foodie-express/internal/model"
	"github.com/mmeshcher/foodie-express/internal/service"
	"github.com/mmeshcher/foodie-express/internal/validation"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	RegisterUser(ctx context.Context, email, password, displayName string) (model.User, error)
	AuthenticateUser(ctx context.Context, email, password string) (model.User, error)
	GetUser(ctx context.Context, userID string) (model.User, error)
	IsAdmin(ctx context.Context, userID string) bool

	Menu(f catalog.Filter) []model.MenuItem
	MenuItem(id string) (model.MenuItem, bool)
	Categories() []string
	AddMenuItem(ctx context.Context, item model.MenuItem) (model.MenuItem, error)
	UpdateMenuItem(ctx context.Context, id string, patch model.MenuItemPatch) error
	RemoveMenuItem(ctx context.Context, id string) error

	Cart(ctx context.Context, owner cart.Owner) model.CartState
	AddToCart(ctx context.Context, owner cart.Owner, itemID string) (model.CartState, error)
	UpdateCartItem(ctx context.Context, owner cart.Owner, itemID string, qty int) model.CartState
	RemoveCartItem(ctx context.Context, owner cart.Owner, itemID string) model.CartState
	ClearCart(ctx context.Context, owner cart.Owner) model.CartState
	SwitchIdentity(ctx context.Context, from, to cart.Owner) model.CartState

	PlaceOrder(ctx context.Context, owner cart.Owner, info model.CustomerInfo, method model.PaymentMethod) (model.Order, error)
	Orders(ctx context.Context, userID string, status model.OrderStatus) ([]model.Order, error)
	Order(ctx context.Context, userID, orderID string) (model.Order, error)
	AllOrders(ctx context.Context) ([]model.Order, error)
	UpdateOrderStatus(ctx context.Context, userID, orderID string, status model.OrderStatus) (model.Order, error)
	CustomerInfo(ctx context.Context, userID string) (model.CustomerInfo, bool, error)

	Locations() []model.Location
	CurrentLocation(ctx context.Context, identity string) model.Location
	SetLocation(ctx context.Context, identity, locationID string) (model.Location, error)
}

// Handler реализует HTTP-обработчики API витрины.
type Handler struct {
	service        Service
	hub            *events.Hub
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, hub *events.Hub, logger *zap.Logger, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{
		service:        s,
		hub:            hub,
		logger:         logger,
		authMiddleware: auth,
	}
}

// owner собирает владельца корзины из контекста запроса.
func owner(r *http.Request) cart.Owner {
	userID, _ := middleware.GetUserIDFromContext(r.Context())
	guestID, _ := middleware.GetGuestIDFromContext(r.Context())
	return cart.Owner{UserID: userID, GuestID: guestID}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

type validationResponse struct {
	Field string `json:"field"`
	Error string `json:"error"`
}

// writeValidationError отвечает 422 с описанием поля, если err является ошибкой проверки данных.
func writeValidationError(w http.ResponseWriter, err error) bool {
	var verr *validation.Error
	if !errors.As(err, &verr) {
		return false
	}
	writeJSON(w, http.StatusUnprocessableEntity, validationResponse{Field: verr.Field, Error: verr.Reason})
	return true
}

func (h *Handler) internalError(w http.ResponseWriter, msg string, err error, fields ...zap.Field) {
	h.logger.Error(msg, append(fields, zap.Error(err))...)
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

type registerRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResponse struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	IsAdmin     bool   `json:"isAdmin"`
}

type sessionResponse struct {
	User userResponse `json:"user"`
	Cart cartResponse `json:"cart"`
}

// Register обрабатывает регистрацию нового пользователя и выполняет вход.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	user, err := h.service.RegisterUser(r.Context(), req.Email, req.Password, req.DisplayName)
	if err != nil {
		var inputErr *service.InputError
		switch {
		case errors.As(err, &inputErr):
			http.Error(w, inputErr.Reason, http.StatusBadRequest)
		case errors.Is(err, service.ErrUserExists):
			http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)
		default:
			h.internalError(w, "register user error", err)
		}
		return
	}

	h.startSession(w, r, user)
}

// Login выполняет аутентификацию пользователя, установку cookie и переключение корзины.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	user, err := h.service.AuthenticateUser(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) || errors.Is(err, service.ErrInvalidCredentials) {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		h.internalError(w, "login user error", err)
		return
	}

	h.startSession(w, r, user)
}

func (h *Handler) startSession(w http.ResponseWriter, r *http.Request, user model.User) {
	from := owner(r)
	to := cart.Owner{UserID: user.ID, GuestID: from.GuestID}
	state := h.service.SwitchIdentity(r.Context(), from, to)

	h.authMiddleware.SetAuthCookie(w, user.ID)
	writeJSON(w, http.StatusOK, sessionResponse{
		User: userResponse{
			ID:          user.ID,
			Email:       user.Email,
			DisplayName: user.DisplayName,
			IsAdmin:     h.service.IsAdmin(r.Context(), user.ID),
		},
		Cart: newCartResponse(state),
	})
}

// Logout завершает сессию пользователя и возвращает гостевую корзину.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	from := owner(r)
	to := cart.Owner{GuestID: from.GuestID}
	state := h.service.SwitchIdentity(r.Context(), from, to)

	h.authMiddleware.ClearAuthCookie(w)
	writeJSON(w, http.StatusOK, newCartResponse(state))
}

// Me возвращает профиль текущего пользователя.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	user, err := h.service.GetUser(r.Context(), userID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		h.internalError(w, "get user error", err, zap.String("userID", userID))
		return
	}

	writeJSON(w, http.StatusOK, userResponse{
		ID:          user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		IsAdmin:     h.service.IsAdmin(r.Context(), user.ID),
	})
}
