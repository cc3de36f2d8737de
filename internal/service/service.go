// Package service связывает каталог, корзины, журнал заказов и учётные записи
// в операции витрины, которые вызывают HTTP-обработчики.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/mmeshcher/foodie-express/internal/cart"
	"github.com/mmeshcher/foodie-express/internal/catalog"
	"github.com/mmeshcher/foodie-express/internal/model"
	"github.com/mmeshcher/foodie-express/internal/order"
	"github.com/mmeshcher/foodie-express/internal/repository"
	"github.com/mmeshcher/foodie-express/internal/tracking"
)

const minPasswordLength = 6

var (
	ErrUserExists         = errors.New("user already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrItemNotFound       = errors.New("menu item not found")
	ErrUnknownLocation    = errors.New("unknown location")
)

var usersKey = repository.GlobalKey(repository.NamespaceUsers)

// InputError описывает некорректные данные регистрации.
type InputError struct {
	Reason string
}

func (e *InputError) Error() string { return e.Reason }

// Store описывает хранилище учётных записей, регионов и контактных данных.
type Store interface {
	Get(ctx context.Context, key repository.Key) ([]byte, error)
	Put(ctx context.Context, key repository.Key, value []byte) error
}

// Catalog описывает действующее меню.
type Catalog interface {
	Effective() []model.MenuItem
	Get(id string) (model.MenuItem, bool)
	Search(f catalog.Filter) []model.MenuItem
	Categories() []string
	Add(ctx context.Context, item model.MenuItem) (model.MenuItem, error)
	Update(ctx context.Context, id string, patch model.MenuItemPatch) error
	Remove(ctx context.Context, id string) error
}

// Carts описывает корзины владельцев.
type Carts interface {
	Get(ctx context.Context, owner cart.Owner) model.CartState
	Dispatch(ctx context.Context, owner cart.Owner, action cart.Action) model.CartState
	SwitchIdentity(ctx context.Context, from, to cart.Owner) model.CartState
}

// Orders описывает журнал заказов.
type Orders interface {
	Place(ctx context.Context, userID string, state model.CartState, info model.CustomerInfo, method model.PaymentMethod) (model.Order, error)
	List(ctx context.Context, userID string, status model.OrderStatus) ([]model.Order, error)
	Get(ctx context.Context, userID, orderID string) (model.Order, error)
	UpdateStatus(ctx context.Context, userID, orderID string, status model.OrderStatus) (model.Order, error)
	UpdateEstimate(ctx context.Context, userID, orderID string, eta time.Time) (model.Order, error)
	Index(ctx context.Context) ([]order.IndexEntry, error)
	All(ctx context.Context) ([]model.Order, error)
}

// OrderSink описывает удалённое зеркало заказов.
type OrderSink interface {
	WriteOrder(ctx context.Context, userID string, o model.Order) error
}

// StatusTracker запрашивает сведения о доставке во внешней системе.
type StatusTracker interface {
	Delivery(ctx context.Context, number string) (tracking.Delivery, error)
}

// Option настраивает необязательные возможности сервиса.
type Option func(*Service)

// WithRemote включает отправку заказов в удалённое зеркало через очередь.
func WithRemote(sink OrderSink, queue cart.Enqueuer) Option {
	return func(s *Service) {
		s.sink = sink
		s.queue = queue
	}
}

// WithTracker включает опрос внешней системы отслеживания.
func WithTracker(t StatusTracker) Option {
	return func(s *Service) {
		s.tracker = t
	}
}

// WithAdmins задаёт адреса электронной почты администраторов.
func WithAdmins(emails []string) Option {
	return func(s *Service) {
		for _, e := range emails {
			if e = normalizeEmail(e); e != "" {
				s.admins[e] = struct{}{}
			}
		}
	}
}

// Service содержит бизнес-логику витрины.
type Service struct {
	store   Store
	catalog Catalog
	carts   Carts
	orders  Orders
	logger  *zap.Logger

	sink    OrderSink
	queue   cart.Enqueuer
	tracker StatusTracker
	admins  map[string]struct{}

	usersMu sync.Mutex
}

// NewService создаёт сервис витрины.
func NewService(store Store, cat Catalog, carts Carts, orders Orders, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		store:   store,
		catalog: cat,
		carts:   carts,
		orders:  orders,
		logger:  logger,
		admins:  make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Service) loadUsers(ctx context.Context) ([]model.User, error) {
	var users []model.User
	_, err := repository.GetJSON(ctx, s.store, usersKey, &users)
	if errors.Is(err, repository.ErrCorrupted) {
		s.logger.Warn("discard corrupted user registry", zap.Error(err))
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	return users, nil
}

// RegisterUser регистрирует нового пользователя.
func (s *Service) RegisterUser(ctx context.Context, email, password, displayName string) (model.User, error) {
	email = normalizeEmail(email)
	displayName = strings.TrimSpace(displayName)

	switch {
	case email == "" || password == "" || displayName == "":
		return model.User{}, &InputError{Reason: "please fill in all fields"}
	case !strings.Contains(email, "@"):
		return model.User{}, &InputError{Reason: "invalid email address"}
	case len(password) < minPasswordLength:
		return model.User{}, &InputError{Reason: fmt.Sprintf("password should be at least %d characters", minPasswordLength)}
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return model.User{}, fmt.Errorf("hash password: %w", err)
	}

	s.usersMu.Lock()
	defer s.usersMu.Unlock()

	users, err := s.loadUsers(ctx)
	if err != nil {
		return model.User{}, err
	}
	for _, u := range users {
		if u.Email == email {
			return model.User{}, ErrUserExists
		}
	}

	u := model.User{
		ID:           uuid.NewString(),
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: hashed,
		CreatedAt:    time.Now(),
	}
	if err := repository.PutJSON(ctx, s.store, usersKey, append(users, u)); err != nil {
		return model.User{}, fmt.Errorf("save users: %w", err)
	}

	s.logger.Info("user registered", zap.String("user", u.ID))
	return u, nil
}

// AuthenticateUser проверяет адрес и пароль и возвращает пользователя.
// Неизвестный адрес и неверный пароль неразличимы для вызывающего.
func (s *Service) AuthenticateUser(ctx context.Context, email, password string) (model.User, error) {
	email = normalizeEmail(email)

	users, err := s.loadUsers(ctx)
	if err != nil {
		return model.User{}, err
	}

	for _, u := range users {
		if u.Email != email {
			continue
		}
		if err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)); err != nil {
			return model.User{}, ErrInvalidCredentials
		}
		return u, nil
	}
	return model.User{}, ErrInvalidCredentials
}

// GetUser возвращает пользователя по идентификатору.
func (s *Service) GetUser(ctx context.Context, userID string) (model.User, error) {
	users, err := s.loadUsers(ctx)
	if err != nil {
		return model.User{}, err
	}
	for _, u := range users {
		if u.ID == userID {
			return u, nil
		}
	}
	return model.User{}, ErrUserNotFound
}

// IsAdmin сообщает, является ли пользователь администратором.
func (s *Service) IsAdmin(ctx context.Context, userID string) bool {
	u, err := s.GetUser(ctx, userID)
	if err != nil {
		return false
	}
	_, ok := s.admins[u.Email]
	return ok
}

// Menu возвращает позиции меню, подходящие под фильтр.
func (s *Service) Menu(f catalog.Filter) []model.MenuItem {
	return s.catalog.Search(f)
}

// MenuItem возвращает позицию меню по идентификатору.
func (s *Service) MenuItem(id string) (model.MenuItem, bool) {
	return s.catalog.Get(id)
}

// Categories возвращает категории меню.
func (s *Service) Categories() []string {
	return s.catalog.Categories()
}

// AddMenuItem добавляет позицию в меню.
func (s *Service) AddMenuItem(ctx context.Context, item model.MenuItem) (model.MenuItem, error) {
	return s.catalog.Add(ctx, item)
}

// UpdateMenuItem меняет позицию меню.
func (s *Service) UpdateMenuItem(ctx context.Context, id string, patch model.MenuItemPatch) error {
	if _, ok := s.catalog.Get(id); !ok {
		return ErrItemNotFound
	}
	return s.catalog.Update(ctx, id, patch)
}

// RemoveMenuItem удаляет позицию из меню.
func (s *Service) RemoveMenuItem(ctx context.Context, id string) error {
	if _, ok := s.catalog.Get(id); !ok {
		return ErrItemNotFound
	}
	return s.catalog.Remove(ctx, id)
}
