// Package order ведёт журнал заказов пользователей и глобальный индекс заказов для администратора.
package order

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mmeshcher/foodie-express/internal/model"
	"github.com/mmeshcher/foodie-express/internal/repository"
	"github.com/mmeshcher/foodie-express/internal/validation"
)

// DeliveryEstimate задаёт ожидаемое время доставки от момента оформления.
const DeliveryEstimate = 45 * time.Minute

var (
	ErrEmptyCart         = errors.New("cart is empty")
	ErrNoIdentity        = errors.New("user identity required")
	ErrNotFound          = errors.New("order not found")
	ErrInvalidStatus     = errors.New("unknown order status")
	ErrInvalidTransition = errors.New("invalid order status transition")
	ErrOrderClosed       = errors.New("order already completed")
)

var adminIndexKey = repository.GlobalKey(repository.NamespaceAdminOrders)

// lifecycle задаёт порядок статусов при движении заказа вперёд.
var lifecycle = map[model.OrderStatus]int{
	model.OrderStatusPending:        0,
	model.OrderStatusConfirmed:      1,
	model.OrderStatusPreparing:      2,
	model.OrderStatusOutForDelivery: 3,
	model.OrderStatusDelivered:      4,
}

// Store описывает хранилище журнала.
type Store interface {
	Get(ctx context.Context, key repository.Key) ([]byte, error)
	Put(ctx context.Context, key repository.Key, value []byte) error
}

// IndexEntry описывает запись глобального индекса заказов.
type IndexEntry struct {
	OrderID   string    `json:"orderId"`
	UserID    string    `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
}

// Ledger хранит заказы каждого пользователя от новых к старым.
type Ledger struct {
	store  Store
	logger *zap.Logger
	now    func() time.Time

	mu sync.Mutex
}

// NewLedger создаёт журнал заказов поверх хранилища.
func NewLedger(store Store, logger *zap.Logger) *Ledger {
	return &Ledger{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

func ordersKey(userID string) repository.Key {
	return repository.Key{Namespace: repository.NamespaceOrders, Identity: userID}
}

// CanTransition сообщает, допустим ли переход статуса. Заказ движется только вперёд,
// отмена возможна из любого незавершённого статуса.
func CanTransition(from, to model.OrderStatus) bool {
	if from.Terminal() || !to.Valid() {
		return false
	}
	if to == model.OrderStatusCancelled {
		return true
	}
	return lifecycle[to] > lifecycle[from]
}

// Place оформляет заказ из строк корзины. Заказ сохраняется до возврата;
// при ошибке проверки или записи заказ не создаётся.
func (l *Ledger) Place(ctx context.Context, userID string, cart model.CartState,
	info model.CustomerInfo, method model.PaymentMethod) (model.Order, error) {
	if userID == "" {
		return model.Order{}, ErrNoIdentity
	}
	if len(cart.Items) == 0 {
		return model.Order{}, ErrEmptyCart
	}
	if err := validation.ValidateCheckout(info, method); err != nil {
		return model.Order{}, err
	}

	now := l.now()
	items := make([]model.OrderItem, 0, len(cart.Items))
	total := decimal.Zero
	for _, line := range cart.Items {
		items = append(items, model.OrderItem{
			ID:       line.ID,
			Name:     line.Name,
			Quantity: line.Quantity,
			Price:    line.Price,
			Image:    line.Image,
		})
		total = total.Add(line.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}

	o := model.Order{
		ID:                uuid.NewString(),
		OrderNumber:       fmt.Sprintf("ORD-%d", now.UnixMilli()),
		UserID:            userID,
		Items:             items,
		Total:             total,
		Status:            model.OrderStatusPending,
		PaymentMethod:     method,
		CreatedAt:         now,
		EstimatedDelivery: now.Add(DeliveryEstimate),
		CustomerInfo:      info,
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	orders, err := l.load(ctx, userID)
	if err != nil {
		return model.Order{}, err
	}

	next := make([]model.Order, 0, len(orders)+1)
	next = append(next, o)
	next = append(next, orders...)
	if err := repository.PutJSON(ctx, l.store, ordersKey(userID), next); err != nil {
		return model.Order{}, fmt.Errorf("save orders: %w", err)
	}

	l.appendIndex(ctx, IndexEntry{OrderID: o.ID, UserID: userID, CreatedAt: now})
	return o, nil
}

// load читает журнал пользователя. Испорченный журнал считается пустым.
func (l *Ledger) load(ctx context.Context, userID string) ([]model.Order, error) {
	var orders []model.Order
	_, err := repository.GetJSON(ctx, l.store, ordersKey(userID), &orders)
	if errors.Is(err, repository.ErrCorrupted) {
		l.logger.Warn("discard corrupted order ledger", zap.String("user", userID), zap.Error(err))
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load orders: %w", err)
	}
	return orders, nil
}

func (l *Ledger) appendIndex(ctx context.Context, e IndexEntry) {
	index, err := l.loadIndex(ctx)
	if err != nil {
		l.logger.Warn("load admin order index", zap.Error(err))
		return
	}

	next := make([]IndexEntry, 0, len(index)+1)
	next = append(next, e)
	next = append(next, index...)
	if err := repository.PutJSON(ctx, l.store, adminIndexKey, next); err != nil {
		l.logger.Warn("save admin order index", zap.String("order", e.OrderID), zap.Error(err))
	}
}

func (l *Ledger) loadIndex(ctx context.Context) ([]IndexEntry, error) {
	var index []IndexEntry
	_, err := repository.GetJSON(ctx, l.store, adminIndexKey, &index)
	if errors.Is(err, repository.ErrCorrupted) {
		l.logger.Warn("discard corrupted admin order index", zap.Error(err))
		return nil, nil
	}
	return index, err
}

// List возвращает заказы пользователя, новые первыми. Пустой status не фильтрует.
func (l *Ledger) List(ctx context.Context, userID string, status model.OrderStatus) ([]model.Order, error) {
	l.mu.Lock()
	orders, err := l.load(ctx, userID)
	l.mu.Unlock()
	if err != nil {
		return nil, err
	}

	if status == "" {
		return orders, nil
	}
	filtered := make([]model.Order, 0, len(orders))
	for _, o := range orders {
		if o.Status == status {
			filtered = append(filtered, o)
		}
	}
	return filtered, nil
}

// Get возвращает заказ пользователя по идентификатору.
func (l *Ledger) Get(ctx context.Context, userID, orderID string) (model.Order, error) {
	orders, err := l.List(ctx, userID, "")
	if err != nil {
		return model.Order{}, err
	}
	for _, o := range orders {
		if o.ID == orderID {
			return o, nil
		}
	}
	return model.Order{}, ErrNotFound
}

// UpdateStatus меняет статус заказа. Повтор текущего статуса ничего не меняет.
func (l *Ledger) UpdateStatus(ctx context.Context, userID, orderID string, status model.OrderStatus) (model.Order, error) {
	if !status.Valid() {
		return model.Order{}, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	return l.modify(ctx, userID, orderID, func(o *model.Order) (bool, error) {
		if o.Status == status {
			return false, nil
		}
		if !CanTransition(o.Status, status) {
			return false, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, status)
		}
		o.Status = status
		return true, nil
	})
}

// UpdateEstimate переносит ожидаемое время доставки незавершённого заказа.
func (l *Ledger) UpdateEstimate(ctx context.Context, userID, orderID string, eta time.Time) (model.Order, error) {
	return l.modify(ctx, userID, orderID, func(o *model.Order) (bool, error) {
		if o.Status.Terminal() {
			return false, fmt.Errorf("%w: %s", ErrOrderClosed, o.Status)
		}
		if o.EstimatedDelivery.Equal(eta) {
			return false, nil
		}
		o.EstimatedDelivery = eta
		return true, nil
	})
}

// modify применяет change к заказу пользователя и сохраняет журнал, если заказ изменился.
func (l *Ledger) modify(ctx context.Context, userID, orderID string,
	change func(o *model.Order) (bool, error)) (model.Order, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	orders, err := l.load(ctx, userID)
	if err != nil {
		return model.Order{}, err
	}

	idx := -1
	for i, o := range orders {
		if o.ID == orderID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return model.Order{}, ErrNotFound
	}

	next := append([]model.Order(nil), orders...)
	changed, err := change(&next[idx])
	if err != nil {
		return model.Order{}, err
	}
	if !changed {
		return next[idx], nil
	}
	if err := repository.PutJSON(ctx, l.store, ordersKey(userID), next); err != nil {
		return model.Order{}, fmt.Errorf("save orders: %w", err)
	}
	return next[idx], nil
}

// Index возвращает глобальный индекс заказов, новые первыми.
func (l *Ledger) Index(ctx context.Context) ([]IndexEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loadIndex(ctx)
}

// All возвращает все заказы из глобального индекса, новые первыми.
// Заказы, которых уже нет в журнале пользователя, пропускаются.
func (l *Ledger) All(ctx context.Context) ([]model.Order, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	index, err := l.loadIndex(ctx)
	if err != nil {
		return nil, fmt.Errorf("load admin order index: %w", err)
	}

	byUser := make(map[string]map[string]model.Order)
	out := make([]model.Order, 0, len(index))
	for _, e := range index {
		orders, ok := byUser[e.UserID]
		if !ok {
			list, err := l.load(ctx, e.UserID)
			if err != nil {
				return nil, err
			}
			orders = make(map[string]model.Order, len(list))
			for _, o := range list {
				orders[o.ID] = o
			}
			byUser[e.UserID] = orders
		}
		if o, ok := orders[e.OrderID]; ok {
			out = append(out, o)
		}
	}
	return out, nil
}
