package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/foodie-express/internal/cart"
	"github.com/mmeshcher/foodie-express/internal/model"
	"github.com/mmeshcher/foodie-express/internal/order"
	"github.com/mmeshcher/foodie-express/internal/repository"
	"github.com/mmeshcher/foodie-express/internal/tracking"
)

const trackingBatchSize = 100

func customerInfoKey(userID string) repository.Key {
	return repository.Key{Namespace: repository.NamespaceCustomerInfo, Identity: userID}
}

// Cart возвращает корзину владельца.
func (s *Service) Cart(ctx context.Context, owner cart.Owner) model.CartState {
	return s.carts.Get(ctx, owner)
}

// AddToCart добавляет в корзину одну единицу позиции действующего меню.
func (s *Service) AddToCart(ctx context.Context, owner cart.Owner, itemID string) (model.CartState, error) {
	item, ok := s.catalog.Get(itemID)
	if !ok {
		return model.CartState{}, ErrItemNotFound
	}
	return s.carts.Dispatch(ctx, owner, cart.AddItem(item)), nil
}

// UpdateCartItem задаёт количество позиции в корзине. Количество 0 и меньше удаляет строку.
func (s *Service) UpdateCartItem(ctx context.Context, owner cart.Owner, itemID string, qty int) model.CartState {
	return s.carts.Dispatch(ctx, owner, cart.UpdateQuantity(itemID, qty))
}

// RemoveCartItem удаляет строку из корзины.
func (s *Service) RemoveCartItem(ctx context.Context, owner cart.Owner, itemID string) model.CartState {
	return s.carts.Dispatch(ctx, owner, cart.RemoveItem(itemID))
}

// ClearCart очищает корзину.
func (s *Service) ClearCart(ctx context.Context, owner cart.Owner) model.CartState {
	return s.carts.Dispatch(ctx, owner, cart.ClearCart())
}

// SwitchIdentity переключает корзину при входе и выходе.
func (s *Service) SwitchIdentity(ctx context.Context, from, to cart.Owner) model.CartState {
	return s.carts.SwitchIdentity(ctx, from, to)
}

// PlaceOrder оформляет заказ из текущей корзины пользователя.
// Корзина очищается только после того, как заказ сохранён.
func (s *Service) PlaceOrder(ctx context.Context, owner cart.Owner, info model.CustomerInfo, method model.PaymentMethod) (model.Order, error) {
	if !owner.Authenticated() {
		return model.Order{}, order.ErrNoIdentity
	}

	state := s.carts.Get(ctx, owner)
	o, err := s.orders.Place(ctx, owner.UserID, state, info, method)
	if err != nil {
		return model.Order{}, err
	}

	s.carts.Dispatch(ctx, owner, cart.ClearCart())

	if err := repository.PutJSON(ctx, s.store, customerInfoKey(owner.UserID), info); err != nil {
		s.logger.Warn("save customer info", zap.String("user", owner.UserID), zap.Error(err))
	}

	if s.sink != nil && s.queue != nil {
		userID := owner.UserID
		_ = s.queue.Enqueue("write order "+o.ID, func(ctx context.Context) error {
			return s.sink.WriteOrder(ctx, userID, o)
		})
	}

	s.logger.Info("order placed",
		zap.String("user", owner.UserID), zap.String("order", o.OrderNumber), zap.String("total", o.Total.String()))
	return o, nil
}

// Orders возвращает заказы пользователя.
func (s *Service) Orders(ctx context.Context, userID string, status model.OrderStatus) ([]model.Order, error) {
	return s.orders.List(ctx, userID, status)
}

// Order возвращает заказ пользователя.
func (s *Service) Order(ctx context.Context, userID, orderID string) (model.Order, error) {
	return s.orders.Get(ctx, userID, orderID)
}

// AllOrders возвращает все заказы для администратора.
func (s *Service) AllOrders(ctx context.Context) ([]model.Order, error) {
	return s.orders.All(ctx)
}

// UpdateOrderStatus меняет статус заказа.
func (s *Service) UpdateOrderStatus(ctx context.Context, userID, orderID string, status model.OrderStatus) (model.Order, error) {
	return s.orders.UpdateStatus(ctx, userID, orderID, status)
}

// CustomerInfo возвращает контактные данные из последнего заказа пользователя.
func (s *Service) CustomerInfo(ctx context.Context, userID string) (model.CustomerInfo, bool, error) {
	var info model.CustomerInfo
	found, err := repository.GetJSON(ctx, s.store, customerInfoKey(userID), &info)
	if errors.Is(err, repository.ErrCorrupted) {
		s.logger.Warn("discard corrupted customer info", zap.String("user", userID), zap.Error(err))
		return model.CustomerInfo{}, false, nil
	}
	return info, found, err
}

// StartStatusUpdates запускает фоновый опрос системы отслеживания и возвращается после отмены ctx.
func (s *Service) StartStatusUpdates(ctx context.Context) {
	if s.tracker == nil {
		return
	}

	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.processStatusBatch(ctx)
		}
	}
}

// processStatusBatch опрашивает трекер по незавершённым заказам, не больше trackingBatchSize за проход.
func (s *Service) processStatusBatch(ctx context.Context) {
	index, err := s.orders.Index(ctx)
	if err != nil {
		s.logger.Warn("load order index for tracking", zap.Error(err))
		return
	}

	polled := 0
	for _, e := range index {
		if polled >= trackingBatchSize {
			return
		}
		o, err := s.orders.Get(ctx, e.UserID, e.OrderID)
		if err != nil || o.Status.Terminal() {
			continue
		}
		polled++

		d, err := s.tracker.Delivery(ctx, o.OrderNumber)
		var limited *tracking.RateLimitError
		switch {
		case errors.As(err, &limited):
			if !s.pause(ctx, limited.RetryAfter) {
				return
			}
			continue
		case errors.Is(err, tracking.ErrNoUpdate):
			continue
		case err != nil:
			s.logger.Debug("tracking request failed", zap.String("order", o.OrderNumber), zap.Error(err))
			continue
		}

		s.applyDelivery(ctx, e, o, d)
	}
}

// applyDelivery переносит статус и ожидаемое время доставки из ответа трекера в журнал.
func (s *Service) applyDelivery(ctx context.Context, e order.IndexEntry, o model.Order, d tracking.Delivery) {
	if status, ok := d.Lifecycle(); ok && status != o.Status {
		updated, err := s.orders.UpdateStatus(ctx, e.UserID, e.OrderID, status)
		if err != nil {
			s.logger.Debug("apply tracked status",
				zap.String("order", o.OrderNumber), zap.String("status", string(status)), zap.Error(err))
		} else {
			o = updated
		}
	}

	if d.ETA == nil || o.Status.Terminal() || d.ETA.Equal(o.EstimatedDelivery) {
		return
	}
	if _, err := s.orders.UpdateEstimate(ctx, e.UserID, e.OrderID, *d.ETA); err != nil {
		s.logger.Debug("apply tracked estimate", zap.String("order", o.OrderNumber), zap.Error(err))
	}
}

// pause ждёт d или отмены ctx. Возвращает false, если ctx отменён.
func (s *Service) pause(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
