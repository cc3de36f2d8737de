// Package remote содержит необязательное удалённое зеркало корзин и заказов на Redis
// и фоновую очередь, через которую в него отправляются изменения.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/mmeshcher/foodie-express/internal/model"
)

const (
	defaultKeyPrefix = "foodexpress"
	pingTimeout      = 3 * time.Second
)

// RedisSink хранит снимки корзин и заказы пользователей в Redis.
// Ключи: {prefix}:cart:{userID}, {prefix}:order:{userID}:{orderID} и список {prefix}:orders:{userID}.
type RedisSink struct {
	client *redis.Client
	prefix string
}

// NewRedisSink подключается к Redis по адресу addr и проверяет соединение.
func NewRedisSink(ctx context.Context, addr string) (*RedisSink, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}

	return newRedisSink(client, defaultKeyPrefix), nil
}

func newRedisSink(client *redis.Client, prefix string) *RedisSink {
	return &RedisSink{client: client, prefix: prefix}
}

func (s *RedisSink) cartKey(userID string) string {
	return fmt.Sprintf("%s:cart:%s", s.prefix, userID)
}

func (s *RedisSink) orderKey(userID, orderID string) string {
	return fmt.Sprintf("%s:order:%s:%s", s.prefix, userID, orderID)
}

func (s *RedisSink) ordersKey(userID string) string {
	return fmt.Sprintf("%s:orders:%s", s.prefix, userID)
}

// ReadCart возвращает снимок корзины пользователя. false означает, что снимка нет.
func (s *RedisSink) ReadCart(ctx context.Context, userID string) (model.CartState, bool, error) {
	data, err := s.client.Get(ctx, s.cartKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.CartState{}, false, nil
	}
	if err != nil {
		return model.CartState{}, false, fmt.Errorf("read cart %s: %w", userID, err)
	}

	var state model.CartState
	if err := json.Unmarshal(data, &state); err != nil {
		return model.CartState{}, false, fmt.Errorf("decode cart %s: %w", userID, err)
	}
	return state, true, nil
}

// WriteCart заменяет снимок корзины пользователя целиком.
func (s *RedisSink) WriteCart(ctx context.Context, userID string, state model.CartState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode cart %s: %w", userID, err)
	}
	if err := s.client.Set(ctx, s.cartKey(userID), data, 0).Err(); err != nil {
		return fmt.Errorf("write cart %s: %w", userID, err)
	}
	return nil
}

// WriteOrder сохраняет заказ и добавляет его идентификатор в начало списка заказов пользователя.
func (s *RedisSink) WriteOrder(ctx context.Context, userID string, order model.Order) error {
	data, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("encode order %s: %w", order.ID, err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.orderKey(userID, order.ID), data, 0)
		pipe.LPush(ctx, s.ordersKey(userID), order.ID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("write order %s: %w", order.ID, err)
	}
	return nil
}

// Close закрывает соединение с Redis.
func (s *RedisSink) Close() error {
	return s.client.Close()
}
