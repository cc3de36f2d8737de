// Package events рассылает уведомления об изменениях каталога и хранилища подписчикам
// внутри процесса и открытым вкладкам через websocket.
package events

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Сущности и действия уведомлений.
const (
	EntityMenuItem = "menu_item"
	EntityStorage  = "storage"

	ActionAdded   = "added"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
	ActionChanged = "changed"
)

const subscriberBuffer = 16

// Message описывает одно уведомление.
type Message struct {
	Type   string `json:"type"`
	Entity string `json:"entity"`
	Action string `json:"action"`
	ID     string `json:"id,omitempty"`
	Key    string `json:"key,omitempty"`
	Data   any    `json:"data,omitempty"`
}

// NewMessage создаёт уведомление с типом вида entity_action.
func NewMessage(entity, action, id string, data any) Message {
	return Message{
		Type:   fmt.Sprintf("%s_%s", entity, action),
		Entity: entity,
		Action: action,
		ID:     id,
		Data:   data,
	}
}

// StorageChanged создаёт сигнал об изменении ключа хранилища.
func StorageChanged(key string) Message {
	msg := NewMessage(EntityStorage, ActionChanged, "", nil)
	msg.Key = key
	return msg
}

// Hub хранит подписчиков и рассылает им уведомления.
type Hub struct {
	mu     sync.RWMutex
	next   int
	subs   map[int]chan Message
	logger *zap.Logger
}

// NewHub создаёт пустой Hub.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		subs:   make(map[int]chan Message),
		logger: logger,
	}
}

// Subscribe регистрирует подписчика. Вызов возвращённой функции отменяет подписку и закрывает канал.
func (h *Hub) Subscribe() (<-chan Message, func()) {
	ch := make(chan Message, subscriberBuffer)

	h.mu.Lock()
	h.next++
	id := h.next
	h.subs[id] = ch
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			close(ch)
			h.mu.Unlock()
		})
	}
}

// Broadcast отправляет уведомление всем подписчикам, не блокируясь на медленных.
func (h *Hub) Broadcast(msg Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for id, ch := range h.subs {
		select {
		case ch <- msg:
		default:
			h.logger.Warn("subscriber buffer full, message dropped",
				zap.Int("subscriber", id), zap.String("type", msg.Type))
		}
	}
}

// SubscriberCount возвращает число подписчиков.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
