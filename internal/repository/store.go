// Package repository содержит постоянное хранилище ключ-значение витрины:
// реализации на PostgreSQL, SQLite и в памяти.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// Пространства имён ключей хранилища.
const (
	NamespaceCart            = "cart"
	NamespaceOrders          = "orders"
	NamespaceCustomMenuItems = "customMenuItems"
	NamespaceUpdatedItems    = "updatedSampleItems"
	NamespaceDeletedItems    = "deletedSampleItems"
	NamespaceUsers           = "registeredUsers"
	NamespaceLocation        = "currentLocation"
	NamespaceCustomerInfo    = "customerInfo"
	NamespaceAdminOrders     = "adminOrders"
)

// GuestIdentity обозначает гостя, не выполнившего вход.
const GuestIdentity = "guest"

var (
	// ErrNotFound возвращается, если по ключу нет значения.
	ErrNotFound = errors.New("key not found")
	// ErrCorrupted возвращается, если сохранённое значение не удалось разобрать.
	ErrCorrupted = errors.New("corrupted value")
)

// Key описывает составной ключ хранилища: пространство имён и идентичность владельца.
// Глобальные ключи имеют пустую идентичность.
type Key struct {
	Namespace string
	Identity  string
}

// GlobalKey возвращает ключ без привязки к владельцу.
func GlobalKey(namespace string) Key {
	return Key{Namespace: namespace}
}

// String возвращает текстовое представление ключа для журналов и уведомлений.
func (k Key) String() string {
	if k.Identity == "" {
		return k.Namespace
	}
	return k.Namespace + "/" + k.Identity
}

// ParseKey разбирает текстовое представление ключа, полученное из Key.String.
func ParseKey(s string) Key {
	ns, id, _ := strings.Cut(s, "/")
	return Key{Namespace: ns, Identity: id}
}

// Store описывает постоянное хранилище ключ-значение.
type Store interface {
	Get(ctx context.Context, key Key) ([]byte, error)
	Put(ctx context.Context, key Key, value []byte) error
	Delete(ctx context.Context, key Key) error
	Watch(ctx context.Context, fn func(Key)) error
	Close() error
}

// Reader описывает чтение значения по ключу.
type Reader interface {
	Get(ctx context.Context, key Key) ([]byte, error)
}

// Writer описывает запись значения по ключу.
type Writer interface {
	Put(ctx context.Context, key Key, value []byte) error
}

// GetJSON читает значение и декодирует его в dst. Возвращает false, если ключа нет.
func GetJSON(ctx context.Context, r Reader, key Key, dst any) (bool, error) {
	data, err := r.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("%w: %s: %v", ErrCorrupted, key, err)
	}
	return true, nil
}

// PutJSON кодирует v в JSON и записывает по ключу.
func PutJSON(ctx context.Context, w Writer, key Key, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return w.Put(ctx, key, data)
}

const watchBuffer = 128

// watchers рассылает уведомления об изменениях ключей подписчикам внутри процесса.
type watchers struct {
	mu   sync.RWMutex
	next int
	subs map[int]chan Key
}

func (w *watchers) add() (int, chan Key) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.subs == nil {
		w.subs = make(map[int]chan Key)
	}
	w.next++
	ch := make(chan Key, watchBuffer)
	w.subs[w.next] = ch
	return w.next, ch
}

func (w *watchers) remove(id int) {
	w.mu.Lock()
	delete(w.subs, id)
	w.mu.Unlock()
}

func (w *watchers) count() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.subs)
}

// notify не блокирует писателя: переполненный подписчик теряет уведомление.
func (w *watchers) notify(key Key) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	for _, ch := range w.subs {
		select {
		case ch <- key:
		default:
		}
	}
}

func (w *watchers) watch(ctx context.Context, fn func(Key)) error {
	id, ch := w.add()
	defer w.remove(id)

	for {
		select {
		case <-ctx.Done():
			return nil
		case key := <-ch:
			fn(key)
		}
	}
}
