package repository

import (
	"context"
	"sync"
)

// MemoryRepository хранит значения в памяти процесса. Используется в демо-режиме и в тестах.
type MemoryRepository struct {
	mu   sync.RWMutex
	data map[Key][]byte
	watchers
}

// NewMemoryRepository создаёт пустое хранилище в памяти.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{data: make(map[Key][]byte)}
}

// Get возвращает копию значения по ключу.
func (r *MemoryRepository) Get(_ context.Context, key Key) ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	v, ok := r.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

// Put сохраняет значение и уведомляет подписчиков.
func (r *MemoryRepository) Put(_ context.Context, key Key, value []byte) error {
	r.mu.Lock()
	r.data[key] = append([]byte(nil), value...)
	r.mu.Unlock()

	r.notify(key)
	return nil
}

// Delete удаляет значение по ключу.
func (r *MemoryRepository) Delete(_ context.Context, key Key) error {
	r.mu.Lock()
	_, existed := r.data[key]
	delete(r.data, key)
	r.mu.Unlock()

	if existed {
		r.notify(key)
	}
	return nil
}

// Watch доставляет fn уведомления об изменениях до отмены ctx.
func (r *MemoryRepository) Watch(ctx context.Context, fn func(Key)) error {
	return r.watch(ctx, fn)
}

// Close ничего не делает.
func (r *MemoryRepository) Close() error {
	return nil
}
