// Package catalog собирает действующее меню из поставляемого каталога и наложений
// (добавления, правки, удаления), сохранённых в хранилище.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mmeshcher/foodie-express/internal/events"
	"github.com/mmeshcher/foodie-express/internal/model"
	"github.com/mmeshcher/foodie-express/internal/repository"
)

// ErrInvalidItem возвращается при попытке сохранить некорректную позицию или правку.
var ErrInvalidItem = errors.New("invalid menu item")

var (
	additionsKey = repository.GlobalKey(repository.NamespaceCustomMenuItems)
	editsKey     = repository.GlobalKey(repository.NamespaceUpdatedItems)
	deletionsKey = repository.GlobalKey(repository.NamespaceDeletedItems)
)

// Store описывает контракт хранилища, используемый каталогом.
type Store interface {
	Get(ctx context.Context, key repository.Key) ([]byte, error)
	Put(ctx context.Context, key repository.Key, value []byte) error
}

// Publisher рассылает уведомления об изменениях каталога.
type Publisher interface {
	Broadcast(msg events.Message)
}

// UpdatedEvent содержит данные уведомления menu_item_updated.
type UpdatedEvent struct {
	ID      string              `json:"id"`
	Updates model.MenuItemPatch `json:"updates"`
}

// Repository хранит наложения каталога в памяти и сохраняет их в хранилище.
type Repository struct {
	store    Store
	bus      Publisher
	logger   *zap.Logger
	baseline []model.MenuItem
	now      func() time.Time

	mu        sync.RWMutex
	additions []model.MenuItem
	edits     map[string]model.MenuItemPatch
	deletions []string
}

// NewRepository создаёт каталог поверх baseline. Наложения загружаются вызовом Reload.
func NewRepository(store Store, bus Publisher, logger *zap.Logger, baseline []model.MenuItem) *Repository {
	return &Repository{
		store:    store,
		bus:      bus,
		logger:   logger,
		baseline: baseline,
		now:      time.Now,
		edits:    make(map[string]model.MenuItemPatch),
	}
}

// Reload перечитывает все три наложения. Ошибка чтения ключа сохраняет прежнее наложение,
// испорченный ключ считается пустым, испорченная запись пропускается.
func (r *Repository) Reload(ctx context.Context) {
	additions, okAdd := r.loadAdditions(ctx)
	edits, okEdit := r.loadEdits(ctx)
	deletions, okDel := r.loadDeletions(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()

	if okAdd {
		r.additions = additions
	}
	if okEdit {
		r.edits = edits
	}
	if okDel {
		r.deletions = deletions
	}
}

// OnStorageChange перечитывает каталог целиком, если изменился ключ одного из наложений.
func (r *Repository) OnStorageChange(ctx context.Context, key repository.Key) {
	switch key {
	case additionsKey, editsKey, deletionsKey:
		r.Reload(ctx)
	}
}

func (r *Repository) loadAdditions(ctx context.Context) ([]model.MenuItem, bool) {
	var raw []json.RawMessage
	if _, err := repository.GetJSON(ctx, r.store, additionsKey, &raw); err != nil {
		return nil, r.handleLoadError(additionsKey, err)
	}

	items := make([]model.MenuItem, 0, len(raw))
	for i, entry := range raw {
		var it model.MenuItem
		if err := json.Unmarshal(entry, &it); err != nil {
			r.logger.Warn("skip corrupt menu item addition", zap.Int("index", i), zap.Error(err))
			continue
		}
		if it.ID == "" {
			r.logger.Warn("skip menu item addition without id", zap.Int("index", i))
			continue
		}
		if err := validateItem(it); err != nil {
			r.logger.Warn("skip invalid menu item addition", zap.String("id", it.ID), zap.Error(err))
			continue
		}
		items = append(items, it)
	}
	return items, true
}

func (r *Repository) loadEdits(ctx context.Context) (map[string]model.MenuItemPatch, bool) {
	var raw map[string]json.RawMessage
	if _, err := repository.GetJSON(ctx, r.store, editsKey, &raw); err != nil {
		return make(map[string]model.MenuItemPatch), r.handleLoadError(editsKey, err)
	}

	edits := make(map[string]model.MenuItemPatch, len(raw))
	for id, entry := range raw {
		var p model.MenuItemPatch
		if err := json.Unmarshal(entry, &p); err != nil {
			r.logger.Warn("skip corrupt menu item edit", zap.String("id", id), zap.Error(err))
			continue
		}
		if err := validatePatch(p); err != nil {
			r.logger.Warn("skip invalid menu item edit", zap.String("id", id), zap.Error(err))
			continue
		}
		edits[id] = p
	}
	return edits, true
}

func (r *Repository) loadDeletions(ctx context.Context) ([]string, bool) {
	var ids []string
	if _, err := repository.GetJSON(ctx, r.store, deletionsKey, &ids); err != nil {
		return nil, r.handleLoadError(deletionsKey, err)
	}
	return ids, true
}

// handleLoadError сообщает, нужно ли заменить наложение пустым.
func (r *Repository) handleLoadError(key repository.Key, err error) bool {
	if errors.Is(err, repository.ErrCorrupted) {
		r.logger.Warn("discard corrupt catalog overlay", zap.String("key", key.String()), zap.Error(err))
		return true
	}
	r.logger.Error("read catalog overlay", zap.String("key", key.String()), zap.Error(err))
	return false
}

// Effective возвращает действующий каталог: (baseline ∪ additions) с правками, без удалённых.
func (r *Repository) Effective() []model.MenuItem {
	r.mu.RLock()
	defer r.mu.RUnlock()

	deleted := make(map[string]struct{}, len(r.deletions))
	for _, id := range r.deletions {
		deleted[id] = struct{}{}
	}

	seen := make(map[string]struct{}, len(r.baseline)+len(r.additions))
	items := make([]model.MenuItem, 0, len(r.baseline)+len(r.additions))

	add := func(it model.MenuItem) {
		if _, ok := deleted[it.ID]; ok {
			return
		}
		if _, ok := seen[it.ID]; ok {
			return
		}
		seen[it.ID] = struct{}{}
		if p, ok := r.edits[it.ID]; ok {
			it = p.Apply(it)
		}
		items = append(items, it)
	}

	for _, it := range r.baseline {
		add(it)
	}
	for _, it := range r.additions {
		add(it)
	}

	return items
}

// Get возвращает позицию действующего каталога по идентификатору.
func (r *Repository) Get(id string) (model.MenuItem, bool) {
	for _, it := range r.Effective() {
		if it.ID == id {
			return it, true
		}
	}
	return model.MenuItem{}, false
}

// Add сохраняет новую позицию с новым уникальным идентификатором.
func (r *Repository) Add(ctx context.Context, item model.MenuItem) (model.MenuItem, error) {
	if err := validateItem(item); err != nil {
		return model.MenuItem{}, err
	}

	r.mu.Lock()
	item.ID = r.newIDLocked()
	next := make([]model.MenuItem, 0, len(r.additions)+1)
	next = append(next, r.additions...)
	next = append(next, item)

	if err := repository.PutJSON(ctx, r.store, additionsKey, next); err != nil {
		r.mu.Unlock()
		return model.MenuItem{}, fmt.Errorf("save menu item: %w", err)
	}
	r.additions = next
	r.mu.Unlock()

	r.bus.Broadcast(events.NewMessage(events.EntityMenuItem, events.ActionAdded, item.ID, item))
	return item, nil
}

// Update применяет правку: добавленная позиция меняется на месте,
// иначе правка записывается в наложение правок. Правка удалённой позиции ни на что не влияет.
func (r *Repository) Update(ctx context.Context, id string, patch model.MenuItemPatch) error {
	if err := validatePatch(patch); err != nil {
		return err
	}

	r.mu.Lock()
	if idx := indexOf(r.additions, id); idx >= 0 {
		next := append([]model.MenuItem(nil), r.additions...)
		next[idx] = patch.Apply(next[idx])
		if err := repository.PutJSON(ctx, r.store, additionsKey, next); err != nil {
			r.mu.Unlock()
			return fmt.Errorf("save menu item: %w", err)
		}
		r.additions = next
	} else {
		next := make(map[string]model.MenuItemPatch, len(r.edits)+1)
		for k, v := range r.edits {
			next[k] = v
		}
		next[id] = next[id].Merge(patch)
		if err := repository.PutJSON(ctx, r.store, editsKey, next); err != nil {
			r.mu.Unlock()
			return fmt.Errorf("save menu item edit: %w", err)
		}
		r.edits = next
	}
	r.mu.Unlock()

	r.bus.Broadcast(events.NewMessage(events.EntityMenuItem, events.ActionUpdated, id, UpdatedEvent{ID: id, Updates: patch}))
	return nil
}

// Remove удаляет добавленную позицию или помечает позицию каталога удалённой.
func (r *Repository) Remove(ctx context.Context, id string) error {
	r.mu.Lock()
	if idx := indexOf(r.additions, id); idx >= 0 {
		next := make([]model.MenuItem, 0, len(r.additions)-1)
		next = append(next, r.additions[:idx]...)
		next = append(next, r.additions[idx+1:]...)
		if err := repository.PutJSON(ctx, r.store, additionsKey, next); err != nil {
			r.mu.Unlock()
			return fmt.Errorf("save menu items: %w", err)
		}
		r.additions = next
	} else {
		for _, d := range r.deletions {
			if d == id {
				r.mu.Unlock()
				return nil
			}
		}
		next := append(append([]string(nil), r.deletions...), id)
		if err := repository.PutJSON(ctx, r.store, deletionsKey, next); err != nil {
			r.mu.Unlock()
			return fmt.Errorf("save deleted items: %w", err)
		}
		r.deletions = next
	}
	r.mu.Unlock()

	r.bus.Broadcast(events.NewMessage(events.EntityMenuItem, events.ActionDeleted, id, nil))
	return nil
}

func (r *Repository) newIDLocked() string {
	taken := make(map[string]struct{}, len(r.baseline)+len(r.additions))
	for _, it := range r.baseline {
		taken[it.ID] = struct{}{}
	}
	for _, it := range r.additions {
		taken[it.ID] = struct{}{}
	}

	for {
		suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
		id := fmt.Sprintf("custom_%d_%s", r.now().UnixMilli(), suffix)
		if _, ok := taken[id]; !ok {
			return id
		}
	}
}

func indexOf(items []model.MenuItem, id string) int {
	for i, it := range items {
		if it.ID == id {
			return i
		}
	}
	return -1
}

func validateItem(it model.MenuItem) error {
	if strings.TrimSpace(it.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidItem)
	}
	if it.Price.IsNegative() {
		return fmt.Errorf("%w: price must not be negative", ErrInvalidItem)
	}
	if it.Rating != nil && (*it.Rating < 0 || *it.Rating > 5) {
		return fmt.Errorf("%w: rating must be between 0 and 5", ErrInvalidItem)
	}
	return nil
}

func validatePatch(p model.MenuItemPatch) error {
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return fmt.Errorf("%w: name must not be empty", ErrInvalidItem)
	}
	if p.Price != nil && p.Price.IsNegative() {
		return fmt.Errorf("%w: price must not be negative", ErrInvalidItem)
	}
	if p.Rating != nil && (*p.Rating < 0 || *p.Rating > 5) {
		return fmt.Errorf("%w: rating must be between 0 and 5", ErrInvalidItem)
	}
	return nil
}
