package cart

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/mmeshcher/foodie-express/internal/model"
	"github.com/mmeshcher/foodie-express/internal/repository"
)

const (
	errCorruptedSnapshot = "saved cart could not be read and was reset"
	errRemoteSync        = "could not sync cart with remote store"
)

// Owner определяет владельца корзины: пользователя или гостевую сессию.
type Owner struct {
	UserID  string
	GuestID string
}

// Authenticated сообщает, выполнил ли владелец вход.
func (o Owner) Authenticated() bool {
	return o.UserID != ""
}

// Identity возвращает идентичность владельца в хранилище.
func (o Owner) Identity() string {
	if o.UserID != "" {
		return o.UserID
	}
	return repository.GuestIdentity + ":" + o.GuestID
}

func (o Owner) key() repository.Key {
	return repository.Key{Namespace: repository.NamespaceCart, Identity: o.Identity()}
}

// Store описывает хранилище снимков корзин.
type Store interface {
	Get(ctx context.Context, key repository.Key) ([]byte, error)
	Put(ctx context.Context, key repository.Key, value []byte) error
}

// Remote описывает удалённое зеркало корзин пользователей.
type Remote interface {
	ReadCart(ctx context.Context, userID string) (model.CartState, bool, error)
	WriteCart(ctx context.Context, userID string, state model.CartState) error
}

// Enqueuer ставит фоновую задачу в очередь и сообщает, принята ли она.
type Enqueuer interface {
	Enqueue(name string, task func(ctx context.Context) error) bool
}

type entry struct {
	mu    sync.Mutex
	state model.CartState
	// persisted хранит последний записанный этим экземпляром снимок.
	persisted []byte
}

// Service хранит авторитетное состояние корзин в памяти и сохраняет каждое изменение.
type Service struct {
	store  Store
	remote Remote
	queue  Enqueuer
	logger *zap.Logger

	mu    sync.Mutex
	carts map[repository.Key]*entry
}

// NewService создаёт сервис корзин. remote и queue равны nil в демо-режиме.
func NewService(store Store, remote Remote, queue Enqueuer, logger *zap.Logger) *Service {
	return &Service{
		store:  store,
		remote: remote,
		queue:  queue,
		logger: logger,
		carts:  make(map[repository.Key]*entry),
	}
}

func (s *Service) remoteEnabled() bool {
	return s.remote != nil && s.queue != nil
}

// Get возвращает текущее состояние корзины владельца.
// Корзина, которую ещё не меняли, читается из хранилища и не кэшируется.
func (s *Service) Get(ctx context.Context, owner Owner) model.CartState {
	key := owner.key()

	s.mu.Lock()
	e, ok := s.carts[key]
	s.mu.Unlock()
	if !ok {
		return s.load(ctx, key)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return clone(e.state)
}

// Dispatch применяет переход к корзине владельца, сохраняет результат и, если нужно,
// ставит отправку полного состояния в удалённое зеркало.
func (s *Service) Dispatch(ctx context.Context, owner Owner, action Action) model.CartState {
	state := s.apply(ctx, owner, action)

	if action.ChangesLines() && owner.Authenticated() && s.remoteEnabled() {
		s.enqueuePush(owner.UserID)
	}
	return state
}

func (s *Service) apply(ctx context.Context, owner Owner, action Action) model.CartState {
	key := owner.key()
	e := s.entry(ctx, key)

	e.mu.Lock()
	defer e.mu.Unlock()

	e.state = Reduce(e.state, action)
	s.persist(ctx, key, e)
	return clone(e.state)
}

// persist записывает состояние entry. Вызывается под e.mu.
func (s *Service) persist(ctx context.Context, key repository.Key, e *entry) {
	data, err := json.Marshal(e.state)
	if err == nil {
		err = s.store.Put(ctx, key, data)
	}
	if err != nil {
		s.logger.Warn("persist cart, keeping in-memory state",
			zap.String("key", key.String()), zap.Error(err))
		return
	}
	e.persisted = data
}

func (s *Service) entry(ctx context.Context, key repository.Key) *entry {
	s.mu.Lock()
	e, ok := s.carts[key]
	s.mu.Unlock()
	if ok {
		return e
	}

	loaded := &entry{state: s.load(ctx, key)}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.carts[key]; ok {
		return e
	}
	s.carts[key] = loaded
	return loaded
}

// load читает снимок корзины. Отсутствующий или нечитаемый снимок даёт пустую корзину.
func (s *Service) load(ctx context.Context, key repository.Key) model.CartState {
	snap, found, err := s.read(ctx, key)
	switch {
	case errors.Is(err, repository.ErrCorrupted):
		s.logger.Warn("discard corrupted cart snapshot", zap.String("key", key.String()), zap.Error(err))
		msg := errCorruptedSnapshot
		return Reduce(Empty(), SetError(&msg))
	case err != nil:
		s.logger.Warn("load cart, starting empty", zap.String("key", key.String()), zap.Error(err))
		return Empty()
	case !found:
		return Empty()
	}
	return snap
}

// read возвращает нормализованный снимок из хранилища. Сохранённый флаг loading не восстанавливается.
func (s *Service) read(ctx context.Context, key repository.Key) (model.CartState, bool, error) {
	raw, err := s.store.Get(ctx, key)
	if errors.Is(err, repository.ErrNotFound) {
		return model.CartState{}, false, nil
	}
	if err != nil {
		return model.CartState{}, false, err
	}
	snap, err := decode(key, raw)
	if err != nil {
		return model.CartState{}, false, err
	}
	return snap, true, nil
}

func decode(key repository.Key, raw []byte) (model.CartState, error) {
	var snap model.CartState
	if err := json.Unmarshal(raw, &snap); err != nil {
		return model.CartState{}, fmt.Errorf("%w: %s: %v", repository.ErrCorrupted, key, err)
	}
	snap.Loading = false
	return Reduce(Empty(), SetCart(snap)), nil
}

// SwitchIdentity переключает корзину при входе, выходе или смене аккаунта.
// Корзины гостя и пользователя хранятся отдельными документами: если у нового владельца есть сохранённая
// корзина, она становится текущей. Иначе при входе гостя его корзина переходит пользователю,
// а новый гость начинает с пустой корзины.
func (s *Service) SwitchIdentity(ctx context.Context, from, to Owner) model.CartState {
	toKey := to.key()
	if from.key() == toKey {
		return s.Get(ctx, to)
	}

	s.mu.Lock()
	_, cached := s.carts[toKey]
	s.mu.Unlock()

	if !cached {
		snap, found, err := s.read(ctx, toKey)
		switch {
		case err != nil && !errors.Is(err, repository.ErrCorrupted):
			s.logger.Warn("load cart on identity switch", zap.String("key", toKey.String()), zap.Error(err))
		case found:
			s.install(toKey, snap)
		case !from.Authenticated() && to.Authenticated():
			s.adoptGuestCart(ctx, from, to)
		}
	}

	if to.Authenticated() && s.remoteEnabled() {
		s.apply(ctx, to, SetLoading(true))
		userID := to.UserID
		accepted := s.queue.Enqueue("reconcile cart "+userID, func(ctx context.Context) error {
			return s.Reconcile(ctx, Owner{UserID: userID})
		})
		if !accepted {
			msg := errRemoteSync
			s.apply(ctx, to, SetError(&msg))
		}
	}

	return s.Get(ctx, to)
}

func (s *Service) install(key repository.Key, state model.CartState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.carts[key]; !ok {
		s.carts[key] = &entry{state: state}
	}
}

// adoptGuestCart переносит строки гостевой корзины пользователю и очищает корзину гостя,
// чтобы после выхода те же позиции не оказались заказаны дважды.
func (s *Service) adoptGuestCart(ctx context.Context, guest, user Owner) {
	lines := s.Get(ctx, guest)
	if len(lines.Items) == 0 {
		return
	}

	s.apply(ctx, user, SetCart(model.CartState{Items: lines.Items}))
	s.apply(ctx, guest, ClearCart())
	s.logger.Debug("guest cart adopted on login",
		zap.String("user", user.UserID), zap.Int("lines", len(lines.Items)))
}

// Reconcile сверяет корзину пользователя с удалённым зеркалом. Непустая удалённая корзина,
// отличная от локальной, побеждает. Если удалённая пуста, а локальная нет, локальная отправляется в зеркало.
func (s *Service) Reconcile(ctx context.Context, owner Owner) error {
	if !owner.Authenticated() || s.remote == nil {
		return nil
	}

	remote, found, err := s.remote.ReadCart(ctx, owner.UserID)
	if err != nil {
		msg := errRemoteSync
		s.apply(ctx, owner, SetError(&msg))
		return err
	}

	local := s.Get(ctx, owner)
	remoteLines := Normalize(remote.Items)

	switch {
	case len(remoteLines) == 0 && len(local.Items) > 0:
		if err := s.remote.WriteCart(ctx, owner.UserID, local); err != nil {
			msg := errRemoteSync
			s.apply(ctx, owner, SetError(&msg))
			return err
		}
	case found && len(remoteLines) > 0 && !SameLines(remoteLines, local.Items):
		s.apply(ctx, owner, SetCart(model.CartState{Items: remoteLines, Error: local.Error}))
	}

	s.apply(ctx, owner, SetLoading(false))
	return nil
}

func (s *Service) enqueuePush(userID string) {
	_ = s.queue.Enqueue("push cart "+userID, func(ctx context.Context) error {
		owner := Owner{UserID: userID}
		return s.remote.WriteCart(ctx, userID, s.Get(ctx, owner))
	})
}

// OnStorageChange перечитывает кэшированную корзину, если её ключ изменил другой экземпляр.
// Флаги loading и error сохраняются, строки берутся из хранилища. Чтение и замена выполняются
// под блокировкой корзины, поэтому переход не может попасть между ними.
func (s *Service) OnStorageChange(ctx context.Context, key repository.Key) {
	if key.Namespace != repository.NamespaceCart {
		return
	}

	s.mu.Lock()
	e, ok := s.carts[key]
	s.mu.Unlock()
	if !ok {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	raw, err := s.store.Get(ctx, key)
	var snap model.CartState
	switch {
	case errors.Is(err, repository.ErrNotFound):
		snap = Empty()
	case err != nil:
		s.logger.Warn("refresh cart from storage", zap.String("key", key.String()), zap.Error(err))
		return
	case bytes.Equal(raw, e.persisted):
		// Собственная запись.
		return
	default:
		if snap, err = decode(key, raw); err != nil {
			s.logger.Warn("refresh cart from storage", zap.String("key", key.String()), zap.Error(err))
			return
		}
	}

	if !SameLines(snap.Items, e.state.Items) {
		e.state.Items = snap.Items
		e.state.Total = snap.Total
	}
	e.persisted = raw
}

// SameLines сообщает, совпадают ли строки двух корзин по позициям, ценам и количествам.
func SameLines(a, b []model.CartLine) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID || a[i].Quantity != b[i].Quantity || !a[i].Price.Equal(b[i].Price) {
			return false
		}
	}
	return true
}
