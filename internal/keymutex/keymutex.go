// Package keymutex реализует реестр мьютексов, привязанных к строковому ключу.
// Операции с одним ключом строго сериализуются, операции с разными ключами
// выполняются параллельно.
package keymutex

import (
	"context"
	"sync"
)

// Handle — примитив взаимного исключения для одного ключа.
// Получать его следует только через Registry.Get, чтобы повторные обращения
// с тем же ключом возвращали один и тот же экземпляр.
type Handle struct {
	ch chan struct{}
}

func newHandle() *Handle {
	return &Handle{ch: make(chan struct{}, 1)}
}

// Lock захватывает мьютекс либо возвращает ошибку отменённого контекста.
func (h *Handle) Lock(ctx context.Context) error {
	select {
	case h.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TryLock захватывает мьютекс без ожидания.
func (h *Handle) TryLock() bool {
	select {
	case h.ch <- struct{}{}:
		return true
	default:
		return false
	}
}

// Unlock освобождает мьютекс.
func (h *Handle) Unlock() {
	<-h.ch
}

// Registry хранит мьютексы по ключам. Карта не очищается сама по себе:
// для ограниченного числа пользователей рост памяти принят, для простаивающих
// ключей есть Evict.
type Registry struct {
	mu      sync.Mutex
	handles map[string]*Handle
}

// NewRegistry создаёт пустой реестр мьютексов.
func NewRegistry() *Registry {
	return &Registry{
		handles: make(map[string]*Handle),
	}
}

// Get возвращает мьютекс для ключа, создавая его при первом обращении.
func (r *Registry) Get(key string) *Handle {
	r.mu.Lock()
	defer r.mu.Unlock()

	h, ok := r.handles[key]
	if !ok {
		h = newHandle()
		r.handles[key] = h
	}
	return h
}

// Do выполняет критическую секцию под мьютексом ключа.
// Мьютекс освобождается и при ошибке, и при панике внутри секции.
func (r *Registry) Do(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	h := r.Get(key)
	if err := h.Lock(ctx); err != nil {
		return err
	}
	defer h.Unlock()

	return fn(ctx)
}

// Evict удаляет мьютекс простаивающего ключа. Захваченный мьютекс не трогается.
// Вызывать допустимо только когда по ключу заведомо нет операций в полёте,
// иначе ранее полученный Handle и вновь созданный перестанут исключать друг друга.
func (r *Registry) Evict(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	h, ok := r.handles[key]
	if !ok {
		return false
	}
	if !h.TryLock() {
		return false
	}
	h.Unlock()

	delete(r.handles, key)
	return true
}

// Len возвращает количество ключей в реестре.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handles)
}
