package nua

import (
	"sync"

	"github.com/arzzra/sofia_sip/pkg/native"
)

// registryBase первый выдаваемый идентификатор. Идентификаторы не
// переиспользуются, поэтому устаревший magic из движка ни с чем не
// совпадет.
const registryBase = 0x1000

// registry сопоставляет magic контексты движка объектам привязки.
// Движок получает только идентификаторы, адреса Go объектов наружу не
// выходят.
type registry[T any] struct {
	mu    sync.Mutex
	next  native.Magic
	items map[native.Magic]*T
}

func newRegistry[T any]() *registry[T] {
	return &registry[T]{
		next:  registryBase,
		items: make(map[native.Magic]*T),
	}
}

func (r *registry[T]) put(v *T) native.Magic {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	r.items[r.next] = v
	return r.next
}

func (r *registry[T]) get(m native.Magic) *T {
	if m == 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.items[m]
}

func (r *registry[T]) remove(m native.Magic) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, m)
}

func (r *registry[T]) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

var (
	agents  = newRegistry[Nua]()
	handles = newRegistry[Handle]()
)
