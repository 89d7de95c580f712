package gonua

import "sync"

const (
	// arenaBase первый выдаваемый указатель. Значения кратны
	// arenaStride, ноль никогда не выдается.
	arenaBase   = 0x10000
	arenaStride = 0x10

	symbolBase   = 0x1000
	symbolStride = 0x8
)

// arena таблица непрозрачных указателей движка. Указатель - индекс в
// таблице, а не адрес, поэтому объект может быть освобожден без риска
// обращения к чужой памяти: поиск по освобожденному указателю просто
// ничего не находит. Указатели не переиспользуются.
type arena struct {
	mu   sync.Mutex
	next uintptr
	objs map[uintptr]any
}

func newArena() *arena {
	return &arena{next: arenaBase, objs: make(map[uintptr]any)}
}

func (a *arena) put(v any) uintptr {
	a.mu.Lock()
	defer a.mu.Unlock()
	p := a.next
	a.next += arenaStride
	a.objs[p] = v
	return p
}

func (a *arena) get(p uintptr) any {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.objs[p]
}

func (a *arena) free(p uintptr) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.objs, p)
}

func (a *arena) len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.objs)
}

// lookup типизированное чтение из арены
func lookup[T any](a *arena, p uintptr) T {
	v, _ := a.get(p).(T)
	return v
}
