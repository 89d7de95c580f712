package gonua

import (
	"sort"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/arzzra/sofia_sip/pkg/native"
)

const inboxSize = 1024

// root реактор. Вся работа выполняется на потоке, который вызывает
// step; сетевые горутины только отправляют замыкания в inbox.
type root struct {
	id native.Root

	mu      sync.Mutex
	queue   []func()
	timers  []*timer
	running bool

	inbox chan func()
	done  chan struct{}
	once  sync.Once
}

type timer struct {
	at       time.Time
	fn       func()
	canceled bool
}

func newRoot() *root {
	return &root{
		inbox: make(chan func(), inboxSize),
		done:  make(chan struct{}),
	}
}

// schedule ставит работу в очередь реактора. Только с потока реактора.
func (r *root) schedule(fn func()) {
	r.mu.Lock()
	r.queue = append(r.queue, fn)
	r.mu.Unlock()
}

// post передает работу из сетевой горутины. После уничтожения реактора
// работа отбрасывается.
func (r *root) post(fn func()) bool {
	select {
	case <-r.done:
		return false
	default:
	}
	select {
	case r.inbox <- fn:
		return true
	case <-r.done:
		return false
	}
}

func (r *root) addTimer(d time.Duration, fn func()) *timer {
	t := &timer{at: time.Now().Add(d), fn: fn}
	r.mu.Lock()
	r.timers = append(r.timers, t)
	sort.Slice(r.timers, func(i, j int) bool { return r.timers[i].at.Before(r.timers[j].at) })
	r.mu.Unlock()
	return t
}

func (r *root) cancelTimer(t *timer) {
	if t == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	t.canceled = true
	for i, x := range r.timers {
		if x == t {
			r.timers = append(r.timers[:i], r.timers[i+1:]...)
			return
		}
	}
}

// popDue снимает первый сработавший таймер
func (r *root) popDue(now time.Time) *timer {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.timers) == 0 || r.timers[0].at.After(now) {
		return nil
	}
	t := r.timers[0]
	r.timers = r.timers[1:]
	return t
}

func (r *root) popQueued() func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.queue) == 0 {
		return nil
	}
	fn := r.queue[0]
	r.queue = r.queue[1:]
	return fn
}

func (r *root) queued() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.queue)
}

// runPending выполняет сработавшие таймеры, входящие события и очередь.
// Работа, поставленная в очередь во время выполнения, ждет следующего
// шага.
func (r *root) runPending() bool {
	ran := false
	now := time.Now()
	for t := r.popDue(now); t != nil; t = r.popDue(now) {
		if !t.canceled {
			t.fn()
			ran = true
		}
	}
	for n := len(r.inbox); n > 0; n-- {
		// callback мог повторно войти в реактор и забрать остаток inbox
		var fn func()
		select {
		case fn = <-r.inbox:
		default:
		}
		if fn == nil {
			break
		}
		fn()
		ran = true
	}
	for n := r.queued(); n > 0; n-- {
		fn := r.popQueued()
		if fn == nil {
			break
		}
		fn()
		ran = true
	}
	return ran
}

// remaining миллисекунды до следующего таймера, 0 если есть готовая
// работа, -1 если работы нет
func (r *root) remaining() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.queue) > 0 || len(r.inbox) > 0 {
		return 0
	}
	if len(r.timers) == 0 {
		return -1
	}
	d := time.Until(r.timers[0].at)
	if d < 0 {
		return 0
	}
	return d.Milliseconds()
}

func (r *root) nextTimer() (time.Duration, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.timers) == 0 {
		return 0, false
	}
	return time.Until(r.timers[0].at), true
}

func (r *root) step(timeout time.Duration) int64 {
	if r.runPending() || timeout <= 0 {
		return r.remaining()
	}

	wait := timeout
	if d, ok := r.nextTimer(); ok && d < wait {
		wait = d
	}
	if wait > 0 {
		t := time.NewTimer(wait)
		select {
		case fn := <-r.inbox:
			fn()
		case <-t.C:
		case <-r.done:
		}
		t.Stop()
	}
	r.runPending()
	return r.remaining()
}

func (r *root) close() {
	r.once.Do(func() {
		close(r.done)
		r.mu.Lock()
		r.queue = nil
		r.timers = nil
		r.running = false
		r.mu.Unlock()
	})
}

func (e *Engine) root(p native.Root) *root {
	return lookup[*root](e.arena, uintptr(p))
}

// RootCreate аналог su_root_create
func (e *Engine) RootCreate(magic native.Magic) (native.Root, error) {
	if !e.initialized.Load() {
		return 0, unix.EINVAL
	}
	r := newRoot()
	r.id = native.Root(e.arena.put(r))
	return r.id, nil
}

// RootThreading движок однопоточный, флаг ни на что не влияет
func (e *Engine) RootThreading(native.Root, bool) {}

// RootStep аналог su_root_step
func (e *Engine) RootStep(p native.Root, timeoutMs int64) (int64, error) {
	r := e.root(p)
	if r == nil {
		return -1, unix.EBADF
	}
	return r.step(time.Duration(timeoutMs) * time.Millisecond), nil
}

// RootSleep обрабатывает события в течение timeoutMs
func (e *Engine) RootSleep(p native.Root, timeoutMs int64) int64 {
	r := e.root(p)
	if r == nil {
		return -1
	}
	deadline := time.Now().Add(time.Duration(timeoutMs) * time.Millisecond)
	result := int64(-1)
	for {
		left := time.Until(deadline)
		if left <= 0 {
			return result
		}
		result = r.step(left)
		if e.root(p) == nil {
			return -1
		}
	}
}

// RootRun крутит цикл до RootBreak
func (e *Engine) RootRun(p native.Root) {
	r := e.root(p)
	if r == nil {
		return
	}
	r.mu.Lock()
	r.running = true
	r.mu.Unlock()
	for {
		r.mu.Lock()
		running := r.running
		r.mu.Unlock()
		if !running || e.root(p) == nil {
			return
		}
		r.step(100 * time.Millisecond)
	}
}

func (e *Engine) RootBreak(p native.Root) {
	if r := e.root(p); r != nil {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
	}
}

// RootDestroy аналог su_root_destroy. Недоставленная работа теряется.
func (e *Engine) RootDestroy(p native.Root) {
	r := e.root(p)
	if r == nil {
		return
	}
	r.close()
	e.arena.free(uintptr(p))
}
