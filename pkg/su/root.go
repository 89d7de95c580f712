package su

import (
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/arzzra/sofia_sip/pkg/metrics"
	"github.com/arzzra/sofia_sip/pkg/native"
	"github.com/arzzra/sofia_sip/pkg/sofiaerr"
)

// DefaultStepTimeout таймаут шага, если переданный вне [0, MaxStepTimeout)
const (
	DefaultStepTimeout = 100 * time.Millisecond
	MaxStepTimeout     = time.Second
)

// Agent агент, привязанный к реактору. Destroy должен завершить
// остановку агента и отвязать его через Detach.
type Agent interface {
	Destroy()
}

// Root реактор
type Root struct {
	engine  native.Engine
	ptr     native.Root
	rushing atomic.Bool
	agents  []Agent
	log     *slog.Logger
}

// Create инициализирует библиотеку (однократно) и создает реактор с
// отключенными внутренними потоками
func Create() (*Root, error) {
	if err := Init(); err != nil {
		return nil, err
	}
	return create(Engine())
}

// CreateWithEngine создает реактор на указанном движке
func CreateWithEngine(e native.Engine) (*Root, error) {
	if e == Engine() {
		return Create()
	}
	if err := e.Init(); err != nil {
		return nil, sofiaerr.ErrInit.WithCause(err).WithField("engine", e.Name())
	}
	return create(e)
}

func create(e native.Engine) (*Root, error) {
	ptr, err := e.RootCreate(0)
	if ptr == 0 {
		metrics.Default().RootCreateFailed()
		return nil, sofiaerr.ErrInit.WithCause(err).WithField("engine", e.Name())
	}
	e.RootThreading(ptr, false)
	return &Root{
		engine: e,
		ptr:    ptr,
		log:    logger().With(slog.String("engine", e.Name())),
	}, nil
}

// Engine движок реактора
func (r *Root) Engine() native.Engine { return r.engine }

// Pointer нативный указатель, 0 после Destroy
func (r *Root) Pointer() native.Root { return r.ptr }

// IsDestroyed true после Destroy
func (r *Root) IsDestroyed() bool { return r.ptr == 0 }

// ClampTimeout приводит таймаут шага к допустимому окну
func ClampTimeout(timeout time.Duration) time.Duration {
	if timeout < 0 || timeout >= MaxStepTimeout {
		return DefaultStepTimeout
	}
	return timeout
}

// Step выполняет не больше одной единицы работы движка. Результат
// движка возвращается как есть: миллисекунды до следующего таймера или
// отрицательное значение, если работы нет.
func (r *Root) Step(timeout time.Duration) int64 {
	n, _ := r.step(ClampTimeout(timeout))
	return n
}

func (r *Root) step(timeout time.Duration) (int64, error) {
	if r.ptr == 0 {
		return -1, nil
	}
	metrics.Default().ReactorStep()
	return r.engine.RootStep(r.ptr, timeout.Milliseconds())
}

// Sleep обрабатывает события в течение d
func (r *Root) Sleep(d time.Duration) int64 {
	if r.ptr == 0 {
		return -1
	}
	return r.engine.RootSleep(r.ptr, d.Milliseconds())
}

// Run блокирует до Break
func (r *Root) Run() {
	if r.ptr == 0 {
		return
	}
	r.engine.RootRun(r.ptr)
}

// Break останавливает Run. Вызывается из callback.
func (r *Root) Break() {
	if r.ptr == 0 {
		return
	}
	r.engine.RootBreak(r.ptr)
}

// RushUntilNextTimer шагает с таймаутом 1ms, пока движку есть что
// делать немедленно
func (r *Root) RushUntilNextTimer() {
	for r.Step(time.Millisecond) > 0 {
	}
}

// Rush шагает, пока движок не сообщит об ошибке или не вызван Stop.
// Повторный вызов во время работы ничего не делает.
func (r *Root) Rush() {
	if !r.rushing.CompareAndSwap(false, true) {
		return
	}
	defer r.rushing.Store(false)

	for r.rushing.Load() {
		n, err := r.step(DefaultStepTimeout)
		if n < 0 && err != nil {
			r.log.Debug("rush остановлен движком", slog.Any("error", err))
			return
		}
	}
}

// Stop прерывает Rush. Можно вызывать из callback или другой горутины.
func (r *Root) Stop() {
	r.rushing.Store(false)
}

// Attach привязывает агента к реактору. Destroy реактора уничтожит
// агента раньше себя.
func (r *Root) Attach(a Agent) {
	r.agents = append(r.agents, a)
}

// Detach отвязывает агента
func (r *Root) Detach(a Agent) {
	for i, x := range r.agents {
		if x == a {
			r.agents = append(r.agents[:i], r.agents[i+1:]...)
			return
		}
	}
}

// Agents количество привязанных агентов
func (r *Root) Agents() int { return len(r.agents) }

// Destroy уничтожает привязанных агентов в порядке привязки (каждый
// дожидается своего r_shutdown), дочерпывает работу движка до
// отрицательного результата шага, затем уничтожает реактор. Повторный
// вызов безопасен.
func (r *Root) Destroy() {
	if r.ptr == 0 {
		return
	}
	for len(r.agents) > 0 {
		a := r.agents[0]
		a.Destroy()
		// агент мог не отвязаться сам
		r.Detach(a)
	}
	for r.Step(time.Millisecond) >= 0 {
	}
	r.engine.RootDestroy(r.ptr)
	r.ptr = 0
	r.log.Debug("реактор уничтожен")
}

// Close то же, что Destroy
func (r *Root) Close() error {
	r.Destroy()
	return nil
}
