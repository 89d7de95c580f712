// Package nua агент SIP (nua_t) и его handle поверх движка из
// pkg/native.
//
// Агент регистрирует в движке единственный callback (trampoline),
// который декодирует сырые аргументы события в безопасные значения
// (Event, message.View, tag.List) и вызывает EventFunc приложения.
// Все события доставляются синхронно из su.Root Step, Sleep или Run на
// потоке реактора. EventFunc может повторно входить в реактор, например
// вызвать ShutdownAndWait.
//
// Handle принадлежит агенту: Destroy агента уничтожает все живые handle
// до остановки агента.
package nua

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/looplab/fsm"

	"github.com/arzzra/sofia_sip/pkg/message"
	"github.com/arzzra/sofia_sip/pkg/metrics"
	"github.com/arzzra/sofia_sip/pkg/native"
	"github.com/arzzra/sofia_sip/pkg/sofiaerr"
	"github.com/arzzra/sofia_sip/pkg/su"
	"github.com/arzzra/sofia_sip/pkg/tag"
)

// Состояния агента
const (
	StateCreated      = "created"
	StateActive       = "active"
	StateShuttingDown = "shutting_down"
	StateDestroyed    = "destroyed"
)

// EventFunc обработчик событий агента. h равен nil для событий уровня
// агента и для входящих запросов без handle приложения. sip и tags
// принадлежат обработчику, указатели движка в них не остаются.
type EventFunc func(n *Nua, ev Event, status int, phrase string, h *Handle, sip message.View, tags tag.List)

// Nua агент
type Nua struct {
	root    *su.Root
	engine  native.Engine
	ptr     native.Nua
	magic   native.Magic
	handles map[native.Magic]*Handle

	callback EventFunc

	shutdownRequested bool
	shutdownCompleted bool

	state   *fsm.FSM
	metrics *metrics.Collector
	log     *slog.Logger
}

func newLifecycle() *fsm.FSM {
	return fsm.NewFSM(
		StateCreated,
		fsm.Events{
			{Name: "start", Src: []string{StateCreated}, Dst: StateActive},
			{Name: "shutdown", Src: []string{StateActive}, Dst: StateShuttingDown},
			{Name: "destroy", Src: []string{StateCreated, StateActive, StateShuttingDown}, Dst: StateDestroyed},
		},
		nil,
	)
}

// Create создает агента на реакторе по умолчанию
func Create(tags tag.List) (*Nua, error) {
	root, err := su.Default()
	if err != nil {
		return nil, err
	}
	return CreateWithRoot(root, tags)
}

// CreateWithRoot создает агента на указанном реакторе. Если движок
// отказал (например, адрес из nua::url уже занят), возвращается
// sofiaerr.ErrCreateNua с причиной от движка.
func CreateWithRoot(root *su.Root, tags tag.List) (*Nua, error) {
	if root == nil || root.IsDestroyed() {
		return nil, sofiaerr.ErrCreateNua.WithField("reason", "reactor is not available")
	}

	e := root.Engine()
	n := &Nua{
		root:    root,
		engine:  e,
		handles: make(map[native.Magic]*Handle),
		state:   newLifecycle(),
		metrics: metrics.Default(),
	}
	n.magic = agents.put(n)

	wire, err := tags.Encode(e)
	if err != nil {
		agents.remove(n.magic)
		return nil, err
	}
	ptr, err := e.NuaCreate(root.Pointer(), trampoline(e), n.magic, wire.Tags())
	wire.Release()
	if ptr == 0 {
		agents.remove(n.magic)
		n.metrics.AgentCreateFailed()
		cerr := sofiaerr.ErrCreateNua.WithField("engine", e.Name())
		if err != nil {
			cerr = cerr.WithCause(err)
		}
		return nil, cerr
	}

	n.ptr = ptr
	n.log = logger().With(slog.Uint64("magic", uint64(n.magic)))
	root.Attach(n)
	n.transition("start")
	n.metrics.AgentCreated()
	n.log.Debug("агент создан", slog.String("tags", tags.String()))
	return n, nil
}

// CreateFull создает агента и сразу устанавливает обработчик
func CreateFull(root *su.Root, cb EventFunc, tags tag.List) (*Nua, error) {
	n, err := CreateWithRoot(root, tags)
	if err != nil {
		return nil, err
	}
	n.Callback(cb)
	return n, nil
}

// Callback устанавливает или заменяет обработчик событий
func (n *Nua) Callback(cb EventFunc) {
	n.callback = cb
}

// Root реактор агента
func (n *Nua) Root() *su.Root { return n.root }

// Pointer нативный указатель, 0 после Destroy
func (n *Nua) Pointer() native.Nua { return n.ptr }

// State текущее состояние жизненного цикла
func (n *Nua) State() string { return n.state.Current() }

// ShutdownCompleted true после r_shutdown со статусом 200 и выше
func (n *Nua) ShutdownCompleted() bool { return n.shutdownCompleted }

// Shutdown запрашивает остановку агента. Запрос уходит в движок не
// больше одного раза и не уходит после завершения остановки.
func (n *Nua) Shutdown() {
	if n.shutdownCompleted || n.shutdownRequested || n.ptr == 0 {
		return
	}
	n.shutdownRequested = true
	n.transition("shutdown")
	n.engine.NuaShutdown(n.ptr)
}

// ShutdownAndWait останавливает агента и крутит реактор, пока не придет
// финальный r_shutdown. Отрицательный результат шага означает, что
// движку больше нечего делать; это тоже считается завершением.
func (n *Nua) ShutdownAndWait() {
	if n.shutdownCompleted {
		return
	}
	n.Shutdown()
	for !n.shutdownCompleted {
		if n.root.Step(time.Millisecond) < 0 {
			n.log.Debug("реактор пуст до завершения остановки")
			n.shutdownCompleted = true
		}
	}
}

// Destroy уничтожает живые handle, дожидается остановки и освобождает
// агента в движке. Повторный вызов безопасен.
func (n *Nua) Destroy() {
	if n.ptr == 0 {
		return
	}
	for _, h := range n.liveHandles() {
		h.Destroy()
	}
	n.ShutdownAndWait()

	n.engine.NuaDestroy(n.ptr)
	n.ptr = 0
	agents.remove(n.magic)
	n.root.Detach(n)
	n.transition("destroy")
	n.metrics.AgentDestroyed()
	n.log.Debug("агент уничтожен")
}

// Close то же, что Destroy
func (n *Nua) Close() error {
	n.Destroy()
	return nil
}

// Run крутит реактор агента до Break
func (n *Nua) Run() { n.root.Run() }

// Break останавливает Run
func (n *Nua) Break() { n.root.Break() }

// Quit то же, что Break
func (n *Nua) Quit() { n.root.Break() }

// liveHandles handle в порядке создания
func (n *Nua) liveHandles() []*Handle {
	out := make([]*Handle, 0, len(n.handles))
	for _, h := range n.handles {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].magic < out[j].magic })
	return out
}

func (n *Nua) transition(event string) {
	err := n.state.Event(context.Background(), event)
	var noTransition fsm.NoTransitionError
	if err != nil && !errors.As(err, &noTransition) {
		n.log.Warn("недопустимый переход состояния агента",
			slog.String("event", event),
			slog.String("state", n.state.Current()),
			slog.Any("error", err))
	}
}

// dispatch учитывает событие и передает его обработчику приложения
func (n *Nua) dispatch(ev Event, status int, phrase string, h *Handle, sip message.View, tags tag.List) {
	n.metrics.Event(ev.String())
	if ev == EventReplyShutdown && status >= 200 {
		n.shutdownCompleted = true
	}
	if n.callback != nil {
		n.callback(n, ev, status, phrase, h, sip, tags)
	}
}
