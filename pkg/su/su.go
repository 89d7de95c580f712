// Package su управляет реактором движка (su_root_t) и однократной
// инициализацией библиотеки.
//
// Реактор однопоточный: создание, шаги и уничтожение должны выполняться
// на одном потоке. Движок этого не проверяет. Горутина, которая
// управляет реактором, должна вызвать runtime.LockOSThread, если движок
// нативный (build tag sofiasip).
package su

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/arzzra/sofia_sip/pkg/native"
	"github.com/arzzra/sofia_sip/pkg/sofiaerr"
)

var (
	initialized atomic.Bool

	engineMu sync.Mutex
	engine   native.Engine

	defaultMu          sync.Mutex
	defaultRoot        *Root
	defaultInitialized atomic.Bool
)

func logger() *slog.Logger {
	return slog.Default().With(slog.String("component", "su"))
}

// Engine движок процесса. По умолчанию выбирается при сборке: gonua или
// sofiasip (build tag sofiasip).
func Engine() native.Engine {
	engineMu.Lock()
	defer engineMu.Unlock()
	if engine == nil {
		engine = newEngine()
	}
	return engine
}

// SetEngine заменяет движок процесса. Только до Init.
func SetEngine(e native.Engine) {
	engineMu.Lock()
	defer engineMu.Unlock()
	engine = e
}

// Init однократная инициализация библиотеки. Повторные вызовы ничего не
// делают.
func Init() error {
	if initialized.Load() {
		return nil
	}
	e := Engine()
	if err := e.Init(); err != nil {
		return sofiaerr.ErrInit.WithCause(err).WithField("engine", e.Name())
	}
	initialized.Store(true)
	logger().Debug("библиотека инициализирована", slog.String("engine", e.Name()))
	return nil
}

// IsInitialized true после Init и до Deinit
func IsInitialized() bool {
	return initialized.Load()
}

// Deinit уничтожает реактор по умолчанию и деинициализирует библиотеку.
// В Go нет atexit, поэтому вызывается явно, обычно через defer в main.
func Deinit() {
	if !initialized.Load() {
		return
	}
	DeinitDefault()
	Engine().Deinit()
	initialized.Store(false)
	logger().Debug("библиотека деинициализирована")
}

// Default реактор по умолчанию, создается при первом обращении
func Default() (*Root, error) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultRoot != nil {
		return defaultRoot, nil
	}
	r, err := Create()
	if err != nil {
		return nil, err
	}
	defaultRoot = r
	defaultInitialized.Store(true)
	return r, nil
}

// IsDefaultInitialized true, если реактор по умолчанию создан
func IsDefaultInitialized() bool {
	return defaultInitialized.Load()
}

// DeinitDefault уничтожает реактор по умолчанию. Агенты на нем должны
// быть уничтожены раньше.
func DeinitDefault() {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultRoot == nil {
		return
	}
	defaultRoot.Destroy()
	defaultRoot = nil
	defaultInitialized.Store(false)
}

// MainLoopRun шагает реактором по умолчанию (Rush) до MainLoopQuit или
// ошибки движка
func MainLoopRun() error {
	r, err := Default()
	if err != nil {
		return err
	}
	r.Rush()
	return nil
}

// MainLoopQuit останавливает MainLoopRun
func MainLoopQuit() {
	defaultMu.Lock()
	r := defaultRoot
	defaultMu.Unlock()
	if r != nil {
		r.Stop()
	}
}
