// Package gonua реализует нативный ABI движка (native.Engine) на sipgo.
//
// Это движок по умолчанию: он не требует libsofia-sip и повторяет
// наблюдаемое поведение nua в объеме, который использует слой привязки:
//   - реактор с очередью, таймерами и входящим каналом от сетевых горутин
//   - агент на UDP сокете (sipgo UserAgent, Server, Client)
//   - MESSAGE и INVITE с автоматическим ответом вызываемой стороны
//   - shutdown с ответами 100 и 200
//
// Все callback вызываются синхронно из RootStep, RootSleep или RootRun
// на потоке, который управляет реактором. Сетевые горутины sipgo только
// кладут работу во входящий канал реактора.
package gonua

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/arzzra/sofia_sip/pkg/native"
	"github.com/arzzra/sofia_sip/pkg/tag"
)

// UserAgent значение заголовка User-Agent
const UserAgent = "sofia-sip-go"

// Engine движок на sipgo
type Engine struct {
	arena   *arena
	symbols map[string]native.Symbol
	names   map[native.Symbol]string

	initialized atomic.Bool
	logger      *slog.Logger
}

var _ native.Engine = (*Engine)(nil)

var (
	defaultOnce   sync.Once
	defaultEngine *Engine
)

// Default общий экземпляр движка процесса
func Default() *Engine {
	defaultOnce.Do(func() {
		defaultEngine = New()
	})
	return defaultEngine
}

// New создает независимый движок со своим пространством указателей
func New() *Engine {
	e := &Engine{
		arena:   newArena(),
		symbols: make(map[string]native.Symbol),
		names:   make(map[native.Symbol]string),
		logger:  slog.Default().With(slog.String("component", "gonua")),
	}
	// символы фиксированы: адреса "типов тегов" в непересекающемся
	// с ареной диапазоне
	for i, k := range tag.Kinds() {
		sym := native.Symbol(symbolBase + uintptr(i)*symbolStride)
		e.symbols[k.Name()] = sym
		e.names[sym] = k.Name()
	}
	return e
}

// Name имя реализации
func (e *Engine) Name() string { return "gonua" }

// Init аналог su_init. Повторный вызов ничего не делает.
func (e *Engine) Init() error {
	e.initialized.Store(true)
	return nil
}

// Deinit аналог su_deinit
func (e *Engine) Deinit() {
	e.initialized.Store(false)
}
