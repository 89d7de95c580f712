//go:build cgo && sofiasip

package sofiasip

/*
#cgo pkg-config: sofia-sip-ua
#include <stdlib.h>
#include "shim.h"
*/
import "C"

import (
	"log/slog"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/arzzra/sofia_sip/pkg/native"
)

// Engine libsofia-sip-ua. Библиотека глобальна, поэтому экземпляр один.
type Engine struct {
	mu        sync.Mutex
	callbacks map[native.Magic]native.Callback
	agents    map[native.Nua]native.Magic

	symbols sync.Map // string -> native.Symbol
	logger  *slog.Logger
}

var _ native.Engine = (*Engine)(nil)

var (
	defaultOnce   sync.Once
	defaultEngine *Engine
)

// Default экземпляр движка процесса
func Default() *Engine {
	defaultOnce.Do(func() {
		defaultEngine = &Engine{
			callbacks: make(map[native.Magic]native.Callback),
			agents:    make(map[native.Nua]native.Magic),
			logger:    slog.Default().With(slog.String("component", "sofiasip")),
		}
	})
	return defaultEngine
}

func (e *Engine) Name() string { return "sofiasip" }

// Init su_init
func (e *Engine) Init() error {
	if rc, err := C.shim_init(); rc != 0 {
		if err == nil {
			err = unix.EINVAL
		}
		return err
	}
	return nil
}

func (e *Engine) Deinit() { C.shim_deinit() }

func (e *Engine) RootCreate(magic native.Magic) (native.Root, error) {
	p, err := C.shim_root_create(C.uintptr_t(magic))
	if p == 0 {
		return 0, err
	}
	return native.Root(p), nil
}

func (e *Engine) RootThreading(r native.Root, enabled bool) {
	flag := C.int(0)
	if enabled {
		flag = 1
	}
	C.shim_root_threading(C.uintptr_t(r), flag)
}

// RootStep su_root_step. errno читается только при отрицательном
// результате.
func (e *Engine) RootStep(r native.Root, timeoutMs int64) (int64, error) {
	n, err := C.shim_root_step(C.uintptr_t(r), C.long(timeoutMs))
	if n >= 0 {
		return int64(n), nil
	}
	return int64(n), err
}

func (e *Engine) RootSleep(r native.Root, timeoutMs int64) int64 {
	return int64(C.shim_root_sleep(C.uintptr_t(r), C.long(timeoutMs)))
}

func (e *Engine) RootRun(r native.Root)     { C.shim_root_run(C.uintptr_t(r)) }
func (e *Engine) RootBreak(r native.Root)   { C.shim_root_break(C.uintptr_t(r)) }
func (e *Engine) RootDestroy(r native.Root) { C.shim_root_destroy(C.uintptr_t(r)) }

// NuaCreate nua_create. Callback регистрируется по magic до вызова,
// так как движок может обратиться к нему сразу.
func (e *Engine) NuaCreate(r native.Root, cb native.Callback, magic native.Magic, tags native.Tags) (native.Nua, error) {
	if r == 0 || cb == nil || magic == 0 {
		return 0, unix.EINVAL
	}
	e.mu.Lock()
	e.callbacks[magic] = cb
	e.mu.Unlock()

	p, err := C.shim_nua_create(C.uintptr_t(r), C.uintptr_t(magic), C.uintptr_t(tags))
	if p == 0 {
		e.mu.Lock()
		delete(e.callbacks, magic)
		e.mu.Unlock()
		e.logger.Warn("nua_create вернул NULL", slog.Any("error", err))
		return 0, err
	}

	n := native.Nua(p)
	e.mu.Lock()
	e.agents[n] = magic
	e.mu.Unlock()
	return n, nil
}

func (e *Engine) NuaShutdown(n native.Nua) { C.shim_nua_shutdown(C.uintptr_t(n)) }

func (e *Engine) NuaDestroy(n native.Nua) {
	C.shim_nua_destroy(C.uintptr_t(n))
	e.mu.Lock()
	if magic, ok := e.agents[n]; ok {
		delete(e.callbacks, magic)
		delete(e.agents, n)
	}
	e.mu.Unlock()
}

func (e *Engine) HandleCreate(n native.Nua, magic native.Magic, tags native.Tags) (native.Handle, error) {
	p, err := C.shim_handle_create(C.uintptr_t(n), C.uintptr_t(magic), C.uintptr_t(tags))
	if p == 0 {
		return 0, err
	}
	return native.Handle(p), nil
}

func (e *Engine) HandleDestroy(h native.Handle) { C.shim_handle_destroy(C.uintptr_t(h)) }

func (e *Engine) Message(h native.Handle, tags native.Tags) {
	C.shim_message(C.uintptr_t(h), C.uintptr_t(tags))
}

func (e *Engine) Invite(h native.Handle, tags native.Tags) {
	C.shim_invite(C.uintptr_t(h), C.uintptr_t(tags))
}

func (e *Engine) callback(magic native.Magic) native.Callback {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.callbacks[magic]
}

// Symbol адрес tag_typedef_t по имени
func (e *Engine) Symbol(name string) native.Symbol {
	if v, ok := e.symbols.Load(name); ok {
		return v.(native.Symbol)
	}
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))
	s := native.Symbol(C.shim_symbol(cname))
	if s != 0 {
		e.symbols.Store(name, s)
	}
	return s
}

func (e *Engine) SymbolName(s native.Symbol) string {
	if s == 0 {
		return ""
	}
	ns := C.GoString(C.shim_symbol_ns(C.uintptr_t(s)))
	name := C.GoString(C.shim_symbol_name(C.uintptr_t(s)))
	if ns == "" || name == "" {
		return ""
	}
	return ns + "::" + name
}

// WalkTags обходит список через tl_next, который разворачивает
// TAG_NEXT и TAG_SKIP
func (e *Engine) WalkTags(t native.Tags, fn func(native.Item) bool) {
	for p := uintptr(t); p != 0; p = uintptr(C.shim_tl_next(C.uintptr_t(p))) {
		items := native.ItemsAt(native.Tags(p))
		if len(items) == 0 || items[0].IsSentinel() {
			return
		}
		if !fn(items[0]) {
			return
		}
	}
}

func (e *Engine) TagValue(it native.Item) (string, bool) {
	if it.Value == 0 || e.SymbolName(it.Tag) == "" {
		return "", false
	}
	if C.shim_symbol_is_url(C.uintptr_t(it.Tag)) != 0 {
		n := C.shim_url_string_e(nil, 0, C.uintptr_t(it.Value))
		if n < 0 {
			return "", false
		}
		buf := make([]byte, int(n)+1)
		C.shim_url_string_e((*C.char)(unsafe.Pointer(&buf[0])), C.long(len(buf)), C.uintptr_t(it.Value))
		return string(buf[:n]), true
	}
	return native.CStringAt(it.Value), true
}
