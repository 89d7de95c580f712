//go:build cgo && sofiasip

package sofiasip

/*
#include "shim.h"
*/
import "C"

import (
	"log/slog"

	"github.com/arzzra/sofia_sip/pkg/native"
)

// goNuaTrampoline вызывается из shim_callback на потоке реактора
//
//export goNuaTrampoline
func goNuaTrampoline(event, status C.int, phrase, nua, magic, nh, hmagic, sip, tags C.uintptr_t) {
	e := Default()
	cb := e.callback(native.Magic(magic))
	if cb == nil {
		e.logger.Error("событие для неизвестного агента",
			slog.Int("event", int(event)),
			slog.Uint64("magic", uint64(magic)))
		return
	}
	cb(int32(event), int32(status), native.Ptr(phrase), native.Nua(nua), native.Magic(magic),
		native.Handle(nh), native.Magic(hmagic), native.Sip(sip), native.Tags(tags))
}
