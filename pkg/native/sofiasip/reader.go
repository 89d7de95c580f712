//go:build cgo && sofiasip

package sofiasip

/*
#include "shim.h"
*/
import "C"

import (
	"unsafe"

	"github.com/arzzra/sofia_sip/pkg/native"
)

func (e *Engine) GoString(p native.Ptr) string {
	return native.CStringAt(uintptr(p))
}

func (e *Engine) GoBytes(p native.Ptr, n int) []byte {
	return native.BytesAt(uintptr(p), n)
}

func (e *Engine) SipFrom(s native.Sip) *native.Address {
	var display, url C.uintptr_t
	if C.shim_sip_from(C.uintptr_t(s), &display, &url) == 0 {
		return nil
	}
	return &native.Address{Display: native.Ptr(display), URL: native.URL(url)}
}

func (e *Engine) SipTo(s native.Sip) *native.Address {
	var display, url C.uintptr_t
	if C.shim_sip_to(C.uintptr_t(s), &display, &url) == 0 {
		return nil
	}
	return &native.Address{Display: native.Ptr(display), URL: native.URL(url)}
}

func (e *Engine) SipSubject(s native.Sip) native.Ptr {
	return native.Ptr(C.shim_sip_subject(C.uintptr_t(s)))
}

func (e *Engine) SipContentType(s native.Sip) native.Ptr {
	return native.Ptr(C.shim_sip_content_type(C.uintptr_t(s)))
}

func (e *Engine) SipPayload(s native.Sip) *native.Payload {
	var data C.uintptr_t
	var n C.long
	if C.shim_sip_payload(C.uintptr_t(s), &data, &n) == 0 {
		return nil
	}
	return &native.Payload{Data: native.Ptr(data), Len: int(n)}
}

// URLFormat url_e
func (e *Engine) URLFormat(buf []byte, u native.URL) int {
	if len(buf) == 0 {
		return int(C.shim_url_e(nil, 0, C.uintptr_t(u)))
	}
	return int(C.shim_url_e((*C.char)(unsafe.Pointer(&buf[0])), C.long(len(buf)), C.uintptr_t(u)))
}
