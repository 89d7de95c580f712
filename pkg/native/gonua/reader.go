package gonua

import (
	"github.com/arzzra/sofia_sip/pkg/native"
)

// GoString читает строку, завершенную нулем
func (e *Engine) GoString(p native.Ptr) string {
	return native.CStringAt(uintptr(p))
}

// GoBytes копирует n байт
func (e *Engine) GoBytes(p native.Ptr, n int) []byte {
	return native.BytesAt(uintptr(p), n)
}

func (e *Engine) sip(s native.Sip) *snapshot {
	return lookup[*snapshot](e.arena, uintptr(s))
}

func (e *Engine) SipFrom(s native.Sip) *native.Address {
	if snap := e.sip(s); snap != nil {
		return snap.from
	}
	return nil
}

func (e *Engine) SipTo(s native.Sip) *native.Address {
	if snap := e.sip(s); snap != nil {
		return snap.to
	}
	return nil
}

func (e *Engine) SipSubject(s native.Sip) native.Ptr {
	if snap := e.sip(s); snap != nil {
		return snap.subject
	}
	return 0
}

func (e *Engine) SipContentType(s native.Sip) native.Ptr {
	if snap := e.sip(s); snap != nil {
		return snap.contentType
	}
	return 0
}

func (e *Engine) SipPayload(s native.Sip) *native.Payload {
	if snap := e.sip(s); snap != nil {
		return snap.payload
	}
	return nil
}

// URLFormat семантика url_e: возвращает длину без NUL, пишет в buf
// только если помещается вместе с NUL
func (e *Engine) URLFormat(buf []byte, u native.URL) int {
	v, ok := e.arena.get(uintptr(u)).(urlValue)
	if !ok {
		return -1
	}
	if len(buf) > len(v) {
		copy(buf, v)
		buf[len(v)] = 0
	}
	return len(v)
}
