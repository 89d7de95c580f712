// Package message декодирует входящее SIP сообщение (sip_t) в
// собственную копию данных. Нативный снимок действителен только на время
// callback, поэтому View не хранит ни одного указателя движка.
package message

import (
	"strings"

	"github.com/pion/sdp/v3"

	"github.com/arzzra/sofia_sip/pkg/native"
)

// Address адресное поле (From, To)
type Address struct {
	Display string
	URL     string
}

// String форматирует адрес как в заголовке SIP
func (a Address) String() string {
	if a.Display == "" {
		return "<" + a.URL + ">"
	}
	return `"` + a.Display + `" <` + a.URL + ">"
}

// Payload тело сообщения. Считается бинарным, пока его явно не
// запросили как текст.
type Payload struct {
	data []byte
}

// Len длина в байтах
func (p Payload) Len() int { return len(p.data) }

// Bytes копия данных
func (p Payload) Bytes() []byte {
	return append([]byte(nil), p.data...)
}

// UTF8Lossy текст с заменой некорректных последовательностей на U+FFFD
func (p Payload) UTF8Lossy() string {
	return strings.ToValidUTF8(string(p.data), "�")
}

// SDP разбирает тело как описание сессии
func (p Payload) SDP() (*sdp.SessionDescription, error) {
	desc := &sdp.SessionDescription{}
	if err := desc.Unmarshal(p.data); err != nil {
		return nil, err
	}
	return desc, nil
}

// View снимок сообщения
type View struct {
	present bool

	from, to    *Address
	subject     *string
	contentType *string
	payload     *Payload
}

// Present false для событий без сообщения (события уровня агента)
func (v View) Present() bool { return v.present }

func (v View) From() (Address, bool) { return deref(v.from) }
func (v View) To() (Address, bool)   { return deref(v.to) }

func (v View) Subject() (string, bool)     { return deref(v.subject) }
func (v View) ContentType() (string, bool) { return deref(v.contentType) }
func (v View) Payload() (Payload, bool)    { return deref(v.payload) }

func deref[T any](p *T) (T, bool) {
	if p == nil {
		var zero T
		return zero, false
	}
	return *p, true
}

// Decode строит View из нативного указателя. Нулевой указатель дает
// отсутствующее сообщение, а не ошибку.
func Decode(r native.MessageReader, s native.Sip) View {
	if s == 0 {
		return View{}
	}
	v := View{present: true}
	v.from = decodeAddress(r, r.SipFrom(s))
	v.to = decodeAddress(r, r.SipTo(s))
	v.subject = decodeString(r, r.SipSubject(s))
	v.contentType = decodeString(r, r.SipContentType(s))
	if pl := r.SipPayload(s); pl != nil {
		v.payload = &Payload{data: r.GoBytes(pl.Data, pl.Len)}
	}
	return v
}

func decodeAddress(r native.MessageReader, a *native.Address) *Address {
	if a == nil {
		return nil
	}
	out := &Address{}
	if a.Display != 0 {
		out.Display = r.GoString(a.Display)
	}
	if a.URL != 0 {
		out.URL = formatURL(r, a.URL)
	}
	return out
}

// formatURL вызывает url_e дважды: сначала узнает длину, затем пишет в
// буфер ровно нужного размера
func formatURL(r native.MessageReader, u native.URL) string {
	n := r.URLFormat(nil, u)
	if n <= 0 {
		return ""
	}
	buf := make([]byte, n+1)
	written := r.URLFormat(buf, u)
	if written > n {
		written = n
	}
	return string(buf[:written])
}

func decodeString(r native.MessageReader, p native.Ptr) *string {
	if p == 0 {
		return nil
	}
	s := r.GoString(p)
	return &s
}
