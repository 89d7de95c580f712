package gonua

import (
	"runtime"
	"strings"

	"github.com/emiago/sipgo/sip"

	"github.com/arzzra/sofia_sip/pkg/native"
	"github.com/arzzra/sofia_sip/pkg/tag"
)

// scratch память одного вызова callback: строки, тело сообщения,
// список тегов и снимок sip_t. Освобождается после возврата из callback.
type scratch struct {
	e    *Engine
	pin  runtime.Pinner
	bufs [][]byte
	ids  []uintptr
}

func (e *Engine) newScratch() *scratch {
	return &scratch{e: e}
}

func (s *scratch) cstring(v string) uintptr {
	buf := make([]byte, len(v)+1)
	copy(buf, v)
	return s.keep(buf)
}

func (s *scratch) bytes(b []byte) uintptr {
	if len(b) == 0 {
		return 0
	}
	return s.keep(append([]byte(nil), b...))
}

func (s *scratch) keep(buf []byte) uintptr {
	s.pin.Pin(&buf[0])
	s.bufs = append(s.bufs, buf)
	return native.AddressOf(buf)
}

func (s *scratch) object(v any) uintptr {
	p := s.e.arena.put(v)
	s.ids = append(s.ids, p)
	return p
}

// tags строит массив tagi_t с завершающим элементом
func (s *scratch) tags(list tag.List) native.Tags {
	if list.Len() == 0 {
		return 0
	}
	items := make([]native.Item, 0, list.Len()+1)
	for _, t := range list.Tags() {
		sym := s.e.symbols[t.Kind().Name()]
		items = append(items, native.Item{Tag: sym, Value: s.cstring(t.Value())})
	}
	items = append(items, native.Item{})
	s.pin.Pin(&items[0])
	return native.TagsOf(items)
}

// snapshot копия полей SIP сообщения в виде sip_t
func (s *scratch) snapshot(msg message) native.Sip {
	if msg == nil {
		return 0
	}
	snap := &snapshot{}
	if from := msg.From(); from != nil {
		snap.from = s.address(from.DisplayName, from.Address)
	}
	if to := msg.To(); to != nil {
		snap.to = s.address(to.DisplayName, to.Address)
	}
	if v, ok := headerValue(msg, "Subject"); ok {
		snap.subject = native.Ptr(s.cstring(v))
	}
	if v, ok := headerValue(msg, "Content-Type"); ok {
		snap.contentType = native.Ptr(s.cstring(v))
	}
	if body := msg.Body(); len(body) > 0 {
		snap.payload = &native.Payload{Data: native.Ptr(s.bytes(body)), Len: len(body)}
	}
	return native.Sip(s.object(snap))
}

func (s *scratch) address(display string, uri sip.Uri) *native.Address {
	a := &native.Address{URL: native.URL(s.object(urlValue(uri.String())))}
	if display != "" {
		a.Display = native.Ptr(s.cstring(display))
	}
	return a
}

func (s *scratch) release() {
	s.pin.Unpin()
	for _, p := range s.ids {
		s.e.arena.free(p)
	}
	s.bufs = nil
	s.ids = nil
}

// message общая часть *sip.Request и *sip.Response, которую читает
// снимок
type message interface {
	From() *sip.FromHeader
	To() *sip.ToHeader
	Headers() []sip.Header
	Body() []byte
}

func headerValue(msg message, name string) (string, bool) {
	for _, h := range msg.Headers() {
		if strings.EqualFold(h.Name(), name) {
			return h.Value(), true
		}
	}
	return "", false
}

// snapshot аналог sip_t
type snapshot struct {
	from, to    *native.Address
	subject     native.Ptr
	contentType native.Ptr
	payload     *native.Payload
}

// urlValue аналог url_t
type urlValue string
