package gonua

import (
	"github.com/arzzra/sofia_sip/pkg/native"
	"github.com/arzzra/sofia_sip/pkg/tag"
)

func (e *Engine) Symbol(name string) native.Symbol {
	return e.symbols[name]
}

func (e *Engine) SymbolName(s native.Symbol) string {
	return e.names[s]
}

func (e *Engine) WalkTags(t native.Tags, fn func(native.Item) bool) {
	for _, it := range native.ItemsAt(t) {
		if it.IsSentinel() || !fn(it) {
			return
		}
	}
}

// TagValue все теги движка строковые
func (e *Engine) TagValue(it native.Item) (string, bool) {
	if _, ok := e.names[it.Tag]; !ok || it.Value == 0 {
		return "", false
	}
	return native.CStringAt(it.Value), true
}

// params читает список тегов вызова, пока он закреплен вызывающей
// стороной
func (e *Engine) params(t native.Tags) tag.List {
	return tag.Decode(e, t)
}
