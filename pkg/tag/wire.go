package tag

import (
	"runtime"

	"github.com/arzzra/sofia_sip/pkg/native"
	"github.com/arzzra/sofia_sip/pkg/sofiaerr"
)

// Wire нативная форма списка тегов: массив (symbol, value) с нулевым
// элементом в конце и строковые буферы, на которые он ссылается.
// Буферы и массив закреплены до Release, поэтому Wire должен жить до
// возврата из нативного вызова:
//
//	w, err := list.Encode(engine)
//	if err != nil { ... }
//	defer w.Release()
//	engine.Message(h, w.Tags())
type Wire struct {
	bufs     [][]byte
	items    []native.Item
	pin      runtime.Pinner
	released bool
}

// Encode преобразует список в нативную форму
func (l List) Encode(codec native.TagCodec) (*Wire, error) {
	w := &Wire{
		bufs:  make([][]byte, 0, len(l.tags)),
		items: make([]native.Item, 0, len(l.tags)+1),
	}
	for _, t := range l.tags {
		sym := codec.Symbol(t.kind.Name())
		if sym == 0 {
			w.Release()
			return nil, sofiaerr.ErrMissingTagConversion.WithField("tag", t.kind.Name())
		}
		buf := make([]byte, len(t.value)+1)
		copy(buf, t.value)
		w.pin.Pin(&buf[0])
		w.bufs = append(w.bufs, buf)
		w.items = append(w.items, native.Item{Tag: sym, Value: native.AddressOf(buf)})
	}
	w.items = append(w.items, native.Item{})
	w.pin.Pin(&w.items[0])
	return w, nil
}

// Tags указатель на первый элемент, передается в нативный вызов
func (w *Wire) Tags() native.Tags {
	if w.released {
		return 0
	}
	return native.TagsOf(w.items)
}

// Items копия элементов, включая завершающий
func (w *Wire) Items() []native.Item {
	return append([]native.Item(nil), w.items...)
}

// Len количество элементов, включая завершающий
func (w *Wire) Len() int { return len(w.items) }

// Release снимает закрепление. Повторный вызов безопасен.
func (w *Wire) Release() {
	if w.released {
		return
	}
	w.released = true
	w.pin.Unpin()
}

// Decode читает список тегов входящего события. Теги, которых нет в
// закрытом наборе, пропускаются.
func Decode(codec native.TagCodec, t native.Tags) List {
	if t == 0 {
		return List{}
	}
	var out []Tag
	codec.WalkTags(t, func(it native.Item) bool {
		kind, ok := KindByName(codec.SymbolName(it.Tag))
		if !ok {
			return true
		}
		v, ok := codec.TagValue(it)
		if !ok {
			return true
		}
		out = append(out, Tag{kind: kind, value: v})
		return true
	})
	return List{tags: out}
}
