package tag

import "strings"

// List упорядоченный список тегов. Порядок значим: при повторе ключа
// движок использует более поздний тег.
type List struct {
	tags []Tag
}

// Of собирает список из готовых тегов
func Of(tags ...Tag) List {
	return List{tags: append([]Tag(nil), tags...)}
}

// Len количество тегов без завершающего элемента
func (l List) Len() int { return len(l.tags) }

// Tags копия тегов
func (l List) Tags() []Tag {
	return append([]Tag(nil), l.tags...)
}

// Append возвращает новый список: сначала l, затем other
func (l List) Append(other List) List {
	out := make([]Tag, 0, len(l.tags)+len(other.tags))
	out = append(out, l.tags...)
	out = append(out, other.tags...)
	return List{tags: out}
}

// Lookup возвращает значение последнего тега указанного вида
func (l List) Lookup(kind Kind) (string, bool) {
	for i := len(l.tags) - 1; i >= 0; i-- {
		if l.tags[i].kind == kind {
			return l.tags[i].value, true
		}
	}
	return "", false
}

// String перечисляет теги в отображаемой форме, по одному на строку
func (l List) String() string {
	parts := make([]string, len(l.tags))
	for i, t := range l.tags {
		parts[i] = t.String()
	}
	return strings.Join(parts, "\n")
}

// Builder накапливает теги. Tag не изменяет получатель и возвращает
// новый Builder, поэтому промежуточные значения можно переиспользовать.
type Builder struct {
	tags []Tag
}

// NewBuilder создает пустой builder
func NewBuilder() Builder {
	return Builder{}
}

// Tag добавляет тег в конец
func (b Builder) Tag(t Tag) Builder {
	tags := make([]Tag, len(b.tags), len(b.tags)+1)
	copy(tags, b.tags)
	return Builder{tags: append(tags, t)}
}

// Collect завершает построение
func (b Builder) Collect() List {
	return List{tags: append([]Tag(nil), b.tags...)}
}
