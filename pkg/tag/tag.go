// Package tag реализует типизированные параметры (теги) движка и их
// преобразование в нативный список (symbol, value), завершенный нулевым
// элементом.
//
// Пример:
//
//	tags := tag.NewBuilder().
//		Tag(tag.Must(tag.NuURL("sip:127.0.0.1:5080"))).
//		Tag(tag.Must(tag.SipSubject("hello"))).
//		Collect()
package tag

import (
	"fmt"
	"strings"

	"github.com/emiago/sipgo/sip"

	"github.com/arzzra/sofia_sip/pkg/sofiaerr"
)

// Kind вид параметра. Набор закрыт.
type Kind int

const (
	KindNuURL Kind = iota + 1
	KindNuMUsername
	KindNuMDisplay
	KindSipSubject
	KindSipContentType
	KindSipPayloadString
	KindSipTo
	KindSipFrom
	KindSoaUserSdpStr
	KindSoaRemoteSdpStr
)

var kindNames = map[Kind]string{
	KindNuURL:            "nua::url",
	KindNuMUsername:      "nua::m_username",
	KindNuMDisplay:       "nua::m_display",
	KindSipSubject:       "sip::subject_str",
	KindSipContentType:   "sip::content_type_str",
	KindSipPayloadString: "sip::payload_str",
	KindSipTo:            "sip::to_str",
	KindSipFrom:          "sip::from_str",
	KindSoaUserSdpStr:    "soa::user_sdp_str",
	KindSoaRemoteSdpStr:  "soa::remote_sdp_str",
}

var kindsByName = func() map[string]Kind {
	m := make(map[string]Kind, len(kindNames))
	for k, n := range kindNames {
		m[n] = k
	}
	return m
}()

// Kinds возвращает все виды тегов в порядке объявления
func Kinds() []Kind {
	out := make([]Kind, 0, len(kindNames))
	for k := KindNuURL; k <= KindSoaRemoteSdpStr; k++ {
		out = append(out, k)
	}
	return out
}

// Name нативное имя тега, по которому движок находит символ
func (k Kind) Name() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return "unknown"
}

// String возвращает строковое представление вида
func (k Kind) String() string {
	return k.Name()
}

// IsValid проверяет принадлежность к закрытому набору
func (k Kind) IsValid() bool {
	_, ok := kindNames[k]
	return ok
}

// KindByName ищет вид по нативному имени
func KindByName(name string) (Kind, bool) {
	k, ok := kindsByName[name]
	return k, ok
}

// Tag один параметр. Неизменяем после создания.
type Tag struct {
	kind  Kind
	value string
}

// Kind вид тега
func (t Tag) Kind() Kind { return t.kind }

// Value строковое значение
func (t Tag) Value() string { return t.value }

// String отображаемая форма "имя: значение"
func (t Tag) String() string {
	return t.kind.Name() + ": " + t.value
}

// New создает тег указанного вида с проверкой значения
func New(kind Kind, value string) (Tag, error) {
	if !kind.IsValid() {
		return Tag{}, sofiaerr.ErrMissingTagConversion.WithField("kind", int(kind))
	}
	if i := strings.IndexByte(value, 0); i >= 0 {
		return Tag{}, sofiaerr.ErrConvertToCString.
			WithField("tag", kind.Name()).
			WithField("offset", i)
	}
	if kind == KindNuURL {
		if err := validateURL(value); err != nil {
			return Tag{}, err
		}
	}
	return Tag{kind: kind, value: value}, nil
}

// Must паникует при ошибке. Для литералов в тестах и примерах.
func Must(t Tag, err error) Tag {
	if err != nil {
		panic(err)
	}
	return t
}

func NuURL(url string) (Tag, error)           { return New(KindNuURL, url) }
func NuMUsername(user string) (Tag, error)    { return New(KindNuMUsername, user) }
func NuMDisplay(display string) (Tag, error)  { return New(KindNuMDisplay, display) }
func SipSubject(s string) (Tag, error)        { return New(KindSipSubject, s) }
func SipContentType(s string) (Tag, error)    { return New(KindSipContentType, s) }
func SipPayloadString(s string) (Tag, error)  { return New(KindSipPayloadString, s) }
func SipTo(s string) (Tag, error)             { return New(KindSipTo, s) }
func SipFrom(s string) (Tag, error)           { return New(KindSipFrom, s) }
func SoaUserSdpStr(sdp string) (Tag, error)   { return New(KindSoaUserSdpStr, sdp) }
func SoaRemoteSdpStr(sdp string) (Tag, error) { return New(KindSoaRemoteSdpStr, sdp) }

// Parse разбирает отображаемую форму, полученную из Tag.String
func Parse(s string) (Tag, error) {
	name, value, ok := strings.Cut(s, ": ")
	if !ok {
		return Tag{}, fmt.Errorf("tag: нет разделителя в %q", s)
	}
	kind, ok := KindByName(name)
	if !ok {
		return Tag{}, sofiaerr.ErrMissingTagConversion.WithField("tag", name)
	}
	return New(kind, value)
}

// validateURL проверяет URL для nua::url. Движок принимает "*" вместо
// хоста (все интерфейсы), sipgo такой хост не разбирает.
func validateURL(value string) error {
	scheme, rest, ok := strings.Cut(value, ":")
	if !ok || rest == "" {
		return sofiaerr.ErrURL.WithField("url", value)
	}
	switch strings.ToLower(scheme) {
	case "sip", "sips":
	case "tel":
		return nil
	default:
		return sofiaerr.ErrURL.WithField("url", value).WithField("scheme", scheme)
	}

	normalized := value
	if host := strings.TrimPrefix(rest, "//"); strings.HasPrefix(host, "*") {
		normalized = scheme + ":0.0.0.0" + strings.TrimPrefix(host, "*")
	}
	var uri sip.Uri
	if err := sip.ParseUri(normalized, &uri); err != nil {
		return sofiaerr.ErrURL.WithField("url", value).WithCause(err)
	}
	if uri.Host == "" {
		return sofiaerr.ErrURL.WithField("url", value)
	}
	return nil
}
