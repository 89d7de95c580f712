// Package native описывает границу с нативным SIP движком.
//
// Движок доступен через C-подобный ABI: непрозрачные указатели, массивы
// тегов (symbol, value), завершенные нулевым элементом, и единственный
// callback, который движок вызывает синхронно из step/run на том же
// потоке. Пакет задает этот ABI в виде Go типов, чтобы слой привязки
// (su, nua, tag, message) был написан один раз для любой реализации
// движка:
//   - sofiasip - libsofia-sip-ua через cgo (build tag sofiasip)
//   - gonua - движок на sipgo без нативных зависимостей (по умолчанию)
//
// Значения всех указателей непрозрачны для слоя привязки. Ноль означает
// NULL.
package native

// Ptr непрозрачный указатель движка
type Ptr uintptr

// Root указатель на su_root_t
type Root Ptr

// Nua указатель на nua_t
type Nua Ptr

// Handle указатель на nua_handle_t
type Handle Ptr

// Sip указатель на sip_t, действителен только на время callback
type Sip Ptr

// URL указатель на url_t
type URL Ptr

// Magic непрозрачный контекст, который движок возвращает в callback.
// Слой привязки передает сюда идентификаторы из реестра, а не адреса
// Go объектов.
type Magic Ptr

// Tags указатель на первый элемент массива Item
type Tags Ptr

// Symbol адрес типа тега (tag_type_t)
type Symbol uintptr

// Item элемент списка тегов. Раскладка совпадает с tagi_t.
type Item struct {
	Tag   Symbol
	Value uintptr
}

// IsSentinel проверяет, является ли элемент завершающим (TAG_NULL)
func (i Item) IsSentinel() bool {
	return i.Tag == 0
}

// Callback сигнатура функции, которую движок вызывает для каждого события
type Callback func(event int32, status int32, phrase Ptr, nua Nua, magic Magic,
	nh Handle, hmagic Magic, sip Sip, tags Tags)

// Address поля sip_addr_t (From, To)
type Address struct {
	Display Ptr
	URL     URL
}

// Payload поля sip_payload_t
type Payload struct {
	Data Ptr
	Len  int
}

// Reactor операции su_root
type Reactor interface {
	// Init однократная инициализация библиотеки (su_init)
	Init() error
	Deinit()

	RootCreate(magic Magic) (Root, error)
	RootThreading(r Root, enabled bool)
	// RootStep возвращает миллисекунды до следующего таймера или
	// отрицательное значение. Ошибка соответствует errno движка.
	RootStep(r Root, timeoutMs int64) (int64, error)
	RootSleep(r Root, timeoutMs int64) int64
	RootRun(r Root)
	RootBreak(r Root)
	RootDestroy(r Root)
}

// Agent операции nua и nua_handle
type Agent interface {
	NuaCreate(r Root, cb Callback, magic Magic, tags Tags) (Nua, error)
	NuaShutdown(n Nua)
	NuaDestroy(n Nua)

	HandleCreate(n Nua, magic Magic, tags Tags) (Handle, error)
	Message(h Handle, tags Tags)
	Invite(h Handle, tags Tags)
	HandleDestroy(h Handle)
}

// TagCodec таблица символов тегов и чтение входящих списков тегов
type TagCodec interface {
	// Symbol возвращает символ по имени вида "sip::subject_str", 0 если
	// движок такого тега не знает
	Symbol(name string) Symbol
	// SymbolName обратное отображение, "" для неизвестных символов
	SymbolName(s Symbol) string
	// WalkTags обходит список до завершающего элемента. Служебные
	// элементы (TAG_NEXT, TAG_SKIP) движок разворачивает сам.
	WalkTags(t Tags, fn func(Item) bool)
	// TagValue декодирует значение известного строкового тега
	TagValue(it Item) (string, bool)
}

// MessageReader чтение полей sip_t
type MessageReader interface {
	GoString(p Ptr) string
	GoBytes(p Ptr, n int) []byte

	SipFrom(s Sip) *Address
	SipTo(s Sip) *Address
	SipSubject(s Sip) Ptr
	SipContentType(s Sip) Ptr
	SipPayload(s Sip) *Payload

	// URLFormat повторяет url_e: пишет URL в buf (с NUL, если хватает
	// места) и возвращает длину без NUL. С buf == nil только считает.
	URLFormat(buf []byte, u URL) int
}

// Engine полный набор операций движка
type Engine interface {
	Name() string
	Reactor
	Agent
	TagCodec
	MessageReader
}
