// Package sofiaerr содержит ошибки слоя привязки к SIP движку.
//
// Все ошибки этого пакета восстановимы: они возвращаются вызывающему
// коду как обычные значения error. Проверка выполняется через errors.Is
// по коду ошибки:
//
//	if errors.Is(err, sofiaerr.ErrCreateNua) { ... }
package sofiaerr

import (
	"errors"
	"fmt"
)

// Code код ошибки
type Code string

const (
	CodeInit                 Code = "INIT"                   // Ошибка инициализации библиотеки или реактора
	CodeCreateNua            Code = "CREATE_NUA"             // Движок не создал агента
	CodeCreateNuaHandle      Code = "CREATE_NUA_HANDLE"      // Движок не создал handle диалога
	CodeURL                  Code = "URL"                    // Некорректный URL
	CodeConvertToCString     Code = "CONVERT_TO_CSTRING"     // Строка содержит NUL байт
	CodeMissingTagConversion Code = "MISSING_TAG_CONVERSION" // Тег не имеет нативного символа
)

// String возвращает строковое представление кода
func (c Code) String() string {
	return string(c)
}

// Error структурированная ошибка с кодом и контекстом
type Error struct {
	Code    Code           `json:"code"`
	Message string         `json:"message"`
	Fields  map[string]any `json:"fields,omitempty"`
	Cause   error          `json:"cause,omitempty"`
}

// Error реализует интерфейс error
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap позволяет использовать errors.Is и errors.As для исходной ошибки
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is сравнивает ошибки по коду. Благодаря этому errors.Is(err, ErrURL)
// срабатывает для любой ошибки с кодом URL, независимо от сообщения.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return other.Code == e.Code
}

// WithField добавляет поле контекста. Возвращает копию, исходная ошибка
// (в том числе sentinel) не изменяется.
func (e *Error) WithField(key string, value any) *Error {
	c := e.clone()
	c.Fields[key] = value
	return c
}

// WithCause добавляет исходную ошибку
func (e *Error) WithCause(cause error) *Error {
	c := e.clone()
	c.Cause = cause
	return c
}

func (e *Error) clone() *Error {
	c := *e
	c.Fields = make(map[string]any, len(e.Fields)+1)
	for k, v := range e.Fields {
		c.Fields[k] = v
	}
	return &c
}

// New создает ошибку с кодом
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf создает ошибку с форматированным сообщением
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Предопределенные ошибки для проверки через errors.Is
var (
	ErrInit                 = New(CodeInit, "не удалось инициализировать реактор")
	ErrCreateNua            = New(CodeCreateNua, "не удалось создать агента")
	ErrCreateNuaHandle      = New(CodeCreateNuaHandle, "не удалось создать handle")
	ErrURL                  = New(CodeURL, "некорректный URL")
	ErrConvertToCString     = New(CodeConvertToCString, "строка содержит нулевой байт")
	ErrMissingTagConversion = New(CodeMissingTagConversion, "нет нативного символа для тега")
)

// CodeOf возвращает код ошибки, если в цепочке есть *Error
func CodeOf(err error) (Code, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Code, true
	}
	return "", false
}
