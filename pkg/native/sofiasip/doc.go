// Package sofiasip реализует native.Engine поверх libsofia-sip-ua через
// cgo.
//
// Пакет собирается только с build tag sofiasip и включенным cgo:
//
//	go build -tags sofiasip ./...
//
// Нужен pkg-config модуль sofia-sip-ua. Вызовы с переменным числом
// тегов выполняются через C обертки в shim.c, которые передают список
// как TAG_NEXT. Контексты (magic) и указатели движка пересекают границу
// как uintptr_t и приводятся к типам sofia только на стороне C.
package sofiasip
