//go:build cgo && sofiasip

package su

import (
	"github.com/arzzra/sofia_sip/pkg/native"
	"github.com/arzzra/sofia_sip/pkg/native/sofiasip"
)

func newEngine() native.Engine {
	return sofiasip.Default()
}
