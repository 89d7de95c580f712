//go:build !(cgo && sofiasip)

package su

import (
	"github.com/arzzra/sofia_sip/pkg/native"
	"github.com/arzzra/sofia_sip/pkg/native/gonua"
)

func newEngine() native.Engine {
	return gonua.Default()
}
