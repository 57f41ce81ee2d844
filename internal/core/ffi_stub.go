// Released under an MIT license. See LICENSE.

//go:build !linux || !cgo
// +build !linux !cgo

package core

import (
	"unsafe"
)

// Non-libffi build: the bridge natives exist but fail when invoked.

func registerFFINatives(rt *Runtime) {
	unavailable := func(rt *Runtime, f *Frame) Signal {
		return rt.Fail(f.Out(), ErrFFINotAvailable)
	}

	natives := []nativeSpec{
		{name: "load-library", params: []Cell{rt.np("path")}, dispatch: unavailable},
		{name: "close-library", params: []Cell{rt.np("library")}, dispatch: unavailable},
		{name: "make-routine", params: []Cell{rt.np("library"), rt.np("name"), rt.np("spec")}, dispatch: unavailable},
		{name: "make-callback", params: []Cell{rt.np("function"), rt.np("spec")}, dispatch: unavailable},
		{name: "free-callback", params: []Cell{rt.np("callback")}, dispatch: unavailable},
	}

	for _, n := range natives {
		rt.registerNative(n)
	}
}

// CallbackPointer always reports absence without libffi.
func CallbackPointer(c *Cell) (unsafe.Pointer, bool) {
	return nil, false
}
