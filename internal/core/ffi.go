// Released under an MIT license. See LICENSE.

//go:build linux && cgo
// +build linux,cgo

package core

/*
#cgo LDFLAGS: -ldl
#cgo pkg-config: libffi
#include <ffi.h>
#include <dlfcn.h>
#include <stdlib.h>
#include <stdint.h>

static void* ren_dlopen(const char* path) {
	return dlopen(path, RTLD_LAZY | RTLD_LOCAL);
}
static const char* ren_dlerror(void) {
	return dlerror();
}
static void* ren_dlsym(void* h, const char* name, char** err) {
	dlerror();
	void* p = dlsym(h, name);
	char* e = dlerror();
	if (e) { if (err) *err = e; return NULL; }
	if (err) *err = NULL;
	return p;
}
static int ren_dlclose(void* h) {
	return dlclose(h);
}

static ffi_cif* ren_alloc_cif(void) {
	return (ffi_cif*)malloc(sizeof(ffi_cif));
}

static int ren_prep_cif(ffi_cif* cif, unsigned int nargs,
    ffi_type* rtype, ffi_type** atypes) {
	return ffi_prep_cif(cif, FFI_DEFAULT_ABI, nargs, rtype, atypes);
}

static int ren_prep_cif_var(ffi_cif* cif, unsigned int nfixed,
    unsigned int ntotal, ffi_type* rtype, ffi_type** atypes) {
	return ffi_prep_cif_var(cif, FFI_DEFAULT_ABI, nfixed, ntotal, rtype, atypes);
}

// Generic void* fn avoids cgo's function-pointer type constraints.
static void ren_call(ffi_cif* cif, void* fn, void* rvalue, void** avalue) {
	ffi_call(cif, (void (*)(void))fn, rvalue, avalue);
}

static void* ren_closure_alloc(void** executable) {
	return ffi_closure_alloc(sizeof(ffi_closure), executable);
}
static void ren_closure_free(void* closure) {
	ffi_closure_free((ffi_closure*)closure);
}

extern void renCallbackInvoke(ffi_cif*, void*, void*, uintptr_t);
static void ren_callback_thunk(ffi_cif* cif, void* ret, void** args, void* user) {
	renCallbackInvoke(cif, ret, (void*)args, (uintptr_t)user);
}
static int ren_prep_closure(void* closure, ffi_cif* cif,
    void* userdata, void* executable) {
	return ffi_prep_closure_loc((ffi_closure*)closure, cif,
	    ren_callback_thunk, userdata, executable);
}

static ffi_type* ren_type_void(void)    { return &ffi_type_void; }
static ffi_type* ren_type_sint8(void)   { return &ffi_type_sint8; }
static ffi_type* ren_type_uint8(void)   { return &ffi_type_uint8; }
static ffi_type* ren_type_sint16(void)  { return &ffi_type_sint16; }
static ffi_type* ren_type_uint16(void)  { return &ffi_type_uint16; }
static ffi_type* ren_type_sint32(void)  { return &ffi_type_sint32; }
static ffi_type* ren_type_uint32(void)  { return &ffi_type_uint32; }
static ffi_type* ren_type_sint64(void)  { return &ffi_type_sint64; }
static ffi_type* ren_type_uint64(void)  { return &ffi_type_uint64; }
static ffi_type* ren_type_float(void)   { return &ffi_type_float; }
static ffi_type* ren_type_double(void)  { return &ffi_type_double; }
static ffi_type* ren_type_pointer(void) { return &ffi_type_pointer; }
*/
import "C"

import (
	"math"
	"runtime/cgo"
	"strconv"
	"strings"
	"unsafe"
)

// The foreign-function bridge. A library! wraps a dlopen handle, a
// routine is a function! whose dispatcher marshals cells through a
// prepared libffi CIF, and a callback wraps a ren function in a libffi
// closure so C code can call back into the evaluator.
//
// The evaluator is single-threaded; callbacks only ever arrive on the
// evaluator goroutine, from inside a routine call in progress.

// ffiAtom describes one marshalable C type.
type ffiAtom struct {
	name    string
	ctype   *C.ffi_type
	size    uintptr
	signed  bool
	float   bool
	pointer bool
	void    bool
	text    bool // char*: marshals a string copy
}

//nolint:gochecknoglobals
var ffiAtoms = map[string]*ffiAtom{
	"void":    {name: "void", ctype: C.ren_type_void(), void: true},
	"int8":    {name: "int8", ctype: C.ren_type_sint8(), size: 1, signed: true},
	"uint8":   {name: "uint8", ctype: C.ren_type_uint8(), size: 1},
	"int16":   {name: "int16", ctype: C.ren_type_sint16(), size: 2, signed: true},
	"uint16":  {name: "uint16", ctype: C.ren_type_uint16(), size: 2},
	"int32":   {name: "int32", ctype: C.ren_type_sint32(), size: 4, signed: true},
	"uint32":  {name: "uint32", ctype: C.ren_type_uint32(), size: 4},
	"int64":   {name: "int64", ctype: C.ren_type_sint64(), size: 8, signed: true},
	"uint64":  {name: "uint64", ctype: C.ren_type_uint64(), size: 8},
	"float":   {name: "float", ctype: C.ren_type_float(), size: 4, float: true},
	"double":  {name: "double", ctype: C.ren_type_double(), size: 8, float: true},
	"pointer": {name: "pointer", ctype: C.ren_type_pointer(), size: 8, pointer: true},
	"string":  {name: "string", ctype: C.ren_type_pointer(), size: 8, pointer: true, text: true},
}

// library wraps one dlopen handle and owns the C-heap state of every
// routine bound through it.
type library struct {
	path     string
	handle   unsafe.Pointer
	closed   bool
	routines []*routine
}

// routine is one bound C function. Fixed-arity routines carry a prepared
// CIF; variadic ones prepare a per-call CIF over the full argument list.
type routine struct {
	name     string
	lib      *library
	sym      unsafe.Pointer
	cif      *C.ffi_cif
	types    unsafe.Pointer // C-heap ffi_type** vector; libffi reads it per call
	ret      *ffiAtom
	args     []*ffiAtom
	variadic bool
}

// callback is a live libffi closure around a ren function. root is the
// paramlist pinned for the collector while the closure is live.
type callback struct {
	closure    unsafe.Pointer
	executable unsafe.Pointer
	handle     cgo.Handle
	cif        *C.ffi_cif
	types      unsafe.Pointer
	root       *Series
}

type callbackCtx struct {
	rt   *Runtime
	fn   Cell
	ret  *ffiAtom
	args []*ffiAtom
}

func dlerr() string {
	e := C.ren_dlerror()
	if e == nil {
		return "unknown dlerror"
	}

	return C.GoString(e)
}

func registerFFINatives(rt *Runtime) {
	natives := []nativeSpec{
		{name: "load-library", params: []Cell{rt.np("path")}, dispatch: nativeLoadLibrary},
		{name: "close-library", params: []Cell{rt.np("library")}, dispatch: nativeCloseLibrary},
		{name: "make-routine", params: []Cell{rt.np("library"), rt.np("name"), rt.np("spec")}, dispatch: nativeMakeRoutine},
		{name: "make-callback", params: []Cell{rt.np("function"), rt.np("spec")}, dispatch: nativeMakeCallback},
		{name: "free-callback", params: []Cell{rt.np("callback")}, dispatch: nativeFreeCallback},
	}

	for _, n := range natives {
		rt.registerNative(n)
	}
}

func nativeLoadLibrary(rt *Runtime, f *Frame) Signal {
	p := f.Arg(0)
	if !p.IsAnyString() {
		return rt.Fail(f.Out(), ErrIllegalAction, p)
	}

	path := p.ser.GoString(p.idx)

	cs := C.CString(path)
	defer C.free(unsafe.Pointer(cs))

	h := C.ren_dlopen(cs)
	if h == nil {
		return rt.Fail(f.Out(), ErrFFICIF, p)
	}

	lib := Cell{
		kind:  KindLibrary,
		flags: FlagWritable,
		hand:  &library{path: path, handle: unsafe.Pointer(h)},
	}
	f.Out().Copy(&lib)

	return SigOK
}

func nativeCloseLibrary(rt *Runtime, f *Frame) Signal {
	c := f.Arg(0)

	lib, ok := c.hand.(*library)
	if c.kind != KindLibrary || !ok {
		return rt.Fail(f.Out(), ErrIllegalAction, c)
	}

	if !lib.closed {
		lib.closed = true

		for _, r := range lib.routines {
			if r.cif != nil {
				C.free(unsafe.Pointer(r.cif))
				r.cif = nil
			}

			if r.types != nil {
				C.free(r.types)
				r.types = nil
			}
		}

		lib.routines = nil

		C.ren_dlclose(lib.handle)
	}

	void := Void()
	f.Out().Copy(&void)

	return SigOK
}

// parseCIFSpec reads a type spec block: the return type word followed by
// the argument type words, with an optional trailing variadic marker.
func (rt *Runtime) parseCIFSpec(spec *Cell, out *Cell) (*ffiAtom, []*ffiAtom, bool, Signal) {
	if spec.kind != KindBlock || SeriesLen(spec) < 1 {
		return nil, nil, false, rt.Fail(out, ErrFFICIF, spec)
	}

	atoms := make([]*ffiAtom, 0, SeriesLen(spec))
	variadic := false

	src := spec.ser
	for i, n := spec.idx, src.Len(); i < n; i++ {
		w := src.At(i)
		if !w.IsAnyWord() {
			return nil, nil, false, rt.Fail(out, ErrFFICIF, w)
		}

		name := strings.ToLower(w.word.Name())

		// The marker closes the fixed part; it cannot stand in for the
		// return type and nothing may follow it.
		if name == "variadic" {
			if i != n-1 || len(atoms) == 0 {
				return nil, nil, false, rt.Fail(out, ErrFFICIF, w)
			}

			variadic = true

			break
		}

		atom, ok := ffiAtoms[name]
		if !ok {
			return nil, nil, false, rt.Fail(out, ErrFFICIF, w)
		}

		atoms = append(atoms, atom)
	}

	ret := atoms[0]

	args := atoms[1:]
	for _, a := range args {
		if a.void {
			return nil, nil, false, rt.Fail(out, ErrFFICIF, spec)
		}
	}

	return ret, args, variadic, SigOK
}

// parseVariadicTail reads the trailing block of a variadic call: type word
// and value, pairwise. C default promotion applies to variadic arguments,
// so types narrower than int and single floats are rejected.
func (rt *Runtime) parseVariadicTail(block *Cell, out *Cell) ([]*ffiAtom, []*Cell, Signal) {
	if block.kind != KindBlock {
		return nil, nil, rt.Fail(out, ErrFFICIF, block)
	}

	var atoms []*ffiAtom

	var vals []*Cell

	src := block.ser
	for i, n := block.idx, src.Len(); i < n; i += 2 {
		w := src.At(i)
		if !w.IsAnyWord() || i+1 >= n {
			return nil, nil, rt.Fail(out, ErrFFICIF, w)
		}

		atom, ok := ffiAtoms[strings.ToLower(w.word.Name())]
		if !ok || atom.void || atom.size < 4 || (atom.float && atom.size == 4) {
			return nil, nil, rt.Fail(out, ErrFFICIF, w)
		}

		atoms = append(atoms, atom)
		vals = append(vals, src.At(i+1))
	}

	return atoms, vals, SigOK
}

// prepCIF allocates a C-heap cif and argv type vector for ret(args...).
func prepCIF(ret *ffiAtom, args []*ffiAtom) (*C.ffi_cif, unsafe.Pointer, bool) {
	var typesMem unsafe.Pointer

	var typesPtr **C.ffi_type

	if len(args) > 0 {
		typesMem = C.malloc(C.size_t(len(args)) * C.size_t(unsafe.Sizeof(uintptr(0))))
		vec := (*[1 << 20]*C.ffi_type)(typesMem)[:len(args):len(args)]

		for i, a := range args {
			vec[i] = a.ctype
		}

		typesPtr = (**C.ffi_type)(typesMem)
	}

	cif := C.ren_alloc_cif()

	if C.ren_prep_cif(cif, C.uint(len(args)), ret.ctype, typesPtr) != C.FFI_OK {
		C.free(unsafe.Pointer(cif))

		if typesMem != nil {
			C.free(typesMem)
		}

		return nil, nil, false
	}

	return cif, typesMem, true
}

// prepVarCIF builds a per-call cif for a variadic invocation: nfixed
// declared parameters, the rest from the call's trailing block.
func prepVarCIF(ret *ffiAtom, atoms []*ffiAtom, nfixed int) (*C.ffi_cif, unsafe.Pointer, bool) {
	var typesMem unsafe.Pointer

	var typesPtr **C.ffi_type

	if len(atoms) > 0 {
		typesMem = C.malloc(C.size_t(len(atoms)) * C.size_t(unsafe.Sizeof(uintptr(0))))
		vec := (*[1 << 20]*C.ffi_type)(typesMem)[:len(atoms):len(atoms)]

		for i, a := range atoms {
			vec[i] = a.ctype
		}

		typesPtr = (**C.ffi_type)(typesMem)
	}

	cif := C.ren_alloc_cif()

	if C.ren_prep_cif_var(cif, C.uint(nfixed), C.uint(len(atoms)), ret.ctype, typesPtr) != C.FFI_OK {
		C.free(unsafe.Pointer(cif))

		if typesMem != nil {
			C.free(typesMem)
		}

		return nil, nil, false
	}

	return cif, typesMem, true
}

func nativeMakeRoutine(rt *Runtime, f *Frame) Signal {
	c := f.Arg(0)
	name := f.Arg(1)
	spec := f.Arg(2)

	lib, ok := c.hand.(*library)
	if c.kind != KindLibrary || !ok || lib.closed {
		return rt.Fail(f.Out(), ErrIllegalAction, c)
	}

	if !name.IsAnyString() {
		return rt.Fail(f.Out(), ErrIllegalAction, name)
	}

	ret, args, variadic, sig := rt.parseCIFSpec(spec, f.Out())
	if sig != SigOK {
		return sig
	}

	symName := name.ser.GoString(name.idx)

	cs := C.CString(symName)
	defer C.free(unsafe.Pointer(cs))

	var cerr *C.char

	sym := C.ren_dlsym(lib.handle, cs, &cerr)
	if cerr != nil {
		return rt.Fail(f.Out(), ErrFFICIF, name)
	}

	r := &routine{
		name:     symName,
		lib:      lib,
		sym:      unsafe.Pointer(sym),
		ret:      ret,
		args:     args,
		variadic: variadic,
	}

	// A variadic routine preps its cif per call, once the tail types are
	// known.
	if !variadic {
		cif, typesMem, ok := prepCIF(ret, args)
		if !ok {
			return rt.Fail(f.Out(), ErrFFICIF, spec)
		}

		r.cif = cif
		r.types = typesMem
	}

	lib.routines = append(lib.routines, r)

	// A routine presents as an ordinary function: one normal parameter
	// per C argument, dispatching into the marshaller. A variadic routine
	// takes one more, the block of type/value pairs for the tail.
	params := make([]Cell, len(args), len(args)+1)
	for i := range args {
		params[i] = rt.np("arg" + strconv.Itoa(i+1))
	}

	if variadic {
		params = append(params, rt.np("more"))
	}

	p := rt.MakeParamlist(params, &funcInfo{
		dispatch: func(rt *Runtime, f *Frame) Signal {
			return rt.callRoutine(r, f)
		},
	})
	rt.Heap.Manage(p)

	fn := Function(p)
	f.Out().Copy(&fn)

	return SigOK
}

// writeback records a binary argument marshalled through a C copy; the
// copy is written back after the call, so in-place routines like qsort
// are observable.
type writeback struct {
	buf *Series
	off int
	c   unsafe.Pointer
	n   int
}

// callRoutine marshals the frame's arguments into C storage, performs the
// call, and unmarshals the return value.
func (rt *Runtime) callRoutine(r *routine, f *Frame) Signal {
	if r.lib.closed {
		return rt.Fail(f.Out(), ErrIllegalAction)
	}

	atoms := r.args
	vals := make([]*Cell, len(r.args))

	for i := range r.args {
		vals[i] = f.Arg(i)
	}

	cif := r.cif

	if r.variadic {
		more := f.Arg(len(r.args))

		tailAtoms, tailVals, sig := rt.parseVariadicTail(more, f.Out())
		if sig != SigOK {
			return sig
		}

		atoms = append(append([]*ffiAtom{}, r.args...), tailAtoms...)
		vals = append(vals, tailVals...)

		var typesMem unsafe.Pointer

		var ok bool

		cif, typesMem, ok = prepVarCIF(r.ret, atoms, len(r.args))
		if !ok {
			return rt.Fail(f.Out(), ErrFFICIF, more)
		}

		defer C.free(unsafe.Pointer(cif))

		if typesMem != nil {
			defer C.free(typesMem)
		}
	}

	n := len(atoms)

	// One 8-byte slot per argument plus the return slot.
	storage := C.malloc(C.size_t((n + 1) * 8))
	defer C.free(storage)

	argv := C.malloc(C.size_t(n+1) * C.size_t(unsafe.Sizeof(uintptr(0))))
	defer C.free(argv)

	slots := (*[1 << 20]unsafe.Pointer)(argv)[: n+1 : n+1]

	var frees []unsafe.Pointer

	defer func() {
		for _, p := range frees {
			C.free(p)
		}
	}()

	var wb []writeback

	for i, a := range atoms {
		slot := unsafe.Add(storage, i*8)
		slots[i] = slot

		if sig := rt.marshalArg(a, vals[i], slot, i+1, &frees, &wb, f.Out()); sig != SigOK {
			return sig
		}
	}

	rvalue := unsafe.Add(storage, n*8)

	C.ren_call(cif, r.sym, rvalue, (*unsafe.Pointer)(argv))

	// A callback may have trapped a failure; surface it now that the C
	// stack is unwound.
	if !rt.callbackErr.IsEnd() {
		e := rt.callbackErr
		rt.callbackErr.Prep()

		return rt.Throw(f.Out(), &e, nil)
	}

	for _, w := range wb {
		copy(w.buf.data[w.off:], unsafe.Slice((*byte)(w.c), w.n))
	}

	return rt.readReturn(r.ret, rvalue, f.Out())
}

// marshalArg writes one cell into the C argument slot for atom a. pos is
// the 1-based argument position, for the overflow report.
//
//nolint:gocyclo
func (rt *Runtime) marshalArg(a *ffiAtom, v *Cell, slot unsafe.Pointer, pos int,
	frees *[]unsafe.Pointer, wb *[]writeback, out *Cell,
) Signal {
	switch {
	case a.text:
		if !v.IsAnyString() {
			return rt.Fail(out, ErrArgType, v)
		}

		cs := C.CString(v.ser.GoString(v.idx))
		*frees = append(*frees, unsafe.Pointer(cs))
		*(*unsafe.Pointer)(slot) = unsafe.Pointer(cs)

	case a.pointer:
		switch {
		case v.kind == KindBinary:
			src := v.ser.data[v.idx:]

			buf := C.malloc(C.size_t(len(src) + 1))
			*frees = append(*frees, buf)

			if len(src) > 0 {
				copy(unsafe.Slice((*byte)(buf), len(src)), src)
			}

			*(*unsafe.Pointer)(slot) = buf
			*wb = append(*wb, writeback{buf: v.ser, off: v.idx, c: buf, n: len(src)})
		case v.kind == KindHandle:
			if p, ok := CallbackPointer(v); ok {
				*(*unsafe.Pointer)(slot) = p

				break
			}

			_, payload := v.HandleValue()

			p, ok := payload.(unsafe.Pointer)
			if !ok {
				return rt.Fail(out, ErrArgType, v)
			}

			*(*unsafe.Pointer)(slot) = p
		case v.kind == KindBlank:
			*(*unsafe.Pointer)(slot) = nil
		default:
			return rt.Fail(out, ErrArgType, v)
		}

	case a.float:
		fn, ok := numeric(v)
		if !ok {
			return rt.Fail(out, ErrArgType, v)
		}

		if a.size == 4 {
			*(*float32)(slot) = float32(fn)
		} else {
			*(*float64)(slot) = fn
		}

	default:
		if v.kind != KindInteger && v.kind != KindChar && v.kind != KindLogic {
			return rt.Fail(out, ErrArgType, v)
		}

		iv := v.Int()
		if !intFits(a, iv) {
			name := Word(rt.Intern("arg" + strconv.Itoa(pos)))

			return rt.Fail(out, ErrOverflow, &name, v)
		}

		writeInt(slot, a, iv)
	}

	return SigOK
}

// intFits reports whether v is representable in the fixed-width C type.
func intFits(a *ffiAtom, v int64) bool {
	if a.signed {
		switch a.size {
		case 1:
			return v >= math.MinInt8 && v <= math.MaxInt8
		case 2:
			return v >= math.MinInt16 && v <= math.MaxInt16
		case 4:
			return v >= math.MinInt32 && v <= math.MaxInt32
		default:
			return true
		}
	}

	if v < 0 {
		return false
	}

	switch a.size {
	case 1:
		return v <= math.MaxUint8
	case 2:
		return v <= math.MaxUint16
	case 4:
		return v <= math.MaxUint32
	default:
		return true
	}
}

func writeInt(slot unsafe.Pointer, a *ffiAtom, v int64) {
	switch a.size {
	case 1:
		*(*int8)(slot) = int8(v)
	case 2:
		*(*int16)(slot) = int16(v)
	case 4:
		*(*int32)(slot) = int32(v)
	default:
		*(*int64)(slot) = v
	}
}

func readInt(slot unsafe.Pointer, a *ffiAtom) int64 {
	if a.signed {
		switch a.size {
		case 1:
			return int64(*(*int8)(slot))
		case 2:
			return int64(*(*int16)(slot))
		case 4:
			return int64(*(*int32)(slot))
		default:
			return *(*int64)(slot)
		}
	}

	switch a.size {
	case 1:
		return int64(*(*uint8)(slot))
	case 2:
		return int64(*(*uint16)(slot))
	case 4:
		return int64(*(*uint32)(slot))
	default:
		return int64(*(*uint64)(slot))
	}
}

func (rt *Runtime) readReturn(a *ffiAtom, rvalue unsafe.Pointer, out *Cell) Signal {
	switch {
	case a.void:
		void := Void()
		out.Copy(&void)
	case a.text:
		p := *(*unsafe.Pointer)(rvalue)
		if p == nil {
			blank := Blank()
			out.Copy(&blank)

			return SigOK
		}

		return rt.textOutCell(C.GoString((*C.char)(p)), out)
	case a.pointer:
		p := *(*unsafe.Pointer)(rvalue)

		h := Handle("pointer", p)
		out.Copy(&h)
	case a.float:
		var fv float64
		if a.size == 4 {
			fv = float64(*(*float32)(rvalue))
		} else {
			fv = *(*float64)(rvalue)
		}

		d := Decimal(fv)
		out.Copy(&d)
	default:
		v := Integer(readInt(rvalue, a))
		out.Copy(&v)
	}

	return SigOK
}

func (rt *Runtime) textOutCell(text string, out *Cell) Signal {
	s := rt.AllocString(len(text))
	rt.Heap.Guard(s)
	s.AppendString(text)
	rt.Heap.Unguard(s)
	rt.Heap.Manage(s)

	v := String(s)
	out.Copy(&v)

	return SigOK
}

func nativeMakeCallback(rt *Runtime, f *Frame) Signal {
	fn := f.Arg(0)
	spec := f.Arg(1)

	if fn.kind != KindFunction {
		return rt.Fail(f.Out(), ErrIllegalAction, fn)
	}

	ret, args, variadic, sig := rt.parseCIFSpec(spec, f.Out())
	if sig != SigOK {
		return sig
	}

	// A closure has one fixed signature; C cannot call it variadically.
	if variadic {
		return rt.Fail(f.Out(), ErrFFICIF, spec)
	}

	cif, typesMem, ok := prepCIF(ret, args)
	if !ok {
		return rt.Fail(f.Out(), ErrFFICIF, spec)
	}

	var executable unsafe.Pointer

	closure := C.ren_closure_alloc(&executable)
	if closure == nil {
		C.free(unsafe.Pointer(cif))

		return rt.Fail(f.Out(), ErrFFICIF, spec)
	}

	ctx := &callbackCtx{rt: rt, ret: ret, args: args}
	ctx.fn.Prep()
	ctx.fn.Copy(fn)

	h := cgo.NewHandle(ctx)

	st := C.ren_prep_closure(closure, cif, unsafe.Pointer(uintptr(h)), executable)
	if st != C.FFI_OK {
		h.Delete()
		C.ren_closure_free(closure)
		C.free(unsafe.Pointer(cif))

		return rt.Fail(f.Out(), ErrFFICIF, spec)
	}

	cb := &callback{
		closure:    closure,
		executable: executable,
		handle:     h,
		cif:        cif,
		types:      typesMem,
		root:       fn.ser,
	}

	// The closure context references the wrapped function from outside
	// the heap; pin its paramlist until the callback is freed.
	rt.AddFFIRoot(fn.ser)

	out := Cell{kind: KindHandle, flags: FlagWritable, hand: handlePayload{"callback", cb}}
	f.Out().Copy(&out)

	return SigOK
}

func nativeFreeCallback(rt *Runtime, f *Frame) Signal {
	c := f.Arg(0)

	if c.kind != KindHandle {
		return rt.Fail(f.Out(), ErrNotFFICallback, c)
	}

	tag, payload := c.HandleValue()

	cb, ok := payload.(*callback)
	if tag != "callback" || !ok {
		return rt.Fail(f.Out(), ErrNotFFICallback, c)
	}

	if cb.closure != nil {
		cb.handle.Delete()
		C.ren_closure_free(cb.closure)
		C.free(unsafe.Pointer(cb.cif))

		if cb.types != nil {
			C.free(cb.types)
		}

		cb.closure = nil

		rt.ReleaseFFIRoot(cb.root)
		cb.root = nil
	}

	void := Void()
	f.Out().Copy(&void)

	return SigOK
}

// CallbackPointer returns the C-callable entry of a callback handle, for
// passing to routines taking a function pointer.
func CallbackPointer(c *Cell) (unsafe.Pointer, bool) {
	if c.kind != KindHandle {
		return nil, false
	}

	tag, payload := c.HandleValue()

	cb, ok := payload.(*callback)
	if tag != "callback" || !ok || cb.closure == nil {
		return nil, false
	}

	return cb.executable, true
}

//export renCallbackInvoke
func renCallbackInvoke(cif *C.ffi_cif, ret unsafe.Pointer, argv unsafe.Pointer, user C.uintptr_t) {
	h := cgo.Handle(user)

	ctx, ok := h.Value().(*callbackCtx)
	if !ok {
		return
	}

	rt := ctx.rt

	n := len(ctx.args)
	slots := (*[1 << 20]unsafe.Pointer)(argv)[:n:n]

	vals := make([]Cell, 0, n+1)

	fnv := Cell{}
	fnv.Prep()
	fnv.Copy(&ctx.fn)
	vals = append(vals, fnv)

	for i, a := range ctx.args {
		var c Cell

		c.Prep()

		switch {
		case a.text:
			p := *(*unsafe.Pointer)(slots[i])
			if p == nil {
				c.Copy(&Cell{kind: KindBlank, flags: FlagWritable})
			} else {
				rt.textOutCell(C.GoString((*C.char)(p)), &c)
			}
		case a.pointer:
			hv := Handle("pointer", *(*unsafe.Pointer)(slots[i]))
			c.Copy(&hv)
		case a.float:
			var fv float64
			if a.size == 4 {
				fv = float64(*(*float32)(slots[i]))
			} else {
				fv = *(*float64)(slots[i])
			}

			d := Decimal(fv)
			c.Copy(&d)
		default:
			v := Integer(readInt(slots[i], a))
			c.Copy(&v)
		}

		vals = append(vals, c)
	}

	var out Cell

	out.Prep()

	// A failure cannot unwind through the C frames of the caller; it is
	// parked and re-raised when the routine call returns.
	if sig := rt.DoVa(&out, vals...); sig != SigOK {
		rt.callbackErr.Prep()
		rt.callbackErr.Copy(&out)
		rt.callbackErr.ClearFlag(FlagThrown)
		out.ClearFlag(FlagThrown)

		if !ctx.ret.void {
			writeInt(ret, ctx.ret, 0)
		}

		return
	}

	switch {
	case ctx.ret.void:
	case ctx.ret.float:
		fv, _ := numeric(&out)
		if ctx.ret.size == 4 {
			*(*float32)(ret) = float32(fv)
		} else {
			*(*float64)(ret) = fv
		}
	case ctx.ret.pointer:
		if out.kind == KindHandle {
			_, payload := out.HandleValue()
			if p, ok := payload.(unsafe.Pointer); ok {
				*(*unsafe.Pointer)(ret) = p

				return
			}
		}

		*(*unsafe.Pointer)(ret) = nil
	default:
		if out.kind != KindInteger && out.kind != KindChar && out.kind != KindLogic {
			writeInt(ret, ctx.ret, 0)

			return
		}

		iv := out.Int()
		if !intFits(ctx.ret, iv) {
			// Parked like a failure: surfaced when the routine returns.
			e := rt.NewError(ErrOverflow, &out)
			rt.callbackErr.Prep()
			rt.callbackErr.Copy(&e)
			writeInt(ret, ctx.ret, 0)

			return
		}

		writeInt(ret, ctx.ret, iv)
	}
}
