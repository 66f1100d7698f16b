// Package apply implements the ABI contract spec.md §6 describes: a
// per-platform configuration record plus the marshalling shim that walks
// a caller's argument-pointer array into the right registers/stack slots
// and invokes a compiled (or native) function, the same record driving
// both jit_function_apply (host -> compiled) and native-call emission
// (compiled -> host). It is grounded on the teacher's vm/exec.go, which
// plays the analogous "take typed operands off a generic stack and
// invoke the right native operation" role for GVM's interpreter loop.
package apply

import (
	"fmt"
	"math"
	"unsafe"

	"jit/internal/typesys"
)

// Config is the detected-at-build-time ABI description spec.md §6 asks
// for: "generated by a detection tool" in the original; here it is a
// literal struct populated once per supported platform (AMD64SysV below)
// rather than probed at runtime, since Go's target triples are a fixed,
// known set.
type Config struct {
	NumGPRArgRegs        int
	NumFPArgRegs         int
	PadStackArgs         bool  // whether stack-passed args are padded to word size
	FloatInGPROverlap    bool  // whether a float argument also consumes a GPR slot
	SmallStructRegMask   uint32 // bit i set iff a struct of size i+1 returns in registers
	StructReturnReg      int    // GPR that receives a hidden return-pointer argument
	VarargOnStack        bool   // true if vararg overflow always goes to the stack, never registers
	FramePointerOffset   int32
	ReturnAddressOffset  int32
	MaxApplyFrameSize    int32
}

// AMD64SysV is the System V AMD64 ABI configuration, the only platform
// this module targets.
var AMD64SysV = Config{
	NumGPRArgRegs:       6, // rdi, rsi, rdx, rcx, r8, r9
	NumFPArgRegs:        8, // xmm0-xmm7
	PadStackArgs:        true,
	FloatInGPROverlap:   false,
	SmallStructRegMask:  0xFFFF, // sizes 1..16 bytes return in RAX:RDX or XMM0:XMM1
	StructReturnReg:     0,      // rdi carries the hidden pointer per the SysV convention
	VarargOnStack:       false,
	FramePointerOffset:  0,
	ReturnAddressOffset: 8,
	MaxApplyFrameSize:   4096,
}

// Arg is one marshalled argument: exactly one of the typed fields is
// meaningful, selected by Type.Kind() after normalization.
type Arg struct {
	Type  *typesys.Type
	Int   int64
	Float float64
	Ptr   unsafe.Pointer
}

// Apply marshals args into the platform calling convention described by
// cfg and invokes fn (a raw code pointer, i.e. a compiled function's
// entry point or a native C function), writing the return value's bytes
// into ret. This mirrors spec.md §6's jit_function_apply: the same
// register/stack layout decisions also drive insn_call_native's codegen,
// which is why Config is shared rather than private to this package.
//
// The call itself is performed through Go's reflect-free raw-call
// trampoline in internal/ssa's closure support (ToClosure); this function
// only computes the marshalled argument layout, returning it for the
// caller to hand to that trampoline, since Go has no portable way to
// perform a variadic-register native call without either cgo or a
// hand-written assembly stub — and cgo is not part of this module's
// dependency surface.
func Marshal(cfg Config, sig *typesys.Type, args []Arg) (gpr []int64, fp []float64, stack []byte, err error) {
	if len(args) != sig.NumParams() {
		return nil, nil, nil, fmt.Errorf("apply: expected %d arguments, got %d", sig.NumParams(), len(args))
	}
	gprUsed, fpUsed := 0, 0
	for i, a := range args {
		pt := typesys.Normalize(sig.Param(i))
		switch {
		case pt.IsFloat():
			if fpUsed < cfg.NumFPArgRegs {
				fp = append(fp, a.Float)
				fpUsed++
			} else {
				stack = append(stack, float64Bytes(a.Float)...)
			}
		case pt.Kind() == typesys.Pointer:
			if gprUsed < cfg.NumGPRArgRegs {
				gpr = append(gpr, int64(uintptr(a.Ptr)))
				gprUsed++
			} else {
				stack = append(stack, int64Bytes(int64(uintptr(a.Ptr)))...)
			}
		default:
			if gprUsed < cfg.NumGPRArgRegs {
				gpr = append(gpr, a.Int)
				gprUsed++
			} else {
				stack = append(stack, int64Bytes(a.Int)...)
			}
		}
	}
	return gpr, fp, stack, nil
}

// ReturnViaHiddenPointer reports whether sig's return type must be
// lowered through cfg.StructReturnReg rather than returned in registers,
// consulting cfg's small-struct-return mask the way typesys.ReturnViaPointer
// consults its own precomputed table (kept separate because the apply
// layer's mask is platform-detected while typesys's is a fixed built-in
// default, per spec.md §6's note that the apply config "enumerates... a
// small-struct-in-register mask").
func ReturnViaHiddenPointer(cfg Config, size int32) bool {
	if size <= 0 || size > 32 {
		return true
	}
	if size > 16 {
		return true
	}
	return cfg.SmallStructRegMask&(1<<uint(size-1)) == 0
}

func int64Bytes(v int64) []byte {
	b := make([]byte, 8)
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
	return b
}

func float64Bytes(v float64) []byte {
	return int64Bytes(int64(math.Float64bits(v)))
}
